package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/slack-go/slack"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

const (
	ColorRed    = 16711680 // #FF0000 - incident created, monitor down
	ColorGreen  = 65280    // #00FF00 - resolved, recovered
	ColorOrange = 16753920 // #FFA500 - anything else

	Username = "StatusWatch"

	webhookSecretHeader = "X-Webhook-Secret"
)

// eventHeadline renders "incident_created" as "INCIDENT CREATED".
func eventHeadline(t types.EventType) string {
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}

func isDiscordWebhook(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "discord.com" || host == "discordapp.com" ||
		strings.HasSuffix(host, ".discord.com") || strings.HasSuffix(host, ".discordapp.com")
}

func (d *Dispatcher) sendChat(ctx context.Context, webhookURL string, event Event) error {
	if isDiscordWebhook(webhookURL) {
		return d.sendDiscord(ctx, webhookURL, event)
	}
	return d.sendSlack(ctx, webhookURL, event)
}

func (d *Dispatcher) sendSlack(ctx context.Context, webhookURL string, event Event) error {
	pageName := event.PageName
	if pageName == "" {
		pageName = "Status Page"
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("*%s*\n%s", eventHeadline(event.Type), event.Message),
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewSectionBlock(
					slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", pageName, event.Message), false, false),
					nil, nil,
				),
			},
		},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, webhookURL, d.client, msg); err != nil {
		return fmt.Errorf("failed to send Slack webhook: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendDiscord(ctx context.Context, webhookURL string, event Event) error {
	color := ColorOrange
	switch event.Type {
	case types.EventIncidentCreated, types.EventMonitorDown:
		color = ColorRed
	case types.EventIncidentResolved, types.EventMonitorRecovered:
		color = ColorGreen
	}

	fields := []DiscordWebhookField{}
	if event.MonitorName != "" {
		fields = append(fields, DiscordWebhookField{Name: "Monitor", Value: event.MonitorName, Inline: true})
	}
	if event.Incident != nil {
		fields = append(fields,
			DiscordWebhookField{Name: "Incident", Value: event.Incident.Title, Inline: false},
			DiscordWebhookField{Name: "Severity", Value: string(event.Incident.Severity), Inline: true},
			DiscordWebhookField{Name: "Started At", Value: event.Incident.StartedAt.Format("2006-01-02 15:04:05 UTC"), Inline: true},
		)
		if event.Incident.ResolvedAt != nil {
			duration := event.Incident.ResolvedAt.Sub(event.Incident.StartedAt).Round(time.Second)
			fields = append(fields, DiscordWebhookField{Name: "Duration", Value: duration.String(), Inline: true})
		}
	}

	payload := DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       eventHeadline(event.Type),
				Description: event.Message,
				Color:       color,
				Fields:      fields,
				Footer:      &DiscordFooter{Text: fmt.Sprintf("%s | StatusWatch", event.PageName)},
				Timestamp:   d.now().Format(time.RFC3339),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	if err := d.post(ctx, webhookURL, body, nil); err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendWebhook(ctx context.Context, cfg types.GenericWebhookConfig, body []byte) error {
	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Secret != "" {
		headers[webhookSecretHeader] = cfg.Secret
	}

	if err := d.post(ctx, cfg.URL, body, headers); err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	return nil
}

func (d *Dispatcher) post(ctx context.Context, target string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "StatusWatch-Notifier/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
