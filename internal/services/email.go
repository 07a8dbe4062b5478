package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"github.com/microcosm-cc/bluemonday"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/russross/blackfriday/v2"
)

var subscriberEmailTemplate = template.Must(template.New("subscriber").Parse(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{.Title}}</h2>
  {{.Body}}
  <p><a href="{{.PageURL}}">View Status Page</a></p>
  <hr />
  <p style="color: #666; font-size: 12px;">
    <a href="{{.UnsubscribeURL}}">Unsubscribe</a>
  </p>
</div>`))

var messagePolicy = bluemonday.UGCPolicy()

type subscriberEmailData struct {
	Title          string
	Body           template.HTML
	PageURL        string
	UnsubscribeURL string
}

// renderMessage turns an incident message written in markdown into sanitized HTML.
func renderMessage(msg string) template.HTML {
	rendered := blackfriday.Run([]byte(msg))
	return template.HTML(messagePolicy.SanitizeBytes(rendered))
}

func (d *Dispatcher) subscriberEmail(event Event, sub models.Subscriber) (Email, error) {
	title := "Status Update"
	if event.Incident != nil && event.Incident.Title != "" {
		title = event.Incident.Title
	}

	subjectTag := "Incident"
	if event.Type == types.EventIncidentResolved {
		subjectTag = "Resolved"
	}
	subjectText := event.Message
	if event.Incident != nil && event.Incident.Title != "" {
		subjectText = event.Incident.Title
	}

	sender := event.PageName
	if sender == "" {
		sender = "StatusWatch"
	}

	var buf bytes.Buffer
	err := subscriberEmailTemplate.Execute(&buf, subscriberEmailData{
		Title:          title,
		Body:           renderMessage(event.Message),
		PageURL:        fmt.Sprintf("%s/s/%s", d.appURL, url.PathEscape(event.PageSlug)),
		UnsubscribeURL: fmt.Sprintf("%s/api/subscribe/unsubscribe?id=%s", d.appURL, url.QueryEscape(sub.ID.String())),
	})
	if err != nil {
		return Email{}, fmt.Errorf("render subscriber email: %w", err)
	}

	return Email{
		From:    fmt.Sprintf("%s <notifications@%s>", sender, d.fromDomain),
		To:      []string{sub.Email},
		Subject: fmt.Sprintf("[%s] %s", subjectTag, subjectText),
		HTML:    buf.String(),
	}, nil
}
