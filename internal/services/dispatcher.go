package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/metrics"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/store"
	"github.com/monocle-dev/statuswatch/internal/types"
)

type DispatcherConfig struct {
	AppURL          string
	FromDomain      string
	EmailBatchSize  int
	ChannelCacheTTL time.Duration
	HTTPTimeout     time.Duration
}

// Dispatcher fans events out to notification channels and page subscribers. Delivery is
// best effort: every channel attempt is logged and nothing is retried.
type Dispatcher struct {
	store      store.NotificationStore
	mailer     Mailer
	client     *http.Client
	log        logger.Logger
	channels   *ttlcache.Cache[uuid.UUID, []models.NotificationChannel]
	appURL     string
	fromDomain string
	batchSize  int
	now        func() time.Time
	closeOnce  sync.Once
}

func NewDispatcher(st store.NotificationStore, mailer Mailer, log logger.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.EmailBatchSize <= 0 {
		cfg.EmailBatchSize = types.SubscriberBatchSize
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.FromDomain == "" {
		cfg.FromDomain = "updates.statuswatch.dev"
	}

	d := &Dispatcher{
		store:      st,
		mailer:     mailer,
		client:     &http.Client{Timeout: cfg.HTTPTimeout},
		log:        log,
		appURL:     strings.TrimRight(cfg.AppURL, "/"),
		fromDomain: cfg.FromDomain,
		batchSize:  cfg.EmailBatchSize,
		now:        func() time.Time { return time.Now().UTC() },
	}

	if cfg.ChannelCacheTTL > 0 {
		d.channels = ttlcache.New[uuid.UUID, []models.NotificationChannel](
			ttlcache.WithTTL[uuid.UUID, []models.NotificationChannel](cfg.ChannelCacheTTL),
			ttlcache.WithDisableTouchOnHit[uuid.UUID, []models.NotificationChannel](),
		)
		go d.channels.Start()
	}

	return d
}

// Close stops the channel cache janitor.
func (d *Dispatcher) Close() {
	if d.channels != nil {
		d.closeOnce.Do(d.channels.Stop)
	}
}

// Dispatch delivers event to every active channel of the account that serves pageID,
// then, for incident events, emails the page's verified subscribers.
func (d *Dispatcher) Dispatch(ctx context.Context, accountID, pageID uuid.UUID, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error("failed to encode notification payload", "event", event.Type, "error", err)
		payload = []byte("{}")
	}

	channels, err := d.activeChannels(ctx, accountID)
	if err != nil {
		d.log.Error("failed to load notification channels", "account_id", accountID, "error", err)
	}

	for _, channel := range channels {
		if !channel.ServesPage(pageID) {
			continue
		}
		d.deliver(ctx, channel, event, payload)
	}

	if event.Type.IsIncident() {
		d.notifySubscribers(ctx, pageID, event)
	}
}

func (d *Dispatcher) activeChannels(ctx context.Context, accountID uuid.UUID) ([]models.NotificationChannel, error) {
	if d.channels != nil {
		if item := d.channels.Get(accountID); item != nil {
			return item.Value(), nil
		}
	}

	channels, err := d.store.ActiveChannels(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if d.channels != nil {
		d.channels.Set(accountID, channels, ttlcache.DefaultTTL)
	}
	return channels, nil
}

// deliver makes one attempt on one channel and always records the outcome.
func (d *Dispatcher) deliver(ctx context.Context, channel models.NotificationChannel, event Event, payload []byte) {
	err := d.attempt(ctx, channel, event, payload)

	channelID := channel.ID
	entry := &models.NotificationLog{
		ChannelID:   &channelID,
		ChannelType: channel.Type,
		IncidentID:  event.incidentID(),
		MonitorID:   event.MonitorID,
		EventType:   event.Type,
		Payload:     payload,
		Status:      types.DeliverySent,
		SentAt:      d.now(),
	}

	if err != nil {
		msg := err.Error()
		entry.Status = types.DeliveryFailed
		entry.ErrorMessage = &msg
		d.log.Warn("notification delivery failed",
			"channel_id", channel.ID,
			"channel_type", channel.Type,
			"event", event.Type,
			"error", err,
		)
	}

	metrics.NotificationsTotal.WithLabelValues(string(channel.Type), string(entry.Status)).Inc()

	if logErr := d.store.InsertNotificationLog(ctx, entry); logErr != nil {
		d.log.Error("failed to record notification log", "channel_id", channel.ID, "error", logErr)
	}
}

func (d *Dispatcher) attempt(ctx context.Context, channel models.NotificationChannel, event Event, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panic: %v", r)
		}
	}()

	cfg, err := channel.ParsedConfig()
	if err != nil {
		return err
	}
	return cfg.Accept(&delivery{ctx: ctx, d: d, channel: channel, event: event, payload: payload})
}

// delivery maps each channel config variant to its transport.
type delivery struct {
	ctx     context.Context
	d       *Dispatcher
	channel models.NotificationChannel
	event   Event
	payload []byte
}

func (v *delivery) VisitChat(cfg types.ChatWebhookConfig) error {
	return v.d.sendChat(v.ctx, cfg.WebhookURL, v.event)
}

func (v *delivery) VisitWebhook(cfg types.GenericWebhookConfig) error {
	return v.d.sendWebhook(v.ctx, cfg, v.payload)
}

// SMS has no transport yet; the attempt is logged and recorded as sent.
func (v *delivery) VisitSMS(cfg types.SMSConfig) error {
	v.d.log.Info("sms delivery skipped, no transport configured",
		"channel_id", v.channel.ID,
		"event", v.event.Type,
		"country_code", cfg.CountryCode,
	)
	return nil
}

func (d *Dispatcher) notifySubscribers(ctx context.Context, pageID uuid.UUID, event Event) {
	subscribers, err := d.store.VerifiedSubscribers(ctx, pageID)
	if err != nil {
		d.log.Error("failed to load subscribers", "status_page_id", pageID, "error", err)
		return
	}
	if len(subscribers) == 0 {
		return
	}

	for start := 0; start < len(subscribers); start += d.batchSize {
		end := start + d.batchSize
		if end > len(subscribers) {
			end = len(subscribers)
		}

		batch := make([]Email, 0, end-start)
		for _, sub := range subscribers[start:end] {
			email, err := d.subscriberEmail(event, sub)
			if err != nil {
				d.log.Error("failed to render subscriber email", "subscriber_id", sub.ID, "error", err)
				continue
			}
			batch = append(batch, email)
		}

		if err := d.mailer.SendBatch(ctx, batch); err != nil {
			d.log.Error("failed to send subscriber emails",
				"status_page_id", pageID,
				"event", event.Type,
				"batch_size", len(batch),
				"error", err,
			)
		}
	}
}
