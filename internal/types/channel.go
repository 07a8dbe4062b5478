package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ChannelType is the persisted tag of a notification channel.
type ChannelType string

const (
	ChannelChat    ChannelType = "chat"
	ChannelWebhook ChannelType = "webhook"
	ChannelSMS     ChannelType = "sms"
)

var ErrUnknownChannelType = errors.New("unknown channel type")

// ChannelConfig is the closed set of channel configurations. New variants must add a
// method to ChannelConfigVisitor, which breaks every visitor until it handles them.
type ChannelConfig interface {
	Type() ChannelType
	Accept(v ChannelConfigVisitor) error
}

type ChannelConfigVisitor interface {
	VisitChat(cfg ChatWebhookConfig) error
	VisitWebhook(cfg GenericWebhookConfig) error
	VisitSMS(cfg SMSConfig) error
}

type ChatWebhookConfig struct {
	WebhookURL string `json:"webhook_url" validate:"required,url,max=2048"`
}

func (ChatWebhookConfig) Type() ChannelType                     { return ChannelChat }
func (c ChatWebhookConfig) Accept(v ChannelConfigVisitor) error { return v.VisitChat(c) }

type GenericWebhookConfig struct {
	URL     string            `json:"url" validate:"required,url,max=2048"`
	Secret  string            `json:"secret,omitempty" validate:"max=256"`
	Headers map[string]string `json:"headers,omitempty" validate:"omitempty,dive,keys,max=256,endkeys,max=1024"`
}

func (GenericWebhookConfig) Type() ChannelType                     { return ChannelWebhook }
func (c GenericWebhookConfig) Accept(v ChannelConfigVisitor) error { return v.VisitWebhook(c) }

type SMSConfig struct {
	PhoneNumber string `json:"phone_number" validate:"required,min=7,max=20,phone_number"`
	CountryCode string `json:"country_code" validate:"required,min=1,max=5,country_code"`
}

func (SMSConfig) Type() ChannelType                     { return ChannelSMS }
func (c SMSConfig) Accept(v ChannelConfigVisitor) error { return v.VisitSMS(c) }

var (
	phonePattern       = regexp.MustCompile(`^\+?[0-9\s-]+$`)
	countryCodePattern = regexp.MustCompile(`^\+?[0-9]+$`)

	channelValidator = newChannelValidator()
)

func newChannelValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("country_code", func(fl validator.FieldLevel) bool {
		return countryCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// ParseChannelConfig decodes raw JSON for the given channel type and validates it.
// "slack" is accepted as a legacy alias of the chat type.
func ParseChannelConfig(channelType ChannelType, raw []byte) (ChannelConfig, error) {
	var cfg ChannelConfig

	switch channelType {
	case ChannelChat, "slack":
		var c ChatWebhookConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode chat config: %w", err)
		}
		c.WebhookURL = strings.TrimSpace(c.WebhookURL)
		cfg = c
	case ChannelWebhook:
		var c GenericWebhookConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode webhook config: %w", err)
		}
		c.URL = strings.TrimSpace(c.URL)
		cfg = c
	case ChannelSMS:
		var c SMSConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode sms config: %w", err)
		}
		c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
		c.CountryCode = strings.TrimSpace(c.CountryCode)
		cfg = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannelType, channelType)
	}

	if err := channelValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", cfg.Type(), err)
	}

	return cfg, nil
}
