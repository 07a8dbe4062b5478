package policy

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/store"
	"github.com/monocle-dev/statuswatch/internal/types"
)

type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// Unlimited marks a limit with no ceiling.
const Unlimited = math.MaxInt32

var (
	ErrIntervalTooShort  = errors.New("check interval below plan minimum")
	ErrChannelNotAllowed = errors.New("notification channel not available on plan")
	ErrLimitReached      = errors.New("plan limit reached")
)

type Limits struct {
	StatusPages          int      `json:"status_pages"`
	Monitors             int      `json:"monitors"`
	Subscribers          int      `json:"subscribers"`
	CheckIntervalSeconds int      `json:"check_interval_seconds"`
	CustomDomains        int      `json:"custom_domains"`
	Channels             []string `json:"notification_channels"`
}

var plans = map[Plan]Limits{
	PlanFree: {
		StatusPages:          1,
		Monitors:             5,
		Subscribers:          100,
		CheckIntervalSeconds: 3600,
		Channels:             []string{"email"},
	},
	PlanPro: {
		StatusPages:          3,
		Monitors:             25,
		Subscribers:          5000,
		CheckIntervalSeconds: 300,
		CustomDomains:        1,
		Channels:             []string{"email", "slack", "webhook"},
	},
	PlanBusiness: {
		StatusPages:          Unlimited,
		Monitors:             100,
		Subscribers:          25000,
		CheckIntervalSeconds: 60,
		CustomDomains:        3,
		Channels:             []string{"email", "slack", "webhook", "sms"},
	},
}

// LimitsFor resolves the effective plan of an account. Only an active subscription
// unlocks a paid plan.
func LimitsFor(account models.Account) (Plan, Limits) {
	plan := PlanFree
	if account.SubscriptionStatus == "active" {
		if _, ok := plans[Plan(account.SubscriptionPlan)]; ok {
			plan = Plan(account.SubscriptionPlan)
		}
	}
	return plan, plans[plan]
}

// Checker is what creation-time validation needs from plan policy.
type Checker interface {
	Limits(ctx context.Context, accountID uuid.UUID) (Plan, Limits, error)
	CheckInterval(ctx context.Context, accountID uuid.UUID, seconds int) error
	ChannelAllowed(ctx context.Context, accountID uuid.UUID, channelType types.ChannelType) error
}

var _ Checker = (*Provider)(nil)

// Provider answers plan questions for creation-time validation.
type Provider struct {
	accounts store.AccountStore
}

func NewProvider(accounts store.AccountStore) *Provider {
	return &Provider{accounts: accounts}
}

func (p *Provider) Limits(ctx context.Context, accountID uuid.UUID) (Plan, Limits, error) {
	account, err := p.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return "", Limits{}, fmt.Errorf("load account %s: %w", accountID, err)
	}
	plan, limits := LimitsFor(*account)
	return plan, limits, nil
}

// CheckInterval rejects intervals shorter than the plan minimum.
func (p *Provider) CheckInterval(ctx context.Context, accountID uuid.UUID, seconds int) error {
	plan, limits, err := p.Limits(ctx, accountID)
	if err != nil {
		return err
	}
	if seconds < limits.CheckIntervalSeconds {
		return fmt.Errorf("%w: %s plan allows %ds, got %ds", ErrIntervalTooShort, plan, limits.CheckIntervalSeconds, seconds)
	}
	return nil
}

func (p *Provider) ChannelAllowed(ctx context.Context, accountID uuid.UUID, channelType types.ChannelType) error {
	plan, limits, err := p.Limits(ctx, accountID)
	if err != nil {
		return err
	}
	name := planChannelName(channelType)
	for _, allowed := range limits.Channels {
		if allowed == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrChannelNotAllowed, channelType, plan)
}

// Allow reports whether one more item fits under limit.
func Allow(current, limit int) error {
	if current >= limit {
		return fmt.Errorf("%w: %d of %d", ErrLimitReached, current, limit)
	}
	return nil
}

// planChannelName maps a stored channel type to the name used in plan allowlists.
func planChannelName(t types.ChannelType) string {
	if t == types.ChannelChat {
		return "slack"
	}
	return string(t)
}
