package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/incidents"
	"github.com/monocle-dev/statuswatch/internal/live"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/metrics"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/services"
	"github.com/monocle-dev/statuswatch/internal/store"
	"github.com/monocle-dev/statuswatch/internal/types"
	"golang.org/x/sync/errgroup"
)

type Prober interface {
	Check(ctx context.Context, cfg types.CheckConfig) types.CheckResult
}

type Detector interface {
	DetectTransition(ctx context.Context, monitorID uuid.UUID, newStatus types.HealthStatus) (incidents.Transition, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, accountID, pageID uuid.UUID, event services.Event)
}

type Publisher interface {
	Publish(pageID uuid.UUID, msg live.Message)
}

type Store interface {
	store.MonitorStore
	store.HealthCheckStore
	store.StatusPageStore
}

// Summary is the result of one check cycle.
type Summary struct {
	Checked           int `json:"checked"`
	Healthy           int `json:"healthy"`
	Degraded          int `json:"degraded"`
	Down              int `json:"down"`
	IncidentsOpened   int `json:"incidents_opened"`
	IncidentsResolved int `json:"incidents_resolved"`
}

type Scheduler struct {
	store     Store
	prober    Prober
	detector  Detector
	notifier  Notifier
	publisher Publisher
	log       logger.Logger
	batchSize int
}

type Option func(*Scheduler)

func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

func NewScheduler(st Store, prober Prober, detector Detector, notifier Notifier, log logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     st,
		prober:    prober,
		detector:  detector,
		notifier:  notifier,
		log:       log,
		batchSize: types.CheckBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DueMonitors keeps the monitors whose interval has elapsed at now.
func DueMonitors(monitors []models.Monitor, now time.Time) []models.Monitor {
	due := make([]models.Monitor, 0, len(monitors))
	for _, m := range monitors {
		if m.IsDue(now) {
			due = append(due, m)
		}
	}
	return due
}

type outcome struct {
	checked    bool
	status     types.HealthStatus
	transition incidents.Kind
}

// RunCycle checks every due monitor in fixed-size concurrent batches. Only a failure to
// list monitors fails the cycle; per-monitor failures are logged and isolated.
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) (Summary, error) {
	start := time.Now()
	var summary Summary

	monitors, err := s.store.ActiveMonitors(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch monitors: %w", err)
	}

	due := DueMonitors(monitors, now)
	s.log.Info("check cycle starting", "active", len(monitors), "due", len(due))

	for i := 0; i < len(due); i += s.batchSize {
		if ctx.Err() != nil {
			s.log.Warn("check cycle interrupted", "remaining", len(due)-i, "error", ctx.Err())
			break
		}

		end := i + s.batchSize
		if end > len(due) {
			end = len(due)
		}
		batch := due[i:end]
		results := make([]outcome, len(batch))

		var g errgroup.Group
		for j := range batch {
			j := j
			g.Go(func() error {
				results[j] = s.processMonitor(ctx, batch[j], now)
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			summary.add(r)
		}
	}

	metrics.CycleDuration.WithLabelValues("check").Observe(time.Since(start).Seconds())
	s.log.Info("check cycle complete",
		"elapsed", time.Since(start),
		"checked", summary.Checked,
		"healthy", summary.Healthy,
		"degraded", summary.Degraded,
		"down", summary.Down,
		"incidents_opened", summary.IncidentsOpened,
		"incidents_resolved", summary.IncidentsResolved,
	)

	return summary, nil
}

func (s *Summary) add(o outcome) {
	if !o.checked {
		return
	}
	s.Checked++
	switch o.status {
	case types.HealthHealthy:
		s.Healthy++
	case types.HealthDegraded:
		s.Degraded++
	default:
		s.Down++
	}
	switch o.transition {
	case incidents.Opened:
		s.IncidentsOpened++
	case incidents.Resolved:
		s.IncidentsResolved++
	}
}

// processMonitor runs the ordered per-monitor pipeline: probe, persist, update monitor,
// detect, dispatch. The check must be persisted before detection reads history.
func (s *Scheduler) processMonitor(ctx context.Context, m models.Monitor, now time.Time) (out outcome) {
	log := s.log.With("monitor_id", m.ID, "monitor", m.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Error("unhandled error processing monitor", "panic", r)
		}
	}()

	result := s.prober.Check(ctx, m.CheckConfig())
	out.checked = true
	out.status = result.Status

	metrics.ChecksTotal.WithLabelValues(string(result.Status)).Inc()
	metrics.CheckDuration.Observe(float64(result.ResponseTimeMs) / 1000)

	if result.ErrorMessage != nil {
		log.Info("monitor checked", "status", result.Status, "response_time_ms", result.ResponseTimeMs, "error", *result.ErrorMessage)
	} else {
		log.Debug("monitor checked", "status", result.Status, "response_time_ms", result.ResponseTimeMs)
	}

	check := &models.HealthCheck{
		MonitorID:      m.ID,
		Status:         result.Status,
		ResponseTimeMs: result.ResponseTimeMs,
		HTTPStatus:     result.HTTPStatus,
		ErrorMessage:   result.ErrorMessage,
		CheckedAt:      now,
	}
	if err := s.store.InsertHealthCheck(ctx, check); err != nil {
		log.Error("failed to insert health check", "error", err)
	}

	if err := s.store.UpdateMonitorCheck(ctx, m.ID, store.MonitorCheckUpdate{
		CheckedAt:      now,
		Status:         result.Status,
		ResponseTimeMs: result.ResponseTimeMs,
	}); err != nil {
		log.Error("failed to update monitor", "error", err)
	}

	tr, err := s.detector.DetectTransition(ctx, m.ID, result.Status)
	if err != nil {
		log.Error("failed to detect status change", "error", err)
		return out
	}
	out.transition = tr.Kind

	if tr.Kind == incidents.Unchanged || tr.Incident == nil {
		return out
	}

	s.announce(ctx, log, m, tr)
	return out
}

// announce dispatches the incident-level and monitor-level events and pushes the
// transition to live clients.
func (s *Scheduler) announce(ctx context.Context, log logger.Logger, m models.Monitor, tr incidents.Transition) {
	pageID := tr.Incident.StatusPageID

	page, err := s.store.GetStatusPage(ctx, pageID)
	if err != nil {
		log.Error("status page lookup failed, dispatching without page details", "incident_id", tr.Incident.ID, "error", err)
		page = nil
	}

	incidentEvent, monitorEvent, ok := services.TransitionEvents(tr, page)
	if !ok {
		return
	}

	s.notifier.Dispatch(ctx, m.AccountID, pageID, incidentEvent)
	s.notifier.Dispatch(ctx, m.AccountID, pageID, monitorEvent)

	if s.publisher != nil {
		msg := live.Message{
			Type:       "incident_" + string(tr.Kind),
			PageID:     pageID,
			IncidentID: &tr.Incident.ID,
			Monitor:    m.Name,
			Message:    incidentEvent.Message,
		}
		if tr.Component != nil {
			msg.ComponentStatus = tr.Component.Status
		}
		s.publisher.Publish(pageID, msg)
	}
}
