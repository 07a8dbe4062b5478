package incidents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/metrics"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/store"
	"github.com/monocle-dev/statuswatch/internal/types"
)

type Kind string

const (
	Unchanged Kind = "unchanged"
	Opened    Kind = "opened"
	Resolved  Kind = "resolved"
)

const (
	recoveryMessage   = "Automated: Service has recovered and is operating normally."
	maxMessageLength  = 5000
	autoCreatedAuthor = "auto"
)

var (
	ErrInvalidUpdate   = errors.New("invalid incident update")
	ErrAlreadyResolved = errors.New("incident already resolved")
)

// Transition is the outcome of one detection run. Incident, Monitor and Component are
// set for opened and resolved transitions.
type Transition struct {
	Kind      Kind
	Incident  *models.Incident
	Monitor   *models.Monitor
	Component *models.Component
}

type Store interface {
	store.MonitorStore
	store.HealthCheckStore
	store.ComponentStore
	store.IncidentStore
}

// Engine turns per-monitor check history into incident open/resolve transitions.
type Engine struct {
	store     Store
	log       logger.Logger
	threshold int
	now       func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewEngine(st Store, log logger.Logger) *Engine {
	return &Engine{
		store:     st,
		log:       log,
		threshold: types.IncidentThreshold,
		now:       func() time.Time { return time.Now().UTC() },
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// componentLock serializes detection for monitors sharing a component.
func (e *Engine) componentLock(id uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// DetectTransition reads the monitor's most recent checks, newest first, and decides
// whether to open or resolve the incident of its linked component. A healthy check
// resolves any open incident on the component, manual ones included. The check for
// newStatus must already be persisted.
func (e *Engine) DetectTransition(ctx context.Context, monitorID uuid.UUID, newStatus types.HealthStatus) (Transition, error) {
	unchanged := Transition{Kind: Unchanged}

	history, err := e.store.RecentHealthChecks(ctx, monitorID, e.threshold+1)
	if err != nil {
		return unchanged, fmt.Errorf("load recent checks: %w", err)
	}
	if len(history) < e.threshold {
		return unchanged, nil
	}

	consecutiveFailures := true
	for _, check := range history[:e.threshold] {
		if !check.Status.Failing() {
			consecutiveFailures = false
			break
		}
	}
	// With exactly threshold checks there is no baseline, which counts as healthy.
	wasHealthyBefore := len(history) <= e.threshold || history[e.threshold].Status == types.HealthHealthy

	monitor, err := e.store.GetMonitor(ctx, monitorID)
	if errors.Is(err, store.ErrNotFound) {
		return unchanged, nil
	}
	if err != nil {
		return unchanged, fmt.Errorf("load monitor: %w", err)
	}
	if monitor.ComponentID == nil {
		return unchanged, nil
	}

	component, err := e.store.GetComponent(ctx, *monitor.ComponentID)
	if errors.Is(err, store.ErrNotFound) {
		return unchanged, nil
	}
	if err != nil {
		return unchanged, fmt.Errorf("load component: %w", err)
	}

	lock := e.componentLock(component.ID)
	lock.Lock()
	defer lock.Unlock()

	open, err := e.store.OpenIncidentForComponent(ctx, component.ID)
	if err != nil {
		return unchanged, fmt.Errorf("load open incident: %w", err)
	}

	switch {
	case consecutiveFailures && wasHealthyBefore && open == nil:
		return e.open(ctx, monitor, component, newStatus)
	case newStatus == types.HealthHealthy && open != nil:
		return e.resolve(ctx, monitor, component, open)
	}

	return unchanged, nil
}

func (e *Engine) open(ctx context.Context, monitor *models.Monitor, component *models.Component, newStatus types.HealthStatus) (Transition, error) {
	severity := types.SeverityMinor
	componentStatus := types.ComponentDegraded
	if newStatus == types.HealthDown {
		severity = types.SeverityMajor
		componentStatus = types.ComponentMajorOutage
	}

	incident := &models.Incident{
		StatusPageID:       component.StatusPageID,
		AccountID:          monitor.AccountID,
		Title:              fmt.Sprintf("%s is %s", monitor.Name, newStatus),
		Status:             types.IncidentInvestigating,
		Severity:           severity,
		Message:            fmt.Sprintf("Automated: %s detected as %s", monitor.Name, newStatus),
		AffectedComponents: []uuid.UUID{component.ID},
		StartedAt:          e.now(),
		CreatedBy:          types.OriginAuto,
	}

	if err := e.store.CreateIncident(ctx, incident); err != nil {
		return Transition{Kind: Unchanged}, fmt.Errorf("create incident: %w", err)
	}

	if err := e.store.InsertIncidentUpdate(ctx, &models.IncidentUpdate{
		IncidentID: incident.ID,
		Status:     types.IncidentInvestigating,
		Message:    incident.Message,
		CreatedBy:  autoCreatedAuthor,
	}); err != nil {
		e.log.Error("failed to record incident timeline entry", "incident_id", incident.ID, "error", err)
	}

	if err := e.store.UpdateComponentStatus(ctx, component.ID, componentStatus); err != nil {
		e.log.Error("failed to update component status", "component_id", component.ID, "error", err)
	} else {
		component.Status = componentStatus
	}

	metrics.IncidentTransitionsTotal.WithLabelValues(string(Opened)).Inc()
	e.log.Info("incident opened",
		"incident_id", incident.ID,
		"monitor_id", monitor.ID,
		"component_id", component.ID,
		"severity", severity,
	)

	return Transition{Kind: Opened, Incident: incident, Monitor: monitor, Component: component}, nil
}

func (e *Engine) resolve(ctx context.Context, monitor *models.Monitor, component *models.Component, incident *models.Incident) (Transition, error) {
	if err := e.store.InsertIncidentUpdate(ctx, &models.IncidentUpdate{
		IncidentID: incident.ID,
		Status:     types.IncidentResolved,
		Message:    recoveryMessage,
		CreatedBy:  monitor.AccountID.String(),
	}); err != nil {
		e.log.Error("failed to record incident timeline entry", "incident_id", incident.ID, "error", err)
	}

	resolvedAt := e.now()
	incident.Status = types.IncidentResolved
	incident.ResolvedAt = &resolvedAt

	if err := e.store.UpdateIncident(ctx, incident); err != nil {
		return Transition{Kind: Unchanged}, fmt.Errorf("resolve incident: %w", err)
	}

	if err := e.store.UpdateComponentStatus(ctx, component.ID, types.ComponentOperational); err != nil {
		e.log.Error("failed to reset component status", "component_id", component.ID, "error", err)
	} else {
		component.Status = types.ComponentOperational
	}

	metrics.IncidentTransitionsTotal.WithLabelValues(string(Resolved)).Inc()
	e.log.Info("incident resolved",
		"incident_id", incident.ID,
		"monitor_id", monitor.ID,
		"component_id", component.ID,
	)

	return Transition{Kind: Resolved, Incident: incident, Monitor: monitor, Component: component}, nil
}

// ApplyUpdate records a manual status change on an incident. Resolving resets every
// affected component to operational.
func (e *Engine) ApplyUpdate(ctx context.Context, incidentID uuid.UUID, status types.IncidentStatus, message, author string) (*models.Incident, error) {
	message = strings.TrimSpace(message)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, status)
	}
	if message == "" || len(message) > maxMessageLength {
		return nil, fmt.Errorf("%w: message must be 1-%d characters", ErrInvalidUpdate, maxMessageLength)
	}

	incident, err := e.store.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("load incident: %w", err)
	}
	if !incident.IsOpen() {
		return nil, ErrAlreadyResolved
	}

	incident.Status = status
	if status == types.IncidentResolved {
		resolvedAt := e.now()
		incident.ResolvedAt = &resolvedAt
	}

	if err := e.store.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	if err := e.store.InsertIncidentUpdate(ctx, &models.IncidentUpdate{
		IncidentID: incident.ID,
		Status:     status,
		Message:    message,
		CreatedBy:  author,
	}); err != nil {
		return incident, fmt.Errorf("record incident update: %w", err)
	}

	if status == types.IncidentResolved {
		for _, componentID := range incident.AffectedComponents {
			if err := e.store.UpdateComponentStatus(ctx, componentID, types.ComponentOperational); err != nil {
				e.log.Error("failed to reset component status", "component_id", componentID, "error", err)
			}
		}
	}

	return incident, nil
}
