package types

import "time"

// HealthStatus is the tri-state outcome of a single probe.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

// Failing reports whether the status counts toward the consecutive failure window.
func (s HealthStatus) Failing() bool {
	return s == HealthDown || s == HealthDegraded
}

type ComponentStatus string

const (
	ComponentOperational ComponentStatus = "operational"
	ComponentDegraded    ComponentStatus = "degraded"
	ComponentMajorOutage ComponentStatus = "major_outage"
	ComponentMaintenance ComponentStatus = "maintenance"
	ComponentUnknown     ComponentStatus = "unknown"
)

type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

// Valid reports whether s is one of the known lifecycle states.
func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentInvestigating, IncidentIdentified, IncidentMonitoring, IncidentResolved:
		return true
	}
	return false
}

type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityMajor    IncidentSeverity = "major"
	SeverityCritical IncidentSeverity = "critical"
)

// Originator records who opened an incident.
type Originator string

const (
	OriginManual Originator = "manual"
	OriginAuto   Originator = "auto"
)

// EventType identifies a notification event.
type EventType string

const (
	EventIncidentCreated  EventType = "incident_created"
	EventIncidentResolved EventType = "incident_resolved"
	EventMonitorDown      EventType = "monitor_down"
	EventMonitorRecovered EventType = "monitor_recovered"
)

// IsIncident reports whether subscribers should receive the event.
func (e EventType) IsIncident() bool {
	return e == EventIncidentCreated || e == EventIncidentResolved
}

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Probe and incident thresholds.
const (
	DegradedThreshold   = 3 * time.Second
	DefaultProbeTimeout = 10 * time.Second
	DefaultRetryCount   = 2
	DefaultRetryDelay   = 5 * time.Second

	// IncidentThreshold is the number of consecutive failing checks that opens an incident.
	IncidentThreshold = 2

	CheckBatchSize      = 10
	SubscriberBatchSize = 50
	RetentionDays       = 90
)

var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}
