package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/incidents"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/types"
)

// Event is the payload fanned out to channels and subscribers. It is also the body
// posted to generic webhooks and the snapshot stored in the notification log.
type Event struct {
	Type        types.EventType  `json:"type"`
	Incident    *models.Incident `json:"incident,omitempty"`
	MonitorID   *uuid.UUID       `json:"monitor_id,omitempty"`
	MonitorName string           `json:"monitor_name,omitempty"`
	MonitorURL  string           `json:"monitor_url,omitempty"`
	PageName    string           `json:"status_page_name,omitempty"`
	PageSlug    string           `json:"status_page_slug,omitempty"`
	Message     string           `json:"message"`
}

// TransitionEvents builds the incident-level and monitor-level events for an opened or
// resolved transition. It returns false for unchanged transitions.
func TransitionEvents(tr incidents.Transition, page *models.StatusPage) (incidentEvent, monitorEvent Event, ok bool) {
	if tr.Kind == incidents.Unchanged || tr.Monitor == nil {
		return Event{}, Event{}, false
	}

	m := tr.Monitor
	base := Event{
		Incident:    tr.Incident,
		MonitorID:   &m.ID,
		MonitorName: m.Name,
		MonitorURL:  m.URL,
	}
	if page != nil {
		base.PageName = page.Name
		base.PageSlug = page.Slug
	}

	incidentEvent, monitorEvent = base, base

	switch tr.Kind {
	case incidents.Opened:
		incidentEvent.Type = types.EventIncidentCreated
		incidentEvent.Message = fmt.Sprintf("%s is experiencing issues. An incident has been automatically created.", m.Name)
		monitorEvent.Type = types.EventMonitorDown
		monitorEvent.Message = fmt.Sprintf("Monitor %q is DOWN. URL: %s", m.Name, m.URL)
	case incidents.Resolved:
		incidentEvent.Type = types.EventIncidentResolved
		incidentEvent.Message = fmt.Sprintf("%s has recovered. The incident has been automatically resolved.", m.Name)
		monitorEvent.Type = types.EventMonitorRecovered
		monitorEvent.Message = fmt.Sprintf("Monitor %q has RECOVERED. URL: %s", m.Name, m.URL)
	}

	return incidentEvent, monitorEvent, true
}

func (e Event) incidentID() *uuid.UUID {
	if e.Incident == nil {
		return nil
	}
	id := e.Incident.ID
	return &id
}
