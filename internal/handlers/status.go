package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/store"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/monocle-dev/statuswatch/internal/uptime"
)

type StatusStore interface {
	StatusPageBySlug(ctx context.Context, slug string) (*models.StatusPage, error)
	ComponentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Component, error)
	MonitorsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Monitor, error)
	HealthChecksSince(ctx context.Context, monitorID uuid.UUID, since time.Time) ([]models.HealthCheck, error)
	OpenIncidentsForPage(ctx context.Context, pageID uuid.UUID) ([]models.Incident, error)
}

type PageSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
}

type ComponentSummary struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	GroupName string                `json:"group_name,omitempty"`
	Status    types.ComponentStatus `json:"status"`
	Uptime    *uptime.Stats         `json:"uptime_data,omitempty"`
}

type StatusResponse struct {
	Page          PageSummary        `json:"status_page"`
	OverallStatus types.HealthStatus `json:"overall_status"`
	Components    []ComponentSummary `json:"components"`
	Incidents     []models.Incident  `json:"active_incidents"`
}

// StatusHandler serves the public view of a status page.
type StatusHandler struct {
	store StatusStore
	log   logger.Logger
	now   func() time.Time
}

func NewStatusHandler(st StatusStore, log logger.Logger) *StatusHandler {
	return &StatusHandler{store: st, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (h *StatusHandler) GetStatus(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()

	page, err := h.store.StatusPageBySlug(reqCtx, ctx.Param("slug"))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error("failed to load status page", "slug", ctx.Param("slug"), "error", err)
		}
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Status page not found"})
		return
	}
	if !page.IsPublic {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Status page not found"})
		return
	}

	components, err := h.store.ComponentsForPage(reqCtx, page.ID)
	if err != nil {
		h.log.Error("failed to load components", "status_page_id", page.ID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve components"})
		return
	}

	uptimeByComponent := h.componentUptime(reqCtx, page.ID)

	statuses := make([]types.ComponentStatus, 0, len(components))
	summaries := make([]ComponentSummary, 0, len(components))
	for _, c := range components {
		statuses = append(statuses, c.Status)
		summary := ComponentSummary{ID: c.ID, Name: c.Name, GroupName: c.GroupName, Status: c.Status}
		if stats, ok := uptimeByComponent[c.ID]; ok {
			summary.Uptime = &stats
		}
		summaries = append(summaries, summary)
	}

	incidents, err := h.store.OpenIncidentsForPage(reqCtx, page.ID)
	if err != nil {
		h.log.Error("failed to load open incidents", "status_page_id", page.ID, "error", err)
		incidents = nil
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}

	ctx.JSON(http.StatusOK, StatusResponse{
		Page: PageSummary{
			ID:          page.ID,
			Name:        page.Name,
			Slug:        page.Slug,
			Description: page.Description,
		},
		OverallStatus: uptime.OverallStatus(statuses),
		Components:    summaries,
		Incidents:     incidents,
	})
}

// componentUptime computes the uptime window for every monitor linked to a component on
// the page. Monitors whose history cannot be read are left out.
func (h *StatusHandler) componentUptime(ctx context.Context, pageID uuid.UUID) map[uuid.UUID]uptime.Stats {
	out := make(map[uuid.UUID]uptime.Stats)

	monitors, err := h.store.MonitorsForPage(ctx, pageID)
	if err != nil {
		h.log.Error("failed to load page monitors", "status_page_id", pageID, "error", err)
		return out
	}

	since := h.now().AddDate(0, 0, -uptime.WindowDays)
	for _, m := range monitors {
		if m.ComponentID == nil {
			continue
		}
		checks, err := h.store.HealthChecksSince(ctx, m.ID, since)
		if err != nil {
			h.log.Error("failed to load health checks", "monitor_id", m.ID, "error", err)
			continue
		}
		out[*m.ComponentID] = uptime.Calculate(checks)
	}
	return out
}
