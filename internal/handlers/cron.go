package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/statuswatch/internal/lock"
	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/retention"
	"github.com/monocle-dev/statuswatch/internal/scheduler"
)

// isoMillis matches the timestamp shape JavaScript clients produce with toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type CycleRunner interface {
	RunCheck(ctx context.Context) (scheduler.Summary, error)
	RunSweep(ctx context.Context) (retention.Result, error)
}

// CronHandler exposes the two periodic jobs to an external trigger.
type CronHandler struct {
	runner CycleRunner
	log    logger.Logger
}

func NewCronHandler(runner CycleRunner, log logger.Logger) *CronHandler {
	return &CronHandler{runner: runner, log: log}
}

func (h *CronHandler) Check(ctx *gin.Context) {
	summary, err := h.runner.RunCheck(ctx.Request.Context())
	if errors.Is(err, lock.ErrLocked) {
		ctx.JSON(http.StatusConflict, gin.H{"error": "cycle already running"})
		return
	}
	if err != nil {
		h.log.Error("check cycle failed", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch monitors"})
		return
	}

	ctx.JSON(http.StatusOK, summary)
}

func (h *CronHandler) Cleanup(ctx *gin.Context) {
	res, err := h.runner.RunSweep(ctx.Request.Context())
	if errors.Is(err, lock.ErrLocked) {
		ctx.JSON(http.StatusConflict, gin.H{"error": "cycle already running"})
		return
	}
	if err != nil {
		h.log.Error("cleanup failed", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"deleted":        res.Deleted,
		"retention_days": res.RetentionDays,
		"cutoff_date":    res.Cutoff.UTC().Format(isoMillis),
	})
}
