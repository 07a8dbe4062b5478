package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/metrics"
	"github.com/monocle-dev/statuswatch/internal/store"
	"github.com/monocle-dev/statuswatch/internal/types"
)

// Result describes one retention sweep.
type Result struct {
	Deleted       int64     `json:"deleted"`
	RetentionDays int       `json:"retention_days"`
	Cutoff        time.Time `json:"cutoff_date"`
}

// Sweeper removes health checks older than the retention window.
type Sweeper struct {
	store store.HealthCheckStore
	log   logger.Logger
	days  int
}

func NewSweeper(st store.HealthCheckStore, log logger.Logger, days int) *Sweeper {
	if days <= 0 {
		days = types.RetentionDays
	}
	return &Sweeper{store: st, log: log, days: days}
}

// Cutoff is the oldest check time kept by a sweep at now.
func (s *Sweeper) Cutoff(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -s.days)
}

func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	res := Result{RetentionDays: s.days, Cutoff: s.Cutoff(now)}

	deleted, err := s.store.DeleteHealthChecksBefore(ctx, res.Cutoff)
	if err != nil {
		s.log.Error("retention sweep failed", "cutoff", res.Cutoff, "error", err)
		return res, fmt.Errorf("failed to delete health checks: %w", err)
	}
	res.Deleted = deleted

	metrics.HealthChecksDeletedTotal.Add(float64(deleted))
	metrics.CycleDuration.WithLabelValues("sweep").Observe(time.Since(start).Seconds())
	s.log.Info("retention sweep complete", "deleted", deleted, "retention_days", s.days, "cutoff", res.Cutoff)

	return res, nil
}
