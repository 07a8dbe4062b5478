package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/monocle-dev/statuswatch/internal/logger"
	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/store/memstore"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepBoundary(t *testing.T) {
	st := memstore.New()
	m := st.AddMonitor(models.Monitor{Name: "api", URL: "https://example.com", IsActive: true})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.AddHealthCheck(models.HealthCheck{MonitorID: m.ID, Status: types.HealthHealthy, CheckedAt: now.AddDate(0, 0, -91)})
	st.AddHealthCheck(models.HealthCheck{MonitorID: m.ID, Status: types.HealthHealthy, CheckedAt: now.AddDate(0, 0, -90)})
	st.AddHealthCheck(models.HealthCheck{MonitorID: m.ID, Status: types.HealthDown, CheckedAt: now.AddDate(0, 0, -1)})

	s := NewSweeper(st, logger.NewNop(), 90)
	res, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Deleted)
	assert.Equal(t, 90, res.RetentionDays)
	assert.Equal(t, now.AddDate(0, 0, -90), res.Cutoff)
	assert.Len(t, st.HealthChecks(m.ID), 2)
}

func TestSweepDefaultsRetention(t *testing.T) {
	s := NewSweeper(memstore.New(), logger.NewNop(), 0)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.AddDate(0, 0, -types.RetentionDays), s.Cutoff(now))
}

func TestSweepStoreError(t *testing.T) {
	st := memstore.New()
	st.FailOn("DeleteHealthChecksBefore", errors.New("boom"))

	_, err := NewSweeper(st, logger.NewNop(), 90).Sweep(context.Background(), time.Now())
	assert.Error(t, err)
}
