package uptime

import (
	"math"
	"time"

	"github.com/monocle-dev/statuswatch/internal/models"
	"github.com/monocle-dev/statuswatch/internal/types"
)

// WindowDays is the history shown on public status pages.
const WindowDays = 90

type DailyUptime struct {
	Date             string  `json:"date"`
	UptimePercentage float64 `json:"uptime_percentage"`
	TotalChecks      int     `json:"total_checks"`
	SuccessfulChecks int     `json:"successful_checks"`
}

type Stats struct {
	UptimePercent     float64       `json:"uptime_percent"`
	AvgResponseTimeMs int           `json:"avg_response_time_ms"`
	TotalChecks       int           `json:"total_checks"`
	Daily             []DailyUptime `json:"daily_uptime"`
}

// Calculate summarizes checks ordered by checked_at ascending. No checks means 100% uptime.
func Calculate(checks []models.HealthCheck) Stats {
	stats := Stats{UptimePercent: 100, Daily: []DailyUptime{}}
	if len(checks) == 0 {
		return stats
	}

	var (
		healthy    int
		latencySum int
		samples    int
		days       = map[string]int{}
	)

	for _, c := range checks {
		ok := c.Status == types.HealthHealthy
		if ok {
			healthy++
		}
		if c.ResponseTimeMs > 0 {
			latencySum += c.ResponseTimeMs
			samples++
		}

		date := c.CheckedAt.UTC().Format(time.DateOnly)
		idx, seen := days[date]
		if !seen {
			idx = len(stats.Daily)
			days[date] = idx
			stats.Daily = append(stats.Daily, DailyUptime{Date: date})
		}
		stats.Daily[idx].TotalChecks++
		if ok {
			stats.Daily[idx].SuccessfulChecks++
		}
	}

	stats.TotalChecks = len(checks)
	stats.UptimePercent = percent(healthy, len(checks))
	if samples > 0 {
		stats.AvgResponseTimeMs = int(math.Round(float64(latencySum) / float64(samples)))
	}
	for i := range stats.Daily {
		stats.Daily[i].UptimePercentage = percent(stats.Daily[i].SuccessfulChecks, stats.Daily[i].TotalChecks)
	}

	return stats
}

func percent(part, total int) float64 {
	return math.Round(float64(part)/float64(total)*100*100) / 100
}

// OverallStatus rolls component statuses up into one page status.
func OverallStatus(statuses []types.ComponentStatus) types.HealthStatus {
	overall := types.HealthHealthy
	for _, s := range statuses {
		switch s {
		case types.ComponentMajorOutage:
			return types.HealthDown
		case types.ComponentDegraded, types.ComponentMaintenance:
			overall = types.HealthDegraded
		}
	}
	return overall
}
