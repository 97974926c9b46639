package store

import "github.com/statusbeat/statusbeat/internal/model"

// AggregateStats summarizes the monitor collection for the dashboard header
// and the status command.
type AggregateStats struct {
	Total    int
	Active   int
	Inactive int

	// Up/Down/Pending count active monitors by newest heartbeat status.
	// Monitors with no history yet count as Pending.
	Up      int
	Down    int
	Pending int

	// DownMonitors lists the names of active monitors currently down,
	// in collection order.
	DownMonitors []string

	AvgHeartbeats float64
	MeanUptimeDay float64
	MeanUptimeMon float64
	MeanPing      float64

	// LastImportant is the most recent important heartbeat across all
	// monitors, with the owning monitor's name. Nil when no monitor has
	// important history.
	LastImportant     *model.Heartbeat
	LastImportantName string
}

// ComputeStats derives aggregate statistics from a monitor collection.
// Means are taken over monitors that have the relevant data: uptime means
// skip monitors with no heartbeat history, and the ping mean skips monitors
// with a zero average ping.
func ComputeStats(monitors []model.Monitor) AggregateStats {
	stats := AggregateStats{Total: len(monitors)}

	totalBeats := 0
	uptimeSamples := 0
	var uptimeDaySum, uptimeMonSum float64
	pingSamples := 0
	var pingSum float64

	for i := range monitors {
		m := &monitors[i]
		totalBeats += len(m.HeartBeatList)

		if !bool(m.Active) {
			stats.Inactive++
		} else {
			stats.Active++
			status, ok := m.HeadStatus()
			switch {
			case !ok:
				stats.Pending++
			case status == model.StatusUp:
				stats.Up++
			case status == model.StatusDown:
				stats.Down++
				stats.DownMonitors = append(stats.DownMonitors, m.Name)
			default:
				stats.Pending++
			}
		}

		if len(m.HeartBeatList) > 0 {
			uptimeSamples++
			uptimeDaySum += m.Uptime.Day
			uptimeMonSum += m.Uptime.Month
		}
		if m.AvgPing > 0 {
			pingSamples++
			pingSum += m.AvgPing
		}

		if len(m.ImportantHeartBeatList) > 0 {
			head := m.ImportantHeartBeatList[0]
			if stats.LastImportant == nil || head.Time.Time().After(stats.LastImportant.Time.Time()) {
				hb := head
				stats.LastImportant = &hb
				stats.LastImportantName = m.Name
			}
		}
	}

	if stats.Total > 0 {
		stats.AvgHeartbeats = float64(totalBeats) / float64(stats.Total)
	}
	if uptimeSamples > 0 {
		stats.MeanUptimeDay = uptimeDaySum / float64(uptimeSamples)
		stats.MeanUptimeMon = uptimeMonSum / float64(uptimeSamples)
	}
	if pingSamples > 0 {
		stats.MeanPing = pingSum / float64(pingSamples)
	}

	return stats
}
