// Package model defines the canonical entity types shared across the
// synchronization core: monitors, heartbeats, and server metadata. It is the
// single vocabulary for the transport, the reconciler, the store, and the UI.
package model

import "sort"

// Heartbeat status values as sent on the wire.
const (
	StatusDown        = 0
	StatusUp          = 1
	StatusPending     = 2
	StatusMaintenance = 3
)

// MaxHeartbeats caps the per-monitor heartbeat history to bound memory.
const MaxHeartbeats = 100

// Tag is a label attached to a monitor.
type Tag struct {
	ID    FlexInt `json:"id"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Value string  `json:"value,omitempty"`
}

// Uptime holds uptime ratios per rolling window. Year is a legacy field some
// servers still push; absence is not an error.
type Uptime struct {
	Day   float64  `json:"day"`
	Month float64  `json:"month"`
	Year  *float64 `json:"year,omitempty"`
}

// Heartbeat is one point-in-time health observation for a monitor.
type Heartbeat struct {
	MonitorID FlexInt  `json:"monitorID"`
	Status    int      `json:"status"`
	Ping      float64  `json:"ping"`
	Msg       string   `json:"msg"`
	Time      FlexTime `json:"time"`
	Important FlexBool `json:"important"`
	Duration  int      `json:"duration"`
	DownCount int      `json:"downCount"`
}

// Monitor is one watched target with its configuration and health history.
//
// HeartBeatList and ImportantHeartBeatList are kept sorted newest-first and
// capped at MaxHeartbeats entries. IsUp is derived from the head of
// HeartBeatList on every store write, never sent by the server.
type Monitor struct {
	ID          FlexInt   `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	URL         string    `json:"url,omitempty"`
	Hostname    string    `json:"hostname,omitempty"`
	PathName    string    `json:"pathName,omitempty"`
	Active      FlexBool  `json:"active"`
	Maintenance FlexBool  `json:"maintenance"`
	Interval    int       `json:"interval"`
	Weight      int       `json:"weight"`
	Parent      *FlexInt  `json:"parent"`
	ChildrenIDs []FlexInt `json:"childrenIDs,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`

	HeartBeatList          []Heartbeat `json:"heartBeatList,omitempty"`
	ImportantHeartBeatList []Heartbeat `json:"importantHeartBeatList,omitempty"`
	AvgPing                float64     `json:"avgPing"`
	Uptime                 Uptime      `json:"uptime"`
	IsUp                   bool        `json:"isUp"`
}

// Info carries server metadata pushed on connect. It is not part of the
// monitor entity and is held in a separate info store.
type Info struct {
	Version              string `json:"version"`
	LatestVersion        string `json:"latestVersion"`
	PrimaryBaseURL       string `json:"primaryBaseURL"`
	ServerTimezone       string `json:"serverTimezone"`
	ServerTimezoneOffset string `json:"serverTimezoneOffset"`
	IsContainer          bool   `json:"isContainer"`
}

// SortHeartbeats orders a heartbeat list newest-first by timestamp. The sort
// is stable so same-timestamp entries keep their arrival order.
func SortHeartbeats(list []Heartbeat) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Time.Time().After(list[j].Time.Time())
	})
}

// TruncateHeartbeats caps a heartbeat list at MaxHeartbeats entries, keeping
// the head of the list. Truncation is idempotent.
func TruncateHeartbeats(list []Heartbeat) []Heartbeat {
	if len(list) > MaxHeartbeats {
		return list[:MaxHeartbeats:MaxHeartbeats]
	}
	return list
}

// HeadStatus returns the status of the most recent heartbeat, or
// (StatusDown, false) when the monitor has no history yet.
func (m *Monitor) HeadStatus() (int, bool) {
	if len(m.HeartBeatList) == 0 {
		return StatusDown, false
	}
	return m.HeartBeatList[0].Status, true
}

// Clone returns a deep copy of the monitor. Slices are copied so callers can
// hold snapshots without observing later store writes.
func (m Monitor) Clone() Monitor {
	out := m
	if m.HeartBeatList != nil {
		out.HeartBeatList = append([]Heartbeat(nil), m.HeartBeatList...)
	}
	if m.ImportantHeartBeatList != nil {
		out.ImportantHeartBeatList = append([]Heartbeat(nil), m.ImportantHeartBeatList...)
	}
	if m.ChildrenIDs != nil {
		out.ChildrenIDs = append([]FlexInt(nil), m.ChildrenIDs...)
	}
	if m.Tags != nil {
		out.Tags = append([]Tag(nil), m.Tags...)
	}
	if m.Parent != nil {
		p := *m.Parent
		out.Parent = &p
	}
	if m.Uptime.Year != nil {
		y := *m.Uptime.Year
		out.Uptime.Year = &y
	}
	return out
}

// CloneMonitors deep-copies a monitor slice.
func CloneMonitors(monitors []Monitor) []Monitor {
	if monitors == nil {
		return nil
	}
	out := make([]Monitor, len(monitors))
	for i, m := range monitors {
		out[i] = m.Clone()
	}
	return out
}
