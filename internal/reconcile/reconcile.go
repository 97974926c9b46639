// Package reconcile folds the unordered server event stream into the monitor
// store. It owns the per-connection ordering problem: full-list pushes and
// incremental updates arrive in any order, and incremental updates for
// monitors the client has not seen yet must wait for a full list instead of
// being dropped.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/statusbeat/statusbeat/internal/logger"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/notify"
	"github.com/statusbeat/statusbeat/internal/store"
	"github.com/statusbeat/statusbeat/internal/transport"
)

// Reconciler applies typed transport events to the monitor store.
//
// It starts uninitialized. Until the first monitorList arrives, incremental
// events for monitors the store does not hold are buffered per monitor id in
// receipt order. Every monitorList drains the buffer for ids that now exist,
// so each buffered event is applied exactly once. After initialization the
// buffer is closed: unknown ids become logged no-ops in the store.
//
// Apply is not safe for concurrent use; the connection manager calls it from
// the single event-consuming goroutine.
type Reconciler struct {
	monitors *store.MonitorStore
	infos    *store.InfoStore
	notifier notify.Notifier
	log      logger.Logger

	initialized bool
	pending     map[int64][]transport.Event
}

// New creates a reconciler writing into the given stores. The notifier may be
// nil when up/down transitions should not produce notifications.
func New(monitors *store.MonitorStore, infos *store.InfoStore, notifier notify.Notifier, log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Noop()
	}
	return &Reconciler{
		monitors: monitors,
		infos:    infos,
		notifier: notifier,
		log:      log,
		pending:  make(map[int64][]transport.Event),
	}
}

// Reset returns the reconciler to its uninitialized state. The connection
// manager calls this when a connection is torn down so the next session
// starts buffering again until its own full list arrives.
func (r *Reconciler) Reset() {
	r.initialized = false
	r.pending = make(map[int64][]transport.Event)
}

// Initialized reports whether a full monitor list has been applied.
func (r *Reconciler) Initialized() bool {
	return r.initialized
}

// PendingCount returns the number of buffered incremental events.
func (r *Reconciler) PendingCount() int {
	n := 0
	for _, events := range r.pending {
		n += len(events)
	}
	return n
}

// Apply routes one event to its merge rule.
func (r *Reconciler) Apply(event transport.Event) {
	switch e := event.(type) {
	case transport.MonitorListEvent:
		r.applyMonitorList(e)
	case transport.HeartbeatListEvent:
		r.applyOrBuffer(int64(e.MonitorID), event)
	case transport.ImportantHeartbeatListEvent:
		r.applyOrBuffer(int64(e.MonitorID), event)
	case transport.HeartbeatEvent:
		r.applyOrBuffer(int64(e.Beat.MonitorID), event)
	case transport.AvgPingEvent:
		r.applyOrBuffer(int64(e.MonitorID), event)
	case transport.UptimeEvent:
		r.applyOrBuffer(int64(e.MonitorID), event)
	case transport.InfoEvent:
		if r.infos != nil {
			r.infos.Set(e.Info)
		}
	default:
		r.log.Warn("unhandled event type %T", event)
	}
}

// applyMonitorList replaces the collection with the pushed list, preserving
// each surviving monitor's accumulated history fields, then drains buffered
// incremental events for ids the list introduced.
func (r *Reconciler) applyMonitorList(e transport.MonitorListEvent) {
	existing := make(map[int64]model.Monitor)
	for _, m := range r.monitors.Monitors() {
		existing[int64(m.ID)] = m
	}

	merged := make([]model.Monitor, 0, len(e.Monitors))
	for key, incoming := range e.Monitors {
		if incoming.ID == 0 {
			id, err := model.ParseFlexInt([]byte(fmt.Sprintf("%q", key)))
			if err != nil {
				r.log.Warn("monitorList entry %q has no usable id, skipped", key)
				continue
			}
			incoming.ID = id
		}

		// The full list carries configuration, not history. A monitor we
		// already hold keeps what incremental events built up; a new one
		// starts with empty history.
		if prev, ok := existing[int64(incoming.ID)]; ok {
			incoming.HeartBeatList = prev.HeartBeatList
			incoming.ImportantHeartBeatList = prev.ImportantHeartBeatList
			incoming.AvgPing = prev.AvgPing
			incoming.Uptime = prev.Uptime
		} else {
			incoming.HeartBeatList = nil
			incoming.ImportantHeartBeatList = nil
		}
		merged = append(merged, incoming)
	}

	// The payload is a map, so ranging over it shuffles. Keep the
	// collection in ascending-id order so the store, the snapshot, and
	// the UI see the same order on every push.
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})

	r.monitors.SetMonitors(merged)
	r.initialized = true

	for id := range r.pending {
		if _, ok := r.monitors.Get(id); !ok {
			continue
		}
		buffered := r.pending[id]
		delete(r.pending, id)
		r.log.Debug("replaying %d buffered events for monitor %d", len(buffered), id)
		for _, event := range buffered {
			r.applyIncremental(event)
		}
	}
}

// applyOrBuffer applies an incremental event, or buffers it when the monitor
// is unknown and no full list has arrived yet.
func (r *Reconciler) applyOrBuffer(id int64, event transport.Event) {
	if !r.initialized {
		if _, ok := r.monitors.Get(id); !ok {
			r.pending[id] = append(r.pending[id], event)
			return
		}
	}
	r.applyIncremental(event)
}

func (r *Reconciler) applyIncremental(event transport.Event) {
	switch e := event.(type) {
	case transport.HeartbeatListEvent:
		r.monitors.UpdateMonitor(int64(e.MonitorID), func(m *model.Monitor) {
			m.HeartBeatList = append([]model.Heartbeat(nil), e.Beats...)
		})
	case transport.ImportantHeartbeatListEvent:
		r.monitors.UpdateMonitor(int64(e.MonitorID), func(m *model.Monitor) {
			m.ImportantHeartBeatList = append([]model.Heartbeat(nil), e.Beats...)
		})
	case transport.HeartbeatEvent:
		r.applyHeartbeat(e)
	case transport.AvgPingEvent:
		if e.AvgPing == nil {
			// null means the server has no value, not zero.
			return
		}
		r.monitors.UpdateMonitor(int64(e.MonitorID), func(m *model.Monitor) {
			m.AvgPing = *e.AvgPing
		})
	case transport.UptimeEvent:
		r.applyUptime(e)
	}
}

// applyHeartbeat prepends one beat and detects up/down transitions. A
// transition marks the beat important, records it in the important list, and
// fires exactly one notification.
func (r *Reconciler) applyHeartbeat(e transport.HeartbeatEvent) {
	beat := e.Beat
	var transitioned bool
	var name string

	r.monitors.UpdateMonitor(int64(beat.MonitorID), func(m *model.Monitor) {
		prevStatus, hadHistory := m.HeadStatus()
		if hadHistory && prevStatus != beat.Status {
			transitioned = true
			beat.Important = true
		}
		name = m.Name

		m.HeartBeatList = append([]model.Heartbeat{beat}, m.HeartBeatList...)
		if bool(beat.Important) {
			m.ImportantHeartBeatList = append([]model.Heartbeat{beat}, m.ImportantHeartBeatList...)
		}
	})

	if transitioned && r.notifier != nil {
		if beat.Status == model.StatusUp {
			r.notifier.Send("Monitor up", fmt.Sprintf("%s is up!", name))
		} else {
			r.notifier.Send("Monitor down", fmt.Sprintf("%s is down!", name))
		}
	}
}

func (r *Reconciler) applyUptime(e transport.UptimeEvent) {
	if e.Period == transport.PeriodUnknown {
		r.log.Warn("uptime event for monitor %d with unrecognized period, ignored", e.MonitorID)
		return
	}
	r.monitors.UpdateMonitor(int64(e.MonitorID), func(m *model.Monitor) {
		switch e.Period {
		case transport.PeriodDay:
			m.Uptime.Day = e.Uptime
		case transport.PeriodMonth:
			m.Uptime.Month = e.Uptime
		case transport.PeriodYear:
			ratio := e.Uptime
			m.Uptime.Year = &ratio
		}
	})
}
