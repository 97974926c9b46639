// Package store holds the reconciled monitor collection and derives aggregate
// statistics from it. It is the single source of truth the UI reads from:
// every write persists a snapshot and fans out to subscribers, so observers
// never see a state older than the write that woke them.
package store

import (
	"sync"

	"github.com/statusbeat/statusbeat/internal/kv"
	"github.com/statusbeat/statusbeat/internal/logger"
	"github.com/statusbeat/statusbeat/internal/model"
)

// snapshotKey is the kv key the monitor snapshot persists under.
const snapshotKey = "monitors"

// MonitorSubscriber receives a deep-copied snapshot after every write.
type MonitorSubscriber func(monitors []model.Monitor)

// StatsSubscriber receives recomputed aggregate statistics after every write.
type StatsSubscriber func(stats AggregateStats)

// MonitorStore is the canonical, mutex-guarded monitor collection.
//
// Writes go through SetMonitors and UpdateMonitor, which normalize heartbeat
// ordering, persist the snapshot, and notify both subscriber registries.
// Reads return deep copies so callers can hold snapshots without observing
// later writes.
type MonitorStore struct {
	mu       sync.Mutex
	monitors []model.Monitor
	kv       kv.Store
	log      logger.Logger

	nextSubID int
	subs      map[int]MonitorSubscriber
	statsSubs map[int]StatsSubscriber

	// generation counts writes; cachedStats is valid while statsGen matches.
	generation  uint64
	statsGen    uint64
	cachedStats AggregateStats
	statsValid  bool
}

// NewMonitorStore creates a store backed by the given kv store. If a snapshot
// was persisted by a previous run it is loaded so the UI has data before the
// first server event arrives.
func NewMonitorStore(persist kv.Store, log logger.Logger) *MonitorStore {
	if log == nil {
		log = logger.Noop()
	}
	s := &MonitorStore{
		kv:        persist,
		log:       log,
		subs:      make(map[int]MonitorSubscriber),
		statsSubs: make(map[int]StatsSubscriber),
	}
	s.loadSnapshot()
	return s
}

func (s *MonitorStore) loadSnapshot() {
	if s.kv == nil {
		return
	}
	var monitors []model.Monitor
	found, err := s.kv.Get(snapshotKey, &monitors)
	if err != nil {
		s.log.Warn("could not load persisted monitors: %v", err)
		return
	}
	if !found {
		return
	}
	for i := range monitors {
		normalizeMonitor(&monitors[i])
	}
	s.monitors = monitors
	s.log.Debug("loaded %d monitors from snapshot", len(monitors))
}

// Monitors returns a deep copy of the current collection.
func (s *MonitorStore) Monitors() []model.Monitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMonitors(s.monitors)
}

// Get returns a deep copy of the monitor with the given id.
func (s *MonitorStore) Get(id int64) (model.Monitor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.monitors {
		if int64(s.monitors[i].ID) == id {
			return s.monitors[i].Clone(), true
		}
	}
	return model.Monitor{}, false
}

// Len returns the number of monitors currently held.
func (s *MonitorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.monitors)
}

// SetMonitors replaces the entire collection. Each monitor is normalized
// (heartbeats sorted newest-first and capped, IsUp rederived) before the
// write is persisted and published.
func (s *MonitorStore) SetMonitors(monitors []model.Monitor) {
	monitors = model.CloneMonitors(monitors)
	for i := range monitors {
		normalizeMonitor(&monitors[i])
	}

	s.mu.Lock()
	s.monitors = monitors
	s.afterWriteLocked()
	snapshot, monitorSubs, statsSubs, stats := s.publishStateLocked()
	s.mu.Unlock()

	s.deliver(snapshot, monitorSubs, statsSubs, stats)
}

// UpdateMonitor applies mutate to the monitor with the given id, then
// renormalizes it and publishes the write. An unknown id is logged and
// ignored; the collection is not modified.
func (s *MonitorStore) UpdateMonitor(id int64, mutate func(m *model.Monitor)) {
	s.mu.Lock()
	idx := -1
	for i := range s.monitors {
		if int64(s.monitors[i].ID) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.log.Warn("update for unknown monitor id %d ignored", id)
		return
	}

	mutate(&s.monitors[idx])
	normalizeMonitor(&s.monitors[idx])
	s.afterWriteLocked()
	snapshot, monitorSubs, statsSubs, stats := s.publishStateLocked()
	s.mu.Unlock()

	s.deliver(snapshot, monitorSubs, statsSubs, stats)
}

// Subscribe registers a monitor subscriber and immediately delivers the
// current snapshot so late subscribers do not wait for the next write.
// The returned func removes the subscription.
func (s *MonitorStore) Subscribe(fn MonitorSubscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	snapshot := model.CloneMonitors(s.monitors)
	s.mu.Unlock()

	fn(snapshot)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SubscribeStats registers a stats subscriber with the same immediate-delivery
// and unsubscribe semantics as Subscribe.
func (s *MonitorStore) SubscribeStats(fn StatsSubscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.statsSubs[id] = fn
	stats := s.statsLocked()
	s.mu.Unlock()

	fn(stats)

	return func() {
		s.mu.Lock()
		delete(s.statsSubs, id)
		s.mu.Unlock()
	}
}

// Stats returns aggregate statistics for the current collection. The result
// is cached and only recomputed after a write.
func (s *MonitorStore) Stats() AggregateStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *MonitorStore) statsLocked() AggregateStats {
	if s.statsValid && s.statsGen == s.generation {
		return s.cachedStats
	}
	s.cachedStats = ComputeStats(s.monitors)
	s.statsGen = s.generation
	s.statsValid = true
	return s.cachedStats
}

// Reset clears the collection, all subscriptions, and the persisted snapshot.
func (s *MonitorStore) Reset() {
	s.mu.Lock()
	s.monitors = nil
	s.subs = make(map[int]MonitorSubscriber)
	s.statsSubs = make(map[int]StatsSubscriber)
	s.generation++
	s.statsValid = false
	s.mu.Unlock()

	if s.kv != nil {
		if err := s.kv.Remove(snapshotKey); err != nil {
			s.log.Warn("could not remove persisted monitors: %v", err)
		}
	}
}

// afterWriteLocked bumps the write generation and persists the snapshot.
// Persistence failures are logged, never fatal: the in-memory state stays
// authoritative.
func (s *MonitorStore) afterWriteLocked() {
	s.generation++
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(snapshotKey, s.monitors); err != nil {
		s.log.Warn("could not persist monitors: %v", err)
	}
}

// publishStateLocked snapshots everything notification needs while the lock
// is held, so callbacks run unlocked but always see state at least as new as
// the write that triggered them.
func (s *MonitorStore) publishStateLocked() ([]model.Monitor, []MonitorSubscriber, []StatsSubscriber, AggregateStats) {
	snapshot := model.CloneMonitors(s.monitors)
	monitorSubs := make([]MonitorSubscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		monitorSubs = append(monitorSubs, fn)
	}
	statsSubs := make([]StatsSubscriber, 0, len(s.statsSubs))
	for _, fn := range s.statsSubs {
		statsSubs = append(statsSubs, fn)
	}
	var stats AggregateStats
	if len(statsSubs) > 0 {
		stats = s.statsLocked()
	}
	return snapshot, monitorSubs, statsSubs, stats
}

func (s *MonitorStore) deliver(snapshot []model.Monitor, monitorSubs []MonitorSubscriber, statsSubs []StatsSubscriber, stats AggregateStats) {
	for _, fn := range monitorSubs {
		fn(snapshot)
	}
	for _, fn := range statsSubs {
		fn(stats)
	}
}

// normalizeMonitor restores the invariants every stored monitor holds:
// heartbeat lists sorted newest-first, capped at MaxHeartbeats, and IsUp
// derived from the newest heartbeat.
func normalizeMonitor(m *model.Monitor) {
	model.SortHeartbeats(m.HeartBeatList)
	model.SortHeartbeats(m.ImportantHeartBeatList)
	m.HeartBeatList = model.TruncateHeartbeats(m.HeartBeatList)
	m.ImportantHeartBeatList = model.TruncateHeartbeats(m.ImportantHeartBeatList)
	status, ok := m.HeadStatus()
	m.IsUp = ok && status == model.StatusUp
}

// InfoStore holds the most recent server metadata pushed on connect.
type InfoStore struct {
	mu   sync.Mutex
	info model.Info
	set  bool
}

// NewInfoStore creates an empty info store.
func NewInfoStore() *InfoStore {
	return &InfoStore{}
}

// Set replaces the stored server info.
func (s *InfoStore) Set(info model.Info) {
	s.mu.Lock()
	s.info = info
	s.set = true
	s.mu.Unlock()
}

// Info returns the stored server info and whether one has been received.
func (s *InfoStore) Info() (model.Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, s.set
}
