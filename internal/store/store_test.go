package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusbeat/statusbeat/internal/kv"
	"github.com/statusbeat/statusbeat/internal/logger"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/store"
)

func beatAt(id int64, status int, offset time.Duration) model.Heartbeat {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return model.Heartbeat{
		MonitorID: model.FlexInt(id),
		Status:    status,
		Ping:      42,
		Time:      model.NewFlexTime(base.Add(offset)),
	}
}

func testMonitor(id int64, name string) model.Monitor {
	return model.Monitor{
		ID:     model.FlexInt(id),
		Name:   name,
		Type:   "http",
		Active: true,
	}
}

func TestSetMonitorsNormalizes(t *testing.T) {
	s := store.NewMonitorStore(kv.NewMemStore(), logger.Noop())

	m := testMonitor(1, "api")
	// Oldest first on purpose; the store must flip it newest-first.
	m.HeartBeatList = []model.Heartbeat{
		beatAt(1, model.StatusDown, 0),
		beatAt(1, model.StatusUp, time.Minute),
	}
	s.SetMonitors([]model.Monitor{m})

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, model.StatusUp, got.HeartBeatList[0].Status)
	assert.True(t, got.IsUp)
}

func TestSetMonitorsCapsHistory(t *testing.T) {
	s := store.NewMonitorStore(kv.NewMemStore(), logger.Noop())

	m := testMonitor(1, "api")
	for i := 0; i < model.MaxHeartbeats+25; i++ {
		m.HeartBeatList = append(m.HeartBeatList, beatAt(1, model.StatusUp, time.Duration(i)*time.Second))
	}
	s.SetMonitors([]model.Monitor{m})

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Len(t, got.HeartBeatList, model.MaxHeartbeats)
	// The newest entries survive the cap.
	assert.Equal(t, beatAt(1, model.StatusUp, time.Duration(model.MaxHeartbeats+24)*time.Second).Time.Time(),
		got.HeartBeatList[0].Time.Time())
}

func TestUpdateMonitorUnknownIDIsNoOp(t *testing.T) {
	log := logger.NewBufferLogger()
	s := store.NewMonitorStore(kv.NewMemStore(), log)
	s.SetMonitors([]model.Monitor{testMonitor(1, "api")})

	called := false
	s.UpdateMonitor(99, func(m *model.Monitor) { called = true })

	assert.False(t, called)
	assert.Equal(t, 1, s.Len())
	assert.True(t, log.HasLevel("warn"))
}

func TestSubscribeDeliversImmediatelyAndOnWrite(t *testing.T) {
	s := store.NewMonitorStore(kv.NewMemStore(), logger.Noop())
	s.SetMonitors([]model.Monitor{testMonitor(1, "api")})

	var deliveries [][]model.Monitor
	unsubscribe := s.Subscribe(func(monitors []model.Monitor) {
		deliveries = append(deliveries, monitors)
	})

	require.Len(t, deliveries, 1, "current snapshot delivered on subscribe")
	assert.Equal(t, "api", deliveries[0][0].Name)

	s.UpdateMonitor(1, func(m *model.Monitor) { m.Name = "api-v2" })
	require.Len(t, deliveries, 2)
	assert.Equal(t, "api-v2", deliveries[1][0].Name)

	unsubscribe()
	s.UpdateMonitor(1, func(m *model.Monitor) { m.Name = "api-v3" })
	assert.Len(t, deliveries, 2, "no deliveries after unsubscribe")
}

func TestSnapshotsAreTearFree(t *testing.T) {
	s := store.NewMonitorStore(kv.NewMemStore(), logger.Noop())
	m := testMonitor(1, "api")
	m.HeartBeatList = []model.Heartbeat{beatAt(1, model.StatusUp, 0)}
	s.SetMonitors([]model.Monitor{m})

	snapshot := s.Monitors()
	s.UpdateMonitor(1, func(m *model.Monitor) {
		m.Name = "changed"
		m.HeartBeatList = append([]model.Heartbeat{beatAt(1, model.StatusDown, time.Minute)}, m.HeartBeatList...)
	})

	assert.Equal(t, "api", snapshot[0].Name)
	assert.Len(t, snapshot[0].HeartBeatList, 1)
}

func TestPersistRoundTrip(t *testing.T) {
	persist := kv.NewFileStore(t.TempDir())

	s := store.NewMonitorStore(persist, logger.Noop())
	m := testMonitor(7, "db")
	m.HeartBeatList = []model.Heartbeat{beatAt(7, model.StatusUp, 0)}
	m.Uptime = model.Uptime{Day: 0.99, Month: 0.97}
	s.SetMonitors([]model.Monitor{m})

	// A fresh store over the same file sees the previous snapshot.
	reloaded := store.NewMonitorStore(persist, logger.Noop())
	got, ok := reloaded.Get(7)
	require.True(t, ok)
	assert.Equal(t, "db", got.Name)
	assert.True(t, got.IsUp)
	assert.Equal(t, 0.99, got.Uptime.Day)
	require.Len(t, got.HeartBeatList, 1)
	assert.Equal(t, beatAt(7, model.StatusUp, 0).Time.Time(), got.HeartBeatList[0].Time.Time())
}

func TestResetClearsEverything(t *testing.T) {
	persist := kv.NewMemStore()
	s := store.NewMonitorStore(persist, logger.Noop())
	s.SetMonitors([]model.Monitor{testMonitor(1, "api")})

	notified := 0
	s.Subscribe(func([]model.Monitor) { notified++ })
	require.Equal(t, 1, notified)

	s.Reset()

	assert.Equal(t, 0, s.Len())
	s.SetMonitors([]model.Monitor{testMonitor(2, "web")})
	assert.Equal(t, 1, notified, "reset dropped the subscription")

	var monitors []model.Monitor
	found, err := persist.Get("monitors", &monitors)
	require.NoError(t, err)
	// Reset removed the snapshot; the later SetMonitors re-wrote it.
	assert.True(t, found)
	require.Len(t, monitors, 1)
	assert.Equal(t, "web", monitors[0].Name)
}

func TestStatsCachedUntilWrite(t *testing.T) {
	s := store.NewMonitorStore(kv.NewMemStore(), logger.Noop())

	up := testMonitor(1, "api")
	up.HeartBeatList = []model.Heartbeat{beatAt(1, model.StatusUp, 0)}
	s.SetMonitors([]model.Monitor{up})

	first := s.Stats()
	second := s.Stats()
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.Up)

	s.UpdateMonitor(1, func(m *model.Monitor) {
		m.HeartBeatList = append([]model.Heartbeat{beatAt(1, model.StatusDown, time.Minute)}, m.HeartBeatList...)
	})

	after := s.Stats()
	assert.Equal(t, 0, after.Up)
	assert.Equal(t, 1, after.Down)
	assert.Equal(t, []string{"api"}, after.DownMonitors)
}

func TestInfoStore(t *testing.T) {
	s := store.NewInfoStore()

	_, ok := s.Info()
	assert.False(t, ok)

	s.Set(model.Info{Version: "2.0.0"})
	info, ok := s.Info()
	require.True(t, ok)
	assert.Equal(t, "2.0.0", info.Version)
}
