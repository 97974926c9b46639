package client_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusbeat/statusbeat/internal/client"
	"github.com/statusbeat/statusbeat/internal/errors"
	"github.com/statusbeat/statusbeat/internal/kv"
	"github.com/statusbeat/statusbeat/internal/logger"
	"github.com/statusbeat/statusbeat/internal/model"
	"github.com/statusbeat/statusbeat/internal/reconcile"
	"github.com/statusbeat/statusbeat/internal/store"
	transporttest "github.com/statusbeat/statusbeat/internal/transport/testing"
)

type harness struct {
	server   *transporttest.FakeServer
	monitors *store.MonitorStore
	client   *client.Client
}

func newHarness(t *testing.T, opts client.Options) *harness {
	t.Helper()

	server, err := transporttest.NewFakeServer("admin", "secret")
	require.NoError(t, err)
	t.Cleanup(server.Close)

	opts.Address = server.Addr()
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 2 * time.Second
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 2 * time.Second
	}

	monitors := store.NewMonitorStore(kv.NewMemStore(), logger.Noop())
	rec := reconcile.New(monitors, store.NewInfoStore(), nil, logger.Noop())
	c := client.New(opts, monitors, rec, logger.Noop())
	t.Cleanup(c.Disconnect)

	return &harness{server: server, monitors: monitors, client: c}
}

// stateRecorder collects every state transition it observes.
type stateRecorder struct {
	mu     sync.Mutex
	states []client.State
}

func (r *stateRecorder) record(state client.State) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
}

func (r *stateRecorder) snapshot() []client.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]client.State(nil), r.states...)
}

func TestAuthenticateAndSync(t *testing.T) {
	h := newHarness(t, client.Options{})

	err := h.client.Authenticate(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.True(t, h.client.IsConnected())
	assert.Equal(t, client.StateConnected, h.client.State())
	assert.Empty(t, h.client.LastError())

	// A pushed full list flows through the reconciler into the store.
	require.NoError(t, h.server.Push("monitorList", map[string]interface{}{
		"1": map[string]interface{}{"id": 1, "name": "api", "type": "http", "active": 1},
	}))

	assert.Eventually(t, func() bool {
		return h.monitors.Len() == 1
	}, 3*time.Second, 10*time.Millisecond)

	m, ok := h.monitors.Get(1)
	require.True(t, ok)
	assert.Equal(t, "api", m.Name)
}

func TestAuthenticateRejected(t *testing.T) {
	h := newHarness(t, client.Options{})
	h.server.RejectLogins("Incorrect username or password")

	err := h.client.Authenticate(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
	assert.False(t, h.client.IsConnected())
	assert.Equal(t, client.StateDisconnected, h.client.State())
	assert.NotEmpty(t, h.client.LastError())

	// Rejection tears the socket down.
	assert.Eventually(t, func() bool {
		return h.server.ConnectionCount() == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestAuthenticateUnreachable(t *testing.T) {
	monitors := store.NewMonitorStore(kv.NewMemStore(), logger.Noop())
	rec := reconcile.New(monitors, store.NewInfoStore(), nil, logger.Noop())
	c := client.New(client.Options{
		Address:     "127.0.0.1:1",
		DialTimeout: time.Second,
	}, monitors, rec, logger.Noop())

	err := c.Authenticate(context.Background(), "admin", "secret")
	require.Error(t, err)
	assert.False(t, c.IsConnected())
}

func TestRequestsFailFastWhenNotConnected(t *testing.T) {
	h := newHarness(t, client.Options{})

	err := h.client.GetMonitors(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrNotConnected))

	err = h.client.GetMonitorBeats(context.Background(), 1, 2)
	assert.True(t, errors.IsCode(err, errors.ErrNotConnected))

	err = h.client.GetHeartbeats(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrNotConnected))

	// The failed calls left the collection untouched.
	assert.Equal(t, 0, h.monitors.Len())
	assert.Empty(t, h.server.Requests())
}

func TestGetMonitorBeatsParams(t *testing.T) {
	h := newHarness(t, client.Options{})
	require.NoError(t, h.client.Authenticate(context.Background(), "admin", "secret"))

	require.NoError(t, h.client.GetMonitorBeats(context.Background(), 7, 24))

	recorded := h.server.RequestsFor("getMonitorBeats")
	require.Len(t, recorded, 1)

	var params struct {
		MonitorID int64 `json:"monitorID"`
		Period    int   `json:"period"`
	}
	require.NoError(t, json.Unmarshal(recorded[0].Params, &params))
	assert.Equal(t, int64(7), params.MonitorID)
	assert.Equal(t, 24, params.Period)
}

func TestGetHeartbeatsFansOutPerMonitor(t *testing.T) {
	h := newHarness(t, client.Options{})
	require.NoError(t, h.client.Authenticate(context.Background(), "admin", "secret"))

	h.monitors.SetMonitors([]model.Monitor{
		{ID: 1, Name: "api", Active: true},
		{ID: 2, Name: "db", Active: true},
		{ID: 3, Name: "cache", Active: true},
	})

	require.NoError(t, h.client.GetHeartbeats(context.Background()))

	recorded := h.server.RequestsFor("getMonitorBeats")
	require.Len(t, recorded, 3)

	ids := make(map[int64]bool)
	for _, r := range recorded {
		var params struct {
			MonitorID int64 `json:"monitorID"`
			Period    int   `json:"period"`
		}
		require.NoError(t, json.Unmarshal(r.Params, &params))
		ids[params.MonitorID] = true
		assert.Equal(t, 2, params.Period)
	}
	assert.Len(t, ids, 3)
}

func TestUnexpectedDropReconnects(t *testing.T) {
	recorder := &stateRecorder{}
	h := newHarness(t, client.Options{
		AutoReconnect: true,
		Backoff: client.BackoffPolicy{
			MinDelay:    10 * time.Millisecond,
			MaxDelay:    50 * time.Millisecond,
			MaxAttempts: 5,
		},
	})

	require.NoError(t, h.client.Authenticate(context.Background(), "admin", "secret"))
	unsubscribe := h.client.OnStateChange(recorder.record)
	defer unsubscribe()

	h.server.DropConnections()

	assert.Eventually(t, func() bool {
		return h.client.IsConnected()
	}, 5*time.Second, 10*time.Millisecond, "client reconnects on its own")

	// Registered while connected, so the recorder saw the full cycle:
	// connected (immediate), disconnected, connecting, connected.
	states := recorder.snapshot()
	require.GreaterOrEqual(t, len(states), 4)
	assert.Equal(t, []client.State{
		client.StateConnected,
		client.StateDisconnected,
		client.StateConnecting,
		client.StateConnected,
	}, states[:4])
}

func TestLocalDisconnectDoesNotReconnect(t *testing.T) {
	h := newHarness(t, client.Options{
		AutoReconnect: true,
		Backoff: client.BackoffPolicy{
			MinDelay:    10 * time.Millisecond,
			MaxDelay:    20 * time.Millisecond,
			MaxAttempts: 3,
		},
	})

	require.NoError(t, h.client.Authenticate(context.Background(), "admin", "secret"))
	h.client.Disconnect()

	assert.False(t, h.client.IsConnected())

	// Give a would-be reconnect loop time to show itself.
	time.Sleep(200 * time.Millisecond)
	assert.False(t, h.client.IsConnected())
	assert.Equal(t, 0, h.server.ConnectionCount())

	// Credentials are gone, so an explicit reconnect refuses too.
	err := h.client.Reconnect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
}

func TestReconnectIsIdempotent(t *testing.T) {
	h := newHarness(t, client.Options{})
	require.NoError(t, h.client.Authenticate(context.Background(), "admin", "secret"))

	require.NoError(t, h.client.Reconnect(context.Background()))
	require.NoError(t, h.client.Reconnect(context.Background()))
	assert.True(t, h.client.IsConnected())

	// Old sessions were closed before each new one opened.
	assert.Eventually(t, func() bool {
		return h.server.ConnectionCount() == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestConcurrentReconnectsKeepOneSession(t *testing.T) {
	h := newHarness(t, client.Options{})
	require.NoError(t, h.client.Authenticate(context.Background(), "admin", "secret"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.client.Reconnect(context.Background()))
		}()
	}
	wg.Wait()

	assert.True(t, h.client.IsConnected())

	// Each winner tore down its predecessor, so exactly one connection
	// survives and no orphaned consumer keeps a socket open.
	assert.Eventually(t, func() bool {
		return h.server.ConnectionCount() == 1
	}, 3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, h.server.ConnectionCount())
}

func TestReconnectDuringBackoffKeepsOneSession(t *testing.T) {
	h := newHarness(t, client.Options{
		AutoReconnect: true,
		Backoff: client.BackoffPolicy{
			MinDelay:    100 * time.Millisecond,
			MaxDelay:    200 * time.Millisecond,
			MaxAttempts: 5,
		},
	})
	require.NoError(t, h.client.Authenticate(context.Background(), "admin", "secret"))

	// Kick the backoff loop off, then beat its first sleep with an
	// explicit reconnect.
	h.server.DropConnections()
	assert.Eventually(t, func() bool {
		return !h.client.IsConnected()
	}, 3*time.Second, 5*time.Millisecond)
	require.NoError(t, h.client.Reconnect(context.Background()))
	assert.True(t, h.client.IsConnected())

	// When the loop wakes it finds a live session and stands down
	// instead of installing a second one.
	time.Sleep(400 * time.Millisecond)
	assert.True(t, h.client.IsConnected())
	assert.Equal(t, 1, h.server.ConnectionCount())
}

func TestBackoffDelays(t *testing.T) {
	policy := client.BackoffPolicy{
		MinDelay:    time.Second,
		MaxDelay:    10 * time.Second,
		MaxAttempts: 8,
	}

	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 4*time.Second, policy.Delay(3))
	assert.Equal(t, 8*time.Second, policy.Delay(4))
	assert.Equal(t, 10*time.Second, policy.Delay(5), "clamped at max")
	assert.Equal(t, 10*time.Second, policy.Delay(100))
	assert.Equal(t, time.Second, policy.Delay(0), "attempt floor is 1")
}
