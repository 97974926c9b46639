// Package client composes the transport, the reconciler, and the monitor
// store into the public API the UI layer calls: authenticate, fetch, and a
// connection lifecycle with automatic reconnection.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/statusbeat/statusbeat/internal/errors"
	"github.com/statusbeat/statusbeat/internal/logger"
	"github.com/statusbeat/statusbeat/internal/reconcile"
	"github.com/statusbeat/statusbeat/internal/store"
	"github.com/statusbeat/statusbeat/internal/transport"
)

// State is the connection lifecycle phase, observable via OnStateChange.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// StateListener observes connection state transitions.
type StateListener func(state State)

// heartbeatFanOutPeriod is the history window, in hours, requested when
// refreshing beats for every monitor at once.
const heartbeatFanOutPeriod = 2

// Options configures a Client.
type Options struct {
	// Address is the host:port of the monitoring server.
	Address string
	// DialTimeout bounds each connection attempt.
	DialTimeout time.Duration
	// RequestTimeout bounds each request/response exchange.
	RequestTimeout time.Duration

	// AutoReconnect enables the backoff loop after unexpected drops.
	AutoReconnect bool
	Backoff       BackoffPolicy

	// TimeoutRetries is how many extra dial attempts a timeout earns,
	// with linearly increasing delay between them.
	TimeoutRetries int
	RetryDelay     time.Duration
}

func (o *Options) fillDefaults() {
	if o.DialTimeout == 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.Backoff == (BackoffPolicy{}) {
		o.Backoff = DefaultBackoff()
	}
	if o.TimeoutRetries == 0 {
		o.TimeoutRetries = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
}

// Client owns one logical session to the server. All methods are safe for
// concurrent use. Exactly one goroutine consumes events per live connection,
// and it is fully torn down before any reconnect opens a new one. Connect
// sequences are single-flight: a Reconnect racing the auto-reconnect loop
// serializes behind it instead of opening a second session.
type Client struct {
	opts     Options
	log      logger.Logger
	monitors *store.MonitorStore
	rec      *reconcile.Reconciler

	// connectMu serializes teardown+dial+login sequences. It is never
	// held while waiting on c.mu, and the consume goroutine never takes
	// it, so teardown's wait for the consumer cannot deadlock.
	connectMu sync.Mutex

	mu           sync.Mutex
	conn         *transport.Conn
	consumerDone chan struct{}
	state        State
	username     string
	password     string
	hasCreds     bool
	lastErr      string
	reconnecting bool

	nextListenerID int
	listeners      map[int]StateListener
}

// New creates a client. The reconciler must write into the same store the
// client reads monitor ids from.
func New(opts Options, monitors *store.MonitorStore, rec *reconcile.Reconciler, log logger.Logger) *Client {
	opts.fillDefaults()
	if log == nil {
		log = logger.Noop()
	}
	return &Client{
		opts:      opts,
		log:       log,
		monitors:  monitors,
		rec:       rec,
		listeners: make(map[int]StateListener),
	}
}

// Authenticate stores the credentials and runs the full connect-and-login
// sequence. Dial timeouts are retried with linearly increasing delay before
// surfacing; a server rejection is terminal and tears the socket down.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	c.mu.Lock()
	c.username = username
	c.password = password
	c.hasCreds = true
	c.mu.Unlock()

	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	c.teardown()
	return c.connectAndLogin(ctx)
}

// Reconnect tears down any live transport and reruns connect-and-login with
// the stored credentials. Safe to call when already disconnected.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	hasCreds := c.hasCreds
	c.mu.Unlock()
	if !hasCreds {
		return errors.New(errors.ErrAuth,
			"No stored credentials to reconnect with",
			"Authenticate first")
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	c.teardown()
	return c.connectAndLogin(ctx)
}

// Disconnect releases the transport and forgets the credentials. After this
// call the client holds no session state. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.username = ""
	c.password = ""
	c.hasCreds = false
	c.lastErr = ""
	c.mu.Unlock()

	// Serializing behind any in-flight connect means a session installed
	// mid-Disconnect is torn down here rather than left running.
	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	c.teardown()
	c.setState(StateDisconnected)
}

// IsConnected reports whether a live, logged-in transport exists. It has no
// side effects.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.Connected()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the current session error, or the empty string when the
// session is healthy. The UI shows it as a banner.
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// OnStateChange registers a listener, immediately delivers the current
// state, and returns an unsubscribe func.
func (c *Client) OnStateChange(fn StateListener) func() {
	c.mu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.listeners[id] = fn
	current := c.state
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// GetMonitors asks the server for a fresh full monitor list. The list itself
// arrives as a push event and flows through the reconciler; the returned
// error covers only the request acknowledgement.
func (c *Client) GetMonitors(ctx context.Context) error {
	conn := c.liveConn()
	if conn == nil {
		return errors.NewNotConnected("getMonitors")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	resp, err := conn.Request(ctx, transport.ActionGetMonitorList, struct{}{})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(errors.ErrTransport,
			fmt.Sprintf("Server refused monitor list: %s", resp.Msg),
			"Check the server logs")
	}
	return nil
}

// GetMonitorBeats requests heartbeat history for one monitor over the given
// window in hours. Zero means the server default.
func (c *Client) GetMonitorBeats(ctx context.Context, monitorID int64, period int) error {
	conn := c.liveConn()
	if conn == nil {
		return errors.NewNotConnected("getMonitorBeats")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	resp, err := conn.Request(ctx, transport.ActionGetMonitorBeats, transport.BeatsParams{
		MonitorID: monitorID,
		Period:    period,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(errors.ErrTransport,
			fmt.Sprintf("Server refused beats for monitor %d: %s", monitorID, resp.Msg),
			"Check the server logs")
	}
	return nil
}

// GetHeartbeats fans a beats request out across every known monitor. The
// first failure cancels the remaining requests.
func (c *Client) GetHeartbeats(ctx context.Context) error {
	if c.liveConn() == nil {
		return errors.NewNotConnected("getHeartbeats")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, m := range c.monitors.Monitors() {
		id := int64(m.ID)
		g.Go(func() error {
			return c.GetMonitorBeats(ctx, id, heartbeatFanOutPeriod)
		})
	}
	return g.Wait()
}

func (c *Client) liveConn() *transport.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && c.conn.Connected() {
		return c.conn
	}
	return nil
}

// teardown closes any live transport and waits until its event consumer has
// exited, so no handler from the old session can fire after a new one opens.
func (c *Client) teardown() {
	c.mu.Lock()
	conn := c.conn
	done := c.consumerDone
	c.conn = nil
	c.consumerDone = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Close() //nolint:errcheck // Close errors on teardown are not actionable
	if done != nil {
		<-done
	}
}

func (c *Client) connectAndLogin(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, err := c.dialWithRetry(ctx)
	if err != nil {
		c.setLastError(err.Error())
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	username, password := c.username, c.password
	c.mu.Unlock()

	loginCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	resp, err := conn.Request(loginCtx, transport.ActionLogin, transport.LoginParams{
		Username: username,
		Password: password,
	})
	cancel()
	if err != nil {
		conn.Close() //nolint:errcheck // Already failing
		c.setLastError(err.Error())
		c.setState(StateDisconnected)
		return err
	}
	if !resp.OK {
		conn.Close() //nolint:errcheck // Already failing
		authErr := errors.New(errors.ErrAuth,
			fmt.Sprintf("Login rejected: %s", resp.Msg),
			"Check your username and password")
		c.setLastError(authErr.Error())
		c.setState(StateDisconnected)
		return authErr
	}

	// Install under the lock, refusing to displace a live session: the
	// overwritten conn's consumer would keep feeding the reconciler
	// alongside the new one. Callers hold connectMu, so this only trips
	// if a connect path bypasses it.
	done := make(chan struct{})
	c.mu.Lock()
	if c.conn != nil && c.conn.Connected() {
		c.mu.Unlock()
		conn.Close() //nolint:errcheck // Losing conn of a concurrent connect
		c.log.Warn("concurrent connect detected, keeping the existing session")
		return nil
	}

	// Fresh connection, fresh reconciliation state: buffer incremental
	// events again until this session's full list arrives.
	c.rec.Reset()

	c.conn = conn
	c.consumerDone = done
	c.lastErr = ""
	c.mu.Unlock()

	go c.consume(conn, done)

	c.setState(StateConnected)
	c.log.Info("connected to %s as %s", c.opts.Address, username)
	return nil
}

// dialWithRetry dials the server, retrying timeout-classified failures up to
// TimeoutRetries extra times with linearly increasing delay. Other failures
// surface immediately.
func (c *Client) dialWithRetry(ctx context.Context) (*transport.Conn, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.TimeoutRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.opts.RetryDelay
			c.log.Debug("dial timed out, retrying in %v (attempt %d/%d)",
				delay, attempt, c.opts.TimeoutRetries)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
					"Connection attempt canceled",
					"Check the server address and try again")
			}
		}

		conn, err := transport.Dial(c.opts.Address, c.opts.DialTimeout, c.log)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if !errors.IsCode(err, errors.ErrTimeout) {
			return nil, err
		}
	}
	return nil, lastErr
}

// consume is the single event-consuming goroutine for one connection. It
// drains the typed event channel into the reconciler; when the channel
// closes it inspects the close reason and, on an unexpected drop, kicks off
// the auto-reconnect loop.
func (c *Client) consume(conn *transport.Conn, done chan struct{}) {
	defer close(done)

	for event := range conn.Events() {
		c.rec.Apply(event)
	}

	err := conn.Err()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.consumerDone = nil
	}
	shouldReconnect := err != nil && c.opts.AutoReconnect && c.hasCreds && !c.reconnecting
	if shouldReconnect {
		c.reconnecting = true
	}
	if err != nil {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()

	if err == nil {
		// Local close; Disconnect or teardown handles the state.
		return
	}

	c.log.Warn("connection lost: %v", err)
	c.setState(StateDisconnected)

	if shouldReconnect {
		go c.autoReconnect()
	}
}

// autoReconnect retries connect-and-login with bounded exponential backoff.
// Authentication rejection stops the loop; so does a Disconnect that cleared
// the credentials. At most one loop runs at a time.
func (c *Client) autoReconnect() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	policy := c.opts.Backoff
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		time.Sleep(policy.Delay(attempt))

		c.connectMu.Lock()
		c.mu.Lock()
		hasCreds := c.hasCreds
		alive := c.conn != nil && c.conn.Connected()
		c.mu.Unlock()
		if !hasCreds || alive {
			// Disconnected on purpose, or a user-initiated Reconnect
			// already won the race and holds a live session.
			c.connectMu.Unlock()
			return
		}

		err := c.connectAndLogin(context.Background())
		c.connectMu.Unlock()
		if err == nil {
			return
		}
		if errors.IsCode(err, errors.ErrAuth) {
			c.log.Error("reauthentication failed, giving up: %v", err)
			return
		}
		c.log.Warn("reconnect attempt %d/%d failed: %v", attempt, policy.MaxAttempts, err)
	}

	c.setLastError(fmt.Sprintf("gave up reconnecting after %d attempts", policy.MaxAttempts))
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	listeners := make([]StateListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (c *Client) setLastError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}
