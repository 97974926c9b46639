package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/statusbeat/statusbeat/internal/errors"
	"github.com/statusbeat/statusbeat/internal/logger"
)

const (
	// scannerInitBufSize is the initial read buffer size (1 MB).
	scannerInitBufSize = 1024 * 1024
	// scannerMaxTokenSize is the largest frame the reader accepts (10 MB);
	// a full monitor list with history can be large.
	scannerMaxTokenSize = 10 * 1024 * 1024

	// eventBufferSize is the capacity of the delivered-events channel.
	// Receipt order is preserved; when the consumer falls behind, the read
	// loop blocks rather than reorder or drop.
	eventBufferSize = 256
)

// Conn is one live session to the server. It owns a background read loop
// that routes responses to pending requests and delivers typed events, in
// receipt order, on the Events channel.
type Conn struct {
	conn net.Conn
	enc  *json.Encoder
	log  logger.Logger

	mu         sync.Mutex
	nextID     int
	pending    map[int]chan Response
	closed     bool
	localClose bool

	events chan Event
	done   chan struct{}
	stop   chan struct{} // closed by Close to unblock event delivery
	err    error         // close reason, set before done is closed; nil on local close
}

// Dial opens a connection to address within timeout and starts the read
// loop. A dial that exceeds the timeout is classified ErrTimeout; other
// dial failures are ErrTransport.
func Dial(address string, timeout time.Duration, log logger.Logger) (*Conn, error) {
	if log == nil {
		log = logger.Noop()
	}

	netConn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil, errors.WrapWithCode(err, errors.ErrTimeout,
				fmt.Sprintf("Connecting to %s timed out after %s", address, timeout),
				"Check the server address and that the server is running")
		}
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Can't reach the server at %s", address),
			"Check the server address and your network connection")
	}

	c := &Conn{
		conn:    netConn,
		enc:     json.NewEncoder(netConn),
		log:     log,
		pending: make(map[int]chan Response),
		events:  make(chan Event, eventBufferSize),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}

	go c.readLoop()
	return c, nil
}

// Events returns the channel of decoded server events. It is closed when
// the connection ends, after all delivered events are drained.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Done is closed when the connection has ended for any reason.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the close reason after Done is closed. It is nil when the
// connection was closed locally via Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Connected reports whether the connection is still live.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close tears the connection down. It is idempotent and marks the closure
// as intentional so the owner does not auto-reconnect.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.localClose = true
	close(c.stop)
	c.mu.Unlock()

	return c.conn.Close()
}

// Request sends an action frame and waits for the server acknowledgement.
// It fails immediately when the connection is down, and respects ctx for
// the wait.
func (c *Conn) Request(ctx context.Context, action string, params interface{}) (Response, error) {
	paramsData, err := json.Marshal(params)
	if err != nil {
		return Response{}, errors.WrapWithCode(err, errors.ErrPayload,
			fmt.Sprintf("Can't encode %q request", action), "")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, errors.NewNotConnected(action)
	}
	c.nextID++
	id := c.nextID
	ch := make(chan Response, 1)
	c.pending[id] = ch

	frame := Frame{ID: id, Action: action, Params: paramsData}
	err = c.enc.Encode(frame)
	c.mu.Unlock()

	if err != nil {
		c.forgetPending(id)
		return Response{}, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Sending %q request failed", action),
			"The connection may have dropped; try reconnecting")
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, errors.New(errors.ErrTransport,
				fmt.Sprintf("Connection closed while waiting for %q response", action),
				"Try reconnecting")
		}
		return resp, nil
	case <-c.done:
		c.forgetPending(id)
		return Response{}, errors.New(errors.ErrTransport,
			fmt.Sprintf("Connection closed while waiting for %q response", action),
			"Try reconnecting")
	case <-ctx.Done():
		c.forgetPending(id)
		return Response{}, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			fmt.Sprintf("Timed out waiting for %q response", action),
			"The server may be overloaded; try again")
	}
}

func (c *Conn) forgetPending(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// readLoop consumes frames until the connection ends, then records the
// close reason, fails pending requests, and closes the event channel.
func (c *Conn) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)

scan:
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			c.log.Warn("dropping malformed frame: %v", err)
			continue
		}

		switch {
		case frame.IsResponse():
			c.routeResponse(&frame)
		case frame.IsPush():
			event, err := DecodeEvent(frame.Event, frame.Args)
			if err != nil {
				// Local to this one event; the stream continues.
				c.log.Warn("dropping event %q: %v", frame.Event, err)
				continue
			}
			if event == nil {
				c.log.Debug("ignoring unknown event %q", frame.Event)
				continue
			}
			select {
			case c.events <- event:
			case <-c.stop:
				break scan
			}
		default:
			c.log.Debug("ignoring unroutable frame")
		}
	}

	scanErr := scanner.Err()

	c.mu.Lock()
	wasLocal := c.localClose
	c.closed = true
	if !wasLocal {
		cause := scanErr
		if cause == nil {
			cause = fmt.Errorf("connection closed by server")
		}
		c.err = errors.WrapWithCode(cause, errors.ErrTransport,
			"Lost connection to the server", "")
	}
	pending := c.pending
	c.pending = make(map[int]chan Response)
	c.mu.Unlock()

	// Fail anything still waiting for an acknowledgement.
	for _, ch := range pending {
		close(ch)
	}

	close(c.done)
	close(c.events)
	c.conn.Close()
}

func (c *Conn) routeResponse(frame *Frame) {
	c.mu.Lock()
	ch, ok := c.pending[frame.ID]
	delete(c.pending, frame.ID)
	c.mu.Unlock()

	if !ok {
		c.log.Debug("response for unknown request id %d", frame.ID)
		return
	}
	ch <- Response{OK: *frame.OK, Msg: frame.Msg}
}
