// Package testing provides an in-process fake monitoring server for
// exercising the transport, connection manager, and reconciler without a
// real server.
package testing

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"

	"github.com/statusbeat/statusbeat/internal/transport"
)

// RecordedRequest is one action frame the fake server received.
type RecordedRequest struct {
	Action string
	Params json.RawMessage
}

// FakeServer speaks the wire protocol on a loopback listener. Tests
// configure credentials and canned event pushes, then assert on the
// requests the client issued.
type FakeServer struct {
	listener net.Listener

	mu        sync.Mutex
	username  string
	password  string
	rejectMsg string // when set, login always fails with this message
	conns     []net.Conn
	requests  []RecordedRequest
	onRequest map[string]func() // optional hooks fired after acking an action

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewFakeServer starts a fake server on a random loopback port accepting
// the given credentials.
func NewFakeServer(username, password string) (*FakeServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &FakeServer{
		listener:  ln,
		username:  username,
		password:  password,
		onRequest: make(map[string]func()),
		quit:      make(chan struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the host:port the fake server listens on.
func (s *FakeServer) Addr() string {
	return s.listener.Addr().String()
}

// RejectLogins makes every subsequent login fail with msg.
func (s *FakeServer) RejectLogins(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectMsg = msg
}

// OnRequest registers a hook invoked after the server acknowledges the
// given action. Useful for pushing events in response to a fetch.
func (s *FakeServer) OnRequest(action string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRequest[action] = fn
}

// Requests returns a copy of all recorded requests.
func (s *FakeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsFor returns the recorded requests matching one action.
func (s *FakeServer) RequestsFor(action string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

// Push sends an event frame to every live connection. Args are marshaled
// in order into the frame's args array.
func (s *FakeServer) Push(event string, args ...interface{}) error {
	rawArgs := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		rawArgs = append(rawArgs, data)
	}
	frame := transport.Frame{Event: event, Args: rawArgs}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Write(data) //nolint:errcheck // Dead conns are reaped by their read loops
	}
	return nil
}

// PushRaw writes a raw line to every live connection, for malformed-frame
// tests.
func (s *FakeServer) PushRaw(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Write(append([]byte(line), '\n')) //nolint:errcheck // same as Push
	}
}

// DropConnections abruptly closes every live connection, simulating an
// unexpected transport drop (not a local, intentional disconnect).
func (s *FakeServer) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close() //nolint:errcheck // Simulated drop
	}
	s.conns = nil
}

// ConnectionCount returns the number of live connections.
func (s *FakeServer) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops the fake server and closes all connections.
func (s *FakeServer) Close() {
	close(s.quit)
	s.listener.Close() //nolint:errcheck // Shutdown
	s.DropConnections()
	s.wg.Wait()
}

func (s *FakeServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				continue
			}
		}

		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *FakeServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.removeConn(conn)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var frame transport.Frame
		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			continue
		}
		if !frame.IsRequest() {
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{Action: frame.Action, Params: frame.Params})
		hook := s.onRequest[frame.Action]
		s.mu.Unlock()

		ok, msg := s.handleAction(&frame)
		resp := transport.Frame{ID: frame.ID, OK: &ok, Msg: msg}
		if err := encoder.Encode(resp); err != nil {
			return
		}

		if ok && hook != nil {
			hook()
		}
	}
}

func (s *FakeServer) handleAction(frame *transport.Frame) (bool, string) {
	switch frame.Action {
	case transport.ActionLogin:
		var params transport.LoginParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			return false, "malformed login"
		}

		s.mu.Lock()
		reject := s.rejectMsg
		user, pass := s.username, s.password
		s.mu.Unlock()

		if reject != "" {
			return false, reject
		}
		if params.Username != user || params.Password != pass {
			return false, "Incorrect username or password"
		}
		return true, ""
	case transport.ActionGetMonitorList, transport.ActionGetMonitorBeats:
		return true, ""
	default:
		return false, "unknown action"
	}
}

func (s *FakeServer) removeConn(conn net.Conn) {
	conn.Close() //nolint:errcheck // Cleanup
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.conns {
		if c == conn {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			break
		}
	}
}
