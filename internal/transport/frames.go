// Package transport implements the event channel to the monitoring server:
// newline-delimited JSON frames over TCP carrying server-pushed events and
// client-issued request/response pairs.
package transport

import "encoding/json"

// Wire Protocol Reference
//
// Every frame is one JSON object on one line. Three frame kinds share the
// Frame struct; the populated fields decide the kind.
//
// Server push (event):
//
//   Event                     Args
//   ──────────────────────    ─────────────────────────────────────────────
//   monitorList               [ {"<id>": Monitor, ...} ]
//   heartbeatList             [ monitorID, [Heartbeat, ...] ]
//                             [ monitorID, [Heartbeat, ...], isHistory ]
//                             [ monitorID, [[Heartbeat, ...], isHistory] ]
//   importantHeartbeatList    same shapes as heartbeatList
//   heartbeat                 [ Heartbeat ]
//   avgPing                   [ monitorID, number|null ]
//   uptime                    [ monitorID, 24|720|"1y", ratio ]
//   info                      [ Info ]
//
// Client request:  {"id": n, "action": <name>, "params": {...}}
// Server response: {"id": n, "ok": bool, "msg": "..."}
//
//   Action             Params
//   ───────────────    ─────────────────────────────
//   login              {username, password}
//   getMonitorList     {}
//   getMonitorBeats    {monitorID, period}
//
// Monitor ids appear as numbers or numeric strings depending on server
// version; both are accepted everywhere an id is read.

// Event names pushed by the server.
const (
	EventMonitorList            = "monitorList"
	EventHeartbeatList          = "heartbeatList"
	EventImportantHeartbeatList = "importantHeartbeatList"
	EventHeartbeat              = "heartbeat"
	EventAvgPing                = "avgPing"
	EventUptime                 = "uptime"
	EventInfo                   = "info"
)

// Request actions issued by the client.
const (
	ActionLogin           = "login"
	ActionGetMonitorList  = "getMonitorList"
	ActionGetMonitorBeats = "getMonitorBeats"
)

// Frame is the on-wire representation of every message.
type Frame struct {
	// Push fields
	Event string            `json:"event,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`

	// Request fields
	ID     int             `json:"id,omitempty"`
	Action string          `json:"action,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response fields
	OK  *bool  `json:"ok,omitempty"`
	Msg string `json:"msg,omitempty"`
}

// IsPush reports whether the frame is a server-pushed event.
func (f *Frame) IsPush() bool { return f.Event != "" }

// IsRequest reports whether the frame is a client request.
func (f *Frame) IsRequest() bool { return f.ID != 0 && f.Action != "" }

// IsResponse reports whether the frame is a response to a request.
func (f *Frame) IsResponse() bool { return f.ID != 0 && f.OK != nil }

// Response is the acknowledgement half of a request/response pair.
type Response struct {
	OK  bool
	Msg string
}

// LoginParams carries credentials for the login action.
type LoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// BeatsParams selects the monitor and window for getMonitorBeats.
type BeatsParams struct {
	MonitorID int64 `json:"monitorID"`
	Period    int   `json:"period,omitempty"`
}
