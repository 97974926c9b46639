package transport

import (
	"encoding/json"
	"fmt"

	"github.com/statusbeat/statusbeat/internal/errors"
	"github.com/statusbeat/statusbeat/internal/model"
)

// Event is the closed set of server event kinds. Each kind carries its own
// typed payload; consumers dispatch with an exhaustive type switch so an
// unhandled kind is a compile-time concern, not a silent runtime drop.
type Event interface {
	eventName() string
}

// MonitorListEvent is the full-list push, keyed by string monitor id.
type MonitorListEvent struct {
	Monitors map[string]model.Monitor
}

// HeartbeatListEvent is the bulk heartbeat push for one monitor.
type HeartbeatListEvent struct {
	MonitorID model.FlexInt
	Beats     []model.Heartbeat
	History   bool
}

// ImportantHeartbeatListEvent is the bulk push of status-transition beats.
type ImportantHeartbeatListEvent struct {
	MonitorID model.FlexInt
	Beats     []model.Heartbeat
	History   bool
}

// HeartbeatEvent is a single incremental heartbeat.
type HeartbeatEvent struct {
	Beat model.Heartbeat
}

// AvgPingEvent updates a monitor's rolling average latency. AvgPing is nil
// when the server sent null, which consumers treat as "no value, skip".
type AvgPingEvent struct {
	MonitorID model.FlexInt
	AvgPing   *float64
}

// UptimePeriod discriminates which uptime window an UptimeEvent updates.
type UptimePeriod int

const (
	PeriodUnknown UptimePeriod = iota
	PeriodDay                  // wire: numeric 24
	PeriodMonth                // wire: numeric 720
	PeriodYear                 // wire: legacy string "1y"
)

func (p UptimePeriod) String() string {
	switch p {
	case PeriodDay:
		return "day"
	case PeriodMonth:
		return "month"
	case PeriodYear:
		return "year"
	default:
		return "unknown"
	}
}

// UptimeEvent updates one uptime window for one monitor.
type UptimeEvent struct {
	MonitorID model.FlexInt
	Period    UptimePeriod
	Uptime    float64
}

// InfoEvent carries server metadata.
type InfoEvent struct {
	Info model.Info
}

func (MonitorListEvent) eventName() string            { return EventMonitorList }
func (HeartbeatListEvent) eventName() string          { return EventHeartbeatList }
func (ImportantHeartbeatListEvent) eventName() string { return EventImportantHeartbeatList }
func (HeartbeatEvent) eventName() string              { return EventHeartbeat }
func (AvgPingEvent) eventName() string                { return EventAvgPing }
func (UptimeEvent) eventName() string                 { return EventUptime }
func (InfoEvent) eventName() string                   { return EventInfo }

// DecodeEvent turns a pushed frame into a typed event. Unknown event names
// return (nil, nil) so the read loop can skip them quietly. Shape errors are
// coded ErrPayload; uncoercible monitor ids are coded ErrMonitorID. Either
// way the error affects only this one event.
func DecodeEvent(name string, args []json.RawMessage) (Event, error) {
	switch name {
	case EventMonitorList:
		return decodeMonitorList(args)
	case EventHeartbeatList:
		id, beats, history, err := decodeBeatList(name, args)
		if err != nil {
			return nil, err
		}
		return HeartbeatListEvent{MonitorID: id, Beats: beats, History: history}, nil
	case EventImportantHeartbeatList:
		id, beats, history, err := decodeBeatList(name, args)
		if err != nil {
			return nil, err
		}
		return ImportantHeartbeatListEvent{MonitorID: id, Beats: beats, History: history}, nil
	case EventHeartbeat:
		return decodeHeartbeat(args)
	case EventAvgPing:
		return decodeAvgPing(args)
	case EventUptime:
		return decodeUptime(args)
	case EventInfo:
		return decodeInfo(args)
	default:
		return nil, nil
	}
}

func shapeError(event string, cause error) error {
	return errors.WrapWithCode(cause, errors.ErrPayload,
		fmt.Sprintf("Malformed %q event payload", event),
		"The event was dropped; the stream continues")
}

func idError(event string, raw json.RawMessage, cause error) error {
	return errors.WrapWithCode(cause, errors.ErrMonitorID,
		fmt.Sprintf("Event %q references monitor id %s which is not an integer", event, string(raw)),
		"The event was dropped; the stream continues")
}

func decodeMonitorList(args []json.RawMessage) (Event, error) {
	if len(args) < 1 {
		return nil, shapeError(EventMonitorList, fmt.Errorf("want 1 arg, got %d", len(args)))
	}
	var monitors map[string]model.Monitor
	if err := json.Unmarshal(args[0], &monitors); err != nil {
		return nil, shapeError(EventMonitorList, err)
	}
	return MonitorListEvent{Monitors: monitors}, nil
}

// decodeBeatList handles the payload forms the server uses for bulk
// heartbeat pushes: a plain heartbeat array, a nested [array, isHistory]
// pair, or a flat third isHistory arg.
func decodeBeatList(event string, args []json.RawMessage) (model.FlexInt, []model.Heartbeat, bool, error) {
	if len(args) < 2 {
		return 0, nil, false, shapeError(event, fmt.Errorf("want 2 args, got %d", len(args)))
	}

	id, err := model.ParseFlexInt(args[0])
	if err != nil {
		return 0, nil, false, idError(event, args[0], err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(args[1], &elems); err != nil {
		return 0, nil, false, shapeError(event, err)
	}

	payload := args[1]
	history := false
	if len(args) > 2 {
		if err := json.Unmarshal(args[2], &history); err != nil {
			return 0, nil, false, shapeError(event, err)
		}
	}
	if len(elems) > 0 && len(elems[0]) > 0 && elems[0][0] == '[' {
		// Tagged [array, isHistory] form.
		payload = elems[0]
		if len(elems) > 1 {
			if err := json.Unmarshal(elems[1], &history); err != nil {
				return 0, nil, false, shapeError(event, err)
			}
		}
	}

	var beats []model.Heartbeat
	if err := json.Unmarshal(payload, &beats); err != nil {
		return 0, nil, false, shapeError(event, err)
	}
	return id, beats, history, nil
}

func decodeHeartbeat(args []json.RawMessage) (Event, error) {
	if len(args) < 1 {
		return nil, shapeError(EventHeartbeat, fmt.Errorf("want 1 arg, got %d", len(args)))
	}
	// Probe the id separately so an uncoercible monitor id is classified as
	// an id error, not a generic payload error.
	var probe struct {
		MonitorID json.RawMessage `json:"monitorID"`
	}
	if err := json.Unmarshal(args[0], &probe); err != nil {
		return nil, shapeError(EventHeartbeat, err)
	}
	if len(probe.MonitorID) > 0 {
		if _, err := model.ParseFlexInt(probe.MonitorID); err != nil {
			return nil, idError(EventHeartbeat, probe.MonitorID, err)
		}
	}

	var beat model.Heartbeat
	if err := json.Unmarshal(args[0], &beat); err != nil {
		return nil, shapeError(EventHeartbeat, err)
	}
	return HeartbeatEvent{Beat: beat}, nil
}

func decodeAvgPing(args []json.RawMessage) (Event, error) {
	if len(args) < 2 {
		return nil, shapeError(EventAvgPing, fmt.Errorf("want 2 args, got %d", len(args)))
	}
	id, err := model.ParseFlexInt(args[0])
	if err != nil {
		return nil, idError(EventAvgPing, args[0], err)
	}
	var avg *float64
	if err := json.Unmarshal(args[1], &avg); err != nil {
		return nil, shapeError(EventAvgPing, err)
	}
	return AvgPingEvent{MonitorID: id, AvgPing: avg}, nil
}

func decodeUptime(args []json.RawMessage) (Event, error) {
	if len(args) < 3 {
		return nil, shapeError(EventUptime, fmt.Errorf("want 3 args, got %d", len(args)))
	}
	id, err := model.ParseFlexInt(args[0])
	if err != nil {
		return nil, idError(EventUptime, args[0], err)
	}

	period := PeriodUnknown
	var num int
	if err := json.Unmarshal(args[1], &num); err == nil {
		switch num {
		case 24:
			period = PeriodDay
		case 720:
			period = PeriodMonth
		}
	} else {
		var s string
		if err := json.Unmarshal(args[1], &s); err != nil {
			return nil, shapeError(EventUptime, err)
		}
		if s == "1y" {
			period = PeriodYear
		}
	}

	var uptime float64
	if err := json.Unmarshal(args[2], &uptime); err != nil {
		return nil, shapeError(EventUptime, err)
	}
	return UptimeEvent{MonitorID: id, Period: period, Uptime: uptime}, nil
}

func decodeInfo(args []json.RawMessage) (Event, error) {
	if len(args) < 1 {
		return nil, shapeError(EventInfo, fmt.Errorf("want 1 arg, got %d", len(args)))
	}
	var info model.Info
	if err := json.Unmarshal(args[0], &info); err != nil {
		return nil, shapeError(EventInfo, err)
	}
	return InfoEvent{Info: info}, nil
}
