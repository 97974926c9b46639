package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The server is loose about scalar encodings: monitor ids arrive as numbers
// or numeric strings, booleans as true/false or 0/1, and timestamps as
// datetime strings or unix milliseconds depending on server version. The
// Flex* types normalize all of these at the JSON boundary so the rest of the
// core only ever sees Go-native values.

// FlexInt is an int64 that unmarshals from a JSON number or a numeric string.
type FlexInt int64

// Int64 returns the underlying value.
func (f FlexInt) Int64() int64 { return int64(f) }

func (f FlexInt) String() string { return strconv.FormatInt(int64(f), 10) }

// ParseFlexInt coerces an id that may be a number or a numeric string.
func ParseFlexInt(raw json.RawMessage) (FlexInt, error) {
	var f FlexInt
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Servers occasionally send ids as floats ("3.0")
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || fl != float64(int64(fl)) {
			return fmt.Errorf("cannot coerce %q to integer", s)
		}
		n = int64(fl)
	}
	*f = FlexInt(n)
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(f), 10)), nil
}

// FlexBool is a bool that unmarshals from JSON true/false or 0/1.
type FlexBool bool

// Bool returns the underlying value.
func (f FlexBool) Bool() bool { return bool(f) }

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch s {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("cannot coerce %q to bool", s)
	}
	return nil
}

func (f FlexBool) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// heartbeatTimeLayouts are the datetime string forms seen in the wild,
// tried in order.
var heartbeatTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
}

// FlexTime is a time.Time that unmarshals from a datetime string or a unix
// millisecond number. String timestamps without a zone are taken as UTC.
type FlexTime struct {
	t time.Time
}

// NewFlexTime wraps a time.Time.
func NewFlexTime(t time.Time) FlexTime { return FlexTime{t: t} }

// Time returns the underlying time.
func (f FlexTime) Time() time.Time { return f.t }

// IsZero reports whether the timestamp is unset.
func (f FlexTime) IsZero() bool { return f.t.IsZero() }

// Before reports whether f is before other.
func (f FlexTime) Before(other FlexTime) bool { return f.t.Before(other.t) }

// After reports whether f is after other.
func (f FlexTime) After(other FlexTime) bool { return f.t.After(other.t) }

func (f *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		f.t = time.Time{}
		return nil
	}

	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		// Bare layouts carry no zone; time.Parse takes them as UTC, which
		// matches what the server means.
		for _, layout := range heartbeatTimeLayouts {
			if t, err := time.Parse(layout, str); err == nil {
				f.t = t.UTC()
				return nil
			}
		}
		return fmt.Errorf("cannot parse timestamp %q", str)
	}

	// Numeric: unix milliseconds.
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("cannot parse timestamp %s", s)
	}
	f.t = time.UnixMilli(ms).UTC()
	return nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.t.IsZero() {
		return []byte(`null`), nil
	}
	return json.Marshal(f.t.UTC().Format(time.RFC3339Nano))
}
