package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// ISOLayout is the wire format of every timestamp literal the engine emits.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Timestamp is an instant that is always held in UTC.
// The zero value means "unset".
type Timestamp struct {
	t time.Time
}

// NewTimestamp converts t to UTC.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{t: t.UTC()}
}

// ParseTimestamp parses RFC 3339 input. Inputs without an offset are rejected.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, &ValidationError{Field: "timestamp", Reason: fmt.Sprintf("invalid RFC 3339 timestamp %q", s)}
	}
	return NewTimestamp(t), nil
}

// Time returns the instant as a UTC time.Time.
func (ts Timestamp) Time() time.Time { return ts.t }

// IsZero reports whether the timestamp is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// ISO formats the instant as a UTC ISO-8601 literal with millisecond precision.
func (ts Timestamp) ISO() string { return ts.t.Format(ISOLayout) }

// String implements fmt.Stringer.
func (ts Timestamp) String() string { return ts.ISO() }

// Before reports whether ts is strictly before other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// Sub returns ts - other.
func (ts Timestamp) Sub(other Timestamp) time.Duration { return ts.t.Sub(other.t) }

// MarshalJSON encodes the timestamp as an ISO-8601 string.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.ISO())
}

// UnmarshalJSON decodes an RFC 3339 string and normalizes it to UTC.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
