package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is an ISO-8601 instant. It reads both RFC 3339 values and the
// zone-less "2006-01-02T15:04:05.999999" form found in older data files
// (interpreted as local time), and always writes RFC 3339.
type Timestamp struct {
	time.Time
}

var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Now returns the current instant truncated to microseconds.
func Now() Timestamp {
	return Timestamp{time.Now().Truncate(time.Microsecond)}
}

// TimestampPtr returns a pointer to a copy of t.
func TimestampPtr(t Timestamp) *Timestamp { return &t }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp parses s as RFC 3339 or as one of the zone-less legacy layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{v}, nil
	}
	for _, layout := range legacyLayouts {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{v}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("timestamp: unrecognized format %q", s)
}
