package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DetectionRecord is the latest observation reported by the counter camera.
type DetectionRecord struct {
	Timestamp   Timestamp `json:"timestamp"`
	ObjectCount int64     `json:"object_count"`
	Labels      []string  `json:"labels"`
}

// PrimaryLabel returns the first label, or "" when nothing was detected.
func (d DetectionRecord) PrimaryLabel() string {
	if len(d.Labels) == 0 {
		return ""
	}
	return d.Labels[0]
}

// Equal reports whether two records carry the same timestamp, count and labels.
func (d DetectionRecord) Equal(o DetectionRecord) bool {
	if d.Timestamp != o.Timestamp || d.ObjectCount != o.ObjectCount || len(d.Labels) != len(o.Labels) {
		return false
	}
	for i := range d.Labels {
		if d.Labels[i] != o.Labels[i] {
			return false
		}
	}
	return true
}

// MarshalJSON keeps labels an array even when empty.
func (d DetectionRecord) MarshalJSON() ([]byte, error) {
	type wire DetectionRecord
	w := wire(d)
	if w.Labels == nil {
		w.Labels = []string{}
	}
	return json.Marshal(w)
}

// Timestamp is an opaque producer-supplied value. It holds the compact JSON text
// of a string or number so it round-trips unchanged and stays comparable.
type Timestamp struct {
	raw string
}

// StringTimestamp builds a Timestamp from a plain string value.
func StringTimestamp(s string) Timestamp {
	b, _ := json.Marshal(s)
	return Timestamp{raw: string(b)}
}

// ParseTimestamp accepts the raw JSON of a string or number.
func ParseTimestamp(raw json.RawMessage) (Timestamp, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Timestamp{}, fmt.Errorf("timestamp is null")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Timestamp{}, err
		}
		return StringTimestamp(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return Timestamp{}, err
		}
		return Timestamp{raw: n.String()}, nil
	default:
		return Timestamp{}, fmt.Errorf("timestamp must be a string or number")
	}
}

// IsZero reports whether the timestamp was never set.
func (t Timestamp) IsZero() bool { return t.raw == "" }

// String returns the value as text; string timestamps are unquoted.
func (t Timestamp) String() string {
	if strings.HasPrefix(t.raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(t.raw), &s); err == nil {
			return s
		}
	}
	return t.raw
}

// MarshalJSON writes the stored JSON text, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.raw == "" {
		return []byte("null"), nil
	}
	return []byte(t.raw), nil
}

// UnmarshalJSON accepts a JSON string or number.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	parsed, err := ParseTimestamp(b)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ConfirmationRecord is an operator's acknowledgement of a detection.
type ConfirmationRecord struct {
	Product     string    `json:"product" validate:"required"`
	Quantity    float64   `json:"quantity" validate:"gte=0"`
	Time        string    `json:"time" validate:"required"`
	Initials    string    `json:"initials" validate:"required"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Frame is the serialized form shared by replays and live broadcasts.
func (d DetectionRecord) Frame() ([]byte, error) {
	return json.Marshal(d)
}
