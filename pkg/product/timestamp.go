package product

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Timestamp wraps time.Time with lenient JSON decoding. Purchase bridges
// emit expiry and purchase times either as epoch milliseconds (Google
// Play style) or as date strings (App Store receipts), sometimes quoted.
type Timestamp struct {
	time.Time
}

// At builds a Timestamp from a time.Time.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// FromMillis builds a Timestamp from epoch milliseconds.
func FromMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms)}
}

// Millis returns the timestamp as epoch milliseconds, the bridge wire format.
func (t Timestamp) Millis() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Millis())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" || s == `""` || s == "0" {
		t.Time = time.Time{}
		return nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return ErrDeserialize
	}

	// Quoted number, e.g. "1735689600000".
	if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
		t.Time = time.UnixMilli(ms)
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, str); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return ErrDeserialize
}
