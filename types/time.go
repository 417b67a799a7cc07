package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// Time wraps time.Time and unmarshals from millisecond epoch timestamps,
// quoted or unquoted.
type Time time.Time

// Time returns the underlying time.Time value.
func (t Time) Time() time.Time {
	return time.Time(t)
}

// UnmarshalJSON decodes a millisecond epoch timestamp.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = Time(time.Time{})
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*t = Time(time.UnixMilli(ms).UTC())
	return nil
}

// MarshalJSON encodes the timestamp as millisecond epoch.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UnixMilli())
}
