package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Number is a float64 that unmarshals from either a JSON number or a numeric
// string. Exchange APIs in this codebase quote most decimal fields as strings.
type Number float64

// Float64 returns the underlying float64 value.
func (n Number) Float64() float64 {
	return float64(n)
}

// String returns the value formatted with the shortest representation that
// round-trips.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// UnmarshalJSON decodes quoted and unquoted numeric payloads.
func (n *Number) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse numeric string %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// MarshalJSON encodes the number as a JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}
