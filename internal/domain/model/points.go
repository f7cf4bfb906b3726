package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Points is a judge-entered score. It decodes leniently: numbers and numeric
// strings are accepted, anything else (null, "", "abc", objects) becomes 0.
type Points float64

// UnmarshalJSON never fails; malformed input yields 0.
func (p *Points) UnmarshalJSON(b []byte) error {
	*p = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*p = ParsePoints(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if f, err := strconv.ParseFloat(string(b), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*p = Points(f)
		}
	}
	return nil
}

// ParsePoints coerces free text to Points, returning 0 when it is not a finite number.
func ParsePoints(s string) Points {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Points(f)
}

// Float returns the value as float64.
func (p Points) Float() float64 { return float64(p) }
