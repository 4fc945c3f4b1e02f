package ioutil

import (
	"strconv"

	"github.com/mbyrenh/omnetpp-resultfiles/internal/model"
)

// ParseInt parses a base-10 signed integer, matching the original
// parseInt's all-or-nothing semantics (no partial parses, no
// surrounding whitespace).
func ParseInt(s string) (int, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// ParseInt64 parses a base-10 signed 64-bit integer (used for event
// numbers).
func ParseInt64(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDouble parses an IEEE-754 double.
func ParseDouble(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseSimTime parses a simulation-time literal.
func ParseSimTime(s string) (model.SimTime, bool) {
	v, err := model.ParseSimTime(s)
	if err != nil {
		return model.SimTime{}, false
	}
	return v, true
}
