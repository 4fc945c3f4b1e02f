package model

import (
	"fmt"
	"strings"
)

// simTimeScaleExponent is the fixed-point scale used to represent
// simulation time textually, matching the original toolchain's
// default resolution (10^-12, i.e. picoseconds) so that a value like
// "1.5" round-trips exactly instead of drifting through float64.
const simTimeScaleExponent = 12

// simTimeScale is 10^simTimeScaleExponent.
var simTimeScale = pow10(simTimeScaleExponent)

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// SimTime is a fixed-point decimal stored as an int64 count of
// 10^-12 units. Its precision is fixed at 12 fractional digits and
// its range is limited to magnitudes below 9223372; ParseSimTime
// rejects literals that need more digits or a larger range.
type SimTime struct {
	raw int64 // value * simTimeScale
}

// ZeroSimTime is the additive identity.
var ZeroSimTime = SimTime{}

// ParseSimTime parses a decimal literal such as "1.5", "-0.002" or
// "3" into a SimTime. It returns an error if s has more fractional
// digits than the supported scale, or is not a well-formed decimal.
func ParseSimTime(s string) (SimTime, error) {
	if s == "" {
		return SimTime{}, fmt.Errorf("model: empty simulation time")
	}
	neg := false
	rest := s
	switch rest[0] {
	case '-':
		neg = true
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	}
	if rest == "" {
		return SimTime{}, fmt.Errorf("model: malformed simulation time %q", s)
	}

	intPart, fracPart, hasFrac := rest, "", false
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		intPart, fracPart, hasFrac = rest[:i], rest[i+1:], true
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isAllDigits(intPart) || (hasFrac && !isAllDigits(fracPart)) {
		return SimTime{}, fmt.Errorf("model: malformed simulation time %q", s)
	}
	if len(fracPart) > simTimeScaleExponent {
		return SimTime{}, fmt.Errorf("model: simulation time %q exceeds supported precision", s)
	}
	for len(fracPart) < simTimeScaleExponent {
		fracPart += "0"
	}

	var raw int64
	for _, c := range intPart {
		raw = raw*10 + int64(c-'0')
		if raw >= (1<<63-1)/simTimeScale {
			return SimTime{}, fmt.Errorf("model: simulation time %q out of range", s)
		}
	}
	raw *= simTimeScale
	var frac int64
	for _, c := range fracPart {
		frac = frac*10 + int64(c-'0')
	}
	raw += frac
	if neg {
		raw = -raw
	}
	return SimTime{raw: raw}, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// String renders the SimTime back to its canonical decimal form,
// trimming trailing fractional zeros (but keeping at least one digit
// before the decimal point).
func (t SimTime) String() string {
	raw := t.raw
	neg := raw < 0
	if neg {
		raw = -raw
	}
	intPart := raw / simTimeScale
	frac := raw % simTimeScale
	fracStr := fmt.Sprintf("%0*d", simTimeScaleExponent, frac)
	fracStr = strings.TrimRight(fracStr, "0")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	fmt.Fprintf(&b, "%d", intPart)
	if fracStr != "" {
		b.WriteByte('.')
		b.WriteString(fracStr)
	}
	return b.String()
}

// Compare returns -1, 0 or +1 as t is less than, equal to, or greater
// than other.
func (t SimTime) Compare(other SimTime) int {
	switch {
	case t.raw < other.raw:
		return -1
	case t.raw > other.raw:
		return 1
	default:
		return 0
	}
}
