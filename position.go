package comper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// Position is a location on the bar/beat grid of a song. Bar is zero based
	// and Beat is a fractional natural beat within the bar.
	Position struct {
		Bar  int
		Beat float64
	}

	// TimeSignature is a musical meter, e.g. 4/4 or 6/8. The number of
	// natural beats (quarter notes) in a bar is given by Beats.
	TimeSignature struct {
		Upper int
		Lower int
	}

	// IntRange is an inclusive range of integers. The zero value is the empty
	// range; use NewIntRange to construct a non-empty one.
	IntRange struct {
		from, to int
		valid    bool
	}

	// PositionConverter converts bar/beat positions to beats. Both
	// GenerationContext and TimeSignature implement it.
	PositionConverter interface {
		PositionToBeat(pos Position) float64
	}

	// FloatRange is a range of beat positions [From, To]. The zero value is
	// the empty range; use NewFloatRange to construct a non-empty one.
	FloatRange struct {
		from, to float64
		valid    bool
	}
)

// Epsilon is the tolerance used when comparing beat positions.
const Epsilon = 1e-6

var FourFour = TimeSignature{Upper: 4, Lower: 4}

// Compare returns -1, 0 or 1 if p is before, equal to or after o.
func (p Position) Compare(o Position) int {
	switch {
	case p.Bar < o.Bar:
		return -1
	case p.Bar > o.Bar:
		return 1
	case p.Beat < o.Beat:
		return -1
	case p.Beat > o.Beat:
		return 1
	}
	return 0
}

func (p Position) Before(o Position) bool { return p.Compare(o) < 0 }

// InBeats returns the position in natural beats from bar 0, assuming the whole
// song uses the time signature ts.
func (p Position) InBeats(ts TimeSignature) float64 {
	return float64(p.Bar)*ts.Beats() + p.Beat
}

func (p Position) String() string {
	return fmt.Sprintf("[%d:%s]", p.Bar, strconv.FormatFloat(p.Beat, 'f', -1, 64))
}

// ParseTimeSignature parses strings like "4/4" or "6/8".
func ParseTimeSignature(s string) (TimeSignature, error) {
	upper, lower, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return TimeSignature{}, fmt.Errorf("invalid time signature %q", s)
	}
	u, err := strconv.Atoi(upper)
	if err != nil || u <= 0 {
		return TimeSignature{}, fmt.Errorf("invalid time signature %q", s)
	}
	l, err := strconv.Atoi(lower)
	if err != nil || (l != 2 && l != 4 && l != 8 && l != 16) {
		return TimeSignature{}, fmt.Errorf("invalid time signature %q", s)
	}
	return TimeSignature{Upper: u, Lower: l}, nil
}

// Beats returns the number of natural beats (quarter notes) in a bar.
func (t TimeSignature) Beats() float64 {
	if t.Lower == 0 {
		return 0
	}
	return float64(t.Upper) * 4 / float64(t.Lower)
}

func (t TimeSignature) String() string { return fmt.Sprintf("%d/%d", t.Upper, t.Lower) }

func (t TimeSignature) MarshalYAML() (any, error) { return t.String(), nil }

func (t *TimeSignature) UnmarshalYAML(value *yaml.Node) error {
	ts, err := ParseTimeSignature(value.Value)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

// NewIntRange returns the range [from, to]. It panics if to < from.
func NewIntRange(from, to int) IntRange {
	if to < from {
		panic(fmt.Sprintf("comper: invalid int range [%d, %d]", from, to))
	}
	return IntRange{from: from, to: to, valid: true}
}

func (r IntRange) IsEmpty() bool { return !r.valid }
func (r IntRange) From() int     { return r.from }
func (r IntRange) To() int       { return r.to }

// Size returns the number of integers in the range.
func (r IntRange) Size() int {
	if !r.valid {
		return 0
	}
	return r.to - r.from + 1
}

func (r IntRange) Contains(i int) bool { return r.valid && i >= r.from && i <= r.to }

// ContainsRange reports whether o is fully inside r. The empty range is
// contained in every range.
func (r IntRange) ContainsRange(o IntRange) bool {
	if !o.valid {
		return true
	}
	return r.valid && o.from >= r.from && o.to <= r.to
}

// Intersect returns the overlap of r and o, possibly empty.
func (r IntRange) Intersect(o IntRange) IntRange {
	if !r.valid || !o.valid {
		return IntRange{}
	}
	from, to := max(r.from, o.from), min(r.to, o.to)
	if to < from {
		return IntRange{}
	}
	return IntRange{from: from, to: to, valid: true}
}

func (r IntRange) String() string {
	if !r.valid {
		return "[]"
	}
	return fmt.Sprintf("[%d,%d]", r.from, r.to)
}

// NewFloatRange returns the range [from, to]. It panics if to < from.
func NewFloatRange(from, to float64) FloatRange {
	if to < from || math.IsNaN(from) || math.IsNaN(to) {
		panic(fmt.Sprintf("comper: invalid float range [%v, %v]", from, to))
	}
	return FloatRange{from: from, to: to, valid: true}
}

func (r FloatRange) IsEmpty() bool { return !r.valid }
func (r FloatRange) From() float64 { return r.from }
func (r FloatRange) To() float64   { return r.to }

func (r FloatRange) Size() float64 {
	if !r.valid {
		return 0
	}
	return r.to - r.from
}

// Contains reports whether pos is in the range. If excludeUpper is true, the
// range is treated as [From, To).
func (r FloatRange) Contains(pos float64, excludeUpper bool) bool {
	if !r.valid || pos < r.from {
		return false
	}
	if excludeUpper {
		return pos < r.to
	}
	return pos <= r.to
}

func (r FloatRange) Intersect(o FloatRange) FloatRange {
	if !r.valid || !o.valid {
		return FloatRange{}
	}
	from, to := max(r.from, o.from), min(r.to, o.to)
	if to < from {
		return FloatRange{}
	}
	return FloatRange{from: from, to: to, valid: true}
}

func (r FloatRange) String() string {
	if !r.valid {
		return "[]"
	}
	return fmt.Sprintf("[%s,%s]", strconv.FormatFloat(r.from, 'f', -1, 64), strconv.FormatFloat(r.to, 'f', -1, 64))
}

// PositionToBeat returns pos.InBeats(t), so that a single time signature can
// be used where a position converter is expected.
func (t TimeSignature) PositionToBeat(pos Position) float64 { return pos.InBeats(t) }
