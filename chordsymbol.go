package comper

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type (
	// ChordSymbol is a harmonic label such as "Cm7" or "F7/A". Root and Bass
	// are pitch classes 0-11; Bass equals Root unless a slash bass is given.
	ChordSymbol struct {
		Root int
		Bass int
		Type *ChordType
	}

	// Feature is a rendering hint attached to a chord symbol in the leadsheet.
	Feature int

	// RenderingInfo is the set of rendering features of one chord symbol.
	RenderingInfo struct {
		Features []Feature
	}

	// ExtChordSymbol is a chord symbol as written in the leadsheet: the chord
	// itself, its rendering features and an optional alternate chord used in
	// song parts whose marker matches.
	ExtChordSymbol struct {
		ChordSymbol
		Rendering RenderingInfo
		Alternate *AltChordSymbol
	}

	// AltChordSymbol replaces its owner in song parts with one of Markers. A
	// nil Symbol is the void alternate: the chord is skipped in those parts.
	AltChordSymbol struct {
		Symbol  *ExtChordSymbol
		Markers []string
	}

	// ChordItem is a chord symbol placed on the leadsheet.
	ChordItem struct {
		Position Position
		Symbol   ExtChordSymbol
	}
)

const (
	Accent Feature = iota
	AccentStronger
	Crash
	NoCrash
	Hold
	Shot
	ExtendedHoldShot
	PedalBass
)

var featureNames = []string{"accent", "accent-stronger", "crash", "no-crash", "hold", "shot", "extended-hold-shot", "pedal-bass"}

var ErrUnknownChordSymbol = errors.New("unknown chord symbol")

// ParseChordSymbol parses a chord symbol such as "Bbm7", "C7#9" or "F/A".
func ParseChordSymbol(s string) (ChordSymbol, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ChordSymbol{}, fmt.Errorf("%w: empty", ErrUnknownChordSymbol)
	}
	n := 1
	for n < len(s) && (s[n] == '#' || s[n] == 'b') {
		n++
	}
	root, err := ParseNoteName(s[:n])
	if err != nil {
		return ChordSymbol{}, fmt.Errorf("%w: %q", ErrUnknownChordSymbol, s)
	}
	suffix, bass := s[n:], root
	if i := strings.LastIndexByte(suffix, '/'); i >= 0 {
		if b, err := ParseNoteName(suffix[i+1:]); err == nil {
			suffix, bass = suffix[:i], b
		}
	}
	ct, ok := LookupChordType(suffix)
	if !ok {
		return ChordSymbol{}, fmt.Errorf("%w: %q", ErrUnknownChordSymbol, s)
	}
	return ChordSymbol{Root: root, Bass: bass, Type: ct}, nil
}

// MustParseChordSymbol is like ParseChordSymbol but panics on error. It is
// meant for chord symbols known at compile time.
func MustParseChordSymbol(s string) ChordSymbol {
	cs, err := ParseChordSymbol(s)
	if err != nil {
		panic(err)
	}
	return cs
}

// RelativePitch returns the pitch class of degree d of this chord.
func (c ChordSymbol) RelativePitch(d Degree) int {
	return RelativePitch(c.Root + d.Pitch())
}

func (c ChordSymbol) BassRelativePitch() int { return c.Bass }

func (c ChordSymbol) HasSlashBass() bool { return c.Bass != c.Root }

// Degree returns the chord tone of this chord sounding at the absolute pitch,
// or the most probable scale degree if the pitch is not a chord tone.
func (c ChordSymbol) Degree(pitch int) Degree {
	return c.Type.MostProbableDegree(pitch - c.Root)
}

func (c ChordSymbol) Equal(o ChordSymbol) bool {
	return c.Root == o.Root && c.Bass == o.Bass && c.Type == o.Type
}

// SameType reports whether both chords have the same chord type.
func (c ChordSymbol) SameType(o ChordSymbol) bool { return c.Type == o.Type }

func (c ChordSymbol) String() string {
	if c.Type == nil {
		return ""
	}
	ret := NoteName(c.Root) + c.Type.Name
	if c.HasSlashBass() {
		ret += "/" + NoteName(c.Bass)
	}
	return ret
}

// ParseFeature parses one of the feature names used in song files.
func ParseFeature(s string) (Feature, error) {
	if i := slices.Index(featureNames, strings.ToLower(s)); i >= 0 {
		return Feature(i), nil
	}
	return 0, fmt.Errorf("unknown rendering feature %q", s)
}

func (f Feature) String() string {
	if f < 0 || int(f) >= len(featureNames) {
		return fmt.Sprintf("Feature(%d)", int(f))
	}
	return featureNames[f]
}

func (r RenderingInfo) Has(f Feature) bool { return slices.Contains(r.Features, f) }

// HasAccent reports whether the chord is accented, strongly or not.
func (r RenderingInfo) HasAccent() bool { return r.Has(Accent) || r.Has(AccentStronger) }

func (r RenderingInfo) HasHoldOrShot() bool {
	return r.Has(Hold) || r.Has(Shot) || r.Has(ExtendedHoldShot)
}

func (r RenderingInfo) Copy() RenderingInfo {
	return RenderingInfo{Features: slices.Clone(r.Features)}
}

// Copy makes a deep copy of the chord symbol, including its alternate.
func (e ExtChordSymbol) Copy() ExtChordSymbol {
	ret := ExtChordSymbol{ChordSymbol: e.ChordSymbol, Rendering: e.Rendering.Copy()}
	if e.Alternate != nil {
		alt := &AltChordSymbol{Markers: slices.Clone(e.Alternate.Markers)}
		if e.Alternate.Symbol != nil {
			s := e.Alternate.Symbol.Copy()
			alt.Symbol = &s
		}
		ret.Alternate = alt
	}
	return ret
}

// Resolve returns the chord symbol to use in a song part with the given
// marker. The second return value is false when a void alternate applies and
// the chord must be skipped.
func (e ExtChordSymbol) Resolve(marker string) (ExtChordSymbol, bool) {
	if e.Alternate == nil || marker == "" || !slices.Contains(e.Alternate.Markers, marker) {
		return e, true
	}
	if e.Alternate.Symbol == nil {
		return ExtChordSymbol{}, false
	}
	return *e.Alternate.Symbol, true
}

// StrippedForStart returns a copy suitable for repeating the chord at the
// start of a chord sequence: the alternate and all position-specific
// rendering features are removed, only PedalBass is kept.
func (e ExtChordSymbol) StrippedForStart() ExtChordSymbol {
	ret := ExtChordSymbol{ChordSymbol: e.ChordSymbol}
	if e.Rendering.Has(PedalBass) {
		ret.Rendering.Features = []Feature{PedalBass}
	}
	return ret
}

func (e ExtChordSymbol) String() string { return e.ChordSymbol.String() }

func (c ChordItem) Copy() ChordItem {
	return ChordItem{Position: c.Position, Symbol: c.Symbol.Copy()}
}

func (c ChordItem) String() string {
	return c.Symbol.String() + c.Position.String()
}
