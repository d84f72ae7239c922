package comper

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// Degree is the role of a chord tone or scale tone relative to the root of
	// a chord, independent of the absolute pitch.
	Degree int

	// DegreeIndex is the rank of a degree inside a chord type: root first,
	// then the third (or fourth for sus chords), the fifth, the sixth or
	// seventh, and then the extensions ordered from lowest to highest.
	DegreeIndex int

	// DegreeMode controls how a source degree missing from a destination chord
	// type is mapped onto it.
	DegreeMode int
)

const (
	DegreeRoot Degree = iota
	DegreeNinthFlat
	DegreeNinth
	DegreeNinthSharp
	DegreeThirdFlat
	DegreeThird
	DegreeEleventh
	DegreeEleventhSharp
	DegreeFifthFlat
	DegreeFifth
	DegreeFifthSharp
	DegreeThirteenthFlat
	DegreeSixth // sixth or thirteenth
	DegreeSeventhFlat
	DegreeSeventh
	numDegrees
)

const (
	IndexRoot DegreeIndex = iota
	IndexThirdOrFourth
	IndexFifth
	IndexSixthOrSeventh
	IndexExtension1
	IndexExtension2
	IndexExtension3
)

const (
	// AllowInversion maps a missing degree to the closest destination chord
	// tone, even if that tone lies above the source degree in the octave.
	AllowInversion DegreeMode = iota
	// NoInversion maps a missing degree to the closest destination chord tone
	// that is not above it, so the voice order is kept.
	NoInversion
)

var degreePitches = [numDegrees]int{0, 1, 2, 3, 3, 4, 5, 6, 6, 7, 8, 8, 9, 10, 11}

var degreeNaturals = [numDegrees]int{1, 9, 9, 9, 3, 3, 11, 11, 5, 5, 5, 13, 13, 7, 7}

var degreeNames = [numDegrees]string{"1", "b9", "9", "#9", "b3", "3", "11", "#11", "b5", "5", "#5", "b13", "6", "b7", "7"}

var noteNames = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

var ErrInvalidNoteName = errors.New("invalid note name")

// Degrees returns all the degrees, lowest pitch first.
func Degrees() []Degree {
	ret := make([]Degree, numDegrees)
	for i := range ret {
		ret[i] = Degree(i)
	}
	return ret
}

// Pitch returns the number of semitones from the root, 0-11.
func (d Degree) Pitch() int { return degreePitches[d] }

// Natural returns the natural interval number, e.g. 3 for both b3 and 3.
func (d Degree) Natural() int { return degreeNaturals[d] }

func (d Degree) String() string {
	if d < 0 || d >= numDegrees {
		return fmt.Sprintf("Degree(%d)", int(d))
	}
	return degreeNames[d]
}

func (i DegreeIndex) String() string {
	switch i {
	case IndexRoot:
		return "root"
	case IndexThirdOrFourth:
		return "third"
	case IndexFifth:
		return "fifth"
	case IndexSixthOrSeventh:
		return "seventh"
	}
	return fmt.Sprintf("ext%d", int(i-IndexExtension1)+1)
}

// RelativePitch returns the pitch class 0-11 of a pitch.
func RelativePitch(pitch int) int {
	return ((pitch % 12) + 12) % 12
}

// ClosestPitch returns the pitch nearest to pitch whose pitch class is
// relPitch. When two candidates are equally close, the lower one is chosen.
// The result is folded by octaves into the MIDI range.
func ClosestPitch(pitch, relPitch int) int {
	base := pitch - RelativePitch(pitch) + RelativePitch(relPitch)
	best := base
	for _, c := range [...]int{base - 12, base + 12} {
		if d, bd := abs(c-pitch), abs(best-pitch); d < bd || (d == bd && c < best) {
			best = c
		}
	}
	for best < 0 {
		best += 12
	}
	for best > 127 {
		best -= 12
	}
	return best
}

// ParseNoteName parses a note name such as "C", "F#" or "Bb" into a pitch
// class.
func ParseNoteName(s string) (int, error) {
	if len(s) == 0 {
		return 0, ErrInvalidNoteName
	}
	offsets := map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
	rel, ok := offsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, s)
	}
	for _, c := range s[1:] {
		switch c {
		case '#':
			rel++
		case 'b':
			rel--
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidNoteName, s)
		}
	}
	return RelativePitch(rel), nil
}

func NoteName(relPitch int) string { return noteNames[RelativePitch(relPitch)] }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
