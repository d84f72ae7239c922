package comper

import (
	"fmt"
	"slices"
)

type (
	// ChordType is the quality of a chord independent of its root, e.g. "m7"
	// or "13". Degrees are kept in DegreeIndex order.
	ChordType struct {
		Name    string
		Family  Family
		degrees []Degree
		indexes []DegreeIndex
	}

	Family int
)

const (
	FamilyMajor Family = iota
	FamilySeventh
	FamilyMinor
	FamilyDiminished
	FamilySus
)

var chordTypes = map[string]*ChordType{}

// suffix aliases accepted by ParseChordSymbol
var chordTypeAliases = map[string]string{
	"M": "", "maj": "", "min": "m", "-": "m", "mi": "m",
	"M7": "maj7", "ma7": "maj7", "Δ": "maj7", "Δ7": "maj7", "j7": "maj7",
	"M9": "maj9", "Δ9": "maj9",
	"-7": "m7", "min7": "m7", "mi7": "m7",
	"-6": "m6", "-9": "m9", "min9": "m9",
	"ø": "m7b5", "ø7": "m7b5", "m7-5": "m7b5", "-7b5": "m7b5",
	"o": "dim", "°": "dim", "o7": "dim7", "°7": "dim7",
	"aug": "+", "#5": "+",
	"sus4": "sus", "7sus4": "7sus", "9sus4": "9sus",
	"mM7": "mmaj7", "m(maj7)": "mmaj7", "-maj7": "mmaj7",
	"6/9": "69", "m6/9": "m69",
	"7+": "7#5", "7-5": "7b5", "7-9": "7b9", "7+9": "7#9",
}

func init() {
	d := func(ds ...Degree) []Degree { return ds }
	add := func(name string, f Family, degrees []Degree) {
		chordTypes[name] = newChordType(name, f, degrees)
	}
	add("", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth))
	add("6", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSixth))
	add("69", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSixth, DegreeNinth))
	add("add9", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeNinth))
	add("maj7", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventh))
	add("maj9", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventh, DegreeNinth))
	add("maj7#11", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventh, DegreeEleventhSharp))
	add("maj13", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventh, DegreeNinth, DegreeSixth))
	add("+", FamilyMajor, d(DegreeRoot, DegreeThird, DegreeFifthSharp))
	add("7", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat))
	add("9", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat, DegreeNinth))
	add("13", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat, DegreeNinth, DegreeSixth))
	add("7b9", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat, DegreeNinthFlat))
	add("7#9", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat, DegreeNinthSharp))
	add("7#11", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat, DegreeEleventhSharp))
	add("7b5", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifthFlat, DegreeSeventhFlat))
	add("7#5", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifthSharp, DegreeSeventhFlat))
	add("7b13", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat, DegreeThirteenthFlat))
	add("13b9", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeFifth, DegreeSeventhFlat, DegreeNinthFlat, DegreeSixth))
	add("7alt", FamilySeventh, d(DegreeRoot, DegreeThird, DegreeSeventhFlat, DegreeNinthSharp, DegreeThirteenthFlat))
	add("sus", FamilySus, d(DegreeRoot, DegreeEleventh, DegreeFifth))
	add("7sus", FamilySus, d(DegreeRoot, DegreeEleventh, DegreeFifth, DegreeSeventhFlat))
	add("9sus", FamilySus, d(DegreeRoot, DegreeEleventh, DegreeFifth, DegreeSeventhFlat, DegreeNinth))
	add("m", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth))
	add("m6", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth, DegreeSixth))
	add("m69", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth, DegreeSixth, DegreeNinth))
	add("m7", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth, DegreeSeventhFlat))
	add("m9", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth, DegreeSeventhFlat, DegreeNinth))
	add("m11", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth, DegreeSeventhFlat, DegreeNinth, DegreeEleventh))
	add("m13", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth, DegreeSeventhFlat, DegreeNinth, DegreeSixth))
	add("mmaj7", FamilyMinor, d(DegreeRoot, DegreeThirdFlat, DegreeFifth, DegreeSeventh))
	add("m7b5", FamilyDiminished, d(DegreeRoot, DegreeThirdFlat, DegreeFifthFlat, DegreeSeventhFlat))
	add("dim", FamilyDiminished, d(DegreeRoot, DegreeThirdFlat, DegreeFifthFlat))
	add("dim7", FamilyDiminished, d(DegreeRoot, DegreeThirdFlat, DegreeFifthFlat, DegreeSixth))
}

func newChordType(name string, f Family, degrees []Degree) *ChordType {
	ct := &ChordType{Name: name, Family: f}
	has := func(d Degree) bool { return slices.Contains(degrees, d) }
	hasSeventh := has(DegreeSeventh) || has(DegreeSeventhFlat)
	hasThird := has(DegreeThird) || has(DegreeThirdFlat)
	var core [4]Degree
	var coreSet [4]bool
	var ext []Degree
	for _, d := range degrees {
		var idx DegreeIndex
		switch d {
		case DegreeRoot:
			idx = IndexRoot
		case DegreeThird, DegreeThirdFlat:
			idx = IndexThirdOrFourth
		case DegreeFifth, DegreeFifthFlat, DegreeFifthSharp:
			idx = IndexFifth
		case DegreeSeventh, DegreeSeventhFlat:
			idx = IndexSixthOrSeventh
		case DegreeEleventh:
			if hasThird {
				ext = append(ext, d)
				continue
			}
			idx = IndexThirdOrFourth
		case DegreeSixth:
			if hasSeventh {
				ext = append(ext, d)
				continue
			}
			idx = IndexSixthOrSeventh
		default:
			ext = append(ext, d)
			continue
		}
		core[idx], coreSet[idx] = d, true
	}
	for i := range core {
		if coreSet[i] {
			ct.degrees = append(ct.degrees, core[i])
			ct.indexes = append(ct.indexes, DegreeIndex(i))
		}
	}
	// extensions are ranked 9ths, then 11ths, then 13ths
	slices.SortStableFunc(ext, func(a, b Degree) int { return a.Natural() - b.Natural() })
	for i, d := range ext {
		ct.degrees = append(ct.degrees, d)
		ct.indexes = append(ct.indexes, IndexExtension1+DegreeIndex(i))
	}
	return ct
}

// LookupChordType returns the chord type for a suffix such as "m7", also
// accepting common aliases ("-7", "ø", "Δ").
func LookupChordType(suffix string) (*ChordType, bool) {
	if alias, ok := chordTypeAliases[suffix]; ok {
		suffix = alias
	}
	ct, ok := chordTypes[suffix]
	return ct, ok
}

// Degrees returns the chord tones in DegreeIndex order.
func (c *ChordType) Degrees() []Degree { return slices.Clone(c.degrees) }

func (c *ChordType) Size() int { return len(c.degrees) }

// DegreeAt returns the degree with the given index, if the chord type has one.
func (c *ChordType) DegreeAt(i DegreeIndex) (Degree, bool) {
	if k := slices.Index(c.indexes, i); k >= 0 {
		return c.degrees[k], true
	}
	return 0, false
}

// Index returns the DegreeIndex of a chord tone, or -1.
func (c *ChordType) Index(d Degree) DegreeIndex {
	if k := slices.Index(c.degrees, d); k >= 0 {
		return c.indexes[k]
	}
	return -1
}

// DegreeOf returns the chord tone with the given pitch class relative to the
// root.
func (c *ChordType) DegreeOf(relPitch int) (Degree, bool) {
	relPitch = RelativePitch(relPitch)
	for _, d := range c.degrees {
		if d.Pitch() == relPitch {
			return d, true
		}
	}
	return 0, false
}

func (c *ChordType) Has(d Degree) bool { return slices.Contains(c.degrees, d) }

// IsThirteenth reports whether the chord is a seventh-type chord with a 13th.
func (c *ChordType) IsThirteenth() bool {
	return c.Has(DegreeSixth) && (c.Has(DegreeSeventhFlat) || c.Has(DegreeSeventh))
}

// MostProbableDegree returns the chord tone matching relPitch, or otherwise
// the scale degree most likely meant for that pitch given the chord family.
func (c *ChordType) MostProbableDegree(relPitch int) Degree {
	relPitch = RelativePitch(relPitch)
	if d, ok := c.DegreeOf(relPitch); ok {
		return d
	}
	switch relPitch {
	case 0:
		return DegreeRoot
	case 1:
		return DegreeNinthFlat
	case 2:
		return DegreeNinth
	case 3:
		if c.Has(DegreeThird) {
			return DegreeNinthSharp
		}
		return DegreeThirdFlat
	case 4:
		return DegreeThird
	case 5:
		return DegreeEleventh
	case 6:
		if c.Has(DegreeFifth) {
			return DegreeEleventhSharp
		}
		return DegreeFifthFlat
	case 7:
		return DegreeFifth
	case 8:
		if c.Has(DegreeFifth) {
			return DegreeThirteenthFlat
		}
		return DegreeFifthSharp
	case 9:
		return DegreeSixth
	case 10:
		return DegreeSeventhFlat
	}
	return DegreeSeventh
}

// DegreeMapping returns, for every degree, the degree it becomes when music
// written against c is moved onto dest. Chord tones of c map index to index
// when dest has the same index; otherwise to a dest chord tone chosen by mode.
// Other degrees map to the dest chord tone with the same natural interval, or
// stay unchanged.
func (c *ChordType) DegreeMapping(dest *ChordType, mode DegreeMode) map[Degree]Degree {
	ret := make(map[Degree]Degree, numDegrees)
	for _, d := range Degrees() {
		ret[d] = d
		for _, dd := range dest.degrees {
			if dd.Natural() == d.Natural() {
				ret[d] = dd
				break
			}
		}
	}
	for k, d := range c.degrees {
		if dd, ok := dest.DegreeAt(c.indexes[k]); ok {
			ret[d] = dd
			continue
		}
		ret[d] = dest.closestDegree(d, mode)
	}
	return ret
}

func (c *ChordType) closestDegree(d Degree, mode DegreeMode) Degree {
	best := DegreeRoot
	bestDist := 100
	for _, dd := range c.degrees {
		var dist int
		switch mode {
		case NoInversion:
			if dd.Pitch() > d.Pitch() {
				continue
			}
			dist = d.Pitch() - dd.Pitch()
		default:
			dist = abs(d.Pitch() - dd.Pitch())
			dist = min(dist, 12-dist)
		}
		if dist < bestDist {
			best, bestDist = dd, dist
		}
	}
	return best
}

func (c *ChordType) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.degrees)
}
