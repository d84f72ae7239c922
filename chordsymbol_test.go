package comper_test

import (
	"errors"
	"testing"

	"github.com/vsariola/comper"
)

func TestParseChordSymbol(t *testing.T) {
	cases := []struct {
		s          string
		root, bass int
		typ        string
		str        string
	}{
		{"C", 0, 0, "", "C"},
		{"Bbm7", 10, 10, "m7", "Bbm7"},
		{"F7/A", 5, 9, "7", "F7/A"},
		{"C6/9", 0, 0, "69", "C69"},
		{"Eb-7", 3, 3, "m7", "Ebm7"},
		{"F#ø", 6, 6, "m7b5", "Gbm7b5"},
		{"G7#9", 7, 7, "7#9", "G7#9"},
		{" Dmaj7 ", 2, 2, "maj7", "Dmaj7"},
	}
	for _, c := range cases {
		cs, err := comper.ParseChordSymbol(c.s)
		if err != nil {
			t.Errorf("ParseChordSymbol(%q) failed: %v", c.s, err)
			continue
		}
		if cs.Root != c.root || cs.Bass != c.bass || cs.Type.Name != c.typ {
			t.Errorf("ParseChordSymbol(%q) = %d/%d %q, want %d/%d %q", c.s, cs.Root, cs.Bass, cs.Type.Name, c.root, c.bass, c.typ)
		}
		if got := cs.String(); got != c.str {
			t.Errorf("ParseChordSymbol(%q).String() = %q, want %q", c.s, got, c.str)
		}
	}
	for _, s := range []string{"", "X7", "Cfoo", "C7/"} {
		if _, err := comper.ParseChordSymbol(s); !errors.Is(err, comper.ErrUnknownChordSymbol) {
			t.Errorf("ParseChordSymbol(%q) error = %v, want ErrUnknownChordSymbol", s, err)
		}
	}
}

func TestChordSymbolDegree(t *testing.T) {
	cs := comper.MustParseChordSymbol("F7/A")
	if !cs.HasSlashBass() || cs.BassRelativePitch() != 9 {
		t.Errorf("F7/A should have an A slash bass")
	}
	if got := cs.RelativePitch(comper.DegreeSeventhFlat); got != 3 {
		t.Errorf("b7 of F7 = %d, want 3 (Eb)", got)
	}
	if got := cs.Degree(69); got != comper.DegreeThird {
		t.Errorf("Degree(A4) of F7 = %v, want 3", got)
	}
	if got := cs.Degree(67); got != comper.DegreeNinth {
		t.Errorf("Degree(G4) of F7 = %v, want 9", got)
	}
	if !cs.SameType(comper.MustParseChordSymbol("Bb7")) || cs.Equal(comper.MustParseChordSymbol("F7")) {
		t.Error("unexpected SameType/Equal results")
	}
}

func TestParseFeature(t *testing.T) {
	for _, f := range []comper.Feature{comper.Accent, comper.AccentStronger, comper.NoCrash, comper.ExtendedHoldShot, comper.PedalBass} {
		got, err := comper.ParseFeature(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFeature(%q) = %v, %v", f.String(), got, err)
		}
	}
	if _, err := comper.ParseFeature("loud"); err == nil {
		t.Error("ParseFeature(\"loud\") should fail")
	}
}

func TestResolveAlternate(t *testing.T) {
	alt := comper.ExtChordSymbol{ChordSymbol: comper.MustParseChordSymbol("Bb6")}
	e := comper.ExtChordSymbol{
		ChordSymbol: comper.MustParseChordSymbol("Bbmaj7"),
		Alternate:   &comper.AltChordSymbol{Symbol: &alt, Markers: []string{"end"}},
	}
	if got, ok := e.Resolve(""); !ok || got.String() != "Bbmaj7" {
		t.Errorf("Resolve(\"\") = %v, %v", got, ok)
	}
	if got, ok := e.Resolve("intro"); !ok || got.String() != "Bbmaj7" {
		t.Errorf("Resolve(\"intro\") = %v, %v", got, ok)
	}
	if got, ok := e.Resolve("end"); !ok || got.String() != "Bb6" {
		t.Errorf("Resolve(\"end\") = %v, %v", got, ok)
	}
	e.Alternate.Symbol = nil
	if _, ok := e.Resolve("end"); ok {
		t.Error("a void alternate should skip the chord")
	}
}

func TestStrippedForStart(t *testing.T) {
	e := comper.ExtChordSymbol{
		ChordSymbol: comper.MustParseChordSymbol("C7"),
		Rendering:   comper.RenderingInfo{Features: []comper.Feature{comper.Accent, comper.Shot, comper.PedalBass}},
		Alternate:   &comper.AltChordSymbol{Markers: []string{"x"}},
	}
	s := e.StrippedForStart()
	if s.Alternate != nil || s.Rendering.HasAccent() || s.Rendering.HasHoldOrShot() || !s.Rendering.Has(comper.PedalBass) {
		t.Errorf("StrippedForStart() = %+v", s)
	}
	if len(comper.ExtChordSymbol{ChordSymbol: e.ChordSymbol}.StrippedForStart().Rendering.Features) != 0 {
		t.Error("no feature should be added")
	}
}

func TestExtChordSymbolCopy(t *testing.T) {
	alt := comper.ExtChordSymbol{ChordSymbol: comper.MustParseChordSymbol("Bb6")}
	e := comper.ExtChordSymbol{
		ChordSymbol: comper.MustParseChordSymbol("Bbmaj7"),
		Rendering:   comper.RenderingInfo{Features: []comper.Feature{comper.Hold}},
		Alternate:   &comper.AltChordSymbol{Symbol: &alt, Markers: []string{"end"}},
	}
	c := e.Copy()
	c.Rendering.Features[0] = comper.Shot
	c.Alternate.Markers[0] = "intro"
	c.Alternate.Symbol.Root = 0
	if e.Rendering.Features[0] != comper.Hold || e.Alternate.Markers[0] != "end" || e.Alternate.Symbol.Root != 10 {
		t.Error("Copy() should not share state with the original")
	}
}
