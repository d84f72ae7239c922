package phrase_test

import (
	"slices"
	"testing"

	"github.com/vsariola/comper/phrase"
)

func TestNewNoteEventPanics(t *testing.T) {
	cases := []struct {
		name     string
		pitch    int
		duration float64
		velocity int
		position float64
	}{
		{"pitch", 128, 1, 64, 0},
		{"negative pitch", -1, 1, 64, 0},
		{"velocity", 60, 1, 200, 0},
		{"duration", 60, -1, 64, 0},
		{"position", 60, 1, 64, -0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("NewNoteEvent should panic")
				}
			}()
			phrase.NewNoteEvent(c.pitch, c.duration, c.velocity, c.position)
		})
	}
}

func TestNoteEventDerivation(t *testing.T) {
	ne := phrase.NewNoteEvent(60, 1, 100, 0)
	if got := ne.String(); got != "C4(d=1 v=100)@0" {
		t.Errorf("String() = %q", got)
	}
	ne.Metadata().Set("take", 2)
	d := ne.WithPitch(62).WithPosition(1.5)
	if d.Pitch() != 62 || d.Position() != 1.5 || d.Duration() != 1 || d.Velocity() != 100 {
		t.Errorf("unexpected derived note %v", d)
	}
	if ne.Pitch() != 60 || ne.Position() != 0 {
		t.Error("derivation should not change the original note")
	}
	if d.Metadata().Get("take") != 2 {
		t.Error("derived notes should copy the metadata")
	}
	d.Metadata().Set("take", 3)
	if ne.Metadata().Get("take") != 2 {
		t.Error("derived metadata should not be shared")
	}
	if d.WithoutMetadata().Metadata().Len() != 0 {
		t.Error("WithoutMetadata should drop the metadata")
	}
	if d.End() != 2.5 {
		t.Errorf("End() = %v, want 2.5", d.End())
	}
}

func TestNoteEventEqual(t *testing.T) {
	a := phrase.NewNoteEvent(60, 1, 100, 0)
	b := phrase.NewNoteEvent(60, 1, 100, 0)
	b.Metadata().Set("x", true)
	if !a.Equal(b) || a.Key() != b.Key() {
		t.Error("metadata should not take part in equality")
	}
	if a.Equal(a.WithVelocity(99)) {
		t.Error("notes with different velocities should differ")
	}
	if !a.IsBefore(a.WithPosition(0.1)) || a.IsBefore(b) {
		t.Error("unexpected IsBefore results")
	}
}

func TestParent(t *testing.T) {
	src := phrase.NewNoteEvent(60, 1, 100, 0)
	d1 := src.WithPitch(62)
	d1.SetParentIfAbsent(src)
	d2 := d1.WithPitch(64)
	d2.SetParentIfAbsent(d1)
	if d1.Parent() != src || d2.Parent() != src {
		t.Error("the first recorded parent should be kept along derivations")
	}
	if src.Parent() != nil {
		t.Error("a new note has no parent")
	}
}

func TestMetadata(t *testing.T) {
	m := phrase.NewNoteEvent(60, 1, 100, 0).Metadata()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	if got := m.Keys(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Keys() = %v", got)
	}
	if m.Get("b") != 3 || m.Get("c") != nil {
		t.Error("unexpected Get results")
	}
	m.Delete("b")
	m.Delete("c")
	if got := m.Keys(); !slices.Equal(got, []string{"a"}) || m.Len() != 1 {
		t.Errorf("Keys() after Delete = %v", got)
	}
}
