package phrase_test

import (
	"testing"

	"github.com/vsariola/comper/phrase"
)

type note struct {
	pitch    int
	duration float64
	position float64
}

func newPhrase(notes ...note) *phrase.Phrase {
	p := phrase.NewPhrase(0, false)
	for _, n := range notes {
		p.Add(phrase.NewNoteEvent(n.pitch, n.duration, 100, n.position))
	}
	return p
}

func checkNotes(t *testing.T, p *phrase.Phrase, want ...note) {
	t.Helper()
	if p.Len() != len(want) {
		t.Fatalf("got %v, want %d notes", p, len(want))
	}
	for i, w := range want {
		ne := p.At(i)
		if ne.Pitch() != w.pitch || ne.Duration() != w.duration || ne.Position() != w.position {
			t.Errorf("note %d = %v, want pitch %d duration %v position %v", i, ne, w.pitch, w.duration, w.position)
		}
	}
}

// a, b, c and d
func sample() *phrase.Phrase {
	return newPhrase(note{60, 2, 0}, note{62, 1, 1}, note{64, 2, 3}, note{65, 1, 5})
}

func TestAddKeepsOrder(t *testing.T) {
	p := newPhrase(note{64, 1, 2}, note{60, 1, 0}, note{62, 1, 2}, note{67, 1, 1})
	checkNotes(t, p, note{60, 1, 0}, note{67, 1, 1}, note{64, 1, 2}, note{62, 1, 2})
	v := p.Version()
	p.Add(phrase.NewNoteEvent(50, 1, 100, 0))
	if p.Version() == v || p.At(1).Pitch() != 50 {
		t.Errorf("Add at an existing position should insert after it: %v", p)
	}
}

func TestRemove(t *testing.T) {
	p := sample()
	if !p.Remove(phrase.NewNoteEvent(62, 1, 100, 1)) {
		t.Fatal("Remove should find a structurally equal note")
	}
	if p.Remove(phrase.NewNoteEvent(62, 1, 100, 1)) {
		t.Error("the note should be gone")
	}
	if !p.Replace(p.At(0), phrase.NewNoteEvent(48, 1, 100, 6)) {
		t.Fatal("Replace failed")
	}
	checkNotes(t, p, note{64, 2, 3}, note{65, 1, 5}, note{48, 1, 6})
	p.Clear()
	if !p.IsEmpty() || !p.BeatRange().IsEmpty() {
		t.Error("Clear should empty the phrase")
	}
}

func TestSlice(t *testing.T) {
	p := sample()
	p.Slice(1, 4, true, true)
	checkNotes(t, p, note{60, 1, 1}, note{62, 1, 1}, note{64, 1, 3})
	p = sample()
	p.Slice(1, 4, false, false)
	checkNotes(t, p, note{62, 1, 1}, note{64, 2, 3})
	p.Slice(1, 4, false, false)
	checkNotes(t, p, note{62, 1, 1}, note{64, 2, 3})
	p = newPhrase(note{60, 6, 0}, note{62, 1, 2})
	p.Slice(1, 4, true, false)
	checkNotes(t, p, note{60, 5, 1}, note{62, 1, 2})
}

func TestSplit(t *testing.T) {
	p := sample()
	p.Split(1, 4, true, true)
	checkNotes(t, p, note{60, 1, 0}, note{64, 1, 4}, note{65, 1, 5})
	p = sample()
	p.Split(1, 4, false, false)
	checkNotes(t, p, note{60, 2, 0}, note{65, 1, 5})
}

func TestSilenceAfter(t *testing.T) {
	p := sample()
	p.SilenceAfter(3.5)
	checkNotes(t, p, note{60, 2, 0}, note{62, 1, 1}, note{64, 0.5, 3})
}

func TestProcessed(t *testing.T) {
	p := sample()
	up := p.Transposed(70)
	if up.At(0).Pitch() != 127 || up.At(0).Parent() != p.At(0) {
		t.Errorf("Transposed should clamp and record the parent: %v", up)
	}
	if p.At(0).Pitch() != 60 {
		t.Error("Transposed should not change the phrase")
	}
	if got := p.VelocityShifted(-120).At(1).Velocity(); got != 0 {
		t.Errorf("VelocityShifted velocity = %d, want 0", got)
	}
	odd := p.Processed(func(ne *phrase.NoteEvent) *phrase.NoteEvent {
		if ne.Pitch()%2 == 1 {
			return ne
		}
		return nil
	})
	checkNotes(t, odd, note{65, 1, 5})
	shifted := p.Shifted(2)
	checkNotes(t, shifted, note{60, 2, 2}, note{62, 1, 3}, note{64, 2, 5}, note{65, 1, 7})
}

func TestShiftNegativePanics(t *testing.T) {
	p := sample()
	p.Shift(1)
	p.Shift(-1)
	defer func() {
		if recover() == nil {
			t.Error("shifting before 0 should panic")
		}
	}()
	p.Shift(-0.5)
}

func TestRemoveOverlappedNotes(t *testing.T) {
	p := newPhrase(note{60, 4, 0}, note{60, 1, 1}, note{62, 1, 1}, note{60, 4, 2}, note{60, 1, 4})
	p.RemoveOverlappedNotes()
	checkNotes(t, p, note{60, 4, 0}, note{62, 1, 1}, note{60, 4, 2})
}

func TestLimitPitchRange(t *testing.T) {
	p := newPhrase(note{60, 1, 0}, note{20, 1, 1}, note{40, 1, 2})
	p.LimitPitchRange(28, 55)
	checkNotes(t, p, note{48, 1, 0}, note{32, 1, 1}, note{40, 1, 2})
	if p.At(0).Parent() == nil {
		t.Error("moved notes should record their parent")
	}
	defer func() {
		if recover() == nil {
			t.Error("a range narrower than an octave should panic")
		}
	}()
	p.LimitPitchRange(28, 30)
}

func TestCrossingNotesAndChord(t *testing.T) {
	p := sample()
	if got := p.CrossingNotes(1.5); len(got) != 2 {
		t.Errorf("CrossingNotes(1.5) = %v", got)
	}
	if got := p.CrossingNotes(1); len(got) != 1 {
		t.Errorf("CrossingNotes(1) = %v, a note starting at 1 does not cross it", got)
	}
	p.Add(phrase.NewNoteEvent(60, 1, 100, 6))
	if got := p.Chord(); len(got) != 4 || got[0].Position() != 0 {
		t.Errorf("Chord() = %v", got)
	}
	if r := p.BeatRange(); r.From() != 0 || r.To() != 7 {
		t.Errorf("BeatRange() = %v", r)
	}
}

func TestClone(t *testing.T) {
	p := sample()
	p.At(0).Metadata().Set("k", 1)
	c := p.Clone()
	c.At(0).Metadata().Set("k", 2)
	c.Shift(1)
	if p.At(0).Metadata().Get("k") != 1 || p.At(0).Position() != 0 {
		t.Error("Clone should not share notes or metadata")
	}
	n := 0
	for range c.All() {
		n++
	}
	if n != p.Len() {
		t.Errorf("All() yielded %d notes, want %d", n, p.Len())
	}
}
