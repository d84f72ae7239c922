// Package chordseq extracts the chord symbols played in a bar range of a
// song, in song bars, ready for rhythm generators.
package chordseq

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/vsariola/comper"
)

// ChordSequence is a list of chord symbols sorted by position, covering a
// range of song bars. Once built, a sequence has a chord symbol at the start
// of its first bar.
//
// Two sequences are never equal even with the same contents: use ID to key
// maps by sequence.
type ChordSequence struct {
	id    uint64
	bars  comper.IntRange
	items []comper.ChordItem
}

var ErrNoChordSymbol = errors.New("no chord symbol to start the sequence")

var lastID atomic.Uint64

// New returns an empty sequence covering bars.
func New(bars comper.IntRange) *ChordSequence {
	if bars.IsEmpty() {
		panic("chordseq: empty bar range")
	}
	return &ChordSequence{id: lastID.Add(1), bars: bars}
}

// ID identifies the sequence; every sequence gets a different one.
func (s *ChordSequence) ID() uint64                { return s.id }
func (s *ChordSequence) BarRange() comper.IntRange { return s.bars }
func (s *ChordSequence) StartBar() int             { return s.bars.From() }
func (s *ChordSequence) NbBars() int               { return s.bars.Size() }
func (s *ChordSequence) Len() int                  { return len(s.items) }
func (s *ChordSequence) At(i int) comper.ChordItem { return s.items[i] }
func (s *ChordSequence) Items() []comper.ChordItem { return slices.Clone(s.items) }
func (s *ChordSequence) IsEmpty() bool             { return len(s.items) == 0 }
func (s *ChordSequence) First() comper.ChordItem   { return s.items[0] }
func (s *ChordSequence) Last() comper.ChordItem    { return s.items[len(s.items)-1] }
func (s *ChordSequence) Start() comper.Position    { return comper.Position{Bar: s.bars.From()} }
func (s *ChordSequence) End() comper.Position      { return comper.Position{Bar: s.bars.To() + 1} }

// Add inserts a chord item after the items at or before its position. It
// panics if the item is outside the bar range.
func (s *ChordSequence) Add(item comper.ChordItem) {
	if !s.bars.Contains(item.Position.Bar) {
		panic(fmt.Sprintf("chordseq: %v outside %v", item, s.bars))
	}
	i := len(s.items)
	for i > 0 && item.Position.Before(s.items[i-1].Position) {
		i--
	}
	s.items = slices.Insert(s.items, i, item)
}

// Remove removes the first item at pos and reports whether there was one.
func (s *ChordSequence) Remove(pos comper.Position) bool {
	i := s.IndexOf(pos)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// IndexOf returns the index of the first item at pos, or -1.
func (s *ChordSequence) IndexOf(pos comper.Position) int {
	return slices.IndexFunc(s.items, func(ci comper.ChordItem) bool { return ci.Position == pos })
}

// ChordDuration returns the beats from item i to the next item, or to the
// end of the sequence for the last item.
func (s *ChordSequence) ChordDuration(i int, pc comper.PositionConverter) float64 {
	end := s.End()
	if i+1 < len(s.items) {
		end = s.items[i+1].Position
	}
	return pc.PositionToBeat(end) - pc.PositionToBeat(s.items[i].Position)
}

// ActiveChord returns the last item at or before pos.
func (s *ChordSequence) ActiveChord(pos comper.Position) (comper.ChordItem, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		if !pos.Before(s.items[i].Position) {
			return s.items[i], true
		}
	}
	return comper.ChordItem{}, false
}

// IndexOfFirstFromBar returns the index of the first item at or after bar,
// or -1.
func (s *ChordSequence) IndexOfFirstFromBar(bar int) int {
	return slices.IndexFunc(s.items, func(ci comper.ChordItem) bool { return ci.Position.Bar >= bar })
}

// IndexOfLastBeforeBar returns the index of the last item before bar, or -1.
func (s *ChordSequence) IndexOfLastBeforeBar(bar int) int {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].Position.Bar < bar {
			return i
		}
	}
	return -1
}

// HasChordAtBeginning reports whether an item is at beat 0 of the first bar.
func (s *ChordSequence) HasChordAtBeginning() bool {
	return len(s.items) > 0 && s.items[0].Position == s.Start()
}

// FixStart makes sure the sequence starts with a chord symbol. If prior, the
// last chord played before the sequence, is given, it is repeated at the
// start without its alternate and rendering features. Otherwise the first
// item is moved to the start. ErrNoChordSymbol is returned if the sequence
// is empty and there is no prior chord.
func (s *ChordSequence) FixStart(prior *comper.ChordItem) error {
	switch {
	case s.HasChordAtBeginning():
	case prior != nil:
		s.Add(comper.ChordItem{Position: s.Start(), Symbol: prior.Symbol.StrippedForStart()})
	case len(s.items) > 0:
		s.items[0].Position = s.Start()
	default:
		return fmt.Errorf("%w: bars %v", ErrNoChordSymbol, s.bars)
	}
	return nil
}

// SubSequence returns a new sequence with the items in bars, which must be
// inside the sequence bar range. If addInitChord is set and no item is at the
// start of bars, the chord active there is repeated at the start.
func (s *ChordSequence) SubSequence(bars comper.IntRange, addInitChord bool) *ChordSequence {
	if !s.bars.ContainsRange(bars) || bars.IsEmpty() {
		panic(fmt.Sprintf("chordseq: sub range %v outside %v", bars, s.bars))
	}
	ret := New(bars)
	for _, ci := range s.items {
		if bars.Contains(ci.Position.Bar) {
			ret.items = append(ret.items, ci)
		}
	}
	if addInitChord && !ret.HasChordAtBeginning() {
		if i := s.IndexOfLastBeforeBar(bars.From()); i >= 0 {
			ret.Add(comper.ChordItem{Position: ret.Start(), Symbol: s.items[i].Symbol.StrippedForStart()})
		}
	}
	return ret
}

func (s *ChordSequence) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ChordSequence%v[", s.bars)
	for i, ci := range s.items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ci.String())
	}
	b.WriteByte(']')
	return b.String()
}
