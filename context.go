package comper

import (
	"fmt"
	"math"
	"slices"
)

// GenerationContext is the read-only view of one generation request: a song,
// the MIDI mix used to render it and the song bars to generate.
//
// Beat positions are natural beats counted from the start of the song, so a
// bar in 3/4 is 3 beats long and a bar in 6/8 is 3 beats long too. Ticks are
// counted from the start of the context bar range, PPQ ticks per beat.
type GenerationContext struct {
	song *Song
	mix  *MidiMix
	bars IntRange
}

// NewGenerationContext returns the context for the bars of song. An empty
// bar range means the whole song.
func NewGenerationContext(song *Song, mix *MidiMix, bars IntRange) (*GenerationContext, error) {
	size := song.SizeInBars()
	if size == 0 {
		return nil, fmt.Errorf("song %q is empty", song.Name)
	}
	whole := NewIntRange(0, size-1)
	if bars.IsEmpty() {
		bars = whole
	}
	if !whole.ContainsRange(bars) {
		return nil, fmt.Errorf("%w: %v not in %v", ErrInvalidBarRange, bars, whole)
	}
	if mix == nil {
		mix = NewMidiMix(song)
	}
	return &GenerationContext{song: song, mix: mix, bars: bars}, nil
}

func (g *GenerationContext) Song() *Song        { return g.song }
func (g *GenerationContext) MidiMix() *MidiMix  { return g.mix }
func (g *GenerationContext) BarRange() IntRange { return g.bars }

// Equal reports whether both contexts are about the same song, mix and bars.
func (g *GenerationContext) Equal(o *GenerationContext) bool {
	return g.song == o.song && g.mix == o.mix && g.bars == o.bars
}

// SongParts returns the song parts intersecting the context bar range.
func (g *GenerationContext) SongParts() []*SongPart {
	return g.song.Structure.PartsInRange(g.bars)
}

// PartBarRange returns the bars of the song part inside the context.
func (g *GenerationContext) PartBarRange(spt *SongPart) IntRange {
	return spt.BarRange().Intersect(g.bars)
}

// PartBeatRange returns the beats of the song part inside the context.
func (g *GenerationContext) PartBeatRange(spt *SongPart) FloatRange {
	r := g.PartBarRange(spt)
	if r.IsEmpty() {
		return FloatRange{}
	}
	return NewFloatRange(g.BarToBeat(r.From()), g.BarToBeat(r.To()+1))
}

// PartTickRange returns the ticks [from, to) of the song part inside the
// context, as the inclusive range [from, to-1].
func (g *GenerationContext) PartTickRange(spt *SongPart) IntRange {
	r := g.PartBeatRange(spt)
	if r.IsEmpty() {
		return IntRange{}
	}
	return NewIntRange(g.BeatToTick(r.From()), g.BeatToTick(r.To())-1)
}

// Rhythms returns the rhythms used in the context, in order of first use.
func (g *GenerationContext) Rhythms() []*Rhythm {
	var ret []*Rhythm
	for _, spt := range g.SongParts() {
		if !slices.Contains(ret, spt.Rhythm) {
			ret = append(ret, spt.Rhythm)
		}
	}
	return ret
}

// RhythmVoices returns the voices of all the rhythms used in the context.
func (g *GenerationContext) RhythmVoices() []*RhythmVoice {
	var ret []*RhythmVoice
	for _, r := range g.Rhythms() {
		ret = append(ret, r.Voices...)
	}
	return ret
}

// TimeSignatureAt returns the time signature of a song bar.
func (g *GenerationContext) TimeSignatureAt(bar int) TimeSignature {
	if spt := g.song.Structure.PartAt(bar); spt != nil {
		return spt.Section.TimeSignature
	}
	return FourFour
}

// BarToBeat returns the beat where a song bar starts. Bars past the end of
// the song are extrapolated with the time signature of the last part.
func (g *GenerationContext) BarToBeat(bar int) float64 {
	beat := 0.0
	parts := g.song.Structure.parts
	for _, spt := range parts {
		n := min(spt.NbBars, bar-spt.StartBar)
		if n <= 0 {
			break
		}
		beat += float64(n) * spt.Section.TimeSignature.Beats()
	}
	if size := g.song.SizeInBars(); bar > size && len(parts) > 0 {
		beat += float64(bar-size) * parts[len(parts)-1].Section.TimeSignature.Beats()
	}
	return beat
}

func (g *GenerationContext) PositionToBeat(pos Position) float64 {
	return g.BarToBeat(pos.Bar) + pos.Beat
}

// BeatToPosition converts a song beat to a bar/beat position.
func (g *GenerationContext) BeatToPosition(beat float64) Position {
	start := 0.0
	parts := g.song.Structure.parts
	for _, spt := range parts {
		bb := spt.Section.TimeSignature.Beats()
		end := start + float64(spt.NbBars)*bb
		if beat < end-Epsilon {
			bar := int(math.Floor((beat - start + Epsilon) / bb))
			return Position{Bar: spt.StartBar + bar, Beat: beat - start - float64(bar)*bb}
		}
		start = end
	}
	bb := FourFour.Beats()
	if len(parts) > 0 {
		bb = parts[len(parts)-1].Section.TimeSignature.Beats()
	}
	bar := int(math.Floor((beat - start + Epsilon) / bb))
	return Position{Bar: g.song.SizeInBars() + bar, Beat: beat - start - float64(bar)*bb}
}

// BeatRange returns the song beats covered by the context.
func (g *GenerationContext) BeatRange() FloatRange {
	return NewFloatRange(g.BarToBeat(g.bars.From()), g.BarToBeat(g.bars.To()+1))
}

// BeatToTick converts a song beat to a tick relative to the context start.
func (g *GenerationContext) BeatToTick(beat float64) int {
	return int(math.Round((beat - g.BeatRange().From()) * PPQ))
}

// TickToBeat converts a tick relative to the context start to a song beat.
func (g *GenerationContext) TickToBeat(tick int) float64 {
	return g.BeatRange().From() + float64(tick)/PPQ
}

// TickLength returns the length of the context in ticks.
func (g *GenerationContext) TickLength() int {
	return g.BeatToTick(g.BeatRange().To())
}

func (g *GenerationContext) String() string {
	return fmt.Sprintf("%s%v", g.song.Name, g.bars)
}
