package chordseq

import (
	"github.com/vsariola/comper"
)

// Segment is a part of a sequence where a rhythm parameter keeps the same
// value.
type Segment struct {
	Seq   *ChordSequence
	Value string
}

// FromSong returns the chord symbols played in the song bars. Alternate
// chord symbols are resolved with the marker of each song part. If no chord
// symbol starts the range, the last chord played before it is repeated, or
// else the first chord is moved to the start.
func FromSong(song *comper.Song, bars comper.IntRange) (*ChordSequence, error) {
	seq := New(bars)
	for _, spt := range song.Structure.PartsInRange(bars) {
		for _, ci := range partChords(song, spt) {
			if bars.Contains(ci.Position.Bar) {
				seq.Add(ci)
			}
		}
	}
	if err := seq.FixStart(LastChordBefore(song, bars.From())); err != nil {
		return nil, err
	}
	return seq, nil
}

// FromContext returns the chord symbols of the context bar range.
func FromContext(gc *comper.GenerationContext) (*ChordSequence, error) {
	return FromSong(gc.Song(), gc.BarRange())
}

// LastChordBefore returns the last chord symbol played before the song bar,
// or nil.
func LastChordBefore(song *comper.Song, bar int) *comper.ChordItem {
	parts := song.Structure.Parts()
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i].StartBar >= bar {
			continue
		}
		chords := partChords(song, parts[i])
		for j := len(chords) - 1; j >= 0; j-- {
			if chords[j].Position.Bar < bar {
				return &chords[j]
			}
		}
	}
	return nil
}

// partChords returns the resolved chord symbols of a song part, in song bars.
func partChords(song *comper.Song, spt *comper.SongPart) []comper.ChordItem {
	ls := song.LeadSheet
	secBars := ls.SectionBarRange(spt.Section)
	marker := spt.ParamValue(comper.ParamMarker)
	var ret []comper.ChordItem
	for _, ci := range ls.ChordsInBarRange(secBars) {
		sym, ok := ci.Symbol.Resolve(marker)
		if !ok {
			continue
		}
		pos := comper.Position{Bar: spt.StartBar + ci.Position.Bar - secBars.From(), Beat: ci.Position.Beat}
		ret = append(ret, comper.ChordItem{Position: pos, Symbol: sym})
	}
	return ret
}

// Split cuts the sequence at the song parts of the context. Consecutive song
// parts using rhythm with the same value of the parameter form one segment;
// parts using another rhythm are left out. Each segment sequence starts with
// a chord symbol.
func (s *ChordSequence) Split(gc *comper.GenerationContext, rhythm *comper.Rhythm, param string) []Segment {
	var ret []Segment
	var cur comper.IntRange
	var value string
	flush := func() {
		if !cur.IsEmpty() {
			ret = append(ret, Segment{Seq: s.SubSequence(cur, true), Value: value})
		}
		cur = comper.IntRange{}
	}
	for _, spt := range gc.SongParts() {
		bars := gc.PartBarRange(spt).Intersect(s.bars)
		if bars.IsEmpty() {
			continue
		}
		if spt.Rhythm != rhythm {
			flush()
			continue
		}
		v := spt.ParamValue(param)
		if !cur.IsEmpty() && v == value && cur.To()+1 == bars.From() {
			cur = comper.NewIntRange(cur.From(), bars.To())
			continue
		}
		flush()
		cur, value = bars, v
	}
	flush()
	return ret
}
