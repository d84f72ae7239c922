package phrase

import (
	"fmt"
	"iter"
	"slices"

	"github.com/viterin/vek/vek32"

	"github.com/vsariola/comper"
)

// SourcePhrase is a phrase composed against a chord symbol, e.g. a bass line
// written for C7, that can be fitted onto other chord symbols.
type SourcePhrase struct {
	*Phrase
	ChordSymbol comper.ChordSymbol
}

// MaxFitDegrees is the largest chord size searched exhaustively by
// FitChordPhrase. Larger chords fall back to voicing the mapped degrees
// upwards in source order.
var MaxFitDegrees = 8

// invalidScore is given to candidate voicings that cannot be played.
const invalidScore = 10000

func NewSourcePhrase(p *Phrase, cs comper.ChordSymbol) *SourcePhrase {
	return &SourcePhrase{Phrase: p, ChordSymbol: cs}
}

// FitMelodyPhrase adapts a melodic phrase to the destination chord. If both
// chords have the same type the phrase is transposed by the root difference,
// otherwise each note is moved to the destination degree its degree maps to.
// Each note keeps the closest pitch with the new pitch class.
func FitMelodyPhrase(src *SourcePhrase, dest comper.ExtChordSymbol) *Phrase {
	cs := src.ChordSymbol
	if cs.SameType(dest.ChordSymbol) {
		delta := dest.Root - cs.Root
		return src.Processed(func(ne *NoteEvent) *NoteEvent {
			return ne.WithPitch(comper.ClosestPitch(ne.pitch, ne.pitch+delta))
		})
	}
	mapping := cs.Type.DegreeMapping(dest.Type, comper.AllowInversion)
	return src.Processed(func(ne *NoteEvent) *NoteEvent {
		d := mappedDegree(mapping, cs.Degree(ne.pitch))
		return ne.WithPitch(comper.ClosestPitch(ne.pitch, dest.RelativePitch(d)))
	})
}

// FitBassPhrase is like FitMelodyPhrase but keeps the voice order of the bass
// line, and plays the destination bass note instead of the root. With the
// PedalBass rendering feature every note plays the destination bass note.
func FitBassPhrase(src *SourcePhrase, dest comper.ExtChordSymbol) *Phrase {
	cs := src.ChordSymbol
	mapping := cs.Type.DegreeMapping(dest.Type, comper.NoInversion)
	pedal := dest.Rendering.Has(comper.PedalBass)
	return src.Processed(func(ne *NoteEvent) *NoteEvent {
		d := mappedDegree(mapping, cs.Degree(ne.pitch))
		rel := dest.RelativePitch(d)
		if pedal || d == comper.DegreeRoot {
			rel = dest.BassRelativePitch()
		}
		return ne.WithPitch(comper.ClosestPitch(ne.pitch, rel))
	})
}

// FitChordPhrase adapts a phrase of chord voicings to the destination chord.
// The unique pitches of the source phrase form the source chord. Every
// ordering of the mapped destination degrees is voiced upwards from the
// source bottom note and downwards from the source top note, and the voicing
// closest to the source chord wins. Each source note then plays the pitch of
// the winning voicing at the same rank.
func FitChordPhrase(src *SourcePhrase, dest comper.ExtChordSymbol) *Phrase {
	if src.IsEmpty() {
		return NewPhrase(src.channel, src.drums)
	}
	cs := src.ChordSymbol
	var srcPitches []int
	for _, ne := range src.Chord() {
		srcPitches = append(srcPitches, ne.pitch)
	}
	slices.Sort(srcPitches)
	mapping := cs.Type.DegreeMapping(dest.Type, comper.AllowInversion)
	destDegrees := make([]comper.Degree, len(srcPitches))
	for i, p := range srcPitches {
		destDegrees[i] = mappedDegree(mapping, cs.Degree(p))
	}
	var voicing []int
	if len(destDegrees) <= MaxFitDegrees {
		voicing = bestVoicing(srcPitches, destDegrees, dest.ChordSymbol)
	}
	if voicing == nil {
		voicing = fallbackVoicing(srcPitches, destDegrees, dest.ChordSymbol)
	}
	return src.Processed(func(ne *NoteEvent) *NoteEvent {
		return ne.WithPitch(voicing[slices.Index(srcPitches, ne.pitch)])
	})
}

func mappedDegree(mapping map[comper.Degree]comper.Degree, d comper.Degree) comper.Degree {
	dd, ok := mapping[d]
	if !ok {
		panic(fmt.Sprintf("phrase: no destination degree for %v", d))
	}
	return dd
}

// fallbackVoicing voices the mapped degrees in source order, each strictly
// above the previous one, starting from the source bottom note. It voices
// downwards from the source top note when that would leave the MIDI range.
func fallbackVoicing(srcPitches []int, degrees []comper.Degree, dest comper.ChordSymbol) []int {
	rels := make([]int, len(degrees))
	for i, d := range degrees {
		rels[i] = dest.RelativePitch(d)
	}
	ret := voiceUp(srcPitches[0], rels)
	if ret[len(ret)-1] > 127 {
		ret = voiceDown(srcPitches[len(srcPitches)-1], rels)
	}
	return ret
}

// bestVoicing returns the lowest scoring voicing, or nil if no ordering of
// degrees can be voiced in the MIDI range.
func bestVoicing(srcPitches []int, degrees []comper.Degree, dest comper.ChordSymbol) []int {
	sc := newScorer(srcPitches, dest)
	var best []int
	bestScore := float32(invalidScore)
	for perm := range permutations(degrees) {
		rels := make([]int, len(perm))
		for i, d := range perm {
			rels[i] = dest.RelativePitch(d)
		}
		for _, cand := range [...][]int{voiceUp(srcPitches[0], rels), voiceDown(srcPitches[len(srcPitches)-1], rels)} {
			if s := sc.score(cand); s < bestScore {
				best, bestScore = cand, s
			}
		}
	}
	return best
}

// voiceUp places rels[0] closest to bottom and every next pitch class on the
// first pitch strictly above the previous note.
func voiceUp(bottom int, rels []int) []int {
	ret := make([]int, len(rels))
	ret[0] = comper.ClosestPitch(bottom, rels[0])
	for i := 1; i < len(rels); i++ {
		p := ret[i-1] + comper.RelativePitch(rels[i]-ret[i-1])
		if p == ret[i-1] {
			p += 12
		}
		ret[i] = p
	}
	return ret
}

// voiceDown places the last pitch class closest to top and every previous
// one on the first pitch strictly below the next note.
func voiceDown(top int, rels []int) []int {
	n := len(rels)
	ret := make([]int, n)
	ret[n-1] = comper.ClosestPitch(top, rels[n-1])
	for i := n - 2; i >= 0; i-- {
		p := ret[i+1] - comper.RelativePitch(ret[i+1]-rels[i])
		if p == ret[i+1] {
			p -= 12
		}
		ret[i] = p
	}
	return ret
}

type scorer struct {
	src       []float32
	cand      []float32
	diff      []float32
	dest      comper.ChordSymbol
	thirteen  bool
	srcTop    int
	srcBottom int
}

func newScorer(srcPitches []int, dest comper.ChordSymbol) *scorer {
	n := len(srcPitches)
	s := &scorer{
		src:       make([]float32, n),
		cand:      make([]float32, n),
		diff:      make([]float32, n),
		dest:      dest,
		thirteen:  dest.Type.IsThirteenth(),
		srcBottom: srcPitches[0],
		srcTop:    srcPitches[n-1],
	}
	for i, p := range srcPitches {
		s.src[i] = float32(p)
	}
	return s
}

// score rates a candidate voicing against the source chord, lower is better.
// The weights are tuned by ear and tie-breaks depend on them.
func (s *scorer) score(cand []int) float32 {
	n := len(cand)
	if n != len(s.src) {
		return invalidScore
	}
	for i, p := range cand {
		if p < 0 || p > 127 {
			return invalidScore
		}
		s.cand[i] = float32(p)
	}
	vek32.Sub_Into(s.diff, s.cand, s.src)
	vek32.Abs_Inplace(s.diff)
	score := vek32.Sum(s.diff)
	score += 3 * float32(abs(cand[n-1]-s.srcTop))
	score += float32(abs(cand[0] - s.srcBottom))
	if n < 2 {
		return score
	}
	if top := cand[n-1] - cand[n-2]; top <= 2 {
		score += 4 * float32(3-top)
	}
	fourth := false
	for i := 1; i < n; i++ {
		iv := cand[i] - cand[i-1]
		if iv > 12 && iv%12 == 1 {
			score += 8
		}
		if iv == 5 {
			fourth = true
		}
	}
	if cand[1]-cand[0] >= 8 && comper.RelativePitch(cand[0]) != s.dest.Root {
		score += 4
	}
	if s.thirteen && n >= 4 && !fourth {
		score += 2
	}
	return score
}

// permutations yields every ordering of ds, reusing the yielded slice.
func permutations(ds []comper.Degree) iter.Seq[[]comper.Degree] {
	return func(yield func([]comper.Degree) bool) {
		p := slices.Clone(ds)
		var rec func(k int) bool
		rec = func(k int) bool {
			if k == len(p) {
				return yield(p)
			}
			for i := k; i < len(p); i++ {
				p[k], p[i] = p[i], p[k]
				if !rec(k + 1) {
					return false
				}
				p[k], p[i] = p[i], p[k]
			}
			return true
		}
		rec(0)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
