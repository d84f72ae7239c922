package phrase

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/vsariola/comper"
)

// Phrase is a list of notes for one MIDI channel, always sorted by position.
// Notes starting at the same position keep their insertion order.
//
// A Phrase is not safe for concurrent use.
type Phrase struct {
	channel int
	drums   bool
	notes   []*NoteEvent
	version int
}

// NewPhrase returns an empty phrase for a MIDI channel 0-15.
func NewPhrase(channel int, drums bool) *Phrase {
	if channel < 0 || channel > 15 {
		panic(fmt.Sprintf("phrase: invalid channel %d", channel))
	}
	return &Phrase{channel: channel, drums: drums}
}

func (p *Phrase) Channel() int  { return p.channel }
func (p *Phrase) IsDrums() bool { return p.drums }
func (p *Phrase) Len() int      { return len(p.notes) }
func (p *Phrase) IsEmpty() bool { return len(p.notes) == 0 }

func (p *Phrase) At(i int) *NoteEvent { return p.notes[i] }

// Version is incremented on every change of the note list.
func (p *Phrase) Version() int { return p.version }

// Notes returns a copy of the note list.
func (p *Phrase) Notes() []*NoteEvent { return slices.Clone(p.notes) }

// All iterates over the notes in position order.
func (p *Phrase) All() iter.Seq[*NoteEvent] {
	return func(yield func(*NoteEvent) bool) {
		for _, ne := range p.notes {
			if !yield(ne) {
				return
			}
		}
	}
}

// Add inserts a note after all the notes starting at or before it. The
// search starts from the end, where most notes are added.
func (p *Phrase) Add(ne *NoteEvent) {
	if ne == nil {
		panic("phrase: nil note")
	}
	i := len(p.notes)
	for i > 0 && ne.IsBefore(p.notes[i-1]) {
		i--
	}
	p.notes = slices.Insert(p.notes, i, ne)
	p.version++
}

func (p *Phrase) AddAll(notes []*NoteEvent) {
	for _, ne := range notes {
		p.Add(ne)
	}
}

// Remove removes the first note equal to ne and reports whether one was
// found.
func (p *Phrase) Remove(ne *NoteEvent) bool {
	i := p.indexOf(ne)
	if i < 0 {
		return false
	}
	p.notes = slices.Delete(p.notes, i, i+1)
	p.version++
	return true
}

// RemoveAll removes the notes equal to any of notes.
func (p *Phrase) RemoveAll(notes []*NoteEvent) {
	for _, ne := range notes {
		p.Remove(ne)
	}
}

// Replace swaps old for a new note, keeping the list sorted. It reports
// whether old was found.
func (p *Phrase) Replace(old, ne *NoteEvent) bool {
	if !p.Remove(old) {
		return false
	}
	p.Add(ne)
	return true
}

func (p *Phrase) Clear() {
	p.notes = nil
	p.version++
}

func (p *Phrase) indexOf(ne *NoteEvent) int {
	// same pointer first, then structural equality
	if i := slices.Index(p.notes, ne); i >= 0 {
		return i
	}
	return slices.IndexFunc(p.notes, ne.Equal)
}

// Clone returns a phrase with copies of the notes and their metadata.
func (p *Phrase) Clone() *Phrase {
	ret := &Phrase{channel: p.channel, drums: p.drums, notes: make([]*NoteEvent, len(p.notes))}
	for i, ne := range p.notes {
		ret.notes[i] = ne.With(ne.pitch, ne.duration, ne.velocity, ne.position)
	}
	return ret
}

// BeatRange returns the range from the first note start to the last note
// end, or the empty range for an empty phrase.
func (p *Phrase) BeatRange() comper.FloatRange {
	if len(p.notes) == 0 {
		return comper.FloatRange{}
	}
	end := 0.0
	for _, ne := range p.notes {
		end = max(end, ne.End())
	}
	return comper.NewFloatRange(p.notes[0].position, end)
}

// Slice keeps only the notes in [start, end). Notes starting before start are
// dropped unless keepLeft is set and they sound at start; those are moved to
// start and shortened accordingly. If cutRight is set, notes sounding past end
// are shortened to end there.
func (p *Phrase) Slice(start, end float64, keepLeft, cutRight bool) {
	checkRange(start, end)
	var res []*NoteEvent
	for _, ne := range p.notes {
		switch {
		case ne.position < start:
			if !keepLeft || ne.End() <= start {
				continue
			}
			newEnd := ne.End()
			if cutRight && newEnd > end {
				newEnd = end
			}
			res = append(res, ne.With(ne.pitch, newEnd-start, ne.velocity, start))
		case ne.position < end:
			if cutRight && ne.End() > end {
				ne = ne.WithDuration(end - ne.position)
			}
			res = append(res, ne)
		}
	}
	p.set(res)
}

// Split removes the [start, end) interior of the phrase. Notes starting
// before start and sounding past it are shortened to end at start if cutLeft
// is set. If keepRight is set, the part after end of any removed or
// shortened note still sounding at end is kept, starting at end.
func (p *Phrase) Split(start, end float64, cutLeft, keepRight bool) {
	checkRange(start, end)
	var res []*NoteEvent
	remainder := func(ne *NoteEvent) {
		if keepRight && ne.End() > end {
			res = append(res, ne.With(ne.pitch, ne.End()-end, ne.velocity, end))
		}
	}
	for _, ne := range p.notes {
		switch {
		case ne.position < start:
			if !cutLeft || ne.End() <= start {
				res = append(res, ne)
				continue
			}
			res = append(res, ne.WithDuration(start-ne.position))
			remainder(ne)
		case ne.position < end:
			remainder(ne)
		default:
			res = append(res, ne)
		}
	}
	slices.SortStableFunc(res, func(a, b *NoteEvent) int { return cmp.Compare(a.position, b.position) })
	p.set(res)
}

// SilenceAfter removes the notes starting at or after pos and shortens the
// notes sounding at pos to end there.
func (p *Phrase) SilenceAfter(pos float64) {
	var res []*NoteEvent
	for _, ne := range p.notes {
		switch {
		case ne.position >= pos:
			continue
		case ne.End() > pos:
			res = append(res, ne.WithDuration(pos-ne.position))
		default:
			res = append(res, ne)
		}
	}
	p.set(res)
}

// Processed returns a new phrase made of f applied to each note. Notes for
// which f returns nil are left out. Derived notes record their source note as
// parent.
func (p *Phrase) Processed(f func(*NoteEvent) *NoteEvent) *Phrase {
	ret := &Phrase{channel: p.channel, drums: p.drums}
	for _, ne := range p.notes {
		nne := f(ne)
		if nne == nil {
			continue
		}
		if nne != ne {
			nne.SetParentIfAbsent(ne)
		}
		ret.Add(nne)
	}
	return ret
}

// Transposed returns a copy with all pitches moved by semitones, clamped to
// 0-127.
func (p *Phrase) Transposed(semitones int) *Phrase {
	return p.Processed(func(ne *NoteEvent) *NoteEvent {
		return ne.WithPitch(clamp(ne.pitch+semitones, 0, 127))
	})
}

// VelocityShifted returns a copy with all velocities moved by delta, clamped
// to 0-127.
func (p *Phrase) VelocityShifted(delta int) *Phrase {
	return p.Processed(func(ne *NoteEvent) *NoteEvent {
		return ne.WithVelocity(clamp(ne.velocity+delta, 0, 127))
	})
}

// Shifted returns a copy with all positions moved by delta beats. It panics
// if a note would get a negative position.
func (p *Phrase) Shifted(delta float64) *Phrase {
	p.checkShift(delta)
	return p.Processed(func(ne *NoteEvent) *NoteEvent {
		return ne.WithPosition(ne.position + delta)
	})
}

// Shift moves all notes by delta beats in place. It panics if a note would
// get a negative position.
func (p *Phrase) Shift(delta float64) {
	p.checkShift(delta)
	for i, ne := range p.notes {
		p.notes[i] = ne.WithPosition(ne.position + delta)
	}
	p.version++
}

func (p *Phrase) checkShift(delta float64) {
	if len(p.notes) > 0 && p.notes[0].position+delta < 0 {
		panic(fmt.Sprintf("phrase: shift %v moves %v to a negative position", delta, p.notes[0]))
	}
}

// RemoveOverlappedNotes removes, for each pitch, the notes that start and end
// while an earlier note of the same pitch is still sounding.
func (p *Phrase) RemoveOverlappedNotes() {
	ongoingEnd := map[int]float64{}
	var res []*NoteEvent
	for _, ne := range p.notes {
		if e, ok := ongoingEnd[ne.pitch]; ok && e > ne.position && ne.End() <= e+comper.Epsilon {
			continue
		}
		if e, ok := ongoingEnd[ne.pitch]; !ok || ne.End() > e {
			ongoingEnd[ne.pitch] = ne.End()
		}
		res = append(res, ne)
	}
	if len(res) != len(p.notes) {
		p.set(res)
	}
}

// LimitPitchRange moves notes by octaves until their pitch is in
// [low, high]. The range must span at least 11 semitones.
func (p *Phrase) LimitPitchRange(low, high int) {
	if low < 0 || high > 127 || high-low < 11 {
		panic(fmt.Sprintf("phrase: invalid pitch range [%d, %d]", low, high))
	}
	changed := false
	for i, ne := range p.notes {
		pitch := ne.pitch
		for pitch < low {
			pitch += 12
		}
		for pitch > high {
			pitch -= 12
		}
		if pitch != ne.pitch {
			nne := ne.WithPitch(pitch)
			nne.SetParentIfAbsent(ne)
			p.notes[i] = nne
			changed = true
		}
	}
	if changed {
		p.version++
	}
}

// CrossingNotes returns the notes starting before pos and ending after it.
func (p *Phrase) CrossingNotes(pos float64) []*NoteEvent {
	var ret []*NoteEvent
	for _, ne := range p.notes {
		if ne.position >= pos {
			break
		}
		if ne.End() > pos {
			ret = append(ret, ne)
		}
	}
	return ret
}

// Chord returns the first note of each pitch, in phrase order.
func (p *Phrase) Chord() []*NoteEvent {
	seen := map[int]bool{}
	var ret []*NoteEvent
	for _, ne := range p.notes {
		if !seen[ne.pitch] {
			seen[ne.pitch] = true
			ret = append(ret, ne)
		}
	}
	return ret
}

func (p *Phrase) set(notes []*NoteEvent) {
	p.notes = notes
	p.version++
}

func (p *Phrase) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ch%d[", p.channel)
	for i, ne := range p.notes {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ne.String())
	}
	b.WriteByte(']')
	return b.String()
}

func checkRange(start, end float64) {
	if start < 0 || end < start {
		panic(fmt.Sprintf("phrase: invalid beat range [%v, %v)", start, end))
	}
}

func clamp(x, lo, hi int) int {
	return max(lo, min(x, hi))
}
