package musicgen

import (
	"fmt"
	"io"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/vsariola/comper"
	"github.com/vsariola/comper/phrase"
)

type (
	// Event is a MIDI message at an absolute tick.
	Event struct {
		Tick    int
		Message smf.Message
	}

	// Track is a list of events sorted by tick, ended by an end-of-track at
	// End. Channel is the channel used by AddNote and AddPhrase.
	Track struct {
		Name    string
		Channel int
		events  []Event
		end     int
	}

	// Sequence is a list of tracks. The first track holds the sequence name
	// only.
	Sequence struct {
		Tracks     []*Track
		Resolution smf.MetricTicks
		Tempo      float64
	}
)

func NewTrack(name string, channel int) *Track {
	return &Track{Name: name, Channel: channel}
}

// Add inserts a message at tick, after the other messages at that tick.
// Note-offs are kept before note-ons of the same tick, so a note released and
// played again at the same tick is not cut.
func (t *Track) Add(tick int, msg smf.Message) {
	if tick < 0 {
		panic(fmt.Sprintf("musicgen: negative tick %d", tick))
	}
	off := isNoteOff(msg)
	i := len(t.events)
	for i > 0 && (t.events[i-1].Tick > tick || (off && t.events[i-1].Tick == tick && isNoteOn(t.events[i-1].Message))) {
		i--
	}
	t.events = slices.Insert(t.events, i, Event{Tick: tick, Message: msg})
	t.end = max(t.end, tick)
}

// AddNote adds a note-on and its note-off. The velocity is clamped to 1-127,
// as a note-on with velocity 0 is a note-off.
func (t *Track) AddNote(key, velocity, start, end int) {
	if end <= start {
		end = start + 1
	}
	ch := uint8(t.Channel)
	t.Add(start, smf.Message(midi.NoteOn(ch, uint8(key), uint8(max(1, min(velocity, 127))))))
	t.Add(end, smf.Message(midi.NoteOff(ch, uint8(key))))
}

// AddPhrase adds the notes of a phrase, converting song beats to ticks of the
// context.
func (t *Track) AddPhrase(gc *comper.GenerationContext, p *phrase.Phrase) {
	for ne := range p.All() {
		t.AddNote(ne.Pitch(), ne.Velocity(), gc.BeatToTick(ne.Position()), gc.BeatToTick(ne.End()))
	}
}

// AddPitchBend adds a pitch bend, value in -8192..8191.
func (t *Track) AddPitchBend(tick int, value int16) {
	t.Add(tick, smf.Message(midi.Pitchbend(uint8(t.Channel), value)))
}

// Events returns a copy of the events.
func (t *Track) Events() []Event { return slices.Clone(t.events) }

func (t *Track) Len() int { return len(t.events) }

// End returns the tick of the end-of-track.
func (t *Track) End() int { return t.end }

// SetEnd moves the end-of-track. It cannot be set before the last event.
func (t *Track) SetEnd(tick int) {
	if n := len(t.events); n > 0 && t.events[n-1].Tick > tick {
		tick = t.events[n-1].Tick
	}
	t.end = tick
}

// NoteCount returns the number of note-ons.
func (t *Track) NoteCount() int {
	n := 0
	for _, e := range t.events {
		if isNoteOn(e.Message) {
			n++
		}
	}
	return n
}

// removeFunc removes the events for which f returns true.
func (t *Track) removeFunc(f func(i int, e Event) bool) {
	ret := t.events[:0]
	for i, e := range t.events {
		if !f(i, e) {
			ret = append(ret, e)
		}
	}
	t.events = ret
}

// SMF returns the track as a Standard MIDI File track with delta times.
func (t *Track) SMF() smf.Track {
	var tr smf.Track
	if t.Name != "" {
		tr = append(tr, smf.Event{Delta: 0, Message: smf.MetaTrackSequenceName(t.Name)})
	}
	last := 0
	for _, e := range t.events {
		tr = append(tr, smf.Event{Delta: uint32(e.Tick - last), Message: e.Message})
		last = e.Tick
	}
	tr = append(tr, smf.Event{Delta: uint32(max(t.end, last) - last), Message: smf.EOT})
	return tr
}

func (t *Track) String() string {
	return fmt.Sprintf("%s(ch%d, %d events, end %d)", t.Name, t.Channel, len(t.events), t.end)
}

// SMF returns the sequence as a type 1 Standard MIDI File. The tempo is
// written in the first track.
func (s *Sequence) SMF() *smf.SMF {
	ret := smf.New()
	ret.TimeFormat = s.Resolution
	for i, t := range s.Tracks {
		tr := t.SMF()
		if i == 0 && s.Tempo > 0 {
			tr = slices.Insert(tr, 0, smf.Event{Delta: 0, Message: smf.MetaTempo(s.Tempo)})
		}
		ret.Add(tr)
	}
	return ret
}

// WriteFile writes the sequence as a .mid file.
func (s *Sequence) WriteFile(path string) error {
	return s.SMF().WriteFile(path)
}

// WriteTo writes the sequence in Standard MIDI File format.
func (s *Sequence) WriteTo(w io.Writer) (int64, error) {
	return s.SMF().WriteTo(w)
}

// End returns the end-of-track tick shared by all tracks.
func (s *Sequence) End() int {
	end := 0
	for _, t := range s.Tracks {
		end = max(end, t.End())
	}
	return end
}

func isNoteOn(msg smf.Message) bool {
	var ch, key, vel uint8
	return msg.GetNoteOn(&ch, &key, &vel)
}

func isNoteOff(msg smf.Message) bool {
	var ch, key, vel uint8
	return msg.GetNoteOff(&ch, &key, &vel)
}
