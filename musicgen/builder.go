package musicgen

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vsariola/comper"
)

type (
	// SequenceBuilder builds the MIDI sequence of a generation context by
	// running the generator of each rhythm, then applies the song part mutes
	// and the MIDI mix settings and checks the result.
	SequenceBuilder struct {
		gc       *comper.GenerationContext
		registry *Registry
		progress func(done, total int)
	}

	Option func(*SequenceBuilder)

	// Result is a built sequence. VoiceTracks gives the index in
	// Sequence.Tracks of each rhythm voice.
	Result struct {
		ID          uuid.UUID
		Sequence    *Sequence
		VoiceTracks map[*comper.RhythmVoice]int
	}
)

// WithProgress sets a function called after each rhythm is generated.
func WithProgress(f func(done, total int)) Option {
	return func(b *SequenceBuilder) { b.progress = f }
}

func NewSequenceBuilder(gc *comper.GenerationContext, registry *Registry, opts ...Option) *SequenceBuilder {
	b := &SequenceBuilder{gc: gc, registry: registry, progress: func(int, int) {}}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build generates the sequence. Any problem aborts the build with a
// generation error and no sequence. The context is checked between rhythms;
// a single generator call is never interrupted.
func (b *SequenceBuilder) Build(ctx context.Context) (*Result, error) {
	id := uuid.New()
	logger := log.FromContext(ctx).With("build", id.String())
	song := b.gc.Song()
	if err := checkStartChords(song.LeadSheet); err != nil {
		return nil, err
	}
	if err := checkChordPositions(song.LeadSheet); err != nil {
		return nil, err
	}
	warnUnusedMarkers(logger, b.gc)
	res := &Result{
		ID:          id,
		Sequence:    &Sequence{Resolution: smf.MetricTicks(comper.PPQ), Tempo: float64(song.Tempo)},
		VoiceTracks: map[*comper.RhythmVoice]int{},
	}
	res.Sequence.Tracks = append(res.Sequence.Tracks, NewTrack(song.Name, 0))
	rhythms := b.gc.Rhythms()
	title := cases.Title(language.English)
	for i, r := range rhythms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gen, err := b.registry.Lookup(r)
		if err != nil {
			return nil, err
		}
		tracks := make(map[*comper.RhythmVoice]*Track, len(r.Voices))
		for _, v := range r.Voices {
			ch, ok := b.gc.MidiMix().Channel(v)
			if !ok {
				return nil, NewGenerationError("Rhythm voice %s of %s has no channel in the MIDI mix", v.Name, r.Name)
			}
			t := NewTrack(title.String(r.Name+" "+v.Name), ch)
			res.VoiceTracks[v] = len(res.Sequence.Tracks)
			res.Sequence.Tracks = append(res.Sequence.Tracks, t)
			tracks[v] = t
		}
		logger.Debug("generating", "rhythm", r.Name, "generator", r.Generator, "voices", len(r.Voices))
		if err := gen.Generate(ctx, b.gc, r, tracks); err != nil {
			if !IsGenerationError(err) {
				err = WrapGenerationError(err, fmt.Sprintf("Rhythm %s: music generation failed: %v", r.Name, err))
			}
			return nil, err
		}
		b.progress(i+1, len(rhythms))
	}
	fixEndOfTracks(res.Sequence, b.gc.TickLength())
	b.muteNotes(res)
	b.applyMix(res)
	if len(rhythms) > 1 {
		if err := b.checkTickRanges(res); err != nil {
			return nil, err
		}
	}
	if err := checkEvents(res.Sequence); err != nil {
		return nil, err
	}
	logger.Debug("built", "tracks", len(res.Sequence.Tracks), "ticks", res.Sequence.End())
	return res, nil
}

// checkStartChords checks every section starts with a chord symbol.
func checkStartChords(ls *comper.ChordLeadSheet) error {
	for _, sec := range ls.Sections() {
		start := comper.Position{Bar: sec.StartBar}
		if !slices.ContainsFunc(ls.Chords(), func(ci comper.ChordItem) bool { return ci.Position == start }) {
			return NewGenerationError("Section %s (bar %d) has no chord symbol at its start", sec.Name, sec.StartBar+1)
		}
	}
	return nil
}

// checkChordPositions checks no two chord symbols share a position.
func checkChordPositions(ls *comper.ChordLeadSheet) error {
	chords := ls.Chords()
	for i := 1; i < len(chords); i++ {
		if chords[i].Position == chords[i-1].Position {
			return NewGenerationError("Chord symbols %v and %v are at the same position %v", chords[i-1].Symbol, chords[i].Symbol, chords[i].Position)
		}
	}
	return nil
}

// warnUnusedMarkers logs the song parts whose marker selects no alternate
// chord symbol of their section.
func warnUnusedMarkers(logger *log.Logger, gc *comper.GenerationContext) {
	ls := gc.Song().LeadSheet
	for _, spt := range gc.SongParts() {
		marker := spt.ParamValue(comper.ParamMarker)
		if marker == "" {
			continue
		}
		used := slices.ContainsFunc(ls.ChordsInBarRange(ls.SectionBarRange(spt.Section)), func(ci comper.ChordItem) bool {
			return ci.Symbol.Alternate != nil && slices.Contains(ci.Symbol.Alternate.Markers, marker)
		})
		if !used {
			logger.Warn("marker matches no alternate chord symbol", "part", spt, "marker", marker)
		}
	}
}

// fixEndOfTracks moves the end-of-track of every track to the same tick.
func fixEndOfTracks(seq *Sequence, length int) {
	end := length
	for _, t := range seq.Tracks {
		end = max(end, t.End())
	}
	for _, t := range seq.Tracks {
		t.SetEnd(end)
	}
}

// muteNotes removes the notes of the voices muted in each song part.
func (b *SequenceBuilder) muteNotes(res *Result) {
	for _, spt := range b.gc.SongParts() {
		ticks := b.gc.PartTickRange(spt)
		for _, name := range spt.MutedVoices() {
			v := spt.Rhythm.Voice(name)
			if v == nil || ticks.IsEmpty() {
				continue
			}
			removeNotes(res.Sequence.Tracks[res.VoiceTracks[v]], ticks)
		}
	}
}

// removeNotes removes the note-ons in ticks and their note-offs.
func removeNotes(t *Track, ticks comper.IntRange) {
	drop := map[int]bool{}
	for i, e := range t.events {
		var ch, key, vel uint8
		if !ticks.Contains(e.Tick) || !e.Message.GetNoteOn(&ch, &key, &vel) {
			continue
		}
		drop[i] = true
		for j := i + 1; j < len(t.events); j++ {
			var ch2, key2, vel2 uint8
			if !drop[j] && t.events[j].Message.GetNoteOff(&ch2, &key2, &vel2) && ch2 == ch && key2 == key {
				drop[j] = true
				break
			}
		}
	}
	t.removeFunc(func(i int, _ Event) bool { return drop[i] })
}

// applyMix applies the velocity shift and the transposition of the channel
// of each voice track. Drum channels are not transposed.
func (b *SequenceBuilder) applyMix(res *Result) {
	for _, idx := range res.VoiceTracks {
		t := res.Sequence.Tracks[idx]
		ins := b.gc.MidiMix().Instrument(t.Channel)
		if ins == nil || (ins.VelocityShift == 0 && (ins.Transposition == 0 || ins.Drums)) {
			continue
		}
		transpose := ins.Transposition
		if ins.Drums {
			transpose = 0
		}
		for i, e := range t.events {
			var ch, key, vel uint8
			switch {
			case e.Message.GetNoteOn(&ch, &key, &vel):
				k := clampInt(int(key)+transpose, 0, 127)
				v := clampInt(int(vel)+ins.VelocityShift, 1, 127)
				t.events[i].Message = smf.Message(midi.NoteOn(ch, uint8(k), uint8(v)))
			case e.Message.GetNoteOff(&ch, &key, &vel):
				k := clampInt(int(key)+transpose, 0, 127)
				t.events[i].Message = smf.Message(midi.NoteOff(ch, uint8(k)))
			}
		}
	}
}

// checkTickRanges checks the notes of each rhythm are inside the song parts
// using that rhythm.
func (b *SequenceBuilder) checkTickRanges(res *Result) error {
	for _, r := range b.gc.Rhythms() {
		var ranges []comper.IntRange
		for _, spt := range b.gc.SongParts() {
			if spt.Rhythm == r {
				ranges = append(ranges, b.gc.PartTickRange(spt))
			}
		}
		for _, v := range r.Voices {
			t := res.Sequence.Tracks[res.VoiceTracks[v]]
			for _, e := range t.events {
				if !isNoteOn(e.Message) {
					continue
				}
				if !slices.ContainsFunc(ranges, func(tr comper.IntRange) bool { return tr.Contains(e.Tick) }) {
					return NewGenerationError("Rhythm %s generated a note at tick %d outside of its song parts (voice %s)", r.Name, e.Tick, v.Name)
				}
			}
		}
	}
	return nil
}

// checkEvents checks every track holds only notes and pitch bends, all on
// one channel.
func checkEvents(seq *Sequence) error {
	for _, t := range seq.Tracks {
		channel := -1
		for _, e := range t.events {
			var ch, key, vel uint8
			var rel int16
			var abs uint16
			switch {
			case e.Message.GetNoteOn(&ch, &key, &vel),
				e.Message.GetNoteOff(&ch, &key, &vel),
				e.Message.GetPitchBend(&ch, &rel, &abs):
			case e.Message.Type() == smf.MetaTrackNameMsg, e.Message.Type() == smf.MetaEndOfTrackMsg:
				continue
			default:
				return NewGenerationError("Track %s contains an unexpected event %v at tick %d", t.Name, e.Message, e.Tick)
			}
			if channel >= 0 && int(ch) != channel {
				return NewGenerationError("Track %s uses several channels (%d and %d)", t.Name, channel, ch)
			}
			channel = int(ch)
		}
	}
	return nil
}

func clampInt(x, lo, hi int) int {
	return max(lo, min(x, hi))
}
