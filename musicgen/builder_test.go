package musicgen_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/vsariola/comper"
	"github.com/vsariola/comper/musicgen"
)

func readSong(t *testing.T, name string) *comper.Song {
	t.Helper()
	data, err := os.ReadFile("../testdata/" + name)
	if err != nil {
		t.Fatalf("could not read %v: %v", name, err)
	}
	song, err := comper.ReadSong(data)
	if err != nil {
		t.Fatalf("could not parse %v: %v", name, err)
	}
	return song
}

func build(t *testing.T, song *comper.Song, mix *comper.MidiMix, bars comper.IntRange, registry *musicgen.Registry) (*musicgen.Result, error) {
	t.Helper()
	gc, err := comper.NewGenerationContext(song, mix, bars)
	if err != nil {
		t.Fatalf("NewGenerationContext failed: %v", err)
	}
	return musicgen.NewSequenceBuilder(gc, registry).Build(context.Background())
}

func voiceTrack(t *testing.T, song *comper.Song, res *musicgen.Result, rhythm, voice string) *musicgen.Track {
	t.Helper()
	v := song.Rhythm(rhythm).Voice(voice)
	i, ok := res.VoiceTracks[v]
	if !ok {
		t.Fatalf("no track for %s %s", rhythm, voice)
	}
	return res.Sequence.Tracks[i]
}

type noteOn struct {
	tick     int
	key, vel uint8
}

func noteOns(tr *musicgen.Track) []noteOn {
	var ret []noteOn
	for _, e := range tr.Events() {
		var ch, key, vel uint8
		if e.Message.GetNoteOn(&ch, &key, &vel) {
			ret = append(ret, noteOn{e.Tick, key, vel})
		}
	}
	return ret
}

func TestBuildDummy(t *testing.T) {
	song := readSong(t, "b1b2b1.yml")
	var progress []string
	gc, err := comper.NewGenerationContext(song, nil, comper.IntRange{})
	if err != nil {
		t.Fatalf("NewGenerationContext failed: %v", err)
	}
	b := musicgen.NewSequenceBuilder(gc, musicgen.DefaultRegistry(), musicgen.WithProgress(func(done, total int) {
		progress = append(progress, fmt.Sprintf("%d/%d", done, total))
	}))
	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(res.Sequence.Tracks) != 5 || res.Sequence.Tracks[0].Name != "B1 B2 B1" {
		t.Fatalf("unexpected tracks %v", res.Sequence.Tracks)
	}
	if strings.Join(progress, ",") != "1/1" {
		t.Errorf("progress calls %v", progress)
	}
	length := gc.TickLength()
	for _, tr := range res.Sequence.Tracks {
		if tr.End() != length {
			t.Errorf("track %v should end at %d", tr, length)
		}
	}
	for _, voice := range []string{"drums", "bass", "piano", "lead"} {
		tr := voiceTrack(t, song, res, "swing", voice)
		notes := noteOns(tr)
		if len(notes) == 0 {
			t.Errorf("voice %s has no notes", voice)
		}
		for _, n := range notes {
			if n.tick < 0 || n.tick >= length {
				t.Errorf("voice %s: note at tick %d outside the song", voice, n.tick)
			}
		}
	}
	if tr := voiceTrack(t, song, res, "swing", "drums"); tr.Channel != 9 || tr.Name != "Swing Drums" {
		t.Errorf("drums track %v", tr)
	}
	for _, n := range noteOns(voiceTrack(t, song, res, "swing", "bass")) {
		if n.key < 28 || n.key > 55 {
			t.Errorf("bass note %d outside the bass range", n.key)
		}
	}
	// Cm7 for 2 bars, then Bb: the bass starts on C and plays Bb at bar 2
	bass := noteOns(voiceTrack(t, song, res, "swing", "bass"))
	if comper.RelativePitch(int(bass[0].key)) != 0 {
		t.Errorf("first bass note %d should be a C", bass[0].key)
	}
	for _, n := range bass {
		if n.tick == 8*comper.PPQ && comper.RelativePitch(int(n.key)) != 10 {
			t.Errorf("bass note at bar 2 is %d, want a Bb", n.key)
		}
	}
}

func TestBuildBarRange(t *testing.T) {
	song := readSong(t, "b1b2b1.yml")
	res, err := build(t, song, nil, comper.NewIntRange(1, 5), musicgen.DefaultRegistry())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	bass := noteOns(voiceTrack(t, song, res, "swing", "bass"))
	if len(bass) == 0 || bass[0].tick != 0 || comper.RelativePitch(int(bass[0].key)) != 0 {
		t.Errorf("the prior Cm7 should be played at the start of the range: %v", bass)
	}
	if got := res.Sequence.End(); got != 20*comper.PPQ {
		t.Errorf("sequence end %d, want %d", got, 20*comper.PPQ)
	}
}

func TestBuildMuteAndMix(t *testing.T) {
	song := readSong(t, "standard.yml")
	res, err := build(t, song, nil, comper.IntRange{}, musicgen.DefaultRegistry())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	gc, _ := comper.NewGenerationContext(song, nil, comper.IntRange{})
	muted := gc.PartTickRange(song.Structure.Parts()[2])
	bass := noteOns(voiceTrack(t, song, res, "swing", "bass"))
	if len(bass) == 0 {
		t.Fatal("bass should play in the first part")
	}
	for _, n := range bass {
		if muted.Contains(n.tick) {
			t.Errorf("muted bass plays at tick %d", n.tick)
		}
	}
	if len(noteOns(voiceTrack(t, song, res, "waltz", "bass"))) == 0 {
		t.Error("the waltz bass should play")
	}

	mix := comper.NewMidiMix(song)
	mix.Instrument(2).Transposition = 12
	mix.Instrument(2).VelocityShift = -10
	mix.Instrument(9).Transposition = 5
	shifted, err := build(t, song, mix, comper.IntRange{}, musicgen.DefaultRegistry())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	orig, moved := noteOns(voiceTrack(t, song, res, "swing", "piano")), noteOns(voiceTrack(t, song, shifted, "swing", "piano"))
	if len(orig) != len(moved) || len(orig) == 0 {
		t.Fatalf("transposition changed the note count: %d vs %d", len(orig), len(moved))
	}
	// notes at the same tick may be reordered, compare sums
	sum := func(ns []noteOn) (keys, vels int) {
		for _, n := range ns {
			keys += int(n.key)
			vels += int(n.vel)
		}
		return keys, vels
	}
	ok1, ov1 := sum(orig)
	ok2, ov2 := sum(moved)
	if ok2-ok1 != 12*len(orig) || ov1-ov2 != 10*len(orig) {
		t.Errorf("piano not transposed by 12 and shifted by -10: keys %d->%d velocities %d->%d", ok1, ok2, ov1, ov2)
	}
	dk1, _ := sum(noteOns(voiceTrack(t, song, res, "swing", "drums")))
	dk2, _ := sum(noteOns(voiceTrack(t, song, shifted, "swing", "drums")))
	if dk1 != dk2 {
		t.Error("drum channels should not be transposed")
	}
}

func TestBuildSongErrors(t *testing.T) {
	cases := map[string]string{
		"duplicate position": `name: dup
rhythms: [{id: r, generator: dummy, voices: [{name: bass, type: bass, channel: 1}]}]
leadsheet:
  bars: 2
  sections: [{name: A, bar: 0}]
  chords: [{bar: 0, beat: 0, symbol: C7}, {bar: 1, beat: 0, symbol: F7}, {bar: 1, beat: 0, symbol: G7}]
structure: [{section: A, rhythm: r}]
`,
		"no start chord": `name: start
rhythms: [{id: r, generator: dummy, voices: [{name: bass, type: bass, channel: 1}]}]
leadsheet:
  bars: 4
  sections: [{name: A, bar: 0}, {name: B, bar: 2}]
  chords: [{bar: 0, beat: 0, symbol: C7}, {bar: 2, beat: 1, symbol: F7}]
structure: [{section: A, rhythm: r}, {section: B, rhythm: r}]
`,
		"unknown generator": `name: gen
rhythms: [{id: r, generator: bossa, voices: [{name: bass, type: bass, channel: 1}]}]
leadsheet:
  bars: 1
  sections: [{name: A, bar: 0}]
  chords: [{bar: 0, beat: 0, symbol: C7}]
structure: [{section: A, rhythm: r}]
`,
	}
	for name, data := range cases {
		song, err := comper.ReadSong([]byte(data))
		if err != nil {
			t.Fatalf("%s: ReadSong failed: %v", name, err)
		}
		res, err := build(t, song, nil, comper.IntRange{}, musicgen.DefaultRegistry())
		if err == nil || res != nil {
			t.Errorf("%s: Build should fail", name)
			continue
		}
		if !musicgen.IsGenerationError(err) || musicgen.UserMessage(err) == "" {
			t.Errorf("%s: error %v should be a generation error with a user message", name, err)
		}
	}
}

func TestBuildGeneratorErrors(t *testing.T) {
	song := readSong(t, "standard.yml")
	gen := func(f func(rhythm *comper.Rhythm, tracks map[*comper.RhythmVoice]*musicgen.Track) error) *musicgen.Registry {
		r := musicgen.NewRegistry()
		r.Register("dummy", musicgen.GeneratorFunc(func(_ context.Context, _ *comper.GenerationContext, rhythm *comper.Rhythm, tracks map[*comper.RhythmVoice]*musicgen.Track) error {
			return f(rhythm, tracks)
		}))
		return r
	}
	errBoom := errors.New("boom")
	cases := map[string]*musicgen.Registry{
		"plain error": gen(func(*comper.Rhythm, map[*comper.RhythmVoice]*musicgen.Track) error { return errBoom }),
		"note outside its parts": gen(func(r *comper.Rhythm, tracks map[*comper.RhythmVoice]*musicgen.Track) error {
			if r.ID == "waltz" {
				for _, tr := range tracks {
					tr.AddNote(40, 100, 0, 100)
				}
			}
			return nil
		}),
		"unexpected event": gen(func(_ *comper.Rhythm, tracks map[*comper.RhythmVoice]*musicgen.Track) error {
			for _, tr := range tracks {
				tr.Add(0, smf.Message(midi.ControlChange(uint8(tr.Channel), 7, 100)))
			}
			return nil
		}),
		"several channels": gen(func(r *comper.Rhythm, tracks map[*comper.RhythmVoice]*musicgen.Track) error {
			if r.ID == "swing" {
				for _, tr := range tracks {
					tr.AddNote(60, 100, 0, 10)
					tr.Add(20, smf.Message(midi.NoteOn(uint8((tr.Channel+1)%16), 60, 100)))
				}
			}
			return nil
		}),
	}
	for name, registry := range cases {
		_, err := build(t, song, nil, comper.IntRange{}, registry)
		if !musicgen.IsGenerationError(err) {
			t.Errorf("%s: error %v should be a generation error", name, err)
		}
	}
	_, err := build(t, song, nil, comper.IntRange{}, cases["plain error"])
	if !errors.Is(err, errBoom) {
		t.Errorf("the generator error should be wrapped, got %v", err)
	}
}

func TestBuildCanceled(t *testing.T) {
	song := readSong(t, "standard.yml")
	gc, _ := comper.NewGenerationContext(song, nil, comper.IntRange{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := musicgen.NewSequenceBuilder(gc, musicgen.DefaultRegistry()).Build(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Build error = %v, want context.Canceled", err)
	}
}

func TestRegistry(t *testing.T) {
	r := musicgen.DefaultRegistry()
	r.Register("bossa", &musicgen.DummyGenerator{CellsPerBeat: 3})
	if got := strings.Join(r.Names(), ","); got != "bossa,dummy" {
		t.Errorf("Names() = %q", got)
	}
	if _, err := r.Lookup(&comper.Rhythm{Name: "x", Generator: "samba"}); !musicgen.IsGenerationError(err) {
		t.Errorf("Lookup of a missing generator = %v", err)
	}
}

func TestGenerationErrors(t *testing.T) {
	err := musicgen.NewGenerationError("Chord %s is wrong", "C7")
	if !musicgen.IsGenerationError(err) || musicgen.UserMessage(err) != "Chord C7 is wrong" {
		t.Errorf("unexpected error %v, %q", err, musicgen.UserMessage(err))
	}
	base := errors.New("low level")
	wrapped := musicgen.WrapGenerationError(base, "Something went wrong")
	if !errors.Is(wrapped, base) || !musicgen.IsGenerationError(wrapped) {
		t.Errorf("wrapped error %v", wrapped)
	}
	if musicgen.IsGenerationError(base) || musicgen.UserMessage(base) != "low level" {
		t.Error("a plain error is not a generation error")
	}
	if musicgen.WrapGenerationError(nil, "x") != nil {
		t.Error("wrapping nil should give nil")
	}
}
