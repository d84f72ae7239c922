package musicgen_test

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/vsariola/comper/musicgen"
)

func TestTrackAdd(t *testing.T) {
	tr := musicgen.NewTrack("piano", 2)
	tr.AddNote(60, 100, 0, 480)
	tr.AddNote(60, 90, 480, 960)
	tr.AddNote(64, 200, 240, 240)
	events := tr.Events()
	if len(events) != 6 || tr.NoteCount() != 3 {
		t.Fatalf("got %d events, %d notes", len(events), tr.NoteCount())
	}
	for i := 1; i < len(events); i++ {
		if events[i].Tick < events[i-1].Tick {
			t.Fatalf("events not sorted: %v", events)
		}
	}
	var ch, key, vel uint8
	// the note-off of the first note comes before the second note-on at 480
	for _, e := range events {
		if e.Tick != 480 {
			continue
		}
		if !e.Message.GetNoteOff(&ch, &key, &vel) {
			t.Errorf("first event at 480 should be a note-off, got %v", e.Message)
		}
		break
	}
	for _, e := range events {
		if e.Message.GetNoteOn(&ch, &key, &vel) && key == 64 {
			if vel != 127 || ch != 2 {
				t.Errorf("note 64: channel %d velocity %d, want 2 and 127", ch, vel)
			}
		}
		if e.Message.GetNoteOff(&ch, &key, &vel) && key == 64 && e.Tick != 241 {
			t.Errorf("an empty note should last one tick, ends at %d", e.Tick)
		}
	}
	if tr.End() != 960 {
		t.Errorf("End() = %d", tr.End())
	}
	tr.SetEnd(100)
	if tr.End() != 960 {
		t.Error("SetEnd should not cut events")
	}
	tr.SetEnd(2000)
	if tr.End() != 2000 {
		t.Errorf("SetEnd(2000) gave %d", tr.End())
	}
}

func TestTrackAddNegativeTickPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("a negative tick should panic")
		}
	}()
	musicgen.NewTrack("x", 0).Add(-1, smf.Message(midi.NoteOn(0, 60, 100)))
}

func TestTrackSMF(t *testing.T) {
	tr := musicgen.NewTrack("bass", 1)
	tr.AddNote(36, 100, 960, 1920)
	tr.AddPitchBend(1000, 512)
	tr.SetEnd(3840)
	st := tr.SMF()
	if len(st) != 5 {
		t.Fatalf("got %d SMF events, want 5", len(st))
	}
	var name string
	if !st[0].Message.GetMetaTrackName(&name) || name != "bass" {
		t.Errorf("first event should name the track, got %v", st[0].Message)
	}
	wantDeltas := []uint32{0, 960, 40, 920, 1920}
	for i, e := range st {
		if e.Delta != wantDeltas[i] {
			t.Errorf("event %d delta %d, want %d", i, e.Delta, wantDeltas[i])
		}
	}
	if st[4].Message.Type() != smf.MetaEndOfTrackMsg {
		t.Errorf("last event should end the track, got %v", st[4].Message)
	}
}

func TestSequenceWriteTo(t *testing.T) {
	seq := &musicgen.Sequence{Resolution: smf.MetricTicks(960), Tempo: 140}
	seq.Tracks = append(seq.Tracks, musicgen.NewTrack("song", 0))
	tr := musicgen.NewTrack("bass", 1)
	tr.AddNote(36, 100, 0, 960)
	seq.Tracks = append(seq.Tracks, tr)
	var buf bytes.Buffer
	if _, err := seq.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	read, err := smf.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("written file could not be read back: %v", err)
	}
	if len(read.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(read.Tracks))
	}
	if read.TimeFormat != smf.MetricTicks(960) {
		t.Errorf("time format %v", read.TimeFormat)
	}
	var bpm float64
	found := false
	for _, e := range read.Tracks[0] {
		if e.Message.GetMetaTempo(&bpm) {
			found = true
		}
	}
	if !found || bpm < 139.9 || bpm > 140.1 {
		t.Errorf("tempo %v (found %v), want 140", bpm, found)
	}
}
