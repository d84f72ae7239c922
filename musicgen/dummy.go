package musicgen

import (
	"context"
	"strings"

	"github.com/vsariola/comper"
	"github.com/vsariola/comper/chordseq"
	"github.com/vsariola/comper/grid"
	"github.com/vsariola/comper/phrase"
)

// DummyGenerator is the reference rhythm generator: a walking bass, comping
// chords, a short melodic motif and a basic drum groove, all fitted to the
// chord symbols of the song. A variation parameter value ending with "B"
// plays the hi-hat on eighth notes.
type DummyGenerator struct {
	// CellsPerBeat is the grid resolution used for accents and shots; 0
	// means 4.
	CellsPerBeat int
}

// General MIDI drum keys.
const (
	KeyKick  = 36
	KeySnare = 38
	KeyHiHat = 42
	KeyCrash = 49
)

var c7 = comper.MustParseChordSymbol("C7")

// source phrases written against C7, one bar of 4/4 long
var (
	bassSource   = sourcePhrase(note{36, 1, 90, 0}, note{40, 1, 80, 1}, note{43, 1, 85, 2}, note{46, 1, 80, 3})
	chordSource  = sourcePhrase(note{52, 1.5, 70, 0}, note{55, 1.5, 70, 0}, note{58, 1.5, 70, 0}, note{62, 1.5, 70, 0}, note{52, 0.5, 64, 2.5}, note{55, 0.5, 64, 2.5}, note{58, 0.5, 64, 2.5}, note{62, 0.5, 64, 2.5})
	melodySource = sourcePhrase(note{67, 0.5, 80, 0}, note{64, 0.5, 76, 0.5}, note{72, 1, 84, 1}, note{70, 1, 78, 2.5})
)

type note struct {
	pitch    int
	duration float64
	velocity int
	position float64
}

func sourcePhrase(notes ...note) *phrase.SourcePhrase {
	p := phrase.NewPhrase(0, false)
	for _, n := range notes {
		p.Add(phrase.NewNoteEvent(n.pitch, n.duration, n.velocity, n.position))
	}
	return phrase.NewSourcePhrase(p, c7)
}

func (d *DummyGenerator) Generate(ctx context.Context, gc *comper.GenerationContext, rhythm *comper.Rhythm, tracks map[*comper.RhythmVoice]*Track) error {
	seq, err := chordseq.FromContext(gc)
	if err != nil {
		return WrapGenerationError(err, "No chord symbol found to start the song")
	}
	for _, seg := range seq.Split(gc, rhythm, comper.ParamVariation) {
		for v, t := range tracks {
			p := phrase.NewPhrase(t.Channel, v.Type == comper.VoiceDrums)
			if v.Type == comper.VoiceDrums {
				d.drums(gc, seg, p)
			} else {
				d.pitched(gc, seg.Seq, v.Type, p)
			}
			t.AddPhrase(gc, p)
		}
	}
	return nil
}

func (d *DummyGenerator) pitched(gc *comper.GenerationContext, seq *chordseq.ChordSequence, vt comper.VoiceType, p *phrase.Phrase) {
	for i, ci := range seq.Items() {
		start := gc.PositionToBeat(ci.Position)
		dur := seq.ChordDuration(i, gc)
		var fitted *phrase.Phrase
		switch vt {
		case comper.VoiceBass:
			fitted = phrase.FitBassPhrase(bassSource, ci.Symbol)
		case comper.VoiceChord:
			fitted = phrase.FitChordPhrase(chordSource, ci.Symbol)
		default:
			fitted = phrase.FitMelodyPhrase(melodySource, ci.Symbol)
		}
		for bar := 0.0; bar < dur; bar += 4 {
			part := fitted.Clone()
			part.Slice(0, min(4, dur-bar), false, true)
			p.AddAll(part.Shifted(start + bar).Notes())
		}
	}
	if vt == comper.VoiceBass {
		p.LimitPitchRange(28, 55)
	}
	d.render(gc, seq, p)
}

// render applies the rendering features of the chord symbols.
func (d *DummyGenerator) render(gc *comper.GenerationContext, seq *chordseq.ChordSequence, p *phrase.Phrase) {
	start, end := gc.PositionToBeat(seq.Start()), gc.PositionToBeat(seq.End())
	g := grid.New(p, start, end, d.cellsPerBeat(), nil)
	for _, ci := range seq.Items() {
		cc := grid.NewChordContext(ci, seq, g, gc)
		if cc.ChordCell < 0 {
			continue
		}
		if cc.ChordCell > 0 {
			g.StopNotesBefore(cc.ChordCell)
		}
		r := ci.Symbol.Rendering
		switch {
		case r.Has(comper.AccentStronger):
			g.ScaleVelocity(cc.ChordCell, cc.ChordCell, 1.4)
		case r.Has(comper.Accent):
			g.ScaleVelocity(cc.ChordCell, cc.ChordCell, 1.2)
		}
		switch {
		case r.Has(comper.Shot):
			g.ChangeDuration(cc.ChordCell, cc.ChordCell, cc.ChordCell+1, true, false)
		case r.Has(comper.Hold), r.Has(comper.ExtendedHoldShot):
			off := cc.ChordCell + 1
			if !cc.After.IsEmpty() {
				off = cc.After.To() + 1
			}
			g.ChangeDuration(cc.ChordCell, cc.ChordCell, off, false, true)
		}
		if r.HasHoldOrShot() && !cc.After.IsEmpty() {
			g.RemoveNotes(cc.After.From(), cc.After.To())
		}
	}
	p.RemoveOverlappedNotes()
}

func (d *DummyGenerator) drums(gc *comper.GenerationContext, seg chordseq.Segment, p *phrase.Phrase) {
	start, end := gc.PositionToBeat(seg.Seq.Start()), gc.PositionToBeat(seg.Seq.End())
	step := 1.0
	if strings.HasSuffix(seg.Value, "B") {
		step = 0.5
	}
	for b := start; b < end-comper.Epsilon; b++ {
		key := KeyKick
		if int(b-start)%2 == 1 {
			key = KeySnare
		}
		p.Add(phrase.NewNoteEvent(key, 0.25, 100, b))
	}
	for b := start; b < end-comper.Epsilon; b += step {
		p.Add(phrase.NewNoteEvent(KeyHiHat, 0.25, 70, b))
	}
	for _, ci := range seg.Seq.Items() {
		r := ci.Symbol.Rendering
		if (r.HasAccent() || r.Has(comper.Crash)) && !r.Has(comper.NoCrash) {
			p.Add(phrase.NewNoteEvent(KeyCrash, 1, 110, gc.PositionToBeat(ci.Position)))
		}
	}
}

func (d *DummyGenerator) cellsPerBeat() int {
	if d.CellsPerBeat <= 0 {
		return 4
	}
	return d.CellsPerBeat
}
