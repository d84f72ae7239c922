// Package report renders a human readable summary of a generated sequence.
package report

import (
	"embed"
	"fmt"
	"io"
	"strconv"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/vsariola/comper"
	"github.com/vsariola/comper/musicgen"
)

//go:embed templates/*.txt
var templateFS embed.FS

var tmpl = template.Must(template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.txt"))

type (
	// Data is what the summary template is executed with.
	Data struct {
		Song       string
		ID         string
		FromBar    int
		ToBar      int
		Beats      float64
		Ticks      int
		PPQ        int
		Rhythms    []string
		Tracks     []TrackData
		TotalNotes int
	}

	// TrackData holds the statistics of one track. String fields are empty
	// when they do not apply, e.g. the channel of the header track.
	TrackData struct {
		Name    string
		Channel string
		Notes   int
		Range   string
		First   string
		Last    string
	}
)

// Summary writes the track statistics of a built sequence.
func Summary(w io.Writer, res *musicgen.Result, gc *comper.GenerationContext) error {
	return tmpl.ExecuteTemplate(w, "summary", NewData(res, gc))
}

// NewData collects the statistics of a built sequence.
func NewData(res *musicgen.Result, gc *comper.GenerationContext) Data {
	d := Data{
		Song:    gc.Song().Name,
		ID:      res.ID.String(),
		FromBar: gc.BarRange().From(),
		ToBar:   gc.BarRange().To(),
		Beats:   gc.BeatRange().Size(),
		Ticks:   res.Sequence.End(),
		PPQ:     int(res.Sequence.Resolution),
	}
	for _, r := range gc.Rhythms() {
		d.Rhythms = append(d.Rhythms, r.Name)
	}
	voiceTrack := map[int]bool{}
	for _, i := range res.VoiceTracks {
		voiceTrack[i] = true
	}
	for i, t := range res.Sequence.Tracks {
		td := trackData(t)
		if voiceTrack[i] {
			td.Channel = strconv.Itoa(t.Channel + 1)
		}
		d.TotalNotes += td.Notes
		d.Tracks = append(d.Tracks, td)
	}
	return d
}

func trackData(t *musicgen.Track) TrackData {
	td := TrackData{Name: t.Name}
	low, high, first, last := 128, -1, 0, 0
	for _, e := range t.Events() {
		var ch, key, vel uint8
		if !e.Message.GetNoteOn(&ch, &key, &vel) {
			continue
		}
		if td.Notes == 0 {
			first = e.Tick
		}
		last = e.Tick
		td.Notes++
		low, high = min(low, int(key)), max(high, int(key))
	}
	if td.Notes > 0 {
		td.Range = fmt.Sprintf("%s-%s", noteName(low), noteName(high))
		td.First = strconv.Itoa(first)
		td.Last = strconv.Itoa(last)
	}
	return td
}

func noteName(pitch int) string {
	return fmt.Sprintf("%s%d", comper.NoteName(pitch), pitch/12-1)
}
