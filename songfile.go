package comper

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	// SongFile is the on-disk form of a Song, readable as .yml or .json.
	// Bars in the leadsheet are leadsheet bars; the structure lists section
	// names in playing order.
	SongFile struct {
		Name      string         `yaml:"name" json:"name"`
		Tempo     int            `yaml:"tempo" json:"tempo"`
		Rhythms   []RhythmFile   `yaml:"rhythms" json:"rhythms"`
		LeadSheet LeadSheetFile  `yaml:"leadsheet" json:"leadsheet"`
		Structure []SongPartFile `yaml:"structure" json:"structure"`
	}

	RhythmFile struct {
		ID            string            `yaml:"id" json:"id"`
		Name          string            `yaml:"name" json:"name"`
		TimeSignature string            `yaml:"timesignature" json:"timesignature"`
		Generator     string            `yaml:"generator" json:"generator"`
		Voices        []VoiceFile       `yaml:"voices" json:"voices"`
		Params        map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	}

	VoiceFile struct {
		Name    string `yaml:"name" json:"name"`
		Type    string `yaml:"type" json:"type"`
		Channel int    `yaml:"channel" json:"channel"`
	}

	LeadSheetFile struct {
		Bars     int           `yaml:"bars" json:"bars"`
		Sections []SectionFile `yaml:"sections" json:"sections"`
		Chords   []ChordFile   `yaml:"chords" json:"chords"`
	}

	SectionFile struct {
		Name          string `yaml:"name" json:"name"`
		Bar           int    `yaml:"bar" json:"bar"`
		TimeSignature string `yaml:"timesignature" json:"timesignature"`
	}

	ChordFile struct {
		Bar       int            `yaml:"bar" json:"bar"`
		Beat      float64        `yaml:"beat" json:"beat"`
		Symbol    string         `yaml:"symbol" json:"symbol"`
		Features  []string       `yaml:"features,omitempty" json:"features,omitempty"`
		Alternate *AlternateFile `yaml:"alternate,omitempty" json:"alternate,omitempty"`
	}

	// AlternateFile is an alternate chord symbol. An empty Symbol is the void
	// alternate.
	AlternateFile struct {
		Symbol   string   `yaml:"symbol,omitempty" json:"symbol,omitempty"`
		Features []string `yaml:"features,omitempty" json:"features,omitempty"`
		Markers  []string `yaml:"markers" json:"markers"`
	}

	SongPartFile struct {
		Section string            `yaml:"section" json:"section"`
		Rhythm  string            `yaml:"rhythm" json:"rhythm"`
		Params  map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	}
)

// ReadSong parses a song from .json or .yml data.
func ReadSong(data []byte) (*Song, error) {
	var f SongFile
	if errJSON := json.Unmarshal(data, &f); errJSON != nil {
		if errYaml := yaml.Unmarshal(data, &f); errYaml != nil {
			return nil, fmt.Errorf("song could not be unmarshaled as a .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return f.Song()
}

// Song builds the song model from the file contents.
func (f *SongFile) Song() (*Song, error) {
	song := &Song{Name: f.Name, Tempo: f.Tempo}
	if song.Tempo == 0 {
		song.Tempo = 120
	}
	for _, rf := range f.Rhythms {
		r, err := rf.rhythm()
		if err != nil {
			return nil, err
		}
		song.Rhythms = append(song.Rhythms, r)
	}
	if len(f.LeadSheet.Sections) == 0 {
		return nil, errors.New("leadsheet has no sections")
	}
	ls, err := f.LeadSheet.leadSheet()
	if err != nil {
		return nil, err
	}
	song.LeadSheet = ls
	song.Structure = NewSongStructure(ls)
	for _, pf := range f.Structure {
		r := song.Rhythm(pf.Rhythm)
		if r == nil {
			return nil, fmt.Errorf("song part %q: unknown rhythm %q", pf.Section, pf.Rhythm)
		}
		if _, err := song.Structure.AddPart(pf.Section, r, pf.Params); err != nil {
			return nil, err
		}
	}
	if err := song.Validate(); err != nil {
		return nil, err
	}
	return song, nil
}

func (rf RhythmFile) rhythm() (*Rhythm, error) {
	ts := FourFour
	if rf.TimeSignature != "" {
		var err error
		if ts, err = ParseTimeSignature(rf.TimeSignature); err != nil {
			return nil, fmt.Errorf("rhythm %q: %v", rf.ID, err)
		}
	}
	r := &Rhythm{ID: rf.ID, Name: rf.Name, TimeSignature: ts, Generator: rf.Generator, Params: rf.Params}
	if r.Name == "" {
		r.Name = r.ID
	}
	for _, vf := range rf.Voices {
		t, err := ParseVoiceType(vf.Type)
		if err != nil {
			return nil, fmt.Errorf("rhythm %q voice %q: %v", rf.ID, vf.Name, err)
		}
		r.Voices = append(r.Voices, &RhythmVoice{Name: vf.Name, Type: t, Channel: vf.Channel})
	}
	return r, nil
}

func (lf LeadSheetFile) leadSheet() (*ChordLeadSheet, error) {
	first := lf.Sections[0]
	if first.Bar != 0 {
		return nil, fmt.Errorf("first section %q must start at bar 0", first.Name)
	}
	if lf.Bars <= 0 {
		return nil, fmt.Errorf("invalid leadsheet size %d", lf.Bars)
	}
	parseTS := func(s string) (TimeSignature, error) {
		if s == "" {
			return FourFour, nil
		}
		return ParseTimeSignature(s)
	}
	ts, err := parseTS(first.TimeSignature)
	if err != nil {
		return nil, err
	}
	ls := NewChordLeadSheet(lf.Bars, first.Name, ts)
	for _, sf := range lf.Sections[1:] {
		ts, err := parseTS(sf.TimeSignature)
		if err != nil {
			return nil, err
		}
		if _, err := ls.AddSection(sf.Name, sf.Bar, ts); err != nil {
			return nil, err
		}
	}
	for _, cf := range lf.Chords {
		sym, err := extChordSymbol(cf.Symbol, cf.Features)
		if err != nil {
			return nil, err
		}
		if cf.Alternate != nil {
			alt := &AltChordSymbol{Markers: cf.Alternate.Markers}
			if cf.Alternate.Symbol != "" {
				s, err := extChordSymbol(cf.Alternate.Symbol, cf.Alternate.Features)
				if err != nil {
					return nil, err
				}
				alt.Symbol = &s
			}
			sym.Alternate = alt
		}
		if err := ls.AddChord(Position{Bar: cf.Bar, Beat: cf.Beat}, sym); err != nil {
			return nil, err
		}
	}
	return ls, nil
}

func extChordSymbol(symbol string, features []string) (ExtChordSymbol, error) {
	cs, err := ParseChordSymbol(symbol)
	if err != nil {
		return ExtChordSymbol{}, err
	}
	ret := ExtChordSymbol{ChordSymbol: cs}
	for _, fs := range features {
		f, err := ParseFeature(fs)
		if err != nil {
			return ExtChordSymbol{}, fmt.Errorf("chord %q: %v", symbol, err)
		}
		ret.Rendering.Features = append(ret.Rendering.Features, f)
	}
	return ret, nil
}
