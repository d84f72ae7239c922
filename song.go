package comper

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type (
	// Song is the read-only input of music generation: a chord leadsheet, the
	// song structure that arranges its sections into song parts, and the
	// rhythms used by the song parts. Tempo is in beats per minute.
	Song struct {
		Name      string
		Tempo     int
		LeadSheet *ChordLeadSheet
		Structure *SongStructure
		Rhythms   []*Rhythm
	}

	// ChordLeadSheet holds the sections and the chord symbols of a song, in
	// leadsheet bars. A section spans from its start bar until the next
	// section or the end of the leadsheet.
	ChordLeadSheet struct {
		sizeBars int
		sections []*Section
		chords   []ChordItem
	}

	// Section is a named part of the leadsheet with its own time signature,
	// e.g. "A" or "Bridge".
	Section struct {
		Name          string
		StartBar      int
		TimeSignature TimeSignature
	}

	// SongStructure arranges leadsheet sections one after another into song
	// parts. Song parts are contiguous: each starts where the previous ended.
	SongStructure struct {
		leadSheet *ChordLeadSheet
		parts     []*SongPart
	}

	// SongPart is a contiguous bar range of the song playing one leadsheet
	// section with one rhythm. Params override the rhythm parameter defaults.
	SongPart struct {
		StartBar int
		NbBars   int
		Rhythm   *Rhythm
		Section  *Section
		Params   map[string]string
	}

	// Rhythm is a style of accompaniment: its voices, the name of the
	// generator producing the notes and the default values of its parameters.
	Rhythm struct {
		ID            string
		Name          string
		TimeSignature TimeSignature
		Generator     string
		Voices        []*RhythmVoice
		Params        map[string]string
	}

	// RhythmVoice is one instrument role of a rhythm. Channel is the default
	// MIDI channel, 0-15.
	RhythmVoice struct {
		Name    string
		Type    VoiceType
		Channel int
	}

	VoiceType int

	// MidiMix assigns rhythm voices to MIDI channels and holds the per-channel
	// instrument settings applied after generation.
	MidiMix struct {
		channels    map[*RhythmVoice]int
		instruments map[int]*InstrumentMix
	}

	// InstrumentMix is the setting of one channel. VelocityShift is added to
	// every note-on velocity and Transposition to every pitch, except on drum
	// channels.
	InstrumentMix struct {
		VelocityShift int
		Transposition int
		Drums         bool
	}
)

const (
	VoiceDrums VoiceType = iota
	VoiceBass
	VoiceChord
	VoiceMelody
)

// Rhythm parameters understood by every rhythm.
const (
	// ParamMarker selects the alternate chord symbols of the song part.
	ParamMarker = "marker"
	// ParamMute is a comma separated list of rhythm voice names to silence.
	ParamMute = "mute"
	// ParamVariation selects a variation of the rhythm, e.g. "Main A-1".
	ParamVariation = "variation"
)

var voiceTypeNames = []string{"drums", "bass", "chord", "melody"}

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrInvalidBar     = errors.New("bar out of range")
)

// NewChordLeadSheet returns a leadsheet of sizeBars bars with one section
// named initialSection starting at bar 0.
func NewChordLeadSheet(sizeBars int, initialSection string, ts TimeSignature) *ChordLeadSheet {
	if sizeBars <= 0 {
		panic(fmt.Sprintf("comper: invalid leadsheet size %d", sizeBars))
	}
	return &ChordLeadSheet{
		sizeBars: sizeBars,
		sections: []*Section{{Name: initialSection, StartBar: 0, TimeSignature: ts}},
	}
}

func (c *ChordLeadSheet) SizeInBars() int { return c.sizeBars }

// AddSection adds a section starting at bar. If a section already starts at
// that bar, it is replaced.
func (c *ChordLeadSheet) AddSection(name string, bar int, ts TimeSignature) (*Section, error) {
	if bar < 0 || bar >= c.sizeBars {
		return nil, fmt.Errorf("section %q: %w: %d", name, ErrInvalidBar, bar)
	}
	if s := c.Section(name); s != nil && s.StartBar != bar {
		return nil, fmt.Errorf("duplicate section name %q", name)
	}
	sec := &Section{Name: name, StartBar: bar, TimeSignature: ts}
	i, found := slices.BinarySearchFunc(c.sections, bar, func(s *Section, b int) int { return s.StartBar - b })
	if found {
		c.sections[i] = sec
	} else {
		c.sections = slices.Insert(c.sections, i, sec)
	}
	return sec, nil
}

func (c *ChordLeadSheet) Sections() []*Section { return slices.Clone(c.sections) }

// Section returns the section with the given name or nil.
func (c *ChordLeadSheet) Section(name string) *Section {
	for _, s := range c.sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SectionAt returns the section containing the leadsheet bar.
func (c *ChordLeadSheet) SectionAt(bar int) *Section {
	ret := c.sections[0]
	for _, s := range c.sections {
		if s.StartBar > bar {
			break
		}
		ret = s
	}
	return ret
}

// SectionBarRange returns the leadsheet bars of the section.
func (c *ChordLeadSheet) SectionBarRange(sec *Section) IntRange {
	i := slices.Index(c.sections, sec)
	if i < 0 {
		return IntRange{}
	}
	end := c.sizeBars - 1
	if i+1 < len(c.sections) {
		end = c.sections[i+1].StartBar - 1
	}
	return NewIntRange(sec.StartBar, end)
}

// AddChord adds a chord symbol at a leadsheet position. Chords are kept sorted
// by position; two chords at the same position are allowed here but rejected
// by sequence building.
func (c *ChordLeadSheet) AddChord(pos Position, sym ExtChordSymbol) error {
	if pos.Bar < 0 || pos.Bar >= c.sizeBars {
		return fmt.Errorf("chord %v: %w: %d", sym, ErrInvalidBar, pos.Bar)
	}
	if ts := c.SectionAt(pos.Bar).TimeSignature; pos.Beat < 0 || pos.Beat >= ts.Beats() {
		return fmt.Errorf("chord %v: beat %v outside %v bar", sym, pos.Beat, ts)
	}
	i := len(c.chords)
	for i > 0 && pos.Before(c.chords[i-1].Position) {
		i--
	}
	c.chords = slices.Insert(c.chords, i, ChordItem{Position: pos, Symbol: sym})
	return nil
}

// Chords returns all the chord symbols sorted by position.
func (c *ChordLeadSheet) Chords() []ChordItem { return slices.Clone(c.chords) }

// ChordsInBarRange returns the chord symbols whose bar is in r.
func (c *ChordLeadSheet) ChordsInBarRange(r IntRange) []ChordItem {
	var ret []ChordItem
	for _, ci := range c.chords {
		if r.Contains(ci.Position.Bar) {
			ret = append(ret, ci)
		}
	}
	return ret
}

// NewSongStructure returns an empty song structure playing sections of ls.
func NewSongStructure(ls *ChordLeadSheet) *SongStructure {
	return &SongStructure{leadSheet: ls}
}

// AddPart appends a song part playing the named section with the rhythm.
func (s *SongStructure) AddPart(section string, rhythm *Rhythm, params map[string]string) (*SongPart, error) {
	sec := s.leadSheet.Section(section)
	if sec == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if rhythm == nil {
		return nil, fmt.Errorf("song part %q has no rhythm", section)
	}
	spt := &SongPart{
		StartBar: s.SizeInBars(),
		NbBars:   s.leadSheet.SectionBarRange(sec).Size(),
		Rhythm:   rhythm,
		Section:  sec,
		Params:   params,
	}
	s.parts = append(s.parts, spt)
	return spt, nil
}

func (s *SongStructure) LeadSheet() *ChordLeadSheet { return s.leadSheet }

func (s *SongStructure) Parts() []*SongPart { return slices.Clone(s.parts) }

func (s *SongStructure) SizeInBars() int {
	if len(s.parts) == 0 {
		return 0
	}
	last := s.parts[len(s.parts)-1]
	return last.StartBar + last.NbBars
}

// PartAt returns the song part containing the song bar, or nil.
func (s *SongStructure) PartAt(bar int) *SongPart {
	for _, p := range s.parts {
		if p.BarRange().Contains(bar) {
			return p
		}
	}
	return nil
}

// PartsInRange returns the song parts intersecting the bar range.
func (s *SongStructure) PartsInRange(r IntRange) []*SongPart {
	var ret []*SongPart
	for _, p := range s.parts {
		if !p.BarRange().Intersect(r).IsEmpty() {
			ret = append(ret, p)
		}
	}
	return ret
}

// BarRange returns the song bars of the part.
func (p *SongPart) BarRange() IntRange {
	return NewIntRange(p.StartBar, p.StartBar+p.NbBars-1)
}

// ParamValue returns the value of a rhythm parameter in this part, falling
// back to the rhythm default.
func (p *SongPart) ParamValue(name string) string {
	if v, ok := p.Params[name]; ok {
		return v
	}
	if p.Rhythm != nil {
		return p.Rhythm.Params[name]
	}
	return ""
}

// MutedVoices returns the names listed in the mute parameter.
func (p *SongPart) MutedVoices() []string {
	var ret []string
	for _, n := range strings.Split(p.ParamValue(ParamMute), ",") {
		if n = strings.TrimSpace(n); n != "" {
			ret = append(ret, n)
		}
	}
	return ret
}

func (p *SongPart) String() string {
	return fmt.Sprintf("%s%v", p.Section.Name, p.BarRange())
}

// Voice returns the rhythm voice with the given name or nil.
func (r *Rhythm) Voice(name string) *RhythmVoice {
	for _, v := range r.Voices {
		if strings.EqualFold(v.Name, name) {
			return v
		}
	}
	return nil
}

func (r *Rhythm) String() string { return r.Name }

func ParseVoiceType(s string) (VoiceType, error) {
	if i := slices.Index(voiceTypeNames, strings.ToLower(s)); i >= 0 {
		return VoiceType(i), nil
	}
	return 0, fmt.Errorf("unknown voice type %q", s)
}

func (t VoiceType) String() string {
	if t < 0 || int(t) >= len(voiceTypeNames) {
		return fmt.Sprintf("VoiceType(%d)", int(t))
	}
	return voiceTypeNames[t]
}

// NewMidiMix assigns every voice of the song rhythms to its default channel.
func NewMidiMix(song *Song) *MidiMix {
	m := &MidiMix{channels: map[*RhythmVoice]int{}, instruments: map[int]*InstrumentMix{}}
	for _, r := range song.Rhythms {
		for _, v := range r.Voices {
			m.channels[v] = v.Channel
			if _, ok := m.instruments[v.Channel]; !ok {
				m.instruments[v.Channel] = &InstrumentMix{Drums: v.Type == VoiceDrums}
			}
		}
	}
	return m
}

// Channel returns the channel of a rhythm voice.
func (m *MidiMix) Channel(v *RhythmVoice) (int, bool) {
	ch, ok := m.channels[v]
	return ch, ok
}

// SetChannel moves a rhythm voice to another channel.
func (m *MidiMix) SetChannel(v *RhythmVoice, channel int) {
	if channel < 0 || channel > 15 {
		panic(fmt.Sprintf("comper: invalid channel %d", channel))
	}
	m.channels[v] = channel
	if _, ok := m.instruments[channel]; !ok {
		m.instruments[channel] = &InstrumentMix{Drums: v.Type == VoiceDrums}
	}
}

// Instrument returns the settings of a channel, or nil if no voice uses it.
func (m *MidiMix) Instrument(channel int) *InstrumentMix { return m.instruments[channel] }

// Validate checks the song is usable for generation: a structure with at least
// one part, and rhythm voices on valid channels.
func (s *Song) Validate() error {
	if s.Tempo < 1 {
		return errors.New("tempo should be > 0")
	}
	if s.LeadSheet == nil || s.Structure == nil {
		return errors.New("song has no leadsheet or no structure")
	}
	if len(s.Structure.parts) == 0 {
		return errors.New("song structure contains no parts")
	}
	for _, r := range s.Rhythms {
		for _, v := range r.Voices {
			if v.Channel < 0 || v.Channel > 15 {
				return fmt.Errorf("rhythm %q voice %q: invalid channel %d", r.Name, v.Name, v.Channel)
			}
		}
	}
	return nil
}

// Rhythm returns the rhythm with the given id or nil.
func (s *Song) Rhythm(id string) *Rhythm {
	for _, r := range s.Rhythms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// SizeInBars returns the length of the song structure.
func (s *Song) SizeInBars() int { return s.Structure.SizeInBars() }
