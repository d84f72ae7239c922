// Package comper holds the data model of jazz accompaniment generation: music
// theory (degrees, chord types, chord symbols), bar/beat positions, the
// read-only song model (leadsheet, song structure, rhythms, MIDI mix) and the
// GenerationContext binding them for one generation request.
//
// Subpackages build on it: phrase holds note collections and chord fitting,
// grid quantizes phrases into cells, chordseq extracts chord sequences from a
// song and musicgen assembles generated tracks into a MIDI sequence.
package comper

import "errors"

// PPQ is the number of ticks per quarter note of every generated sequence.
const PPQ = 960

var ErrInvalidBarRange = errors.New("bar range outside the song")
