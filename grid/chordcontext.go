package grid

import (
	"math"

	"github.com/vsariola/comper"
	"github.com/vsariola/comper/chordseq"
)

// ChordContext is the geometry of one chord symbol of a sequence on a grid.
// All ranges are cell ranges and are empty when there is no such cell, e.g.
// for a chord on the first cell Before is empty.
type ChordContext struct {
	Chord comper.ChordItem
	// ChordCell is the cell of the chord, or -1 if the chord is outside the
	// grid.
	ChordCell int
	// RelativeCell is the index of ChordCell within its beat, counted from the
	// whole beat, also when the grid starts off the beat.
	RelativeCell int
	// Before spans the cells after the previous chord up to this chord.
	Before comper.IntRange
	// After spans the cells after this chord up to the next chord or the grid
	// end.
	After comper.IntRange
	// BeforeInBeat is the part of Before in the beat of the chord.
	BeforeInBeat comper.IntRange
	// AfterInBeat is the part of After in the beat of the chord.
	AfterInBeat comper.IntRange
	// BeatRange spans from the chord position to the end of After, minus the
	// pre-cell window.
	BeatRange comper.FloatRange
}

// NewChordContext computes the context of item, which must be part of seq.
// pc converts the sequence positions to the beats of the grid phrase.
func NewChordContext(item comper.ChordItem, seq *chordseq.ChordSequence, g *Grid, pc comper.PositionConverter) *ChordContext {
	ret := &ChordContext{Chord: item, ChordCell: -1}
	beat := pc.PositionToBeat(item.Position)
	ret.ChordCell = g.cellOrNone(beat)
	if ret.ChordCell < 0 {
		return ret
	}
	cpb := g.cellsPerBeat
	ret.RelativeCell = g.cellInBeat(ret.ChordCell)
	prevCell, nextCell := -1, g.lastCell+1
	if i := seq.IndexOf(item.Position); i >= 0 {
		if i > 0 {
			prevCell = g.cellOrNone(pc.PositionToBeat(seq.At(i - 1).Position))
		}
		if i+1 < seq.Len() {
			if c := g.cellOrNone(pc.PositionToBeat(seq.At(i + 1).Position)); c >= 0 {
				nextCell = c
			}
		}
	}
	ret.Before = cellRange(prevCell+1, ret.ChordCell-1)
	ret.After = cellRange(ret.ChordCell+1, nextCell-1)
	beatStart := ret.ChordCell - ret.RelativeCell
	ret.BeforeInBeat = ret.Before.Intersect(cellRange(beatStart, ret.ChordCell-1))
	ret.AfterInBeat = ret.After.Intersect(cellRange(ret.ChordCell+1, beatStart+cpb-1))
	lastCell := ret.ChordCell
	if !ret.After.IsEmpty() {
		lastCell = ret.After.To()
	}
	end := g.StartPos(lastCell+1) - g.preCellWindow
	ret.BeatRange = comper.NewFloatRange(beat, max(beat, end))
	return ret
}

// cellOrNone is like CellIndex but returns -1 for positions before the
// grid.
func (g *Grid) cellOrNone(pos float64) int {
	if pos < g.start-g.preCellWindow-comper.Epsilon {
		return -1
	}
	return g.CellIndex(pos)
}

// cellInBeat returns the index of a cell within the beat it starts in.
func (g *Grid) cellInBeat(cell int) int {
	pos := g.StartPos(cell)
	frac := pos - math.Floor(pos+comper.Epsilon)
	return max(0, int(math.Floor(frac*float64(g.cellsPerBeat)+comper.Epsilon)))
}

func cellRange(from, to int) comper.IntRange {
	if to < from {
		return comper.IntRange{}
	}
	return comper.NewIntRange(from, to)
}
