// Package grid quantizes the notes of a phrase into fixed length cells, so
// that rhythm generators can query and edit notes by cell index.
//
// A note played slightly early, within the pre-cell window before a cell
// starts, belongs to that cell. The cell index is built when the grid is
// created and by Refresh. Edits made through the grid refresh it
// automatically; after editing the phrase directly, the owner must call
// Refresh before using the grid again.
package grid

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/vsariola/comper"
	"github.com/vsariola/comper/phrase"
)

// Grid is a view of the notes of a phrase in [start, end), split into cells
// of 1/cellsPerBeat beats.
type Grid struct {
	phrase        *phrase.Phrase
	start, end    float64
	cellsPerBeat  int
	cellDuration  float64
	preCellWindow float64
	lastCell      int
	filter        func(*phrase.NoteEvent) bool
	cells         [][]*phrase.NoteEvent
	version       int
}

// PreCellWindowDefault is the largest pre-cell window, in beats. A grid uses
// the smaller of this and its cell duration.
var PreCellWindowDefault = 0.1

// CheckStale makes queries panic when the phrase changed since the last
// Refresh. It is meant for debugging generators.
var CheckStale = false

// New returns a grid over the notes of p in [start, end) accepted by filter.
// A nil filter accepts all notes.
func New(p *phrase.Phrase, start, end float64, cellsPerBeat int, filter func(*phrase.NoteEvent) bool) *Grid {
	if cellsPerBeat <= 0 {
		panic(fmt.Sprintf("grid: invalid cells per beat %d", cellsPerBeat))
	}
	if start < 0 || end <= start {
		panic(fmt.Sprintf("grid: invalid beat range [%v, %v)", start, end))
	}
	if filter == nil {
		filter = func(*phrase.NoteEvent) bool { return true }
	}
	cd := 1 / float64(cellsPerBeat)
	g := &Grid{
		phrase:        p,
		start:         start,
		end:           end,
		cellsPerBeat:  cellsPerBeat,
		cellDuration:  cd,
		preCellWindow: min(PreCellWindowDefault, cd),
		lastCell:      int(math.Round((end-start)*float64(cellsPerBeat))) - 1,
		filter:        filter,
	}
	g.Refresh()
	return g
}

func (g *Grid) Phrase() *phrase.Phrase { return g.phrase }
func (g *Grid) CellsPerBeat() int      { return g.cellsPerBeat }
func (g *Grid) CellDuration() float64  { return g.cellDuration }
func (g *Grid) PreCellWindow() float64 { return g.preCellWindow }
func (g *Grid) LastCell() int          { return g.lastCell }
func (g *Grid) Cells() comper.IntRange { return comper.NewIntRange(0, g.lastCell) }
func (g *Grid) Start() float64         { return g.start }
func (g *Grid) End() float64           { return g.end }

// CellIndex returns the cell of a beat position. A position at or after the
// pre-cell window before the start of a cell belongs to that cell. It returns
// -1 for positions belonging past the last cell, and panics for positions
// before the first cell.
func (g *Grid) CellIndex(pos float64) int {
	if pos < g.start-g.preCellWindow-comper.Epsilon {
		panic(fmt.Sprintf("grid: position %v before grid start %v", pos, g.start))
	}
	cell := int(math.Floor((pos-g.start+g.preCellWindow)/g.cellDuration + comper.Epsilon))
	if cell > g.lastCell {
		return -1
	}
	return max(cell, 0)
}

// StartPos returns the beat position where a cell starts. LastCell()+1 is
// accepted and returns the grid end.
func (g *Grid) StartPos(cell int) float64 {
	g.checkCell(cell, true)
	return g.start + float64(cell)*g.cellDuration
}

// CellBeatRange returns the positions belonging to a cell: from the pre-cell
// window before its start up to the pre-cell window before the next cell.
func (g *Grid) CellBeatRange(cell int) comper.FloatRange {
	g.checkCell(cell, false)
	from := g.StartPos(cell) - g.preCellWindow
	return comper.NewFloatRange(from, from+g.cellDuration)
}

// CellRange returns the cells starting inside r, possibly none.
func (g *Grid) CellRange(r comper.FloatRange) comper.IntRange {
	if r.IsEmpty() {
		return comper.IntRange{}
	}
	from := int(math.Ceil((r.From()-g.start)/g.cellDuration - comper.Epsilon))
	to := int(math.Floor((r.To()-g.start)/g.cellDuration + comper.Epsilon))
	if g.start+float64(to)*g.cellDuration >= r.To()-comper.Epsilon && r.Size() > 0 {
		to-- // upper bound is exclusive
	}
	from, to = max(from, 0), min(to, g.lastCell)
	if to < from {
		return comper.IntRange{}
	}
	return comper.NewIntRange(from, to)
}

// Refresh rebuilds the cell index from the phrase.
func (g *Grid) Refresh() {
	g.cells = make([][]*phrase.NoteEvent, g.lastCell+1)
	for ne := range g.phrase.All() {
		pos := ne.Position()
		if pos < g.start-g.preCellWindow-comper.Epsilon || !g.filter(ne) {
			continue
		}
		if pos >= g.end {
			break
		}
		if c := g.CellIndex(pos); c >= 0 {
			g.cells[c] = append(g.cells[c], ne)
		}
	}
	g.version = g.phrase.Version()
}

// Stale reports whether the phrase changed since the last Refresh.
func (g *Grid) Stale() bool { return g.version != g.phrase.Version() }

// CellNotes returns the notes of cells [from, to] in phrase order.
func (g *Grid) CellNotes(from, to int) []*phrase.NoteEvent {
	g.checkFresh()
	g.checkCell(from, false)
	g.checkCell(to, false)
	var ret []*phrase.NoteEvent
	for c := from; c <= to; c++ {
		ret = append(ret, g.cells[c]...)
	}
	return ret
}

// NonEmptyCells returns the indexes of cells holding notes.
func (g *Grid) NonEmptyCells() []int {
	g.checkFresh()
	var ret []int
	for c, notes := range g.cells {
		if len(notes) > 0 {
			ret = append(ret, c)
		}
	}
	return ret
}

// MaxNotesCell returns the cell with the most notes, the first one if
// several cells qualify, or -1 if the grid is empty.
func (g *Grid) MaxNotesCell() int {
	g.checkFresh()
	ret, n := -1, 0
	for c, notes := range g.cells {
		if len(notes) > n {
			ret, n = c, len(notes)
		}
	}
	return ret
}

// FirstNote returns the first note of a cell or nil.
func (g *Grid) FirstNote(cell int) *phrase.NoteEvent {
	g.checkFresh()
	g.checkCell(cell, false)
	if len(g.cells[cell]) == 0 {
		return nil
	}
	return g.cells[cell][0]
}

// LastNote returns the last note of a cell or nil.
func (g *Grid) LastNote(cell int) *phrase.NoteEvent {
	g.checkFresh()
	g.checkCell(cell, false)
	if n := len(g.cells[cell]); n > 0 {
		return g.cells[cell][n-1]
	}
	return nil
}

// FirstNoteCell returns the first cell of r holding notes, or -1.
func (g *Grid) FirstNoteCell(r comper.IntRange) int {
	g.checkFresh()
	r = r.Intersect(g.Cells())
	for c := r.From(); !r.IsEmpty() && c <= r.To(); c++ {
		if len(g.cells[c]) > 0 {
			return c
		}
	}
	return -1
}

// LastNoteCell returns the last cell of r holding notes, or -1.
func (g *Grid) LastNoteCell(r comper.IntRange) int {
	g.checkFresh()
	r = r.Intersect(g.Cells())
	for c := r.To(); !r.IsEmpty() && c >= r.From(); c-- {
		if len(g.cells[c]) > 0 {
			return c
		}
	}
	return -1
}

// IsEmpty reports whether no cell of r holds notes.
func (g *Grid) IsEmpty(r comper.IntRange) bool { return g.FirstNoteCell(r) == -1 }

// RemoveNotes removes the notes of cells [from, to] from the phrase and
// returns them.
func (g *Grid) RemoveNotes(from, to int) []*phrase.NoteEvent {
	notes := g.CellNotes(from, to)
	g.phrase.RemoveAll(notes)
	g.Refresh()
	return notes
}

// AddNote adds a copy of ne placed at relPos beats after the start of a
// cell and returns it.
func (g *Grid) AddNote(cell int, ne *phrase.NoteEvent, relPos float64) *phrase.NoteEvent {
	nne := ne.WithPosition(max(0, g.StartPos(cell)+relPos))
	g.phrase.Add(nne)
	g.Refresh()
	return nne
}

// ChangeDuration makes the notes of cells [from, to] end at the start of
// cellOff. Notes are only shortened if shorterOk and only lengthened if
// longerOk, and never become shorter than one cell. When two notes of the
// same pitch would be changed, only the first is kept.
func (g *Grid) ChangeDuration(from, to, cellOff int, shorterOk, longerOk bool) {
	newEnd := g.StartPos(cellOff)
	changed := map[int]bool{}
	for _, ne := range g.CellNotes(from, to) {
		dur := max(newEnd-ne.Position(), g.cellDuration)
		if (dur < ne.Duration() && !shorterOk) || (dur > ne.Duration() && !longerOk) || dur == ne.Duration() {
			continue
		}
		if changed[ne.Pitch()] {
			g.phrase.Remove(ne)
			continue
		}
		changed[ne.Pitch()] = true
		g.phrase.Replace(ne, ne.WithDuration(dur))
	}
	g.Refresh()
}

// ChangeVelocity replaces the velocity of the notes of cells [from, to] by
// f(velocity), clamped to 0-127.
func (g *Grid) ChangeVelocity(from, to int, f func(int) int) {
	for _, ne := range g.CellNotes(from, to) {
		v := max(0, min(f(ne.Velocity()), 127))
		if v != ne.Velocity() {
			g.phrase.Replace(ne, ne.WithVelocity(v))
		}
	}
	g.Refresh()
}

func (g *Grid) AddVelocity(from, to, delta int) {
	g.ChangeVelocity(from, to, func(v int) int { return v + delta })
}

func (g *Grid) ScaleVelocity(from, to int, factor float64) {
	g.ChangeVelocity(from, to, func(v int) int { return int(math.Round(float64(v) * factor)) })
}

// MoveNotes moves all the notes of cell src by the distance between src and
// dest. Positions are clamped to 0. If keepNoteOffPosition is set, notes moved
// earlier are lengthened so they still end at the same position. It returns
// the moved notes.
func (g *Grid) MoveNotes(src, dest int, keepNoteOffPosition bool) []*phrase.NoteEvent {
	var ret []*phrase.NoteEvent
	for _, ne := range g.CellNotes(src, src) {
		ret = append(ret, g.move(ne, src, dest, keepNoteOffPosition))
	}
	g.Refresh()
	return ret
}

// MoveFirstNote is like MoveNotes but only moves the first note of src. It
// returns nil if the cell is empty.
func (g *Grid) MoveFirstNote(src, dest int, keepNoteOffPosition bool) *phrase.NoteEvent {
	ne := g.FirstNote(src)
	if ne == nil {
		return nil
	}
	ret := g.move(ne, src, dest, keepNoteOffPosition)
	g.Refresh()
	return ret
}

func (g *Grid) move(ne *phrase.NoteEvent, src, dest int, keepNoteOffPosition bool) *phrase.NoteEvent {
	pos := max(0, ne.Position()+g.StartPos(dest)-g.StartPos(src))
	dur := ne.Duration()
	if keepNoteOffPosition && pos < ne.Position() {
		dur += ne.Position() - pos
	}
	nne := ne.With(ne.Pitch(), dur, ne.Velocity(), pos)
	g.phrase.Replace(ne, nne)
	return nne
}

// StopNotesBefore shortens the notes still sounding at the start of cell,
// minus the pre-cell window, to end there.
func (g *Grid) StopNotesBefore(cell int) {
	pos := g.StartPos(cell) - g.preCellWindow
	for _, ne := range g.phrase.CrossingNotes(pos) {
		if g.filter(ne) {
			g.phrase.Replace(ne, ne.WithDuration(pos-ne.Position()))
		}
	}
	g.Refresh()
}

func (g *Grid) checkCell(cell int, allowEnd bool) {
	last := g.lastCell
	if allowEnd {
		last++
	}
	if cell < 0 || cell > last {
		panic(fmt.Sprintf("grid: cell %d outside [0, %d]", cell, last))
	}
}

func (g *Grid) checkFresh() {
	if CheckStale && g.Stale() {
		panic("grid: phrase changed since last Refresh")
	}
}

func (g *Grid) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Grid[%v,%v) cpb=%d\n", g.start, g.end, g.cellsPerBeat)
	for _, c := range g.NonEmptyCells() {
		fmt.Fprintf(&b, "  %d: %v\n", c, slices.Clone(g.cells[c]))
	}
	return b.String()
}
