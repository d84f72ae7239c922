package phrase

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/vsariola/comper"
)

type (
	// NoteEvent is one played note. Pitch, duration, velocity and position are
	// fixed at construction; edits always derive a new NoteEvent. Only the
	// attached Metadata may change afterwards.
	NoteEvent struct {
		pitch    int
		duration float64
		velocity int
		position float64
		meta     *Metadata
	}

	// NoteKey is the structural identity of a note, usable as a map key.
	NoteKey struct {
		Pitch    int
		Duration float64
		Velocity int
		Position float64
	}

	// Metadata is a small ordered map attached to a note. It tracks where a
	// note came from across transformations.
	Metadata struct {
		keys   []string
		values map[string]any
	}
)

// ParentKey is the metadata key of the note a derived note was made from.
const ParentKey = "parent"

// NewNoteEvent returns a note without metadata. It panics if the pitch or the
// velocity is outside 0-127, or if the duration or the position is negative.
func NewNoteEvent(pitch int, duration float64, velocity int, position float64) *NoteEvent {
	if pitch < 0 || pitch > 127 {
		panic(fmt.Sprintf("phrase: invalid pitch %d", pitch))
	}
	if velocity < 0 || velocity > 127 {
		panic(fmt.Sprintf("phrase: invalid velocity %d", velocity))
	}
	if !(duration >= 0) {
		panic(fmt.Sprintf("phrase: invalid duration %v", duration))
	}
	if !(position >= 0) {
		panic(fmt.Sprintf("phrase: invalid position %v", position))
	}
	return &NoteEvent{pitch: pitch, duration: duration, velocity: velocity, position: position, meta: &Metadata{}}
}

func (n *NoteEvent) Pitch() int          { return n.pitch }
func (n *NoteEvent) Duration() float64   { return n.duration }
func (n *NoteEvent) Velocity() int       { return n.velocity }
func (n *NoteEvent) Position() float64   { return n.position }
func (n *NoteEvent) Metadata() *Metadata { return n.meta }

// End returns the beat position where the note stops sounding.
func (n *NoteEvent) End() float64 { return n.position + n.duration }

// BeatRange returns [Position, End].
func (n *NoteEvent) BeatRange() comper.FloatRange {
	return comper.NewFloatRange(n.position, n.End())
}

// With derives a note with new fields and a copy of the metadata.
func (n *NoteEvent) With(pitch int, duration float64, velocity int, position float64) *NoteEvent {
	ret := NewNoteEvent(pitch, duration, velocity, position)
	ret.meta = n.meta.Clone()
	return ret
}

func (n *NoteEvent) WithPitch(pitch int) *NoteEvent {
	return n.With(pitch, n.duration, n.velocity, n.position)
}

func (n *NoteEvent) WithDuration(duration float64) *NoteEvent {
	return n.With(n.pitch, duration, n.velocity, n.position)
}

func (n *NoteEvent) WithVelocity(velocity int) *NoteEvent {
	return n.With(n.pitch, n.duration, velocity, n.position)
}

func (n *NoteEvent) WithPosition(position float64) *NoteEvent {
	return n.With(n.pitch, n.duration, n.velocity, position)
}

// WithoutMetadata derives an identical note with empty metadata.
func (n *NoteEvent) WithoutMetadata() *NoteEvent {
	return NewNoteEvent(n.pitch, n.duration, n.velocity, n.position)
}

// Parent returns the note this note was derived from, if recorded.
func (n *NoteEvent) Parent() *NoteEvent {
	p, _ := n.meta.Get(ParentKey).(*NoteEvent)
	return p
}

// SetParentIfAbsent records p as the parent unless a parent is already
// recorded, so that chained transformations keep the original lineage.
func (n *NoteEvent) SetParentIfAbsent(p *NoteEvent) {
	if n.meta.Get(ParentKey) == nil {
		n.meta.Set(ParentKey, p)
	}
}

// Equal compares the notes ignoring metadata.
func (n *NoteEvent) Equal(o *NoteEvent) bool { return n.Key() == o.Key() }

func (n *NoteEvent) Key() NoteKey {
	return NoteKey{Pitch: n.pitch, Duration: n.duration, Velocity: n.velocity, Position: n.position}
}

// IsBefore reports whether n starts strictly before o.
func (n *NoteEvent) IsBefore(o *NoteEvent) bool { return n.position < o.position }

func (n *NoteEvent) String() string {
	return fmt.Sprintf("%s%d(d=%s v=%d)@%s", comper.NoteName(n.pitch), n.pitch/12-1,
		strconv.FormatFloat(n.duration, 'f', -1, 64), n.velocity,
		strconv.FormatFloat(n.position, 'f', -1, 64))
}

// Set sets a value, appending the key if it is new.
func (m *Metadata) Set(key string, value any) {
	if m.values == nil {
		m.values = map[string]any{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value of a key, or nil.
func (m *Metadata) Get(key string) any { return m.values[key] }

func (m *Metadata) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string { return slices.Clone(m.keys) }

func (m *Metadata) Len() int { return len(m.keys) }

// Clone copies the map. Values are shared.
func (m *Metadata) Clone() *Metadata {
	ret := &Metadata{keys: slices.Clone(m.keys), values: make(map[string]any, len(m.values))}
	for k, v := range m.values {
		ret.values[k] = v
	}
	return ret
}
