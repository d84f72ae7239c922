package musicgen

import (
	"context"
	"sort"
	"sync"

	"github.com/vsariola/comper"
)

type (
	// Generator produces the notes of one rhythm. Generate fills the track of
	// each voice of rhythm with the notes of the song parts of gc using that
	// rhythm. A problem with the song should be reported with a generation
	// error.
	Generator interface {
		Generate(ctx context.Context, gc *comper.GenerationContext, rhythm *comper.Rhythm, tracks map[*comper.RhythmVoice]*Track) error
	}

	// GeneratorFunc adapts a function to the Generator interface.
	GeneratorFunc func(ctx context.Context, gc *comper.GenerationContext, rhythm *comper.Rhythm, tracks map[*comper.RhythmVoice]*Track) error

	// Registry maps the generator names used by rhythms to generators.
	Registry struct {
		mu         sync.RWMutex
		generators map[string]Generator
	}
)

func (f GeneratorFunc) Generate(ctx context.Context, gc *comper.GenerationContext, rhythm *comper.Rhythm, tracks map[*comper.RhythmVoice]*Track) error {
	return f(ctx, gc, rhythm, tracks)
}

func NewRegistry() *Registry {
	return &Registry{generators: map[string]Generator{}}
}

// DefaultRegistry returns a registry with the reference generator
// registered as "dummy".
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("dummy", &DummyGenerator{})
	return r
}

func (r *Registry) Register(name string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[name] = g
}

// Lookup returns the generator of a rhythm.
func (r *Registry) Lookup(rhythm *comper.Rhythm) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[rhythm.Generator]
	if !ok {
		return nil, NewGenerationError("No music generator %q available for rhythm %s", rhythm.Generator, rhythm.Name)
	}
	return g, nil
}

// Names returns the registered generator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]string, 0, len(r.generators))
	for n := range r.generators {
		ret = append(ret, n)
	}
	sort.Strings(ret)
	return ret
}
