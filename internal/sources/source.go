package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"chartly/internal/tabular"
)

// ── Source ──────────────────────────────────────────────────
// A Source pulls raw tabular data from somewhere — an uploaded file, a
// shared spreadsheet, an external database — and hands back a decoded
// Dataset ready for schema inference and import. Implementations live
// in this package, one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// ConfigField describes a single configuration input for a source.
// The frontend auto-renders the form from this spec.
type ConfigField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // "string" | "select" | "textarea" | "password" | "file"
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"` // for "select" type
	Default  string   `json:"default,omitempty"`
	Help     string   `json:"help,omitempty"`
}

// SourceSpec describes a source type: its label, icon, and config fields.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	Icon         string        `json:"icon"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Resolve pulls the source's data and decodes it into a Dataset.
	// sampleSize bounds metadata scanning per column.
	Resolve(ctx context.Context, cfg SourceConfig, sampleSize int) (*tabular.Dataset, error)
}

// ── Source Registry ────────────────────────────────────────
// Sources carry injected collaborators (file store, API clients,
// connectors), so the registry is built at startup rather than filled
// from init() hooks.

type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewRegistry(srcs ...Source) *Registry {
	r := &Registry{sources: map[string]Source{}}
	for _, s := range srcs {
		r.Register(s)
	}
	return r
}

// Register adds a source under its spec type, replacing any previous
// registration of the same type.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Spec().Type] = s
}

// Get returns a registered source by type, or an error if not found.
func (r *Registry) Get(typ string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// List returns the specs of all registered sources, sorted by type.
func (r *Registry) List() []SourceSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]SourceSpec, 0, len(r.sources))
	for _, s := range r.sources {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}
