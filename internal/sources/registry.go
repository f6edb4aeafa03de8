// Package sources holds the source registry and the Fetcher interface
// every transport-specific adapter implements.
package sources

import (
	"context"

	"content-harvest/internal/entity"
)

// Fetcher is implemented once per transport (rss, api, html, agent,
// comment_api). It is given only what it needs to do its job: the source
// definition and a fetch context carrying the run id and clock.
type Fetcher interface {
	Fetch(ctx context.Context, fctx entity.FetchContext, src entity.Source) ([]entity.Item, error)
}

// Registry is a read-only, explicitly-constructed collection of sources
// passed down to the orchestrator by parameter rather than held as global
// state, per the design note on registry ownership.
type Registry struct {
	sources  []entity.Source
	fetchers map[entity.Transport]Fetcher
}

// NewRegistry builds a Registry from an explicit source list and the
// transport-to-fetcher bindings the caller wires up (see cmd/harvester for
// the production wiring).
func NewRegistry(srcs []entity.Source, fetchers map[entity.Transport]Fetcher) *Registry {
	cp := make([]entity.Source, len(srcs))
	copy(cp, srcs)
	return &Registry{sources: cp, fetchers: fetchers}
}

// List returns every registered source, optionally filtered to enabled ones.
func (r *Registry) List(includeDisabled bool) []entity.Source {
	if includeDisabled {
		out := make([]entity.Source, len(r.sources))
		copy(out, r.sources)
		return out
	}
	out := make([]entity.Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Get looks up one source by id.
func (r *Registry) Get(id string) (entity.Source, error) {
	for _, s := range r.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return entity.Source{}, &entity.UnknownSource{ID: id}
}

// FetcherFor returns the Fetcher bound to a source's transport.
func (r *Registry) FetcherFor(src entity.Source) (Fetcher, error) {
	f, ok := r.fetchers[src.Transport]
	if !ok {
		return nil, &entity.ValueError{Message: "no fetcher registered for transport " + string(src.Transport)}
	}
	return f, nil
}

// Kinds returns the distinct Kind values any registered source uses.
func (r *Registry) Kinds() []entity.Kind {
	seen := map[entity.Kind]bool{}
	var out []entity.Kind
	for _, s := range r.sources {
		if !seen[s.Kind] {
			seen[s.Kind] = true
			out = append(out, s.Kind)
		}
	}
	return out
}

// Transports returns the distinct Transport values any registered source uses.
func (r *Registry) Transports() []entity.Transport {
	seen := map[entity.Transport]bool{}
	var out []entity.Transport
	for _, s := range r.sources {
		if !seen[s.Transport] {
			seen[s.Transport] = true
			out = append(out, s.Transport)
		}
	}
	return out
}
