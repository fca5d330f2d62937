package reconstruct

import "sort"

// Registry maps model names to their sources. It is built once and never
// mutated, so it can be shared by concurrent requests.
type Registry struct {
	sources  map[string]PointSource
	fallback PointSource
}

// NewRegistry copies sources. Missing models resolve to an UnavailableSource.
func NewRegistry(sources map[string]PointSource) *Registry {
	r := &Registry{
		sources:  make(map[string]PointSource, len(sources)),
		fallback: &UnavailableSource{},
	}
	for name, src := range sources {
		if src != nil {
			r.sources[name] = src
		}
	}
	return r
}

// Source returns the source for name and whether one was registered.
func (r *Registry) Source(name string) (PointSource, bool) {
	src, ok := r.sources[name]
	if !ok {
		return r.fallback, false
	}
	return src, true
}

// Fallback is the source used when a model's own source fails.
func (r *Registry) Fallback() PointSource {
	return r.fallback
}

// Describe reports each registered model's source kind.
func (r *Registry) Describe() map[string]SourceKind {
	out := make(map[string]SourceKind, len(r.sources))
	for name, src := range r.sources {
		out[name] = src.Kind()
	}
	return out
}

// Available lists models backed by something other than the fallback, sorted.
func (r *Registry) Available() []string {
	var names []string
	for name, src := range r.sources {
		if src.Kind() != KindUnavailable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
