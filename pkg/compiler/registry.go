package compiler

import "sort"

// FunctionMapping tells the generator how to rewrite a call to a builtin.
type FunctionMapping struct {
	Target          string // emitted callee, e.g. "_ta.sma" or "Math.abs"
	NeedsSeriesWrap bool   // first argument is passed as a series accessor
	AppendsContext  bool   // ctx is passed as the last argument
	Arity           int    // maximum positional arguments; 0 means unchecked
}

// FunctionRegistry resolves source call names ("ta.sma", "nz") to mappings.
// Registries that also implement Names enable "did you mean" suggestions.
type FunctionRegistry interface {
	Lookup(name string) (FunctionMapping, bool)
}

type nameLister interface {
	Names() []string
}

// MapRegistry is a FunctionRegistry backed by a plain map.
type MapRegistry map[string]FunctionMapping

func (r MapRegistry) Lookup(name string) (FunctionMapping, bool) {
	m, ok := r[name]
	return m, ok
}

// Names returns every registered name in sorted order.
func (r MapRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new registry holding r overlaid with each of others.
func (r MapRegistry) Merge(others ...MapRegistry) MapRegistry {
	out := make(MapRegistry, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}
