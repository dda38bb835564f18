package rpcservice

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrDuplicateMethod is returned when two registrations normalize to the
// same wire name. Duplicates are a configuration error surfaced at startup,
// not a runtime condition.
var ErrDuplicateMethod = errors.New("duplicate method name")

// MethodInfo is one introspection descriptor.
type MethodInfo struct {
	Name       string      `json:"name"`
	Parameters []ParamInfo `json:"parameters"`
}

// ParamInfo names one bindable parameter and its protocol-level type.
type ParamInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type registered struct {
	name   string
	method *Method
}

// Registry maps normalized wire names to method descriptors. It is populated
// before serving starts; lookups afterward are concurrent and read-only.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*registered
	ordered []*registered
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registered)}
}

// Register derives and inserts the wire name for every member of the given
// sets. The first name that normalizes to one already present fails with
// ErrDuplicateMethod.
func (r *Registry) Register(sets ...*MethodSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range sets {
		for _, m := range set.methods {
			name := normalizeName(m.wireName(set.unit))
			if _, exists := r.byName[name]; exists {
				return fmt.Errorf("%w: %q", ErrDuplicateMethod, name)
			}
			ent := &registered{name: name, method: m}
			r.byName[name] = ent
			r.ordered = append(r.ordered, ent)
		}
	}
	return nil
}

// Resolve performs a case-insensitive lookup. Absence is an expected,
// recoverable outcome reported through the boolean rather than an error.
func (r *Registry) Resolve(name string) (*Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return ent.method, true
}

// Len reports the number of registered methods.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// All returns a descriptor for every registered method in registration
// order. Ignored parameters never bind from the wire, so they are omitted
// from the listing.
func (r *Registry) All() []MethodInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MethodInfo, 0, len(r.ordered))
	for _, ent := range r.ordered {
		info := MethodInfo{Name: ent.name, Parameters: []ParamInfo{}}
		for _, p := range ent.method.params {
			if p.Ignored {
				continue
			}
			info.Parameters = append(info.Parameters, ParamInfo{Name: p.Name, Type: p.TypeName})
		}
		out = append(out, info)
	}
	return out
}

// normalizeName strips a trailing async suffix from a derived name and
// lowercases the result. The suffix is removed only when it truly ends the
// name.
func normalizeName(name string) string {
	name = strings.TrimSuffix(name, asyncSuffix)
	return strings.ToLower(name)
}
