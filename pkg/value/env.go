package value

import (
	"fmt"
	"sort"
)

// Env is a lexical scope: a frame of bindings with a link to its parent.
// Children only ever point at ancestors, so chains never form cycles.
type Env struct {
	vars   map[string]Value
	parent *Env
}

func NewEnv() *Env {
	return &Env{vars: map[string]Value{}}
}

// Child creates a new innermost scope.
func (e *Env) Child() *Env {
	return &Env{vars: map[string]Value{}, parent: e}
}

func (e *Env) Parent() *Env { return e.parent }

// Define binds name in this frame, replacing any existing binding here.
func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
}

// Lookup searches this frame and then each ancestor.
func (e *Env) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (e *Env) LookupLocal(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Update rebinds an existing name in the nearest frame that defines it.
func (e *Env) Update(name string, v Value) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return nil
		}
	}
	return fmt.Errorf("cannot assign to undefined variable %q", name)
}

// Names returns the names bound directly in this frame, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
