// Package effects defines the effect vocabulary shared by the checker and
// the evaluator, and the capability objects that implement built-in effects
// at run time.
package effects

import (
	"slices"
	"sort"
	"strings"
)

const (
	Console = "Console"
	Fs      = "Fs"
	Net     = "Net"
	Clock   = "Clock"
	Rand    = "Rand"
	Env     = "Env"
)

// Builtins lists the built-in effects in their canonical order.
var Builtins = []string{Console, Fs, Net, Clock, Rand, Env}

// IsBuiltin reports whether name is a built-in effect. Every other name is
// a user-defined effect.
func IsBuiltin(name string) bool {
	return slices.Contains(Builtins, name)
}

// Set is a set of effect names.
type Set map[string]struct{}

func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Add(name string) {
	s[name] = struct{}{}
}

func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Len() int { return len(s) }

// Union returns a new set holding the effects of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range other {
		out[n] = struct{}{}
	}
	return out
}

func (s Set) IsSubsetOf(other Set) bool {
	for n := range s {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// Difference returns the effects in s that are not in other.
func (s Set) Difference(other Set) Set {
	out := Set{}
	for n := range s {
		if !other.Contains(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Slice returns the effects sorted by name.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s Set) String() string {
	return "{" + strings.Join(s.Slice(), ", ") + "}"
}
