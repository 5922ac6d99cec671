package check

import (
	"github.com/vito/warden/pkg/ast"
)

type bindingKind int

const (
	bindLocal bindingKind = iota
	bindParam
	bindLoop
	bindPattern
	bindGlobal
	bindSynthetic
)

// Binding is a name in scope together with what the lint pass needs to
// know about it.
type Binding struct {
	Name    string
	Type    Type
	Mutable bool
	Span    ast.Span
	Kind    bindingKind
	Used    bool
}

// linted reports whether an unread binding of this kind is worth a warning.
func (b *Binding) linted() bool {
	switch b.Kind {
	case bindLocal, bindParam, bindLoop:
		return true
	}
	return false
}

// Scope is one frame of the type environment. Bindings records every
// binding made in the frame, including ones later shadowed, so unused
// warnings can be reported when the frame closes.
type Scope struct {
	vars     map[string]*Binding
	bindings []*Binding
	parent   *Scope
}

func newScope(parent *Scope) *Scope {
	return &Scope{vars: map[string]*Binding{}, parent: parent}
}

func (s *Scope) define(b *Binding) (shadowed *Binding) {
	shadowed = s.vars[b.Name]
	s.vars[b.Name] = b
	s.bindings = append(s.bindings, b)
	return shadowed
}

func (s *Scope) lookup(name string) (*Binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// TypeEnv holds the registries filled by the collection pass. They are
// owned by a single Checker.
type TypeEnv struct {
	Aliases  map[string]*ast.TypeDecl
	Records  map[string]*ast.TypeDecl
	Enums    map[string]*ast.EnumDecl
	Variants map[string]*ast.EnumDecl
	Effects  map[string]*ast.EffectDecl
	Traits   map[string]*ast.TraitDecl
	// Impls maps a target type name to its methods.
	Impls     map[string]map[string]*ast.FnDecl
	Functions map[string]*FnType
	Async     map[string]bool
}

func newTypeEnv() *TypeEnv {
	return &TypeEnv{
		Aliases:   map[string]*ast.TypeDecl{},
		Records:   map[string]*ast.TypeDecl{},
		Enums:     map[string]*ast.EnumDecl{},
		Variants:  map[string]*ast.EnumDecl{},
		Effects:   map[string]*ast.EffectDecl{},
		Traits:    map[string]*ast.TraitDecl{},
		Impls:     map[string]map[string]*ast.FnDecl{},
		Functions: map[string]*FnType{},
		Async:     map[string]bool{},
	}
}
