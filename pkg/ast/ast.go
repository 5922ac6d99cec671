package ast

import (
	"fmt"
	"strings"
)

// Span locates a node in its source file. Start and End are byte offsets;
// Line and Column are 1-based and point at Start.
type Span struct {
	File   string
	Line   int
	Column int
	Start  int
	End    int
}

func (s Span) GetSpan() Span { return s }

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// IsZero reports whether the span carries no location at all.
func (s Span) IsZero() bool {
	return s == Span{}
}

type Node interface {
	GetSpan() Span
}

type Item interface {
	Node
	isItem()
}

type Stmt interface {
	Node
	isStmt()
}

type Expr interface {
	Node
	isExpr()
}

// Module is the unit handed over by the parser: a dotted path plus its
// top-level items in source order.
type Module struct {
	Span
	Path  []string
	Items []Item
}

func (m *Module) Name() string {
	return strings.Join(m.Path, ".")
}

// Functions returns the module's function declarations in source order.
func (m *Module) Functions() []*FnDecl {
	var fns []*FnDecl
	for _, item := range m.Items {
		if fn, ok := item.(*FnDecl); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Function finds a top-level function by name.
func (m *Module) Function(name string) (*FnDecl, bool) {
	for _, fn := range m.Functions() {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// ImportDecl imports a module. With Names set it is a named import
// (`import a.b.{x, y}`); otherwise the whole module is bound under Alias, or
// under the last path segment.
type ImportDecl struct {
	Span
	Path  []string
	Names []string
	Alias string
}

func (d *ImportDecl) PathString() string { return strings.Join(d.Path, ".") }

// Binding is the name a whole-module import introduces.
func (d *ImportDecl) Binding() string {
	if d.Alias != "" {
		return d.Alias
	}
	if len(d.Path) == 0 {
		return ""
	}
	return d.Path[len(d.Path)-1]
}

// Field is a named, typed slot of a record type, enum variant or effect op.
type Field struct {
	Span
	Name string
	Type TypeExpr
}

// TypeDecl declares either an alias (`type Age = Int where self >= 0`) or a
// record type (`type Point { x: Int, y: Int }`). Invariant is optional and is
// evaluated with the candidate value bound to `self`.
type TypeDecl struct {
	Span
	Name      string
	Params    []string
	Alias     TypeExpr
	Fields    []Field
	Invariant Expr
}

func (d *TypeDecl) IsRecord() bool { return d.Alias == nil }

// Variant is one case of an enum. A variant with a single unnamed field
// carries its payload directly; named fields make a record payload.
type Variant struct {
	Span
	Name   string
	Fields []Field
}

// IsTupleLike reports whether the variant carries a single positional payload.
func (v Variant) IsTupleLike() bool {
	return len(v.Fields) == 1 && v.Fields[0].Name == ""
}

type EnumDecl struct {
	Span
	Name     string
	Params   []string
	Variants []Variant
}

func (d *EnumDecl) Variant(name string) (Variant, bool) {
	for _, v := range d.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// FnSig is a bodiless signature, used by traits and effects.
type FnSig struct {
	Span
	Name    string
	Params  []Param
	Return  TypeExpr
	Effects []string
}

type TraitDecl struct {
	Span
	Name    string
	Methods []FnSig
}

// EffectDecl declares a user-defined effect and its operations.
type EffectDecl struct {
	Span
	Name string
	Ops  []FnSig
}

func (d *EffectDecl) Op(name string) (FnSig, bool) {
	for _, op := range d.Ops {
		if op.Name == name {
			return op, true
		}
	}
	return FnSig{}, false
}

type Param struct {
	Span
	Name string
	Type TypeExpr
}

// FnDecl is a named function. EffectsSpan points at the declared effect list
// (or where it would go) so fixes can be suggested against it.
type FnDecl struct {
	Span
	Name        string
	Params      []Param
	Return      TypeExpr
	Effects     []string
	EffectsSpan Span
	Requires    []Expr
	Ensures     []Expr
	Body        *Block
	Async       bool
	Public      bool
}

type ImplDecl struct {
	Span
	Trait   string
	Target  string
	Methods []*FnDecl
}

type TestDecl struct {
	Span
	Name string
	Body *Block
}

// PropertyDecl is a test whose parameters are generated from the Rand
// capability on every run.
type PropertyDecl struct {
	Span
	Name   string
	Params []Param
	Body   *Block
}

func (*ImportDecl) isItem()   {}
func (*TypeDecl) isItem()     {}
func (*EnumDecl) isItem()     {}
func (*TraitDecl) isItem()    {}
func (*EffectDecl) isItem()   {}
func (*FnDecl) isItem()       {}
func (*ImplDecl) isItem()     {}
func (*TestDecl) isItem()     {}
func (*PropertyDecl) isItem() {}
