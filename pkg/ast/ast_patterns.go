package ast

import "strings"

type Pattern interface {
	Node
	isPattern()
}

// WildcardPattern is `_`.
type WildcardPattern struct {
	Span
}

// IdentPattern matches anything and binds it.
type IdentPattern struct {
	Span
	Name string
}

// LiteralPattern matches by structural equality against a literal
// expression.
type LiteralPattern struct {
	Span
	Value Expr
}

// VariantPattern matches Some/None/Ok/Err or a named enum variant.
type VariantPattern struct {
	Span
	Name string
	Args []Pattern
}

// FieldPattern matches one record field. Pattern is nil for the shorthand
// that binds the field under its own name.
type FieldPattern struct {
	Name    string
	Pattern Pattern
}

type RecordPattern struct {
	Span
	TypeName string
	Fields   []FieldPattern
}

type TuplePattern struct {
	Span
	Elems []Pattern
}

func (*WildcardPattern) isPattern() {}
func (*IdentPattern) isPattern()    {}
func (*LiteralPattern) isPattern()  {}
func (*VariantPattern) isPattern()  {}
func (*RecordPattern) isPattern()   {}
func (*TuplePattern) isPattern()    {}

// IsCatchAll reports whether the pattern matches every value.
func IsCatchAll(p Pattern) bool {
	switch p.(type) {
	case *WildcardPattern, *IdentPattern:
		return true
	}
	return false
}

// TypeExpr is a type as written in source.
type TypeExpr interface {
	Node
	isTypeExpr()
	String() string
}

// NamedType is `Int`, `Option[T]`, `Map[K, V]` or a user type.
type NamedType struct {
	Span
	Name string
	Args []TypeExpr
}

type TupleType struct {
	Span
	Elems []TypeExpr
}

type FnType struct {
	Span
	Params  []TypeExpr
	Return  TypeExpr
	Effects []string
}

func (*NamedType) isTypeExpr() {}
func (*TupleType) isTypeExpr() {}
func (*FnType) isTypeExpr()    {}

func (t *NamedType) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	return t.Name + "[" + joinTypes(t.Args) + "]"
}

func (t *TupleType) String() string {
	return "(" + joinTypes(t.Elems) + ")"
}

func (t *FnType) String() string {
	s := "fn(" + joinTypes(t.Params) + ")"
	if t.Return != nil {
		s += " -> " + t.Return.String()
	}
	if len(t.Effects) > 0 {
		s += " with " + strings.Join(t.Effects, ", ")
	}
	return s
}

func joinTypes(ts []TypeExpr) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Named builds a NamedType without a span, for catalogs built in Go.
func Named(name string, args ...TypeExpr) *NamedType {
	return &NamedType{Name: name, Args: args}
}
