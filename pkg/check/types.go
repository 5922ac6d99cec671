package check

import (
	"sort"
	"strings"
)

// Type is a checker type. Inference is local, so Unknown stands in for
// anything that cannot be determined and is compatible with everything.
type Type interface {
	String() string
	isType()
}

type UnknownType struct{}

// Con is a named type with optional arguments: primitives, the generic
// wrappers and user-defined types.
type Con struct {
	Name string
	Args []Type
}

type TupleType struct {
	Elems []Type
}

type FnType struct {
	Params  []Type
	Return  Type
	Effects []string
}

// RecordType is the type of an anonymous record literal.
type RecordType struct {
	Fields map[string]Type
}

func (UnknownType) isType() {}
func (*Con) isType()        {}
func (*TupleType) isType()  {}
func (*FnType) isType()     {}
func (*RecordType) isType() {}

func (UnknownType) String() string { return "?" }

func (c *Con) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + "[" + joinTypes(c.Args) + "]"
}

func (t *TupleType) String() string { return "(" + joinTypes(t.Elems) + ")" }

func (f *FnType) String() string {
	s := "fn(" + joinTypes(f.Params) + ") -> " + f.Return.String()
	if len(f.Effects) > 0 {
		s += " with " + strings.Join(f.Effects, ", ")
	}
	return s
}

func (r *RecordType) String() string {
	names := r.FieldNames()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + r.Fields[n].String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func (r *RecordType) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for n := range r.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

var (
	Unknown Type = UnknownType{}
	Int          = &Con{Name: "Int"}
	Float        = &Con{Name: "Float"}
	Bool         = &Con{Name: "Bool"}
	Text         = &Con{Name: "Text"}
	Unit         = &Con{Name: "Unit"}
)

func Option(t Type) Type    { return &Con{Name: "Option", Args: []Type{t}} }
func Result(t, e Type) Type { return &Con{Name: "Result", Args: []Type{t, e}} }
func List(t Type) Type      { return &Con{Name: "List", Args: []Type{t}} }
func Map(k, v Type) Type    { return &Con{Name: "Map", Args: []Type{k, v}} }
func Set(t Type) Type       { return &Con{Name: "Set", Args: []Type{t}} }
func Future(t Type) Type    { return &Con{Name: "Future", Args: []Type{t}} }

// genericArity lists the built-in generic wrappers.
var genericArity = map[string]int{
	"Option": 1,
	"Result": 2,
	"List":   1,
	"Map":    2,
	"Set":    1,
	"Future": 1,
}

var primitives = map[string]*Con{
	"Int":   Int,
	"Float": Float,
	"Bool":  Bool,
	"Text":  Text,
	"Unit":  Unit,
}

func IsUnknown(t Type) bool {
	_, ok := t.(UnknownType)
	return ok || t == nil
}

// conNamed returns t as a Con with the given name.
func conNamed(t Type, name string) (*Con, bool) {
	c, ok := t.(*Con)
	if !ok || c.Name != name {
		return nil, false
	}
	return c, true
}

// arg returns the i'th type argument of a Con, or Unknown.
func arg(t Type, i int) Type {
	c, ok := t.(*Con)
	if !ok || i >= len(c.Args) {
		return Unknown
	}
	return c.Args[i]
}

func isNumeric(t Type) bool {
	return t == Int || t == Float || sameCon(t, Int) || sameCon(t, Float)
}

func sameCon(t Type, prim *Con) bool {
	c, ok := t.(*Con)
	return ok && c.Name == prim.Name && len(c.Args) == 0
}

// Equal is structural type equality.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case UnknownType:
		_, ok := b.(UnknownType)
		return ok
	case *Con:
		y, ok := b.(*Con)
		return ok && x.Name == y.Name && equalAll(x.Args, y.Args)
	case *TupleType:
		y, ok := b.(*TupleType)
		return ok && equalAll(x.Elems, y.Elems)
	case *FnType:
		y, ok := b.(*FnType)
		return ok && equalAll(x.Params, y.Params) && Equal(x.Return, y.Return)
	case *RecordType:
		y, ok := b.(*RecordType)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for n, t := range x.Fields {
			if u, ok := y.Fields[n]; !ok || !Equal(t, u) {
				return false
			}
		}
		return true
	}
	return false
}

func equalAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Compatible reports whether a value of type b may be used where a is
// expected: either side is Unknown or the two are structurally equal, with
// Unknown allowed at any depth.
func Compatible(a, b Type) bool {
	if IsUnknown(a) || IsUnknown(b) {
		return true
	}
	switch x := a.(type) {
	case *Con:
		y, ok := b.(*Con)
		return ok && x.Name == y.Name && compatibleAll(x.Args, y.Args)
	case *TupleType:
		y, ok := b.(*TupleType)
		return ok && compatibleAll(x.Elems, y.Elems)
	case *FnType:
		y, ok := b.(*FnType)
		return ok && compatibleAll(x.Params, y.Params) && Compatible(x.Return, y.Return)
	case *RecordType:
		y, ok := b.(*RecordType)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for n, t := range x.Fields {
			if u, ok := y.Fields[n]; !ok || !Compatible(t, u) {
				return false
			}
		}
		return true
	}
	return false
}

func compatibleAll(a, b []Type) bool {
	if len(a) != len(b) {
		return len(a) == 0 || len(b) == 0
	}
	for i := range a {
		if !Compatible(a[i], b[i]) {
			return false
		}
	}
	return true
}

// known picks the first type that is not Unknown.
func known(ts ...Type) Type {
	for _, t := range ts {
		if !IsUnknown(t) {
			return t
		}
	}
	return Unknown
}
