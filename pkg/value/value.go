package value

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vito/warden/pkg/ast"
)

// Value represents a runtime value.
type Value interface {
	// TypeName is the runtime type name used for impl dispatch.
	TypeName() string
	String() string
}

type UnitValue struct{}

func (UnitValue) TypeName() string { return "Unit" }
func (UnitValue) String() string   { return "()" }

// Unit is the only unit value.
var Unit Value = UnitValue{}

type IntValue struct {
	Val int64
}

func (IntValue) TypeName() string { return "Int" }
func (i IntValue) String() string { return strconv.FormatInt(i.Val, 10) }

type FloatValue struct {
	Val float64
}

func (FloatValue) TypeName() string { return "Float" }

func (f FloatValue) String() string {
	s := strconv.FormatFloat(f.Val, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

type BoolValue struct {
	Val bool
}

func (BoolValue) TypeName() string { return "Bool" }
func (b BoolValue) String() string { return strconv.FormatBool(b.Val) }

type TextValue struct {
	Val string
}

func (TextValue) TypeName() string { return "Text" }
func (t TextValue) String() string { return t.Val }

// Int, Float, Bool and Text are shorthands for building primitives.
func Int(i int64) Value     { return IntValue{Val: i} }
func Float(f float64) Value { return FloatValue{Val: f} }
func Bool(b bool) Value     { return BoolValue{Val: b} }
func Text(s string) Value   { return TextValue{Val: s} }

// Repr renders a value the way it would be written in source: text is
// quoted, everything else uses String.
func Repr(v Value) string {
	if t, ok := v.(TextValue); ok {
		return strconv.Quote(t.Val)
	}
	return v.String()
}

func joinRepr(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = Repr(v)
	}
	return strings.Join(parts, ", ")
}

type ListValue struct {
	Elems []Value
}

func (ListValue) TypeName() string { return "List" }
func (l ListValue) String() string { return "[" + joinRepr(l.Elems) + "]" }

func List(elems ...Value) Value { return ListValue{Elems: elems} }

type TupleValue struct {
	Elems []Value
}

func (TupleValue) TypeName() string { return "Tuple" }

func (t TupleValue) String() string {
	if len(t.Elems) == 1 {
		return "(" + Repr(t.Elems[0]) + ",)"
	}
	return "(" + joinRepr(t.Elems) + ")"
}

type MapEntry struct {
	Key   Value
	Value Value
}

// MapValue holds its entries ordered by key. Keys that do not order
// against each other keep insertion order.
type MapValue struct {
	Entries []MapEntry
}

func (MapValue) TypeName() string { return "Map" }

func (m MapValue) String() string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = Repr(e.Key) + ": " + Repr(e.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m MapValue) Get(key Value) (Value, bool) {
	for _, e := range m.Entries {
		if Equal(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Insert returns a copy of the map with key bound to val.
func (m MapValue) Insert(key, val Value) MapValue {
	entries := make([]MapEntry, 0, len(m.Entries)+1)
	placed := false
	for _, e := range m.Entries {
		switch {
		case placed:
			entries = append(entries, e)
		case Equal(e.Key, key):
			entries = append(entries, MapEntry{Key: key, Value: val})
			placed = true
		case Compare(key, e.Key) < 0:
			entries = append(entries, MapEntry{Key: key, Value: val}, e)
			placed = true
		default:
			entries = append(entries, e)
		}
	}
	if !placed {
		entries = append(entries, MapEntry{Key: key, Value: val})
	}
	return MapValue{Entries: entries}
}

// Remove returns a copy of the map without key.
func (m MapValue) Remove(key Value) MapValue {
	entries := make([]MapEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		if !Equal(e.Key, key) {
			entries = append(entries, e)
		}
	}
	return MapValue{Entries: entries}
}

// SetValue holds unique elements, ordered like map keys.
type SetValue struct {
	Elems []Value
}

func (SetValue) TypeName() string { return "Set" }
func (s SetValue) String() string { return "#{" + joinRepr(s.Elems) + "}" }

func (s SetValue) Contains(v Value) bool {
	for _, e := range s.Elems {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Add returns a copy of the set including v.
func (s SetValue) Add(v Value) SetValue {
	if s.Contains(v) {
		return s
	}
	elems := make([]Value, 0, len(s.Elems)+1)
	placed := false
	for _, e := range s.Elems {
		if !placed && Compare(v, e) < 0 {
			elems = append(elems, v)
			placed = true
		}
		elems = append(elems, e)
	}
	if !placed {
		elems = append(elems, v)
	}
	return SetValue{Elems: elems}
}

func (s SetValue) Remove(v Value) SetValue {
	elems := make([]Value, 0, len(s.Elems))
	for _, e := range s.Elems {
		if !Equal(e, v) {
			elems = append(elems, e)
		}
	}
	return SetValue{Elems: elems}
}

// NewSet builds a set from elements, dropping duplicates.
func NewSet(elems ...Value) SetValue {
	var s SetValue
	for _, e := range elems {
		s = s.Add(e)
	}
	return s
}

// RecordValue is a record. TypeName is empty for anonymous records.
type RecordValue struct {
	Name   string
	Fields map[string]Value
}

func (r RecordValue) TypeName() string {
	if r.Name == "" {
		return "Record"
	}
	return r.Name
}

// FieldNames returns the record's field names, sorted.
func (r RecordValue) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r RecordValue) String() string {
	parts := make([]string, 0, len(r.Fields))
	for _, name := range r.FieldNames() {
		parts = append(parts, name+": "+Repr(r.Fields[name]))
	}
	body := "{ " + strings.Join(parts, ", ") + " }"
	if len(parts) == 0 {
		body = "{}"
	}
	if r.Name == "" {
		return body
	}
	return r.Name + " " + body
}

// VariantValue is a user enum variant. Payload is nil for bare variants, the
// value itself for single-field variants and a RecordValue otherwise.
type VariantValue struct {
	Enum    string
	Variant string
	Payload Value
}

func (v VariantValue) TypeName() string { return v.Enum }

func (v VariantValue) String() string {
	if v.Payload == nil {
		return v.Variant
	}
	if rec, ok := v.Payload.(RecordValue); ok {
		return v.Variant + rec.String()[len(rec.Name):]
	}
	return v.Variant + "(" + Repr(v.Payload) + ")"
}

// OptionValue is Some(Val) or, with a nil Val, None.
type OptionValue struct {
	Val Value
}

func (OptionValue) TypeName() string { return "Option" }

func (o OptionValue) IsSome() bool { return o.Val != nil }

func (o OptionValue) String() string {
	if o.Val == nil {
		return "None"
	}
	return "Some(" + Repr(o.Val) + ")"
}

func Some(v Value) Value { return OptionValue{Val: v} }
func None() Value        { return OptionValue{} }

// ResultValue is Ok(Val) or Err(Val).
type ResultValue struct {
	IsOk bool
	Val  Value
}

func (ResultValue) TypeName() string { return "Result" }

func (r ResultValue) String() string {
	if r.IsOk {
		return "Ok(" + Repr(r.Val) + ")"
	}
	return "Err(" + Repr(r.Val) + ")"
}

func Ok(v Value) Value  { return ResultValue{IsOk: true, Val: v} }
func Err(v Value) Value { return ResultValue{Val: v} }

// Closure is a function value: a declared function or a lambda paired with
// the environment it was defined in.
type Closure struct {
	Name     string
	Params   []ast.Param
	Return   ast.TypeExpr
	Body     ast.Expr
	Env      *Env
	Requires []ast.Expr
	Ensures  []ast.Expr
	Async    bool
}

func (*Closure) TypeName() string { return "Fn" }

func (c *Closure) String() string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	name := c.Name
	if name == "" {
		name = "<lambda>"
	}
	return fmt.Sprintf("fn %s(%s)", name, strings.Join(names, ", "))
}

// WithEnv returns a copy of the closure bound to env.
func (c *Closure) WithEnv(env *Env) *Closure {
	cp := *c
	cp.Env = env
	return &cp
}

// BuiltinFunction is a function implemented in Go.
type BuiltinFunction struct {
	Name string
	// Arity is the exact argument count, or -1 for variadic builtins.
	Arity int
	Impl  func(ctx context.Context, args []Value) (Value, error)
}

func (*BuiltinFunction) TypeName() string { return "Fn" }
func (b *BuiltinFunction) String() string { return "builtin " + b.Name }

// VariantConstructor builds a variant that carries fields.
type VariantConstructor struct {
	Enum    string
	Variant string
	// Fields are the declared field names, in declaration order. A single
	// unnamed field makes the constructor wrap its argument directly.
	Fields []string
}

func (c *VariantConstructor) TypeName() string { return c.Enum }
func (c *VariantConstructor) String() string   { return c.Enum + "." + c.Variant }

// Construct builds the variant from positional arguments.
func (c *VariantConstructor) Construct(args []Value) Value {
	if len(c.Fields) == 1 && c.Fields[0] == "" {
		return VariantValue{Enum: c.Enum, Variant: c.Variant, Payload: args[0]}
	}
	fields := make(map[string]Value, len(c.Fields))
	for i, name := range c.Fields {
		if i < len(args) {
			fields[name] = args[i]
		}
	}
	return VariantValue{Enum: c.Enum, Variant: c.Variant, Payload: RecordValue{Name: c.Variant, Fields: fields}}
}

// FutureValue is a deferred call produced by an async function. Awaiting it
// performs the call.
type FutureValue struct {
	Callee Value
	Args   []Value
}

func (*FutureValue) TypeName() string { return "Future" }
func (f *FutureValue) String() string { return "future " + f.Callee.String() }
