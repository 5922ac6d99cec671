package eval

import (
	"context"
	"fmt"
	"sort"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

// Args gives builtins access to their arguments by parameter name.
type Args struct {
	Values map[string]value.Value
}

// Get retrieves an argument value by name
func (a Args) Get(name string) (value.Value, bool) {
	v, ok := a.Values[name]
	return v, ok
}

// Text retrieves a Text argument, failing if it has another type.
func (a Args) Text(name string) (string, error) {
	v := a.Values[name]
	t, ok := v.(value.TextValue)
	if !ok {
		return "", argType(name, "Text", v)
	}
	return t.Val, nil
}

// Int retrieves an Int argument, failing if it has another type.
func (a Args) Int(name string) (int64, error) {
	v := a.Values[name]
	n, ok := v.(value.IntValue)
	if !ok {
		return 0, argType(name, "Int", v)
	}
	return n.Val, nil
}

// Float retrieves a numeric argument as a float.
func (a Args) Float(name string) (float64, error) {
	v := a.Values[name]
	f, ok := value.AsFloat(v)
	if !ok {
		return 0, argType(name, "Float", v)
	}
	return f, nil
}

func (a Args) Bool(name string) (bool, error) {
	v := a.Values[name]
	b, ok := v.(value.BoolValue)
	if !ok {
		return false, argType(name, "Bool", v)
	}
	return b.Val, nil
}

// List retrieves a List argument's elements.
func (a Args) List(name string) ([]value.Value, error) {
	v := a.Values[name]
	l, ok := v.(value.ListValue)
	if !ok {
		return nil, argType(name, "List", v)
	}
	return l.Elems, nil
}

func argType(name, want string, got value.Value) error {
	return fault(diag.RuntimeType, "argument `%s` must be %s, got %s", name, want, value.Describe(got))
}

// ToValue converts a Go value to a Warden value.
func ToValue(v any) (value.Value, error) {
	switch x := v.(type) {
	case nil:
		return value.Unit, nil
	case value.Value:
		return x, nil
	case string:
		return value.Text(x), nil
	case int:
		return value.Int(int64(x)), nil
	case int64:
		return value.Int(x), nil
	case float64:
		return value.Float(x), nil
	case bool:
		return value.Bool(x), nil
	case []string:
		elems := make([]value.Value, len(x))
		for i, s := range x {
			elems[i] = value.Text(s)
		}
		return value.ListValue{Elems: elems}, nil
	case []value.Value:
		return value.ListValue{Elems: x}, nil
	}
	return nil, fmt.Errorf("cannot convert Go type %T to a Warden value", v)
}

// BuiltinDef defines a builtin function or value method.
type BuiltinDef struct {
	Name     string
	IsMethod bool
	// Receiver is the type name a method belongs to; "Any" methods apply to
	// every value.
	Receiver string
	Params   []ParamDef
	Returns  ast.TypeExpr
	Doc      string
	Impl     func(ctx context.Context, self value.Value, args Args) (value.Value, error)
}

type ParamDef struct {
	Name string
	Type ast.TypeExpr
}

// Signature renders the definition the way it would be declared.
func (d BuiltinDef) Signature() string {
	params := make([]ast.TypeExpr, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.Type
	}
	sig := (&ast.FnType{Params: params, Return: d.Returns}).String()
	name := d.Name
	if d.IsMethod {
		name = d.Receiver + "." + d.Name
	}
	return name + sig[len("fn"):]
}

func (d BuiltinDef) bind(args []value.Value) Args {
	values := make(map[string]value.Value, len(d.Params))
	for i, p := range d.Params {
		if i < len(args) {
			values[p.Name] = args[i]
		}
	}
	return Args{Values: values}
}

// BuiltinBuilder provides a fluent API for defining builtin functions
type BuiltinBuilder struct {
	def BuiltinDef
}

// Builtin creates a new builtin function builder
func Builtin(name string) *BuiltinBuilder {
	return &BuiltinBuilder{def: BuiltinDef{Name: name}}
}

func (b *BuiltinBuilder) Doc(doc string) *BuiltinBuilder {
	b.def.Doc = doc
	return b
}

// Params adds parameters as name/type pairs, with types in their textual
// form: Params("a", "Int", "b", "Int").
func (b *BuiltinBuilder) Params(pairs ...string) *BuiltinBuilder {
	b.def.Params = append(b.def.Params, paramDefs(pairs)...)
	return b
}

func (b *BuiltinBuilder) Returns(typ string) *BuiltinBuilder {
	b.def.Returns = ast.MustParseType(typ)
	return b
}

// Impl sets the implementation and registers the builtin
func (b *BuiltinBuilder) Impl(fn func(context.Context, Args) (value.Value, error)) {
	b.def.Impl = func(ctx context.Context, _ value.Value, args Args) (value.Value, error) {
		return fn(ctx, args)
	}
	Register(b.def)
}

// MethodBuilder provides a fluent API for defining methods
type MethodBuilder struct {
	def     BuiltinDef
	aliases []string
}

// Method creates a new method builder for values of the receiver type.
func Method(receiver, name string) *MethodBuilder {
	return &MethodBuilder{def: BuiltinDef{Name: name, IsMethod: true, Receiver: receiver}}
}

func (b *MethodBuilder) Doc(doc string) *MethodBuilder {
	b.def.Doc = doc
	return b
}

func (b *MethodBuilder) Params(pairs ...string) *MethodBuilder {
	b.def.Params = append(b.def.Params, paramDefs(pairs)...)
	return b
}

func (b *MethodBuilder) Returns(typ string) *MethodBuilder {
	b.def.Returns = ast.MustParseType(typ)
	return b
}

// Impl sets the implementation and registers the method
func (b *MethodBuilder) Impl(fn func(context.Context, value.Value, Args) (value.Value, error)) {
	b.def.Impl = fn
	Register(b.def)
	for _, name := range b.aliases {
		alias := b.def
		alias.Name = name
		Register(alias)
	}
}

// Alias registers the method under additional names.
func (b *MethodBuilder) Alias(names ...string) *MethodBuilder {
	b.aliases = append(b.aliases, names...)
	return b
}

func paramDefs(pairs []string) []ParamDef {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("Params: missing type for parameter %q", pairs[len(pairs)-1]))
	}
	defs := make([]ParamDef, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		defs = append(defs, ParamDef{Name: pairs[i], Type: ast.MustParseType(pairs[i+1])})
	}
	return defs
}

var builtinDefs []BuiltinDef

var methodRegistry = map[string]map[string]BuiltinDef{}

// Register adds a definition. Later registrations of the same method
// replace earlier ones.
func Register(def BuiltinDef) {
	builtinDefs = append(builtinDefs, def)
	if def.IsMethod {
		methods := methodRegistry[def.Receiver]
		if methods == nil {
			methods = map[string]BuiltinDef{}
			methodRegistry[def.Receiver] = methods
		}
		methods[def.Name] = def
	}
}

// LookupMethod finds a builtin method for a receiver type, falling back to
// methods every value has.
func LookupMethod(receiver, name string) (BuiltinDef, bool) {
	if def, ok := methodRegistry[receiver][name]; ok {
		return def, true
	}
	def, ok := methodRegistry["Any"][name]
	return def, ok
}

// Builtins lists the registered functions and methods, functions first,
// each group sorted by name.
func Builtins() []BuiltinDef {
	defs := append([]BuiltinDef(nil), builtinDefs...)
	sort.SliceStable(defs, func(i, j int) bool {
		a, b := defs[i], defs[j]
		if a.IsMethod != b.IsMethod {
			return !a.IsMethod
		}
		if a.Receiver != b.Receiver {
			return a.Receiver < b.Receiver
		}
		return a.Name < b.Name
	})
	return defs
}

func functions() []BuiltinDef {
	var fns []BuiltinDef
	for _, def := range builtinDefs {
		if !def.IsMethod {
			fns = append(fns, def)
		}
	}
	return fns
}
