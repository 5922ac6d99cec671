package value

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	rec := func(fields map[string]Value) Value { return RecordValue{Name: "P", Fields: fields} }
	for _, tc := range []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"ints", Int(1), Int(1), true},
		{"int float", Int(2), Float(2), true},
		{"text", Text("a"), Text("b"), false},
		{"nested lists", List(List(Int(1)), Text("x")), List(List(Int(1)), Text("x")), true},
		{"list length", List(Int(1)), List(Int(1), Int(2)), false},
		{"records ignore field order",
			rec(map[string]Value{"x": Int(1), "y": Int(2)}),
			rec(map[string]Value{"y": Int(2), "x": Int(1)}), true},
		{"records differ by name",
			RecordValue{Name: "A", Fields: map[string]Value{}},
			RecordValue{Name: "B", Fields: map[string]Value{}}, false},
		{"maps ignore insertion order",
			MapValue{}.Insert(Text("a"), Int(1)).Insert(Text("b"), Int(2)),
			MapValue{}.Insert(Text("b"), Int(2)).Insert(Text("a"), Int(1)), true},
		{"sets", NewSet(Int(1), Int(2)), NewSet(Int(2), Int(1), Int(1)), true},
		{"some", Some(Int(5)), Some(Int(5)), true},
		{"some vs none", Some(Int(5)), None(), false},
		{"none", None(), None(), true},
		{"ok vs err", Ok(Int(1)), Err(Int(1)), false},
		{"variants", VariantValue{Enum: "C", Variant: "Red"}, VariantValue{Enum: "C", Variant: "Red"}, true},
		{"variant payload", VariantValue{Enum: "S", Variant: "Circle", Payload: Float(1)}, VariantValue{Enum: "S", Variant: "Circle"}, false},
		{"unit", Unit, UnitValue{}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.equal, Equal(tc.a, tc.b))
			assert.Equal(t, tc.equal, Equal(tc.b, tc.a))
		})
	}
}

func TestFunctionsNeverEqual(t *testing.T) {
	c := &Closure{Name: "f"}
	assert.False(t, Equal(c, c))

	ctor := &VariantConstructor{Enum: "S", Variant: "Rect", Fields: []string{"w", "h"}}
	assert.False(t, Equal(ctor, ctor))

	fut := &FutureValue{Callee: c}
	assert.False(t, Equal(fut, fut))

	b := &BuiltinFunction{Name: "print"}
	assert.False(t, Equal(b, b))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(Int(1), Int(2)))
	assert.Equal(t, 1, Compare(Float(2.5), Int(2)))
	assert.Equal(t, 0, Compare(Int(3), Float(3)))
	assert.Equal(t, -1, Compare(Text("apple"), Text("banana")))
	assert.Equal(t, 0, Compare(Text("a"), Int(1)))
	assert.Equal(t, 0, Compare(Bool(true), Bool(false)))

	vals := []Value{Int(3), Float(1.5), Int(2)}
	sort.SliceStable(vals, func(i, j int) bool { return Compare(vals[i], vals[j]) < 0 })
	assert.Equal(t, "[1.5, 2, 3]", List(vals...).String())
}

func TestMapOrdering(t *testing.T) {
	m := MapValue{}.Insert(Text("b"), Int(2)).Insert(Text("a"), Int(1)).Insert(Text("c"), Int(3))
	assert.Equal(t, `{"a": 1, "b": 2, "c": 3}`, m.String())

	m = m.Insert(Text("b"), Int(20))
	v, ok := m.Get(Text("b"))
	require.True(t, ok)
	assert.Equal(t, Int(20), v)
	assert.Len(t, m.Entries, 3)

	m = m.Remove(Text("a"))
	_, ok = m.Get(Text("a"))
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	for _, tc := range []struct {
		val      Value
		expected string
	}{
		{Float(2), "2.0"},
		{Float(0.5), "0.5"},
		{Text("plain"), "plain"},
		{List(Text("a"), Int(1)), `["a", 1]`},
		{TupleValue{Elems: []Value{Int(1)}}, "(1,)"},
		{NewSet(Int(2), Int(1)), "#{1, 2}"},
		{Some(Text("x")), `Some("x")`},
		{Err(Text("boom")), `Err("boom")`},
		{RecordValue{Name: "Point", Fields: map[string]Value{"y": Int(2), "x": Int(1)}}, "Point { x: 1, y: 2 }"},
		{RecordValue{Fields: map[string]Value{}}, "{}"},
		{VariantValue{Enum: "Shape", Variant: "Circle", Payload: Float(1.5)}, "Circle(1.5)"},
		{(&VariantConstructor{Enum: "Shape", Variant: "Rect", Fields: []string{"w", "h"}}).Construct([]Value{Int(1), Int(2)}), "Rect { h: 2, w: 1 }"},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.val.String())
		})
	}
}

func TestEnv(t *testing.T) {
	global := NewEnv()
	global.Define("x", Int(1))

	child := global.Child()
	v, ok := child.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, Int(1), v)

	_, ok = child.LookupLocal("x")
	assert.False(t, ok)

	child.Define("x", Int(2))
	v, _ = child.Lookup("x")
	assert.Equal(t, Int(2), v)
	v, _ = global.Lookup("x")
	assert.Equal(t, Int(1), v, "defining in a child must not touch the parent")

	global.Define("count", Int(0))
	require.NoError(t, child.Child().Update("count", Int(5)))
	v, _ = global.Lookup("count")
	assert.Equal(t, Int(5), v)

	err := child.Update("missing", Int(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	assert.Equal(t, []string{"count", "x"}, global.Names())
	assert.Same(t, global, child.Parent())
}

func TestClosureCapture(t *testing.T) {
	env := NewEnv()
	env.Define("n", Int(1))
	c := &Closure{Name: "get", Env: env}

	// capture is by reference to the chain
	require.NoError(t, env.Update("n", Int(7)))
	v, _ := c.Env.Lookup("n")
	assert.Equal(t, Int(7), v)

	other := NewEnv()
	rebound := c.WithEnv(other)
	assert.Same(t, other, rebound.Env)
	assert.Same(t, env, c.Env)
}
