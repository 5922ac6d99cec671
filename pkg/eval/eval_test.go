package eval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/check"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/value"
)

func decode(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := ast.Decode("test.ast.yaml", []byte(src))
	require.NoError(t, err)
	return mod
}

func run(t *testing.T, src string, opts Options) (value.Value, error) {
	t.Helper()
	return New(opts).EvalModule(context.Background(), decode(t, src))
}

func requireCode(t *testing.T, err error, code diag.Code) *RuntimeError {
	t.Helper()
	require.Error(t, err)
	var rt *RuntimeError
	require.True(t, errors.As(err, &rt), "expected a *RuntimeError, got %T: %v", err, err)
	require.Equal(t, code, rt.Code, rt.Error())
	return rt
}

func TestAdd(t *testing.T) {
	v, err := run(t, `
items:
  - kind: fn
    name: add
    params: [{name: a, type: Int}, {name: b, type: Int}]
    return: Int
    body: {kind: binary, op: "+", left: a, right: b}
  - kind: fn
    name: main
    body: {kind: call, callee: add, args: [10, 20]}
`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.Int(30), v)
}

func TestNoMainIsUnit(t *testing.T) {
	v, err := run(t, `items: [{kind: fn, name: helper, body: 1}]`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.Unit, v)
}

const optionSrc = `
items:
  - kind: fn
    name: or_zero
    params: [{name: o, type: "Option[Int]"}]
    return: Int
    body:
      kind: match
      scrutinee: o
      arms:
        - pattern: {kind: variant, name: Some, args: [x]}
          body: x
        - pattern: None
          body: 0
`

func TestMatchOption(t *testing.T) {
	for _, tc := range []struct {
		name string
		arg  string
		want value.Value
	}{
		{"some", `{kind: call, callee: Some, args: [5]}`, value.Int(5)},
		{"none", `None`, value.Int(0)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := optionSrc + `
  - kind: fn
    name: main
    body: {kind: call, callee: or_zero, args: [` + tc.arg + `]}
`
			v, err := run(t, src, Options{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestVariantPatterns(t *testing.T) {
	v, err := run(t, `
items:
  - kind: enum
    name: Shape
    variants:
      - name: Circle
        fields: [Float]
      - name: Rect
        fields:
          - {name: w, type: Float}
          - {name: h, type: Float}
      - Empty
  - kind: fn
    name: area
    params: [{name: s, type: Shape}]
    body:
      kind: match
      scrutinee: s
      arms:
        - pattern: {kind: variant, name: Circle, args: [r]}
          body: {kind: binary, op: "*", left: r, right: r}
        - pattern: {kind: variant, name: Rect, args: [h, w]}
          body: {kind: binary, op: "-", left: w, right: h}
        - pattern: _
          body: 0.0
  - kind: fn
    name: main
    body:
      kind: list
      elems:
        - {kind: call, callee: area, args: [{kind: call, callee: Circle, args: [2.0]}]}
        - {kind: call, callee: area, args: [{kind: call, callee: Rect, args: [5.0, 3.0]}]}
        - {kind: call, callee: area, args: [Empty]}
`, Options{})
	require.NoError(t, err)
	// Rect(w: 5, h: 3) binds h first, then w.
	assert.Equal(t, value.List(value.Float(4), value.Float(2), value.Float(0)), v)
}

func TestRecordFieldShorthand(t *testing.T) {
	v, err := run(t, `
items:
  - {kind: type, name: Point, fields: [{name: x, type: Int}, {name: y, type: Int}]}
  - kind: fn
    name: main
    body:
      kind: match
      scrutinee: {kind: record, type: Point, fields: [{name: x, value: 3}, {name: y, value: 4}]}
      arms:
        - pattern: {kind: record, type: Point, fields: [{name: x}, {name: y, pattern: _}]}
          body: x
`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), v)
}

func TestBuiltinsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, def := range Builtins() {
		names[def.Name] = true
	}
	assert.True(t, names["assert_eq"])
}

func TestNoMatchingArm(t *testing.T) {
	_, err := run(t, `
items:
  - kind: fn
    name: main
    body:
      kind: match
      scrutinee: 3
      arms:
        - {pattern: 1, body: 1}
        - {pattern: 2, body: 2}
`, Options{})
	requireCode(t, err, diag.NoMatch)
}

func TestMatchGuard(t *testing.T) {
	v, err := run(t, `
items:
  - kind: fn
    name: main
    body:
      kind: match
      scrutinee: 7
      arms:
        - pattern: n
          guard: {kind: binary, op: ">", left: n, right: 10}
          body: {kind: text, value: big}
        - pattern: n
          body: {kind: text, value: small}
`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.Text("small"), v)
}

func TestPreconditionRunsBeforeBody(t *testing.T) {
	_, err := run(t, `
items:
  - kind: fn
    name: divide
    params: [{name: a, type: Int}, {name: b, type: Int}]
    requires:
      - {kind: binary, op: "!=", left: b, right: 0}
    body: {kind: binary, op: "/", left: a, right: b}
  - kind: fn
    name: main
    body: {kind: call, callee: divide, args: [1, 0]}
`, Options{})
	rt := requireCode(t, err, diag.PreconditionFailed)
	assert.Contains(t, rt.Message, "divide")
	assert.Contains(t, rt.Message, "b != 0")
}

func TestPostcondition(t *testing.T) {
	_, err := run(t, `
items:
  - kind: fn
    name: inc
    params: [{name: x, type: Int}]
    ensures:
      - {kind: binary, op: ">", left: result, right: x}
    body: x
  - kind: fn
    name: main
    body: {kind: call, callee: inc, args: [1]}
`, Options{})
	requireCode(t, err, diag.PostconditionFailed)
}

func TestDivisionByZero(t *testing.T) {
	_, err := run(t, `items: [{kind: fn, name: main, body: {kind: binary, op: "%", left: 1, right: 0}}]`, Options{})
	requireCode(t, err, diag.DivisionByZero)
}

func TestInvariants(t *testing.T) {
	const types = `
items:
  - kind: type
    name: Age
    alias: Int
    invariant: {kind: binary, op: ">=", left: self, right: 0}
  - kind: type
    name: Range
    fields:
      - {name: lo, type: Int}
      - {name: hi, type: Int}
    invariant:
      kind: binary
      op: "<="
      left: {kind: field, target: self, field: lo}
      right: {kind: field, target: self, field: hi}
`
	for _, tc := range []struct {
		name string
		main string
		code diag.Code
	}{
		{"alias ok", `{kind: call, callee: Age, args: [3]}`, ""},
		{"alias violated", `{kind: call, callee: Age, args: [-1]}`, diag.InvariantViolated},
		{"record ok", `{kind: record, type: Range, fields: [{name: lo, value: 1}, {name: hi, value: 2}]}`, ""},
		{"record violated", `{kind: record, type: Range, fields: [{name: lo, value: 3}, {name: hi, value: 2}]}`, diag.InvariantViolated},
		{"annotated let", `{stmts: [{kind: let, name: a, type: Age, value: -5}], tail: a}`, diag.InvariantViolated},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, types+"  - {kind: fn, name: main, body: "+tc.main+"}\n", Options{})
			if tc.code == "" {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, tc.code)
		})
	}
}

func TestInvariantSeesModuleFunctions(t *testing.T) {
	const types = `
items:
  - kind: fn
    name: non_negative
    params: [{name: n, type: Int}]
    return: Bool
    body: {kind: binary, op: ">=", left: n, right: 0}
  - kind: type
    name: Age
    alias: Int
    invariant: {kind: call, callee: non_negative, args: [self]}
`
	for _, tc := range []struct {
		name string
		arg  int
		code diag.Code
	}{
		{"holds", 5, ""},
		{"violated", -1, diag.InvariantViolated},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mod := decode(t, types+fmt.Sprintf("  - {kind: fn, name: main, body: {kind: call, callee: Age, args: [%d]}}\n", tc.arg))
			require.NoError(t, check.New().CheckModule(mod))

			v, err := New(Options{}).EvalModule(context.Background(), mod)
			if tc.code == "" {
				require.NoError(t, err)
				assert.Equal(t, value.Int(int64(tc.arg)), v)
				return
			}
			requireCode(t, err, tc.code)
		})
	}
}

func TestRedefinedModule(t *testing.T) {
	i := New(Options{})
	first := decode(t, "path: app\nitems: [{kind: fn, name: main, body: 1}]\n")
	second := decode(t, "path: app\nitems: [{kind: fn, name: main, body: 2}]\n")

	v, err := i.EvalModule(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), v)

	v, err = i.EvalModule(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)

	v, err = i.EvalModule(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)
}

func TestCallDepth(t *testing.T) {
	_, err := run(t, `
items:
  - kind: fn
    name: loop
    params: [n]
    body: {kind: call, callee: loop, args: [{kind: binary, op: "+", left: n, right: 1}]}
  - kind: fn
    name: main
    body: {kind: call, callee: loop, args: [0]}
`, Options{MaxDepth: 50})
	rt := requireCode(t, err, diag.CallDepthExceeded)
	assert.Contains(t, rt.Message, "50")
}

func TestEscapedControl(t *testing.T) {
	_, err := run(t, `items: [{kind: fn, name: main, body: {stmts: [{kind: break}]}}]`, Options{})
	requireCode(t, err, diag.EscapedControl)
}

func TestLoops(t *testing.T) {
	v, err := run(t, `
items:
  - kind: fn
    name: main
    body:
      stmts:
        - {kind: let, name: total, mut: true, value: 0}
        - kind: for
          var: x
          iter: {kind: range, start: 1, end: 10, inclusive: true}
          body:
            stmts:
              - kind: if
                cond: {kind: binary, op: "==", left: {kind: binary, op: "%", left: x, right: 2}, right: 0}
                then: {stmts: [{kind: continue}]}
              - kind: if
                cond: {kind: binary, op: ">", left: x, right: 7}
                then: {stmts: [{kind: break}]}
              - {kind: assign, name: total, value: {kind: binary, op: "+", left: total, right: x}}
        - {kind: let, name: n, mut: true, value: 0}
        - kind: while
          cond: {kind: binary, op: "<", left: n, right: 3}
          body: {stmts: [{kind: assign, name: n, value: {kind: binary, op: "+", left: n, right: 1}}]}
      tail: {kind: tuple, elems: [total, n]}
`, Options{})
	require.NoError(t, err)
	// 1 + 3 + 5 + 7
	assert.Equal(t, value.TupleValue{Elems: []value.Value{value.Int(16), value.Int(3)}}, v)
}

func TestEarlyReturn(t *testing.T) {
	v, err := run(t, `
items:
  - kind: fn
    name: parse_both
    params: [a, b]
    body:
      stmts:
        - {kind: let, name: x, value: {kind: try, expr: {kind: method, receiver: a, method: to_int}}}
        - {kind: let, name: y, value: {kind: try, expr: {kind: method, receiver: b, method: to_int}}}
      tail: {kind: call, callee: Some, args: [{kind: binary, op: "+", left: x, right: y}]}
  - kind: fn
    name: main
    body:
      kind: list
      elems:
        - {kind: call, callee: parse_both, args: [{kind: text, value: "2"}, {kind: text, value: "3"}]}
        - {kind: call, callee: parse_both, args: [{kind: text, value: "2"}, {kind: text, value: "x"}]}
`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.List(value.Some(value.Int(5)), value.None()), v)
}

func TestCapabilities(t *testing.T) {
	const src = `
items:
  - kind: fn
    name: main
    effects: [Console, Clock]
    body:
      stmts:
        - {kind: method, receiver: Console, method: println, args: [{kind: text, value: hello}]}
      tail: {kind: method, receiver: Clock, method: now}
`
	t.Run("missing", func(t *testing.T) {
		_, err := run(t, src, Options{})
		rt := requireCode(t, err, diag.CapabilityMissing)
		assert.Contains(t, rt.Message, "Console")
	})

	t.Run("provided", func(t *testing.T) {
		caps := effects.Deterministic(1, 1234)
		v, err := run(t, src, Options{Capabilities: caps})
		require.NoError(t, err)
		assert.Equal(t, value.Int(1234), v)
		assert.Equal(t, "hello\n", caps.Console.(*effects.MemoryConsole).Output.String())
	})

	t.Run("denied", func(t *testing.T) {
		caps := effects.Deterministic(1, 1234).Without(effects.Clock)
		_, err := run(t, src, Options{Capabilities: caps})
		requireCode(t, err, diag.CapabilityMissing)
	})
}

func TestDeterminism(t *testing.T) {
	const src = `
items:
  - kind: fn
    name: main
    effects: [Rand]
    body:
      kind: list
      elems:
        - {kind: method, receiver: Rand, method: int, args: [1, 100]}
        - {kind: method, receiver: Rand, method: int, args: [1, 100]}
        - {kind: method, receiver: Rand, method: uuid}
`
	first, err := run(t, src, Options{Capabilities: effects.Deterministic(42, 0)})
	require.NoError(t, err)
	second, err := run(t, src, Options{Capabilities: effects.Deterministic(42, 0)})
	require.NoError(t, err)
	assert.True(t, value.Equal(first, second), "%s != %s", first, second)

	other, err := run(t, src, Options{Capabilities: effects.Deterministic(7, 0)})
	require.NoError(t, err)
	assert.False(t, value.Equal(first, other))
}

func TestFsResults(t *testing.T) {
	caps := effects.Deterministic(1, 0)
	v, err := run(t, `
items:
  - kind: fn
    name: main
    effects: [Fs]
    body:
      stmts:
        - {kind: method, receiver: Fs, method: write, args: [{kind: text, value: a.txt}, {kind: text, value: hi}]}
      tail:
        kind: list
        elems:
          - {kind: method, receiver: Fs, method: read, args: [{kind: text, value: a.txt}]}
          - {kind: method, receiver: {kind: method, receiver: Fs, method: read, args: [{kind: text, value: b.txt}]}, method: is_err}
`, Options{Capabilities: caps})
	require.NoError(t, err)
	assert.Equal(t, value.List(value.Ok(value.Text("hi")), value.Bool(true)), v)
}

func TestNetServe(t *testing.T) {
	replay := &effects.ReplayNet{Requests: []effects.Request{
		{Method: "GET", Path: "/hello"},
		{Method: "POST", Path: "/echo", Body: "ping"},
	}}
	caps := effects.Deterministic(1, 0)
	caps.Net = replay
	_, err := run(t, `
items:
  - kind: fn
    name: main
    effects: [Net]
    body:
      kind: method
      receiver: Net
      method: serve
      args:
        - 8080
        - kind: lambda
          params: [req]
          body:
            kind: if
            cond: {kind: binary, op: "==", left: {kind: field, target: req, field: method}, right: {kind: text, value: POST}}
            then: {kind: record, fields: [{name: status, value: 201}, {name: body, value: {kind: field, target: req, field: body}}]}
            else: {kind: field, target: req, field: path}
`, Options{Capabilities: caps})
	require.NoError(t, err)
	assert.Equal(t, []effects.Response{
		{Status: 200, Body: "/hello"},
		{Status: 201, Body: "ping"},
	}, replay.Responses)
}

const logEffect = `
items:
  - kind: effect
    name: Log
    ops:
      - {name: info, params: [{name: msg, type: Text}], return: Int}
  - kind: fn
    name: work
    effects: [Log]
    body: {kind: method, receiver: Log, method: info, args: [{kind: text, value: hello}]}
`

func TestUserEffects(t *testing.T) {
	t.Run("unhandled is a no-op", func(t *testing.T) {
		v, err := run(t, logEffect+"  - {kind: fn, name: main, body: {kind: call, callee: work}}\n", Options{})
		require.NoError(t, err)
		assert.Equal(t, value.Unit, v)
	})

	t.Run("record handler reaches callees", func(t *testing.T) {
		v, err := run(t, logEffect+`
  - kind: fn
    name: main
    body:
      kind: handle
      effect: Log
      handler:
        kind: record
        fields:
          - name: info
            value: {kind: lambda, params: [m], body: {kind: method, receiver: m, method: len}}
      body: {kind: call, callee: work}
`, Options{})
		require.NoError(t, err)
		assert.Equal(t, value.Int(5), v)
	})

	t.Run("closure handler", func(t *testing.T) {
		v, err := run(t, logEffect+`
  - kind: fn
    name: main
    body:
      kind: handle
      effect: Log
      handler: {kind: lambda, params: [m], body: 42}
      body: {kind: method, receiver: Log, method: info, args: [{kind: text, value: x}]}
`, Options{})
		require.NoError(t, err)
		assert.Equal(t, value.Int(42), v)
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := run(t, logEffect+"  - {kind: fn, name: main, body: {kind: method, receiver: Log, method: warn}}\n", Options{})
		rt := requireCode(t, err, diag.UnknownMethod)
		assert.Equal(t, "warn", rt.Method)
	})
}

func TestAsync(t *testing.T) {
	v, err := run(t, `
items:
  - kind: fn
    name: fetch
    async: true
    params: [n]
    body: {kind: binary, op: "*", left: n, right: 2}
  - kind: fn
    name: main
    body: {kind: await, expr: {kind: call, callee: fetch, args: [21]}}
`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.Int(42), v)
}

func TestImplDispatch(t *testing.T) {
	v, err := run(t, `
items:
  - kind: type
    name: Point
    fields: [{name: x, type: Int}, {name: y, type: Int}]
  - kind: trait
    name: Norm
    methods: [{name: norm, params: [self], return: Int}]
  - kind: impl
    trait: Norm
    target: Point
    methods:
      - kind: fn
        name: norm
        params: [self]
        body: {kind: binary, op: "+", left: {kind: field, target: self, field: x}, right: {kind: field, target: self, field: y}}
  - kind: fn
    name: main
    body:
      kind: method
      receiver: {kind: record, type: Point, fields: [{name: x, value: 3}, {name: y, value: 4}]}
      method: norm
`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), v)
}

func TestUnknownMethod(t *testing.T) {
	_, err := run(t, `items: [{kind: fn, name: main, body: {kind: method, receiver: 3, method: frobnicate}}]`, Options{})
	rt := requireCode(t, err, diag.UnknownMethod)
	assert.Equal(t, "frobnicate", rt.Method)
	assert.Equal(t, "Int 3", rt.Receiver)
}

func TestValueMethods(t *testing.T) {
	for _, tc := range []struct {
		expr string
		want value.Value
	}{
		{`{kind: method, receiver: {kind: text, value: "Hello World"}, method: to_snake}`, value.Text("hello_world")},
		{`{kind: method, receiver: {kind: text, value: "hello_world"}, method: to_pascal}`, value.Text("HelloWorld")},
		{`{kind: method, receiver: {kind: text, value: "a1b22c333"}, method: find_all, args: [{kind: text, value: "[0-9]+"}]}`,
			value.List(value.Text("1"), value.Text("22"), value.Text("333"))},
		{`{kind: method, receiver: {kind: text, value: "héllo"}, method: len}`, value.Int(5)},
		{`{kind: method, receiver: {kind: list, elems: [3, 1, 2]}, method: sort}`, value.List(value.Int(1), value.Int(2), value.Int(3))},
		{`{kind: method, receiver: {kind: list, elems: [1, 2, 3]}, method: map, args: [{kind: lambda, params: [x], body: {kind: binary, op: "*", left: x, right: 10}}]}`,
			value.List(value.Int(10), value.Int(20), value.Int(30))},
		{`{kind: method, receiver: {kind: list, elems: [1, 2, 3, 4]}, method: fold, args: [0, {kind: lambda, params: [a, x], body: {kind: binary, op: "+", left: a, right: x}}]}`,
			value.Int(10)},
		{`{kind: method, receiver: {kind: list, elems: [1, 2, 3]}, method: join, args: [{kind: text, value: "-"}]}`, value.Text("1-2-3")},
		{`{kind: method, receiver: {kind: call, callee: Some, args: [2]}, method: map, args: [{kind: lambda, params: [x], body: {kind: binary, op: "+", left: x, right: 1}}]}`,
			value.Some(value.Int(3))},
		{`{kind: method, receiver: None, method: unwrap_or, args: [9]}`, value.Int(9)},
		{`{kind: method, receiver: {kind: method, receiver: Map, method: new}, method: len}`, value.Int(0)},
		{`{kind: method, receiver: {kind: method, receiver: Set, method: from, args: [{kind: list, elems: [1, 1, 2]}]}, method: len}`, value.Int(2)},
		{`{kind: method, receiver: {kind: tuple, elems: [1, 2]}, method: length}`, value.Int(2)},
		{`{kind: method, receiver: 2, method: pow, args: [10]}`, value.Int(1024)},
		{`{kind: method, receiver: 7, method: to_text}`, value.Text("7")},
	} {
		t.Run(tc.expr, func(t *testing.T) {
			v, err := run(t, "items: [{kind: fn, name: main, body: "+tc.expr+"}]", Options{})
			require.NoError(t, err)
			assert.True(t, value.Equal(tc.want, v), "want %s, got %s", tc.want, v)
		})
	}
}

func TestUnwrapNone(t *testing.T) {
	_, err := run(t, `items: [{kind: fn, name: main, body: {kind: method, receiver: None, method: unwrap}}]`, Options{})
	requireCode(t, err, diag.UnwrapFailed)
}

func TestStdImports(t *testing.T) {
	v, err := run(t, `
items:
  - {kind: import, path: std.math, names: [clamp]}
  - {kind: import, path: std.math, alias: m}
  - kind: fn
    name: main
    body:
      kind: tuple
      elems:
        - {kind: call, callee: clamp, args: [15, 0, 10]}
        - {kind: method, receiver: m, method: abs, args: [-3]}
`, Options{})
	require.NoError(t, err)
	assert.Equal(t, value.TupleValue{Elems: []value.Value{value.Int(10), value.Int(3)}}, v)
}

func TestImportErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	write("a.ast.yaml", "path: a\nitems: [{kind: import, path: b}]\n")
	write("b.ast.yaml", "path: b\nitems: [{kind: import, path: a}]\n")
	write("c.ast.yaml", "path: c\nitems: [{kind: fn, name: f, body: 1}]\n")

	for _, tc := range []struct {
		name string
		imp  string
		code diag.Code
	}{
		{"missing module", `{kind: import, path: nowhere}`, diag.ModuleNotFound},
		{"missing name", `{kind: import, path: c, names: [g]}`, diag.MissingImport},
		{"cycle", `{kind: import, path: a}`, diag.CircularImport},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, "items: ["+tc.imp+"]", Options{Loader: NewLoader(dir)})
			requireCode(t, err, tc.code)
		})
	}
}

func TestRunTests(t *testing.T) {
	mod := decode(t, `
items:
  - kind: fn
    name: double
    params: [n]
    body: {kind: binary, op: "*", left: n, right: 2}
  - kind: test
    name: doubles
    body: {kind: call, callee: assert_eq, args: [{kind: call, callee: double, args: [2]}, 4]}
  - kind: test
    name: broken
    body: {kind: call, callee: assert_eq, args: [{kind: call, callee: double, args: [2]}, 5]}
  - kind: property
    name: double is even
    params: [{name: n, type: Int}]
    body: {kind: call, callee: assert, args: [{kind: binary, op: "==", left: {kind: binary, op: "%", left: {kind: call, callee: double, args: [n]}, right: 2}, right: 0}]}
  - kind: property
    name: text is short
    params: [{name: s, type: Text}]
    body: {kind: call, callee: assert, args: [{kind: binary, op: "<", left: {kind: method, receiver: s, method: len}, right: 3}]}
`)
	i := New(Options{Capabilities: effects.Deterministic(3, 0), PropertyRuns: 25})
	report, err := i.RunTests(context.Background(), mod)
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	assert.True(t, report.Results[0].Passed())
	assert.False(t, report.Results[1].Passed())
	assert.Equal(t, diag.AssertionFailed, report.Results[1].Err.Code)

	assert.True(t, report.Results[2].Passed(), report.Results[2].String())
	assert.Equal(t, 25, report.Results[2].Runs)

	assert.False(t, report.Results[3].Passed())
	require.Len(t, report.Results[3].Inputs, 1)
	assert.Equal(t, 2, report.Failed())
}

func TestPropertiesNeedRand(t *testing.T) {
	mod := decode(t, `items: [{kind: property, name: p, params: [{name: n, type: Int}], body: 1}]`)
	report, err := New(Options{}).RunTests(context.Background(), mod)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, diag.CapabilityMissing, report.Results[0].Err.Code)
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).EvalModule(ctx, decode(t, `items: [{kind: fn, name: main, body: 1}]`))
	requireCode(t, err, diag.RuntimeFailure)
}
