package check

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
)

func decode(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := ast.Decode("test.ast.yaml", []byte(src))
	require.NoError(t, err)
	return mod
}

func checkSrc(t *testing.T, src string) (*Checker, error) {
	t.Helper()
	c := New()
	return c, c.CheckModule(decode(t, src))
}

func withCode(c *Checker, code diag.Code) []diag.Diagnostic {
	var ds []diag.Diagnostic
	for _, d := range c.Diagnostics() {
		if d.Code == code {
			ds = append(ds, d)
		}
	}
	return ds
}

func tail(t *testing.T, mod *ast.Module, fn string) ast.Expr {
	t.Helper()
	decl, ok := mod.Function(fn)
	require.True(t, ok, "no function %s", fn)
	require.NotNil(t, decl.Body.Tail)
	return decl.Body.Tail
}

const addSrc = `
items:
  - kind: fn
    name: add
    params: [{name: a, type: Int}, {name: b, type: Int}]
    return: Int
    body: {kind: binary, op: "+", left: a, right: b}
  - kind: fn
    name: main
    return: Int
    body: {kind: call, callee: add, args: [10, 20]}
`

func TestCheckClean(t *testing.T) {
	c, err := checkSrc(t, addSrc)
	require.NoError(t, err)
	assert.Empty(t, c.Diagnostics())

	sig, ok := c.Signature("add")
	require.True(t, ok)
	assert.Equal(t, "fn(Int, Int) -> Int", sig.String())
}

func TestTypeErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		code diag.Code
		msg  string
	}{
		{
			name: "let annotation",
			src:  `items: [{kind: fn, name: f, body: {stmts: [{kind: let, name: _x, type: Int, value: {kind: text, value: hi}}]}}]`,
			code: diag.TypeMismatch,
			msg:  "`_x` is declared as Int but initialized with Text",
		},
		{
			name: "unknown identifier",
			src:  `items: [{kind: fn, name: f, body: nope}]`,
			code: diag.UnknownIdentifier,
			msg:  "unknown identifier `nope`",
		},
		{
			name: "non-bool condition",
			src:  `items: [{kind: fn, name: f, return: Int, body: {kind: if, cond: 1, then: 1, else: 2}}]`,
			code: diag.NonBoolCondition,
			msg:  "if condition must be Bool, found Int",
		},
		{
			name: "branch mismatch",
			src:  `items: [{kind: fn, name: f, body: {kind: if, cond: true, then: 1, else: {kind: text, value: a}}}]`,
			code: diag.BranchMismatch,
			msg:  "if branches have incompatible types Int and Text",
		},
		{
			name: "arity",
			src:  `items: [{kind: fn, name: one, params: [{name: a, type: Int}], return: Int, body: a}, {kind: fn, name: f, return: Int, body: {kind: call, callee: one, args: [1, 2]}}]`,
			code: diag.ArityMismatch,
			msg:  "`one` expects 1 argument, found 2",
		},
		{
			name: "unknown type",
			src:  `items: [{kind: fn, name: f, return: Widget, body: 1}]`,
			code: diag.UnknownType,
			msg:  "unknown type `Widget`",
		},
		{
			name: "unknown field",
			src:  `items: [{kind: type, name: Point, fields: [{name: x, type: Int}]}, {kind: fn, name: f, body: {kind: record, type: Point, fields: [{name: x, value: 1}, {name: z, value: 2}]}}]`,
			code: diag.UnknownField,
			msg:  "`Point` has no field `z`",
		},
		{
			name: "missing field",
			src:  `items: [{kind: type, name: Point, fields: [{name: x, type: Int}, {name: y, type: Int}]}, {kind: fn, name: f, body: {kind: record, type: Point, fields: [{name: x, value: 1}]}}]`,
			code: diag.TypeMismatch,
			msg:  "missing field `y` in `Point`",
		},
		{
			name: "try on plain value",
			src:  `items: [{kind: fn, name: f, body: {kind: try, expr: 1}}]`,
			code: diag.InvalidTry,
			msg:  "`?` needs an Option or Result, found Int",
		},
		{
			name: "missing trait method",
			src:  `items: [{kind: type, name: Point, fields: [{name: x, type: Int}]}, {kind: trait, name: Show, methods: [{name: show, params: [self], return: Text}]}, {kind: impl, trait: Show, target: Point, methods: []}]`,
			code: diag.MissingTraitImpl,
			msg:  "impl of `Show` for `Point` is missing method `show`",
		},
		{
			name: "non-bool contract",
			src:  `items: [{kind: fn, name: f, params: [{name: a, type: Int}], requires: [a], return: Int, body: a}]`,
			code: diag.NonBoolContract,
			msg:  "precondition must be Bool, found Int",
		},
		{
			name: "assign immutable",
			src:  `items: [{kind: fn, name: f, return: Int, body: {stmts: [{kind: let, name: x, value: 1}, {kind: assign, name: x, value: 2}], tail: x}}]`,
			code: diag.AssignImmutable,
			msg:  "cannot assign twice to immutable variable `x`",
		},
		{
			name: "assign undefined",
			src:  `items: [{kind: fn, name: f, body: {stmts: [{kind: assign, name: ghost, value: 2}]}}]`,
			code: diag.UnknownIdentifier,
			msg:  "cannot assign to undefined variable `ghost`",
		},
		{
			name: "return type",
			src:  `items: [{kind: fn, name: f, return: Int, body: {kind: text, value: no}}]`,
			code: diag.TypeMismatch,
			msg:  "function `f` returns Int but its body evaluates to Text",
		},
		{
			name: "operator operands",
			src:  `items: [{kind: fn, name: f, body: {kind: binary, op: "*", left: 1, right: {kind: text, value: a}}}]`,
			code: diag.TypeMismatch,
			msg:  "operator `*` cannot be applied to Int and Text",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := checkSrc(t, tc.src)
			require.Error(t, err)

			var bag *diag.Bag
			require.ErrorAs(t, err, &bag)

			found := withCode(c, tc.code)
			require.NotEmpty(t, found, "diagnostics: %v", c.Diagnostics())
			var msgs []string
			for _, d := range found {
				msgs = append(msgs, d.Message)
			}
			assert.Contains(t, msgs, tc.msg)
		})
	}
}

func TestCheckingContinuesAfterErrors(t *testing.T) {
	c, err := checkSrc(t, `items: [{kind: fn, name: f, body: {stmts: [nope, {kind: if, cond: 1, then: 1}, {kind: try, expr: 2}]}}]`)
	require.Error(t, err)
	assert.Len(t, withCode(c, diag.UnknownIdentifier), 1)
	assert.Len(t, withCode(c, diag.NonBoolCondition), 1)
	assert.Len(t, withCode(c, diag.InvalidTry), 1)
}

const optionMatch = `
items:
  - kind: fn
    name: f
    params: [{name: o, type: "Option[Int]"}]
    return: Int
    body:
      kind: match
      scrutinee: o
      arms: %s
`

func TestOptionExhaustiveness(t *testing.T) {
	for _, tc := range []struct {
		name    string
		arms    string
		missing string
		warns   bool
	}{
		{name: "some and none", arms: `[{pattern: {kind: variant, name: Some, args: [x]}, body: x}, {pattern: None, body: 0}]`},
		{name: "wildcard", arms: `[{pattern: _, body: 0}]`, warns: true},
		{name: "binding", arms: `[{pattern: other, body: 0}]`, warns: true},
		{name: "only some", arms: `[{pattern: {kind: variant, name: Some, args: [x]}, body: x}]`, missing: "None"},
		{name: "only none", arms: `[{pattern: None, body: 0}]`, missing: "Some(_)"},
		{
			name:    "guarded some",
			arms:    `[{pattern: {kind: variant, name: Some, args: [x]}, guard: {kind: binary, op: ">", left: x, right: 0}, body: x}, {pattern: None, body: 0}]`,
			missing: "Some(_)",
		},
		{
			name:    "refutable payload",
			arms:    `[{pattern: {kind: variant, name: Some, args: [1]}, body: 1}, {pattern: None, body: 0}]`,
			missing: "Some(_)",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := checkSrc(t, fmt.Sprintf(optionMatch, tc.arms))

			errs := withCode(c, diag.NonExhaustive)
			if tc.missing == "" {
				require.NoError(t, err)
				assert.Empty(t, errs)
			} else {
				require.Error(t, err)
				require.Len(t, errs, 1)
				assert.Equal(t, "non-exhaustive match on Option: missing "+tc.missing, errs[0].Message)
				require.Len(t, errs[0].Suggestions, 1)
				assert.Contains(t, errs[0].Suggestions[0].Edits[0].Replacement, tc.missing+` => fail("unhandled"),`)
			}
			if tc.warns {
				assert.Len(t, withCode(c, diag.WildcardMatch), 1)
			} else {
				assert.Empty(t, withCode(c, diag.WildcardMatch))
			}
		})
	}
}

const shapesSrc = `
items:
  - kind: enum
    name: Shape
    variants:
      - name: Circle
        fields: [Float]
      - name: Rect
        fields: [{name: w, type: Float}, {name: h, type: Float}]
      - Empty
  - kind: fn
    name: area
    params: [{name: s, type: Shape}]
    return: Float
    body:
      kind: match
      scrutinee: s
      arms:
        - pattern: {kind: variant, name: Circle, args: [r]}
          body: {kind: binary, op: "*", left: r, right: r}
  - kind: fn
    name: describe
    params: [{name: b, type: Bool}]
    return: Int
    body: {kind: match, scrutinee: b, arms: [{pattern: true, body: 1}]}
  - kind: fn
    name: count
    params: [{name: n, type: Int}]
    return: Int
    body: {kind: match, scrutinee: n, arms: [{pattern: 0, body: 1}]}
`

func TestEnumExhaustiveness(t *testing.T) {
	c, err := checkSrc(t, shapesSrc)
	require.Error(t, err)

	errs := withCode(c, diag.NonExhaustive)
	// count matches on Int, which is never checked for coverage
	require.Len(t, errs, 2)
	assert.Equal(t, "non-exhaustive match on Shape: missing Rect(_, _), Empty", errs[0].Message)
	assert.Equal(t,
		"\nRect(_, _) => fail(\"unhandled\"),\nEmpty => fail(\"unhandled\"),",
		errs[0].Suggestions[0].Edits[0].Replacement)
	assert.Equal(t, "non-exhaustive match on Bool: missing false", errs[1].Message)
}

const typedMatch = `
items:
  - kind: fn
    name: f
    params: [{name: v, type: "%s"}]
    return: Int
    body:
      kind: match
      scrutinee: v
      arms: %s
`

func TestMatchKinds(t *testing.T) {
	for _, tc := range []struct {
		name    string
		typ     string
		arms    string
		missing string
		warns   bool
	}{
		{
			name: "ok and err",
			typ:  "Result[Int, Text]",
			arms: `[{pattern: {kind: variant, name: Ok, args: [x]}, body: x}, {pattern: {kind: variant, name: Err, args: [_]}, body: 0}]`,
		},
		{
			name:    "only ok",
			typ:     "Result[Int, Text]",
			arms:    `[{pattern: {kind: variant, name: Ok, args: [x]}, body: x}]`,
			missing: "Result: missing Err(_)",
		},
		{
			name:    "only err",
			typ:     "Result[Int, Text]",
			arms:    `[{pattern: {kind: variant, name: Err, args: [e]}, body: 0}]`,
			missing: "Result: missing Ok(_)",
		},
		{
			name:  "result wildcard",
			typ:   "Result[Int, Text]",
			arms:  `[{pattern: _, body: 0}]`,
			warns: true,
		},
		{
			name: "true and false",
			typ:  "Bool",
			arms: `[{pattern: true, body: 1}, {pattern: false, body: 0}]`,
		},
		{
			name:    "only false",
			typ:     "Bool",
			arms:    `[{pattern: false, body: 0}]`,
			missing: "Bool: missing true",
		},
		{
			name: "int literals",
			typ:  "Int",
			arms: `[{pattern: 1, body: 1}, {pattern: 2, body: 2}]`,
		},
		{
			name: "int wildcard",
			typ:  "Int",
			arms: `[{pattern: _, body: 0}]`,
		},
		{
			name: "irrefutable tuple",
			typ:  "(Int, Int)",
			arms: `[{pattern: {kind: tuple, elems: [x, y]}, body: {kind: binary, op: "+", left: x, right: y}}]`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := checkSrc(t, fmt.Sprintf(typedMatch, tc.typ, tc.arms))

			errs := withCode(c, diag.NonExhaustive)
			if tc.missing == "" {
				require.NoError(t, err)
				assert.Empty(t, errs)
			} else {
				require.Error(t, err)
				require.Len(t, errs, 1)
				assert.Equal(t, "non-exhaustive match on "+tc.missing, errs[0].Message)
			}
			if tc.warns {
				assert.Len(t, withCode(c, diag.WildcardMatch), 1)
			} else {
				assert.Empty(t, withCode(c, diag.WildcardMatch))
			}
		})
	}
}

func TestVariantPatternBindings(t *testing.T) {
	src := `
items:
  - kind: enum
    name: Shape
    variants:
      - name: Rect
        fields: [{name: w, type: Float}, {name: label, type: Text}]
  - kind: fn
    name: label
    params: [{name: s, type: Shape}]
    return: Text
    body:
      kind: match
      scrutinee: s
      arms:
        - pattern: {kind: variant, name: Rect, args: [l, _w]}
          body: l
`
	c, err := checkSrc(t, src)
	require.NoError(t, err, "%v", c.Diagnostics())
}

func TestRecordFieldShorthand(t *testing.T) {
	src := `
items:
  - {kind: type, name: Point, fields: [{name: x, type: Int}, {name: y, type: Int}]}
  - kind: fn
    name: px
    params: [{name: p, type: Point}]
    return: Int
    body:
      kind: match
      scrutinee: p
      arms:
        - pattern: {kind: record, type: Point, fields: [{name: x}, {name: y, pattern: _}]}
          body: x
`
	c, err := checkSrc(t, src)
	require.NoError(t, err, "%v", c.Diagnostics())
	assert.Empty(t, withCode(c, diag.UnknownIdentifier))
	assert.Empty(t, withCode(c, diag.NonExhaustive))
}

func TestEffectListInsertion(t *testing.T) {
	const src = `
items:
  - kind: fn
    name: hello
    span: {line: 1, column: 1, start: 0, end: 60}
    effects: [%s]
    body:
      kind: method
      receiver: Console
      method: println
      args: [{kind: text, value: hi}]
      span: {line: 2, column: 3, start: 20, end: 45}
`
	for _, tc := range []struct {
		name     string
		declared string
		want     string
	}{
		{"no effects", "", "with Console"},
		{"extends declared", "Clock", ", Console"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := checkSrc(t, fmt.Sprintf(src, tc.declared))
			require.Error(t, err)
			errs := withCode(c, diag.EffectNotDeclared)
			require.Len(t, errs, 1)
			require.Len(t, errs[0].Suggestions, 1)
			edit := errs[0].Suggestions[0].Edits[0]
			assert.Equal(t, 20, edit.Span.Start)
			assert.Equal(t, 20, edit.Span.End, "inserts without replacing the function")
			assert.Equal(t, tc.want, edit.Replacement)
		})
	}
}

func TestEffectNotDeclared(t *testing.T) {
	mod, err := ast.DecodeFile("testdata/effects.ast.yaml")
	require.NoError(t, err)

	c := New()
	err = c.CheckModule(mod)
	require.Error(t, err)

	missing := withCode(c, diag.EffectNotDeclared)
	require.Len(t, missing, 3)

	clock, console, log := missing[0], missing[1], missing[2]
	assert.Equal(t, "function `greet` uses effect Clock but does not declare it", clock.Message)
	assert.Equal(t, "function `greet` uses effect Console but does not declare it", console.Message)
	assert.Equal(t, 8, console.Span.Line, "reported at the first use")
	for _, d := range []diag.Diagnostic{clock, console} {
		require.Len(t, d.Suggestions, 1)
		edit := d.Suggestions[0].Edits[0]
		assert.Equal(t, "with Clock, Console", edit.Replacement)
		assert.Equal(t, 79, edit.Span.Start)
	}
	assert.Equal(t, "function `unhandled` uses effect Log but does not declare it", log.Message)

	unknown := withCode(c, diag.UnknownEffect)
	require.Len(t, unknown, 1)
	assert.Equal(t, "unknown effect Teleport", unknown[0].Message)
}

func TestUnknownEffectOperation(t *testing.T) {
	c, err := checkSrc(t, `items: [{kind: fn, name: f, effects: [Console], body: {kind: method, receiver: Console, method: shout, args: []}}]`)
	require.Error(t, err)
	errs := withCode(c, diag.UnknownIdentifier)
	require.Len(t, errs, 1)
	assert.Equal(t, "effect Console has no operation `shout`", errs[0].Message)
}

func TestShadowedBinding(t *testing.T) {
	src := `items: [{kind: fn, name: f, return: Int, body: {stmts: [{kind: let, name: x, value: 1}, {kind: let, name: x, value: 2}], tail: x}}]`
	mod := decode(t, src)
	c := New()
	require.NoError(t, c.CheckModule(mod))

	assert.Len(t, withCode(c, diag.ShadowedBinding), 1)
	unused := withCode(c, diag.UnusedVariable)
	require.Len(t, unused, 1, "only the shadowed binding goes unread")
	assert.Equal(t, Int, c.TypeOf(tail(t, mod, "f")))
}

func TestLint(t *testing.T) {
	for _, tc := range []struct {
		name  string
		src   string
		code  diag.Code
		count int
	}{
		{
			name:  "unused variable",
			src:   `items: [{kind: fn, name: f, return: Int, body: {stmts: [{kind: let, name: x, value: 1}], tail: 2}}]`,
			code:  diag.UnusedVariable,
			count: 1,
		},
		{
			name: "unused marker",
			src:  `items: [{kind: fn, name: f, params: [_p], return: Int, body: {stmts: [{kind: let, name: _x, value: 1}], tail: 2}}]`,
			code: diag.UnusedVariable,
		},
		{
			name:  "unused parameter",
			src:   `items: [{kind: fn, name: f, params: [{name: p, type: Int}], return: Int, body: 2}]`,
			code:  diag.UnusedVariable,
			count: 1,
		},
		{
			name:  "unused loop variable",
			src:   `items: [{kind: fn, name: f, body: {stmts: [{kind: for, var: i, iter: {kind: range, start: 0, end: 3}, body: {stmts: []}}]}}]`,
			code:  diag.UnusedVariable,
			count: 1,
		},
		{
			name:  "unreachable",
			src:   `items: [{kind: fn, name: f, return: Int, body: {stmts: [{kind: return, value: 1}, {kind: expr, expr: 2}], tail: 3}}]`,
			code:  diag.UnreachableCode,
			count: 2,
		},
		{
			name:  "unused import",
			src:   `items: [{kind: import, path: std.math, names: [abs]}]`,
			code:  diag.UnusedImport,
			count: 1,
		},
		{
			name: "used import",
			src:  `items: [{kind: import, path: std.math, names: [abs]}, {kind: fn, name: f, body: {kind: call, callee: abs, args: [-1]}}]`,
			code: diag.UnusedImport,
		},
		{
			name: "used module import",
			src:  `items: [{kind: import, path: std.math}, {kind: fn, name: f, body: {kind: method, receiver: math, method: abs, args: [-1]}}]`,
			code: diag.UnusedImport,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, err := checkSrc(t, tc.src)
			require.NoError(t, err, "%v", c.Diagnostics())
			assert.Len(t, withCode(c, tc.code), tc.count)
		})
	}
}

func TestUnusedMarker(t *testing.T) {
	mod := decode(t, `items: [{kind: fn, name: f, return: Int, body: {stmts: [{kind: let, name: ignored_x, value: 1}], tail: 2}}]`)
	c := New()
	c.UnusedMarker = "ignored_"
	require.NoError(t, c.CheckModule(mod))
	assert.Empty(t, withCode(c, diag.UnusedVariable))
}

func TestAsync(t *testing.T) {
	src := `
items:
  - {kind: fn, name: fetch, async: true, return: Int, body: 1}
  - {kind: fn, name: good, return: Int, body: {kind: await, expr: {kind: call, callee: fetch}}}
  - {kind: fn, name: bad, return: Int, body: {kind: call, callee: fetch}}
`
	mod := decode(t, src)
	c := New()
	require.Error(t, c.CheckModule(mod))

	assert.Equal(t, "Int", c.TypeOf(tail(t, mod, "good")).String())
	assert.Equal(t, "Future[Int]", c.TypeOf(tail(t, mod, "bad")).String())
	errs := withCode(c, diag.TypeMismatch)
	require.Len(t, errs, 1)
	assert.Equal(t, "function `bad` returns Int but its body evaluates to Future[Int]", errs[0].Message)
}

func TestMethodInference(t *testing.T) {
	src := `
items:
  - kind: fn
    name: doubled
    body:
      kind: method
      receiver: {kind: list, elems: [1, 2, 3]}
      method: map
      args: [{kind: lambda, params: [x], body: {kind: binary, op: "*", left: x, right: 2}}]
  - kind: fn
    name: snake
    body: {kind: method, receiver: {kind: text, value: HelloWorld}, method: to_snake, args: []}
  - kind: fn
    name: lookup
    body:
      kind: method
      receiver: {kind: map, entries: [{key: {kind: text, value: a}, value: 1}]}
      method: get
      args: [{kind: text, value: a}]
  - kind: fn
    name: fresh
    body: {kind: method, receiver: Set, method: from, args: [{kind: list, elems: [1, 2]}]}
`
	mod := decode(t, src)
	c := New()
	require.NoError(t, c.CheckModule(mod), "%v", c.Diagnostics())

	assert.Equal(t, "List[Int]", c.TypeOf(tail(t, mod, "doubled")).String())
	assert.Equal(t, "Text", c.TypeOf(tail(t, mod, "snake")).String())
	assert.Equal(t, "Option[Int]", c.TypeOf(tail(t, mod, "lookup")).String())
	assert.Equal(t, "Set[Int]", c.TypeOf(tail(t, mod, "fresh")).String())
}

func TestImplMethods(t *testing.T) {
	src := `
items:
  - {kind: type, name: Point, fields: [{name: x, type: Int}, {name: y, type: Int}]}
  - {kind: trait, name: Norm, methods: [{name: norm, params: [self], return: Int}]}
  - kind: impl
    trait: Norm
    target: Point
    methods:
      - {kind: fn, name: norm, params: [self], return: Int, body: {kind: binary, op: "+", left: self.x, right: self.y}}
  - kind: fn
    name: main
    return: Int
    body:
      kind: method
      receiver: {kind: record, type: Point, fields: [{name: x, value: 3}, {name: y, value: 4}]}
      method: norm
      args: []
`
	mod := decode(t, src)
	c := New()
	require.NoError(t, c.CheckModule(mod), "%v", c.Diagnostics())
	assert.Equal(t, Int, c.TypeOf(tail(t, mod, "main")))
}

func TestTypeInvariant(t *testing.T) {
	c, err := checkSrc(t, `items: [{kind: type, name: Age, alias: Int, invariant: {kind: binary, op: "+", left: self, right: 1}}]`)
	require.Error(t, err)
	errs := withCode(c, diag.NonBoolContract)
	require.Len(t, errs, 1)
	assert.Equal(t, "invariant of `Age` must be Bool, found Int", errs[0].Message)
}

func TestRecheckIsIdempotent(t *testing.T) {
	mod, err := ast.DecodeFile("testdata/effects.ast.yaml")
	require.NoError(t, err)

	c := New()
	first := c.CheckModule(mod)
	firstDiags := c.Diagnostics()
	second := c.CheckModule(mod)

	require.Error(t, first)
	assert.Equal(t, first.Error(), second.Error())
	assert.Equal(t, firstDiags, c.Diagnostics())
}

func TestSink(t *testing.T) {
	var got []diag.Code
	c := New()
	c.Sink = diag.SinkFunc(func(d diag.Diagnostic) { got = append(got, d.Code) })
	require.Error(t, c.CheckModule(decode(t, `items: [{kind: fn, name: f, body: nope}]`)))
	assert.Equal(t, []diag.Code{diag.UnknownIdentifier}, got)
}
