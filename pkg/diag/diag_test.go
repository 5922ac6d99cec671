package diag

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/vito/warden/pkg/ast"
)

const appSource = `fn greet() {
  let name = "world"
  Console.println(name)
}`

func sampleDiagnostics() []Diagnostic {
	effect := NewError(EffectNotDeclared,
		ast.Span{File: "app.wd", Line: 3, Column: 3, Start: 35, End: 42},
		"effect %s is used but not declared", "Console").
		WithNote("effects are checked per function").
		WithSuggestion("declare the effect", Edit{Replacement: "fn greet() with Console {"})
	unused := NewWarning(UnusedVariable, ast.Span{}, "unused variable `%s`", "x")
	return []Diagnostic{effect, unused}
}

func TestRenderPlain(t *testing.T) {
	r := &Renderer{Plain: true, Context: 1, Sources: map[string]string{"app.wd": appSource}}
	golden.Assert(t, r.RenderAll(sampleDiagnostics()), "render.golden")
}

func TestRenderStyledMatchesPlain(t *testing.T) {
	plain := &Renderer{Plain: true, Context: 1, Sources: map[string]string{"app.wd": appSource}}
	styled := &Renderer{Context: 1, Sources: map[string]string{"app.wd": appSource}}

	ds := sampleDiagnostics()
	assert.Equal(t, plain.RenderAll(ds), ansi.Strip(styled.RenderAll(ds)))
}

func TestRenderMissingSource(t *testing.T) {
	r := &Renderer{Plain: true}
	out := r.Render(NewError(ModuleNotFound, ast.Span{File: "does/not/exist.wd", Line: 2, Column: 1}, "module not found"))
	assert.Equal(t, "error[E4011]: module not found\n  --> does/not/exist.wd:2:1\n", out)
}

func TestBag(t *testing.T) {
	bag := &Bag{}
	assert.False(t, bag.HasErrors())
	assert.Equal(t, "no errors", bag.Error())

	bag.Push(NewWarning(ShadowedBinding, ast.Span{File: "a", Line: 4}, "shadowed"))
	bag.Push(NewError(TypeMismatch, ast.Span{File: "a", Line: 9}, "mismatch"))
	bag.Push(NewError(ArityMismatch, ast.Span{File: "a", Line: 2}, "arity"))

	require.True(t, bag.HasErrors())
	assert.Len(t, bag.Errors(), 2)
	assert.Len(t, bag.Warnings(), 1)
	assert.Len(t, bag.WithCode(TypeMismatch), 1)

	bag.Sort()
	assert.Equal(t, ArityMismatch, bag.Diagnostics[0].Code)
	assert.Equal(t, ShadowedBinding, bag.Diagnostics[1].Code)
	assert.Equal(t, TypeMismatch, bag.Diagnostics[2].Code)

	assert.Equal(t, "2 errors:\nerror[E1006] a:2:0: arity\nerror[E1001] a:9:0: mismatch", bag.Error())

	var err error = bag
	assert.Error(t, err)
}

func TestSinkFunc(t *testing.T) {
	var got []Code
	var sink Sink = SinkFunc(func(d Diagnostic) { got = append(got, d.Code) })
	sink.Push(NewError(UnknownEffect, ast.Span{}, "unknown effect"))
	assert.Equal(t, []Code{UnknownEffect}, got)
}

func TestCategory(t *testing.T) {
	for code, cat := range map[Code]string{
		Syntax:             "syntax",
		TypeMismatch:       "type",
		EffectNotDeclared:  "effect",
		PreconditionFailed: "contract",
		CallDepthExceeded:  "runtime",
		WildcardMatch:      "lint",
	} {
		assert.Equal(t, cat, code.Category(), string(code))
	}
}
