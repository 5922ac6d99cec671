package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

// TestResult is the outcome of one test or property block.
type TestResult struct {
	Name     string
	Property bool
	Span     ast.Span
	// Runs is how many times the body ran; properties stop at the first
	// failing input.
	Runs int
	Err  *RuntimeError
	// Inputs holds the generated arguments of a failing property run.
	Inputs []value.Value
}

func (r TestResult) Passed() bool { return r.Err == nil }

func (r TestResult) String() string {
	status := "ok"
	if !r.Passed() {
		status = "FAIL"
	}
	s := fmt.Sprintf("%s %s", status, r.Name)
	if r.Property {
		s += fmt.Sprintf(" (%d runs)", r.Runs)
	}
	if len(r.Inputs) > 0 {
		parts := make([]string, len(r.Inputs))
		for i, v := range r.Inputs {
			parts[i] = value.Repr(v)
		}
		s += " with " + strings.Join(parts, ", ")
	}
	if r.Err != nil {
		s += "\n  " + r.Err.Error()
	}
	return s
}

type TestReport struct {
	Module  string
	Results []TestResult
}

func (r *TestReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed() {
			n++
		}
	}
	return n
}

// RunTests loads mod and runs its test and property blocks in source
// order. The returned error is only set when the module itself cannot be
// loaded; failing tests are reported in the results.
func (i *Interpreter) RunTests(ctx context.Context, mod *ast.Module) (report *TestReport, err error) {
	defer i.recoverInternal(&err)

	env, err := i.define(ctx, mod)
	if err != nil {
		return nil, asRuntimeError(err)
	}

	report = &TestReport{Module: mod.Name()}
	for _, item := range mod.Items {
		switch d := item.(type) {
		case *ast.TestDecl:
			slog.Debug("running test", "test", d.Name)
			_, err := i.runBody(ctx, env.Child(), d.Body)
			report.Results = append(report.Results, TestResult{
				Name: d.Name,
				Span: d.Span,
				Runs: 1,
				Err:  asRuntimeError(err),
			})
		case *ast.PropertyDecl:
			slog.Debug("running property", "property", d.Name, "runs", i.propertyRuns)
			report.Results = append(report.Results, i.runProperty(ctx, env, d))
		}
	}
	return report, nil
}

// runBody runs a test body the way a function body runs.
func (i *Interpreter) runBody(ctx context.Context, env *value.Env, body *ast.Block) (value.Value, error) {
	v, err := callBoundary(i.execBlock(ctx, env, body))
	if err != nil {
		return nil, err
	}
	return i.await(ctx, v, body.Span)
}

func (i *Interpreter) runProperty(ctx context.Context, env *value.Env, d *ast.PropertyDecl) TestResult {
	res := TestResult{Name: d.Name, Property: true, Span: d.Span}
	if i.caps.Rand == nil {
		res.Err = faultAt(d.Span, diag.CapabilityMissing, "property %s needs the Rand capability to generate inputs", d.Name)
		return res
	}
	for run := 0; run < i.propertyRuns; run++ {
		inputs := make([]value.Value, len(d.Params))
		scope := env.Child()
		for idx, p := range d.Params {
			v, err := i.generate(p)
			if err != nil {
				res.Err = err
				return res
			}
			inputs[idx] = v
			scope.Define(p.Name, v)
		}
		res.Runs++
		if _, err := i.runBody(ctx, scope, d.Body); err != nil {
			res.Err = asRuntimeError(err)
			res.Inputs = inputs
			return res
		}
	}
	return res
}

const textAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 _-"

// generate draws a random value for a property parameter.
func (i *Interpreter) generate(p ast.Param) (value.Value, *RuntimeError) {
	rng := i.caps.Rand
	named, _ := p.Type.(*ast.NamedType)
	if named == nil {
		return nil, faultAt(p.Span, diag.RuntimeType, "property parameter `%s` needs a type", p.Name)
	}
	switch named.Name {
	case "Int":
		return value.Int(rng.Int(-1000, 1000)), nil
	case "Bool":
		return value.Bool(rng.Bool()), nil
	case "Float":
		return value.Float(rng.Float()*2000 - 1000), nil
	case "Text":
		n := rng.Int(0, 16)
		var b strings.Builder
		for range n {
			b.WriteByte(textAlphabet[rng.Int(0, int64(len(textAlphabet)-1))])
		}
		return value.Text(b.String()), nil
	}
	return nil, faultAt(p.Span, diag.RuntimeType, "cannot generate values of type %s for `%s`", named, p.Name)
}
