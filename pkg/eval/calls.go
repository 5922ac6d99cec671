package eval

import (
	"context"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

// call applies any callable value. Async closures are not run: they
// produce a future for `await` to resolve.
func (i *Interpreter) call(ctx context.Context, fn value.Value, args []value.Value, span ast.Span) (value.Value, error) {
	switch f := fn.(type) {
	case *value.Closure:
		if f.Async {
			if err := checkArity(f.String(), len(f.Params), len(args), span); err != nil {
				return nil, err
			}
			return &value.FutureValue{Callee: f, Args: args}, nil
		}
		return i.invoke(ctx, f, args, span)
	case *value.BuiltinFunction:
		if f.Arity >= 0 {
			if err := checkArity(f.Name, f.Arity, len(args), span); err != nil {
				return nil, err
			}
		}
		v, err := f.Impl(ctx, args)
		if err != nil {
			return nil, locate(err, span)
		}
		return v, nil
	case *value.VariantConstructor:
		if err := checkArity(f.String(), len(f.Fields), len(args), span); err != nil {
			return nil, err
		}
		return f.Construct(args), nil
	}
	return nil, faultAt(span, diag.NotCallable, "%s is not callable", value.Describe(fn))
}

func checkArity(name string, want, got int, span ast.Span) error {
	if want == got {
		return nil
	}
	return faultAt(span, diag.RuntimeArity, "%s expects %d argument%s, got %d", name, want, plural(want), got)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// invoke runs a closure's body with its contracts.
func (i *Interpreter) invoke(ctx context.Context, fn *value.Closure, args []value.Value, span ast.Span) (value.Value, error) {
	if err := checkArity(fn.String(), len(fn.Params), len(args), span); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, faultAt(span, diag.RuntimeFailure, "evaluation cancelled: %v", err)
	}

	i.depth++
	defer func() { i.depth-- }()
	if i.depth > i.maxDepth {
		return nil, faultAt(span, diag.CallDepthExceeded, "maximum call depth of %d exceeded in %s", i.maxDepth, fn)
	}

	env := bindParams(fn, args)

	for _, req := range fn.Requires {
		if err := i.contract(ctx, env, req, diag.PreconditionFailed, "precondition", fn); err != nil {
			return nil, err
		}
	}

	result, err := callBoundary(i.eval(ctx, env, fn.Body))
	if err != nil {
		return nil, err
	}

	if len(fn.Ensures) > 0 {
		post := bindParams(fn, args)
		post.Define("result", result)
		for _, ens := range fn.Ensures {
			if err := i.contract(ctx, post, ens, diag.PostconditionFailed, "postcondition", fn); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func bindParams(fn *value.Closure, args []value.Value) *value.Env {
	env := fn.Env.Child()
	for idx, p := range fn.Params {
		env.Define(p.Name, args[idx])
	}
	return env
}

func (i *Interpreter) contract(ctx context.Context, env *value.Env, expr ast.Expr, code diag.Code, what string, fn *value.Closure) error {
	v, err := i.eval(ctx, env, expr)
	if err != nil {
		return err
	}
	if b, ok := v.(value.BoolValue); ok && b.Val {
		return nil
	}
	return faultAt(expr.GetSpan(), code, "%s of %s failed: %s", what, fn.Name, ast.Format(expr))
}

// await resolves futures, running the deferred call.
func (i *Interpreter) await(ctx context.Context, v value.Value, span ast.Span) (value.Value, error) {
	for {
		f, ok := v.(*value.FutureValue)
		if !ok {
			return v, nil
		}
		closure, ok := f.Callee.(*value.Closure)
		if !ok {
			return i.call(ctx, f.Callee, f.Args, span)
		}
		var err error
		if v, err = i.invoke(ctx, closure, f.Args, span); err != nil {
			return nil, err
		}
	}
}

func (i *Interpreter) evalArgs(ctx context.Context, env *value.Env, exprs []ast.Expr) ([]value.Value, error) {
	args := make([]value.Value, len(exprs))
	for idx, e := range exprs {
		v, err := i.eval(ctx, env, e)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}
	return args, nil
}
