package eval

import (
	"context"

	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

func init() {
	registerPrelude()
	registerTextMethods()
	registerNumberMethods()
	registerCollectionMethods()
	registerWrapperMethods()
}

// prelude builds the root environment every module runs under.
func (i *Interpreter) prelude() *value.Env {
	env := value.NewEnv()
	env.Define("None", value.None())
	for _, def := range functions() {
		env.Define(def.Name, def.function())
	}
	return env
}

func (d BuiltinDef) function() *value.BuiltinFunction {
	return &value.BuiltinFunction{
		Name:  d.Name,
		Arity: len(d.Params),
		Impl: func(ctx context.Context, args []value.Value) (value.Value, error) {
			return d.Impl(ctx, nil, d.bind(args))
		},
	}
}

func registerPrelude() {
	Builtin("Some").
		Doc("wraps a present value").
		Params("value", "T").
		Returns("Option[T]").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			v, _ := args.Get("value")
			return value.Some(v), nil
		})

	Builtin("Ok").
		Doc("wraps a successful result").
		Params("value", "T").
		Returns("Result[T, E]").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			v, _ := args.Get("value")
			return value.Ok(v), nil
		})

	Builtin("Err").
		Doc("wraps a failed result").
		Params("error", "E").
		Returns("Result[T, E]").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			v, _ := args.Get("error")
			return value.Err(v), nil
		})

	Builtin("assert").
		Doc("fails unless the condition holds").
		Params("cond", "Bool").
		Returns("Unit").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			v, _ := args.Get("cond")
			b, ok := v.(value.BoolValue)
			if !ok {
				return nil, argType("cond", "Bool", v)
			}
			if !b.Val {
				return nil, fault(diag.AssertionFailed, "assertion failed")
			}
			return value.Unit, nil
		})

	Builtin("assert_eq").
		Doc("fails unless both values are structurally equal").
		Params("actual", "T", "expected", "T").
		Returns("Unit").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			actual, _ := args.Get("actual")
			expected, _ := args.Get("expected")
			if !value.Equal(actual, expected) {
				return nil, fault(diag.AssertionFailed, "assertion failed: expected %s, got %s",
					value.Repr(expected), value.Repr(actual))
			}
			return value.Unit, nil
		})

	Builtin("fail").
		Doc("stops evaluation with a message").
		Params("message", "Text").
		Returns("T").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			msg, err := args.Text("message")
			if err != nil {
				return nil, err
			}
			return nil, fault(diag.RuntimeFailure, "%s", msg)
		})

	Builtin("range").
		Doc("the integers from start up to but excluding end").
		Params("start", "Int", "end", "Int").
		Returns("List[Int]").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			lo, err := args.Int("start")
			if err != nil {
				return nil, err
			}
			hi, err := args.Int("end")
			if err != nil {
				return nil, err
			}
			return intRange(lo, hi), nil
		})

	Builtin("to_text").
		Doc("renders any value as text").
		Params("value", "T").
		Returns("Text").
		Impl(func(ctx context.Context, args Args) (value.Value, error) {
			v, _ := args.Get("value")
			return value.Text(v.String()), nil
		})
}
