package eval

import (
	"context"
	"math"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

func (i *Interpreter) evalBinary(ctx context.Context, env *value.Env, e *ast.Binary) (value.Value, error) {
	switch e.Op {
	case "&&", "||":
		return i.evalLogical(ctx, env, e)
	}

	l, err := i.eval(ctx, env, e.Left)
	if err != nil {
		return nil, err
	}
	r, err := i.eval(ctx, env, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==":
		return value.Bool(value.Equal(l, r)), nil
	case "!=":
		return value.Bool(!value.Equal(l, r)), nil
	case "<", "<=", ">", ">=":
		return compare(e, l, r)
	case "+":
		switch x := l.(type) {
		case value.TextValue:
			if y, ok := r.(value.TextValue); ok {
				return value.Text(x.Val + y.Val), nil
			}
		case value.ListValue:
			if y, ok := r.(value.ListValue); ok {
				elems := append(append([]value.Value{}, x.Elems...), y.Elems...)
				return value.ListValue{Elems: elems}, nil
			}
		}
	}
	return arithmetic(e, l, r)
}

func (i *Interpreter) evalLogical(ctx context.Context, env *value.Env, e *ast.Binary) (value.Value, error) {
	l, err := i.eval(ctx, env, e.Left)
	if err != nil {
		return nil, err
	}
	lb, ok := l.(value.BoolValue)
	if !ok {
		return nil, faultAt(e.Left.GetSpan(), diag.RuntimeType, "`%s` needs Bool operands, got %s", e.Op, value.Describe(l))
	}
	if (e.Op == "&&" && !lb.Val) || (e.Op == "||" && lb.Val) {
		return lb, nil
	}
	r, err := i.eval(ctx, env, e.Right)
	if err != nil {
		return nil, err
	}
	if _, ok := r.(value.BoolValue); !ok {
		return nil, faultAt(e.Right.GetSpan(), diag.RuntimeType, "`%s` needs Bool operands, got %s", e.Op, value.Describe(r))
	}
	return r, nil
}

func compare(e *ast.Binary, l, r value.Value) (value.Value, error) {
	_, lText := l.(value.TextValue)
	_, rText := r.(value.TextValue)
	_, lNum := value.AsFloat(l)
	_, rNum := value.AsFloat(r)
	if !(lText && rText) && !(lNum && rNum) {
		return nil, faultAt(e.Span, diag.RuntimeType, "cannot compare %s with %s", value.Describe(l), value.Describe(r))
	}
	c := value.Compare(l, r)
	switch e.Op {
	case "<":
		return value.Bool(c < 0), nil
	case "<=":
		return value.Bool(c <= 0), nil
	case ">":
		return value.Bool(c > 0), nil
	}
	return value.Bool(c >= 0), nil
}

func arithmetic(e *ast.Binary, l, r value.Value) (value.Value, error) {
	x, xInt := l.(value.IntValue)
	y, yInt := r.(value.IntValue)
	if xInt && yInt {
		switch e.Op {
		case "+":
			return value.Int(x.Val + y.Val), nil
		case "-":
			return value.Int(x.Val - y.Val), nil
		case "*":
			return value.Int(x.Val * y.Val), nil
		case "/", "%":
			if y.Val == 0 {
				return nil, faultAt(e.Span, diag.DivisionByZero, "division by zero")
			}
			if e.Op == "/" {
				return value.Int(x.Val / y.Val), nil
			}
			return value.Int(x.Val % y.Val), nil
		}
		return nil, faultAt(e.Span, diag.Internal, "unknown operator `%s`", e.Op)
	}

	a, ok1 := value.AsFloat(l)
	b, ok2 := value.AsFloat(r)
	if !ok1 || !ok2 {
		return nil, faultAt(e.Span, diag.RuntimeType, "`%s` cannot be applied to %s and %s", e.Op, value.Describe(l), value.Describe(r))
	}
	switch e.Op {
	case "+":
		return value.Float(a + b), nil
	case "-":
		return value.Float(a - b), nil
	case "*":
		return value.Float(a * b), nil
	case "/", "%":
		if b == 0 {
			return nil, faultAt(e.Span, diag.DivisionByZero, "division by zero")
		}
		if e.Op == "/" {
			return value.Float(a / b), nil
		}
		return value.Float(math.Mod(a, b)), nil
	}
	return nil, faultAt(e.Span, diag.Internal, "unknown operator `%s`", e.Op)
}

func (i *Interpreter) evalUnary(ctx context.Context, env *value.Env, e *ast.Unary) (value.Value, error) {
	v, err := i.eval(ctx, env, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "!":
		if b, ok := v.(value.BoolValue); ok {
			return value.Bool(!b.Val), nil
		}
	case "-":
		switch n := v.(type) {
		case value.IntValue:
			return value.Int(-n.Val), nil
		case value.FloatValue:
			return value.Float(-n.Val), nil
		}
	}
	return nil, faultAt(e.Span, diag.RuntimeType, "`%s` cannot be applied to %s", e.Op, value.Describe(v))
}
