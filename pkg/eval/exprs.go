package eval

import (
	"context"
	"strconv"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/value"
)

func (i *Interpreter) eval(ctx context.Context, env *value.Env, expr ast.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case nil, *ast.UnitLit:
		return value.Unit, nil
	case *ast.IntLit:
		return value.Int(e.Value), nil
	case *ast.FloatLit:
		return value.Float(e.Value), nil
	case *ast.BoolLit:
		return value.Bool(e.Value), nil
	case *ast.TextLit:
		return value.Text(e.Value), nil
	case *ast.Ident:
		if v, ok := env.Lookup(e.Name); ok {
			return v, nil
		}
		return nil, faultAt(e.Span, diag.UndefinedVariable, "undefined variable `%s`", e.Name)
	case *ast.QualifiedIdent:
		return i.evalQualified(env, e)
	case *ast.ListLit:
		elems, err := i.evalArgs(ctx, env, e.Elems)
		if err != nil {
			return nil, err
		}
		return value.ListValue{Elems: elems}, nil
	case *ast.TupleLit:
		elems, err := i.evalArgs(ctx, env, e.Elems)
		if err != nil {
			return nil, err
		}
		return value.TupleValue{Elems: elems}, nil
	case *ast.SetLit:
		elems, err := i.evalArgs(ctx, env, e.Elems)
		if err != nil {
			return nil, err
		}
		return value.NewSet(elems...), nil
	case *ast.MapLit:
		m := value.MapValue{}
		for _, entry := range e.Entries {
			k, err := i.eval(ctx, env, entry.Key)
			if err != nil {
				return nil, err
			}
			v, err := i.eval(ctx, env, entry.Value)
			if err != nil {
				return nil, err
			}
			m = m.Insert(k, v)
		}
		return m, nil
	case *ast.RecordLit:
		return i.evalRecord(ctx, env, e)
	case *ast.Binary:
		return i.evalBinary(ctx, env, e)
	case *ast.Unary:
		return i.evalUnary(ctx, env, e)
	case *ast.Call:
		fn, err := i.eval(ctx, env, e.Callee)
		if err != nil {
			return nil, err
		}
		args, err := i.evalArgs(ctx, env, e.Args)
		if err != nil {
			return nil, err
		}
		return i.call(ctx, fn, args, e.Span)
	case *ast.MethodCall:
		return i.evalMethodCall(ctx, env, e)
	case *ast.FieldAccess:
		target, err := i.eval(ctx, env, e.Target)
		if err != nil {
			return nil, err
		}
		return field(target, e.Field, e.Span)
	case *ast.Index:
		return i.evalIndex(ctx, env, e)
	case *ast.If:
		return i.evalIf(ctx, env, e)
	case *ast.Match:
		return i.evalMatch(ctx, env, e)
	case *ast.Lambda:
		return &value.Closure{Params: e.Params, Return: e.Return, Body: e.Body, Env: env}, nil
	case *ast.BlockExpr:
		return i.execBlock(ctx, env.Child(), e.Block)
	case *ast.Try:
		return i.evalTry(ctx, env, e)
	case *ast.Await:
		v, err := i.eval(ctx, env, e.Expr)
		if err != nil {
			return nil, err
		}
		return i.await(ctx, v, e.Span)
	case *ast.Range:
		return i.evalRange(ctx, env, e)
	case *ast.Handle:
		handler, err := i.eval(ctx, env, e.Handler)
		if err != nil {
			return nil, err
		}
		scope := env.Child()
		scope.Define(handlerName(e.Effect), handler)
		return i.execBlock(withHandler(ctx, e.Effect, handler), scope, e.Body)
	}
	return nil, faultAt(expr.GetSpan(), diag.Internal, "cannot evaluate %T", expr)
}

func (i *Interpreter) evalQualified(env *value.Env, e *ast.QualifiedIdent) (value.Value, error) {
	if len(e.Path) < 2 {
		return nil, faultAt(e.Span, diag.UndefinedVariable, "undefined variable `%s`", ast.Format(e))
	}
	head, name := e.Path[0], e.Path[1]

	if _, bound := env.Lookup(head); !bound {
		if effects.IsBuiltin(head) || i.types.effects[head] != nil {
			return i.effectFunction(env, head, name), nil
		}
		if enum, ok := i.types.enums[head]; ok {
			v, ok := enum.Variant(name)
			if !ok {
				return nil, faultAt(e.Span, diag.UndefinedVariable, "enum %s has no variant %s", head, name)
			}
			return variantValue(enum.Name, v), nil
		}
		return nil, faultAt(e.Span, diag.UndefinedVariable, "undefined variable `%s`", head)
	}

	v, _ := env.Lookup(head)
	for _, f := range e.Path[1:] {
		var err error
		if v, err = field(v, f, e.Span); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// effectFunction turns `Effect.op` used as a value into a function.
func (i *Interpreter) effectFunction(env *value.Env, effect, op string) value.Value {
	return &value.BuiltinFunction{
		Name:  effect + "." + op,
		Arity: -1,
		Impl: func(ctx context.Context, args []value.Value) (value.Value, error) {
			return i.performEffect(ctx, env, effect, op, args, ast.Span{})
		},
	}
}

func field(target value.Value, name string, span ast.Span) (value.Value, error) {
	switch t := target.(type) {
	case value.RecordValue:
		if v, ok := t.Fields[name]; ok {
			return v, nil
		}
	case value.VariantValue:
		if rec, ok := t.Payload.(value.RecordValue); ok {
			if v, ok := rec.Fields[name]; ok {
				return v, nil
			}
		}
	case value.TupleValue:
		idx, err := strconv.Atoi(name)
		if err == nil {
			if idx < 0 || idx >= len(t.Elems) {
				return nil, faultAt(span, diag.IndexOutOfBounds, "tuple index %d out of bounds for length %d", idx, len(t.Elems))
			}
			return t.Elems[idx], nil
		}
	}
	return nil, faultAt(span, diag.RuntimeType, "%s has no field `%s`", value.Describe(target), name)
}

func (i *Interpreter) evalRecord(ctx context.Context, env *value.Env, e *ast.RecordLit) (value.Value, error) {
	fields := make(map[string]value.Value, len(e.Fields))
	for _, f := range e.Fields {
		v, err := i.eval(ctx, env, f.Value)
		if err != nil {
			return nil, err
		}
		fields[f.Name] = v
	}
	if e.TypeName == "" {
		return value.RecordValue{Fields: fields}, nil
	}

	if decl, ok := i.types.records[e.TypeName]; ok {
		rec := value.RecordValue{Name: e.TypeName, Fields: fields}
		for _, f := range decl.Fields {
			if _, ok := fields[f.Name]; !ok {
				return nil, faultAt(e.Span, diag.RuntimeType, "missing field `%s` in %s", f.Name, e.TypeName)
			}
		}
		if err := i.checkInvariant(ctx, decl, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
	for _, enum := range i.types.enums {
		if _, ok := enum.Variant(e.TypeName); ok {
			return value.VariantValue{
				Enum:    enum.Name,
				Variant: e.TypeName,
				Payload: value.RecordValue{Name: e.TypeName, Fields: fields},
			}, nil
		}
	}
	return nil, faultAt(e.Span, diag.RuntimeType, "unknown record type %s", e.TypeName)
}

func (i *Interpreter) evalIndex(ctx context.Context, env *value.Env, e *ast.Index) (value.Value, error) {
	target, err := i.eval(ctx, env, e.Target)
	if err != nil {
		return nil, err
	}
	idx, err := i.eval(ctx, env, e.Index)
	if err != nil {
		return nil, err
	}
	if m, ok := target.(value.MapValue); ok {
		v, found := m.Get(idx)
		if !found {
			return nil, faultAt(e.Span, diag.IndexOutOfBounds, "key %s not found", value.Repr(idx))
		}
		return v, nil
	}

	n, ok := idx.(value.IntValue)
	if !ok {
		return nil, faultAt(e.Index.GetSpan(), diag.RuntimeType, "index must be Int, got %s", value.Describe(idx))
	}
	var elems []value.Value
	switch t := target.(type) {
	case value.ListValue:
		elems = t.Elems
	case value.TupleValue:
		elems = t.Elems
	case value.TextValue:
		runes := []rune(t.Val)
		if n.Val < 0 || n.Val >= int64(len(runes)) {
			return nil, faultAt(e.Span, diag.IndexOutOfBounds, "index %d out of bounds for length %d", n.Val, len(runes))
		}
		return value.Text(string(runes[n.Val])), nil
	default:
		return nil, faultAt(e.Span, diag.RuntimeType, "cannot index into %s", value.Describe(target))
	}
	if n.Val < 0 || n.Val >= int64(len(elems)) {
		return nil, faultAt(e.Span, diag.IndexOutOfBounds, "index %d out of bounds for length %d", n.Val, len(elems))
	}
	return elems[n.Val], nil
}

func (i *Interpreter) evalIf(ctx context.Context, env *value.Env, e *ast.If) (value.Value, error) {
	cond, err := i.eval(ctx, env, e.Cond)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(value.BoolValue)
	if !ok {
		return nil, faultAt(e.Cond.GetSpan(), diag.RuntimeType, "if condition must be Bool, got %s", value.Describe(cond))
	}
	if b.Val {
		return i.execBlock(ctx, env.Child(), e.Then)
	}
	if e.Else == nil {
		return value.Unit, nil
	}
	return i.eval(ctx, env, e.Else)
}

func (i *Interpreter) evalTry(ctx context.Context, env *value.Env, e *ast.Try) (value.Value, error) {
	v, err := i.eval(ctx, env, e.Expr)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case value.OptionValue:
		if t.IsSome() {
			return t.Val, nil
		}
	case value.ResultValue:
		if t.IsOk {
			return t.Val, nil
		}
	default:
		return nil, faultAt(e.Span, diag.RuntimeType, "`?` needs an Option or Result, got %s", value.Describe(v))
	}
	return nil, &Signal{Kind: SignalEarlyReturn, Value: v, Span: e.Span}
}

func (i *Interpreter) evalRange(ctx context.Context, env *value.Env, e *ast.Range) (value.Value, error) {
	bounds, err := i.evalArgs(ctx, env, []ast.Expr{e.Start, e.End})
	if err != nil {
		return nil, err
	}
	lo, ok1 := bounds[0].(value.IntValue)
	hi, ok2 := bounds[1].(value.IntValue)
	if !ok1 || !ok2 {
		return nil, faultAt(e.Span, diag.RuntimeType, "range bounds must be Int, got %s and %s",
			value.Describe(bounds[0]), value.Describe(bounds[1]))
	}
	end := hi.Val
	if e.Inclusive {
		end++
	}
	return intRange(lo.Val, end), nil
}

func intRange(lo, hi int64) value.Value {
	var elems []value.Value
	for n := lo; n < hi; n++ {
		elems = append(elems, value.Int(n))
	}
	return value.ListValue{Elems: elems}
}
