package eval

import (
	"context"
	"log/slog"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/value"
)

// evalMethodCall dispatches `recv.method(args)`. Names that are not bound
// as values (effects, Map, Set, enums) are tried first; then, on the
// evaluated receiver: higher-order builtins, value methods, callable record
// fields and user impls.
func (i *Interpreter) evalMethodCall(ctx context.Context, env *value.Env, e *ast.MethodCall) (value.Value, error) {
	if name, ok := e.ReceiverName(); ok {
		if _, bound := env.Lookup(name); !bound {
			v, handled, err := i.staticCall(ctx, env, name, e)
			if handled {
				return v, err
			}
		}
	}

	recv, err := i.eval(ctx, env, e.Receiver)
	if err != nil {
		return nil, err
	}
	args, err := i.evalArgs(ctx, env, e.Args)
	if err != nil {
		return nil, err
	}
	return i.callMethod(ctx, recv, e.Method, args, e.Span)
}

func (i *Interpreter) staticCall(ctx context.Context, env *value.Env, name string, e *ast.MethodCall) (value.Value, bool, error) {
	isUser := i.types.effects[name] != nil
	if !effects.IsBuiltin(name) && !isUser && name != "Map" && name != "Set" && i.types.enums[name] == nil {
		return nil, false, nil
	}
	args, err := i.evalArgs(ctx, env, e.Args)
	if err != nil {
		return nil, true, err
	}
	switch {
	case effects.IsBuiltin(name) || isUser:
		v, err := i.performEffect(ctx, env, name, e.Method, args, e.Span)
		return v, true, err
	case name == "Map" || name == "Set":
		v, err := collectionConstructor(name, e.Method, args, e.Span)
		return v, true, err
	}
	enum := i.types.enums[name]
	variant, ok := enum.Variant(e.Method)
	if !ok {
		return nil, true, faultAt(e.Span, diag.UndefinedVariable, "enum %s has no variant %s", name, e.Method)
	}
	v, err := i.call(ctx, variantValue(enum.Name, variant), args, e.Span)
	return v, true, err
}

func collectionConstructor(name, method string, args []value.Value, span ast.Span) (value.Value, error) {
	switch method {
	case "new":
		if err := checkArity(name+".new", 0, len(args), span); err != nil {
			return nil, err
		}
		if name == "Map" {
			return value.MapValue{}, nil
		}
		return value.SetValue{}, nil
	case "from":
		if err := checkArity(name+".from", 1, len(args), span); err != nil {
			return nil, err
		}
		l, ok := args[0].(value.ListValue)
		if !ok {
			return nil, faultAt(span, diag.RuntimeType, "%s.from needs a List, got %s", name, value.Describe(args[0]))
		}
		if name == "Set" {
			return value.NewSet(l.Elems...), nil
		}
		m := value.MapValue{}
		for _, el := range l.Elems {
			pair, ok := el.(value.TupleValue)
			if !ok || len(pair.Elems) != 2 {
				return nil, faultAt(span, diag.RuntimeType, "Map.from needs (key, value) pairs, got %s", value.Describe(el))
			}
			m = m.Insert(pair.Elems[0], pair.Elems[1])
		}
		return m, nil
	}
	return nil, &RuntimeError{
		Code:     diag.UnknownMethod,
		Message:  name + " has no constructor `" + method + "`",
		Span:     span,
		Receiver: name,
		Method:   method,
	}
}

// callMethod applies a method to an evaluated receiver.
func (i *Interpreter) callMethod(ctx context.Context, recv value.Value, method string, args []value.Value, span ast.Span) (value.Value, error) {
	if v, ok, err := i.higherOrder(ctx, recv, method, args, span); ok {
		return v, err
	}

	key := receiverKey(recv)
	if def, ok := methodRegistry[key][method]; ok {
		return i.callBuiltinMethod(ctx, def, recv, args, span)
	}

	if rec, ok := recv.(value.RecordValue); ok {
		if field, ok := rec.Fields[method]; ok && isCallable(field) {
			return i.call(ctx, field, args, span)
		}
	}

	if fn, ok := i.implFor(recv, method); ok {
		if len(fn.Params) > 0 && fn.Params[0].Name == "self" {
			args = append([]value.Value{recv}, args...)
		}
		return i.call(ctx, fn, args, span)
	}

	if def, ok := LookupMethod(key, method); ok {
		return i.callBuiltinMethod(ctx, def, recv, args, span)
	}

	slog.Debug("method dispatch failed", "receiver", key, "method", method)
	return nil, &RuntimeError{
		Code:     diag.UnknownMethod,
		Message:  value.Describe(recv) + " has no method `" + method + "`",
		Span:     span,
		Receiver: value.Describe(recv),
		Method:   method,
	}
}

func (i *Interpreter) callBuiltinMethod(ctx context.Context, def BuiltinDef, recv value.Value, args []value.Value, span ast.Span) (value.Value, error) {
	if err := checkArity(def.Receiver+"."+def.Name, len(def.Params), len(args), span); err != nil {
		return nil, err
	}
	v, err := def.Impl(ctx, recv, def.bind(args))
	if err != nil {
		return nil, locate(err, span)
	}
	return v, nil
}

// receiverKey is the name value methods and impls are registered under.
func receiverKey(v value.Value) string {
	switch v.(type) {
	case value.TupleValue:
		return "Tuple"
	case *value.Closure, *value.BuiltinFunction:
		return "Function"
	}
	return v.TypeName()
}

func (i *Interpreter) implFor(recv value.Value, method string) (*value.Closure, bool) {
	keys := []string{receiverKey(recv)}
	if vv, ok := recv.(value.VariantValue); ok {
		keys = append(keys, vv.Variant)
	}
	for _, key := range keys {
		if fn, ok := i.types.impls[key][method]; ok {
			return fn, true
		}
	}
	return nil, false
}

func isCallable(v value.Value) bool {
	switch v.(type) {
	case *value.Closure, *value.BuiltinFunction, *value.VariantConstructor:
		return true
	}
	return false
}
