package eval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/value"
)

// handlerName is the binding `handle E with h { .. }` introduces.
func handlerName(effect string) string {
	return "__handler_" + effect
}

type handlersKey struct{}

// handlerFrame is one installed handler; frames form a stack through ctx
// so handlers stay in force for calls made inside the handled block.
type handlerFrame struct {
	effect  string
	handler value.Value
	outer   *handlerFrame
}

func withHandler(ctx context.Context, effect string, handler value.Value) context.Context {
	outer, _ := ctx.Value(handlersKey{}).(*handlerFrame)
	return context.WithValue(ctx, handlersKey{}, &handlerFrame{effect: effect, handler: handler, outer: outer})
}

func handlerFromContext(ctx context.Context, effect string) (value.Value, bool) {
	for f, _ := ctx.Value(handlersKey{}).(*handlerFrame); f != nil; f = f.outer {
		if f.effect == effect {
			return f.handler, true
		}
	}
	return nil, false
}

// performEffect runs an effect operation: built-in effects go to their
// capability, user effects to a handler.
func (i *Interpreter) performEffect(ctx context.Context, env *value.Env, effect, op string, args []value.Value, span ast.Span) (value.Value, error) {
	if decl, ok := i.types.effects[effect]; ok {
		return i.performUser(ctx, env, decl, op, args, span)
	}

	entry, ok := effects.Lookup(effect, op)
	if !ok {
		return nil, unknownOp(effect, op, span)
	}
	if err := checkArity(effect+"."+op, len(entry.Params), len(args), span); err != nil {
		return nil, err
	}
	if !i.caps.Has(effect) {
		return nil, faultAt(span, diag.CapabilityMissing, "%s.%s needs the %s capability, which is not available", effect, op, effect)
	}
	slog.Debug("performing effect", "effect", effect, "op", op)

	v, err := i.builtinEffect(ctx, effect, op, args, span)
	return v, locate(err, span)
}

func unknownOp(effect, op string, span ast.Span) *RuntimeError {
	return &RuntimeError{
		Code:     diag.UnknownMethod,
		Message:  "effect " + effect + " has no operation `" + op + "`",
		Span:     span,
		Receiver: effect,
		Method:   op,
	}
}

// lookupHandler prefers a handler in lexical scope, then one installed by
// an enclosing `handle` further up the call stack.
func lookupHandler(ctx context.Context, env *value.Env, effect string) (value.Value, bool) {
	if h, ok := env.Lookup(handlerName(effect)); ok {
		return h, true
	}
	return handlerFromContext(ctx, effect)
}

func (i *Interpreter) performUser(ctx context.Context, env *value.Env, decl *ast.EffectDecl, op string, args []value.Value, span ast.Span) (value.Value, error) {
	sig, ok := decl.Op(op)
	if !ok {
		return nil, unknownOp(decl.Name, op, span)
	}
	handler, ok := lookupHandler(ctx, env, decl.Name)
	if !ok {
		if err := checkArity(decl.Name+"."+op, len(sig.Params), len(args), span); err != nil {
			return nil, err
		}
		slog.Debug("unhandled user effect", "effect", decl.Name, "op", op)
		return value.Unit, nil
	}
	if rec, ok := handler.(value.RecordValue); ok {
		fn, ok := rec.Fields[op]
		if !ok {
			return nil, &RuntimeError{
				Code:     diag.UnknownMethod,
				Message:  "handler for " + decl.Name + " has no operation `" + op + "`",
				Span:     span,
				Receiver: value.Describe(handler),
				Method:   op,
			}
		}
		return i.call(ctx, fn, args, span)
	}
	return i.call(ctx, handler, args, span)
}

func textArg(effect, op string, v value.Value) (string, error) {
	t, ok := v.(value.TextValue)
	if !ok {
		return "", fault(diag.RuntimeType, "%s.%s needs Text, got %s", effect, op, value.Describe(v))
	}
	return t.Val, nil
}

func intArg(effect, op string, v value.Value) (int64, error) {
	n, ok := v.(value.IntValue)
	if !ok {
		return 0, fault(diag.RuntimeType, "%s.%s needs Int, got %s", effect, op, value.Describe(v))
	}
	return n.Val, nil
}

// result turns a host outcome into Ok(v) or Err(message).
func result(v value.Value, err error) value.Value {
	if err != nil {
		return value.Err(value.Text(err.Error()))
	}
	return value.Ok(v)
}

func (i *Interpreter) builtinEffect(ctx context.Context, effect, op string, args []value.Value, span ast.Span) (value.Value, error) {
	caps := i.caps
	name := effect + "." + op
	switch name {
	case "Console.print", "Console.println":
		write := caps.Console.Print
		if op == "println" {
			write = caps.Console.Println
		}
		if err := write(args[0].String()); err != nil {
			return nil, ioFault(span, name, err)
		}
		return value.Unit, nil
	case "Console.read_line":
		line, ok, err := caps.Console.ReadLine()
		if err != nil {
			return nil, ioFault(span, name, err)
		}
		if !ok {
			return value.None(), nil
		}
		return value.Some(value.Text(line)), nil

	case "Fs.read":
		path, err := textArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		contents, err := caps.Fs.Read(path)
		return result(value.Text(contents), err), nil
	case "Fs.write":
		path, err := textArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		contents, err := textArg(effect, op, args[1])
		if err != nil {
			return nil, err
		}
		return result(value.Unit, caps.Fs.Write(path, contents)), nil
	case "Fs.exists":
		path, err := textArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		return value.Bool(caps.Fs.Exists(path)), nil

	case "Net.get":
		url, err := textArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		body, err := caps.Net.Get(ctx, url)
		return result(value.Text(body), err), nil
	case "Net.serve":
		port, err := intArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		if err := caps.Net.Serve(ctx, int(port), i.httpHandler(args[1], span)); err != nil {
			var rt *RuntimeError
			if errors.As(err, &rt) {
				return nil, rt
			}
			return nil, ioFault(span, name, err)
		}
		return value.Unit, nil

	case "Clock.now":
		return value.Int(caps.Clock.Now()), nil
	case "Clock.sleep":
		ms, err := intArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		caps.Clock.Sleep(ms)
		return value.Unit, nil
	case "Clock.today":
		return value.Text(caps.Clock.Today()), nil

	case "Rand.int":
		lo, err := intArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		hi, err := intArg(effect, op, args[1])
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, faultAt(span, diag.RuntimeFailure, "Rand.int: empty range %d..=%d", lo, hi)
		}
		return value.Int(caps.Rand.Int(lo, hi)), nil
	case "Rand.bool":
		return value.Bool(caps.Rand.Bool()), nil
	case "Rand.float":
		return value.Float(caps.Rand.Float()), nil
	case "Rand.uuid":
		id, err := effects.UUID(caps.Rand)
		if err != nil {
			return nil, ioFault(span, name, err)
		}
		return value.Text(id), nil

	case "Env.get":
		key, err := textArg(effect, op, args[0])
		if err != nil {
			return nil, err
		}
		v, ok := caps.Env.Get(key)
		if !ok {
			return value.None(), nil
		}
		return value.Some(value.Text(v)), nil
	case "Env.args":
		return ToValue(caps.Env.Args())
	}
	return nil, unknownOp(effect, op, span)
}

// httpHandler adapts a Warden function to a Net.serve handler. It receives
// a {method, path, query, body} record and answers with Text or a
// {status, body} record.
func (i *Interpreter) httpHandler(fn value.Value, span ast.Span) effects.Handler {
	return func(ctx context.Context, req effects.Request) (effects.Response, error) {
		reqVal := value.RecordValue{Fields: map[string]value.Value{
			"method": value.Text(req.Method),
			"path":   value.Text(req.Path),
			"query":  value.Text(req.Query),
			"body":   value.Text(req.Body),
		}}
		v, err := i.call(ctx, fn, []value.Value{reqVal}, span)
		if err != nil {
			return effects.Response{}, err
		}
		if v, err = i.await(ctx, v, span); err != nil {
			return effects.Response{}, err
		}
		switch r := v.(type) {
		case value.TextValue:
			return effects.Response{Body: r.Val}, nil
		case value.RecordValue:
			var resp effects.Response
			if s, ok := r.Fields["status"].(value.IntValue); ok {
				resp.Status = int(s.Val)
			}
			if b, ok := r.Fields["body"]; ok {
				resp.Body = b.String()
			}
			return resp, nil
		}
		return effects.Response{}, faultAt(span, diag.RuntimeType,
			"Net.serve handler must return Text or {status, body}, got %s", value.Describe(v))
	}
}
