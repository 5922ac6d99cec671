package eval

import (
	"context"
	"sort"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

// higherOrder implements the methods that call back into user functions.
// ok is false when the receiver has no such method.
func (i *Interpreter) higherOrder(ctx context.Context, recv value.Value, method string, args []value.Value, span ast.Span) (v value.Value, ok bool, err error) {
	switch r := recv.(type) {
	case value.ListValue:
		fn, ok := listHOF[method]
		if !ok {
			return nil, false, nil
		}
		if err := checkArity("List."+method, fn.arity, len(args), span); err != nil {
			return nil, true, err
		}
		call := i.caller(ctx, args[len(args)-1], span)
		v, err := fn.impl(r.Elems, args[:len(args)-1], call)
		return v, true, locate(err, span)
	case value.OptionValue:
		switch method {
		case "map", "and_then", "unwrap_or_else":
		default:
			return nil, false, nil
		}
		if err := checkArity("Option."+method, 1, len(args), span); err != nil {
			return nil, true, err
		}
		call := i.caller(ctx, args[0], span)
		if method == "unwrap_or_else" {
			if r.IsSome() {
				return r.Val, true, nil
			}
			v, err := call()
			return v, true, err
		}
		if !r.IsSome() {
			return r, true, nil
		}
		v, err := call(r.Val)
		if err != nil || method == "and_then" {
			return v, true, err
		}
		return value.Some(v), true, nil
	case value.ResultValue:
		switch method {
		case "map", "map_err", "and_then", "unwrap_or_else":
		default:
			return nil, false, nil
		}
		if err := checkArity("Result."+method, 1, len(args), span); err != nil {
			return nil, true, err
		}
		call := i.caller(ctx, args[0], span)
		switch {
		case method == "unwrap_or_else" && r.IsOk:
			return r.Val, true, nil
		case method == "unwrap_or_else":
			v, err := call(r.Val)
			return v, true, err
		case method == "map_err" && !r.IsOk:
			v, err := call(r.Val)
			if err != nil {
				return nil, true, err
			}
			return value.Err(v), true, nil
		case method == "map_err" || !r.IsOk:
			return r, true, nil
		}
		v, err := call(r.Val)
		if err != nil || method == "and_then" {
			return v, true, err
		}
		return value.Ok(v), true, nil
	}
	return nil, false, nil
}

type callFn func(args ...value.Value) (value.Value, error)

func (i *Interpreter) caller(ctx context.Context, fn value.Value, span ast.Span) callFn {
	return func(args ...value.Value) (value.Value, error) {
		return i.call(ctx, fn, args, span)
	}
}

type hof struct {
	// arity counts every argument, the function last.
	arity int
	impl  func(elems, args []value.Value, call callFn) (value.Value, error)
}

var listHOF = map[string]hof{
	"map": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		out := make([]value.Value, len(elems))
		for idx, el := range elems {
			v, err := call(el)
			if err != nil {
				return nil, err
			}
			out[idx] = v
		}
		return list(out), nil
	}},
	"flat_map": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		var out []value.Value
		for _, el := range elems {
			v, err := call(el)
			if err != nil {
				return nil, err
			}
			l, ok := v.(value.ListValue)
			if !ok {
				return nil, fault(diag.RuntimeType, "flat_map function must return a List, got %s", value.Describe(v))
			}
			out = append(out, l.Elems...)
		}
		return list(out), nil
	}},
	"filter": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		var out []value.Value
		for _, el := range elems {
			keep, err := predicate(call, el, "filter")
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, el)
			}
		}
		return list(out), nil
	}},
	"find": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		for _, el := range elems {
			found, err := predicate(call, el, "find")
			if err != nil {
				return nil, err
			}
			if found {
				return value.Some(el), nil
			}
		}
		return value.None(), nil
	}},
	"any": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		for _, el := range elems {
			hit, err := predicate(call, el, "any")
			if err != nil || hit {
				return value.Bool(hit), err
			}
		}
		return value.Bool(false), nil
	}},
	"all": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		for _, el := range elems {
			hit, err := predicate(call, el, "all")
			if err != nil || !hit {
				return value.Bool(hit), err
			}
		}
		return value.Bool(true), nil
	}},
	"each": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		for _, el := range elems {
			if _, err := call(el); err != nil {
				return nil, err
			}
		}
		return value.Unit, nil
	}},
	"fold": {2, func(elems, args []value.Value, call callFn) (value.Value, error) {
		acc := args[0]
		for _, el := range elems {
			var err error
			if acc, err = call(acc, el); err != nil {
				return nil, err
			}
		}
		return acc, nil
	}},
	"sort_by": {1, func(elems, _ []value.Value, call callFn) (value.Value, error) {
		keys := make([]value.Value, len(elems))
		for idx, el := range elems {
			k, err := call(el)
			if err != nil {
				return nil, err
			}
			keys[idx] = k
		}
		order := make([]int, len(elems))
		for idx := range order {
			order[idx] = idx
		}
		sort.SliceStable(order, func(a, b int) bool {
			return value.Compare(keys[order[a]], keys[order[b]]) < 0
		})
		out := make([]value.Value, len(elems))
		for idx, o := range order {
			out[idx] = elems[o]
		}
		return list(out), nil
	}},
}

func predicate(call callFn, el value.Value, method string) (bool, error) {
	v, err := call(el)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.BoolValue)
	if !ok {
		return false, fault(diag.RuntimeType, "%s function must return Bool, got %s", method, value.Describe(v))
	}
	return b.Val, nil
}
