package eval

import (
	"context"
	"sort"
	"strings"

	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

func elems(v value.Value) []value.Value {
	switch x := v.(type) {
	case value.ListValue:
		return x.Elems
	case value.SetValue:
		return x.Elems
	case value.TupleValue:
		return x.Elems
	}
	return nil
}

// sizeMethods registers len/length and is_empty for a collection type.
func sizeMethods(receiver string, size func(value.Value) int) {
	Method(receiver, "len").
		Doc("the number of elements").
		Returns("Int").
		Alias("length").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return value.Int(int64(size(self))), nil
		})
	if receiver == "Tuple" {
		return
	}
	Method(receiver, "is_empty").
		Returns("Bool").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return value.Bool(size(self) == 0), nil
		})
}

// listMethod registers a List method that needs no arguments.
func listMethod(name, doc, returns string, fn func([]value.Value) (value.Value, error)) {
	Method("List", name).
		Doc(doc).
		Returns(returns).
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return fn(self.(value.ListValue).Elems)
		})
}

func list(vs []value.Value) value.Value { return value.ListValue{Elems: vs} }

func registerCollectionMethods() {
	sizeMethods("List", func(v value.Value) int { return len(elems(v)) })
	sizeMethods("Set", func(v value.Value) int { return len(elems(v)) })
	sizeMethods("Tuple", func(v value.Value) int { return len(elems(v)) })
	sizeMethods("Map", func(v value.Value) int { return len(v.(value.MapValue).Entries) })

	listMethod("first", "the first element, if any", "Option[T]", func(vs []value.Value) (value.Value, error) {
		if len(vs) == 0 {
			return value.None(), nil
		}
		return value.Some(vs[0]), nil
	})
	listMethod("last", "the last element, if any", "Option[T]", func(vs []value.Value) (value.Value, error) {
		if len(vs) == 0 {
			return value.None(), nil
		}
		return value.Some(vs[len(vs)-1]), nil
	})
	listMethod("reverse", "the elements in reverse order", "List[T]", func(vs []value.Value) (value.Value, error) {
		out := make([]value.Value, len(vs))
		for i, v := range vs {
			out[len(vs)-1-i] = v
		}
		return list(out), nil
	})
	listMethod("sort", "the elements in ascending order", "List[T]", func(vs []value.Value) (value.Value, error) {
		out := append([]value.Value(nil), vs...)
		sort.SliceStable(out, func(i, j int) bool { return value.Compare(out[i], out[j]) < 0 })
		return list(out), nil
	})
	listMethod("distinct", "the elements without duplicates, first occurrence kept", "List[T]", func(vs []value.Value) (value.Value, error) {
		var out []value.Value
		for _, v := range vs {
			if !containsValue(out, v) {
				out = append(out, v)
			}
		}
		return list(out), nil
	})
	listMethod("sum", "adds the elements", "T", func(vs []value.Value) (value.Value, error) {
		var isum int64
		var fsum float64
		float := false
		for _, v := range vs {
			switch n := v.(type) {
			case value.IntValue:
				isum += n.Val
				fsum += float64(n.Val)
			case value.FloatValue:
				float = true
				fsum += n.Val
			default:
				return nil, fault(diag.RuntimeType, "cannot sum %s", value.Describe(v))
			}
		}
		if float {
			return value.Float(fsum), nil
		}
		return value.Int(isum), nil
	})
	listMethod("enumerate", "pairs each element with its index", "List[(Int, T)]", func(vs []value.Value) (value.Value, error) {
		out := make([]value.Value, len(vs))
		for i, v := range vs {
			out[i] = value.TupleValue{Elems: []value.Value{value.Int(int64(i)), v}}
		}
		return list(out), nil
	})
	listMethod("to_set", "the elements as a set", "Set[T]", func(vs []value.Value) (value.Value, error) {
		return value.NewSet(vs...), nil
	})

	Method("List", "get").
		Doc("the element at an index, if in bounds").
		Params("index", "Int").
		Returns("Option[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			idx, err := args.Int("index")
			if err != nil {
				return nil, err
			}
			vs := elems(self)
			if idx < 0 || idx >= int64(len(vs)) {
				return value.None(), nil
			}
			return value.Some(vs[idx]), nil
		})

	Method("List", "contains").
		Params("elem", "T").
		Returns("Bool").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			v, _ := args.Get("elem")
			return value.Bool(containsValue(elems(self), v)), nil
		})

	Method("List", "index_of").
		Params("elem", "T").
		Returns("Option[Int]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			v, _ := args.Get("elem")
			for i, e := range elems(self) {
				if value.Equal(e, v) {
					return value.Some(value.Int(int64(i))), nil
				}
			}
			return value.None(), nil
		})

	Method("List", "push").
		Doc("a copy with an element appended").
		Params("elem", "T").
		Returns("List[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			v, _ := args.Get("elem")
			return list(append(append([]value.Value(nil), elems(self)...), v)), nil
		})

	Method("List", "concat").
		Params("other", "List[T]").
		Returns("List[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.List("other")
			if err != nil {
				return nil, err
			}
			return list(append(append([]value.Value(nil), elems(self)...), other...)), nil
		})

	Method("List", "slice").
		Doc("the elements from start up to but excluding end").
		Params("start", "Int", "end", "Int").
		Returns("List[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			vs := elems(self)
			lo, hi, err := bounds(args, len(vs))
			if err != nil {
				return nil, err
			}
			return list(append([]value.Value(nil), vs[lo:hi]...)), nil
		})

	Method("List", "take").
		Params("count", "Int").
		Returns("List[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			n, err := args.Int("count")
			if err != nil {
				return nil, err
			}
			vs := elems(self)
			n = max(0, min(n, int64(len(vs))))
			return list(append([]value.Value(nil), vs[:n]...)), nil
		})

	Method("List", "skip").
		Params("count", "Int").
		Returns("List[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			n, err := args.Int("count")
			if err != nil {
				return nil, err
			}
			vs := elems(self)
			n = max(0, min(n, int64(len(vs))))
			return list(append([]value.Value(nil), vs[n:]...)), nil
		})

	Method("List", "join").
		Doc("joins the elements' text with a separator").
		Params("separator", "Text").
		Returns("Text").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			sep, err := args.Text("separator")
			if err != nil {
				return nil, err
			}
			vs := elems(self)
			parts := make([]string, len(vs))
			for i, v := range vs {
				parts[i] = v.String()
			}
			return value.Text(strings.Join(parts, sep)), nil
		})

	Method("List", "zip").
		Doc("pairs elements with another list, stopping at the shorter").
		Params("other", "List[U]").
		Returns("List[(T, U)]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.List("other")
			if err != nil {
				return nil, err
			}
			vs := elems(self)
			n := min(len(vs), len(other))
			out := make([]value.Value, n)
			for i := range n {
				out[i] = value.TupleValue{Elems: []value.Value{vs[i], other[i]}}
			}
			return list(out), nil
		})

	registerMapMethods()
	registerSetMethods()
}

func containsValue(vs []value.Value, v value.Value) bool {
	for _, e := range vs {
		if value.Equal(e, v) {
			return true
		}
	}
	return false
}

func registerMapMethods() {
	Method("Map", "get").
		Params("key", "K").
		Returns("Option[V]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			k, _ := args.Get("key")
			if v, ok := self.(value.MapValue).Get(k); ok {
				return value.Some(v), nil
			}
			return value.None(), nil
		})

	Method("Map", "insert").
		Doc("a copy with the key bound to the value").
		Params("key", "K", "value", "V").
		Returns("Map[K, V]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			k, _ := args.Get("key")
			v, _ := args.Get("value")
			return self.(value.MapValue).Insert(k, v), nil
		})

	Method("Map", "remove").
		Params("key", "K").
		Returns("Map[K, V]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			k, _ := args.Get("key")
			return self.(value.MapValue).Remove(k), nil
		})

	Method("Map", "contains_key").
		Params("key", "K").
		Returns("Bool").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			k, _ := args.Get("key")
			_, ok := self.(value.MapValue).Get(k)
			return value.Bool(ok), nil
		})

	mapList := func(name, returns string, pick func(value.MapEntry) value.Value) {
		Method("Map", name).
			Returns(returns).
			Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
				entries := self.(value.MapValue).Entries
				out := make([]value.Value, len(entries))
				for i, e := range entries {
					out[i] = pick(e)
				}
				return list(out), nil
			})
	}
	mapList("keys", "List[K]", func(e value.MapEntry) value.Value { return e.Key })
	mapList("values", "List[V]", func(e value.MapEntry) value.Value { return e.Value })
	mapList("entries", "List[(K, V)]", func(e value.MapEntry) value.Value {
		return value.TupleValue{Elems: []value.Value{e.Key, e.Value}}
	})
}

func registerSetMethods() {
	Method("Set", "contains").
		Params("elem", "T").
		Returns("Bool").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			v, _ := args.Get("elem")
			return value.Bool(self.(value.SetValue).Contains(v)), nil
		})

	Method("Set", "add").
		Params("elem", "T").
		Returns("Set[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			v, _ := args.Get("elem")
			return self.(value.SetValue).Add(v), nil
		})

	Method("Set", "remove").
		Params("elem", "T").
		Returns("Set[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			v, _ := args.Get("elem")
			return self.(value.SetValue).Remove(v), nil
		})

	setOp := func(name string, keep func(inOther bool) bool, addOther bool) {
		Method("Set", name).
			Params("other", "Set[T]").
			Returns("Set[T]").
			Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
				v, _ := args.Get("other")
				other, ok := v.(value.SetValue)
				if !ok {
					return nil, argType("other", "Set", v)
				}
				var out value.SetValue
				for _, e := range self.(value.SetValue).Elems {
					if keep(other.Contains(e)) {
						out = out.Add(e)
					}
				}
				if addOther {
					for _, e := range other.Elems {
						out = out.Add(e)
					}
				}
				return out, nil
			})
	}
	setOp("union", func(bool) bool { return true }, true)
	setOp("intersection", func(in bool) bool { return in }, false)
	setOp("difference", func(in bool) bool { return !in }, false)

	Method("Set", "to_list").
		Returns("List[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return list(append([]value.Value(nil), elems(self)...)), nil
		})
}

// registerWrapperMethods registers the Option and Result methods that take
// no functions.
func registerWrapperMethods() {
	optionFlag := func(name string, some bool) {
		Method("Option", name).
			Returns("Bool").
			Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
				return value.Bool(self.(value.OptionValue).IsSome() == some), nil
			})
	}
	optionFlag("is_some", true)
	optionFlag("is_none", false)

	Method("Option", "unwrap").
		Doc("the value inside Some, failing on None").
		Returns("T").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			o := self.(value.OptionValue)
			if !o.IsSome() {
				return nil, fault(diag.UnwrapFailed, "called unwrap on None")
			}
			return o.Val, nil
		})

	Method("Option", "unwrap_or").
		Params("default", "T").
		Returns("T").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			if o := self.(value.OptionValue); o.IsSome() {
				return o.Val, nil
			}
			v, _ := args.Get("default")
			return v, nil
		})

	Method("Option", "ok_or").
		Doc("converts to a Result, using the error for None").
		Params("error", "E").
		Returns("Result[T, E]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			if o := self.(value.OptionValue); o.IsSome() {
				return value.Ok(o.Val), nil
			}
			v, _ := args.Get("error")
			return value.Err(v), nil
		})

	resultFlag := func(name string, ok bool) {
		Method("Result", name).
			Returns("Bool").
			Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
				return value.Bool(self.(value.ResultValue).IsOk == ok), nil
			})
	}
	resultFlag("is_ok", true)
	resultFlag("is_err", false)

	Method("Result", "unwrap").
		Doc("the value inside Ok, failing on Err").
		Returns("T").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			r := self.(value.ResultValue)
			if !r.IsOk {
				return nil, fault(diag.UnwrapFailed, "called unwrap on Err(%s)", value.Repr(r.Val))
			}
			return r.Val, nil
		})

	Method("Result", "unwrap_err").
		Returns("E").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			r := self.(value.ResultValue)
			if r.IsOk {
				return nil, fault(diag.UnwrapFailed, "called unwrap_err on Ok(%s)", value.Repr(r.Val))
			}
			return r.Val, nil
		})

	Method("Result", "unwrap_or").
		Params("default", "T").
		Returns("T").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			if r := self.(value.ResultValue); r.IsOk {
				return r.Val, nil
			}
			v, _ := args.Get("default")
			return v, nil
		})

	Method("Result", "ok").
		Doc("the Ok value as an Option").
		Returns("Option[T]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			if r := self.(value.ResultValue); r.IsOk {
				return value.Some(r.Val), nil
			}
			return value.None(), nil
		})
}
