package check

// methodSig types a built-in value method. params may carry function types
// whose parameter types seed unannotated lambda arguments.
type methodSig struct {
	params []Type
	result func(recv Type, args []Type) Type
}

func fixed(t Type, params ...Type) methodSig {
	return methodSig{params: params, result: func(Type, []Type) Type { return t }}
}

func same(params ...Type) methodSig {
	return methodSig{params: params, result: func(recv Type, _ []Type) Type { return recv }}
}

func fnOf(ret Type, params ...Type) *FnType {
	return &FnType{Params: params, Return: ret}
}

// retOf is the return type of the i'th argument when it is a function.
func retOf(args []Type, i int) Type {
	if i >= len(args) {
		return Unknown
	}
	if f, ok := args[i].(*FnType); ok {
		return f.Return
	}
	return Unknown
}

// builtinMethod looks up a method every value of the receiver's type has.
func builtinMethod(recv Type, name string) (methodSig, bool) {
	if name == "to_text" {
		return fixed(Text), true
	}
	if sameCon(recv, Text) {
		return textMethod(name)
	}
	if sameCon(recv, Int) {
		return intMethod(name)
	}
	if sameCon(recv, Float) {
		return floatMethod(name)
	}
	if _, ok := recv.(*TupleType); ok {
		if name == "len" || name == "length" {
			return fixed(Int), true
		}
		return methodSig{}, false
	}
	con, ok := recv.(*Con)
	if !ok {
		return methodSig{}, false
	}
	switch con.Name {
	case "List":
		return listMethod(arg(recv, 0), name)
	case "Map":
		return mapMethod(arg(recv, 0), arg(recv, 1), name)
	case "Set":
		return setMethod(arg(recv, 0), name)
	case "Option":
		return optionMethod(arg(recv, 0), name)
	case "Result":
		return resultMethod(arg(recv, 0), arg(recv, 1), name)
	}
	return methodSig{}, false
}

func listMethod(elem Type, name string) (methodSig, bool) {
	switch name {
	case "len", "length":
		return fixed(Int), true
	case "is_empty":
		return fixed(Bool), true
	case "first", "last":
		return fixed(Option(elem)), true
	case "get":
		return fixed(Option(elem), Int), true
	case "contains":
		return fixed(Bool, elem), true
	case "index_of":
		return fixed(Option(Int), elem), true
	case "push":
		return same(elem), true
	case "concat":
		return same(List(elem)), true
	case "reverse", "sort", "distinct":
		return same(), true
	case "slice":
		return same(Int, Int), true
	case "take", "skip":
		return same(Int), true
	case "join":
		return fixed(Text, Text), true
	case "sum":
		return fixed(elem), true
	case "enumerate":
		return fixed(List(&TupleType{Elems: []Type{Int, elem}})), true
	case "zip":
		return methodSig{
			params: []Type{List(Unknown)},
			result: func(_ Type, args []Type) Type {
				other := Unknown
				if len(args) > 0 {
					other = arg(args[0], 0)
				}
				return List(&TupleType{Elems: []Type{elem, other}})
			},
		}, true
	case "to_set":
		return fixed(Set(elem)), true
	case "map":
		return methodSig{
			params: []Type{fnOf(Unknown, elem)},
			result: func(_ Type, args []Type) Type { return List(retOf(args, 0)) },
		}, true
	case "flat_map":
		return methodSig{
			params: []Type{fnOf(Unknown, elem)},
			result: func(_ Type, args []Type) Type { return List(arg(retOf(args, 0), 0)) },
		}, true
	case "filter", "sort_by":
		return same(fnOf(Unknown, elem)), true
	case "find":
		return fixed(Option(elem), fnOf(Unknown, elem)), true
	case "any", "all":
		return fixed(Bool, fnOf(Unknown, elem)), true
	case "each":
		return fixed(Unit, fnOf(Unknown, elem)), true
	case "fold":
		return methodSig{
			params: []Type{Unknown, fnOf(Unknown, Unknown, elem)},
			result: func(_ Type, args []Type) Type {
				if len(args) == 0 {
					return Unknown
				}
				return known(args[0], retOf(args, 1))
			},
		}, true
	}
	return methodSig{}, false
}

func textMethod(name string) (methodSig, bool) {
	switch name {
	case "len", "length":
		return fixed(Int), true
	case "is_empty":
		return fixed(Bool), true
	case "upper", "lower", "trim", "trim_start", "trim_end",
		"to_snake", "to_camel", "to_kebab", "to_pascal", "to_screaming_snake":
		return fixed(Text), true
	case "split":
		return fixed(List(Text), Text), true
	case "lines", "chars":
		return fixed(List(Text)), true
	case "contains", "starts_with", "ends_with", "matches":
		return fixed(Bool, Text), true
	case "replace", "replace_all":
		return fixed(Text, Text, Text), true
	case "slice":
		return fixed(Text, Int, Int), true
	case "index_of":
		return fixed(Option(Int), Text), true
	case "repeat":
		return fixed(Text, Int), true
	case "to_int":
		return fixed(Option(Int)), true
	case "to_float":
		return fixed(Option(Float)), true
	case "find_all":
		return fixed(List(Text), Text), true
	}
	return methodSig{}, false
}

func intMethod(name string) (methodSig, bool) {
	switch name {
	case "abs":
		return fixed(Int), true
	case "pow", "min", "max":
		return fixed(Int, Int), true
	case "to_float":
		return fixed(Float), true
	}
	return methodSig{}, false
}

func floatMethod(name string) (methodSig, bool) {
	switch name {
	case "abs", "sqrt":
		return fixed(Float), true
	case "floor", "ceil", "round", "to_int":
		return fixed(Int), true
	case "min", "max":
		return fixed(Float, Float), true
	}
	return methodSig{}, false
}

func mapMethod(k, v Type, name string) (methodSig, bool) {
	switch name {
	case "len", "length":
		return fixed(Int), true
	case "is_empty":
		return fixed(Bool), true
	case "get":
		return fixed(Option(v), k), true
	case "insert":
		return same(k, v), true
	case "remove":
		return same(k), true
	case "contains_key":
		return fixed(Bool, k), true
	case "keys":
		return fixed(List(k)), true
	case "values":
		return fixed(List(v)), true
	case "entries":
		return fixed(List(&TupleType{Elems: []Type{k, v}})), true
	}
	return methodSig{}, false
}

func setMethod(elem Type, name string) (methodSig, bool) {
	switch name {
	case "len", "length":
		return fixed(Int), true
	case "is_empty":
		return fixed(Bool), true
	case "contains":
		return fixed(Bool, elem), true
	case "add", "remove":
		return same(elem), true
	case "union", "intersection", "difference":
		return same(Set(elem)), true
	case "to_list":
		return fixed(List(elem)), true
	}
	return methodSig{}, false
}

func optionMethod(t Type, name string) (methodSig, bool) {
	switch name {
	case "is_some", "is_none":
		return fixed(Bool), true
	case "unwrap":
		return fixed(t), true
	case "unwrap_or":
		return fixed(t, t), true
	case "unwrap_or_else":
		return fixed(t, fnOf(t)), true
	case "map":
		return methodSig{
			params: []Type{fnOf(Unknown, t)},
			result: func(_ Type, args []Type) Type { return Option(retOf(args, 0)) },
		}, true
	case "and_then":
		return methodSig{
			params: []Type{fnOf(Unknown, t)},
			result: func(_ Type, args []Type) Type { return known(retOf(args, 0), Option(Unknown)) },
		}, true
	case "ok_or":
		return methodSig{
			params: []Type{Unknown},
			result: func(_ Type, args []Type) Type {
				if len(args) == 0 {
					return Result(t, Unknown)
				}
				return Result(t, args[0])
			},
		}, true
	}
	return methodSig{}, false
}

func resultMethod(t, e Type, name string) (methodSig, bool) {
	switch name {
	case "is_ok", "is_err":
		return fixed(Bool), true
	case "unwrap":
		return fixed(t), true
	case "unwrap_err":
		return fixed(e), true
	case "unwrap_or":
		return fixed(t, t), true
	case "unwrap_or_else":
		return fixed(t, fnOf(t, e)), true
	case "ok":
		return fixed(Option(t)), true
	case "map":
		return methodSig{
			params: []Type{fnOf(Unknown, t)},
			result: func(_ Type, args []Type) Type { return Result(retOf(args, 0), e) },
		}, true
	case "map_err":
		return methodSig{
			params: []Type{fnOf(Unknown, e)},
			result: func(_ Type, args []Type) Type { return Result(t, retOf(args, 0)) },
		}, true
	case "and_then":
		return methodSig{
			params: []Type{fnOf(Unknown, t)},
			result: func(_ Type, args []Type) Type { return known(retOf(args, 0), Result(Unknown, e)) },
		}, true
	}
	return methodSig{}, false
}
