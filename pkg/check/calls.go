package check

import (
	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
)

func (c *Checker) inferCall(e *ast.Call) Type {
	if id, ok := e.Callee.(*ast.Ident); ok {
		if t, ok := c.inferWrapper(id, e); ok {
			return t
		}
	}

	callee := c.infer(e.Callee)
	switch fn := callee.(type) {
	case *FnType:
		c.checkArgs(ast.Format(e.Callee), fn.Params, e.Args, e.Span)
		return fn.Return
	case UnknownType:
		for _, a := range e.Args {
			c.infer(a)
		}
		return Unknown
	}
	for _, a := range e.Args {
		c.infer(a)
	}
	c.errorf(diag.TypeMismatch, e.Span, "cannot call a value of type %s", callee)
	return Unknown
}

// inferWrapper types Some/Ok/Err applications, whose result type depends
// on the argument.
func (c *Checker) inferWrapper(id *ast.Ident, e *ast.Call) (Type, bool) {
	switch id.Name {
	case "Some", "Ok", "Err":
	default:
		return nil, false
	}
	if _, shadowed := c.scope.lookup(id.Name); shadowed {
		return nil, false
	}
	c.types[id] = Unknown
	if len(e.Args) != 1 {
		c.checkArgs(id.Name, []Type{Unknown}, e.Args, e.Span)
		return Unknown, true
	}
	t := c.infer(e.Args[0])
	switch id.Name {
	case "Some":
		return Option(t), true
	case "Ok":
		return Result(t, Unknown), true
	default:
		return Result(Unknown, t), true
	}
}

// checkArgs checks a call's arguments against parameter types and returns
// the argument types.
func (c *Checker) checkArgs(callee string, params []Type, args []ast.Expr, span ast.Span) []Type {
	if len(params) != len(args) {
		c.errorf(diag.ArityMismatch, span, "`%s` expects %d argument%s, found %d",
			callee, len(params), plural(len(params)), len(args))
	}
	types := make([]Type, len(args))
	for i, a := range args {
		var want Type = Unknown
		if i < len(params) {
			want = params[i]
		}
		types[i] = c.inferHint(a, want)
		if !Compatible(want, types[i]) {
			c.errorf(diag.TypeMismatch, a.GetSpan(), "argument %d of `%s` expects %s, found %s",
				i+1, callee, want, types[i])
		}
	}
	return types
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (c *Checker) inferMethodCall(e *ast.MethodCall) Type {
	if name, ok := e.ReceiverName(); ok {
		if t, ok := c.inferStaticCall(name, e); ok {
			c.types[e.Receiver] = Unknown
			return t
		}
	}

	recv := c.infer(e.Receiver)
	qualified := recv.String() + "." + e.Method

	if sig, ok := builtinMethod(recv, e.Method); ok {
		args := c.checkArgs(qualified, sig.params, e.Args, e.Span)
		return sig.result(recv, args)
	}
	if fn, ok := c.implMethod(recv, e.Method); ok {
		c.checkArgs(qualified, fn.Params, e.Args, e.Span)
		return fn.Return
	}
	if field, ok := c.callableField(recv, e.Method); ok {
		c.checkArgs(qualified, field.Params, e.Args, e.Span)
		return field.Return
	}
	for _, a := range e.Args {
		c.infer(a)
	}
	return Unknown
}

// inferStaticCall handles method calls whose receiver names something other
// than a value: an effect, the Map and Set constructors, an enum, or an
// imported module.
func (c *Checker) inferStaticCall(name string, e *ast.MethodCall) (Type, bool) {
	qualified := name + "." + e.Method
	if sig, ok := c.effectOp(name, e.Method, e.Span); ok {
		c.checkArgs(qualified, sig.Params, e.Args, e.Span)
		return sig.Return, true
	}
	if b, ok := c.scope.lookup(name); ok {
		if b.Kind != bindGlobal || !IsUnknown(b.Type) {
			return nil, false
		}
		b.Used = true
		c.markImport(name)
		for _, a := range e.Args {
			c.infer(a)
		}
		return Unknown, true
	}
	switch name {
	case "Map", "Set":
		return c.inferCollectionConstructor(name, e), true
	}
	if enum, ok := c.env.Enums[name]; ok {
		if _, ok := enum.Variant(e.Method); !ok {
			c.errorf(diag.UnknownIdentifier, e.Span, "enum `%s` has no variant `%s`", name, e.Method)
			return Unknown, true
		}
		if fn, ok := c.variantType(enum, e.Method).(*FnType); ok {
			c.checkArgs(qualified, fn.Params, e.Args, e.Span)
			return fn.Return, true
		}
		c.errorf(diag.TypeMismatch, e.Span, "variant `%s` takes no arguments", qualified)
		return &Con{Name: enum.Name}, true
	}
	return nil, false
}

func (c *Checker) inferCollectionConstructor(name string, e *ast.MethodCall) Type {
	qualified := name + "." + e.Method
	switch e.Method {
	case "new":
		c.checkArgs(qualified, nil, e.Args, e.Span)
		if name == "Map" {
			return Map(Unknown, Unknown)
		}
		return Set(Unknown)
	case "from":
		args := c.checkArgs(qualified, []Type{List(Unknown)}, e.Args, e.Span)
		elem := Unknown
		if len(args) > 0 {
			elem = arg(args[0], 0)
		}
		if name == "Set" {
			return Set(elem)
		}
		if tup, ok := elem.(*TupleType); ok && len(tup.Elems) == 2 {
			return Map(tup.Elems[0], tup.Elems[1])
		}
		return Map(Unknown, Unknown)
	}
	for _, a := range e.Args {
		c.infer(a)
	}
	c.errorf(diag.UnknownIdentifier, e.Span, "%s has no constructor `%s`", name, e.Method)
	return Unknown
}

// typeKey is the name impls are registered under for a receiver type.
func typeKey(t Type) string {
	switch x := t.(type) {
	case *Con:
		return x.Name
	case *TupleType:
		return "Tuple"
	case *RecordType:
		return "Record"
	case *FnType:
		return "Function"
	}
	return ""
}

// implMethod finds a user impl method and returns its signature as seen by
// a caller, without the receiver.
func (c *Checker) implMethod(recv Type, method string) (*FnType, bool) {
	methods, ok := c.env.Impls[typeKey(recv)]
	if !ok {
		return nil, false
	}
	decl, ok := methods[method]
	if !ok {
		return nil, false
	}
	params := decl.Params
	if len(params) > 0 && params[0].Name == "self" {
		params = params[1:]
	}
	sig := c.signature(params, decl.Return, decl.Effects, true)
	if decl.Async {
		sig.Return = Future(sig.Return)
	}
	return sig, true
}

func (c *Checker) callableField(recv Type, name string) (*FnType, bool) {
	var ft Type
	switch x := recv.(type) {
	case *RecordType:
		ft = x.Fields[name]
	case *Con:
		rec, ok := c.env.Records[x.Name]
		if !ok {
			return nil, false
		}
		for _, f := range rec.Fields {
			if f.Name == name {
				ft = c.resolveQuiet(f.Type, true)
			}
		}
	}
	fn, ok := ft.(*FnType)
	return fn, ok
}
