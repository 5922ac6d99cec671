package check

import (
	"strconv"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
)

// infer computes an expression's type, reporting what it finds wrong along
// the way. It never stops early: every subexpression is visited.
func (c *Checker) infer(expr ast.Expr) Type {
	return c.inferHint(expr, nil)
}

// inferHint is infer with an expected type, used to type unannotated
// lambda parameters.
func (c *Checker) inferHint(expr ast.Expr, hint Type) Type {
	if expr == nil {
		return Unit
	}
	t := c.inferExpr(expr, hint)
	if t == nil {
		t = Unknown
	}
	c.types[expr] = t
	return t
}

func (c *Checker) inferExpr(expr ast.Expr, hint Type) Type {
	switch e := expr.(type) {
	case *ast.UnitLit:
		return Unit
	case *ast.IntLit:
		return Int
	case *ast.FloatLit:
		return Float
	case *ast.BoolLit:
		return Bool
	case *ast.TextLit:
		return Text
	case *ast.Ident:
		return c.inferIdent(e)
	case *ast.QualifiedIdent:
		return c.inferQualified(e)
	case *ast.ListLit:
		return List(c.inferElems(e.Elems, "list"))
	case *ast.SetLit:
		return Set(c.inferElems(e.Elems, "set"))
	case *ast.TupleLit:
		elems := make([]Type, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = c.infer(el)
		}
		return &TupleType{Elems: elems}
	case *ast.MapLit:
		keys := make([]ast.Expr, len(e.Entries))
		vals := make([]ast.Expr, len(e.Entries))
		for i, entry := range e.Entries {
			keys[i], vals[i] = entry.Key, entry.Value
		}
		return Map(c.inferElems(keys, "map key"), c.inferElems(vals, "map value"))
	case *ast.RecordLit:
		return c.inferRecord(e)
	case *ast.Binary:
		return c.inferBinary(e)
	case *ast.Unary:
		return c.inferUnary(e)
	case *ast.Call:
		return c.inferCall(e)
	case *ast.MethodCall:
		return c.inferMethodCall(e)
	case *ast.FieldAccess:
		return c.fieldType(c.infer(e.Target), e.Field, e.Span)
	case *ast.Index:
		return c.inferIndex(e)
	case *ast.If:
		return c.inferIf(e)
	case *ast.Match:
		return c.inferMatch(e)
	case *ast.Lambda:
		return c.inferLambda(e, hint)
	case *ast.BlockExpr:
		t, _ := c.checkBlock(e.Block)
		return t
	case *ast.Try:
		return c.inferTry(e)
	case *ast.Await:
		t := c.infer(e.Expr)
		if con, ok := conNamed(t, "Future"); ok {
			return arg(con, 0)
		}
		return t
	case *ast.Range:
		for _, bound := range []ast.Expr{e.Start, e.End} {
			if t := c.infer(bound); !Compatible(Int, t) {
				c.errorf(diag.TypeMismatch, bound.GetSpan(), "range bounds must be Int, found %s", t)
			}
		}
		return List(Int)
	case *ast.Handle:
		return c.inferHandle(e)
	}
	return Unknown
}

func (c *Checker) inferElems(elems []ast.Expr, what string) Type {
	elem := Unknown
	for _, el := range elems {
		t := c.infer(el)
		if !Compatible(elem, t) {
			c.errorf(diag.TypeMismatch, el.GetSpan(), "%s elements must all be %s, found %s", what, elem, t)
			continue
		}
		elem = known(elem, t)
	}
	return elem
}

func (c *Checker) inferIdent(e *ast.Ident) Type {
	if b, ok := c.scope.lookup(e.Name); ok {
		b.Used = true
		if b.Kind == bindGlobal {
			c.markImport(e.Name)
		}
		return b.Type
	}
	if t, ok := c.builtinValue(e.Name); ok {
		return t
	}
	if enum, ok := c.env.Variants[e.Name]; ok {
		return c.variantType(enum, e.Name)
	}
	if alias, ok := c.env.Aliases[e.Name]; ok {
		base := c.resolveQuiet(alias.Alias, true)
		return &FnType{Params: []Type{base}, Return: base}
	}
	if c.isEffectName(e.Name) {
		return Unknown
	}
	c.errorf(diag.UnknownIdentifier, e.Span, "unknown identifier `%s`", e.Name)
	return Unknown
}

// builtinValue types the prelude: Option/Result constructors and the
// built-in functions.
func (c *Checker) builtinValue(name string) (Type, bool) {
	switch name {
	case "None":
		return Option(Unknown), true
	case "Some":
		return &FnType{Params: []Type{Unknown}, Return: Option(Unknown)}, true
	case "Ok", "Err":
		return &FnType{Params: []Type{Unknown}, Return: Result(Unknown, Unknown)}, true
	case "assert":
		return &FnType{Params: []Type{Bool}, Return: Unit}, true
	case "assert_eq":
		return &FnType{Params: []Type{Unknown, Unknown}, Return: Unit}, true
	case "fail":
		return &FnType{Params: []Type{Text}, Return: Unknown}, true
	case "range":
		return &FnType{Params: []Type{Int, Int}, Return: List(Int)}, true
	case "to_text":
		return &FnType{Params: []Type{Unknown}, Return: Text}, true
	}
	return nil, false
}

// variantType is the type of a bare variant name: the enum itself, or a
// constructor function when the variant carries fields.
func (c *Checker) variantType(enum *ast.EnumDecl, name string) Type {
	v, _ := enum.Variant(name)
	self := &Con{Name: enum.Name}
	if len(v.Fields) == 0 {
		return self
	}
	fn := &FnType{Return: self}
	c.withTypeParams(enum.Params, func() {
		for _, f := range v.Fields {
			fn.Params = append(fn.Params, c.resolveQuiet(f.Type, true))
		}
	})
	return fn
}

func (c *Checker) inferQualified(e *ast.QualifiedIdent) Type {
	if len(e.Path) < 2 {
		return Unknown
	}
	head, name := e.Path[0], e.Path[1]

	if sig, ok := c.effectOp(head, name, e.Span); ok {
		return sig
	}
	if c.isEffectName(head) {
		return Unknown
	}
	if enum, ok := c.env.Enums[head]; ok {
		if _, ok := enum.Variant(name); !ok {
			c.errorf(diag.UnknownIdentifier, e.Span, "enum `%s` has no variant `%s`", head, name)
			return Unknown
		}
		return c.variantType(enum, name)
	}
	if b, ok := c.scope.lookup(head); ok {
		b.Used = true
		if b.Kind == bindGlobal {
			c.markImport(head)
			if IsUnknown(b.Type) {
				return Unknown
			}
		}
		t := b.Type
		for _, field := range e.Path[1:] {
			t = c.fieldType(t, field, e.Span)
		}
		return t
	}
	c.errorf(diag.UnknownIdentifier, e.Span, "unknown identifier `%s`", head)
	return Unknown
}

// effectOp types an effect operation and records the effect as used.
// ok is false when head does not name an effect.
func (c *Checker) effectOp(head, name string, span ast.Span) (*FnType, bool) {
	if !c.isEffectName(head) {
		return nil, false
	}
	if b, ok := c.scope.lookup(head); ok && b.Kind != bindGlobal {
		return nil, false
	}
	c.useEffect(head, span)

	if decl, ok := c.env.Effects[head]; ok {
		op, ok := decl.Op(name)
		if !ok {
			c.errorf(diag.UnknownIdentifier, span, "effect %s has no operation `%s`", head, name)
			return &FnType{Return: Unknown}, true
		}
		return c.signature(op.Params, op.Return, op.Effects, true), true
	}
	op, ok := effects.Lookup(head, name)
	if !ok {
		c.errorf(diag.UnknownIdentifier, span, "effect %s has no operation `%s`", head, name)
		return &FnType{Return: Unknown}, true
	}
	fn := &FnType{Return: c.resolveQuiet(op.Return, true)}
	for _, p := range op.Params {
		fn.Params = append(fn.Params, c.resolveQuiet(p, true))
	}
	return fn, true
}

func (c *Checker) inferRecord(e *ast.RecordLit) Type {
	fields := map[string]Type{}
	for _, f := range e.Fields {
		fields[f.Name] = c.infer(f.Value)
	}
	if e.TypeName == "" {
		return &RecordType{Fields: fields}
	}

	var declared []ast.Field
	var result Type
	var params []string
	if rec, ok := c.env.Records[e.TypeName]; ok {
		declared, result, params = rec.Fields, &Con{Name: rec.Name}, rec.Params
	} else if enum, ok := c.env.Variants[e.TypeName]; ok {
		v, _ := enum.Variant(e.TypeName)
		declared, result, params = v.Fields, &Con{Name: enum.Name}, enum.Params
	} else {
		c.errorf(diag.UnknownType, e.Span, "unknown record type `%s`", e.TypeName)
		return Unknown
	}

	c.withTypeParams(params, func() {
		want := map[string]Type{}
		for _, f := range declared {
			want[f.Name] = c.resolveQuiet(f.Type, true)
		}
		for _, f := range e.Fields {
			w, ok := want[f.Name]
			if !ok {
				c.errorf(diag.UnknownField, f.Span, "`%s` has no field `%s`", e.TypeName, f.Name)
				continue
			}
			if !Compatible(w, fields[f.Name]) {
				c.errorf(diag.TypeMismatch, f.Value.GetSpan(),
					"field `%s` of `%s` expects %s, found %s", f.Name, e.TypeName, w, fields[f.Name])
			}
		}
		for _, f := range declared {
			if _, ok := fields[f.Name]; !ok {
				c.errorf(diag.TypeMismatch, e.Span, "missing field `%s` in `%s`", f.Name, e.TypeName)
			}
		}
	})
	return result
}

func (c *Checker) inferBinary(e *ast.Binary) Type {
	l, r := c.infer(e.Left), c.infer(e.Right)
	mismatch := func() Type {
		c.errorf(diag.TypeMismatch, e.Span, "operator `%s` cannot be applied to %s and %s", e.Op, l, r)
		return Unknown
	}

	switch e.Op {
	case "+", "-", "*", "/", "%":
		if IsUnknown(l) || IsUnknown(r) {
			return Unknown
		}
		if isNumeric(l) && isNumeric(r) {
			if sameCon(l, Float) || sameCon(r, Float) {
				return Float
			}
			return Int
		}
		if e.Op == "+" {
			if sameCon(l, Text) && sameCon(r, Text) {
				return Text
			}
			if _, ok := conNamed(l, "List"); ok && Compatible(l, r) {
				return known(l, r)
			}
		}
		return mismatch()
	case "==", "!=":
		if !Compatible(l, r) && !(isNumeric(l) && isNumeric(r)) {
			mismatch()
		}
		return Bool
	case "<", "<=", ">", ">=":
		switch {
		case IsUnknown(l) || IsUnknown(r):
		case isNumeric(l) && isNumeric(r):
		case sameCon(l, Text) && sameCon(r, Text):
		default:
			mismatch()
		}
		return Bool
	case "&&", "||":
		if !Compatible(Bool, l) || !Compatible(Bool, r) {
			mismatch()
		}
		return Bool
	}
	c.errorf(diag.TypeMismatch, e.Span, "unknown operator `%s`", e.Op)
	return Unknown
}

func (c *Checker) inferUnary(e *ast.Unary) Type {
	t := c.infer(e.Operand)
	switch e.Op {
	case "!":
		if !Compatible(Bool, t) {
			c.errorf(diag.TypeMismatch, e.Span, "operator `!` needs Bool, found %s", t)
		}
		return Bool
	case "-":
		if IsUnknown(t) {
			return Unknown
		}
		if !isNumeric(t) {
			c.errorf(diag.TypeMismatch, e.Span, "operator `-` needs a number, found %s", t)
			return Unknown
		}
		return t
	}
	c.errorf(diag.TypeMismatch, e.Span, "unknown operator `%s`", e.Op)
	return Unknown
}

// fieldType types `t.field`.
func (c *Checker) fieldType(t Type, field string, span ast.Span) Type {
	switch x := t.(type) {
	case UnknownType:
		return Unknown
	case *RecordType:
		if ft, ok := x.Fields[field]; ok {
			return ft
		}
	case *TupleType:
		for i := range x.Elems {
			if field == strconv.Itoa(i) {
				return x.Elems[i]
			}
		}
	case *Con:
		if rec, ok := c.env.Records[x.Name]; ok {
			for _, f := range rec.Fields {
				if f.Name == field {
					var ft Type
					c.withTypeParams(rec.Params, func() { ft = c.resolveQuiet(f.Type, true) })
					return ft
				}
			}
		} else if _, ok := c.env.Enums[x.Name]; ok {
			return Unknown
		} else if _, ok := c.env.Traits[x.Name]; ok {
			return Unknown
		}
	}
	c.errorf(diag.UnknownField, span, "%s has no field `%s`", t, field)
	return Unknown
}

func (c *Checker) inferIndex(e *ast.Index) Type {
	t := c.infer(e.Target)
	idx := c.infer(e.Index)
	switch {
	case IsUnknown(t):
		return Unknown
	case sameCon(t, Text):
		c.expectIndex(idx, e)
		return Text
	}
	if con, ok := t.(*Con); ok {
		switch con.Name {
		case "List":
			c.expectIndex(idx, e)
			return arg(t, 0)
		case "Map":
			if !Compatible(arg(t, 0), idx) {
				c.errorf(diag.TypeMismatch, e.Index.GetSpan(), "map key must be %s, found %s", arg(t, 0), idx)
			}
			return arg(t, 1)
		}
	}
	if tup, ok := t.(*TupleType); ok {
		c.expectIndex(idx, e)
		if lit, ok := e.Index.(*ast.IntLit); ok && lit.Value >= 0 && int(lit.Value) < len(tup.Elems) {
			return tup.Elems[lit.Value]
		}
		return Unknown
	}
	c.errorf(diag.TypeMismatch, e.Span, "cannot index into %s", t)
	return Unknown
}

func (c *Checker) expectIndex(idx Type, e *ast.Index) {
	if !Compatible(Int, idx) {
		c.errorf(diag.TypeMismatch, e.Index.GetSpan(), "index must be Int, found %s", idx)
	}
}

func (c *Checker) inferIf(e *ast.If) Type {
	cond := c.infer(e.Cond)
	if !Compatible(Bool, cond) {
		c.errorf(diag.NonBoolCondition, e.Cond.GetSpan(), "if condition must be Bool, found %s", cond)
	}
	then, thenDiverges := c.checkBlock(e.Then)
	if e.Else == nil {
		return Unit
	}
	els := c.infer(e.Else)
	if thenDiverges {
		return els
	}
	if !Compatible(then, els) {
		c.errorf(diag.BranchMismatch, e.Else.GetSpan(), "if branches have incompatible types %s and %s", then, els)
		return Unknown
	}
	return known(then, els)
}

func (c *Checker) inferTry(e *ast.Try) Type {
	t := c.infer(e.Expr)
	if IsUnknown(t) {
		return Unknown
	}
	if con, ok := t.(*Con); ok && (con.Name == "Option" || con.Name == "Result") {
		return arg(t, 0)
	}
	c.errorf(diag.InvalidTry, e.Span, "`?` needs an Option or Result, found %s", t)
	return Unknown
}

func (c *Checker) inferLambda(e *ast.Lambda, hint Type) Type {
	hintFn, _ := hint.(*FnType)
	fn := &FnType{Return: Unknown}

	c.openScope()
	for i, p := range e.Params {
		t := Unknown
		if p.Type != nil {
			t = c.Resolve(p.Type)
		} else if hintFn != nil && i < len(hintFn.Params) {
			t = hintFn.Params[i]
		}
		fn.Params = append(fn.Params, t)
		c.define(&Binding{Name: p.Name, Type: t, Span: p.Span, Kind: bindParam})
	}
	body := c.infer(e.Body)
	c.closeScope()

	if e.Return != nil {
		want := c.Resolve(e.Return)
		if !Compatible(want, body) {
			c.errorf(diag.TypeMismatch, e.Body.GetSpan(), "lambda returns %s but its body evaluates to %s", want, body)
		}
		fn.Return = want
	} else {
		fn.Return = body
	}
	return fn
}

// inferHandle checks `handle E with h { .. }`. Inside the body a user
// effect is handled and no longer needs declaring; built-in effects always
// reach their capability.
func (c *Checker) inferHandle(e *ast.Handle) Type {
	if !c.isEffectName(e.Effect) {
		c.errorf(diag.UnknownEffect, e.Span, "unknown effect %s", e.Effect)
	}
	c.infer(e.Handler)
	if c.fn != nil && !effects.IsBuiltin(e.Effect) {
		c.fn.handled = append(c.fn.handled, e.Effect)
		defer func() { c.fn.handled = c.fn.handled[:len(c.fn.handled)-1] }()
	}
	t, _ := c.checkBlock(e.Body)
	return t
}
