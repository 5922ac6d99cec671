package ast

import (
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DecodeFile reads an AST document (YAML or JSON) from disk.
func DecodeFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return Decode(path, data)
}

// Decode turns an AST document into a Module. Every node is a mapping with a
// `kind` discriminator; integers, floats and booleans may be written as bare
// scalars, and bare strings are identifiers. Types use the compact textual
// form accepted by ParseType.
func Decode(file string, data []byte) (*Module, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", file)
	}
	d := &decoder{file: file}
	mod, err := d.module(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", file)
	}
	return mod, nil
}

type decoder struct {
	file string
}

type node = map[string]any

func (d *decoder) span(n node) Span {
	s := Span{File: d.file}
	raw, ok := n["span"].(node)
	if !ok {
		return s
	}
	s.Line = int(toInt(raw["line"]))
	s.Column = int(toInt(raw["column"]))
	s.Start = int(toInt(raw["start"]))
	s.End = int(toInt(raw["end"]))
	return s
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func str(n node, key string) string {
	s, _ := n[key].(string)
	return s
}

func list(n node, key string) []any {
	l, _ := n[key].([]any)
	return l
}

func strs(n node, key string) []string {
	switch v := n[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// dotted accepts either `a.b.c` or a list of segments.
func dotted(n node, key string) []string {
	if s, ok := n[key].(string); ok {
		return strings.Split(s, ".")
	}
	return strs(n, key)
}

func asNode(v any, what string) (node, error) {
	n, ok := v.(node)
	if !ok {
		return nil, errors.Errorf("%s: expected a mapping, got %T", what, v)
	}
	return n, nil
}

func (d *decoder) module(n node) (*Module, error) {
	mod := &Module{Span: d.span(n), Path: dotted(n, "path")}
	for i, raw := range list(n, "items") {
		in, err := asNode(raw, "item")
		if err != nil {
			return nil, err
		}
		item, err := d.item(in)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		mod.Items = append(mod.Items, item)
	}
	return mod, nil
}

func (d *decoder) typ(v any) (TypeExpr, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return ParseType(t)
	case node:
		named := &NamedType{Span: d.span(t), Name: str(t, "name")}
		for _, a := range list(t, "args") {
			arg, err := d.typ(a)
			if err != nil {
				return nil, err
			}
			named.Args = append(named.Args, arg)
		}
		return named, nil
	}
	return nil, errors.Errorf("type: unexpected %T", v)
}

func (d *decoder) params(raw []any) ([]Param, error) {
	var params []Param
	for _, r := range raw {
		if name, ok := r.(string); ok {
			params = append(params, Param{Name: name})
			continue
		}
		pn, err := asNode(r, "param")
		if err != nil {
			return nil, err
		}
		t, err := d.typ(pn["type"])
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Span: d.span(pn), Name: str(pn, "name"), Type: t})
	}
	return params, nil
}

func (d *decoder) fields(raw []any) ([]Field, error) {
	var fields []Field
	for _, r := range raw {
		if s, ok := r.(string); ok {
			t, err := ParseType(s)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Type: t})
			continue
		}
		fn, err := asNode(r, "field")
		if err != nil {
			return nil, err
		}
		t, err := d.typ(fn["type"])
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Span: d.span(fn), Name: str(fn, "name"), Type: t})
	}
	return fields, nil
}

func (d *decoder) sig(n node) (FnSig, error) {
	params, err := d.params(list(n, "params"))
	if err != nil {
		return FnSig{}, err
	}
	ret, err := d.typ(n["return"])
	if err != nil {
		return FnSig{}, err
	}
	return FnSig{
		Span:    d.span(n),
		Name:    str(n, "name"),
		Params:  params,
		Return:  ret,
		Effects: strs(n, "effects"),
	}, nil
}

func (d *decoder) sigs(raw []any) ([]FnSig, error) {
	var out []FnSig
	for _, r := range raw {
		sn, err := asNode(r, "signature")
		if err != nil {
			return nil, err
		}
		s, err := d.sig(sn)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) fn(n node) (*FnDecl, error) {
	sig, err := d.sig(n)
	if err != nil {
		return nil, err
	}
	fn := &FnDecl{
		Span:    sig.Span,
		Name:    sig.Name,
		Params:  sig.Params,
		Return:  sig.Return,
		Effects: sig.Effects,
		Async:   n["async"] == true,
		Public:  n["public"] == true,
	}
	if fn.Requires, err = d.exprs(list(n, "requires")); err != nil {
		return nil, err
	}
	if fn.Ensures, err = d.exprs(list(n, "ensures")); err != nil {
		return nil, err
	}
	if fn.Body, err = d.block(n["body"]); err != nil {
		return nil, errors.Wrapf(err, "fn %s", fn.Name)
	}
	if en, ok := n["effects_span"].(node); ok {
		fn.EffectsSpan = d.span(node{"span": en})
	} else {
		fn.EffectsSpan = insertionBefore(fn.Body.Span, fn.Span)
	}
	return fn, nil
}

// insertionBefore is an empty span where text can be inserted ahead of at,
// or at the end of fallback when at carries no offsets.
func insertionBefore(at, fallback Span) Span {
	if at.End == 0 {
		return Span{File: fallback.File, Line: fallback.Line, Column: fallback.Column, Start: fallback.End, End: fallback.End}
	}
	return Span{File: at.File, Line: at.Line, Column: at.Column, Start: at.Start, End: at.Start}
}

func (d *decoder) item(n node) (Item, error) {
	span := d.span(n)
	switch kind := str(n, "kind"); kind {
	case "import":
		return &ImportDecl{Span: span, Path: dotted(n, "path"), Names: strs(n, "names"), Alias: str(n, "alias")}, nil
	case "type":
		alias, err := d.typ(n["alias"])
		if err != nil {
			return nil, err
		}
		fields, err := d.fields(list(n, "fields"))
		if err != nil {
			return nil, err
		}
		decl := &TypeDecl{Span: span, Name: str(n, "name"), Params: strs(n, "params"), Alias: alias, Fields: fields}
		if inv, ok := n["invariant"]; ok {
			if decl.Invariant, err = d.expr(inv); err != nil {
				return nil, err
			}
		}
		return decl, nil
	case "enum":
		decl := &EnumDecl{Span: span, Name: str(n, "name"), Params: strs(n, "params")}
		for _, r := range list(n, "variants") {
			if name, ok := r.(string); ok {
				decl.Variants = append(decl.Variants, Variant{Name: name})
				continue
			}
			vn, err := asNode(r, "variant")
			if err != nil {
				return nil, err
			}
			fields, err := d.fields(list(vn, "fields"))
			if err != nil {
				return nil, err
			}
			decl.Variants = append(decl.Variants, Variant{Span: d.span(vn), Name: str(vn, "name"), Fields: fields})
		}
		return decl, nil
	case "trait":
		methods, err := d.sigs(list(n, "methods"))
		if err != nil {
			return nil, err
		}
		return &TraitDecl{Span: span, Name: str(n, "name"), Methods: methods}, nil
	case "effect":
		ops, err := d.sigs(list(n, "ops"))
		if err != nil {
			return nil, err
		}
		return &EffectDecl{Span: span, Name: str(n, "name"), Ops: ops}, nil
	case "fn":
		return d.fn(n)
	case "impl":
		decl := &ImplDecl{Span: span, Trait: str(n, "trait"), Target: str(n, "target")}
		for _, r := range list(n, "methods") {
			mn, err := asNode(r, "method")
			if err != nil {
				return nil, err
			}
			m, err := d.fn(mn)
			if err != nil {
				return nil, err
			}
			decl.Methods = append(decl.Methods, m)
		}
		return decl, nil
	case "test":
		body, err := d.block(n["body"])
		if err != nil {
			return nil, err
		}
		return &TestDecl{Span: span, Name: str(n, "name"), Body: body}, nil
	case "property":
		params, err := d.params(list(n, "params"))
		if err != nil {
			return nil, err
		}
		body, err := d.block(n["body"])
		if err != nil {
			return nil, err
		}
		return &PropertyDecl{Span: span, Name: str(n, "name"), Params: params, Body: body}, nil
	default:
		return nil, errors.Errorf("unknown item kind %q", kind)
	}
}

// block accepts a mapping with stmts/tail, or a bare expression which
// becomes the tail of an empty block.
func (d *decoder) block(v any) (*Block, error) {
	if v == nil {
		return &Block{}, nil
	}
	n, ok := v.(node)
	if !ok || (n["kind"] != nil && n["kind"] != "block") {
		tail, err := d.expr(v)
		if err != nil {
			return nil, err
		}
		return &Block{Span: tail.GetSpan(), Tail: tail}, nil
	}
	b := &Block{Span: d.span(n)}
	for i, r := range list(n, "stmts") {
		s, err := d.stmt(r)
		if err != nil {
			return nil, errors.Wrapf(err, "stmt %d", i)
		}
		b.Stmts = append(b.Stmts, s)
	}
	if tail, ok := n["tail"]; ok {
		t, err := d.expr(tail)
		if err != nil {
			return nil, err
		}
		b.Tail = t
	}
	return b, nil
}

func (d *decoder) stmt(v any) (Stmt, error) {
	n, ok := v.(node)
	if !ok {
		e, err := d.expr(v)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Span: e.GetSpan(), Expr: e}, nil
	}
	span := d.span(n)
	switch str(n, "kind") {
	case "let":
		t, err := d.typ(n["type"])
		if err != nil {
			return nil, err
		}
		val, err := d.expr(n["value"])
		if err != nil {
			return nil, err
		}
		return &LetStmt{Span: span, Name: str(n, "name"), Mutable: n["mut"] == true, Type: t, Value: val}, nil
	case "assign":
		val, err := d.expr(n["value"])
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Span: span, Name: str(n, "name"), Value: val}, nil
	case "expr":
		e, err := d.expr(n["expr"])
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Span: span, Expr: e}, nil
	case "return":
		var val Expr
		if raw, ok := n["value"]; ok {
			var err error
			if val, err = d.expr(raw); err != nil {
				return nil, err
			}
		}
		return &ReturnStmt{Span: span, Value: val}, nil
	case "break":
		return &BreakStmt{Span: span}, nil
	case "continue":
		return &ContinueStmt{Span: span}, nil
	case "for":
		iter, err := d.expr(n["iter"])
		if err != nil {
			return nil, err
		}
		body, err := d.block(n["body"])
		if err != nil {
			return nil, err
		}
		return &ForStmt{Span: span, Var: str(n, "var"), Iter: iter, Body: body}, nil
	case "while":
		cond, err := d.expr(n["cond"])
		if err != nil {
			return nil, err
		}
		body, err := d.block(n["body"])
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Span: span, Cond: cond, Body: body}, nil
	default:
		e, err := d.expr(n)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Span: span, Expr: e}, nil
	}
}

func (d *decoder) exprs(raw []any) ([]Expr, error) {
	var out []Expr
	for _, r := range raw {
		e, err := d.expr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) exprField(n node, key string) (Expr, error) {
	raw, ok := n[key]
	if !ok || raw == nil {
		return nil, nil
	}
	return d.expr(raw)
}

func (d *decoder) expr(v any) (Expr, error) {
	switch x := v.(type) {
	case nil:
		return &UnitLit{Span: Span{File: d.file}}, nil
	case bool:
		return &BoolLit{Span: Span{File: d.file}, Value: x}, nil
	case int, int64, uint64:
		return &IntLit{Span: Span{File: d.file}, Value: toInt(x)}, nil
	case float64:
		return &FloatLit{Span: Span{File: d.file}, Value: x}, nil
	case string:
		if strings.Contains(x, ".") {
			return &QualifiedIdent{Span: Span{File: d.file}, Path: strings.Split(x, ".")}, nil
		}
		return &Ident{Span: Span{File: d.file}, Name: x}, nil
	case node:
		return d.exprNode(x)
	}
	return nil, errors.Errorf("expression: unexpected %T", v)
}

func (d *decoder) exprNode(n node) (Expr, error) {
	span := d.span(n)
	var err error
	switch kind := str(n, "kind"); kind {
	case "unit":
		return &UnitLit{Span: span}, nil
	case "int":
		return &IntLit{Span: span, Value: toInt(n["value"])}, nil
	case "float":
		f, ok := n["value"].(float64)
		if !ok {
			f = float64(toInt(n["value"]))
		}
		return &FloatLit{Span: span, Value: f}, nil
	case "bool":
		return &BoolLit{Span: span, Value: n["value"] == true}, nil
	case "text":
		return &TextLit{Span: span, Value: str(n, "value")}, nil
	case "ident":
		return &Ident{Span: span, Name: str(n, "name")}, nil
	case "qualified":
		return &QualifiedIdent{Span: span, Path: dotted(n, "path")}, nil
	case "list":
		e := &ListLit{Span: span}
		e.Elems, err = d.exprs(list(n, "elems"))
		return e, err
	case "tuple":
		e := &TupleLit{Span: span}
		e.Elems, err = d.exprs(list(n, "elems"))
		return e, err
	case "set":
		e := &SetLit{Span: span}
		e.Elems, err = d.exprs(list(n, "elems"))
		return e, err
	case "map":
		e := &MapLit{Span: span}
		for _, r := range list(n, "entries") {
			en, err := asNode(r, "map entry")
			if err != nil {
				return nil, err
			}
			k, err := d.expr(en["key"])
			if err != nil {
				return nil, err
			}
			val, err := d.expr(en["value"])
			if err != nil {
				return nil, err
			}
			e.Entries = append(e.Entries, MapEntry{Key: k, Value: val})
		}
		return e, nil
	case "record":
		e := &RecordLit{Span: span, TypeName: str(n, "type")}
		for _, r := range list(n, "fields") {
			fn, err := asNode(r, "field init")
			if err != nil {
				return nil, err
			}
			val, err := d.expr(fn["value"])
			if err != nil {
				return nil, err
			}
			e.Fields = append(e.Fields, FieldInit{Span: d.span(fn), Name: str(fn, "name"), Value: val})
		}
		return e, nil
	case "binary":
		e := &Binary{Span: span, Op: str(n, "op")}
		if e.Left, err = d.expr(n["left"]); err != nil {
			return nil, err
		}
		e.Right, err = d.expr(n["right"])
		return e, err
	case "unary":
		e := &Unary{Span: span, Op: str(n, "op")}
		e.Operand, err = d.expr(n["operand"])
		return e, err
	case "call":
		e := &Call{Span: span}
		if e.Callee, err = d.expr(n["callee"]); err != nil {
			return nil, err
		}
		e.Args, err = d.exprs(list(n, "args"))
		return e, err
	case "method":
		e := &MethodCall{Span: span, Method: str(n, "method")}
		if e.Receiver, err = d.expr(n["receiver"]); err != nil {
			return nil, err
		}
		e.Args, err = d.exprs(list(n, "args"))
		return e, err
	case "field":
		e := &FieldAccess{Span: span, Field: str(n, "field")}
		if idx, ok := n["field"].(int); ok {
			e.Field = strconv.Itoa(idx)
		}
		e.Target, err = d.expr(n["target"])
		return e, err
	case "index":
		e := &Index{Span: span}
		if e.Target, err = d.expr(n["target"]); err != nil {
			return nil, err
		}
		e.Index, err = d.expr(n["index"])
		return e, err
	case "if":
		e := &If{Span: span}
		if e.Cond, err = d.expr(n["cond"]); err != nil {
			return nil, err
		}
		if e.Then, err = d.block(n["then"]); err != nil {
			return nil, err
		}
		if raw, ok := n["else"]; ok && raw != nil {
			if en, ok := raw.(node); ok && en["kind"] == "if" {
				e.Else, err = d.expr(en)
			} else {
				b, err := d.block(raw)
				if err != nil {
					return nil, err
				}
				e.Else = &BlockExpr{Span: b.Span, Block: b}
			}
		}
		return e, err
	case "match":
		e := &Match{Span: span}
		if e.Scrutinee, err = d.expr(n["scrutinee"]); err != nil {
			return nil, err
		}
		for _, r := range list(n, "arms") {
			an, err := asNode(r, "match arm")
			if err != nil {
				return nil, err
			}
			pat, err := d.pattern(an["pattern"])
			if err != nil {
				return nil, err
			}
			guard, err := d.exprField(an, "guard")
			if err != nil {
				return nil, err
			}
			body, err := d.expr(an["body"])
			if err != nil {
				return nil, err
			}
			e.Arms = append(e.Arms, MatchArm{Span: d.span(an), Pattern: pat, Guard: guard, Body: body})
		}
		return e, nil
	case "lambda":
		e := &Lambda{Span: span}
		if e.Params, err = d.params(list(n, "params")); err != nil {
			return nil, err
		}
		if e.Return, err = d.typ(n["return"]); err != nil {
			return nil, err
		}
		e.Body, err = d.expr(n["body"])
		return e, err
	case "block":
		b, err := d.block(n)
		if err != nil {
			return nil, err
		}
		return &BlockExpr{Span: span, Block: b}, nil
	case "try":
		e := &Try{Span: span}
		e.Expr, err = d.expr(n["expr"])
		return e, err
	case "await":
		e := &Await{Span: span}
		e.Expr, err = d.expr(n["expr"])
		return e, err
	case "range":
		e := &Range{Span: span, Inclusive: n["inclusive"] == true}
		if e.Start, err = d.expr(n["start"]); err != nil {
			return nil, err
		}
		e.End, err = d.expr(n["end"])
		return e, err
	case "handle":
		e := &Handle{Span: span, Effect: str(n, "effect")}
		if e.Handler, err = d.expr(n["handler"]); err != nil {
			return nil, err
		}
		e.Body, err = d.block(n["body"])
		return e, err
	default:
		return nil, errors.Errorf("unknown expression kind %q", kind)
	}
}

func (d *decoder) pattern(v any) (Pattern, error) {
	span := Span{File: d.file}
	switch x := v.(type) {
	case string:
		switch {
		case x == "_":
			return &WildcardPattern{Span: span}, nil
		case x != "" && unicode.IsUpper(rune(x[0])):
			// a bare capitalized name is a variant without a payload
			return &VariantPattern{Span: span, Name: x}, nil
		}
		return &IdentPattern{Span: span, Name: x}, nil
	case bool, int, int64, uint64, float64:
		lit, err := d.expr(x)
		if err != nil {
			return nil, err
		}
		return &LiteralPattern{Span: span, Value: lit}, nil
	case node:
		span = d.span(x)
		switch kind := str(x, "kind"); kind {
		case "wildcard":
			return &WildcardPattern{Span: span}, nil
		case "ident":
			return &IdentPattern{Span: span, Name: str(x, "name")}, nil
		case "literal":
			lit, err := d.expr(x["value"])
			if err != nil {
				return nil, err
			}
			return &LiteralPattern{Span: span, Value: lit}, nil
		case "text", "int", "float", "bool":
			lit, err := d.exprNode(x)
			if err != nil {
				return nil, err
			}
			return &LiteralPattern{Span: span, Value: lit}, nil
		case "variant":
			p := &VariantPattern{Span: span, Name: str(x, "name")}
			for _, r := range list(x, "args") {
				arg, err := d.pattern(r)
				if err != nil {
					return nil, err
				}
				p.Args = append(p.Args, arg)
			}
			return p, nil
		case "record":
			p := &RecordPattern{Span: span, TypeName: str(x, "type")}
			for _, r := range list(x, "fields") {
				fn, err := asNode(r, "field pattern")
				if err != nil {
					return nil, err
				}
				// a field without a pattern binds the field's own name
				var sub Pattern
				if raw, ok := fn["pattern"]; ok && raw != nil {
					if sub, err = d.pattern(raw); err != nil {
						return nil, err
					}
				}
				p.Fields = append(p.Fields, FieldPattern{Name: str(fn, "name"), Pattern: sub})
			}
			return p, nil
		case "tuple":
			p := &TuplePattern{Span: span}
			for _, r := range list(x, "elems") {
				elem, err := d.pattern(r)
				if err != nil {
					return nil, err
				}
				p.Elems = append(p.Elems, elem)
			}
			return p, nil
		default:
			return nil, errors.Errorf("unknown pattern kind %q", kind)
		}
	}
	return nil, errors.Errorf("pattern: unexpected %T", v)
}
