package check

import (
	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
)

func (c *Checker) checkItem(item ast.Item) {
	switch d := item.(type) {
	case *ast.TypeDecl:
		c.checkTypeDecl(d)
	case *ast.EnumDecl:
		c.withTypeParams(d.Params, func() {
			for _, v := range d.Variants {
				for _, f := range v.Fields {
					c.Resolve(f.Type)
				}
			}
		})
	case *ast.EffectDecl:
		for _, op := range d.Ops {
			c.signature(op.Params, op.Return, op.Effects, false)
		}
	case *ast.TraitDecl:
		for _, m := range d.Methods {
			c.signature(m.Params, m.Return, m.Effects, false)
		}
	case *ast.ImplDecl:
		c.checkImpl(d)
	case *ast.FnDecl:
		c.checkFn(d, nil)
	case *ast.TestDecl:
		c.checkTestBody(d.Name, nil, d.Body)
	case *ast.PropertyDecl:
		c.checkTestBody(d.Name, d.Params, d.Body)
	}
}

func (c *Checker) withTypeParams(params []string, fn func()) {
	prev := c.typeParams
	c.typeParams = map[string]bool{}
	for _, p := range params {
		c.typeParams[p] = true
	}
	defer func() { c.typeParams = prev }()
	fn()
}

func (c *Checker) checkTypeDecl(d *ast.TypeDecl) {
	c.withTypeParams(d.Params, func() {
		var self Type
		if d.IsRecord() {
			for _, f := range d.Fields {
				c.Resolve(f.Type)
			}
			self = &Con{Name: d.Name}
		} else {
			self = c.Resolve(d.Alias)
		}
		if d.Invariant == nil {
			return
		}
		c.openScope()
		c.define(&Binding{Name: "self", Type: self, Span: d.Span, Kind: bindSynthetic})
		c.expectBool(d.Invariant, "invariant of `"+d.Name+"`")
		c.closeScope()
	})
}

// expectBool checks a contract or invariant expression.
func (c *Checker) expectBool(expr ast.Expr, what string) {
	t := c.infer(expr)
	if !Compatible(Bool, t) {
		c.errorf(diag.NonBoolContract, expr.GetSpan(), "%s must be Bool, found %s", what, t)
	}
}

func (c *Checker) checkImpl(d *ast.ImplDecl) {
	target := c.implTarget(d)

	if d.Trait != "" {
		trait, ok := c.env.Traits[d.Trait]
		if !ok {
			c.errorf(diag.UnknownType, d.Span, "unknown trait `%s`", d.Trait)
		} else {
			have := map[string]bool{}
			for _, m := range d.Methods {
				have[m.Name] = true
			}
			for _, sig := range trait.Methods {
				if !have[sig.Name] {
					c.errorf(diag.MissingTraitImpl, d.Span,
						"impl of `%s` for `%s` is missing method `%s`", d.Trait, d.Target, sig.Name)
				}
			}
		}
	}

	for _, m := range d.Methods {
		c.checkFn(m, target)
	}
}

func (c *Checker) implTarget(d *ast.ImplDecl) Type {
	if prim, ok := primitives[d.Target]; ok {
		return prim
	}
	if _, ok := genericArity[d.Target]; ok {
		return &Con{Name: d.Target}
	}
	_, isRecord := c.env.Records[d.Target]
	_, isEnum := c.env.Enums[d.Target]
	if _, isAlias := c.env.Aliases[d.Target]; isAlias {
		return c.Resolve(ast.Named(d.Target))
	}
	if !isRecord && !isEnum {
		c.errorf(diag.UnknownType, d.Span, "unknown type `%s` in impl", d.Target)
		return Unknown
	}
	return &Con{Name: d.Target}
}

// checkFn checks a function body. self is the impl target for methods and
// types an untyped leading `self` parameter.
func (c *Checker) checkFn(fn *ast.FnDecl, self Type) {
	c.checkDeclaredEffects(fn.Effects, fn.EffectsSpan)

	sig := c.signature(fn.Params, fn.Return, fn.Effects, false)
	ctx := &fnContext{
		name:     fn.Name,
		declared: effects.NewSet(fn.Effects...),
		used:     effects.NewSet(),
		usedAt:   map[string]ast.Span{},
		ret:      sig.Return,
		decl:     fn,
	}
	if fn.Return == nil {
		ctx.ret = Unknown
	}

	prev := c.fn
	c.fn = ctx
	defer func() { c.fn = prev }()

	c.openScope()
	for i, p := range fn.Params {
		t := sig.Params[i]
		if i == 0 && p.Name == "self" && p.Type == nil && self != nil {
			t = self
		}
		kind := bindParam
		if p.Name == "self" {
			kind = bindSynthetic
		}
		c.define(&Binding{Name: p.Name, Type: t, Span: p.Span, Kind: kind})
	}

	for _, req := range fn.Requires {
		c.expectBool(req, "precondition")
	}

	body, diverges := c.checkBlock(fn.Body)
	if fn.Return != nil && fn.Body != nil && fn.Body.Tail != nil && !diverges {
		if !Compatible(ctx.ret, body) {
			c.errorf(diag.TypeMismatch, fn.Body.Tail.GetSpan(),
				"function `%s` returns %s but its body evaluates to %s", fn.Name, ctx.ret, body)
		}
	}

	if len(fn.Ensures) > 0 {
		c.openScope()
		c.define(&Binding{Name: "result", Type: ctx.ret, Span: fn.Span, Kind: bindSynthetic})
		for _, ens := range fn.Ensures {
			c.expectBool(ens, "postcondition")
		}
		c.closeScope()
	}
	c.closeScope()

	c.enforceEffects(ctx)
}

// checkTestBody checks a test or property block. They may use any effect.
func (c *Checker) checkTestBody(name string, params []ast.Param, body *ast.Block) {
	declared := effects.NewSet(effects.Builtins...)
	for eff := range c.env.Effects {
		declared.Add(eff)
	}
	prev := c.fn
	c.fn = &fnContext{
		name:     name,
		declared: declared,
		used:     effects.NewSet(),
		usedAt:   map[string]ast.Span{},
		ret:      Unknown,
	}
	defer func() { c.fn = prev }()

	c.openScope()
	for _, p := range params {
		c.define(&Binding{Name: p.Name, Type: c.Resolve(p.Type), Span: p.Span, Kind: bindParam})
	}
	c.checkBlock(body)
	c.closeScope()
}
