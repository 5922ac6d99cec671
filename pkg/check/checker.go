// Package check is the static semantic checker: local type inference,
// effect enforcement, match exhaustiveness and lint, all reported as
// diagnostics without executing anything.
package check

import (
	"log/slog"
	"strings"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/effects"
)

// Checker checks one module at a time. A Checker is not safe for
// concurrent use; independent Checkers share nothing.
type Checker struct {
	// UnusedMarker exempts bindings whose names start with it from unused
	// warnings. Defaults to "_".
	UnusedMarker string
	// Sink, when set, receives every diagnostic as it is produced.
	Sink diag.Sink

	env     *TypeEnv
	globals *Scope
	scope   *Scope
	fn      *fnContext
	imports []*importBinding
	diags   []diag.Diagnostic
	types   map[ast.Expr]Type

	// typeParams are the generic parameters of the declaration being checked.
	typeParams map[string]bool
}

// fnContext tracks the function whose body is being checked.
type fnContext struct {
	name     string
	declared effects.Set
	used     effects.Set
	usedAt   map[string]ast.Span
	handled  []string
	ret      Type
	decl     *ast.FnDecl
}

type importBinding struct {
	name string
	span ast.Span
	used bool
}

func New() *Checker {
	return &Checker{UnusedMarker: "_"}
}

// CheckModule checks mod and returns a *diag.Bag holding every diagnostic
// when any of them is an error. Warnings never make it fail; use
// Diagnostics to see them either way. Each call starts from scratch.
func (c *Checker) CheckModule(mod *ast.Module) error {
	c.reset()
	slog.Debug("checking module", "module", mod.Name(), "items", len(mod.Items))

	c.collect(mod)
	for _, item := range mod.Items {
		c.checkItem(item)
	}
	c.lintImports()

	bag := &diag.Bag{Diagnostics: c.Diagnostics()}
	slog.Debug("checked module", "module", mod.Name(), "diagnostics", bag.Len())
	if bag.HasErrors() {
		return bag
	}
	return nil
}

// Diagnostics returns every diagnostic from the last check, errors and
// warnings alike, in the order they were found.
func (c *Checker) Diagnostics() []diag.Diagnostic {
	return append([]diag.Diagnostic(nil), c.diags...)
}

// TypeOf returns the type inferred for an expression by the last check.
func (c *Checker) TypeOf(expr ast.Expr) Type {
	if t, ok := c.types[expr]; ok {
		return t
	}
	return Unknown
}

// Signature returns a function's type as registered by the last check.
func (c *Checker) Signature(name string) (*FnType, bool) {
	if c.env == nil {
		return nil, false
	}
	fn, ok := c.env.Functions[name]
	return fn, ok
}

func (c *Checker) reset() {
	if c.UnusedMarker == "" {
		c.UnusedMarker = "_"
	}
	c.env = newTypeEnv()
	c.globals = newScope(nil)
	c.scope = c.globals
	c.fn = nil
	c.imports = nil
	c.diags = nil
	c.types = map[ast.Expr]Type{}
	c.typeParams = nil
}

func (c *Checker) push(d diag.Diagnostic) {
	c.diags = append(c.diags, d)
	if c.Sink != nil {
		c.Sink.Push(d)
	}
}

func (c *Checker) errorf(code diag.Code, span ast.Span, format string, args ...any) {
	c.push(diag.NewError(code, span, format, args...))
}

func (c *Checker) warnf(code diag.Code, span ast.Span, format string, args ...any) {
	c.push(diag.NewWarning(code, span, format, args...))
}

// collect registers every definition so bodies can refer to anything in
// the module regardless of declaration order.
func (c *Checker) collect(mod *ast.Module) {
	for _, item := range mod.Items {
		switch d := item.(type) {
		case *ast.TypeDecl:
			if d.IsRecord() {
				c.env.Records[d.Name] = d
			} else {
				c.env.Aliases[d.Name] = d
			}
		case *ast.EnumDecl:
			c.env.Enums[d.Name] = d
			for _, v := range d.Variants {
				c.env.Variants[v.Name] = d
			}
		case *ast.EffectDecl:
			c.env.Effects[d.Name] = d
		case *ast.TraitDecl:
			c.env.Traits[d.Name] = d
		case *ast.ImplDecl:
			methods := c.env.Impls[d.Target]
			if methods == nil {
				methods = map[string]*ast.FnDecl{}
				c.env.Impls[d.Target] = methods
			}
			for _, m := range d.Methods {
				methods[m.Name] = m
			}
		case *ast.ImportDecl:
			c.collectImport(d)
		}
	}

	// Signatures are resolved once every type name is known.
	for _, item := range mod.Items {
		fn, ok := item.(*ast.FnDecl)
		if !ok {
			continue
		}
		sig := c.signature(fn.Params, fn.Return, fn.Effects, true)
		c.env.Functions[fn.Name] = sig
		c.env.Async[fn.Name] = fn.Async
		c.globals.define(&Binding{Name: fn.Name, Type: c.callerType(fn.Name, sig), Span: fn.Span, Kind: bindGlobal})
	}
}

func (c *Checker) collectImport(d *ast.ImportDecl) {
	names := d.Names
	if len(names) == 0 {
		names = []string{d.Binding()}
	}
	for _, name := range names {
		c.imports = append(c.imports, &importBinding{name: name, span: d.Span})
		c.globals.define(&Binding{Name: name, Type: Unknown, Span: d.Span, Kind: bindGlobal})
	}
}

// callerType is the type a caller sees: async functions hand back a future.
func (c *Checker) callerType(name string, sig *FnType) *FnType {
	if !c.env.Async[name] {
		return sig
	}
	return &FnType{Params: sig.Params, Return: Future(sig.Return), Effects: sig.Effects}
}

// signature builds a function type from declared parameters. quiet skips
// unknown-type diagnostics for signatures that are reported elsewhere.
func (c *Checker) signature(params []ast.Param, ret ast.TypeExpr, effs []string, quiet bool) *FnType {
	sig := &FnType{Return: Unit, Effects: effs}
	for _, p := range params {
		if p.Type == nil {
			sig.Params = append(sig.Params, Unknown)
			continue
		}
		sig.Params = append(sig.Params, c.resolveQuiet(p.Type, quiet))
	}
	if ret != nil {
		sig.Return = c.resolveQuiet(ret, quiet)
	}
	return sig
}

func (c *Checker) lintImports() {
	for _, imp := range c.imports {
		if !imp.used {
			c.warnf(diag.UnusedImport, imp.span, "unused import `%s`", imp.name)
		}
	}
}

func (c *Checker) markImport(name string) {
	for _, imp := range c.imports {
		if imp.name == name {
			imp.used = true
		}
	}
}

// isEffectName reports whether name refers to an effect: a built-in one or
// one declared in this module.
func (c *Checker) isEffectName(name string) bool {
	if effects.IsBuiltin(name) {
		return true
	}
	_, ok := c.env.Effects[name]
	return ok
}

// useEffect records that the current function names an effect directly.
func (c *Checker) useEffect(name string, span ast.Span) {
	if c.fn == nil {
		return
	}
	for _, h := range c.fn.handled {
		if h == name {
			return
		}
	}
	if !c.fn.used.Contains(name) {
		c.fn.used.Add(name)
		c.fn.usedAt[name] = span
	}
}

// enforceEffects reports each effect used but not declared, with a fix that
// extends the declaration.
func (c *Checker) enforceEffects(fn *fnContext) {
	missing := fn.used.Difference(fn.declared)
	if missing.Len() == 0 {
		return
	}
	fixed := fn.declared.Union(missing).Slice()
	for _, name := range missing.Slice() {
		d := diag.NewError(diag.EffectNotDeclared, fn.usedAt[name],
			"function `%s` uses effect %s but does not declare it", fn.name, name)
		if len(fn.declared) > 0 {
			d = d.WithNote("declared effects: " + strings.Join(fn.declared.Slice(), ", "))
		}
		if fn.decl != nil {
			d = d.WithSuggestion("add "+name+" to the effect list", effectsEdit(fn.decl, fixed, missing.Slice()))
		}
		c.push(d)
	}
}

// effectsEdit rewrites the declared effect list, or inserts one ahead of the
// body when the list has no span of its own.
func effectsEdit(decl *ast.FnDecl, fixed, missing []string) diag.Edit {
	span := decl.EffectsSpan
	switch {
	case span.Start != span.End:
		return diag.Edit{Span: span, Replacement: "with " + strings.Join(fixed, ", ")}
	case len(decl.Effects) > 0:
		return diag.Edit{Span: span, Replacement: ", " + strings.Join(missing, ", ")}
	default:
		return diag.Edit{Span: span, Replacement: "with " + strings.Join(fixed, ", ")}
	}
}

func (c *Checker) checkDeclaredEffects(names []string, span ast.Span) {
	for _, name := range names {
		if !c.isEffectName(name) {
			c.errorf(diag.UnknownEffect, span, "unknown effect %s", name)
		}
	}
}
