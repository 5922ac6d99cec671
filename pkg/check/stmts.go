package check

import (
	"strings"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
)

func (c *Checker) openScope() {
	c.scope = newScope(c.scope)
}

// closeScope pops the innermost frame, reporting bindings that were never
// read.
func (c *Checker) closeScope() {
	for _, b := range c.scope.bindings {
		if b.Used || !b.linted() || strings.HasPrefix(b.Name, c.UnusedMarker) {
			continue
		}
		what := "variable"
		if b.Kind == bindParam {
			what = "parameter"
		}
		c.push(diag.NewWarning(diag.UnusedVariable, b.Span, "unused %s `%s`", what, b.Name).
			WithSuggestion("prefix it with `"+c.UnusedMarker+"` if this is intentional",
				diag.Edit{Span: b.Span, Replacement: c.UnusedMarker + b.Name}))
	}
	c.scope = c.scope.parent
}

func (c *Checker) define(b *Binding) {
	prev := c.scope.define(b)
	if prev != nil && prev.linted() && b.linted() {
		c.push(diag.NewWarning(diag.ShadowedBinding, b.Span,
			"`%s` shadows an earlier binding in the same scope", b.Name).
			WithNote("previous binding at " + prev.Span.String()))
	}
}

// checkBlock checks a block in its own scope. diverges is set when the
// block always returns before reaching its tail.
func (c *Checker) checkBlock(b *ast.Block) (t Type, diverges bool) {
	if b == nil {
		return Unit, false
	}
	c.openScope()
	defer c.closeScope()

	for _, stmt := range b.Stmts {
		if diverges {
			c.warnf(diag.UnreachableCode, stmt.GetSpan(), "unreachable statement")
		}
		if c.checkStmt(stmt) {
			diverges = true
		}
	}
	if b.Tail == nil {
		if diverges {
			return Unknown, true
		}
		return Unit, false
	}
	if diverges {
		c.warnf(diag.UnreachableCode, b.Tail.GetSpan(), "unreachable expression")
		c.infer(b.Tail)
		return Unknown, true
	}
	return c.infer(b.Tail), false
}

// checkStmt reports whether the statement returns unconditionally.
func (c *Checker) checkStmt(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		t := c.infer(s.Value)
		if s.Type != nil {
			want := c.Resolve(s.Type)
			if !Compatible(want, t) {
				c.errorf(diag.TypeMismatch, s.Value.GetSpan(),
					"`%s` is declared as %s but initialized with %s", s.Name, want, t)
			}
			t = known(want, t)
		}
		c.define(&Binding{Name: s.Name, Type: t, Mutable: s.Mutable, Span: s.Span, Kind: bindLocal})

	case *ast.AssignStmt:
		t := c.infer(s.Value)
		b, ok := c.scope.lookup(s.Name)
		if !ok {
			c.errorf(diag.UnknownIdentifier, s.Span, "cannot assign to undefined variable `%s`", s.Name)
			return false
		}
		if !b.Mutable {
			c.push(diag.NewError(diag.AssignImmutable, s.Span, "cannot assign twice to immutable variable `%s`", s.Name).
				WithSuggestion("make it mutable", diag.Edit{Span: b.Span, Replacement: "let mut " + s.Name}))
			return false
		}
		if !Compatible(b.Type, t) {
			c.errorf(diag.TypeMismatch, s.Value.GetSpan(), "cannot assign %s to `%s` of type %s", t, s.Name, b.Type)
		}

	case *ast.ExprStmt:
		c.infer(s.Expr)

	case *ast.ReturnStmt:
		t := Type(Unit)
		if s.Value != nil {
			t = c.infer(s.Value)
		}
		if c.fn != nil && !Compatible(c.fn.ret, t) {
			c.errorf(diag.TypeMismatch, s.Span, "function `%s` returns %s, found %s", c.fn.name, c.fn.ret, t)
		}
		return true

	case *ast.BreakStmt, *ast.ContinueStmt:

	case *ast.ForStmt:
		elem := c.elementType(c.infer(s.Iter), s.Iter.GetSpan())
		c.openScope()
		c.define(&Binding{Name: s.Var, Type: elem, Span: s.Span, Kind: bindLoop})
		c.checkBlock(s.Body)
		c.closeScope()

	case *ast.WhileStmt:
		cond := c.infer(s.Cond)
		if !Compatible(Bool, cond) {
			c.errorf(diag.NonBoolCondition, s.Cond.GetSpan(), "while condition must be Bool, found %s", cond)
		}
		c.checkBlock(s.Body)
	}
	return false
}

// elementType is what a for loop binds when iterating a value of type t.
func (c *Checker) elementType(t Type, span ast.Span) Type {
	if IsUnknown(t) {
		return Unknown
	}
	if sameCon(t, Text) {
		return Text
	}
	if con, ok := t.(*Con); ok {
		switch con.Name {
		case "List", "Set":
			return arg(t, 0)
		case "Map":
			return &TupleType{Elems: []Type{arg(t, 0), arg(t, 1)}}
		}
	}
	c.errorf(diag.TypeMismatch, span, "cannot iterate over %s", t)
	return Unknown
}
