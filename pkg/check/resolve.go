package check

import (
	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
)

// Resolve turns a written type into a checker type, reporting unknown type
// names.
func (c *Checker) Resolve(te ast.TypeExpr) Type {
	return c.resolveQuiet(te, false)
}

func (c *Checker) resolveQuiet(te ast.TypeExpr, quiet bool) Type {
	r := &resolver{c: c, quiet: quiet, seen: map[string]bool{}}
	return r.resolve(te)
}

type resolver struct {
	c     *Checker
	quiet bool
	seen  map[string]bool
}

func (r *resolver) resolve(te ast.TypeExpr) Type {
	switch t := te.(type) {
	case nil:
		return Unknown
	case *ast.TupleType:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = r.resolve(e)
		}
		return &TupleType{Elems: elems}
	case *ast.FnType:
		fn := &FnType{Return: Unit, Effects: t.Effects}
		for _, p := range t.Params {
			fn.Params = append(fn.Params, r.resolve(p))
		}
		if t.Return != nil {
			fn.Return = r.resolve(t.Return)
		}
		return fn
	case *ast.NamedType:
		return r.named(t)
	}
	return Unknown
}

func (r *resolver) named(t *ast.NamedType) Type {
	args := make([]Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = r.resolve(a)
	}

	if prim, ok := primitives[t.Name]; ok {
		return prim
	}
	if n, ok := genericArity[t.Name]; ok {
		for len(args) < n {
			args = append(args, Unknown)
		}
		return &Con{Name: t.Name, Args: args[:n]}
	}
	if isTypeParam(t.Name) || r.c.typeParams[t.Name] {
		return Unknown
	}

	env := r.c.env
	if alias, ok := env.Aliases[t.Name]; ok {
		if r.seen[t.Name] {
			return Unknown
		}
		r.seen[t.Name] = true
		defer delete(r.seen, t.Name)
		return r.resolve(alias.Alias)
	}
	if _, ok := env.Records[t.Name]; ok {
		return &Con{Name: t.Name, Args: args}
	}
	if _, ok := env.Enums[t.Name]; ok {
		return &Con{Name: t.Name, Args: args}
	}
	if _, ok := env.Traits[t.Name]; ok {
		return &Con{Name: t.Name}
	}
	if !r.quiet {
		r.c.errorf(diag.UnknownType, t.Span, "unknown type `%s`", t.Name)
	}
	return Unknown
}

// isTypeParam reports whether name stands for a generic parameter: `Any` or
// a single capital letter.
func isTypeParam(name string) bool {
	if name == "Any" {
		return true
	}
	return len(name) == 1 && name[0] >= 'A' && name[0] <= 'Z'
}
