package eval

import (
	"context"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

func (i *Interpreter) evalMatch(ctx context.Context, env *value.Env, m *ast.Match) (value.Value, error) {
	scrutinee, err := i.eval(ctx, env, m.Scrutinee)
	if err != nil {
		return nil, err
	}
	for _, arm := range m.Arms {
		scope := env.Child()
		ok, err := i.match(ctx, arm.Pattern, scrutinee, scope)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if arm.Guard != nil {
			g, err := i.eval(ctx, scope, arm.Guard)
			if err != nil {
				return nil, err
			}
			b, isBool := g.(value.BoolValue)
			if !isBool {
				return nil, faultAt(arm.Guard.GetSpan(), diag.RuntimeType, "match guard must be Bool, got %s", value.Describe(g))
			}
			if !b.Val {
				continue
			}
		}
		return i.eval(ctx, scope, arm.Body)
	}
	return nil, faultAt(m.Span, diag.NoMatch, "no match arm matched %s", value.Describe(scrutinee))
}

// match tests v against p, binding names into env as it goes. Bindings made
// by a pattern that fails are left in env; callers use a fresh scope per arm.
func (i *Interpreter) match(ctx context.Context, p ast.Pattern, v value.Value, env *value.Env) (bool, error) {
	switch pt := p.(type) {
	case *ast.WildcardPattern:
		return true, nil
	case *ast.IdentPattern:
		env.Define(pt.Name, v)
		return true, nil
	case *ast.LiteralPattern:
		lit, err := i.eval(ctx, env, pt.Value)
		if err != nil {
			return false, err
		}
		return value.Equal(lit, v), nil
	case *ast.VariantPattern:
		return i.matchVariant(ctx, pt, v, env)
	case *ast.RecordPattern:
		return i.matchRecord(ctx, pt, v, env)
	case *ast.TuplePattern:
		t, ok := v.(value.TupleValue)
		if !ok || len(t.Elems) != len(pt.Elems) {
			return false, nil
		}
		return i.matchAll(ctx, pt.Elems, t.Elems, env)
	}
	return false, faultAt(p.GetSpan(), diag.Internal, "unknown pattern %T", p)
}

func (i *Interpreter) matchAll(ctx context.Context, ps []ast.Pattern, vs []value.Value, env *value.Env) (bool, error) {
	for idx, p := range ps {
		ok, err := i.match(ctx, p, vs[idx], env)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// matchVariant handles Some/None/Ok/Err and user variants. A variant
// pattern written without arguments matches whatever the variant carries.
func (i *Interpreter) matchVariant(ctx context.Context, pt *ast.VariantPattern, v value.Value, env *value.Env) (bool, error) {
	var payload []value.Value
	switch pt.Name {
	case "Some", "None":
		o, ok := v.(value.OptionValue)
		if !ok || o.IsSome() != (pt.Name == "Some") {
			return false, nil
		}
		if o.IsSome() {
			payload = []value.Value{o.Val}
		}
	case "Ok", "Err":
		r, ok := v.(value.ResultValue)
		if !ok || r.IsOk != (pt.Name == "Ok") {
			return false, nil
		}
		payload = []value.Value{r.Val}
	default:
		vv, ok := v.(value.VariantValue)
		if !ok || vv.Variant != pt.Name {
			return false, nil
		}
		payload = variantPayload(vv)
	}
	if len(pt.Args) == 0 {
		return true, nil
	}
	if len(pt.Args) != len(payload) {
		return false, nil
	}
	return i.matchAll(ctx, pt.Args, payload, env)
}

// variantPayload lists a variant's fields positionally: the bare payload,
// or record fields sorted by name.
func variantPayload(v value.VariantValue) []value.Value {
	switch p := v.Payload.(type) {
	case nil:
		return nil
	case value.RecordValue:
		names := p.FieldNames()
		out := make([]value.Value, len(names))
		for idx, name := range names {
			out[idx] = p.Fields[name]
		}
		return out
	default:
		return []value.Value{p}
	}
}

func (i *Interpreter) matchRecord(ctx context.Context, pt *ast.RecordPattern, v value.Value, env *value.Env) (bool, error) {
	var fields map[string]value.Value
	switch x := v.(type) {
	case value.RecordValue:
		if pt.TypeName != "" && pt.TypeName != x.Name {
			return false, nil
		}
		fields = x.Fields
	case value.VariantValue:
		rec, ok := x.Payload.(value.RecordValue)
		if !ok || (pt.TypeName != "" && pt.TypeName != x.Variant) {
			return false, nil
		}
		fields = rec.Fields
	default:
		return false, nil
	}
	for _, f := range pt.Fields {
		fv, ok := fields[f.Name]
		if !ok {
			return false, nil
		}
		if f.Pattern == nil {
			env.Define(f.Name, fv)
			continue
		}
		matched, err := i.match(ctx, f.Pattern, fv, env)
		if err != nil || !matched {
			return false, err
		}
	}
	return true, nil
}
