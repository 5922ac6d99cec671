package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
)

// variantFieldOrder is the order positional variant patterns bind fields
// in: the single payload, or named fields sorted by name.
func variantFieldOrder(v ast.Variant) []ast.Field {
	if v.IsTupleLike() {
		return v.Fields
	}
	fields := append([]ast.Field(nil), v.Fields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

func (c *Checker) inferMatch(m *ast.Match) Type {
	scrutinee := c.infer(m.Scrutinee)

	result := Unknown
	for _, arm := range m.Arms {
		c.openScope()
		c.bindPattern(arm.Pattern, scrutinee)
		if arm.Guard != nil {
			if g := c.infer(arm.Guard); !Compatible(Bool, g) {
				c.errorf(diag.NonBoolCondition, arm.Guard.GetSpan(), "match guard must be Bool, found %s", g)
			}
		}
		body := c.infer(arm.Body)
		c.closeScope()

		if !Compatible(result, body) {
			c.errorf(diag.BranchMismatch, arm.Body.GetSpan(), "match arms have incompatible types %s and %s", result, body)
			continue
		}
		result = known(result, body)
	}

	c.checkExhaustive(m, scrutinee)
	return result
}

// bindPattern checks p against the scrutinee type t and binds its names in
// the current scope.
func (c *Checker) bindPattern(p ast.Pattern, t Type) {
	switch pt := p.(type) {
	case *ast.WildcardPattern:
	case *ast.IdentPattern:
		c.define(&Binding{Name: pt.Name, Type: t, Span: pt.Span, Kind: bindPattern})
	case *ast.LiteralPattern:
		lit := c.infer(pt.Value)
		if !Compatible(t, lit) && !(isNumeric(t) && isNumeric(lit)) {
			c.errorf(diag.TypeMismatch, pt.Span, "pattern of type %s cannot match %s", lit, t)
		}
	case *ast.VariantPattern:
		c.bindVariantPattern(pt, t)
	case *ast.RecordPattern:
		c.bindRecordPattern(pt, t)
	case *ast.TuplePattern:
		var elems []Type
		switch x := t.(type) {
		case *TupleType:
			if len(x.Elems) != len(pt.Elems) {
				c.errorf(diag.TypeMismatch, pt.Span, "tuple pattern has %d elements but %s has %d",
					len(pt.Elems), t, len(x.Elems))
			}
			elems = x.Elems
		case UnknownType:
		default:
			c.errorf(diag.TypeMismatch, pt.Span, "tuple pattern cannot match %s", t)
		}
		for i, el := range pt.Elems {
			et := Unknown
			if i < len(elems) {
				et = elems[i]
			}
			c.bindPattern(el, et)
		}
	}
}

func (c *Checker) bindVariantPattern(pt *ast.VariantPattern, t Type) {
	var payload []Type
	switch pt.Name {
	case "Some":
		c.expectCon(pt, t, "Option")
		payload = []Type{arg(t, 0)}
	case "None":
		c.expectCon(pt, t, "Option")
	case "Ok":
		c.expectCon(pt, t, "Result")
		payload = []Type{arg(t, 0)}
	case "Err":
		c.expectCon(pt, t, "Result")
		payload = []Type{arg(t, 1)}
	default:
		enum, ok := c.env.Variants[pt.Name]
		if !ok {
			c.errorf(diag.UnknownIdentifier, pt.Span, "unknown variant `%s`", pt.Name)
			for _, a := range pt.Args {
				c.bindPattern(a, Unknown)
			}
			return
		}
		c.expectCon(pt, t, enum.Name)
		v, _ := enum.Variant(pt.Name)
		c.withTypeParams(enum.Params, func() {
			for _, f := range variantFieldOrder(v) {
				payload = append(payload, c.resolveQuiet(f.Type, true))
			}
		})
	}

	if len(pt.Args) != len(payload) && len(pt.Args) > 0 {
		c.errorf(diag.ArityMismatch, pt.Span, "variant `%s` has %d field%s, pattern has %d",
			pt.Name, len(payload), plural(len(payload)), len(pt.Args))
	}
	for i, a := range pt.Args {
		at := Unknown
		if i < len(payload) {
			at = payload[i]
		}
		c.bindPattern(a, at)
	}
}

func (c *Checker) expectCon(pt *ast.VariantPattern, t Type, name string) {
	if IsUnknown(t) {
		return
	}
	if _, ok := conNamed(t, name); !ok {
		c.errorf(diag.TypeMismatch, pt.Span, "pattern `%s` cannot match %s", pt.Name, t)
	}
}

func (c *Checker) bindRecordPattern(pt *ast.RecordPattern, t Type) {
	var fields map[string]Type
	name := pt.TypeName
	if name == "" {
		switch x := t.(type) {
		case *RecordType:
			fields = x.Fields
		case *Con:
			if rec, ok := c.env.Records[x.Name]; ok {
				fields = c.declaredFields(rec.Params, rec.Fields)
				name = rec.Name
			}
		}
	} else if rec, ok := c.env.Records[name]; ok {
		fields = c.declaredFields(rec.Params, rec.Fields)
		c.expectNamed(pt, t, name)
	} else if enum, ok := c.env.Variants[name]; ok {
		v, _ := enum.Variant(name)
		fields = c.declaredFields(enum.Params, v.Fields)
		c.expectNamed(pt, t, enum.Name)
	} else {
		c.errorf(diag.UnknownType, pt.Span, "unknown record type `%s`", name)
	}

	for _, f := range pt.Fields {
		ft, ok := fields[f.Name]
		if !ok {
			if fields != nil {
				c.errorf(diag.UnknownField, pt.Span, "`%s` has no field `%s`", orType(name, t), f.Name)
			}
			ft = Unknown
		}
		sub := f.Pattern
		if sub == nil {
			sub = &ast.IdentPattern{Span: pt.Span, Name: f.Name}
		}
		c.bindPattern(sub, ft)
	}
}

func (c *Checker) expectNamed(pt *ast.RecordPattern, t Type, name string) {
	if !Compatible(t, &Con{Name: name}) {
		c.errorf(diag.TypeMismatch, pt.Span, "pattern `%s` cannot match %s", pt.TypeName, t)
	}
}

func orType(name string, t Type) string {
	if name != "" {
		return name
	}
	return t.String()
}

func (c *Checker) declaredFields(params []string, fields []ast.Field) map[string]Type {
	out := map[string]Type{}
	c.withTypeParams(params, func() {
		for _, f := range fields {
			out[f.Name] = c.resolveQuiet(f.Type, true)
		}
	})
	return out
}

type matchKind int

const (
	kindOther matchKind = iota
	kindOption
	kindResult
	kindBool
	kindEnum
)

// cases lists what a match must cover, in the order missing arms are
// suggested.
type cases struct {
	kind  matchKind
	name  string
	names []string
	stubs map[string]string
}

func (c *Checker) classify(scrutinee Type, arms []ast.MatchArm) cases {
	if con, ok := scrutinee.(*Con); ok {
		switch {
		case con.Name == "Option":
			return optionCases()
		case con.Name == "Result":
			return resultCases()
		case sameCon(con, Bool):
			return boolCases()
		}
		if enum, ok := c.env.Enums[con.Name]; ok {
			return enumCases(enum)
		}
		return cases{kind: kindOther, name: scrutinee.String()}
	}
	if !IsUnknown(scrutinee) {
		return cases{kind: kindOther, name: scrutinee.String()}
	}

	for _, arm := range arms {
		switch pt := arm.Pattern.(type) {
		case *ast.VariantPattern:
			switch pt.Name {
			case "Some", "None":
				return optionCases()
			case "Ok", "Err":
				return resultCases()
			}
			if enum, ok := c.env.Variants[pt.Name]; ok {
				return enumCases(enum)
			}
		case *ast.LiteralPattern:
			if _, ok := pt.Value.(*ast.BoolLit); ok {
				return boolCases()
			}
		}
	}
	return cases{kind: kindOther, name: scrutinee.String()}
}

func optionCases() cases {
	return cases{kind: kindOption, name: "Option", names: []string{"Some", "None"},
		stubs: map[string]string{"Some": "Some(_)", "None": "None"}}
}

func resultCases() cases {
	return cases{kind: kindResult, name: "Result", names: []string{"Ok", "Err"},
		stubs: map[string]string{"Ok": "Ok(_)", "Err": "Err(_)"}}
}

func boolCases() cases {
	return cases{kind: kindBool, name: "Bool", names: []string{"true", "false"},
		stubs: map[string]string{"true": "true", "false": "false"}}
}

func enumCases(enum *ast.EnumDecl) cases {
	cs := cases{kind: kindEnum, name: enum.Name, stubs: map[string]string{}}
	for _, v := range enum.Variants {
		cs.names = append(cs.names, v.Name)
		stub := v.Name
		if n := len(v.Fields); n > 0 {
			stub += "(" + strings.TrimSuffix(strings.Repeat("_, ", n), ", ") + ")"
		}
		cs.stubs[v.Name] = stub
	}
	return cs
}

// checkExhaustive reports matches that can fall through every arm.
func (c *Checker) checkExhaustive(m *ast.Match, scrutinee Type) {
	cs := c.classify(scrutinee, m.Arms)

	covered := map[string]bool{}
	catchAll := false
	for _, arm := range m.Arms {
		if arm.Guard != nil {
			continue
		}
		switch pt := arm.Pattern.(type) {
		case *ast.WildcardPattern, *ast.IdentPattern:
			catchAll = true
		case *ast.VariantPattern:
			full := true
			for _, a := range pt.Args {
				if !ast.IsCatchAll(a) {
					full = false
				}
			}
			if full {
				covered[pt.Name] = true
			}
		case *ast.RecordPattern:
			if pt.TypeName != "" && allCatchAll(pt) {
				covered[pt.TypeName] = true
			}
		case *ast.LiteralPattern:
			if b, ok := pt.Value.(*ast.BoolLit); ok {
				covered[fmt.Sprint(b.Value)] = true
			}
		}
	}

	var missing []string
	for _, name := range cs.names {
		if !covered[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return
	}
	if catchAll {
		if cs.kind != kindOther {
			c.warnf(diag.WildcardMatch, m.Span, "catch-all arm hides unhandled %s cases: %s",
				cs.name, strings.Join(missing, ", "))
		}
		return
	}

	stubs := make([]string, len(missing))
	for i, name := range missing {
		stub, ok := cs.stubs[name]
		if !ok {
			stub = name
		}
		stubs[i] = stub
	}
	d := diag.NewError(diag.NonExhaustive, m.Span, "non-exhaustive match on %s: missing %s",
		cs.name, strings.Join(stubs, ", "))
	var arms strings.Builder
	for _, stub := range stubs {
		arms.WriteString("\n" + stub + ` => fail("unhandled"),`)
	}
	c.push(d.WithSuggestion("add the missing arms", diag.Edit{Span: matchEnd(m), Replacement: arms.String()}))
}

func allCatchAll(pt *ast.RecordPattern) bool {
	for _, f := range pt.Fields {
		if f.Pattern != nil && !ast.IsCatchAll(f.Pattern) {
			return false
		}
	}
	return true
}

// matchEnd is an empty span just after the last arm, where new arms go.
func matchEnd(m *ast.Match) ast.Span {
	end := m.Span
	if n := len(m.Arms); n > 0 {
		end = m.Arms[n-1].Span
	}
	return ast.Span{File: end.File, Line: end.Line, Column: end.Column, Start: end.End, End: end.End}
}
