package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	ident := func(name string) Expr { return &Ident{Name: name} }
	for _, tc := range []struct {
		name     string
		node     Node
		expected string
	}{
		{"precondition", &Binary{Op: "!=", Left: ident("b"), Right: &IntLit{Value: 0}}, "b != 0"},
		{"nested operand", &Binary{Op: "*", Left: &Binary{Op: "+", Left: ident("a"), Right: ident("b")}, Right: ident("c")}, "(a + b) * c"},
		{"float keeps point", &FloatLit{Value: 2}, "2.0"},
		{"text quoted", &TextLit{Value: "hi\n"}, `"hi\n"`},
		{"method call", &MethodCall{Receiver: ident("xs"), Method: "map", Args: []Expr{
			&Lambda{Params: []Param{{Name: "x"}}, Body: &Binary{Op: "*", Left: ident("x"), Right: &IntLit{Value: 2}}},
		}}, "xs.map(|x| x * 2)"},
		{"record", &RecordLit{TypeName: "Point", Fields: []FieldInit{{Name: "x", Value: &IntLit{Value: 1}}}}, "Point { x: 1 }"},
		{"singleton tuple", &TupleLit{Elems: []Expr{ident("a")}}, "(a,)"},
		{"try", &Try{Expr: &Call{Callee: ident("parse"), Args: []Expr{ident("s")}}}, "parse(s)?"},
		{"stub arm pattern", &VariantPattern{Name: "Some", Args: []Pattern{&WildcardPattern{}}}, "Some(_)"},
		{"record pattern", &RecordPattern{TypeName: "P", Fields: []FieldPattern{{Name: "x", Pattern: &IdentPattern{Name: "a"}}}}, "P { x: a }"},
		{"type", MustParseType("Option[Int]"), "Option[Int]"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Format(tc.node))
		})
	}
}
