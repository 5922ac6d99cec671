package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Formatter renders expressions and patterns back to compact source text.
// It is used for messages (contract violations, suggested match arms), not
// for reformatting whole files.
type Formatter struct {
	buf bytes.Buffer
}

// Format renders an expression, pattern or type.
func Format(node Node) string {
	f := &Formatter{}
	f.formatNode(node)
	return f.buf.String()
}

func (f *Formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *Formatter) formatNode(node Node) {
	switch n := node.(type) {
	case Expr:
		f.formatExpr(n)
	case Pattern:
		f.formatPattern(n)
	case TypeExpr:
		f.write(n.String())
	case Stmt:
		f.formatStmt(n)
	default:
		fmt.Fprintf(&f.buf, "<%T>", node)
	}
}

func (f *Formatter) formatList(exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			f.write(", ")
		}
		f.formatExpr(e)
	}
}

func (f *Formatter) formatExpr(expr Expr) {
	switch e := expr.(type) {
	case nil:
		f.write("()")
	case *UnitLit:
		f.write("()")
	case *IntLit:
		f.write(strconv.FormatInt(e.Value, 10))
	case *FloatLit:
		s := strconv.FormatFloat(e.Value, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		f.write(s)
	case *BoolLit:
		f.write(strconv.FormatBool(e.Value))
	case *TextLit:
		f.write(strconv.Quote(e.Value))
	case *Ident:
		f.write(e.Name)
	case *QualifiedIdent:
		f.write(strings.Join(e.Path, "."))
	case *ListLit:
		f.write("[")
		f.formatList(e.Elems)
		f.write("]")
	case *TupleLit:
		f.write("(")
		f.formatList(e.Elems)
		if len(e.Elems) == 1 {
			f.write(",")
		}
		f.write(")")
	case *SetLit:
		f.write("#{")
		f.formatList(e.Elems)
		f.write("}")
	case *MapLit:
		f.write("{")
		for i, entry := range e.Entries {
			if i > 0 {
				f.write(", ")
			}
			f.formatExpr(entry.Key)
			f.write(": ")
			f.formatExpr(entry.Value)
		}
		f.write("}")
	case *RecordLit:
		if e.TypeName != "" {
			f.write(e.TypeName + " ")
		}
		f.write("{ ")
		for i, field := range e.Fields {
			if i > 0 {
				f.write(", ")
			}
			f.write(field.Name + ": ")
			f.formatExpr(field.Value)
		}
		f.write(" }")
	case *Binary:
		f.formatOperand(e.Left)
		f.write(" " + e.Op + " ")
		f.formatOperand(e.Right)
	case *Unary:
		f.write(e.Op)
		f.formatOperand(e.Operand)
	case *Call:
		f.formatExpr(e.Callee)
		f.write("(")
		f.formatList(e.Args)
		f.write(")")
	case *MethodCall:
		f.formatOperand(e.Receiver)
		f.write("." + e.Method + "(")
		f.formatList(e.Args)
		f.write(")")
	case *FieldAccess:
		f.formatOperand(e.Target)
		f.write("." + e.Field)
	case *Index:
		f.formatOperand(e.Target)
		f.write("[")
		f.formatExpr(e.Index)
		f.write("]")
	case *If:
		f.write("if ")
		f.formatExpr(e.Cond)
		f.write(" ")
		f.formatBlock(e.Then)
		if e.Else != nil {
			f.write(" else ")
			f.formatExpr(e.Else)
		}
	case *Match:
		f.write("match ")
		f.formatExpr(e.Scrutinee)
		f.write(" { ")
		for i, arm := range e.Arms {
			if i > 0 {
				f.write(", ")
			}
			f.formatPattern(arm.Pattern)
			if arm.Guard != nil {
				f.write(" if ")
				f.formatExpr(arm.Guard)
			}
			f.write(" => ")
			f.formatExpr(arm.Body)
		}
		f.write(" }")
	case *Lambda:
		f.write("|")
		for i, p := range e.Params {
			if i > 0 {
				f.write(", ")
			}
			f.write(p.Name)
		}
		f.write("| ")
		f.formatExpr(e.Body)
	case *BlockExpr:
		f.formatBlock(e.Block)
	case *Try:
		f.formatOperand(e.Expr)
		f.write("?")
	case *Await:
		f.write("await ")
		f.formatOperand(e.Expr)
	case *Range:
		f.formatOperand(e.Start)
		if e.Inclusive {
			f.write("..=")
		} else {
			f.write("..")
		}
		f.formatOperand(e.End)
	case *Handle:
		f.write("handle " + e.Effect + " with ")
		f.formatExpr(e.Handler)
		f.write(" ")
		f.formatBlock(e.Body)
	default:
		fmt.Fprintf(&f.buf, "<%T>", expr)
	}
}

// formatOperand parenthesizes compound operands so precedence survives.
func (f *Formatter) formatOperand(expr Expr) {
	switch expr.(type) {
	case *Binary, *Lambda, *If, *Match, *Range:
		f.write("(")
		f.formatExpr(expr)
		f.write(")")
	default:
		f.formatExpr(expr)
	}
}

func (f *Formatter) formatBlock(b *Block) {
	if b == nil {
		f.write("{}")
		return
	}
	f.write("{ ")
	for _, stmt := range b.Stmts {
		f.formatStmt(stmt)
		f.write("; ")
	}
	if b.Tail != nil {
		f.formatExpr(b.Tail)
		f.write(" ")
	}
	f.write("}")
}

func (f *Formatter) formatStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *LetStmt:
		f.write("let ")
		if s.Mutable {
			f.write("mut ")
		}
		f.write(s.Name)
		if s.Type != nil {
			f.write(": " + s.Type.String())
		}
		f.write(" = ")
		f.formatExpr(s.Value)
	case *AssignStmt:
		f.write(s.Name + " = ")
		f.formatExpr(s.Value)
	case *ExprStmt:
		f.formatExpr(s.Expr)
	case *ReturnStmt:
		f.write("return")
		if s.Value != nil {
			f.write(" ")
			f.formatExpr(s.Value)
		}
	case *BreakStmt:
		f.write("break")
	case *ContinueStmt:
		f.write("continue")
	case *ForStmt:
		f.write("for " + s.Var + " in ")
		f.formatExpr(s.Iter)
		f.write(" ")
		f.formatBlock(s.Body)
	case *WhileStmt:
		f.write("while ")
		f.formatExpr(s.Cond)
		f.write(" ")
		f.formatBlock(s.Body)
	default:
		fmt.Fprintf(&f.buf, "<%T>", stmt)
	}
}

func (f *Formatter) formatPattern(p Pattern) {
	switch pt := p.(type) {
	case *WildcardPattern:
		f.write("_")
	case *IdentPattern:
		f.write(pt.Name)
	case *LiteralPattern:
		f.formatExpr(pt.Value)
	case *VariantPattern:
		f.write(pt.Name)
		if len(pt.Args) > 0 {
			f.write("(")
			for i, arg := range pt.Args {
				if i > 0 {
					f.write(", ")
				}
				f.formatPattern(arg)
			}
			f.write(")")
		}
	case *RecordPattern:
		if pt.TypeName != "" {
			f.write(pt.TypeName + " ")
		}
		f.write("{ ")
		for i, field := range pt.Fields {
			if i > 0 {
				f.write(", ")
			}
			f.write(field.Name)
			if field.Pattern != nil {
				f.write(": ")
				f.formatPattern(field.Pattern)
			}
		}
		f.write(" }")
	case *TuplePattern:
		f.write("(")
		for i, elem := range pt.Elems {
			if i > 0 {
				f.write(", ")
			}
			f.formatPattern(elem)
		}
		f.write(")")
	default:
		fmt.Fprintf(&f.buf, "<%T>", p)
	}
}
