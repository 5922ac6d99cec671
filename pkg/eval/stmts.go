package eval

import (
	"context"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

// execBlock runs a block in env, which the caller has already scoped.
func (i *Interpreter) execBlock(ctx context.Context, env *value.Env, block *ast.Block) (value.Value, error) {
	if block == nil {
		return value.Unit, nil
	}
	for _, stmt := range block.Stmts {
		if err := i.exec(ctx, env, stmt); err != nil {
			return nil, err
		}
	}
	if block.Tail == nil {
		return value.Unit, nil
	}
	return i.eval(ctx, env, block.Tail)
}

func (i *Interpreter) exec(ctx context.Context, env *value.Env, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		v, err := i.eval(ctx, env, s.Value)
		if err != nil {
			return err
		}
		if err := i.checkAnnotation(ctx, s.Type, v); err != nil {
			return err
		}
		env.Define(s.Name, v)
	case *ast.AssignStmt:
		v, err := i.eval(ctx, env, s.Value)
		if err != nil {
			return err
		}
		if err := env.Update(s.Name, v); err != nil {
			return faultAt(s.Span, diag.UndefinedVariable, "%s", err)
		}
	case *ast.ExprStmt:
		_, err := i.eval(ctx, env, s.Expr)
		return err
	case *ast.ReturnStmt:
		v, err := i.eval(ctx, env, s.Value)
		if err != nil {
			return err
		}
		return &Signal{Kind: SignalReturn, Value: v, Span: s.Span}
	case *ast.BreakStmt:
		return &Signal{Kind: SignalBreak, Span: s.Span}
	case *ast.ContinueStmt:
		return &Signal{Kind: SignalContinue, Span: s.Span}
	case *ast.ForStmt:
		return i.execFor(ctx, env, s)
	case *ast.WhileStmt:
		return i.execWhile(ctx, env, s)
	default:
		return faultAt(stmt.GetSpan(), diag.Internal, "cannot execute %T", stmt)
	}
	return nil
}

// checkAnnotation enforces alias invariants on annotated lets, so
// `let a: Age = -1` fails like `Age(-1)` would.
func (i *Interpreter) checkAnnotation(ctx context.Context, t ast.TypeExpr, v value.Value) error {
	named, ok := t.(*ast.NamedType)
	if !ok {
		return nil
	}
	if d, ok := i.types.aliases[named.Name]; ok {
		return i.checkInvariant(ctx, d, v)
	}
	return nil
}

// loopStep decides what a loop does with the error from one iteration:
// stop quietly, carry on, or propagate.
func loopStep(err error) (stop bool, out error) {
	if err == nil {
		return false, nil
	}
	sig := classify(err)
	switch sig.Kind {
	case SignalBreak:
		return true, nil
	case SignalContinue:
		return false, nil
	}
	return true, err
}

func (i *Interpreter) execFor(ctx context.Context, env *value.Env, s *ast.ForStmt) error {
	iter, err := i.eval(ctx, env, s.Iter)
	if err != nil {
		return err
	}
	elems, err := iterate(iter, s.Iter.GetSpan())
	if err != nil {
		return err
	}
	for _, elem := range elems {
		if err := ctx.Err(); err != nil {
			return faultAt(s.Span, diag.RuntimeFailure, "evaluation cancelled: %v", err)
		}
		scope := env.Child()
		scope.Define(s.Var, elem)
		_, err := i.execBlock(ctx, scope, s.Body)
		if stop, out := loopStep(err); stop {
			return out
		}
	}
	return nil
}

// iterate lists the elements a for loop visits. Maps yield (key, value)
// tuples in key order and text yields one-character strings.
func iterate(v value.Value, span ast.Span) ([]value.Value, error) {
	switch t := v.(type) {
	case value.ListValue:
		return t.Elems, nil
	case value.SetValue:
		return t.Elems, nil
	case value.MapValue:
		elems := make([]value.Value, len(t.Entries))
		for idx, e := range t.Entries {
			elems[idx] = value.TupleValue{Elems: []value.Value{e.Key, e.Value}}
		}
		return elems, nil
	case value.TextValue:
		var elems []value.Value
		for _, r := range t.Val {
			elems = append(elems, value.Text(string(r)))
		}
		return elems, nil
	}
	return nil, faultAt(span, diag.RuntimeType, "cannot iterate over %s", value.Describe(v))
}

func (i *Interpreter) execWhile(ctx context.Context, env *value.Env, s *ast.WhileStmt) error {
	for {
		if err := ctx.Err(); err != nil {
			return faultAt(s.Span, diag.RuntimeFailure, "evaluation cancelled: %v", err)
		}
		cond, err := i.eval(ctx, env, s.Cond)
		if err != nil {
			return err
		}
		b, ok := cond.(value.BoolValue)
		if !ok {
			return faultAt(s.Cond.GetSpan(), diag.RuntimeType, "while condition must be Bool, got %s", value.Describe(cond))
		}
		if !b.Val {
			return nil
		}
		_, err = i.execBlock(ctx, env.Child(), s.Body)
		if stop, out := loopStep(err); stop {
			return out
		}
	}
}
