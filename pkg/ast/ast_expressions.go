package ast

// Block is a sequence of statements with an optional trailing expression
// that gives the block its value.
type Block struct {
	Span
	Stmts []Stmt
	Tail  Expr
}

type LetStmt struct {
	Span
	Name    string
	Mutable bool
	Type    TypeExpr
	Value   Expr
}

// AssignStmt rebinds an existing variable.
type AssignStmt struct {
	Span
	Name  string
	Value Expr
}

type ExprStmt struct {
	Span
	Expr Expr
}

type ReturnStmt struct {
	Span
	Value Expr
}

type BreakStmt struct {
	Span
}

type ContinueStmt struct {
	Span
}

type ForStmt struct {
	Span
	Var  string
	Iter Expr
	Body *Block
}

type WhileStmt struct {
	Span
	Cond Expr
	Body *Block
}

func (*LetStmt) isStmt()      {}
func (*AssignStmt) isStmt()   {}
func (*ExprStmt) isStmt()     {}
func (*ReturnStmt) isStmt()   {}
func (*BreakStmt) isStmt()    {}
func (*ContinueStmt) isStmt() {}
func (*ForStmt) isStmt()      {}
func (*WhileStmt) isStmt()    {}

type UnitLit struct {
	Span
}

type IntLit struct {
	Span
	Value int64
}

type FloatLit struct {
	Span
	Value float64
}

type BoolLit struct {
	Span
	Value bool
}

type TextLit struct {
	Span
	Value string
}

type Ident struct {
	Span
	Name string
}

// QualifiedIdent is a dotted name such as `Color.Red` or `Clock.now`.
type QualifiedIdent struct {
	Span
	Path []string
}

func (q *QualifiedIdent) Head() string {
	if len(q.Path) == 0 {
		return ""
	}
	return q.Path[0]
}

type ListLit struct {
	Span
	Elems []Expr
}

type TupleLit struct {
	Span
	Elems []Expr
}

type MapEntry struct {
	Key   Expr
	Value Expr
}

type MapLit struct {
	Span
	Entries []MapEntry
}

type SetLit struct {
	Span
	Elems []Expr
}

type FieldInit struct {
	Span
	Name  string
	Value Expr
}

// RecordLit builds a record. TypeName is empty for anonymous records.
type RecordLit struct {
	Span
	TypeName string
	Fields   []FieldInit
}

type Binary struct {
	Span
	Op    string
	Left  Expr
	Right Expr
}

type Unary struct {
	Span
	Op      string
	Operand Expr
}

type Call struct {
	Span
	Callee Expr
	Args   []Expr
}

type MethodCall struct {
	Span
	Receiver Expr
	Method   string
	Args     []Expr
}

// ReceiverName returns the identifier the method is called on, if the
// receiver is a bare identifier.
func (m *MethodCall) ReceiverName() (string, bool) {
	id, ok := m.Receiver.(*Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

type FieldAccess struct {
	Span
	Target Expr
	Field  string
}

type Index struct {
	Span
	Target Expr
	Index  Expr
}

// If has an optional Else which is either a *BlockExpr or another *If.
type If struct {
	Span
	Cond Expr
	Then *Block
	Else Expr
}

type MatchArm struct {
	Span
	Pattern Pattern
	Guard   Expr
	Body    Expr
}

type Match struct {
	Span
	Scrutinee Expr
	Arms      []MatchArm
}

type Lambda struct {
	Span
	Params []Param
	Return TypeExpr
	Body   Expr
}

type BlockExpr struct {
	Span
	Block *Block
}

// Try is the postfix `?` operator.
type Try struct {
	Span
	Expr Expr
}

type Await struct {
	Span
	Expr Expr
}

// Range is `start..end` (or `start..=end` when Inclusive).
type Range struct {
	Span
	Start     Expr
	End       Expr
	Inclusive bool
}

// Handle installs Handler for the user-defined Effect while Body runs.
type Handle struct {
	Span
	Effect  string
	Handler Expr
	Body    *Block
}

func (*UnitLit) isExpr()        {}
func (*IntLit) isExpr()         {}
func (*FloatLit) isExpr()       {}
func (*BoolLit) isExpr()        {}
func (*TextLit) isExpr()        {}
func (*Ident) isExpr()          {}
func (*QualifiedIdent) isExpr() {}
func (*ListLit) isExpr()        {}
func (*TupleLit) isExpr()       {}
func (*MapLit) isExpr()         {}
func (*SetLit) isExpr()         {}
func (*RecordLit) isExpr()      {}
func (*Binary) isExpr()         {}
func (*Unary) isExpr()          {}
func (*Call) isExpr()           {}
func (*MethodCall) isExpr()     {}
func (*FieldAccess) isExpr()    {}
func (*Index) isExpr()          {}
func (*If) isExpr()             {}
func (*Match) isExpr()          {}
func (*Lambda) isExpr()         {}
func (*BlockExpr) isExpr()      {}
func (*Try) isExpr()            {}
func (*Await) isExpr()          {}
func (*Range) isExpr()          {}
func (*Handle) isExpr()         {}
