package diag

// Code is a stable diagnostic identifier. The leading letter and first digit
// give the category: E0 syntax, E1 type, E2 effect, E3 contract, E4
// runtime, W0 lint.
type Code string

const (
	Syntax Code = "E0001"

	TypeMismatch      Code = "E1001"
	UnknownIdentifier Code = "E1002"
	NonBoolCondition  Code = "E1003"
	BranchMismatch    Code = "E1004"
	NonExhaustive     Code = "E1005"
	ArityMismatch     Code = "E1006"
	UnknownType       Code = "E1007"
	UnknownField      Code = "E1008"
	InvalidTry        Code = "E1009"
	MissingTraitImpl  Code = "E1010"
	NonBoolContract   Code = "E1011"
	AssignImmutable   Code = "E1012"

	EffectNotDeclared Code = "E2001"
	UnknownEffect     Code = "E2002"

	PreconditionFailed  Code = "E3001"
	PostconditionFailed Code = "E3002"
	InvariantViolated   Code = "E3003"

	Internal          Code = "E4000"
	RuntimeFailure    Code = "E4001"
	DivisionByZero    Code = "E4002"
	UndefinedVariable Code = "E4003"
	UnknownMethod     Code = "E4004"
	NotCallable       Code = "E4005"
	RuntimeType       Code = "E4006"
	RuntimeArity      Code = "E4007"
	IndexOutOfBounds  Code = "E4008"
	CapabilityMissing Code = "E4009"
	CircularImport    Code = "E4010"
	ModuleNotFound    Code = "E4011"
	NoMatch           Code = "E4012"
	UnwrapFailed      Code = "E4013"
	AssertionFailed   Code = "E4014"
	IOFailure         Code = "E4015"
	EscapedControl    Code = "E4016"
	MissingImport     Code = "E4017"
	CallDepthExceeded Code = "E4018"

	UnusedVariable  Code = "W0001"
	ShadowedBinding Code = "W0002"
	UnreachableCode Code = "W0003"
	UnusedImport    Code = "W0004"
	WildcardMatch   Code = "W0005"
)

// Category names the taxonomy a code belongs to.
func (c Code) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	if c[0] == 'W' {
		return "lint"
	}
	switch c[1] {
	case '0':
		return "syntax"
	case '1':
		return "type"
	case '2':
		return "effect"
	case '3':
		return "contract"
	case '4':
		return "runtime"
	}
	return "unknown"
}
