package effects

import (
	"github.com/vito/warden/pkg/ast"
)

// Op describes a built-in effect operation.
type Op struct {
	Effect string
	Name   string
	Params []ast.TypeExpr
	Return ast.TypeExpr
	Doc    string
}

func op(effect, name, sig, doc string) Op {
	fn := ast.MustParseType(sig).(*ast.FnType)
	ret := fn.Return
	if ret == nil {
		ret = ast.Named("Unit")
	}
	return Op{Effect: effect, Name: name, Params: fn.Params, Return: ret, Doc: doc}
}

var catalog = map[string][]Op{
	Console: {
		op(Console, "print", "fn(Text) -> Unit", "Writes text without a trailing newline."),
		op(Console, "println", "fn(Text) -> Unit", "Writes text followed by a newline."),
		op(Console, "read_line", "fn() -> Option[Text]", "Reads one line, or None at end of input."),
	},
	Fs: {
		op(Fs, "read", "fn(Text) -> Result[Text, Text]", "Reads a whole file."),
		op(Fs, "write", "fn(Text, Text) -> Result[Unit, Text]", "Replaces a file's contents."),
		op(Fs, "exists", "fn(Text) -> Bool", "Reports whether a path exists."),
	},
	Net: {
		op(Net, "get", "fn(Text) -> Result[Text, Text]", "Fetches a URL and returns the response body."),
		op(Net, "serve", "fn(Int, Any) -> Unit", "Serves HTTP on a port forever, one request at a time."),
	},
	Clock: {
		op(Clock, "now", "fn() -> Int", "Milliseconds since the Unix epoch."),
		op(Clock, "sleep", "fn(Int) -> Unit", "Pauses for a number of milliseconds."),
		op(Clock, "today", "fn() -> Text", "The current date as YYYY-MM-DD (UTC)."),
	},
	Rand: {
		op(Rand, "int", "fn(Int, Int) -> Int", "A uniform integer in the inclusive range."),
		op(Rand, "bool", "fn() -> Bool", "A uniform boolean."),
		op(Rand, "float", "fn() -> Float", "A uniform float in [0, 1)."),
		op(Rand, "uuid", "fn() -> Text", "A version 4 UUID drawn from the generator."),
	},
	Env: {
		op(Env, "get", "fn(Text) -> Option[Text]", "Looks up an environment variable."),
		op(Env, "args", "fn() -> List[Text]", "The program arguments."),
	},
}

// Lookup finds a built-in operation.
func Lookup(effect, name string) (Op, bool) {
	for _, o := range catalog[effect] {
		if o.Name == name {
			return o, true
		}
	}
	return Op{}, false
}

// Ops lists an effect's operations in declaration order.
func Ops(effect string) []Op {
	return catalog[effect]
}
