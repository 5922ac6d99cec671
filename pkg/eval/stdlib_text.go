package eval

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/iancoleman/strcase"

	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

var patterns sync.Map

// compilePattern compiles and caches a regular expression.
func compilePattern(src string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(src); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fault(diag.RuntimeFailure, "invalid pattern %q: %v", src, err)
	}
	patterns.Store(src, re)
	return re, nil
}

// textMethod registers a method from Text to Text.
func textMethod(name, doc string, fn func(string) string) {
	Method("Text", name).
		Doc(doc).
		Returns("Text").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return value.Text(fn(self.(value.TextValue).Val)), nil
		})
}

// textPredicate registers a method from Text and a Text argument to Bool.
func textPredicate(name, doc string, fn func(s, arg string) bool) {
	Method("Text", name).
		Doc(doc).
		Params("other", "Text").
		Returns("Bool").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.Text("other")
			if err != nil {
				return nil, err
			}
			return value.Bool(fn(self.(value.TextValue).Val, other)), nil
		})
}

func registerTextMethods() {
	Method("Any", "to_text").
		Doc("renders the value as text").
		Returns("Text").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return value.Text(self.String()), nil
		})

	Method("Text", "len").
		Doc("the number of characters").
		Returns("Int").
		Alias("length").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return value.Int(int64(utf8.RuneCountInString(self.(value.TextValue).Val))), nil
		})

	Method("Text", "is_empty").
		Returns("Bool").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return value.Bool(self.(value.TextValue).Val == ""), nil
		})

	textMethod("upper", "converts to uppercase", strings.ToUpper)
	textMethod("lower", "converts to lowercase", strings.ToLower)
	textMethod("trim", "removes surrounding whitespace", strings.TrimSpace)
	textMethod("trim_start", "removes leading whitespace", func(s string) string {
		return strings.TrimLeft(s, " \t\r\n")
	})
	textMethod("trim_end", "removes trailing whitespace", func(s string) string {
		return strings.TrimRight(s, " \t\r\n")
	})
	textMethod("to_snake", "converts to snake_case", strcase.ToSnake)
	textMethod("to_camel", "converts to camelCase", strcase.ToLowerCamel)
	textMethod("to_kebab", "converts to kebab-case", strcase.ToKebab)
	textMethod("to_pascal", "converts to PascalCase", strcase.ToCamel)
	textMethod("to_screaming_snake", "converts to SCREAMING_SNAKE_CASE", strcase.ToScreamingSnake)

	textPredicate("contains", "reports whether the text contains a substring", strings.Contains)
	textPredicate("starts_with", "reports whether the text has a prefix", strings.HasPrefix)
	textPredicate("ends_with", "reports whether the text has a suffix", strings.HasSuffix)

	Method("Text", "matches").
		Doc("reports whether the text matches a regular expression").
		Params("pattern", "Text").
		Returns("Bool").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			re, err := patternArg(args)
			if err != nil {
				return nil, err
			}
			return value.Bool(re.MatchString(self.(value.TextValue).Val)), nil
		})

	Method("Text", "find_all").
		Doc("every match of a regular expression").
		Params("pattern", "Text").
		Returns("List[Text]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			re, err := patternArg(args)
			if err != nil {
				return nil, err
			}
			return ToValue(re.FindAllString(self.(value.TextValue).Val, -1))
		})

	Method("Text", "replace_all").
		Doc("replaces every match of a regular expression; $1 refers to groups").
		Params("pattern", "Text", "replacement", "Text").
		Returns("Text").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			re, err := patternArg(args)
			if err != nil {
				return nil, err
			}
			repl, err := args.Text("replacement")
			if err != nil {
				return nil, err
			}
			return value.Text(re.ReplaceAllString(self.(value.TextValue).Val, repl)), nil
		})

	Method("Text", "replace").
		Doc("replaces every occurrence of a substring").
		Params("old", "Text", "new", "Text").
		Returns("Text").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			old, err := args.Text("old")
			if err != nil {
				return nil, err
			}
			repl, err := args.Text("new")
			if err != nil {
				return nil, err
			}
			return value.Text(strings.ReplaceAll(self.(value.TextValue).Val, old, repl)), nil
		})

	Method("Text", "split").
		Doc("splits by a separator; an empty separator splits into characters").
		Params("separator", "Text").
		Returns("List[Text]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			sep, err := args.Text("separator")
			if err != nil {
				return nil, err
			}
			return ToValue(strings.Split(self.(value.TextValue).Val, sep))
		})

	Method("Text", "lines").
		Doc("splits into lines").
		Returns("List[Text]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			s := strings.TrimSuffix(self.(value.TextValue).Val, "\n")
			if s == "" {
				return value.ListValue{}, nil
			}
			lines := strings.Split(s, "\n")
			for i, l := range lines {
				lines[i] = strings.TrimSuffix(l, "\r")
			}
			return ToValue(lines)
		})

	Method("Text", "chars").
		Doc("splits into characters").
		Returns("List[Text]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return ToValue(strings.Split(self.(value.TextValue).Val, ""))
		})

	Method("Text", "slice").
		Doc("the characters from start up to but excluding end").
		Params("start", "Int", "end", "Int").
		Returns("Text").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			runes := []rune(self.(value.TextValue).Val)
			lo, hi, err := bounds(args, len(runes))
			if err != nil {
				return nil, err
			}
			return value.Text(string(runes[lo:hi])), nil
		})

	Method("Text", "index_of").
		Doc("the character offset of the first occurrence of a substring").
		Params("other", "Text").
		Returns("Option[Int]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.Text("other")
			if err != nil {
				return nil, err
			}
			s := self.(value.TextValue).Val
			idx := strings.Index(s, other)
			if idx < 0 {
				return value.None(), nil
			}
			return value.Some(value.Int(int64(utf8.RuneCountInString(s[:idx])))), nil
		})

	Method("Text", "repeat").
		Params("count", "Int").
		Returns("Text").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			n, err := args.Int("count")
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, fault(diag.RuntimeFailure, "repeat count must not be negative, got %d", n)
			}
			return value.Text(strings.Repeat(self.(value.TextValue).Val, int(n))), nil
		})

	Method("Text", "to_int").
		Doc("parses a decimal integer").
		Returns("Option[Int]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(self.(value.TextValue).Val), 10, 64)
			if err != nil {
				return value.None(), nil
			}
			return value.Some(value.Int(n)), nil
		})

	Method("Text", "to_float").
		Doc("parses a decimal number").
		Returns("Option[Float]").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			f, err := strconv.ParseFloat(strings.TrimSpace(self.(value.TextValue).Val), 64)
			if err != nil {
				return value.None(), nil
			}
			return value.Some(value.Float(f)), nil
		})
}

func patternArg(args Args) (*regexp.Regexp, error) {
	src, err := args.Text("pattern")
	if err != nil {
		return nil, err
	}
	return compilePattern(src)
}

// bounds reads start/end arguments and clamps them to [0, n].
func bounds(args Args, n int) (int, int, error) {
	lo, err := args.Int("start")
	if err != nil {
		return 0, 0, err
	}
	hi, err := args.Int("end")
	if err != nil {
		return 0, 0, err
	}
	clamp := func(x int64) int {
		return int(max(0, min(x, int64(n))))
	}
	l, h := clamp(lo), clamp(hi)
	if l > h {
		l = h
	}
	return l, h, nil
}

func registerNumberMethods() {
	Method("Int", "abs").
		Returns("Int").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			n := self.(value.IntValue).Val
			if n < 0 {
				n = -n
			}
			return value.Int(n), nil
		})

	Method("Int", "pow").
		Doc("raises to a non-negative power").
		Params("exp", "Int").
		Returns("Int").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			exp, err := args.Int("exp")
			if err != nil {
				return nil, err
			}
			if exp < 0 {
				return nil, fault(diag.RuntimeFailure, "negative exponent %d", exp)
			}
			base, result := self.(value.IntValue).Val, int64(1)
			for ; exp > 0; exp-- {
				result *= base
			}
			return value.Int(result), nil
		})

	Method("Int", "min").
		Params("other", "Int").
		Returns("Int").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.Int("other")
			if err != nil {
				return nil, err
			}
			return value.Int(min(self.(value.IntValue).Val, other)), nil
		})

	Method("Int", "max").
		Params("other", "Int").
		Returns("Int").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.Int("other")
			if err != nil {
				return nil, err
			}
			return value.Int(max(self.(value.IntValue).Val, other)), nil
		})

	Method("Int", "to_float").
		Returns("Float").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			return value.Float(float64(self.(value.IntValue).Val)), nil
		})

	floatMethod := func(name string, fn func(float64) float64) {
		Method("Float", name).
			Returns("Float").
			Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
				return value.Float(fn(self.(value.FloatValue).Val)), nil
			})
	}
	floatMethod("abs", math.Abs)
	floatMethod("sqrt", math.Sqrt)

	roundMethod := func(name string, fn func(float64) float64) {
		Method("Float", name).
			Returns("Int").
			Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
				return value.Int(int64(fn(self.(value.FloatValue).Val))), nil
			})
	}
	roundMethod("floor", math.Floor)
	roundMethod("ceil", math.Ceil)
	roundMethod("round", math.Round)
	roundMethod("to_int", math.Trunc)

	Method("Float", "min").
		Params("other", "Float").
		Returns("Float").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.Float("other")
			if err != nil {
				return nil, err
			}
			return value.Float(math.Min(self.(value.FloatValue).Val, other)), nil
		})

	Method("Float", "max").
		Params("other", "Float").
		Returns("Float").
		Impl(func(ctx context.Context, self value.Value, args Args) (value.Value, error) {
			other, err := args.Float("other")
			if err != nil {
				return nil, err
			}
			return value.Float(math.Max(self.(value.FloatValue).Val, other)), nil
		})
}
