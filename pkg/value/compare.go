package value

import "strings"

// Equal reports deep structural equality. Records and maps compare without
// regard to field or entry order. Functions, constructors and futures are
// never equal to anything.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case UnitValue:
		_, ok := b.(UnitValue)
		return ok
	case IntValue:
		switch y := b.(type) {
		case IntValue:
			return x.Val == y.Val
		case FloatValue:
			return float64(x.Val) == y.Val
		}
	case FloatValue:
		switch y := b.(type) {
		case FloatValue:
			return x.Val == y.Val
		case IntValue:
			return x.Val == float64(y.Val)
		}
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x.Val == y.Val
	case TextValue:
		y, ok := b.(TextValue)
		return ok && x.Val == y.Val
	case ListValue:
		y, ok := b.(ListValue)
		return ok && equalSlices(x.Elems, y.Elems)
	case TupleValue:
		y, ok := b.(TupleValue)
		return ok && equalSlices(x.Elems, y.Elems)
	case SetValue:
		y, ok := b.(SetValue)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for _, e := range x.Elems {
			if !y.Contains(e) {
				return false
			}
		}
		return true
	case MapValue:
		y, ok := b.(MapValue)
		if !ok || len(x.Entries) != len(y.Entries) {
			return false
		}
		for _, e := range x.Entries {
			other, found := y.Get(e.Key)
			if !found || !Equal(e.Value, other) {
				return false
			}
		}
		return true
	case RecordValue:
		y, ok := b.(RecordValue)
		if !ok || x.Name != y.Name || len(x.Fields) != len(y.Fields) {
			return false
		}
		for name, v := range x.Fields {
			other, found := y.Fields[name]
			if !found || !Equal(v, other) {
				return false
			}
		}
		return true
	case VariantValue:
		y, ok := b.(VariantValue)
		if !ok || x.Enum != y.Enum || x.Variant != y.Variant {
			return false
		}
		if x.Payload == nil || y.Payload == nil {
			return x.Payload == nil && y.Payload == nil
		}
		return Equal(x.Payload, y.Payload)
	case OptionValue:
		y, ok := b.(OptionValue)
		if !ok || x.IsSome() != y.IsSome() {
			return false
		}
		return !x.IsSome() || Equal(x.Val, y.Val)
	case ResultValue:
		y, ok := b.(ResultValue)
		return ok && x.IsOk == y.IsOk && Equal(x.Val, y.Val)
	}
	return false
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Compare orders numbers (mixing Int and Float) and texts. Any other pair
// compares as equal so sorts stay stable.
func Compare(a, b Value) int {
	if x, ok := a.(TextValue); ok {
		if y, ok := b.(TextValue); ok {
			return strings.Compare(x.Val, y.Val)
		}
		return 0
	}
	if x, ok := a.(IntValue); ok {
		if y, ok := b.(IntValue); ok {
			switch {
			case x.Val < y.Val:
				return -1
			case x.Val > y.Val:
				return 1
			}
			return 0
		}
	}
	x, ok1 := AsFloat(a)
	y, ok2 := AsFloat(b)
	if !ok1 || !ok2 {
		return 0
	}
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// AsFloat widens numeric values.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case IntValue:
		return float64(n.Val), true
	case FloatValue:
		return n.Val, true
	}
	return 0, false
}

// Describe names a value for error messages: its type and, for short
// values, its rendering.
func Describe(v Value) string {
	if v == nil {
		return "nothing"
	}
	s := Repr(v)
	if len(s) > 40 {
		return v.TypeName()
	}
	return v.TypeName() + " " + s
}
