package rules

import (
	"fmt"
	"reflect"
	"regexp"
)

// OperatorFunc is a pure comparison between a resolved field value and the
// operand from the rule document. Implementations must be total: any operand
// combination they cannot compare resolves to false.
type OperatorFunc func(actual, expected any) bool

// operators is the closed operator registry. Extension means adding an entry
// here; nothing in the input document can inject behavior at runtime.
var operators = map[string]OperatorFunc{
	"eq":     opEqual,
	"neq":    opNotEqual,
	"gt":     ordered(func(cmp int) bool { return cmp > 0 }),
	"gte":    ordered(func(cmp int) bool { return cmp >= 0 }),
	"lt":     ordered(func(cmp int) bool { return cmp < 0 }),
	"lte":    ordered(func(cmp int) bool { return cmp <= 0 }),
	"in":     opIn,
	"nin":    opNotIn,
	"exists": opExists,
	"regex":  opRegex,
}

// OperatorExists reports whether name is a registered leaf operator.
func OperatorExists(name string) bool {
	_, ok := operators[name]
	return ok
}

// lookupOperator returns the comparison function for name, or nil.
func lookupOperator(name string) OperatorFunc {
	return operators[name]
}

// opEqual implements strict value equality. A missing field never equals a
// concrete value, and never equals an explicit null.
func opEqual(actual, expected any) bool {
	if IsMissing(actual) {
		return false
	}
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	// Numeric compare first so 80 (yaml int) equals 80.0 (json float64).
	if af, aok := toFloat64(actual); aok {
		if ef, eok := toFloat64(expected); eok {
			return af == ef
		}
		return false
	}

	return reflect.DeepEqual(actual, expected)
}

// opNotEqual is the strict inequality complement of opEqual: a missing field
// is not equal to any concrete value, so neq matches it.
func opNotEqual(actual, expected any) bool {
	return !opEqual(actual, expected)
}

// ordered builds an ordering operator from a comparison predicate. Ordering
// is defined for same-kind operands only: two numbers compare numerically,
// two strings compare lexicographically. Missing or mixed-kind operands
// never match.
func ordered(pred func(cmp int) bool) OperatorFunc {
	return func(actual, expected any) bool {
		if IsMissing(actual) {
			return false
		}

		if af, aok := toFloat64(actual); aok {
			ef, eok := toFloat64(expected)
			if !eok {
				return false
			}
			switch {
			case af < ef:
				return pred(-1)
			case af > ef:
				return pred(1)
			default:
				return pred(0)
			}
		}

		as, aok := actual.(string)
		es, eok := expected.(string)
		if !aok || !eok {
			return false
		}
		switch {
		case as < es:
			return pred(-1)
		case as > es:
			return pred(1)
		default:
			return pred(0)
		}
	}
}

// opIn tests membership of the field value in the expected sequence. A
// non-sequence operand never matches.
func opIn(actual, expected any) bool {
	if IsMissing(actual) {
		return false
	}
	seq := reflect.ValueOf(expected)
	if !seq.IsValid() || (seq.Kind() != reflect.Slice && seq.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < seq.Len(); i++ {
		if opEqual(actual, seq.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// opNotIn matches when the field value is present but not a member of the
// expected sequence. A non-sequence operand never matches, for nin as well
// as in.
func opNotIn(actual, expected any) bool {
	seq := reflect.ValueOf(expected)
	if !seq.IsValid() || (seq.Kind() != reflect.Slice && seq.Kind() != reflect.Array) {
		return false
	}
	return !opIn(actual, expected)
}

// opExists interprets the expected operand as a presence flag: true matches
// a present, non-null value; false matches a missing or null value. Any
// non-boolean operand never matches.
func opExists(actual, expected any) bool {
	want, ok := expected.(bool)
	if !ok {
		return false
	}
	present := !IsMissing(actual) && actual != nil
	return present == want
}

// opRegex tests the string form of the field value against the expected
// pattern. Invalid patterns and non-string operands never match.
func opRegex(actual, expected any) bool {
	if IsMissing(actual) {
		return false
	}
	pattern, ok := expected.(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(stringify(actual))
}

// toFloat64 converts numeric kinds to float64 for comparison. YAML decoding
// produces int for integer literals while JSON produces float64; collapsing
// both keeps operator semantics independent of the document format.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// stringify renders a value for regex matching.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
