package expression

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedOperand is returned when an operator is applied to values
	// of a type it has no rule for.
	ErrUnsupportedOperand = errors.New("unsupported operand")
	// ErrDivisionByZero is returned by / and % with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
)

func unsupported(op Operator, vals ...any) error {
	types := make([]string, len(vals))
	for i, v := range vals {
		types[i] = fmt.Sprintf("%T", v)
	}
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedOperand, op, strings.Join(types, ", "))
}

// toFloat64 converts numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// toInt64 converts integer types to int64. Unsigned values above
// math.MaxInt64 are not representable and report false.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint64:
		return int64(n), n <= math.MaxInt64
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	}
	return 0, false
}

// equal compares numbers by value and everything else structurally.
func equal(a, b any) bool {
	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return ai == bi
		}
	}
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two numbers or two strings.
func compare(op Operator, a, b any) (int, error) {
	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			switch {
			case ai < bi:
				return -1, nil
			case ai > bi:
				return 1, nil
			}
			return 0, nil
		}
	}
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	return 0, unsupported(op, a, b)
}

func arithmetic(op Operator, a, b any) (any, error) {
	ai, aInt := toInt64(a)
	bi, bInt := toInt64(b)
	af, aNum := toFloat64(a)
	bf, bNum := toFloat64(b)

	if !aNum || !bNum {
		if op == OpAdd {
			return concat(a, b)
		}
		return nil, unsupported(op, a, b)
	}

	switch op {
	case OpAdd:
		if aInt && bInt {
			if sum, ok := addInt(ai, bi); ok {
				return sum, nil
			}
		}
		return af + bf, nil
	case OpSub:
		if aInt && bInt {
			if bi != math.MinInt64 {
				if diff, ok := addInt(ai, -bi); ok {
					return diff, nil
				}
			}
		}
		return af - bf, nil
	case OpMul:
		if aInt && bInt {
			if prod, ok := mulInt(ai, bi); ok {
				return prod, nil
			}
		}
		return af * bf, nil
	case OpDiv:
		if bf == 0 {
			return nil, ErrDivisionByZero
		}
		return af / bf, nil
	case OpMod:
		if bf == 0 {
			return nil, ErrDivisionByZero
		}
		if aInt && bInt {
			r := ai % bi
			if r != 0 && (r < 0) != (bi < 0) {
				r += bi
			}
			return r, nil
		}
		r := math.Mod(af, bf)
		if r != 0 && (r < 0) != (bf < 0) {
			r += bf
		}
		return r, nil
	case OpPow:
		if aInt && bInt && bi >= 0 {
			if out, ok := powInt(ai, bi); ok {
				return out, nil
			}
		}
		return math.Pow(af, bf), nil
	}
	return nil, unsupported(op, a, b)
}

// Integer results that do not fit in an int64 are computed in float64
// instead.

func addInt(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	prod := a * b
	if prod/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return prod, true
}

// powInt is exponentiation by squaring; it stops at the first overflow so
// the work is bounded by the bit length of exp.
func powInt(base, exp int64) (int64, bool) {
	out := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			var ok bool
			if out, ok = mulInt(out, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			var ok bool
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return out, true
}

// concat joins two strings or two sequences.
func concat(a, b any) (any, error) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as + bs, nil
		}
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if isSequence(av) && isSequence(bv) {
		out := make([]any, 0, av.Len()+bv.Len())
		for i := 0; i < av.Len(); i++ {
			out = append(out, av.Index(i).Interface())
		}
		for i := 0; i < bv.Len(); i++ {
			out = append(out, bv.Index(i).Interface())
		}
		return out, nil
	}
	return nil, unsupported(OpAdd, a, b)
}

func negate(v any) (any, error) {
	if i, ok := toInt64(v); ok && i != math.MinInt64 {
		return -i, nil
	}
	if f, ok := toFloat64(v); ok {
		return -f, nil
	}
	return nil, unsupported(OpNeg, v)
}

func length(v any) (int64, error) {
	if s, ok := v.(string); ok {
		return int64(utf8.RuneCountInString(s)), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return int64(rv.Len()), nil
	}
	return 0, unsupported(OpLen, v)
}

func isSequence(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

// contains reports membership of item in container. A sequence item matches
// when it shares at least one element with the container.
func contains(item, container any) (bool, error) {
	if s, ok := container.(string); ok {
		sub, ok := item.(string)
		if !ok {
			return false, unsupported(OpIn, item, container)
		}
		return strings.Contains(s, sub), nil
	}

	cv := reflect.ValueOf(container)
	switch cv.Kind() {
	case reflect.Slice, reflect.Array:
		iv := reflect.ValueOf(item)
		if isSequence(iv) {
			for i := 0; i < iv.Len(); i++ {
				if member(iv.Index(i).Interface(), cv) {
					return true, nil
				}
			}
			return false, nil
		}
		return member(item, cv), nil
	case reflect.Map:
		for _, k := range cv.MapKeys() {
			if equal(k.Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, unsupported(OpIn, item, container)
}

func member(item any, seq reflect.Value) bool {
	for i := 0; i < seq.Len(); i++ {
		if equal(seq.Index(i).Interface(), item) {
			return true
		}
	}
	return false
}

// truthy follows the usual dynamic-language rules: false, nil, zero and empty
// values are false.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := toFloat64(v); ok {
		return f != 0
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
