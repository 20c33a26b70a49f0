package expression

import (
	"fmt"
	"math"
	"strings"
)

// Callable is a function that may be invoked from an expression.
type Callable func(args ...any) (any, error)

// Callables is a whitelist of functions by name.
type Callables map[string]Callable

// Merge returns a new whitelist holding c plus the entries of more that c
// does not already define.
func (c Callables) Merge(more Callables) Callables {
	out := make(Callables, len(c)+len(more))
	for name, fn := range more {
		out[name] = fn
	}
	for name, fn := range c {
		out[name] = fn
	}
	return out
}

// DefaultCallables returns the functions available to every compiler.
func DefaultCallables() Callables {
	return Callables{
		"len":   callLen,
		"abs":   callAbs,
		"min":   callMin,
		"max":   callMax,
		"lower": callLower,
		"upper": callUpper,
	}
}

func arity(name string, args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func callLen(args ...any) (any, error) {
	if err := arity("len", args, 1); err != nil {
		return nil, err
	}
	return length(args[0])
}

func callAbs(args ...any) (any, error) {
	if err := arity("abs", args, 1); err != nil {
		return nil, err
	}
	if i, ok := toInt64(args[0]); ok && i != math.MinInt64 {
		if i < 0 {
			return -i, nil
		}
		return i, nil
	}
	if f, ok := toFloat64(args[0]); ok {
		return math.Abs(f), nil
	}
	return nil, unsupported(OpCall, args[0])
}

func callMin(args ...any) (any, error) { return extreme(-1, args) }
func callMax(args ...any) (any, error) { return extreme(1, args) }

func extreme(sign int, args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expects at least one argument")
	}
	best := args[0]
	for _, v := range args[1:] {
		c, err := compare(OpCall, v, best)
		if err != nil {
			return nil, err
		}
		if c*sign > 0 {
			best = v
		}
	}
	return best, nil
}

func callLower(args ...any) (any, error) {
	if err := arity("lower", args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, unsupported(OpCall, args[0])
	}
	return strings.ToLower(s), nil
}

func callUpper(args ...any) (any, error) {
	if err := arity("upper", args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, unsupported(OpCall, args[0])
	}
	return strings.ToUpper(s), nil
}
