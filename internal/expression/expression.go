// Package expression implements the field-reference algebra used to declare
// requirements: references to named fields of a record, combined with
// arithmetic, comparison and boolean operators into immutable trees that are
// evaluated lazily against a record.
package expression

import (
	"fmt"
	"sort"
)

// Lookup reads field values from a record.
type Lookup interface {
	Get(name string) (any, bool)
}

// Map is the simplest Lookup.
type Map map[string]any

func (m Map) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

type entry struct {
	name  string
	value any
}

func (e entry) Get(name string) (any, bool) {
	if name == e.name {
		return e.value, true
	}
	return nil, false
}

// Entry returns a Lookup holding a single field.
func Entry(name string, value any) Lookup {
	return entry{name: name, value: value}
}

// ResolveError reports a field referenced by an expression that is absent
// from the record.
type ResolveError struct {
	Field string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("field %q is not present", e.Field)
}

// Expr is either a reference to a field or an operation over operands. An
// operand is another Expr or a literal value. Expr values are immutable and
// building one never evaluates anything.
type Expr struct {
	name     string
	op       Operator
	operands []any
	fn       Callable
}

// R references the field called name.
func R(name string) Expr {
	return Expr{name: name}
}

func newOp(op Operator, operands ...any) Expr {
	return Expr{op: op, operands: operands}
}

// IsRef reports whether e is a plain field reference.
func (e Expr) IsRef() bool { return e.op == opRef }

// Name returns the referenced field for a field reference, or the function
// name for a call.
func (e Expr) Name() string { return e.name }

// Op returns the operator of an operation.
func (e Expr) Op() Operator { return e.op }

// Operands returns a copy of the operation's operands.
func (e Expr) Operands() []any {
	out := make([]any, len(e.operands))
	copy(out, e.operands)
	return out
}

// Resolve evaluates e against l.
func (e Expr) Resolve(l Lookup) (any, error) {
	switch e.op {
	case opRef:
		v, ok := l.Get(e.name)
		if !ok {
			return nil, &ResolveError{Field: e.name}
		}
		return v, nil
	case OpAnd, OpOr:
		return e.resolveLogical(l)
	}

	args := make([]any, len(e.operands))
	for i, operand := range e.operands {
		v, err := resolveOperand(operand, l)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return e.apply(args)
}

// Evaluate resolves e and reduces the result to a boolean.
func (e Expr) Evaluate(l Lookup) (bool, error) {
	v, err := e.Resolve(l)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func resolveOperand(operand any, l Lookup) (any, error) {
	if sub, ok := operand.(Expr); ok {
		return sub.Resolve(l)
	}
	return operand, nil
}

func (e Expr) resolveLogical(l Lookup) (any, error) {
	lhs, err := resolveOperand(e.operands[0], l)
	if err != nil {
		return nil, err
	}
	if truthy(lhs) == (e.op == OpOr) {
		return e.op == OpOr, nil
	}
	rhs, err := resolveOperand(e.operands[1], l)
	if err != nil {
		return nil, err
	}
	return truthy(rhs), nil
}

func (e Expr) apply(args []any) (any, error) {
	switch e.op {
	case OpAdd, OpSub, OpMul, OpDiv, OpPow, OpMod:
		return arithmetic(e.op, args[0], args[1])
	case OpNeg:
		return negate(args[0])
	case OpLen:
		return length(args[0])
	case OpNot:
		return !truthy(args[0]), nil
	case OpEq:
		return equal(args[0], args[1]), nil
	case OpNe:
		return !equal(args[0], args[1]), nil
	case OpLt, OpLe, OpGt, OpGe:
		c, err := compare(e.op, args[0], args[1])
		if err != nil {
			return nil, err
		}
		switch e.op {
		case OpLt:
			return c < 0, nil
		case OpLe:
			return c <= 0, nil
		case OpGt:
			return c > 0, nil
		}
		return c >= 0, nil
	case OpIn:
		return contains(args[0], args[1])
	case OpCall:
		out, err := e.fn(args...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.name, err)
		}
		return out, nil
	}
	return nil, unsupported(e.op, args...)
}

// Fields returns every field name referenced by e, sorted and de-duplicated.
func (e Expr) Fields() []string {
	set := map[string]struct{}{}
	e.collectFields(set)
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (e Expr) collectFields(set map[string]struct{}) {
	if e.op == opRef {
		set[e.name] = struct{}{}
		return
	}
	for _, operand := range e.operands {
		if sub, ok := operand.(Expr); ok {
			sub.collectFields(set)
		}
	}
}
