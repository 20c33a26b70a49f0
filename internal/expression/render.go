package expression

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// String renders e the way it would be written in a rule, e.g. "(x + 1) < y".
func (e Expr) String() string {
	switch e.op {
	case opRef:
		return e.name
	case OpLen:
		return "len(" + render(e.operands[0]) + ")"
	case OpCall:
		args := make([]string, len(e.operands))
		for i, operand := range e.operands {
			args[i] = render(operand)
		}
		return e.name + "(" + strings.Join(args, ", ") + ")"
	case OpNeg:
		return "-" + render(e.operands[0])
	case OpNot:
		return "not " + render(e.operands[0])
	case OpAdd, OpSub, OpMul, OpDiv, OpPow, OpMod, OpAnd, OpOr:
		return "(" + render(e.operands[0]) + " " + e.op.String() + " " + render(e.operands[1]) + ")"
	}
	return render(e.operands[0]) + " " + e.op.String() + " " + render(e.operands[1])
}

func render(operand any) string {
	switch v := operand.(type) {
	case Expr:
		return v.String()
	case string:
		return strconv.Quote(v)
	case nil:
		return "nil"
	}
	rv := reflect.ValueOf(operand)
	if isSequence(rv) {
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = render(rv.Index(i).Interface())
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	return fmt.Sprint(operand)
}

// Key returns the structural identity of e. Two expressions built
// independently from the same operators, references and literals have the
// same key.
func (e Expr) Key() string {
	var b strings.Builder
	e.writeKey(&b)
	return b.String()
}

func (e Expr) writeKey(b *strings.Builder) {
	if e.op == opRef {
		b.WriteString("ref:")
		b.WriteString(strconv.Quote(e.name))
		return
	}
	b.WriteString(e.op.name())
	if e.op == OpCall {
		b.WriteString(":")
		b.WriteString(e.name)
	}
	b.WriteString("(")
	for i, operand := range e.operands {
		if i > 0 {
			b.WriteString(",")
		}
		if sub, ok := operand.(Expr); ok {
			sub.writeKey(b)
			continue
		}
		fmt.Fprintf(b, "%T:%#v", operand, operand)
	}
	b.WriteString(")")
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Expr) bool {
	return a.Key() == b.Key()
}

// FailureMessage explains a false constraint e on dependency, required by
// field, e.g. "x requires y to be greater than or equal to 1". Comparisons
// are mirrored when dependency only appears on the right-hand side so that it
// reads as the subject.
func (e Expr) FailureMessage(field, dependency string) string {
	switch {
	case e.op == OpIn:
		return fmt.Sprintf("%s requires %s to be %s", field, render(e.operands[0]), membership(e.operands[1]))
	case e.op.IsComparison():
		lhs, rhs, op := e.operands[0], e.operands[1], e.op
		if !isRefTo(lhs, dependency) && isRefTo(rhs, dependency) {
			lhs, rhs, op = rhs, lhs, op.mirror()
		}
		return fmt.Sprintf("%s requires %s to be %s %s", field, render(lhs), op.phrase(), render(rhs))
	}
	return fmt.Sprintf("%s requires %s to be true", field, e)
}

func isRefTo(operand any, name string) bool {
	sub, ok := operand.(Expr)
	return ok && sub.IsRef() && sub.name == name
}

func membership(container any) string {
	if _, ok := container.(Expr); ok {
		return "in " + render(container)
	}
	rv := reflect.ValueOf(container)
	if !isSequence(rv) {
		return "in " + render(container)
	}
	items := make([]string, rv.Len())
	for i := range items {
		items[i] = render(rv.Index(i).Interface())
	}
	switch len(items) {
	case 0:
		return "in []"
	case 1:
		return items[0]
	}
	return "either " + strings.Join(items, " or ")
}
