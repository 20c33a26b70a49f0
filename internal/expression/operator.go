package expression

// Operator identifies the operation an Expr node applies to its operands.
type Operator int

const (
	opRef Operator = iota // field reference, not an operation

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMod
	OpNeg
	OpLen

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn

	OpAnd
	OpOr
	OpNot

	OpCall
)

// String returns the operator's source symbol.
func (o Operator) String() string {
	switch o {
	case opRef:
		return "ref"
	case OpAdd:
		return "+"
	case OpSub, OpNeg:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "**"
	case OpMod:
		return "%"
	case OpLen:
		return "len"
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpIn:
		return "in"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	case OpCall:
		return "call"
	}
	return "unknown"
}

// name is the tag used in structural keys.
func (o Operator) name() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpPow:
		return "pow"
	case OpMod:
		return "mod"
	case OpNeg:
		return "neg"
	case OpLen:
		return "len"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	case OpIn:
		return "in"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	case OpCall:
		return "call"
	}
	return "ref"
}

// IsComparison reports whether the operator yields a boolean from two values.
func (o Operator) IsComparison() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn:
		return true
	}
	return false
}

// IsBoolean reports whether the operator always yields a boolean.
func (o Operator) IsBoolean() bool {
	return o.IsComparison() || o == OpAnd || o == OpOr || o == OpNot
}

// phrase completes "<field> requires <dep> to be ..." for comparisons.
func (o Operator) phrase() string {
	switch o {
	case OpEq:
		return "equal to"
	case OpNe:
		return "different from"
	case OpLt:
		return "less than"
	case OpLe:
		return "less than or equal to"
	case OpGt:
		return "greater than"
	case OpGe:
		return "greater than or equal to"
	}
	return ""
}

// mirror returns the comparison that holds with the operands swapped.
func (o Operator) mirror() Operator {
	switch o {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	}
	return o
}
