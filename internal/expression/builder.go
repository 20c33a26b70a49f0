package expression

// Free constructors. Each operand may be an Expr or a literal.

func Add(lhs, rhs any) Expr { return newOp(OpAdd, lhs, rhs) }
func Sub(lhs, rhs any) Expr { return newOp(OpSub, lhs, rhs) }
func Mul(lhs, rhs any) Expr { return newOp(OpMul, lhs, rhs) }
func Div(lhs, rhs any) Expr { return newOp(OpDiv, lhs, rhs) }
func Pow(lhs, rhs any) Expr { return newOp(OpPow, lhs, rhs) }
func Mod(lhs, rhs any) Expr { return newOp(OpMod, lhs, rhs) }
func Neg(v any) Expr        { return newOp(OpNeg, v) }
func Len(v any) Expr        { return newOp(OpLen, v) }

func Eq(lhs, rhs any) Expr { return newOp(OpEq, lhs, rhs) }
func Ne(lhs, rhs any) Expr { return newOp(OpNe, lhs, rhs) }
func Lt(lhs, rhs any) Expr { return newOp(OpLt, lhs, rhs) }
func Le(lhs, rhs any) Expr { return newOp(OpLe, lhs, rhs) }
func Gt(lhs, rhs any) Expr { return newOp(OpGt, lhs, rhs) }
func Ge(lhs, rhs any) Expr { return newOp(OpGe, lhs, rhs) }

// In tests membership of item in container. container may be a sequence,
// a map (keys are tested), a string (substring) or an expression resolving to
// one of those.
func In(item, container any) Expr { return newOp(OpIn, item, container) }

func And(lhs, rhs any) Expr { return newOp(OpAnd, lhs, rhs) }
func Or(lhs, rhs any) Expr  { return newOp(OpOr, lhs, rhs) }
func Not(v any) Expr        { return newOp(OpNot, v) }

// Call applies a named function to args when resolved. The name is part of
// the expression's identity, so one name should always denote one function.
func Call(name string, fn Callable, args ...any) Expr {
	return Expr{name: name, op: OpCall, operands: args, fn: fn}
}

// Fluent forms of the constructors above, with e as the left operand.

func (e Expr) Add(v any) Expr { return Add(e, v) }
func (e Expr) Sub(v any) Expr { return Sub(e, v) }
func (e Expr) Mul(v any) Expr { return Mul(e, v) }
func (e Expr) Div(v any) Expr { return Div(e, v) }
func (e Expr) Pow(v any) Expr { return Pow(e, v) }
func (e Expr) Mod(v any) Expr { return Mod(e, v) }
func (e Expr) Neg() Expr      { return Neg(e) }
func (e Expr) Len() Expr      { return Len(e) }

func (e Expr) Eq(v any) Expr { return Eq(e, v) }
func (e Expr) Ne(v any) Expr { return Ne(e, v) }
func (e Expr) Lt(v any) Expr { return Lt(e, v) }
func (e Expr) Le(v any) Expr { return Le(e, v) }
func (e Expr) Gt(v any) Expr { return Gt(e, v) }
func (e Expr) Ge(v any) Expr { return Ge(e, v) }

func (e Expr) In(container any) Expr { return In(e, container) }

// OneOf is In over a literal list of values.
func (e Expr) OneOf(values ...any) Expr { return In(e, values) }

func (e Expr) And(v any) Expr { return And(e, v) }
func (e Expr) Or(v any) Expr  { return Or(e, v) }
func (e Expr) Not() Expr      { return Not(e) }
