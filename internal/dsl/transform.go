package dsl

import (
	"fmt"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"required-backend/internal/expression"
)

// parseSide parses one side of a statement into an expression.Expr or a
// literal value.
func (c *Compiler) parseSide(src string) (any, error) {
	if i := indexComment(src); i >= 0 {
		return nil, fmt.Errorf("comments are not allowed: %q", src[i:])
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return c.transform(tree.Node)
}

func (c *Compiler) transform(node ast.Node) (any, error) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		return expression.R(n.Value), nil
	case *ast.IntegerNode:
		return n.Value, nil
	case *ast.FloatNode:
		return n.Value, nil
	case *ast.StringNode:
		return n.Value, nil
	case *ast.BoolNode:
		return n.Value, nil
	case *ast.NilNode:
		return nil, nil
	case *ast.ConstantNode:
		return n.Value, nil
	case *ast.ArrayNode:
		return c.array(n)
	case *ast.UnaryNode:
		return c.unary(n)
	case *ast.BinaryNode:
		return c.binary(n)
	case *ast.BuiltinNode:
		return c.call(n.Name, n.Arguments)
	case *ast.CallNode:
		ident, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, fmt.Errorf("unsupported call target %s", n.Callee)
		}
		return c.call(ident.Value, n.Arguments)
	}
	return nil, fmt.Errorf("unsupported syntax %s", node)
}

func (c *Compiler) array(n *ast.ArrayNode) (any, error) {
	items := make([]any, len(n.Nodes))
	for i, node := range n.Nodes {
		v, err := c.transform(node)
		if err != nil {
			return nil, err
		}
		if _, ok := v.(expression.Expr); ok {
			return nil, fmt.Errorf("list items must be literals, found %s", node)
		}
		items[i] = v
	}
	return items, nil
}

func (c *Compiler) unary(n *ast.UnaryNode) (any, error) {
	v, err := c.transform(n.Node)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "-":
		switch lit := v.(type) {
		case int:
			return -lit, nil
		case float64:
			return -lit, nil
		}
		return expression.Neg(v), nil
	case "+":
		return v, nil
	case "not", "!":
		return expression.Not(v), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", n.Operator)
}

var binaryOps = map[string]func(lhs, rhs any) expression.Expr{
	"==":  expression.Eq,
	"!=":  expression.Ne,
	"<":   expression.Lt,
	"<=":  expression.Le,
	">":   expression.Gt,
	">=":  expression.Ge,
	"in":  expression.In,
	"+":   expression.Add,
	"-":   expression.Sub,
	"*":   expression.Mul,
	"/":   expression.Div,
	"%":   expression.Mod,
	"**":  expression.Pow,
	"^":   expression.Pow,
	"and": expression.And,
	"&&":  expression.And,
	"or":  expression.Or,
	"||":  expression.Or,
}

func (c *Compiler) binary(n *ast.BinaryNode) (any, error) {
	build, ok := binaryOps[n.Operator]
	if !ok {
		return nil, fmt.Errorf("unsupported operator %s", n.Operator)
	}
	lhs, err := c.transform(n.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := c.transform(n.Right)
	if err != nil {
		return nil, err
	}
	return build(lhs, rhs), nil
}

func (c *Compiler) call(name string, arguments []ast.Node) (any, error) {
	fn, ok := c.callables[name]
	if !ok {
		return nil, &DisallowedCallError{Name: name}
	}
	args := make([]any, len(arguments))
	for i, node := range arguments {
		v, err := c.transform(node)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	// len(v) is the algebra's own operator so compiled and built graphs
	// share keys.
	if name == "len" && len(args) == 1 {
		return expression.Len(args[0]), nil
	}
	return expression.Call(name, fn, args...), nil
}
