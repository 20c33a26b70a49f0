// Package dsl compiles requirement text into requirement graphs.
//
// Text is a sequence of statements separated by newlines or semicolons:
//
//	x -> y
//	len(x) > 0 -> len(z) > len(y)
//	x == "hello" -> y == "world": "y must greet back"
//
// Each side is an expression over field names, literals, the usual
// arithmetic, comparison and boolean operators, and calls to whitelisted
// functions. When the text holds a Requires { ... } block only its body is
// compiled, so requirements can live inside free-form documentation.
//
// Comments (// and /* */) are rejected rather than ignored. The expression
// keywords contains, matches, startsWith, endsWith, not, and, or and in are
// operators and cannot be used as field names. len(v) compiles to the
// expression length operator when len is whitelisted.
package dsl

import (
	"strings"

	"required-backend/internal/expression"
	"required-backend/internal/requires"
)

// Compiler turns requirement text into graphs. Function calls resolve
// through the compiler's own whitelist.
type Compiler struct {
	callables expression.Callables
}

// NewCompiler returns a compiler allowing calls to the given functions only.
func NewCompiler(callables expression.Callables) *Compiler {
	return &Compiler{callables: expression.Callables{}.Merge(callables)}
}

// WithCallables returns a compiler whose whitelist adds more to c's,
// replacing entries of the same name.
func (c *Compiler) WithCallables(more expression.Callables) *Compiler {
	return &Compiler{callables: more.Merge(c.callables)}
}

// Callables returns a copy of the compiler's whitelist.
func (c *Compiler) Callables() expression.Callables {
	return expression.Callables{}.Merge(c.callables)
}

// Compile builds the graph declared by text. Statements are combined in
// source order.
func (c *Compiler) Compile(text string) (*requires.Graph, error) {
	body, line, err := extractBlock(text)
	if err != nil {
		return nil, err
	}
	statements, err := splitStatements(body, line)
	if err != nil {
		return nil, err
	}

	fragments := make([]*requires.Graph, 0, len(statements))
	for _, st := range statements {
		g, err := c.compileStatement(st)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, g)
	}
	return requires.Combine(fragments...), nil
}

func (c *Compiler) compileStatement(st statement) (*requires.Graph, error) {
	wrap := func(err error) error {
		return &SyntaxError{Line: st.line, Statement: st.text, Err: err}
	}

	trigger, err := c.parseSide(st.trigger)
	if err != nil {
		return nil, wrap(err)
	}
	dependency, err := c.parseSide(st.dependency)
	if err != nil {
		return nil, wrap(err)
	}

	var g *requires.Graph
	if st.message != "" {
		g, err = requires.MakeRequirement(trigger, dependency, st.message)
	} else {
		g, err = requires.MakeRequirement(trigger, dependency)
	}
	if err != nil {
		return nil, wrap(err)
	}
	return g, nil
}

// CompileRule builds the graph for one requirement whose sides are given
// separately, as in a rule file.
func (c *Compiler) CompileRule(trigger, dependency, message string) (*requires.Graph, error) {
	st := statement{
		line:       1,
		text:       trigger + " -> " + dependency,
		trigger:    strings.TrimSpace(trigger),
		dependency: strings.TrimSpace(dependency),
		message:    message,
	}
	switch {
	case st.trigger == "":
		return nil, &SyntaxError{Line: 1, Statement: st.text, Msg: "missing trigger"}
	case st.dependency == "":
		return nil, &SyntaxError{Line: 1, Statement: st.text, Msg: "missing dependency"}
	}
	return c.compileStatement(st)
}

var defaultCompiler = NewCompiler(expression.DefaultCallables())

// Compile compiles text with the default function whitelist.
func Compile(text string) (*requires.Graph, error) {
	return defaultCompiler.Compile(text)
}
