// Package guard checks call arguments against requirements declared in
// text, typically a function's documentation, before the call proceeds.
//
//	var createOrder = guard.Default.MustRequires(`
//		Creates an order.
//
//		Requires {
//			coupon -> total > 0
//			shipping == "express" -> address
//		}`)
//
//	func CreateOrder(req OrderRequest) error {
//		if err := createOrder.Check(req); err != nil {
//			return err
//		}
//		...
//	}
package guard

import (
	"errors"
	"fmt"
	"strings"

	"required-backend/internal/dsl"
	"required-backend/internal/expression"
	"required-backend/internal/requires"
)

// ErrNoRequirements is returned when requirement text declares nothing.
var ErrNoRequirements = errors.New("guard: no requirements declared")

// Validator compiles requirement text with its own function whitelist.
type Validator struct {
	callables expression.Callables
	compiler  *dsl.Compiler
}

// New returns a validator allowing calls to the given functions.
func New(callables expression.Callables) *Validator {
	merged := expression.Callables{}.Merge(callables)
	return &Validator{callables: merged, compiler: dsl.NewCompiler(merged)}
}

// Default allows the functions of expression.DefaultCallables.
var Default = New(expression.DefaultCallables())

// RegisterCallables returns a validator that also allows more. Functions
// already known to v keep their definition.
func (v *Validator) RegisterCallables(more expression.Callables) *Validator {
	return New(v.callables.Merge(more))
}

// Requires compiles doc into a bound check.
func (v *Validator) Requires(doc string) (*Bound, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, ErrNoRequirements
	}
	g, err := v.compiler.Compile(doc)
	if err != nil {
		return nil, err
	}
	if g.Len() == 0 {
		return nil, ErrNoRequirements
	}
	return v.Bind(g), nil
}

// MustRequires is like Requires but panics on error.
func (v *Validator) MustRequires(doc string) *Bound {
	b, err := v.Requires(doc)
	if err != nil {
		panic(fmt.Sprintf("guard: %v", err))
	}
	return b
}

// Bind wraps an already built graph.
func (v *Validator) Bind(g *requires.Graph) *Bound {
	return &Bound{graph: g}
}

// Bound is a requirement graph ready to check arguments. It is safe for
// concurrent use.
type Bound struct {
	graph *requires.Graph
}

// Graph returns the underlying graph.
func (b *Bound) Graph() *requires.Graph { return b.graph }

// Check validates args, which may be a requires.Record, a map with string
// keys, or a struct (or pointer to one) whose fields are named by their json
// tag. Nil pointers, interfaces, maps and slices count as absent.
func (b *Bound) Check(args any) error {
	switch a := args.(type) {
	case nil:
		return fmt.Errorf("guard: nil arguments")
	case requires.Record:
		return b.graph.Validate(a)
	case map[string]any:
		return b.graph.ValidateMap(a)
	case expression.Map:
		return b.graph.ValidateMap(a)
	}
	rec, err := structRecord(args)
	if err != nil {
		return err
	}
	return b.graph.Validate(rec)
}

// Wrap returns fn preceded by b.Check on its argument.
func Wrap[T any](b *Bound, fn func(T) error) func(T) error {
	return func(arg T) error {
		if err := b.Check(arg); err != nil {
			return err
		}
		return fn(arg)
	}
}
