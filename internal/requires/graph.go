// Package requires builds requirement graphs from trigger/dependency
// declarations and validates records against them.
//
// A graph is assembled once, by combining fragments made with
// MakeRequirement, and is read-only afterwards, so one graph may validate
// many records concurrently.
package requires

import (
	"fmt"
	"sort"
	"strings"

	"required-backend/internal/expression"
)

// Dependency says that field Name must be present and, when Expression is
// set, that the expression must hold. Message replaces the generated error
// text when set.
type Dependency struct {
	Name       string
	Expression *expression.Expr
	Message    string
}

// identity is the structural identity used to de-duplicate dependencies
// while collecting them.
func (d Dependency) identity() string {
	var exprKey string
	if d.Expression != nil {
		exprKey = d.Expression.Key()
	}
	return "dep\x00" + d.Name + "\x00" + exprKey + "\x00" + d.Message
}

func (d Dependency) String() string {
	s := d.Name
	if d.Expression != nil {
		s += " where " + d.Expression.String()
	}
	if d.Message != "" {
		s += fmt.Sprintf(" (%q)", d.Message)
	}
	return s
}

// nodeKey addresses an adjacency list: a plain field name, or the Key of a
// guard expression.
type nodeKey struct {
	guard bool
	id    string
}

// Graph maps triggers to the dependencies they imply.
type Graph struct {
	adjacency map[nodeKey][]Dependency
	// guards indexes guard expressions by the single field they reference.
	guards map[string][]expression.Expr
}

// NewGraph returns an empty graph, the identity of Combine.
func NewGraph() *Graph {
	return &Graph{
		adjacency: map[nodeKey][]Dependency{},
		guards:    map[string][]expression.Expr{},
	}
}

// MakeRequirement builds the graph fragment for one declaration.
//
// trigger is a field name (string or bare reference) or a guard expression
// over exactly one field. dependency is a field name (string or bare
// reference) or an expression; an expression yields one Dependency per
// referenced field other than the trigger's own field, all sharing the
// expression, or a single self-dependency when it only references the
// trigger's field. message, if given, overrides the failure text.
func MakeRequirement(trigger, dependency any, message ...string) (*Graph, error) {
	key, subject, guard, err := triggerKey(trigger)
	if err != nil {
		return nil, err
	}

	var msg string
	if len(message) > 0 {
		msg = message[0]
	}

	deps, err := dependencies(subject, dependency, msg)
	if err != nil {
		return nil, err
	}

	g := NewGraph()
	g.adjacency[key] = deps
	if guard != nil {
		g.guards[subject] = []expression.Expr{*guard}
	}
	return g, nil
}

// MustRequire is like MakeRequirement but panics on error. It is meant for
// package-level declarations.
func MustRequire(trigger, dependency any, message ...string) *Graph {
	g, err := MakeRequirement(trigger, dependency, message...)
	if err != nil {
		panic(err)
	}
	return g
}

func triggerKey(trigger any) (nodeKey, string, *expression.Expr, error) {
	switch t := trigger.(type) {
	case string:
		if t == "" {
			return nodeKey{}, "", nil, &ConstructionError{Msg: "trigger field name is empty"}
		}
		return nodeKey{id: t}, t, nil, nil
	case expression.Expr:
		if t.IsRef() {
			return nodeKey{id: t.Name()}, t.Name(), nil, nil
		}
		fields := t.Fields()
		if len(fields) != 1 {
			return nodeKey{}, "", nil, &ConstructionError{
				Trigger: t.String(),
				Msg:     fmt.Sprintf("guard must reference exactly one field, found %d", len(fields)),
			}
		}
		return nodeKey{guard: true, id: t.Key()}, fields[0], &t, nil
	}
	return nodeKey{}, "", nil, &ConstructionError{Msg: fmt.Sprintf("unsupported trigger %T", trigger)}
}

func dependencies(subject string, dependency any, msg string) ([]Dependency, error) {
	switch d := dependency.(type) {
	case string:
		if d == "" {
			return nil, &ConstructionError{Trigger: subject, Msg: "dependency field name is empty"}
		}
		return []Dependency{{Name: d, Message: msg}}, nil
	case expression.Expr:
		if d.IsRef() {
			return []Dependency{{Name: d.Name(), Message: msg}}, nil
		}
		fields := d.Fields()
		if len(fields) == 0 {
			return nil, &ConstructionError{
				Trigger: subject,
				Msg:     fmt.Sprintf("dependency %s references no field", d),
			}
		}
		var deps []Dependency
		for _, name := range fields {
			if name == subject {
				continue
			}
			deps = append(deps, Dependency{Name: name, Expression: &d, Message: msg})
		}
		if len(deps) == 0 {
			deps = []Dependency{{Name: subject, Expression: &d, Message: msg}}
		}
		return deps, nil
	}
	return nil, &ConstructionError{
		Trigger: subject,
		Msg:     fmt.Sprintf("dependency must be a field or an expression, got %T", dependency),
	}
}

// Combine returns a new graph holding the requirements of every input, in
// order. Adjacency lists are concatenated with duplicates kept; guard
// indexes are merged without repeating a guard. Inputs are not modified and
// nil inputs count as empty.
func Combine(graphs ...*Graph) *Graph {
	out := NewGraph()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for key, deps := range g.adjacency {
			out.adjacency[key] = append(out.adjacency[key], deps...)
		}
		for field, guards := range g.guards {
			for _, guard := range guards {
				out.addGuard(field, guard)
			}
		}
	}
	return out
}

// Combine returns Combine(g, others...).
func (g *Graph) Combine(others ...*Graph) *Graph {
	return Combine(append([]*Graph{g}, others...)...)
}

func (g *Graph) addGuard(field string, guard expression.Expr) {
	key := guard.Key()
	for _, existing := range g.guards[field] {
		if existing.Key() == key {
			return
		}
	}
	g.guards[field] = append(g.guards[field], guard)
}

// Equal reports whether g and other hold the same requirements in the same
// order, comparing expressions structurally.
func (g *Graph) Equal(other *Graph) bool {
	if len(g.adjacency) != len(other.adjacency) || len(g.guards) != len(other.guards) {
		return false
	}
	for key, deps := range g.adjacency {
		theirs, ok := other.adjacency[key]
		if !ok || len(theirs) != len(deps) {
			return false
		}
		for i := range deps {
			if deps[i].identity() != theirs[i].identity() {
				return false
			}
		}
	}
	for field, guards := range g.guards {
		theirs := other.guards[field]
		if len(theirs) != len(guards) {
			return false
		}
		for i := range guards {
			if !expression.Equal(guards[i], theirs[i]) {
				return false
			}
		}
	}
	return true
}

// Len returns the number of triggers in g.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.adjacency)
}

// Guards returns the guard expressions whose subject is field.
func (g *Graph) Guards(field string) []expression.Expr {
	out := make([]expression.Expr, len(g.guards[field]))
	copy(out, g.guards[field])
	return out
}

// Node describes one trigger of a graph.
type Node struct {
	// Trigger is the field name, or the rendered guard expression.
	Trigger      string
	Guard        bool
	Subject      string
	Dependencies []Dependency
}

func (n Node) String() string {
	deps := make([]string, len(n.Dependencies))
	for i, d := range n.Dependencies {
		deps[i] = d.String()
	}
	return n.Trigger + " -> " + strings.Join(deps, ", ")
}

// Nodes lists every trigger of g, ordered by subject field with plain
// triggers before guards.
func (g *Graph) Nodes() []Node {
	var nodes []Node
	for key, deps := range g.adjacency {
		n := Node{
			Trigger:      key.id,
			Subject:      key.id,
			Guard:        key.guard,
			Dependencies: append([]Dependency(nil), deps...),
		}
		if key.guard {
			n.Subject, n.Trigger = g.guardByKey(key.id)
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Guard != b.Guard {
			return !a.Guard
		}
		return a.Trigger < b.Trigger
	})
	return nodes
}

func (g *Graph) guardByKey(key string) (subject, rendered string) {
	for field, guards := range g.guards {
		for _, guard := range guards {
			if guard.Key() == key {
				return field, guard.String()
			}
		}
	}
	return "", key
}
