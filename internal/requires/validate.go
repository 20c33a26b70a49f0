package requires

import (
	"errors"
	"fmt"

	"required-backend/internal/expression"
)

type emptyValue struct{}

func (emptyValue) String() string { return "<empty>" }

// Empty stands for the value of a field that is absent from the record.
var Empty any = emptyValue{}

func isEmpty(v any) bool {
	_, ok := v.(emptyValue)
	return ok
}

// Record is a validation input: named fields in a stable order.
type Record interface {
	expression.Lookup
	Keys() []string
}

type collector struct {
	graph  *Graph
	record expression.Lookup
	seen   map[string]struct{}
}

// CollectDependencies returns every dependency implied, directly or
// transitively, by field holding value. Fields reached through dependencies
// take their values from record, or Empty when absent. Each dependency is
// returned once and cycles terminate.
func (g *Graph) CollectDependencies(field string, value any, record expression.Lookup) []Dependency {
	c := &collector{graph: g, record: record, seen: map[string]struct{}{}}
	return c.collect(field, value)
}

// visitKey identifies a visit of field. Fields that are the subject of a
// guard are visited once per distinct value, since the value decides which
// guards fire.
func (c *collector) visitKey(field string, value any) string {
	if len(c.graph.guards[field]) == 0 {
		return field
	}
	return field + "\x00" + fmt.Sprintf("%T:%#v", value, value)
}

func (c *collector) valueOf(field string) any {
	if v, ok := c.record.Get(field); ok {
		return v
	}
	return Empty
}

func (c *collector) collect(field string, value any) []Dependency {
	key := c.visitKey(field, value)
	if _, ok := c.seen[key]; ok {
		return nil
	}
	c.seen[key] = struct{}{}

	rels := c.graph.adjacency[nodeKey{id: field}]
	if !isEmpty(value) {
		single := expression.Entry(field, value)
		for _, guard := range c.graph.guards[field] {
			fired, err := guard.Evaluate(single)
			if err != nil || !fired {
				continue
			}
			guarded := c.graph.adjacency[nodeKey{guard: true, id: guard.Key()}]
			rels = append(rels[:len(rels):len(rels)], guarded...)
		}
	}

	var deps []Dependency
	for _, d := range rels {
		depValue := c.valueOf(d.Name)
		if d.Expression == nil {
			if _, ok := c.seen[c.visitKey(d.Name, depValue)]; ok {
				continue
			}
		} else {
			id := d.identity()
			if _, ok := c.seen[id]; ok {
				continue
			}
			c.seen[id] = struct{}{}
		}
		deps = append(deps, d)
		deps = append(deps, c.collect(d.Name, depValue)...)
	}
	return deps
}

// ValidateField checks every dependency implied by field against record and
// returns a *RequirementError for the first one that does not hold.
func (g *Graph) ValidateField(field string, record expression.Lookup) error {
	value, ok := record.Get(field)
	if !ok {
		value = Empty
	}
	for _, d := range g.CollectDependencies(field, value, record) {
		if err := checkDependency(field, d, record); err != nil {
			return err
		}
	}
	return nil
}

func checkDependency(field string, d Dependency, record expression.Lookup) error {
	depValue, ok := record.Get(d.Name)
	if !ok {
		return missingError(field, d.Name, d.Message)
	}
	if d.Expression == nil {
		return nil
	}

	holds, err := d.Expression.Evaluate(record)
	var resolveErr *expression.ResolveError
	switch {
	case errors.As(err, &resolveErr):
		return missingError(field, resolveErr.Field, d.Message)
	case err != nil:
		msg := d.Message
		if msg == "" {
			msg = fmt.Sprintf("%s requires %s: %v", field, d.Expression, err)
		}
		return &RequirementError{
			Field:           field,
			DependencyName:  d.Name,
			DependencyValue: depValue,
			Message:         msg,
			Cause:           err,
		}
	case !holds:
		msg := d.Message
		if msg == "" {
			msg = d.Expression.FailureMessage(field, d.Name)
		}
		return &RequirementError{
			Field:           field,
			DependencyName:  d.Name,
			DependencyValue: depValue,
			Message:         msg,
		}
	}
	return nil
}

// Validate checks every field of record, in record order, and returns the
// first failure.
func (g *Graph) Validate(record Record) error {
	for _, field := range record.Keys() {
		if err := g.ValidateField(field, record); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMap validates m with its keys in sorted order.
func (g *Graph) ValidateMap(m map[string]any) error {
	return g.Validate(FromMap(m))
}
