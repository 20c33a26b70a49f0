package metadata

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"required-backend/internal/dsl"
	"required-backend/internal/requires"
)

// RuleDefinition is one requirement of a rule set. Trigger and Dependency
// are expressions in requirement syntax, e.g. "shipping == 'express'" and
// "address".
type RuleDefinition struct {
	Trigger    string `json:"trigger" yaml:"trigger" hcl:"trigger"`
	Dependency string `json:"dependency" yaml:"dependency" hcl:"dependency"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty" hcl:"message,optional"`
}

// RuleSet is a named group of requirements as written in a rule file or
// posted to the admin API. Requires holds free-form requirement text and
// Rules holds individual definitions; both may be used together.
type RuleSet struct {
	Name        string           `json:"name" yaml:"name" hcl:"name,label"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty" hcl:"description,optional"`
	Requires    string           `json:"requires,omitempty" yaml:"requires,omitempty" hcl:"requires,optional"`
	Rules       []RuleDefinition `json:"rules,omitempty" yaml:"rules,omitempty" hcl:"rule,block"`
}

// CompiledRuleSet is a rule set together with its graph.
type CompiledRuleSet struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	RuleSet

	// Graph is shared read-only by every validation against this set.
	Graph *requires.Graph `json:"-"`
}

// Compile builds the graph of rs. The Requires text comes first, then each
// rule in declaration order.
func Compile(rs *RuleSet, compiler *dsl.Compiler, source string) (*CompiledRuleSet, error) {
	if rs.Name == "" {
		return nil, fmt.Errorf("rule set name is required")
	}

	var fragments []*requires.Graph
	if rs.Requires != "" {
		g, err := compiler.Compile(rs.Requires)
		if err != nil {
			return nil, fmt.Errorf("rule set %s: requires: %w", rs.Name, err)
		}
		fragments = append(fragments, g)
	}
	for i, rule := range rs.Rules {
		g, err := compiler.CompileRule(rule.Trigger, rule.Dependency, rule.Message)
		if err != nil {
			return nil, fmt.Errorf("rule set %s: rule %d: %w", rs.Name, i+1, err)
		}
		fragments = append(fragments, g)
	}

	graph := requires.Combine(fragments...)
	if graph.Len() == 0 {
		return nil, fmt.Errorf("rule set %s declares no requirements", rs.Name)
	}

	return &CompiledRuleSet{
		ID:       uuid.New().String(),
		Source:   source,
		LoadedAt: time.Now().UTC(),
		RuleSet:  *rs,
		Graph:    graph,
	}, nil
}
