package requires

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "required-backend/internal/expression"
)

func requirementError(t *testing.T, err error) *RequirementError {
	t.Helper()
	var re *RequirementError
	require.True(t, errors.As(err, &re), "expected *RequirementError, got %v", err)
	return re
}

func TestValidateCases(t *testing.T) {
	lenFn := DefaultCallables()["len"]

	tests := []struct {
		name  string
		graph *Graph
		pass  []Map
		fail  []Map
	}{
		{
			name:  "field with no dependency",
			graph: MustRequire("x", "y"),
			pass:  []Map{{"y": 1}},
			fail:  []Map{{"x": 1}},
		},
		{
			name:  "multiple dependencies require all",
			graph: Combine(MustRequire("x", "y"), MustRequire("x", "z")),
			pass:  []Map{{"x": 1, "y": 2, "z": 2}},
			fail:  []Map{{"x": 1, "y": 2}, {"x": 1, "z": 2}},
		},
		{
			name:  "expression equal",
			graph: MustRequire("x", R("y").Eq(1)),
			pass:  []Map{{"x": 1, "y": 1}},
			fail:  []Map{{"x": 1, "y": 2}},
		},
		{
			name:  "expression greater or equal",
			graph: MustRequire("x", R("y").Ge(1)),
			pass:  []Map{{"x": 1, "y": 1}, {"x": 1, "y": 2}, {"y": 0}},
			fail:  []Map{{"x": 1, "y": 0}},
		},
		{
			name:  "two references",
			graph: Combine(MustRequire("x", R("y").Ge(R("x"))), MustRequire("z", R("y").Le(R("z")))),
			pass:  []Map{{"x": 1, "y": 2, "z": 3}},
			fail:  []Map{{"x": 1, "y": 2, "z": 1}},
		},
		{
			name:  "sum of references",
			graph: MustRequire("x", R("y").Add(R("x")).Eq(1)),
			pass:  []Map{{"x": 1, "y": 0}},
			fail:  []Map{{"x": 1, "y": 1}},
		},
		{
			name:  "arithmetic on one side",
			graph: MustRequire("x", R("x").Lt(R("y").Add(1))),
			pass:  []Map{{"x": 0.5, "y": 0}, {"x": 1, "y": 1}},
			fail:  []Map{{"x": 2, "y": 1}},
		},
		{
			name:  "arithmetic on both sides",
			graph: MustRequire("x", R("x").Add(1).Eq(R("y").Add(2))),
			pass:  []Map{{"x": 1, "y": 0}},
			fail:  []Map{{"x": 1, "y": 1}},
		},
		{
			name:  "power",
			graph: MustRequire("x", R("x").Pow(2).Eq(R("y").Pow(4))),
			pass:  []Map{{"x": 1, "y": 1}},
			fail:  []Map{{"x": 2, "y": 1}},
		},
		{
			name:  "division",
			graph: MustRequire("x", R("x").Eq(R("y").Div(2))),
			pass:  []Map{{"x": 4, "y": 8}},
			fail:  []Map{{"x": 2, "y": 1}},
		},
		{
			name:  "value in list",
			graph: MustRequire("x", R("y").OneOf(1, 2)),
			pass:  []Map{{"x": 4, "y": 1}},
			fail:  []Map{{"x": 2, "y": 10}},
		},
		{
			name:  "guard requires field",
			graph: MustRequire(R("x").Eq(1), "y"),
			pass:  []Map{{"x": 1, "y": "hello"}, {"x": 2}},
			fail:  []Map{{"x": 1}},
		},
		{
			name:  "guard requires constraint",
			graph: MustRequire(R("x").Eq(1), R("y").OneOf(1)),
			pass:  []Map{{"x": 1, "y": 1}},
			fail:  []Map{{"x": 1}, {"x": 1, "y": 2}},
		},
		{
			name:  "guard with unconditional dependency",
			graph: Combine(MustRequire(R("x").Eq(1), R("y").Eq(1)), MustRequire("x", "z")),
			pass:  []Map{{"x": 10, "z": 5}},
			fail:  []Map{{"x": 10}, {"x": 1, "z": 5}},
		},
		{
			name:  "arithmetic guard",
			graph: MustRequire(R("x").Pow(2).Mul(10).Eq(40), "y"),
			pass:  []Map{{"x": 10}},
			fail:  []Map{{"x": 2}},
		},
		{
			name:  "two guards on one field",
			graph: Combine(MustRequire(R("x").Eq(1), "y"), MustRequire(R("x").Eq(2), "z")),
			pass:  []Map{{"x": 1, "y": "hello"}, {"x": 2, "z": "hello"}},
			fail:  []Map{{"x": 1}, {"x": 2}, {"x": 2, "y": "hello"}},
		},
		{
			name:  "self dependency",
			graph: MustRequire("x", R("x").Gt(1)),
			pass:  []Map{{"x": 2}},
			fail:  []Map{{"x": 1}},
		},
		{
			name:  "length",
			graph: MustRequire("x", R("x").Len().Eq(1)),
			pass:  []Map{{"x": []any{1}}},
			fail:  []Map{{"x": []any{}}},
		},
		{
			name:  "length on both sides",
			graph: MustRequire("x", R("x").Len().Add(1).Eq(R("y").Len().Sub(2))),
			pass:  []Map{{"x": []int{1}, "y": []int{1, 1, 1, 1}}},
			fail:  []Map{{"x": []int{1, 1}, "y": []int{1, 2}}},
		},
		{
			name:  "guarded self dependency",
			graph: MustRequire(R("x").Eq(1), R("x").Div(1).Eq(2)),
			fail:  []Map{{"x": 1}},
		},
		{
			name:  "guarded self dependency holds",
			graph: MustRequire(R("x").Add(1).Eq(1), R("x").Add(Div(1, 1)).Eq(1)),
			pass:  []Map{{"x": 0}},
		},
		{
			name:  "field in another field",
			graph: MustRequire(R("x"), R("x").In(R("y"))),
			pass:  []Map{{"x": 1, "y": []any{1, 2}}},
			fail:  []Map{{"x": 1, "y": []any{}}},
		},
		{
			name: "opposite guards",
			graph: Combine(
				MustRequire(R("x").Gt(1), R("x").Eq(R("y"))),
				MustRequire(R("x").Lt(1), R("x").Ne(R("y"))),
			),
			pass: []Map{{"x": -1, "y": 0}},
			fail: []Map{{"x": 2, "y": 1}, {"x": 0, "y": 0}},
		},
		{
			name:  "bare references",
			graph: MustRequire(R("x"), R("y")),
			fail:  []Map{{"x": 2}},
		},
		{
			name:  "multi field dependency",
			graph: MustRequire(R("x"), R("y").Add(R("z")).Eq(R("x"))),
			pass:  []Map{{"x": 2, "y": 1, "z": 1}},
			fail:  []Map{{"x": 2}, {"x": 2, "z": 1}, {"x": 2, "y": 1}, {"x": 2, "y": 2, "z": 2}},
		},
		{
			name:  "function calls",
			graph: MustRequire(R("x"), Call("len", lenFn, R("y")).Add(Call("len", lenFn, R("z"))).Eq(R("x"))),
			pass:  []Map{{"x": 3, "y": []int{1, 1}, "z": []int{2}}},
			fail:  []Map{{"x": 2, "y": []int{1, 1}, "z": []int{2}}},
		},
		{
			name:  "sequence intersects",
			graph: MustRequire("x", R("x").OneOf("a", "b")),
			pass:  []Map{{"x": []string{"c", "b"}}},
			fail:  []Map{{"x": []string{"c", "d"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, data := range tt.pass {
				assert.NoError(t, tt.graph.ValidateMap(data), "record %v", data)
			}
			for _, data := range tt.fail {
				err := tt.graph.ValidateMap(data)
				if assert.Error(t, err, "record %v", data) {
					requirementError(t, err)
				}
			}
		})
	}
}

func TestPresenceLaw(t *testing.T) {
	g := MustRequire("f", "d")
	err := g.ValidateMap(Map{"f": 1})

	re := requirementError(t, err)
	assert.Equal(t, "f", re.Field)
	assert.Equal(t, "d", re.DependencyName)
	assert.Nil(t, re.DependencyValue)
	assert.Equal(t, "f requires 'd' to be present", re.Message)
}

func TestTransitivityReportsNearestMissing(t *testing.T) {
	g := Combine(MustRequire("f", "g"), MustRequire("g", "h"))

	re := requirementError(t, g.ValidateMap(Map{"f": 1}))
	assert.Equal(t, "g", re.DependencyName)

	re = requirementError(t, g.ValidateMap(Map{"f": 1, "g": 1}))
	assert.Equal(t, "f", re.Field)
	assert.Equal(t, "h", re.DependencyName)

	assert.NoError(t, g.ValidateField("h", Map{"f": 1}))
}

func TestCycleTerminates(t *testing.T) {
	g := Combine(MustRequire("f", "g"), MustRequire("g", "f"))

	re := requirementError(t, g.ValidateMap(Map{"f": 1}))
	assert.Equal(t, "g", re.DependencyName)

	re = requirementError(t, g.ValidateMap(Map{"g": 1}))
	assert.Equal(t, "f", re.DependencyName)

	data := Map{"f": 1, "g": 2}
	assert.NoError(t, g.ValidateField("f", data))
	assert.NoError(t, g.ValidateField("g", data))
}

func TestCycleThroughExpressions(t *testing.T) {
	g := Combine(
		MustRequire("a", R("b").Gt(R("a"))),
		MustRequire("b", R("a").Lt(R("b"))),
		MustRequire("b", "c"),
	)

	deps := g.CollectDependencies("a", 1, Map{"a": 1, "b": 2})
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)

	re := requirementError(t, g.ValidateMap(Map{"a": 1, "b": 2}))
	assert.Equal(t, "c", re.DependencyName)
}

func TestGuardLocality(t *testing.T) {
	g := MustRequire(R("x").Eq(1), "y")

	assert.Empty(t, g.CollectDependencies("x", 2, Map{"x": 2}))
	assert.NoError(t, g.ValidateMap(Map{"x": 2}))

	re := requirementError(t, g.ValidateMap(Map{"x": 1}))
	assert.Equal(t, "y", re.DependencyName)
}

func TestGuardEvaluationErrorDoesNotFire(t *testing.T) {
	g := MustRequire(R("x").Gt(0), "y")
	assert.NoError(t, g.ValidateMap(Map{"x": "not a number"}))
}

func TestExpressionFailurePropagation(t *testing.T) {
	g := MustRequire("x", R("y").Add(R("z")).Eq(R("x")))

	re := requirementError(t, g.ValidateMap(Map{"x": 2, "z": 1}))
	assert.Equal(t, "y", re.DependencyName)
	assert.Equal(t, "x requires 'y' to be present", re.Message)
}

func TestResolveErrorAttributesThirdField(t *testing.T) {
	g := MustRequire("x", R("y").Gt(R("z")))

	// y is checked first and is present; its expression needs z.
	deps := g.CollectDependencies("x", 1, Map{"x": 1, "y": 1})
	require.Len(t, deps, 2)

	re := requirementError(t, g.ValidateField("x", Map{"x": 1, "y": 1}))
	assert.Equal(t, "z", re.DependencyName)
}

func TestConcreteScenario(t *testing.T) {
	g := MustRequire("x", R("x").Gt(R("y")))

	re := requirementError(t, g.ValidateMap(Map{"x": 1, "y": 2}))
	assert.Equal(t, "x requires y to be less than x", re.Message)
	assert.Equal(t, "y", re.DependencyName)
	assert.Equal(t, 2, re.DependencyValue)

	assert.NoError(t, g.ValidateMap(Map{"x": 2, "y": 1}))
}

func TestFailureMessages(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		data  Map
		want  string
	}{
		{"comparison", MustRequire("x", R("y").Ge(1)), Map{"x": 1, "y": 0}, "x requires y to be greater than or equal to 1"},
		{"one of", MustRequire("x", R("y").OneOf(1, 2)), Map{"x": 1, "y": 3}, "x requires y to be either 1 or 2"},
		{"single value", MustRequire("x", R("y").OneOf("a")), Map{"x": 1, "y": "b"}, `x requires y to be "a"`},
		{"custom message", MustRequire("x", R("y").Eq(1), "y must be one"), Map{"x": 1, "y": 2}, "y must be one"},
		{"custom presence message", MustRequire("x", "y", "need y"), Map{"x": 1}, "need y"},
		{"boolean", MustRequire("x", R("y").Gt(1).And(R("y").Lt(3))), Map{"x": 1, "y": 5}, "x requires (y > 1 and y < 3) to be true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := requirementError(t, tt.graph.ValidateMap(tt.data))
			assert.Equal(t, tt.want, re.Message)
		})
	}
}

func TestEvaluationErrorKeepsCause(t *testing.T) {
	g := MustRequire("x", R("y").Div(R("x")).Gt(1))

	re := requirementError(t, g.ValidateMap(Map{"x": 0, "y": 1}))
	assert.ErrorIs(t, re, ErrDivisionByZero)
	assert.Equal(t, "y", re.DependencyName)
}

func TestDuplicatesFirstFailureWins(t *testing.T) {
	g := Combine(
		MustRequire("x", R("y").Eq(1), "first"),
		MustRequire("x", R("y").Eq(1), "second"),
	)
	assert.Len(t, g.adjacency[nodeKey{id: "x"}], 2)

	re := requirementError(t, g.ValidateMap(Map{"x": 1, "y": 2}))
	assert.Equal(t, "first", re.Message)
}

func TestCollectDeduplicatesIdenticalDependencies(t *testing.T) {
	g := Combine(MustRequire("x", "y"), MustRequire("x", "y"), MustRequire("x", R("y").Gt(0)), MustRequire("x", R("y").Gt(0)))

	deps := g.CollectDependencies("x", 1, Map{"x": 1, "y": 1})
	assert.Len(t, deps, 2)
}

func TestCombineDoesNotMutateInputs(t *testing.T) {
	a := MustRequire("x", "y")
	b := MustRequire("x", "z")
	guard := MustRequire(R("x").Eq(1), "w")

	c := Combine(a, b, guard)
	c2 := c.Combine(MustRequire("x", "v"))

	assert.Len(t, a.adjacency[nodeKey{id: "x"}], 1)
	assert.Len(t, b.adjacency[nodeKey{id: "x"}], 1)
	assert.Len(t, c.adjacency[nodeKey{id: "x"}], 2)
	assert.Len(t, c2.adjacency[nodeKey{id: "x"}], 3)
	assert.Len(t, c.Guards("x"), 1)
}

func TestCombineMergesEquivalentGuards(t *testing.T) {
	g := Combine(MustRequire(R("x").Eq(1), "y"), MustRequire(R("x").Eq(1), "z"))

	assert.Len(t, g.Guards("x"), 1)
	assert.Equal(t, 1, g.Len())

	re := requirementError(t, g.ValidateMap(Map{"x": 1, "y": 1}))
	assert.Equal(t, "z", re.DependencyName)
}

func TestCombineAssociative(t *testing.T) {
	a := MustRequire("x", "y")
	b := MustRequire(R("y").Gt(1), R("z").Lt(R("y")))
	c := MustRequire("z", R("z").OneOf(1, 2, 3))

	left := Combine(Combine(a, b), c)
	right := Combine(a, Combine(b, c))
	identity := Combine(NewGraph(), left, nil)

	records := []Map{
		{"x": 1},
		{"x": 1, "y": 1},
		{"x": 1, "y": 2},
		{"x": 1, "y": 2, "z": 1},
		{"x": 1, "y": 2, "z": 5},
		{"y": 5, "z": 3},
		{"z": 4},
		{},
	}
	for _, r := range records {
		l, rr, id := left.ValidateMap(r), right.ValidateMap(r), identity.ValidateMap(r)
		assert.Equal(t, l == nil, rr == nil, "record %v", r)
		assert.Equal(t, l == nil, id == nil, "record %v", r)
	}
}

func TestMakeRequirementErrors(t *testing.T) {
	tests := []struct {
		name       string
		trigger    any
		dependency any
	}{
		{"multi-field guard", R("x").Eq(R("y")), "z"},
		{"field-free guard", Eq(1, 1), "z"},
		{"literal dependency", "x", 1},
		{"field-free dependency", "x", Eq(1, 1)},
		{"empty trigger", "", "y"},
		{"unsupported trigger", 3, "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MakeRequirement(tt.trigger, tt.dependency)
			var ce *ConstructionError
			assert.ErrorAs(t, err, &ce)
		})
	}

	assert.Panics(t, func() { MustRequire(R("x").Eq(R("y")), "z") })
}

func TestNodes(t *testing.T) {
	g := Combine(
		MustRequire(R("x").Eq(1), "y"),
		MustRequire("x", R("z").Gt(0)),
		MustRequire("a", "b"),
	)

	nodes := g.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "a -> b", nodes[0].String())
	assert.Equal(t, "x -> z where z > 0", nodes[1].String())
	assert.Equal(t, "x == 1 -> y", nodes[2].String())
	assert.True(t, nodes[2].Guard)
	assert.Equal(t, "x", nodes[2].Subject)
}

func TestValidateUsesRecordOrder(t *testing.T) {
	g := Combine(MustRequire("a", "missing_a"), MustRequire("b", "missing_b"))

	re := requirementError(t, g.Validate(NewRecord(Field{"b", 1}, Field{"a", 1})))
	assert.Equal(t, "b", re.Field)

	re = requirementError(t, g.Validate(NewRecord(Field{"a", 1}, Field{"b", 1})))
	assert.Equal(t, "a", re.Field)
}
