package tuning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockOperation struct {
	name     string
	accepted bool
}

func (op *mockOperation) Execute(context.Context) error { return nil }

type mockChoice struct {
	name         string
	desirability float64
	confidence   float64
	cost         float64
	exists       bool
	invalidates  []Choice
}

func (c *mockChoice) Desirability() float64 { return c.desirability }
func (c *mockChoice) Confidence() float64 { return c.confidence }
func (c *mockChoice) Cost() float64 { return c.cost }
func (c *mockChoice) IsCurrentlyChosen() bool { return c.exists }
func (c *mockChoice) Invalidates() []Choice { return c.invalidates }

func (c *mockChoice) Accept() Operation {
	if c.exists {
		return NullOperation{}
	}
	return &mockOperation{name: c.name, accepted: true}
}

func (c *mockChoice) Reject() Operation {
	if !c.exists {
		return NullOperation{}
	}
	return &mockOperation{name: c.name, accepted: false}
}

func newMockChoice(name string, desirability, cost float64, exists bool) *mockChoice {
	return &mockChoice{name: name, desirability: desirability, confidence: 1, cost: cost, exists: exists}
}

func operationNames(t *testing.T, ops []Operation) []string {
	t.Helper()
	var names []string
	for _, op := range ops {
		mock, ok := op.(*mockOperation)
		require.True(t, ok)
		verb := "drop:"
		if mock.accepted {
			verb = "create:"
		}
		names = append(names, verb+mock.name)
	}
	return names
}

func TestSelectorSelectsBestChoicesInCorrectOrder(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("a", 5, 1200, false),
		newMockChoice("b", 3, 500, true),
		newMockChoice("c", 3, 300, true),
		newMockChoice("d", -8, 600, true),
		newMockChoice("e", 7, 800, false),
		newMockChoice("f", 4, 500, false),
	}

	ops := selector.Select(choices, 2000)

	// delete d (net drag), create e, delete b to make room for f, keep c
	require.Equal(t, []string{"drop:d", "create:e", "drop:b", "create:f"}, operationNames(t, ops))
}

func TestSelectorEmptyInput(t *testing.T) {
	selector := &GreedySelector{}
	require.Empty(t, selector.Select(nil, 100))
}

func TestSelectorInstallsWithinBudget(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("a", 10, 50, false),
		newMockChoice("b", 5, 40, false),
	}
	ops := selector.Select(choices, 100)
	require.Equal(t, []string{"create:a", "create:b"}, operationNames(t, ops))
}

func TestSelectorSkipsUnaffordableChoice(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("big", 10, 500, false),
		newMockChoice("small", 5, 40, false),
	}
	ops := selector.Select(choices, 100)
	require.Equal(t, []string{"create:small"}, operationNames(t, ops))
}

func TestSelectorBudgetForcedSwap(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("cold", 0, 60, true),
		newMockChoice("hot", 9990000, 50, false),
	}
	ops := selector.Select(choices, 80)
	require.Equal(t, []string{"drop:cold", "create:hot"}, operationNames(t, ops))
}

func TestSelectorUnprofitableSwapRejected(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("existing", 12000000, 60, true),
		newMockChoice("candidate", 9990000, 50, false),
	}
	ops := selector.Select(choices, 80)
	require.Empty(t, ops)
}

func TestSelectorDropsNetNegativeExisting(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("drag", -100, 30, true),
	}
	ops := selector.Select(choices, 1000)
	require.Equal(t, []string{"drop:drag"}, operationNames(t, ops))
}

func TestSelectorKeepsZeroSavedWorkUnderSlackBudget(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("cold", 0, 30, true),
	}
	require.Empty(t, selector.Select(choices, 1000))
}

func TestSelectorInvalidatesSuppressesCompetingChoice(t *testing.T) {
	selector := &GreedySelector{}
	groupKey := newMockChoice("group-key", 900, 40, false)
	radix := newMockChoice("radix", 800, 40, false)
	groupKey.invalidates = []Choice{radix}
	radix.invalidates = []Choice{groupKey}

	ops := selector.Select([]Choice{groupKey, radix}, 50)
	require.Equal(t, []string{"create:group-key"}, operationNames(t, ops))

	// even with budget for both, only one of the pair is created
	ops = selector.Select([]Choice{groupKey, radix}, 1000)
	require.Equal(t, []string{"create:group-key"}, operationNames(t, ops))
}

func TestSelectorMaxAcceptsClampsCreates(t *testing.T) {
	selector := &GreedySelector{MaxAccepts: 1}
	choices := []Choice{
		newMockChoice("a", 10, 10, false),
		newMockChoice("b", 9, 10, false),
		newMockChoice("c", 8, 10, false),
	}
	ops := selector.Select(choices, 1000)
	require.Equal(t, []string{"create:a"}, operationNames(t, ops))
}

func TestSelectorIdempotence(t *testing.T) {
	selector := &GreedySelector{}
	// the post-apply state of the budget-forced swap scenario
	choices := []Choice{
		newMockChoice("hot", 9990000, 50, true),
	}
	require.Empty(t, selector.Select(choices, 80))
}

func TestSelectorConfidenceTiebreak(t *testing.T) {
	selector := &GreedySelector{ConfidenceTiebreak: true}
	sure := &mockChoice{name: "sure", desirability: 10, confidence: 0.9, cost: 60, exists: false}
	unsure := &mockChoice{name: "unsure", desirability: 10, confidence: 0.2, cost: 60, exists: false}

	ops := selector.Select([]Choice{unsure, sure}, 60)
	names := operationNames(t, ops)
	require.Equal(t, "create:sure", names[0])
}

func TestSelectorStability(t *testing.T) {
	selector := &GreedySelector{}
	first := newMockChoice("first", 10, 60, false)
	second := newMockChoice("second", 10, 60, false)

	ops := selector.Select([]Choice{first, second}, 60)
	// identical saved work and cost: input order decides
	require.Equal(t, "create:second", operationNames(t, ops)[0])
}

func TestSelectorBudgetSafety(t *testing.T) {
	selector := &GreedySelector{}
	choices := []Choice{
		newMockChoice("x", 100, 70, true),
		newMockChoice("y", 90, 60, false),
		newMockChoice("z", 80, 50, false),
	}
	budget := 150.0
	ops := selector.Select(choices, budget)

	memory := 70.0
	for _, op := range ops {
		mock := op.(*mockOperation)
		cost := map[string]float64{"x": 70, "y": 60, "z": 50}[mock.name]
		if mock.accepted {
			memory += cost
		} else {
			memory -= cost
		}
	}
	require.LessOrEqual(t, memory, budget)
}
