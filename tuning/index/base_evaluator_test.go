package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adi64/hyrise/plan"
	"github.com/adi64/hyrise/plancache"
	"github.com/adi64/hyrise/planner"
	"github.com/adi64/hyrise/storage"
)

func TestWalkerLogicalEmitsOneRecordPerPredicate(t *testing.T) {
	te := newTestEnv(t)
	te.addWorkload(t, "select * from t where col_1 = 4 and col_2 > 1", 1)

	evaluator := NewEvaluator(te.env)
	_, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, evaluator.AccessRecordCount())
	require.Equal(t, 2, evaluator.CandidateCount())
}

func TestWalkerPlanWithoutPredicatesEmitsNothing(t *testing.T) {
	te := newTestEnv(t)
	te.addWorkload(t, "select * from t", 5)

	evaluator := NewEvaluator(te.env)
	choices, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	require.Zero(t, evaluator.AccessRecordCount())
	require.Empty(t, choices)
}

func TestWalkerSkipsColumnToColumnPredicates(t *testing.T) {
	te := newTestEnv(t)
	te.addWorkload(t, "select * from t where col_1 = col_2", 3)

	evaluator := NewEvaluator(te.env)
	_, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	require.Zero(t, evaluator.AccessRecordCount())
}

func TestWalkerPhysicalFormMatchesLogicalForm(t *testing.T) {
	logicalEnv := newTestEnv(t)
	logicalEnv.addWorkload(t, "select * from t where col_1 = 4", 10)

	physicalEnv := newTestEnv(t)
	sql := "select * from t where col_1 = 4"
	logical, err := physicalEnv.builder.BuildLogicalPlan(sql)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		if _, ok := physicalEnv.cache.Get(sql); ok {
			continue
		}
		physicalEnv.cache.Put(sql, &plancache.CachedPlan{
			SQL:      sql,
			Physical: planner.TranslatePhysical(logical, false),
		})
	}

	logicalChoices, err := NewEvaluator(logicalEnv.env).Evaluate(context.Background())
	require.NoError(t, err)
	physicalChoices, err := NewEvaluator(physicalEnv.env).Evaluate(context.Background())
	require.NoError(t, err)

	logicalWork := findChoice(indexChoices(t, logicalChoices), 0).SavedWork
	physicalWork := findChoice(indexChoices(t, physicalChoices), 0).SavedWork
	require.InDelta(t, logicalWork, physicalWork, 1e-6)
}

func TestWalkerSharedSubplanEmitsOneRecordPerEdge(t *testing.T) {
	te := newTestEnv(t)

	// two projections share one predicate subtree; the predicate is reached
	// over two edges and must be counted once per occurrence
	lp := plan.NewLogicalPlan()
	table := lp.Add(plan.LogicalNode{
		Type:      plan.LogicalStoredTable,
		Left:      plan.InvalidNode,
		Right:     plan.InvalidNode,
		TableName: "t",
	})
	pred := lp.Add(plan.LogicalNode{
		Type:      plan.LogicalPredicate,
		Left:      table,
		Right:     plan.InvalidNode,
		Column:    plan.ColumnExpression{OriginalNode: table, ColumnID: 0, Name: "col_1"},
		Condition: plan.ConditionEquals,
		Value:     storage.Int64Value(4),
	})
	left := lp.Add(plan.LogicalNode{Type: plan.LogicalProjection, Left: pred, Right: plan.InvalidNode})
	right := lp.Add(plan.LogicalNode{Type: plan.LogicalProjection, Left: pred, Right: plan.InvalidNode})
	lp.Root = lp.Add(plan.LogicalNode{Type: plan.LogicalJoin, Left: left, Right: right})

	te.cache.Put("shared", &plancache.CachedPlan{SQL: "shared", Logical: lp})

	evaluator := NewEvaluator(te.env)
	choices, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, evaluator.AccessRecordCount())
	require.Equal(t, 1, evaluator.CandidateCount())

	// both occurrences contribute saved work
	candidate := findChoice(indexChoices(t, choices), 0)
	require.InDelta(t, 2*10000*(1-1.0/100), candidate.SavedWork, 1)
}

func TestWalkerRejectsValidateBelowScan(t *testing.T) {
	te := newTestEnv(t)
	sql := "select * from t where col_1 = 4"
	logical, err := te.builder.BuildLogicalPlan(sql)
	require.NoError(t, err)
	te.cache.Put(sql, &plancache.CachedPlan{
		SQL:      sql,
		Physical: planner.TranslatePhysical(logical, true),
	})

	_, err = NewEvaluator(te.env).Evaluate(context.Background())
	require.ErrorIs(t, err, ErrValidateInScan)
}

func TestWalkerOpaqueCacheSkipsPass(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.catalog.CreateIndex(context.Background(), "t", []storage.ColumnID{1}, storage.IndexGroupKey))
	te.env.Cache = struct{}{} // anything that cannot snapshot in priority order

	choices, err := NewEvaluator(te.env).Evaluate(context.Background())
	require.NoError(t, err)
	require.Empty(t, choices)
}

func TestWalkerCancelledContextTruncatesWalk(t *testing.T) {
	te := newTestEnv(t)
	te.addWorkload(t, "select * from t where col_1 = 4", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	evaluator := NewEvaluator(te.env)
	_, err := evaluator.Evaluate(ctx)
	require.NoError(t, err)
	// the truncated walk just yields a smaller workload sample
	require.Zero(t, evaluator.AccessRecordCount())
}

func TestWalkerHigherPriorityEntriesWalkFirst(t *testing.T) {
	te := newTestEnv(t)
	te.addWorkload(t, "select * from t where col_1 = 4", 100)
	te.addWorkload(t, "select * from t where col_2 = 1", 2)

	entries := te.cache.Values()
	require.Len(t, entries, 2)
	require.Equal(t, uint64(100), entries[0].Frequency)
}
