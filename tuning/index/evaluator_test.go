package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adi64/hyrise/plancache"
	"github.com/adi64/hyrise/planner"
	"github.com/adi64/hyrise/statistics"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/tuning"
)

// testEnv wires a small engine: a 10000-row table t with col_1 holding 100
// distinct values and col_2 holding 5, split into 10 chunks.
type testEnv struct {
	catalog *storage.Catalog
	cache   *plancache.PlanCache
	builder *planner.Builder
	env     *TuningContext
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	table := storage.NewTable("t", []storage.ColumnDefinition{
		{Name: "col_1", Type: storage.TypeInt64},
		{Name: "col_2", Type: storage.TypeInt64},
	}, storage.WithChunkCapacity(1000))
	for i := 0; i < 10000; i++ {
		require.NoError(t, table.Append([]storage.Value{
			storage.Int64Value(int64(i % 100)),
			storage.Int64Value(int64(i % 5)),
		}))
	}
	catalog := storage.NewCatalog()
	require.NoError(t, catalog.AddTable(table))

	cache := plancache.NewPlanCache(64)
	env := &TuningContext{
		Catalog:     catalog,
		Statistics:  statistics.New(catalog),
		Cache:       cache,
		Invalidator: cache,
	}
	return &testEnv{
		catalog: catalog,
		cache:   cache,
		builder: planner.NewBuilder(catalog),
		env:     env,
	}
}

// addWorkload plans the statement and records it in the cache with the
// given frequency, the way repeated executions would.
func (te *testEnv) addWorkload(t *testing.T, sql string, frequency uint64) {
	t.Helper()
	for i := uint64(0); i < frequency; i++ {
		if _, ok := te.cache.Get(sql); ok {
			continue
		}
		logical, err := te.builder.BuildLogicalPlan(sql)
		require.NoError(t, err)
		te.cache.Put(sql, &plancache.CachedPlan{
			SQL:      sql,
			Logical:  logical,
			Physical: planner.TranslatePhysical(logical, false),
		})
	}
}

func indexChoices(t *testing.T, choices []tuning.Choice) []*IndexChoice {
	t.Helper()
	out := make([]*IndexChoice, len(choices))
	for i, c := range choices {
		ic, ok := c.(*IndexChoice)
		require.True(t, ok)
		out[i] = ic
	}
	return out
}

func findChoice(choices []*IndexChoice, column storage.ColumnID) *IndexChoice {
	for _, c := range choices {
		if len(c.ColumnRef.ColumnIDs) == 1 && c.ColumnRef.ColumnIDs[0] == column {
			return c
		}
	}
	return nil
}

func liveIndexColumns(t *testing.T, catalog *storage.Catalog) map[storage.ColumnID]storage.IndexType {
	t.Helper()
	infos, err := catalog.Indexes("t")
	require.NoError(t, err)
	live := make(map[storage.ColumnID]storage.IndexType)
	for _, info := range infos {
		require.Len(t, info.ColumnIDs, 1)
		live[info.ColumnIDs[0]] = info.Type
	}
	return live
}

func TestEmptyWorkloadProducesNoOperations(t *testing.T) {
	te := newTestEnv(t)
	// even a live index is untouched without a workload to score against
	require.NoError(t, te.catalog.CreateIndex(context.Background(), "t", []storage.ColumnID{1}, storage.IndexGroupKey))

	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: 100})
	tuner.AddEvaluator(NewEvaluator(te.env, WithMaintenanceCostWeight(0.1)))

	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Creates)
	require.Zero(t, report.Drops)
	require.Zero(t, report.AccessRecords)

	live := liveIndexColumns(t, te.catalog)
	require.Contains(t, live, storage.ColumnID(1))
}

func TestSingleBeneficialIndex(t *testing.T) {
	te := newTestEnv(t)
	te.addWorkload(t, "select * from t where col_1 = 4", 10)

	evaluator := NewEvaluator(te.env)
	choices, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)

	candidate := findChoice(indexChoices(t, choices), 0)
	require.NotNil(t, candidate)
	require.False(t, candidate.Exists)
	require.Equal(t, storage.IndexGroupKey, candidate.Type)
	// 10000 rows * (1 - 1/100) * frequency 10
	require.InDelta(t, 99000, candidate.SavedWork, 1)
	require.Greater(t, candidate.MemoryCost, 0.0)

	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: 100})
	tuner.AddEvaluator(evaluator)
	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Creates)
	require.Zero(t, report.Drops)

	live := liveIndexColumns(t, te.catalog)
	require.Equal(t, storage.IndexGroupKey, live[0])
}

func TestBudgetForcedSwap(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.catalog.CreateIndex(context.Background(), "t", []storage.ColumnID{1}, storage.IndexGroupKey))
	te.addWorkload(t, "select * from t where col_1 = 4", 10)

	evaluator := NewEvaluator(te.env)
	choices, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	scored := indexChoices(t, choices)

	existing := findChoice(scored, 1)
	candidate := findChoice(scored, 0)
	require.True(t, existing.Exists)
	require.Zero(t, existing.SavedWork)
	require.False(t, candidate.Exists)
	require.Greater(t, candidate.SavedWork, 0.0)

	// enough budget for the candidate, not for both
	budget := candidate.MemoryCost + existing.MemoryCost/2
	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: budget})
	tuner.AddEvaluator(evaluator)

	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Creates)
	require.Equal(t, 1, report.Drops)

	live := liveIndexColumns(t, te.catalog)
	require.Contains(t, live, storage.ColumnID(0))
	require.NotContains(t, live, storage.ColumnID(1))
}

func TestUnprofitableSwapRejected(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.catalog.CreateIndex(context.Background(), "t", []storage.ColumnID{1}, storage.IndexGroupKey))
	// the existing index serves a much hotter query than the candidate
	te.addWorkload(t, "select * from t where col_2 = 1", 100)
	te.addWorkload(t, "select * from t where col_1 = 4", 1)

	evaluator := NewEvaluator(te.env)
	choices, err := evaluator.Evaluate(context.Background())
	require.NoError(t, err)
	scored := indexChoices(t, choices)

	existing := findChoice(scored, 1)
	candidate := findChoice(scored, 0)
	require.Greater(t, existing.SavedWork, candidate.SavedWork)

	budget := existing.MemoryCost + candidate.MemoryCost/2
	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: budget})
	tuner.AddEvaluator(evaluator)

	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Creates)
	require.Zero(t, report.Drops)

	live := liveIndexColumns(t, te.catalog)
	require.Contains(t, live, storage.ColumnID(1))
	require.NotContains(t, live, storage.ColumnID(0))
}

func TestMaintenancePenaltyShedsColdIndex(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.catalog.CreateIndex(context.Background(), "t", []storage.ColumnID{1}, storage.IndexGroupKey))
	te.addWorkload(t, "select * from t where col_1 = 4", 10)

	// slack budget: only the maintenance penalty can justify the drop
	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: tuning.Unbounded})
	tuner.AddEvaluator(NewEvaluator(te.env, WithMaintenanceCostWeight(0.1)))

	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Drops)

	live := liveIndexColumns(t, te.catalog)
	require.NotContains(t, live, storage.ColumnID(1))
}

func TestColdIndexKeptWithoutPenaltyUnderSlackBudget(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.catalog.CreateIndex(context.Background(), "t", []storage.ColumnID{1}, storage.IndexGroupKey))
	te.addWorkload(t, "select * from t where col_1 = 4", 10)

	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: tuning.Unbounded})
	tuner.AddEvaluator(NewEvaluator(te.env))

	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Drops)

	live := liveIndexColumns(t, te.catalog)
	require.Contains(t, live, storage.ColumnID(1))
}

func TestCompetingIndexTypesOnlyOneCreated(t *testing.T) {
	te := newTestEnv(t)
	te.addWorkload(t, "select * from t where col_1 = 4", 10)

	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: tuning.Unbounded})
	tuner.AddEvaluator(NewEvaluator(te.env,
		WithAlternateIndexTypes(storage.IndexAdaptiveRadixTree)))

	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Creates)

	infos, err := te.catalog.Indexes("t")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, []storage.ColumnID{0}, infos[0].ColumnIDs)
}

func TestSecondPassIsIdempotent(t *testing.T) {
	te := newTestEnv(t)
	sql := "select * from t where col_1 = 4"
	te.addWorkload(t, sql, 10)

	tuner := tuning.NewTuner(&tuning.GreedySelector{}, tuning.Config{MemoryBudget: 100})
	tuner.AddEvaluator(NewEvaluator(te.env))

	report, err := tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Creates)

	// applying the operation invalidated the cache; replay the workload
	te.addWorkload(t, sql, 10)
	report, err = tuner.Execute(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Creates)
	require.Zero(t, report.Drops)
}

func TestSavedWorkLinearInFrequency(t *testing.T) {
	single := newTestEnv(t)
	single.addWorkload(t, "select * from t where col_1 = 4", 10)
	doubled := newTestEnv(t)
	doubled.addWorkload(t, "select * from t where col_1 = 4", 20)

	choicesSingle, err := NewEvaluator(single.env).Evaluate(context.Background())
	require.NoError(t, err)
	choicesDoubled, err := NewEvaluator(doubled.env).Evaluate(context.Background())
	require.NoError(t, err)

	workSingle := findChoice(indexChoices(t, choicesSingle), 0).SavedWork
	workDoubled := findChoice(indexChoices(t, choicesDoubled), 0).SavedWork
	require.InDelta(t, 2*workSingle, workDoubled, 1e-6)
}
