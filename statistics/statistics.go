package statistics

import (
	"sync"

	"github.com/adi64/hyrise/plan"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/utils"
)

// Oracle answers the statistics questions the index evaluator asks. All
// estimates are read-only during a tuning pass.
type Oracle interface {
	RowCount(table string) (uint64, error)
	DistinctCount(table string, column storage.ColumnID) (uint64, error)
	ChunkCount(table string) (uint64, error)
	ColumnByteWidth(table string, column storage.ColumnID) (uint64, error)
	// Selectivity estimates the fraction of rows matching the predicate,
	// in [0, 1]. Columns without a stored summary report 1 (no estimated
	// benefit). Conditions an index cannot serve report 1 by convention.
	Selectivity(table string, column storage.ColumnID, condition plan.PredicateCondition, value storage.Value) (float64, error)
}

// columnSummary is the stored per-column summary: distinct count, value
// bounds, null count and accumulated byte width.
type columnSummary struct {
	distinct   uint64
	min        storage.Value
	max        storage.Value
	nullCount  uint64
	totalBytes uint64
	valueCount uint64
}

type tableSummary struct {
	rowCount   uint64
	chunkCount uint64
	columns    []columnSummary
}

// Statistics computes summaries from catalog tables on demand and caches
// them until invalidated.
type Statistics struct {
	catalog *storage.Catalog

	mu     sync.RWMutex
	tables map[string]*tableSummary
}

// New creates a statistics oracle over the given catalog.
func New(catalog *storage.Catalog) *Statistics {
	return &Statistics{
		catalog: catalog,
		tables:  make(map[string]*tableSummary),
	}
}

// Invalidate drops all cached summaries.
func (s *Statistics) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*tableSummary)
}

func (s *Statistics) summary(tableName string) (*tableSummary, error) {
	s.mu.RLock()
	cached, ok := s.tables[tableName]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	t, err := s.catalog.Table(tableName)
	if err != nil {
		return nil, err
	}
	summary := collect(t)

	s.mu.Lock()
	s.tables[tableName] = summary
	s.mu.Unlock()
	return summary, nil
}

func collect(t *storage.Table) *tableSummary {
	chunkCount := t.ChunkCount()
	summary := &tableSummary{
		rowCount:   t.RowCount(),
		chunkCount: chunkCount,
		columns:    make([]columnSummary, t.ColumnCount()),
	}
	for col := 0; col < t.ColumnCount(); col++ {
		cs := &summary.columns[col]
		distinct := make(map[storage.Value]struct{})
		for chunk := uint64(0); chunk < chunkCount; chunk++ {
			for _, v := range t.GetChunk(chunk).Vector(storage.ColumnID(col)) {
				if v.IsNull() {
					cs.nullCount++
					continue
				}
				if cs.valueCount == 0 {
					cs.min, cs.max = v, v
				} else {
					if storage.Compare(v, cs.min) < 0 {
						cs.min = v
					}
					if storage.Compare(v, cs.max) > 0 {
						cs.max = v
					}
				}
				cs.valueCount++
				cs.totalBytes += uint64(len(v.String()))
				distinct[v] = struct{}{}
			}
		}
		cs.distinct = uint64(len(distinct))
	}
	return summary
}

// RowCount returns the number of rows of the table.
func (s *Statistics) RowCount(table string) (uint64, error) {
	summary, err := s.summary(table)
	if err != nil {
		return 0, err
	}
	return summary.rowCount, nil
}

// ChunkCount returns the number of chunks of the table.
func (s *Statistics) ChunkCount(table string) (uint64, error) {
	summary, err := s.summary(table)
	if err != nil {
		return 0, err
	}
	return summary.chunkCount, nil
}

// DistinctCount returns the number of distinct non-null values in the column.
func (s *Statistics) DistinctCount(table string, column storage.ColumnID) (uint64, error) {
	summary, err := s.summary(table)
	if err != nil {
		return 0, err
	}
	if int(column) >= len(summary.columns) {
		return 0, nil
	}
	return summary.columns[column].distinct, nil
}

// ColumnByteWidth returns the fixed byte width of the column's type, or the
// average observed width for variable-width types.
func (s *Statistics) ColumnByteWidth(table string, column storage.ColumnID) (uint64, error) {
	t, err := s.catalog.Table(table)
	if err != nil {
		return 0, err
	}
	if w := t.ColumnType(column).ByteWidth(); w > 0 {
		return w, nil
	}
	summary, err := s.summary(table)
	if err != nil {
		return 0, err
	}
	cs := summary.columns[column]
	if cs.valueCount == 0 {
		return 1, nil
	}
	return cs.totalBytes / cs.valueCount, nil
}

// Selectivity estimates the matching fraction of the predicate under the
// column's min/max summary, assuming a uniform value distribution.
func (s *Statistics) Selectivity(table string, column storage.ColumnID, condition plan.PredicateCondition, value storage.Value) (float64, error) {
	summary, err := s.summary(table)
	if err != nil {
		return 1, err
	}
	if int(column) >= len(summary.columns) {
		return 1, nil
	}
	cs := summary.columns[column]
	if cs.valueCount == 0 || cs.distinct == 0 {
		// no stored summary for this column: no estimated benefit
		return 1, nil
	}
	if !condition.IndexApplicable(value) {
		// conditions an index cannot serve have selectivity 1 by
		// convention, so they yield zero estimated benefit
		return 1, nil
	}

	switch condition {
	case plan.ConditionEquals:
		if outsideBounds(value, cs) {
			return 0, nil
		}
		return 1 / float64(cs.distinct), nil
	case plan.ConditionNotEquals:
		return 1 - 1/float64(cs.distinct), nil
	case plan.ConditionLessThan, plan.ConditionLessThanEquals:
		return belowFraction(value, cs), nil
	case plan.ConditionGreaterThan, plan.ConditionGreaterThanEquals:
		return clamp01(1 - belowFraction(value, cs)), nil
	case plan.ConditionBetween:
		// callers pass the lower bound; without the upper bound the
		// uniform model degrades to the open range above it
		return clamp01(1 - belowFraction(value, cs)), nil
	case plan.ConditionLike:
		// prefix patterns probe like an equality on the dictionary
		return 1 / float64(cs.distinct), nil
	}
	return 1, nil
}

// SelectivityBetween refines a BETWEEN estimate when both bounds are known.
func (s *Statistics) SelectivityBetween(table string, column storage.ColumnID, lower, upper storage.Value) (float64, error) {
	summary, err := s.summary(table)
	if err != nil {
		return 1, err
	}
	cs := summary.columns[column]
	if cs.valueCount == 0 {
		return 1, nil
	}
	return clamp01(belowFraction(upper, cs) - belowFraction(lower, cs)), nil
}

func outsideBounds(v storage.Value, cs columnSummary) bool {
	return storage.Compare(v, cs.min) < 0 || storage.Compare(v, cs.max) > 0
}

// belowFraction estimates the fraction of values strictly below v under a
// uniform distribution between min and max.
func belowFraction(v storage.Value, cs columnSummary) float64 {
	lo, okLo := valueAsFloat(cs.min)
	hi, okHi := valueAsFloat(cs.max)
	x, okX := valueAsFloat(v)
	if !okLo || !okHi || !okX {
		// non-numeric bounds: fall back to a fixed range guess
		return 1.0 / 3.0
	}
	if hi <= lo {
		if x < lo {
			return 0
		}
		return 1
	}
	return clamp01((x - lo) / (hi - lo))
}

func valueAsFloat(v storage.Value) (float64, bool) {
	switch v.Kind {
	case storage.KindInt64:
		return float64(v.Int), true
	case storage.KindFloat64:
		return v.Float, true
	}
	return 0, false
}

func clamp01(x float64) float64 {
	return utils.Min(1.0, utils.Max(0.0, x))
}
