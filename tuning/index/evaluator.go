package index

import (
	"math"

	"github.com/adi64/hyrise/plan"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/utils"
)

// betweenOracle is implemented by statistics oracles that can refine a
// BETWEEN estimate when both bounds are known.
type betweenOracle interface {
	SelectivityBetween(table string, column storage.ColumnID, lower, upper storage.Value) (float64, error)
}

// Evaluator is the default index evaluator. It accumulates workload-
// weighted saved work per column ref, proposes a configurable default
// index type, and predicts memory through the storage layer's model.
type Evaluator struct {
	*BaseEvaluator

	env               *TuningContext
	defaultType       storage.IndexType
	alternateTypes    []storage.IndexType
	maintenanceWeight float64

	savedWork map[string]float64
}

// EvaluatorOption configures the default evaluator.
type EvaluatorOption func(*Evaluator)

// WithDefaultIndexType overrides the proposed index type (group-key).
func WithDefaultIndexType(t storage.IndexType) EvaluatorOption {
	return func(e *Evaluator) { e.defaultType = t }
}

// WithAlternateIndexTypes also proposes the given competing types for
// every candidate; the selector keeps at most one per column.
func WithAlternateIndexTypes(types ...storage.IndexType) EvaluatorOption {
	return func(e *Evaluator) { e.alternateTypes = types }
}

// WithMaintenanceCostWeight subtracts weight × row_count from every
// choice's saved work, so indexes without matching workload go negative
// and are shed even under slack budget. Zero keeps drops purely
// budget-driven.
func WithMaintenanceCostWeight(weight float64) EvaluatorOption {
	return func(e *Evaluator) { e.maintenanceWeight = weight }
}

// NewEvaluator creates the default evaluator over the given context.
func NewEvaluator(env *TuningContext, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		env:         env,
		defaultType: storage.IndexGroupKey,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.BaseEvaluator = NewBaseEvaluator(env, Capabilities{
		Setup:               e.setup,
		ProcessAccessRecord: e.processAccessRecord,
		ProposeIndexType:    e.proposeIndexType,
		PredictMemory:       e.predictMemory,
		SavedWorkOf:         e.savedWorkOf,
		AlternateChoices:    e.alternateChoices,
	}, 1.0)
	return e
}

func (e *Evaluator) setup() {
	e.savedWork = make(map[string]float64)
}

// processAccessRecord accumulates the record's saved work: the rows an
// index would keep the scan from reading, weighted by how often the plan
// ran.
func (e *Evaluator) processAccessRecord(record AccessRecord) {
	if len(record.ColumnRef.ColumnIDs) != 1 {
		utils.Debugf("skipping multi-column access %v: only single-column refs are scored", record.ColumnRef)
		return
	}
	table := record.ColumnRef.TableName
	column := record.ColumnRef.ColumnIDs[0]

	rows, err := e.env.Statistics.RowCount(table)
	if err != nil {
		utils.Debugf("no row count for %v: %v", table, err)
		return
	}

	selectivity := 1.0
	if record.Condition == plan.ConditionBetween && !record.UpperValue.IsNull() {
		if between, ok := e.env.Statistics.(betweenOracle); ok {
			selectivity, err = between.SelectivityBetween(table, column, record.CompareValue, record.UpperValue)
		} else {
			selectivity, err = e.env.Statistics.Selectivity(table, column, record.Condition, record.CompareValue)
		}
	} else {
		selectivity, err = e.env.Statistics.Selectivity(table, column, record.Condition, record.CompareValue)
	}
	if err != nil {
		utils.Debugf("no selectivity for %v: %v", record.ColumnRef, err)
		return
	}

	unscannedRows := float64(rows) * (1 - selectivity)
	e.savedWork[record.ColumnRef.Key()] += unscannedRows * float64(record.QueryFrequency)
}

func (e *Evaluator) proposeIndexType(*IndexChoice) storage.IndexType {
	return e.defaultType
}

// predictMemory estimates the memory cost in MiB of a proposed index,
// assuming values distribute equally across chunks.
func (e *Evaluator) predictMemory(choice *IndexChoice) (float64, error) {
	table := choice.ColumnRef.TableName
	rows, err := e.env.Statistics.RowCount(table)
	if err != nil {
		return 0, err
	}
	chunks, err := e.env.Statistics.ChunkCount(table)
	if err != nil {
		return 0, err
	}
	if chunks == 0 {
		chunks = 1
	}

	var valueBytes uint64
	for _, column := range choice.ColumnRef.ColumnIDs {
		width, err := e.env.Statistics.ColumnByteWidth(table, column)
		if err != nil {
			return 0, err
		}
		valueBytes += width
	}

	distinct, err := e.env.Statistics.DistinctCount(table, choice.ColumnRef.ColumnIDs[0])
	if err != nil {
		return 0, err
	}

	chunkRows := uint64(math.Round(float64(rows) / float64(chunks)))
	chunkDistinct := uint64(math.Round(float64(distinct) / float64(chunks)))
	if distinct < chunks {
		chunkDistinct = 1
	}

	perChunk := storage.PredictMemoryConsumption(choice.Type, chunkRows, chunkDistinct, valueBytes)
	return float64(perChunk*chunks) / (1 << 20), nil
}

// savedWorkOf reports the aggregated saved work of the choice's column,
// minus the configured maintenance penalty. An existing index with no
// matching workload stays at zero and is shed only under budget pressure
// unless a penalty is configured.
func (e *Evaluator) savedWorkOf(choice *IndexChoice) float64 {
	work := e.savedWork[choice.ColumnRef.Key()]
	if e.maintenanceWeight > 0 {
		if rows, err := e.env.Statistics.RowCount(choice.ColumnRef.TableName); err == nil {
			work -= e.maintenanceWeight * float64(rows)
		}
	}
	return work
}

func (e *Evaluator) alternateChoices(choice *IndexChoice) []*IndexChoice {
	var alternates []*IndexChoice
	for _, t := range e.alternateTypes {
		if t == choice.Type {
			continue
		}
		alternates = append(alternates, &IndexChoice{
			ColumnRef:           choice.ColumnRef,
			Exists:              false,
			Type:                t,
			EvaluatorConfidence: choice.EvaluatorConfidence,
			env:                 e.env,
		})
	}
	return alternates
}
