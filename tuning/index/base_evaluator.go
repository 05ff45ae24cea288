package index

import (
	"context"

	"github.com/pkg/errors"

	"github.com/adi64/hyrise/plan"
	"github.com/adi64/hyrise/plancache"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/tuning"
	"github.com/adi64/hyrise/utils"
)

// ErrValidateInScan reports a physical plan whose table scan reads through
// an MVCC Validate operator. The tuner requires plans translated without
// MVCC; passing one in is a misuse of the contract and fatal.
var ErrValidateInScan = errors.New("validate operator below table scan: run the tuning pipeline without MVCC")

// Capabilities are the extension points of the base evaluator. Every
// capability is optional: a nil one is skipped, leaving the choice's memory
// cost or saved work at zero. The default evaluator provides all of them.
type Capabilities struct {
	// Setup is called at the very beginning of the evaluation process.
	Setup func()
	// ProcessAccessRecord is called for every access record, in arrival
	// order, while records are aggregated into the candidate set.
	ProcessAccessRecord func(record AccessRecord)
	// ProposeIndexType is called for every non-existing index to determine
	// the type to create.
	ProposeIndexType func(choice *IndexChoice) storage.IndexType
	// PredictMemory is called for every non-existing index to predict its
	// memory cost in MiB.
	PredictMemory func(choice *IndexChoice) (float64, error)
	// SavedWorkOf is called for every index to calculate its final
	// desirability.
	SavedWorkOf func(choice *IndexChoice) float64
	// AlternateChoices may return additional proposals (e.g. competing
	// index types) for a non-existing choice. Returned choices carry their
	// type already; the base evaluator scores them and wires mutual
	// invalidation.
	AlternateChoices func(choice *IndexChoice) []*IndexChoice
}

// BaseEvaluator walks the plan cache for indexable column accesses,
// aggregates them into a candidate set, joins the set with the live
// indexes of the catalog, and scores the resulting choices through its
// capability set.
type BaseEvaluator struct {
	env        *TuningContext
	caps       Capabilities
	confidence float64

	accessRecords  []AccessRecord
	candidates     utils.Set[ColumnRef]
	candidateCount int
	choices        []*IndexChoice
}

var _ tuning.Evaluator = (*BaseEvaluator)(nil)

// NewBaseEvaluator creates an evaluator with the given capability set.
func NewBaseEvaluator(env *TuningContext, caps Capabilities, confidence float64) *BaseEvaluator {
	if confidence <= 0 {
		confidence = 1
	}
	return &BaseEvaluator{env: env, caps: caps, confidence: confidence}
}

// AccessRecordCount reports how many access records the last pass gathered.
func (e *BaseEvaluator) AccessRecordCount() int { return len(e.accessRecords) }

// CandidateCount reports how many distinct column refs the last pass saw.
func (e *BaseEvaluator) CandidateCount() int { return e.candidateCount }

// Evaluate produces the scored index choices for one pass. The choice set
// is fixed once aggregation ends; scoring only assigns their scalar fields.
func (e *BaseEvaluator) Evaluate(ctx context.Context) ([]tuning.Choice, error) {
	e.accessRecords = e.accessRecords[:0]
	e.candidates = utils.NewSet[ColumnRef]()
	e.choices = e.choices[:0]
	e.candidateCount = 0

	if e.caps.Setup != nil {
		e.caps.Setup()
	}

	available, err := e.inspectCache(ctx)
	if err != nil {
		return nil, err
	}
	if !available {
		// without a workload there is no basis for scoring anything,
		// existing indexes included; the pass is a no-op
		return nil, nil
	}
	e.aggregateAccessRecords()
	if err := e.addExistingIndexes(); err != nil {
		return nil, err
	}
	e.addNewIndexes()

	var all []*IndexChoice
	for _, choice := range e.choices {
		e.score(choice, true)
		all = append(all, choice)
		if !choice.Exists && e.caps.AlternateChoices != nil {
			alternates := e.caps.AlternateChoices(choice)
			for _, alt := range alternates {
				e.score(alt, false)
				all = append(all, alt)
			}
			// competing proposals on the same column invalidate each other
			if len(alternates) > 0 {
				group := append([]*IndexChoice{choice}, alternates...)
				for _, a := range group {
					for _, b := range group {
						if a != b {
							a.AddInvalidate(b)
						}
					}
				}
			}
		}
	}

	result := make([]tuning.Choice, len(all))
	for i, c := range all {
		result[i] = c
	}
	return result, nil
}

func (e *BaseEvaluator) score(choice *IndexChoice, propose bool) {
	if !choice.Exists {
		if propose && e.caps.ProposeIndexType != nil {
			choice.Type = e.caps.ProposeIndexType(choice)
		}
		if e.caps.PredictMemory != nil {
			cost, err := e.caps.PredictMemory(choice)
			if err != nil {
				utils.Debugf("memory prediction for %v failed: %v", choice.ColumnRef, err)
				cost = 0
			}
			choice.MemoryCost = cost
		}
	}
	if e.caps.SavedWorkOf != nil {
		choice.SavedWork = e.caps.SavedWorkOf(choice)
	}
}

// inspectCache walks the cached plans in GDFS-priority order, preferring
// the logical plan form and falling back to the physical one. A cache that
// cannot be iterated leaves the pass without workload.
func (e *BaseEvaluator) inspectCache(ctx context.Context) (bool, error) {
	if e.env.Cache == nil {
		utils.Warningf("no plan cache configured; tuning pass has no workload")
		return false, nil
	}
	snapshotter, ok := e.env.Cache.(plancache.Snapshotter)
	if !ok {
		utils.Warningf("plan cache of type %T is opaque to the tuner; tuning pass has no workload", e.env.Cache)
		return false, nil
	}
	entries := snapshotter.Values()
	if len(entries) == 0 {
		utils.Warningf("no workload: the plan cache is empty")
		return false, nil
	}

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			utils.Warningf("cache walk time budget exceeded after %d of %d entries; continuing with a truncated workload sample", i, len(entries))
			break
		}
		cached := entry.Value
		utils.Debugf("cache entry %q frequency: %d priority: %g", cached.SQL, entry.Frequency, entry.Priority)
		switch {
		case cached.Logical != nil:
			e.walkLogical(cached.Logical, entry.Frequency)
		case cached.Physical != nil:
			if err := e.walkPhysical(cached.Physical, entry.Frequency); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// walkLogical scans a logical plan for predicate nodes rooted in a stored
// table. Traversal uses an explicit work list. A node shared over several
// DAG edges is enqueued once per incoming edge and emits one record per
// occurrence; only its expansion into children happens once, so every edge
// is traversed exactly once and a malformed cyclic arena cannot loop.
func (e *BaseEvaluator) walkLogical(lp *plan.LogicalPlan, frequency uint64) {
	if lp.Root == plan.InvalidNode {
		return
	}
	queue := []plan.NodeID{lp.Root}
	expanded := make(map[plan.NodeID]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		node := lp.Node(id)
		if !expanded[id] {
			expanded[id] = true
			if node.Left != plan.InvalidNode {
				queue = append(queue, node.Left)
			}
			if node.Right != plan.InvalidNode {
				queue = append(queue, node.Right)
			}
		}

		if node.Type != plan.LogicalPredicate {
			continue
		}
		if !node.Column.IsResolved() {
			// synthesized column or expression; nothing to index
			continue
		}
		if node.ValueIsColumn {
			// column-to-column comparison has no literal to probe with
			continue
		}
		origin := lp.Node(node.Column.OriginalNode)
		if origin.Type != plan.LogicalStoredTable {
			continue
		}
		e.accessRecords = append(e.accessRecords, AccessRecord{
			ColumnRef:      NewColumnRef(origin.TableName, node.Column.ColumnID),
			Condition:      node.Condition,
			CompareValue:   node.Value,
			UpperValue:     node.UpperValue,
			QueryFrequency: frequency,
		})
	}
}

// walkPhysical scans a physical plan for table scans directly over a
// GetTable, emitting one record per scan occurrence as in walkLogical.
// A Validate operator below a scan violates the tuner's precondition and
// aborts the pass.
func (e *BaseEvaluator) walkPhysical(pp *plan.PhysicalPlan, frequency uint64) error {
	if pp.Root == plan.InvalidNode {
		return nil
	}
	queue := []plan.NodeID{pp.Root}
	expanded := make(map[plan.NodeID]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		node := pp.Node(id)
		if !expanded[id] {
			expanded[id] = true
			if node.InputLeft != plan.InvalidNode {
				queue = append(queue, node.InputLeft)
			}
			if node.InputRight != plan.InvalidNode {
				queue = append(queue, node.InputRight)
			}
		}

		if node.Type != plan.PhysicalTableScan {
			continue
		}
		if node.InputLeft == plan.InvalidNode {
			continue
		}
		input := pp.Node(node.InputLeft)
		if input.Type == plan.PhysicalValidate {
			return errors.WithStack(ErrValidateInScan)
		}
		if input.Type != plan.PhysicalGetTable {
			utils.Debugf("skipping table scan over %v input", input.Type)
			continue
		}
		if node.RightIsColumn {
			continue
		}
		e.accessRecords = append(e.accessRecords, AccessRecord{
			ColumnRef:      NewColumnRef(input.TableName, node.LeftColumnID),
			Condition:      node.Condition,
			CompareValue:   node.RightParameter,
			UpperValue:     node.RightUpper,
			QueryFrequency: frequency,
		})
	}
	return nil
}

// aggregateAccessRecords reduces the record buffer to the set of distinct
// column refs and feeds every record to the processing hook in arrival
// order.
func (e *BaseEvaluator) aggregateAccessRecords() {
	for _, record := range e.accessRecords {
		e.candidates.Add(record.ColumnRef)
		if e.caps.ProcessAccessRecord != nil {
			e.caps.ProcessAccessRecord(record)
		}
	}
	e.candidateCount = e.candidates.Size()
}

// addExistingIndexes creates one choice per live index and prunes indexed
// refs from the candidate set.
func (e *BaseEvaluator) addExistingIndexes() error {
	for _, tableName := range e.env.Catalog.TableNames() {
		infos, err := e.env.Catalog.Indexes(tableName)
		if err != nil {
			return err
		}
		for _, info := range infos {
			ref := ColumnRef{TableName: tableName, ColumnIDs: info.ColumnIDs}
			e.choices = append(e.choices, &IndexChoice{
				ColumnRef:           ref,
				Exists:              true,
				Type:                info.Type,
				MemoryCost:          float64(info.MemoryConsumption) / (1 << 20),
				EvaluatorConfidence: e.confidence,
				env:                 e.env,
			})
			e.candidates.Remove(ref)
		}
	}
	return nil
}

// addNewIndexes turns the remaining candidates into proposals, in stable
// key order.
func (e *BaseEvaluator) addNewIndexes() {
	for _, ref := range e.candidates.ToList() {
		e.choices = append(e.choices, &IndexChoice{
			ColumnRef:           ref,
			Exists:              false,
			Type:                storage.IndexInvalid,
			EvaluatorConfidence: e.confidence,
			env:                 e.env,
		})
	}
}
