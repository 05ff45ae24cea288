package tuning

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/adi64/hyrise/utils"
)

// ErrPassInProgress is returned when Execute is called while a pass runs.
var ErrPassInProgress = errors.New("tuning pass already in progress")

// Config carries the tuner's per-pass limits.
type Config struct {
	// MemoryBudget is the budget handed to the selector. Its unit is
	// whatever the evaluators' cost measure uses (MiB for index choices).
	// Zero or below disables tuning creates entirely; use Unbounded to
	// disable budget checking.
	MemoryBudget float64
	// EvaluateTimeBudget soft-bounds the evaluation phase. Exceeding it
	// truncates the workload walk; zero means no bound.
	EvaluateTimeBudget time.Duration
}

// Unbounded disables budget checking.
const Unbounded = float64(1<<63 - 1)

// EvaluatorStats is implemented by evaluators that can report workload
// counters for the pass log.
type EvaluatorStats interface {
	AccessRecordCount() int
	CandidateCount() int
}

// Report summarizes one tuning pass.
type Report struct {
	PassID        string
	AccessRecords int
	Candidates    int
	Choices       int
	MemoryBefore  float64
	MemoryAfter   float64
	Creates       int
	Drops         int
	Failed        int
	Duration      time.Duration
}

// Tuner encapsulates one tuning process: evaluators generate choices, a
// selector turns them into an operation sequence bounded by the budget, and
// the tuner applies the sequence to the system. Passes are not reentrant;
// at most one runs at a time.
type Tuner struct {
	evaluators []Evaluator
	selector   Selector
	config     Config

	running atomic.Bool
}

// NewTuner creates a tuner with the given selector and configuration.
func NewTuner(selector Selector, config Config) *Tuner {
	return &Tuner{selector: selector, config: config}
}

// AddEvaluator registers an evaluator for subsequent passes.
func (t *Tuner) AddEvaluator(e Evaluator) {
	t.evaluators = append(t.evaluators, e)
}

// Execute runs a single tuning pass: evaluate, select, apply. Apply errors
// are logged and the remaining operations still run; the next pass
// reconverges. The pass is cancellable between operations only.
func (t *Tuner) Execute(ctx context.Context) (Report, error) {
	if !t.running.CompareAndSwap(false, true) {
		return Report{}, ErrPassInProgress
	}
	defer t.running.Store(false)

	start := time.Now()
	report := Report{PassID: uuid.NewString()}

	evalCtx := ctx
	if t.config.EvaluateTimeBudget > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, t.config.EvaluateTimeBudget)
		defer cancel()
	}

	var choices []Choice
	for _, evaluator := range t.evaluators {
		evaluated, err := evaluator.Evaluate(evalCtx)
		if err != nil {
			return report, errors.Wrap(err, "evaluate")
		}
		choices = append(choices, evaluated...)
		if stats, ok := evaluator.(EvaluatorStats); ok {
			report.AccessRecords += stats.AccessRecordCount()
			report.Candidates += stats.CandidateCount()
		}
	}
	report.Choices = len(choices)
	for _, c := range choices {
		if c.IsCurrentlyChosen() {
			report.MemoryBefore += c.Cost()
		}
	}
	report.MemoryAfter = report.MemoryBefore

	operations := t.selector.Select(choices, t.config.MemoryBudget)

	for _, op := range operations {
		if err := ctx.Err(); err != nil {
			// cancelled between operations; the catalog stays consistent
			report.Duration = time.Since(start)
			t.logReport(report, len(operations))
			return report, errors.Wrap(err, "pass cancelled")
		}
		structural, _ := op.(StructuralOperation)
		if structural != nil {
			utils.Logger().Info("applying tuning operation",
				zap.String("pass_id", report.PassID),
				zap.String("operation", fmt.Sprintf("%v", op)),
				zap.Bool("create", structural.Create()),
				zap.Float64("memory_mib", structural.CostEstimate()),
			)
		}
		if err := op.Execute(ctx); err != nil {
			report.Failed++
			utils.Errorf("tuning operation failed: %v", err)
			continue
		}
		if structural != nil {
			if structural.Create() {
				report.Creates++
				report.MemoryAfter += structural.CostEstimate()
			} else {
				report.Drops++
				report.MemoryAfter -= structural.CostEstimate()
			}
		}
	}

	report.Duration = time.Since(start)
	t.logReport(report, len(operations))
	return report, nil
}

func (t *Tuner) logReport(r Report, operations int) {
	utils.Logger().Info("tuning pass finished",
		zap.String("pass_id", r.PassID),
		zap.Int("access_records", r.AccessRecords),
		zap.Int("candidates", r.Candidates),
		zap.Int("choices", r.Choices),
		zap.Int("operations", operations),
		zap.Int("creates", r.Creates),
		zap.Int("drops", r.Drops),
		zap.Int("failed", r.Failed),
		zap.Float64("memory_before_mib", r.MemoryBefore),
		zap.Float64("memory_after_mib", r.MemoryAfter),
		zap.Duration("duration", r.Duration),
	)
}
