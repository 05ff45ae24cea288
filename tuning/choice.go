package tuning

import "context"

// Choice represents a possible system modification with a certain
// performance impact coming at a cost. Choices are produced by Evaluators
// and accepted or rejected by a Selector while it generates the operation
// sequence for a pass.
type Choice interface {
	// Desirability is a signed estimate of the performance impact of this
	// modification. Values below zero indicate an expected degradation.
	// Values are only comparable among choices from compatible evaluators.
	Desirability() float64

	// Confidence reports how certain the producing evaluator was when
	// generating this choice. It is used only to break desirability ties.
	Confidence() float64

	// Cost is an estimate of the absolute cost of this modification,
	// counted against the selector's budget. All evaluators feeding one
	// selector must use the same cost measure.
	Cost() float64

	// IsCurrentlyChosen reports whether the modification is already present
	// in the current system state.
	IsCurrentlyChosen() bool

	// Invalidates lists choices that must not be accepted once this choice
	// is accepted.
	Invalidates() []Choice

	// Accept returns an operation making this modification present. For an
	// already chosen modification it returns a NullOperation.
	Accept() Operation

	// Reject returns an operation removing this modification. For a
	// modification that is not present it returns a NullOperation.
	Reject() Operation
}

// Evaluator produces the scored choices of one tuning pass. The context
// carries the evaluation phase's soft time budget; an evaluator that runs
// out of time returns what it has gathered so far.
type Evaluator interface {
	Evaluate(ctx context.Context) ([]Choice, error)
}

// Selector turns scored choices into an ordered operation sequence that
// never exceeds the cost budget.
type Selector interface {
	Select(choices []Choice, budget float64) []Operation
}
