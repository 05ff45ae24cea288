package tuning

import "context"

// Operation is one step of a tuning pass's output sequence.
type Operation interface {
	Execute(ctx context.Context) error
}

// StructuralOperation is implemented by operations that change the live
// index set. The tuner uses it for its per-pass accounting.
type StructuralOperation interface {
	Operation
	Create() bool
	CostEstimate() float64
}

// NullOperation does nothing. Accepting an already chosen choice or
// rejecting an absent one yields it.
type NullOperation struct{}

// Execute is a no-op.
func (NullOperation) Execute(context.Context) error { return nil }

// IsNull reports whether the operation is a NullOperation.
func IsNull(op Operation) bool {
	_, ok := op.(NullOperation)
	return ok
}
