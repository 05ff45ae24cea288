package index

import (
	"fmt"

	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/tuning"
)

// IndexChoice contains the characteristics of one particular index as
// recognized by an evaluator: either a live index (Exists) or a proposal.
type IndexChoice struct {
	// ColumnRef is the key the index covers.
	ColumnRef ColumnRef

	// SavedWork is the signed, workload-weighted estimate of how the index
	// affects overall performance. Values are only comparable among choices
	// produced by the same evaluator.
	SavedWork float64

	// Exists reports whether the index is live in the catalog.
	Exists bool

	// Type is the measured type of a live index, or the proposed type of a
	// new one.
	Type storage.IndexType

	// MemoryCost is the index memory in MiB: measured over all chunks for
	// a live index, predicted assuming an equal value distribution for a
	// proposal.
	MemoryCost float64

	// EvaluatorConfidence is the producing evaluator's confidence in this
	// choice, used by the selector only as a tie-breaker.
	EvaluatorConfidence float64

	invalidates []tuning.Choice
	env         *TuningContext
}

var _ tuning.Choice = (*IndexChoice)(nil)

func (c *IndexChoice) Desirability() float64 { return c.SavedWork }

func (c *IndexChoice) Confidence() float64 { return c.EvaluatorConfidence }

func (c *IndexChoice) Cost() float64 { return c.MemoryCost }

func (c *IndexChoice) IsCurrentlyChosen() bool { return c.Exists }

func (c *IndexChoice) Invalidates() []tuning.Choice { return c.invalidates }

// AddInvalidate marks another choice as mutually exclusive with this one.
func (c *IndexChoice) AddInvalidate(other tuning.Choice) {
	c.invalidates = append(c.invalidates, other)
}

// Accept returns the operation making this index live. For an index that
// already exists this is a NullOperation.
func (c *IndexChoice) Accept() tuning.Operation {
	if c.Exists {
		return tuning.NullOperation{}
	}
	return &IndexOperation{
		ColumnRef:  c.ColumnRef,
		Type:       c.Type,
		CreateFlag: true,
		memoryCost: c.MemoryCost,
		env:        c.env,
	}
}

// Reject returns the operation removing this index. For an index that does
// not exist this is a NullOperation.
func (c *IndexChoice) Reject() tuning.Operation {
	if !c.Exists {
		return tuning.NullOperation{}
	}
	return &IndexOperation{
		ColumnRef:  c.ColumnRef,
		Type:       c.Type,
		CreateFlag: false,
		memoryCost: c.MemoryCost,
		env:        c.env,
	}
}

func (c *IndexChoice) String() string {
	return fmt.Sprintf("IndexChoice{%v %v saved_work: %.1f, memory: %.2f MiB, exists: %t}",
		c.ColumnRef, c.Type, c.SavedWork, c.MemoryCost, c.Exists)
}
