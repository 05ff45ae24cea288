package index

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/adi64/hyrise/statistics"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/tuning"
)

// CacheInvalidator evicts cached plans after a structural change. Cached
// plans may reference the changed index set and would otherwise go stale.
type CacheInvalidator interface {
	Clear()
}

// TuningContext bundles the engine surfaces the index tuning components
// work against. It is threaded explicitly through evaluators and
// operations; there is no process-wide instance.
type TuningContext struct {
	Catalog    *storage.Catalog
	Statistics statistics.Oracle
	// Cache is the plan cache the evaluator walks. It is expected to
	// expose values in GDFS-priority order; an opaque cache makes the
	// pass a no-op.
	Cache interface{}
	// Invalidator is notified after every applied operation. Optional.
	Invalidator CacheInvalidator
}

// IndexOperation creates or drops one index through the catalog.
type IndexOperation struct {
	ColumnRef  ColumnRef
	Type       storage.IndexType
	CreateFlag bool

	memoryCost float64
	env        *TuningContext
}

var _ tuning.StructuralOperation = (*IndexOperation)(nil)

// Execute applies the operation to the catalog and, on success, clears the
// whole plan cache through the invalidator.
func (op *IndexOperation) Execute(ctx context.Context) error {
	if op.env == nil || op.env.Catalog == nil {
		return errors.Errorf("index operation %v has no catalog", op)
	}
	var err error
	if op.CreateFlag {
		err = op.env.Catalog.CreateIndex(ctx, op.ColumnRef.TableName, op.ColumnRef.ColumnIDs, op.Type)
	} else {
		err = op.env.Catalog.DropIndex(op.ColumnRef.TableName, op.ColumnRef.ColumnIDs, op.Type)
	}
	if err != nil {
		return errors.Wrapf(err, "apply %v", op)
	}
	if op.env.Invalidator != nil {
		op.env.Invalidator.Clear()
	}
	return nil
}

// Create reports whether the operation creates (true) or drops (false).
func (op *IndexOperation) Create() bool { return op.CreateFlag }

// CostEstimate returns the memory cost in MiB the operation adds or frees.
func (op *IndexOperation) CostEstimate() float64 { return op.memoryCost }

func (op *IndexOperation) String() string {
	verb := "Drop"
	if op.CreateFlag {
		verb = "Create"
	}
	return fmt.Sprintf("IndexOperation{%s %v index on %v}", verb, op.Type, op.ColumnRef)
}
