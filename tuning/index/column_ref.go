package index

import (
	"fmt"
	"strings"

	"github.com/adi64/hyrise/plan"
	"github.com/adi64/hyrise/storage"
)

// ColumnRef references an indexable key: a table name plus the ordered
// column ids the key consists of. Identity is structural; two refs over the
// same table and column sequence denote the same key regardless of where
// they were produced.
type ColumnRef struct {
	TableName string
	ColumnIDs []storage.ColumnID
}

// NewColumnRef creates a single-column ref.
func NewColumnRef(tableName string, columnID storage.ColumnID) ColumnRef {
	return ColumnRef{TableName: tableName, ColumnIDs: []storage.ColumnID{columnID}}
}

// Key returns the structural identity of the ref, usable as a map key.
func (r ColumnRef) Key() string {
	ids := make([]string, len(r.ColumnIDs))
	for i, id := range r.ColumnIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s[%s]", r.TableName, strings.Join(ids, ","))
}

// Equal reports structural equality.
func (r ColumnRef) Equal(other ColumnRef) bool {
	if r.TableName != other.TableName || len(r.ColumnIDs) != len(other.ColumnIDs) {
		return false
	}
	for i := range r.ColumnIDs {
		if r.ColumnIDs[i] != other.ColumnIDs[i] {
			return false
		}
	}
	return true
}

func (r ColumnRef) String() string { return r.Key() }

// AccessRecord captures one indexable column access found in a cached
// query plan: the column, the predicate shape, and how often the plan was
// executed according to the cache.
type AccessRecord struct {
	ColumnRef      ColumnRef
	Condition      plan.PredicateCondition
	CompareValue   storage.Value
	UpperValue     storage.Value // set for BETWEEN
	QueryFrequency uint64
}
