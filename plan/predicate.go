package plan

import (
	"strings"

	"github.com/adi64/hyrise/storage"
)

// PredicateCondition enumerates the comparison operators a predicate or
// table scan can carry.
type PredicateCondition int

const (
	ConditionInvalid PredicateCondition = iota
	ConditionEquals
	ConditionNotEquals
	ConditionLessThan
	ConditionLessThanEquals
	ConditionGreaterThan
	ConditionGreaterThanEquals
	ConditionBetween
	ConditionLike
	ConditionIsNull
)

func (c PredicateCondition) String() string {
	switch c {
	case ConditionEquals:
		return "="
	case ConditionNotEquals:
		return "!="
	case ConditionLessThan:
		return "<"
	case ConditionLessThanEquals:
		return "<="
	case ConditionGreaterThan:
		return ">"
	case ConditionGreaterThanEquals:
		return ">="
	case ConditionBetween:
		return "BETWEEN"
	case ConditionLike:
		return "LIKE"
	case ConditionIsNull:
		return "IS NULL"
	}
	return "invalid"
}

// IndexApplicable reports whether an index over the column can serve the
// condition with the given compare value. IS NULL probes and LIKE patterns
// with a leading wildcard cannot be answered from an index.
func (c PredicateCondition) IndexApplicable(compareValue storage.Value) bool {
	switch c {
	case ConditionLike:
		return !strings.HasPrefix(compareValue.Str, "%") && !strings.HasPrefix(compareValue.Str, "_")
	case ConditionIsNull, ConditionInvalid:
		return false
	}
	return true
}
