package plan

import (
	"github.com/adi64/hyrise/storage"
)

// NodeID addresses a node within a plan arena. Plans are DAGs of integer
// ids; nodes never hold pointers to each other.
type NodeID int32

// InvalidNode marks an absent input or an unresolvable reference.
const InvalidNode NodeID = -1

// LogicalNodeType tags a logical plan node.
type LogicalNodeType int

const (
	LogicalStoredTable LogicalNodeType = iota
	LogicalPredicate
	LogicalProjection
	LogicalJoin
	LogicalAggregate
	LogicalSort
	LogicalLimit
)

func (t LogicalNodeType) String() string {
	switch t {
	case LogicalStoredTable:
		return "StoredTable"
	case LogicalPredicate:
		return "Predicate"
	case LogicalProjection:
		return "Projection"
	case LogicalJoin:
		return "Join"
	case LogicalAggregate:
		return "Aggregate"
	case LogicalSort:
		return "Sort"
	case LogicalLimit:
		return "Limit"
	}
	return "Unknown"
}

// ColumnExpression references a column by the node that produces it.
// OriginalNode is InvalidNode for synthesized expressions (computed columns,
// aggregates), in which case the reference cannot be resolved to a base
// table column.
type ColumnExpression struct {
	OriginalNode NodeID
	ColumnID     storage.ColumnID
	Name         string
}

// IsResolved reports whether the expression points back at a producing node.
func (c ColumnExpression) IsResolved() bool { return c.OriginalNode != InvalidNode }

// LogicalNode is one tagged variant of a logical plan. Only the fields of
// the node's type are meaningful.
type LogicalNode struct {
	Type  LogicalNodeType
	Left  NodeID
	Right NodeID

	// StoredTable
	TableName string

	// Predicate
	Column        ColumnExpression
	Condition     PredicateCondition
	Value         storage.Value
	UpperValue    storage.Value // BETWEEN upper bound
	ValueIsColumn bool          // the right side is a column, not a literal
}

// LogicalPlan is an arena of logical nodes.
type LogicalPlan struct {
	nodes []LogicalNode
	Root  NodeID
}

// NewLogicalPlan creates an empty plan.
func NewLogicalPlan() *LogicalPlan {
	return &LogicalPlan{Root: InvalidNode}
}

// Add appends a node to the arena and returns its id.
func (p *LogicalPlan) Add(n LogicalNode) NodeID {
	p.nodes = append(p.nodes, n)
	return NodeID(len(p.nodes) - 1)
}

// Node returns the node with the given id.
func (p *LogicalPlan) Node(id NodeID) *LogicalNode {
	return &p.nodes[id]
}

// Len returns the number of nodes in the arena.
func (p *LogicalPlan) Len() int { return len(p.nodes) }
