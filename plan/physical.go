package plan

import (
	"github.com/adi64/hyrise/storage"
)

// PhysicalNodeType tags a physical operator node.
type PhysicalNodeType int

const (
	PhysicalGetTable PhysicalNodeType = iota
	PhysicalTableScan
	PhysicalValidate
	PhysicalProject
	PhysicalHashJoin
	PhysicalAggregate
	PhysicalSort
	PhysicalLimit
)

func (t PhysicalNodeType) String() string {
	switch t {
	case PhysicalGetTable:
		return "GetTable"
	case PhysicalTableScan:
		return "TableScan"
	case PhysicalValidate:
		return "Validate"
	case PhysicalProject:
		return "Project"
	case PhysicalHashJoin:
		return "HashJoin"
	case PhysicalAggregate:
		return "Aggregate"
	case PhysicalSort:
		return "Sort"
	case PhysicalLimit:
		return "Limit"
	}
	return "Unknown"
}

// PhysicalNode is one tagged variant of a physical plan.
type PhysicalNode struct {
	Type       PhysicalNodeType
	InputLeft  NodeID
	InputRight NodeID

	// GetTable
	TableName string

	// TableScan
	LeftColumnID   storage.ColumnID
	Condition      PredicateCondition
	RightParameter storage.Value
	RightUpper     storage.Value // BETWEEN upper bound
	RightIsColumn  bool
}

// PhysicalPlan is an arena of physical operator nodes.
type PhysicalPlan struct {
	nodes []PhysicalNode
	Root  NodeID
}

// NewPhysicalPlan creates an empty plan.
func NewPhysicalPlan() *PhysicalPlan {
	return &PhysicalPlan{Root: InvalidNode}
}

// Add appends a node to the arena and returns its id.
func (p *PhysicalPlan) Add(n PhysicalNode) NodeID {
	p.nodes = append(p.nodes, n)
	return NodeID(len(p.nodes) - 1)
}

// Node returns the node with the given id.
func (p *PhysicalPlan) Node(id NodeID) *PhysicalNode {
	return &p.nodes[id]
}

// Len returns the number of nodes in the arena.
func (p *PhysicalPlan) Len() int { return len(p.nodes) }
