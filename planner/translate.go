package planner

import (
	"github.com/adi64/hyrise/plan"
)

// TranslatePhysical lowers a logical plan to its physical operator form.
// StoredTable becomes GetTable, Predicate becomes TableScan. When withMVCC
// is set a Validate operator is placed between every scan and its GetTable,
// matching the shape the executor runs under transaction visibility; the
// tuner requires plans translated without it.
func TranslatePhysical(logical *plan.LogicalPlan, withMVCC bool) *plan.PhysicalPlan {
	pp := plan.NewPhysicalPlan()
	if logical.Root == plan.InvalidNode {
		return pp
	}
	translated := make(map[plan.NodeID]plan.NodeID, logical.Len())
	pp.Root = translateNode(logical, pp, logical.Root, withMVCC, translated)
	return pp
}

func translateNode(lp *plan.LogicalPlan, pp *plan.PhysicalPlan, id plan.NodeID, withMVCC bool, translated map[plan.NodeID]plan.NodeID) plan.NodeID {
	if id == plan.InvalidNode {
		return plan.InvalidNode
	}
	if done, ok := translated[id]; ok {
		return done
	}
	node := lp.Node(id)
	left := translateNode(lp, pp, node.Left, withMVCC, translated)
	right := translateNode(lp, pp, node.Right, withMVCC, translated)

	var out plan.NodeID
	switch node.Type {
	case plan.LogicalStoredTable:
		out = pp.Add(plan.PhysicalNode{
			Type:       plan.PhysicalGetTable,
			InputLeft:  plan.InvalidNode,
			InputRight: plan.InvalidNode,
			TableName:  node.TableName,
		})
		if withMVCC {
			out = pp.Add(plan.PhysicalNode{
				Type:       plan.PhysicalValidate,
				InputLeft:  out,
				InputRight: plan.InvalidNode,
			})
		}
	case plan.LogicalPredicate:
		out = pp.Add(plan.PhysicalNode{
			Type:           plan.PhysicalTableScan,
			InputLeft:      left,
			InputRight:     plan.InvalidNode,
			LeftColumnID:   node.Column.ColumnID,
			Condition:      node.Condition,
			RightParameter: node.Value,
			RightUpper:     node.UpperValue,
			RightIsColumn:  node.ValueIsColumn || !node.Column.IsResolved(),
		})
	case plan.LogicalProjection:
		out = pp.Add(plan.PhysicalNode{Type: plan.PhysicalProject, InputLeft: left, InputRight: right})
	case plan.LogicalJoin:
		out = pp.Add(plan.PhysicalNode{Type: plan.PhysicalHashJoin, InputLeft: left, InputRight: right})
	case plan.LogicalAggregate:
		out = pp.Add(plan.PhysicalNode{Type: plan.PhysicalAggregate, InputLeft: left, InputRight: right})
	case plan.LogicalSort:
		out = pp.Add(plan.PhysicalNode{Type: plan.PhysicalSort, InputLeft: left, InputRight: right})
	case plan.LogicalLimit:
		out = pp.Add(plan.PhysicalNode{Type: plan.PhysicalLimit, InputLeft: left, InputRight: right})
	default:
		out = left
	}
	translated[id] = out
	return out
}
