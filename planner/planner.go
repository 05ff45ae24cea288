package planner

import (
	"github.com/pingcap/parser"
	"github.com/pingcap/parser/ast"
	"github.com/pingcap/parser/opcode"
	"github.com/pkg/errors"

	"github.com/pingcap/tidb/types"
	driver "github.com/pingcap/tidb/types/parser_driver"

	"github.com/adi64/hyrise/plan"
	"github.com/adi64/hyrise/storage"
	"github.com/adi64/hyrise/utils"
)

// ParseOneSQL parses the given statement text and returns the AST.
func ParseOneSQL(sqlText string) (ast.StmtNode, error) {
	p := parser.New()
	stmt, err := p.ParseOneStmt(sqlText, "", "")
	return stmt, errors.Wrapf(err, "parse %q", sqlText)
}

// Builder turns SELECT statements into logical plan arenas over the
// catalog's tables.
type Builder struct {
	catalog *storage.Catalog
}

// NewBuilder creates a plan builder over the given catalog.
func NewBuilder(catalog *storage.Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// BuildLogicalPlan parses a SELECT statement and builds its logical plan:
// stored tables at the leaves, one predicate node per WHERE conjunct,
// aggregate/sort/projection stacked on top.
func (b *Builder) BuildLogicalPlan(sqlText string) (*plan.LogicalPlan, error) {
	stmt, err := ParseOneSQL(sqlText)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok {
		return nil, errors.Errorf("only SELECT statements are planned, got %T", stmt)
	}
	if sel.From == nil {
		return nil, errors.New("SELECT without FROM is not planned")
	}

	lp := plan.NewLogicalPlan()

	tables, root, err := b.buildFrom(lp, sel.From.TableRefs)
	if err != nil {
		return nil, err
	}

	if sel.Where != nil {
		root, err = b.buildWhere(lp, tables, root, sel.Where)
		if err != nil {
			return nil, err
		}
	} else {
		root = joinAll(lp, tables)
	}

	if sel.GroupBy != nil {
		root = lp.Add(plan.LogicalNode{Type: plan.LogicalAggregate, Left: root, Right: plan.InvalidNode})
	}
	if sel.OrderBy != nil {
		root = lp.Add(plan.LogicalNode{Type: plan.LogicalSort, Left: root, Right: plan.InvalidNode})
	}
	if sel.Limit != nil {
		root = lp.Add(plan.LogicalNode{Type: plan.LogicalLimit, Left: root, Right: plan.InvalidNode})
	}
	if sel.Fields != nil && !selectsStar(sel.Fields) {
		root = lp.Add(plan.LogicalNode{Type: plan.LogicalProjection, Left: root, Right: plan.InvalidNode})
	}

	lp.Root = root
	return lp, nil
}

func selectsStar(fields *ast.FieldList) bool {
	for _, f := range fields.Fields {
		if f.WildCard != nil {
			return true
		}
	}
	return false
}

// tableEntry tracks where a table's subtree currently ends, so predicates
// can be stacked above it.
type tableEntry struct {
	name      string
	tableNode plan.NodeID // the StoredTable leaf
	top       plan.NodeID // current top of this table's chain
}

// buildFrom resolves the FROM clause into one StoredTable leaf per table and
// returns the first table's chain; joinAll later joins the chains left-deep.
func (b *Builder) buildFrom(lp *plan.LogicalPlan, refs *ast.Join) ([]*tableEntry, plan.NodeID, error) {
	var tables []*tableEntry
	var walk func(node ast.ResultSetNode) error
	walk = func(node ast.ResultSetNode) error {
		switch x := node.(type) {
		case *ast.Join:
			if err := walk(x.Left); err != nil {
				return err
			}
			if x.Right != nil {
				return walk(x.Right)
			}
			return nil
		case *ast.TableSource:
			return walk(x.Source)
		case *ast.TableName:
			name := x.Name.L
			if _, err := b.catalog.Table(name); err != nil {
				return err
			}
			id := lp.Add(plan.LogicalNode{
				Type:      plan.LogicalStoredTable,
				Left:      plan.InvalidNode,
				Right:     plan.InvalidNode,
				TableName: name,
			})
			tables = append(tables, &tableEntry{name: name, tableNode: id, top: id})
			return nil
		}
		return errors.Errorf("unsupported FROM element %T", node)
	}
	if err := walk(refs); err != nil {
		return nil, plan.InvalidNode, err
	}
	if len(tables) == 0 {
		return nil, plan.InvalidNode, errors.New("FROM resolves no tables")
	}
	return tables, tables[0].top, nil
}

// joinAll combines the per-table chains left-deep after predicates are
// placed on their tables.
func joinAll(lp *plan.LogicalPlan, tables []*tableEntry) plan.NodeID {
	root := tables[0].top
	for _, t := range tables[1:] {
		root = lp.Add(plan.LogicalNode{Type: plan.LogicalJoin, Left: root, Right: t.top})
	}
	return root
}

// buildWhere splits the WHERE clause into conjuncts and stacks one
// predicate node per conjunct above the table it references.
func (b *Builder) buildWhere(lp *plan.LogicalPlan, tables []*tableEntry, root plan.NodeID, where ast.ExprNode) (plan.NodeID, error) {
	conjuncts := splitConjuncts(where)
	for _, expr := range conjuncts {
		if err := b.buildPredicate(lp, tables, expr); err != nil {
			return plan.InvalidNode, err
		}
	}
	return joinAll(lp, tables), nil
}

func splitConjuncts(expr ast.ExprNode) []ast.ExprNode {
	if bin, ok := expr.(*ast.BinaryOperationExpr); ok && bin.Op == opcode.LogicAnd {
		return append(splitConjuncts(bin.L), splitConjuncts(bin.R)...)
	}
	return []ast.ExprNode{expr}
}

// buildPredicate turns one conjunct into a predicate node when it has the
// column-op-literal shape. Column-op-column conjuncts are recorded with
// ValueIsColumn so downstream consumers can skip them; conjuncts that do
// not reference a resolvable column produce an unresolved expression node.
func (b *Builder) buildPredicate(lp *plan.LogicalPlan, tables []*tableEntry, expr ast.ExprNode) error {
	switch x := expr.(type) {
	case *ast.BinaryOperationExpr:
		cond, ok := conditionFromOpcode(x.Op)
		if !ok {
			utils.Debugf("skipping WHERE conjunct with operator %v", x.Op)
			return nil
		}
		leftCol, leftIsCol := x.L.(*ast.ColumnNameExpr)
		rightCol, rightIsCol := x.R.(*ast.ColumnNameExpr)
		switch {
		case leftIsCol && rightIsCol:
			entry, colExpr := b.resolveColumn(lp, tables, leftCol.Name.Name.L)
			b.stackPredicate(lp, entry, tables, plan.LogicalNode{
				Type:          plan.LogicalPredicate,
				Column:        colExpr,
				Condition:     cond,
				ValueIsColumn: true,
			})
		case leftIsCol:
			value, ok := literalValue(x.R)
			if !ok {
				utils.Debugf("skipping WHERE conjunct: right side is not a literal")
				return nil
			}
			entry, colExpr := b.resolveColumn(lp, tables, leftCol.Name.Name.L)
			b.stackPredicate(lp, entry, tables, plan.LogicalNode{
				Type:      plan.LogicalPredicate,
				Column:    colExpr,
				Condition: cond,
				Value:     value,
			})
		case rightIsCol:
			value, ok := literalValue(x.L)
			if !ok {
				utils.Debugf("skipping WHERE conjunct: left side is not a literal")
				return nil
			}
			entry, colExpr := b.resolveColumn(lp, tables, rightCol.Name.Name.L)
			b.stackPredicate(lp, entry, tables, plan.LogicalNode{
				Type:      plan.LogicalPredicate,
				Column:    colExpr,
				Condition: mirrorCondition(cond),
				Value:     value,
			})
		default:
			// expression-op-expression: no indexable column reference
			b.stackPredicate(lp, nil, tables, plan.LogicalNode{
				Type:      plan.LogicalPredicate,
				Column:    plan.ColumnExpression{OriginalNode: plan.InvalidNode},
				Condition: cond,
			})
		}
		return nil
	case *ast.BetweenExpr:
		col, ok := x.Expr.(*ast.ColumnNameExpr)
		if !ok || x.Not {
			return nil
		}
		lower, okL := literalValue(x.Left)
		upper, okU := literalValue(x.Right)
		if !okL || !okU {
			return nil
		}
		entry, colExpr := b.resolveColumn(lp, tables, col.Name.Name.L)
		b.stackPredicate(lp, entry, tables, plan.LogicalNode{
			Type:       plan.LogicalPredicate,
			Column:     colExpr,
			Condition:  plan.ConditionBetween,
			Value:      lower,
			UpperValue: upper,
		})
		return nil
	case *ast.PatternLikeExpr:
		col, ok := x.Expr.(*ast.ColumnNameExpr)
		if !ok || x.Not {
			return nil
		}
		pattern, okP := literalValue(x.Pattern)
		if !okP {
			return nil
		}
		entry, colExpr := b.resolveColumn(lp, tables, col.Name.Name.L)
		b.stackPredicate(lp, entry, tables, plan.LogicalNode{
			Type:      plan.LogicalPredicate,
			Column:    colExpr,
			Condition: plan.ConditionLike,
			Value:     pattern,
		})
		return nil
	case *ast.IsNullExpr:
		col, ok := x.Expr.(*ast.ColumnNameExpr)
		if !ok || x.Not {
			return nil
		}
		entry, colExpr := b.resolveColumn(lp, tables, col.Name.Name.L)
		b.stackPredicate(lp, entry, tables, plan.LogicalNode{
			Type:      plan.LogicalPredicate,
			Column:    colExpr,
			Condition: plan.ConditionIsNull,
			Value:     storage.NullValue(),
		})
		return nil
	}
	utils.Debugf("skipping WHERE conjunct of shape %T", expr)
	return nil
}

// resolveColumn finds the table producing the named column. Unresolvable
// names yield an unresolved expression, which the plan walker skips.
func (b *Builder) resolveColumn(lp *plan.LogicalPlan, tables []*tableEntry, columnName string) (*tableEntry, plan.ColumnExpression) {
	for _, entry := range tables {
		t, err := b.catalog.Table(entry.name)
		if err != nil {
			continue
		}
		if id, ok := t.ColumnIDByName(columnName); ok {
			return entry, plan.ColumnExpression{
				OriginalNode: entry.tableNode,
				ColumnID:     id,
				Name:         columnName,
			}
		}
	}
	return nil, plan.ColumnExpression{OriginalNode: plan.InvalidNode, Name: columnName}
}

// stackPredicate places the predicate above its table's chain, or above the
// first table when the column did not resolve.
func (b *Builder) stackPredicate(lp *plan.LogicalPlan, entry *tableEntry, tables []*tableEntry, node plan.LogicalNode) {
	if entry == nil {
		entry = tables[0]
	}
	node.Left = entry.top
	node.Right = plan.InvalidNode
	entry.top = lp.Add(node)
}

func conditionFromOpcode(op opcode.Op) (plan.PredicateCondition, bool) {
	switch op {
	case opcode.EQ:
		return plan.ConditionEquals, true
	case opcode.NE:
		return plan.ConditionNotEquals, true
	case opcode.LT:
		return plan.ConditionLessThan, true
	case opcode.LE:
		return plan.ConditionLessThanEquals, true
	case opcode.GT:
		return plan.ConditionGreaterThan, true
	case opcode.GE:
		return plan.ConditionGreaterThanEquals, true
	}
	return plan.ConditionInvalid, false
}

// mirrorCondition flips a comparison whose column sits on the right side.
func mirrorCondition(c plan.PredicateCondition) plan.PredicateCondition {
	switch c {
	case plan.ConditionLessThan:
		return plan.ConditionGreaterThan
	case plan.ConditionLessThanEquals:
		return plan.ConditionGreaterThanEquals
	case plan.ConditionGreaterThan:
		return plan.ConditionLessThan
	case plan.ConditionGreaterThanEquals:
		return plan.ConditionLessThanEquals
	}
	return c
}

// literalValue extracts a literal from a value expression.
func literalValue(expr ast.ExprNode) (storage.Value, bool) {
	ve, ok := expr.(*driver.ValueExpr)
	if !ok {
		return storage.Value{}, false
	}
	switch v := ve.GetValue().(type) {
	case int64:
		return storage.Int64Value(v), true
	case uint64:
		return storage.Int64Value(int64(v)), true
	case float64:
		return storage.Float64Value(v), true
	case *types.MyDecimal:
		f, err := v.ToFloat64()
		if err != nil {
			return storage.Value{}, false
		}
		return storage.Float64Value(f), true
	case string:
		return storage.StringValue(v), true
	case nil:
		return storage.NullValue(), true
	}
	return storage.Value{}, false
}
