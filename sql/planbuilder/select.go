// Copyright 2021 Rivulet Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package planbuilder

import (
	"math"
	"reflect"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/plan"
)

var joinTypes = map[ast.JoinType]plan.JoinType{
	ast.InnerJoin:      plan.InnerJoin,
	ast.LeftOuterJoin:  plan.LeftOuterJoin,
	ast.RightOuterJoin: plan.RightOuterJoin,
	ast.FullOuterJoin:  plan.FullOuterJoin,
}

func (b *Builder) buildSelect(ctx *sql.Context, stmt *ast.Select) (sql.Node, *scope, error) {
	if len(stmt.From) == 0 {
		return nil, nil, b.notImplemented("SELECT without FROM")
	}

	// FROM: a comma list becomes inner joins on TRUE; pushdown later pulls
	// WHERE equi-conjuncts into the join conditions.
	var node sql.Node
	var sc *scope
	for i, item := range stmt.From {
		n, s, err := b.buildFromItem(ctx, item)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			node, sc = n, s
		} else {
			node = plan.NewJoin(node, n, plan.InnerJoin, nil)
			sc = sc.merge(s)
		}
	}

	if stmt.Where != nil {
		cond, err := b.bindExpr(ctx, sc, stmt.Where, aggForbiddenInWhere)
		if err != nil {
			return nil, nil, err
		}
		if cond, err = expression.FoldConstants(cond); err != nil {
			return nil, nil, err
		}
		node = plan.NewFilter(cond, node)
	}

	aggASTs := collectAggCalls(stmt.Items)
	var items []sql.Expression
	var err error
	if len(stmt.GroupBy) > 0 || len(aggASTs) > 0 {
		node, items, err = b.buildAggregate(ctx, sc, node, stmt, aggASTs)
	} else {
		items, err = b.bindItems(ctx, sc, stmt.Items)
	}
	if err != nil {
		return nil, nil, err
	}

	node = plan.NewProject(items, node)
	outScope := scopeOf(node, "")

	if len(stmt.OrderBy) > 0 || stmt.Limit != nil {
		order := make(sql.SortFields, len(stmt.OrderBy))
		for i, o := range stmt.OrderBy {
			col, err := b.bindExpr(ctx, outScope, o.Expr, aggForbiddenInWhere)
			if err != nil {
				return nil, nil, err
			}
			order[i] = sql.SortField{Column: col, Descending: o.Descending}
		}
		limit := int64(math.MaxInt64)
		if stmt.Limit != nil {
			limit = *stmt.Limit
		}
		var offset int64
		if stmt.Offset != nil {
			offset = *stmt.Offset
		}
		node = plan.NewTopN(order, limit, offset, node)
	}

	return node, outScope, nil
}

func (b *Builder) buildFromItem(ctx *sql.Context, item ast.FromItem) (sql.Node, *scope, error) {
	switch item := item.(type) {
	case *ast.TableRef:
		table, err := b.catalog.Table(item.Table)
		if err != nil {
			return nil, nil, err
		}
		name := item.Table
		if item.Alias != "" {
			name = item.Alias
		}
		scan := plan.NewScan(table, ctx.IDs().NextScanOrdinal())
		return scan, scopeOf(scan, name), nil

	case *ast.Join:
		left, ls, err := b.buildFromItem(ctx, item.Left)
		if err != nil {
			return nil, nil, err
		}
		right, rs, err := b.buildFromItem(ctx, item.Right)
		if err != nil {
			return nil, nil, err
		}
		merged := ls.merge(rs)
		var on sql.Expression
		if item.On != nil {
			if on, err = b.bindExpr(ctx, merged, item.On, aggForbiddenInWhere); err != nil {
				return nil, nil, err
			}
			if on, err = expression.FoldConstants(on); err != nil {
				return nil, nil, err
			}
		}
		return plan.NewJoin(left, right, joinTypes[item.Type], on), merged, nil

	default:
		return nil, nil, b.notImplemented("unsupported FROM item")
	}
}

func (b *Builder) bindItems(ctx *sql.Context, sc *scope, items []ast.SelectItem) ([]sql.Expression, error) {
	bound := make([]sql.Expression, len(items))
	for i, item := range items {
		e, err := b.bindExpr(ctx, sc, item.Expr, aggAllowed)
		if err != nil {
			return nil, err
		}
		if e, err = expression.FoldConstants(e); err != nil {
			return nil, err
		}
		if item.Alias != "" {
			e = expression.NewAlias(item.Alias, e)
		}
		bound[i] = e
	}
	return bound, nil
}

// collectAggCalls returns the distinct aggregate calls of the select list,
// in first-appearance order.
func collectAggCalls(items []ast.SelectItem) []*ast.Call {
	var calls []*ast.Call
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		switch e := e.(type) {
		case *ast.Call:
			if _, ok := expression.AggKindFromName(e.Name); ok {
				for _, seen := range calls {
					if reflect.DeepEqual(seen, e) {
						return
					}
				}
				calls = append(calls, e)
				return
			}
			for _, a := range e.Args {
				walk(a)
			}
		case *ast.BinaryOp:
			walk(e.Left)
			walk(e.Right)
		case *ast.UnaryOp:
			walk(e.Operand)
		case *ast.CastExpr:
			walk(e.Operand)
		}
	}
	for _, item := range items {
		walk(item.Expr)
	}
	return calls
}

// buildAggregate plans the GROUP BY / aggregate part of a select and
// rebinds the select items over the aggregate's output.
func (b *Builder) buildAggregate(ctx *sql.Context, sc *scope, child sql.Node, stmt *ast.Select, aggASTs []*ast.Call) (sql.Node, []sql.Expression, error) {
	groupASTs := stmt.GroupBy
	groupBound := make([]sql.Expression, len(groupASTs))
	for i, g := range groupASTs {
		e, err := b.bindExpr(ctx, sc, g, aggForbiddenInGroupBy)
		if err != nil {
			return nil, nil, err
		}
		groupBound[i] = e
	}

	// a column determined by the group key may be grouped implicitly (pk
	// grouping); anything else ungrouped is left for the validation rule
	extra := ungroupedColumnRefs(stmt.Items, groupASTs)
	if len(extra) > 0 {
		keyIdx := make([]int, 0, len(groupBound))
		allRefs := true
		for _, g := range groupBound {
			if ref, ok := expression.Unalias(g).(*expression.InputRef); ok {
				keyIdx = append(keyIdx, ref.Index())
			} else {
				allRefs = false
			}
		}
		if allRefs && len(keyIdx) > 0 && childKeys(child).Determines(keyIdx) {
			for _, e := range extra {
				bound, err := b.bindExpr(ctx, sc, e, aggForbiddenInGroupBy)
				if err != nil {
					return nil, nil, err
				}
				groupASTs = append(groupASTs, e)
				groupBound = append(groupBound, bound)
			}
		}
	}

	aggBound := make([]sql.Expression, len(aggASTs))
	for i, call := range aggASTs {
		agg, err := b.bindAggCall(ctx, sc, call)
		if err != nil {
			return nil, nil, err
		}
		aggBound[i] = agg
	}

	aggNode := plan.NewAggregate(groupBound, aggBound, child)
	aggSchema := aggNode.Schema()

	items := make([]sql.Expression, len(stmt.Items))
	for i, item := range stmt.Items {
		e, err := b.bindPostAgg(ctx, sc, aggSchema, groupASTs, aggASTs, item.Expr)
		if err != nil {
			return nil, nil, err
		}
		if e, err = expression.FoldConstants(e); err != nil {
			return nil, nil, err
		}
		if item.Alias != "" {
			e = expression.NewAlias(item.Alias, e)
		}
		items[i] = e
	}
	return aggNode, items, nil
}

func childKeys(n sql.Node) *sql.FuncDepSet {
	if fd, ok := n.(plan.FuncDepser); ok {
		return fd.FuncDeps()
	}
	return sql.NewFuncDepSet()
}

// ungroupedColumnRefs finds plain column references in the select list
// that are outside aggregates and not in the group list.
func ungroupedColumnRefs(items []ast.SelectItem, groupASTs []ast.Expr) []ast.Expr {
	var out []ast.Expr
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		for _, g := range groupASTs {
			if reflect.DeepEqual(g, e) {
				return
			}
		}
		switch e := e.(type) {
		case *ast.ColumnRef:
			for _, seen := range out {
				if reflect.DeepEqual(seen, e) {
					return
				}
			}
			out = append(out, e)
		case *ast.Call:
			if _, ok := expression.AggKindFromName(e.Name); ok {
				return
			}
			for _, a := range e.Args {
				walk(a)
			}
		case *ast.BinaryOp:
			walk(e.Left)
			walk(e.Right)
		case *ast.UnaryOp:
			walk(e.Operand)
		case *ast.CastExpr:
			walk(e.Operand)
		}
	}
	for _, item := range items {
		walk(item.Expr)
	}
	return out
}

// bindPostAgg binds a select item over the aggregate output: group
// expressions and aggregate calls become references into the aggregate
// schema, anything else ungrouped becomes an UngroupedColumn placeholder.
func (b *Builder) bindPostAgg(ctx *sql.Context, pre *scope, aggSchema sql.Schema, groupASTs []ast.Expr, aggASTs []*ast.Call, e ast.Expr) (sql.Expression, error) {
	for i, g := range groupASTs {
		if reflect.DeepEqual(g, e) {
			col := aggSchema[i]
			return expression.NewInputRef(i, col.Type, col.Name, col.Nullable), nil
		}
	}
	if call, ok := e.(*ast.Call); ok {
		for j, a := range aggASTs {
			if reflect.DeepEqual(a, call) {
				idx := len(groupASTs) + j
				col := aggSchema[idx]
				return expression.NewInputRef(idx, col.Type, col.Name, col.Nullable), nil
			}
		}
	}
	switch e := e.(type) {
	case *ast.ColumnRef:
		bound, err := b.bindExpr(ctx, pre, e, aggForbiddenInGroupBy)
		if err != nil {
			return nil, err
		}
		return expression.NewUngroupedColumn(bound.(*expression.InputRef)), nil
	case *ast.Literal:
		return b.bindExpr(ctx, emptyScope(), e, aggForbiddenInGroupBy)
	case *ast.BinaryOp:
		kind, ok := binaryOps[e.Op]
		if !ok {
			return nil, b.notImplemented("unsupported operator: " + e.Op)
		}
		left, err := b.bindPostAgg(ctx, pre, aggSchema, groupASTs, aggASTs, e.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.bindPostAgg(ctx, pre, aggSchema, groupASTs, aggASTs, e.Right)
		if err != nil {
			return nil, err
		}
		return expression.NewFunctionCall(kind, left, right)
	case *ast.UnaryOp:
		operand, err := b.bindPostAgg(ctx, pre, aggSchema, groupASTs, aggASTs, e.Operand)
		if err != nil {
			return nil, err
		}
		if e.Op == "-" {
			return expression.NewFunctionCall(expression.Neg, operand)
		}
		return expression.NewFunctionCall(expression.Not, operand)
	case *ast.Call:
		kind, ok := expression.ScalarFuncByName(e.Name)
		if !ok {
			return nil, b.notImplemented("unsupported function: " + "\"" + e.Name + "\"")
		}
		args := make([]sql.Expression, len(e.Args))
		for i, a := range e.Args {
			arg, err := b.bindPostAgg(ctx, pre, aggSchema, groupASTs, aggASTs, a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return expression.NewFunctionCall(kind, args...)
	case *ast.CastExpr:
		operand, err := b.bindPostAgg(ctx, pre, aggSchema, groupASTs, aggASTs, e.Operand)
		if err != nil {
			return nil, err
		}
		return expression.NewCast(operand, e.Type), nil
	default:
		return nil, b.notImplemented("unsupported expression in aggregation")
	}
}
