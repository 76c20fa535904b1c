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

package analyzer

import (
	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/plan"
	"github.com/rivuletdata/rivulet/sql/types"
)

// splitAvg rewrites avg(x) into sum(x)/count(x) so the aggregate
// distributes, and pre-projects non-trivial aggregate arguments so every
// aggregate consumes a plain column. The division is computed over
// explicit casts: Decimal for exact types, Float64 for floats.
func splitAvg(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error) {
	return plan.TransformUp(node, func(n sql.Node) (sql.Node, error) {
		p, ok := n.(*plan.Project)
		if !ok {
			return n, nil
		}
		agg, ok := p.Child().(*plan.Aggregate)
		if !ok {
			return n, nil
		}
		return rewriteAggregate(p, agg)
	})
}

func rewriteAggregate(p *plan.Project, agg *plan.Aggregate) (sql.Node, error) {
	child := agg.Child()
	childSchema := child.Schema()

	needsWork := false
	for _, e := range agg.Aggs() {
		call, ok := expression.Unalias(e).(*expression.AggCall)
		if !ok {
			continue
		}
		if call.Kind() == expression.AggAvg {
			needsWork = true
		}
		for _, arg := range call.Args() {
			if _, ok := arg.(*expression.InputRef); !ok {
				needsWork = true
			}
		}
	}
	if !needsWork {
		return p, nil
	}

	// pre-project computed arguments behind the child's columns
	preItems := make([]sql.Expression, 0, len(childSchema))
	for i, col := range childSchema {
		preItems = append(preItems, expression.NewInputRef(i, col.Type, col.Name, col.Nullable))
	}
	argRef := func(arg sql.Expression) sql.Expression {
		if _, ok := arg.(*expression.InputRef); ok {
			return arg
		}
		for i, item := range preItems[len(childSchema):] {
			if expression.Equals(item, arg) {
				return expression.NewInputRef(len(childSchema)+i, arg.Type(), "", arg.Nullable())
			}
		}
		preItems = append(preItems, arg)
		return expression.NewInputRef(len(preItems)-1, arg.Type(), "", arg.Nullable())
	}

	groups := agg.GroupBy()
	// newAggs is the rewritten call list; replacements maps each original
	// aggregate output to an expression over the new aggregate schema
	var newAggs []sql.Expression
	replacements := make([]sql.Expression, len(agg.Aggs()))

	addCall := func(call *expression.AggCall) int {
		for i, existing := range newAggs {
			if expression.Equals(existing, call) {
				return i
			}
		}
		newAggs = append(newAggs, call)
		return len(newAggs) - 1
	}

	for j, e := range agg.Aggs() {
		call, ok := expression.Unalias(e).(*expression.AggCall)
		if !ok {
			return nil, sql.ErrInternal.New("non-aggregate expression in aggregate list")
		}
		args := make([]sql.Expression, len(call.Args()))
		for i, arg := range call.Args() {
			args[i] = argRef(arg)
		}

		if call.Kind() != expression.AggAvg {
			nc, err := expression.NewAggCall(call.Kind(), call.Distinct(), args...)
			if err != nil {
				return nil, err
			}
			idx := addCall(nc)
			replacements[j] = expression.NewInputRef(len(groups)+idx, nc.Type(), "", nc.Nullable())
			continue
		}

		sumCall, err := expression.NewAggCall(expression.AggSum, call.Distinct(), args...)
		if err != nil {
			return nil, err
		}
		countCall, err := expression.NewAggCall(expression.AggCount, call.Distinct(), args...)
		if err != nil {
			return nil, err
		}
		sumIdx := addCall(sumCall)
		countIdx := addCall(countCall)

		divType := types.Decimal
		if call.Type().Equals(types.Float64) {
			divType = types.Float64
		}
		sumRef := expression.NewInputRef(len(groups)+sumIdx, sumCall.Type(), "", sumCall.Nullable())
		countRef := expression.NewInputRef(len(groups)+countIdx, countCall.Type(), "", countCall.Nullable())
		div, err := expression.NewFunctionCall(expression.Divide,
			expression.EnsureType(sumRef, divType),
			expression.EnsureType(countRef, divType))
		if err != nil {
			return nil, err
		}
		replacements[j] = div
	}

	if len(preItems) > len(childSchema) {
		child = plan.NewProject(preItems, child)
		// group keys reference the identity prefix and stay valid
	}
	newAgg := plan.NewAggregate(groups, newAggs, child)

	// substitute the replacements into the projection items
	items := make([]sql.Expression, len(p.Projections()))
	for i, item := range p.Projections() {
		ni, err := expression.TransformUp(item, func(e sql.Expression) (sql.Expression, error) {
			ref, ok := e.(*expression.InputRef)
			if !ok || ref.Index() < len(groups) {
				return e, nil
			}
			return replacements[ref.Index()-len(groups)], nil
		})
		if err != nil {
			return nil, err
		}
		items[i] = ni
	}
	return plan.NewProject(items, newAgg), nil
}
