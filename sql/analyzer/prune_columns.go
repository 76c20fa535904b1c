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
	"sort"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/plan"
)

// pruneColumns drives the required-column set from the sink down and drops
// everything unused, rewriting reference indices on the way back up. The
// rule is idempotent: a pruned plan prunes to itself.
func pruneColumns(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error) {
	pruned, _, err := pruneNode(node, fullSet(len(node.Schema())))
	return pruned, err
}

type colSet map[int]struct{}

func fullSet(n int) colSet {
	s := make(colSet, n)
	for i := 0; i < n; i++ {
		s[i] = struct{}{}
	}
	return s
}

func (s colSet) add(i int)       { s[i] = struct{}{} }
func (s colSet) has(i int) bool  { _, ok := s[i]; return ok }
func (s colSet) sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func addRefs(s colSet, exprs ...sql.Expression) {
	for _, e := range exprs {
		if e == nil {
			continue
		}
		expression.Inspect(e, func(e sql.Expression) bool {
			if ref, ok := e.(*expression.InputRef); ok {
				s.add(ref.Index())
			}
			return true
		})
	}
}

// keepMap builds the old-to-new column map for a kept subset.
func keepMap(width int, kept []int) *expression.ColumnMap {
	targets := make([]int, width)
	for i := range targets {
		targets[i] = -1
	}
	for newIdx, oldIdx := range kept {
		targets[oldIdx] = newIdx
	}
	return expression.NewColumnMap(targets)
}

// pruneNode prunes the subtree to the columns the parent requires and
// returns the node together with the map from its old output schema to the
// new one.
func pruneNode(n sql.Node, req colSet) (sql.Node, *expression.ColumnMap, error) {
	switch n := n.(type) {
	case *plan.Scan:
		width := len(n.Schema())
		kept := req.sorted()
		if len(kept) == 0 {
			kept = []int{0}
		}
		if len(kept) == width {
			return n, expression.IdentityMap(width), nil
		}
		tableCols := make([]int, len(kept))
		for i, k := range kept {
			tableCols[i] = n.Columns()[k]
		}
		return plan.NewScanWithColumns(n.Table(), tableCols, n.Ordinal()), keepMap(width, kept), nil

	case *plan.Values:
		return n, expression.IdentityMap(len(n.Schema())), nil

	case *plan.Project:
		width := len(n.Projections())
		kept := req.sorted()
		if len(kept) == 0 {
			kept = []int{0}
		}
		items := make([]sql.Expression, len(kept))
		for i, k := range kept {
			items[i] = n.Projections()[k]
		}
		childReq := make(colSet)
		addRefs(childReq, items...)
		child, childMap, err := pruneNode(n.Child(), childReq)
		if err != nil {
			return nil, nil, err
		}
		items, err = childMap.ApplyAll(items)
		if err != nil {
			return nil, nil, err
		}
		return plan.NewProject(items, child), keepMap(width, kept), nil

	case *plan.Filter:
		childReq := make(colSet)
		for i := range req {
			childReq.add(i)
		}
		addRefs(childReq, n.Condition())
		child, childMap, err := pruneNode(n.Child(), childReq)
		if err != nil {
			return nil, nil, err
		}
		cond, err := childMap.Apply(n.Condition())
		if err != nil {
			return nil, nil, err
		}
		return plan.NewFilter(cond, child), childMap, nil

	case *plan.TopN:
		childReq := make(colSet)
		for i := range req {
			childReq.add(i)
		}
		for _, f := range n.Order() {
			addRefs(childReq, f.Column)
		}
		child, childMap, err := pruneNode(n.Child(), childReq)
		if err != nil {
			return nil, nil, err
		}
		order := make(sql.SortFields, len(n.Order()))
		for i, f := range n.Order() {
			col, err := childMap.Apply(f.Column)
			if err != nil {
				return nil, nil, err
			}
			order[i] = sql.SortField{Column: col, Descending: f.Descending}
		}
		return plan.NewTopN(order, n.Limit(), n.Offset(), child), childMap, nil

	case *plan.Join:
		leftWidth := len(n.Left().Schema())
		width := leftWidth + len(n.Right().Schema())
		leftReq, rightReq := make(colSet), make(colSet)
		needed := make(colSet)
		for i := range req {
			needed.add(i)
		}
		addRefs(needed, n.Condition())
		el, er := n.EquiKeys()
		for _, k := range el {
			needed.add(k)
		}
		for _, k := range er {
			needed.add(k + leftWidth)
		}
		for i := range needed {
			if i < leftWidth {
				leftReq.add(i)
			} else {
				rightReq.add(i - leftWidth)
			}
		}
		left, leftMap, err := pruneNode(n.Left(), leftReq)
		if err != nil {
			return nil, nil, err
		}
		right, rightMap, err := pruneNode(n.Right(), rightReq)
		if err != nil {
			return nil, nil, err
		}
		newLeftWidth := len(left.Schema())
		targets := make([]int, width)
		for i := range targets {
			if i < leftWidth {
				t, ok := leftMap.Map(i)
				if !ok {
					t = -1
				}
				targets[i] = t
			} else {
				t, ok := rightMap.Map(i - leftWidth)
				if !ok {
					targets[i] = -1
				} else {
					targets[i] = t + newLeftWidth
				}
			}
		}
		jointMap := expression.NewColumnMap(targets)
		var cond sql.Expression
		if n.Condition() != nil {
			if cond, err = jointMap.Apply(n.Condition()); err != nil {
				return nil, nil, err
			}
		}
		nj := plan.NewJoin(left, right, n.JoinType(), cond)
		if len(el) > 0 {
			nel := make([]int, len(el))
			ner := make([]int, len(er))
			for i := range el {
				if nel[i], err = leftMap.MustMap(el[i]); err != nil {
					return nil, nil, err
				}
				if ner[i], err = rightMap.MustMap(er[i]); err != nil {
					return nil, nil, err
				}
			}
			nj = nj.WithEquiKeys(nel, ner, cond)
		}
		return nj, jointMap, nil

	case *plan.Union:
		// pruning one branch would have to prune all of them identically;
		// keep union schemas whole instead
		children := n.Children()
		newChildren := make([]sql.Node, len(children))
		for i, c := range children {
			nc, _, err := pruneNode(c, fullSet(len(c.Schema())))
			if err != nil {
				return nil, nil, err
			}
			newChildren[i] = nc
		}
		nn, err := n.WithChildren(newChildren...)
		if err != nil {
			return nil, nil, err
		}
		return nn, expression.IdentityMap(len(n.Schema())), nil

	case *plan.Aggregate:
		groups := n.GroupBy()
		aggs := n.Aggs()
		width := len(groups) + len(aggs)
		// group keys are the output key and always survive
		var keptAggs []int
		for j := range aggs {
			if req.has(len(groups) + j) {
				keptAggs = append(keptAggs, j)
			}
		}
		if len(groups) == 0 && len(keptAggs) == 0 {
			keptAggs = []int{0}
		}
		childReq := make(colSet)
		addRefs(childReq, groups...)
		for _, j := range keptAggs {
			addRefs(childReq, aggs[j])
		}
		child, childMap, err := pruneNode(n.Child(), childReq)
		if err != nil {
			return nil, nil, err
		}
		newGroups, err := childMap.ApplyAll(groups)
		if err != nil {
			return nil, nil, err
		}
		newAggs := make([]sql.Expression, len(keptAggs))
		for i, j := range keptAggs {
			if newAggs[i], err = childMap.Apply(aggs[j]); err != nil {
				return nil, nil, err
			}
		}
		targets := make([]int, width)
		for i := range targets {
			targets[i] = -1
		}
		for i := range groups {
			targets[i] = i
		}
		for newJ, oldJ := range keptAggs {
			targets[len(groups)+oldJ] = len(groups) + newJ
		}
		return plan.NewAggregate(newGroups, newAggs, child),
			expression.NewColumnMap(targets), nil

	default:
		// sinks and DML keep their child whole
		children := n.Children()
		if len(children) == 0 {
			return n, expression.IdentityMap(len(n.Schema())), nil
		}
		newChildren := make([]sql.Node, len(children))
		for i, c := range children {
			nc, _, err := pruneNode(c, fullSet(len(c.Schema())))
			if err != nil {
				return nil, nil, err
			}
			newChildren[i] = nc
		}
		nn, err := n.WithChildren(newChildren...)
		if err != nil {
			return nil, nil, err
		}
		return nn, expression.IdentityMap(len(n.Schema())), nil
	}
}

// eraseIdentityProject removes projections that pass their input through
// unchanged, name for name.
func eraseIdentityProject(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error) {
	return plan.TransformUp(node, func(n sql.Node) (sql.Node, error) {
		p, ok := n.(*plan.Project)
		if !ok {
			return n, nil
		}
		childSchema := p.Child().Schema()
		if len(p.Projections()) != len(childSchema) {
			return n, nil
		}
		for i, item := range p.Projections() {
			ref, ok := item.(*expression.InputRef)
			if !ok || ref.Index() != i {
				return n, nil
			}
			if ref.Name() != "" && ref.Name() != childSchema[i].Name {
				return n, nil
			}
		}
		return p.Child(), nil
	})
}
