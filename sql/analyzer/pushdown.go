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
)

// pushdownFilters splits AND-conjuncts of every filter and moves each one
// as far down as it stays valid: through projections, into a join side, or
// into an inner join's condition.
func pushdownFilters(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error) {
	return plan.TransformUp(node, func(n sql.Node) (sql.Node, error) {
		filter, ok := n.(*plan.Filter)
		if !ok {
			return n, nil
		}
		conjuncts := splitConjuncts(filter.Condition())
		child := filter.Child()
		var remaining []sql.Expression
		changed := false
		for _, c := range conjuncts {
			pushed, ok, err := pushConjunct(c, child)
			if err != nil {
				return nil, err
			}
			if ok {
				child = pushed
				changed = true
			} else {
				remaining = append(remaining, c)
			}
		}
		if !changed {
			return n, nil
		}
		if len(remaining) == 0 {
			return child, nil
		}
		cond, err := joinConjuncts(remaining)
		if err != nil {
			return nil, err
		}
		return plan.NewFilter(cond, child), nil
	})
}

// pushConjunct tries to move one conjunct below the node. The boolean is
// false when the conjunct has to stay above.
func pushConjunct(c sql.Expression, node sql.Node) (sql.Node, bool, error) {
	switch node := node.(type) {
	case *plan.Filter:
		merged, err := joinConjuncts(append(splitConjuncts(node.Condition()), c))
		if err != nil {
			return nil, false, err
		}
		return plan.NewFilter(merged, node.Child()), true, nil

	case *plan.Project:
		rewritten, ok, err := rewriteThroughProject(c, node)
		if err != nil || !ok {
			return nil, false, err
		}
		return plan.NewProject(node.Projections(),
			plan.NewFilter(rewritten, node.Child())), true, nil

	case *plan.Union:
		// union branches share the schema, so the conjunct applies to each
		children := node.Children()
		filtered := make([]sql.Node, len(children))
		for i, child := range children {
			filtered[i] = plan.NewFilter(c, child)
		}
		nn, err := node.WithChildren(filtered...)
		return nn, err == nil, err

	case *plan.Join:
		if node.JoinType() != plan.InnerJoin {
			return nil, false, nil
		}
		leftWidth := len(node.Left().Schema())
		refs := exprRefs(c)
		allLeft, allRight := true, true
		for _, r := range refs {
			if r >= leftWidth {
				allLeft = false
			} else {
				allRight = false
			}
		}
		switch {
		case allLeft && len(refs) > 0:
			nj, err := node.WithChildren(plan.NewFilter(c, node.Left()), node.Right())
			return nj, err == nil, err
		case allRight && len(refs) > 0:
			rebased, err := rebaseRefs(c, -leftWidth)
			if err != nil {
				return nil, false, err
			}
			nj, err := node.WithChildren(node.Left(), plan.NewFilter(rebased, node.Right()))
			return nj, err == nil, err
		default:
			// a cross-side conjunct joins into the condition
			on := node.Condition()
			var err error
			if on == nil || plan.AlwaysTrue(on) {
				on = c
			} else {
				on, err = joinConjuncts([]sql.Expression{on, c})
				if err != nil {
					return nil, false, err
				}
			}
			return plan.NewJoin(node.Left(), node.Right(), node.JoinType(), on), true, nil
		}

	default:
		return nil, false, nil
	}
}

// rewriteThroughProject maps the conjunct's references through projection
// items onto the projection input. Only plain column references pass
// through; a conjunct over a computed item stays above.
func rewriteThroughProject(c sql.Expression, p *plan.Project) (sql.Expression, bool, error) {
	items := p.Projections()
	ok := true
	rewritten, err := expression.TransformUp(c, func(e sql.Expression) (sql.Expression, error) {
		ref, isRef := e.(*expression.InputRef)
		if !isRef {
			return e, nil
		}
		if ref.Index() >= len(items) {
			ok = false
			return e, nil
		}
		under, isUnder := expression.Unalias(items[ref.Index()]).(*expression.InputRef)
		if !isUnder {
			ok = false
			return e, nil
		}
		return ref.WithIndex(under.Index()), nil
	})
	if err != nil {
		return nil, false, err
	}
	return rewritten, ok, nil
}

// splitConjuncts flattens a tree of ANDs into its conjuncts.
func splitConjuncts(e sql.Expression) []sql.Expression {
	if call, ok := e.(*expression.FunctionCall); ok && call.Kind() == expression.And {
		args := call.Args()
		return append(splitConjuncts(args[0]), splitConjuncts(args[1])...)
	}
	return []sql.Expression{e}
}

// joinConjuncts rebuilds a single predicate from conjuncts.
func joinConjuncts(conjuncts []sql.Expression) (sql.Expression, error) {
	out := conjuncts[0]
	for _, c := range conjuncts[1:] {
		var err error
		out, err = expression.NewFunctionCall(expression.And, out, c)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// exprRefs returns the referenced input columns, in first-use order.
func exprRefs(e sql.Expression) []int {
	var refs []int
	expression.Inspect(e, func(e sql.Expression) bool {
		if ref, ok := e.(*expression.InputRef); ok {
			refs = append(refs, ref.Index())
		}
		return true
	})
	return refs
}

// rebaseRefs shifts every reference by delta.
func rebaseRefs(e sql.Expression, delta int) (sql.Expression, error) {
	return expression.TransformUp(e, func(e sql.Expression) (sql.Expression, error) {
		if ref, ok := e.(*expression.InputRef); ok {
			return ref.WithIndex(ref.Index() + delta), nil
		}
		return e, nil
	})
}
