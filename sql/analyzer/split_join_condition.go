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

// splitJoinCondition separates a join's ON condition into equi-key pairs
// usable by hash join and a residual predicate.
func splitJoinCondition(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error) {
	return plan.TransformUp(node, func(n sql.Node) (sql.Node, error) {
		j, ok := n.(*plan.Join)
		if !ok || j.Condition() == nil {
			return n, nil
		}
		if el, _ := j.EquiKeys(); len(el) > 0 {
			// already split
			return n, nil
		}
		leftWidth := len(j.Left().Schema())
		var equiLeft, equiRight []int
		var residual []sql.Expression
		for _, c := range splitConjuncts(j.Condition()) {
			l, r, ok := equiPair(c, leftWidth)
			if ok {
				equiLeft = append(equiLeft, l)
				equiRight = append(equiRight, r)
			} else {
				residual = append(residual, c)
			}
		}
		if len(equiLeft) == 0 {
			return n, nil
		}
		var res sql.Expression
		if len(residual) > 0 {
			var err error
			if res, err = joinConjuncts(residual); err != nil {
				return nil, err
			}
		}
		return j.WithEquiKeys(equiLeft, equiRight, res), nil
	})
}

// equiPair matches `left_col = right_col` across the join boundary and
// returns the side-local key indices.
func equiPair(c sql.Expression, leftWidth int) (int, int, bool) {
	call, ok := c.(*expression.FunctionCall)
	if !ok || call.Kind() != expression.Equal {
		return 0, 0, false
	}
	lref, lok := call.Args()[0].(*expression.InputRef)
	rref, rok := call.Args()[1].(*expression.InputRef)
	if !lok || !rok {
		return 0, 0, false
	}
	l, r := lref.Index(), rref.Index()
	if l >= leftWidth {
		l, r = r, l
	}
	if l < leftWidth && r >= leftWidth {
		return l, r - leftWidth, true
	}
	return 0, 0, false
}
