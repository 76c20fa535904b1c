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

// foldConstants re-folds expressions the other rules may have produced.
func foldConstants(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error) {
	return plan.TransformUp(node, func(n sql.Node) (sql.Node, error) {
		ex, ok := n.(sql.Expressioner)
		if !ok {
			return n, nil
		}
		exprs := ex.Expressions()
		folded := make([]sql.Expression, len(exprs))
		changed := false
		for i, e := range exprs {
			fe, err := expression.FoldConstants(e)
			if err != nil {
				return nil, err
			}
			if fe != e {
				changed = true
			}
			folded[i] = fe
		}
		if !changed {
			return n, nil
		}
		return ex.WithExpressions(folded...)
	})
}

// validateGroupBy rejects plans still carrying a projected column of a
// GROUP BY query that is neither a grouping key nor aggregated.
func validateGroupBy(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error) {
	var found bool
	plan.Inspect(node, func(n sql.Node) bool {
		ex, ok := n.(sql.Expressioner)
		if !ok {
			return true
		}
		for _, e := range ex.Expressions() {
			expression.Inspect(e, func(e sql.Expression) bool {
				if _, ok := e.(*expression.UngroupedColumn); ok {
					found = true
					return false
				}
				return true
			})
		}
		return !found
	})
	if found {
		return nil, sql.ErrColumnNotInGroupBy.New()
	}
	return node, nil
}
