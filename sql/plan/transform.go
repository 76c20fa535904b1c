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

package plan

import (
	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
)

// TransformUp rewrites the plan bottom-up with f, sharing unchanged
// subtrees.
func TransformUp(node sql.Node, f func(sql.Node) (sql.Node, error)) (sql.Node, error) {
	children := node.Children()
	if len(children) > 0 {
		newChildren := make([]sql.Node, len(children))
		changed := false
		for i, c := range children {
			nc, err := TransformUp(c, f)
			if err != nil {
				return nil, err
			}
			if nc != c {
				changed = true
			}
			newChildren[i] = nc
		}
		if changed {
			var err error
			node, err = node.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
		}
	}
	return f(node)
}

// Inspect walks the plan top-down calling f on every node; returning false
// prunes the subtree.
func Inspect(node sql.Node, f func(sql.Node) bool) {
	if !f(node) {
		return
	}
	for _, c := range node.Children() {
		Inspect(c, f)
	}
}

// TransformExpressionsUp rewrites every expression of every node in the
// plan, bottom-up.
func TransformExpressionsUp(node sql.Node, f func(sql.Expression) (sql.Expression, error)) (sql.Node, error) {
	return TransformUp(node, func(n sql.Node) (sql.Node, error) {
		ex, ok := n.(sql.Expressioner)
		if !ok {
			return n, nil
		}
		exprs := ex.Expressions()
		if len(exprs) == 0 {
			return n, nil
		}
		newExprs := make([]sql.Expression, len(exprs))
		changed := false
		for i, e := range exprs {
			ne, err := expression.TransformUp(e, f)
			if err != nil {
				return nil, err
			}
			if ne != e {
				changed = true
			}
			newExprs[i] = ne
		}
		if !changed {
			return n, nil
		}
		return ex.WithExpressions(newExprs...)
	})
}
