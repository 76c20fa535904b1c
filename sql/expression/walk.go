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

package expression

import (
	"github.com/rivuletdata/rivulet/sql"
)

// Visitor visits expression nodes. If Visit returns nil the children are
// skipped.
type Visitor interface {
	Visit(e sql.Expression) Visitor
}

// Walk traverses the expression tree in depth-first order.
func Walk(v Visitor, e sql.Expression) {
	if v = v.Visit(e); v == nil {
		return
	}
	for _, child := range e.Children() {
		Walk(v, child)
	}
}

type inspector func(sql.Expression) bool

func (f inspector) Visit(e sql.Expression) Visitor {
	if f(e) {
		return f
	}
	return nil
}

// Inspect walks the tree calling f on every node; f returning false prunes
// that subtree.
func Inspect(e sql.Expression, f func(sql.Expression) bool) {
	Walk(inspector(f), e)
}

// TransformUp rewrites the tree bottom-up with f. Unchanged subtrees are
// shared, not copied.
func TransformUp(e sql.Expression, f func(sql.Expression) (sql.Expression, error)) (sql.Expression, error) {
	children := e.Children()
	if len(children) > 0 {
		newChildren := make([]sql.Expression, len(children))
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
			e, err = e.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
		}
	}
	return f(e)
}
