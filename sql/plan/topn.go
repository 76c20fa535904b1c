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
)

// TopN keeps the first Limit rows of its input under the given order,
// after skipping Offset rows. It is the only operator that consumes order.
type TopN struct {
	order  sql.SortFields
	limit  int64
	offset int64
	child  sql.Node
}

// NewTopN creates a top-n node.
func NewTopN(order sql.SortFields, limit, offset int64, child sql.Node) *TopN {
	return &TopN{order: order, limit: limit, offset: offset, child: child}
}

// Order returns the sort keys.
func (t *TopN) Order() sql.SortFields { return t.order }

// Limit returns the row limit.
func (t *TopN) Limit() int64 { return t.limit }

// Offset returns the number of leading rows skipped.
func (t *TopN) Offset() int64 { return t.offset }

// Child returns the input node.
func (t *TopN) Child() sql.Node { return t.child }

func (t *TopN) Schema() sql.Schema { return t.child.Schema() }

func (t *TopN) Children() []sql.Node { return []sql.Node{t.child} }

func (t *TopN) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(t, len(children), 1)
	}
	return NewTopN(t.order, t.limit, t.offset, children[0]), nil
}

func (t *TopN) Expressions() []sql.Expression {
	exprs := make([]sql.Expression, len(t.order))
	for i, f := range t.order {
		exprs[i] = f.Column
	}
	return exprs
}

func (t *TopN) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != len(t.order) {
		return nil, sql.ErrInvalidChildrenNumber.New(t, len(exprs), len(t.order))
	}
	order := make(sql.SortFields, len(t.order))
	for i, f := range t.order {
		order[i] = sql.SortField{Column: exprs[i], Descending: f.Descending}
	}
	return NewTopN(order, t.limit, t.offset, t.child), nil
}

func (t *TopN) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("TopN { order: %s, limit: %d, offset: %d }", t.order, t.limit, t.offset)
	_ = p.WriteChildren(t.child.String())
	return p.String()
}
