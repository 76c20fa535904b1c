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
	"strings"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
)

// Aggregate groups its input by the group-by expressions and evaluates
// aggregate calls per group. Output schema is the group keys followed by
// the aggregate columns. An empty group list is a simple (global)
// aggregate producing exactly one row.
type Aggregate struct {
	groupBy []sql.Expression
	aggs    []sql.Expression
	child   sql.Node
}

// NewAggregate creates an aggregate node. Aggs items are AggCalls,
// possibly wrapped in aliases.
func NewAggregate(groupBy, aggs []sql.Expression, child sql.Node) *Aggregate {
	return &Aggregate{groupBy: groupBy, aggs: aggs, child: child}
}

// GroupBy returns the grouping expressions.
func (a *Aggregate) GroupBy() []sql.Expression { return a.groupBy }

// Aggs returns the aggregate call expressions.
func (a *Aggregate) Aggs() []sql.Expression { return a.aggs }

// Child returns the input node.
func (a *Aggregate) Child() sql.Node { return a.child }

// Simple reports whether this is a global aggregate without group keys.
func (a *Aggregate) Simple() bool { return len(a.groupBy) == 0 }

func (a *Aggregate) Schema() sql.Schema {
	childSchema := a.child.Schema()
	schema := make(sql.Schema, 0, len(a.groupBy)+len(a.aggs))
	for _, e := range a.groupBy {
		schema = append(schema, projectedColumn(e, childSchema))
	}
	for _, e := range a.aggs {
		col := projectedColumn(e, childSchema)
		// an aggregate over no rows yields NULL for everything but count
		schema = append(schema, col)
	}
	return schema
}

func (a *Aggregate) Children() []sql.Node { return []sql.Node{a.child} }

func (a *Aggregate) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), 1)
	}
	return NewAggregate(a.groupBy, a.aggs, children[0]), nil
}

func (a *Aggregate) Expressions() []sql.Expression {
	exprs := make([]sql.Expression, 0, len(a.groupBy)+len(a.aggs))
	exprs = append(exprs, a.groupBy...)
	exprs = append(exprs, a.aggs...)
	return exprs
}

func (a *Aggregate) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != len(a.groupBy)+len(a.aggs) {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(exprs), len(a.groupBy)+len(a.aggs))
	}
	return NewAggregate(exprs[:len(a.groupBy)], exprs[len(a.groupBy):], a.child), nil
}

// GroupKeyIndices returns the child column indices of the group keys that
// are plain references; non-reference keys yield -1.
func (a *Aggregate) GroupKeyIndices() []int {
	idx := make([]int, len(a.groupBy))
	for i, e := range a.groupBy {
		if ref, ok := expression.Unalias(e).(*expression.InputRef); ok {
			idx[i] = ref.Index()
		} else {
			idx[i] = -1
		}
	}
	return idx
}

// FuncDeps: the group key is a candidate key of the output.
func (a *Aggregate) FuncDeps() *sql.FuncDepSet {
	if a.Simple() {
		return sql.NewFuncDepSet()
	}
	key := make([]int, len(a.groupBy))
	for i := range a.groupBy {
		key[i] = i
	}
	return sql.NewFuncDepSet(key)
}

func (a *Aggregate) String() string {
	groups := make([]string, len(a.groupBy))
	for i, e := range a.groupBy {
		groups[i] = e.String()
	}
	aggs := make([]string, len(a.aggs))
	for i, e := range a.aggs {
		aggs[i] = e.String()
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Aggregate { group: [%s], aggs: [%s] }",
		strings.Join(groups, ", "), strings.Join(aggs, ", "))
	_ = p.WriteChildren(a.child.String())
	return p.String()
}
