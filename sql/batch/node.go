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

// Package batch lowers optimized logical plans into distributed batch
// plans with explicit exchanges.
package batch

import (
	"fmt"
	"strings"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/plan"
)

// Node is a batch physical plan node.
type Node interface {
	fmt.Stringer
	// ID is the stable operator id within the compilation.
	ID() sql.OperatorID
	// Schema is the output schema.
	Schema() sql.Schema
	// Distribution is the partitioning of the node's output.
	Distribution() sql.Distribution
	// Children returns the inputs, left to right.
	Children() []Node
}

type base struct {
	id     sql.OperatorID
	schema sql.Schema
	dist   sql.Distribution
}

func newBase(ctx *sql.Context, schema sql.Schema, dist sql.Distribution) base {
	return base{id: ctx.IDs().NextOperatorID(), schema: schema, dist: dist}
}

func (b *base) ID() sql.OperatorID             { return b.id }
func (b *base) Schema() sql.Schema             { return b.schema }
func (b *base) Distribution() sql.Distribution { return b.dist }

func schemaNames(s sql.Schema) string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.DisplayName()
	}
	return strings.Join(names, ", ")
}

func exprList(exprs []sql.Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Scan reads a table partition-parallel; its initial distribution is
// unconstrained.
type Scan struct {
	base
	Table   *sql.Table
	Columns []int
}

// NewScan lowers a logical scan.
func NewScan(ctx *sql.Context, s *plan.Scan) *Scan {
	return &Scan{
		base:    newBase(ctx, s.Schema(), sql.AnyDist()),
		Table:   s.Table(),
		Columns: append([]int(nil), s.Columns()...),
	}
}

func (s *Scan) Children() []Node { return nil }

func (s *Scan) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchScan { table: %s, columns: [%s] }", s.Table.Name, schemaNames(s.schema))
	return p.String()
}

// Exchange redistributes its input. Order is non-empty only when the
// consumer requires sorted input.
type Exchange struct {
	base
	Order sql.SortFields
	child Node
}

// NewExchange creates an exchange enforcing the given distribution.
func NewExchange(ctx *sql.Context, child Node, dist sql.Distribution, order sql.SortFields) *Exchange {
	return &Exchange{
		base:  base{id: ctx.IDs().NextOperatorID(), schema: child.Schema(), dist: dist},
		Order: order,
		child: child,
	}
}

func (e *Exchange) Children() []Node { return []Node{e.child} }

func (e *Exchange) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchExchange { order: %s, dist: %s }", e.Order, e.dist)
	_ = p.WriteChildren(e.child.String())
	return p.String()
}

// Project evaluates expressions over its input.
type Project struct {
	base
	Exprs []sql.Expression
	child Node
}

// NewProject creates a batch projection.
func NewProject(ctx *sql.Context, schema sql.Schema, exprs []sql.Expression, dist sql.Distribution, child Node) *Project {
	return &Project{
		base:  newBase(ctx, schema, dist),
		Exprs: exprs,
		child: child,
	}
}

func (pr *Project) Children() []Node { return []Node{pr.child} }

func (pr *Project) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchProject { exprs: [%s] }", exprList(pr.Exprs))
	_ = p.WriteChildren(pr.child.String())
	return p.String()
}

// Filter drops rows failing the predicate.
type Filter struct {
	base
	Predicate sql.Expression
	child     Node
}

// NewFilter creates a batch filter.
func NewFilter(ctx *sql.Context, predicate sql.Expression, child Node) *Filter {
	return &Filter{
		base:      base{id: ctx.IDs().NextOperatorID(), schema: child.Schema(), dist: child.Distribution()},
		Predicate: predicate,
		child:     child,
	}
}

func (f *Filter) Children() []Node { return []Node{f.child} }

func (f *Filter) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchFilter { predicate: %s }", f.Predicate)
	_ = p.WriteChildren(f.child.String())
	return p.String()
}

// Values produces literal rows on a single partition.
type Values struct {
	base
	Rows [][]sql.Expression
}

// NewValues lowers a logical values node.
func NewValues(ctx *sql.Context, v *plan.Values) *Values {
	return &Values{
		base: newBase(ctx, v.Schema(), sql.SingleDist()),
		Rows: v.Rows(),
	}
}

func (v *Values) Children() []Node { return nil }

func (v *Values) String() string {
	rows := make([]string, len(v.Rows))
	for i, row := range v.Rows {
		rows[i] = "(" + exprList(row) + ")"
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchValues { rows: [%s] }", strings.Join(rows, ", "))
	return p.String()
}

// HashJoin joins two hash-distributed inputs on their equi keys.
type HashJoin struct {
	base
	JoinType  plan.JoinType
	LeftKeys  []int
	RightKeys []int
	Residual  sql.Expression
	left      Node
	right     Node
}

// NewHashJoin creates a batch hash join.
func NewHashJoin(ctx *sql.Context, schema sql.Schema, typ plan.JoinType, leftKeys, rightKeys []int, residual sql.Expression, dist sql.Distribution, left, right Node) *HashJoin {
	return &HashJoin{
		base:      newBase(ctx, schema, dist),
		JoinType:  typ,
		LeftKeys:  leftKeys,
		RightKeys: rightKeys,
		Residual:  residual,
		left:      left,
		right:     right,
	}
}

func (j *HashJoin) Children() []Node { return []Node{j.left, j.right} }

func (j *HashJoin) String() string {
	pairs := make([]string, len(j.LeftKeys))
	for i := range j.LeftKeys {
		pairs[i] = fmt.Sprintf("$%d = $%d", j.LeftKeys[i], j.RightKeys[i]+len(j.left.Schema()))
	}
	cond := strings.Join(pairs, " and ")
	if j.Residual != nil {
		cond += " and " + j.Residual.String()
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchHashJoin { type: %s, predicate: %s }", j.JoinType, cond)
	_ = p.WriteChildren(j.left.String(), j.right.String())
	return p.String()
}

// HashAgg aggregates a hash-distributed input by its group keys.
type HashAgg struct {
	base
	GroupKeys []int
	Aggs      []sql.Expression
	child     Node
}

// NewHashAgg creates a batch hash aggregate.
func NewHashAgg(ctx *sql.Context, schema sql.Schema, groupKeys []int, aggs []sql.Expression, dist sql.Distribution, child Node) *HashAgg {
	return &HashAgg{
		base:      newBase(ctx, schema, dist),
		GroupKeys: groupKeys,
		Aggs:      aggs,
		child:     child,
	}
}

func (h *HashAgg) Children() []Node { return []Node{h.child} }

func (h *HashAgg) String() string {
	keys := make([]string, len(h.GroupKeys))
	for i, k := range h.GroupKeys {
		keys[i] = fmt.Sprintf("$%d", k)
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchHashAgg { group_keys: [%s], aggs: [%s] }",
		strings.Join(keys, ", "), exprList(h.Aggs))
	_ = p.WriteChildren(h.child.String())
	return p.String()
}

// SimpleAgg aggregates its whole single-partition input into one row.
type SimpleAgg struct {
	base
	Aggs  []sql.Expression
	child Node
}

// NewSimpleAgg creates a batch simple aggregate.
func NewSimpleAgg(ctx *sql.Context, schema sql.Schema, aggs []sql.Expression, child Node) *SimpleAgg {
	return &SimpleAgg{
		base:  newBase(ctx, schema, sql.SingleDist()),
		Aggs:  aggs,
		child: child,
	}
}

func (s *SimpleAgg) Children() []Node { return []Node{s.child} }

func (s *SimpleAgg) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchSimpleAgg { aggs: [%s] }", exprList(s.Aggs))
	_ = p.WriteChildren(s.child.String())
	return p.String()
}

// TopN keeps the first rows of its ordered input.
type TopN struct {
	base
	Order  sql.SortFields
	Limit  int64
	Offset int64
	child  Node
}

// NewTopN creates a batch top-n.
func NewTopN(ctx *sql.Context, order sql.SortFields, limit, offset int64, child Node) *TopN {
	return &TopN{
		base:   base{id: ctx.IDs().NextOperatorID(), schema: child.Schema(), dist: child.Distribution()},
		Order:  order,
		Limit:  limit,
		Offset: offset,
		child:  child,
	}
}

func (t *TopN) Children() []Node { return []Node{t.child} }

func (t *TopN) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchTopN { order: %s, limit: %d, offset: %d }", t.Order, t.Limit, t.Offset)
	_ = p.WriteChildren(t.child.String())
	return p.String()
}

// Insert writes its input rows into a table.
type Insert struct {
	base
	Table *sql.Table
	child Node
}

// NewInsert creates a batch insert.
func NewInsert(ctx *sql.Context, schema sql.Schema, table *sql.Table, child Node) *Insert {
	return &Insert{base: newBase(ctx, schema, sql.SingleDist()), Table: table, child: child}
}

func (i *Insert) Children() []Node { return []Node{i.child} }

func (i *Insert) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchInsert { table: %s }", i.Table.Name)
	_ = p.WriteChildren(i.child.String())
	return p.String()
}

// Delete removes its input rows from a table.
type Delete struct {
	base
	Table *sql.Table
	child Node
}

// NewDelete creates a batch delete.
func NewDelete(ctx *sql.Context, schema sql.Schema, table *sql.Table, child Node) *Delete {
	return &Delete{base: newBase(ctx, schema, sql.SingleDist()), Table: table, child: child}
}

func (d *Delete) Children() []Node { return []Node{d.child} }

func (d *Delete) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchDelete { table: %s }", d.Table.Name)
	_ = p.WriteChildren(d.child.String())
	return p.String()
}

// Update overwrites table rows with its input rows.
type Update struct {
	base
	Table *sql.Table
	child Node
}

// NewUpdate creates a batch update.
func NewUpdate(ctx *sql.Context, schema sql.Schema, table *sql.Table, child Node) *Update {
	return &Update{base: newBase(ctx, schema, sql.SingleDist()), Table: table, child: child}
}

func (u *Update) Children() []Node { return []Node{u.child} }

func (u *Update) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchUpdate { table: %s }", u.Table.Name)
	_ = p.WriteChildren(u.child.String())
	return p.String()
}
