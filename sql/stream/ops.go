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

package stream

import (
	"fmt"
	"strings"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/plan"
)

// unary is the shared shape of single-input stream operators.
type unary struct {
	base
	child Node
}

func (u *unary) Children() []Node { return []Node{u.child} }

// Project evaluates expressions over its input. Pruned-away pk columns
// are re-added as hidden items with the empty alias, so the pk survives
// every projection.
type Project struct {
	unary
	Exprs []sql.Expression
}

// NewProject creates a stream projection.
func NewProject(ctx *sql.Context, schema sql.Schema, exprs []sql.Expression, pk []int, dist sql.Distribution, child Node) *Project {
	return &Project{
		unary: unary{base: newBase(ctx, schema, pk, dist), child: child},
		Exprs: exprs,
	}
}

// Child returns the input node.
func (p *Project) Child() Node { return p.child }

func (p *Project) String() string {
	tp := sql.NewTreePrinter()
	_ = tp.WriteNode("StreamProject { exprs: [%s] }", exprList(p.Exprs))
	_ = tp.WriteChildren(p.child.String())
	return tp.String()
}

// Filter drops rows failing the predicate; schema, pk and distribution
// pass through.
type Filter struct {
	unary
	Predicate sql.Expression
}

// NewFilter creates a stream filter.
func NewFilter(ctx *sql.Context, predicate sql.Expression, child Node) *Filter {
	return &Filter{
		unary: unary{
			base:  base{id: ctx.IDs().NextOperatorID(), schema: child.Schema(), pk: child.PK(), dist: child.Distribution()},
			child: child,
		},
		Predicate: predicate,
	}
}

func (f *Filter) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamFilter { predicate: %s }", f.Predicate)
	_ = p.WriteChildren(f.child.String())
	return p.String()
}

// HashJoin joins two hash-distributed streams. Its pk is the
// concatenation of both inputs' pks, so every output row retracts
// correctly when either side changes.
type HashJoin struct {
	base
	JoinType  plan.JoinType
	LeftKeys  []int
	RightKeys []int
	Residual  sql.Expression
	left      Node
	right     Node
}

// NewHashJoin creates a stream hash join.
func NewHashJoin(ctx *sql.Context, schema sql.Schema, typ plan.JoinType, leftKeys, rightKeys []int, residual sql.Expression, pk []int, dist sql.Distribution, left, right Node) *HashJoin {
	return &HashJoin{
		base:      newBase(ctx, schema, pk, dist),
		JoinType:  typ,
		LeftKeys:  leftKeys,
		RightKeys: rightKeys,
		Residual:  residual,
		left:      left,
		right:     right,
	}
}

// Left returns the left input.
func (j *HashJoin) Left() Node { return j.left }

// Right returns the right input.
func (j *HashJoin) Right() Node { return j.right }

func (j *HashJoin) Children() []Node { return []Node{j.left, j.right} }

func (j *HashJoin) String() string {
	pairs := make([]string, len(j.LeftKeys))
	for i := range j.LeftKeys {
		pairs[i] = fmt.Sprintf("$%d = $%d", j.LeftKeys[i], j.RightKeys[i]+len(j.left.Schema()))
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamHashJoin { predicate: %s, pk_indices: [%s] }",
		strings.Join(pairs, " and "), indexList(j.pk))
	_ = p.WriteChildren(j.left.String(), j.right.String())
	return p.String()
}

// HashAgg maintains per-group aggregate state. The call list carries a
// leading hidden count used to detect when a group's row count reaches
// zero and the group's output must retract.
type HashAgg struct {
	unary
	GroupKeys []int
	Aggs      []sql.Expression
}

// NewHashAgg creates a stream hash aggregate.
func NewHashAgg(ctx *sql.Context, schema sql.Schema, groupKeys []int, aggs []sql.Expression, pk []int, dist sql.Distribution, child Node) *HashAgg {
	return &HashAgg{
		unary:     unary{base: newBase(ctx, schema, pk, dist), child: child},
		GroupKeys: groupKeys,
		Aggs:      aggs,
	}
}

func (h *HashAgg) String() string {
	keys := make([]string, len(h.GroupKeys))
	for i, k := range h.GroupKeys {
		keys[i] = fmt.Sprintf("$%d", k)
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamHashAgg { group_keys: [%s], aggs: [%s] }",
		strings.Join(keys, ", "), exprList(h.Aggs))
	_ = p.WriteChildren(h.child.String())
	return p.String()
}

// SimpleAgg maintains a single global aggregate state row. Like HashAgg
// it carries the leading hidden count state; that state is also the
// node's pk, since the one output row still needs a key.
type SimpleAgg struct {
	unary
	Aggs []sql.Expression
}

// NewSimpleAgg creates a stream simple aggregate.
func NewSimpleAgg(ctx *sql.Context, schema sql.Schema, aggs []sql.Expression, pk []int, child Node) *SimpleAgg {
	return &SimpleAgg{
		unary: unary{base: newBase(ctx, schema, pk, sql.SingleDist()), child: child},
		Aggs:  aggs,
	}
}

func (s *SimpleAgg) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamSimpleAgg { aggs: [%s] }", exprList(s.Aggs))
	_ = p.WriteChildren(s.child.String())
	return p.String()
}

// TopN maintains the first rows under its order. Its pk extends the order
// key with the input pk so ties stay distinguishable.
type TopN struct {
	unary
	Order  sql.SortFields
	Limit  int64
	Offset int64
}

// NewTopN creates a stream top-n.
func NewTopN(ctx *sql.Context, order sql.SortFields, limit, offset int64, pk []int, child Node) *TopN {
	return &TopN{
		unary: unary{
			base:  base{id: ctx.IDs().NextOperatorID(), schema: child.Schema(), pk: pk, dist: sql.SingleDist()},
			child: child,
		},
		Order:  order,
		Limit:  limit,
		Offset: offset,
	}
}

func (t *TopN) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamTopN { order: %s, limit: %d, offset: %d }", t.Order, t.Limit, t.Offset)
	_ = p.WriteChildren(t.child.String())
	return p.String()
}

// Union merges streams with identical schemas; rows pass through
// unchanged.
type Union struct {
	base
	inputs []Node
}

// NewUnion creates a stream union. All inputs must share the schema; the
// pk must already disambiguate rows across inputs.
func NewUnion(ctx *sql.Context, schema sql.Schema, pk []int, dist sql.Distribution, inputs ...Node) *Union {
	return &Union{base: newBase(ctx, schema, pk, dist), inputs: inputs}
}

func (u *Union) Children() []Node { return u.inputs }

func (u *Union) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamUnion { columns: [%s] }", schemaNames(u.schema))
	children := make([]string, len(u.inputs))
	for i, in := range u.inputs {
		children[i] = in.String()
	}
	_ = p.WriteChildren(children...)
	return p.String()
}

