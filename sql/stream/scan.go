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
	"github.com/rivuletdata/rivulet/sql"
)

// TableScan tails a table's change stream. Its columns always include the
// table pk, appended hidden when the query did not select it.
type TableScan struct {
	base
	Table   *sql.Table
	Columns []int
}

// NewTableScan creates a stream scan. Columns are table column indices,
// pk positions into them. The scan is distributed by its pk.
func NewTableScan(ctx *sql.Context, table *sql.Table, columns []int, schema sql.Schema, pk []int) *TableScan {
	return &TableScan{
		base:    newBase(ctx, schema, pk, sql.HashDist(pk...)),
		Table:   table,
		Columns: columns,
	}
}

func (s *TableScan) Children() []Node { return nil }

func (s *TableScan) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamTableScan { table: %s, columns: [%s], pk_indices: [%s] }",
		s.Table.Name, schemaNames(s.schema), indexList(s.pk))
	return p.String()
}

// Merge is the placeholder at a fragment ingress. The fragmenter fills in
// the upstream actor ids; inside a chain it stands for the live delta
// stream of the upstream materialized view.
type Merge struct {
	base
	// UpstreamFragment is set when the merge reads another fragment of
	// this graph; zero for chain merges fed by an already-deployed view.
	UpstreamFragment sql.FragmentID
}

// NewMerge creates a merge placeholder with the upstream schema.
func NewMerge(ctx *sql.Context, schema sql.Schema, pk []int, dist sql.Distribution) *Merge {
	return &Merge{base: newBase(ctx, schema, pk, dist)}
}

func (m *Merge) Children() []Node { return nil }

func (m *Merge) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("MergeNode { columns: [%s] }", schemaNames(m.schema))
	return p.String()
}

// BatchPlan is the snapshot side of a chain: a bounded scan of the
// upstream view's state at the chain's start epoch.
type BatchPlan struct {
	base
	Table   *sql.Table
	Columns []int
}

// NewBatchPlan creates the snapshot scan of a chain.
func NewBatchPlan(ctx *sql.Context, table *sql.Table, columns []int, schema sql.Schema, pk []int) *BatchPlan {
	return &BatchPlan{
		base:    newBase(ctx, schema, pk, sql.HashDist(pk...)),
		Table:   table,
		Columns: columns,
	}
}

func (b *BatchPlan) Children() []Node { return nil }

func (b *BatchPlan) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("BatchPlanNode { table: %s, columns: [%s] }", b.Table.Name, schemaNames(b.schema))
	return p.String()
}

// Chain unions the historical snapshot of an upstream materialized view
// with its live delta stream, in that order of correctness: the snapshot
// is replayed first, then deltas past the snapshot epoch. Inputs are the
// live MergeNode placeholder followed by the snapshot BatchPlanNode.
type Chain struct {
	base
	Table *sql.Table
	merge *Merge
	snap  *BatchPlan
}

// NewChain creates a chain over an upstream view.
func NewChain(ctx *sql.Context, table *sql.Table, merge *Merge, snap *BatchPlan, schema sql.Schema, pk []int) *Chain {
	return &Chain{
		base:  newBase(ctx, schema, pk, sql.HashDist(pk...)),
		Table: table,
		merge: merge,
		snap:  snap,
	}
}

func (c *Chain) Children() []Node { return []Node{c.merge, c.snap} }

func (c *Chain) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamChain { table: %s, columns: [%s], pk_indices: [%s] }",
		c.Table.Name, schemaNames(c.schema), indexList(c.pk))
	_ = p.WriteChildren(c.merge.String(), c.snap.String())
	return p.String()
}
