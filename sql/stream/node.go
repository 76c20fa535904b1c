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

// Package stream lowers optimized logical plans into streaming dataflow
// graphs. Every stream node carries a primary key identifying its rows
// within the stream semantics, so downstream state is always keyed.
package stream

import (
	"fmt"
	"strings"

	"github.com/rivuletdata/rivulet/sql"
)

// Node is a stream physical plan node.
type Node interface {
	fmt.Stringer
	// ID is the stable operator id within the compilation.
	ID() sql.OperatorID
	// Schema is the output schema, hidden columns included.
	Schema() sql.Schema
	// PK is the non-empty ordered list of output column indices uniquely
	// identifying a row of this node's output.
	PK() []int
	// Distribution is the partitioning of the node's output.
	Distribution() sql.Distribution
	// Children returns the inputs, left to right.
	Children() []Node
}

type base struct {
	id     sql.OperatorID
	schema sql.Schema
	pk     []int
	dist   sql.Distribution
}

func newBase(ctx *sql.Context, schema sql.Schema, pk []int, dist sql.Distribution) base {
	return base{id: ctx.IDs().NextOperatorID(), schema: schema, pk: pk, dist: dist}
}

func (b *base) ID() sql.OperatorID             { return b.id }
func (b *base) Schema() sql.Schema             { return b.schema }
func (b *base) PK() []int                      { return b.pk }
func (b *base) Distribution() sql.Distribution { return b.dist }

func schemaNames(s sql.Schema) string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.DisplayName()
	}
	return strings.Join(names, ", ")
}

func indexList(idx []int) string {
	parts := make([]string, len(idx))
	for i, k := range idx {
		parts[i] = fmt.Sprint(k)
	}
	return strings.Join(parts, ", ")
}

func exprList(exprs []sql.Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Exchange redistributes its input between fragments. Strategy is how
// rows are dispatched; for a NoShuffle exchange the output keeps the
// upstream layout, so the node's distribution is the child's.
type Exchange struct {
	base
	Strategy sql.Distribution
	child    Node
}

// NewExchange creates an exchange dispatching by the given strategy.
func NewExchange(ctx *sql.Context, child Node, strategy sql.Distribution) *Exchange {
	dist := strategy
	if strategy.Kind == sql.NoShuffle {
		dist = child.Distribution()
	}
	return &Exchange{
		base:     base{id: ctx.IDs().NextOperatorID(), schema: child.Schema(), pk: child.PK(), dist: dist},
		Strategy: strategy,
		child:    child,
	}
}

// Child returns the input node.
func (e *Exchange) Child() Node { return e.child }

func (e *Exchange) Children() []Node { return []Node{e.child} }

func (e *Exchange) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamExchange { dist: %s }", e.Strategy)
	_ = p.WriteChildren(e.child.String())
	return p.String()
}
