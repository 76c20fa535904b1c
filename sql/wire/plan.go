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

package wire

import (
	"fmt"
	"strings"

	"github.com/rivuletdata/rivulet/sql"
)

// node variant tags
const (
	nodeBatchProject uint8 = iota
	nodeBatchFilter
	nodeBatchScan
	nodeBatchValues
	nodeBatchHashJoin
	nodeBatchHashAgg
	nodeBatchSimpleAgg
	nodeBatchTopN
	nodeBatchExchange
	nodeBatchInsert
	nodeBatchDelete
	nodeBatchUpdate
)

const (
	nodeStreamTableScan uint8 = iota + 32
	nodeStreamProject
	nodeStreamFilter
	nodeStreamHashJoin
	nodeStreamHashAgg
	nodeStreamSimpleAgg
	nodeStreamTopN
	nodeStreamMaterialize
	nodeStreamChain
	nodeStreamMerge
	nodeStreamBatchPlan
	nodeStreamUnion
	// nodeStreamArrange and nodeStreamLookup are reserved for delta-join
	// lowering; no planner path produces the operators yet.
	nodeStreamArrange
	nodeStreamLookup
)

// distribution tags
const (
	distAnyShard uint8 = iota
	distSingle
	distHashShard
	distBroadcast
	distNoShuffle
)

func distTag(d sql.Distribution) uint8 {
	switch d.Kind {
	case sql.Single:
		return distSingle
	case sql.HashShard:
		return distHashShard
	case sql.Broadcast:
		return distBroadcast
	case sql.NoShuffle:
		return distNoShuffle
	default:
		return distAnyShard
	}
}

// NodeBody is the operator-specific half of a plan node.
type NodeBody interface {
	tag() uint8
	encode(w *writer)
}

// PlanNode is the wire form of one operator: the shared fields plus the
// operator-specific body.
type PlanNode struct {
	OperatorID sql.OperatorID
	Input      []*PlanNode
	PKIndices  []int
	Identity   string
	Fields     []Field
	Body       NodeBody
}

func (n *PlanNode) encode(w *writer) {
	w.u64(uint64(n.OperatorID))
	w.str(n.Identity)
	w.u32(uint32(len(n.Fields)))
	for _, f := range n.Fields {
		f.encode(w)
	}
	w.indices(n.PKIndices)
	w.u8(n.Body.tag())
	n.Body.encode(w)
	w.u32(uint32(len(n.Input)))
	for _, in := range n.Input {
		in.encode(w)
	}
}

// identityOf is the display identity: the head line of the node's tree
// rendering.
func identityOf(n fmt.Stringer) string {
	s := n.String()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

// SortFieldProto is one key of a serialized ordering.
type SortFieldProto struct {
	ColumnIndex uint32
	Descending  bool
}

func sortFieldProtos(order sql.SortFields) ([]SortFieldProto, error) {
	out := make([]SortFieldProto, len(order))
	for i, f := range order {
		ref, err := exprNode(f.Column)
		if err != nil {
			return nil, err
		}
		if ref.Tag != exprInputRef {
			return nil, sql.ErrInternal.New("sort key is not a column reference")
		}
		out[i] = SortFieldProto{ColumnIndex: ref.Index, Descending: f.Descending}
	}
	return out, nil
}

func encodeSortFields(w *writer, order []SortFieldProto) {
	w.u32(uint32(len(order)))
	for _, f := range order {
		w.u32(f.ColumnIndex)
		w.boolean(f.Descending)
	}
}

// bodies

type ProjectBody struct {
	Stream bool
	Exprs  []*ExprNode
}

func (b *ProjectBody) tag() uint8 {
	if b.Stream {
		return nodeStreamProject
	}
	return nodeBatchProject
}

func (b *ProjectBody) encode(w *writer) {
	w.u32(uint32(len(b.Exprs)))
	for _, e := range b.Exprs {
		e.encode(w)
	}
}

type FilterBody struct {
	Stream    bool
	Predicate *ExprNode
}

func (b *FilterBody) tag() uint8 {
	if b.Stream {
		return nodeStreamFilter
	}
	return nodeBatchFilter
}

func (b *FilterBody) encode(w *writer) {
	b.Predicate.encode(w)
}

type ScanBody struct {
	Table     string
	ColumnIDs []int32
}

func (b *ScanBody) tag() uint8 { return nodeBatchScan }

func (b *ScanBody) encode(w *writer) {
	w.str(b.Table)
	w.u32(uint32(len(b.ColumnIDs)))
	for _, id := range b.ColumnIDs {
		w.u32(uint32(id))
	}
}

type ValuesBody struct {
	Rows [][]*ExprNode
}

func (b *ValuesBody) tag() uint8 { return nodeBatchValues }

func (b *ValuesBody) encode(w *writer) {
	w.u32(uint32(len(b.Rows)))
	for _, row := range b.Rows {
		w.u32(uint32(len(row)))
		for _, e := range row {
			e.encode(w)
		}
	}
}

type HashJoinBody struct {
	Stream    bool
	JoinType  uint8
	LeftKeys  []int
	RightKeys []int
	Residual  *ExprNode
}

func (b *HashJoinBody) tag() uint8 {
	if b.Stream {
		return nodeStreamHashJoin
	}
	return nodeBatchHashJoin
}

func (b *HashJoinBody) encode(w *writer) {
	w.u8(b.JoinType)
	w.indices(b.LeftKeys)
	w.indices(b.RightKeys)
	if b.Residual == nil {
		w.boolean(false)
	} else {
		w.boolean(true)
		b.Residual.encode(w)
	}
}

type HashAggBody struct {
	Stream    bool
	GroupKeys []int
	Aggs      []*AggCallNode
}

func (b *HashAggBody) tag() uint8 {
	if b.Stream {
		return nodeStreamHashAgg
	}
	return nodeBatchHashAgg
}

func (b *HashAggBody) encode(w *writer) {
	w.indices(b.GroupKeys)
	w.u32(uint32(len(b.Aggs)))
	for _, a := range b.Aggs {
		a.encode(w)
	}
}

type SimpleAggBody struct {
	Stream bool
	Aggs   []*AggCallNode
}

func (b *SimpleAggBody) tag() uint8 {
	if b.Stream {
		return nodeStreamSimpleAgg
	}
	return nodeBatchSimpleAgg
}

func (b *SimpleAggBody) encode(w *writer) {
	w.u32(uint32(len(b.Aggs)))
	for _, a := range b.Aggs {
		a.encode(w)
	}
}

type TopNBody struct {
	Stream bool
	Order  []SortFieldProto
	Limit  int64
	Offset int64
}

func (b *TopNBody) tag() uint8 {
	if b.Stream {
		return nodeStreamTopN
	}
	return nodeBatchTopN
}

func (b *TopNBody) encode(w *writer) {
	encodeSortFields(w, b.Order)
	w.i64(b.Limit)
	w.i64(b.Offset)
}

type ExchangeBody struct {
	DistType uint8
	Keys     []int
	Order    []SortFieldProto
}

func (b *ExchangeBody) tag() uint8 { return nodeBatchExchange }

func (b *ExchangeBody) encode(w *writer) {
	w.u8(b.DistType)
	w.indices(b.Keys)
	encodeSortFields(w, b.Order)
}

type DMLBody struct {
	Kind  uint8
	Table string
}

func (b *DMLBody) tag() uint8 { return b.Kind }

func (b *DMLBody) encode(w *writer) {
	w.str(b.Table)
}

type TableScanBody struct {
	Table     string
	ColumnIDs []int32
}

func (b *TableScanBody) tag() uint8 { return nodeStreamTableScan }

func (b *TableScanBody) encode(w *writer) {
	w.str(b.Table)
	w.u32(uint32(len(b.ColumnIDs)))
	for _, id := range b.ColumnIDs {
		w.u32(uint32(id))
	}
}

type MergeBody struct {
	UpstreamActorIDs []sql.ActorID
	UpstreamFragment sql.FragmentID
}

func (b *MergeBody) tag() uint8 { return nodeStreamMerge }

func (b *MergeBody) encode(w *writer) {
	w.u32(uint32(len(b.UpstreamActorIDs)))
	for _, id := range b.UpstreamActorIDs {
		w.u32(uint32(id))
	}
	w.u32(uint32(b.UpstreamFragment))
}

type ChainBody struct {
	Table string
}

func (b *ChainBody) tag() uint8 { return nodeStreamChain }

func (b *ChainBody) encode(w *writer) {
	w.str(b.Table)
}

type BatchPlanBody struct {
	Table     string
	ColumnIDs []int32
}

func (b *BatchPlanBody) tag() uint8 { return nodeStreamBatchPlan }

func (b *BatchPlanBody) encode(w *writer) {
	w.str(b.Table)
	w.u32(uint32(len(b.ColumnIDs)))
	for _, id := range b.ColumnIDs {
		w.u32(uint32(id))
	}
}

type MaterializeBody struct {
	Table       string
	ColumnOrder []int
	PKColumns   []string
}

func (b *MaterializeBody) tag() uint8 { return nodeStreamMaterialize }

func (b *MaterializeBody) encode(w *writer) {
	w.str(b.Table)
	w.indices(b.ColumnOrder)
	w.u32(uint32(len(b.PKColumns)))
	for _, c := range b.PKColumns {
		w.str(c)
	}
}

type UnionBody struct{}

func (b *UnionBody) tag() uint8     { return nodeStreamUnion }
func (b *UnionBody) encode(*writer) {}
