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
	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/batch"
	"github.com/rivuletdata/rivulet/sql/fragment"
	"github.com/rivuletdata/rivulet/sql/stream"
)

// BatchPlan is the serialized batch DAG of one statement.
type BatchPlan struct {
	Root *PlanNode
}

// Marshal renders the deterministic byte encoding.
func (p *BatchPlan) Marshal() []byte {
	w := &writer{}
	p.Root.encode(w)
	return w.buf.Bytes()
}

// FromBatchPlan converts a finished batch plan.
func FromBatchPlan(root batch.Node) (*BatchPlan, error) {
	node, err := fromBatchNode(root)
	if err != nil {
		return nil, err
	}
	return &BatchPlan{Root: node}, nil
}

func columnIDsOf(table *sql.Table, columns []int) []int32 {
	ids := make([]int32, len(columns))
	for i, c := range columns {
		if c < len(table.ColumnIDs) {
			ids[i] = table.ColumnIDs[c]
		} else {
			ids[i] = int32(c)
		}
	}
	return ids
}

func fromBatchNode(n batch.Node) (*PlanNode, error) {
	fields, err := fieldsOf(n.Schema())
	if err != nil {
		return nil, err
	}
	out := &PlanNode{
		OperatorID: n.ID(),
		Identity:   identityOf(n),
		Fields:     fields,
	}

	switch n := n.(type) {
	case *batch.Scan:
		out.Body = &ScanBody{Table: n.Table.Name, ColumnIDs: columnIDsOf(n.Table, n.Columns)}
	case *batch.Values:
		rows := make([][]*ExprNode, len(n.Rows))
		for i, row := range n.Rows {
			if rows[i], err = exprNodes(row); err != nil {
				return nil, err
			}
		}
		out.Body = &ValuesBody{Rows: rows}
	case *batch.Project:
		exprs, err := exprNodes(n.Exprs)
		if err != nil {
			return nil, err
		}
		out.Body = &ProjectBody{Exprs: exprs}
	case *batch.Filter:
		pred, err := exprNode(n.Predicate)
		if err != nil {
			return nil, err
		}
		out.Body = &FilterBody{Predicate: pred}
	case *batch.Exchange:
		order, err := sortFieldProtos(n.Order)
		if err != nil {
			return nil, err
		}
		out.Body = &ExchangeBody{
			DistType: distTag(n.Distribution()),
			Keys:     n.Distribution().Keys,
			Order:    order,
		}
	case *batch.HashJoin:
		body := &HashJoinBody{
			JoinType:  uint8(n.JoinType),
			LeftKeys:  n.LeftKeys,
			RightKeys: n.RightKeys,
		}
		if n.Residual != nil {
			if body.Residual, err = exprNode(n.Residual); err != nil {
				return nil, err
			}
		}
		out.Body = body
	case *batch.HashAgg:
		aggs, err := aggCallNodes(n.Aggs)
		if err != nil {
			return nil, err
		}
		out.Body = &HashAggBody{GroupKeys: n.GroupKeys, Aggs: aggs}
	case *batch.SimpleAgg:
		aggs, err := aggCallNodes(n.Aggs)
		if err != nil {
			return nil, err
		}
		out.Body = &SimpleAggBody{Aggs: aggs}
	case *batch.TopN:
		order, err := sortFieldProtos(n.Order)
		if err != nil {
			return nil, err
		}
		out.Body = &TopNBody{Order: order, Limit: n.Limit, Offset: n.Offset}
	case *batch.Insert:
		out.Body = &DMLBody{Kind: nodeBatchInsert, Table: n.Table.Name}
	case *batch.Delete:
		out.Body = &DMLBody{Kind: nodeBatchDelete, Table: n.Table.Name}
	case *batch.Update:
		out.Body = &DMLBody{Kind: nodeBatchUpdate, Table: n.Table.Name}
	default:
		return nil, sql.ErrInternal.New("unknown batch node in serialization")
	}

	for _, c := range n.Children() {
		child, err := fromBatchNode(c)
		if err != nil {
			return nil, err
		}
		out.Input = append(out.Input, child)
	}
	return out, nil
}

// DispatcherProto is the wire form of one dispatcher.
type DispatcherProto struct {
	Type          uint8
	ColumnIndices []int
	// HashMapping is the vnode-to-actor table; index is the vnode.
	HashMapping        []sql.ActorID
	DownstreamActorIDs []sql.ActorID
}

// ActorProto is the wire form of one actor.
type ActorProto struct {
	ActorID                  sql.ActorID
	Dispatchers              []*DispatcherProto
	SameWorkerNodeAsUpstream bool
}

// FragmentProto is the wire form of one fragment: its operator tree with
// merges at the cut points, plus its actors.
type FragmentProto struct {
	FragmentID          sql.FragmentID
	Node                *PlanNode
	DistType            uint8
	Actors              []*ActorProto
	UpstreamFragmentIDs []sql.FragmentID
	// BatchParallelism is non-zero on chain fragments.
	BatchParallelism uint32
}

// StreamGraph is the serialized fragment/actor layout of one stream job.
type StreamGraph struct {
	Fragments []*FragmentProto
}

// FromGraph converts a fragmented stream plan.
func FromGraph(g *fragment.Graph) (*StreamGraph, error) {
	sg := &StreamGraph{}
	actorsByFragment := map[sql.FragmentID][]*fragment.Actor{}
	for _, a := range g.Actors {
		actorsByFragment[a.FragmentID] = append(actorsByFragment[a.FragmentID], a)
	}

	for _, f := range g.Fragments {
		node, err := fromStreamNode(f.Root, g)
		if err != nil {
			return nil, err
		}
		fp := &FragmentProto{
			FragmentID:          f.ID,
			Node:                node,
			DistType:            distTag(f.Distribution),
			UpstreamFragmentIDs: f.UpstreamFragments,
		}
		if f.BatchParallel != nil {
			fp.BatchParallelism = uint32(f.BatchParallel.Parallelism)
		}
		for _, a := range actorsByFragment[f.ID] {
			ap := &ActorProto{
				ActorID:                  a.ID,
				SameWorkerNodeAsUpstream: a.SameWorkerNodeAsUpstream,
			}
			for _, d := range a.Dispatchers {
				ap.Dispatchers = append(ap.Dispatchers, &DispatcherProto{
					Type:               uint8(d.Type),
					ColumnIndices:      d.ColumnIndices,
					HashMapping:        d.HashMapping,
					DownstreamActorIDs: d.DownstreamActorIDs,
				})
			}
			fp.Actors = append(fp.Actors, ap)
		}
		sg.Fragments = append(sg.Fragments, fp)
	}
	return sg, nil
}

// Marshal renders the deterministic byte encoding.
func (g *StreamGraph) Marshal() []byte {
	w := &writer{}
	w.u32(uint32(len(g.Fragments)))
	for _, f := range g.Fragments {
		w.u32(uint32(f.FragmentID))
		w.u8(f.DistType)
		w.u32(f.BatchParallelism)
		w.u32(uint32(len(f.UpstreamFragmentIDs)))
		for _, id := range f.UpstreamFragmentIDs {
			w.u32(uint32(id))
		}
		f.Node.encode(w)
		w.u32(uint32(len(f.Actors)))
		for _, a := range f.Actors {
			w.u32(uint32(a.ActorID))
			w.boolean(a.SameWorkerNodeAsUpstream)
			w.u32(uint32(len(a.Dispatchers)))
			for _, d := range a.Dispatchers {
				w.u8(d.Type)
				w.indices(d.ColumnIndices)
				w.u32(uint32(len(d.HashMapping)))
				for _, id := range d.HashMapping {
					w.u32(uint32(id))
				}
				w.u32(uint32(len(d.DownstreamActorIDs)))
				for _, id := range d.DownstreamActorIDs {
					w.u32(uint32(id))
				}
			}
		}
	}
	return w.buf.Bytes()
}

// fromStreamNode serializes one fragment's subtree. A cut exchange is
// replaced by its merge node; the upstream subtree belongs to another
// fragment.
func fromStreamNode(n stream.Node, g *fragment.Graph) (*PlanNode, error) {
	if ex, ok := n.(*stream.Exchange); ok {
		merge, ok := g.Merges[ex.ID()]
		if !ok {
			return nil, sql.ErrInternal.New("exchange without a merge at serialization")
		}
		return fromStreamNode(merge, g)
	}

	fields, err := fieldsOf(n.Schema())
	if err != nil {
		return nil, err
	}
	out := &PlanNode{
		OperatorID: n.ID(),
		Identity:   identityOf(n),
		Fields:     fields,
		PKIndices:  n.PK(),
	}

	switch n := n.(type) {
	case *stream.TableScan:
		out.Body = &TableScanBody{Table: n.Table.Name, ColumnIDs: columnIDsOf(n.Table, n.Columns)}
	case *stream.Merge:
		out.Body = &MergeBody{
			UpstreamActorIDs: g.MergeUpstreams[n.ID()],
			UpstreamFragment: n.UpstreamFragment,
		}
	case *stream.Chain:
		out.Body = &ChainBody{Table: n.Table.Name}
	case *stream.BatchPlan:
		out.Body = &BatchPlanBody{Table: n.Table.Name, ColumnIDs: columnIDsOf(n.Table, n.Columns)}
	case *stream.Project:
		exprs, err := exprNodes(n.Exprs)
		if err != nil {
			return nil, err
		}
		out.Body = &ProjectBody{Stream: true, Exprs: exprs}
	case *stream.Filter:
		pred, err := exprNode(n.Predicate)
		if err != nil {
			return nil, err
		}
		out.Body = &FilterBody{Stream: true, Predicate: pred}
	case *stream.HashJoin:
		body := &HashJoinBody{
			Stream:    true,
			JoinType:  uint8(n.JoinType),
			LeftKeys:  n.LeftKeys,
			RightKeys: n.RightKeys,
		}
		if n.Residual != nil {
			if body.Residual, err = exprNode(n.Residual); err != nil {
				return nil, err
			}
		}
		out.Body = body
	case *stream.HashAgg:
		aggs, err := aggCallNodes(n.Aggs)
		if err != nil {
			return nil, err
		}
		out.Body = &HashAggBody{Stream: true, GroupKeys: n.GroupKeys, Aggs: aggs}
	case *stream.SimpleAgg:
		aggs, err := aggCallNodes(n.Aggs)
		if err != nil {
			return nil, err
		}
		out.Body = &SimpleAggBody{Stream: true, Aggs: aggs}
	case *stream.TopN:
		order, err := sortFieldProtos(n.Order)
		if err != nil {
			return nil, err
		}
		out.Body = &TopNBody{Stream: true, Order: order, Limit: n.Limit, Offset: n.Offset}
	case *stream.Materialize:
		out.Body = &MaterializeBody{
			Table:       n.TableName,
			ColumnOrder: n.ColumnOrder,
			PKColumns:   n.PKColumns,
		}
	case *stream.Union:
		out.Body = &UnionBody{}
	default:
		return nil, sql.ErrInternal.New("unknown stream node in serialization")
	}

	for _, c := range n.Children() {
		child, err := fromStreamNode(c, g)
		if err != nil {
			return nil, err
		}
		out.Input = append(out.Input, child)
	}
	return out, nil
}
