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

// Package fragment cuts stream plans at their exchanges into fragments,
// instantiates actors per fragment, and wires the dispatchers that carry
// rows across the cuts.
package fragment

import (
	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/stream"
)

// DispatcherType selects how an upstream actor routes rows to a
// downstream fragment.
type DispatcherType int

const (
	// Hash routes each row by the consistent hash of its key columns.
	Hash DispatcherType = iota
	// Broadcast sends every row to every downstream actor.
	Broadcast
	// Simple sends every row to the single downstream actor.
	Simple
	// NoShuffle pipes rows to the same-position downstream actor.
	NoShuffle
)

func (t DispatcherType) String() string {
	switch t {
	case Hash:
		return "Hash"
	case Broadcast:
		return "Broadcast"
	case Simple:
		return "Simple"
	case NoShuffle:
		return "NoShuffle"
	}
	return "Unknown"
}

// Dispatcher is the outgoing side of one cut edge on one upstream actor.
type Dispatcher struct {
	Type DispatcherType
	// ColumnIndices are the hash key columns; empty unless Type is Hash.
	ColumnIndices []int
	// HashMapping is the stable vnode-to-actor table of the downstream
	// fragment; nil unless Type is Hash. Sibling dispatchers into the same
	// fragment share an identical mapping.
	HashMapping []sql.ActorID
	// DownstreamActorIDs lists the receiving actors.
	DownstreamActorIDs []sql.ActorID
	// DownstreamFragment is the fragment the rows land in.
	DownstreamFragment sql.FragmentID
}

// Actor is one parallel instance of a fragment.
type Actor struct {
	ID         sql.ActorID
	FragmentID sql.FragmentID
	Dispatchers []*Dispatcher
	// SameWorkerNodeAsUpstream asks the control plane to place this actor
	// on the worker of its NoShuffle upstream.
	SameWorkerNodeAsUpstream bool
}

// BatchParallelInfo is the scheduling hint attached to chain fragments so
// the snapshot side runs at the fragment's parallelism.
// TODO: retire this once snapshot scans are scheduled by the barrier
// manager instead of pinned to the chain's actors.
type BatchParallelInfo struct {
	Parallelism int
}

// Fragment is a maximal exchange-free subgraph of the stream plan.
type Fragment struct {
	ID sql.FragmentID
	// Root is the top node of the fragment's subtree. Exchanges below it
	// belong to edges; the serializer substitutes their merge nodes.
	Root         stream.Node
	Distribution sql.Distribution
	Parallelism  int
	ActorIDs     []sql.ActorID
	// BatchParallel is set on fragments containing a chain.
	BatchParallel *BatchParallelInfo
	// UpstreamFragments lists the fragments feeding this one, in merge
	// discovery order.
	UpstreamFragments []sql.FragmentID
}

// Graph is the deployable fragment/actor layout of one stream job.
type Graph struct {
	Fragments []*Fragment
	Actors    []*Actor
	// Merges maps each cut exchange's operator id to the merge node that
	// replaces it inside the downstream fragment.
	Merges map[sql.OperatorID]*stream.Merge
	// MergeUpstreams maps each merge node's operator id to the upstream
	// actors it reads.
	MergeUpstreams map[sql.OperatorID][]sql.ActorID
}

// Options tune the layout.
type Options struct {
	// Parallelism is the actor count of hash-distributed fragments.
	Parallelism int
	// VirtualNodes is the size of the consistent-hash space.
	VirtualNodes int
}

// Defaults for Options fields left zero.
const (
	DefaultParallelism  = 4
	DefaultVirtualNodes = 256
)

func (o Options) withDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.VirtualNodes <= 0 {
		o.VirtualNodes = DefaultVirtualNodes
	}
	return o
}

// FragmentOf returns the fragment owning the actor.
func (g *Graph) FragmentOf(a *Actor) *Fragment {
	for _, f := range g.Fragments {
		if f.ID == a.FragmentID {
			return f
		}
	}
	return nil
}
