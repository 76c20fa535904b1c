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

package fragment

import (
	"github.com/sirupsen/logrus"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/stream"
)

type edge struct {
	up       *Fragment
	down     *Fragment
	strategy sql.Distribution
	merge    *stream.Merge
}

type builder struct {
	ctx       *sql.Context
	opts      Options
	fragments []*Fragment
	edges     []*edge
	merges    map[sql.OperatorID]*stream.Merge
}

// Build cuts the stream plan at every exchange and lays out actors and
// dispatchers. Ids come from the compilation's allocator, so identical
// plans lay out identically.
func Build(ctx *sql.Context, root *stream.Materialize, opts Options) (*Graph, error) {
	span, finish := ctx.Span("fragment.build")
	defer finish()
	_ = span

	b := &builder{
		ctx:    ctx,
		opts:   opts.withDefaults(),
		merges: map[sql.OperatorID]*stream.Merge{},
	}

	rootFrag := b.newFragment(root)
	if err := b.cut(root, rootFrag); err != nil {
		return nil, err
	}

	b.resolveParallelism()
	graph := b.layout()

	logrus.WithFields(logrus.Fields{
		"fragments": len(graph.Fragments),
		"actors":    len(graph.Actors),
	}).Debug("fragmented stream plan")
	return graph, nil
}

func (b *builder) newFragment(root stream.Node) *Fragment {
	f := &Fragment{
		ID:           b.ctx.IDs().NextFragmentID(),
		Root:         root,
		Distribution: root.Distribution(),
	}
	if containsChain(root) {
		f.BatchParallel = &BatchParallelInfo{}
	}
	b.fragments = append(b.fragments, f)
	return f
}

// cut walks the subtree of frag; every exchange found becomes a cut edge
// with its child subtree as a fresh upstream fragment.
func (b *builder) cut(n stream.Node, frag *Fragment) error {
	for _, child := range n.Children() {
		ex, ok := child.(*stream.Exchange)
		if !ok {
			if err := b.cut(child, frag); err != nil {
				return err
			}
			continue
		}
		upFrag := b.newFragment(ex.Child())
		if err := b.cut(ex.Child(), upFrag); err != nil {
			return err
		}
		merge := stream.NewMerge(b.ctx, ex.Schema(), ex.PK(), ex.Distribution())
		merge.UpstreamFragment = upFrag.ID
		b.merges[ex.ID()] = merge
		b.edges = append(b.edges, &edge{
			up:       upFrag,
			down:     frag,
			strategy: ex.Strategy,
			merge:    merge,
		})
		frag.UpstreamFragments = append(frag.UpstreamFragments, upFrag.ID)
	}
	return nil
}

// containsChain reports whether the subtree holds a chain above any
// exchange boundary.
func containsChain(n stream.Node) bool {
	if _, ok := n.(*stream.Chain); ok {
		return true
	}
	for _, c := range n.Children() {
		if _, ok := c.(*stream.Exchange); ok {
			continue
		}
		if containsChain(c) {
			return true
		}
	}
	return false
}

// resolveParallelism sets actor counts: one for single-partition
// fragments, the configured parallelism otherwise. NoShuffle edges force
// the upstream fragment to mirror its consumer's layout.
func (b *builder) resolveParallelism() {
	for _, f := range b.fragments {
		if f.Distribution.Kind == sql.Single {
			f.Parallelism = 1
		} else {
			f.Parallelism = b.opts.Parallelism
		}
	}
	// propagate across NoShuffle edges; a second pass settles chains of
	// pipelined fragments
	for i := 0; i < 2; i++ {
		for _, e := range b.edges {
			if e.strategy.Kind == sql.NoShuffle {
				e.up.Parallelism = e.down.Parallelism
			}
		}
	}
	for _, f := range b.fragments {
		if f.BatchParallel != nil {
			f.BatchParallel.Parallelism = f.Parallelism
		}
	}
}

// layout instantiates actors per fragment and installs dispatchers per
// edge.
func (b *builder) layout() *Graph {
	graph := &Graph{
		Fragments:      b.fragments,
		Merges:         b.merges,
		MergeUpstreams: map[sql.OperatorID][]sql.ActorID{},
	}

	actorsByFragment := map[sql.FragmentID][]*Actor{}
	for _, f := range b.fragments {
		for i := 0; i < f.Parallelism; i++ {
			a := &Actor{
				ID:         b.ctx.IDs().NextActorID(),
				FragmentID: f.ID,
			}
			f.ActorIDs = append(f.ActorIDs, a.ID)
			graph.Actors = append(graph.Actors, a)
			actorsByFragment[f.ID] = append(actorsByFragment[f.ID], a)
		}
	}

	for _, e := range b.edges {
		upActors := actorsByFragment[e.up.ID]
		downActors := actorsByFragment[e.down.ID]
		downIDs := make([]sql.ActorID, len(downActors))
		for i, a := range downActors {
			downIDs[i] = a.ID
		}

		dtype := dispatcherType(e.strategy)
		var mapping []sql.ActorID
		if dtype == Hash {
			mapping = vnodeMapping(downIDs, b.opts.VirtualNodes)
		}

		for pos, up := range upActors {
			d := &Dispatcher{
				Type:               dtype,
				DownstreamFragment: e.down.ID,
			}
			switch dtype {
			case Hash:
				d.ColumnIndices = append([]int(nil), e.strategy.Keys...)
				d.HashMapping = mapping
				d.DownstreamActorIDs = downIDs
			case NoShuffle:
				// 1:1 pipelined pairing
				d.DownstreamActorIDs = []sql.ActorID{downIDs[pos%len(downIDs)]}
			default:
				d.DownstreamActorIDs = downIDs
			}
			up.Dispatchers = append(up.Dispatchers, d)
		}

		upIDs := make([]sql.ActorID, len(upActors))
		for i, a := range upActors {
			upIDs[i] = a.ID
		}
		graph.MergeUpstreams[e.merge.ID()] = upIDs

		if e.strategy.Kind == sql.NoShuffle {
			for _, a := range downActors {
				a.SameWorkerNodeAsUpstream = true
			}
		}
	}
	return graph
}

func dispatcherType(strategy sql.Distribution) DispatcherType {
	switch strategy.Kind {
	case sql.HashShard:
		return Hash
	case sql.Broadcast:
		return Broadcast
	case sql.Single:
		return Simple
	case sql.NoShuffle:
		return NoShuffle
	default:
		return Simple
	}
}
