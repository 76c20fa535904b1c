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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/analyzer"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/fixtures"
	"github.com/rivuletdata/rivulet/sql/planbuilder"
	"github.com/rivuletdata/rivulet/sql/stream"
)

const testCatalogYAML = `
tables:
  - name: t
    columns:
      - {name: v1, type: Int32, nullable: true}
      - {name: v2, type: Int32, nullable: true}
      - {name: v3, type: Int32, nullable: true}
  - name: t1
    columns:
      - {name: v1, type: Int32, nullable: true}
      - {name: v2, type: Int32, nullable: true}
  - name: t2
    columns:
      - {name: v1, type: Int32, nullable: true}
      - {name: v2, type: Int32, nullable: true}
`

func compileGraph(t *testing.T, view *ast.CreateMaterializedView, opts Options) (*stream.Materialize, *Graph) {
	t.Helper()
	ctx := sql.NewEmptyContext()
	builder := planbuilder.New(fixtures.MustCatalog(testCatalogYAML), "")
	logical, err := builder.Build(ctx, view)
	require.NoError(t, err)
	analyzed, err := analyzer.New().Analyze(ctx, logical)
	require.NoError(t, err)
	root, err := stream.Plan(ctx, analyzed)
	require.NoError(t, err)
	graph, err := Build(ctx, root, opts)
	require.NoError(t, err)
	return root, graph
}

func col(name string) *ast.ColumnRef { return &ast.ColumnRef{Column: name} }

func countExchanges(n stream.Node) int {
	count := 0
	if _, ok := n.(*stream.Exchange); ok {
		count++
	}
	for _, c := range n.Children() {
		count += countExchanges(c)
	}
	return count
}

func groupByView() *ast.CreateMaterializedView {
	return &ast.CreateMaterializedView{
		Name: "mv_group",
		Select: &ast.Select{
			Items: []ast.SelectItem{
				{Expr: col("v1")},
				{Expr: &ast.Call{Name: "sum", Args: []ast.Expr{col("v2")}}},
			},
			From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
			GroupBy: []ast.Expr{col("v1")},
		},
	}
}

// property: fragments = 1 + exchanges; every actor belongs to exactly one
// fragment.
func TestFragmentCountMatchesExchanges(t *testing.T) {
	require := require.New(t)

	root, graph := compileGraph(t, groupByView(), Options{})
	require.Equal(countExchanges(root)+1, len(graph.Fragments))

	seen := map[sql.ActorID]sql.FragmentID{}
	for _, a := range graph.Actors {
		_, dup := seen[a.ID]
		require.False(dup, "actor %d appears twice", a.ID)
		seen[a.ID] = a.FragmentID
	}
	for _, f := range graph.Fragments {
		require.Equal(f.Parallelism, len(f.ActorIDs))
		for _, id := range f.ActorIDs {
			require.Equal(f.ID, seen[id])
		}
	}
}

func TestSingleFragmentForExchangeFreePlan(t *testing.T) {
	require := require.New(t)

	view := &ast.CreateMaterializedView{
		Name: "mv1",
		Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
	}
	_, graph := compileGraph(t, view, Options{})
	require.Equal(1, len(graph.Fragments))
	require.Empty(graph.Merges)
}

func TestDispatchersAreFullyPopulated(t *testing.T) {
	require := require.New(t)

	_, graph := compileGraph(t, groupByView(), Options{Parallelism: 3, VirtualNodes: 16})

	var hashDispatchers []*Dispatcher
	for _, a := range graph.Actors {
		for _, d := range a.Dispatchers {
			require.NotEmpty(d.DownstreamActorIDs)
			if d.Type == Hash {
				hashDispatchers = append(hashDispatchers, d)
			}
		}
	}
	require.NotEmpty(hashDispatchers, "the group-by plan hash-exchanges its input")

	for _, d := range hashDispatchers {
		require.Equal(16, len(d.HashMapping))
		require.NotEmpty(d.ColumnIndices)
		members := map[sql.ActorID]bool{}
		for _, id := range d.DownstreamActorIDs {
			members[id] = true
		}
		for _, id := range d.HashMapping {
			require.True(members[id], "mapping targets a non-downstream actor")
		}
	}

	// sibling dispatchers into the same fragment share the mapping
	byTarget := map[sql.FragmentID][]*Dispatcher{}
	for _, d := range hashDispatchers {
		byTarget[d.DownstreamFragment] = append(byTarget[d.DownstreamFragment], d)
	}
	for _, group := range byTarget {
		for _, d := range group[1:] {
			require.Equal(group[0].HashMapping, d.HashMapping)
		}
	}
}

func TestMergeUpstreamsEnumerateUpstreamActors(t *testing.T) {
	require := require.New(t)

	_, graph := compileGraph(t, groupByView(), Options{Parallelism: 2})

	require.NotEmpty(graph.Merges)
	for exID, merge := range graph.Merges {
		ups := graph.MergeUpstreams[merge.ID()]
		require.NotEmpty(ups, "merge for exchange %d lists no upstream actors", exID)
		upFrag := merge.UpstreamFragment
		var expected []sql.ActorID
		for _, f := range graph.Fragments {
			if f.ID == upFrag {
				expected = f.ActorIDs
			}
		}
		require.Equal(expected, ups)
	}
}

func TestSingleDistributionFragmentGetsOneActor(t *testing.T) {
	require := require.New(t)

	view := &ast.CreateMaterializedView{
		Name: "mv_agg",
		Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: &ast.Call{Name: "count", Args: []ast.Expr{col("v1")}}}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
	}
	_, graph := compileGraph(t, view, Options{Parallelism: 4})

	var singles, parallel int
	for _, f := range graph.Fragments {
		if f.Distribution.Kind == sql.Single {
			require.Equal(1, f.Parallelism)
			singles++
		} else {
			require.Equal(4, f.Parallelism)
			parallel++
		}
	}
	require.NotZero(singles, "the simple-agg fragment is single")
	require.NotZero(parallel, "the scan fragment is parallel")
}

func TestIdsAreDeterministic(t *testing.T) {
	require := require.New(t)

	_, first := compileGraph(t, groupByView(), Options{})
	_, second := compileGraph(t, groupByView(), Options{})

	require.Equal(len(first.Actors), len(second.Actors))
	for i := range first.Actors {
		require.Equal(first.Actors[i].ID, second.Actors[i].ID)
		require.Equal(first.Actors[i].FragmentID, second.Actors[i].FragmentID)
	}
	require.Equal(len(first.Fragments), len(second.Fragments))
	for i := range first.Fragments {
		require.Equal(first.Fragments[i].ID, second.Fragments[i].ID)
		require.Equal(first.Fragments[i].ActorIDs, second.Fragments[i].ActorIDs)
	}
}

func TestVNodeMappingIsStable(t *testing.T) {
	require := require.New(t)

	actors := []sql.ActorID{3, 5, 9}

	// changing the hash would strand deployed graphs: the mapping must be
	// a pure, stable function of the actor list
	require.Equal(vnodeMapping(actors, 64), vnodeMapping(actors, 64))

	members := map[sql.ActorID]bool{3: true, 5: true, 9: true}
	spread := map[sql.ActorID]int{}
	for _, a := range vnodeMapping(actors, 256) {
		require.True(members[a])
		spread[a]++
	}
	require.Equal(3, len(spread), "every actor owns a share of the ring")

	// removing an actor only moves the vnodes it owned
	before := vnodeMapping(actors, 256)
	after := vnodeMapping([]sql.ActorID{3, 9}, 256)
	for v := range before {
		if before[v] != 5 {
			require.Equal(before[v], after[v], "vnode %d moved needlessly", v)
		}
	}
}
