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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/analyzer"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/fixtures"
	"github.com/rivuletdata/rivulet/sql/planbuilder"
	"github.com/rivuletdata/rivulet/sql/types"
)

func intType() sql.Type { return types.Int32 }

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
  - name: t3
    columns:
      - {name: v1, type: Int32, nullable: true}
      - {name: v2, type: Int32, nullable: true}
`

func compileStream(t *testing.T, catalog *sql.Catalog, stmt *ast.CreateMaterializedView) *Materialize {
	t.Helper()
	ctx := sql.NewEmptyContext()
	builder := planbuilder.New(catalog, "")
	logical, err := builder.Build(ctx, stmt)
	require.NoError(t, err)
	analyzed, err := analyzer.New().Analyze(ctx, logical)
	require.NoError(t, err)
	root, err := Plan(ctx, analyzed)
	require.NoError(t, err)
	return root
}

func testCatalog(t *testing.T) *sql.Catalog {
	t.Helper()
	return fixtures.MustCatalog(testCatalogYAML)
}

func col(name string) *ast.ColumnRef { return &ast.ColumnRef{Column: name} }

func aggCall(name string, args ...ast.Expr) *ast.Call { return &ast.Call{Name: name, Args: args} }

// walkNodes visits the plan top-down.
func walkNodes(n Node, f func(Node)) {
	f(n)
	for _, c := range n.Children() {
		walkNodes(c, f)
	}
}

// scan + project: the row id rides along hidden and keys the view.
func TestStreamScanProject(t *testing.T) {
	require := require.New(t)

	root := compileStream(t, testCatalog(t), &ast.CreateMaterializedView{
		Name: "mv1",
		Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
	})

	expected := "StreamMaterialize { columns: [v1, _row_id#0(hidden)], pk_columns: [_row_id#0] }\n" +
		" └─ StreamTableScan { table: t, columns: [v1, _row_id#0(hidden)], pk_indices: [1] }\n"
	require.Equal(expected, root.String())

	require.Equal([]string{"_row_id#0"}, root.PKColumns)
	scan := root.Children()[0].(*TableScan)
	require.Equal([]int{1}, scan.PK())
}

// simple aggregate: a hidden leading count state keys the single row.
func TestStreamSimpleAgg(t *testing.T) {
	require := require.New(t)

	root := compileStream(t, testCatalog(t), &ast.CreateMaterializedView{
		Name: "mv_agg",
		Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: &ast.BinaryOp{
				Op:   "+",
				Left: aggCall("min", col("v1")),
				Right: &ast.BinaryOp{
					Op:    "*",
					Left:  aggCall("max", col("v2")),
					Right: aggCall("count", col("v3")),
				},
			}}},
			From: []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
	})

	var simple *SimpleAgg
	walkNodes(root, func(n Node) {
		if s, ok := n.(*SimpleAgg); ok {
			simple = s
		}
	})
	require.NotNil(simple)

	// the prepended hidden count state
	first := expression.Unalias(simple.Aggs[0]).(*expression.AggCall)
	require.Equal(expression.AggCount, first.Kind())
	require.Empty(first.Args())
	require.True(simple.Schema()[0].Hidden)
	require.Equal([]int{0}, simple.PK(), "pk is the hidden aggregate state")
	require.Equal(4, len(simple.Aggs), "count state plus the three user aggregates")

	// the aggregate runs on a single partition behind an exchange
	ex, ok := simple.Children()[0].(*Exchange)
	require.True(ok)
	require.Equal(sql.SingleDist(), ex.Strategy)
}

// hash aggregate prepends the same hidden count state after the group keys.
func TestStreamHashAggCountState(t *testing.T) {
	require := require.New(t)

	root := compileStream(t, testCatalog(t), &ast.CreateMaterializedView{
		Name: "mv_group",
		Select: &ast.Select{
			Items:   []ast.SelectItem{{Expr: col("v1")}, {Expr: aggCall("sum", col("v2"))}},
			From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
			GroupBy: []ast.Expr{col("v1")},
		},
	})

	var hash *HashAgg
	walkNodes(root, func(n Node) {
		if h, ok := n.(*HashAgg); ok {
			hash = h
		}
	})
	require.NotNil(hash)

	require.Equal([]int{0}, hash.PK(), "group key is the pk")
	require.True(hash.Schema()[1].Hidden, "count state follows the group keys")
	first := expression.Unalias(hash.Aggs[0]).(*expression.AggCall)
	require.Equal(expression.AggCount, first.Kind())
	require.Equal(sql.HashDist(0), hash.Distribution())

	ex, ok := hash.Children()[0].(*Exchange)
	require.True(ok)
	require.Equal(sql.HashDist(0), ex.Strategy)
}

// three-way join: the pk is the concatenation of all three row ids.
func TestStreamThreeWayJoinPK(t *testing.T) {
	require := require.New(t)

	root := compileStream(t, testCatalog(t), &ast.CreateMaterializedView{
		Name: "mv_join",
		Select: &ast.Select{
			Items: []ast.SelectItem{
				{Expr: &ast.ColumnRef{Table: "t1", Column: "v1"}},
				{Expr: &ast.ColumnRef{Table: "t2", Column: "v1"}},
				{Expr: &ast.ColumnRef{Table: "t3", Column: "v2"}},
			},
			From: []ast.FromItem{&ast.Join{
				Left: &ast.Join{
					Left:  &ast.TableRef{Table: "t1"},
					Right: &ast.TableRef{Table: "t2"},
					Type:  ast.InnerJoin,
					On: &ast.BinaryOp{Op: "=",
						Left:  &ast.ColumnRef{Table: "t1", Column: "v1"},
						Right: &ast.ColumnRef{Table: "t2", Column: "v1"},
					},
				},
				Right: &ast.TableRef{Table: "t3"},
				Type:  ast.InnerJoin,
				On: &ast.BinaryOp{Op: "=",
					Left:  &ast.ColumnRef{Table: "t2", Column: "v2"},
					Right: &ast.ColumnRef{Table: "t3", Column: "v2"},
				},
			}},
		},
	})

	// the materialize's pk names all three hidden row ids, in join order
	require.Equal([]string{"_row_id#0", "_row_id#1", "_row_id#2"}, root.PKColumns)

	var joins []*HashJoin
	walkNodes(root, func(n Node) {
		if j, ok := n.(*HashJoin); ok {
			joins = append(joins, j)
		}
	})
	require.Equal(2, len(joins))
	top := joins[0]
	require.Equal(3, len(top.PK()), "join pk concatenates both inputs' pks")

	// both join inputs sit behind hash exchanges on the join keys
	for _, j := range joins {
		for i, side := range j.Children() {
			ex, ok := side.(*Exchange)
			require.True(ok, "join side %d must be exchanged", i)
			require.Equal(sql.HashShard, ex.Strategy.Kind)
		}
	}
}

// property: every stream node has a non-empty pk inside its schema.
func TestStreamPKInvariant(t *testing.T) {
	views := []*ast.CreateMaterializedView{
		{Name: "mv1", Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		}},
		{Name: "mv2", Select: &ast.Select{
			Items:   []ast.SelectItem{{Expr: col("v1")}, {Expr: aggCall("sum", col("v2"))}},
			From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
			GroupBy: []ast.Expr{col("v1")},
		}},
		{Name: "mv3", Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: aggCall("count", col("v1"))}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		}},
		{Name: "mv4", Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}, {Expr: col("v2")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
			Where: &ast.BinaryOp{Op: "<", Left: col("v2"),
				Right: &ast.Literal{Value: int32(4), Type: intType()}},
		}},
	}

	for _, view := range views {
		t.Run(view.Name, func(t *testing.T) {
			root := compileStream(t, testCatalog(t), view)
			walkNodes(root, func(n Node) {
				require.NotEmpty(t, n.PK(), "%T has an empty pk", n)
				for _, pk := range n.PK() {
					require.Less(t, pk, len(n.Schema()),
						"%T pk index %d outside its schema", n, pk)
				}
			})
		})
	}
}

// property: every parent-child edge agrees on distribution or crosses an
// exchange enforcing the parent's requirement.
func TestStreamExchangeBridging(t *testing.T) {
	root := compileStream(t, testCatalog(t), &ast.CreateMaterializedView{
		Name: "mv_group",
		Select: &ast.Select{
			Items:   []ast.SelectItem{{Expr: col("v1")}, {Expr: aggCall("sum", col("v2"))}},
			From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
			GroupBy: []ast.Expr{col("v1")},
		},
	})

	walkNodes(root, func(n Node) {
		switch n := n.(type) {
		case *HashAgg:
			requireDist(t, n.Children()[0], sql.HashDist(n.GroupKeys...))
		case *SimpleAgg:
			requireDist(t, n.Children()[0], sql.SingleDist())
		case *HashJoin:
			requireDist(t, n.Children()[0], sql.HashDist(n.LeftKeys...))
			requireDist(t, n.Children()[1], sql.HashDist(n.RightKeys...))
		}
	})
}

func requireDist(t *testing.T, child Node, want sql.Distribution) {
	t.Helper()
	require.True(t, child.Distribution().Satisfies(want),
		"child dist %s does not satisfy %s", child.Distribution(), want)
}

// MV on MV: the chain unions a merge placeholder with a snapshot scan.
func TestStreamChainForMVOnMV(t *testing.T) {
	require := require.New(t)

	catalog := testCatalog(t)
	base := compileStream(t, catalog, &ast.CreateMaterializedView{
		Name: "mv_base",
		Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
	})

	// register the view in a fresh catalog, as the meta service would
	mvTable := base.Table()
	require.True(mvTable.IsMaterializedView)
	catalog2 := sql.NewCatalog(mvTable)

	root := compileStream(t, catalog2, &ast.CreateMaterializedView{
		Name: "mv_on_mv",
		Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "mv_base"}},
		},
	})

	var chain *Chain
	walkNodes(root, func(n Node) {
		if c, ok := n.(*Chain); ok {
			chain = c
		}
	})
	require.NotNil(chain)

	children := chain.Children()
	require.Equal(2, len(children))
	_, ok := children[0].(*Merge)
	require.True(ok, "first chain input is the live merge placeholder")
	_, ok = children[1].(*BatchPlan)
	require.True(ok, "second chain input is the snapshot scan")

	// the chain sits behind a NoShuffle exchange for colocation
	var noShuffle bool
	walkNodes(root, func(n Node) {
		if ex, ok := n.(*Exchange); ok && ex.Strategy.Kind == sql.NoShuffle {
			noShuffle = true
		}
	})
	require.True(noShuffle)
}

// UNION ALL: branches are normalized to one schema, a hidden source tag
// keeps the branches' keys from colliding, and the tag joins the pk.
func TestStreamUnionAll(t *testing.T) {
	require := require.New(t)

	root := compileStream(t, testCatalog(t), &ast.CreateMaterializedView{
		Name: "mv_union",
		Union: &ast.UnionAll{
			Selects: []*ast.Select{
				{
					Items: []ast.SelectItem{{Expr: col("v1")}},
					From:  []ast.FromItem{&ast.TableRef{Table: "t1"}},
				},
				{
					Items: []ast.SelectItem{{Expr: col("v1")}},
					From:  []ast.FromItem{&ast.TableRef{Table: "t2"}},
				},
			},
		},
	})

	var union *Union
	walkNodes(root, func(n Node) {
		if u, ok := n.(*Union); ok {
			union = u
		}
	})
	require.NotNil(union)
	require.Equal(2, len(union.Children()))

	schema := union.Schema()
	require.Equal(3, len(schema))
	require.Equal("v1", schema[0].Name)
	require.True(schema[1].Hidden, "branch pk rides along hidden")
	require.True(schema[2].Hidden, "source tag is hidden")
	require.Equal([]int{1, 2}, union.PK(), "pk is the branch pk plus the tag")

	// each branch is a normalizing projection whose last item is the tag
	for i, in := range union.Children() {
		proj, ok := in.(*Project)
		require.True(ok)
		tag := expression.Unalias(proj.Exprs[len(proj.Exprs)-1]).(*expression.Constant)
		require.Equal(int16(i), tag.Value())
		require.Equal(union.Distribution(), proj.Distribution(),
			"branches already satisfy the union distribution, no exchange needed")
	}

	// every stream node still keeps its pk inside the schema
	walkNodes(root, func(n Node) {
		require.NotEmpty(n.PK())
		for _, pk := range n.PK() {
			require.Less(pk, len(n.Schema()))
		}
	})
}

// hidden pk carriers re-added by a projection use the empty alias.
func TestStreamProjectRetainsPKHidden(t *testing.T) {
	require := require.New(t)

	root := compileStream(t, testCatalog(t), &ast.CreateMaterializedView{
		Name: "mv_expr",
		Select: &ast.Select{
			Items: []ast.SelectItem{{
				Expr:  &ast.BinaryOp{Op: "+", Left: col("v1"), Right: col("v2")},
				Alias: "s",
			}},
			From: []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
	})

	proj := root.Children()[0].(*Project)
	require.Equal(2, len(proj.Exprs), "computed item plus the hidden row id")
	schema := proj.Schema()
	require.Equal("s", schema[0].Name)
	require.False(schema[0].Hidden)
	require.True(schema[1].Hidden)
	require.Equal([]int{1}, proj.PK())
}
