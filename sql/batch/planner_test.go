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

package batch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/analyzer"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/fixtures"
	"github.com/rivuletdata/rivulet/sql/planbuilder"
	"github.com/rivuletdata/rivulet/sql/types"
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
  - name: t3
    columns:
      - {name: v1, type: Int32, nullable: true}
      - {name: v2, type: Int32, nullable: true}
`

func compileBatch(t *testing.T, stmt ast.Statement) Node {
	t.Helper()
	ctx := sql.NewEmptyContext()
	builder := planbuilder.New(fixtures.MustCatalog(testCatalogYAML), "")
	logical, err := builder.Build(ctx, stmt)
	require.NoError(t, err)
	analyzed, err := analyzer.New().Analyze(ctx, logical)
	require.NoError(t, err)
	root, err := Plan(ctx, analyzed)
	require.NoError(t, err)
	return root
}

func col(name string) *ast.ColumnRef { return &ast.ColumnRef{Column: name} }

func agg(name string, args ...ast.Expr) *ast.Call { return &ast.Call{Name: name, Args: args} }

// scan + project: the root gathers an unconstrained scan to one partition.
func TestBatchScanProject(t *testing.T) {
	require := require.New(t)

	root := compileBatch(t, &ast.Select{
		Items: []ast.SelectItem{{Expr: col("v1")}},
		From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
	})

	expected := "BatchExchange { order: [], dist: Single }\n" +
		" └─ BatchScan { table: t, columns: [v1] }\n"
	require.Equal(expected, root.String())
	require.Equal(sql.SingleDist(), root.Distribution())
}

// simple aggregate: project over the aggregate over a gather exchange.
func TestBatchSimpleAgg(t *testing.T) {
	require := require.New(t)

	root := compileBatch(t, &ast.Select{
		Items: []ast.SelectItem{{Expr: &ast.BinaryOp{
			Op:   "+",
			Left: agg("min", col("v1")),
			Right: &ast.BinaryOp{
				Op:    "*",
				Left:  agg("max", col("v2")),
				Right: agg("count", col("v3")),
			},
		}}},
		From: []ast.FromItem{&ast.TableRef{Table: "t"}},
	})

	expected := "BatchProject { exprs: [($0::Int64 + ($1::Int64 * $2))] }\n" +
		" └─ BatchSimpleAgg { aggs: [min($0), max($1), count($2)] }\n" +
		"     └─ BatchExchange { order: [], dist: Single }\n" +
		"         └─ BatchScan { table: t, columns: [v1, v2, v3] }\n"
	require.Equal(expected, root.String())
}

// three-way join: left-deep hash joins, every input behind a hash
// exchange on its key.
func TestBatchThreeWayJoin(t *testing.T) {
	require := require.New(t)

	root := compileBatch(t, &ast.Select{
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
	})

	// walk down: exchange(single) -> project -> join(top)
	exchange, ok := root.(*Exchange)
	require.True(ok)
	project := exchange.Children()[0].(*Project)
	top := project.Children()[0].(*HashJoin)

	// top join's left is the lower join behind a hash exchange
	leftEx, ok := top.Children()[0].(*Exchange)
	require.True(ok)
	require.Equal(sql.HashShard, leftEx.Distribution().Kind)
	lower, ok := leftEx.Children()[0].(*HashJoin)
	require.True(ok, "left-deep: the lower join feeds the top join's left side")

	rightEx, ok := top.Children()[1].(*Exchange)
	require.True(ok)
	require.Equal(sql.HashShard, rightEx.Distribution().Kind)

	for _, side := range lower.Children() {
		ex, ok := side.(*Exchange)
		require.True(ok, "both base inputs sit behind exchanges")
		require.Equal(sql.HashShard, ex.Distribution().Kind)
		_, ok = ex.Children()[0].(*Scan)
		require.True(ok)
	}
}

// every compiled batch plan gathers to a single partition at the root.
func TestBatchRootIsAlwaysSingle(t *testing.T) {
	statements := []ast.Statement{
		&ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
		&ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}, {Expr: agg("sum", col("v2"))}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
			GroupBy: []ast.Expr{
				col("v1"),
			},
		},
		&ast.Values{Rows: [][]ast.Expr{{&ast.Literal{Value: int32(1), Type: types.Int32}}}},
		&ast.Insert{Table: "t", Source: &ast.Values{Rows: [][]ast.Expr{{
			&ast.Literal{Value: int32(1), Type: types.Int32},
			&ast.Literal{Value: int32(2), Type: types.Int32},
			&ast.Literal{Value: int32(3), Type: types.Int32},
		}}}},
	}

	for _, stmt := range statements {
		root := compileBatch(t, stmt)
		require.Equal(t, sql.SingleDist(), root.Distribution())
	}
}

func TestBatchHashAggRequiresHashShard(t *testing.T) {
	require := require.New(t)

	root := compileBatch(t, &ast.Select{
		Items:   []ast.SelectItem{{Expr: col("v1")}, {Expr: agg("sum", col("v2"))}},
		From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
		GroupBy: []ast.Expr{col("v1")},
	})

	// gather -> (project erased or present) -> hash agg -> hash exchange -> scan
	node := root
	for {
		if agg, ok := node.(*HashAgg); ok {
			ex, ok := agg.Children()[0].(*Exchange)
			require.True(ok, "hash agg input must be exchanged")
			require.Equal(sql.HashDist(0), ex.Distribution())
			return
		}
		children := node.Children()
		require.NotEmpty(children, "no hash agg found in plan")
		node = children[0]
	}
}

func TestBatchUnionNotYetImplemented(t *testing.T) {
	require := require.New(t)

	ctx := sql.NewEmptyContext()
	builder := planbuilder.New(fixtures.MustCatalog(testCatalogYAML), "")
	logical, err := builder.Build(ctx, &ast.UnionAll{
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
	})
	require.NoError(err)
	analyzed, err := analyzer.New().Analyze(ctx, logical)
	require.NoError(err)

	_, err = Plan(ctx, analyzed)
	require.True(sql.ErrNotYetImplemented.Is(err))
}

func TestBatchTopNConsumesOrder(t *testing.T) {
	require := require.New(t)

	limit := int64(10)
	root := compileBatch(t, &ast.Select{
		Items:   []ast.SelectItem{{Expr: col("v1")}},
		From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
		OrderBy: []ast.OrderItem{{Expr: col("v1"), Descending: true}},
		Limit:   &limit,
	})

	topn, ok := root.(*TopN)
	require.True(ok)
	ex, ok := topn.Children()[0].(*Exchange)
	require.True(ok)
	require.Equal(sql.SingleDist(), ex.Distribution())
	require.Equal(topn.Order, ex.Order, "the gather exchange carries the consumed order")
}
