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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/analyzer"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/batch"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/fixtures"
	"github.com/rivuletdata/rivulet/sql/fragment"
	"github.com/rivuletdata/rivulet/sql/planbuilder"
	"github.com/rivuletdata/rivulet/sql/stream"
	"github.com/rivuletdata/rivulet/sql/types"
)

const testCatalogYAML = `
tables:
  - name: t
    columns:
      - {name: v1, type: Int32, nullable: true}
      - {name: v2, type: Int32, nullable: true}
      - {name: v3, type: Int32, nullable: true}
`

func marshalBatch(t *testing.T, stmt ast.Statement) []byte {
	t.Helper()
	ctx := sql.NewEmptyContext()
	builder := planbuilder.New(fixtures.MustCatalog(testCatalogYAML), "")
	logical, err := builder.Build(ctx, stmt)
	require.NoError(t, err)
	analyzed, err := analyzer.New().Analyze(ctx, logical)
	require.NoError(t, err)
	root, err := batch.Plan(ctx, analyzed)
	require.NoError(t, err)
	proto, err := FromBatchPlan(root)
	require.NoError(t, err)
	return proto.Marshal()
}

func marshalStream(t *testing.T, view *ast.CreateMaterializedView) []byte {
	t.Helper()
	ctx := sql.NewEmptyContext()
	builder := planbuilder.New(fixtures.MustCatalog(testCatalogYAML), "")
	logical, err := builder.Build(ctx, view)
	require.NoError(t, err)
	analyzed, err := analyzer.New().Analyze(ctx, logical)
	require.NoError(t, err)
	root, err := stream.Plan(ctx, analyzed)
	require.NoError(t, err)
	graph, err := fragment.Build(ctx, root, fragment.Options{})
	require.NoError(t, err)
	proto, err := FromGraph(graph)
	require.NoError(t, err)
	return proto.Marshal()
}

func col(name string) *ast.ColumnRef { return &ast.ColumnRef{Column: name} }

// property: compiling the same statement twice produces byte-identical
// output.
func TestDeterministicSerialization(t *testing.T) {
	require := require.New(t)

	selectStmt := &ast.Select{
		Items:   []ast.SelectItem{{Expr: col("v1")}, {Expr: &ast.Call{Name: "sum", Args: []ast.Expr{col("v2")}}}},
		From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
		GroupBy: []ast.Expr{col("v1")},
	}
	require.Equal(marshalBatch(t, selectStmt), marshalBatch(t, selectStmt))

	view := &ast.CreateMaterializedView{
		Name: "mv",
		Select: &ast.Select{
			Items:   []ast.SelectItem{{Expr: col("v1")}, {Expr: &ast.Call{Name: "sum", Args: []ast.Expr{col("v2")}}}},
			From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
			GroupBy: []ast.Expr{col("v1")},
		},
	}
	require.Equal(marshalStream(t, view), marshalStream(t, view))
}

func TestDatumEncodingIsBigEndian(t *testing.T) {
	require := require.New(t)

	datum, notNull, err := encodeDatum(int32(1), types.Int32)
	require.NoError(err)
	require.True(notNull)
	require.Equal([]byte{0x00, 0x00, 0x00, 0x01}, datum)

	datum, _, err = encodeDatum(int64(258), types.Int64)
	require.NoError(err)
	require.Equal([]byte{0, 0, 0, 0, 0, 0, 0x01, 0x02}, datum)

	datum, _, err = encodeDatum(int16(-1), types.Int16)
	require.NoError(err)
	require.Equal([]byte{0xff, 0xff}, datum)

	datum, _, err = encodeDatum("héllo", types.Varchar)
	require.NoError(err)
	require.Equal([]byte("héllo"), datum, "strings are raw UTF-8")

	datum, notNull, err = encodeDatum(nil, types.Int32)
	require.NoError(err)
	require.False(notNull)
	require.Nil(datum)
}

func TestExprNodeShapes(t *testing.T) {
	require := require.New(t)

	call, err := expression.NewFunctionCall(expression.Add,
		expression.NewInputRef(0, types.Int16, "a", false),
		expression.NewInputRef(1, types.Int64, "b", false),
	)
	require.NoError(err)

	node, err := exprNode(call)
	require.NoError(err)
	require.Equal(exprFuncCall, node.Tag)
	require.Equal(2, len(node.Children))
	require.Equal(exprCast, node.Children[0].Tag, "the widening cast is explicit on the wire")
	require.Equal(exprInputRef, node.Children[0].Children[0].Tag)
	require.Equal(uint32(1), node.Children[1].Index)
}

func TestAggCallEncoding(t *testing.T) {
	require := require.New(t)

	call, err := expression.NewAggCall(expression.AggSum, true,
		expression.NewInputRef(3, types.Int32, "v", true))
	require.NoError(err)

	node, err := aggCallNode(call)
	require.NoError(err)
	require.Equal(uint8(expression.AggSum), node.Type)
	require.Equal(1, len(node.Args))
	require.Equal(uint32(3), node.Args[0].InputRef)
	require.Equal(uint8(types.TagOf(types.Int32)), node.Args[0].Type)
	require.Equal(uint8(types.TagOf(types.Int64)), node.ReturnType)
	require.True(node.Distinct)

	// computed arguments must have been pre-projected away
	computed, err := expression.NewFunctionCall(expression.Add,
		expression.NewInputRef(0, types.Int32, "a", false),
		expression.NewInputRef(1, types.Int32, "b", false),
	)
	require.NoError(err)
	bad, err := expression.NewAggCall(expression.AggSum, false, computed)
	require.NoError(err)
	_, err = aggCallNode(bad)
	require.True(sql.ErrInternal.Is(err))
}

func TestStreamGraphCarriesSharedFields(t *testing.T) {
	require := require.New(t)

	ctx := sql.NewEmptyContext()
	builder := planbuilder.New(fixtures.MustCatalog(testCatalogYAML), "")
	logical, err := builder.Build(ctx, &ast.CreateMaterializedView{
		Name: "mv",
		Select: &ast.Select{
			Items: []ast.SelectItem{{Expr: col("v1")}},
			From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		},
	})
	require.NoError(err)
	analyzed, err := analyzer.New().Analyze(ctx, logical)
	require.NoError(err)
	root, err := stream.Plan(ctx, analyzed)
	require.NoError(err)
	graph, err := fragment.Build(ctx, root, fragment.Options{})
	require.NoError(err)
	proto, err := FromGraph(graph)
	require.NoError(err)

	require.Equal(1, len(proto.Fragments))
	node := proto.Fragments[0].Node
	require.NotZero(node.OperatorID)
	require.NotEmpty(node.Identity)
	require.Equal([]int{1}, node.PKIndices)
	require.Equal(2, len(node.Fields))
	require.Equal("v1", node.Fields[0].Name)
	require.True(node.Fields[1].Hidden)

	// the child scan keeps its own identity and pk
	scan := node.Input[0]
	require.Equal([]int{1}, scan.PKIndices)
	require.Contains(scan.Identity, "StreamTableScan")
}
