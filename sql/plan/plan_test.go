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

package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/types"
)

func testTable() *sql.Table {
	return &sql.Table{
		Name: "t",
		Columns: sql.Schema{
			{Name: "v1", Type: types.Int32, Nullable: true},
			{Name: "v2", Type: types.Int32, Nullable: true},
			{Name: sql.RowIDName, Type: types.Int64, Hidden: true},
		},
		PrimaryKey: []int{2},
	}
}

func keyedTable(name string) *sql.Table {
	return &sql.Table{
		Name: name,
		Columns: sql.Schema{
			{Name: "id", Type: types.Int64},
			{Name: "v", Type: types.Int32, Nullable: true},
		},
		PrimaryKey: []int{0},
	}
}

func TestScanSchemaAndPK(t *testing.T) {
	require := require.New(t)

	s := NewScan(testTable(), 0)
	require.Equal(3, len(s.Schema()))
	require.Equal("v1", s.Schema()[0].Name)
	require.Equal("_row_id#0", s.Schema()[2].Name)
	require.True(s.Schema()[2].Hidden)
	require.Equal([]int{2}, s.PrimaryKey())

	// the scan ordinal names the row id
	s2 := NewScan(testTable(), 1)
	require.Equal("_row_id#1", s2.Schema()[2].Name)

	pruned := NewScanWithColumns(testTable(), []int{1}, 0)
	require.Equal(1, len(pruned.Schema()))
	require.Empty(pruned.PrimaryKey())
}

func TestProjectSchema(t *testing.T) {
	require := require.New(t)

	scan := NewScan(testTable(), 0)
	p := NewProject([]sql.Expression{
		expression.NewAlias("foo", expression.NewInputRef(1, types.Int32, "v2", true)),
		expression.NewInputRef(0, types.Int32, "v1", true),
		expression.NewAlias("", expression.NewInputRef(2, types.Int64, "_row_id#0", false)),
	}, scan)

	schema := p.Schema()
	require.Equal("foo", schema[0].Name)
	require.False(schema[0].Hidden)
	require.Equal("v1", schema[1].Name)
	require.Equal("_row_id#0", schema[2].Name)
	require.True(schema[2].Hidden, "empty alias marks a hidden retained column")

	require.Equal([]string{"foo", "v1", ""}, p.Aliases())
}

func TestFilterPassesSchemaThrough(t *testing.T) {
	require := require.New(t)

	scan := NewScan(testTable(), 0)
	cond, err := expression.NewFunctionCall(expression.GreaterThan,
		expression.NewInputRef(0, types.Int32, "v1", true),
		expression.NewConstant(int32(1), types.Int32),
	)
	require.NoError(err)
	f := NewFilter(cond, scan)
	require.Equal(scan.Schema(), f.Schema())
}

func TestJoinSchemaNullability(t *testing.T) {
	require := require.New(t)

	left := NewScan(keyedTable("l"), 0)
	right := NewScan(keyedTable("r"), 1)

	inner := NewJoin(left, right, InnerJoin, nil)
	require.Equal(4, len(inner.Schema()))
	require.False(inner.Schema()[0].Nullable)

	outer := NewJoin(left, right, LeftOuterJoin, nil)
	require.False(outer.Schema()[0].Nullable)
	require.True(outer.Schema()[2].Nullable, "outer side becomes nullable")

	// the join key set is the concatenation of both sides' keys
	require.True(inner.FuncDeps().Determines([]int{0, 2}))
	require.False(inner.FuncDeps().Determines([]int{0, 1}))
}

func TestJoinEquiKeySplit(t *testing.T) {
	require := require.New(t)

	left := NewScan(keyedTable("l"), 0)
	right := NewScan(keyedTable("r"), 1)
	on, err := expression.NewFunctionCall(expression.Equal,
		expression.NewInputRef(0, types.Int64, "id", false),
		expression.NewInputRef(2, types.Int64, "id", false),
	)
	require.NoError(err)

	j := NewJoin(left, right, InnerJoin, on)
	split := j.WithEquiKeys([]int{0}, []int{0}, nil)
	el, er := split.EquiKeys()
	require.Equal([]int{0}, el)
	require.Equal([]int{0}, er)
	require.Nil(split.Condition())
}

func TestAggregateSchema(t *testing.T) {
	require := require.New(t)

	scan := NewScan(testTable(), 0)
	sum, err := expression.NewAggCall(expression.AggSum, false,
		expression.NewInputRef(0, types.Int32, "v1", true))
	require.NoError(err)

	agg := NewAggregate(
		[]sql.Expression{expression.NewInputRef(1, types.Int32, "v2", true)},
		[]sql.Expression{sum},
		scan,
	)
	schema := agg.Schema()
	require.Equal(2, len(schema))
	require.Equal("v2", schema[0].Name)
	require.Equal(types.Int64, schema[1].Type)
	require.False(agg.Simple())
	require.Equal([]int{1}, agg.GroupKeyIndices())
	require.True(agg.FuncDeps().Determines([]int{0}))

	simple := NewAggregate(nil, []sql.Expression{sum}, scan)
	require.True(simple.Simple())
}

func TestTransformExpressionsUpRewritesEverything(t *testing.T) {
	require := require.New(t)

	scan := NewScan(testTable(), 0)
	cond, err := expression.NewFunctionCall(expression.Equal,
		expression.NewInputRef(0, types.Int32, "v1", true),
		expression.NewConstant(int32(7), types.Int32),
	)
	require.NoError(err)
	node := NewProject(
		[]sql.Expression{expression.NewInputRef(0, types.Int32, "v1", true)},
		NewFilter(cond, scan),
	)

	shifted, err := TransformExpressionsUp(node, func(e sql.Expression) (sql.Expression, error) {
		if ref, ok := e.(*expression.InputRef); ok {
			return ref.WithIndex(ref.Index() + 1), nil
		}
		return e, nil
	})
	require.NoError(err)

	proj := shifted.(*Project)
	require.Equal(1, proj.Projections()[0].(*expression.InputRef).Index())
	filter := proj.Child().(*Filter)
	refIdx := filter.Condition().(*expression.FunctionCall).Args()[0].(*expression.InputRef).Index()
	require.Equal(1, refIdx)
}

func TestPlanStrings(t *testing.T) {
	require := require.New(t)

	scan := NewScan(testTable(), 0)
	require.Equal("Scan { table: t, columns: [v1, v2, _row_id#0(hidden)] }\n", scan.String())

	cond, err := expression.NewFunctionCall(expression.LessThan,
		expression.NewInputRef(1, types.Int32, "v2", true),
		expression.NewConstant(int32(4), types.Int32),
	)
	require.NoError(err)
	f := NewFilter(cond, scan)
	require.Equal(
		"Filter { predicate: ($1 < 4) }\n"+
			" └─ Scan { table: t, columns: [v1, v2, _row_id#0(hidden)] }\n",
		f.String())
}
