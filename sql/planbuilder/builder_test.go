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

package planbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/plan"
	"github.com/rivuletdata/rivulet/sql/types"
)

// testCatalog builds tables through the real DDL path.
func testCatalog(t *testing.T, stmts ...*ast.CreateTable) *sql.Catalog {
	t.Helper()
	builder := New(sql.NewCatalog(), "")
	ctx := sql.NewEmptyContext()
	var tables []*sql.Table
	for _, stmt := range stmts {
		desc, err := builder.BuildTableDescriptor(ctx, stmt)
		require.NoError(t, err)
		tables = append(tables, TableFromDescriptor(desc))
	}
	return sql.NewCatalog(tables...)
}

func tableT() *ast.CreateTable {
	return &ast.CreateTable{
		Name: "t",
		Columns: []ast.ColumnDef{
			{Name: "v1", Type: types.Int32, Nullable: true},
			{Name: "v2", Type: types.Int32, Nullable: true},
			{Name: "v3", Type: types.Int32, Nullable: true},
		},
	}
}

func col(name string) *ast.ColumnRef { return &ast.ColumnRef{Column: name} }

func lit(v int32) *ast.Literal { return &ast.Literal{Value: v, Type: types.Int32} }

func TestBuildTableDescriptorSynthesizesRowID(t *testing.T) {
	require := require.New(t)

	builder := New(sql.NewCatalog(), "")
	desc, err := builder.BuildTableDescriptor(sql.NewEmptyContext(), tableT())
	require.NoError(err)

	require.Equal(4, len(desc.Columns))
	last := desc.Columns[3]
	require.Equal(sql.RowIDName, last.Name)
	require.Equal(types.Int64, last.Type)
	require.True(last.Hidden)
	require.Equal([]int{3}, desc.PKIndices)
	require.Equal([]int32{0, 1, 2, 3}, []int32{
		desc.Columns[0].ID, desc.Columns[1].ID, desc.Columns[2].ID, desc.Columns[3].ID,
	})
}

func TestBuildTableDescriptorUserPK(t *testing.T) {
	require := require.New(t)

	builder := New(sql.NewCatalog(), "")
	desc, err := builder.BuildTableDescriptor(sql.NewEmptyContext(), &ast.CreateTable{
		Name: "orders",
		Columns: []ast.ColumnDef{
			{Name: "id", Type: types.Int64},
			{Name: "amount", Type: types.Int32, Nullable: true},
		},
		PrimaryKey: []string{"id"},
	})
	require.NoError(err)
	require.Equal(2, len(desc.Columns))
	require.Equal([]int{0}, desc.PKIndices)
}

func TestBuildTableDescriptorRowFormat(t *testing.T) {
	require := require.New(t)

	builder := New(sql.NewCatalog(), "")
	desc, err := builder.BuildTableDescriptor(sql.NewEmptyContext(), &ast.CreateTable{
		Name:      "src",
		Columns:   []ast.ColumnDef{{Name: "v", Type: types.Int32, Nullable: true}},
		RowFormat: "json",
	})
	require.NoError(err)
	require.Equal(sql.RowFormatJSON, desc.RowFormat)

	_, err = builder.BuildTableDescriptor(sql.NewEmptyContext(), &ast.CreateTable{
		Name:      "bad",
		Columns:   []ast.ColumnDef{{Name: "v", Type: types.Int32, Nullable: true}},
		RowFormat: "XML",
	})
	require.True(sql.ErrUnsupportedRowFormat.Is(err))
	require.True(sql.IsBinderError(err))
}

func TestCheckDropTable(t *testing.T) {
	require := require.New(t)

	catalog := testCatalog(t, tableT())
	catalog.AddDependency("t", "mv1")
	builder := New(catalog, "")

	_, err := builder.CheckDropTable(sql.NewEmptyContext(), &ast.DropTable{Name: "t"})
	require.True(sql.ErrTableInUse.Is(err))

	_, err = builder.CheckDropTable(sql.NewEmptyContext(), &ast.DropTable{Name: "missing"})
	require.True(sql.ErrTableNotFound.Is(err))
}

func TestBuildSimpleSelect(t *testing.T) {
	require := require.New(t)

	builder := New(testCatalog(t, tableT()), "")
	node, err := builder.Build(sql.NewEmptyContext(), &ast.Select{
		Items: []ast.SelectItem{{Expr: col("v1")}},
		From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
	})
	require.NoError(err)

	p, ok := node.(*plan.Project)
	require.True(ok)
	require.Equal(1, len(p.Projections()))
	ref := p.Projections()[0].(*expression.InputRef)
	require.Equal(0, ref.Index())
	_, ok = p.Child().(*plan.Scan)
	require.True(ok)
}

func TestBuildUnknownNames(t *testing.T) {
	require := require.New(t)

	builder := New(testCatalog(t, tableT()), "")
	_, err := builder.Build(sql.NewEmptyContext(), &ast.Select{
		Items: []ast.SelectItem{{Expr: col("v1")}},
		From:  []ast.FromItem{&ast.TableRef{Table: "missing"}},
	})
	require.True(sql.ErrTableNotFound.Is(err))

	_, err = builder.Build(sql.NewEmptyContext(), &ast.Select{
		Items: []ast.SelectItem{{Expr: col("nope")}},
		From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
	})
	require.True(sql.ErrColumnNotFound.Is(err))
}

func TestUnknownFunctionIsNotYetImplemented(t *testing.T) {
	require := require.New(t)

	builder := New(sql.NewCatalog(), "")
	_, err := builder.Build(sql.NewEmptyContext(), &ast.Values{
		Rows: [][]ast.Expr{{
			&ast.Call{Name: "must_be_unimplemented_func", Args: []ast.Expr{lit(1)}},
		}},
	})
	require.True(sql.ErrNotYetImplemented.Is(err))
	require.Equal(
		`unsupported function: "must_be_unimplemented_func", Tracking issue: `+sql.DefaultTrackingURL,
		err.Error(),
	)
}

func TestAggregateMisuse(t *testing.T) {
	require := require.New(t)

	builder := New(testCatalog(t, tableT()), "")

	// aggregates are rejected inside WHERE
	_, err := builder.Build(sql.NewEmptyContext(), &ast.Select{
		Items: []ast.SelectItem{{Expr: col("v1")}},
		From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
		Where: &ast.BinaryOp{
			Op:    ">",
			Left:  &ast.Call{Name: "sum", Args: []ast.Expr{col("v1")}},
			Right: lit(1),
		},
	})
	require.True(sql.ErrAggInWhere.Is(err))

	// and inside VALUES
	_, err = builder.Build(sql.NewEmptyContext(), &ast.Values{
		Rows: [][]ast.Expr{{
			&ast.Call{Name: "count", Args: []ast.Expr{lit(1)}},
		}},
	})
	require.True(sql.ErrAggInValues.Is(err))
}

func TestBuildValuesWidensColumns(t *testing.T) {
	require := require.New(t)

	builder := New(sql.NewCatalog(), "")
	node, err := builder.Build(sql.NewEmptyContext(), &ast.Values{
		Rows: [][]ast.Expr{
			{&ast.Literal{Value: int16(1), Type: types.Int16}},
			{&ast.Literal{Value: int64(2), Type: types.Int64}},
		},
	})
	require.NoError(err)

	values := node.(*plan.Values)
	require.Equal(types.Int64, values.Schema()[0].Type)
	for _, row := range values.Rows() {
		require.Equal(types.Int64, row[0].Type())
	}
}

func TestBuildInsertCastsIntoTableTypes(t *testing.T) {
	require := require.New(t)

	builder := New(testCatalog(t, tableT()), "")
	node, err := builder.Build(sql.NewEmptyContext(), &ast.Insert{
		Table: "t",
		Source: &ast.Values{Rows: [][]ast.Expr{{
			&ast.Literal{Value: int16(1), Type: types.Int16},
			&ast.Literal{Value: int16(2), Type: types.Int16},
			&ast.Literal{Value: int16(3), Type: types.Int16},
		}}},
	})
	require.NoError(err)

	ins := node.(*plan.Insert)
	proj := ins.Child().(*plan.Project)
	for _, e := range proj.Projections() {
		require.Equal(types.Int32, e.Type())
	}

	// arity mismatch
	_, err = builder.Build(sql.NewEmptyContext(), &ast.Insert{
		Table:  "t",
		Source: &ast.Values{Rows: [][]ast.Expr{{lit(1)}}},
	})
	require.True(sql.ErrInvalidInputSyntax.Is(err))
}

func TestBuildGroupByEmitsUngroupedPlaceholder(t *testing.T) {
	require := require.New(t)

	builder := New(testCatalog(t, tableT()), "")
	node, err := builder.Build(sql.NewEmptyContext(), &ast.Select{
		Items:   []ast.SelectItem{{Expr: col("v1")}},
		From:    []ast.FromItem{&ast.TableRef{Table: "t"}},
		GroupBy: []ast.Expr{col("v2")},
	})
	require.NoError(err, "binding succeeds; the validation rule reports the error")

	p := node.(*plan.Project)
	_, ok := p.Projections()[0].(*expression.UngroupedColumn)
	require.True(ok)
}

func TestBuildGroupByPKAllowsOtherColumns(t *testing.T) {
	require := require.New(t)

	catalog := testCatalog(t, &ast.CreateTable{
		Name: "orders",
		Columns: []ast.ColumnDef{
			{Name: "id", Type: types.Int64},
			{Name: "amount", Type: types.Int32, Nullable: true},
		},
		PrimaryKey: []string{"id"},
	})
	builder := New(catalog, "")

	// grouping by the pk functionally determines amount, so it may be
	// projected without its own group key
	node, err := builder.Build(sql.NewEmptyContext(), &ast.Select{
		Items: []ast.SelectItem{
			{Expr: col("id")},
			{Expr: col("amount")},
			{Expr: &ast.Call{Name: "count", Star: true}},
		},
		From:    []ast.FromItem{&ast.TableRef{Table: "orders"}},
		GroupBy: []ast.Expr{col("id")},
	})
	require.NoError(err)

	p := node.(*plan.Project)
	for _, e := range p.Projections() {
		_, ungrouped := e.(*expression.UngroupedColumn)
		require.False(ungrouped)
	}
	agg := p.Child().(*plan.Aggregate)
	require.Equal(2, len(agg.GroupBy()), "amount is grouped implicitly")
}

func TestBuildExplicitJoin(t *testing.T) {
	require := require.New(t)

	catalog := testCatalog(t,
		&ast.CreateTable{Name: "t1", Columns: []ast.ColumnDef{
			{Name: "v1", Type: types.Int32, Nullable: true},
			{Name: "v2", Type: types.Int32, Nullable: true},
		}},
		&ast.CreateTable{Name: "t2", Columns: []ast.ColumnDef{
			{Name: "v1", Type: types.Int32, Nullable: true},
			{Name: "v2", Type: types.Int32, Nullable: true},
		}},
	)
	builder := New(catalog, "")

	node, err := builder.Build(sql.NewEmptyContext(), &ast.Select{
		Items: []ast.SelectItem{{Expr: &ast.ColumnRef{Table: "t1", Column: "v1"}}},
		From: []ast.FromItem{&ast.Join{
			Left:  &ast.TableRef{Table: "t1"},
			Right: &ast.TableRef{Table: "t2"},
			Type:  ast.InnerJoin,
			On: &ast.BinaryOp{
				Op:    "=",
				Left:  &ast.ColumnRef{Table: "t1", Column: "v1"},
				Right: &ast.ColumnRef{Table: "t2", Column: "v1"},
			},
		}},
	})
	require.NoError(err)

	p := node.(*plan.Project)
	j := p.Child().(*plan.Join)
	require.Equal(plan.InnerJoin, j.JoinType())
	require.NotNil(j.Condition())

	// the right side's reference is offset past the left schema
	call := j.Condition().(*expression.FunctionCall)
	require.Equal(0, call.Args()[0].(*expression.InputRef).Index())
	require.Equal(3, call.Args()[1].(*expression.InputRef).Index())
}

func TestBuildUnionAll(t *testing.T) {
	require := require.New(t)

	catalog := testCatalog(t,
		tableT(),
		&ast.CreateTable{Name: "small", Columns: []ast.ColumnDef{
			{Name: "a", Type: types.Int16, Nullable: true},
		}},
	)
	builder := New(catalog, "")

	node, err := builder.Build(sql.NewEmptyContext(), &ast.UnionAll{
		Selects: []*ast.Select{
			{
				Items: []ast.SelectItem{{Expr: col("v1")}},
				From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
			},
			{
				Items: []ast.SelectItem{{Expr: col("a")}},
				From:  []ast.FromItem{&ast.TableRef{Table: "small"}},
			},
		},
	})
	require.NoError(err)

	union, ok := node.(*plan.Union)
	require.True(ok)
	require.Equal(2, len(union.Children()))
	require.Equal(types.Int32, union.Schema()[0].Type)
	require.Equal("v1", union.Schema()[0].Name, "names come from the first branch")

	// the narrow branch is cast up to the common type
	second := union.Children()[1].(*plan.Project)
	cast, ok := expression.Unalias(second.Projections()[0]).(*expression.Cast)
	require.True(ok)
	require.Equal(types.Int32, cast.Type())

	// column count mismatch
	_, err = builder.Build(sql.NewEmptyContext(), &ast.UnionAll{
		Selects: []*ast.Select{
			{
				Items: []ast.SelectItem{{Expr: col("v1")}, {Expr: col("v2")}},
				From:  []ast.FromItem{&ast.TableRef{Table: "t"}},
			},
			{
				Items: []ast.SelectItem{{Expr: col("a")}},
				From:  []ast.FromItem{&ast.TableRef{Table: "small"}},
			},
		},
	})
	require.True(sql.ErrInvalidInputSyntax.Is(err))
}

func TestBuildDeleteAndUpdate(t *testing.T) {
	require := require.New(t)

	builder := New(testCatalog(t, tableT()), "")

	node, err := builder.Build(sql.NewEmptyContext(), &ast.Delete{
		Table: "t",
		Where: &ast.BinaryOp{Op: "=", Left: col("v1"), Right: lit(1)},
	})
	require.NoError(err)
	del := node.(*plan.Delete)
	_, ok := del.Child().(*plan.Filter)
	require.True(ok)

	node, err = builder.Build(sql.NewEmptyContext(), &ast.Update{
		Table:       "t",
		Assignments: []ast.Assignment{{Column: "v2", Value: lit(9)}},
	})
	require.NoError(err)
	upd := node.(*plan.Update)
	proj := upd.Child().(*plan.Project)
	// the full row is recomputed: three user columns plus the row id
	require.Equal(4, len(proj.Projections()))
}
