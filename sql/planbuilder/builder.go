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

// Package planbuilder turns bound statements into logical plans. Errors
// raised here are binder errors: they are reported before any planning
// takes place.
package planbuilder

import (
	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/plan"
	"github.com/rivuletdata/rivulet/sql/types"
)

// Builder binds statements against a catalog snapshot.
type Builder struct {
	catalog     *sql.Catalog
	trackingURL string
}

// New creates a builder over the catalog snapshot.
func New(catalog *sql.Catalog, trackingURL string) *Builder {
	if trackingURL == "" {
		trackingURL = sql.DefaultTrackingURL
	}
	return &Builder{catalog: catalog, trackingURL: trackingURL}
}

// Build produces the logical plan of a DQL/DML statement.
func (b *Builder) Build(ctx *sql.Context, stmt ast.Statement) (sql.Node, error) {
	switch stmt := stmt.(type) {
	case *ast.Select:
		node, _, err := b.buildSelect(ctx, stmt)
		return node, err
	case *ast.UnionAll:
		return b.buildUnionAll(ctx, stmt)
	case *ast.Values:
		return b.buildValues(ctx, stmt)
	case *ast.Insert:
		return b.buildInsert(ctx, stmt)
	case *ast.Delete:
		return b.buildDelete(ctx, stmt)
	case *ast.Update:
		return b.buildUpdate(ctx, stmt)
	case *ast.CreateMaterializedView:
		var node sql.Node
		var err error
		if stmt.Union != nil {
			node, err = b.buildUnionAll(ctx, stmt.Union)
		} else {
			node, _, err = b.buildSelect(ctx, stmt.Select)
		}
		if err != nil {
			return nil, err
		}
		return plan.NewMaterialize(stmt.Name, node), nil
	default:
		return nil, b.notImplemented("unsupported statement")
	}
}

func (b *Builder) notImplemented(what string) error {
	return sql.ErrNotYetImplemented.New(what, b.trackingURL)
}

func (b *Builder) buildValues(ctx *sql.Context, stmt *ast.Values) (sql.Node, error) {
	if len(stmt.Rows) == 0 {
		return nil, sql.ErrInvalidInputSyntax.New("VALUES must have at least one row")
	}
	width := len(stmt.Rows[0])
	rows := make([][]sql.Expression, len(stmt.Rows))
	for i, row := range stmt.Rows {
		if len(row) != width {
			return nil, sql.ErrInvalidInputSyntax.New("VALUES rows must all be the same length")
		}
		bound := make([]sql.Expression, len(row))
		for j, cell := range row {
			e, err := b.bindExpr(ctx, emptyScope(), cell, aggForbiddenInValues)
			if err != nil {
				return nil, err
			}
			if e, err = expression.FoldConstants(e); err != nil {
				return nil, err
			}
			bound[j] = e
		}
		rows[i] = bound
	}
	// widen every column to a common type across rows
	for j := 0; j < width; j++ {
		common := rows[0][j].Type()
		for i := 1; i < len(rows); i++ {
			t, ok := types.Promote(common, rows[i][j].Type())
			if !ok {
				return nil, sql.ErrInvalidInputSyntax.New(
					"VALUES types " + common.String() + " and " + rows[i][j].Type().String() + " cannot be matched")
			}
			common = t
		}
		for i := range rows {
			e, err := expression.FoldConstants(expression.EnsureType(rows[i][j], common))
			if err != nil {
				return nil, err
			}
			rows[i][j] = e
		}
	}
	return plan.NewValues(rows), nil
}

// buildUnionAll builds each branch and widens every column position to a
// common type, casting branches that need it.
func (b *Builder) buildUnionAll(ctx *sql.Context, stmt *ast.UnionAll) (sql.Node, error) {
	if len(stmt.Selects) < 2 {
		return nil, sql.ErrInvalidInputSyntax.New("UNION needs at least two sides")
	}
	inputs := make([]sql.Node, len(stmt.Selects))
	for i, sel := range stmt.Selects {
		node, _, err := b.buildSelect(ctx, sel)
		if err != nil {
			return nil, err
		}
		inputs[i] = node
	}

	width := len(inputs[0].Schema())
	common := make([]sql.Type, width)
	for i, c := range inputs[0].Schema() {
		common[i] = c.Type
	}
	for _, in := range inputs[1:] {
		if len(in.Schema()) != width {
			return nil, sql.ErrInvalidInputSyntax.New("each UNION query must have the same number of columns")
		}
		for j, c := range in.Schema() {
			t, ok := types.Promote(common[j], c.Type)
			if !ok {
				return nil, sql.ErrInvalidInputSyntax.New(
					"UNION types " + common[j].String() + " and " + c.Type.String() + " cannot be matched")
			}
			common[j] = t
		}
	}

	names := inputs[0].Schema()
	for i, in := range inputs {
		schema := in.Schema()
		projections := make([]sql.Expression, width)
		changed := false
		for j, c := range schema {
			ref := expression.NewInputRef(j, c.Type, names[j].Name, c.Nullable)
			if !c.Type.Equals(common[j]) {
				projections[j] = expression.NewAlias(names[j].Name, expression.NewCast(ref, common[j]))
				changed = true
			} else if c.Name != names[j].Name {
				projections[j] = expression.NewAlias(names[j].Name, ref)
				changed = true
			} else {
				projections[j] = ref
			}
		}
		if changed {
			inputs[i] = plan.NewProject(projections, in)
		}
	}
	return plan.NewUnion(inputs...), nil
}

func (b *Builder) buildInsert(ctx *sql.Context, stmt *ast.Insert) (sql.Node, error) {
	table, err := b.catalog.Table(stmt.Table)
	if err != nil {
		return nil, err
	}
	source, err := b.Build(ctx, stmt.Source)
	if err != nil {
		return nil, err
	}
	visible := table.Columns.Visible()
	if len(source.Schema()) != len(visible) {
		return nil, sql.ErrInvalidInputSyntax.New("INSERT has a different column count than the table")
	}
	// cast the source into the table's column types
	projections := make([]sql.Expression, len(visible))
	changed := false
	for i, ti := range visible {
		col := table.Columns[ti]
		src := source.Schema()[i]
		ref := expression.NewInputRef(i, src.Type, src.Name, src.Nullable)
		if !src.Type.Equals(col.Type) {
			if !types.CanImplicitCast(src.Type, col.Type) {
				return nil, sql.ErrInvalidInputSyntax.New(
					"cannot cast " + src.Type.String() + " to " + col.Type.String())
			}
			projections[i] = expression.NewCast(ref, col.Type)
			changed = true
		} else {
			projections[i] = ref
		}
	}
	if changed {
		source = plan.NewProject(projections, source)
	}
	return plan.NewInsert(table, source), nil
}

func (b *Builder) buildDelete(ctx *sql.Context, stmt *ast.Delete) (sql.Node, error) {
	table, err := b.catalog.Table(stmt.Table)
	if err != nil {
		return nil, err
	}
	var node sql.Node = plan.NewScan(table, ctx.IDs().NextScanOrdinal())
	if stmt.Where != nil {
		cond, err := b.bindExpr(ctx, scopeOf(node, stmt.Table), stmt.Where, aggForbiddenInWhere)
		if err != nil {
			return nil, err
		}
		if cond, err = expression.FoldConstants(cond); err != nil {
			return nil, err
		}
		node = plan.NewFilter(cond, node)
	}
	return plan.NewDelete(table, node), nil
}

func (b *Builder) buildUpdate(ctx *sql.Context, stmt *ast.Update) (sql.Node, error) {
	table, err := b.catalog.Table(stmt.Table)
	if err != nil {
		return nil, err
	}
	var node sql.Node = plan.NewScan(table, ctx.IDs().NextScanOrdinal())
	sc := scopeOf(node, stmt.Table)
	if stmt.Where != nil {
		cond, err := b.bindExpr(ctx, sc, stmt.Where, aggForbiddenInWhere)
		if err != nil {
			return nil, err
		}
		if cond, err = expression.FoldConstants(cond); err != nil {
			return nil, err
		}
		node = plan.NewFilter(cond, node)
	}
	// recompute the full row, replacing assigned columns
	assigned := map[int]sql.Expression{}
	for _, as := range stmt.Assignments {
		idx, ok := sc.resolve("", as.Column)
		if !ok {
			return nil, sql.ErrColumnNotFound.New(as.Column)
		}
		value, err := b.bindExpr(ctx, sc, as.Value, aggForbiddenInWhere)
		if err != nil {
			return nil, err
		}
		col := node.Schema()[idx]
		if !value.Type().Equals(col.Type) {
			if !types.CanImplicitCast(value.Type(), col.Type) {
				return nil, sql.ErrInvalidInputSyntax.New(
					"cannot cast " + value.Type().String() + " to " + col.Type.String())
			}
			value = expression.NewCast(value, col.Type)
		}
		if value, err = expression.FoldConstants(value); err != nil {
			return nil, err
		}
		assigned[idx] = value
	}
	schema := node.Schema()
	projections := make([]sql.Expression, len(schema))
	for i, col := range schema {
		if e, ok := assigned[i]; ok {
			projections[i] = expression.NewAlias(col.Name, e)
		} else {
			projections[i] = expression.NewInputRef(i, col.Type, col.Name, col.Nullable)
		}
	}
	return plan.NewUpdate(table, plan.NewProject(projections, node)), nil
}
