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
	"strings"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/types"
)

// BuildTableDescriptor turns a CREATE TABLE into the descriptor forwarded
// to the meta service. Column ids are assigned here; a hidden row id
// column is appended when no primary key is declared.
func (b *Builder) BuildTableDescriptor(ctx *sql.Context, stmt *ast.CreateTable) (*sql.TableDescriptor, error) {
	if b.catalog.Has(stmt.Name) {
		return nil, sql.ErrTableAlreadyExists.New(stmt.Name)
	}

	rowFormat := sql.RowFormatNone
	if stmt.RowFormat != "" {
		var ok bool
		rowFormat, ok = sql.RowFormatFromName(strings.ToUpper(stmt.RowFormat))
		if !ok {
			return nil, sql.ErrUnsupportedRowFormat.New(stmt.RowFormat)
		}
	}

	desc := &sql.TableDescriptor{Name: stmt.Name, RowFormat: rowFormat}
	for i, col := range stmt.Columns {
		desc.Columns = append(desc.Columns, sql.ColumnDescriptor{
			ID:       int32(i),
			Name:     col.Name,
			Type:     col.Type,
			Nullable: col.Nullable,
		})
	}

	if len(stmt.PrimaryKey) > 0 {
		for _, name := range stmt.PrimaryKey {
			idx := -1
			for i, col := range stmt.Columns {
				if col.Name == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, sql.ErrColumnNotFound.New(name)
			}
			desc.PKIndices = append(desc.PKIndices, idx)
		}
		return desc, nil
	}

	// no user pk: synthesize the hidden row id and key the table on it
	desc.Columns = append(desc.Columns, sql.ColumnDescriptor{
		ID:     int32(len(desc.Columns)),
		Name:   sql.RowIDName,
		Type:   types.Int64,
		Hidden: true,
	})
	desc.PKIndices = []int{len(desc.Columns) - 1}
	return desc, nil
}

// CheckDropTable validates a DROP TABLE against the dependency links.
func (b *Builder) CheckDropTable(ctx *sql.Context, stmt *ast.DropTable) (*sql.Table, error) {
	table, err := b.catalog.Table(stmt.Name)
	if err != nil {
		return nil, err
	}
	if deps := b.catalog.Dependents(stmt.Name); len(deps) > 0 {
		return nil, sql.ErrTableInUse.New(stmt.Name, strings.Join(deps, ", "))
	}
	return table, nil
}

// TableFromDescriptor converts a descriptor into a catalog table, as the
// meta service would after applying the DDL.
func TableFromDescriptor(desc *sql.TableDescriptor) *sql.Table {
	table := &sql.Table{
		Name:       desc.Name,
		PrimaryKey: append([]int(nil), desc.PKIndices...),
		RowFormat:  desc.RowFormat,
	}
	for _, col := range desc.Columns {
		table.Columns = append(table.Columns, &sql.Column{
			Name:     col.Name,
			Type:     col.Type,
			Nullable: col.Nullable,
			Hidden:   col.Hidden,
		})
		table.ColumnIDs = append(table.ColumnIDs, col.ID)
	}
	return table
}
