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

// Package plan implements the logical relational operators produced from
// bound statements and rewritten by the analyzer.
package plan

import (
	"fmt"
	"strings"

	"github.com/rivuletdata/rivulet/sql"
)

// Scan reads a catalog table. Columns selects table columns by index; the
// synthesized row id column, when the table has no user primary key, is
// part of the selection and is named _row_id#K with the per-query scan
// ordinal K.
type Scan struct {
	table   *sql.Table
	columns []int
	ordinal int
	schema  sql.Schema
}

// NewScan creates a scan of every column of the table. Ordinal is the
// per-query scan ordinal used to name the row id column.
func NewScan(table *sql.Table, ordinal int) *Scan {
	cols := make([]int, len(table.Columns))
	for i := range cols {
		cols[i] = i
	}
	return newScan(table, cols, ordinal)
}

// NewScanWithColumns creates a scan of a subset of the table's columns.
func NewScanWithColumns(table *sql.Table, columns []int, ordinal int) *Scan {
	return newScan(table, columns, ordinal)
}

func newScan(table *sql.Table, columns []int, ordinal int) *Scan {
	schema := make(sql.Schema, len(columns))
	for i, ci := range columns {
		col := table.Columns[ci].Copy()
		if col.Name == sql.RowIDName {
			col.Name = fmt.Sprintf("%s#%d", sql.RowIDName, ordinal)
			col.Hidden = true
		}
		schema[i] = col
	}
	return &Scan{table: table, columns: columns, ordinal: ordinal, schema: schema}
}

// Table returns the catalog table.
func (s *Scan) Table() *sql.Table { return s.table }

// Columns returns the selected table column indices.
func (s *Scan) Columns() []int { return s.columns }

// Ordinal returns the per-query scan ordinal.
func (s *Scan) Ordinal() int { return s.ordinal }

// PrimaryKey returns the scan's pk as output column indices: the user pk if
// declared, else the synthesized row id.
func (s *Scan) PrimaryKey() []int {
	var pk []int
	for _, tablePK := range s.table.PrimaryKey {
		for out, ci := range s.columns {
			if ci == tablePK {
				pk = append(pk, out)
			}
		}
	}
	return pk
}

func (s *Scan) Schema() sql.Schema { return s.schema }

func (s *Scan) Children() []sql.Node { return nil }

func (s *Scan) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(s, len(children), 0)
	}
	return s, nil
}

// FuncDeps returns the scan's candidate keys: the pk.
func (s *Scan) FuncDeps() *sql.FuncDepSet {
	return sql.NewFuncDepSet(s.PrimaryKey())
}

func (s *Scan) String() string {
	names := make([]string, len(s.schema))
	for i, c := range s.schema {
		names[i] = c.DisplayName()
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Scan { table: %s, columns: [%s] }", s.table.Name, strings.Join(names, ", "))
	return p.String()
}
