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

package sql

import "sort"

// RowFormat describes how rows of an external source are encoded.
type RowFormat int

const (
	// RowFormatNone marks a plain table that is not a source.
	RowFormatNone RowFormat = iota
	RowFormatJSON
	RowFormatProtobuf
	RowFormatAvro
	RowFormatDebeziumJSON
)

var rowFormatNames = map[RowFormat]string{
	RowFormatNone:         "",
	RowFormatJSON:         "JSON",
	RowFormatProtobuf:     "PROTOBUF",
	RowFormatAvro:         "AVRO",
	RowFormatDebeziumJSON: "DEBEZIUM_JSON",
}

func (f RowFormat) String() string { return rowFormatNames[f] }

// RowFormatFromName resolves a row format name. The boolean is false for
// unknown formats.
func RowFormatFromName(name string) (RowFormat, bool) {
	for f, n := range rowFormatNames {
		if f != RowFormatNone && n == name {
			return f, true
		}
	}
	return RowFormatNone, false
}

// RowIDName is the name of the hidden row id column synthesized for tables
// without a user primary key. Scans display it with a per-query ordinal
// suffix (_row_id#0).
const RowIDName = "_row_id"

// Table is a catalog entry: a base table, source, or materialized view.
type Table struct {
	Name string
	// Columns includes hidden columns such as the synthesized row id; the
	// row id column, when present, is last.
	Columns Schema
	// PrimaryKey holds column indices of the declared or synthesized pk.
	PrimaryKey []int
	// RowFormat is set for sources only.
	RowFormat RowFormat
	// IsMaterializedView marks tables maintained by a stream job.
	IsMaterializedView bool
	// ColumnIDs are the planner-assigned stable ids, parallel to Columns.
	ColumnIDs []int32
}

// HasUserPK reports whether the table declares its own primary key, as
// opposed to relying on the synthesized row id.
func (t *Table) HasUserPK() bool {
	if len(t.PrimaryKey) != 1 {
		return len(t.PrimaryKey) > 0
	}
	return t.Columns[t.PrimaryKey[0]].Name != RowIDName
}

// Catalog is an immutable snapshot of table metadata plus the dependency
// links between tables and the materialized views reading them. A
// compilation reads exactly one snapshot.
type Catalog struct {
	tables     map[string]*Table
	dependents map[string][]string
}

// NewCatalog builds a snapshot from the given tables.
func NewCatalog(tables ...*Table) *Catalog {
	c := &Catalog{
		tables:     make(map[string]*Table, len(tables)),
		dependents: make(map[string][]string),
	}
	for _, t := range tables {
		c.tables[t.Name] = t
	}
	return c
}

// Table resolves a table by name.
func (c *Catalog) Table(name string) (*Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, ErrTableNotFound.New(name)
	}
	return t, nil
}

// Has reports whether the name is in the snapshot.
func (c *Catalog) Has(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// AddDependency records that view reads from table.
func (c *Catalog) AddDependency(table, view string) {
	c.dependents[table] = append(c.dependents[table], view)
}

// Dependents returns the names of materialized views reading the table, in
// sorted order.
func (c *Catalog) Dependents(table string) []string {
	deps := append([]string(nil), c.dependents[table]...)
	sort.Strings(deps)
	return deps
}

// ColumnDescriptor is one column of a table descriptor sent to the meta
// service.
type ColumnDescriptor struct {
	ID       int32
	Name     string
	Type     Type
	Nullable bool
	Hidden   bool
}

// TableDescriptor is the DDL output forwarded to the meta service.
type TableDescriptor struct {
	Name      string
	Columns   []ColumnDescriptor
	PKIndices []int
	RowFormat RowFormat
}
