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

// Package ast defines the bound statement forms handed to the planner by
// the (external) parser and binder. Table names are resolved against a
// catalog snapshot by the plan builder; expression column references are by
// name and are bound to positions while the FROM scope is constructed.
package ast

import (
	"github.com/rivuletdata/rivulet/sql"
)

// Statement is a bound SQL statement.
type Statement interface {
	statement()
}

// ColumnDef is one column of a CREATE TABLE.
type ColumnDef struct {
	Name     string
	Type     sql.Type
	Nullable bool
}

// CreateTable creates a table or source.
type CreateTable struct {
	Name       string
	Columns    []ColumnDef
	PrimaryKey []string
	// RowFormat names the source encoding; empty for plain tables.
	RowFormat string
}

// DropTable drops a table.
type DropTable struct {
	Name string
}

// Insert appends the rows produced by Source into the table.
type Insert struct {
	Table  string
	Source Statement
}

// Delete removes the rows matching Where (all rows when nil).
type Delete struct {
	Table string
	Where Expr
}

// Assignment is one SET clause of an UPDATE.
type Assignment struct {
	Column string
	Value  Expr
}

// Update rewrites the rows matching Where.
type Update struct {
	Table       string
	Assignments []Assignment
	Where       Expr
}

// SelectItem is one projection of a SELECT list.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// OrderItem is one key of an ORDER BY.
type OrderItem struct {
	Expr       Expr
	Descending bool
}

// Select is a bound SELECT statement. From holds one item per comma-list
// entry; explicit joins nest inside a single item.
type Select struct {
	Items   []SelectItem
	From    []FromItem
	Where   Expr
	GroupBy []Expr
	OrderBy []OrderItem
	Limit   *int64
	Offset  *int64
}

// UnionAll concatenates the outputs of its selects. All branches must
// produce the same column count; column types widen to a common type.
type UnionAll struct {
	Selects []*Select
}

// Values is a literal row list.
type Values struct {
	Rows [][]Expr
}

// CreateMaterializedView creates a continuously maintained view over the
// Select query, or over Union when the view body is a UNION ALL.
type CreateMaterializedView struct {
	Name   string
	Select *Select
	Union  *UnionAll
}

func (*CreateTable) statement()            {}
func (*DropTable) statement()              {}
func (*Insert) statement()                 {}
func (*Delete) statement()                 {}
func (*Update) statement()                 {}
func (*Select) statement()                 {}
func (*UnionAll) statement()               {}
func (*Values) statement()                 {}
func (*CreateMaterializedView) statement() {}

// FromItem is a table reference or a join tree in a FROM clause.
type FromItem interface {
	fromItem()
}

// TableRef references a catalog table, optionally aliased.
type TableRef struct {
	Table string
	Alias string
}

// JoinType enumerates the join forms.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
)

func (t JoinType) String() string {
	switch t {
	case InnerJoin:
		return "Inner"
	case LeftOuterJoin:
		return "LeftOuter"
	case RightOuterJoin:
		return "RightOuter"
	case FullOuterJoin:
		return "FullOuter"
	}
	return "Unknown"
}

// Join is an explicit join between two FROM items.
type Join struct {
	Left  FromItem
	Right FromItem
	Type  JoinType
	On    Expr
}

func (*TableRef) fromItem() {}
func (*Join) fromItem()     {}
