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
	"github.com/rivuletdata/rivulet/sql"
)

// Insert appends the child's rows to the table.
type Insert struct {
	table *sql.Table
	child sql.Node
}

// NewInsert creates an insert into the table.
func NewInsert(table *sql.Table, child sql.Node) *Insert {
	return &Insert{table: table, child: child}
}

// Table returns the written table.
func (i *Insert) Table() *sql.Table { return i.table }

// Child returns the row source.
func (i *Insert) Child() sql.Node { return i.child }

func (i *Insert) Schema() sql.Schema { return dmlResultSchema() }

func (i *Insert) Children() []sql.Node { return []sql.Node{i.child} }

func (i *Insert) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(i, len(children), 1)
	}
	return NewInsert(i.table, children[0]), nil
}

func (i *Insert) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Insert { table: %s }", i.table.Name)
	_ = p.WriteChildren(i.child.String())
	return p.String()
}

// Delete removes the child's rows from the table.
type Delete struct {
	table *sql.Table
	child sql.Node
}

// NewDelete creates a delete of the child's rows.
func NewDelete(table *sql.Table, child sql.Node) *Delete {
	return &Delete{table: table, child: child}
}

// Table returns the written table.
func (d *Delete) Table() *sql.Table { return d.table }

// Child returns the row source.
func (d *Delete) Child() sql.Node { return d.child }

func (d *Delete) Schema() sql.Schema { return dmlResultSchema() }

func (d *Delete) Children() []sql.Node { return []sql.Node{d.child} }

func (d *Delete) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(d, len(children), 1)
	}
	return NewDelete(d.table, children[0]), nil
}

func (d *Delete) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Delete { table: %s }", d.table.Name)
	_ = p.WriteChildren(d.child.String())
	return p.String()
}

// Update overwrites the table rows identified by the child's pk columns
// with the child's recomputed values.
type Update struct {
	table *sql.Table
	child sql.Node
}

// NewUpdate creates an update from the child's rows. The builder arranges
// the child to produce full updated rows.
func NewUpdate(table *sql.Table, child sql.Node) *Update {
	return &Update{table: table, child: child}
}

// Table returns the written table.
func (u *Update) Table() *sql.Table { return u.table }

// Child returns the row source.
func (u *Update) Child() sql.Node { return u.child }

func (u *Update) Schema() sql.Schema { return dmlResultSchema() }

func (u *Update) Children() []sql.Node { return []sql.Node{u.child} }

func (u *Update) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(u, len(children), 1)
	}
	return NewUpdate(u.table, children[0]), nil
}

func (u *Update) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Update { table: %s }", u.table.Name)
	_ = p.WriteChildren(u.child.String())
	return p.String()
}
