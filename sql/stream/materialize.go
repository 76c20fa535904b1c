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

package stream

import (
	"strings"

	"github.com/rivuletdata/rivulet/sql"
)

// Materialize is the root sink of every stream job: it persists the
// stream into a keyed, queryable table. Output columns list the visible
// columns in user order followed by the hidden ones (the pk tail
// included); the pk is also published by column name.
type Materialize struct {
	unary
	TableName string
	// ColumnOrder maps each output position to the child column it
	// persists.
	ColumnOrder []int
	PKColumns   []string
}

// NewMaterialize creates the sink over the finished stream plan. The
// child's columns are reordered visible-first; the pk indices are
// rewritten into the reordered schema.
func NewMaterialize(ctx *sql.Context, name string, child Node) *Materialize {
	childSchema := child.Schema()
	order := append(childSchema.Visible(), hiddenIndices(childSchema)...)

	schema := make(sql.Schema, len(order))
	pos := make(map[int]int, len(order))
	for out, ci := range order {
		schema[out] = childSchema[ci]
		pos[ci] = out
	}

	pk := make([]int, len(child.PK()))
	pkCols := make([]string, len(child.PK()))
	for i, ci := range child.PK() {
		pk[i] = pos[ci]
		pkCols[i] = childSchema[ci].Name
	}

	return &Materialize{
		unary: unary{
			base:  base{id: ctx.IDs().NextOperatorID(), schema: schema, pk: pk, dist: child.Distribution()},
			child: child,
		},
		TableName:   name,
		ColumnOrder: order,
		PKColumns:   pkCols,
	}
}

func hiddenIndices(s sql.Schema) []int {
	var idx []int
	for i, c := range s {
		if c.Hidden {
			idx = append(idx, i)
		}
	}
	return idx
}

// Table builds the catalog entry of the materialized view, as registered
// by the meta service once the job deploys.
func (m *Materialize) Table() *sql.Table {
	return &sql.Table{
		Name:               m.TableName,
		Columns:            m.schema.Copy(),
		PrimaryKey:         append([]int(nil), m.pk...),
		IsMaterializedView: true,
	}
}

func (m *Materialize) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("StreamMaterialize { columns: [%s], pk_columns: [%s] }",
		schemaNames(m.schema), strings.Join(m.PKColumns, ", "))
	_ = p.WriteChildren(m.child.String())
	return p.String()
}
