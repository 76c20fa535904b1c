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
	"fmt"
	"strings"

	"github.com/rivuletdata/rivulet/sql"
)

// Values produces a literal list of rows. All rows have the same width and
// column types, established by the first row after implicit widening.
type Values struct {
	rows   [][]sql.Expression
	schema sql.Schema
}

// NewValues creates a values node. Rows must be non-empty and rectangular;
// the builder guarantees both.
func NewValues(rows [][]sql.Expression) *Values {
	schema := make(sql.Schema, len(rows[0]))
	for i, e := range rows[0] {
		schema[i] = &sql.Column{
			Name:     fmt.Sprintf("column%d", i),
			Type:     e.Type(),
			Nullable: anyNullableAt(rows, i),
		}
	}
	return &Values{rows: rows, schema: schema}
}

func anyNullableAt(rows [][]sql.Expression, i int) bool {
	for _, row := range rows {
		if row[i].Nullable() {
			return true
		}
	}
	return false
}

// Rows returns the literal rows.
func (v *Values) Rows() [][]sql.Expression { return v.rows }

func (v *Values) Schema() sql.Schema { return v.schema }

func (v *Values) Children() []sql.Node { return nil }

func (v *Values) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(v, len(children), 0)
	}
	return v, nil
}

func (v *Values) Expressions() []sql.Expression {
	var exprs []sql.Expression
	for _, row := range v.rows {
		exprs = append(exprs, row...)
	}
	return exprs
}

func (v *Values) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != len(v.rows)*len(v.rows[0]) {
		return nil, sql.ErrInvalidChildrenNumber.New(v, len(exprs), len(v.rows)*len(v.rows[0]))
	}
	width := len(v.rows[0])
	rows := make([][]sql.Expression, len(v.rows))
	for i := range rows {
		rows[i] = exprs[i*width : (i+1)*width]
	}
	return NewValues(rows), nil
}

func (v *Values) String() string {
	rows := make([]string, len(v.rows))
	for i, row := range v.rows {
		cells := make([]string, len(row))
		for j, e := range row {
			cells[j] = e.String()
		}
		rows[i] = "(" + strings.Join(cells, ", ") + ")"
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Values { rows: [%s] }", strings.Join(rows, ", "))
	return p.String()
}
