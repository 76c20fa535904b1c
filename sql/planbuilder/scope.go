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
	"github.com/rivuletdata/rivulet/sql"
)

// scope is the name-resolution environment of one FROM clause: the input
// schema plus the table alias each column came from.
type scope struct {
	schema sql.Schema
	tables []string
}

func emptyScope() *scope {
	return &scope{}
}

func scopeOf(node sql.Node, table string) *scope {
	schema := node.Schema()
	tables := make([]string, len(schema))
	for i := range tables {
		tables[i] = table
	}
	return &scope{schema: schema, tables: tables}
}

func (s *scope) merge(other *scope) *scope {
	return &scope{
		schema: append(append(sql.Schema{}, s.schema...), other.schema...),
		tables: append(append([]string{}, s.tables...), other.tables...),
	}
}

// resolve finds the position of a (possibly qualified) column name. Hidden
// columns are not addressable by name.
func (s *scope) resolve(table, column string) (int, bool) {
	for i, c := range s.schema {
		if c.Hidden {
			continue
		}
		if c.Name != column {
			continue
		}
		if table != "" && s.tables[i] != table {
			continue
		}
		return i, true
	}
	return -1, false
}
