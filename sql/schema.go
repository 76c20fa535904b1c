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

import "strings"

// Column is one field of a schema. Hidden columns are retained by the
// planner (primary key carriers, aggregate state) but not requested by the
// user; they print with a "(hidden)" suffix.
type Column struct {
	Name     string
	Type     Type
	Nullable bool
	Hidden   bool
}

// Copy returns a copy of the column.
func (c *Column) Copy() *Column {
	cc := *c
	return &cc
}

// DisplayName returns the column name, suffixed when hidden.
func (c *Column) DisplayName() string {
	if c.Hidden {
		return c.Name + "(hidden)"
	}
	return c.Name
}

// Schema is the ordered set of output columns of a node.
type Schema []*Column

// Copy returns a deep copy of the schema.
func (s Schema) Copy() Schema {
	ns := make(Schema, len(s))
	for i, c := range s {
		ns[i] = c.Copy()
	}
	return ns
}

// IndexOf returns the position of the named column, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Visible returns the indices of the non-hidden columns, in order.
func (s Schema) Visible() []int {
	var idx []int
	for i, c := range s {
		if !c.Hidden {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s Schema) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, c := range s {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.DisplayName())
	}
	sb.WriteString("]")
	return sb.String()
}
