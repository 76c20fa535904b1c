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

// Union concatenates the rows of its inputs (UNION ALL semantics). The
// builder guarantees all inputs share the schema width and types; output
// column names come from the first input.
type Union struct {
	inputs []sql.Node
}

// NewUnion creates a union over the inputs.
func NewUnion(inputs ...sql.Node) *Union {
	return &Union{inputs: inputs}
}

func (u *Union) Schema() sql.Schema {
	schema := u.inputs[0].Schema().Copy()
	for _, in := range u.inputs[1:] {
		for i, c := range in.Schema() {
			if c.Nullable {
				schema[i].Nullable = true
			}
		}
	}
	return schema
}

func (u *Union) Children() []sql.Node { return u.inputs }

func (u *Union) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != len(u.inputs) {
		return nil, sql.ErrInvalidChildrenNumber.New(u, len(children), len(u.inputs))
	}
	return NewUnion(children...), nil
}

func (u *Union) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Union { all: true }")
	children := make([]string, len(u.inputs))
	for i, in := range u.inputs {
		children[i] = in.String()
	}
	_ = p.WriteChildren(children...)
	return p.String()
}
