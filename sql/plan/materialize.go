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

// Materialize is the logical root of a CREATE MATERIALIZED VIEW: it names
// the sink table the stream job maintains. The stream planner turns it
// into a StreamMaterialize with an explicit pk.
type Materialize struct {
	name  string
	child sql.Node
}

// NewMaterialize creates the MV root over the query plan.
func NewMaterialize(name string, child sql.Node) *Materialize {
	return &Materialize{name: name, child: child}
}

// Name returns the view name.
func (m *Materialize) Name() string { return m.name }

// Child returns the maintained query.
func (m *Materialize) Child() sql.Node { return m.child }

func (m *Materialize) Schema() sql.Schema { return m.child.Schema() }

func (m *Materialize) Children() []sql.Node { return []sql.Node{m.child} }

func (m *Materialize) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(m, len(children), 1)
	}
	return NewMaterialize(m.name, children[0]), nil
}

func (m *Materialize) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Materialize { name: %s }", m.name)
	_ = p.WriteChildren(m.child.String())
	return p.String()
}
