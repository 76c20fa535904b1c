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
	"strings"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
)

// Project evaluates a list of expressions over its input. An item wrapped
// in an Alias with an empty name is a hidden column the planner retained
// (a pruned-away pk carrier).
type Project struct {
	projections []sql.Expression
	child       sql.Node
}

// NewProject creates a projection of the child.
func NewProject(projections []sql.Expression, child sql.Node) *Project {
	return &Project{projections: projections, child: child}
}

// Projections returns the projected expressions.
func (p *Project) Projections() []sql.Expression { return p.projections }

// Child returns the input node.
func (p *Project) Child() sql.Node { return p.child }

func (p *Project) Schema() sql.Schema {
	childSchema := p.child.Schema()
	schema := make(sql.Schema, len(p.projections))
	for i, e := range p.projections {
		schema[i] = projectedColumn(e, childSchema)
	}
	return schema
}

func projectedColumn(e sql.Expression, input sql.Schema) *sql.Column {
	name := ""
	hidden := false
	if a, ok := e.(*expression.Alias); ok {
		name = a.AliasName()
		hidden = name == ""
		e = a.Child()
	}
	if name == "" {
		if ref, ok := e.(*expression.InputRef); ok {
			name = ref.Name()
			if name == "" && ref.Index() < len(input) {
				name = input[ref.Index()].Name
			}
		} else {
			name = e.String()
		}
	}
	return &sql.Column{
		Name:     name,
		Type:     e.Type(),
		Nullable: e.Nullable(),
		Hidden:   hidden,
	}
}

func (p *Project) Children() []sql.Node { return []sql.Node{p.child} }

func (p *Project) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(children), 1)
	}
	return NewProject(p.projections, children[0]), nil
}

func (p *Project) Expressions() []sql.Expression { return p.projections }

func (p *Project) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != len(p.projections) {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(exprs), len(p.projections))
	}
	return NewProject(exprs, p.child), nil
}

// Aliases returns the user-facing output names; hidden columns yield the
// empty string.
func (p *Project) Aliases() []string {
	aliases := make([]string, len(p.projections))
	for i, e := range p.projections {
		if a, ok := e.(*expression.Alias); ok {
			aliases[i] = a.AliasName()
		} else if ref, ok := e.(*expression.InputRef); ok {
			aliases[i] = ref.Name()
		}
	}
	return aliases
}

func (p *Project) String() string {
	exprs := make([]string, len(p.projections))
	for i, e := range p.projections {
		exprs[i] = e.String()
	}
	pr := sql.NewTreePrinter()
	_ = pr.WriteNode("Project { exprs: [%s] }", strings.Join(exprs, ", "))
	_ = pr.WriteChildren(p.child.String())
	return pr.String()
}
