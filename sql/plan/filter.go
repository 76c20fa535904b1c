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

// Filter keeps the input rows its predicate accepts. Schema and pk pass
// through unchanged.
type Filter struct {
	cond  sql.Expression
	child sql.Node
}

// NewFilter creates a filter over the child.
func NewFilter(cond sql.Expression, child sql.Node) *Filter {
	return &Filter{cond: cond, child: child}
}

// Condition returns the predicate.
func (f *Filter) Condition() sql.Expression { return f.cond }

// Child returns the input node.
func (f *Filter) Child() sql.Node { return f.child }

func (f *Filter) Schema() sql.Schema { return f.child.Schema() }

func (f *Filter) Children() []sql.Node { return []sql.Node{f.child} }

func (f *Filter) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(f, len(children), 1)
	}
	return NewFilter(f.cond, children[0]), nil
}

func (f *Filter) Expressions() []sql.Expression { return []sql.Expression{f.cond} }

func (f *Filter) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	if len(exprs) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(f, len(exprs), 1)
	}
	return NewFilter(exprs[0], f.child), nil
}

func (f *Filter) String() string {
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Filter { predicate: %s }", f.cond)
	_ = p.WriteChildren(f.child.String())
	return p.String()
}
