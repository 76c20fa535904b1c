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

// Package expression implements the typed scalar and aggregate expression
// trees carried by plan nodes. Column references are positional indices
// into the direct input schema.
package expression

import (
	"fmt"

	"github.com/rivuletdata/rivulet/sql"
)

// InputRef is a positional reference to a column of the direct input
// schema.
type InputRef struct {
	index    int
	typ      sql.Type
	name     string
	nullable bool
}

// NewInputRef creates a reference to the column at the given index.
func NewInputRef(index int, typ sql.Type, name string, nullable bool) *InputRef {
	return &InputRef{index: index, typ: typ, name: name, nullable: nullable}
}

// Index returns the referenced column position.
func (r *InputRef) Index() int { return r.index }

// Name returns the display name of the referenced column.
func (r *InputRef) Name() string { return r.name }

func (r *InputRef) Type() sql.Type { return r.typ }

func (r *InputRef) Nullable() bool { return r.nullable }

func (r *InputRef) Children() []sql.Expression { return nil }

func (r *InputRef) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(r, len(children), 0)
	}
	return r, nil
}

// WithIndex returns a copy of the reference pointing at a new position.
func (r *InputRef) WithIndex(index int) *InputRef {
	nr := *r
	nr.index = index
	return &nr
}

func (r *InputRef) String() string {
	return fmt.Sprintf("$%d", r.index)
}

// Constant is a literal value with a resolved type.
type Constant struct {
	value interface{}
	typ   sql.Type
}

// NewConstant creates a constant of the given type. The value must already
// be in the canonical representation for the type (see types.CoerceValue).
func NewConstant(value interface{}, typ sql.Type) *Constant {
	return &Constant{value: value, typ: typ}
}

// Value returns the constant value; nil means SQL NULL.
func (c *Constant) Value() interface{} { return c.value }

func (c *Constant) Type() sql.Type { return c.typ }

func (c *Constant) Nullable() bool { return c.value == nil }

func (c *Constant) Children() []sql.Expression { return nil }

func (c *Constant) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(c, len(children), 0)
	}
	return c, nil
}

func (c *Constant) String() string {
	if c.value == nil {
		return "null"
	}
	if _, ok := c.value.(string); ok {
		return fmt.Sprintf("%q", c.value)
	}
	return fmt.Sprint(c.value)
}

// Alias renames the expression it wraps. An empty alias name marks a hidden
// planner-retained column.
type Alias struct {
	name  string
	child sql.Expression
}

// NewAlias wraps child under the given name.
func NewAlias(name string, child sql.Expression) *Alias {
	return &Alias{name: name, child: child}
}

// AliasName returns the alias.
func (a *Alias) AliasName() string { return a.name }

// Child returns the aliased expression.
func (a *Alias) Child() sql.Expression { return a.child }

func (a *Alias) Type() sql.Type { return a.child.Type() }

func (a *Alias) Nullable() bool { return a.child.Nullable() }

func (a *Alias) Children() []sql.Expression { return []sql.Expression{a.child} }

func (a *Alias) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), 1)
	}
	return NewAlias(a.name, children[0]), nil
}

func (a *Alias) String() string {
	if a.name == "" {
		return a.child.String()
	}
	return fmt.Sprintf("%s as %s", a.child, a.name)
}

// Unalias strips any alias wrapper.
func Unalias(e sql.Expression) sql.Expression {
	if a, ok := e.(*Alias); ok {
		return a.child
	}
	return e
}
