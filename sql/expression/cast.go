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

package expression

import (
	"fmt"

	"github.com/rivuletdata/rivulet/sql"
)

// Cast converts its child to a target type. Implicit widening is always
// materialized as an explicit Cast so every expression carries its final
// type.
type Cast struct {
	child sql.Expression
	to    sql.Type
}

// NewCast creates a cast of child to the target type.
func NewCast(child sql.Expression, to sql.Type) *Cast {
	return &Cast{child: child, to: to}
}

// Child returns the casted expression.
func (c *Cast) Child() sql.Expression { return c.child }

func (c *Cast) Type() sql.Type { return c.to }

func (c *Cast) Nullable() bool { return c.child.Nullable() }

func (c *Cast) Children() []sql.Expression { return []sql.Expression{c.child} }

func (c *Cast) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(c, len(children), 1)
	}
	return NewCast(children[0], c.to), nil
}

func (c *Cast) String() string {
	return fmt.Sprintf("%s::%s", c.child, c.to)
}

// EnsureType wraps e in a Cast unless it already has the target type.
func EnsureType(e sql.Expression, to sql.Type) sql.Expression {
	if e.Type().Equals(to) {
		return e
	}
	return NewCast(e, to)
}
