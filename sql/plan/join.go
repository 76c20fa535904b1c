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
	"github.com/rivuletdata/rivulet/sql/expression"
)

// JoinType enumerates the supported join forms.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
	RightOuterJoin
	FullOuterJoin
)

func (t JoinType) String() string {
	switch t {
	case InnerJoin:
		return "Inner"
	case LeftOuterJoin:
		return "LeftOuter"
	case RightOuterJoin:
		return "RightOuter"
	case FullOuterJoin:
		return "FullOuter"
	}
	return "Unknown"
}

// Join combines two inputs on a condition. Comma-separated FROM lists
// build inner joins on TRUE; predicate pushdown later pulls equi-conjuncts
// of the WHERE clause into the join keys.
type Join struct {
	left  sql.Node
	right sql.Node
	typ   JoinType
	// on is the full join condition until split_join_condition runs; after
	// the split it holds only the residual (nil when none).
	on sql.Expression
	// equiLeft/equiRight are matching key column indices into the left and
	// right schemas, populated by split_join_condition.
	equiLeft  []int
	equiRight []int
}

// NewJoin creates a join of the given type. A nil condition means ON TRUE.
func NewJoin(left, right sql.Node, typ JoinType, on sql.Expression) *Join {
	return &Join{left: left, right: right, typ: typ, on: on}
}

// Left returns the left input.
func (j *Join) Left() sql.Node { return j.left }

// Right returns the right input.
func (j *Join) Right() sql.Node { return j.right }

// JoinType returns the join form.
func (j *Join) JoinType() JoinType { return j.typ }

// Condition returns the non-equi condition (the full ON condition before
// the split, the residual after).
func (j *Join) Condition() sql.Expression { return j.on }

// EquiKeys returns the matching key columns of both sides.
func (j *Join) EquiKeys() (left, right []int) { return j.equiLeft, j.equiRight }

// WithEquiKeys returns a copy carrying the split equi keys and residual.
func (j *Join) WithEquiKeys(left, right []int, residual sql.Expression) *Join {
	nj := *j
	nj.equiLeft = append([]int(nil), left...)
	nj.equiRight = append([]int(nil), right...)
	nj.on = residual
	return &nj
}

func (j *Join) Schema() sql.Schema {
	left := j.left.Schema().Copy()
	right := j.right.Schema().Copy()
	switch j.typ {
	case LeftOuterJoin:
		setNullable(right)
	case RightOuterJoin:
		setNullable(left)
	case FullOuterJoin:
		setNullable(left)
		setNullable(right)
	}
	return append(left, right...)
}

func setNullable(s sql.Schema) {
	for _, c := range s {
		c.Nullable = true
	}
}

func (j *Join) Children() []sql.Node { return []sql.Node{j.left, j.right} }

func (j *Join) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(j, len(children), 2)
	}
	nj := *j
	nj.left = children[0]
	nj.right = children[1]
	return &nj, nil
}

func (j *Join) Expressions() []sql.Expression {
	if j.on == nil {
		return nil
	}
	return []sql.Expression{j.on}
}

func (j *Join) WithExpressions(exprs ...sql.Expression) (sql.Node, error) {
	want := len(j.Expressions())
	if len(exprs) != want {
		return nil, sql.ErrInvalidChildrenNumber.New(j, len(exprs), want)
	}
	nj := *j
	if want == 1 {
		nj.on = exprs[0]
	}
	return &nj, nil
}

// FuncDeps concatenates the key sets of both inputs.
func (j *Join) FuncDeps() *sql.FuncDepSet {
	return childFuncDeps(j.left).Concat(childFuncDeps(j.right), len(j.left.Schema()))
}

func (j *Join) String() string {
	cond := "true"
	if j.on != nil {
		cond = j.on.String()
	}
	var keys string
	if len(j.equiLeft) > 0 {
		pairs := make([]string, len(j.equiLeft))
		for i := range j.equiLeft {
			pairs[i] = fmt.Sprintf("$%d = $%d", j.equiLeft[i], j.equiRight[i]+len(j.left.Schema()))
		}
		keys = fmt.Sprintf(", keys: [%s]", strings.Join(pairs, ", "))
	}
	p := sql.NewTreePrinter()
	_ = p.WriteNode("Join { type: %s, on: %s%s }", j.typ, cond, keys)
	_ = p.WriteChildren(j.left.String(), j.right.String())
	return p.String()
}

// AlwaysTrue reports whether the expression is the constant TRUE.
func AlwaysTrue(e sql.Expression) bool {
	c, ok := expression.Unalias(e).(*expression.Constant)
	if !ok {
		return false
	}
	b, ok := c.Value().(bool)
	return ok && b
}
