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

package ast

import (
	"github.com/rivuletdata/rivulet/sql"
)

// Expr is a bound scalar expression as produced by the parser/binder.
// Column references are by (table, column) name; the plan builder resolves
// them to positions.
type Expr interface {
	expr()
}

// ColumnRef names a column, optionally qualified by table or alias.
type ColumnRef struct {
	Table  string
	Column string
}

// Literal is a typed constant. A nil Value is SQL NULL.
type Literal struct {
	Value interface{}
	Type  sql.Type
}

// BinaryOp applies an infix operator. Op is the SQL spelling ("+", "=",
// "and", ...).
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

// UnaryOp applies a prefix operator ("-", "not").
type UnaryOp struct {
	Op      string
	Operand Expr
}

// Call applies a named function; aggregate calls use the aggregate names
// (sum, min, max, count, avg, string_agg).
type Call struct {
	Name     string
	Args     []Expr
	Distinct bool
	// Star marks count(*).
	Star bool
}

// CastExpr converts the operand to a named type.
type CastExpr struct {
	Operand Expr
	Type    sql.Type
}

func (*ColumnRef) expr() {}
func (*Literal) expr()   {}
func (*BinaryOp) expr()  {}
func (*UnaryOp) expr()   {}
func (*Call) expr()      {}
func (*CastExpr) expr()  {}
