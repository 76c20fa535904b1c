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
	"fmt"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/types"
)

// aggPolicy selects the error raised when an aggregate call is bound where
// aggregates are not allowed.
type aggPolicy int

const (
	aggAllowed aggPolicy = iota
	aggForbiddenInWhere
	aggForbiddenInValues
	aggForbiddenInGroupBy
)

func (p aggPolicy) violation() error {
	switch p {
	case aggForbiddenInWhere:
		return sql.ErrAggInWhere.New()
	case aggForbiddenInValues:
		return sql.ErrAggInValues.New()
	default:
		return sql.ErrInvalidInputSyntax.New("aggregate functions are not allowed here")
	}
}

var binaryOps = map[string]expression.FuncKind{
	"+":   expression.Add,
	"-":   expression.Subtract,
	"*":   expression.Multiply,
	"/":   expression.Divide,
	"%":   expression.Modulus,
	"=":   expression.Equal,
	"<>":  expression.NotEqual,
	"!=":  expression.NotEqual,
	"<":   expression.LessThan,
	"<=":  expression.LessThanOrEqual,
	">":   expression.GreaterThan,
	">=":  expression.GreaterThanOrEqual,
	"and": expression.And,
	"or":  expression.Or,
}

// bindExpr resolves names, types and signatures of a bound-AST expression
// against the scope. Aggregate calls are only legal under aggAllowed, and
// even then only at binding sites that route them through bindAggCall.
func (b *Builder) bindExpr(ctx *sql.Context, s *scope, e ast.Expr, policy aggPolicy) (sql.Expression, error) {
	switch e := e.(type) {
	case *ast.ColumnRef:
		idx, ok := s.resolve(e.Table, e.Column)
		if !ok {
			return nil, sql.ErrColumnNotFound.New(e.Column)
		}
		col := s.schema[idx]
		return expression.NewInputRef(idx, col.Type, col.Name, col.Nullable), nil

	case *ast.Literal:
		typ := e.Type
		if typ == nil {
			return nil, sql.ErrInternal.New("untyped literal in bound AST")
		}
		v, err := types.CoerceValue(e.Value, typ)
		if err != nil {
			return nil, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		return expression.NewConstant(v, typ), nil

	case *ast.BinaryOp:
		kind, ok := binaryOps[e.Op]
		if !ok {
			return nil, b.notImplemented(fmt.Sprintf("unsupported operator: %q", e.Op))
		}
		left, err := b.bindExpr(ctx, s, e.Left, policy)
		if err != nil {
			return nil, err
		}
		right, err := b.bindExpr(ctx, s, e.Right, policy)
		if err != nil {
			return nil, err
		}
		return expression.NewFunctionCall(kind, left, right)

	case *ast.UnaryOp:
		operand, err := b.bindExpr(ctx, s, e.Operand, policy)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "-":
			return expression.NewFunctionCall(expression.Neg, operand)
		case "not":
			return expression.NewFunctionCall(expression.Not, operand)
		default:
			return nil, b.notImplemented(fmt.Sprintf("unsupported operator: %q", e.Op))
		}

	case *ast.Call:
		if _, isAgg := expression.AggKindFromName(e.Name); isAgg {
			if policy != aggAllowed {
				return nil, policy.violation()
			}
			// aggregate calls never bind as scalars; buildSelect routes
			// them into the Aggregate node before items are bound
			return nil, sql.ErrInternal.New("aggregate call bound outside an aggregation")
		}
		kind, ok := expression.ScalarFuncByName(e.Name)
		if !ok {
			return nil, b.notImplemented(fmt.Sprintf("unsupported function: %q", e.Name))
		}
		args := make([]sql.Expression, len(e.Args))
		for i, a := range e.Args {
			arg, err := b.bindExpr(ctx, s, a, policy)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return expression.NewFunctionCall(kind, args...)

	case *ast.CastExpr:
		operand, err := b.bindExpr(ctx, s, e.Operand, policy)
		if err != nil {
			return nil, err
		}
		return expression.NewCast(operand, e.Type), nil

	default:
		return nil, b.notImplemented(fmt.Sprintf("unsupported expression %T", e))
	}
}

// bindAggCall binds an aggregate call's arguments against the FROM scope
// and resolves the call.
func (b *Builder) bindAggCall(ctx *sql.Context, s *scope, call *ast.Call) (*expression.AggCall, error) {
	kind, ok := expression.AggKindFromName(call.Name)
	if !ok {
		return nil, sql.ErrInternal.New("not an aggregate call")
	}
	if call.Star {
		if kind != expression.AggCount {
			return nil, sql.ErrInvalidInputSyntax.New("* is only allowed in count(*)")
		}
		return expression.NewAggCall(expression.AggCount, call.Distinct)
	}
	args := make([]sql.Expression, len(call.Args))
	for i, a := range call.Args {
		if containsAggAST(a) {
			return nil, sql.ErrInvalidInputSyntax.New("aggregate function calls cannot be nested")
		}
		arg, err := b.bindExpr(ctx, s, a, aggForbiddenInGroupBy)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return expression.NewAggCall(kind, call.Distinct, args...)
}

// containsAggAST reports whether the bound-AST expression contains an
// aggregate call.
func containsAggAST(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Call:
		if _, ok := expression.AggKindFromName(e.Name); ok {
			return true
		}
		for _, a := range e.Args {
			if containsAggAST(a) {
				return true
			}
		}
	case *ast.BinaryOp:
		return containsAggAST(e.Left) || containsAggAST(e.Right)
	case *ast.UnaryOp:
		return containsAggAST(e.Operand)
	case *ast.CastExpr:
		return containsAggAST(e.Operand)
	}
	return false
}
