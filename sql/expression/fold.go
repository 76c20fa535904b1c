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
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/types"
)

// FoldConstants eagerly evaluates constant subtrees. Folding preserves
// nullability: a NULL operand folds to a NULL constant of the call's return
// type, except for the predicates that are defined on NULL.
func FoldConstants(e sql.Expression) (sql.Expression, error) {
	return TransformUp(e, func(e sql.Expression) (sql.Expression, error) {
		switch e := e.(type) {
		case *Cast:
			c, ok := e.Child().(*Constant)
			if !ok {
				return e, nil
			}
			v, err := types.CoerceValue(c.Value(), e.Type())
			if err != nil {
				return nil, sql.ErrInvalidInputSyntax.New(err.Error())
			}
			return NewConstant(v, e.Type()), nil
		case *FunctionCall:
			for _, a := range e.Args() {
				if _, ok := a.(*Constant); !ok {
					return e, nil
				}
			}
			return foldCall(e)
		}
		return e, nil
	})
}

func foldCall(f *FunctionCall) (sql.Expression, error) {
	args := make([]interface{}, len(f.Args()))
	for i, a := range f.Args() {
		args[i] = a.(*Constant).Value()
	}

	switch f.Kind() {
	case IsNull:
		return NewConstant(args[0] == nil, types.Boolean), nil
	case IsNotNull:
		return NewConstant(args[0] != nil, types.Boolean), nil
	case And:
		return foldLogic(args[0], args[1], false)
	case Or:
		return foldLogic(args[0], args[1], true)
	}

	// every remaining kind propagates NULL
	for _, a := range args {
		if a == nil {
			return NewConstant(nil, f.Type()), nil
		}
	}

	switch f.Kind() {
	case Add, Subtract, Multiply, Divide, Modulus:
		return foldArithmetic(f, args[0], args[1])
	case Neg:
		return foldArithmetic(f, mustZero(f.Type()), args[0])
	case Equal, NotEqual, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		return foldComparison(f, args[0], args[1])
	case Not:
		return NewConstant(!args[0].(bool), types.Boolean), nil
	case Upper:
		return NewConstant(strings.ToUpper(args[0].(string)), types.Varchar), nil
	case Lower:
		return NewConstant(strings.ToLower(args[0].(string)), types.Varchar), nil
	case Length:
		return NewConstant(int32(len(args[0].(string))), types.Int32), nil
	case Concat:
		return NewConstant(args[0].(string)+args[1].(string), types.Varchar), nil
	case Replace:
		return NewConstant(strings.ReplaceAll(args[0].(string), args[1].(string), args[2].(string)), types.Varchar), nil
	}
	// not a foldable kind; leave the call in place
	return f, nil
}

// three-valued AND/OR over possibly-NULL booleans
func foldLogic(l, r interface{}, isOr bool) (sql.Expression, error) {
	known := func(v interface{}) (bool, bool) {
		b, ok := v.(bool)
		return b, ok
	}
	lv, lok := known(l)
	rv, rok := known(r)
	switch {
	case lok && rok:
		if isOr {
			return NewConstant(lv || rv, types.Boolean), nil
		}
		return NewConstant(lv && rv, types.Boolean), nil
	case lok && lv == isOr, rok && rv == isOr:
		// true OR null, false AND null are decided
		return NewConstant(isOr, types.Boolean), nil
	default:
		return NewConstant(nil, types.Boolean), nil
	}
}

func mustZero(t sql.Type) interface{} {
	v, err := types.CoerceValue(0, t)
	if err != nil {
		return int64(0)
	}
	return v
}

func foldArithmetic(f *FunctionCall, l, r interface{}) (sql.Expression, error) {
	t := f.Type()
	switch {
	case t.Equals(types.Decimal):
		ld, err := toDecimal(l)
		if err != nil {
			return nil, err
		}
		rd, err := toDecimal(r)
		if err != nil {
			return nil, err
		}
		var out decimal.Decimal
		switch f.Kind() {
		case Add:
			out = ld.Add(rd)
		case Subtract, Neg:
			out = ld.Sub(rd)
		case Multiply:
			out = ld.Mul(rd)
		case Divide:
			if rd.IsZero() {
				return nil, sql.ErrInvalidInputSyntax.New("division by zero")
			}
			out = ld.Div(rd)
		case Modulus:
			if rd.IsZero() {
				return nil, sql.ErrInvalidInputSyntax.New("division by zero")
			}
			out = ld.Mod(rd)
		}
		return NewConstant(out, t), nil
	case t.Equals(types.Float32), t.Equals(types.Float64):
		lf, err := cast.ToFloat64E(l)
		if err != nil {
			return nil, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		rf, err := cast.ToFloat64E(r)
		if err != nil {
			return nil, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		var out float64
		switch f.Kind() {
		case Add:
			out = lf + rf
		case Subtract, Neg:
			out = lf - rf
		case Multiply:
			out = lf * rf
		case Divide:
			if rf == 0 {
				return nil, sql.ErrInvalidInputSyntax.New("division by zero")
			}
			out = lf / rf
		}
		v, err := types.CoerceValue(out, t)
		if err != nil {
			return nil, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		return NewConstant(v, t), nil
	default:
		li, err := cast.ToInt64E(l)
		if err != nil {
			return nil, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		ri, err := cast.ToInt64E(r)
		if err != nil {
			return nil, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		var out int64
		switch f.Kind() {
		case Add:
			out = li + ri
		case Subtract, Neg:
			out = li - ri
		case Multiply:
			out = li * ri
		case Divide:
			if ri == 0 {
				return nil, sql.ErrInvalidInputSyntax.New("division by zero")
			}
			out = li / ri
		case Modulus:
			if ri == 0 {
				return nil, sql.ErrInvalidInputSyntax.New("division by zero")
			}
			out = li % ri
		}
		v, err := types.CoerceValue(out, t)
		if err != nil {
			return nil, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		return NewConstant(v, t), nil
	}
}

func foldComparison(f *FunctionCall, l, r interface{}) (sql.Expression, error) {
	cmp, err := compareValues(f.Args()[0].Type(), l, r)
	if err != nil {
		return nil, err
	}
	var out bool
	switch f.Kind() {
	case Equal:
		out = cmp == 0
	case NotEqual:
		out = cmp != 0
	case LessThan:
		out = cmp < 0
	case LessThanOrEqual:
		out = cmp <= 0
	case GreaterThan:
		out = cmp > 0
	case GreaterThanOrEqual:
		out = cmp >= 0
	}
	return NewConstant(out, types.Boolean), nil
}

func compareValues(t sql.Type, l, r interface{}) (int, error) {
	switch {
	case t.Equals(types.Decimal):
		ld, err := toDecimal(l)
		if err != nil {
			return 0, err
		}
		rd, err := toDecimal(r)
		if err != nil {
			return 0, err
		}
		return ld.Cmp(rd), nil
	case t.Numeric():
		lf, err := cast.ToFloat64E(l)
		if err != nil {
			return 0, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		rf, err := cast.ToFloat64E(r)
		if err != nil {
			return 0, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		default:
			return 0, nil
		}
	case t.Equals(types.Varchar):
		return strings.Compare(l.(string), r.(string)), nil
	case t.Equals(types.Boolean):
		lb, rb := l.(bool), r.(bool)
		switch {
		case lb == rb:
			return 0, nil
		case !lb:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		lt, err := cast.ToTimeE(l)
		if err != nil {
			return 0, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		rt, err := cast.ToTimeE(r)
		if err != nil {
			return 0, sql.ErrInvalidInputSyntax.New(err.Error())
		}
		switch {
		case lt.Before(rt):
			return -1, nil
		case lt.After(rt):
			return 1, nil
		default:
			return 0, nil
		}
	}
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	if d, ok := v.(decimal.Decimal); ok {
		return d, nil
	}
	coerced, err := types.CoerceValue(v, types.Decimal)
	if err != nil {
		return decimal.Decimal{}, sql.ErrInvalidInputSyntax.New(err.Error())
	}
	return coerced.(decimal.Decimal), nil
}
