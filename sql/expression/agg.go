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
	"strings"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/types"
)

// AggKind enumerates the aggregate functions.
type AggKind int

const (
	AggSum AggKind = iota
	AggMin
	AggMax
	AggCount
	AggAvg
	AggStringAgg
	// AggSingleValue asserts its input group has exactly one row. Reserved
	// for scalar-subquery lowering; no rewrite produces it today.
	AggSingleValue
)

var aggNames = map[AggKind]string{
	AggSum:         "sum",
	AggMin:         "min",
	AggMax:         "max",
	AggCount:       "count",
	AggAvg:         "avg",
	AggStringAgg:   "string_agg",
	AggSingleValue: "single_value",
}

// Name returns the display name of the aggregate kind.
func (k AggKind) Name() string { return aggNames[k] }

// AggKindFromName resolves an aggregate function name.
func AggKindFromName(name string) (AggKind, bool) {
	for k, n := range aggNames {
		if n == strings.ToLower(name) {
			return k, true
		}
	}
	return 0, false
}

// AggCall is a resolved aggregate call. Aggregate calls are a separate
// family from scalar calls: they only appear in Aggregate nodes, never
// inside scalar trees.
type AggCall struct {
	kind     AggKind
	args     []sql.Expression
	ret      sql.Type
	distinct bool
}

// NewAggCall resolves an aggregate call over the given arguments.
func NewAggCall(kind AggKind, distinct bool, args ...sql.Expression) (*AggCall, error) {
	ret, err := aggReturnType(kind, args)
	if err != nil {
		return nil, err
	}
	return &AggCall{kind: kind, args: args, ret: ret, distinct: distinct}, nil
}

func aggReturnType(kind AggKind, args []sql.Expression) (sql.Type, error) {
	fail := func() (sql.Type, error) {
		return nil, sql.ErrNoFunctionSignature.New(kind.Name(), argTypeList(args))
	}
	switch kind {
	case AggCount:
		if len(args) > 1 {
			return fail()
		}
		return types.Int64, nil
	case AggSum:
		if len(args) != 1 || !args[0].Type().Numeric() {
			return fail()
		}
		t := args[0].Type()
		switch {
		case t.Equals(types.Int16), t.Equals(types.Int32):
			return types.Int64, nil
		case t.Equals(types.Int64):
			return types.Decimal, nil
		default:
			return t, nil
		}
	case AggAvg:
		if len(args) != 1 || !args[0].Type().Numeric() {
			return fail()
		}
		t := args[0].Type()
		if t.Equals(types.Float32) || t.Equals(types.Float64) {
			return types.Float64, nil
		}
		return types.Decimal, nil
	case AggMin, AggMax, AggSingleValue:
		if len(args) != 1 {
			return fail()
		}
		return args[0].Type(), nil
	case AggStringAgg:
		if len(args) < 1 || len(args) > 2 || !args[0].Type().Equals(types.Varchar) {
			return fail()
		}
		return types.Varchar, nil
	}
	return fail()
}

// Kind returns the aggregate kind.
func (a *AggCall) Kind() AggKind { return a.kind }

// Args returns the aggregate arguments.
func (a *AggCall) Args() []sql.Expression { return a.args }

// Distinct reports whether duplicate inputs collapse before aggregation.
func (a *AggCall) Distinct() bool { return a.distinct }

func (a *AggCall) Type() sql.Type { return a.ret }

func (a *AggCall) Nullable() bool {
	// count never returns NULL; other aggregates do on an empty group.
	return a.kind != AggCount
}

func (a *AggCall) Children() []sql.Expression { return a.args }

func (a *AggCall) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != len(a.args) {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), len(a.args))
	}
	na := *a
	na.args = children
	return &na, nil
}

func (a *AggCall) aggregation() {}

func (a *AggCall) String() string {
	parts := make([]string, len(a.args))
	for i, arg := range a.args {
		parts[i] = arg.String()
	}
	if a.distinct {
		return fmt.Sprintf("%s(distinct %s)", a.kind.Name(), strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s(%s)", a.kind.Name(), strings.Join(parts, ", "))
}

// ContainsAggregation reports whether the expression tree contains an
// aggregate call.
func ContainsAggregation(e sql.Expression) bool {
	found := false
	Inspect(e, func(e sql.Expression) bool {
		if _, ok := e.(sql.Aggregation); ok {
			found = true
			return false
		}
		return true
	})
	return found
}
