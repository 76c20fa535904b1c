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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/types"
)

func TestFunctionCallExactSignature(t *testing.T) {
	require := require.New(t)

	e, err := NewFunctionCall(Add,
		NewInputRef(0, types.Int32, "a", false),
		NewInputRef(1, types.Int32, "b", false),
	)
	require.NoError(err)
	require.Equal(types.Int32, e.Type())
	require.Equal("($0 + $1)", e.String())

	// no casts materialize for an exact match
	call := e.(*FunctionCall)
	_, isCast := call.Args()[0].(*Cast)
	require.False(isCast)
}

func TestFunctionCallWidening(t *testing.T) {
	require := require.New(t)

	e, err := NewFunctionCall(Multiply,
		NewInputRef(0, types.Int16, "a", false),
		NewInputRef(1, types.Int64, "b", false),
	)
	require.NoError(err)
	require.Equal(types.Int64, e.Type())

	call := e.(*FunctionCall)
	cast, ok := call.Args()[0].(*Cast)
	require.True(ok, "narrow argument must be wrapped in an explicit cast")
	require.Equal(types.Int64, cast.Type())
	_, ok = call.Args()[1].(*Cast)
	require.False(ok)
}

func TestFunctionCallDateInterval(t *testing.T) {
	require := require.New(t)

	e, err := NewFunctionCall(Add,
		NewInputRef(0, types.Date, "d", false),
		NewInputRef(1, types.Interval, "i", false),
	)
	require.NoError(err)
	require.Equal(types.Timestamp, e.Type())
}

func TestFunctionCallNoSignature(t *testing.T) {
	require := require.New(t)

	_, err := NewFunctionCall(Add,
		NewInputRef(0, types.Varchar, "s", false),
		NewInputRef(1, types.Int32, "n", false),
	)
	require.Error(err)
	require.True(sql.ErrNoFunctionSignature.Is(err))
}

func TestFunctionCallNullability(t *testing.T) {
	require := require.New(t)

	e, err := NewFunctionCall(Add,
		NewInputRef(0, types.Int32, "a", true),
		NewInputRef(1, types.Int32, "b", false),
	)
	require.NoError(err)
	require.True(e.Nullable())

	e, err = NewFunctionCall(IsNull, NewInputRef(0, types.Int32, "a", true))
	require.NoError(err)
	require.False(e.Nullable())
	require.Equal(types.Boolean, e.Type())
}

func TestComparisonYieldsBoolean(t *testing.T) {
	require := require.New(t)

	e, err := NewFunctionCall(LessThan,
		NewInputRef(0, types.Int32, "a", false),
		NewConstant(int32(4), types.Int32),
	)
	require.NoError(err)
	require.Equal(types.Boolean, e.Type())
	require.Equal("($0 < 4)", e.String())
}

func TestScalarFuncByName(t *testing.T) {
	require := require.New(t)

	kind, ok := ScalarFuncByName("UPPER")
	require.True(ok)
	require.Equal(Upper, kind)

	_, ok = ScalarFuncByName("must_be_unimplemented_func")
	require.False(ok)
}

func TestAggCallReturnTypes(t *testing.T) {
	require := require.New(t)

	testCases := []struct {
		kind AggKind
		arg  sql.Type
		ret  sql.Type
	}{
		{AggCount, types.Int32, types.Int64},
		{AggSum, types.Int16, types.Int64},
		{AggSum, types.Int32, types.Int64},
		{AggSum, types.Int64, types.Decimal},
		{AggSum, types.Float64, types.Float64},
		{AggAvg, types.Int32, types.Decimal},
		{AggAvg, types.Float32, types.Float64},
		{AggMin, types.Varchar, types.Varchar},
		{AggMax, types.Int64, types.Int64},
		{AggSingleValue, types.Int32, types.Int32},
		{AggStringAgg, types.Varchar, types.Varchar},
	}
	for _, tc := range testCases {
		call, err := NewAggCall(tc.kind, false, NewInputRef(0, tc.arg, "x", true))
		require.NoError(err)
		require.Equal(tc.ret, call.Type(), "%s(%s)", tc.kind.Name(), tc.arg)
	}

	_, err := NewAggCall(AggSum, false, NewInputRef(0, types.Varchar, "x", true))
	require.True(sql.ErrNoFunctionSignature.Is(err))
}

func TestAggCallString(t *testing.T) {
	require := require.New(t)

	call, err := NewAggCall(AggCount, false, NewInputRef(2, types.Int32, "v3", true))
	require.NoError(err)
	require.Equal("count($2)", call.String())

	call, err = NewAggCall(AggCount, true, NewInputRef(0, types.Int32, "v1", true))
	require.NoError(err)
	require.Equal("count(distinct $0)", call.String())

	// count never returns NULL; the others do on an empty input
	require.False(call.Nullable())
	min, err := NewAggCall(AggMin, false, NewInputRef(0, types.Int32, "v1", false))
	require.NoError(err)
	require.True(min.Nullable())
}

func TestStructuralEqualityAndHash(t *testing.T) {
	require := require.New(t)

	a, err := NewFunctionCall(Add,
		NewInputRef(0, types.Int32, "a", false),
		NewConstant(int32(1), types.Int32),
	)
	require.NoError(err)
	b, err := NewFunctionCall(Add,
		NewInputRef(0, types.Int32, "renamed", false),
		NewConstant(int32(1), types.Int32),
	)
	require.NoError(err)
	c, err := NewFunctionCall(Add,
		NewInputRef(1, types.Int32, "a", false),
		NewConstant(int32(1), types.Int32),
	)
	require.NoError(err)

	// names do not take part in structural identity, indices do
	require.True(Equals(a, b))
	require.False(Equals(a, c))

	ha, err := Hash(a)
	require.NoError(err)
	hb, err := Hash(b)
	require.NoError(err)
	hc, err := Hash(c)
	require.NoError(err)
	require.Equal(ha, hb)
	require.NotEqual(ha, hc)
}
