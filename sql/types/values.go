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

package types

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/rivuletdata/rivulet/sql"
)

// CoerceValue converts a constant value to the canonical Go representation
// of the given type. It is used when folding constants and when widening a
// literal to a wider signature slot. A nil value stays nil for any type.
func CoerceValue(v interface{}, t sql.Type) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	bt, ok := t.(baseType)
	if !ok {
		return nil, sql.ErrInternal.New("unknown type in coercion")
	}
	switch bt.id {
	case booleanID:
		return cast.ToBoolE(v)
	case int16ID:
		return cast.ToInt16E(v)
	case int32ID:
		return cast.ToInt32E(v)
	case int64ID:
		return cast.ToInt64E(v)
	case float32ID:
		return cast.ToFloat32E(v)
	case float64ID:
		return cast.ToFloat64E(v)
	case varcharID:
		return cast.ToStringE(v)
	case dateID, timestampID:
		return cast.ToTimeE(v)
	case intervalID:
		switch iv := v.(type) {
		case time.Duration:
			return iv, nil
		default:
			return cast.ToDurationE(v)
		}
	case decimalID:
		switch dv := v.(type) {
		case decimal.Decimal:
			return dv, nil
		case string:
			return decimal.NewFromString(dv)
		case float64:
			return decimal.NewFromFloat(dv), nil
		case float32:
			return decimal.NewFromFloat32(dv), nil
		default:
			i, err := cast.ToInt64E(v)
			if err != nil {
				return nil, err
			}
			return decimal.NewFromInt(i), nil
		}
	}
	return nil, sql.ErrInternal.New("unknown type in coercion")
}
