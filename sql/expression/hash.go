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
	"reflect"

	"github.com/mitchellh/hashstructure"

	"github.com/rivuletdata/rivulet/sql"
)

// hashShape is the canonical structural form of an expression, used for
// structural equality and hashing. Two expressions are equal iff their
// shapes are equal.
type hashShape struct {
	Kind     string
	Index    int
	Value    string
	Type     string
	Distinct bool
	Children []hashShape
}

func shapeOf(e sql.Expression) hashShape {
	s := hashShape{Type: e.Type().String()}
	switch e := e.(type) {
	case *InputRef:
		s.Kind = "input_ref"
		s.Index = e.Index()
	case *Constant:
		s.Kind = "constant"
		s.Value = fmt.Sprintf("%T:%v", e.Value(), e.Value())
	case *Cast:
		s.Kind = "cast"
	case *FunctionCall:
		s.Kind = "call:" + e.Kind().Name()
	case *AggCall:
		s.Kind = "agg:" + e.Kind().Name()
		s.Distinct = e.Distinct()
	case *Alias:
		s.Kind = "alias:" + e.AliasName()
	default:
		s.Kind = fmt.Sprintf("%T", e)
	}
	children := e.Children()
	if len(children) > 0 {
		s.Children = make([]hashShape, len(children))
		for i, c := range children {
			s.Children[i] = shapeOf(c)
		}
	}
	return s
}

// Hash returns a structural hash of the expression.
func Hash(e sql.Expression) (uint64, error) {
	return hashstructure.Hash(shapeOf(e), nil)
}

// Equals reports structural equality of two expressions. Aliases count:
// the same tree under a different name is a different expression. The
// structural hash screens out mismatches cheaply; only hash-equal pairs
// pay for the full shape comparison.
func Equals(a, b sql.Expression) bool {
	ha, errA := Hash(a)
	hb, errB := Hash(b)
	if errA == nil && errB == nil && ha != hb {
		return false
	}
	return reflect.DeepEqual(shapeOf(a), shapeOf(b))
}
