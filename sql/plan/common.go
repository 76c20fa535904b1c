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
	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/types"
)

// dmlResultSchema is the affected-row count every DML statement returns.
func dmlResultSchema() sql.Schema {
	return sql.Schema{{Name: "rows_affected", Type: types.Int64}}
}

// FuncDepser is implemented by nodes that track candidate keys.
type FuncDepser interface {
	FuncDeps() *sql.FuncDepSet
}

// childFuncDeps returns the key set of a node, walking through nodes that
// preserve keys unchanged (filters, top-n, materialize).
func childFuncDeps(n sql.Node) *sql.FuncDepSet {
	switch n := n.(type) {
	case FuncDepser:
		return n.FuncDeps()
	case *Filter:
		return childFuncDeps(n.Child())
	case *TopN:
		return childFuncDeps(n.Child())
	case *Materialize:
		return childFuncDeps(n.Child())
	case *Project:
		// map child keys through the projection's plain references
		childFDs := childFuncDeps(n.Child())
		refs := map[int]int{}
		for out, e := range n.Projections() {
			if ref, ok := unaliasRef(e); ok {
				if _, seen := refs[ref]; !seen {
					refs[ref] = out
				}
			}
		}
		return childFDs.MapIndices(func(i int) (int, bool) {
			out, ok := refs[i]
			return out, ok
		})
	default:
		return sql.NewFuncDepSet()
	}
}

func unaliasRef(e sql.Expression) (int, bool) {
	if ref, ok := expression.Unalias(e).(*expression.InputRef); ok {
		return ref.Index(), true
	}
	return -1, false
}
