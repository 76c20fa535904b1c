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

package sql

// FuncDepSet tracks the candidate keys of a relation: sets of column indices
// that functionally determine every other column. The planner uses keys to
// accept columns in a GROUP BY query that are determined by the grouping
// key, and to derive stream primary keys.
type FuncDepSet struct {
	keys [][]int
}

// NewFuncDepSet builds a dependency set from candidate keys.
func NewFuncDepSet(keys ...[]int) *FuncDepSet {
	fds := &FuncDepSet{}
	for _, k := range keys {
		fds.AddKey(k)
	}
	return fds
}

// AddKey records a candidate key.
func (f *FuncDepSet) AddKey(key []int) {
	if len(key) == 0 {
		return
	}
	f.keys = append(f.keys, append([]int(nil), key...))
}

// Keys returns the recorded candidate keys.
func (f *FuncDepSet) Keys() [][]int {
	return f.keys
}

// Determines reports whether cols contains some candidate key, i.e. cols
// functionally determines the whole row.
func (f *FuncDepSet) Determines(cols []int) bool {
	set := make(map[int]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	for _, key := range f.keys {
		covered := true
		for _, k := range key {
			if _, ok := set[k]; !ok {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// MapIndices rewrites key indices through m, dropping keys with columns the
// map does not carry.
func (f *FuncDepSet) MapIndices(m func(int) (int, bool)) *FuncDepSet {
	out := &FuncDepSet{}
	for _, key := range f.keys {
		mapped := make([]int, 0, len(key))
		ok := true
		for _, k := range key {
			nk, found := m(k)
			if !found {
				ok = false
				break
			}
			mapped = append(mapped, nk)
		}
		if ok {
			out.AddKey(mapped)
		}
	}
	return out
}

// Concat merges the keys of two sides of a join, offsetting the right side
// by the width of the left schema. Every pair (lk ++ rk) is a key of the
// join output.
func (f *FuncDepSet) Concat(right *FuncDepSet, leftWidth int) *FuncDepSet {
	out := &FuncDepSet{}
	for _, lk := range f.keys {
		for _, rk := range right.keys {
			key := append([]int(nil), lk...)
			for _, k := range rk {
				key = append(key, k+leftWidth)
			}
			out.AddKey(key)
		}
	}
	return out
}
