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
	"github.com/rivuletdata/rivulet/sql"
)

// ColumnMap rewrites input-ref indices after a transformation changed a
// schema. Position i of the old schema maps to targets[i] in the new one;
// -1 marks a dropped column. Every rewrite that alters a schema returns one
// of these and applies it to all dependent expressions, so indices never
// dangle.
type ColumnMap struct {
	targets []int
}

// NewColumnMap builds a map from explicit targets.
func NewColumnMap(targets []int) *ColumnMap {
	return &ColumnMap{targets: append([]int(nil), targets...)}
}

// IdentityMap maps n columns to themselves.
func IdentityMap(n int) *ColumnMap {
	t := make([]int, n)
	for i := range t {
		t[i] = i
	}
	return &ColumnMap{targets: t}
}

// OffsetMap maps n columns to themselves shifted by off.
func OffsetMap(n, off int) *ColumnMap {
	t := make([]int, n)
	for i := range t {
		t[i] = i + off
	}
	return &ColumnMap{targets: t}
}

// Len returns the width of the source schema.
func (m *ColumnMap) Len() int { return len(m.targets) }

// Map translates an old index. The boolean is false for dropped columns.
func (m *ColumnMap) Map(i int) (int, bool) {
	if i < 0 || i >= len(m.targets) || m.targets[i] < 0 {
		return -1, false
	}
	return m.targets[i], true
}

// MustMap translates an old index and errors on a dropped or out-of-range
// column, which would mean a rewrite left a dangling reference.
func (m *ColumnMap) MustMap(i int) (int, error) {
	t, ok := m.Map(i)
	if !ok {
		return -1, sql.ErrInternal.New("dangling column index after rewrite")
	}
	return t, nil
}

// Compose returns a map equivalent to applying m first, then next.
func (m *ColumnMap) Compose(next *ColumnMap) *ColumnMap {
	t := make([]int, len(m.targets))
	for i, mid := range m.targets {
		if mid < 0 {
			t[i] = -1
			continue
		}
		nt, ok := next.Map(mid)
		if !ok {
			t[i] = -1
			continue
		}
		t[i] = nt
	}
	return &ColumnMap{targets: t}
}

// Apply rewrites every InputRef in the expression through the map. It
// errors if any reference maps to a dropped column.
func (m *ColumnMap) Apply(e sql.Expression) (sql.Expression, error) {
	return TransformUp(e, func(e sql.Expression) (sql.Expression, error) {
		ref, ok := e.(*InputRef)
		if !ok {
			return e, nil
		}
		target, err := m.MustMap(ref.Index())
		if err != nil {
			return nil, err
		}
		if target == ref.Index() {
			return ref, nil
		}
		return ref.WithIndex(target), nil
	})
}

// ApplyAll rewrites a slice of expressions.
func (m *ColumnMap) ApplyAll(exprs []sql.Expression) ([]sql.Expression, error) {
	out := make([]sql.Expression, len(exprs))
	for i, e := range exprs {
		ne, err := m.Apply(e)
		if err != nil {
			return nil, err
		}
		out[i] = ne
	}
	return out, nil
}

// ValidateIndices checks that every InputRef in e is a valid index into a
// schema of the given width. Rewrite tests use it to assert no rule leaves
// dangling indices.
func ValidateIndices(e sql.Expression, width int) error {
	var err error
	Inspect(e, func(e sql.Expression) bool {
		if ref, ok := e.(*InputRef); ok {
			if ref.Index() < 0 || ref.Index() >= width {
				err = sql.ErrInternal.New("input ref out of range")
				return false
			}
		}
		return true
	})
	return err
}
