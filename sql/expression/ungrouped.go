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

	"github.com/rivuletdata/rivulet/sql"
)

// UngroupedColumn marks a projected column of a GROUP BY query that is
// neither a grouping key nor inside an aggregate. The builder emits it
// instead of failing so the whole statement binds; the validation rule
// rejects any plan still carrying one.
type UngroupedColumn struct {
	ref *InputRef
}

// NewUngroupedColumn wraps the offending reference.
func NewUngroupedColumn(ref *InputRef) *UngroupedColumn {
	return &UngroupedColumn{ref: ref}
}

// Ref returns the offending column reference (into the pre-aggregation
// schema).
func (u *UngroupedColumn) Ref() *InputRef { return u.ref }

func (u *UngroupedColumn) Type() sql.Type { return u.ref.Type() }

func (u *UngroupedColumn) Nullable() bool { return u.ref.Nullable() }

func (u *UngroupedColumn) Children() []sql.Expression { return nil }

func (u *UngroupedColumn) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(u, len(children), 0)
	}
	return u, nil
}

func (u *UngroupedColumn) String() string {
	return fmt.Sprintf("ungrouped(%s)", u.ref)
}
