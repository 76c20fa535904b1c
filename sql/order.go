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

import (
	"fmt"
	"strings"
)

// SortField is one key of an ordering requirement.
type SortField struct {
	Column     Expression
	Descending bool
}

func (f SortField) String() string {
	if f.Descending {
		return fmt.Sprintf("%s DESC", f.Column)
	}
	return fmt.Sprintf("%s ASC", f.Column)
}

// SortFields is an ordered list of sort keys.
type SortFields []SortField

func (fs SortFields) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
