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
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrTableNotFound is returned when the table is not on the catalog.
	ErrTableNotFound = errors.NewKind("table not found: %s")

	// ErrColumnNotFound is returned when the column does not exist in any
	// table in scope.
	ErrColumnNotFound = errors.NewKind("column %q could not be found in any table in scope")

	// ErrTableAlreadyExists is returned on CREATE TABLE over an existing name.
	ErrTableAlreadyExists = errors.NewKind("table with name %s already exists")

	// ErrTableInUse is returned on DROP TABLE when materialized views still
	// depend on the table.
	ErrTableInUse = errors.NewKind("unable to drop %s: %s depends on it")

	// ErrAggInWhere is returned when an aggregate call appears in a WHERE
	// clause.
	ErrAggInWhere = errors.NewKind("aggregate functions are not allowed in WHERE")

	// ErrAggInValues is returned when an aggregate call appears inside a
	// VALUES list.
	ErrAggInValues = errors.NewKind("aggregate functions are not allowed in VALUES")

	// ErrUnsupportedRowFormat is returned when a source declares a row format
	// the system cannot decode.
	ErrUnsupportedRowFormat = errors.NewKind("unsupported row format: %s")

	// ErrInvalidInputSyntax is returned when an expression is well-formed
	// syntactically but semantically invalid.
	ErrInvalidInputSyntax = errors.NewKind("Invalid input syntax: %s")

	// ErrColumnNotInGroupBy is the planner error for a projected column that
	// is neither grouped nor aggregated.
	ErrColumnNotInGroupBy = errors.NewKind("column must appear in the GROUP BY clause or be used in an aggregate function")

	// ErrNotYetImplemented is returned for SQL surface the planner does not
	// support yet. The message carries the feature and a tracking URL.
	ErrNotYetImplemented = errors.NewKind("%s, Tracking issue: %s")

	// ErrNoFunctionSignature is returned when no signature of a known
	// function matches the argument types after implicit widening.
	ErrNoFunctionSignature = errors.NewKind("function %s does not exist for argument types %s")

	// ErrInternal flags a broken planner invariant. It must be unreachable
	// with well-formed input.
	ErrInternal = errors.NewKind("internal error: %s")

	// ErrInvalidChildrenNumber is returned by WithChildren when the number
	// of children does not match the node.
	ErrInvalidChildrenNumber = errors.NewKind("%T: invalid children number, got %d, expected %d")

	// ErrInvalidChildType is returned when a physical node receives a child
	// from the wrong plan family.
	ErrInvalidChildType = errors.NewKind("%T: invalid child type, got %T")
)

var binderKinds = []*errors.Kind{
	ErrTableNotFound,
	ErrColumnNotFound,
	ErrTableAlreadyExists,
	ErrTableInUse,
	ErrAggInWhere,
	ErrAggInValues,
	ErrUnsupportedRowFormat,
	ErrInvalidInputSyntax,
	ErrNoFunctionSignature,
}

var plannerKinds = []*errors.Kind{
	ErrColumnNotInGroupBy,
}

// IsBinderError reports whether the error was raised while binding the
// statement, before any planning took place.
func IsBinderError(err error) bool {
	for _, k := range binderKinds {
		if k.Is(err) {
			return true
		}
	}
	return false
}

// IsPlannerError reports whether the error was raised by a semantic rewrite
// rule during planning.
func IsPlannerError(err error) bool {
	for _, k := range plannerKinds {
		if k.Is(err) {
			return true
		}
	}
	return false
}
