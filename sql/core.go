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
)

// Type represents a SQL data type. Concrete types live in sql/types.
type Type interface {
	fmt.Stringer
	// Equals reports whether the receiver and the given type are the same
	// type.
	Equals(other Type) bool
	// Numeric reports whether values of this type support arithmetic.
	Numeric() bool
}

// Expression is a typed scalar expression tree node. Column references are
// positional indices into the direct input schema.
type Expression interface {
	fmt.Stringer
	// Type returns the resolved return type of the expression.
	Type() Type
	// Nullable reports whether the expression may evaluate to NULL.
	Nullable() bool
	// Children returns the immediate children of this expression.
	Children() []Expression
	// WithChildren returns a copy of the expression with the given children.
	// The number of children must match Children() or an error is returned.
	WithChildren(children ...Expression) (Expression, error)
}

// Aggregation is implemented by expressions that compute an aggregate over
// their input, as opposed to a scalar function of a single row.
type Aggregation interface {
	Expression
	aggregation()
}

// Node is a node of a logical query plan.
type Node interface {
	fmt.Stringer
	// Schema returns the output schema of the node.
	Schema() Schema
	// Children returns the input nodes, left to right.
	Children() []Node
	// WithChildren returns a copy of the node with the given children.
	WithChildren(children ...Node) (Node, error)
}

// Expressioner is implemented by nodes that own expressions which reference
// their input schema. Every rewrite that changes an input schema must push a
// ColumnMap through these.
type Expressioner interface {
	// Expressions returns the node's expressions in a stable order.
	Expressions() []Expression
	// WithExpressions returns a copy of the node with the given expressions,
	// in the same order as Expressions.
	WithExpressions(exprs ...Expression) (Node, error)
}

// OperatorID identifies a physical plan node within one compilation.
type OperatorID uint64

// FragmentID identifies a fragment of a stream graph.
type FragmentID uint32

// ActorID identifies an actor instance of a fragment.
type ActorID uint32
