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

package batch

import (
	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/plan"
)

// Plan lowers an optimized logical plan to a batch plan. Every operator
// declares the distribution its children must have; a BatchExchange bridges
// every mismatch. The root is gathered to a single partition.
func Plan(ctx *sql.Context, logical sql.Node) (Node, error) {
	span, finish := ctx.Span("batch.plan")
	defer finish()
	_ = span

	node, err := toBatch(ctx, logical)
	if err != nil {
		return nil, err
	}
	return enforce(ctx, node, sql.SingleDist(), nil), nil
}

// enforce inserts an exchange when the node's distribution does not
// satisfy the requirement.
func enforce(ctx *sql.Context, node Node, req sql.Distribution, order sql.SortFields) Node {
	if node.Distribution().Satisfies(req) {
		return node
	}
	return NewExchange(ctx, node, req, order)
}

func toBatch(ctx *sql.Context, logical sql.Node) (Node, error) {
	switch logical := logical.(type) {
	case *plan.Scan:
		return NewScan(ctx, logical), nil

	case *plan.Values:
		return NewValues(ctx, logical), nil

	case *plan.Filter:
		child, err := toBatch(ctx, logical.Child())
		if err != nil {
			return nil, err
		}
		return NewFilter(ctx, logical.Condition(), child), nil

	case *plan.Project:
		child, err := toBatch(ctx, logical.Child())
		if err != nil {
			return nil, err
		}
		dist := projectDistribution(logical, child.Distribution())
		return NewProject(ctx, logical.Schema(), logical.Projections(), dist, child), nil

	case *plan.Join:
		return joinToBatch(ctx, logical)

	case *plan.Aggregate:
		return aggToBatch(ctx, logical)

	case *plan.Union:
		// UNION runs only in stream jobs for now
		return nil, sql.ErrNotYetImplemented.New(
			"unsupported statement: UNION in batch queries", ctx.TrackingURL())

	case *plan.TopN:
		child, err := toBatch(ctx, logical.Child())
		if err != nil {
			return nil, err
		}
		// the gather exchange carries the order the top-n consumes
		child = enforce(ctx, child, sql.SingleDist(), logical.Order())
		return NewTopN(ctx, logical.Order(), logical.Limit(), logical.Offset(), child), nil

	case *plan.Insert:
		child, err := toBatch(ctx, logical.Child())
		if err != nil {
			return nil, err
		}
		child = enforce(ctx, child, sql.SingleDist(), nil)
		return NewInsert(ctx, logical.Schema(), logical.Table(), child), nil

	case *plan.Delete:
		child, err := toBatch(ctx, logical.Child())
		if err != nil {
			return nil, err
		}
		child = enforce(ctx, child, sql.SingleDist(), nil)
		return NewDelete(ctx, logical.Schema(), logical.Table(), child), nil

	case *plan.Update:
		child, err := toBatch(ctx, logical.Child())
		if err != nil {
			return nil, err
		}
		child = enforce(ctx, child, sql.SingleDist(), nil)
		return NewUpdate(ctx, logical.Schema(), logical.Table(), child), nil

	default:
		return nil, sql.ErrInternal.New("unexpected logical node in batch lowering")
	}
}

// projectDistribution maps the child's hash keys through the projection;
// a dropped key degrades to AnyShard.
func projectDistribution(p *plan.Project, child sql.Distribution) sql.Distribution {
	refAt := map[int]int{}
	for out, item := range p.Projections() {
		if ref, ok := expression.Unalias(item).(*expression.InputRef); ok {
			if _, seen := refAt[ref.Index()]; !seen {
				refAt[ref.Index()] = out
			}
		}
	}
	return child.MapKeys(func(i int) (int, bool) {
		out, ok := refAt[i]
		return out, ok
	})
}

func joinToBatch(ctx *sql.Context, j *plan.Join) (Node, error) {
	leftKeys, rightKeys := j.EquiKeys()
	if len(leftKeys) == 0 {
		return nil, sql.ErrNotYetImplemented.New(
			"unsupported join: no equality join condition",
			ctx.TrackingURL())
	}
	left, err := toBatch(ctx, j.Left())
	if err != nil {
		return nil, err
	}
	right, err := toBatch(ctx, j.Right())
	if err != nil {
		return nil, err
	}
	left = enforce(ctx, left, sql.HashDist(leftKeys...), nil)
	right = enforce(ctx, right, sql.HashDist(rightKeys...), nil)
	return NewHashJoin(ctx, j.Schema(), j.JoinType(), leftKeys, rightKeys,
		j.Condition(), sql.HashDist(leftKeys...), left, right), nil
}

func aggToBatch(ctx *sql.Context, a *plan.Aggregate) (Node, error) {
	child, err := toBatch(ctx, a.Child())
	if err != nil {
		return nil, err
	}
	if a.Simple() {
		child = enforce(ctx, child, sql.SingleDist(), nil)
		return NewSimpleAgg(ctx, a.Schema(), a.Aggs(), child), nil
	}
	keys := a.GroupKeyIndices()
	for _, k := range keys {
		if k < 0 {
			return nil, sql.ErrNotYetImplemented.New(
				"unsupported GROUP BY: expression group keys",
				ctx.TrackingURL())
		}
	}
	child = enforce(ctx, child, sql.HashDist(keys...), nil)
	outKeys := make([]int, len(keys))
	for i := range keys {
		outKeys[i] = i
	}
	return NewHashAgg(ctx, a.Schema(), keys, a.Aggs(), sql.HashDist(outKeys...), child), nil
}
