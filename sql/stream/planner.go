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

package stream

import (
	"fmt"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/expression"
	"github.com/rivuletdata/rivulet/sql/plan"
	"github.com/rivuletdata/rivulet/sql/types"
)

// Plan lowers the optimized plan of a CREATE MATERIALIZED VIEW into a
// stream plan rooted at a StreamMaterialize. Lowering may widen schemas
// with hidden columns (pk carriers, aggregate state); the column maps
// returned by each step keep every reference valid.
func Plan(ctx *sql.Context, logical sql.Node) (*Materialize, error) {
	span, finish := ctx.Span("stream.plan")
	defer finish()
	_ = span

	m, ok := logical.(*plan.Materialize)
	if !ok {
		return nil, sql.ErrInternal.New("stream plan root must be a materialize")
	}
	child, _, err := toStream(ctx, m.Child())
	if err != nil {
		return nil, err
	}
	return NewMaterialize(ctx, m.Name(), child), nil
}

// enforce inserts an exchange when the node's distribution does not
// satisfy the requirement.
func enforce(ctx *sql.Context, node Node, req sql.Distribution) Node {
	if node.Distribution().Satisfies(req) {
		return node
	}
	return NewExchange(ctx, node, req)
}

// toStream lowers one logical node and returns the column map from the
// logical output schema into the (possibly wider) stream output schema.
func toStream(ctx *sql.Context, logical sql.Node) (Node, *expression.ColumnMap, error) {
	switch logical := logical.(type) {
	case *plan.Scan:
		return scanToStream(ctx, logical)
	case *plan.Filter:
		child, cmap, err := toStream(ctx, logical.Child())
		if err != nil {
			return nil, nil, err
		}
		pred, err := cmap.Apply(logical.Condition())
		if err != nil {
			return nil, nil, err
		}
		return NewFilter(ctx, pred, child), cmap, nil
	case *plan.Project:
		return projectToStream(ctx, logical)
	case *plan.Join:
		return joinToStream(ctx, logical)
	case *plan.Aggregate:
		return aggToStream(ctx, logical)
	case *plan.TopN:
		return topNToStream(ctx, logical)
	case *plan.Union:
		return unionToStream(ctx, logical)
	default:
		return nil, nil, sql.ErrInternal.New("unexpected logical node in stream lowering")
	}
}

// scanToStream lowers a table scan, re-adding pruned pk columns as hidden
// so the stream stays keyed. Scans of materialized views become chains.
func scanToStream(ctx *sql.Context, scan *plan.Scan) (Node, *expression.ColumnMap, error) {
	table := scan.Table()
	columns := append([]int(nil), scan.Columns()...)
	for _, tpk := range table.PrimaryKey {
		found := false
		for _, c := range columns {
			if c == tpk {
				found = true
				break
			}
		}
		if !found {
			columns = append(columns, tpk)
		}
	}

	schema := make(sql.Schema, len(columns))
	for i, ci := range columns {
		col := table.Columns[ci].Copy()
		if col.Name == sql.RowIDName {
			col.Name = fmt.Sprintf("%s#%d", sql.RowIDName, scan.Ordinal())
			col.Hidden = true
		}
		if i >= len(scan.Columns()) {
			col.Hidden = true
		}
		schema[i] = col
	}

	pk := make([]int, len(table.PrimaryKey))
	for i, tpk := range table.PrimaryKey {
		for pos, c := range columns {
			if c == tpk {
				pk[i] = pos
				break
			}
		}
	}
	if len(pk) == 0 {
		return nil, nil, sql.ErrInternal.New("table without a primary key in stream lowering")
	}

	cmap := expression.IdentityMap(len(scan.Columns()))
	if table.IsMaterializedView {
		merge := NewMerge(ctx, schema, pk, sql.HashDist(pk...))
		snap := NewBatchPlan(ctx, table, columns, schema, pk)
		chain := NewChain(ctx, table, merge, snap, schema, pk)
		// the chain keeps the upstream layout; cutting it into its own
		// fragment lets the control plane colocate it with the upstream
		// view's actors
		return NewExchange(ctx, chain, sql.NoShuffleDist()), cmap, nil
	}
	return NewTableScan(ctx, table, columns, schema, pk), cmap, nil
}

// projectToStream lowers a projection, re-adding any child pk column the
// projection dropped as a trailing hidden item with the empty alias.
func projectToStream(ctx *sql.Context, p *plan.Project) (Node, *expression.ColumnMap, error) {
	child, cmap, err := toStream(ctx, p.Child())
	if err != nil {
		return nil, nil, err
	}
	items, err := cmap.ApplyAll(p.Projections())
	if err != nil {
		return nil, nil, err
	}

	childSchema := child.Schema()
	refAt := map[int]int{}
	for out, item := range items {
		if ref, ok := expression.Unalias(item).(*expression.InputRef); ok {
			if _, seen := refAt[ref.Index()]; !seen {
				refAt[ref.Index()] = out
			}
		}
	}
	logicalWidth := len(items)
	for _, pc := range child.PK() {
		if _, ok := refAt[pc]; !ok {
			col := childSchema[pc]
			items = append(items, expression.NewAlias("",
				expression.NewInputRef(pc, col.Type, col.Name, col.Nullable)))
			refAt[pc] = len(items) - 1
		}
	}
	pk := make([]int, len(child.PK()))
	for i, pc := range child.PK() {
		pk[i] = refAt[pc]
	}

	schema := make(sql.Schema, len(items))
	for i, item := range items {
		schema[i] = streamProjectedColumn(item, childSchema)
	}
	dist := child.Distribution().MapKeys(func(i int) (int, bool) {
		out, ok := refAt[i]
		return out, ok
	})
	node := NewProject(ctx, schema, items, pk, dist, child)
	return node, expression.IdentityMap(logicalWidth), nil
}

func streamProjectedColumn(e sql.Expression, input sql.Schema) *sql.Column {
	name := ""
	hidden := false
	if a, ok := e.(*expression.Alias); ok {
		name = a.AliasName()
		hidden = name == ""
		e = a.Child()
	}
	if name == "" {
		if ref, ok := e.(*expression.InputRef); ok {
			name = ref.Name()
			if name == "" && ref.Index() < len(input) {
				name = input[ref.Index()].Name
			}
		} else {
			name = e.String()
		}
	}
	return &sql.Column{Name: name, Type: e.Type(), Nullable: e.Nullable(), Hidden: hidden}
}

func joinToStream(ctx *sql.Context, j *plan.Join) (Node, *expression.ColumnMap, error) {
	logicalLeftKeys, logicalRightKeys := j.EquiKeys()
	if len(logicalLeftKeys) == 0 {
		return nil, nil, sql.ErrNotYetImplemented.New(
			"unsupported join: no equality join condition", ctx.TrackingURL())
	}
	left, lmap, err := toStream(ctx, j.Left())
	if err != nil {
		return nil, nil, err
	}
	right, rmap, err := toStream(ctx, j.Right())
	if err != nil {
		return nil, nil, err
	}

	leftKeys := make([]int, len(logicalLeftKeys))
	rightKeys := make([]int, len(logicalRightKeys))
	for i := range logicalLeftKeys {
		if leftKeys[i], err = lmap.MustMap(logicalLeftKeys[i]); err != nil {
			return nil, nil, err
		}
		if rightKeys[i], err = rmap.MustMap(logicalRightKeys[i]); err != nil {
			return nil, nil, err
		}
	}
	left = enforce(ctx, left, sql.HashDist(leftKeys...))
	right = enforce(ctx, right, sql.HashDist(rightKeys...))

	leftWidth := len(left.Schema())
	schema := append(left.Schema().Copy(), right.Schema().Copy()...)
	switch j.JoinType() {
	case plan.LeftOuterJoin:
		markNullable(schema[leftWidth:])
	case plan.RightOuterJoin:
		markNullable(schema[:leftWidth])
	case plan.FullOuterJoin:
		markNullable(schema)
	}

	pk := append([]int(nil), left.PK()...)
	for _, r := range right.PK() {
		pk = append(pk, r+leftWidth)
	}

	logicalLeftWidth := len(j.Left().Schema())
	jointMap := joinColumnMap(lmap, rmap, logicalLeftWidth, leftWidth, len(j.Right().Schema()))
	var residual sql.Expression
	if j.Condition() != nil {
		if residual, err = jointMap.Apply(j.Condition()); err != nil {
			return nil, nil, err
		}
	}

	node := NewHashJoin(ctx, schema, j.JoinType(), leftKeys, rightKeys, residual, pk,
		sql.HashDist(leftKeys...), left, right)
	return node, jointMap, nil
}

func markNullable(s sql.Schema) {
	for _, c := range s {
		c.Nullable = true
	}
}

// joinColumnMap concatenates the two side maps, offsetting the right side
// by the stream left width.
func joinColumnMap(lmap, rmap *expression.ColumnMap, logicalLeftWidth, streamLeftWidth, logicalRightWidth int) *expression.ColumnMap {
	targets := make([]int, logicalLeftWidth+logicalRightWidth)
	for i := range targets {
		if i < logicalLeftWidth {
			t, ok := lmap.Map(i)
			if !ok {
				t = -1
			}
			targets[i] = t
		} else {
			t, ok := rmap.Map(i - logicalLeftWidth)
			if !ok {
				targets[i] = -1
			} else {
				targets[i] = t + streamLeftWidth
			}
		}
	}
	return expression.NewColumnMap(targets)
}

// aggToStream lowers an aggregate. Both forms prepend a hidden count
// state so the operator can retract a group (or the global row) when its
// row count drains to zero.
func aggToStream(ctx *sql.Context, a *plan.Aggregate) (Node, *expression.ColumnMap, error) {
	child, cmap, err := toStream(ctx, a.Child())
	if err != nil {
		return nil, nil, err
	}

	countState, err := expression.NewAggCall(expression.AggCount, false)
	if err != nil {
		return nil, nil, err
	}

	aggs := make([]sql.Expression, 0, len(a.Aggs())+1)
	aggs = append(aggs, countState)
	for _, e := range a.Aggs() {
		ne, err := cmap.Apply(e)
		if err != nil {
			return nil, nil, err
		}
		aggs = append(aggs, ne)
	}

	countCol := &sql.Column{Name: "count", Type: types.Int64, Hidden: true}

	if a.Simple() {
		child = enforce(ctx, child, sql.SingleDist())
		schema := sql.Schema{countCol}
		for _, e := range aggs[1:] {
			schema = append(schema, streamProjectedColumn(e, child.Schema()))
		}
		node := NewSimpleAgg(ctx, schema, aggs, []int{0}, child)
		return node, expression.OffsetMap(len(a.Aggs()), 1), nil
	}

	groups, err := cmap.ApplyAll(a.GroupBy())
	if err != nil {
		return nil, nil, err
	}
	keys := make([]int, len(groups))
	for i, g := range groups {
		ref, ok := expression.Unalias(g).(*expression.InputRef)
		if !ok {
			return nil, nil, sql.ErrNotYetImplemented.New(
				"unsupported GROUP BY: expression group keys", ctx.TrackingURL())
		}
		keys[i] = ref.Index()
	}
	child = enforce(ctx, child, sql.HashDist(keys...))

	schema := make(sql.Schema, 0, len(groups)+len(aggs))
	for _, g := range groups {
		schema = append(schema, streamProjectedColumn(g, child.Schema()))
	}
	schema = append(schema, countCol)
	for _, e := range aggs[1:] {
		schema = append(schema, streamProjectedColumn(e, child.Schema()))
	}

	pk := make([]int, len(groups))
	outKeys := make([]int, len(groups))
	for i := range groups {
		pk[i] = i
		outKeys[i] = i
	}
	node := NewHashAgg(ctx, schema, keys, aggs, pk, sql.HashDist(outKeys...), child)

	targets := make([]int, len(groups)+len(a.Aggs()))
	for i := range groups {
		targets[i] = i
	}
	for j := range a.Aggs() {
		targets[len(groups)+j] = len(groups) + 1 + j
	}
	return node, expression.NewColumnMap(targets), nil
}

// unionSourceName is the hidden column distinguishing which branch a
// union row came from; without it the branches' keys could collide.
const unionSourceName = "_union_src"

// unionToStream lowers a UNION ALL. Every branch is normalized to
// [user columns, branch pk (hidden), source tag (hidden)] so all branches
// share one schema; the union's pk is the branch pk plus the tag. Branches
// whose stream keys have different shapes cannot share that pk layout.
func unionToStream(ctx *sql.Context, u *plan.Union) (Node, *expression.ColumnMap, error) {
	names := u.Schema()
	width := len(names)

	var inputs []Node
	var pk []int
	var unionSchema sql.Schema
	for i, child := range u.Children() {
		cn, cmap, err := toStream(ctx, child)
		if err != nil {
			return nil, nil, err
		}
		childSchema := cn.Schema()
		childPK := cn.PK()

		items := make([]sql.Expression, 0, width+len(childPK)+1)
		schema := make(sql.Schema, 0, width+len(childPK)+1)
		refAt := map[int]int{}
		for j := 0; j < width; j++ {
			si, err := cmap.MustMap(j)
			if err != nil {
				return nil, nil, err
			}
			col := childSchema[si]
			items = append(items, expression.NewInputRef(si, col.Type, names[j].Name, col.Nullable))
			schema = append(schema, &sql.Column{Name: names[j].Name, Type: col.Type, Nullable: col.Nullable})
			if _, seen := refAt[si]; !seen {
				refAt[si] = j
			}
		}
		for _, p := range childPK {
			col := childSchema[p]
			items = append(items, expression.NewAlias("",
				expression.NewInputRef(p, col.Type, col.Name, col.Nullable)))
			schema = append(schema, &sql.Column{Name: col.Name, Type: col.Type, Nullable: col.Nullable, Hidden: true})
			refAt[p] = len(schema) - 1
		}
		items = append(items, expression.NewAlias("", expression.NewConstant(int16(i), types.Int16)))
		schema = append(schema, &sql.Column{Name: unionSourceName, Type: types.Int16, Hidden: true})

		branchPK := make([]int, 0, len(childPK)+1)
		for k := range childPK {
			branchPK = append(branchPK, width+k)
		}
		branchPK = append(branchPK, len(schema)-1)

		dist := cn.Distribution().MapKeys(func(ci int) (int, bool) {
			out, ok := refAt[ci]
			return out, ok
		})
		branch := Node(NewProject(ctx, schema, items, branchPK, dist, cn))

		if i == 0 {
			pk = branchPK
			unionSchema = schema.Copy()
		} else {
			if len(schema) != len(unionSchema) {
				return nil, nil, sql.ErrNotYetImplemented.New(
					"unsupported UNION: branches have different stream key shapes",
					ctx.TrackingURL())
			}
			for j, col := range schema {
				if !col.Type.Equals(unionSchema[j].Type) {
					return nil, nil, sql.ErrNotYetImplemented.New(
						"unsupported UNION: branches have different stream key shapes",
						ctx.TrackingURL())
				}
				if col.Nullable {
					unionSchema[j].Nullable = true
				}
			}
		}
		inputs = append(inputs, branch)
	}

	// partition on the shared pk carriers; the per-branch tag is constant
	// within a branch and contributes nothing to the hash
	req := sql.HashDist(pk[:len(pk)-1]...)
	for i, in := range inputs {
		inputs[i] = enforce(ctx, in, req)
	}
	union := NewUnion(ctx, unionSchema, pk, req, inputs...)
	return union, expression.IdentityMap(width), nil
}

func topNToStream(ctx *sql.Context, t *plan.TopN) (Node, *expression.ColumnMap, error) {
	child, cmap, err := toStream(ctx, t.Child())
	if err != nil {
		return nil, nil, err
	}
	child = enforce(ctx, child, sql.SingleDist())

	order := make(sql.SortFields, len(t.Order()))
	for i, f := range t.Order() {
		col, err := cmap.Apply(f.Column)
		if err != nil {
			return nil, nil, err
		}
		order[i] = sql.SortField{Column: col, Descending: f.Descending}
	}

	// pk: the order key columns, then the input pk, deduplicated
	var pk []int
	seen := map[int]struct{}{}
	for _, f := range order {
		if ref, ok := expression.Unalias(f.Column).(*expression.InputRef); ok {
			if _, dup := seen[ref.Index()]; !dup {
				pk = append(pk, ref.Index())
				seen[ref.Index()] = struct{}{}
			}
		}
	}
	for _, pc := range child.PK() {
		if _, dup := seen[pc]; !dup {
			pk = append(pk, pc)
			seen[pc] = struct{}{}
		}
	}
	return NewTopN(ctx, order, t.Limit(), t.Offset(), pk, child), cmap, nil
}
