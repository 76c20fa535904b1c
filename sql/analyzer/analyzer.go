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

// Package analyzer rewrites logical plans with a fixed, ordered list of
// rules applied to fixpoint. Rules only simplify and restructure; there is
// no cost-based search.
package analyzer

import (
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/rivuletdata/rivulet/sql"
)

// maxPasses bounds the fixpoint loop; hitting it means a rule pair keeps
// undoing each other, which is a bug.
const maxPasses = 8

// RuleFunc is one rewrite applied to the whole plan.
type RuleFunc func(ctx *sql.Context, a *Analyzer, node sql.Node) (sql.Node, error)

// Rule is a named rewrite.
type Rule struct {
	Name  string
	Apply RuleFunc
}

// DefaultRules are applied in order, repeatedly, until the plan stops
// changing. The order is part of the contract: pushdown before pruning so
// pruning sees the final reference sets, splitting before validation so
// rewritten aggregates validate.
var DefaultRules = []Rule{
	{"pushdown_filters", pushdownFilters},
	{"prune_columns", pruneColumns},
	{"erase_identity_project", eraseIdentityProject},
	{"split_join_condition", splitJoinCondition},
	{"split_avg", splitAvg},
	{"fold_constants", foldConstants},
	{"validate_group_by", validateGroupBy},
}

// Analyzer applies rules to logical plans.
type Analyzer struct {
	rules []Rule
	log   *logrus.Entry
}

// New creates an analyzer with the default rule set.
func New() *Analyzer {
	return NewWithRules(DefaultRules)
}

// NewWithRules creates an analyzer with a custom rule list, mainly for
// tests exercising one rule in isolation.
func NewWithRules(rules []Rule) *Analyzer {
	return &Analyzer{
		rules: rules,
		log:   logrus.WithField("component", "analyzer"),
	}
}

// Rule returns the named rule; tests use it to apply rules one at a time.
func (a *Analyzer) Rule(name string) (Rule, bool) {
	for _, r := range a.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Analyze rewrites the plan to fixpoint. Compilation holds no external
// resources, so cancellation is checked between passes and simply abandons
// the tree.
func (a *Analyzer) Analyze(ctx *sql.Context, node sql.Node) (sql.Node, error) {
	span, finish := ctx.Span("analyze")
	defer finish()
	_ = span

	for pass := 0; pass < maxPasses; pass++ {
		if err := ctx.Context.Err(); err != nil {
			return nil, err
		}
		prev := node
		for _, rule := range a.rules {
			ruleSpan, finishRule := ctx.Span("analyzer.rule." + rule.Name)
			next, err := rule.Apply(ctx, a, node)
			finishRule()
			_ = ruleSpan
			if err != nil {
				return nil, err
			}
			if !reflect.DeepEqual(next, node) {
				a.log.WithFields(logrus.Fields{"rule": rule.Name, "pass": pass}).
					Debug("rule changed the plan")
			}
			node = next
		}
		if reflect.DeepEqual(prev, node) {
			return node, nil
		}
	}
	return node, nil
}
