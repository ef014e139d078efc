/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package evaluator

import (
	"github.com/tomoncle/specrepo/specification"
	"github.com/uptrace/bun"
)

// WhereEvaluator ANDs every filter into the query.
type WhereEvaluator struct{}

func (WhereEvaluator) IsCriteria() bool { return true }

func (WhereEvaluator) Evaluate(q *bun.SelectQuery, spec Spec) *bun.SelectQuery {
	for _, f := range spec.Filters() {
		q = q.Where(f.Query, f.Args...)
	}
	return q
}

// SearchEvaluator adds one parenthesized OR group of LIKE matches per search
// group, in order of first appearance.
type SearchEvaluator struct{}

func (SearchEvaluator) IsCriteria() bool { return true }

func (SearchEvaluator) Evaluate(q *bun.SelectQuery, spec Spec) *bun.SelectQuery {
	criteria := spec.SearchCriteria()
	if len(criteria) == 0 {
		return q
	}
	var groups []int
	byGroup := make(map[int][]specification.SearchCriterion)
	for _, c := range criteria {
		if _, ok := byGroup[c.Group]; !ok {
			groups = append(groups, c.Group)
		}
		byGroup[c.Group] = append(byGroup[c.Group], c)
	}
	for _, g := range groups {
		members := byGroup[g]
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, c := range members {
				sq = sq.WhereOr("? LIKE ?", bun.Ident(c.Column), c.Pattern)
			}
			return sq
		})
	}
	return q
}

// IncludeEvaluator loads the requested relations.
type IncludeEvaluator struct{}

func (IncludeEvaluator) IsCriteria() bool { return false }

func (IncludeEvaluator) Evaluate(q *bun.SelectQuery, spec Spec) *bun.SelectQuery {
	for _, path := range spec.Includes() {
		q = q.Relation(path)
	}
	return q
}

// OrderEvaluator applies sort keys in declaration order.
type OrderEvaluator struct{}

func (OrderEvaluator) IsCriteria() bool { return false }

func (OrderEvaluator) Evaluate(q *bun.SelectQuery, spec Spec) *bun.SelectQuery {
	for _, o := range spec.Orders() {
		if o.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(o.Column))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(o.Column))
		}
	}
	return q
}

// PaginationEvaluator applies offset and limit when paging is enabled.
type PaginationEvaluator struct{}

func (PaginationEvaluator) IsCriteria() bool { return false }

func (PaginationEvaluator) Evaluate(q *bun.SelectQuery, spec Spec) *bun.SelectQuery {
	if !spec.PagingEnabled() {
		return q
	}
	if n := spec.SkipCount(); n > 0 {
		q = q.Offset(n)
	}
	if n := spec.TakeCount(); n > 0 {
		q = q.Limit(n)
	}
	return q
}

// ColumnEvaluator narrows the select list for projections.
type ColumnEvaluator struct{}

func (ColumnEvaluator) IsCriteria() bool { return false }

func (ColumnEvaluator) Evaluate(q *bun.SelectQuery, spec Spec) *bun.SelectQuery {
	if cols := spec.SelectColumns(); len(cols) > 0 {
		q = q.Column(cols...)
	}
	return q
}
