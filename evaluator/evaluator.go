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
	"reflect"

	"github.com/tomoncle/specrepo/specification"
	"github.com/uptrace/bun"
)

// Spec is the read side of a specification as seen by evaluators.
type Spec interface {
	Filters() []specification.Filter
	SearchCriteria() []specification.SearchCriterion
	Orders() []specification.Order
	Includes() []string
	SkipCount() int
	TakeCount() int
	PagingEnabled() bool
	SelectColumns() []string
}

// Evaluator turns a specification into a bun select query.
type Evaluator interface {
	// GetQuery applies spec to q. With criteriaOnly set only the evaluators
	// that narrow the row set run, which is what counting needs.
	GetQuery(q *bun.SelectQuery, spec Spec, criteriaOnly bool) *bun.SelectQuery
}

// CriterionEvaluator applies one aspect of a specification.
type CriterionEvaluator interface {
	Evaluate(q *bun.SelectQuery, spec Spec) *bun.SelectQuery
	// IsCriteria reports whether the evaluator filters rows.
	IsCriteria() bool
}

// SpecificationEvaluator runs its criterion evaluators in order.
type SpecificationEvaluator struct {
	evaluators []CriterionEvaluator
}

var _ Evaluator = (*SpecificationEvaluator)(nil)

// Default applies where, search, include, order, pagination and column
// evaluators in that order.
var Default = New(
	WhereEvaluator{},
	SearchEvaluator{},
	IncludeEvaluator{},
	OrderEvaluator{},
	PaginationEvaluator{},
	ColumnEvaluator{},
)

// New returns an evaluator running evaluators in the given order.
func New(evaluators ...CriterionEvaluator) *SpecificationEvaluator {
	list := make([]CriterionEvaluator, 0, len(evaluators))
	for _, e := range evaluators {
		if e != nil {
			list = append(list, e)
		}
	}
	return &SpecificationEvaluator{evaluators: list}
}

func (e *SpecificationEvaluator) GetQuery(q *bun.SelectQuery, spec Spec, criteriaOnly bool) *bun.SelectQuery {
	if isNil(spec) {
		return q
	}
	for _, ev := range e.evaluators {
		if criteriaOnly && !ev.IsCriteria() {
			continue
		}
		q = ev.Evaluate(q, spec)
	}
	return q
}

// Evaluators returns the configured evaluators in execution order.
func (e *SpecificationEvaluator) Evaluators() []CriterionEvaluator {
	return append([]CriterionEvaluator(nil), e.evaluators...)
}

func isNil(spec Spec) bool {
	if spec == nil {
		return true
	}
	v := reflect.ValueOf(spec)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
