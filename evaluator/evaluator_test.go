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

package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tomoncle/specrepo/evaluator"
	"github.com/tomoncle/specrepo/internal/testdb"
	"github.com/tomoncle/specrepo/specification"
	"github.com/uptrace/bun"
)

func baseQuery(t *testing.T) *bun.SelectQuery {
	return testdb.Open(t).NewSelect().Model((*testdb.Customer)(nil))
}

func TestDefaultEvaluatorBuildsQuery(t *testing.T) {
	spec := specification.Where[testdb.Customer]("age > ?", 30).
		Search("name", "Jo%", 1).
		Search("email", "%@example.com", 1).
		Search("city", "B%", 2).
		OrderByDesc("age").
		OrderBy("name").
		Skip(20).
		Take(10)

	sql := evaluator.Default.GetQuery(baseQuery(t), spec, false).String()

	assert.Contains(t, sql, "age > 30")
	assert.Contains(t, sql, `"name" LIKE 'Jo%'`)
	assert.Contains(t, sql, `"email" LIKE '%@example.com'`)
	assert.Contains(t, sql, `"city" LIKE 'B%'`)
	assert.Contains(t, sql, " OR ")
	assert.Contains(t, sql, `ORDER BY "age" DESC, "name" ASC`)
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 20")
}

func TestCriteriaOnlySkipsShaping(t *testing.T) {
	spec := specification.Where[testdb.Customer]("age > ?", 30).
		Search("name", "A%", 0).
		OrderBy("name").
		Take(5)

	sql := evaluator.Default.GetQuery(baseQuery(t), spec, true).String()

	assert.Contains(t, sql, "age > 30")
	assert.Contains(t, sql, `"name" LIKE 'A%'`)
	assert.NotContains(t, sql, "ORDER BY")
	assert.NotContains(t, sql, "LIMIT")
}

func TestNilSpecLeavesQueryUntouched(t *testing.T) {
	q := baseQuery(t)
	before := q.String()

	var spec *specification.Specification[testdb.Customer]
	assert.Equal(t, before, evaluator.Default.GetQuery(q, spec, false).String())
	assert.Equal(t, before, evaluator.Default.GetQuery(q, nil, false).String())
}

func TestColumnEvaluatorNarrowsSelect(t *testing.T) {
	spec := specification.Select(specification.New[testdb.Customer](), func(c *testdb.Customer) string { return c.Name }).
		Columns("name")

	sql := evaluator.Default.GetQuery(baseQuery(t), spec, false).String()
	assert.Contains(t, sql, `"name"`)
	assert.NotContains(t, sql, `"email"`)
}

func TestCustomEvaluatorChain(t *testing.T) {
	e := evaluator.New(evaluator.WhereEvaluator{}, nil, evaluator.OrderEvaluator{})
	assert.Len(t, e.Evaluators(), 2)

	spec := specification.Where[testdb.Customer]("age = ?", 1).Search("name", "x", 0).OrderBy("id")
	sql := e.GetQuery(baseQuery(t), spec, false).String()
	assert.Contains(t, sql, "age = 1")
	assert.NotContains(t, sql, "LIKE")
	assert.Contains(t, sql, "ORDER BY")
}

func TestIsCriteria(t *testing.T) {
	for _, tc := range []struct {
		name string
		ev   evaluator.CriterionEvaluator
		want bool
	}{
		{"where", evaluator.WhereEvaluator{}, true},
		{"search", evaluator.SearchEvaluator{}, true},
		{"include", evaluator.IncludeEvaluator{}, false},
		{"order", evaluator.OrderEvaluator{}, false},
		{"pagination", evaluator.PaginationEvaluator{}, false},
		{"columns", evaluator.ColumnEvaluator{}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ev.IsCriteria())
		})
	}
}
