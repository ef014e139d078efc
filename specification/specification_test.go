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

package specification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/specrepo/specification"
)

type item struct {
	ID   int64
	Name string
}

func TestBuilderDoesNotModifyReceiver(t *testing.T) {
	base := specification.Where[item]("name = ?", "A")
	refined := base.OrderBy("name").Skip(5).Take(10).Include("Orders").AsTracking()

	assert.Len(t, base.Filters(), 1)
	assert.Empty(t, base.Orders())
	assert.Empty(t, base.Includes())
	assert.False(t, base.PagingEnabled())
	assert.False(t, base.Tracking())

	assert.Equal(t, []specification.Order{{Column: "name"}}, refined.Orders())
	assert.Equal(t, 5, refined.SkipCount())
	assert.Equal(t, 10, refined.TakeCount())
	assert.True(t, refined.PagingEnabled())
	assert.True(t, refined.Tracking())
}

func TestSiblingsDoNotShareState(t *testing.T) {
	base := specification.New[item]().Where("id > ?", 0)
	a := base.Where("name = ?", "a")
	b := base.Where("name = ?", "b")

	require.Len(t, a.Filters(), 2)
	require.Len(t, b.Filters(), 2)
	assert.Equal(t, []interface{}{"a"}, a.Filters()[1].Args)
	assert.Equal(t, []interface{}{"b"}, b.Filters()[1].Args)
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := specification.New[item]().Search("name", "A%", 1)
	criteria := s.SearchCriteria()
	criteria[0].Pattern = "changed"
	assert.Equal(t, "A%", s.SearchCriteria()[0].Pattern)
}

func TestPagingBounds(t *testing.T) {
	s := specification.New[item]().Skip(-3).Take(-1)
	assert.Zero(t, s.SkipCount())
	assert.Zero(t, s.TakeCount())
	assert.False(t, s.PagingEnabled())
}

func TestIncludeIsDeduplicated(t *testing.T) {
	s := specification.New[item]().Include("Orders").Include("Orders").Include("Orders.Lines")
	assert.Equal(t, []string{"Orders", "Orders.Lines"}, s.Includes())
}

func TestApplyPostProcess(t *testing.T) {
	items := []*item{{ID: 1}, {ID: 2}, {ID: 3}}
	assert.Equal(t, items, specification.New[item]().Apply(items))

	odd := specification.New[item]().PostProcess(func(in []*item) []*item {
		var out []*item
		for _, it := range in {
			if it.ID%2 == 1 {
				out = append(out, it)
			}
		}
		return out
	})
	assert.Len(t, odd.Apply(items), 2)
}

func TestNilSpecificationActsEmpty(t *testing.T) {
	var s *specification.Specification[item]
	assert.Nil(t, s.Filters())
	assert.False(t, s.PagingEnabled())
	assert.Len(t, s.Where("id = ?", 1).Filters(), 1)
}

func TestSelectSpecification(t *testing.T) {
	sel := specification.Select(specification.Where[item]("id > ?", 1), func(i *item) string { return i.Name }).
		Columns("name")

	require.NotNil(t, sel.Selector())
	assert.Equal(t, []string{"name"}, sel.SelectColumns())
	assert.Len(t, sel.Filters(), 1)
	assert.Nil(t, specification.New[item]().SelectColumns())

	names := sel.PostProcess(func(in []string) []string { return in[:1] }).
		Project([]*item{{Name: "x"}, {Name: "y"}})
	assert.Equal(t, []string{"x"}, names)

	missing := specification.Select[item, string](nil, nil)
	assert.Nil(t, missing.Selector())
	assert.Empty(t, missing.Filters())
}
