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

package specification

import "slices"

// Filter is one WHERE condition in bun query syntax, e.g. "name = ?".
type Filter struct {
	Query string
	Args  []interface{}
}

// SearchCriterion is a LIKE match on Column. Criteria sharing a Group are
// OR-combined, distinct groups are AND-combined.
type SearchCriterion struct {
	Column  string
	Pattern string
	Group   int
}

// Order sorts by Column, descending when Desc is set.
type Order struct {
	Column string
	Desc   bool
}

// Specification describes a query over T: filters, search criteria, ordering,
// related data to include, paging and an in-memory post-processing step.
//
// A Specification is immutable. Every builder method returns a new value and
// leaves the receiver untouched, so a base specification can be shared and
// refined freely.
type Specification[T any] struct {
	filters     []Filter
	search      []SearchCriterion
	orders      []Order
	includes    []string
	skip        int
	take        int
	tracking    bool
	postProcess func([]*T) []*T
}

// New returns an empty specification that matches every T.
func New[T any]() *Specification[T] {
	return &Specification[T]{}
}

// Where is a shorthand for New[T]().Where(query, args...).
func Where[T any](query string, args ...interface{}) *Specification[T] {
	return New[T]().Where(query, args...)
}

func (s *Specification[T]) clone() *Specification[T] {
	if s == nil {
		return &Specification[T]{}
	}
	return &Specification[T]{
		filters:     slices.Clone(s.filters),
		search:      slices.Clone(s.search),
		orders:      slices.Clone(s.orders),
		includes:    slices.Clone(s.includes),
		skip:        s.skip,
		take:        s.take,
		tracking:    s.tracking,
		postProcess: s.postProcess,
	}
}

// Where adds a filter. Filters are AND-combined in declaration order.
func (s *Specification[T]) Where(query string, args ...interface{}) *Specification[T] {
	c := s.clone()
	c.filters = append(c.filters, Filter{Query: query, Args: slices.Clone(args)})
	return c
}

// Search adds a LIKE criterion on column; pattern uses SQL wildcards.
func (s *Specification[T]) Search(column, pattern string, group int) *Specification[T] {
	c := s.clone()
	c.search = append(c.search, SearchCriterion{Column: column, Pattern: pattern, Group: group})
	return c
}

// OrderBy appends an ascending sort key.
func (s *Specification[T]) OrderBy(column string) *Specification[T] {
	c := s.clone()
	c.orders = append(c.orders, Order{Column: column})
	return c
}

// OrderByDesc appends a descending sort key.
func (s *Specification[T]) OrderByDesc(column string) *Specification[T] {
	c := s.clone()
	c.orders = append(c.orders, Order{Column: column, Desc: true})
	return c
}

// Include loads the named bun relation with the results. Nested relations
// use dotted paths such as "Orders.Lines".
func (s *Specification[T]) Include(path string) *Specification[T] {
	c := s.clone()
	if !slices.Contains(c.includes, path) {
		c.includes = append(c.includes, path)
	}
	return c
}

// Skip sets the number of rows to skip. Negative values are treated as zero.
func (s *Specification[T]) Skip(n int) *Specification[T] {
	c := s.clone()
	c.skip = max(n, 0)
	return c
}

// Take limits the number of rows returned. Zero or negative removes the limit.
func (s *Specification[T]) Take(n int) *Specification[T] {
	c := s.clone()
	c.take = max(n, 0)
	return c
}

// AsTracking makes listed entities tracked by the persistence context, so that
// later changes to them can be saved and repeated reads share instances.
func (s *Specification[T]) AsTracking() *Specification[T] {
	c := s.clone()
	c.tracking = true
	return c
}

// PostProcess sets a function applied to the materialized results of List.
func (s *Specification[T]) PostProcess(fn func([]*T) []*T) *Specification[T] {
	c := s.clone()
	c.postProcess = fn
	return c
}

func (s *Specification[T]) Filters() []Filter {
	if s == nil {
		return nil
	}
	return slices.Clone(s.filters)
}

func (s *Specification[T]) SearchCriteria() []SearchCriterion {
	if s == nil {
		return nil
	}
	return slices.Clone(s.search)
}

func (s *Specification[T]) Orders() []Order {
	if s == nil {
		return nil
	}
	return slices.Clone(s.orders)
}

func (s *Specification[T]) Includes() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.includes)
}

func (s *Specification[T]) SkipCount() int {
	if s == nil {
		return 0
	}
	return s.skip
}

func (s *Specification[T]) TakeCount() int {
	if s == nil {
		return 0
	}
	return s.take
}

// PagingEnabled reports whether Skip or Take was set to a positive value.
func (s *Specification[T]) PagingEnabled() bool {
	return s.SkipCount() > 0 || s.TakeCount() > 0
}

// SelectColumns is empty for entity specifications: every column is loaded.
func (s *Specification[T]) SelectColumns() []string { return nil }

func (s *Specification[T]) Tracking() bool {
	return s != nil && s.tracking
}

// Apply runs the post-processing step, if any, over results.
func (s *Specification[T]) Apply(results []*T) []*T {
	if s == nil || s.postProcess == nil {
		return results
	}
	return s.postProcess(results)
}
