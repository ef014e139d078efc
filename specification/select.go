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

// SelectSpecification is a Specification whose results are projected to R by
// Selector. Columns optionally narrows the SQL select list to what the
// selector reads; unselected fields of T stay at their zero value.
type SelectSpecification[T any, R any] struct {
	base        *Specification[T]
	selector    func(*T) R
	columns     []string
	postProcess func([]R) []R
}

// Select wraps base with a projection. A nil base matches every T.
func Select[T any, R any](base *Specification[T], selector func(*T) R) *SelectSpecification[T, R] {
	return &SelectSpecification[T, R]{base: base.clone(), selector: selector}
}

func (s *SelectSpecification[T, R]) clone() *SelectSpecification[T, R] {
	if s == nil {
		return &SelectSpecification[T, R]{base: New[T]()}
	}
	return &SelectSpecification[T, R]{
		base:        s.base,
		selector:    s.selector,
		columns:     slices.Clone(s.columns),
		postProcess: s.postProcess,
	}
}

// Columns restricts the loaded columns.
func (s *SelectSpecification[T, R]) Columns(columns ...string) *SelectSpecification[T, R] {
	c := s.clone()
	c.columns = append(c.columns, columns...)
	return c
}

// PostProcess sets a function applied to the projected results.
func (s *SelectSpecification[T, R]) PostProcess(fn func([]R) []R) *SelectSpecification[T, R] {
	c := s.clone()
	c.postProcess = fn
	return c
}

// Selector returns the projection, nil when none was given.
func (s *SelectSpecification[T, R]) Selector() func(*T) R {
	if s == nil {
		return nil
	}
	return s.selector
}

// Base returns the underlying criteria.
func (s *SelectSpecification[T, R]) Base() *Specification[T] {
	if s == nil {
		return nil
	}
	return s.base
}

func (s *SelectSpecification[T, R]) Filters() []Filter { return s.Base().Filters() }
func (s *SelectSpecification[T, R]) SearchCriteria() []SearchCriterion { return s.Base().SearchCriteria() }
func (s *SelectSpecification[T, R]) Orders() []Order { return s.Base().Orders() }
func (s *SelectSpecification[T, R]) Includes() []string { return s.Base().Includes() }
func (s *SelectSpecification[T, R]) SkipCount() int { return s.Base().SkipCount() }
func (s *SelectSpecification[T, R]) TakeCount() int { return s.Base().TakeCount() }
func (s *SelectSpecification[T, R]) PagingEnabled() bool { return s.Base().PagingEnabled() }

func (s *SelectSpecification[T, R]) SelectColumns() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.columns)
}

// Project maps entities through the selector and then runs the
// post-processing step. The selector must be non-nil.
func (s *SelectSpecification[T, R]) Project(entities []*T) []R {
	results := make([]R, 0, len(entities))
	for _, e := range entities {
		results = append(results, s.selector(e))
	}
	if s.postProcess != nil {
		results = s.postProcess(results)
	}
	return results
}
