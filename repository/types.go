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

package repository

import (
	"context"
	"errors"

	"github.com/tomoncle/specrepo/database"
	"github.com/tomoncle/specrepo/evaluator"
	"github.com/tomoncle/specrepo/persistence"
	"github.com/tomoncle/specrepo/specification"
	"github.com/tomoncle/specrepo/types"
	"github.com/uptrace/bun"
)

var (
	// ErrNilSpecification is returned when a required specification is missing.
	ErrNilSpecification = errors.New("repository: specification is required")

	// ErrInvalidSpecification is returned for a projection without a selector.
	ErrInvalidSpecification = errors.New("repository: specification must define a selector")

	// ErrNilEntity is returned when a mutation receives a nil entity.
	ErrNilEntity = errors.New("repository: entity is required")
)

// Entity is implemented by pointers to the models a repository manages.
type Entity interface {
	GetID() int64
}

// ReadRepository defines lookups and specification queries.
type ReadRepository[T any] interface {
	// GetByID returns the entity with the given primary key, or nil when no
	// such entity exists.
	GetByID(ctx context.Context, id int64) (*T, error)

	ListAll(ctx context.Context) ([]*T, error)

	List(ctx context.Context, spec *specification.Specification[T]) ([]*T, error)

	// Count returns how many rows match the criteria of spec. Ordering,
	// paging and includes are ignored.
	Count(ctx context.Context, spec *specification.Specification[T]) (int, error)

	Page(ctx context.Context, spec *specification.Specification[T], page *types.PageRequest) (*types.Pagination[T], error)
}

// WriteRepository defines mutations. Each call commits on its own.
type WriteRepository[T any] interface {
	Add(ctx context.Context, entity *T) (*T, error)

	// Update writes every column of entity by primary key.
	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, entity *T) error
}

// Repository combines read and write operations and exposes the query
// shaping it uses for advanced use cases.
type Repository[T any] interface {
	ReadRepository[T]
	WriteRepository[T]
	ApplySpecification(q *bun.SelectQuery, spec evaluator.Spec, criteriaOnly bool) *bun.SelectQuery
	NewSelect() *bun.SelectQuery
	Context() *persistence.Context
}

// Option configures a repository.
type Option func(*options)

type options struct {
	evaluator evaluator.Evaluator
	logger    database.Logger
}

// WithEvaluator replaces the default specification evaluator. Nil is ignored.
func WithEvaluator(e evaluator.Evaluator) Option {
	return func(o *options) {
		if e != nil {
			o.evaluator = e
		}
	}
}

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger database.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
