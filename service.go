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

package specrepo

import (
	"context"
	"errors"

	"github.com/tomoncle/specrepo/database"
	"github.com/tomoncle/specrepo/persistence"
	"github.com/tomoncle/specrepo/repository"
	"github.com/tomoncle/specrepo/specification"
	"github.com/tomoncle/specrepo/types"
	"github.com/uptrace/bun"
)

// ErrDatabaseNotInitialized is returned by services bound to the global
// database before database.InitDB succeeded.
var ErrDatabaseNotInitialized = errors.New("specrepo: database not initialized")

type Service[T any] interface {
	// Get returns a single entity by its identifier, nil when absent.
	Get(ctx context.Context, id int64) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities matching spec.
	List(ctx context.Context, spec *specification.Specification[T]) ([]*T, error)

	// Count returns how many entities match spec.
	Count(ctx context.Context, spec *specification.Specification[T]) (int, error)

	// Page returns one page of the entities matching spec.
	Page(ctx context.Context, spec *specification.Specification[T], page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts a new entity and returns it with its assigned id.
	Save(ctx context.Context, model *T) (*T, error)

	// SaveAll inserts every model in one transaction.
	SaveAll(ctx context.Context, models ...*T) error

	// Update overwrites an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity.
	Delete(ctx context.Context, model *T) error

	// Repository returns a repository over a new unit of work.
	Repository() (repository.Repository[T], error)

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery
}

type baseServiceImpl[T any, PT interface {
	*T
	repository.Entity
}] struct {
	db   func() bun.IDB
	opts []repository.Option
}

// NewService returns a Service over the global database connection. Every
// call runs in its own persistence context.
func NewService[T any, PT interface {
	*T
	repository.Entity
}](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T, PT]{
		db: func() bun.IDB {
			// a nil *bun.DB must not become a non-nil interface
			if db := database.GetDB(); db != nil {
				return db
			}
			return nil
		},
		opts: opts,
	}
}

// NewServiceWithDB returns a Service over db, which may be a transaction.
func NewServiceWithDB[T any, PT interface {
	*T
	repository.Entity
}](db bun.IDB, opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T, PT]{db: func() bun.IDB { return db }, opts: opts}
}

func (s *baseServiceImpl[T, PT]) Repository() (repository.Repository[T], error) {
	db := s.db()
	if db == nil {
		return nil, ErrDatabaseNotInitialized
	}
	return repository.NewRepository[T, PT](persistence.NewContext(db), s.opts...), nil
}

func (s *baseServiceImpl[T, PT]) Get(ctx context.Context, id int64) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

func (s *baseServiceImpl[T, PT]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.ListAll(ctx)
}

func (s *baseServiceImpl[T, PT]) List(ctx context.Context, spec *specification.Specification[T]) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, spec)
}

func (s *baseServiceImpl[T, PT]) Count(ctx context.Context, spec *specification.Specification[T]) (int, error) {
	repo, err := s.Repository()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, spec)
}

func (s *baseServiceImpl[T, PT]) Page(ctx context.Context, spec *specification.Specification[T], page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, spec, page)
}

func (s *baseServiceImpl[T, PT]) Save(ctx context.Context, model *T) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Add(ctx, model)
}

func (s *baseServiceImpl[T, PT]) SaveAll(ctx context.Context, models ...*T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	pctx := repo.Context()
	for _, model := range models {
		if model == nil {
			return repository.ErrNilEntity
		}
		if err := pctx.Add(PT(model)); err != nil {
			return err
		}
	}
	_, err = pctx.SaveChanges(ctx)
	return err
}

func (s *baseServiceImpl[T, PT]) Update(ctx context.Context, model *T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T, PT]) Delete(ctx context.Context, model *T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.Delete(ctx, model)
}

func (s *baseServiceImpl[T, PT]) SelectBuilder() *bun.SelectQuery {
	db := s.db()
	if db == nil {
		return nil
	}
	return db.NewSelect().Model((*T)(nil))
}
