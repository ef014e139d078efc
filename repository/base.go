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
	"reflect"

	"github.com/tomoncle/specrepo/database"
	"github.com/tomoncle/specrepo/evaluator"
	"github.com/tomoncle/specrepo/persistence"
	"github.com/tomoncle/specrepo/specification"
	"github.com/tomoncle/specrepo/types"
	"github.com/uptrace/bun"
)

type baseRepositoryImpl[T any, PT interface {
	*T
	Entity
}] struct {
	pctx      *persistence.Context
	evaluator evaluator.Evaluator
	logger    database.Logger
	model     string
}

// NewRepository returns a generic repository over the persistence context.
// The context is shared, not owned: several repositories may use the same one
// and its lifetime is the caller's concern.
func NewRepository[T any, PT interface {
	*T
	Entity
}](pctx *persistence.Context, opts ...Option) Repository[T] {
	o := options{evaluator: evaluator.Default, logger: database.GetLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &baseRepositoryImpl[T, PT]{
		pctx:      pctx,
		evaluator: o.evaluator,
		logger:    o.logger,
		model:     reflect.TypeOf((*T)(nil)).Elem().Name(),
	}
}

func (r *baseRepositoryImpl[T, PT]) Context() *persistence.Context { return r.pctx }

func (r *baseRepositoryImpl[T, PT]) NewSelect() *bun.SelectQuery { return r.pctx.NewSelect() }

func (r *baseRepositoryImpl[T, PT]) ApplySpecification(q *bun.SelectQuery, spec evaluator.Spec, criteriaOnly bool) *bun.SelectQuery {
	return r.evaluator.GetQuery(q, spec, criteriaOnly)
}

func (r *baseRepositoryImpl[T, PT]) GetByID(ctx context.Context, id int64) (*T, error) {
	return persistence.Find[T, PT](ctx, r.pctx, id)
}

func (r *baseRepositoryImpl[T, PT]) ListAll(ctx context.Context) ([]*T, error) {
	var entities []*T
	if err := r.NewSelect().Model(&entities).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T, PT]) List(ctx context.Context, spec *specification.Specification[T]) ([]*T, error) {
	if spec == nil {
		return nil, ErrNilSpecification
	}
	var entities []*T
	q := r.ApplySpecification(r.NewSelect().Model(&entities), spec, false)
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	if spec.Tracking() {
		for i, e := range entities {
			entities[i] = (*T)(r.pctx.Resolve(PT(e)).(PT))
		}
	}
	r.logger.Debug("Specification listed", "entity", r.model, "rows", len(entities))
	return spec.Apply(entities), nil
}

// ListSelect lists the entities matching spec and projects each one through
// its selector, preserving query order. The base post-processing step runs on
// the entities before projection. A nil spec yields ErrNilSpecification
// and a missing selector ErrInvalidSpecification, both before the store is
// touched.
func ListSelect[T any, R any](ctx context.Context, repo Repository[T], spec *specification.SelectSpecification[T, R]) ([]R, error) {
	if spec == nil {
		return nil, ErrNilSpecification
	}
	if spec.Selector() == nil {
		return nil, ErrInvalidSpecification
	}
	var entities []*T
	q := repo.ApplySpecification(repo.NewSelect().Model(&entities), spec, false)
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return spec.Project(spec.Base().Apply(entities)), nil
}

func (r *baseRepositoryImpl[T, PT]) Count(ctx context.Context, spec *specification.Specification[T]) (int, error) {
	if spec == nil {
		return 0, ErrNilSpecification
	}
	return r.ApplySpecification(r.NewSelect().Model((*T)(nil)), spec, true).Count(ctx)
}

// Page counts the rows matching spec and lists the requested page of them.
// Paging set on spec itself is replaced by the page request.
func (r *baseRepositoryImpl[T, PT]) Page(ctx context.Context, spec *specification.Specification[T], page *types.PageRequest) (*types.Pagination[T], error) {
	if spec == nil {
		return nil, ErrNilSpecification
	}
	pagination := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())
	total, err := r.Count(ctx, spec)
	if err != nil || total == 0 {
		return pagination, err
	}
	items, err := r.List(ctx, spec.Skip(page.GetOffset()).Take(page.GetPageSize()))
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = items
	return pagination, nil
}

func (r *baseRepositoryImpl[T, PT]) Add(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	if err := r.commit(ctx, PT(entity), persistence.Added); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T, PT]) Update(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	return r.commit(ctx, PT(entity), persistence.Modified)
}

func (r *baseRepositoryImpl[T, PT]) Delete(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	return r.commit(ctx, PT(entity), persistence.Deleted)
}

// commit stages one change and saves it. When the save fails the entity is
// put back into its previous state so later calls do not resend it.
func (r *baseRepositoryImpl[T, PT]) commit(ctx context.Context, entity PT, state persistence.EntityState) error {
	entry := r.pctx.Entry(entity)
	prior := entry.State()
	if err := entry.SetState(state); err != nil {
		return err
	}
	if _, err := r.pctx.SaveChanges(ctx); err != nil {
		entry.Revert(prior)
		r.logger.Debug("Change reverted after failed save", "entity", r.model, "id", entity.GetID(), "state", state)
		return err
	}
	return nil
}
