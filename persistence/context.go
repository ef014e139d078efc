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

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/tomoncle/specrepo/database"
	"github.com/uptrace/bun"
)

var (
	// ErrConcurrencyConflict is returned by SaveChanges when an update or delete
	// matched no row, i.e. the row was changed or removed by someone else.
	ErrConcurrencyConflict = errors.New("persistence: entity was modified or deleted concurrently")

	// ErrIdentityConflict is returned when a second instance is attached under a
	// key that is already tracked by the context.
	ErrIdentityConflict = errors.New("persistence: another instance with the same key is already tracked")

	// ErrInvalidEntity is returned for nil entities and values that are not struct pointers.
	ErrInvalidEntity = errors.New("persistence: entity must be a non-nil struct pointer")
)

// Identifiable is implemented by entity pointers handled by a Context.
type Identifiable interface {
	GetID() int64
}

type identityKey struct {
	typ reflect.Type
	id  int64
}

type entry struct {
	entity Identifiable
	state  EntityState
	key    identityKey
	seq    uint64
}

func (e *entry) keyed() bool { return e.key.id != 0 }

// Context is a unit of work over a bun database or transaction. It keeps an
// identity map of the entities it tracks and stages inserts, full-row updates
// and deletes until SaveChanges commits them in one transaction.
//
// A Context serves one logical flow at a time; callers must not share it
// between concurrent units of work.
type Context struct {
	db     bun.IDB
	logger database.Logger

	mu       sync.Mutex
	entries  map[Identifiable]*entry
	identity map[identityKey]*entry
	seq      uint64
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for change tracking diagnostics.
func WithLogger(logger database.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContext returns an empty unit of work over db.
func NewContext(db bun.IDB, opts ...Option) *Context {
	c := &Context{
		db:       db,
		logger:   database.GetLogger(),
		entries:  make(map[Identifiable]*entry),
		identity: make(map[identityKey]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DB returns the database the context reads from and writes to.
func (c *Context) DB() bun.IDB { return c.db }

// NewSelect returns a select builder bound to the context's database.
func (c *Context) NewSelect() *bun.SelectQuery { return c.db.NewSelect() }

func keyOf(entity Identifiable) identityKey {
	return identityKey{typ: reflect.TypeOf(entity), id: entity.GetID()}
}

func checkEntity(entity Identifiable) error {
	if entity == nil {
		return ErrInvalidEntity
	}
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrInvalidEntity, entity)
	}
	return nil
}

// track registers entity under state. Callers hold c.mu.
func (c *Context) track(entity Identifiable, state EntityState) (*entry, error) {
	key := keyOf(entity)
	if key.id != 0 {
		if other, ok := c.identity[key]; ok && other.entity != entity {
			return nil, fmt.Errorf("%w: %s id=%d", ErrIdentityConflict, key.typ, key.id)
		}
	}
	c.seq++
	e := &entry{entity: entity, state: state, key: key, seq: c.seq}
	c.entries[entity] = e
	if e.keyed() {
		c.identity[key] = e
	}
	return e, nil
}

func (c *Context) untrack(e *entry) {
	delete(c.entries, e.entity)
	if e.keyed() && c.identity[e.key] == e {
		delete(c.identity, e.key)
	}
}

// setState moves a tracked entry to state, keeping staging order in sync. Callers hold c.mu.
func (c *Context) setState(e *entry, state EntityState) {
	if state == Detached {
		c.untrack(e)
		return
	}
	if e.state != state && state != Unchanged {
		c.seq++
		e.seq = c.seq
	}
	e.state = state
}

// Add stages entity for insertion.
func (c *Context) Add(entity Identifiable) error {
	return c.Entry(entity).SetState(Added)
}

// Remove stages entity for deletion. Entities that were only added are simply
// forgotten since they never reached the store.
func (c *Context) Remove(entity Identifiable) error {
	return c.Entry(entity).SetState(Deleted)
}

// Update stages entity as fully modified: every column is written on save.
func (c *Context) Update(entity Identifiable) error {
	return c.Entry(entity).SetState(Modified)
}

// Attach starts tracking entity as unchanged.
func (c *Context) Attach(entity Identifiable) error {
	return c.Entry(entity).SetState(Unchanged)
}

// Resolve returns the tracked instance sharing entity's key, or starts
// tracking entity as unchanged when none is tracked yet. Tracking queries use
// it so that one key maps to one instance.
func (c *Context) Resolve(entity Identifiable) Identifiable {
	if checkEntity(entity) != nil || entity.GetID() == 0 {
		return entity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.identity[keyOf(entity)]; ok {
		return e.entity
	}
	if e, ok := c.entries[entity]; ok {
		return e.entity
	}
	_, _ = c.track(entity, Unchanged)
	return entity
}

// Entry gives access to the tracking state of entity.
func (c *Context) Entry(entity Identifiable) *Entry {
	return &Entry{ctx: c, entity: entity}
}

// ChangeCount returns the number of staged, uncommitted changes.
func (c *Context) ChangeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending())
}

// Clear stops tracking every entity and drops staged changes.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Identifiable]*entry)
	c.identity = make(map[identityKey]*entry)
}

func (c *Context) pending() []*entry {
	var changes []*entry
	for _, e := range c.entries {
		switch e.state {
		case Added, Modified, Deleted:
			changes = append(changes, e)
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].seq < changes[j].seq })
	return changes
}

// SaveChanges writes every staged change in staging order inside a single
// transaction and returns the number of entities written. Inserted entities
// carry their store-assigned id afterwards. On error the transaction is rolled
// back, the error is returned as is and the staged changes are kept.
func (c *Context) SaveChanges(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changes := c.pending()
	if len(changes) == 0 {
		return 0, nil
	}

	err := c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, e := range changes {
			if err := c.write(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("SaveChanges rolled back", "changes", len(changes), "error", err)
		return 0, err
	}

	for _, e := range changes {
		switch e.state {
		case Added, Modified:
			c.rekey(e)
			e.state = Unchanged
		case Deleted:
			c.untrack(e)
		}
	}
	c.logger.Debug("SaveChanges committed", "changes", len(changes))
	return len(changes), nil
}

func (c *Context) write(ctx context.Context, tx bun.Tx, e *entry) error {
	switch e.state {
	case Added:
		_, err := tx.NewInsert().Model(e.entity).Exec(ctx)
		return err
	case Modified:
		res, err := tx.NewUpdate().Model(e.entity).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return expectAffected(res, "update", e.entity)
	case Deleted:
		res, err := tx.NewDelete().Model(e.entity).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		return expectAffected(res, "delete", e.entity)
	}
	return nil
}

func expectAffected(res sql.Result, op string, entity Identifiable) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %T id=%d affected no rows", ErrConcurrencyConflict, op, entity, entity.GetID())
	}
	return nil
}

// rekey refreshes the identity map entry of e after its id may have changed. Callers hold c.mu.
func (c *Context) rekey(e *entry) {
	key := keyOf(e.entity)
	if key == e.key {
		return
	}
	if e.keyed() && c.identity[e.key] == e {
		delete(c.identity, e.key)
	}
	e.key = key
	if e.keyed() {
		c.identity[key] = e
	}
}

// Find returns the entity of type T with the given id: the tracked instance
// when there is one, otherwise a primary-key lookup whose result is tracked as
// unchanged. It returns nil, nil when no such entity exists.
func Find[T any, PT interface {
	*T
	Identifiable
}](ctx context.Context, c *Context, id int64) (*T, error) {
	key := identityKey{typ: reflect.TypeOf((*T)(nil)), id: id}

	c.mu.Lock()
	if e, ok := c.identity[key]; ok {
		state, entity := e.state, e.entity
		c.mu.Unlock()
		if state == Deleted {
			return nil, nil
		}
		return (*T)(entity.(PT)), nil
	}
	c.mu.Unlock()

	dest := PT(new(T))
	err := c.db.NewSelect().Model(dest).Where("?TablePKs = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return (*T)(c.Resolve(dest).(PT)), nil
}
