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

package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/specrepo/database"
	"github.com/tomoncle/specrepo/internal/testdb"
	"github.com/tomoncle/specrepo/persistence"
)

func newContext(t *testing.T) *persistence.Context {
	return persistence.NewContext(testdb.Open(t), persistence.WithLogger(database.NopLogger{}))
}

func TestSaveChangesInsertsAndAssignsIDs(t *testing.T) {
	ctx := context.Background()
	pctx := newContext(t)

	a, b := testdb.FakeCustomer(), testdb.FakeCustomer()
	require.NoError(t, pctx.Add(a))
	require.NoError(t, pctx.Add(b))
	assert.Equal(t, 2, pctx.ChangeCount())
	assert.Equal(t, persistence.Added, pctx.Entry(a).State())

	n, err := pctx.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotZero(t, a.ID)
	assert.NotZero(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, persistence.Unchanged, pctx.Entry(a).State())
	assert.Zero(t, pctx.ChangeCount())

	found, err := persistence.Find[testdb.Customer](ctx, pctx, a.ID)
	require.NoError(t, err)
	assert.Same(t, a, found)
}

func TestFindLoadsAndTracks(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	writer := persistence.NewContext(db)
	c := testdb.FakeCustomer()
	require.NoError(t, writer.Add(c))
	_, err := writer.SaveChanges(ctx)
	require.NoError(t, err)

	reader := persistence.NewContext(db)
	first, err := persistence.Find[testdb.Customer](ctx, reader, c.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.NotSame(t, c, first)
	assert.Equal(t, c.Name, first.Name)
	assert.Equal(t, c.Tags, first.Tags)
	assert.Equal(t, persistence.Unchanged, reader.Entry(first).State())

	second, err := persistence.Find[testdb.Customer](ctx, reader, c.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)

	missing, err := persistence.Find[testdb.Customer](ctx, reader, c.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateWritesAllColumns(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	pctx := persistence.NewContext(db)
	c := testdb.FakeCustomer()
	require.NoError(t, pctx.Add(c))
	_, err := pctx.SaveChanges(ctx)
	require.NoError(t, err)

	c.Name = "renamed"
	c.Email = ""
	require.NoError(t, pctx.Update(c))
	assert.Equal(t, persistence.Modified, pctx.Entry(c).State())
	_, err = pctx.SaveChanges(ctx)
	require.NoError(t, err)

	got, err := persistence.Find[testdb.Customer](ctx, persistence.NewContext(db), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Empty(t, got.Email)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	pctx := persistence.NewContext(db)
	c := testdb.FakeCustomer()
	require.NoError(t, pctx.Add(c))
	_, err := pctx.SaveChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, pctx.Remove(c))
	assert.Equal(t, persistence.Deleted, pctx.Entry(c).State())

	hidden, err := persistence.Find[testdb.Customer](ctx, pctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, hidden)

	_, err = pctx.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.Detached, pctx.Entry(c).State())

	got, err := persistence.Find[testdb.Customer](ctx, persistence.NewContext(db), c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoveAddedEntityDetaches(t *testing.T) {
	pctx := newContext(t)
	c := testdb.FakeCustomer()
	require.NoError(t, pctx.Add(c))
	require.NoError(t, pctx.Remove(c))
	assert.Equal(t, persistence.Detached, pctx.Entry(c).State())

	n, err := pctx.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, c.ID)
}

func TestAddDeletedEntityRevivesAsModified(t *testing.T) {
	pctx := newContext(t)
	c := &testdb.Customer{ID: 7, Name: "x"}
	require.NoError(t, pctx.Remove(c))
	require.NoError(t, pctx.Add(c))
	assert.Equal(t, persistence.Modified, pctx.Entry(c).State())
}

func TestIdentityConflict(t *testing.T) {
	pctx := newContext(t)
	require.NoError(t, pctx.Attach(&testdb.Customer{ID: 1, Name: "a"}))

	err := pctx.Update(&testdb.Customer{ID: 1, Name: "b"})
	assert.ErrorIs(t, err, persistence.ErrIdentityConflict)

	// same id, different type
	assert.NoError(t, pctx.Attach(&testdb.Order{ID: 1}))
}

func TestResolveReturnsTrackedInstance(t *testing.T) {
	pctx := newContext(t)
	tracked := &testdb.Customer{ID: 3, Name: "tracked"}
	require.NoError(t, pctx.Attach(tracked))

	got := pctx.Resolve(&testdb.Customer{ID: 3, Name: "copy"})
	assert.Same(t, tracked, got)

	fresh := &testdb.Customer{ID: 4}
	assert.Same(t, fresh, pctx.Resolve(fresh))
	assert.Equal(t, persistence.Unchanged, pctx.Entry(fresh).State())
}

func TestInvalidEntity(t *testing.T) {
	pctx := newContext(t)
	var nilCustomer *testdb.Customer
	assert.ErrorIs(t, pctx.Add(nilCustomer), persistence.ErrInvalidEntity)
	assert.ErrorIs(t, pctx.Add(nil), persistence.ErrInvalidEntity)
	assert.Equal(t, persistence.Detached, pctx.Entry(nilCustomer).State())
}

func TestConcurrencyConflictKeepsChanges(t *testing.T) {
	ctx := context.Background()
	pctx := newContext(t)
	ghost := &testdb.Customer{ID: 42, Name: "ghost"}
	require.NoError(t, pctx.Update(ghost))

	_, err := pctx.SaveChanges(ctx)
	assert.ErrorIs(t, err, persistence.ErrConcurrencyConflict)
	assert.Equal(t, persistence.Modified, pctx.Entry(ghost).State())
	assert.Equal(t, 1, pctx.ChangeCount())

	pctx.Clear()
	assert.Zero(t, pctx.ChangeCount())
	assert.Equal(t, persistence.Detached, pctx.Entry(ghost).State())
}

func TestSaveChangesIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := testdb.Open(t)
	pctx := persistence.NewContext(db)

	require.NoError(t, pctx.Add(testdb.FakeCustomer()))
	require.NoError(t, pctx.Update(&testdb.Customer{ID: 999, Name: "missing"}))
	_, err := pctx.SaveChanges(ctx)
	require.ErrorIs(t, err, persistence.ErrConcurrencyConflict)

	count, err := db.NewSelect().Model((*testdb.Customer)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEntityStateString(t *testing.T) {
	assert.Equal(t, "Added", persistence.Added.String())
	assert.Equal(t, "Detached", persistence.EntityState(99).String())
}

func TestUpdateAddedEntityStaysAdded(t *testing.T) {
	pctx := newContext(t)
	c := testdb.FakeCustomer()
	require.NoError(t, pctx.Add(c))
	require.NoError(t, pctx.Update(c))
	assert.Equal(t, persistence.Added, pctx.Entry(c).State())

	_, err := pctx.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
}

func TestAddUnchangedEntityStagesInsert(t *testing.T) {
	pctx := newContext(t)
	tracked := &testdb.Customer{ID: 5, Name: "tracked"}
	require.NoError(t, pctx.Attach(tracked))

	require.NoError(t, pctx.Add(tracked))
	assert.Equal(t, persistence.Added, pctx.Entry(tracked).State())
	assert.Equal(t, 1, pctx.ChangeCount())

	// re-keying onto an id held by another tracked instance is rejected
	other := &testdb.Customer{ID: 6}
	require.NoError(t, pctx.Attach(other))
	require.NoError(t, pctx.Attach(&testdb.Customer{ID: 7}))
	other.ID = 7
	assert.ErrorIs(t, pctx.Add(other), persistence.ErrIdentityConflict)
	assert.Equal(t, persistence.Unchanged, pctx.Entry(other).State())
}

func TestRevert(t *testing.T) {
	pctx := newContext(t)
	c := &testdb.Customer{ID: 8}
	require.NoError(t, pctx.Remove(c))

	pctx.Entry(c).Revert(persistence.Unchanged)
	assert.Equal(t, persistence.Unchanged, pctx.Entry(c).State())
	assert.Zero(t, pctx.ChangeCount())

	pctx.Entry(c).Revert(persistence.Detached)
	assert.Equal(t, persistence.Detached, pctx.Entry(c).State())

	added := testdb.FakeCustomer()
	require.NoError(t, pctx.Add(added))
	require.NoError(t, pctx.Remove(added))
	pctx.Entry(added).Revert(persistence.Added)
	assert.Equal(t, persistence.Added, pctx.Entry(added).State())
}
