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

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,unique"`
}

func connectSQLite(t *testing.T, name string) AbstractDatabaseManager {
	t.Helper()
	manager := NewDatabaseManager(&ConnectionConfig{
		Type:         "sqlite",
		DBName:       name,
		DSN:          "file:" + name + "?mode=memory&cache=shared",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, manager.Connect(context.Background()))
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager
}

func TestMigrationsBootstrapRegisteredModels(t *testing.T) {
	ctx := context.Background()
	manager := connectSQLite(t, "migrations_bootstrap")

	registry := NewModelRegistry()
	registry.Register(NewModelAdapter((*widget)(nil), 1))
	mm := NewMigrationManager(manager.GetDB(), nil).WithRegistry(registry)

	require.NoError(t, mm.RunMigrations(ctx))
	// a second run finds the recorded version and does nothing
	require.NoError(t, mm.RunMigrations(ctx))

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)

	db := manager.GetDB()
	_, err = db.NewInsert().Model(&widget{Name: "gear"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&widget{Name: "gear"}).Exec(ctx)
	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, DuplicateKeyErr, kind)
}

func TestModelRegistryOrdersByPriority(t *testing.T) {
	registry := NewModelRegistry()
	registry.Register(NewModelAdapter("b", 2))
	registry.Register(NewModelAdapter("a", 1))
	registry.Register(NewModelAdapter("c", 2))
	assert.Equal(t, []interface{}{"a", "b", "c"}, registry.Instances())
}

func TestManagerHealthAndStats(t *testing.T) {
	ctx := context.Background()
	manager := connectSQLite(t, "manager_health")

	assert.NoError(t, manager.Ping(ctx))
	status := manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.NotNil(t, manager.GetStats())

	require.NoError(t, manager.Disconnect())
	assert.Error(t, manager.Ping(ctx))
	assert.False(t, manager.HealthCheck(ctx).Healthy)
	assert.Equal(t, &DBStats{}, manager.GetStats())
}

func TestUnsupportedDatabaseType(t *testing.T) {
	manager := NewDatabaseManager(&ConnectionConfig{Type: "oracle", DBName: "x"})
	assert.Error(t, manager.Connect(context.Background()))
}
