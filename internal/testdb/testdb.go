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

// Package testdb opens isolated in-memory sqlite databases for tests and
// provides sample models with a has-many relation.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/specrepo/database"
	"github.com/tomoncle/specrepo/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID     int64         `bun:"id,pk,autoincrement" json:"id"`
	Name   string        `bun:"name,notnull" json:"name"`
	Email  string        `bun:"email" json:"email"`
	City   string        `bun:"city" json:"city"`
	Age    int           `bun:"age" json:"age"`
	Tags   types.JSONMap `bun:"tags,type:text" json:"tags"`
	Orders []*Order      `bun:"rel:has-many,join:id=customer_id" json:"orders,omitempty"`
}

func (c *Customer) GetID() int64 { return c.ID }

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	CustomerID int64  `bun:"customer_id,notnull" json:"customer_id"`
	Product    string `bun:"product" json:"product"`
	Amount     int64  `bun:"amount" json:"amount"`
}

func (o *Order) GetID() int64 { return o.ID }

var seq atomic.Int64

// Open returns a fresh in-memory database holding the tables of models, or of
// Customer and Order when none are given. It is closed on test cleanup.
func Open(t testing.TB, models ...interface{}) *bun.DB {
	t.Helper()
	if len(models) == 0 {
		models = []interface{}{(*Customer)(nil), (*Order)(nil)}
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	// one connection keeps every query on the same in-memory database
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.CreateTables(context.Background(), db, models...))
	return db
}

// FakeCustomer returns an unsaved customer filled with random data.
func FakeCustomer() *Customer {
	return &Customer{
		Name:  gofakeit.Name(),
		Email: gofakeit.Email(),
		City:  gofakeit.City(),
		Age:   gofakeit.Number(18, 90),
		Tags:  types.JSONMap{"segment": gofakeit.RandomString([]string{"retail", "wholesale"})},
	}
}

// FakeOrder returns an unsaved order for customerID.
func FakeOrder(customerID int64) *Order {
	return &Order{
		CustomerID: customerID,
		Product:    gofakeit.ProductName(),
		Amount:     int64(gofakeit.Number(1, 1000)),
	}
}
