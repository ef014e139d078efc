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
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes QueryHook and SlowQueryHook, e.g. while bootstrapping tables.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

var operationBackgrounds = map[string]*color.Color{
	"SELECT": color.New(color.BgGreen, color.FgHiWhite),
	"INSERT": color.New(color.BgBlue, color.FgHiWhite),
	"UPDATE": color.New(color.BgYellow, color.FgHiWhite),
	"DELETE": color.New(color.BgMagenta, color.FgHiWhite),
}

func colorizeQuery(event *bun.QueryEvent, palette map[string]*color.Color, fallback *color.Color) string {
	c, ok := palette[event.Operation()]
	if !ok {
		c = fallback
	}
	return c.Sprint(event.Query)
}

// QueryHook prints every executed query. The environment variable named by
// EnvName overrides Enabled: "0" or empty disables, "2" also prints successful queries
// when Verbose is false.
type QueryHook struct {
	EnvName string
	Enabled bool
	Verbose bool
	Writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a QueryHook writing to stdout, controlled by SPECREPO_SQL_LOG.
func NewQueryHook(verbose bool) *QueryHook {
	return &QueryHook{EnvName: "SPECREPO_SQL_LOG", Enabled: true, Verbose: verbose, Writer: os.Stdout}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() {
		return
	}
	enabled, verbose := h.Enabled, h.Verbose
	if h.EnvName != "" {
		if env, ok := os.LookupEnv(h.EnvName); ok {
			enabled = env != "" && env != "0"
			verbose = env == "2"
		}
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		color.CyanString("%10s", "[BUN]"),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		" ", colorizeQuery(event, operationColors, color.New(color.FgRed)),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", color.New(color.BgRed).Sprintf(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.Writer, args...)
}

// SlowQueryHook reports successful queries slower than SlowTime, either to the
// logger or, when no logger is set, to Writer.
type SlowQueryHook struct {
	EnvName  string
	SlowTime time.Duration
	Logger   Logger
	Writer   io.Writer
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || event.Err != nil {
		return
	}
	if h.EnvName != "" {
		if env, ok := os.LookupEnv(h.EnvName); ok && strings.TrimSpace(env) == "0" {
			return
		}
	}

	duration := time.Since(event.StartTime)
	if duration <= h.SlowTime {
		return
	}
	if h.Logger != nil {
		h.Logger.Warn("Database slow query detected",
			"duration", duration,
			"slow_threshold", h.SlowTime,
			"query", event.Query,
		)
		return
	}
	if h.Writer != nil {
		_, _ = fmt.Fprintln(h.Writer,
			time.Now().Format("2006-01-02 15:04:05.000"),
			color.YellowString("%10s", "[BUN_SLOW]"),
			fmt.Sprintf("%12s", duration.Round(time.Microsecond)),
			" ", colorizeQuery(event, operationBackgrounds, color.New(color.BgRed, color.FgHiWhite)),
		)
	}
}
