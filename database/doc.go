// Package database provides connection management for MySQL, PostgreSQL and
// SQLite on top of Bun, YAML/env configuration, logging, query hooks
// (query log, slow query, Prometheus metrics), SQL error classification and
// table bootstrap for registered models.
package database
