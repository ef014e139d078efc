// Package repository provides a generic, specification-driven repository
// built on Bun: keyed lookups, specification queries and projections,
// counting, paging, and add/update/delete committed through a persistence
// context.
package repository
