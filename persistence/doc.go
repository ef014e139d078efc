// Package persistence implements a unit of work over bun: entities are
// tracked in an identity map with a state, and staged inserts, updates and
// deletes are committed together by SaveChanges.
package persistence
