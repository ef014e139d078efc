// Package specification provides immutable query specifications: filters,
// LIKE search groups, ordering, relation includes, paging and projections,
// interpreted against bun queries by package evaluator.
package specification
