// Package evaluator applies specifications to bun select queries through a
// chain of small, replaceable criterion evaluators.
package evaluator
