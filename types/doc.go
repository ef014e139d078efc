// Package types holds value types shared by the repository layer: page
// requests, paginated results and JSON column helpers.
package types
