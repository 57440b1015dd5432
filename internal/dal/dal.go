// Package dal is the data access layer. It contains functions that perform
// SQL queries and logic that cannot be decoupled from the queries. Files
// correspond to SQL tables.
package dal

import "errors"

// Sentinel errors mapped to wire failure codes by the services above.
var (
	ErrNotFound        = errors.New("not found")
	ErrHandleTaken     = errors.New("handle already taken")
	ErrInviteExhausted = errors.New("invite exhausted or expired")
)
