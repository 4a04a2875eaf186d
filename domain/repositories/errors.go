package repositories

import "errors"

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")
