package app

import "errors"

// ErrNotFound reports a missing entity, membership, or timer row.
var ErrNotFound = errors.New("not found")
