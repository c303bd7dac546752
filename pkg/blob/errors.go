package blob

import "errors"

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("blob: object not found")
