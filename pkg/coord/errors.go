package coord

import "errors"

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("coord: key not found")

// ErrLockNotHeld is returned from ProlongLock/ReleaseLock when the caller
// is not (or is no longer) the current lock owner.
var ErrLockNotHeld = errors.New("coord: lock not held by owner")
