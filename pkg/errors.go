package shared

import "errors"

// ErrNotFound is wrapped by stores when a requested document does not exist.
var ErrNotFound = errors.New("not found")
