// Package sentinel holds infrastructure facts that persisters return, optionally
// wrapped, for callers to translate into domain outcomes.
package sentinel

import "errors"

// ErrNotFound means no record exists for the key, including one that expired
// in the backing store.
var ErrNotFound = errors.New("not found")
