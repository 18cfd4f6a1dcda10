package resolver

import "errors"

// ErrNotLoaded is returned by Find when no index has been loaded. It marks a
// caller bug, not a bad query.
var ErrNotLoaded = errors.New("resolver: index not loaded, call Load before Find")
