package builder

import "wikisearch/internal/titleindex"

// ErrIncompleteIndex is returned when an index file exists but its build
// never finished. The file must be removed before building again.
var ErrIncompleteIndex = titleindex.ErrIncomplete
