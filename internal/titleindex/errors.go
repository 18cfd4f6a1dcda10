package titleindex

import "errors"

var (
	// ErrIncomplete is returned when opening an index whose build never
	// finished. Such a file must be removed and rebuilt.
	ErrIncomplete = errors.New("title index incomplete")

	// ErrNotFound is returned when opening a path with no index file.
	ErrNotFound = errors.New("title index not found")

	// ErrReadOnly is returned by write operations on a read-only index.
	ErrReadOnly = errors.New("title index opened read-only")
)
