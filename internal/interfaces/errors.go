package interfaces

import "errors"

// Sentinel errors shared by every storage backend. Check with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateFile = errors.New("file already imported")
)
