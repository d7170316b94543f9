package store

import "errors"

// ErrUnsupportedDatabaseURL is returned by Open when the URL does not point to a SQLite file.
var ErrUnsupportedDatabaseURL = errors.New("unsupported or unrecognized database URL")
