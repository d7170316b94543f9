package challenge

import "errors"

// ErrDisabled is returned by operations that are suspended while the challenge is disabled.
var ErrDisabled = errors.New("challenge is disabled")

// ErrInvalidTimeLimit is returned when a non-positive time limit is given.
var ErrInvalidTimeLimit = errors.New("time limit must be positive")

// ErrPersist wraps failures to write a compliance record.
var ErrPersist = errors.New("failed to persist challenge record")
