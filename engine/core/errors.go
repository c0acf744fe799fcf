package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrUnknown          = errors.New("unknown")
	ErrUnimplemented    = errors.New("unimplemented")
	ErrAlreadyDestroyed = errors.New("object already destroyed")
	ErrInvalidConfig    = errors.New("invalid configuration")
)
