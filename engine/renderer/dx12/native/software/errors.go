package software

import "github.com/cockroachdb/errors"

var (
	ErrInvalidArgument       = errors.New("E_INVALIDARG")
	ErrRootSignatureTooLarge = errors.New("root signature exceeds 64 DWORDs")
	ErrOutOfMemory           = errors.New("E_OUTOFMEMORY")
	ErrForeignObject         = errors.New("object was not created by the software device")
	ErrEventClosed           = errors.New("event handle is closed")
)
