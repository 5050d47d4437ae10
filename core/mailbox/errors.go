package mailbox

import (
	"errors"
	"fmt"
)

var (
	// Codec errors
	ErrDecode        = errors.New("decode failed")
	ErrTrailingBytes = fmt.Errorf("%w: trailing bytes", ErrDecode)
	ErrEncode        = errors.New("encode failed")

	// Wire errors
	ErrMalformedFrame = errors.New("malformed frame")

	// Addressing errors
	ErrInvalidAddress = errors.New("invalid address")
	ErrRealmMismatch  = errors.New("address belongs to another realm")

	// Lifecycle errors
	ErrManagerClosed = errors.New("manager closed")
	ErrNoExecutor    = errors.New("no executor for scheduled mailbox")

	// Callback errors
	ErrCallbackPanicked = errors.New("mailbox callback panicked")
)
