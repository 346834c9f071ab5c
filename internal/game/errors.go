package game

import "errors"

var (
	// ErrInvalidInput marks a caller error: non-positive button count or a
	// button index outside the live round's range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRoundNotActive marks a click against no live round or a stale
	// round id hint.
	ErrRoundNotActive = errors.New("round not active")
)
