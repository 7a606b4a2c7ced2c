package rooms

import "errors"

var (
	// ErrInvalidRef is returned for references that do not decompose
	// into a known form.
	ErrInvalidRef = errors.New("invalid room reference")
	ErrRoomNotFound = errors.New("room not found")
	// ErrUnauthorized is returned when an authenticated requester may
	// not access a room. It deliberately carries no detail about
	// whether the room exists.
	ErrUnauthorized = errors.New("unauthorized room access")
)
