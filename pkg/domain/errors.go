package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrLinkNotFound is returned when activating a link the current view does not have.
var ErrLinkNotFound = errors.New("link not found")

// ErrNotReady is returned when the guest has not rendered any view yet.
var ErrNotReady = errors.New("guest not ready")

// ErrClosed is returned when posting to or acting on a closed component.
var ErrClosed = errors.New("closed")

// ErrUnknownMessage is returned for message types outside the protocol.
var ErrUnknownMessage = errors.New("unknown message type")

// ErrInvalidMessage is returned for protocol messages missing required fields.
var ErrInvalidMessage = errors.New("invalid message")
