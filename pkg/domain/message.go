package domain

import "fmt"

// MessageType identifies a cross-frame protocol message.
type MessageType string

const (
	// MessageNavigate is sent host→guest when the hash changes.
	MessageNavigate MessageType = "navigate"
	// MessageRouteChanged is sent guest→host after in-app navigation.
	MessageRouteChanged MessageType = "routeChanged"
	// MessageReady is sent guest→host once the guest can accept routes.
	MessageReady MessageType = "ready"
)

// Message is the wire contract shared by both frames.
type Message struct {
	Type  MessageType `json:"type"`
	Route Route       `json:"route,omitempty"`
}

// Direction tells which way a message travelled.
type Direction string

const (
	HostToGuest Direction = "host_to_guest"
	GuestToHost Direction = "guest_to_host"
)

// NavigateMessage builds a host→guest route push.
func NavigateMessage(r Route) Message {
	return Message{Type: MessageNavigate, Route: ParseRoute(string(r))}
}

// RouteChangedMessage builds a guest→host notification.
func RouteChangedMessage(r Route) Message {
	return Message{Type: MessageRouteChanged, Route: ParseRoute(string(r))}
}

// ReadyMessage builds the guest readiness signal.
func ReadyMessage() Message {
	return Message{Type: MessageReady}
}

// Validate checks the message against the contract.
func (m Message) Validate() error {
	switch m.Type {
	case MessageNavigate, MessageRouteChanged:
		if m.Route == "" {
			return fmt.Errorf("%w: %s without route", ErrInvalidMessage, m.Type)
		}
		return nil
	case MessageReady:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}
