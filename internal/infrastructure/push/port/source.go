package port

import (
	"context"
	"encoding/json"
)

// State is the connectivity of a push subscription.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateFailed       State = "failed"
)

// Event is one application event delivered on a private channel.
type Event struct {
	Name    string
	Channel string
	Data    json.RawMessage
}

// Listener receives events and connectivity changes. Calls for one
// subscription are made from a single goroutine.
type Listener interface {
	HandleEvent(Event)
	// HandleState reports a state change; err is the cause for
	// StateDisconnected and StateFailed and nil otherwise.
	HandleState(State, error)
}

// Subscription is an active channel subscription.
type Subscription interface {
	// Unsubscribe stops delivery and releases the connection. No listener
	// calls happen after it returns.
	Unsubscribe()
}

// Source subscribes to private push channels.
type Source interface {
	Subscribe(ctx context.Context, channel string, l Listener) (Subscription, error)
}
