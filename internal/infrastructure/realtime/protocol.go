package realtime

import (
	"encoding/json"
	"fmt"
)

// Frame is the envelope of every websocket message in both directions and of
// every event relayed over NATS.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Protocol events. Application events (EventMessageSent) are published on
// private channels; the rest are control frames.
const (
	EventConnectionEstablished = "connection_established"
	EventSubscribe             = "subscribe"
	EventSubscriptionSucceeded = "subscription_succeeded"
	EventUnsubscribe           = "unsubscribe"
	EventPing                  = "ping"
	EventPong                  = "pong"
	EventError                 = "error"

	EventMessageSent = "MessageSent"
)

// ConnectionData is sent by the server right after the upgrade.
type ConnectionData struct {
	SocketID string `json:"socket_id"`
}

// SubscribeData is sent by the client to join a private channel. Auth is the
// signature obtained from the backend's channel authorization endpoint.
type SubscribeData struct {
	Channel string `json:"channel"`
	Auth    string `json:"auth"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode builds a frame with data marshalled as JSON. Raw bytes are embedded
// as-is.
func Encode(event, channel string, data any) ([]byte, error) {
	f := Frame{Event: event, Channel: channel}
	switch v := data.(type) {
	case nil:
	case json.RawMessage:
		f.Data = v
	case []byte:
		f.Data = json.RawMessage(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("realtime: encode %s data: %w", event, err)
		}
		f.Data = b
	}
	return json.Marshal(f)
}

// SubjectPrefix namespaces push channels on the NATS bus.
const SubjectPrefix = "push"

// Subject maps a private channel to its NATS subject.
func Subject(channel string) string {
	return SubjectPrefix + "." + channel
}
