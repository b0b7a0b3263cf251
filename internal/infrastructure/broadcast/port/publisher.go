package port

import "context"

// Publisher delivers an application event to every subscriber of a private
// push channel, wherever the subscriber is connected.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data []byte) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, channel, event string, data []byte) error

func (f PublisherFunc) Publish(ctx context.Context, channel, event string, data []byte) error {
	return f(ctx, channel, event, data)
}
