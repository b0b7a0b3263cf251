package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"relove-chat/internal/infrastructure/realtime"
)

// NatsPublisher publishes framed events on NATS so every API node (and NATS
// push clients) receive them.
type NatsPublisher struct {
	nc *nats.Conn
}

// ConnectNats dials url with reconnects enabled and logs connection changes.
func ConnectNats(url string, log *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("relove-chat-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) Publish(_ context.Context, channel, event string, data []byte) error {
	payload, err := realtime.Encode(event, channel, data)
	if err != nil {
		return err
	}
	subject := realtime.Subject(channel)
	if err := p.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject '%s': %w", subject, err)
	}
	return nil
}

// Relay forwards every framed event seen on the bus into the local router.
// It runs until ctx is done.
func Relay(ctx context.Context, nc *nats.Conn, router *realtime.Router, log *zap.Logger) error {
	sub, err := nc.Subscribe(realtime.SubjectPrefix+".>", func(msg *nats.Msg) {
		var frame realtime.Frame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			log.Warn("dropping malformed relay frame", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		channel := frame.Channel
		if channel == "" {
			channel = strings.TrimPrefix(msg.Subject, realtime.SubjectPrefix+".")
		}
		router.Broadcast(channel, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe relay: %w", err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}
