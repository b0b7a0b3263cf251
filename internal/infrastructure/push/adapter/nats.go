package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"relove-chat/internal/infrastructure/push/port"
	"relove-chat/internal/infrastructure/realtime"
)

// NatsSource reads private channel events straight off the NATS bus the
// backend publishes to.
type NatsSource struct {
	url string
	log *zap.Logger
}

func NewNatsSource(url string, log *zap.Logger) *NatsSource {
	return &NatsSource{url: url, log: log}
}

var _ port.Source = (*NatsSource)(nil)

type natsSubscription struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	closed *atomic.Bool
	once   sync.Once
}

func (s *natsSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		if s.sub != nil {
			_ = s.sub.Unsubscribe()
		}
		s.nc.Close()
	})
}

// Subscribe connects and subscribes to the channel subject. Connection
// handlers are translated into listener states; nats.go owns reconnection.
func (s *NatsSource) Subscribe(ctx context.Context, channel string, l port.Listener) (port.Subscription, error) {
	closed := &atomic.Bool{}
	var mu sync.Mutex
	report := func(state port.State, err error) {
		if closed.Load() {
			return
		}
		mu.Lock()
		l.HandleState(state, err)
		mu.Unlock()
	}

	report(port.StateConnecting, nil)
	nc, err := nats.Connect(s.url,
		nats.Name("relove-chatsync"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			report(port.StateDisconnected, err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			report(port.StateConnected, nil)
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			report(port.StateFailed, c.LastError())
		}),
	)
	if err != nil {
		report(port.StateFailed, err)
		return nil, fmt.Errorf("push: failed to connect to NATS: %w", err)
	}

	subject := realtime.Subject(channel)
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var f realtime.Frame
		if err := json.Unmarshal(msg.Data, &f); err != nil {
			s.log.Warn("dropping malformed push frame", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		if closed.Load() {
			return
		}
		mu.Lock()
		l.HandleEvent(port.Event{Name: f.Event, Channel: channel, Data: f.Data})
		mu.Unlock()
	})
	if err != nil {
		closed.Store(true)
		nc.Close()
		return nil, fmt.Errorf("push: failed to subscribe to subject '%s': %w", subject, err)
	}
	report(port.StateConnected, nil)

	handle := &natsSubscription{nc: nc, sub: sub, closed: closed}
	context.AfterFunc(ctx, handle.Unsubscribe)
	return handle, nil
}
