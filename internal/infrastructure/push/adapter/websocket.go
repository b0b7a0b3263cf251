package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"relove-chat/internal/infrastructure/push/port"
	"relove-chat/internal/infrastructure/realtime"
)

const (
	defaultReconnectDelay = 2 * time.Second
	handshakeTimeout      = 10 * time.Second
)

// ChannelAuthorizer obtains the subscription signature for a socket.
type ChannelAuthorizer interface {
	AuthorizeChannel(ctx context.Context, socketID, channel string) (string, error)
}

// WebsocketSource connects to the backend /ws endpoint. Lost connections are
// retried forever after a fixed delay.
type WebsocketSource struct {
	url            string
	token          string
	authorizer     ChannelAuthorizer
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	log            *zap.Logger
}

func NewWebsocketSource(url, token string, authorizer ChannelAuthorizer, reconnectDelay time.Duration, log *zap.Logger) *WebsocketSource {
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	return &WebsocketSource{
		url:            url,
		token:          token,
		authorizer:     authorizer,
		reconnectDelay: reconnectDelay,
		dialer:         &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		log:            log,
	}
}

var _ port.Source = (*WebsocketSource)(nil)

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe starts the connection loop in the background and returns
// immediately; progress is reported through l.HandleState.
func (s *WebsocketSource) Subscribe(ctx context.Context, channel string, l port.Listener) (port.Subscription, error) {
	if channel == "" {
		return nil, errors.New("push: empty channel")
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		s.loop(ctx, channel, l)
	}()
	return sub, nil
}

func (s *WebsocketSource) loop(ctx context.Context, channel string, l port.Listener) {
	for {
		l.HandleState(port.StateConnecting, nil)
		established, err := s.session(ctx, channel, l)
		if ctx.Err() != nil {
			return
		}
		if established {
			l.HandleState(port.StateDisconnected, err)
		} else {
			l.HandleState(port.StateFailed, err)
		}
		s.log.Warn("push connection lost, retrying",
			zap.String("channel", channel),
			zap.Duration("delay", s.reconnectDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

// session runs one connection until it fails. established reports whether
// the channel subscription had been confirmed.
func (s *WebsocketSource) session(ctx context.Context, channel string, l port.Listener) (established bool, err error) {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}
	ws, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return false, fmt.Errorf("push: dial %s: %w", s.url, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer func() {
		stop()
		_ = ws.Close()
	}()

	var first realtime.Frame
	if err := ws.ReadJSON(&first); err != nil {
		return false, fmt.Errorf("push: read handshake: %w", err)
	}
	if first.Event != realtime.EventConnectionEstablished {
		return false, fmt.Errorf("push: unexpected handshake event %q", first.Event)
	}
	var conn realtime.ConnectionData
	if err := json.Unmarshal(first.Data, &conn); err != nil || conn.SocketID == "" {
		return false, errors.New("push: handshake without socket id")
	}

	sig, err := s.authorizer.AuthorizeChannel(ctx, conn.SocketID, channel)
	if err != nil {
		return false, fmt.Errorf("push: authorize %s: %w", channel, err)
	}
	subscribe, err := realtime.Encode(realtime.EventSubscribe, "", realtime.SubscribeData{Channel: channel, Auth: sig})
	if err != nil {
		return false, err
	}
	if err := ws.WriteMessage(websocket.TextMessage, subscribe); err != nil {
		return false, fmt.Errorf("push: subscribe: %w", err)
	}

	for {
		var f realtime.Frame
		if err := ws.ReadJSON(&f); err != nil {
			return established, fmt.Errorf("push: read: %w", err)
		}
		switch f.Event {
		case realtime.EventSubscriptionSucceeded:
			if !established && f.Channel == channel {
				established = true
				l.HandleState(port.StateConnected, nil)
			}
		case realtime.EventError:
			var e realtime.ErrorData
			_ = json.Unmarshal(f.Data, &e)
			return established, fmt.Errorf("push: server error %s: %s", e.Code, e.Message)
		case realtime.EventPing:
			pong, _ := realtime.Encode(realtime.EventPong, "", nil)
			if err := ws.WriteMessage(websocket.TextMessage, pong); err != nil {
				return established, fmt.Errorf("push: pong: %w", err)
			}
		case realtime.EventPong, realtime.EventConnectionEstablished:
		default:
			if f.Channel != channel {
				continue
			}
			l.HandleEvent(port.Event{Name: f.Event, Channel: f.Channel, Data: f.Data})
		}
	}
}
