package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"relove-chat/internal/infrastructure/realtime"
)

// ChatSocketController handles the websocket endpoint for push events.
// Clients subscribe to their private channel with a signature from the
// channel authorization endpoint; events are then fanned out by the router.
type ChatSocketController struct {
	router *realtime.Router
	key    []byte
	log    *zap.Logger
}

func NewChatSocketController(router *realtime.Router, signingKey []byte, log *zap.Logger) *ChatSocketController {
	return &ChatSocketController{router: router, key: signingKey, log: log}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the bearer token, not the origin, authenticates the socket
		return true
	},
}

const (
	defaultReadTimeout = 60 * time.Second
	maxFrameSize       = 64 << 10
)

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			ctl.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		conn := realtime.NewConnection(identity, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()
		log := ctl.log.With(zap.String("socket_id", conn.SocketID), zap.Stringer("identity", identity))
		log.Debug("push session opened")

		ws.SetReadLimit(maxFrameSize)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.send(conn, realtime.EventConnectionEstablished, "", realtime.ConnectionData{SocketID: conn.SocketID})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					log.Debug("push session read ended", zap.Error(err))
				}
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

			var frame realtime.Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Event {
			case realtime.EventSubscribe:
				ctl.handleSubscribe(conn, frame, log)
			case realtime.EventUnsubscribe:
				ctl.handleUnsubscribe(conn, frame)
			case realtime.EventPing:
				ctl.send(conn, realtime.EventPong, "", nil)
			case realtime.EventPong:
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleSubscribe(conn *realtime.Connection, frame realtime.Frame, log *zap.Logger) {
	var sub realtime.SubscribeData
	if err := json.Unmarshal(frame.Data, &sub); err != nil || sub.Channel == "" {
		ctl.replyError(conn, "bad_request", "channel is required")
		return
	}
	if !realtime.VerifyChannel(ctl.key, conn.SocketID, sub.Channel, sub.Auth) {
		log.Warn("rejected channel subscription", zap.String("channel", sub.Channel))
		ctl.replyError(conn, "forbidden", "invalid channel signature")
		return
	}
	if !ctl.router.Subscribe(sub.Channel, conn) {
		return
	}
	ctl.send(conn, realtime.EventSubscriptionSucceeded, sub.Channel, nil)
}

func (ctl *ChatSocketController) handleUnsubscribe(conn *realtime.Connection, frame realtime.Frame) {
	var sub realtime.SubscribeData
	if err := json.Unmarshal(frame.Data, &sub); err != nil || sub.Channel == "" {
		ctl.replyError(conn, "bad_request", "channel is required")
		return
	}
	ctl.router.Unsubscribe(sub.Channel, conn)
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	ctl.send(conn, realtime.EventError, "", realtime.ErrorData{Code: code, Message: message})
}

func (ctl *ChatSocketController) send(conn *realtime.Connection, event, channel string, data any) {
	if payload, err := realtime.Encode(event, channel, data); err == nil {
		_ = conn.Send(payload)
	}
}
