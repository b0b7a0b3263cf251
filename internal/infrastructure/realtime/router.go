package realtime

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// Router tracks websocket sessions and the private channels they subscribed
// to. A user may hold several sessions at once (one per open tab); every one
// of them receives the events published on the user's channel.
type Router struct {
	mu              sync.RWMutex
	sessions        map[string]*Connection            // socketID -> connection
	channels        map[string]map[string]*Connection // channel -> socketID -> connection
	sessionChannels map[string]map[string]struct{}    // socketID -> set of channels
}

// NewRouter constructs an initialized Router.
func NewRouter() *Router {
	return &Router{
		sessions:        make(map[string]*Connection),
		channels:        make(map[string]map[string]*Connection),
		sessionChannels: make(map[string]map[string]struct{}),
	}
}

// Attach registers conn and starts its write loop.
func (r *Router) Attach(conn *Connection) {
	r.mu.Lock()
	r.sessions[conn.SocketID] = conn
	r.sessionChannels[conn.SocketID] = make(map[string]struct{})
	r.mu.Unlock()

	conn.Start()
}

// Detach removes conn and all its subscriptions if it is still tracked.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.SocketID)
	r.mu.Unlock()
}

// Subscribe adds conn to channel. It reports false when conn is not attached.
func (r *Router) Subscribe(channel string, conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn.SocketID]; !ok {
		return false
	}

	members := r.channels[channel]
	if members == nil {
		members = make(map[string]*Connection)
		r.channels[channel] = members
	}
	members[conn.SocketID] = conn
	r.sessionChannels[conn.SocketID][channel] = struct{}{}
	return true
}

// Unsubscribe removes conn from channel.
func (r *Router) Unsubscribe(channel string, conn *Connection) {
	r.mu.Lock()
	r.unsubscribeLocked(channel, conn.SocketID)
	r.mu.Unlock()
}

// Broadcast writes payload to every session subscribed to channel and returns
// how many accepted it.
func (r *Router) Broadcast(channel string, payload []byte) int {
	r.mu.RLock()
	members := make([]*Connection, 0, len(r.channels[channel]))
	for _, conn := range r.channels[channel] {
		members = append(members, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Publish frames event with data and broadcasts it on channel. It satisfies
// the broadcast publisher port for single-node deployments.
func (r *Router) Publish(_ context.Context, channel, event string, data []byte) error {
	payload, err := Encode(event, channel, data)
	if err != nil {
		return err
	}
	r.Broadcast(channel, payload)
	return nil
}

// Sessions returns the number of attached connections.
func (r *Router) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Subscribers returns the number of sessions subscribed to channel.
func (r *Router) Subscribers(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.channels = make(map[string]map[string]*Connection)
	r.sessionChannels = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(websocket.CloseGoingAway, "router shutdown")
	}
}

func (r *Router) detachLocked(socketID string) {
	if _, ok := r.sessions[socketID]; !ok {
		return
	}
	delete(r.sessions, socketID)
	for channel := range r.sessionChannels[socketID] {
		r.unsubscribeLocked(channel, socketID)
	}
	delete(r.sessionChannels, socketID)
}

func (r *Router) unsubscribeLocked(channel, socketID string) {
	members := r.channels[channel]
	if members == nil {
		return
	}
	delete(members, socketID)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
	if subs, ok := r.sessionChannels[socketID]; ok {
		delete(subs, channel)
	}
}
