package chatsync

import push "relove-chat/internal/infrastructure/push/port"

const (
	bannerConnectionFailed = "Connection failed. Reconnecting..."
	bannerConnectionLost   = "Connection lost. Reconnecting..."
)

var transitions = map[push.State][]push.State{
	push.StateConnecting:   {push.StateConnected, push.StateFailed},
	push.StateConnected:    {push.StateDisconnected},
	push.StateDisconnected: {push.StateConnected, push.StateConnecting, push.StateFailed},
	push.StateFailed:       {push.StateConnecting},
}

// statusMachine tracks the push connection. It starts in connecting; moves
// outside the transition table are ignored.
type statusMachine struct {
	state push.State
}

func newStatusMachine() statusMachine {
	return statusMachine{state: push.StateConnecting}
}

// transition moves to the given state and reports whether it did.
func (m *statusMachine) transition(to push.State) bool {
	for _, next := range transitions[m.state] {
		if next == to {
			m.state = to
			return true
		}
	}
	return false
}

func statusBanner(s push.State) string {
	switch s {
	case push.StateFailed:
		return bannerConnectionFailed
	case push.StateDisconnected:
		return bannerConnectionLost
	}
	return ""
}
