package realtime

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignChannel returns the subscription signature that binds a socket to a
// private channel: hex(HMAC-SHA256(key, socketID ":" channel)).
func SignChannel(key []byte, socketID, channel string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(socketID))
	mac.Write([]byte{':'})
	mac.Write([]byte(channel))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyChannel checks sig in constant time.
func VerifyChannel(key []byte, socketID, channel, sig string) bool {
	if sig == "" {
		return false
	}
	expected := SignChannel(key, socketID, channel)
	return hmac.Equal([]byte(expected), []byte(sig))
}
