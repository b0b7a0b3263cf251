package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	chat "relove-chat/internal/pkg/chat/domain"
)

var (
	ErrMissingToken = errors.New("auth: missing token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// IssueToken signs identity as base64url("id:role") "." hex(HMAC-SHA256).
func IssueToken(key []byte, identity chat.Identity) string {
	subject := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(identity.ID, 10) + ":" + string(identity.Role)))
	return subject + "." + sign(key, subject)
}

// ParseToken verifies token and returns the identity it carries.
func ParseToken(key []byte, token string) (chat.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return chat.Identity{}, ErrMissingToken
	}
	subject, sig, ok := strings.Cut(token, ".")
	if !ok || subject == "" || sig == "" {
		return chat.Identity{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(sign(key, subject)), []byte(sig)) {
		return chat.Identity{}, ErrInvalidToken
	}

	return decodeSubject(subject)
}

// TokenSubject reads the identity carried by token without verifying the
// signature. Clients use it to learn who they are; servers must use
// ParseToken.
func TokenSubject(token string) (chat.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return chat.Identity{}, ErrMissingToken
	}
	subject, _, ok := strings.Cut(token, ".")
	if !ok || subject == "" {
		return chat.Identity{}, ErrInvalidToken
	}
	return decodeSubject(subject)
}

func decodeSubject(subject string) (chat.Identity, error) {
	raw, err := base64.RawURLEncoding.DecodeString(subject)
	if err != nil {
		return chat.Identity{}, ErrInvalidToken
	}
	idPart, rolePart, ok := strings.Cut(string(raw), ":")
	if !ok {
		return chat.Identity{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return chat.Identity{}, ErrInvalidToken
	}
	role, err := chat.ParseRole(rolePart)
	if err != nil {
		return chat.Identity{}, ErrInvalidToken
	}
	return chat.Identity{ID: id, Role: role}, nil
}

func sign(key []byte, subject string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(subject))
	return hex.EncodeToString(mac.Sum(nil))
}
