package usecase

import (
	"strings"

	"relove-chat/internal/infrastructure/realtime"
	chat "relove-chat/internal/pkg/chat/domain"
)

type AuthorizeChannelInput struct {
	Identity chat.Identity
	SocketID string
	Channel  string
}

// AuthorizeChannelUseCase signs a socket's subscription to the caller's own
// private channel. A user may only listen on private-user.{id}.{role}.
type AuthorizeChannelUseCase struct {
	Key []byte
}

func NewAuthorizeChannelUseCase(key []byte) *AuthorizeChannelUseCase {
	return &AuthorizeChannelUseCase{Key: key}
}

func (uc *AuthorizeChannelUseCase) Execute(in AuthorizeChannelInput) (string, error) {
	socketID := strings.TrimSpace(in.SocketID)
	if socketID == "" {
		return "", ErrInvalidSocket
	}
	owner, err := chat.ParseChannel(in.Channel)
	if err != nil {
		return "", err
	}
	if owner != in.Identity {
		return "", ErrChannelNotOwned
	}
	return realtime.SignChannel(uc.Key, socketID, in.Channel), nil
}
