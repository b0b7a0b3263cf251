package usecase

import "errors"

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = errors.New("chat use case persistence error")

// ErrChannelNotOwned is returned when an identity asks to subscribe to
// someone else's private channel.
var ErrChannelNotOwned = errors.New("channel does not belong to the caller")

// ErrInvalidSocket is returned for channel authorization without a socket id.
var ErrInvalidSocket = errors.New("socket_id is required")
