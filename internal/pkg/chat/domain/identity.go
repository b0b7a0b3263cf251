package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the side of a marketplace conversation a participant is on.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ParseRole accepts "buyer" or "seller" in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// Counterpart returns the opposite side of the conversation.
func (r Role) Counterpart() Role {
	if r == RoleBuyer {
		return RoleSeller
	}
	return RoleBuyer
}

// Identity is a signed-in participant. Buyers and sellers live in separate
// id spaces, so the role is part of the identity.
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

const channelPrefix = "private-user."

// Channel is the private push channel that carries this identity's
// notifications, e.g. "private-user.42.buyer".
func (i Identity) Channel() string {
	return channelPrefix + strconv.FormatInt(i.ID, 10) + "." + string(i.Role)
}

func (i Identity) String() string {
	return string(i.Role) + ":" + strconv.FormatInt(i.ID, 10)
}

// ParseChannel is the inverse of Identity.Channel.
func ParseChannel(channel string) (Identity, error) {
	rest, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	idPart, rolePart, ok := strings.Cut(rest, ".")
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	role, err := ParseRole(rolePart)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	return Identity{ID: id, Role: role}, nil
}
