package relay

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// guestPrefix namespaces guest ids away from authenticated ids, which always
// carry the user prefix. The two id spaces cannot collide.
const (
	guestPrefix = "guest-"
	userPrefix  = "user-"
)

// Identity is resolved once at admission and immutable for the connection's
// lifetime.
type Identity struct {
	ID          string
	DisplayName string
	IsGuest     bool
}

// NewGuestIdentity synthesizes a fresh guest identity. The token comes from a
// random UUID, so generation never fails and ids are never reused.
func NewGuestIdentity() Identity {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return Identity{
		ID:          guestPrefix + token,
		DisplayName: "Guest-" + strings.ToUpper(token[len(token)-4:]),
		IsGuest:     true,
	}
}

// NewUserIdentity builds the identity for an authenticated account. The
// display name falls back to the email local part when the account has no
// username.
func NewUserIdentity(accountID uint, username, email string) Identity {
	displayName := username
	if displayName == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			displayName = email[:at]
		} else {
			displayName = email
		}
	}
	return Identity{
		ID:          fmt.Sprintf("%s%d", userPrefix, accountID),
		DisplayName: displayName,
		IsGuest:     false,
	}
}
