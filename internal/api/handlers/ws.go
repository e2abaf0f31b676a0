package handlers

import (
	"log/slog"
	"strings"
	"time"

	"chat-relay-service/internal/auth"
	"chat-relay-service/internal/models"
	"chat-relay-service/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenVerifier validates a bearer credential and yields the principal it was
// issued to.
type TokenVerifier interface {
	Verify(tokenString, expectedKind string) (*auth.Principal, error)
}

// AccountFinder resolves a verified principal to its account record.
type AccountFinder interface {
	FindByEmail(email string) (*models.Account, error)
}

type WSHandler struct {
	hub      *relay.Hub
	verifier TokenVerifier
	accounts AccountFinder
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *relay.Hub, verifier TokenVerifier, accounts AccountFinder, upgrader websocket.Upgrader) *WSHandler {
	return &WSHandler{
		hub:      hub,
		verifier: verifier,
		accounts: accounts,
		upgrader: upgrader,
	}
}

// HandleWebSocket godoc
// @Summary Open a relay connection
// @Description Upgrades to WebSocket, resolves the caller's identity, and enters the relay loop. Without a token the caller is admitted as a guest.
// @Tags chat
// @Param token query string false "Access token; omit for guest access"
// @Success 101 "Switching Protocols"
// @Router /chat/ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	identity, ok := h.resolveIdentity(c.Query("token"))
	if !ok {
		// Bad or unresolvable credential: the connection never reaches the relay
		closePolicyViolation(conn, "could not validate credentials")
		return
	}

	if _, err := h.hub.Serve(conn, identity); err != nil {
		slog.Warn("Admission rejected", "identity", identity.ID, "error", err)
		closePolicyViolation(conn, "identity already connected")
	}
}

// resolveIdentity performs session bootstrap: verified account identity when a
// token is supplied, a fresh guest identity otherwise. Guest admission never
// fails.
func (h *WSHandler) resolveIdentity(token string) (relay.Identity, bool) {
	if token == "" {
		return relay.NewGuestIdentity(), true
	}

	token = strings.TrimPrefix(token, "Bearer ")

	principal, err := h.verifier.Verify(token, auth.KindAccess)
	if err != nil {
		slog.Debug("Token verification failed", "error", err)
		return relay.Identity{}, false
	}

	account, err := h.accounts.FindByEmail(principal.Email)
	if err != nil {
		slog.Debug("No account for verified principal", "email", principal.Email, "error", err)
		return relay.Identity{}, false
	}

	return relay.NewUserIdentity(account.ID, account.Username, account.Email), true
}

func closePolicyViolation(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	conn.Close()
}
