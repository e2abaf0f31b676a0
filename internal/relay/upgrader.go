package relay

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader builds the websocket upgrader with an origin allow-list.
// extraOrigins is the comma-separated ALLOWED_ORIGINS config value.
func NewUpgrader(extraOrigins string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Non-browser clients send no Origin header
			if origin == "" {
				return true
			}

			allowedOrigins := []string{
				"http://localhost:3000",
				"https://localhost:3000",
				"http://127.0.0.1:3000",
			}
			if extraOrigins != "" {
				for _, custom := range strings.Split(extraOrigins, ",") {
					allowedOrigins = append(allowedOrigins, strings.TrimSpace(custom))
				}
			}

			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}

			// Development convenience: any localhost variation passes
			return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
		},
	}
}
