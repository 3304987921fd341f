package config

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

type WebSocket struct {
	Upgrader websocket.Upgrader
}

// NewWebSocket accepts any origin unless WS_ALLOWED_ORIGINS holds a comma
// separated allow list.
func NewWebSocket() (*WebSocket, error) {
	allowed := lookupList("WS_ALLOWED_ORIGINS")

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, a := range allowed {
				if strings.EqualFold(a, origin) {
					return true
				}
			}
			return false
		},
	}

	return &WebSocket{Upgrader: upgrader}, nil
}
