package websocket

import (
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal/user"
)

type TokenValidator interface {
	ValidateJWT(token string) (*user.User, error)
}

type Handler struct {
	hub      *Hub
	tokens   TokenValidator
	upgrader websocket.FastHTTPUpgrader
}

func NewHandler(hub *Hub, tokens TokenValidator, allowedOrigins []string) *Handler {
	h := &Handler{
		hub:    hub,
		tokens: tokens,
	}
	h.upgrader = websocket.FastHTTPUpgrader{
		CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
			return originAllowed(string(ctx.Request.Header.Peek("Origin")), allowedOrigins)
		},
	}
	return h
}

func originAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" || len(allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if strings.HasSuffix(allowed, ":*") && strings.HasPrefix(origin, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}
	return false
}

// HandleFastHTTP upgrades GET /ws. Browsers cannot set headers on websocket
// requests, so the token may also come from the query string.
func (h *Handler) HandleFastHTTP(ctx *fasthttp.RequestCtx) {
	token := string(ctx.QueryArgs().Peek("token"))
	if token == "" {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		log.Debug().Msg("[WS] Connection rejected: missing token")
		ctx.Error("Unauthorized: missing token", fasthttp.StatusUnauthorized)
		return
	}

	authenticatedUser, err := h.tokens.ValidateJWT(token)
	if err != nil {
		log.Debug().Err(err).Msg("[WS] Connection rejected: invalid token")
		ctx.Error("Unauthorized: invalid token", fasthttp.StatusUnauthorized)
		return
	}

	err = h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := NewClient(h.hub, conn, authenticatedUser)
		// queued before registration; the hub owns closing send afterwards
		client.send <- &OutgoingMessage{
			Type:   MessageTypeConnected,
			UserID: authenticatedUser.ID,
		}
		if !h.hub.Register(client) {
			conn.Close()
			return
		}

		log.Info().
			Str("userId", authenticatedUser.ID).
			Msg("[WS] Client connected")

		go client.WritePump()
		client.ReadPump()
	})

	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to upgrade connection")
		return
	}
}
