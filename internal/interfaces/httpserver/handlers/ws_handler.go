package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/realtime"
)

// WSHandler upgrades authenticated requests to websocket connections and
// hands them to the realtime hub.
type WSHandler struct {
	hub         *realtime.Hub
	memberships realtime.Memberships
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

// NewWSHandler constructs the handler. Origin checking is delegated to the
// CORS middleware in front of the upgrade.
func NewWSHandler(hub *realtime.Hub, memberships realtime.Memberships, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:         hub,
		memberships: memberships,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("handler", "ws").Logger(),
	}
}

// Connect handles GET /v1/ws
func (h *WSHandler) Connect(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Uint("account_id", actor.ID).Msg("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn, actor.ID, h.memberships)
	go client.WritePump()
	// The request context dies when this handler returns; the pumps outlive
	// it on the hijacked connection.
	go client.ReadPump(context.Background())
}
