package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/statuswatch/internal/live"
	"github.com/monocle-dev/statuswatch/internal/logger"
)

// LiveHandler upgrades status page viewers onto the live feed.
type LiveHandler struct {
	hub      *live.Hub
	upgrader websocket.Upgrader
	log      logger.Logger
}

func NewLiveHandler(hub *live.Hub, allowedOrigins []string, log logger.Logger) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *LiveHandler) WebSocket(c *gin.Context) {
	pageID, err := uuid.Parse(c.Param("page_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status page ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "status_page_id", pageID, "error", err)
		return
	}

	h.hub.Serve(conn, pageID)
}
