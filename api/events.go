package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kanbanmusic/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// cross-origin policy is enforced by the CORS layer in front of the router
	CheckOrigin: func(r *http.Request) bool { return true },
}

// BoardEventsHandler upgrades the connection to a websocket and streams the
// board's change events until the client disconnects.
func (h *Handler) BoardEventsHandler(c *gin.Context) {
	boardID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.Broker.Subscribe(boardID)
	session := &events.Session{Broker: h.Broker, Sub: sub, Conn: conn}
	session.Run()
}
