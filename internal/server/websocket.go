package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AdamHev/Object-Detection-Bakery/internal/app/relay"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// HandleEventsWS streams detections as WebSocket text messages, one per frame.
// Inbound messages are read and discarded so that a close is noticed.
func HandleEventsWS(svc *relay.Service, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sender, unsubscribe, ok := subscribe(c, svc)
		if !ok {
			return
		}
		defer unsubscribe()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket_upgrade_failed", slog.Any("error", err))
			return
		}
		defer conn.Close()

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		tick, stop := keepAliveTicker(svc.Policy().KeepAliveInterval)
		defer stop()

		for {
			select {
			case <-gone:
				return
			case <-c.Request.Context().Done():
				return
			case <-sender.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"),
					time.Now().Add(wsWriteWait))
				return
			case frame := <-sender.Frames():
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					logger.Debug("websocket_write_failed", slog.Any("error", err))
					return
				}
			case <-tick:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}
}
