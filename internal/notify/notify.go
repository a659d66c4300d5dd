package notify

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/log"
	"github.com/gdbrns/go-whatsapp-group-exporter/pkg/relay"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// eventConn is the part of a WebSocket connection the pump needs.
type eventConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// Upgrade rejects plain HTTP requests to the push channel.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler
// @Summary     Session event stream
// @Description WebSocket stream of lifecycle events: qr, authenticated, loading, ready, auth_failure, disconnected
// @Tags        Session
// @Success     101
// @Failure     426 {object} router.Response
// @Router      /ws [get]
func Handler(hub *relay.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		log.Print(nil).WithField("subscriber", sub.ID).Info("Push subscriber connected")
		pump(conn, sub, pingInterval)
		log.Print(nil).WithField("subscriber", sub.ID).Info("Push subscriber disconnected")
	})
}

// pump forwards events to conn until the client goes away or the
// subscription is closed. Inbound messages are read and discarded so close
// frames are noticed.
func pump(conn eventConn, sub *relay.Subscriber, ping time.Duration) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Print(nil).WithField("subscriber", sub.ID).WithError(err).Debug("Push subscriber read failed")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
