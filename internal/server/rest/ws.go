package rest

import (
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// websocketHandler attaches an authenticated connection to the hub. The
// write pump runs in its own goroutine; the read pump owns this one.
func (s *Server) websocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals(localUser).(*models.User)
		if !ok || user == nil || s.hub == nil {
			_ = conn.Close()
			return
		}

		client := realtime.NewClient(s.hub, conn, user.ClerkID)
		s.hub.Register(client)

		go client.WritePump()
		client.ReadPump(s.ctx, s.svc.Messages)
	})
}
