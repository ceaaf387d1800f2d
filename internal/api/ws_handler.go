package api

import (
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"gpufutures.com/internal/infra"
)

// InitWebsocket registers the event stream endpoint. Clients receive
// every order, contract and parameter event; the connection is
// read-mostly and inbound frames are discarded.
func InitWebsocket(app *fiber.App, wsManager *infra.WsManager) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		log.Println("New WS connection")

		wsManager.Register <- c
		defer func() {
			wsManager.Unregister <- c
		}()

		// Read loop keeps the connection open and detects closure.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Println("ws read error:", err)
				}
				break
			}
		}
	}))
}
