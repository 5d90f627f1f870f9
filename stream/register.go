package stream

import (
	"github.com/gofiber/fiber/v2"
	websocket "github.com/gofiber/websocket/v2"
)

// Handler returns the Fiber route handlers needed to install the websocket
// endpoint: an upgrade-check middleware followed by the websocket.New
// handler that drives Multiplexer.Serve for the lifetime of the connection.
func Handler(mux *Multiplexer) []fiber.Handler {
	upgrade := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
	return []fiber.Handler{upgrade, websocket.New(func(c *websocket.Conn) {
		mux.Serve(NewFiberConn(c))
	})}
}
