package stream

import (
	"time"

	websocket "github.com/gofiber/websocket/v2"
)

// fiberConn adapts *websocket.Conn (github.com/gofiber/websocket/v2) to the
// Conn interface.
type fiberConn struct {
	*websocket.Conn
}

// NewFiberConn wraps a gofiber websocket connection for use with Multiplexer.Serve.
func NewFiberConn(c *websocket.Conn) Conn {
	return fiberConn{Conn: c}
}

func (c fiberConn) WriteText(data []byte) error {
	return c.WriteMessage(websocket.TextMessage, data)
}

func (c fiberConn) ReadMessage() (int, []byte, error) {
	return c.Conn.ReadMessage()
}

func (c fiberConn) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

func (c fiberConn) SetPongHandler(h func(string) error) {
	c.Conn.SetPongHandler(h)
}

func (c fiberConn) WritePing() error {
	return c.WriteMessage(websocket.PingMessage, nil)
}

func (c fiberConn) Close() error {
	return c.Conn.Close()
}
