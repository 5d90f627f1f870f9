package stream

import (
	"errors"
	"time"

	"github.com/sitewire/sitewire/config"
	"github.com/sitewire/sitewire/internal/tracewalk"
	"github.com/sitewire/sitewire/neutral"
	"github.com/sitewire/sitewire/store"
)

// Conn is the minimal websocket connection surface the multiplexer needs.
// A thin adapter wraps *github.com/gofiber/websocket/v2.Conn to satisfy it
// (fiberconn.go), so the multiplexer logic itself does not use the concrete
// websocket library; only fiberconn.go and register.go import it.
type Conn interface {
	Sender
	ReadMessage() (messageType int, data []byte, err error)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	WritePing() error
}

// TextMessageType mirrors gorilla/fasthttp-websocket's websocket.TextMessage
// constant (1) so Serve can recognize text frames, and fakes of Conn can
// report them, without referring to the websocket library's constant.
const TextMessageType = 1

// Multiplexer decodes inbound frames, dispatches connect/disconnect/text
// events to the bundle, and implements per-stream send/broadcast.
type Multiplexer struct {
	registry  *Registry
	bundle    neutral.Bundle
	env       config.Environment
	logger    config.Logger
	streaming config.StreamingConfig

	// pubsub and pubsubChannel are set by EnableDistribution; nil pubsub
	// means Broadcast stays single-process.
	pubsub        store.PubSub
	pubsubChannel string
}

// New creates a Multiplexer bound to registry and bundle.
func New(registry *Registry, bundle neutral.Bundle, env config.Environment, logger config.Logger, streaming config.StreamingConfig) *Multiplexer {
	return &Multiplexer{registry: registry, bundle: bundle, env: env, logger: logger, streaming: streaming}
}

// Serve runs one session's full lifecycle: accept, receive loop, cleanup.
// It blocks until the connection closes for any reason.
func (m *Multiplexer) Serve(conn Conn) {
	session := m.registry.NewSession(conn)
	defer m.cleanup(session, conn)

	if m.streaming.PingPeriod > 0 {
		go m.pingLoop(session, conn)
	}
	if m.streaming.Timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(m.streaming.Timeout))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(m.streaming.Timeout))
			return nil
		})
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if isCleanClose(err) {
				m.logger.Infof("stream: session %d closed", session.ClientID)
			} else {
				m.logger.Errorf("stream: session %d read error: %v", session.ClientID, err)
			}
			return
		}
		if msgType != TextMessageType {
			continue // binary frames are ignored
		}
		m.handleFrame(session, conn, data)
	}
}

func (m *Multiplexer) pingLoop(session *Session, conn Conn) {
	ticker := time.NewTicker(m.streaming.PingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if session.registryRemoved.Load() {
			return
		}
		if err := conn.WritePing(); err != nil {
			m.logger.Errorf("stream: session %d ping failed: %v", session.ClientID, err)
			_ = conn.Close()
			return
		}
	}
}

func isCleanClose(err error) bool {
	// Without importing the concrete websocket library's CloseError type,
	// any ReadMessage error ends the read loop the same way. Distinguishing
	// a clean close from an I/O error for *logging* purposes is left to a
	// richer Conn adapter; both paths go through the same cleanup.
	return errors.Is(err, errClientClosed)
}

var errClientClosed = errors.New("stream: client closed connection")

func (m *Multiplexer) handleFrame(session *Session, conn Conn, data []byte) {
	route, payload, err := decodeInbound(data)
	if err != nil {
		m.logger.Errorf("stream: session %d malformed frame: %v", session.ClientID, err)
		return
	}

	switch payload.kind {
	case clientConnect:
		session.addRoute(route)
		m.deliver(session, conn, route, neutral.StreamEvent{
			Kind: neutral.EventClientConnected, Route: route, ClientID: session.ClientID,
		})

	case clientText:
		if !session.hasRoute(route) {
			// unsubscribed + Text is treated as a no-op error.
			m.logger.Errorf("stream: session %d text on unsubscribed route %q", session.ClientID, route)
			return
		}
		m.deliver(session, conn, route, neutral.StreamEvent{
			Kind: neutral.EventText, Route: route, ClientID: session.ClientID, Text: payload.text,
		})

	case clientDisconnect:
		if !session.hasRoute(route) {
			m.logger.Errorf("stream: session %d disconnect on unsubscribed route %q", session.ClientID, route)
			return
		}
		m.disconnectRoute(session, conn, route)
	}
}

// deliver invokes the bundle for event, recovering a panic the same way
// apidispatch does, and runs the stream failure policy on any error.
func (m *Multiplexer) deliver(session *Session, conn Conn, route string, event neutral.StreamEvent) {
	handle := &handle{mux: m, session: session, conn: conn, route: route}
	if err := m.invokeBundle(event, handle); err != nil {
		m.reportStreamFailure(session, route, err)
		handle.Disconnect()
	}
}

// reportStreamFailure logs a bundle failure and sends the ServerError frame
// for it, with a truncated dev-mode stack trace per the same policy
// apidispatch uses for API handlers.
func (m *Multiplexer) reportStreamFailure(session *Session, route string, err error) {
	m.logger.Errorf("stream: handler failure route=%s client=%d err=%v", route, session.ClientID, err)

	causes := []tracewalk.Cause{{Type: "StreamHandlerError", Message: err.Error()}}
	trace := tracewalk.Truncate(causes, m.bundle.IsFrameworkFrame)
	present := m.env == config.Dev
	frame := outboundServerError(route, trace, present)
	_ = session.writeLocked(frame)
}

func (m *Multiplexer) invokeBundle(event neutral.StreamEvent, handle neutral.StreamHandle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = errors.New("stream: handler panic")
			}
		}
	}()
	return m.bundle.HandleStream(event, handle)
}

// disconnectRoute implements the subscribed->Disconnect transition: deliver
// ClientDisconnected first, then remove the route, then close the socket if
// the subscription set is now empty. This is the opposite order from
// handle.Disconnect(), which removes first — the two call paths are
// deliberately distinct.
func (m *Multiplexer) disconnectRoute(session *Session, conn Conn, route string) {
	m.invokeDisconnectEvent(session, conn, route)
	empty := session.removeRoute(route)
	if empty {
		session.registryRemoved.Store(true)
		_ = conn.Close()
	}
}

// invokeDisconnectEvent delivers ClientDisconnected and runs the same
// failure policy deliver does: log, send a ServerError frame, and force the
// session closed. It cannot route a failure back through handle.Disconnect()
// the way deliver does — this event already *is* the disconnect, and
// Disconnect() re-enters invokeDisconnectEvent, so it closes the connection
// directly instead.
func (m *Multiplexer) invokeDisconnectEvent(session *Session, conn Conn, route string) {
	// On the handle.Disconnect() and cleanup paths the route is already
	// removed from the session's set when this runs, so Disconnect() through
	// this handle is a no-op there. On the client-Disconnect path
	// (disconnectRoute) the route is still in the set while the bundle runs.
	// Send/Broadcast work on every path (a disconnect handler may want to
	// tell peers goodbye).
	handle := &handle{mux: m, session: session, conn: conn, route: route}
	if err := m.invokeBundle(neutral.StreamEvent{
		Kind: neutral.EventClientDisconnected, Route: route, ClientID: session.ClientID,
	}, handle); err != nil {
		m.reportStreamFailure(session, route, err)
		session.registryRemoved.Store(true)
		if conn != nil {
			_ = conn.Close()
		}
	}
}

// cleanup implements the loop-exit path: synthesize ClientDisconnected for
// every route still subscribed, then remove the session from the registry.
func (m *Multiplexer) cleanup(session *Session, conn Conn) {
	session.registryRemoved.Store(true)
	for _, route := range session.Routes() {
		session.removeRoute(route)
		m.invokeDisconnectEvent(session, conn, route)
	}
	m.registry.Remove(session)
	_ = conn.Close()
}

// Broadcast sends one Text frame to every session subscribed to route for
// which filter(clientID) is true. It visits a registry snapshot, so
// concurrent registrations/removals are safe but not observed atomically.
// When EnableDistribution has been called, the broadcast is also published
// for other processes to relay locally.
func (m *Multiplexer) Broadcast(route, text string, filter func(clientID int64) bool) {
	m.broadcastLocal(route, text, filter)
	m.publishRemote(route, text)
}
