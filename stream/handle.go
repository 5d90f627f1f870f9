package stream

// handle implements neutral.StreamHandle for one (session, route) pair.
type handle struct {
	mux     *Multiplexer
	session *Session
	conn    Conn
	route   string
}

// Send implements neutral.StreamHandle.
func (h *handle) Send(text string) error {
	return h.session.writeLocked(outboundText(h.route, text))
}

// Broadcast implements neutral.StreamHandle.
func (h *handle) Broadcast(text string, filter func(clientID int64) bool) {
	h.mux.Broadcast(h.route, text, filter)
}

// Disconnect implements neutral.StreamHandle.
func (h *handle) Disconnect() {
	if !h.session.hasRoute(h.route) {
		return
	}
	empty := h.session.removeRoute(h.route)
	h.mux.invokeDisconnectEvent(h.session, h.conn, h.route)
	if empty {
		h.session.registryRemoved.Store(true)
		if h.conn != nil {
			_ = h.conn.Close()
		}
	}
}
