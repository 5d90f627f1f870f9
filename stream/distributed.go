package stream

import (
	"encoding/json"

	"github.com/sitewire/sitewire/store"
)

// distributedMessage is the wire shape published on the shared pubsub
// channel so every process sharing it relays the broadcast to its own
// locally-subscribed sessions.
type distributedMessage struct {
	Route string `json:"route"`
	Text  string `json:"text"`
}

// EnableDistribution wires pubsub into m so Broadcast also fans out across
// every other process subscribed to channel. This is additive: a
// Multiplexer that never calls EnableDistribution behaves exactly as
// before, and the per-client filter still governs delivery to this
// process's own sessions — a remote process's filter is its own affair,
// since a func value cannot cross the wire.
func (m *Multiplexer) EnableDistribution(pubsub store.PubSub, channel string) error {
	m.pubsub = pubsub
	m.pubsubChannel = channel
	return pubsub.Subscribe(channel, func(message []byte) {
		var msg distributedMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			m.logger.Errorf("stream: malformed distributed broadcast: %v", err)
			return
		}
		m.broadcastLocal(msg.Route, msg.Text, nil)
	})
}

// broadcastLocal is Broadcast's original single-process implementation,
// unconditionally delivering to every locally-registered session matching
// route and filter.
func (m *Multiplexer) broadcastLocal(route, text string, filter func(clientID int64) bool) {
	frame := outboundText(route, text)
	for _, s := range m.registry.Snapshot() {
		if !s.hasRoute(route) {
			continue
		}
		if filter != nil && !filter(s.ClientID) {
			continue
		}
		_ = s.writeLocked(frame)
	}
}

func (m *Multiplexer) publishRemote(route, text string) {
	if m.pubsub == nil {
		return
	}
	data, err := json.Marshal(distributedMessage{Route: route, Text: text})
	if err != nil {
		return
	}
	_ = m.pubsub.Publish(m.pubsubChannel, data)
}
