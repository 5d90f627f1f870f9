package stream

import (
	"encoding/json"
	"fmt"
)

// clientPayload is the union of payload shapes a client can send: the bare
// string tags "Connect"/"Disconnect", or {"Text":{"text":"..."}}.
type clientPayload struct {
	kind clientPayloadKind
	text string
}

type clientPayloadKind int

const (
	clientConnect clientPayloadKind = iota
	clientDisconnect
	clientText
)

// inboundMessage is the raw JSON shape of a client->server StreamMessage:
// {"route": "...", "payload": ...} where payload is either a bare string
// or {"Text":{"text":"..."}}.
type inboundMessage struct {
	Route   string          `json:"route"`
	Payload json.RawMessage `json:"payload"`
}

func decodeInbound(data []byte) (route string, payload clientPayload, err error) {
	var msg inboundMessage
	if err = json.Unmarshal(data, &msg); err != nil {
		return "", clientPayload{}, fmt.Errorf("stream: decode message: %w", err)
	}

	var bareTag string
	if err := json.Unmarshal(msg.Payload, &bareTag); err == nil {
		switch bareTag {
		case "Connect":
			return msg.Route, clientPayload{kind: clientConnect}, nil
		case "Disconnect":
			return msg.Route, clientPayload{kind: clientDisconnect}, nil
		default:
			return "", clientPayload{}, fmt.Errorf("stream: unknown payload tag %q", bareTag)
		}
	}

	var tagged struct {
		Text *struct {
			Text string `json:"text"`
		} `json:"Text"`
	}
	if err := json.Unmarshal(msg.Payload, &tagged); err != nil {
		return "", clientPayload{}, fmt.Errorf("stream: decode payload: %w", err)
	}
	if tagged.Text == nil {
		return "", clientPayload{}, fmt.Errorf("stream: empty payload")
	}
	return msg.Route, clientPayload{kind: clientText, text: tagged.Text.Text}, nil
}

// outboundText encodes a server->client {"route":..., "payload":{"Text":{"text":...}}} frame.
func outboundText(route, text string) []byte {
	data, _ := json.Marshal(struct {
		Route   string `json:"route"`
		Payload struct {
			Text struct {
				Text string `json:"text"`
			} `json:"Text"`
		} `json:"payload"`
	}{
		Route: route,
		Payload: struct {
			Text struct {
				Text string `json:"text"`
			} `json:"Text"`
		}{Text: struct {
			Text string `json:"text"`
		}{Text: text}},
	})
	return data
}

// outboundServerError encodes a server->client {"route":..., "payload":{"ServerError":{"callstack": "..."?}}} frame.
// callstack is omitted entirely (not even an empty string) when present is
// false — in PROD the callstack is always absent.
func outboundServerError(route string, callstack string, present bool) []byte {
	type serverError struct {
		Callstack string `json:"callstack,omitempty"`
	}
	type envelope struct {
		Route   string `json:"route"`
		Payload struct {
			ServerError serverError `json:"ServerError"`
		} `json:"payload"`
	}
	var env envelope
	env.Route = route
	if present {
		env.Payload.ServerError.Callstack = callstack
	}
	data, _ := json.Marshal(env)
	return data
}
