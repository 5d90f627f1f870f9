// Package neutral defines the platform-neutral request/response records
// handed across the boundary between the HTTP layer and the externally
// loaded API bundle.
package neutral

// Method is one of the HTTP methods the ApiDispatcher registers handlers for.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// ConnectionDetails describes one side (origin or local) of the connection
// a request arrived on.
type ConnectionDetails struct {
	Scheme     string
	Version    string
	LocalAddr  string
	RemoteAddr string
	ServerAddr string
	Host       string
	Port       string
}

// Connection bundles the origin (as seen by the client / any proxy) and the
// local (as seen by this process) connection details.
type Connection struct {
	Origin ConnectionDetails
	Local  ConnectionDetails
}

// Request is the neutral form of an inbound HTTP request handed to the
// bundle's Handle method.
type Request struct {
	Connection      Connection
	Method          Method
	Query           map[string]string
	Headers         map[string]string
	Cookies         map[string]string
	Body            []byte // nil unless Method is PATCH/POST/PUT and the body is non-empty
	BodyContentType string // only set when Body is non-nil
}

// Response is the neutral form of the bundle's answer to a Request.
type Response struct {
	Status      int
	Headers     map[string]string
	Body        []byte
	ContentType string // empty means "unset"
}

// Bundle is the capability interface through which the core invokes the
// externally loaded API/stream handler code. The core never knows how the
// bundle was loaded (dynamic plugin, statically linked package, etc.) — it
// only calls these methods.
type Bundle interface {
	// Handle answers an API request at apiPath (always starting with "/",
	// the tail captured after {prefix}/api). It returns (nil, nil) when no
	// route inside the bundle matches apiPath.
	Handle(apiPath string, req Request) (*Response, error)

	// HandleStream delivers a stream event (connect/disconnect/text) for a
	// logical stream route to the bundle, together with the per-(session,
	// route) handle the bundle uses to send/broadcast/disconnect.
	HandleStream(event StreamEvent, handle StreamHandle) error

	// NumApiStreams reports how many distinct stream routes the bundle
	// declares. RoutingAssembler uses this to decide whether to install the
	// WebSocket endpoint at all in PROD+FULLSTACK.
	NumApiStreams() int

	// IsFrameworkFrame is the sentinel predicate used to truncate stack
	// traces shown to the developer: it reports whether a single stack
	// frame belongs to internal framework/dispatch machinery rather than
	// user code. The core never hard-codes a class-name prefix itself.
	IsFrameworkFrame(frame string) bool
}

// StreamEventKind enumerates the events a session delivers to the bundle,
// and the events the bundle can push back to a session.
type StreamEventKind string

const (
	EventClientConnected    StreamEventKind = "connected"
	EventClientDisconnected StreamEventKind = "disconnected"
	EventText               StreamEventKind = "text"
)

// StreamEvent is what the multiplexer delivers to Bundle.HandleStream.
type StreamEvent struct {
	Kind     StreamEventKind
	Route    string
	ClientID int64
	Text     string // only set when Kind == EventText
}

// StreamHandle is the per-(session, route) capability the multiplexer hands
// to the bundle alongside each StreamEvent.
type StreamHandle interface {
	// Send encodes {route, Text(text)} and transmits it on this session only.
	Send(text string) error
	// Broadcast sends text to every session subscribed to this same route
	// for which filter(clientID) returns true. The receiving session's own
	// copy of this route is included if filter admits its own ClientID.
	Broadcast(text string, filter func(clientID int64) bool)
	// Disconnect removes this route from the session's subscription set,
	// delivers ClientDisconnected, and closes the websocket if the set
	// becomes empty.
	Disconnect()
}
