// Package apidispatch converts inbound HTTP requests under {prefix}/api/...
// into neutral.Request records, invokes the bundle, and translates its
// neutral.Response back onto the wire.
package apidispatch

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sitewire/sitewire/config"
	"github.com/sitewire/sitewire/internal/tracewalk"
	"github.com/sitewire/sitewire/neutral"
)

// Dispatcher wires a neutral.Bundle into Fiber handlers for all seven HTTP
// methods under a given route prefix.
type Dispatcher struct {
	bundle  neutral.Bundle
	env     config.Environment
	logger  config.Logger
	apiRoot string // e.g. "/myapp/api" — used only to strip the leading segment
}

// New creates a Dispatcher. apiRoot is the prefix-joined "/api" path (i.e.
// routeprefix.Prefixer.Join("api")); it is used to compute apiPath from the
// full request path.
func New(bundle neutral.Bundle, env config.Environment, logger config.Logger, apiRoot string) *Dispatcher {
	return &Dispatcher{bundle: bundle, env: env, logger: logger, apiRoot: strings.TrimSuffix(apiRoot, "/")}
}

// Register installs GET/POST/PUT/PATCH/DELETE/HEAD/OPTIONS handlers on app
// at pattern (normally routeprefix.Prefixer.Pattern("api/*")).
func (d *Dispatcher) Register(app fiber.Router, pattern string) {
	h := d.handle
	app.Get(pattern, h)
	app.Post(pattern, h)
	app.Put(pattern, h)
	app.Patch(pattern, h)
	app.Delete(pattern, h)
	app.Head(pattern, h)
	app.Options(pattern, h)
}

func (d *Dispatcher) apiPath(fullPath string) string {
	tail := strings.TrimPrefix(fullPath, d.apiRoot)
	if !strings.HasPrefix(tail, "/") {
		tail = "/" + tail
	}
	return tail
}

func (d *Dispatcher) handle(c *fiber.Ctx) error {
	method := neutral.Method(c.Method())

	var body []byte
	if method == neutral.MethodPatch || method == neutral.MethodPost || method == neutral.MethodPut {
		raw := c.Body()
		if len(raw) > 0 {
			body = append([]byte(nil), raw...)
		}
	}

	req := neutral.Request{
		Connection:      buildConnection(c),
		Method:          method,
		Query:           queryMap(c),
		Headers:         headerMap(c),
		Cookies:         cookieMap(c),
	}
	if body != nil {
		req.Body = body
		req.BodyContentType = c.Get(fiber.HeaderContentType)
	}

	apiPath := d.apiPath(c.Path())

	resp, err := d.invoke(apiPath, req)
	if err != nil {
		return d.handleFailure(c, err)
	}
	if resp == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	for k, v := range resp.Headers {
		c.Append(k, v)
	}
	c.Status(resp.Status)

	if method == neutral.MethodHead {
		return c.Send(nil)
	}
	if resp.ContentType != "" {
		c.Set(fiber.HeaderContentType, resp.ContentType)
	}
	return c.Send(resp.Body)
}

// invoke calls the bundle, recovering a panic into an error so one bad
// handler cannot take out the process; bundleError forms a synthetic
// single-cause chain that carries no frames.
func (d *Dispatcher) invoke(apiPath string, req neutral.Request) (resp *neutral.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &bundleError{message: panicMessage(r)}
		}
	}()
	resp, err = d.bundle.Handle(apiPath, req)
	return
}

type bundleError struct {
	message string
}

func (e *bundleError) Error() string { return e.message }

func panicMessage(r any) string {
	if e, ok := r.(error); ok {
		return e.Error()
	}
	return "panic: " + toString(r)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic value"
}

// handleFailure logs always. In prod it responds with an empty 500. In dev
// it responds 500 with the cause chain's trace, truncated at the first frame
// the bundle's sentinel predicate recognizes; it sends that trace whether or
// not any frame in the chain is recognized.
func (d *Dispatcher) handleFailure(c *fiber.Ctx, err error) error {
	d.logger.Errorf("api dispatch error: path=%s method=%s err=%v", c.Path(), c.Method(), err)

	if d.env != config.Dev {
		return c.Status(fiber.StatusInternalServerError).Send(nil)
	}

	causes := causesOf(err)
	trace := tracewalk.Truncate(causes, d.bundle.IsFrameworkFrame)

	c.Status(fiber.StatusInternalServerError)
	c.Set(fiber.HeaderContentType, "text/plain")
	return c.SendString(trace)
}

func errorTypeName(err error) string {
	type typed interface{ Type() string }
	if t, ok := err.(typed); ok {
		return t.Type()
	}
	return "error"
}

// framed is implemented by bundle errors that carry their own call-stack
// frames; the core has no portable stack-frame API equivalent to a JVM
// Throwable, so it relies on the bundle to attach frames when it wants a
// truncated trace to show more than the top-level message.
type framed interface {
	Frames() []string
}

// causesOf walks err's unwrap chain into the Cause list tracewalk.Truncate
// expects, outermost error first.
func causesOf(err error) []tracewalk.Cause {
	var causes []tracewalk.Cause
	for err != nil {
		var frames []string
		if f, ok := err.(framed); ok {
			frames = f.Frames()
		}
		causes = append(causes, tracewalk.Cause{
			Type:    errorTypeName(err),
			Message: err.Error(),
			Frames:  frames,
		})
		err = unwrap(err)
	}
	return causes
}

func unwrap(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}

func buildConnection(c *fiber.Ctx) neutral.Connection {
	scheme := "http"
	if c.Secure() {
		scheme = "https"
	}
	remote := c.Context().RemoteAddr().String()
	local := c.Context().LocalAddr().String()
	details := neutral.ConnectionDetails{
		Scheme:     scheme,
		Version: c.Protocol(),
		LocalAddr:  local,
		RemoteAddr: remote,
		ServerAddr: local,
		Host:       c.Hostname(),
		Port:       portOf(local),
	}
	return neutral.Connection{Origin: details, Local: details}
}

func portOf(hostport string) string {
	idx := strings.LastIndex(hostport, ":")
	if idx < 0 {
		return ""
	}
	return hostport[idx+1:]
}

func queryMap(c *fiber.Ctx) map[string]string {
	out := map[string]string{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		if _, ok := out[string(k)]; !ok {
			out[string(k)] = string(v)
		}
	})
	return out
}

func headerMap(c *fiber.Ctx) map[string]string {
	out := map[string]string{}
	c.Context().Request.Header.VisitAll(func(k, v []byte) {
		key := string(k)
		if existing, ok := out[key]; ok {
			out[key] = existing + ", " + string(v)
		} else {
			out[key] = string(v)
		}
	})
	return out
}

func cookieMap(c *fiber.Ctx) map[string]string {
	out := map[string]string{}
	c.Context().Request.Header.VisitAllCookie(func(k, v []byte) {
		out[string(k)] = string(v)
	})
	return out
}
