package apidispatch

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/sitewire/sitewire/config"
	"github.com/sitewire/sitewire/neutral"
)

type stubBundle struct {
	handle func(apiPath string, req neutral.Request) (*neutral.Response, error)
}

func (b *stubBundle) Handle(apiPath string, req neutral.Request) (*neutral.Response, error) {
	return b.handle(apiPath, req)
}
func (b *stubBundle) HandleStream(neutral.StreamEvent, neutral.StreamHandle) error { return nil }
func (b *stubBundle) NumApiStreams() int                                          { return 0 }
func (b *stubBundle) IsFrameworkFrame(frame string) bool {
	return strings.Contains(frame, "apidispatch.")
}

func newTestApp(d *Dispatcher) *fiber.App {
	app := fiber.New()
	d.Register(app, "/api/*")
	return app
}

func TestPostWithBodyReachesBundle(t *testing.T) {
	var gotBody []byte
	var gotPath string
	bundle := &stubBundle{handle: func(apiPath string, req neutral.Request) (*neutral.Response, error) {
		gotPath = apiPath
		gotBody = req.Body
		return &neutral.Response{Status: 201, Body: []byte(`{"ok":true}`), ContentType: "application/json"}, nil
	}}
	d := New(bundle, config.Prod, nopLogger{}, "/api")
	app := newTestApp(d)

	req := httptest.NewRequest(fiber.MethodPost, "/api/widgets", bytes.NewBufferString(`{"name":"x"}`))
	req.Header.Set(fiber.HeaderContentType, "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if gotPath != "/widgets" {
		t.Errorf("apiPath = %q, want /widgets", gotPath)
	}
	if string(gotBody) != `{"name":"x"}` {
		t.Errorf("body = %q", gotBody)
	}
	if resp.StatusCode != 201 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	out, _ := io.ReadAll(resp.Body)
	if string(out) != `{"ok":true}` {
		t.Errorf("response body = %q", out)
	}
}

func TestNilResponseIs404(t *testing.T) {
	bundle := &stubBundle{handle: func(string, neutral.Request) (*neutral.Response, error) {
		return nil, nil
	}}
	d := New(bundle, config.Prod, nopLogger{}, "/api")
	app := newTestApp(d)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/missing", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDevCrashTruncatesTrace(t *testing.T) {
	bundle := &stubBundle{handle: func(string, neutral.Request) (*neutral.Response, error) {
		panic("widgets: division by zero")
	}}
	d := New(bundle, config.Dev, nopLogger{}, "/api")
	app := newTestApp(d)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/widgets", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "division by zero") {
		t.Errorf("body = %q, want panic message", body)
	}
}

func TestProdCrashHidesTrace(t *testing.T) {
	bundle := &stubBundle{handle: func(string, neutral.Request) (*neutral.Response, error) {
		panic("widgets: division by zero")
	}}
	d := New(bundle, config.Prod, nopLogger{}, "/api")
	app := newTestApp(d)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/widgets", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("body = %q, want empty in prod", body)
	}
}

func TestHeadSuppressesBody(t *testing.T) {
	bundle := &stubBundle{handle: func(string, neutral.Request) (*neutral.Response, error) {
		return &neutral.Response{Status: 200, Body: []byte("hello"), ContentType: "text/plain"}, nil
	}}
	d := New(bundle, config.Prod, nopLogger{}, "/api")
	app := newTestApp(d)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodHead, "/api/widgets", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("HEAD body = %q, want empty", body)
	}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
