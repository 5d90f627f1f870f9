package fileserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/sitewire/sitewire/redirect"
)

func newTestApp(t *testing.T, fs *FileServer) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/*", fs.Handler())
	return app
}

func doGet(t *testing.T, app *fiber.App, path, accept string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set(fiber.HeaderAccept, accept)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestServesScriptFile(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeTempFile(t, dir, "app.js", "console.log('x')")
	indexPath := writeTempFile(t, dir, "index.html", "<html></html>")

	fs := New(false, ScriptFiles{ScriptName: "app.js", ScriptPath: scriptPath}, nil, "", indexPath)
	app := newTestApp(t, fs)

	resp := doGet(t, app, "/app.js", "")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "console.log('x')" {
		t.Errorf("body = %q", body)
	}
}

func TestAppliesRedirectBeforeIndex(t *testing.T) {
	dir := t.TempDir()
	indexPath := writeTempFile(t, dir, "index.html", "<html></html>")
	rule, err := redirect.NewRule("/old/(.*)", "/new/$1")
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	engine := redirect.New(rule)

	fs := New(false, ScriptFiles{}, engine, "", indexPath)
	app := newTestApp(t, fs)

	resp := doGet(t, app, "/old/thing", "")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", resp.StatusCode)
	}
	if loc := resp.Header.Get(fiber.HeaderLocation); loc != "/new/thing" {
		t.Errorf("Location = %q", loc)
	}
}

func TestDevContentRootServesExistingFile(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "style.css", "body{}")
	indexPath := writeTempFile(t, dir, "index.html", "<html></html>")

	fs := New(true, ScriptFiles{}, nil, dir, indexPath)
	app := newTestApp(t, fs)

	resp := doGet(t, app, "/style.css", "")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "body{}" {
		t.Errorf("body = %q", body)
	}
}

func TestAcceptGuardRejectsNonHTML(t *testing.T) {
	dir := t.TempDir()
	indexPath := writeTempFile(t, dir, "index.html", "<html></html>")

	fs := New(false, ScriptFiles{}, nil, "", indexPath)
	app := newTestApp(t, fs)

	resp := doGet(t, app, "/missing.png", "image/png")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestIndexFallbackForHTMLNavigation(t *testing.T) {
	dir := t.TempDir()
	indexPath := writeTempFile(t, dir, "index.html", "<html>root</html>")

	fs := New(false, ScriptFiles{}, nil, "", indexPath)
	app := newTestApp(t, fs)

	resp := doGet(t, app, "/some/client/route", "text/html")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<html>root</html>" {
		t.Errorf("body = %q", body)
	}
}
