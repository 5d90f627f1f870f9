package assemble

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/sitewire/sitewire/config"
	"github.com/sitewire/sitewire/neutral"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

type stubBundle struct{}

func (stubBundle) Handle(string, neutral.Request) (*neutral.Response, error) { return nil, nil }
func (stubBundle) HandleStream(neutral.StreamEvent, neutral.StreamHandle) error {
	return nil
}
func (stubBundle) NumApiStreams() int          { return 0 }
func (stubBundle) IsFrameworkFrame(string) bool { return false }

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDevFullstackServesIndexFallback(t *testing.T) {
	contentRoot := t.TempDir()
	writeFile(t, filepath.Join(contentRoot, "index.html"), "<html>dev</html>")

	cfg := config.SiteConfig{
		Paths: config.FilePaths{DevContentRoot: contentRoot},
	}
	globals := config.NewGlobals()

	app := fiber.New()
	asm, err := Assemble(app, config.Dev, config.Fullstack, cfg, nil, globals, nopLogger{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if asm.Multiplexer != nil {
		t.Errorf("expected no multiplexer without a bundle")
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/anything", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDevFullstackWithBundleInstallsApiAndStream(t *testing.T) {
	contentRoot := t.TempDir()
	writeFile(t, filepath.Join(contentRoot, "index.html"), "<html>dev</html>")

	cfg := config.SiteConfig{Paths: config.FilePaths{DevContentRoot: contentRoot}}
	globals := config.NewGlobals()

	app := fiber.New()
	asm, err := Assemble(app, config.Dev, config.Fullstack, cfg, stubBundle{}, globals, nopLogger{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if asm.Registry == nil || asm.Multiplexer == nil {
		t.Fatalf("expected registry and multiplexer to be installed when a bundle is present")
	}
}

func TestProdFullstackRejectsMissingSiteRoot(t *testing.T) {
	cfg := config.SiteConfig{Paths: config.FilePaths{ProdSiteRoot: "/nonexistent/site/root"}}
	globals := config.NewGlobals()

	app := fiber.New()
	_, err := Assemble(app, config.Prod, config.Fullstack, cfg, nil, globals, nopLogger{})
	if err == nil {
		t.Fatal("expected error for missing site root")
	}
	if _, ok := err.(*config.ConfigurationError); !ok {
		t.Errorf("err = %T, want *config.ConfigurationError", err)
	}
}

func TestProdFullstackRejectsMissingSystemFolder(t *testing.T) {
	siteRoot := t.TempDir()
	// no system/ subfolder created
	cfg := config.SiteConfig{Paths: config.FilePaths{ProdSiteRoot: siteRoot}}
	globals := config.NewGlobals()

	app := fiber.New()
	_, err := Assemble(app, config.Prod, config.Fullstack, cfg, nil, globals, nopLogger{})
	if err == nil {
		t.Fatal("expected error for missing system/ folder")
	}
}

func TestProdStaticServesHTMLExtensionResolution(t *testing.T) {
	siteRoot := t.TempDir()
	writeFile(t, filepath.Join(siteRoot, "about.html"), "<html>about</html>")
	writeFile(t, filepath.Join(siteRoot, "404.html"), "<html>nope</html>")

	cfg := config.SiteConfig{Paths: config.FilePaths{ProdSiteRoot: siteRoot}}

	app := fiber.New()
	_, err := Assemble(app, config.Prod, config.Static, cfg, nil, nil, nopLogger{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/about", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp2, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp2.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp2.StatusCode)
	}
}
