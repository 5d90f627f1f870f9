// Package fileserver implements the catch-all route: an ordered chain of
// predicate handlers for script files, redirects, dev-only extra content,
// an Accept guard, and finally the index fallback.
package fileserver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sitewire/sitewire/redirect"
)

// ScriptFiles names the compiled client script and its source map, matched
// against the tail's last path segment.
type ScriptFiles struct {
	ScriptName string // e.g. "app.js"
	ScriptPath string // absolute/relative path to serve for ScriptName
	MapName    string // e.g. "app.js.map"
	MapPath    string
}

// FileServer implements the five-predicate catch-all chain. DevContentRoot
// is only consulted when Dev is true; when empty in dev mode, step 3 is
// skipped.
type FileServer struct {
	Dev            bool
	Scripts        ScriptFiles
	Redirects      *redirect.Engine
	DevContentRoot string
	IndexPath      string
}

// New builds a FileServer. redirects may be nil, meaning no rules.
func New(dev bool, scripts ScriptFiles, redirects *redirect.Engine, devContentRoot, indexPath string) *FileServer {
	return &FileServer{
		Dev:            dev,
		Scripts:        scripts,
		Redirects:      redirects,
		DevContentRoot: devContentRoot,
		IndexPath:      indexPath,
	}
}

// Handler returns the Fiber handler for the catch-all route
// "{prefix}/{params...}".
func (f *FileServer) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tail := "/" + strings.TrimPrefix(c.Params("*"), "/")

		if handled, err := f.serveScriptFile(c, tail); handled {
			return err
		}
		if handled, err := f.applyRedirect(c, tail); handled {
			return err
		}
		if f.Dev {
			if handled, err := f.serveDevContent(c, tail); handled {
				return err
			}
		}
		if !acceptsHTML(c) {
			return fiber.ErrNotFound
		}
		return f.serveIndex(c)
	}
}

func (f *FileServer) serveScriptFile(c *fiber.Ctx, tail string) (bool, error) {
	last := filepath.Base(tail)
	switch last {
	case f.Scripts.ScriptName:
		if f.Scripts.ScriptPath == "" {
			return false, nil
		}
		return true, c.SendFile(f.Scripts.ScriptPath)
	case f.Scripts.MapName:
		if f.Scripts.MapPath == "" {
			return false, nil
		}
		return true, c.SendFile(f.Scripts.MapPath)
	}
	return false, nil
}

func (f *FileServer) applyRedirect(c *fiber.Ctx, tail string) (bool, error) {
	if f.Redirects == nil {
		return false, nil
	}
	target, changed := f.Redirects.Apply(tail)
	if !changed {
		return false, nil
	}
	return true, c.Redirect(target, fiber.StatusMovedPermanently)
}

func (f *FileServer) serveDevContent(c *fiber.Ctx, tail string) (bool, error) {
	if f.DevContentRoot == "" {
		return false, nil
	}
	target := filepath.Join(f.DevContentRoot, filepath.FromSlash(tail))
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return false, nil
	}
	return true, c.SendFile(target)
}

func (f *FileServer) serveIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendFile(f.IndexPath)
}

// acceptsHTML reports whether the request's Accept header admits text/html,
// used to guard the index fallback against subresource 404s (missing
// scripts, images, etc. should 404, not silently serve the index page).
func acceptsHTML(c *fiber.Ctx) bool {
	accept := c.Get(fiber.HeaderAccept)
	if accept == "" {
		return true // no Accept header: treat permissively, as browsers' navigations usually set one
	}
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
