// Package assemble implements RoutingAssembler: given an environment,
// layout, site config, and optional bundle, it installs the right
// combination of StatusFeed, ApiDispatcher, StreamMultiplexer, and
// FileServer routes onto a Fiber app.
package assemble

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/sitewire/sitewire/apidispatch"
	"github.com/sitewire/sitewire/config"
	"github.com/sitewire/sitewire/fileserver"
	"github.com/sitewire/sitewire/neutral"
	"github.com/sitewire/sitewire/redirect"
	"github.com/sitewire/sitewire/routeprefix"
	"github.com/sitewire/sitewire/statusfeed"
	"github.com/sitewire/sitewire/stream"
)

// Assembly is the set of long-lived components RoutingAssembler wires up,
// returned so a composition root can start background work (the stream
// registry is shared with the bundle for out-of-band broadcast, for
// instance) without reaching back into the Fiber app.
type Assembly struct {
	Registry    *stream.Registry
	Multiplexer *stream.Multiplexer
}

// Assemble validates prerequisites and installs routes for one of the four
// (environment, layout) assemblies onto app. bundle may be nil — the
// fullstack assemblies then install no API or stream routes, and the rest
// of their routes as usual.
func Assemble(app fiber.Router, env config.Environment, layout config.Layout, cfg config.SiteConfig, bundle neutral.Bundle, globals *config.Globals, logger config.Logger) (*Assembly, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, &config.ConfigurationError{Reason: "invalid port " + strconv.Itoa(cfg.Port)}
	}
	prefix := routeprefix.New(cfg.BasePath)

	switch {
	case env == config.Dev && layout == config.Fullstack:
		return assembleDevFullstack(app, prefix, cfg, bundle, globals, logger)
	case env == config.Dev && layout == config.Static:
		return assembleDevStatic(app, prefix, cfg, globals, logger)
	case env == config.Prod && layout == config.Fullstack:
		return assembleProdFullstack(app, prefix, cfg, bundle, logger)
	case env == config.Prod && layout == config.Static:
		return assembleProdStatic(app, prefix, cfg)
	default:
		return nil, &config.ConfigurationError{Reason: "unrecognized environment/layout combination"}
	}
}

func buildRedirectEngine(rules []config.RedirectRule) (*redirect.Engine, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	compiled := make([]redirect.Rule, 0, len(rules))
	for _, r := range rules {
		rule, err := redirect.NewRule(r.From, r.To)
		if err != nil {
			return nil, &config.ConfigurationError{Reason: "invalid redirect rule " + r.From + ": " + err.Error()}
		}
		compiled = append(compiled, rule)
	}
	return redirect.New(compiled...), nil
}

func validateFullstackPrerequisites(siteRoot string) error {
	if siteRoot == "" {
		return &config.ConfigurationError{Reason: "site root is not configured"}
	}
	info, err := os.Stat(siteRoot)
	if err != nil || !info.IsDir() {
		return &config.ConfigurationError{Reason: "site root " + siteRoot + " does not exist"}
	}
	systemDir := filepath.Join(siteRoot, "system")
	if info, err := os.Stat(systemDir); err != nil || !info.IsDir() {
		return &config.ConfigurationError{
			Reason: "site root " + siteRoot + " is missing a system/ subfolder; it looks like the site was exported as static — use the static layout instead",
		}
	}
	return nil
}

func assembleDevFullstack(app fiber.Router, prefix *routeprefix.Prefixer, cfg config.SiteConfig, bundle neutral.Bundle, globals *config.Globals, logger config.Logger) (*Assembly, error) {
	if err := validateFullstackPrerequisites(cfg.Paths.ProdSiteRoot); err != nil {
		// Dev mode tolerates a missing exported site; only a configured but
		// broken one is fatal.
		if cfg.Paths.ProdSiteRoot != "" {
			return nil, err
		}
	}

	app.Get(prefix.Join("/api/kobweb-status"), statusfeed.Handler(globals))

	asm := &Assembly{}

	if bundle != nil {
		dispatcher := apidispatch.New(bundle, config.Dev, logger, prefix.Join("/api"))
		dispatcher.Register(app, prefix.Join("/api/*"))

		asm.Registry = stream.NewRegistry()
		asm.Multiplexer = stream.New(asm.Registry, bundle, config.Dev, logger, cfg.Streaming)
		app.Get(prefix.Join("/api/kobweb-streams"), stream.Handler(asm.Multiplexer)...)
	}

	engine, err := buildRedirectEngine(cfg.Redirects)
	if err != nil {
		return nil, err
	}
	fs := fileserver.New(true, scriptFiles(cfg), engine, cfg.Paths.DevContentRoot, filepath.Join(cfg.Paths.DevContentRoot, "index.html"))
	app.Get(prefix.Join("/*"), fs.Handler())

	return asm, nil
}

func assembleDevStatic(app fiber.Router, prefix *routeprefix.Prefixer, cfg config.SiteConfig, globals *config.Globals, logger config.Logger) (*Assembly, error) {
	app.Get(prefix.Join("/api/kobweb-status"), statusfeed.Handler(globals))

	// Bundle is always nil in dev+static: API and stream paths fall through
	// to the catch-all chain like any other unmatched path, so they get 404
	// when the Accept header is present and admits neither text/html nor
	// */*, and the index page otherwise.
	engine, err := buildRedirectEngine(cfg.Redirects)
	if err != nil {
		return nil, err
	}
	fs := fileserver.New(true, scriptFiles(cfg), engine, cfg.Paths.DevContentRoot, filepath.Join(cfg.Paths.DevContentRoot, "index.html"))
	app.Get(prefix.Join("/*"), fs.Handler())

	return &Assembly{}, nil
}

func assembleProdFullstack(app fiber.Router, prefix *routeprefix.Prefixer, cfg config.SiteConfig, bundle neutral.Bundle, logger config.Logger) (*Assembly, error) {
	if err := validateFullstackPrerequisites(cfg.Paths.ProdSiteRoot); err != nil {
		return nil, err
	}

	asm := &Assembly{}

	if bundle != nil {
		dispatcher := apidispatch.New(bundle, config.Prod, logger, prefix.Join("/api"))
		dispatcher.Register(app, prefix.Join("/api/*"))

		if bundle.NumApiStreams() > 0 {
			asm.Registry = stream.NewRegistry()
			asm.Multiplexer = stream.New(asm.Registry, bundle, config.Prod, logger, cfg.Streaming)
			app.Get(prefix.Join("/api/kobweb-streams"), stream.Handler(asm.Multiplexer)...)
		}
	}

	registerExplicitFileRoutes(app, prefix, cfg.Paths.ProdSiteRoot)

	engine, err := buildRedirectEngine(cfg.Redirects)
	if err != nil {
		return nil, err
	}
	fs := fileserver.New(false, scriptFiles(cfg), engine, "", filepath.Join(cfg.Paths.ProdSiteRoot, "index.html"))
	app.Get(prefix.Join("/*"), fs.Handler())

	return asm, nil
}

func assembleProdStatic(app fiber.Router, prefix *routeprefix.Prefixer, cfg config.SiteConfig) (*Assembly, error) {
	info, err := os.Stat(cfg.Paths.ProdSiteRoot)
	if err != nil || !info.IsDir() {
		return nil, &config.ConfigurationError{Reason: "site root " + cfg.Paths.ProdSiteRoot + " does not exist"}
	}

	engine, err := buildRedirectEngine(cfg.Redirects)
	if err != nil {
		return nil, err
	}

	app.Get(prefix.Join("/*"), func(c *fiber.Ctx) error {
		tail := c.Params("*")
		if engine != nil {
			if target, changed := engine.Apply("/" + tail); changed {
				return c.Redirect(target, fiber.StatusMovedPermanently)
			}
		}
		return serveStaticWithHTMLResolution(c, cfg.Paths.ProdSiteRoot, tail)
	})

	return &Assembly{}, nil
}

// serveStaticWithHTMLResolution tries tail, then tail+".html", then 404.html.
func serveStaticWithHTMLResolution(c *fiber.Ctx, siteRoot, tail string) error {
	candidate := filepath.Join(siteRoot, filepath.FromSlash(tail))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return c.SendFile(candidate)
	}
	withHTML := candidate + ".html"
	if info, err := os.Stat(withHTML); err == nil && !info.IsDir() {
		return c.SendFile(withHTML)
	}
	notFound := filepath.Join(siteRoot, "404.html")
	if info, err := os.Stat(notFound); err == nil && !info.IsDir() {
		c.Status(fiber.StatusNotFound)
		return c.SendFile(notFound)
	}
	return fiber.ErrNotFound
}

// registerExplicitFileRoutes pre-registers GET handlers for every file
// under resources/ and pages/ in siteRoot, with pages/foo/index.html
// additionally served at prefix.Join("/foo/").
func registerExplicitFileRoutes(app fiber.Router, prefix *routeprefix.Prefixer, siteRoot string) {
	for _, sub := range []string{"resources", "pages"} {
		root := filepath.Join(siteRoot, sub)
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		walkFiles(root, entries, func(relPath, absPath string) {
			urlPath := prefix.Join("/" + filepath.ToSlash(relPath))
			app.Get(urlPath, serveFileHandler(absPath))

			if sub == "pages" && filepath.Base(relPath) == "index.html" {
				dir := filepath.Dir(relPath)
				if dir == "." {
					return
				}
				extensionless := prefix.Join("/" + filepath.ToSlash(dir) + "/")
				app.Get(extensionless, serveFileHandler(absPath))
			}
		})
	}
}

func serveFileHandler(absPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendFile(absPath)
	}
}

func walkFiles(root string, entries []os.DirEntry, visit func(relPath, absPath string)) {
	for _, e := range entries {
		abs := filepath.Join(root, e.Name())
		if e.IsDir() {
			sub, err := os.ReadDir(abs)
			if err != nil {
				continue
			}
			walkFiles(abs, sub, func(relPath, absPath string) {
				visit(filepath.Join(e.Name(), relPath), absPath)
			})
			continue
		}
		visit(e.Name(), abs)
	}
}

func scriptFiles(cfg config.SiteConfig) fileserver.ScriptFiles {
	if cfg.Paths.ScriptPath == "" {
		return fileserver.ScriptFiles{}
	}
	name := filepath.Base(cfg.Paths.ScriptPath)
	return fileserver.ScriptFiles{
		ScriptName: name,
		ScriptPath: cfg.Paths.ScriptPath,
		MapName:    name + ".map",
		MapPath:    cfg.Paths.ScriptPath + ".map",
	}
}
