// Package config holds the immutable site configuration, the dev/prod and
// fullstack/static mode enums, and the process-wide mutable build-status
// globals. Parsing and schema validation of the on-disk config file is
// minimal — Load is a thin convenience for the example composition root,
// not something the core packages depend on.
package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment selects the dev/prod server mode.
type Environment string

const (
	Dev  Environment = "dev"
	Prod Environment = "prod"
)

// Layout selects the fullstack/static site layout.
type Layout string

const (
	Fullstack Layout = "fullstack"
	Static    Layout = "static"
)

// RedirectRule is one ordered (from, to) pair of the RedirectEngine's rule
// list. From is a regex anchored at both ends; To may reference capture
// groups with $1..$9.
type RedirectRule struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// StreamingConfig controls websocket keepalive behavior. PingPeriod == 0
// disables keepalive pings.
type StreamingConfig struct {
	PingPeriod time.Duration `yaml:"pingPeriod"`
	Timeout    time.Duration `yaml:"timeout"`
}

// FilePaths gives the dev/prod content roots and script/bundle locations.
type FilePaths struct {
	// DevContentRoot is the single-file content root served (with live
	// reload) in dev mode.
	DevContentRoot string `yaml:"devContentRoot"`
	// ProdSiteRoot is the exported site directory served in prod mode; it
	// must contain a "system/" subfolder for fullstack sites.
	ProdSiteRoot string `yaml:"prodSiteRoot"`
	// ScriptPath is the path of the compiled client script (e.g.
	// "build/site.js"). It is served as given, not joined onto a content
	// root; requests whose last segment is its base name (or that name plus
	// ".map") are answered from ScriptPath (or ScriptPath + ".map").
	ScriptPath string `yaml:"scriptPath"`
	// ApiBundlePath is optional. No package in this repository reads it:
	// assemble.Assemble takes the bundle as an argument, and
	// cmd/sitewire-server passes a nil bundle.
	ApiBundlePath string `yaml:"apiBundlePath"`
}

// SiteConfig is immutable once loaded.
type SiteConfig struct {
	Title                 string            `yaml:"title"`
	BasePath              string            `yaml:"basePath"`
	Port                  int               `yaml:"port"`
	Redirects             []RedirectRule    `yaml:"redirects"`
	Streaming             StreamingConfig   `yaml:"streaming"`
	NativeLibraryMappings map[string]string `yaml:"nativeLibraryMappings"`
	Paths                 FilePaths         `yaml:"paths"`
}

// Load reads and decodes a YAML site config file. This is a convenience for
// example/demo composition roots; it performs no schema validation beyond
// what yaml.v3 itself does, and the core routing/streaming packages never
// call it directly.
func Load(path string) (SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg SiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Globals is the process-wide, dev-only mutable build status: version,
// status text, and whether the status represents an error. It is read by
// StatusFeed and written by an external build watcher. Updates are
// published with an atomic pointer swap so StatusFeed's polling reads
// never need a lock; eventual consistency across the two fields is fine.
type Globals struct {
	snapshot atomic.Pointer[globalsSnapshot]
}

type globalsSnapshot struct {
	version       int
	status        string
	hasStatus     bool
	isStatusError bool
}

// NewGlobals returns a Globals initialized to version 0 and no status.
func NewGlobals() *Globals {
	g := &Globals{}
	g.snapshot.Store(&globalsSnapshot{})
	return g
}

// Store publishes a new snapshot. The build watcher calls this whenever the
// build version or status message changes.
func (g *Globals) Store(version int, status string, hasStatus, isStatusError bool) {
	g.snapshot.Store(&globalsSnapshot{
		version:       version,
		status:        status,
		hasStatus:     hasStatus,
		isStatusError: isStatusError,
	})
}

// Version returns the current build version.
func (g *Globals) Version() int {
	return g.snapshot.Load().version
}

// Status returns the current status text and whether one is set, plus
// whether it represents an error state.
func (g *Globals) Status() (text string, ok bool, isError bool) {
	s := g.snapshot.Load()
	return s.status, s.hasStatus, s.isStatusError
}

// Logger is the injected logging capability. The core never talks to a
// concrete logging backend directly.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ConfigurationError is fatal at startup: missing site root, missing
// system subfolder, invalid port, etc.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// BundleLoadError is a warning-level condition: the API bundle path was
// configured but the file is absent. Assembly continues without a bundle.
type BundleLoadError struct {
	Path string
}

func (e *BundleLoadError) Error() string {
	return fmt.Sprintf("api bundle not found at %q, continuing without one", e.Path)
}
