// Package statusfeed implements the dev-only build status SSE endpoint:
// a poll loop that streams keepalive comments plus version/status change
// events to the browser over a long-lived HTTP response.
package statusfeed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sitewire/sitewire/config"
)

// TickInterval is the polling period between status checks.
const TickInterval = 300 * time.Millisecond

// Handler returns the Fiber handler for GET /api/kobweb-status. It streams
// a keepalive comment every tick, plus version/status events whenever
// globals change since the last transmission.
func Handler(globals *config.Globals) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			runFeed(w, globals, TickInterval)
		})
		return nil
	}
}

// runFeed is the polling loop body, split out (and parameterized on the
// tick interval) so it can be driven directly in tests against a plain
// bufio.Writer without waiting on the spec's real 300ms period.
func runFeed(w *bufio.Writer, globals *config.Globals, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastVersion := -1
	lastStatusText := ""
	lastHasStatus := false

	for range ticker.C {
		if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
			return
		}

		version := globals.Version()
		if version != lastVersion {
			if _, err := fmt.Fprintf(w, "event: version\ndata: %d\n\n", version); err != nil {
				return
			}
			lastVersion = version
		}

		text, hasStatus, isError := globals.Status()
		if hasStatus != lastHasStatus || text != lastStatusText {
			payload, _ := json.Marshal(struct {
				Text    string `json:"text"`
				IsError bool   `json:"isError"`
			}{Text: text, IsError: isError})
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload); err != nil {
				return
			}
			lastStatusText = text
			lastHasStatus = hasStatus
		}

		if err := w.Flush(); err != nil {
			return
		}
	}
}
