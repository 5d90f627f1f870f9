package statusfeed

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sitewire/sitewire/config"
)

func TestFeedEmitsKeepaliveAndVersionChange(t *testing.T) {
	globals := config.NewGlobals()
	globals.Store(1, "", false, false)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	done := make(chan struct{})
	go func() {
		runFeed(w, globals, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	globals.Store(2, "building", true, false)
	time.Sleep(30 * time.Millisecond)

	w.Flush()
	out := buf.String()

	if !strings.Contains(out, ": keepalive") {
		t.Errorf("expected keepalive comment, got %q", out)
	}
	if !strings.Contains(out, "event: version\ndata: 1") {
		t.Errorf("expected initial version event, got %q", out)
	}
	if !strings.Contains(out, "event: version\ndata: 2") {
		t.Errorf("expected version-change event, got %q", out)
	}
	if !strings.Contains(out, `event: status`) || !strings.Contains(out, `"text":"building"`) {
		t.Errorf("expected status event with text, got %q", out)
	}

	// runFeed never returns on its own in this test (the writer never
	// errors), so nothing to wait on beyond the sleeps above; the
	// goroutine is abandoned at test end, mirroring a real client
	// disconnect tearing down the stream.
	select {
	case <-done:
		t.Fatal("runFeed returned unexpectedly; a write must have failed")
	default:
	}
}
