// Package tracewalk implements the stack-trace truncation and formatting
// algorithm shared by apidispatch and stream: walk a cause chain, emit each
// cause's type+message followed by its frames taken while a stop predicate
// is false and the frame is not a duplicate of the previous cause's
// topmost frame, and prefix every cause after the first with "caused by: ".
package tracewalk

import "strings"

// Cause is one throwable/error in a cause chain, oldest-cause-last (i.e.
// Causes[0] is the error actually returned to the caller, Causes[1] is what
// it wrapped, and so on) matching how Go's error wrapping is normally
// unwrapped with errors.Unwrap.
type Cause struct {
	Type    string
	Message string
	Frames  []string // one call-stack frame per entry, most recent call first
}

// Truncate walks causes in order, including frames only until (exclusive
// of) the first frame satisfying stop, and stripping duplicate leading
// frames shared with the previous cause's topmost frame. The result is the
// plain-text trace shown to the developer in dev mode.
func Truncate(causes []Cause, stop func(frame string) bool) string {
	var b strings.Builder
	var prevTopFrame string
	for i, cause := range causes {
		if i > 0 {
			b.WriteString("caused by: ")
		}
		b.WriteString(cause.Type)
		if cause.Message != "" {
			b.WriteString(": ")
			b.WriteString(cause.Message)
		}
		b.WriteString("\n")

		skippedPrevDuplicate := false
		for _, frame := range cause.Frames {
			if stop != nil && stop(frame) {
				break
			}
			if !skippedPrevDuplicate && i > 0 && frame == prevTopFrame {
				skippedPrevDuplicate = true
				continue
			}
			skippedPrevDuplicate = true
			b.WriteString("\tat ")
			b.WriteString(frame)
			b.WriteString("\n")
		}
		if len(cause.Frames) > 0 {
			prevTopFrame = cause.Frames[0]
		}
	}
	return b.String()
}
