package notifier

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/newthinker/archivist/internal/core"
)

// Headline renders a one-line description of a finished run, e.g.
// "archive run 9f1c: 12 succeeded, 0 skipped, 1 failed, 4.2 MB in 3s".
func Headline(s *core.RunSummary) string {
	return fmt.Sprintf("%s run %s: %d succeeded, %d skipped, %d failed, %s in %s",
		s.Phase, shortID(s.RunID), s.Succeeded, s.Skipped, s.Failed,
		humanize.Bytes(uint64(max(s.Bytes, 0))), s.Duration().Round(time.Millisecond))
}

// Status is "ok" for a clean run and "partial" when any file failed.
func Status(s *core.RunSummary) string {
	if s.Failed > 0 {
		return "partial"
	}
	return "ok"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
