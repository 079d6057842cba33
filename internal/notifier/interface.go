package notifier

import (
	"context"

	"github.com/newthinker/archivist/internal/core"
)

// Notifier defines the interface for run summary notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers the summary of a finished phase
	Send(ctx context.Context, summary *core.RunSummary) error
}
