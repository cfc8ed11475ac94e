package sheets

import (
	"context"

	"gamezone/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportExporter writes a rendered report and returns where it landed.
	ReportExporter interface {
		ExportReport(ctx context.Context, r Report) (ref string, err error)
	}

	// ActivityAppender adds one journal row per mutation event.
	ActivityAppender interface {
		AppendActivity(ctx context.Context, ev core.MutationEvent) (ref string, err error)
	}
)
