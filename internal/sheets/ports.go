package sheets

import (
	"context"

	"compras/internal/core"
)

// Ports for outbound adapters.
type (
	// TableSource obtains the raw export for one year.
	TableSource interface {
		// Name identifies the source in logs and fetch records.
		Name() string
		// FetchTable returns the export as a grid of cells. Transport and
		// payload problems are returned as errors; cell contents are not
		// interpreted here.
		FetchTable(ctx context.Context, year int) (core.RawTable, error)
	}
)
