package sheets

import (
	"context"

	"emitrack/internal/core"
)

// LedgerWriter mirrors ledger entries to an external spreadsheet.
type LedgerWriter interface {
	// AppendEntry writes one row and returns a reference to where it landed.
	AppendEntry(ctx context.Context, e core.LedgerEntry) (rowRef string, err error)
}
