package google

import (
	"fmt"
	"strconv"
	"strings"

	"emitrack/internal/core"
	"emitrack/internal/storage"
)

// Column order of the ledger sheet.
var ledgerHeader = []any{"Date", "Title", "Amount", "Category", "Source", "Destination", "Paid"}

// entryRow renders a ledger entry as one sheet row. Amounts go out as plain
// decimals so USER_ENTERED parses them as numbers.
func entryRow(e core.LedgerEntry) []any {
	paid := "FALSE"
	if e.IsPaid {
		paid = "TRUE"
	}
	return []any{
		storage.EntryDate(e).Format("2006-01-02"),
		strings.TrimSpace(e.Title),
		e.Amount.String(),
		string(e.Category),
		e.Source,
		e.Destination,
		paid,
	}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// quoteSheet wraps a sheet name for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
