package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"emitrack/internal/core"
	"emitrack/internal/storage"

	ports "emitrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Ledger"); the entry's year is prefixed.
	sheetBase string
}

var _ ports.LedgerWriter = (*Client)(nil)

type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// ClientOptions are appended after the credential options; tests use
	// them to point the client at a fake endpoint.
	ClientOptions []goption.ClientOption
}

// New creates a Sheets client authenticated with a service account. Inline
// JSON wins over a file; with neither, Application Default Credentials are used.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Ledger"
	}

	clientOpts, err := credentialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", spreadsheetID,
		"sheet_base", base)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base}, nil
}

func credentialOptions(ctx context.Context, opts Options) ([]goption.ClientOption, error) {
	scopes := goption.WithScopes(gsheet.SpreadsheetsScope)
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []goption.ClientOption{goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)), scopes}, nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials file", "path", opts.CredentialsFile)
		return []goption.ClientOption{goption.WithCredentialsJSON(data), scopes}, nil
	default:
		slog.InfoContext(ctx, "Using application default credentials")
		return []goption.ClientOption{scopes}, nil
	}
}

// AppendEntry appends the entry to the "<year> <base>" sheet, which must
// already exist.
func (c *Client) AppendEntry(ctx context.Context, e core.LedgerEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, storage.EntryDate(e).Year())
	rng := fmt.Sprintf("%s!A:G", quoteSheet(sheet))
	vr := &gsheet.ValueRange{Values: [][]any{entryRow(e)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// EnsureHeader writes the column header into row 1 of the year's sheet when
// that row is empty.
func (c *Client) EnsureHeader(ctx context.Context, year int) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := quoteSheet(yearPrefixedName(c.sheetBase, year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A1:G1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{ledgerHeader}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!A1:G1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}
