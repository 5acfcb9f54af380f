package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"finbot/internal/cache"
	"finbot/internal/core"
	ports "finbot/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client talks to the Sheets API with one service shared by every book.
type Client struct {
	svc    *gsheet.Service
	sheets *cache.LRUCache[ports.Sheet]
}

// Book is the ledger stored in a single spreadsheet; each partition is a worksheet.
type Book struct {
	client        *Client
	spreadsheetID string
}

// Ensure interface conformance
var (
	_ ports.Opener = (*Client)(nil)
	_ ports.Ledger = (*Book)(nil)
)

// Credentials selects the service account used by the client.
// JSON wins over File when both are set.
type Credentials struct {
	JSON string
	File string
}

// New wraps an existing service. sheetCache may be nil to disable caching.
func New(svc *gsheet.Service, sheetCache *cache.LRUCache[ports.Sheet]) *Client {
	return &Client{svc: svc, sheets: sheetCache}
}

// NewWithCredentials creates a Sheets client authenticated as a service account.
func NewWithCredentials(ctx context.Context, creds Credentials, sheetCache *cache.LRUCache[ports.Sheet]) (*Client, error) {
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, sheetCache), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when nothing is configured.
func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

var spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID accepts either a bare spreadsheet ID or a full sheet URL.
func SpreadsheetID(target string) (string, error) {
	target = strings.TrimSpace(target)
	if m := spreadsheetURL.FindStringSubmatch(target); m != nil {
		return m[1], nil
	}
	if target == "" || strings.ContainsAny(target, "/ ") {
		return "", fmt.Errorf("invalid spreadsheet reference %q", target)
	}
	return target, nil
}

// Open returns the book stored in the target spreadsheet. No request is made.
func (c *Client) Open(_ context.Context, target string) (ports.Ledger, error) {
	id, err := SpreadsheetID(target)
	if err != nil {
		return nil, err
	}
	return &Book{client: c, spreadsheetID: id}, nil
}

// ResolveOrCreate returns the worksheet titled title, adding it with the
// ledger header when missing. Only existing sheets are cached, so creation is
// always preceded by a live lookup. Two concurrent callers may still both
// create; the second AddSheet then fails on the duplicate title.
func (b *Book) ResolveOrCreate(ctx context.Context, title string) (ports.Sheet, error) {
	if s, ok := b.cached(title); ok {
		return s, nil
	}
	s, found, err := b.lookup(ctx, title)
	if err != nil {
		return ports.Sheet{}, err
	}
	if found {
		return s, nil
	}
	return b.create(ctx, title)
}

func (b *Book) Append(ctx context.Context, s ports.Sheet, tx core.Transaction) (string, error) {
	if b.client.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	vr := &gsheet.ValueRange{Values: [][]any{toRow(tx)}}
	resp, err := b.client.svc.Spreadsheets.Values.Append(b.spreadsheetID, columnsRange(s.Title), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		// The sheet may have been removed by hand; forget it so the next call looks it up again.
		b.forget(s.Title)
		return "", fmt.Errorf("append to sheet %q: %w", s.Title, err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return columnsRange(s.Title), nil
}

func (b *Book) ReadAll(ctx context.Context, title string) ([]core.Transaction, error) {
	if _, found, err := b.lookup(ctx, title); err != nil {
		return nil, err
	} else if !found {
		return nil, fmt.Errorf("read %q: %w", title, core.ErrNotFound)
	}

	rng := columnsRange(title)
	resp, err := b.client.svc.Spreadsheets.Values.Get(b.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows := toStrings(resp.Values)
	if len(rows) == 0 {
		return nil, nil
	}
	txs, err := ports.ParseRows(rows[1:])
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	return txs, nil
}

// lookup lists the worksheets of the spreadsheet and replaces its cached
// handles with them, so sheets deleted or renamed by hand are dropped.
func (b *Book) lookup(ctx context.Context, title string) (ports.Sheet, bool, error) {
	if b.client.svc == nil {
		return ports.Sheet{}, false, errors.New("sheets service not initialized")
	}
	resp, err := b.client.svc.Spreadsheets.Get(b.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return ports.Sheet{}, false, fmt.Errorf("list sheets of %s: %w", b.spreadsheetID, err)
	}
	var (
		match ports.Sheet
		found bool
	)
	b.forgetAll()
	for _, sh := range resp.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		s := ports.Sheet{ID: sh.Properties.SheetId, Title: sh.Properties.Title}
		b.remember(s)
		if s.Title == title {
			match, found = s, true
		}
	}
	return match, found, nil
}

func (b *Book) create(ctx context.Context, title string) (ports.Sheet, error) {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{
					Title: title,
					GridProperties: &gsheet.GridProperties{
						RowCount:    1,
						ColumnCount: int64(len(ports.Header)),
					},
				},
			},
		}},
	}
	resp, err := b.client.svc.Spreadsheets.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return ports.Sheet{}, fmt.Errorf("add sheet %q: %w", title, err)
	}
	s := ports.Sheet{Title: title}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		s.ID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	headerRange := quoteTitle(title) + "!A1:D1"
	_, err = b.client.svc.Spreadsheets.Values.Update(b.spreadsheetID, headerRange, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return ports.Sheet{}, fmt.Errorf("write header of %q: %w", title, err)
	}

	slog.InfoContext(ctx, "Created ledger sheet", "spreadsheet_id", b.spreadsheetID, "title", title, "sheet_id", s.ID)
	b.remember(s)
	return s, nil
}

func (b *Book) cacheKey(title string) string {
	return b.spreadsheetID + "\x00" + title
}

func (b *Book) cached(title string) (ports.Sheet, bool) {
	if b.client.sheets == nil {
		return ports.Sheet{}, false
	}
	return b.client.sheets.Get(b.cacheKey(title))
}

func (b *Book) remember(s ports.Sheet) {
	if b.client.sheets != nil {
		b.client.sheets.Set(b.cacheKey(s.Title), s)
	}
}

func (b *Book) forget(title string) {
	if b.client.sheets != nil {
		b.client.sheets.Delete(b.cacheKey(title))
	}
}

func (b *Book) forgetAll() {
	if b.client.sheets != nil {
		b.client.sheets.DeletePrefix(b.spreadsheetID + "\x00")
	}
}
