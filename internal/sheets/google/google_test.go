package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"finbot/internal/cache"
	"finbot/internal/core"
	ports "finbot/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets emulates the handful of Sheets REST endpoints the ledger uses.
type fakeSheets struct {
	mu     sync.Mutex
	sheets []*fakeSheet
	nextID int64
	calls  map[string]int
}

type fakeSheet struct {
	id    int64
	title string
	rows  [][]string
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{nextID: 100, calls: map[string]int{}}
}

func (f *fakeSheets) find(title string) *fakeSheet {
	for _, s := range f.sheets {
		if s.title == title {
			return s
		}
	}
	return nil
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	id, rest, _ := strings.Cut(path, "/")
	switch {
	case r.Method == http.MethodGet && !strings.Contains(path, "/"):
		f.calls["get"]++
		var out gsheet.Spreadsheet
		out.SpreadsheetId = id
		for _, s := range f.sheets {
			out.Sheets = append(out.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{SheetId: s.id, Title: s.title}})
		}
		writeJSON(w, out)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls["batchUpdate"]++
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		props := req.Requests[0].AddSheet.Properties
		if f.find(props.Title) != nil {
			http.Error(w, `{"error":{"code":400,"message":"duplicate sheet"}}`, http.StatusBadRequest)
			return
		}
		f.nextID++
		f.sheets = append(f.sheets, &fakeSheet{id: f.nextID, title: props.Title})
		writeJSON(w, gsheet.BatchUpdateSpreadsheetResponse{Replies: []*gsheet.Response{{
			AddSheet: &gsheet.AddSheetResponse{Properties: &gsheet.SheetProperties{SheetId: f.nextID, Title: props.Title}},
		}}})
	case strings.HasPrefix(rest, "values/"):
		rng := strings.TrimPrefix(rest, "values/")
		isAppend := strings.HasSuffix(rng, ":append")
		rng = strings.TrimSuffix(rng, ":append")
		s := f.find(titleOf(rng))
		if s == nil {
			http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
			return
		}
		switch {
		case r.Method == http.MethodGet:
			f.calls["values"]++
			out := gsheet.ValueRange{Range: rng}
			for _, row := range s.rows {
				cells := make([]any, len(row))
				for i, c := range row {
					cells[i] = c
				}
				out.Values = append(out.Values, cells)
			}
			writeJSON(w, out)
		case r.Method == http.MethodPut:
			f.calls["update"]++
			s.rows = append([][]string{decodeRow(r)}, s.rows...)
			writeJSON(w, gsheet.UpdateValuesResponse{UpdatedRange: rng})
		case isAppend:
			f.calls["append"]++
			s.rows = append(s.rows, decodeRow(r))
			writeJSON(w, gsheet.AppendValuesResponse{Updates: &gsheet.UpdateValuesResponse{
				UpdatedRange: fmt.Sprintf("%s!A%d:D%d", quoteTitle(s.title), len(s.rows), len(s.rows)),
			}})
		}
	default:
		http.NotFound(w, r)
	}
}

func titleOf(rng string) string {
	i := strings.LastIndex(rng, "!")
	if i >= 0 {
		rng = rng[:i]
	}
	rng = strings.TrimSuffix(strings.TrimPrefix(rng, "'"), "'")
	return strings.ReplaceAll(rng, "''", "'")
}

func decodeRow(r *http.Request) []string {
	var vr gsheet.ValueRange
	json.NewDecoder(r.Body).Decode(&vr)
	if len(vr.Values) == 0 {
		return nil
	}
	row := make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		row[i] = fmt.Sprint(v)
	}
	return row
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestBook(t *testing.T, withCache bool) (*Book, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	var c *cache.LRUCache[ports.Sheet]
	if withCache {
		c = cache.NewLRUCache[ports.Sheet](16, time.Minute)
	}
	ledger, err := New(svc, c).Open(context.Background(), "https://docs.google.com/spreadsheets/d/book-1/edit")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return ledger.(*Book), fake
}

func TestResolveOrCreateAddsSheetWithHeader(t *testing.T) {
	ctx := context.Background()
	book, fake := newTestBook(t, false)

	first, err := book.ResolveOrCreate(ctx, "October 2024")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := book.ResolveOrCreate(ctx, "October 2024")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same sheet, got %+v and %+v", first, second)
	}
	if fake.calls["batchUpdate"] != 1 {
		t.Fatalf("expected one sheet creation, got %d", fake.calls["batchUpdate"])
	}
	if fake.calls["get"] != 2 {
		t.Fatalf("expected a lookup before every creation check, got %d", fake.calls["get"])
	}
	header := fake.find("October 2024").rows[0]
	if strings.Join(header, "|") != "Date|Type|Amount|Notes" {
		t.Fatalf("unexpected header %v", header)
	}
}

func TestResolveOrCreateUsesCache(t *testing.T) {
	ctx := context.Background()
	book, fake := newTestBook(t, true)

	if _, err := book.ResolveOrCreate(ctx, "October 2024"); err != nil {
		t.Fatal(err)
	}
	if _, err := book.ResolveOrCreate(ctx, "October 2024"); err != nil {
		t.Fatal(err)
	}
	if fake.calls["get"] != 1 {
		t.Fatalf("expected cached second resolve, got %d lookups", fake.calls["get"])
	}
}

func TestLookupDropsSheetsDeletedByHand(t *testing.T) {
	ctx := context.Background()
	book, fake := newTestBook(t, true)

	if _, err := book.ResolveOrCreate(ctx, "October 2024"); err != nil {
		t.Fatal(err)
	}
	fake.mu.Lock()
	fake.sheets = nil
	fake.mu.Unlock()

	if _, err := book.ReadAll(ctx, "September 2024"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := book.cached("October 2024"); ok {
		t.Fatal("expected the deleted sheet to leave the cache")
	}

	if _, err := book.ResolveOrCreate(ctx, "October 2024"); err != nil {
		t.Fatal(err)
	}
	if fake.calls["batchUpdate"] != 2 {
		t.Fatalf("expected the sheet to be created again, got %d creations", fake.calls["batchUpdate"])
	}
}

func TestAppendAndReadAll(t *testing.T) {
	ctx := context.Background()
	book, fake := newTestBook(t, true)

	sh, err := book.ResolveOrCreate(ctx, "October 2024")
	if err != nil {
		t.Fatal(err)
	}
	salary, _ := core.NewTransaction(core.Income, 100000, "Salary", core.NewDate(2024, 10, 1))
	food, _ := core.NewTransaction(core.Outcome, 25000, "Food", core.NewDate(2024, 10, 2))

	ref, err := book.Append(ctx, sh, salary)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "'October 2024'!A2:D2" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if _, err := book.Append(ctx, sh, food); err != nil {
		t.Fatalf("append: %v", err)
	}
	if fake.calls["append"] != 2 {
		t.Fatalf("append calls %d", fake.calls["append"])
	}

	got, err := book.ReadAll(ctx, "October 2024")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(salary) || !got[1].Equal(food) {
		t.Fatalf("unexpected transactions %+v", got)
	}
	if s := core.ComputeSurplus(got); s.Surplus != 75000 {
		t.Fatalf("surplus %d", s.Surplus)
	}
}

func TestReadAllMissingSheet(t *testing.T) {
	book, fake := newTestBook(t, true)
	_, err := book.ReadAll(context.Background(), "March 2020")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if fake.calls["values"] != 0 {
		t.Fatal("values must not be read for a missing sheet")
	}
}

func TestReadAllMalformedAmount(t *testing.T) {
	book, fake := newTestBook(t, false)
	fake.sheets = append(fake.sheets, &fakeSheet{id: 7, title: "Broken", rows: [][]string{
		{"Date", "Type", "Amount", "Notes"},
		{"2024-10-01", "income", "lots", "x"},
	}})
	_, err := book.ReadAll(context.Background(), "Broken")
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestBookWithoutService(t *testing.T) {
	book := &Book{client: &Client{}, spreadsheetID: "x"}
	if _, err := book.ResolveOrCreate(context.Background(), "T"); err == nil {
		t.Fatal("expected error without service")
	}
}
