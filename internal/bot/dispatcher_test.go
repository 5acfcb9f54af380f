package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbot/internal/auth"
	"finbot/internal/config"
	"finbot/internal/core"
	"finbot/internal/report"
	"finbot/internal/services"
	"finbot/internal/sheets/memory"
)

const (
	userID  = int64(12345)
	strange = int64(99999)
	sheet   = "https://docs.google.com/spreadsheets/d/abc"
)

type fakeRenderer struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (r *fakeRenderer) Render(s report.Series) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.titles = append(r.titles, s.Title)
	return []byte("png:" + s.Title), nil
}

type fixture struct {
	store    *memory.Store
	renderer *fakeRenderer
	reported []error
	d        *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), renderer: &fakeRenderer{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := auth.NewRegistry([]config.Account{{UserID: config.UserID(userID), SheetURL: sheet}})
	svc := services.NewLedgerService(f.store, nil, logger)
	f.d = NewDispatcher(registry, svc, f.renderer, Options{
		Currency: "Rp.",
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC) },
		Logger:   logger,
		Report:   func(_ context.Context, err error, _ Command) { f.reported = append(f.reported, err) },
	})
	return f
}

func (f *fixture) run(name string, args ...string) Reply {
	return f.d.Dispatch(context.Background(), Command{UserID: userID, FirstName: "Ana", ChatID: 1, Name: name, Args: args})
}

func TestWhoAmIDoesNotNeedAuthorization(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"whoami", "user_info"} {
		reply := f.d.Dispatch(context.Background(), Command{UserID: strange, FirstName: "Eve", Name: name})
		assert.Equal(t, "Hello Eve, your id is 99999", reply.Text)
	}
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"help", "start"} {
		reply := f.run(name)
		assert.Contains(t, reply.Text, "/in <amount> <notes>")
		assert.Contains(t, reply.Text, "/info [title] | [month year]")
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	reply := f.run("transfer", "10")
	assert.Equal(t, "Unknown command /transfer. Send /help to see the available commands.", reply.Text)
}

func TestAddIncomeAndOutcome(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Added income", f.run("in", "100000", "Salary").Text)
	assert.Equal(t, "Added outcome", f.run("add_outcome", "25000", "Food", "and", "drinks").Text)

	assert.Equal(t, [][]string{
		{"Date", "Type", "Amount", "Notes"},
		{"2024-10-15", "income", "100000", "Salary"},
		{"2024-10-15", "outcome", "25000", "Food and drinks"},
	}, f.store.Book(sheet).Rows("October 2024"))
}

func TestAddUsesConfiguredLocation(t *testing.T) {
	f := newFixture(t)
	f.d.loc = time.FixedZone("WIB", 7*3600)
	f.d.now = func() time.Time { return time.Date(2024, 10, 31, 20, 0, 0, 0, time.UTC) }

	require.Equal(t, "Added outcome", f.run("out", "5", "late snack").Text)
	rows := f.store.Book(sheet).Rows("November 2024")
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-11-01", rows[1][0])
}

func TestAddErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		cmd  string
		args []string
		want string
	}{
		{"missing note", "in", []string{"100"}, "Usage: /in <amount> <notes>"},
		{"no args", "add_outcome", nil, "Usage: /add_outcome <amount> <notes>"},
		{"not an integer", "out", []string{"12.5", "x"}, `Error: amount must be a whole number, got "12.5"`},
		{"negative", "out", []string{"-3", "x"}, "Error: amount must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.run(tt.cmd, tt.args...).Text)
		})
	}
	assert.Empty(t, f.store.Book(sheet).Titles())
	assert.Empty(t, f.reported)
}

func TestUnauthorizedUserHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"in", "out", "report"} {
		reply := f.d.Dispatch(context.Background(), Command{UserID: strange, Name: name, Args: []string{"100", "x"}})
		assert.Equal(t, "Error: you are not authorized to use this bot", reply.Text)
	}
	assert.Empty(t, f.store.Book(sheet).Titles())
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	f.run("in", "100000", "Salary")
	f.run("out", "25000", "Food")
	f.run("out", "5000", "food")

	reply := f.run("info")
	assert.Contains(t, reply.Text, "Title: October 2024")
	assert.Contains(t, reply.Text, "Income: Rp.100,000")
	assert.Contains(t, reply.Text, "Outcome: Rp.30,000")
	assert.Contains(t, reply.Text, "Surplus: Rp.70,000")
	assert.Contains(t, reply.Text, "- food: Rp.30,000 (2)")

	require.Len(t, reply.Charts, 3)
	assert.Equal(t, []byte("png:Income vs Outcome: October 2024"), reply.Charts[0].PNG)
	assert.Equal(t, []byte("png:Income: October 2024"), reply.Charts[1].PNG)
	assert.Equal(t, []byte("png:Outcome: October 2024"), reply.Charts[2].PNG)
}

func TestReportTitles(t *testing.T) {
	f := newFixture(t)
	book := f.store.Book(sheet)
	book.Seed("Q3-Report", []string{"2024-07-01", "outcome", "10", "rent"})
	book.Seed("October 2023", []string{"2023-10-01", "income", "10", "gift"})

	assert.Contains(t, f.run("report", "Q3-Report").Text, "Title: Q3-Report")
	assert.Contains(t, f.run("report", "10", "2023").Text, "Title: October 2023")
	assert.Contains(t, f.run("report", "october", "2023").Text, "Title: October 2023")
}

func TestReportSkipsEmptyCharts(t *testing.T) {
	f := newFixture(t)
	f.run("out", "10", "coffee")

	reply := f.run("report")
	require.Len(t, reply.Charts, 2)
	assert.Equal(t, "chart-1.png", reply.Charts[0].Name)
	assert.Equal(t, "chart-3.png", reply.Charts[1].Name)
}

func TestReportErrors(t *testing.T) {
	f := newFixture(t)
	f.store.Book(sheet).Seed("Broken", []string{"2024-10-01", "income", "abc", "x"})

	assert.Equal(t, msgNoData, f.run("report").Text)
	assert.Equal(t, msgNoData, f.run("report", "March", "2020").Text)
	assert.Equal(t, "Usage: /info [title] | [month year]", f.run("info", "a", "b", "c").Text)
	assert.Equal(t, `Error: month must be between 1 and 12, got "13"`, f.run("report", "13", "2024").Text)

	reply := f.run("report", "Broken")
	assert.Contains(t, reply.Text, "Error: ")
	assert.Contains(t, reply.Text, "parse error")
	assert.Empty(t, f.reported)
}

func TestReportRenderFailureStillSendsText(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("no fonts")
	f.run("in", "1", "tip")

	reply := f.run("report")
	assert.Contains(t, reply.Text, "Title: October 2024")
	assert.Empty(t, reply.Charts)
	require.Len(t, f.reported, 1)
}

type brokenLedger struct{ err error }

func (l brokenLedger) AddTransaction(context.Context, string, core.TransactionType, int64, string, time.Time) (services.Appended, error) {
	return services.Appended{}, l.err
}

func (l brokenLedger) BuildReport(context.Context, string, string) (*services.Report, error) {
	return nil, l.err
}

func TestUnexpectedErrorsAreReported(t *testing.T) {
	f := newFixture(t)
	f.d.ledger = brokenLedger{err: errors.New("googleapi: Error 503")}
	assert.Equal(t, msgInternal, f.run("in", "1", "x").Text)

	f.d.ledger = brokenLedger{err: context.DeadlineExceeded}
	assert.Equal(t, msgTimeout, f.run("report").Text)

	assert.Len(t, f.reported, 2)
}

type denyAfter struct{ left int }

func (l *denyAfter) Allow(int64) bool {
	l.left--
	return l.left >= 0
}

func TestRateLimitedCommands(t *testing.T) {
	f := newFixture(t)
	f.d.limiter = &denyAfter{left: 1}

	assert.Equal(t, "Added income", f.run("in", "1", "a").Text)
	assert.Equal(t, msgRateLimited, f.run("in", "1", "b").Text)
	assert.Len(t, f.store.Book(sheet).Rows("October 2024"), 2)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.run("in", "1", "a")
	f.run("in", "oops", "b")
	f.run("help")

	m := f.d.Metrics()
	assert.Equal(t, int64(3), m.TotalCommands)
	assert.Equal(t, int64(1), m.FailedCommands)
}
