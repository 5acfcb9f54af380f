package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/core"
	"finbot/internal/middleware/trace"
	"finbot/internal/report"
	"finbot/internal/sheets"
)

// Publisher announces appended transactions to other processes.
type Publisher interface {
	PublishTransactionAppended(ctx context.Context, msg *amqp.TransactionAppendedMessage) error
}

// LedgerService implements the add-transaction and report use cases on top
// of whichever ledger backend the opener serves.
type LedgerService struct {
	opener    sheets.Opener
	publisher Publisher
	logger    *slog.Logger
}

// NewLedgerService wires the service. publisher may be nil.
func NewLedgerService(opener sheets.Opener, publisher Publisher, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		opener:    opener,
		publisher: publisher,
		logger:    logger,
	}
}

// Appended describes a stored transaction.
type Appended struct {
	Title       string
	RowRef      string
	Transaction core.Transaction
}

// AddTransaction records a transaction dated now into the sheet of now's
// month, creating the sheet when needed.
func (s *LedgerService) AddTransaction(ctx context.Context, target string, typ core.TransactionType, amount int64, note string, now time.Time) (Appended, error) {
	tx, err := core.NewTransaction(typ, amount, note, core.DateOf(now))
	if err != nil {
		return Appended{}, err
	}
	title := core.MonthTitle(now)

	ledger, err := s.opener.Open(ctx, target)
	if err != nil {
		return Appended{}, fmt.Errorf("open ledger: %w", err)
	}
	sheet, err := ledger.ResolveOrCreate(ctx, title)
	if err != nil {
		return Appended{}, fmt.Errorf("resolve sheet %q: %w", title, err)
	}
	ref, err := ledger.Append(ctx, sheet, tx)
	if err != nil {
		return Appended{}, fmt.Errorf("append to %q: %w", title, err)
	}

	s.publish(ctx, target, title, tx, ref)

	return Appended{Title: title, RowRef: ref, Transaction: tx}, nil
}

// The row is already stored, so a failed publish is logged and not returned.
func (s *LedgerService) publish(ctx context.Context, target, title string, tx core.Transaction, ref string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewTransactionAppendedMessage(target, title, tx, ref)
	msg.CorrelationID = trace.GetRequestID(ctx)
	if err := s.publisher.PublishTransactionAppended(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish append event",
			"message_id", msg.ID,
			"request_id", msg.CorrelationID,
			"title", title,
			"error", err)
	}
}

// Report is the aggregated view of one sheet.
type Report struct {
	Title    string
	Count    int
	Summary  core.Summary
	Incomes  core.Breakdown
	Outcomes core.Breakdown
}

func (r *Report) Text(currency string) string {
	return report.Summarize(r.Title, r.Summary, r.Incomes, r.Outcomes, currency)
}

func (r *Report) Series() []report.Series {
	return report.Charts(r.Title, r.Summary, r.Incomes, r.Outcomes)
}

// BuildReport reads the titled sheet and aggregates it. A missing or empty
// sheet fails with core.ErrNotFound; malformed rows fail with core.ErrParse.
func (s *LedgerService) BuildReport(ctx context.Context, target, title string) (*Report, error) {
	ledger, err := s.opener.Open(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	txs, err := ledger.ReadAll(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("%q has no transactions: %w", title, core.ErrNotFound)
	}

	return &Report{
		Title:    title,
		Count:    len(txs),
		Summary:  core.ComputeSurplus(txs),
		Incomes:  core.ComputeBreakdown(txs, core.Income),
		Outcomes: core.ComputeBreakdown(txs, core.Outcome),
	}, nil
}
