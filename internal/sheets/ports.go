package sheets

import (
	"context"
	"fmt"

	"finbot/internal/core"
)

// Header is the first row of every ledger sheet.
var Header = []string{"Date", "Type", "Amount", "Notes"}

// Sheet identifies one ledger partition (a worksheet, conventionally one per month).
type Sheet struct {
	ID    int64
	Title string
}

// Ports for outbound adapters.
type (
	// SheetResolver finds a sheet by exact title, creating it with Header when absent.
	SheetResolver interface {
		ResolveOrCreate(ctx context.Context, title string) (Sheet, error)
	}

	TransactionWriter interface {
		Append(ctx context.Context, sheet Sheet, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionReader returns every transaction stored in the titled sheet.
	// It fails with core.ErrNotFound when the sheet does not exist.
	TransactionReader interface {
		ReadAll(ctx context.Context, title string) ([]core.Transaction, error)
	}

	Ledger interface {
		SheetResolver
		TransactionWriter
		TransactionReader
	}

	// Opener hands out the ledger behind an account target (spreadsheet URL or ID).
	Opener interface {
		Open(ctx context.Context, target string) (Ledger, error)
	}
)

// ParseRows converts stored rows (header excluded) into transactions.
// Blank rows are skipped; a short row is padded since trailing empty
// cells are not returned by spreadsheet APIs. Any parse failure aborts the read.
func ParseRows(rows [][]string) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		record := make([]string, len(Header))
		copy(record, row)
		tx, err := core.ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
