package google

import (
	"fmt"
	"strings"

	"finbot/internal/core"
)

// toRow converts a transaction into the cell values written by Append.
// The amount goes in as a number so spreadsheet formulas can sum it; user
// input is capped at core.MaxAmount so the double keeps it exact.
func toRow(tx core.Transaction) []any {
	return []any{tx.DateString(), string(tx.Type()), tx.Amount(), tx.Note()}
}

// toStrings converts a values matrix (as returned by Sheets API) into strings.
func toStrings(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cols := make([]string, len(row))
		for j, v := range row {
			cols[j] = fmt.Sprint(v)
		}
		out[i] = cols
	}
	return out
}

// quoteTitle quotes a sheet title for A1 notation, doubling embedded quotes.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// columnsRange covers the four ledger columns of a sheet.
func columnsRange(title string) string {
	return quoteTitle(title) + "!A:D"
}
