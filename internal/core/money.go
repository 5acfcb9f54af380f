// Package core provides the ledger domain: transactions, aggregation,
// sheet titles and amount parsing/formatting.
package core

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxAmount is the largest amount a spreadsheet cell holds exactly:
// Sheets stores numbers as doubles.
const MaxAmount int64 = 1 << 53

// ParseAmount parses a whole, non-negative amount typed by a user.
// Thousands separators ("1,000" or "1.000") are not accepted.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, validationf("amount must be a whole number, got %q", s)
	}
	if v < 0 {
		return 0, ErrNegativeAmount
	}
	if v > MaxAmount {
		return 0, validationf("amount must not exceed %s", FormatAmount(MaxAmount))
	}
	return v, nil
}

// FormatAmount renders an amount with comma thousands separators, e.g. 1,250,000.
func FormatAmount(v int64) string {
	return humanize.Comma(v)
}
