package core

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleLayout formats the conventional "<Month> <Year>" sheet title.
const TitleLayout = "January 2006"

// MonthTitle returns the sheet title for the month containing t.
func MonthTitle(t time.Time) string {
	return t.Format(TitleLayout)
}

// ResolveTitle maps optional report arguments to a sheet title:
//
//	[]              -> current month, e.g. "October 2024"
//	[title]         -> title verbatim
//	[month, year]   -> "10 2024" or "october 2024" -> "October 2024"
func ResolveTitle(args []string, now time.Time) (string, error) {
	switch len(args) {
	case 0:
		return MonthTitle(now), nil
	case 1:
		return args[0], nil
	case 2:
		month, err := monthName(args[0])
		if err != nil {
			return "", err
		}
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return "", validationf("invalid year %q", args[1])
		}
		return fmt.Sprintf("%s %d", month, year), nil
	default:
		return "", ErrUsage
	}
}

func monthName(s string) (string, error) {
	if !isDigits(s) {
		return cases.Title(language.English).String(s), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return "", validationf("month must be between 1 and 12, got %q", s)
	}
	return time.Month(n).String(), nil
}

// isDigits accepts ASCII digits only; other scripts are kept as literal names.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
