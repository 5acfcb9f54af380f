package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

// DateLayout is the stored date format of a ledger row.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is one ledger entry. Fields are read-only once built.
	Transaction struct {
		typ    TransactionType
		amount int64
		note   string
		date   Date
	}
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("you are not authorized to use this bot")
	ErrNotFound     = errors.New("sheet does not exist")
	ErrParse        = errors.New("parse error")
	ErrUsage        = errors.New("wrong number of arguments")

	ErrInvalidType    = &ValidationError{Msg: "type must be income or outcome"}
	ErrNegativeAmount = &ValidationError{Msg: "amount must not be negative"}
)

// ValidationError carries a message that is safe to show to the user as is.
// Every ValidationError matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrParse, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Outcome
}

func NewTransaction(typ TransactionType, amount int64, note string, date Date) (Transaction, error) {
	if !typ.Valid() {
		return Transaction{}, ErrInvalidType
	}
	if amount < 0 {
		return Transaction{}, ErrNegativeAmount
	}
	return Transaction{typ: typ, amount: amount, note: note, date: date}, nil
}

func (t Transaction) Type() TransactionType { return t.typ }
func (t Transaction) Amount() int64         { return t.amount }
func (t Transaction) Note() string          { return t.note }
func (t Transaction) Date() Date            { return t.date }

// DateString returns the date in YYYY-MM-DD format.
func (t Transaction) DateString() string {
	return t.date.String()
}

// Record returns the row layout used by every ledger backend:
// date, type, amount, note.
func (t Transaction) Record() []string {
	return []string{t.DateString(), string(t.typ), strconv.FormatInt(t.amount, 10), t.note}
}

// Equal reports whether both transactions hold the same values.
func (t Transaction) Equal(o Transaction) bool {
	return t.typ == o.typ && t.amount == o.amount && t.note == o.note && t.date.Equal(o.date.Time)
}

// ParseRecord rebuilds a Transaction from a stored row. Malformed dates and
// amounts wrap ErrParse; unknown types are rejected with ErrValidation.
func ParseRecord(record []string) (Transaction, error) {
	if len(record) != 4 {
		return Transaction{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrParse, len(record))
	}
	date, err := ParseDate(record[0])
	if err != nil {
		return Transaction{}, err
	}
	amount, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: invalid amount %q", ErrParse, record[2])
	}
	return NewTransaction(TransactionType(record[1]), amount, record[3], date)
}
