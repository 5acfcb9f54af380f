package memory

import (
	"context"
	"fmt"
	"sync"

	"finbot/internal/core"
	"finbot/internal/sheets"
)

// Store keeps one book of sheets per target in process memory.
type Store struct {
	mu     sync.Mutex
	books  map[string]*Book
	nextID int64
}

// Book is the in-memory ledger of a single target.
type Book struct {
	store  *Store
	target string
	sheets []*sheet
}

type sheet struct {
	id    int64
	title string
	rows  [][]string
}

var (
	_ sheets.Opener = (*Store)(nil)
	_ sheets.Ledger = (*Book)(nil)
)

func New() *Store {
	return &Store{books: map[string]*Book{}}
}

// Open returns the book for target, creating an empty one on first use.
func (s *Store) Open(_ context.Context, target string) (sheets.Ledger, error) {
	return s.Book(target), nil
}

func (s *Store) Book(target string) *Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[target]
	if !ok {
		b = &Book{store: s, target: target}
		s.books[target] = b
	}
	return b
}

// Seed stores raw rows (header excluded) under title, creating the sheet if needed.
// It lets tests plant malformed data that Append would never write.
func (b *Book) Seed(title string, rows ...[]string) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	sh := b.findLocked(title)
	if sh == nil {
		sh = b.addLocked(title)
	}
	for _, r := range rows {
		sh.rows = append(sh.rows, append([]string(nil), r...))
	}
}

// Titles lists the sheet titles in creation order.
func (b *Book) Titles() []string {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	out := make([]string, 0, len(b.sheets))
	for _, sh := range b.sheets {
		out = append(out, sh.title)
	}
	return out
}

// Rows returns a copy of every row of the titled sheet, header included.
func (b *Book) Rows(title string) [][]string {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	sh := b.findLocked(title)
	if sh == nil {
		return nil
	}
	out := make([][]string, len(sh.rows))
	for i, r := range sh.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (b *Book) ResolveOrCreate(_ context.Context, title string) (sheets.Sheet, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	sh := b.findLocked(title)
	if sh == nil {
		sh = b.addLocked(title)
	}
	return sheets.Sheet{ID: sh.id, Title: sh.title}, nil
}

// Append stores the transaction record and returns a synthetic row reference.
func (b *Book) Append(_ context.Context, s sheets.Sheet, tx core.Transaction) (string, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	sh := b.findLocked(s.Title)
	if sh == nil || sh.id != s.ID {
		return "", fmt.Errorf("append to %q: %w", s.Title, core.ErrNotFound)
	}
	sh.rows = append(sh.rows, tx.Record())
	return fmt.Sprintf("mem:%s!%d", sh.title, len(sh.rows)), nil
}

func (b *Book) ReadAll(_ context.Context, title string) ([]core.Transaction, error) {
	b.store.mu.Lock()
	sh := b.findLocked(title)
	var rows [][]string
	if sh != nil {
		rows = append(rows, sh.rows[1:]...)
	}
	b.store.mu.Unlock()

	if sh == nil {
		return nil, fmt.Errorf("read %q: %w", title, core.ErrNotFound)
	}
	return sheets.ParseRows(rows)
}

func (b *Book) findLocked(title string) *sheet {
	for _, sh := range b.sheets {
		if sh.title == title {
			return sh
		}
	}
	return nil
}

func (b *Book) addLocked(title string) *sheet {
	b.store.nextID++
	sh := &sheet{
		id:    b.store.nextID,
		title: title,
		rows:  [][]string{append([]string(nil), sheets.Header...)},
	}
	b.sheets = append(b.sheets, sh)
	return sh
}
