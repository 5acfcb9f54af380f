package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"finbot/internal/core"
	"finbot/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores ledgers as plain tables: one row in sheets per
// partition, one row in entries per transaction.
type SQLiteRepository struct {
	db *sql.DB
}

// Ledger is the view of the repository restricted to one ledger key.
type Ledger struct {
	repo *SQLiteRepository
	key  string
}

var (
	_ sheets.Opener = (*SQLiteRepository)(nil)
	_ sheets.Ledger = (*Ledger)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent commands.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Open returns the ledger stored under target. Targets are opaque keys,
// usually the spreadsheet reference of the account.
func (r *SQLiteRepository) Open(_ context.Context, target string) (sheets.Ledger, error) {
	if target == "" {
		return nil, errors.New("empty ledger key")
	}
	return &Ledger{repo: r, key: target}, nil
}

// ResolveOrCreate is atomic on this backend: the insert is ignored when the
// title already exists, then the row is read back.
func (l *Ledger) ResolveOrCreate(ctx context.Context, title string) (sheets.Sheet, error) {
	res, err := l.repo.db.ExecContext(ctx,
		`INSERT INTO sheets (ledger, title) VALUES (?, ?) ON CONFLICT (ledger, title) DO NOTHING`,
		l.key, title)
	if err != nil {
		return sheets.Sheet{}, fmt.Errorf("create sheet %q: %w", title, err)
	}
	s, found, err := l.find(ctx, title)
	if err != nil {
		return sheets.Sheet{}, err
	}
	if !found {
		return sheets.Sheet{}, fmt.Errorf("sheet %q vanished after insert", title)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Created ledger sheet", "ledger", l.key, "title", title, "sheet_id", s.ID)
	}
	return s, nil
}

func (l *Ledger) Append(ctx context.Context, s sheets.Sheet, tx core.Transaction) (string, error) {
	rec := tx.Record()
	res, err := l.repo.db.ExecContext(ctx,
		`INSERT INTO entries (sheet_id, date, type, amount, note) VALUES (?, ?, ?, ?, ?)`,
		s.ID, rec[0], rec[1], rec[2], rec[3])
	if err != nil {
		return "", fmt.Errorf("append to sheet %q: %w", s.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("append to sheet %q: %w", s.Title, err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"title", s.Title,
		"type", rec[1],
		"amount", rec[2])

	return strconv.FormatInt(id, 10), nil
}

func (l *Ledger) ReadAll(ctx context.Context, title string) ([]core.Transaction, error) {
	s, found, err := l.find(ctx, title)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("read %q: %w", title, core.ErrNotFound)
	}

	rs, err := l.repo.db.QueryContext(ctx,
		`SELECT date, type, amount, note FROM entries WHERE sheet_id = ? ORDER BY id`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("query rows of %q: %w", title, err)
	}
	defer rs.Close()

	var rows [][]string
	for rs.Next() {
		var date, typ, amount, note string
		if err := rs.Scan(&date, &typ, &amount, &note); err != nil {
			return nil, fmt.Errorf("scan row of %q: %w", title, err)
		}
		rows = append(rows, []string{date, typ, amount, note})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %q: %w", title, err)
	}

	txs, err := sheets.ParseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	return txs, nil
}

// Titles lists the sheet titles of the ledger in creation order.
func (l *Ledger) Titles(ctx context.Context) ([]string, error) {
	rs, err := l.repo.db.QueryContext(ctx, `SELECT title FROM sheets WHERE ledger = ? ORDER BY id`, l.key)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rs.Close()
	var out []string
	for rs.Next() {
		var t string
		if err := rs.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan sheet title: %w", err)
		}
		out = append(out, t)
	}
	return out, rs.Err()
}

func (l *Ledger) find(ctx context.Context, title string) (sheets.Sheet, bool, error) {
	var s sheets.Sheet
	err := l.repo.db.QueryRowContext(ctx,
		`SELECT id, title FROM sheets WHERE ledger = ? AND title = ?`, l.key, title).Scan(&s.ID, &s.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.Sheet{}, false, nil
	}
	if err != nil {
		return sheets.Sheet{}, false, fmt.Errorf("find sheet %q: %w", title, err)
	}
	return s, true, nil
}
