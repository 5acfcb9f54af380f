package memory

import (
	"context"
	"errors"
	"testing"

	"finbot/internal/core"
)

func newTx(t *testing.T, typ core.TransactionType, amount int64, note string) core.Transaction {
	t.Helper()
	tx, err := core.NewTransaction(typ, amount, note, core.NewDate(2024, 10, 15))
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestResolveOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := New().Book("sheet-1")

	first, err := b.ResolveOrCreate(ctx, "October 2024")
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.ResolveOrCreate(ctx, "October 2024")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("expected same sheet, got %+v and %+v", first, second)
	}
	if titles := b.Titles(); len(titles) != 1 {
		t.Fatalf("expected one sheet, got %v", titles)
	}
	rows := b.Rows("October 2024")
	if len(rows) != 1 || rows[0][0] != "Date" || rows[0][3] != "Notes" {
		t.Fatalf("unexpected header: %v", rows)
	}

	// Titles are exact strings.
	if _, err := b.ResolveOrCreate(ctx, "october 2024"); err != nil {
		t.Fatal(err)
	}
	if titles := b.Titles(); len(titles) != 2 {
		t.Fatalf("expected two sheets, got %v", titles)
	}
}

func TestAppendAndReadAll(t *testing.T) {
	ctx := context.Background()
	b := New().Book("sheet-1")
	sh, _ := b.ResolveOrCreate(ctx, "October 2024")

	salary := newTx(t, core.Income, 100000, "Salary")
	food := newTx(t, core.Outcome, 25000, "Food")
	ref, err := b.Append(ctx, sh, salary)
	if err != nil || ref != "mem:October 2024!2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if _, err := b.Append(ctx, sh, food); err != nil {
		t.Fatal(err)
	}

	got, err := b.ReadAll(ctx, "October 2024")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got[0].Equal(salary) || !got[1].Equal(food) {
		t.Fatalf("unexpected transactions: %+v", got)
	}
}

func TestReadAllMissingSheet(t *testing.T) {
	b := New().Book("sheet-1")
	_, err := b.ReadAll(context.Background(), "Nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadAllEmptySheet(t *testing.T) {
	ctx := context.Background()
	b := New().Book("sheet-1")
	b.ResolveOrCreate(ctx, "Empty")
	got, err := b.ReadAll(ctx, "Empty")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty success, got %v err=%v", got, err)
	}
}

func TestReadAllMalformedAmount(t *testing.T) {
	b := New().Book("sheet-1")
	b.Seed("Broken",
		[]string{"2024-10-01", "income", "100", "ok"},
		[]string{"2024-10-02", "outcome", "12abc", "bad"},
	)
	_, err := b.ReadAll(context.Background(), "Broken")
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestBooksAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.Open(ctx, "a")
	a.ResolveOrCreate(ctx, "October 2024")

	b, _ := s.Open(ctx, "b")
	if _, err := b.ReadAll(ctx, "October 2024"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound in other book, got %v", err)
	}
}
