package core

import (
	"sort"
	"strings"
)

// Summary holds income and outcome totals for a set of transactions.
type Summary struct {
	Income  int64
	Outcome int64
	Surplus int64
}

// CategoryStat is the count and sum of one note group.
type CategoryStat struct {
	Quantity int
	Amount   int64
}

// Category is a named CategoryStat, used when an ordered view is needed.
type Category struct {
	Name string
	CategoryStat
}

// Breakdown groups transactions of one type by lowercased note.
type Breakdown map[string]CategoryStat

// ComputeSurplus sums amounts by type. Anything that is not income counts as outcome.
func ComputeSurplus(txs []Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		if tx.Type() == Income {
			s.Income += tx.Amount()
		} else {
			s.Outcome += tx.Amount()
		}
	}
	s.Surplus = s.Income - s.Outcome
	return s
}

// ComputeBreakdown groups the transactions of the given type by note.
func ComputeBreakdown(txs []Transaction, typ TransactionType) Breakdown {
	out := Breakdown{}
	for _, tx := range txs {
		if tx.Type() != typ {
			continue
		}
		key := strings.ToLower(tx.Note())
		stat := out[key]
		stat.Quantity++
		stat.Amount += tx.Amount()
		out[key] = stat
	}
	return out
}

// Total returns the sum of every group.
func (b Breakdown) Total() int64 {
	var total int64
	for _, s := range b {
		total += s.Amount
	}
	return total
}

// Sorted returns the groups ordered by amount (largest first), then by name.
func (b Breakdown) Sorted() []Category {
	list := make([]Category, 0, len(b))
	for name, stat := range b {
		list = append(list, Category{Name: name, CategoryStat: stat})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Amount != list[j].Amount {
			return list[i].Amount > list[j].Amount
		}
		return list[i].Name < list[j].Name
	})
	return list
}
