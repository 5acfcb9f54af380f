// Package report turns aggregated ledger figures into the text summary and
// the chart series shown to the user.
package report

import (
	"fmt"
	"strings"

	"finbot/internal/core"
)

// Point is one labeled slice of a chart.
type Point struct {
	Label string
	Value int64
}

// Series is a titled, chart-ready dataset.
type Series struct {
	Title  string
	Points []Point
}

// Total sums every point of the series.
func (s Series) Total() int64 {
	var total int64
	for _, p := range s.Points {
		total += p.Value
	}
	return total
}

// Empty reports whether the series has nothing to draw.
func (s Series) Empty() bool {
	return s.Total() == 0
}

// Summarize renders the multi-line report text. Categories are listed by
// amount, largest first.
func Summarize(title string, sum core.Summary, incomes, outcomes core.Breakdown, currency string) string {
	var b strings.Builder
	money := func(v int64) string { return currency + core.FormatAmount(v) }

	fmt.Fprintf(&b, "Title: %s\n\n", title)
	fmt.Fprintf(&b, "Income: %s\n", money(sum.Income))
	fmt.Fprintf(&b, "Outcome: %s\n", money(sum.Outcome))
	fmt.Fprintf(&b, "Surplus: %s\n", money(sum.Surplus))

	section := func(name string, bd core.Breakdown) {
		fmt.Fprintf(&b, "\n%s\n", name)
		for _, c := range bd.Sorted() {
			fmt.Fprintf(&b, "- %s: %s (%d)\n", c.Name, money(c.Amount), c.Quantity)
		}
	}
	section("Income", incomes)
	section("Outcome", outcomes)

	return b.String()
}

// Charts returns, in order, the income vs outcome totals, the income
// breakdown and the outcome breakdown.
func Charts(title string, sum core.Summary, incomes, outcomes core.Breakdown) []Series {
	return []Series{
		{
			Title: "Income vs Outcome: " + title,
			Points: []Point{
				{Label: "Income", Value: sum.Income},
				{Label: "Outcome", Value: sum.Outcome},
			},
		},
		breakdownSeries("Income: "+title, incomes),
		breakdownSeries("Outcome: "+title, outcomes),
	}
}

func breakdownSeries(title string, bd core.Breakdown) Series {
	cats := bd.Sorted()
	s := Series{Title: title, Points: make([]Point, 0, len(cats))}
	for _, c := range cats {
		s.Points = append(s.Points, Point{Label: c.Name, Value: c.Amount})
	}
	return s
}
