package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbot/internal/core"
)

func sample() (core.Summary, core.Breakdown, core.Breakdown) {
	sum := core.Summary{Income: 1250000, Outcome: 30000, Surplus: 1220000}
	incomes := core.Breakdown{"salary": {Quantity: 1, Amount: 1250000}}
	outcomes := core.Breakdown{
		"food":      {Quantity: 2, Amount: 25000},
		"transport": {Quantity: 1, Amount: 5000},
	}
	return sum, incomes, outcomes
}

func TestSummarize(t *testing.T) {
	sum, incomes, outcomes := sample()
	got := Summarize("October 2024", sum, incomes, outcomes, "Rp.")

	want := "Title: October 2024\n\n" +
		"Income: Rp.1,250,000\n" +
		"Outcome: Rp.30,000\n" +
		"Surplus: Rp.1,220,000\n" +
		"\nIncome\n" +
		"- salary: Rp.1,250,000 (1)\n" +
		"\nOutcome\n" +
		"- food: Rp.25,000 (2)\n" +
		"- transport: Rp.5,000 (1)\n"
	assert.Equal(t, want, got)
}

func TestSummarizeNegativeSurplus(t *testing.T) {
	sum := core.Summary{Income: 0, Outcome: 1500, Surplus: -1500}
	got := Summarize("Q3-Report", sum, nil, core.Breakdown{"rent": {Quantity: 1, Amount: 1500}}, "$")
	assert.Contains(t, got, "Surplus: $-1,500\n")
	assert.Contains(t, got, "\nIncome\n\nOutcome\n- rent: $1,500 (1)\n")
}

func TestCharts(t *testing.T) {
	sum, incomes, outcomes := sample()
	series := Charts("October 2024", sum, incomes, outcomes)
	require.Len(t, series, 3)

	assert.Equal(t, "Income vs Outcome: October 2024", series[0].Title)
	assert.Equal(t, []Point{{"Income", 1250000}, {"Outcome", 30000}}, series[0].Points)

	assert.Equal(t, "Income: October 2024", series[1].Title)
	assert.Equal(t, []Point{{"salary", 1250000}}, series[1].Points)

	assert.Equal(t, "Outcome: October 2024", series[2].Title)
	assert.Equal(t, []Point{{"food", 25000}, {"transport", 5000}}, series[2].Points)
	assert.Equal(t, int64(30000), series[2].Total())
}

func TestChartsEmptyBreakdown(t *testing.T) {
	series := Charts("x", core.Summary{Outcome: 10, Surplus: -10}, core.Breakdown{}, core.Breakdown{"a": {Quantity: 1, Amount: 10}})
	assert.False(t, series[0].Empty())
	assert.True(t, series[1].Empty())
	assert.False(t, series[2].Empty())
}

func TestPieRendererRender(t *testing.T) {
	r := NewPieRenderer()
	png, err := r.Render(Series{
		Title:  "Outcome: October 2024",
		Points: []Point{{"food", 25000}, {"transport", 5000}, {"gift", 0}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")), "output is not a PNG")
}

func TestPieRendererRejectsEmptySeries(t *testing.T) {
	_, err := NewPieRenderer().Render(Series{Title: "nothing", Points: []Point{{"a", 0}}})
	assert.ErrorIs(t, err, ErrEmptySeries)
}
