package report

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

var ErrEmptySeries = errors.New("series has no non-zero values")

const (
	defaultChartWidth  = 640
	defaultChartHeight = 480
)

// PieRenderer draws a Series as a PNG pie chart.
type PieRenderer struct {
	Width  int
	Height int
}

func NewPieRenderer() *PieRenderer {
	return &PieRenderer{Width: defaultChartWidth, Height: defaultChartHeight}
}

func (r *PieRenderer) Render(s Series) ([]byte, error) {
	if s.Empty() {
		return nil, ErrEmptySeries
	}

	values := make([]chart.Value, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Value == 0 {
			continue
		}
		values = append(values, chart.Value{Label: p.Label, Value: float64(p.Value)})
	}

	pie := chart.PieChart{
		Title:  s.Title,
		Width:  r.Width,
		Height: r.Height,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", s.Title, err)
	}
	return buf.Bytes(), nil
}
