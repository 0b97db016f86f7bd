package valuation

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/bobmcallan/folio/internal/models"
)

// maxSlices caps the pie; smaller slices are folded into "Other".
const maxSlices = 8

// RenderAllocationChart renders a PNG pie chart of allocation slices.
// Returns raw PNG bytes.
func RenderAllocationChart(title string, slices []models.AllocationSlice) ([]byte, error) {
	slices = foldSmall(slices, maxSlices)

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		v := s.Value.InexactFloat64()
		if v <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s%%", s.Label, s.Percent.StringFixed(1)),
			Value: v,
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("nothing to chart: no positive allocation")
	}

	graph := chart.PieChart{
		Title:  title,
		Width:  600,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// foldSmall keeps the first max-1 slices (already sorted largest first)
// and sums the rest into one "Other" slice.
func foldSmall(slices []models.AllocationSlice, max int) []models.AllocationSlice {
	if len(slices) <= max {
		return slices
	}
	out := append([]models.AllocationSlice(nil), slices[:max-1]...)
	other := models.AllocationSlice{Label: "Other"}
	for _, s := range slices[max-1:] {
		other.Value = other.Value.Add(s.Value)
		other.Percent = other.Percent.Add(s.Percent)
	}
	return append(out, other)
}
