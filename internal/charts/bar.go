// Package charts renders analytics rows as PNG bar charts for inline
// embedding in the report email.
package charts

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ternarybob/herald/internal/analytics"
)

// barColor matches the report's heading accent.
var barColor = color.RGBA{R: 0x00, G: 0x52, B: 0xcc, A: 0xff}

// Image is one rendered chart ready for attachment.
type Image struct {
	Name  string
	Title string
	PNG   []byte
}

// Renderer is the injectable form of the package for report assembly.
type Renderer struct{}

func (Renderer) RenderSections(rows []analytics.Row) ([]Image, error) {
	return RenderSections(rows)
}

// Bar renders a single horizontal-labelled bar chart as PNG bytes.
func Bar(title string, labels []string, values []float64) ([]byte, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("label/value length mismatch: %d vs %d", len(labels), len(values))
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(30))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.5
	p.X.Tick.Label.XAlign = -0.8

	w, err := p.WriterTo(6*vg.Inch, 3*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}

	return buf.Bytes(), nil
}

// chartFamilies lists the families that get a chart. Pageviews stay
// text-only: full page URLs make unreadable axis labels.
var chartFamilies = []analytics.Family{analytics.FamilyCountries, analytics.FamilySources}

// RenderSections renders the country and traffic-source charts, in
// presentation order. Families with no rows are skipped.
func RenderSections(rows []analytics.Row) ([]Image, error) {
	byFamily := make(map[analytics.Family][]analytics.Row)
	for _, r := range rows {
		byFamily[r.Family] = append(byFamily[r.Family], r)
	}

	var images []Image
	for _, family := range chartFamilies {
		familyRows := byFamily[family]
		if len(familyRows) == 0 {
			continue
		}

		labels := make([]string, len(familyRows))
		values := make([]float64, len(familyRows))
		for i, r := range familyRows {
			labels[i] = r.Label
			values[i] = float64(r.Value)
		}

		png, err := Bar(family.DisplayName(), labels, values)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s chart: %w", family, err)
		}

		images = append(images, Image{
			Name:  string(family) + ".png",
			Title: family.DisplayName(),
			PNG:   png,
		})
	}

	return images, nil
}
