// Package report renders the HTML report body from the news fragment,
// the analytics section, and rendered chart references.
package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ternarybob/herald/internal/analytics"
)

//go:embed report.gohtml
var reportTemplate string

var tmpl = template.Must(template.New("report").Parse(reportTemplate))

// Chart references an inline image by the Content-ID the mailer will attach
// it under.
type Chart struct {
	Title     string
	ContentID string
}

// Data is everything the template needs for one report.
type Data struct {
	Date      string
	NewsHTML  template.HTML
	Analytics analytics.Section
	Charts    []Chart
}

// Render produces the HTML body for a report dated day. The news fragment
// is trusted HTML built upstream; the analytics section renders either the
// comparison and charts or an inline warning carrying its error.
func Render(day time.Time, newsHTML string, section analytics.Section, chartRefs []Chart) (string, error) {
	data := Data{
		Date:      day.UTC().Format("2 January 2006"),
		NewsHTML:  template.HTML(newsHTML),
		Analytics: section,
		Charts:    chartRefs,
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	return b.String(), nil
}
