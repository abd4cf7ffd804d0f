// Package analytics compares two traffic windows from the warehouse and
// produces a formatted summary plus an LLM narrative.
package analytics

// Family identifies one reported dimension of site traffic.
type Family string

const (
	FamilyPageviews Family = "pageviews"
	FamilyCountries Family = "countries"
	FamilySources   Family = "sources"
)

// Families lists the reported dimensions in presentation order.
var Families = []Family{FamilyPageviews, FamilyCountries, FamilySources}

// DisplayName returns the heading used for a family in the report.
func (f Family) DisplayName() string {
	switch f {
	case FamilyPageviews:
		return "Top Pages"
	case FamilyCountries:
		return "Sessions by Country"
	case FamilySources:
		return "Sessions by Traffic Source"
	default:
		return string(f)
	}
}

// Row is a single measurement for one label within a family.
type Row struct {
	Family Family
	Label  string
	Value  int64
}

// ComparisonRow joins a current-window value with its previous-window
// counterpart.
type ComparisonRow struct {
	Family        Family
	Label         string
	Current       int64
	Previous      int64
	PercentChange float64
}

// Section is the analytics portion of a report. When Err is set the report
// renders an inline warning instead of the comparison; the news section is
// unaffected.
type Section struct {
	Text      string
	Narrative string
	Current   []Row
	Err       error
}
