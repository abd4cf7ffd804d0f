package analytics

import (
	"fmt"
	"sort"
	"strings"
)

// topN bounds how many labels per family make it into the report.
const topN = 5

// PercentChange computes the relative change between two window values.
// A zero previous value uses a denominator of one, so growth from nothing
// reads as the current value times one hundred rather than a division error.
func PercentChange(current, previous int64) float64 {
	denom := previous
	if denom == 0 {
		denom = 1
	}
	return float64(current-previous) / float64(denom) * 100
}

// Compare outer-joins the two windows by label within each family. Labels
// present in only one window contribute zero on the missing side. Rows are
// sorted by current value descending, then by label for a stable order, and
// truncated to the top entries per family.
func Compare(current, previous []Row) map[Family][]ComparisonRow {
	type key struct {
		family Family
		label  string
	}

	joined := make(map[key]*ComparisonRow)
	for _, r := range current {
		joined[key{r.Family, r.Label}] = &ComparisonRow{
			Family:  r.Family,
			Label:   r.Label,
			Current: r.Value,
		}
	}
	for _, r := range previous {
		k := key{r.Family, r.Label}
		if row, ok := joined[k]; ok {
			row.Previous = r.Value
		} else {
			joined[k] = &ComparisonRow{
				Family:   r.Family,
				Label:    r.Label,
				Previous: r.Value,
			}
		}
	}

	result := make(map[Family][]ComparisonRow)
	for _, row := range joined {
		row.PercentChange = PercentChange(row.Current, row.Previous)
		result[row.Family] = append(result[row.Family], *row)
	}

	for family, rows := range result {
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Current != rows[j].Current {
				return rows[i].Current > rows[j].Current
			}
			return rows[i].Label < rows[j].Label
		})
		if len(rows) > topN {
			rows = rows[:topN]
		}
		result[family] = rows
	}

	return result
}

// FormatComparison renders the joined rows as the plain-text block embedded
// in the report, one family heading at a time in presentation order.
func FormatComparison(comparison map[Family][]ComparisonRow) string {
	var b strings.Builder
	for _, family := range Families {
		rows := comparison[family]
		if len(rows) == 0 {
			continue
		}

		b.WriteString(family.DisplayName() + " (last 3 days vs previous 3 days):\n")
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  %s: %d (prev %d, %+.1f%%)\n",
				row.Label, row.Current, row.Previous, row.PercentChange))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
