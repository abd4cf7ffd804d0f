package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/llm"
)

// windowDays is the length of each comparison window.
const windowDays = 3

// Service builds the analytics section of a report.
type Service struct {
	warehouse  Warehouse
	summarizer llm.Summarizer
	logger     arbor.ILogger
}

// NewService creates a new analytics service.
func NewService(warehouse Warehouse, summarizer llm.Summarizer, logger arbor.ILogger) *Service {
	return &Service{
		warehouse:  warehouse,
		summarizer: summarizer,
		logger:     logger,
	}
}

// BuildSection queries the current window [today-3d, today) and the previous
// window [today-6d, today-3d), joins them, and asks the model for a short
// narrative. Failures never abort the run: they come back inside the section
// and render as an inline warning.
func (s *Service) BuildSection(ctx context.Context, today time.Time) Section {
	day := today.UTC().Truncate(24 * time.Hour)
	currentStart := day.AddDate(0, 0, -windowDays)
	previousStart := day.AddDate(0, 0, -2*windowDays)

	current, err := s.warehouse.QueryWindow(ctx, currentStart, day)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Current analytics window unavailable")
		return Section{Err: err}
	}

	previous, err := s.warehouse.QueryWindow(ctx, previousStart, currentStart)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Previous analytics window unavailable")
		return Section{Err: err}
	}

	comparison := Compare(current, previous)
	text := FormatComparison(comparison)

	narrative, err := s.summarizer.Summarize(ctx, narrativePrompt(text))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Analytics narrative unavailable")
		return Section{Err: err}
	}

	return Section{
		Text:      text,
		Narrative: narrative,
		Current:   topCurrentRows(comparison),
	}
}

// narrativePrompt asks for a short plain-language reading of the comparison.
func narrativePrompt(comparison string) string {
	return fmt.Sprintf(`You are summarising website analytics for a small heritage organisation.

Here is a comparison of the last 3 days of traffic against the 3 days before:

%s

In no more than 5 sentences, describe the most notable changes in plain language for a non-technical reader.`, comparison)
}

// topCurrentRows flattens the joined comparison back into current-window
// rows, preserving the per-family ranking, for chart rendering.
func topCurrentRows(comparison map[Family][]ComparisonRow) []Row {
	var rows []Row
	for _, family := range Families {
		for _, row := range comparison[family] {
			rows = append(rows, Row{
				Family: family,
				Label:  row.Label,
				Value:  row.Current,
			})
		}
	}
	return rows
}
