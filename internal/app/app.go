// Package app wires the services together and drives one reporting run:
// process inbound cadence commands, decide whether today sends, then
// collect, compare, render, and dispatch the report.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/analytics"
	"github.com/ternarybob/herald/internal/cadence"
	"github.com/ternarybob/herald/internal/charts"
	"github.com/ternarybob/herald/internal/collector"
	"github.com/ternarybob/herald/internal/common"
	"github.com/ternarybob/herald/internal/llm"
	"github.com/ternarybob/herald/internal/newsapi"
	"github.com/ternarybob/herald/internal/report"
	imapsvc "github.com/ternarybob/herald/internal/services/imap"
	"github.com/ternarybob/herald/internal/services/mailer"
)

// NewsCollector produces the news HTML fragment for one run.
type NewsCollector interface {
	Collect(ctx context.Context, now time.Time) (string, error)
}

// AnalyticsBuilder produces the analytics section for one run.
type AnalyticsBuilder interface {
	BuildSection(ctx context.Context, today time.Time) analytics.Section
}

// ChartRenderer produces the inline chart images for one run.
type ChartRenderer interface {
	RenderSections(rows []analytics.Row) ([]charts.Image, error)
}

// Mailbox is the slice of the IMAP service the app needs.
type Mailbox interface {
	FetchUnread(ctx context.Context) ([]imapsvc.Email, error)
	MarkSeen(ctx context.Context, messageID uint32) error
}

// Dispatcher is the slice of the mailer the app needs.
type Dispatcher interface {
	SendReport(ctx context.Context, to, subject, htmlBody, textBody string, images []mailer.InlineImage) error
}

// App holds the wired services for the reporting pipeline.
type App struct {
	config     *common.Config
	logger     arbor.ILogger
	store      cadence.Store
	collector  NewsCollector
	analytics  AnalyticsBuilder
	charts     ChartRenderer
	dispatcher Dispatcher
	mailbox    Mailbox

	llmFactory *llm.Factory
	warehouse  analytics.Warehouse
}

// New builds the full service graph from configuration.
func New(ctx context.Context, config *common.Config, logger arbor.ILogger) (*App, error) {
	store, err := newStore(&config.Cadence)
	if err != nil {
		return nil, fmt.Errorf("failed to open cadence store: %w", err)
	}

	llmFactory := llm.NewFactory(&config.Gemini, &config.Claude, &config.LLM, logger)

	newsKey, err := common.ResolveAPIKey("news_api_key", config.News.APIKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to resolve news API key: %w", err)
	}
	newsClient := newsapi.NewClient(newsKey, newsapi.WithLogger(logger))

	warehouse, err := analytics.NewBigQueryWarehouse(ctx, &config.Warehouse)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}

	app := &App{
		config:     config,
		logger:     logger,
		store:      store,
		collector:  collector.NewService(newsClient, llmFactory, &config.News, logger),
		analytics:  analytics.NewService(warehouse, llmFactory, logger),
		charts:     charts.Renderer{},
		dispatcher: mailer.NewService(&config.SMTP, logger),
		llmFactory: llmFactory,
		warehouse:  warehouse,
	}

	imapService := imapsvc.NewService(&config.IMAP, logger)
	if imapService.IsConfigured() {
		app.mailbox = imapService
	} else {
		logger.Warn().Msg("IMAP not configured; cadence commands disabled")
	}

	return app, nil
}

// newStore opens the cadence store named by the config backend.
func newStore(config *common.CadenceConfig) (cadence.Store, error) {
	switch config.Backend {
	case "badger":
		return cadence.NewBadgerStore(config.Path)
	case "file", "":
		return cadence.NewFileStore(config.Path), nil
	default:
		return nil, fmt.Errorf("unknown cadence backend %q", config.Backend)
	}
}

// Run executes one reporting cycle. Inbound commands are applied first so a
// reply received since the last run takes effect today. A run on a day the
// cadence excludes is a no-op, not an error.
func (a *App) Run(ctx context.Context, now time.Time) error {
	if err := a.ProcessCommands(ctx); err != nil {
		// The report still goes out when the inbox is unreachable.
		a.logger.Warn().Err(err).Msg("Failed to process cadence commands")
	}

	current, err := a.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cadence: %w", err)
	}

	if !cadence.ShouldSend(now, current) {
		a.logger.Info().
			Str("cadence", string(current)).
			Str("day", now.UTC().Format("2006-01-02")).
			Msg("No report scheduled today")
		return nil
	}

	newsHTML, err := a.collector.Collect(ctx, now)
	if err != nil {
		return fmt.Errorf("news collection failed: %w", err)
	}

	section := a.analytics.BuildSection(ctx, now)

	var chartRefs []report.Chart
	var images []mailer.InlineImage
	if section.Err == nil {
		rendered, err := a.charts.RenderSections(section.Current)
		if err != nil {
			// Chart failure downgrades the whole analytics section to a warning.
			a.logger.Warn().Err(err).Msg("Chart rendering failed")
			section = analytics.Section{Err: err}
		} else {
			for _, img := range rendered {
				cid := mailer.NewContentID()
				chartRefs = append(chartRefs, report.Chart{Title: img.Title, ContentID: cid})
				images = append(images, mailer.InlineImage{Name: img.Name, ContentID: cid, Data: img.PNG})
			}
		}
	}

	htmlBody, err := report.Render(now, newsHTML, section, chartRefs)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s - %s", a.config.Report.Subject, now.UTC().Format("2 Jan 2006"))
	textBody := plainTextBody(now, section)

	if err := a.dispatcher.SendReport(ctx, a.config.Report.Recipient, subject, htmlBody, textBody, images); err != nil {
		return err
	}

	a.logger.Info().
		Str("cadence", string(current)).
		Str("recipient", a.config.Report.Recipient).
		Msg("Report dispatched")

	return nil
}

// ProcessCommands reads unseen inbox messages and applies any cadence
// change from an allowed sender. Every fetched message is marked seen so it
// is considered at most once.
func (a *App) ProcessCommands(ctx context.Context) error {
	if a.mailbox == nil {
		return nil
	}

	emails, err := a.mailbox.FetchUnread(ctx)
	if err != nil {
		return err
	}

	for _, email := range emails {
		if !a.senderAllowed(email.From) {
			a.logger.Warn().Str("from", email.From).Msg("Ignoring message from unauthorized sender")
		} else if next, ok := cadence.ParseCommand(email.Body); ok {
			if err := a.store.Write(ctx, next); err != nil {
				return fmt.Errorf("failed to store cadence: %w", err)
			}
			a.logger.Info().
				Str("from", email.From).
				Str("cadence", string(next)).
				Msg("Cadence updated by mail command")
		} else {
			a.logger.Debug().Str("from", email.From).Msg("Message carries no cadence command")
		}

		if err := a.mailbox.MarkSeen(ctx, email.ID); err != nil {
			a.logger.Warn().Err(err).Int("id", int(email.ID)).Msg("Failed to mark message seen")
		}
	}

	return nil
}

// senderAllowed checks the configured allow-list. An empty list restricts
// commands to the report recipient.
func (a *App) senderAllowed(from string) bool {
	allowed := a.config.Report.AllowedSenders
	if len(allowed) == 0 {
		allowed = []string{a.config.Report.Recipient}
	}

	for _, addr := range allowed {
		if strings.EqualFold(strings.TrimSpace(addr), strings.TrimSpace(from)) {
			return true
		}
	}
	return false
}

// plainTextBody is the fallback part for clients that do not render HTML.
func plainTextBody(now time.Time, section analytics.Section) string {
	var b strings.Builder
	b.WriteString("Report for " + now.UTC().Format("2 January 2006") + "\n\n")
	b.WriteString("This report is best viewed as HTML.\n")
	if section.Err == nil && section.Text != "" {
		b.WriteString("\n" + section.Text + "\n")
	}
	return b.String()
}

// Close releases every held resource.
func (a *App) Close() error {
	var firstErr error

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
		}
	}
	if a.warehouse != nil {
		if err := a.warehouse.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.llmFactory != nil {
		if err := a.llmFactory.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
