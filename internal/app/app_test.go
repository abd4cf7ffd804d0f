package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/analytics"
	"github.com/ternarybob/herald/internal/cadence"
	"github.com/ternarybob/herald/internal/charts"
	"github.com/ternarybob/herald/internal/common"
	imapsvc "github.com/ternarybob/herald/internal/services/imap"
	"github.com/ternarybob/herald/internal/services/mailer"
)

type fakeCollector struct {
	html string
	err  error
}

func (f *fakeCollector) Collect(ctx context.Context, now time.Time) (string, error) {
	return f.html, f.err
}

type fakeAnalytics struct {
	section analytics.Section
}

func (f *fakeAnalytics) BuildSection(ctx context.Context, today time.Time) analytics.Section {
	return f.section
}

type fakeDispatcher struct {
	sent    bool
	to      string
	subject string
	html    string
	text    string
	images  []mailer.InlineImage
	err     error
}

func (f *fakeDispatcher) SendReport(ctx context.Context, to, subject, htmlBody, textBody string, images []mailer.InlineImage) error {
	f.sent = true
	f.to = to
	f.subject = subject
	f.html = htmlBody
	f.text = textBody
	f.images = images
	return f.err
}

type fakeCharts struct {
	err error
}

func (f *fakeCharts) RenderSections(rows []analytics.Row) ([]charts.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return charts.RenderSections(rows)
}

type fakeMailbox struct {
	emails   []imapsvc.Email
	fetchErr error
	seen     []uint32
}

func (f *fakeMailbox) FetchUnread(ctx context.Context) ([]imapsvc.Email, error) {
	return f.emails, f.fetchErr
}

func (f *fakeMailbox) MarkSeen(ctx context.Context, messageID uint32) error {
	f.seen = append(f.seen, messageID)
	return nil
}

// monday is a Monday in an even week relative to the scheduling anchor, so
// every cadence sends on it.
var monday = time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*App, *fakeDispatcher) {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Report.Recipient = "reader@example.com"
	config.Report.Subject = "Daily digest"

	dispatcher := &fakeDispatcher{}
	a := &App{
		config: config,
		logger: arbor.NewLogger(),
		store:  cadence.NewFileStore(filepath.Join(t.TempDir(), "cadence")),
		collector: &fakeCollector{
			html: `<div class="article"><b>Story</b></div>`,
		},
		analytics: &fakeAnalytics{
			section: analytics.Section{
				Text:      "Sessions by Country (last 3 days vs previous 3 days):\n  United Kingdom: 70 (prev 50, +40.0%)",
				Narrative: "Steady growth.",
				Current: []analytics.Row{
					{Family: analytics.FamilyCountries, Label: "United Kingdom", Value: 70},
				},
			},
		},
		charts:     charts.Renderer{},
		dispatcher: dispatcher,
	}
	return a, dispatcher
}

func TestRunSendsReport(t *testing.T) {
	a, dispatcher := newTestApp(t)

	require.NoError(t, a.Run(context.Background(), monday))

	require.True(t, dispatcher.sent)
	assert.Equal(t, "reader@example.com", dispatcher.to)
	assert.Equal(t, "Daily digest - 24 Aug 2026", dispatcher.subject)
	assert.Contains(t, dispatcher.html, "Story")
	assert.Contains(t, dispatcher.html, "Steady growth.")
	assert.Contains(t, dispatcher.text, "United Kingdom: 70")

	// One chart for the single populated family, referenced from the body.
	require.Len(t, dispatcher.images, 1)
	assert.Contains(t, dispatcher.html, "cid:"+dispatcher.images[0].ContentID)
}

func TestRunSkipsOffCadenceDay(t *testing.T) {
	a, dispatcher := newTestApp(t)
	require.NoError(t, a.store.Write(context.Background(), cadence.Weekly))

	tuesday := monday.AddDate(0, 0, 1)
	require.NoError(t, a.Run(context.Background(), tuesday))
	assert.False(t, dispatcher.sent)
}

func TestRunCollectorFailureAborts(t *testing.T) {
	a, dispatcher := newTestApp(t)
	a.collector = &fakeCollector{err: errors.New("search down")}

	err := a.Run(context.Background(), monday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search down")
	assert.False(t, dispatcher.sent)
}

func TestRunAnalyticsFailureStillSends(t *testing.T) {
	a, dispatcher := newTestApp(t)
	a.analytics = &fakeAnalytics{
		section: analytics.Section{Err: errors.New("dataset not found")},
	}

	require.NoError(t, a.Run(context.Background(), monday))
	require.True(t, dispatcher.sent)
	assert.Contains(t, dispatcher.html, "Analytics unavailable: dataset not found")
	assert.Empty(t, dispatcher.images)
}

func TestRunChartFailureDowngradesAnalytics(t *testing.T) {
	a, dispatcher := newTestApp(t)
	a.charts = &fakeCharts{err: errors.New("render blew up")}

	require.NoError(t, a.Run(context.Background(), monday))
	require.True(t, dispatcher.sent)
	assert.Contains(t, dispatcher.html, "Analytics unavailable: render blew up")
	assert.NotContains(t, dispatcher.html, "Steady growth.")
	assert.Empty(t, dispatcher.images)
}

func TestRunMailboxFailureStillSends(t *testing.T) {
	a, dispatcher := newTestApp(t)
	a.mailbox = &fakeMailbox{fetchErr: errors.New("imap down")}

	require.NoError(t, a.Run(context.Background(), monday))
	assert.True(t, dispatcher.sent)
}

func TestProcessCommandsAppliesCadence(t *testing.T) {
	a, _ := newTestApp(t)
	mailbox := &fakeMailbox{
		emails: []imapsvc.Email{
			{ID: 7, From: "reader@example.com", Body: "FORTNIGHTLY\n\n> previous report"},
		},
	}
	a.mailbox = mailbox

	require.NoError(t, a.ProcessCommands(context.Background()))

	current, err := a.store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cadence.Fortnightly, current)
	assert.Equal(t, []uint32{7}, mailbox.seen)
}

func TestProcessCommandsRejectsUnknownSender(t *testing.T) {
	a, _ := newTestApp(t)
	mailbox := &fakeMailbox{
		emails: []imapsvc.Email{
			{ID: 3, From: "stranger@example.com", Body: "WEEKLY"},
		},
	}
	a.mailbox = mailbox

	require.NoError(t, a.ProcessCommands(context.Background()))

	current, err := a.store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cadence.Daily, current)
	// Still marked seen so it is not reconsidered.
	assert.Equal(t, []uint32{3}, mailbox.seen)
}

func TestProcessCommandsIgnoresNonCommandMail(t *testing.T) {
	a, _ := newTestApp(t)
	mailbox := &fakeMailbox{
		emails: []imapsvc.Email{
			{ID: 9, From: "reader@example.com", Body: "Thanks, love the report!"},
		},
	}
	a.mailbox = mailbox

	require.NoError(t, a.ProcessCommands(context.Background()))

	current, err := a.store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cadence.Daily, current)
}

func TestProcessCommandsAllowedSendersList(t *testing.T) {
	a, _ := newTestApp(t)
	a.config.Report.AllowedSenders = []string{"Director@example.com"}
	mailbox := &fakeMailbox{
		emails: []imapsvc.Email{
			{ID: 1, From: "director@example.com", Body: "weekly"},
		},
	}
	a.mailbox = mailbox

	require.NoError(t, a.ProcessCommands(context.Background()))

	current, err := a.store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cadence.Weekly, current)
}
