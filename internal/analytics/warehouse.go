package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ternarybob/herald/internal/common"
)

// Warehouse answers traffic queries for a half-open day window [start, end).
type Warehouse interface {
	QueryWindow(ctx context.Context, start, end time.Time) ([]Row, error)
	Close() error
}

// BigQueryWarehouse reads the GA4 daily export tables for the configured
// dataset.
type BigQueryWarehouse struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryWarehouse opens a BigQuery client using the configured
// credentials file, or application default credentials when none is set.
func NewBigQueryWarehouse(ctx context.Context, config *common.WarehouseConfig) (*BigQueryWarehouse, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse client: %w", err)
	}

	return &BigQueryWarehouse{
		client:  client,
		dataset: config.Dataset,
	}, nil
}

// windowQuery aggregates pageviews, sessions by country, and sessions by
// traffic source from the GA4 export in one pass. The export shards by day,
// so the window is expressed as a _TABLE_SUFFIX range.
const windowQuery = `
WITH events AS (
  SELECT
    event_name,
    (SELECT value.string_value FROM UNNEST(event_params) WHERE key = 'page_location') AS page_location,
    geo.country AS country,
    traffic_source.source AS source,
    CONCAT(user_pseudo_id, '.',
      CAST((SELECT value.int_value FROM UNNEST(event_params) WHERE key = 'ga_session_id') AS STRING)) AS session_id
  FROM ` + "`%s.%s.events_*`" + `
  WHERE _TABLE_SUFFIX BETWEEN @start_suffix AND @end_suffix
)
SELECT 'pageviews' AS family, IFNULL(page_location, '(not set)') AS label, COUNT(*) AS value
FROM events
WHERE event_name = 'page_view'
GROUP BY label
UNION ALL
SELECT 'countries', IFNULL(country, '(not set)'), COUNT(DISTINCT session_id)
FROM events
WHERE event_name = 'session_start'
GROUP BY 2
UNION ALL
SELECT 'sources', IFNULL(source, '(not set)'), COUNT(DISTINCT session_id)
FROM events
WHERE event_name = 'session_start'
GROUP BY 2
`

type warehouseRow struct {
	Family string `bigquery:"family"`
	Label  string `bigquery:"label"`
	Value  int64  `bigquery:"value"`
}

// QueryWindow runs the aggregation for [start, end). The end bound is
// exclusive, so the last included export shard is the day before end.
func (w *BigQueryWarehouse) QueryWindow(ctx context.Context, start, end time.Time) ([]Row, error) {
	q := w.client.Query(fmt.Sprintf(windowQuery, w.client.Project(), w.dataset))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_suffix", Value: start.UTC().Format("20060102")},
		{Name: "end_suffix", Value: end.UTC().AddDate(0, 0, -1).Format("20060102")},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("warehouse query failed: %w", err)
	}

	var rows []Row
	for {
		var r warehouseRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read warehouse row: %w", err)
		}
		rows = append(rows, Row{
			Family: Family(r.Family),
			Label:  r.Label,
			Value:  r.Value,
		})
	}

	return rows, nil
}

// Close releases the underlying client.
func (w *BigQueryWarehouse) Close() error {
	return w.client.Close()
}
