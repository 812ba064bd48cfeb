package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/bigquery"
)

const touchpointEventsSQL = `
SELECT
  event_id,
  occurred_at,
  campaign_id,
  episode_id,
  attribution_method,
  user_id,
  session_id,
  device_id,
  conversion_type,
  conversion_value,
  TO_JSON_STRING(metadata) AS metadata
FROM %s
WHERE tenant_id = @tenantID
  AND campaign_id = @campaignID%s
ORDER BY occurred_at ASC, event_id ASC
`

type rowIterator interface {
	Next(dst interface{}) error
}

type querier interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

// touchpointRow mirrors one row of the warehouse touchpoint table.
type touchpointRow struct {
	EventID           string                      `bigquery:"event_id"`
	OccurredAt        cloudbigquery.NullTimestamp `bigquery:"occurred_at"`
	CampaignID        string                      `bigquery:"campaign_id"`
	EpisodeID         cloudbigquery.NullString    `bigquery:"episode_id"`
	AttributionMethod cloudbigquery.NullString    `bigquery:"attribution_method"`
	UserID            cloudbigquery.NullString    `bigquery:"user_id"`
	SessionID         cloudbigquery.NullString    `bigquery:"session_id"`
	DeviceID          cloudbigquery.NullString    `bigquery:"device_id"`
	ConversionType    cloudbigquery.NullString    `bigquery:"conversion_type"`
	ConversionValue   cloudbigquery.NullFloat64   `bigquery:"conversion_value"`
	Metadata          cloudbigquery.NullString    `bigquery:"metadata"`
}

// BigQueryEventSource reads touchpoint events from the warehouse.
type BigQueryEventSource struct {
	client   querier
	tableRef string
}

// NewBigQueryEventSource builds a source over the configured touchpoint table.
func NewBigQueryEventSource(client *bigquery.Client, table string) (*BigQueryEventSource, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("touchpoint table is required")
	}
	return &BigQueryEventSource{client: client, tableRef: client.TableRef(table)}, nil
}

func (s *BigQueryEventSource) FetchTouchpointEvents(ctx context.Context, query types.EventQuery) ([]types.RawEvent, error) {
	sql, params := buildTouchpointQuery(s.tableRef, query)
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query touchpoint events: %w", err)
	}
	return readTouchpointRows(iter)
}

func buildTouchpointQuery(tableRef string, query types.EventQuery) (string, []cloudbigquery.QueryParameter) {
	params := []cloudbigquery.QueryParameter{
		{Name: "tenantID", Value: query.TenantID.String()},
		{Name: "campaignID", Value: query.CampaignID.String()},
	}
	var window strings.Builder
	if query.Start != nil {
		window.WriteString("\n  AND occurred_at >= @start")
		params = append(params, cloudbigquery.QueryParameter{Name: "start", Value: query.Start.UTC()})
	}
	if query.End != nil {
		window.WriteString("\n  AND occurred_at <= @end")
		params = append(params, cloudbigquery.QueryParameter{Name: "end", Value: query.End.UTC()})
	}
	return fmt.Sprintf(touchpointEventsSQL, tableRef, window.String()), params
}

func readTouchpointRows(iter rowIterator) ([]types.RawEvent, error) {
	events := []types.RawEvent{}
	for {
		var row touchpointRow
		if err := iter.Next(&row); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("reading touchpoint row: %w", err)
		}
		event, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func eventFromRow(row touchpointRow) (types.RawEvent, error) {
	campaignID, err := uuid.Parse(row.CampaignID)
	if err != nil {
		return types.RawEvent{}, fmt.Errorf("touchpoint %s: campaign id: %w", row.EventID, err)
	}
	e := types.RawEvent{
		ID:                row.EventID,
		CampaignID:        campaignID,
		AttributionMethod: row.AttributionMethod.StringVal,
		UserID:            nullString(row.UserID),
		SessionID:         nullString(row.SessionID),
		DeviceID:          nullString(row.DeviceID),
		ConversionType:    nullString(row.ConversionType),
	}
	if row.OccurredAt.Valid {
		e.OccurredAt = row.OccurredAt.Timestamp.UTC()
	}
	if row.EpisodeID.Valid && row.EpisodeID.StringVal != "" {
		episodeID, err := uuid.Parse(row.EpisodeID.StringVal)
		if err != nil {
			return types.RawEvent{}, fmt.Errorf("touchpoint %s: episode id: %w", row.EventID, err)
		}
		e.EpisodeID = &episodeID
	}
	if row.ConversionValue.Valid {
		v := row.ConversionValue.Float64
		e.ConversionValue = &v
	}
	if row.Metadata.Valid && row.Metadata.StringVal != "" && row.Metadata.StringVal != "null" {
		e.Metadata = []byte(row.Metadata.StringVal)
	}
	return e, nil
}

func nullString(v cloudbigquery.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.StringVal
	return &s
}
