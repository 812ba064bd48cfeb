package attribution

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	"github.com/angelmondragon/sponsorlens-backend/pkg/pagination"
)

// EventSource reads raw touchpoint and conversion events.
type EventSource interface {
	FetchTouchpointEvents(ctx context.Context, query types.EventQuery) ([]types.RawEvent, error)
}

// PathStore persists path snapshots. Writing a path whose id already exists is a no-op.
type PathStore interface {
	UpsertPaths(ctx context.Context, tenantID, campaignID uuid.UUID, paths []types.Path) error
}

// ResultFilter narrows a result history read.
type ResultFilter struct {
	TenantID   uuid.UUID
	CampaignID uuid.UUID
	ModelType  *enums.AttributionModelType
	Limit      int
	// Before resumes history after the given row.
	Before *pagination.Cursor
}

// ResultStore appends result snapshots and reads them back.
type ResultStore interface {
	InsertResult(ctx context.Context, result types.Result) error
	LatestResult(ctx context.Context, tenantID, campaignID uuid.UUID, modelType enums.AttributionModelType) (*types.Result, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]types.Result, error)
}

// ResultCache holds the newest result per tenant, campaign and model.
type ResultCache interface {
	GetLatest(ctx context.Context, tenantID, campaignID uuid.UUID, modelType enums.AttributionModelType) (*types.Result, bool, error)
	SetLatest(ctx context.Context, result types.Result) error
}

// Notifier announces persisted results to downstream consumers.
type Notifier interface {
	ResultCalculated(ctx context.Context, result types.Result) error
}

// Recorder captures run metrics.
type Recorder interface {
	ObserveDuration(model string, duration time.Duration)
	ObservePaths(count int)
	IncSuccess(model string)
	IncFailure(model, reason string)
	AddUnallocated(model string, value float64)
}
