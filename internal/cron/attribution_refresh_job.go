package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
)

const defaultRefreshLookback = 30 * 24 * time.Hour

// AttributionRefreshJobParams configure the scheduled model recomputation.
type AttributionRefreshJobParams struct {
	Logger    *logger.Logger
	Campaigns campaignLister
	Engine    comparer
	Lookback  time.Duration
}

type campaignLister interface {
	ListActiveCampaigns(ctx context.Context, since time.Time) ([]CampaignScope, error)
}

type comparer interface {
	CompareModels(ctx context.Context, req attribution.CompareRequest) (*attribution.Comparison, error)
}

// NewAttributionRefreshJob builds the job that recomputes every model for active campaigns.
func NewAttributionRefreshJob(params AttributionRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Campaigns == nil {
		return nil, fmt.Errorf("campaign lister required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("attribution engine required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultRefreshLookback
	}
	return &attributionRefreshJob{
		logg:      params.Logger,
		campaigns: params.Campaigns,
		engine:    params.Engine,
		lookback:  lookback,
		now:       time.Now,
	}, nil
}

type attributionRefreshJob struct {
	logg      *logger.Logger
	campaigns campaignLister
	engine    comparer
	lookback  time.Duration
	now       func() time.Time
}

func (j *attributionRefreshJob) Name() string { return "attribution-refresh" }

func (j *attributionRefreshJob) Run(ctx context.Context) error {
	end := j.now().UTC()
	start := end.Add(-j.lookback)
	scopes, err := j.campaigns.ListActiveCampaigns(ctx, start)
	if err != nil {
		return fmt.Errorf("list active campaigns: %w", err)
	}

	var errs error
	refreshed := 0
	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		scopeCtx := j.logg.WithTenantID(ctx, scope.TenantID.String())
		scopeCtx = j.logg.WithCampaignID(scopeCtx, scope.CampaignID.String())
		windowStart, windowEnd := start, end
		cmp, err := j.engine.CompareModels(scopeCtx, attribution.CompareRequest{
			TenantID:   scope.TenantID,
			CampaignID: scope.CampaignID,
			Start:      &windowStart,
			End:        &windowEnd,
		})
		if err != nil {
			j.logg.Error(scopeCtx, "attribution refresh failed", err)
			errs = multierr.Append(errs, fmt.Errorf("campaign %s: %w", scope.CampaignID, err))
			continue
		}
		refreshed++
		j.logg.Info(j.logg.WithFields(scopeCtx, map[string]any{
			"path_count": cmp.PathCount,
			"models":     len(cmp.Results),
		}), "attribution refreshed")
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"campaigns": len(scopes),
		"refreshed": refreshed,
		"failed":    len(multierr.Errors(errs)),
	}), "attribution refresh summary")
	return errs
}
