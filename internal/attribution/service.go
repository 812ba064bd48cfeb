package attribution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/model"
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/paths"
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sponsorlens-backend/pkg/errors"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
	"github.com/angelmondragon/sponsorlens-backend/pkg/metrics"
	"github.com/angelmondragon/sponsorlens-backend/pkg/pagination"
)

// Service computes attribution results and serves their history.
type Service interface {
	Calculate(ctx context.Context, req CalculateRequest) (*types.Result, error)
	CompareModels(ctx context.Context, req CompareRequest) (*Comparison, error)
	LatestResult(ctx context.Context, tenantID, campaignID uuid.UUID, modelType enums.AttributionModelType) (*types.Result, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]types.Result, error)
}

// CalculateRequest asks for one model run over a campaign window.
type CalculateRequest struct {
	TenantID     uuid.UUID
	CampaignID   uuid.UUID
	ModelType    enums.AttributionModelType
	Start        *time.Time
	End          *time.Time
	HalfLifeDays float64
}

// CompareRequest asks for several model runs over the same path set.
// An empty ModelTypes runs every model.
type CompareRequest struct {
	TenantID     uuid.UUID
	CampaignID   uuid.UUID
	ModelTypes   []enums.AttributionModelType
	Start        *time.Time
	End          *time.Time
	HalfLifeDays float64
}

// Comparison holds one result per requested model plus credit rollups.
type Comparison struct {
	PathCount int                                               `json:"path_count"`
	Results   map[enums.AttributionModelType]types.Result       `json:"results"`
	Channels  map[enums.AttributionModelType]map[string]float64 `json:"channels"`
	Episodes  map[enums.AttributionModelType]map[string]float64 `json:"episodes"`
}

// ServiceParams wires the engine. Cache, Notifier and Metrics are optional.
type ServiceParams struct {
	Events       EventSource
	Paths        PathStore
	Results      ResultStore
	Cache        ResultCache
	Notifier     Notifier
	Metrics      Recorder
	Logger       *logger.Logger
	HalfLifeDays float64
	QueryTimeout time.Duration
	Now          func() time.Time
}

type service struct {
	events       EventSource
	paths        PathStore
	results      ResultStore
	cache        ResultCache
	notifier     Notifier
	metrics      Recorder
	logg         *logger.Logger
	halfLifeDays float64
	queryTimeout time.Duration
	now          func() time.Time
}

// NewService wires an attribution engine with the provided collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.Events == nil {
		return nil, fmt.Errorf("event source required")
	}
	if params.Paths == nil {
		return nil, fmt.Errorf("path store required")
	}
	if params.Results == nil {
		return nil, fmt.Errorf("result store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	halfLife := params.HalfLifeDays
	if halfLife <= 0 {
		halfLife = model.DefaultHalfLifeDays
	}
	rec := params.Metrics
	if rec == nil {
		rec = (*metrics.AttributionMetrics)(nil)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		events:       params.Events,
		paths:        params.Paths,
		results:      params.Results,
		cache:        params.Cache,
		notifier:     params.Notifier,
		metrics:      rec,
		logg:         params.Logger,
		halfLifeDays: halfLife,
		queryTimeout: params.QueryTimeout,
		now:          now,
	}, nil
}

func (s *service) Calculate(ctx context.Context, req CalculateRequest) (*types.Result, error) {
	if err := validateScope(req.TenantID, req.CampaignID, req.Start, req.End); err != nil {
		return nil, err
	}
	m, err := s.modelFor(req.ModelType, req.HalfLifeDays)
	if err != nil {
		s.metrics.IncFailure(string(req.ModelType), metrics.ReasonValidation)
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"tenant_id":   req.TenantID.String(),
		"campaign_id": req.CampaignID.String(),
		"model_type":  string(req.ModelType),
	})
	started := time.Now()

	built, err := s.loadPaths(ctx, req.TenantID, req.CampaignID, req.Start, req.End)
	if err != nil {
		s.metrics.IncFailure(string(req.ModelType), metrics.ReasonUpstream)
		return nil, err
	}

	result := s.compute(ctx, m, built, req.TenantID, req.CampaignID, req.Start, req.End)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.paths.UpsertPaths(gctx, req.TenantID, req.CampaignID, built); err != nil {
			return persistenceError("upsert paths", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.results.InsertResult(gctx, result); err != nil {
			return persistenceError("insert result", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncFailure(string(req.ModelType), metrics.ReasonPersistence)
		s.logg.Error(ctx, "attribution persistence failed", err)
		return nil, err
	}

	s.afterPersist(ctx, result)
	s.metrics.ObserveDuration(string(req.ModelType), time.Since(started))
	s.metrics.IncSuccess(string(req.ModelType))

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"result_id":   result.ID.String(),
		"paths":       len(built),
		"conversions": result.TotalConversions,
		"confidence":  result.ConfidenceScore,
		"duration_ms": time.Since(started).Milliseconds(),
	}), "attribution calculated")

	return &result, nil
}

func (s *service) CompareModels(ctx context.Context, req CompareRequest) (*Comparison, error) {
	if err := validateScope(req.TenantID, req.CampaignID, req.Start, req.End); err != nil {
		return nil, err
	}
	modelTypes := normalizeModelTypes(req.ModelTypes)
	models := make([]model.Model, 0, len(modelTypes))
	for _, mt := range modelTypes {
		m, err := s.modelFor(mt, req.HalfLifeDays)
		if err != nil {
			s.metrics.IncFailure(string(mt), metrics.ReasonValidation)
			return nil, err
		}
		models = append(models, m)
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"tenant_id":   req.TenantID.String(),
		"campaign_id": req.CampaignID.String(),
		"models":      len(models),
	})
	started := time.Now()

	built, err := s.loadPaths(ctx, req.TenantID, req.CampaignID, req.Start, req.End)
	if err != nil {
		for _, mt := range modelTypes {
			s.metrics.IncFailure(string(mt), metrics.ReasonUpstream)
		}
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[enums.AttributionModelType]types.Result, len(models))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.paths.UpsertPaths(gctx, req.TenantID, req.CampaignID, built); err != nil {
			return persistenceError("upsert paths", err)
		}
		return nil
	})
	for _, m := range models {
		m := m
		g.Go(func() error {
			result := s.compute(gctx, m, built, req.TenantID, req.CampaignID, req.Start, req.End)
			if err := s.results.InsertResult(gctx, result); err != nil {
				return persistenceError(fmt.Sprintf("insert %s result", m.Type()), err)
			}
			mu.Lock()
			results[m.Type()] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, mt := range modelTypes {
			s.metrics.IncFailure(string(mt), metrics.ReasonPersistence)
		}
		s.logg.Error(ctx, "attribution comparison failed", err)
		return nil, err
	}

	comparison := &Comparison{
		PathCount: len(built),
		Results:   results,
		Channels:  make(map[enums.AttributionModelType]map[string]float64, len(results)),
		Episodes:  make(map[enums.AttributionModelType]map[string]float64, len(results)),
	}
	elapsed := time.Since(started)
	for mt, result := range results {
		comparison.Channels[mt] = model.ChannelBreakdown(built, result)
		comparison.Episodes[mt] = model.EpisodeBreakdown(built, result)
		s.afterPersist(ctx, result)
		s.metrics.ObserveDuration(string(mt), elapsed)
		s.metrics.IncSuccess(string(mt))
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"paths":       len(built),
		"duration_ms": elapsed.Milliseconds(),
	}), "attribution models compared")

	return comparison, nil
}

func (s *service) LatestResult(ctx context.Context, tenantID, campaignID uuid.UUID, modelType enums.AttributionModelType) (*types.Result, error) {
	if err := validateScope(tenantID, campaignID, nil, nil); err != nil {
		return nil, err
	}
	if !modelType.IsValid() {
		return nil, invalidModelError(modelType)
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetLatest(ctx, tenantID, campaignID, modelType)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "attribution cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	result, err := s.results.LatestResult(ctx, tenantID, campaignID, modelType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load attribution result")
	}
	if result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no attribution result for campaign")
	}
	s.cacheResult(ctx, *result)
	return result, nil
}

func (s *service) ListResults(ctx context.Context, filter ResultFilter) ([]types.Result, error) {
	if err := validateScope(filter.TenantID, filter.CampaignID, nil, nil); err != nil {
		return nil, err
	}
	if filter.ModelType != nil && !filter.ModelType.IsValid() {
		return nil, invalidModelError(*filter.ModelType)
	}
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	results, err := s.results.ListResults(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list attribution results")
	}
	if results == nil {
		results = []types.Result{}
	}
	return results, nil
}

func (s *service) modelFor(modelType enums.AttributionModelType, halfLifeDays float64) (model.Model, error) {
	if !modelType.IsValid() {
		return nil, invalidModelError(modelType)
	}
	if halfLifeDays <= 0 {
		halfLifeDays = s.halfLifeDays
	}
	m, err := model.New(modelType, model.Options{HalfLifeDays: halfLifeDays})
	if err != nil {
		if errors.Is(err, model.ErrUnknownModel) {
			return nil, invalidModelError(modelType)
		}
		return nil, err
	}
	return m, nil
}

func (s *service) loadPaths(ctx context.Context, tenantID, campaignID uuid.UUID, start, end *time.Time) ([]types.Path, error) {
	readCtx := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	events, err := s.events.FetchTouchpointEvents(readCtx, types.EventQuery{
		TenantID:   tenantID,
		CampaignID: campaignID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		s.logg.Error(ctx, "touchpoint event read failed", err)
		return nil, upstreamError(err)
	}
	built := paths.Build(tenantID, campaignID, events)
	s.metrics.ObservePaths(len(built))
	return built, nil
}

// compute runs the model and stamps the run identity onto the result.
func (s *service) compute(ctx context.Context, m model.Model, built []types.Path, tenantID, campaignID uuid.UUID, start, end *time.Time) types.Result {
	result := m.Calculate(built)
	result.ID = uuid.New()
	result.TenantID = tenantID
	result.CampaignID = campaignID
	result.PeriodStart = start
	result.PeriodEnd = end
	result.CalculatedAt = s.now().UTC().Truncate(time.Microsecond)

	report := model.Validate(built, result)
	result.UnallocatedValue = report.Unallocated
	if report.Unallocated > model.Tolerance {
		s.metrics.AddUnallocated(string(result.ModelType), report.Unallocated)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"model_type":  string(result.ModelType),
			"unallocated": report.Unallocated,
			"violations":  len(report.Violations()),
		}), "attribution credit not fully allocated")
	}
	return result
}

func (s *service) afterPersist(ctx context.Context, result types.Result) {
	s.cacheResult(ctx, result)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ResultCalculated(ctx, result); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"result_id": result.ID.String(),
			"error":     err.Error(),
		}), "attribution notification failed")
	}
}

func (s *service) cacheResult(ctx context.Context, result types.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetLatest(ctx, result); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"result_id": result.ID.String(),
			"error":     err.Error(),
		}), "attribution cache write failed")
	}
}

func validateScope(tenantID, campaignID uuid.UUID, start, end *time.Time) error {
	if tenantID == uuid.Nil {
		return validationError("tenant id is required")
	}
	if campaignID == uuid.Nil {
		return validationError("campaign id is required")
	}
	if start != nil && end != nil && end.Before(*start) {
		return validationError("end must be after start")
	}
	return nil
}

// normalizeModelTypes defaults to every model and collapses duplicates,
// keeping first-seen order.
func normalizeModelTypes(requested []enums.AttributionModelType) []enums.AttributionModelType {
	if len(requested) == 0 {
		return enums.AllAttributionModelTypes()
	}
	seen := make(map[enums.AttributionModelType]struct{}, len(requested))
	out := make([]enums.AttributionModelType, 0, len(requested))
	for _, mt := range requested {
		if _, ok := seen[mt]; ok {
			continue
		}
		seen[mt] = struct{}{}
		out = append(out, mt)
	}
	return out
}
