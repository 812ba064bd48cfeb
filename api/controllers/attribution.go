package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/api/middleware"
	"github.com/angelmondragon/sponsorlens-backend/api/responses"
	"github.com/angelmondragon/sponsorlens-backend/api/validators"
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sponsorlens-backend/pkg/errors"
	"github.com/angelmondragon/sponsorlens-backend/pkg/logger"
	"github.com/angelmondragon/sponsorlens-backend/pkg/pagination"
)

type calculateRequest struct {
	CampaignID   string     `json:"campaign_id" validate:"required,uuid"`
	ModelType    string     `json:"model_type" validate:"required"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	HalfLifeDays float64    `json:"half_life_days,omitempty" validate:"omitempty,gt=0,max=365"`
}

type compareRequest struct {
	CampaignID   string     `json:"campaign_id" validate:"required,uuid"`
	ModelTypes   []string   `json:"model_types,omitempty" validate:"omitempty,max=10"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	HalfLifeDays float64    `json:"half_life_days,omitempty" validate:"omitempty,gt=0,max=365"`
}

// AttributionCalculate runs one model for a campaign and returns the persisted result.
func AttributionCalculate(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attribution service unavailable"))
			return
		}
		tenantID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body calculateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaignID, err := uuid.Parse(body.CampaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campaign_id"))
			return
		}

		modelType, err := parseModelType(body.ModelType, "model_type")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Calculate(r.Context(), attribution.CalculateRequest{
			TenantID:     tenantID,
			CampaignID:   campaignID,
			ModelType:    modelType,
			Start:        utcPtr(body.Start),
			End:          utcPtr(body.End),
			HalfLifeDays: body.HalfLifeDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AttributionCompare runs several models over one path set.
func AttributionCompare(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attribution service unavailable"))
			return
		}
		tenantID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body compareRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaignID, err := uuid.Parse(body.CampaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campaign_id"))
			return
		}

		modelTypes := make([]enums.AttributionModelType, 0, len(body.ModelTypes))
		for _, raw := range body.ModelTypes {
			mt, err := parseModelType(raw, "model_types")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			modelTypes = append(modelTypes, mt)
		}

		comparison, err := svc.CompareModels(r.Context(), attribution.CompareRequest{
			TenantID:     tenantID,
			CampaignID:   campaignID,
			ModelTypes:   modelTypes,
			Start:        utcPtr(body.Start),
			End:          utcPtr(body.End),
			HalfLifeDays: body.HalfLifeDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comparison)
	}
}

// AttributionLatestResult returns the newest persisted result for a campaign and model.
func AttributionLatestResult(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attribution service unavailable"))
			return
		}
		tenantID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaignID, err := validators.ParseQueryUUID(r, "campaign_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		modelType := validators.ParseQueryString(r, "model_type", 32)
		if modelType == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": "model_type"}))
			return
		}

		mt, err := parseModelType(modelType, "model_type")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.LatestResult(r.Context(), tenantID, campaignID, mt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AttributionListResults returns result history for a campaign, newest first.
func AttributionListResults(svc attribution.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "attribution service unavailable"))
			return
		}
		tenantID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaignID, err := validators.ParseQueryUUID(r, "campaign_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		before, err := pagination.ParseCursor(validators.ParseQueryString(r, "cursor", 256))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").WithDetails(map[string]any{"field": "cursor"}))
			return
		}

		filter := attribution.ResultFilter{TenantID: tenantID, CampaignID: campaignID, Limit: limit, Before: before}
		if raw := validators.ParseQueryString(r, "model_type", 32); raw != "" {
			mt, err := parseModelType(raw, "model_type")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filter.ModelType = &mt
		}

		results, err := svc.ListResults(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := map[string]any{"results": results}
		if n := len(results); n > 0 {
			if next := pagination.Next(n, limit, results[n-1].CalculatedAt, results[n-1].ID); next != "" {
				payload["next_cursor"] = next
			}
		}
		responses.WriteSuccess(w, payload)
	}
}

func tenantFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.TenantIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid tenant context")
	}
	return id, nil
}

func parseModelType(raw, field string) (enums.AttributionModelType, error) {
	mt, err := enums.ParseAttributionModelType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported attribution model").
			WithDetails(map[string]any{"field": field, "value": raw})
	}
	return mt, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
