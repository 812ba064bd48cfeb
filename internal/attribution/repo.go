package attribution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/db"
	"github.com/angelmondragon/sponsorlens-backend/pkg/db/models"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	pkgtypes "github.com/angelmondragon/sponsorlens-backend/pkg/types"
)

const pathInsertBatchSize = 200

// PathRepository persists path snapshots with gorm.
type PathRepository struct {
	db *gorm.DB
}

// NewPathRepository returns a path repository bound to the provided database.
func NewPathRepository(db *gorm.DB) *PathRepository {
	return &PathRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *PathRepository) WithTx(tx *gorm.DB) *PathRepository {
	if tx == nil {
		return r
	}
	return &PathRepository{db: tx}
}

// UpsertPaths inserts snapshots, skipping ids that already exist.
func (r *PathRepository) UpsertPaths(ctx context.Context, tenantID, campaignID uuid.UUID, paths []types.Path) error {
	if len(paths) == 0 {
		return nil
	}
	rows := make([]models.AttributionPath, 0, len(paths))
	for _, p := range paths {
		rows = append(rows, pathToModel(tenantID, campaignID, p))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		CreateInBatches(&rows, pathInsertBatchSize).Error
}

// ListByCampaign returns stored snapshots for a campaign ordered by conversion time.
func (r *PathRepository) ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID) ([]types.Path, error) {
	var rows []models.AttributionPath
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND campaign_id = ?", tenantID, campaignID).
		Order("conversion_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Path, 0, len(rows))
	for _, row := range rows {
		out = append(out, pathFromModel(row))
	}
	return out, nil
}

// ResultRepository appends and reads result snapshots with gorm.
type ResultRepository struct {
	db *gorm.DB
}

// NewResultRepository returns a result repository bound to the provided database.
func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *ResultRepository) WithTx(tx *gorm.DB) *ResultRepository {
	if tx == nil {
		return r
	}
	return &ResultRepository{db: tx}
}

// InsertResult appends one result row.
func (r *ResultRepository) InsertResult(ctx context.Context, result types.Result) error {
	row := resultToModel(result)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return fmt.Errorf("%w: %w", ErrDuplicateResult, err)
		}
		return err
	}
	return nil
}

// LatestResult returns the newest result for the model, or nil when none exists.
func (r *ResultRepository) LatestResult(ctx context.Context, tenantID, campaignID uuid.UUID, modelType enums.AttributionModelType) (*types.Result, error) {
	var rows []models.AttributionResult
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND campaign_id = ? AND model_type = ?", tenantID, campaignID, modelType).
		Order("calculated_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	result := resultFromModel(rows[0])
	return &result, nil
}

// ListResults returns result history newest first.
func (r *ResultRepository) ListResults(ctx context.Context, filter ResultFilter) ([]types.Result, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND campaign_id = ?", filter.TenantID, filter.CampaignID)
	if filter.ModelType != nil {
		query = query.Where("model_type = ?", *filter.ModelType)
	}
	if filter.Before != nil {
		at := filter.Before.CalculatedAt.UTC()
		query = query.Where("calculated_at < ? OR (calculated_at = ? AND id < ?)", at, at, filter.Before.ID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.AttributionResult
	if err := query.Order("calculated_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, resultFromModel(row))
	}
	return out, nil
}

func pathToModel(tenantID, campaignID uuid.UUID, p types.Path) models.AttributionPath {
	tps := make(pkgtypes.PathTouchpoints, 0, len(p.Touchpoints))
	for _, tp := range p.Touchpoints {
		tps = append(tps, pkgtypes.PathTouchpoint{
			TouchpointID:      tp.ID,
			Timestamp:         tp.Timestamp,
			AttributionMethod: tp.AttributionMethod,
			CampaignID:        tp.CampaignID,
			EpisodeID:         tp.EpisodeID,
			Metadata:          tp.Metadata,
		})
	}
	row := models.AttributionPath{
		ID:              p.ID,
		TenantID:        tenantID,
		CampaignID:      campaignID,
		IdentitySource:  p.IdentitySource,
		IdentityKey:     p.IdentityKey,
		Touchpoints:     tps,
		TouchpointCount: len(tps),
		ConversionType:  p.ConversionType,
		ConversionAt:    p.ConversionAt,
	}
	if p.ConversionValue != nil {
		row.ConversionValue = decimal.NewNullDecimal(decimal.NewFromFloat(*p.ConversionValue))
	}
	return row
}

func pathFromModel(row models.AttributionPath) types.Path {
	tps := make([]types.Touchpoint, 0, len(row.Touchpoints))
	for _, tp := range row.Touchpoints {
		tps = append(tps, types.Touchpoint{
			ID:                tp.TouchpointID,
			Timestamp:         tp.Timestamp,
			AttributionMethod: tp.AttributionMethod,
			CampaignID:        tp.CampaignID,
			EpisodeID:         tp.EpisodeID,
			Metadata:          tp.Metadata,
		})
	}
	p := types.Path{
		ID:             row.ID,
		IdentitySource: row.IdentitySource,
		IdentityKey:    row.IdentityKey,
		Touchpoints:    tps,
		ConversionType: row.ConversionType,
		ConversionAt:   row.ConversionAt,
	}
	if row.ConversionValue.Valid {
		v := row.ConversionValue.Decimal.InexactFloat64()
		p.ConversionValue = &v
	}
	return p
}

func resultToModel(result types.Result) models.AttributionResult {
	credits := result.TouchpointCredits
	if credits == nil {
		credits = pkgtypes.TouchpointCredits{}
	}
	return models.AttributionResult{
		ID:                        result.ID,
		TenantID:                  result.TenantID,
		CampaignID:                result.CampaignID,
		ModelType:                 result.ModelType,
		TotalConversions:          result.TotalConversions,
		TotalConversionValue:      decimal.NewFromFloat(result.TotalConversionValue).Round(2),
		AttributedConversions:     result.AttributedConversions,
		AttributedConversionValue: decimal.NewFromFloat(result.AttributedConversionValue).Round(2),
		UnallocatedValue:          decimal.NewFromFloat(result.UnallocatedValue).Round(2),
		TouchpointCredits:         credits,
		ConfidenceScore:           result.ConfidenceScore,
		PeriodStart:               result.PeriodStart,
		PeriodEnd:                 result.PeriodEnd,
		CalculatedAt:              result.CalculatedAt,
	}
}

func resultFromModel(row models.AttributionResult) types.Result {
	credits := row.TouchpointCredits
	if credits == nil {
		credits = pkgtypes.TouchpointCredits{}
	}
	return types.Result{
		ID:                        row.ID,
		TenantID:                  row.TenantID,
		CampaignID:                row.CampaignID,
		ModelType:                 row.ModelType,
		TotalConversions:          row.TotalConversions,
		TotalConversionValue:      row.TotalConversionValue.InexactFloat64(),
		AttributedConversions:     row.AttributedConversions,
		AttributedConversionValue: row.AttributedConversionValue.InexactFloat64(),
		UnallocatedValue:          row.UnallocatedValue.InexactFloat64(),
		TouchpointCredits:         credits,
		ConfidenceScore:           row.ConfidenceScore,
		PeriodStart:               utcPtr(row.PeriodStart),
		PeriodEnd:                 utcPtr(row.PeriodEnd),
		CalculatedAt:              row.CalculatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
