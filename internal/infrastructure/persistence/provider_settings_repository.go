package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProviderSettingsRepository implements fulfillment.ProviderSettingsRepository using GORM
type GormProviderSettingsRepository struct {
	db *gorm.DB
}

// NewGormProviderSettingsRepository creates a new GormProviderSettingsRepository
func NewGormProviderSettingsRepository(db *gorm.DB) *GormProviderSettingsRepository {
	return &GormProviderSettingsRepository{db: db}
}

// FindByStudio returns every stored lab row for a studio
func (r *GormProviderSettingsRepository) FindByStudio(ctx context.Context, studioID uuid.UUID) ([]fulfillment.ProviderSettingsRecord, error) {
	var rows []models.ProviderSettingsModel
	if err := r.db.WithContext(ctx).
		Scopes(StudioScope(studioID)).
		Order("provider").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]fulfillment.ProviderSettingsRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// Save upserts the row keyed by (studio_id, provider)
func (r *GormProviderSettingsRepository) Save(ctx context.Context, record *fulfillment.ProviderSettingsRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	model := models.ProviderSettingsModelFromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "studio_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "sandbox", "sealed_credentials", "updated_at"}),
		}).
		Create(model).Error
}

// Ensure GormProviderSettingsRepository implements the interface
var _ fulfillment.ProviderSettingsRepository = (*GormProviderSettingsRepository)(nil)
