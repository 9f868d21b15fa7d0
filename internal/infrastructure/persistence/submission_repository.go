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

// GormSubmissionRepository implements fulfillment.SubmissionRepository using GORM
type GormSubmissionRepository struct {
	db *gorm.DB
}

// NewGormSubmissionRepository creates a new GormSubmissionRepository
func NewGormSubmissionRepository(db *gorm.DB) *GormSubmissionRepository {
	return &GormSubmissionRepository{db: db}
}

// Save writes a submission. A second write for the same checkout is ignored,
// so replayed events do not duplicate audit rows.
func (r *GormSubmissionRepository) Save(ctx context.Context, s *fulfillment.Submission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "checkout_id"}}, DoNothing: true}).
		Create(models.SubmissionModelFromDomain(s)).Error
}

// FindRecent returns the latest submissions of a studio, newest first
func (r *GormSubmissionRepository) FindRecent(ctx context.Context, studioID uuid.UUID, limit int) ([]fulfillment.Submission, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	var rows []models.SubmissionModel
	if err := r.db.WithContext(ctx).
		Scopes(StudioScope(studioID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]fulfillment.Submission, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormSubmissionRepository implements the interface
var _ fulfillment.SubmissionRepository = (*GormSubmissionRepository)(nil)
