package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save inserts a new order with its items, or updates the status of an existing one.
// Items are immutable once written.
func (r *GormOrderRepository) Save(ctx context.Context, order *fulfillment.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.OrderModel{}).
			Where("id = ? AND studio_id = ?", order.ID, order.StudioID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(model).Error
		}
		return tx.Model(&models.OrderModel{}).
			Where("id = ? AND studio_id = ?", order.ID, order.StudioID).
			Updates(map[string]any{
				"status":     model.Status,
				"updated_at": model.UpdatedAt,
			}).Error
	})
}

// FindByID finds an order by ID within a studio
func (r *GormOrderRepository) FindByID(ctx context.Context, studioID, id uuid.UUID) (*fulfillment.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Scopes(StudioScope(studioID)).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStudio lists a studio's orders with the total row count.
// Unknown sort columns fall back to newest first.
func (r *GormOrderRepository) FindByStudio(ctx context.Context, studioID uuid.UUID, filter fulfillment.OrderFilter) ([]fulfillment.Order, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.OrderModel{}).Scopes(StudioScope(studioID))
		if filter.Status != "" {
			q = q.Where("status = ?", string(filter.Status))
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := filtered().
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Scopes(Paginate(filter.Page, filter.PageSize)).
		Order(ValidateSortField(filter.OrderBy, OrderSortFields, "created_at") + " " + ValidateSortOrder(filter.OrderDir)).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]fulfillment.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Ensure GormOrderRepository implements the interface
var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)
