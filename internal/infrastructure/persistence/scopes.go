package persistence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// StudioScope restricts a query to one studio's rows
func StudioScope(studioID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("studio_id = ?", studioID)
	}
}

// Paginate applies LIMIT/OFFSET for a 1-based page
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		switch {
		case pageSize <= 0:
			pageSize = defaultPageSize
		case pageSize > maxPageSize:
			pageSize = maxPageSize
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
