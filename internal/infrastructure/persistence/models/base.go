package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/photolab/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// StudioModel provides persistence fields for studio-owned entities.
type StudioModel struct {
	BaseModel
	StudioID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainStudioEntity populates StudioModel from domain StudioEntity
func (m *StudioModel) FromDomainStudioEntity(e shared.StudioEntity) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.StudioID = e.StudioID
}

// ToDomainStudioEntity converts StudioModel to domain StudioEntity
func (m *StudioModel) ToDomainStudioEntity() shared.StudioEntity {
	return shared.StudioEntity{BaseEntity: m.BaseModel.ToDomain(), StudioID: m.StudioID}
}
