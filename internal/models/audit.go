package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records an administrative or operational action. Writes are
// fire-and-forget; a failed audit write never fails the primary operation.
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID *uuid.UUID `gorm:"type:uuid;index" json:"userId,omitempty"`

	Action     string     `gorm:"type:text;not null;index" json:"action"`
	EntityType string     `gorm:"type:text" json:"entityType,omitempty"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entityId,omitempty"`

	Details datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
}

// BeforeCreate assigns the primary key.
func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
