package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Blacklist severities.
const (
	SeverityWarning = "WARNING"
	SeverityBlocked = "BLOCKED"
)

// BlacklistEntry bars or flags an identifier. At least one of NationalID
// and PlateNumber is set; an identifier has at most one active entry.
type BlacklistEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	NationalID  *string `gorm:"type:text;index" json:"nationalId,omitempty"`
	PlateNumber *string `gorm:"type:text;index" json:"plateNumber,omitempty"`

	Reason   string  `gorm:"type:text;not null" json:"reason"`
	Severity string  `gorm:"type:text;not null;default:WARNING" json:"severity"`
	Notes    *string `gorm:"type:text" json:"notes,omitempty"`

	AddedByID *uuid.UUID `gorm:"type:uuid" json:"addedById,omitempty"`

	ExpiresAt *time.Time `json:"expiresAt,omitempty"` // nil = permanent
	IsActive  bool       `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns the primary key.
func (e *BlacklistEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
