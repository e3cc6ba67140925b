package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QR entity kinds.
const (
	QREntityVehicle   = "VEHICLE"
	QREntityHousehold = "HOUSEHOLD"
)

// QRCode is a registry row for one issued QR payload. At most one active
// row exists per (entityType, entityId); superseded rows are deactivated.
type QRCode struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	EntityType string    `gorm:"type:text;not null;index:idx_qr_codes_entity" json:"entityType"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_qr_codes_entity" json:"entityId"`

	CodeHash string `gorm:"type:text;not null;uniqueIndex" json:"-"` // HMAC digest of CodeData, the lookup key.
	CodeData string `gorm:"type:text;not null" json:"-"`             // Full signed payload, replayable.

	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}

// BeforeCreate assigns the primary key.
func (q *QRCode) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
