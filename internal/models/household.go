package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Household is a gas-bottle quota subject registered by a citizen.
type Household struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"ownerId"`
	Owner   *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	NationalID string `gorm:"type:text;not null;uniqueIndex" json:"nationalId"`
	FullName   string `gorm:"type:text;not null" json:"fullName"`
	Address    string `gorm:"type:text;not null" json:"address"`
	Wilaya     string `gorm:"type:text;not null;index" json:"wilaya"`
	Commune    string `gorm:"type:text;not null" json:"commune"`

	MemberCount int `gorm:"not null" json:"memberCount"`

	IsVerified bool `gorm:"not null;default:false;index" json:"isVerified"`
	IsActive   bool `gorm:"not null;default:true" json:"isActive"`

	// Cached copy of the current QR payload; the QR registry is authoritative.
	QRCodeData string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns the primary key.
func (h *Household) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
