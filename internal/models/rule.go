package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WilayaAll is the sentinel region matching every wilaya in a fuel rule.
const WilayaAll = "ALL"

// FuelRule limits fills for a vehicle type, optionally scoped to a wilaya.
type FuelRule struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	VehicleType string  `gorm:"type:text;not null;uniqueIndex:idx_fuel_rules_type_wilaya" json:"vehicleType"`
	Wilaya      *string `gorm:"type:text;uniqueIndex:idx_fuel_rules_type_wilaya" json:"wilaya,omitempty"` // nil or "ALL" means nationwide

	MaxFillsPerPeriod int     `gorm:"not null" json:"maxFillsPerPeriod"`
	PeriodHours       int     `gorm:"not null" json:"periodHours"`
	MaxLitersPerFill  float64 `gorm:"not null" json:"maxLitersPerFill"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns the primary key.
func (r *FuelRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// GasBottleRule limits bottle purchases for a household-size band.
// A nil MaxMemberCount leaves the band unbounded above.
type GasBottleRule struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name string `gorm:"type:text;not null" json:"name"`

	MinMemberCount int  `gorm:"not null;index" json:"minMemberCount"`
	MaxMemberCount *int `json:"maxMemberCount,omitempty"`

	MaxBottlesPerPeriod int `gorm:"not null" json:"maxBottlesPerPeriod"`
	PeriodDays          int `gorm:"not null" json:"periodDays"`
	BottleSize          int `gorm:"not null;default:13" json:"bottleSize"` // kilograms

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns the primary key.
func (r *GasBottleRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
