package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle types recognized by fuel rules.
const (
	VehiclePrivateCar = "PRIVATE_CAR"
	VehicleTaxi       = "TAXI"
	VehicleTruck      = "TRUCK"
	VehicleMotorcycle = "MOTORCYCLE"
	VehicleBus        = "BUS"
	VehicleGovernment = "GOVERNMENT"
	VehicleOther      = "OTHER"
)

// Fuel types.
const (
	FuelEssence = "ESSENCE"
	FuelDiesel  = "DIESEL"
	FuelGPL     = "GPL"
)

// Vehicle is a fuel quota subject registered by a citizen.
//
// The Custom* override fields are captured at registration/admin time but
// are intentionally not consulted by the eligibility engine; see DESIGN.md.
type Vehicle struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"ownerId"`
	Owner   *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	PlateNumber string `gorm:"type:text;not null;uniqueIndex" json:"plateNumber"`
	VehicleType string `gorm:"type:text;not null;index" json:"vehicleType"`
	FuelType    string `gorm:"type:text;not null" json:"fuelType"`
	Brand       string `gorm:"type:text" json:"brand,omitempty"`
	Model       string `gorm:"type:text" json:"model,omitempty"`

	IsVerified bool `gorm:"not null;default:false;index" json:"isVerified"`
	IsActive   bool `gorm:"not null;default:true" json:"isActive"`

	// Cached copy of the current QR payload; the QR registry is authoritative.
	QRCodeData string `gorm:"type:text" json:"-"`

	CustomMaxLitersPerFill  *float64 `json:"customMaxLitersPerFill,omitempty"`
	CustomMaxFillsPerPeriod *int     `json:"customMaxFillsPerPeriod,omitempty"`
	CustomPeriodHours       *int     `json:"customPeriodHours,omitempty"`
	CustomLimitReason       *string  `gorm:"type:text" json:"customLimitReason,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns the primary key.
func (v *Vehicle) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
