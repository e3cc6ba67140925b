package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction statuses.
const (
	TxApproved = "APPROVED"
	TxDenied   = "DENIED"
)

// Gas bottle exchange types.
const (
	ExchangeNew      = "NEW"
	ExchangeExchange = "EXCHANGE"
)

// FuelTransaction is an immutable record of one fuel approve/deny event.
// Rows are never updated or deleted; they are the sole source of truth
// for rolling-window quota consumption.
type FuelTransaction struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	VehicleID     uuid.UUID `gorm:"type:uuid;not null;index:idx_fuel_tx_vehicle_created" json:"vehicleId"`
	StationID     uuid.UUID `gorm:"type:uuid;not null;index" json:"stationId"`
	ProcessedByID uuid.UUID `gorm:"type:uuid;not null" json:"processedById"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Station *Station `gorm:"foreignKey:StationID" json:"station,omitempty"`

	Status       string   `gorm:"type:text;not null;index" json:"status"`
	Liters       *float64 `json:"liters,omitempty"`
	DenialReason *string  `gorm:"type:text" json:"denialReason,omitempty"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime;index:idx_fuel_tx_vehicle_created" json:"createdAt"`
}

// BeforeCreate assigns the primary key.
func (t *FuelTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// GasBottleTransaction is an immutable record of one gas approve/deny
// event. Quantity may cover several bottles in a single purchase.
type GasBottleTransaction struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	HouseholdID   uuid.UUID `gorm:"type:uuid;not null;index:idx_gas_tx_household_created" json:"householdId"`
	StationID     uuid.UUID `gorm:"type:uuid;not null;index" json:"stationId"`
	ProcessedByID uuid.UUID `gorm:"type:uuid;not null" json:"processedById"`

	Household *Household `gorm:"foreignKey:HouseholdID" json:"household,omitempty"`
	Station   *Station   `gorm:"foreignKey:StationID" json:"station,omitempty"`

	Status       string  `gorm:"type:text;not null;index" json:"status"`
	Quantity     int     `gorm:"not null;default:1" json:"quantity"`
	ExchangeType string  `gorm:"type:text;not null;default:NEW" json:"exchangeType"`
	DenialReason *string `gorm:"type:text" json:"denialReason,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_gas_tx_household_created" json:"createdAt"`
}

// BeforeCreate assigns the primary key.
func (t *GasBottleTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
