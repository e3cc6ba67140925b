package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// Recorder persists immutable transaction rows. Recorded outcomes feed the
// engine's consumption windows, so rows are append-only.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder returns a Recorder using the given connection.
func NewRecorder(conn *gorm.DB) *Recorder {
	return &Recorder{db: conn}
}

// WithConn returns a copy of the recorder bound to conn, typically an open
// transaction shared with an eligibility check.
func (r *Recorder) WithConn(conn *gorm.DB) *Recorder {
	return &Recorder{db: conn}
}

// RecordFuel appends one fuel approve/deny event. CompletedAt is stamped
// only on approvals.
func (r *Recorder) RecordFuel(vehicleID, stationID, processedByID uuid.UUID, status string, liters *float64, denialReason *string) (*models.FuelTransaction, error) {
	tx := models.FuelTransaction{
		VehicleID:     vehicleID,
		StationID:     stationID,
		ProcessedByID: processedByID,
		Status:        status,
		Liters:        liters,
		DenialReason:  denialReason,
	}
	if status == models.TxApproved {
		now := time.Now()
		tx.CompletedAt = &now
	}
	if errCreate := r.db.Create(&tx).Error; errCreate != nil {
		return nil, fmt.Errorf("quota: record fuel transaction: %w", errCreate)
	}
	if errLoad := r.db.Preload("Vehicle").Preload("Station").First(&tx, "id = ?", tx.ID).Error; errLoad != nil {
		return nil, fmt.Errorf("quota: reload fuel transaction: %w", errLoad)
	}
	return &tx, nil
}

// RecordGas appends one gas-bottle approve/deny event.
func (r *Recorder) RecordGas(householdID, stationID, processedByID uuid.UUID, status string, quantity int, exchangeType string, denialReason *string) (*models.GasBottleTransaction, error) {
	if exchangeType == "" {
		exchangeType = models.ExchangeNew
	}
	tx := models.GasBottleTransaction{
		HouseholdID:   householdID,
		StationID:     stationID,
		ProcessedByID: processedByID,
		Status:        status,
		Quantity:      quantity,
		ExchangeType:  exchangeType,
		DenialReason:  denialReason,
	}
	if errCreate := r.db.Create(&tx).Error; errCreate != nil {
		return nil, fmt.Errorf("quota: record gas transaction: %w", errCreate)
	}
	if errLoad := r.db.Preload("Household").Preload("Station").First(&tx, "id = ?", tx.ID).Error; errLoad != nil {
		return nil, fmt.Errorf("quota: reload gas transaction: %w", errLoad)
	}
	return &tx, nil
}

// LastFill returns the most recent approved fuel transaction for a vehicle,
// or nil when it has none.
func (r *Recorder) LastFill(vehicleID uuid.UUID) (*models.FuelTransaction, error) {
	var tx models.FuelTransaction
	errFind := r.db.Preload("Station").
		Where("vehicle_id = ? AND status = ?", vehicleID, models.TxApproved).
		Order("created_at DESC").
		First(&tx).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("quota: last fill: %w", errFind)
	}
	return &tx, nil
}

// LastGasPurchase returns the most recent approved gas transaction for a
// household, or nil when it has none.
func (r *Recorder) LastGasPurchase(householdID uuid.UUID) (*models.GasBottleTransaction, error) {
	var tx models.GasBottleTransaction
	errFind := r.db.Preload("Station").
		Where("household_id = ? AND status = ?", householdID, models.TxApproved).
		Order("created_at DESC").
		First(&tx).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("quota: last gas purchase: %w", errFind)
	}
	return &tx, nil
}
