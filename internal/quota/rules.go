// Package quota decides fuel and gas-bottle eligibility and records the
// resulting transactions.
package quota

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// RuleResolver resolves the quota rule applying to a subject. A nil rule
// with a nil error means no active rule matches, which callers treat as a
// denial rather than a failure.
type RuleResolver interface {
	FuelRule(vehicleType, stationWilaya string) (*models.FuelRule, error)
	GasBottleRule(memberCount int) (*models.GasBottleRule, error)
}

type dbRules struct {
	db *gorm.DB
}

// NewDBRules returns a RuleResolver that queries the rule tables directly.
func NewDBRules(conn *gorm.DB) RuleResolver {
	return &dbRules{db: conn}
}

// FuelRule tries the wilaya-specific rule first, then falls back to the
// nationwide rule (wilaya NULL or "ALL").
func (r *dbRules) FuelRule(vehicleType, stationWilaya string) (*models.FuelRule, error) {
	if stationWilaya != "" {
		var rule models.FuelRule
		errFind := r.db.
			Where("vehicle_type = ? AND wilaya = ? AND is_active = ?", vehicleType, stationWilaya, true).
			First(&rule).Error
		if errFind == nil {
			return &rule, nil
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("quota: resolve fuel rule: %w", errFind)
		}
	}

	var rule models.FuelRule
	errFind := r.db.
		Where("vehicle_type = ? AND (wilaya IS NULL OR wilaya = ?) AND is_active = ?",
			vehicleType, models.WilayaAll, true).
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("quota: resolve fuel rule: %w", errFind)
	}
	return &rule, nil
}

// GasBottleRule picks the narrowest band containing the member count by
// ordering candidates on min_member_count descending.
func (r *dbRules) GasBottleRule(memberCount int) (*models.GasBottleRule, error) {
	var rule models.GasBottleRule
	errFind := r.db.
		Where("is_active = ? AND min_member_count <= ?", true, memberCount).
		Where("max_member_count IS NULL OR max_member_count >= ?", memberCount).
		Order("min_member_count DESC").
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("quota: resolve gas rule: %w", errFind)
	}
	return &rule, nil
}
