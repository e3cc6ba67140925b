package quota

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/blacklist"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// Eligibility statuses.
const (
	StatusApproved = "APPROVED"
	StatusDenied   = "DENIED"
	StatusWarning  = "WARNING"
)

// Subject lookup errors. A missing subject is an error; an ineligible
// subject is a structured result, never an error.
var (
	ErrVehicleNotFound   = errors.New("quota: vehicle not found")
	ErrHouseholdNotFound = errors.New("quota: household not found")
)

// FuelEligibility is the decision for one vehicle at one station.
type FuelEligibility struct {
	Status   string           `json:"status"`
	Eligible bool             `json:"eligible"`
	Vehicle  *models.Vehicle  `json:"vehicle"`
	Rule     *models.FuelRule `json:"rule"`
	Reason   string           `json:"reason,omitempty"`

	NextEligibleAt *time.Time `json:"nextEligibleAt,omitempty"`
	LastFillDate   *time.Time `json:"lastFillDate,omitempty"`
	LastFillLiters *float64   `json:"lastFillLiters,omitempty"`

	FillsInPeriod    int     `json:"fillsInPeriod"`
	MaxFillsAllowed  int     `json:"maxFillsAllowed"`
	MaxLitersAllowed float64 `json:"maxLitersAllowed"`

	HoursUntilNextFill *int                   `json:"hoursUntilNextFill,omitempty"`
	Blacklist          *blacklist.CheckResult `json:"blacklistInfo,omitempty"`
}

// GasEligibility is the decision for one household at one station.
type GasEligibility struct {
	Status    string                `json:"status"`
	Eligible  bool                  `json:"eligible"`
	Household *models.Household     `json:"household"`
	Rule      *models.GasBottleRule `json:"rule"`
	Reason    string                `json:"reason,omitempty"`

	NextEligibleAt   *time.Time `json:"nextEligibleAt,omitempty"`
	LastPurchaseDate *time.Time `json:"lastPurchaseDate,omitempty"`

	BottlesInPeriod   int `json:"bottlesInPeriod"`
	MaxBottlesAllowed int `json:"maxBottlesAllowed"`

	DaysUntilNextPurchase *int                   `json:"daysUntilNextPurchase,omitempty"`
	Blacklist             *blacklist.CheckResult `json:"blacklistInfo,omitempty"`
}

// Engine computes eligibility decisions from rules, consumption history,
// and the blacklist.
type Engine struct {
	db        *gorm.DB
	blacklist *blacklist.Service
	rules     RuleResolver
	now       func() time.Time
}

// NewEngine returns an Engine. When rules is nil the rule tables are
// queried directly.
func NewEngine(conn *gorm.DB, bl *blacklist.Service, rules RuleResolver) *Engine {
	if rules == nil {
		rules = NewDBRules(conn)
	}
	return &Engine{db: conn, blacklist: bl, rules: rules, now: time.Now}
}

// WithConn returns a copy of the engine bound to conn, typically an open
// transaction, so a caller can check and record atomically.
func (e *Engine) WithConn(conn *gorm.DB) *Engine {
	clone := *e
	clone.db = conn
	return &clone
}

// CheckFuelEligibility runs the fuel decision tree for a vehicle scanned at
// a station in stationWilaya. An unknown vehicle ID is an error; every
// other outcome is a structured decision.
func (e *Engine) CheckFuelEligibility(vehicleID uuid.UUID, stationWilaya string) (*FuelEligibility, error) {
	var vehicle models.Vehicle
	errFind := e.db.Preload("Owner").First(&vehicle, "id = ?", vehicleID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("quota: load vehicle: %w", errFind)
	}

	ownerNationalID := ""
	if vehicle.Owner != nil && vehicle.Owner.NationalID != nil {
		ownerNationalID = *vehicle.Owner.NationalID
	}
	blCheck, errCheck := e.blacklist.Check(ownerNationalID, vehicle.PlateNumber)
	if errCheck != nil {
		return nil, errCheck
	}

	result := &FuelEligibility{Status: StatusDenied, Vehicle: &vehicle}

	if blCheck.IsBlacklisted && blCheck.Severity == models.SeverityBlocked {
		result.Reason = "BLOCKED: " + blCheck.Reason
		result.Blacklist = &blCheck
		return result, nil
	}
	if !vehicle.IsActive {
		result.Reason = "Vehicle is deactivated"
		return result, nil
	}
	if !vehicle.IsVerified {
		result.Reason = "Vehicle is not verified - pending admin approval"
		return result, nil
	}

	rule, errRule := e.rules.FuelRule(vehicle.VehicleType, stationWilaya)
	if errRule != nil {
		return nil, errRule
	}
	if rule == nil {
		result.Reason = "No active fuel rule found for this vehicle type"
		return result, nil
	}
	result.Rule = rule
	result.MaxFillsAllowed = rule.MaxFillsPerPeriod
	result.MaxLitersAllowed = rule.MaxLitersPerFill

	now := e.now()
	windowStart := now.Add(-time.Duration(rule.PeriodHours) * time.Hour)

	var txs []models.FuelTransaction
	errTxs := e.db.
		Where("vehicle_id = ? AND status = ? AND created_at > ?", vehicle.ID, models.TxApproved, windowStart).
		Order("created_at DESC").
		Find(&txs).Error
	if errTxs != nil {
		return nil, fmt.Errorf("quota: load fuel transactions: %w", errTxs)
	}

	result.FillsInPeriod = len(txs)
	if len(txs) > 0 {
		last := txs[0]
		result.LastFillDate = &last.CreatedAt
		result.LastFillLiters = last.Liters
	}

	if len(txs) >= rule.MaxFillsPerPeriod {
		// A zero-allowance rule exhausts the quota with an empty window.
		nextEligibleAt := now
		if len(txs) > 0 {
			oldest := txs[len(txs)-1]
			nextEligibleAt = oldest.CreatedAt.Add(time.Duration(rule.PeriodHours) * time.Hour)
		}
		hours := int(math.Ceil(nextEligibleAt.Sub(now).Hours()))
		result.NextEligibleAt = &nextEligibleAt
		result.HoursUntilNextFill = &hours
		result.Reason = fmt.Sprintf("Quota exceeded: %d/%d fills used. Next fill allowed in %d hours",
			len(txs), rule.MaxFillsPerPeriod, hours)
		return result, nil
	}

	result.Eligible = true
	if warned, reason := e.warningReason(blCheck, vehicle.Owner); warned {
		result.Status = StatusWarning
		result.Reason = "WARNING: " + reason
		result.Blacklist = &blCheck
	} else {
		result.Status = StatusApproved
	}
	return result, nil
}

// CheckGasBottleEligibility runs the gas decision tree for a household.
// Unlike fuel, gas purchases are hard-bound to the household's registered
// wilaya.
func (e *Engine) CheckGasBottleEligibility(householdID uuid.UUID, stationWilaya string) (*GasEligibility, error) {
	var household models.Household
	errFind := e.db.Preload("Owner").First(&household, "id = ?", householdID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrHouseholdNotFound
		}
		return nil, fmt.Errorf("quota: load household: %w", errFind)
	}

	blCheck, errCheck := e.blacklist.Check(household.NationalID, "")
	if errCheck != nil {
		return nil, errCheck
	}

	result := &GasEligibility{Status: StatusDenied, Household: &household}

	if blCheck.IsBlacklisted && blCheck.Severity == models.SeverityBlocked {
		result.Reason = "BLOCKED: " + blCheck.Reason
		result.Blacklist = &blCheck
		return result, nil
	}
	if stationWilaya != "" && household.Wilaya != stationWilaya {
		result.Reason = fmt.Sprintf(
			"Household is registered in %s, not %s. Gas bottles must be purchased in your registered wilaya.",
			household.Wilaya, stationWilaya)
		return result, nil
	}
	if !household.IsActive {
		result.Reason = "Household registration is deactivated"
		return result, nil
	}
	if !household.IsVerified {
		result.Reason = "Household is not verified - pending admin approval"
		return result, nil
	}

	rule, errRule := e.rules.GasBottleRule(household.MemberCount)
	if errRule != nil {
		return nil, errRule
	}
	if rule == nil {
		result.Reason = "No active gas bottle rule found for this household size"
		return result, nil
	}
	result.Rule = rule
	result.MaxBottlesAllowed = rule.MaxBottlesPerPeriod

	now := e.now()
	windowStart := now.AddDate(0, 0, -rule.PeriodDays)

	var txs []models.GasBottleTransaction
	errTxs := e.db.
		Where("household_id = ? AND status = ? AND created_at > ?", household.ID, models.TxApproved, windowStart).
		Order("created_at DESC").
		Find(&txs).Error
	if errTxs != nil {
		return nil, fmt.Errorf("quota: load gas transactions: %w", errTxs)
	}

	bottles := 0
	for _, tx := range txs {
		bottles += tx.Quantity
	}
	result.BottlesInPeriod = bottles
	if len(txs) > 0 {
		result.LastPurchaseDate = &txs[0].CreatedAt
	}

	if bottles >= rule.MaxBottlesPerPeriod {
		nextEligibleAt := now
		if len(txs) > 0 {
			oldest := txs[len(txs)-1]
			nextEligibleAt = oldest.CreatedAt.AddDate(0, 0, rule.PeriodDays)
		}
		days := int(math.Ceil(nextEligibleAt.Sub(now).Hours() / 24))
		result.NextEligibleAt = &nextEligibleAt
		result.DaysUntilNextPurchase = &days
		result.Reason = fmt.Sprintf("Quota exceeded: %d/%d bottles used. Next purchase allowed in %d days",
			bottles, rule.MaxBottlesPerPeriod, days)
		return result, nil
	}

	result.Eligible = true
	if warned, reason := e.warningReason(blCheck, household.Owner); warned {
		result.Status = StatusWarning
		result.Reason = "WARNING: " + reason
		result.Blacklist = &blCheck
	} else {
		result.Status = StatusApproved
	}
	return result, nil
}

// warningReason reports whether the decision should carry a warning and
// with what explanation. A BLOCKED entry never reaches here.
func (e *Engine) warningReason(blCheck blacklist.CheckResult, owner *models.User) (bool, string) {
	if blCheck.IsBlacklisted && blCheck.Severity == models.SeverityWarning {
		if blCheck.Reason != "" {
			return true, blCheck.Reason
		}
		return true, "Account flagged for review"
	}
	if owner != nil && owner.IsFlagged {
		if owner.FlagReason != nil && *owner.FlagReason != "" {
			return true, *owner.FlagReason
		}
		return true, "Account flagged for review"
	}
	return false, ""
}
