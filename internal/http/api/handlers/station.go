package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/qrcode"
	"github.com/fuelguard-dz/fuelguard/internal/quota"
)

// StationHandler implements the operator flow: scan, eligibility, approve
// or deny, and the daily transaction view.
type StationHandler struct {
	db       *gorm.DB
	qr       *qrcode.Service
	engine   *quota.Engine
	recorder *quota.Recorder
	audit    *audit.Recorder
}

// NewStationHandler constructs a StationHandler.
func NewStationHandler(db *gorm.DB, qr *qrcode.Service, engine *quota.Engine, recorder *quota.Recorder, auditRec *audit.Recorder) *StationHandler {
	return &StationHandler{db: db, qr: qr, engine: engine, recorder: recorder, audit: auditRec}
}

// operatorStation resolves the station the current operator is assigned to.
func (h *StationHandler) operatorStation(c *gin.Context) (*models.Station, bool) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}

	var assignment models.StationManager
	errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&assignment).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "no station assignment"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}

	var station models.Station
	if errStation := h.db.WithContext(c.Request.Context()).First(&station, "id = ?", assignment.StationID).Error; errStation != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "station not found"})
		return nil, false
	}
	if !station.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "station is deactivated"})
		return nil, false
	}
	return &station, true
}

// Me returns the operator's station.
func (h *StationHandler) Me(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"station": station})
}

// scanRequest defines the request body for QR scans.
type scanRequest struct {
	QRContent string `json:"qrContent"`
}

// Scan validates a scanned QR payload and returns the matching entity's
// eligibility decision at this station.
func (h *StationHandler) Scan(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	var body scanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, errValidate := h.qr.Validate(body.QRContent)
	if errValidate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Error, "expired": result.Expired})
		return
	}

	entityID, errParse := uuid.Parse(result.Data.ID)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid QR code format"})
		return
	}

	switch result.Data.Type {
	case qrcode.TypeVehicle:
		h.respondFuelEligibility(c, entityID, station)
	case qrcode.TypeHousehold:
		h.respondGasEligibility(c, entityID, station)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid QR code format"})
	}
}

// LookupVehicle is the manual fallback when a QR cannot be scanned.
func (h *StationHandler) LookupVehicle(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	plate := strings.ToUpper(strings.TrimSpace(c.Query("plate")))
	if plate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing plate"})
		return
	}

	var vehicle models.Vehicle
	errFind := h.db.WithContext(c.Request.Context()).First(&vehicle, "plate_number = ?", plate).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	h.respondFuelEligibility(c, vehicle.ID, station)
}

// LookupHousehold is the manual fallback for gas purchases.
func (h *StationHandler) LookupHousehold(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	nationalID := strings.TrimSpace(c.Query("nationalId"))
	if nationalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing nationalId"})
		return
	}

	var household models.Household
	errFind := h.db.WithContext(c.Request.Context()).First(&household, "national_id = ?", nationalID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "household not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	h.respondGasEligibility(c, household.ID, station)
}

func (h *StationHandler) respondFuelEligibility(c *gin.Context, vehicleID uuid.UUID, station *models.Station) {
	eligibility, errCheck := h.engine.CheckFuelEligibility(vehicleID, station.Wilaya)
	if errCheck != nil {
		if errors.Is(errCheck, quota.ErrVehicleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "eligibility check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": "vehicle", "eligibility": eligibility})
}

func (h *StationHandler) respondGasEligibility(c *gin.Context, householdID uuid.UUID, station *models.Station) {
	eligibility, errCheck := h.engine.CheckGasBottleEligibility(householdID, station.Wilaya)
	if errCheck != nil {
		if errors.Is(errCheck, quota.ErrHouseholdNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "household not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "eligibility check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": "household", "eligibility": eligibility})
}

// approveFuelRequest defines the request body for fuel approvals.
type approveFuelRequest struct {
	VehicleID uuid.UUID `json:"vehicleId"`
	Liters    float64   `json:"liters"`
}

// ApproveFuel re-checks eligibility, enforces the per-fill liters cap, and
// records the outcome. An ineligible vehicle gets a denial row so the
// attempt is visible in history.
func (h *StationHandler) ApproveFuel(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	operatorID, _ := getUserID(c)

	var body approveFuelRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.VehicleID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Liters <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "liters must be positive"})
		return
	}

	// Re-check and record inside one transaction so the decision and the row
	// it produces come from the same snapshot.
	var (
		eligibility *quota.FuelEligibility
		tx          *models.FuelTransaction
	)
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(conn *gorm.DB) error {
		var errCheck error
		eligibility, errCheck = h.engine.WithConn(conn).CheckFuelEligibility(body.VehicleID, station.Wilaya)
		if errCheck != nil {
			return errCheck
		}
		if !eligibility.Eligible {
			reason := eligibility.Reason
			_, errRecord := h.recorder.WithConn(conn).RecordFuel(body.VehicleID, station.ID, operatorID, models.TxDenied, nil, &reason)
			return errRecord
		}
		if body.Liters > eligibility.MaxLitersAllowed {
			return nil
		}
		var errRecord error
		tx, errRecord = h.recorder.WithConn(conn).RecordFuel(body.VehicleID, station.ID, operatorID, models.TxApproved, &body.Liters, nil)
		return errRecord
	})
	if errTx != nil {
		if errors.Is(errTx, quota.ErrVehicleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record transaction failed"})
		return
	}

	if !eligibility.Eligible {
		h.audit.Record(&operatorID, audit.ActionFuelDenied, "VEHICLE", &body.VehicleID, gin.H{"reason": eligibility.Reason})
		c.JSON(http.StatusConflict, gin.H{"error": "vehicle not eligible", "eligibility": eligibility})
		return
	}
	if body.Liters > eligibility.MaxLitersAllowed {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "liters exceed the per-fill limit",
			"maxLitersAllowed": eligibility.MaxLitersAllowed,
		})
		return
	}

	h.audit.Record(&operatorID, audit.ActionFuelApproved, "VEHICLE", &body.VehicleID, gin.H{"liters": body.Liters})
	c.JSON(http.StatusCreated, gin.H{"transaction": tx, "eligibility": eligibility})
}

// denyRequest defines the request body for explicit operator denials.
type denyRequest struct {
	VehicleID   uuid.UUID `json:"vehicleId"`
	HouseholdID uuid.UUID `json:"householdId"`
	Reason      string    `json:"reason"`
}

// DenyFuel records an operator-initiated denial.
func (h *StationHandler) DenyFuel(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	operatorID, _ := getUserID(c)

	var body denyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.VehicleID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "Denied by station operator"
	}

	tx, errRecord := h.recorder.RecordFuel(body.VehicleID, station.ID, operatorID, models.TxDenied, nil, &reason)
	if errRecord != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record transaction failed"})
		return
	}
	h.audit.Record(&operatorID, audit.ActionFuelDenied, "VEHICLE", &body.VehicleID, gin.H{"reason": reason})
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// recordGasRequest defines the request body for gas bottle sales.
type recordGasRequest struct {
	HouseholdID  uuid.UUID `json:"householdId"`
	Quantity     int       `json:"quantity"`
	ExchangeType string    `json:"exchangeType"`
}

// RecordGas re-checks eligibility, enforces the remaining-bottle allowance,
// and records the sale.
func (h *StationHandler) RecordGas(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	operatorID, _ := getUserID(c)

	var body recordGasRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.HouseholdID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
		return
	}
	if body.ExchangeType != "" && body.ExchangeType != models.ExchangeNew && body.ExchangeType != models.ExchangeExchange {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchangeType"})
		return
	}

	var (
		eligibility *quota.GasEligibility
		tx          *models.GasBottleTransaction
	)
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(conn *gorm.DB) error {
		var errCheck error
		eligibility, errCheck = h.engine.WithConn(conn).CheckGasBottleEligibility(body.HouseholdID, station.Wilaya)
		if errCheck != nil {
			return errCheck
		}
		if !eligibility.Eligible {
			reason := eligibility.Reason
			_, errRecord := h.recorder.WithConn(conn).RecordGas(body.HouseholdID, station.ID, operatorID, models.TxDenied, body.Quantity, body.ExchangeType, &reason)
			return errRecord
		}
		if body.Quantity > eligibility.MaxBottlesAllowed-eligibility.BottlesInPeriod {
			return nil
		}
		var errRecord error
		tx, errRecord = h.recorder.WithConn(conn).RecordGas(body.HouseholdID, station.ID, operatorID, models.TxApproved, body.Quantity, body.ExchangeType, nil)
		return errRecord
	})
	if errTx != nil {
		if errors.Is(errTx, quota.ErrHouseholdNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "household not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record transaction failed"})
		return
	}

	if !eligibility.Eligible {
		h.audit.Record(&operatorID, audit.ActionGasDenied, "HOUSEHOLD", &body.HouseholdID, gin.H{"reason": eligibility.Reason})
		c.JSON(http.StatusConflict, gin.H{"error": "household not eligible", "eligibility": eligibility})
		return
	}
	remaining := eligibility.MaxBottlesAllowed - eligibility.BottlesInPeriod
	if body.Quantity > remaining {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "quantity exceeds the remaining allowance",
			"remainingBottles": remaining,
		})
		return
	}

	h.audit.Record(&operatorID, audit.ActionGasApproved, "HOUSEHOLD", &body.HouseholdID, gin.H{"quantity": body.Quantity})
	c.JSON(http.StatusCreated, gin.H{"transaction": tx, "eligibility": eligibility})
}

// DenyGas records an operator-initiated gas denial.
func (h *StationHandler) DenyGas(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}
	operatorID, _ := getUserID(c)

	var body denyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.HouseholdID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "Denied by station operator"
	}

	tx, errRecord := h.recorder.RecordGas(body.HouseholdID, station.ID, operatorID, models.TxDenied, 0, "", &reason)
	if errRecord != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record transaction failed"})
		return
	}
	h.audit.Record(&operatorID, audit.ActionGasDenied, "HOUSEHOLD", &body.HouseholdID, gin.H{"reason": reason})
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// TransactionsToday lists the station's transactions since local midnight.
func (h *StationHandler) TransactionsToday(c *gin.Context) {
	station, ok := h.operatorStation(c)
	if !ok {
		return
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var fuel []models.FuelTransaction
	if errFuel := h.db.WithContext(c.Request.Context()).
		Preload("Vehicle").
		Where("station_id = ? AND created_at >= ?", station.ID, midnight).
		Order("created_at DESC").
		Find(&fuel).Error; errFuel != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var gas []models.GasBottleTransaction
	if errGas := h.db.WithContext(c.Request.Context()).
		Preload("Household").
		Where("station_id = ? AND created_at >= ?", station.ID, midnight).
		Order("created_at DESC").
		Find(&gas).Error; errGas != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fuelTransactions": fuel,
		"gasTransactions":  gas,
	})
}
