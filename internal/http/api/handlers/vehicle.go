package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/qrcode"
)

var vehicleTypes = map[string]bool{
	models.VehiclePrivateCar: true,
	models.VehicleTaxi:       true,
	models.VehicleTruck:      true,
	models.VehicleMotorcycle: true,
	models.VehicleBus:        true,
	models.VehicleGovernment: true,
	models.VehicleOther:      true,
}

var fuelTypes = map[string]bool{
	models.FuelEssence: true,
	models.FuelDiesel:  true,
	models.FuelGPL:     true,
}

// VehicleHandler handles citizen vehicle registration and QR issuance.
type VehicleHandler struct {
	db    *gorm.DB
	qr    *qrcode.Service
	audit *audit.Recorder
}

// NewVehicleHandler constructs a VehicleHandler.
func NewVehicleHandler(db *gorm.DB, qr *qrcode.Service, auditRec *audit.Recorder) *VehicleHandler {
	return &VehicleHandler{db: db, qr: qr, audit: auditRec}
}

// registerVehicleRequest defines the request body for vehicle registration.
type registerVehicleRequest struct {
	PlateNumber string `json:"plateNumber"`
	VehicleType string `json:"vehicleType"`
	FuelType    string `json:"fuelType"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
}

// Register creates an unverified vehicle owned by the current citizen.
func (h *VehicleHandler) Register(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var body registerVehicleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	plate := strings.ToUpper(strings.TrimSpace(body.PlateNumber))
	if plate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing plateNumber"})
		return
	}
	if !vehicleTypes[body.VehicleType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown vehicleType"})
		return
	}
	if !fuelTypes[body.FuelType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown fuelType"})
		return
	}

	vehicle := models.Vehicle{
		OwnerID:     userID,
		PlateNumber: plate,
		VehicleType: body.VehicleType,
		FuelType:    body.FuelType,
		Brand:       strings.TrimSpace(body.Brand),
		Model:       strings.TrimSpace(body.Model),
		IsVerified:  false,
		IsActive:    true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&vehicle).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "plate number already registered"})
		return
	}
	h.audit.Record(&userID, audit.ActionRegister, "VEHICLE", &vehicle.ID, gin.H{"plate": plate})
	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

// List returns the citizen's vehicles.
func (h *VehicleHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var vehicles []models.Vehicle
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&vehicles).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// Get returns one owned vehicle.
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicle, ok := h.ownedVehicle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// QRCode returns the current valid QR payload for a verified vehicle,
// issuing one if needed.
func (h *VehicleHandler) QRCode(c *gin.Context) {
	vehicle, ok := h.ownedVehicle(c)
	if !ok {
		return
	}
	if !vehicle.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "vehicle is deactivated"})
		return
	}
	if !vehicle.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "vehicle is pending verification"})
		return
	}

	content, errQR := h.qr.GetOrGenerateVehicleQR(vehicle.ID, vehicle.PlateNumber)
	if errQR != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue qr code failed"})
		return
	}
	if vehicle.QRCodeData != content {
		h.db.WithContext(c.Request.Context()).Model(vehicle).Update("qr_code_data", content)
	}
	c.JSON(http.StatusOK, gin.H{"qrData": content})
}

// ownedVehicle loads the :id vehicle and enforces ownership.
func (h *VehicleHandler) ownedVehicle(c *gin.Context) (*models.Vehicle, bool) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}

	var vehicle models.Vehicle
	errFind := h.db.WithContext(c.Request.Context()).First(&vehicle, "id = ?", id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	if vehicle.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your vehicle"})
		return nil, false
	}
	return &vehicle, true
}
