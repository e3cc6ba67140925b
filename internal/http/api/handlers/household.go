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

// HouseholdHandler handles citizen household registration and QR issuance.
type HouseholdHandler struct {
	db    *gorm.DB
	qr    *qrcode.Service
	audit *audit.Recorder
}

// NewHouseholdHandler constructs a HouseholdHandler.
func NewHouseholdHandler(db *gorm.DB, qr *qrcode.Service, auditRec *audit.Recorder) *HouseholdHandler {
	return &HouseholdHandler{db: db, qr: qr, audit: auditRec}
}

// registerHouseholdRequest defines the request body for household registration.
type registerHouseholdRequest struct {
	NationalID  string `json:"nationalId"`
	FullName    string `json:"fullName"`
	Address     string `json:"address"`
	Wilaya      string `json:"wilaya"`
	Commune     string `json:"commune"`
	MemberCount int    `json:"memberCount"`
}

// Register creates an unverified household owned by the current citizen.
func (h *HouseholdHandler) Register(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var body registerHouseholdRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	nationalID := strings.TrimSpace(body.NationalID)
	wilaya := strings.TrimSpace(body.Wilaya)
	if nationalID == "" || strings.TrimSpace(body.FullName) == "" || wilaya == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing nationalId, fullName or wilaya"})
		return
	}
	if body.MemberCount < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "memberCount must be at least 1"})
		return
	}

	household := models.Household{
		OwnerID:     userID,
		NationalID:  nationalID,
		FullName:    strings.TrimSpace(body.FullName),
		Address:     strings.TrimSpace(body.Address),
		Wilaya:      wilaya,
		Commune:     strings.TrimSpace(body.Commune),
		MemberCount: body.MemberCount,
		IsVerified:  false,
		IsActive:    true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&household).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "national id already registered"})
		return
	}
	h.audit.Record(&userID, audit.ActionRegister, "HOUSEHOLD", &household.ID, gin.H{"wilaya": wilaya})
	c.JSON(http.StatusCreated, gin.H{"household": household})
}

// List returns the citizen's households.
func (h *HouseholdHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var households []models.Household
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&households).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"households": households})
}

// QRCode returns the current valid QR payload for a verified household.
func (h *HouseholdHandler) QRCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var household models.Household
	errFind := h.db.WithContext(c.Request.Context()).First(&household, "id = ?", id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "household not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if household.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your household"})
		return
	}
	if !household.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "household is deactivated"})
		return
	}
	if !household.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "household is pending verification"})
		return
	}

	content, errQR := h.qr.GetOrGenerateHouseholdQR(household.ID, household.NationalID)
	if errQR != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue qr code failed"})
		return
	}
	if household.QRCodeData != content {
		h.db.WithContext(c.Request.Context()).Model(&household).Update("qr_code_data", content)
	}
	c.JSON(http.StatusOK, gin.H{"qrData": content})
}
