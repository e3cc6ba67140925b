package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// VerificationsHandler approves or rejects pending entity registrations.
// Only verified entities receive QR codes or pass eligibility.
type VerificationsHandler struct {
	db    *gorm.DB
	audit *audit.Recorder
}

// NewVerificationsHandler constructs a VerificationsHandler.
func NewVerificationsHandler(db *gorm.DB, auditRec *audit.Recorder) *VerificationsHandler {
	return &VerificationsHandler{db: db, audit: auditRec}
}

// ListPending returns unverified vehicles and households awaiting review.
func (h *VerificationsHandler) ListPending(c *gin.Context) {
	var vehicles []models.Vehicle
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Owner").
		Where("is_verified = ? AND is_active = ?", false, true).
		Order("created_at").
		Find(&vehicles).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var households []models.Household
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Owner").
		Where("is_verified = ? AND is_active = ?", false, true).
		Order("created_at").
		Find(&households).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles, "households": households})
}

// ApproveVehicle marks a vehicle as verified.
func (h *VerificationsHandler) ApproveVehicle(c *gin.Context) {
	h.setVerification(c, &models.Vehicle{}, "VEHICLE", true, "")
}

// RejectVehicle deactivates a vehicle registration.
func (h *VerificationsHandler) RejectVehicle(c *gin.Context) {
	h.setVerification(c, &models.Vehicle{}, "VEHICLE", false, h.rejectReason(c))
}

// ApproveHousehold marks a household as verified.
func (h *VerificationsHandler) ApproveHousehold(c *gin.Context) {
	h.setVerification(c, &models.Household{}, "HOUSEHOLD", true, "")
}

// RejectHousehold deactivates a household registration.
func (h *VerificationsHandler) RejectHousehold(c *gin.Context) {
	h.setVerification(c, &models.Household{}, "HOUSEHOLD", false, h.rejectReason(c))
}

// rejectReason reads an optional reason body; rejection works without one.
func (h *VerificationsHandler) rejectReason(c *gin.Context) string {
	var body struct {
		Reason string `json:"reason"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		return ""
	}
	return strings.TrimSpace(body.Reason)
}

func (h *VerificationsHandler) setVerification(c *gin.Context, model any, entityType string, approve bool, reason string) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	updates := map[string]any{"is_verified": true}
	action := audit.ActionVerifyEntity
	if !approve {
		updates = map[string]any{"is_active": false}
		action = audit.ActionRejectEntity
	}

	res := h.db.WithContext(c.Request.Context()).
		Model(model).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var details any
	if reason != "" {
		details = gin.H{"reason": reason}
	}
	h.audit.Record(&adminID, action, entityType, &id, details)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
