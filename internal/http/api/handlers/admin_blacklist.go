package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/blacklist"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// BlacklistHandler administers blacklist entries.
type BlacklistHandler struct {
	svc   *blacklist.Service
	audit *audit.Recorder
}

// NewBlacklistHandler constructs a BlacklistHandler.
func NewBlacklistHandler(svc *blacklist.Service, auditRec *audit.Recorder) *BlacklistHandler {
	return &BlacklistHandler{svc: svc, audit: auditRec}
}

// List returns blacklist entries with search, severity, and paging filters.
func (h *BlacklistHandler) List(c *gin.Context) {
	opts := blacklist.ListOptions{
		Search:   strings.TrimSpace(c.Query("search")),
		Severity: strings.TrimSpace(c.Query("severity")),
	}
	if page, errParse := strconv.Atoi(c.Query("page")); errParse == nil {
		opts.Page = page
	}
	if limit, errParse := strconv.Atoi(c.Query("limit")); errParse == nil {
		opts.Limit = limit
	}
	if raw := c.Query("isActive"); raw != "" {
		active := raw == "true"
		opts.IsActive = &active
	}

	result, errList := h.svc.List(opts)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// addBlacklistRequest defines the request body for new entries.
type addBlacklistRequest struct {
	NationalID  *string    `json:"nationalId"`
	PlateNumber *string    `json:"plateNumber"`
	Reason      string     `json:"reason"`
	Severity    string     `json:"severity"`
	Notes       *string    `json:"notes"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// Add creates or refreshes a blacklist entry.
func (h *BlacklistHandler) Add(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var body addBlacklistRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing reason"})
		return
	}
	if body.Severity != "" && body.Severity != models.SeverityWarning && body.Severity != models.SeverityBlocked {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown severity"})
		return
	}

	entry, errAdd := h.svc.Add(blacklist.AddInput{
		NationalID:  body.NationalID,
		PlateNumber: body.PlateNumber,
		Reason:      strings.TrimSpace(body.Reason),
		Severity:    body.Severity,
		Notes:       body.Notes,
		AddedByID:   &adminID,
		ExpiresAt:   body.ExpiresAt,
	})
	if errAdd != nil {
		if errors.Is(errAdd, blacklist.ErrIdentifierRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "either nationalId or plateNumber is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	h.audit.Record(&adminID, audit.ActionBlacklistAdded, "BLACKLIST", &entry.ID, gin.H{"severity": entry.Severity})
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// Remove deactivates a blacklist entry.
func (h *BlacklistHandler) Remove(c *gin.Context) {
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
	if errRemove := h.svc.Remove(id); errRemove != nil {
		if errors.Is(errRemove, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.audit.Record(&adminID, audit.ActionBlacklistRemoved, "BLACKLIST", &id, nil)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
