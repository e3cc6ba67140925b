package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/blacklist"
	"github.com/fuelguard-dz/fuelguard/internal/db"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// UsersHandler administers accounts: listing, flagging, unflagging.
type UsersHandler struct {
	db        *gorm.DB
	blacklist *blacklist.Service
	audit     *audit.Recorder
}

// NewUsersHandler constructs a UsersHandler.
func NewUsersHandler(conn *gorm.DB, bl *blacklist.Service, auditRec *audit.Recorder) *UsersHandler {
	return &UsersHandler{db: conn, blacklist: bl, audit: auditRec}
}

// List returns accounts filtered by role, flag state, and search text.
func (h *UsersHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		query = query.Where("role = ?", role)
	}
	if raw := c.Query("flagged"); raw != "" {
		query = query.Where("is_flagged = ?", raw == "true")
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+search+"%")
		query = query.Where(
			db.CaseInsensitiveLikeExpr(h.db, "email")+" OR "+
				db.CaseInsensitiveLikeExpr(h.db, "full_name"),
			pattern, pattern)
	}

	page := 1
	limit := 20
	if parsed, errParse := strconv.Atoi(c.Query("page")); errParse == nil && parsed > 0 {
		page = parsed
	}
	if parsed, errParse := strconv.Atoi(c.Query("limit")); errParse == nil && parsed > 0 {
		limit = parsed
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	var users []models.User
	if errFind := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total, "page": page, "limit": limit})
}

// flagRequest defines the request body for flagging an account.
type flagRequest struct {
	Reason string `json:"reason"`
}

// Flag marks an account as suspicious.
func (h *UsersHandler) Flag(c *gin.Context) {
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
	var body flagRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing reason"})
		return
	}

	if errFlag := h.blacklist.FlagUser(id, reason); errFlag != nil {
		if errors.Is(errFlag, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.audit.Record(&adminID, audit.ActionUserFlagged, "USER", &id, gin.H{"reason": reason})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Unflag clears an account's flag.
func (h *UsersHandler) Unflag(c *gin.Context) {
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
	if errUnflag := h.blacklist.UnflagUser(id); errUnflag != nil {
		if errors.Is(errUnflag, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.audit.Record(&adminID, audit.ActionUserUnflagged, "USER", &id, nil)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
