package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/quota"
	"github.com/fuelguard-dz/fuelguard/internal/rulecache"
)

// RulesHandler administers fuel and gas bottle quota rules.
type RulesHandler struct {
	db    *gorm.DB
	rules quota.RuleResolver
	audit *audit.Recorder
}

// NewRulesHandler constructs a RulesHandler.
func NewRulesHandler(db *gorm.DB, rules quota.RuleResolver, auditRec *audit.Recorder) *RulesHandler {
	return &RulesHandler{db: db, rules: rules, audit: auditRec}
}

// invalidate drops any cached rules after a write.
func (h *RulesHandler) invalidate() {
	rulecache.InvalidateIfCached(h.rules)
}

// ListFuelRules returns all fuel rules, active and inactive.
func (h *RulesHandler) ListFuelRules(c *gin.Context) {
	var rules []models.FuelRule
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("vehicle_type, wilaya").
		Find(&rules).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// fuelRuleRequest defines the request body for fuel rule writes.
type fuelRuleRequest struct {
	VehicleType       string  `json:"vehicleType"`
	Wilaya            *string `json:"wilaya"`
	MaxFillsPerPeriod int     `json:"maxFillsPerPeriod"`
	PeriodHours       int     `json:"periodHours"`
	MaxLitersPerFill  float64 `json:"maxLitersPerFill"`
	IsActive          *bool   `json:"isActive"`
}

func (b *fuelRuleRequest) validate() string {
	if !vehicleTypes[b.VehicleType] {
		return "unknown vehicleType"
	}
	if b.MaxFillsPerPeriod < 1 {
		return "maxFillsPerPeriod must be at least 1"
	}
	if b.PeriodHours < 1 {
		return "periodHours must be at least 1"
	}
	if b.MaxLitersPerFill <= 0 {
		return "maxLitersPerFill must be positive"
	}
	return ""
}

// CreateFuelRule adds a fuel rule.
func (h *RulesHandler) CreateFuelRule(c *gin.Context) {
	var body fuelRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	rule := models.FuelRule{
		VehicleType:       body.VehicleType,
		Wilaya:            body.Wilaya,
		MaxFillsPerPeriod: body.MaxFillsPerPeriod,
		PeriodHours:       body.PeriodHours,
		MaxLitersPerFill:  body.MaxLitersPerFill,
		IsActive:          true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&rule).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "rule already exists for this type and wilaya"})
		return
	}
	h.invalidate()
	h.recordRuleChange(c, "FUEL_RULE", rule.ID.String())
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// UpdateFuelRule modifies a fuel rule in place.
func (h *RulesHandler) UpdateFuelRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body fuelRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var rule models.FuelRule
	if errFind := h.db.WithContext(c.Request.Context()).First(&rule, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{
		"vehicle_type":         body.VehicleType,
		"wilaya":               body.Wilaya,
		"max_fills_per_period": body.MaxFillsPerPeriod,
		"period_hours":         body.PeriodHours,
		"max_liters_per_fill":  body.MaxLitersPerFill,
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&rule).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.invalidate()
	h.recordRuleChange(c, "FUEL_RULE", rule.ID.String())
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteFuelRule deactivates a fuel rule. History referencing it survives.
func (h *RulesHandler) DeleteFuelRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).
		Model(&models.FuelRule{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	h.invalidate()
	h.recordRuleChange(c, "FUEL_RULE", id.String())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListGasRules returns all gas bottle rules.
func (h *RulesHandler) ListGasRules(c *gin.Context) {
	var rules []models.GasBottleRule
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("min_member_count").
		Find(&rules).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// gasRuleRequest defines the request body for gas rule writes.
type gasRuleRequest struct {
	Name                string `json:"name"`
	MinMemberCount      int    `json:"minMemberCount"`
	MaxMemberCount      *int   `json:"maxMemberCount"`
	MaxBottlesPerPeriod int    `json:"maxBottlesPerPeriod"`
	PeriodDays          int    `json:"periodDays"`
	BottleSize          int    `json:"bottleSize"`
	IsActive            *bool  `json:"isActive"`
}

func (b *gasRuleRequest) validate() string {
	if strings.TrimSpace(b.Name) == "" {
		return "missing name"
	}
	if b.MinMemberCount < 1 {
		return "minMemberCount must be at least 1"
	}
	if b.MaxMemberCount != nil && *b.MaxMemberCount < b.MinMemberCount {
		return "maxMemberCount below minMemberCount"
	}
	if b.MaxBottlesPerPeriod < 1 {
		return "maxBottlesPerPeriod must be at least 1"
	}
	if b.PeriodDays < 1 {
		return "periodDays must be at least 1"
	}
	return ""
}

// CreateGasRule adds a gas bottle rule.
func (h *RulesHandler) CreateGasRule(c *gin.Context) {
	var body gasRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	rule := models.GasBottleRule{
		Name:                strings.TrimSpace(body.Name),
		MinMemberCount:      body.MinMemberCount,
		MaxMemberCount:      body.MaxMemberCount,
		MaxBottlesPerPeriod: body.MaxBottlesPerPeriod,
		PeriodDays:          body.PeriodDays,
		BottleSize:          body.BottleSize,
		IsActive:            true,
	}
	if rule.BottleSize == 0 {
		rule.BottleSize = 13
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&rule).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	h.invalidate()
	h.recordRuleChange(c, "GAS_RULE", rule.ID.String())
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// UpdateGasRule modifies a gas bottle rule in place.
func (h *RulesHandler) UpdateGasRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body gasRuleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var rule models.GasBottleRule
	if errFind := h.db.WithContext(c.Request.Context()).First(&rule, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{
		"name":                   strings.TrimSpace(body.Name),
		"min_member_count":       body.MinMemberCount,
		"max_member_count":       body.MaxMemberCount,
		"max_bottles_per_period": body.MaxBottlesPerPeriod,
		"period_days":            body.PeriodDays,
	}
	if body.BottleSize > 0 {
		updates["bottle_size"] = body.BottleSize
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&rule).Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.invalidate()
	h.recordRuleChange(c, "GAS_RULE", rule.ID.String())
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteGasRule deactivates a gas bottle rule.
func (h *RulesHandler) DeleteGasRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).
		Model(&models.GasBottleRule{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	h.invalidate()
	h.recordRuleChange(c, "GAS_RULE", id.String())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *RulesHandler) recordRuleChange(c *gin.Context, kind, id string) {
	adminID, ok := getUserID(c)
	if !ok {
		return
	}
	h.audit.Record(&adminID, audit.ActionRuleChanged, kind, nil, gin.H{"ruleId": id})
}
