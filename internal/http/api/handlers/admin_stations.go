package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// StationsAdminHandler administers stations and manager assignments.
type StationsAdminHandler struct {
	db    *gorm.DB
	audit *audit.Recorder
}

// NewStationsAdminHandler constructs a StationsAdminHandler.
func NewStationsAdminHandler(db *gorm.DB, auditRec *audit.Recorder) *StationsAdminHandler {
	return &StationsAdminHandler{db: db, audit: auditRec}
}

// List returns all stations, optionally filtered by wilaya.
func (h *StationsAdminHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Station{})
	if wilaya := strings.TrimSpace(c.Query("wilaya")); wilaya != "" {
		query = query.Where("wilaya = ?", wilaya)
	}
	var stations []models.Station
	if errFind := query.Order("code").Find(&stations).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stations": stations})
}

// stationRequest defines the request body for station writes.
type stationRequest struct {
	Name      string   `json:"name"`
	Code      string   `json:"code"`
	Address   string   `json:"address"`
	Wilaya    string   `json:"wilaya"`
	Commune   string   `json:"commune"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	IsActive  *bool    `json:"isActive"`
}

// Create adds a station.
func (h *StationsAdminHandler) Create(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var body stationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	code := strings.ToUpper(strings.TrimSpace(body.Code))
	wilaya := strings.TrimSpace(body.Wilaya)
	if name == "" || code == "" || wilaya == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name, code or wilaya"})
		return
	}

	station := models.Station{
		Name:      name,
		Code:      code,
		Address:   strings.TrimSpace(body.Address),
		Wilaya:    wilaya,
		Commune:   strings.TrimSpace(body.Commune),
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		IsActive:  true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&station).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "station code already exists"})
		return
	}
	h.audit.Record(&adminID, audit.ActionStationChanged, "STATION", &station.ID, gin.H{"code": code})
	c.JSON(http.StatusCreated, gin.H{"station": station})
}

// Update modifies a station in place.
func (h *StationsAdminHandler) Update(c *gin.Context) {
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
	var body stationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var station models.Station
	if errFind := h.db.WithContext(c.Request.Context()).First(&station, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(body.Name); name != "" {
		updates["name"] = name
	}
	if addr := strings.TrimSpace(body.Address); addr != "" {
		updates["address"] = addr
	}
	if wilaya := strings.TrimSpace(body.Wilaya); wilaya != "" {
		updates["wilaya"] = wilaya
	}
	if commune := strings.TrimSpace(body.Commune); commune != "" {
		updates["commune"] = commune
	}
	if body.Latitude != nil {
		updates["latitude"] = body.Latitude
	}
	if body.Longitude != nil {
		updates["longitude"] = body.Longitude
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) > 0 {
		if errUpdate := h.db.WithContext(c.Request.Context()).Model(&station).Updates(updates).Error; errUpdate != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
	}
	h.audit.Record(&adminID, audit.ActionStationChanged, "STATION", &station.ID, nil)
	c.JSON(http.StatusOK, gin.H{"station": station})
}

// Delete deactivates a station. Transactions referencing it survive.
func (h *StationsAdminHandler) Delete(c *gin.Context) {
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
	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Station{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		return
	}
	h.audit.Record(&adminID, audit.ActionStationChanged, "STATION", &id, gin.H{"deactivated": true})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// assignManagerRequest defines the request body for manager assignment.
type assignManagerRequest struct {
	UserID uuid.UUID `json:"userId"`
}

// AssignManager links an account to a station and promotes citizens to
// the station manager role.
func (h *StationsAdminHandler) AssignManager(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	stationID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body assignManagerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.UserID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var station models.Station
	if errFind := h.db.WithContext(c.Request.Context()).First(&station, "id = ?", stationID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, "id = ?", body.UserID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var existing models.StationManager
		errFind := tx.Where("user_id = ? AND station_id = ?", user.ID, station.ID).First(&existing).Error
		if errFind == nil {
			return tx.Model(&existing).Update("is_active", true).Error
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return errFind
		}
		if errCreate := tx.Create(&models.StationManager{
			UserID:    user.ID,
			StationID: station.ID,
			IsActive:  true,
		}).Error; errCreate != nil {
			return errCreate
		}
		if user.Role == models.RoleCitizen {
			return tx.Model(&user).Update("role", models.RoleStationManager).Error
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assign failed"})
		return
	}
	h.audit.Record(&adminID, audit.ActionStationChanged, "STATION", &station.ID, gin.H{"managerId": user.ID})
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// RemoveManager deactivates a manager assignment.
func (h *StationsAdminHandler) RemoveManager(c *gin.Context) {
	adminID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	stationID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Model(&models.StationManager{}).
		Where("station_id = ? AND user_id = ?", stationID, userID).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
		return
	}
	h.audit.Record(&adminID, audit.ActionStationChanged, "STATION", &stationID, gin.H{"removedManagerId": userID})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
