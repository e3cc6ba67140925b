package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fuelguard-dz/fuelguard/internal/config"
	fgdb "github.com/fuelguard-dz/fuelguard/internal/db"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/security"
)

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := fgdb.AutoMigrateAll(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:        "handler-test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	}
}

// asUser injects the auth context values normally set by the middleware.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", user.ID)
		c.Set("userRole", user.Role)
		c.Set("user", user)
	}
}

func createTestUser(t *testing.T, conn *gorm.DB, email, role string) models.User {
	t.Helper()
	hash, errHash := security.HashPassword("correct-horse-battery")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	user := models.User{
		Email:    email,
		Password: hash,
		FullName: "Test User",
		Role:     role,
		IsActive: true,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return user
}

func createTestStation(t *testing.T, conn *gorm.DB, code, wilaya string) models.Station {
	t.Helper()
	station := models.Station{
		Name:     "Station " + code,
		Code:     code,
		Address:  "1 Rue Didouche",
		Wilaya:   wilaya,
		Commune:  wilaya + "-Centre",
		IsActive: true,
	}
	if errCreate := conn.Create(&station).Error; errCreate != nil {
		t.Fatalf("create station: %v", errCreate)
	}
	return station
}

func assignManager(t *testing.T, conn *gorm.DB, user models.User, station models.Station) {
	t.Helper()
	assignment := models.StationManager{
		UserID:    user.ID,
		StationID: station.ID,
		IsActive:  true,
	}
	if errCreate := conn.Create(&assignment).Error; errCreate != nil {
		t.Fatalf("create assignment: %v", errCreate)
	}
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if errDecode := json.Unmarshal(w.Body.Bytes(), dst); errDecode != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), errDecode)
	}
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
