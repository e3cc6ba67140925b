package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/blacklist"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/qrcode"
	"github.com/fuelguard-dz/fuelguard/internal/quota"
	"github.com/fuelguard-dz/fuelguard/internal/security"
)

func newStationRouter(conn *gorm.DB, operator *models.User) (*gin.Engine, *qrcode.Service) {
	gin.SetMode(gin.TestMode)
	qrService := qrcode.NewService(conn, security.NewSigner("station-test-secret"))
	engine := quota.NewEngine(conn, blacklist.NewService(conn), nil)
	handler := NewStationHandler(conn, qrService, engine, quota.NewRecorder(conn), audit.NewRecorder(conn))

	router := gin.New()
	router.Use(asUser(operator))
	router.GET("/me", handler.Me)
	router.POST("/scan", handler.Scan)
	router.GET("/vehicles/lookup", handler.LookupVehicle)
	router.GET("/households/lookup", handler.LookupHousehold)
	router.POST("/fuel/approve", handler.ApproveFuel)
	router.POST("/fuel/deny", handler.DenyFuel)
	router.POST("/gas/record", handler.RecordGas)
	router.POST("/gas/deny", handler.DenyGas)
	router.GET("/transactions/today", handler.TransactionsToday)
	return router, qrService
}

func createEligibleVehicle(t *testing.T, conn *gorm.DB, owner models.User, plate string) models.Vehicle {
	t.Helper()
	vehicle := models.Vehicle{
		OwnerID:     owner.ID,
		PlateNumber: plate,
		VehicleType: models.VehiclePrivateCar,
		FuelType:    models.FuelEssence,
		IsVerified:  true,
		IsActive:    true,
	}
	if errCreate := conn.Create(&vehicle).Error; errCreate != nil {
		t.Fatalf("create vehicle: %v", errCreate)
	}
	return vehicle
}

func createNationwideFuelRule(t *testing.T, conn *gorm.DB, maxFills, periodHours int, maxLiters float64) {
	t.Helper()
	rule := models.FuelRule{
		VehicleType:       models.VehiclePrivateCar,
		MaxFillsPerPeriod: maxFills,
		PeriodHours:       periodHours,
		MaxLitersPerFill:  maxLiters,
		IsActive:          true,
	}
	if errCreate := conn.Create(&rule).Error; errCreate != nil {
		t.Fatalf("create fuel rule: %v", errCreate)
	}
}

func createEligibleHousehold(t *testing.T, conn *gorm.DB, owner models.User, nationalID, wilaya string, members int) models.Household {
	t.Helper()
	household := models.Household{
		OwnerID:     owner.ID,
		NationalID:  nationalID,
		FullName:    "Foyer Test",
		Address:     "2 Rue Larbi Ben M'hidi",
		Wilaya:      wilaya,
		Commune:     wilaya + "-Centre",
		MemberCount: members,
		IsVerified:  true,
		IsActive:    true,
	}
	if errCreate := conn.Create(&household).Error; errCreate != nil {
		t.Fatalf("create household: %v", errCreate)
	}
	return household
}

func createGasBandRule(t *testing.T, conn *gorm.DB, name string, minMembers int, maxBottles, periodDays int) {
	t.Helper()
	rule := models.GasBottleRule{
		Name:                name,
		MinMemberCount:      minMembers,
		MaxBottlesPerPeriod: maxBottles,
		PeriodDays:          periodDays,
		BottleSize:          13,
		IsActive:            true,
	}
	if errCreate := conn.Create(&rule).Error; errCreate != nil {
		t.Fatalf("create gas rule: %v", errCreate)
	}
}

func TestStationScanThenApproveFuel(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "op@example.com", models.RoleStationManager)
	station := createTestStation(t, conn, "ALG-01", "Alger")
	assignManager(t, conn, operator, station)
	router, qrService := newStationRouter(conn, &operator)

	owner := createTestUser(t, conn, "owner@example.com", models.RoleCitizen)
	vehicle := createEligibleVehicle(t, conn, owner, "16-123-456")
	createNationwideFuelRule(t, conn, 2, 24, 40)

	content, errQR := qrService.GetOrGenerateVehicleQR(vehicle.ID, vehicle.PlateNumber)
	if errQR != nil {
		t.Fatalf("generate qr: %v", errQR)
	}

	w := performJSON(t, router, http.MethodPost, "/scan", gin.H{"qrContent": content})
	mustStatus(t, w, http.StatusOK)
	var scan struct {
		Type        string `json:"type"`
		Eligibility struct {
			Eligible         bool    `json:"eligible"`
			Status           string  `json:"status"`
			MaxLitersAllowed float64 `json:"maxLitersAllowed"`
		} `json:"eligibility"`
	}
	decodeBody(t, w, &scan)
	if scan.Type != "vehicle" || !scan.Eligibility.Eligible {
		t.Fatalf("expected an eligible vehicle scan, got %s", w.Body.String())
	}
	if scan.Eligibility.MaxLitersAllowed != 40 {
		t.Fatalf("expected maxLitersAllowed=40, got %v", scan.Eligibility.MaxLitersAllowed)
	}

	w = performJSON(t, router, http.MethodPost, "/fuel/approve", gin.H{
		"vehicleId": vehicle.ID,
		"liters":    30.5,
	})
	mustStatus(t, w, http.StatusCreated)
	var approved struct {
		Transaction models.FuelTransaction `json:"transaction"`
	}
	decodeBody(t, w, &approved)
	if approved.Transaction.Status != models.TxApproved {
		t.Fatalf("expected APPROVED transaction, got %q", approved.Transaction.Status)
	}
	if approved.Transaction.CompletedAt == nil {
		t.Fatalf("expected CompletedAt on an approved fill")
	}
}

func TestStationApproveFuelRejectsOverPerFillLimit(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "op2@example.com", models.RoleStationManager)
	station := createTestStation(t, conn, "ORN-01", "Oran")
	assignManager(t, conn, operator, station)
	router, _ := newStationRouter(conn, &operator)

	owner := createTestUser(t, conn, "owner2@example.com", models.RoleCitizen)
	vehicle := createEligibleVehicle(t, conn, owner, "31-222-333")
	createNationwideFuelRule(t, conn, 2, 24, 40)

	w := performJSON(t, router, http.MethodPost, "/fuel/approve", gin.H{
		"vehicleId": vehicle.ID,
		"liters":    41.0,
	})
	mustStatus(t, w, http.StatusBadRequest)

	// Nothing is recorded for a liters-cap rejection.
	var count int64
	conn.Model(&models.FuelTransaction{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no transactions, got %d", count)
	}
}

func TestStationApproveFuelRecordsDenialWhenQuotaExhausted(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "op3@example.com", models.RoleStationManager)
	station := createTestStation(t, conn, "ALG-02", "Alger")
	assignManager(t, conn, operator, station)
	router, _ := newStationRouter(conn, &operator)

	owner := createTestUser(t, conn, "owner3@example.com", models.RoleCitizen)
	vehicle := createEligibleVehicle(t, conn, owner, "16-777-888")
	createNationwideFuelRule(t, conn, 1, 72, 50)

	mustStatus(t, performJSON(t, router, http.MethodPost, "/fuel/approve", gin.H{
		"vehicleId": vehicle.ID,
		"liters":    20.0,
	}), http.StatusCreated)

	w := performJSON(t, router, http.MethodPost, "/fuel/approve", gin.H{
		"vehicleId": vehicle.ID,
		"liters":    20.0,
	})
	mustStatus(t, w, http.StatusConflict)
	var resp struct {
		Eligibility struct {
			Reason string `json:"reason"`
		} `json:"eligibility"`
	}
	decodeBody(t, w, &resp)
	if !strings.Contains(resp.Eligibility.Reason, "Quota exceeded") {
		t.Fatalf("expected a quota denial reason, got %q", resp.Eligibility.Reason)
	}

	var denied int64
	conn.Model(&models.FuelTransaction{}).
		Where("vehicle_id = ? AND status = ?", vehicle.ID, models.TxDenied).
		Count(&denied)
	if denied != 1 {
		t.Fatalf("expected 1 denial row, got %d", denied)
	}
}

func TestStationScanRejectsTamperedCode(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "op4@example.com", models.RoleStationManager)
	station := createTestStation(t, conn, "ALG-03", "Alger")
	assignManager(t, conn, operator, station)
	router, qrService := newStationRouter(conn, &operator)

	owner := createTestUser(t, conn, "owner4@example.com", models.RoleCitizen)
	vehicle := createEligibleVehicle(t, conn, owner, "16-100-200")
	content, errQR := qrService.GetOrGenerateVehicleQR(vehicle.ID, vehicle.PlateNumber)
	if errQR != nil {
		t.Fatalf("generate qr: %v", errQR)
	}

	tampered := strings.Replace(content, "16-100-200", "16-100-999", 1)
	w := performJSON(t, router, http.MethodPost, "/scan", gin.H{"qrContent": tampered})
	mustStatus(t, w, http.StatusBadRequest)
	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, w, &resp)
	if !strings.Contains(resp.Error, "tampering") {
		t.Fatalf("expected a tampering error, got %q", resp.Error)
	}
}

func TestStationGasRecordAndWilayaHardStop(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "op5@example.com", models.RoleStationManager)
	station := createTestStation(t, conn, "ALG-04", "Alger")
	assignManager(t, conn, operator, station)
	router, _ := newStationRouter(conn, &operator)

	owner := createTestUser(t, conn, "owner5@example.com", models.RoleCitizen)
	local := createEligibleHousehold(t, conn, owner, "123456789012345678", "Alger", 5)
	away := createEligibleHousehold(t, conn, owner, "876543210987654321", "Oran", 5)
	createGasBandRule(t, conn, "Standard", 1, 3, 30)

	w := performJSON(t, router, http.MethodPost, "/gas/record", gin.H{
		"householdId": local.ID,
		"quantity":    2,
	})
	mustStatus(t, w, http.StatusCreated)
	var recorded struct {
		Transaction models.GasBottleTransaction `json:"transaction"`
	}
	decodeBody(t, w, &recorded)
	if recorded.Transaction.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", recorded.Transaction.Quantity)
	}
	if recorded.Transaction.ExchangeType != models.ExchangeNew {
		t.Fatalf("expected default exchange type NEW, got %q", recorded.Transaction.ExchangeType)
	}

	// Only 1 of 3 bottles remains inside the window.
	w = performJSON(t, router, http.MethodPost, "/gas/record", gin.H{
		"householdId": local.ID,
		"quantity":    2,
	})
	mustStatus(t, w, http.StatusBadRequest)

	// A household registered elsewhere is refused at this station.
	w = performJSON(t, router, http.MethodPost, "/gas/record", gin.H{
		"householdId": away.ID,
		"quantity":    1,
	})
	mustStatus(t, w, http.StatusConflict)
	var resp struct {
		Eligibility struct {
			Reason string `json:"reason"`
		} `json:"eligibility"`
	}
	decodeBody(t, w, &resp)
	if !strings.Contains(resp.Eligibility.Reason, "registered in Oran") {
		t.Fatalf("expected a wilaya denial reason, got %q", resp.Eligibility.Reason)
	}
}

func TestStationLookupFallbacks(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "op6@example.com", models.RoleStationManager)
	station := createTestStation(t, conn, "ALG-05", "Alger")
	assignManager(t, conn, operator, station)
	router, _ := newStationRouter(conn, &operator)

	owner := createTestUser(t, conn, "owner6@example.com", models.RoleCitizen)
	createEligibleVehicle(t, conn, owner, "16-555-444")
	createNationwideFuelRule(t, conn, 2, 24, 40)
	createEligibleHousehold(t, conn, owner, "111122223333444455", "Alger", 4)
	createGasBandRule(t, conn, "Standard", 1, 2, 30)

	// Plate lookup is case-insensitive on input.
	w := performJSON(t, router, http.MethodGet, "/vehicles/lookup?plate=16-555-444", nil)
	mustStatus(t, w, http.StatusOK)

	w = performJSON(t, router, http.MethodGet, "/households/lookup?nationalId=111122223333444455", nil)
	mustStatus(t, w, http.StatusOK)

	w = performJSON(t, router, http.MethodGet, "/vehicles/lookup?plate=00-000-000", nil)
	mustStatus(t, w, http.StatusNotFound)
}

func TestStationRequiresAssignment(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "orphan@example.com", models.RoleStationManager)
	router, _ := newStationRouter(conn, &operator)

	w := performJSON(t, router, http.MethodGet, "/me", nil)
	mustStatus(t, w, http.StatusForbidden)
}

func TestStationTransactionsToday(t *testing.T) {
	conn := newHandlerDB(t)
	operator := createTestUser(t, conn, "op7@example.com", models.RoleStationManager)
	station := createTestStation(t, conn, "ALG-06", "Alger")
	assignManager(t, conn, operator, station)
	router, _ := newStationRouter(conn, &operator)

	owner := createTestUser(t, conn, "owner7@example.com", models.RoleCitizen)
	vehicle := createEligibleVehicle(t, conn, owner, "16-909-808")
	createNationwideFuelRule(t, conn, 3, 24, 40)

	mustStatus(t, performJSON(t, router, http.MethodPost, "/fuel/approve", gin.H{
		"vehicleId": vehicle.ID,
		"liters":    15.0,
	}), http.StatusCreated)
	mustStatus(t, performJSON(t, router, http.MethodPost, "/fuel/deny", gin.H{
		"vehicleId": vehicle.ID,
		"reason":    "Pump offline",
	}), http.StatusCreated)

	w := performJSON(t, router, http.MethodGet, "/transactions/today", nil)
	mustStatus(t, w, http.StatusOK)
	var resp struct {
		FuelTransactions []models.FuelTransaction      `json:"fuelTransactions"`
		GasTransactions  []models.GasBottleTransaction `json:"gasTransactions"`
	}
	decodeBody(t, w, &resp)
	if len(resp.FuelTransactions) != 2 {
		t.Fatalf("expected 2 fuel transactions, got %d", len(resp.FuelTransactions))
	}
	if len(resp.GasTransactions) != 0 {
		t.Fatalf("expected no gas transactions, got %d", len(resp.GasTransactions))
	}
}
