// Package api registers the HTTP surface: citizen self-service, station
// operator flow, and administration.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/audit"
	"github.com/fuelguard-dz/fuelguard/internal/blacklist"
	"github.com/fuelguard-dz/fuelguard/internal/config"
	"github.com/fuelguard-dz/fuelguard/internal/http/api/handlers"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/qrcode"
	"github.com/fuelguard-dz/fuelguard/internal/quota"
)

// Deps carries everything the route handlers need.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	QR        *qrcode.Service
	Engine    *quota.Engine
	Recorder  *quota.Recorder
	Blacklist *blacklist.Service
	Rules     quota.RuleResolver
	Audit     *audit.Recorder
}

// RegisterRoutes wires all API routes under /api/v1.
func RegisterRoutes(r *gin.Engine, d Deps) {
	if r == nil || d.DB == nil {
		return
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(d.DB, d.JWT, d.Audit)
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/login/totp", authHandler.LoginTOTP)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)

	citizen := v1.Group("/citizen")
	citizen.Use(AuthMiddleware(d.DB, d.JWT))

	profileHandler := handlers.NewProfileHandler(d.DB)
	citizen.GET("/profile", profileHandler.Get)
	citizen.PUT("/profile/password", profileHandler.ChangePassword)

	vehicleHandler := handlers.NewVehicleHandler(d.DB, d.QR, d.Audit)
	citizen.POST("/vehicles", vehicleHandler.Register)
	citizen.GET("/vehicles", vehicleHandler.List)
	citizen.GET("/vehicles/:id", vehicleHandler.Get)
	citizen.GET("/vehicles/:id/qrcode", vehicleHandler.QRCode)

	householdHandler := handlers.NewHouseholdHandler(d.DB, d.QR, d.Audit)
	citizen.POST("/households", householdHandler.Register)
	citizen.GET("/households", householdHandler.List)
	citizen.GET("/households/:id/qrcode", householdHandler.QRCode)

	station := v1.Group("/station")
	station.Use(AuthMiddleware(d.DB, d.JWT))
	station.Use(RequireRole(models.RoleStationManager, models.RoleAdmin, models.RoleSuperAdmin))

	stationHandler := handlers.NewStationHandler(d.DB, d.QR, d.Engine, d.Recorder, d.Audit)
	station.GET("/me", stationHandler.Me)
	station.POST("/scan", stationHandler.Scan)
	station.GET("/vehicles/lookup", stationHandler.LookupVehicle)
	station.GET("/households/lookup", stationHandler.LookupHousehold)
	station.POST("/fuel/approve", stationHandler.ApproveFuel)
	station.POST("/fuel/deny", stationHandler.DenyFuel)
	station.POST("/gas/record", stationHandler.RecordGas)
	station.POST("/gas/deny", stationHandler.DenyGas)
	station.GET("/transactions/today", stationHandler.TransactionsToday)

	admin := v1.Group("/admin")
	admin.Use(AuthMiddleware(d.DB, d.JWT))
	admin.Use(RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

	rulesHandler := handlers.NewRulesHandler(d.DB, d.Rules, d.Audit)
	admin.GET("/fuel-rules", rulesHandler.ListFuelRules)
	admin.POST("/fuel-rules", rulesHandler.CreateFuelRule)
	admin.PUT("/fuel-rules/:id", rulesHandler.UpdateFuelRule)
	admin.DELETE("/fuel-rules/:id", rulesHandler.DeleteFuelRule)
	admin.GET("/gas-rules", rulesHandler.ListGasRules)
	admin.POST("/gas-rules", rulesHandler.CreateGasRule)
	admin.PUT("/gas-rules/:id", rulesHandler.UpdateGasRule)
	admin.DELETE("/gas-rules/:id", rulesHandler.DeleteGasRule)

	blacklistHandler := handlers.NewBlacklistHandler(d.Blacklist, d.Audit)
	admin.GET("/blacklist", blacklistHandler.List)
	admin.POST("/blacklist", blacklistHandler.Add)
	admin.DELETE("/blacklist/:id", blacklistHandler.Remove)

	usersHandler := handlers.NewUsersHandler(d.DB, d.Blacklist, d.Audit)
	admin.GET("/users", usersHandler.List)
	admin.POST("/users/:id/flag", usersHandler.Flag)
	admin.POST("/users/:id/unflag", usersHandler.Unflag)

	verifHandler := handlers.NewVerificationsHandler(d.DB, d.Audit)
	admin.GET("/verifications", verifHandler.ListPending)
	admin.POST("/verifications/vehicles/:id/approve", verifHandler.ApproveVehicle)
	admin.POST("/verifications/vehicles/:id/reject", verifHandler.RejectVehicle)
	admin.POST("/verifications/households/:id/approve", verifHandler.ApproveHousehold)
	admin.POST("/verifications/households/:id/reject", verifHandler.RejectHousehold)

	stationsAdminHandler := handlers.NewStationsAdminHandler(d.DB, d.Audit)
	admin.GET("/stations", stationsAdminHandler.List)
	admin.POST("/stations", stationsAdminHandler.Create)
	admin.PUT("/stations/:id", stationsAdminHandler.Update)
	admin.DELETE("/stations/:id", stationsAdminHandler.Delete)
	admin.POST("/stations/:id/managers", stationsAdminHandler.AssignManager)
	admin.DELETE("/stations/:id/managers/:userId", stationsAdminHandler.RemoveManager)

	mfaHandler := handlers.NewMFAHandler(d.DB)
	admin.GET("/mfa/status", mfaHandler.Status)
	admin.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	admin.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	admin.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)
}
