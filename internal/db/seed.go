package db

import (
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/security"
)

// Seed creates the default quota rules and the bootstrap super admin when
// they do not exist yet. Safe to run on every startup.
func Seed(conn *gorm.DB) error {
	if err := seedFuelRules(conn); err != nil {
		return err
	}
	if err := seedGasBottleRules(conn); err != nil {
		return err
	}
	if err := seedSuperAdmin(conn); err != nil {
		return err
	}
	return nil
}

func seedFuelRules(conn *gorm.DB) error {
	wilayaAll := models.WilayaAll
	defaults := []models.FuelRule{
		{VehicleType: models.VehiclePrivateCar, Wilaya: &wilayaAll, MaxFillsPerPeriod: 1, PeriodHours: 72, MaxLitersPerFill: 50},
		{VehicleType: models.VehicleTaxi, Wilaya: &wilayaAll, MaxFillsPerPeriod: 2, PeriodHours: 24, MaxLitersPerFill: 40},
		{VehicleType: models.VehicleTruck, Wilaya: &wilayaAll, MaxFillsPerPeriod: 1, PeriodHours: 48, MaxLitersPerFill: 200},
		{VehicleType: models.VehicleMotorcycle, Wilaya: &wilayaAll, MaxFillsPerPeriod: 1, PeriodHours: 72, MaxLitersPerFill: 15},
		{VehicleType: models.VehicleBus, Wilaya: &wilayaAll, MaxFillsPerPeriod: 1, PeriodHours: 24, MaxLitersPerFill: 150},
		{VehicleType: models.VehicleGovernment, Wilaya: &wilayaAll, MaxFillsPerPeriod: 999, PeriodHours: 24, MaxLitersPerFill: 999},
		{VehicleType: models.VehicleOther, Wilaya: &wilayaAll, MaxFillsPerPeriod: 1, PeriodHours: 72, MaxLitersPerFill: 50},
	}

	for i := range defaults {
		rule := defaults[i]
		rule.IsActive = true
		var existing models.FuelRule
		errFind := conn.Where("vehicle_type = ? AND wilaya = ?", rule.VehicleType, models.WilayaAll).First(&existing).Error
		if errFind == nil {
			continue
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("db: seed fuel rules: %w", errFind)
		}
		if errCreate := conn.Create(&rule).Error; errCreate != nil {
			return fmt.Errorf("db: seed fuel rule %s: %w", rule.VehicleType, errCreate)
		}
	}
	return nil
}

func seedGasBottleRules(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.GasBottleRule{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("db: seed gas rules: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	two, five := 2, 5
	defaults := []models.GasBottleRule{
		{Name: "Small Household (1-2 members)", MinMemberCount: 1, MaxMemberCount: &two, MaxBottlesPerPeriod: 1, PeriodDays: 30, BottleSize: 13, IsActive: true},
		{Name: "Medium Household (3-5 members)", MinMemberCount: 3, MaxMemberCount: &five, MaxBottlesPerPeriod: 2, PeriodDays: 30, BottleSize: 13, IsActive: true},
		{Name: "Large Household (6+ members)", MinMemberCount: 6, MaxMemberCount: nil, MaxBottlesPerPeriod: 3, PeriodDays: 30, BottleSize: 13, IsActive: true},
	}
	for i := range defaults {
		if errCreate := conn.Create(&defaults[i]).Error; errCreate != nil {
			return fmt.Errorf("db: seed gas rule %s: %w", defaults[i].Name, errCreate)
		}
	}
	return nil
}

// seedSuperAdmin bootstraps the first administrator account. The password
// comes from ADMIN_PASSWORD; without it no account is created.
func seedSuperAdmin(conn *gorm.DB) error {
	email := strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	if email == "" {
		email = "admin@fuelguard.dz"
	}

	var existing models.User
	errFind := conn.Where("email = ?", email).First(&existing).Error
	if errFind == nil {
		return nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: seed admin: %w", errFind)
	}

	password := strings.TrimSpace(os.Getenv("ADMIN_PASSWORD"))
	if password == "" {
		log.Warn("seed: ADMIN_PASSWORD not set, skipping super admin bootstrap")
		return nil
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("db: seed admin: %w", errHash)
	}

	admin := models.User{
		Email:    email,
		Password: hash,
		FullName: "Super Admin",
		Role:     models.RoleSuperAdmin,
		IsActive: true,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("db: seed admin: %w", errCreate)
	}
	log.Infof("seed: created super admin %s", email)
	return nil
}
