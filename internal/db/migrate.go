package db

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// Migrate runs all pending schema migrations.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	m := gormigrate.New(conn, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250301_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.User{},
					&models.RefreshToken{},
					&models.Station{},
					&models.StationManager{},
					&models.Vehicle{},
					&models.Household{},
				)
			},
		},
		{
			ID: "20250301_create_quota_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.FuelRule{},
					&models.GasBottleRule{},
					&models.FuelTransaction{},
					&models.GasBottleTransaction{},
				)
			},
		},
		{
			ID: "20250301_create_trust_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.QRCode{},
					&models.BlacklistEntry{},
				)
			},
		},
		{
			ID: "20250315_create_audit_logs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.AuditLog{})
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

// AutoMigrateAll migrates every model directly, bypassing the migration
// journal. Used by tests against throwaway SQLite databases.
func AutoMigrateAll(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Station{},
		&models.StationManager{},
		&models.Vehicle{},
		&models.Household{},
		&models.FuelRule{},
		&models.GasBottleRule{},
		&models.FuelTransaction{},
		&models.GasBottleTransaction{},
		&models.QRCode{},
		&models.BlacklistEntry{},
		&models.AuditLog{},
	)
}
