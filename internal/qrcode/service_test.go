package qrcode

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fuelguard-dz/fuelguard/internal/db"
	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/security"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.AutoMigrateAll(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(newTestDB(t), security.NewSigner("qr-test-secret"))
}

func TestGetOrGenerateVehicleIdempotentWithinDay(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	vehicleID := uuid.New()
	first, errFirst := svc.GetOrGenerateVehicleQR(vehicleID, "16-123-456")
	if errFirst != nil {
		t.Fatalf("first GetOrGenerateVehicleQR: %v", errFirst)
	}

	svc.now = func() time.Time { return base.Add(6 * time.Hour) }
	second, errSecond := svc.GetOrGenerateVehicleQR(vehicleID, "16-123-456")
	if errSecond != nil {
		t.Fatalf("second GetOrGenerateVehicleQR: %v", errSecond)
	}
	if first != second {
		t.Fatalf("same-day payloads differ:\n%s\n%s", first, second)
	}

	res, errValidate := svc.Validate(first)
	if errValidate != nil {
		t.Fatalf("Validate: %v", errValidate)
	}
	if !res.Valid {
		t.Fatalf("freshly issued payload invalid: %q", res.Error)
	}
	if res.Data.Type != TypeVehicle || res.Data.Plate != "16-123-456" {
		t.Fatalf("unexpected parsed payload: %+v", res.Data)
	}
}

func TestRegenerationAfterMidnightInvalidatesOld(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	vehicleID := uuid.New()
	old, errOld := svc.GetOrGenerateVehicleQR(vehicleID, "31-777-888")
	if errOld != nil {
		t.Fatalf("GetOrGenerateVehicleQR: %v", errOld)
	}

	// Past the expiry midnight the next call must mint a new code.
	svc.now = func() time.Time { return base.Add(3 * time.Hour) }
	fresh, errFresh := svc.GetOrGenerateVehicleQR(vehicleID, "31-777-888")
	if errFresh != nil {
		t.Fatalf("GetOrGenerateVehicleQR after midnight: %v", errFresh)
	}
	if fresh == old {
		t.Fatal("payload unchanged after expiry midnight")
	}

	res, errValidate := svc.Validate(old)
	if errValidate != nil {
		t.Fatalf("Validate old: %v", errValidate)
	}
	if res.Valid {
		t.Fatal("superseded payload still validates")
	}
	if !res.Expired {
		t.Fatalf("superseded payload not reported expired: %q", res.Error)
	}
	if res.Error != msgDeactivated && res.Error != msgExpired {
		t.Fatalf("unexpected error for superseded payload: %q", res.Error)
	}

	got, errValidate := svc.Validate(fresh)
	if errValidate != nil {
		t.Fatalf("Validate fresh: %v", errValidate)
	}
	if !got.Valid {
		t.Fatalf("fresh payload invalid: %q", got.Error)
	}
}

func TestSingleActiveCodePerEntity(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	vehicleID := uuid.New()
	if _, err := svc.GetOrGenerateVehicleQR(vehicleID, "25-000-111"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := svc.GetOrGenerateVehicleQR(vehicleID, "25-000-111"); err != nil {
		t.Fatalf("reissue: %v", err)
	}

	var active int64
	errCount := svc.db.Model(&models.QRCode{}).
		Where("entity_type = ? AND entity_id = ? AND is_active = ?", models.QREntityVehicle, vehicleID, true).
		Count(&active).Error
	if errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if active != 1 {
		t.Fatalf("active codes = %d, want 1", active)
	}
}

func TestValidateLayering(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	vehicleID := uuid.New()
	content, errIssue := svc.GetOrGenerateVehicleQR(vehicleID, "16-123-456")
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}

	// Tampered field with the original signature must fail at the
	// signature step, never reach the registry.
	var p Payload
	if errUnmarshal := json.Unmarshal([]byte(content), &p); errUnmarshal != nil {
		t.Fatalf("unmarshal: %v", errUnmarshal)
	}
	p.Plate = "99-999-999"
	tampered, _ := json.Marshal(&p)
	res, errValidate := svc.Validate(string(tampered))
	if errValidate != nil {
		t.Fatalf("Validate tampered: %v", errValidate)
	}
	if res.Error != msgInvalidSignature {
		t.Fatalf("tampered payload error = %q, want %q", res.Error, msgInvalidSignature)
	}

	// Validly signed but absent from the registry fails at the registry
	// step, not the signature step.
	other := NewService(newTestDB(t), security.NewSigner("qr-test-secret"))
	res, errValidate = other.Validate(content)
	if errValidate != nil {
		t.Fatalf("Validate unregistered: %v", errValidate)
	}
	if res.Error != msgNotRegistered {
		t.Fatalf("unregistered payload error = %q, want %q", res.Error, msgNotRegistered)
	}
}

func TestValidateRejectsMalformedContent(t *testing.T) {
	svc := newTestService(t)
	cases := []string{
		"",
		"not json",
		`{"type":"vehicle"}`,
		`{"type":"spaceship","id":"x","signature":"y"}`,
		`{"id":"x","signature":"y"}`,
	}
	for _, raw := range cases {
		res, errValidate := svc.Validate(raw)
		if errValidate != nil {
			t.Fatalf("Validate(%q): %v", raw, errValidate)
		}
		if res.Valid {
			t.Fatalf("Validate(%q) accepted malformed content", raw)
		}
		if res.Error != msgInvalidFormat {
			t.Fatalf("Validate(%q) error = %q, want %q", raw, res.Error, msgInvalidFormat)
		}
	}
}

func TestValidateRegistryLookupFailureIsError(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	content, errIssue := svc.GetOrGenerateVehicleQR(uuid.New(), "16-123-456")
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}

	// With the registry unreachable the outcome must be an error, never
	// the unregistered-code verdict.
	sqlDB, errDB := svc.db.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	if errClose := sqlDB.Close(); errClose != nil {
		t.Fatalf("close sql db: %v", errClose)
	}

	res, errValidate := svc.Validate(content)
	if errValidate == nil {
		t.Fatal("expected an error for a failed registry lookup")
	}
	if res.Valid {
		t.Fatal("code validated without a registry lookup")
	}
	if res.Error == msgNotRegistered {
		t.Fatalf("lookup failure reported as %q", msgNotRegistered)
	}
}

func TestHouseholdQRHidesNationalID(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	const nationalID = "109990001234567890"
	content, errIssue := svc.GetOrGenerateHouseholdQR(uuid.New(), nationalID)
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	if strings.Contains(content, nationalID) {
		t.Fatal("raw national ID embedded in QR payload")
	}

	res, errValidate := svc.Validate(content)
	if errValidate != nil {
		t.Fatalf("Validate: %v", errValidate)
	}
	if !res.Valid {
		t.Fatalf("household payload invalid: %q", res.Error)
	}
	if len(res.Data.NationalID) != 16 {
		t.Fatalf("hashed national ID length = %d, want 16", len(res.Data.NationalID))
	}
}

func TestSweeperDeactivatesExpired(t *testing.T) {
	conn := newTestDB(t)
	expired := models.QRCode{
		EntityType: models.QREntityVehicle,
		EntityID:   uuid.New(),
		CodeHash:   "hash-expired",
		CodeData:   "{}",
		ExpiresAt:  time.Now().Add(-time.Hour),
		IsActive:   true,
	}
	live := models.QRCode{
		EntityType: models.QREntityVehicle,
		EntityID:   uuid.New(),
		CodeHash:   "hash-live",
		CodeData:   "{}",
		ExpiresAt:  time.Now().Add(time.Hour),
		IsActive:   true,
	}
	if err := conn.Create(&expired).Error; err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if err := conn.Create(&live).Error; err != nil {
		t.Fatalf("create live: %v", err)
	}

	NewSweeper(conn).sweepOnce(context.Background())

	var reloaded models.QRCode
	if err := conn.First(&reloaded, "code_hash = ?", "hash-expired").Error; err != nil {
		t.Fatalf("reload expired: %v", err)
	}
	if reloaded.IsActive {
		t.Fatal("expired code still active after sweep")
	}
	var reloadedLive models.QRCode
	if err := conn.First(&reloadedLive, "code_hash = ?", "hash-live").Error; err != nil {
		t.Fatalf("reload live: %v", err)
	}
	if !reloadedLive.IsActive {
		t.Fatal("live code deactivated by sweep")
	}
}
