package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fuelguard-dz/fuelguard/internal/db"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

func newTestRecorder(t *testing.T) (*Recorder, *gorm.DB) {
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
	return NewRecorder(conn), conn
}

func waitForCount(t *testing.T, conn *gorm.DB, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var count int64
		if err := conn.Model(&models.AuditLog{}).Count(&count).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if count >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("audit rows did not reach %d in time", want)
}

func TestRecordWritesAsynchronously(t *testing.T) {
	recorder, conn := newTestRecorder(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recorder.Start(ctx)

	userID := uuid.New()
	entityID := uuid.New()
	recorder.Record(&userID, ActionFuelApproved, "VEHICLE", &entityID, map[string]any{"liters": 30})
	waitForCount(t, conn, 1)

	var entry models.AuditLog
	if err := conn.First(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Action != ActionFuelApproved || entry.EntityType != "VEHICLE" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.UserID == nil || *entry.UserID != userID {
		t.Fatalf("UserID = %v", entry.UserID)
	}
	if len(entry.Details) == 0 {
		t.Fatal("details not stored")
	}
}

func TestRecordNeverBlocksWhenBufferFull(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	// Not started: nothing drains the channel.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize*2; i++ {
			recorder.Record(nil, ActionLogin, "USER", nil, nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on full buffer")
	}
}
