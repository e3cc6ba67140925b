// Package audit writes an append-only trail of sensitive operations.
// Recording is asynchronous and fire-and-forget: audit problems are logged
// but never fail or slow the operation being audited.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// Common audit actions.
const (
	ActionLogin            = "LOGIN"
	ActionRegister         = "REGISTER"
	ActionVerifyEntity     = "VERIFY_ENTITY"
	ActionRejectEntity     = "REJECT_ENTITY"
	ActionFuelApproved     = "FUEL_APPROVED"
	ActionFuelDenied       = "FUEL_DENIED"
	ActionGasApproved      = "GAS_APPROVED"
	ActionGasDenied        = "GAS_DENIED"
	ActionRuleChanged      = "RULE_CHANGED"
	ActionBlacklistAdded   = "BLACKLIST_ADDED"
	ActionBlacklistRemoved = "BLACKLIST_REMOVED"
	ActionUserFlagged      = "USER_FLAGGED"
	ActionUserUnflagged    = "USER_UNFLAGGED"
	ActionStationChanged   = "STATION_CHANGED"
)

const defaultBufferSize = 256

// Recorder buffers audit entries and writes them from a single background
// goroutine. When the buffer is full entries are dropped, not blocked on.
type Recorder struct {
	db *gorm.DB
	ch chan models.AuditLog
}

// NewRecorder returns a Recorder. Call Start before Record.
func NewRecorder(conn *gorm.DB) *Recorder {
	return &Recorder{db: conn, ch: make(chan models.AuditLog, defaultBufferSize)}
}

// Start launches the write loop. It stops when ctx is cancelled, draining
// nothing further.
func (r *Recorder) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go r.run(ctx)
}

func (r *Recorder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-r.ch:
			if errCreate := r.db.Create(&entry).Error; errCreate != nil {
				log.WithError(errCreate).Warn("audit: write failed")
			}
		}
	}
}

// Record queues one audit entry. details is marshalled to JSON; a nil or
// unmarshallable value stores no details.
func (r *Recorder) Record(userID *uuid.UUID, action, entityType string, entityID *uuid.UUID, details any) {
	if r == nil {
		return
	}
	entry := models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if details != nil {
		if raw, errMarshal := json.Marshal(details); errMarshal == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	select {
	case r.ch <- entry:
	default:
		log.Warnf("audit: buffer full, dropping %s entry", action)
	}
}
