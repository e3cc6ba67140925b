package qrcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/models"
	"github.com/fuelguard-dz/fuelguard/internal/security"
)

// Validation failure messages surfaced to station operators. The wording
// distinguishes forged codes from merely stale ones.
const (
	msgInvalidFormat    = "Invalid QR code format"
	msgInvalidSignature = "Invalid QR code signature - possible tampering"
	msgNotRegistered    = "QR code not registered in system"
	msgDeactivated      = "QR code has been deactivated"
	msgExpired          = "QR code has expired - please regenerate"
)

// ValidationResult is the outcome of checking a scanned QR content string.
// Data is populated as soon as the payload parses, even when invalid, so
// callers can log what was presented.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Expired bool     `json:"expired"`
	Data    *Payload `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Service issues and validates QR payloads against the registry table.
type Service struct {
	db     *gorm.DB
	signer *security.Signer
	now    func() time.Time
}

// NewService returns a Service using the given connection and signer.
func NewService(conn *gorm.DB, signer *security.Signer) *Service {
	return &Service{db: conn, signer: signer, now: time.Now}
}

// expiresAt returns the next local midnight after now. Codes regenerate daily.
func (s *Service) expiresAt(now time.Time) time.Time {
	next := now.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, now.Location())
}

func (s *Service) buildPayload(typ string, entityID uuid.UUID, boundValue string) (*Payload, string, error) {
	now := s.now()
	p := &Payload{
		Type:      typ,
		ID:        entityID.String(),
		Timestamp: now.UnixMilli(),
	}
	if typ == TypeHousehold {
		p.NationalID = boundValue
	} else {
		p.Plate = boundValue
	}
	p.Hash = s.signer.ShortHash(fmt.Sprintf("%s:%s:%d", typ, entityID, p.Timestamp))
	p.Signature = s.signer.Sign(p.signingString())

	content, errMarshal := json.Marshal(p)
	if errMarshal != nil {
		return nil, "", fmt.Errorf("qrcode: marshal payload: %w", errMarshal)
	}
	return p, string(content), nil
}

// generate mints a fresh payload for an entity and registers it, deactivating
// any previously active code in the same transaction so at most one active
// record exists per entity.
func (s *Service) generate(typ string, entityID uuid.UUID, boundValue string) (string, error) {
	p, content, errBuild := s.buildPayload(typ, entityID, boundValue)
	if errBuild != nil {
		return "", errBuild
	}

	record := models.QRCode{
		EntityType: p.registryEntityType(),
		EntityID:   entityID,
		CodeHash:   s.signer.Sign(content),
		CodeData:   content,
		ExpiresAt:  s.expiresAt(s.now()),
		IsActive:   true,
	}

	errTx := s.db.Transaction(func(tx *gorm.DB) error {
		errDeactivate := tx.Model(&models.QRCode{}).
			Where("entity_type = ? AND entity_id = ? AND is_active = ?", record.EntityType, entityID, true).
			Update("is_active", false).Error
		if errDeactivate != nil {
			return errDeactivate
		}
		return tx.Create(&record).Error
	})
	if errTx != nil {
		return "", fmt.Errorf("qrcode: register payload: %w", errTx)
	}
	return content, nil
}

// GetOrGenerateVehicleQR returns the current valid QR content for a vehicle,
// minting a new one only when no active, unexpired code exists. Repeated
// calls within the same day return byte-identical content.
func (s *Service) GetOrGenerateVehicleQR(vehicleID uuid.UUID, plateNumber string) (string, error) {
	return s.getOrGenerate(TypeVehicle, vehicleID, plateNumber)
}

// GetOrGenerateHouseholdQR returns the current valid QR content for a
// household. The national ID is embedded only as a truncated HMAC.
func (s *Service) GetOrGenerateHouseholdQR(householdID uuid.UUID, nationalID string) (string, error) {
	hashed := s.signer.Sign(nationalID)[:16]
	return s.getOrGenerate(TypeHousehold, householdID, hashed)
}

func (s *Service) getOrGenerate(typ string, entityID uuid.UUID, boundValue string) (string, error) {
	entityType := models.QREntityVehicle
	if typ == TypeHousehold {
		entityType = models.QREntityHousehold
	}

	var existing models.QRCode
	errFind := s.db.
		Where("entity_type = ? AND entity_id = ? AND is_active = ? AND expires_at > ?",
			entityType, entityID, true, s.now()).
		Order("created_at DESC").
		First(&existing).Error
	if errFind == nil {
		return existing.CodeData, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("qrcode: lookup active code: %w", errFind)
	}
	return s.generate(typ, entityID, boundValue)
}

// Validate checks a scanned QR content string in layers: format, signature,
// registry presence, activity, expiry. Signature validity alone is not
// enough since a superseded code still carries a correct signature. A
// non-nil error means the registry could not be queried and carries no
// judgement about the code itself.
func (s *Service) Validate(content string) (ValidationResult, error) {
	p := Parse(content)
	if p == nil {
		return ValidationResult{Error: msgInvalidFormat}, nil
	}

	if !s.signer.Verify(p.signingString(), p.Signature) {
		return ValidationResult{Data: p, Error: msgInvalidSignature}, nil
	}

	var record models.QRCode
	errFind := s.db.Where("code_hash = ?", s.signer.Sign(content)).First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ValidationResult{Data: p, Error: msgNotRegistered}, nil
		}
		return ValidationResult{Data: p}, fmt.Errorf("qrcode: registry lookup: %w", errFind)
	}

	if !record.IsActive {
		return ValidationResult{Expired: true, Data: p, Error: msgDeactivated}, nil
	}
	if record.ExpiresAt.Before(s.now()) {
		return ValidationResult{Expired: true, Data: p, Error: msgExpired}, nil
	}
	return ValidationResult{Valid: true, Data: p}, nil
}
