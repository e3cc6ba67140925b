// Package blacklist manages barred and flagged identifiers and answers
// eligibility-time checks against them.
package blacklist

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/db"
	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// ErrIdentifierRequired is returned when an entry names neither a national
// ID nor a plate number.
var ErrIdentifierRequired = errors.New("blacklist: either nationalId or plateNumber is required")

// CheckResult reports whether any identifier matched an active entry.
type CheckResult struct {
	IsBlacklisted bool                   `json:"isBlacklisted"`
	Severity      string                 `json:"severity,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	Entry         *models.BlacklistEntry `json:"entry,omitempty"`
}

// Service wraps blacklist reads and administrator writes.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService returns a Service using the given connection.
func NewService(conn *gorm.DB) *Service {
	return &Service{db: conn, now: time.Now}
}

// Check looks for an active, unexpired entry matching either identifier.
// Empty identifiers are skipped; with both empty the result is clean.
func (s *Service) Check(nationalID, plateNumber string) (CheckResult, error) {
	if nationalID == "" && plateNumber == "" {
		return CheckResult{}, nil
	}

	query := s.db.Where("is_active = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", s.now())
	switch {
	case nationalID != "" && plateNumber != "":
		query = query.Where("national_id = ? OR plate_number = ?", nationalID, plateNumber)
	case nationalID != "":
		query = query.Where("national_id = ?", nationalID)
	default:
		query = query.Where("plate_number = ?", plateNumber)
	}

	var entry models.BlacklistEntry
	errFind := query.First(&entry).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return CheckResult{}, nil
		}
		return CheckResult{}, fmt.Errorf("blacklist: check: %w", errFind)
	}
	return CheckResult{
		IsBlacklisted: true,
		Severity:      entry.Severity,
		Reason:        entry.Reason,
		Entry:         &entry,
	}, nil
}

// AddInput describes a new or updated blacklist entry.
type AddInput struct {
	NationalID  *string
	PlateNumber *string
	Reason      string
	Severity    string
	Notes       *string
	AddedByID   *uuid.UUID
	ExpiresAt   *time.Time
}

// Add creates an entry for the identifier, or refreshes the existing active
// one so an identifier never accumulates duplicate active entries.
func (s *Service) Add(input AddInput) (*models.BlacklistEntry, error) {
	hasNationalID := input.NationalID != nil && *input.NationalID != ""
	hasPlate := input.PlateNumber != nil && *input.PlateNumber != ""
	if !hasNationalID && !hasPlate {
		return nil, ErrIdentifierRequired
	}
	if input.Severity == "" {
		input.Severity = models.SeverityWarning
	}

	query := s.db.Where("is_active = ?", true)
	switch {
	case hasNationalID && hasPlate:
		query = query.Where("national_id = ? OR plate_number = ?", *input.NationalID, *input.PlateNumber)
	case hasNationalID:
		query = query.Where("national_id = ?", *input.NationalID)
	default:
		query = query.Where("plate_number = ?", *input.PlateNumber)
	}

	var existing models.BlacklistEntry
	errFind := query.First(&existing).Error
	if errFind == nil {
		updates := map[string]any{
			"reason":     input.Reason,
			"severity":   input.Severity,
			"notes":      input.Notes,
			"expires_at": input.ExpiresAt,
		}
		if errUpdate := s.db.Model(&existing).Updates(updates).Error; errUpdate != nil {
			return nil, fmt.Errorf("blacklist: update entry: %w", errUpdate)
		}
		return &existing, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("blacklist: lookup entry: %w", errFind)
	}

	entry := models.BlacklistEntry{
		NationalID:  input.NationalID,
		PlateNumber: input.PlateNumber,
		Reason:      input.Reason,
		Severity:    input.Severity,
		Notes:       input.Notes,
		AddedByID:   input.AddedByID,
		ExpiresAt:   input.ExpiresAt,
		IsActive:    true,
	}
	if errCreate := s.db.Create(&entry).Error; errCreate != nil {
		return nil, fmt.Errorf("blacklist: create entry: %w", errCreate)
	}
	return &entry, nil
}

// Remove deactivates an entry. The row is kept for audit history.
func (s *Service) Remove(id uuid.UUID) error {
	res := s.db.Model(&models.BlacklistEntry{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("blacklist: remove entry: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Search   string
	Severity string
	IsActive *bool
	Page     int
	Limit    int
}

// ListResult is one page of entries plus pagination metadata.
type ListResult struct {
	Entries    []models.BlacklistEntry `json:"entries"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	Total      int64                   `json:"total"`
	TotalPages int                     `json:"totalPages"`
}

// List returns entries newest first, filtered by search text and severity.
func (s *Service) List(opts ListOptions) (*ListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 20
	}
	active := true
	if opts.IsActive != nil {
		active = *opts.IsActive
	}

	query := s.db.Model(&models.BlacklistEntry{}).Where("is_active = ?", active)
	if opts.Severity != "" {
		query = query.Where("severity = ?", opts.Severity)
	}
	if opts.Search != "" {
		pattern := db.NormalizeLikePattern(s.db, "%"+opts.Search+"%")
		query = query.Where(
			fmt.Sprintf("%s OR %s OR %s",
				db.CaseInsensitiveLikeExpr(s.db, "national_id"),
				db.CaseInsensitiveLikeExpr(s.db, "plate_number"),
				db.CaseInsensitiveLikeExpr(s.db, "reason")),
			pattern, pattern, pattern)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		return nil, fmt.Errorf("blacklist: count entries: %w", errCount)
	}

	var entries []models.BlacklistEntry
	errFind := query.Order("created_at DESC").
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&entries).Error
	if errFind != nil {
		return nil, fmt.Errorf("blacklist: list entries: %w", errFind)
	}

	return &ListResult{
		Entries:    entries,
		Page:       opts.Page,
		Limit:      opts.Limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(opts.Limit))),
	}, nil
}

// FlagUser marks a citizen account as suspicious. Flagged owners produce
// eligibility warnings rather than hard denials.
func (s *Service) FlagUser(userID uuid.UUID, reason string) error {
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"is_flagged":  true,
		"flag_reason": reason,
	})
	if res.Error != nil {
		return fmt.Errorf("blacklist: flag user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UnflagUser clears a previous flag.
func (s *Service) UnflagUser(userID uuid.UUID) error {
	res := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"is_flagged":  false,
		"flag_reason": nil,
	})
	if res.Error != nil {
		return fmt.Errorf("blacklist: unflag user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
