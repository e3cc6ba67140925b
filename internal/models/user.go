// Package models defines the GORM persistence models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleCitizen        = "CITIZEN"
	RoleStationManager = "STATION_MANAGER"
	RoleAdmin          = "ADMIN"
	RoleSuperAdmin     = "SUPER_ADMIN"
)

// User is an account holder: citizen, station manager, or administrator.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Email      string  `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Password   string  `gorm:"type:text;not null" json:"-"` // bcrypt hash
	FullName   string  `gorm:"type:text;not null" json:"fullName"`
	Phone      string  `gorm:"type:text" json:"phone"`
	NationalID *string `gorm:"type:text;uniqueIndex" json:"nationalId,omitempty"`

	Role string `gorm:"type:text;not null;default:CITIZEN;index" json:"role"`

	IsFlagged  bool    `gorm:"not null;default:false" json:"isFlagged"`
	FlagReason *string `gorm:"type:text" json:"flagReason,omitempty"`

	TOTPSecret string `gorm:"type:text" json:"-"` // Set once MFA is enrolled.

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns the primary key so SQLite and PostgreSQL behave alike.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RefreshToken is a persisted refresh token, stored hashed for revocation.
type RefreshToken struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	User   *User     `gorm:"foreignKey:UserID" json:"-"`

	TokenHash string     `gorm:"type:text;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}

// BeforeCreate assigns the primary key.
func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
