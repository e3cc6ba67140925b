package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Station is a fuel/gas distribution point.
type Station struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Name    string `gorm:"type:text;not null" json:"name"`
	Code    string `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Address string `gorm:"type:text;not null" json:"address"`
	Wilaya  string `gorm:"type:text;not null;index" json:"wilaya"`
	Commune string `gorm:"type:text;not null" json:"commune"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns the primary key.
func (s *Station) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// StationManager links an operator account to the station it works at.
type StationManager struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_station_managers_user_station" json:"userId"`
	StationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_station_managers_user_station" json:"stationId"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Station *Station `gorm:"foreignKey:StationID" json:"station,omitempty"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
}

// BeforeCreate assigns the primary key.
func (m *StationManager) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
