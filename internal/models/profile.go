package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileIDPrefix prefixes generated profile IDs
const ProfileIDPrefix = "prof-"

// SettingsProfile is a named bundle of setting overrides, e.g. per agent or per user
type SettingsProfile struct {
	ID          string    `gorm:"primaryKey;size:100" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Settings    JSONMap   `gorm:"type:text" json:"settings"`
	IsDefault   bool      `gorm:"default:false;index" json:"is_default"`
	CreatedAt   time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	Metadata    JSONMap   `gorm:"type:text" json:"metadata,omitempty"`
}

// TableName specifies the table name for SettingsProfile
func (SettingsProfile) TableName() string {
	return "profiles"
}

// GenerateProfileID creates a new profile ID like "prof-1b4e28ba"
func GenerateProfileID() string {
	return ProfileIDPrefix + uuid.NewString()[:8]
}

// BeforeCreate hook to generate ID if not set
func (p *SettingsProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = GenerateProfileID()
	}
	return nil
}

// Override returns the profile's override for key
func (p *SettingsProfile) Override(key string) (any, bool) {
	v, ok := p.Settings[key]
	return v, ok
}

// Clone returns a deep copy of the profile
func (p *SettingsProfile) Clone() *SettingsProfile {
	c := *p
	c.Settings = p.Settings.Clone()
	c.Metadata = p.Metadata.Clone()
	return &c
}
