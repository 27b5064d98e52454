package models

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SettingChange is an append-only record of an accepted setting value change
type SettingChange struct {
	ID         string    `gorm:"primaryKey;size:30" json:"id"`
	SettingKey string    `gorm:"size:100;index;not null" json:"setting_key"`
	OldValue   string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue   string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangedAt  time.Time `gorm:"index" json:"changed_at"`
}

// TableName specifies the table name for SettingChange
func (SettingChange) TableName() string {
	return "setting_changes"
}

// GenerateChangeID creates a new change entry ID
func GenerateChangeID() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// crypto/rand failure indicates serious system issues - fail fast
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return "chg-" + hex.EncodeToString(bytes)
}

// BeforeCreate hook to generate ID
func (c *SettingChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = GenerateChangeID()
	}
	return nil
}

// Redacted replaces the values of sensitive settings in the change log
const Redacted = `"********"`

// RecordChange appends a change entry for a setting value. Nothing is recorded
// when the encoded values are equal. With redact set, the entry only notes that
// the value changed.
func RecordChange(db *gorm.DB, key string, oldValue, newValue any, redact bool, at time.Time) error {
	oldJSON, err := encodeChangeValue(oldValue)
	if err != nil {
		return err
	}
	newJSON, err := encodeChangeValue(newValue)
	if err != nil {
		return err
	}
	if oldJSON == newJSON {
		return nil // No change
	}
	if redact {
		oldJSON, newJSON = Redacted, Redacted
	}
	entry := &SettingChange{
		SettingKey: key,
		OldValue:   oldJSON,
		NewValue:   newJSON,
		ChangedAt:  at,
	}
	return db.Create(entry).Error
}

func encodeChangeValue(v any) (string, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode change value: %w", err)
	}
	return string(bytes), nil
}
