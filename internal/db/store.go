package db

import (
	"fmt"

	"gorm.io/gorm"

	"swarmsettings/internal/models"
)

// LoadSettings returns every stored setting ordered by key
func LoadSettings(database *gorm.DB) ([]models.Setting, error) {
	var settings []models.Setting
	if err := database.Order(`"key" ASC`).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// LoadProfiles returns every stored profile ordered by id
func LoadProfiles(database *gorm.DB) ([]models.SettingsProfile, error) {
	var profiles []models.SettingsProfile
	if err := database.Order("id ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return profiles, nil
}

// LoadTemplates returns every stored instruction template ordered by id
func LoadTemplates(database *gorm.DB) ([]models.InstructionTemplate, error) {
	var templates []models.InstructionTemplate
	if err := database.Order("id ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return templates, nil
}

// LoadChanges returns the change log of a setting, oldest first
func LoadChanges(database *gorm.DB, key string) ([]models.SettingChange, error) {
	var changes []models.SettingChange
	err := database.Where("setting_key = ?", key).
		Order("changed_at ASC").
		Order("rowid ASC").
		Find(&changes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", key, err)
	}
	return changes, nil
}

// CountRows reports how many settings, profiles and templates are stored
func CountRows(database *gorm.DB) (settings, profiles, templates int64, err error) {
	if err = database.Model(&models.Setting{}).Count(&settings).Error; err != nil {
		return
	}
	if err = database.Model(&models.SettingsProfile{}).Count(&profiles).Error; err != nil {
		return
	}
	err = database.Model(&models.InstructionTemplate{}).Count(&templates).Error
	return
}

// SetConfig upserts a row of the store's own key/value configuration
func SetConfig(key, value string) error {
	return GetDB().Save(&models.Config{Key: key, Value: value}).Error
}

// GetConfig reads a configuration row; a missing key is gorm.ErrRecordNotFound
func GetConfig(key string) (string, error) {
	var row models.Config
	if err := GetDB().Where("key = ?", key).First(&row).Error; err != nil {
		return "", err
	}
	return row.Value, nil
}
