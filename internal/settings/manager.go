// Package settings validates setting values and owns the settings, profiles
// and instruction templates of one settings database.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"swarmsettings/internal/db"
	"swarmsettings/internal/models"
	"swarmsettings/internal/secrets"
)

// Manager is the authoritative store for settings, profiles and templates.
// Every mutation is written to the database in one transaction before the
// in-memory state changes, so a failed write leaves both untouched.
type Manager struct {
	mu      sync.RWMutex
	db      *gorm.DB
	secrets secrets.Store
	log     *slog.Logger
	now     func() time.Time

	settings  map[string]*models.Setting
	profiles  map[string]*models.SettingsProfile
	templates map[string]*models.InstructionTemplate
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for load and mutation events
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithSecretStore keeps values of sensitive settings in store instead of the database
func WithSecretStore(store secrets.Store) Option {
	return func(m *Manager) {
		m.secrets = store
	}
}

// WithClock overrides the timestamp source (used for testing)
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager loads every collection from database. An empty database yields
// empty collections.
func NewManager(database *gorm.DB, opts ...Option) (*Manager, error) {
	m := &Manager{
		db:        database,
		log:       slog.New(slog.DiscardHandler),
		now:       func() time.Time { return time.Now().UTC() },
		settings:  make(map[string]*models.Setting),
		profiles:  make(map[string]*models.SettingsProfile),
		templates: make(map[string]*models.InstructionTemplate),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	settings, err := db.LoadSettings(m.db)
	if err != nil {
		return err
	}
	for i := range settings {
		s := settings[i]
		if s.Sensitive && m.secrets != nil {
			value, err := m.secrets.Get(s.Key)
			switch {
			case err == nil:
				s.DefaultValue = value
			case errors.Is(err, secrets.ErrNotFound):
				// written without a secret store; the next update moves it over
				m.log.Debug("sensitive value kept from database", "key", s.Key)
			default:
				return err
			}
		}
		m.settings[s.Key] = &s
	}

	profiles, err := db.LoadProfiles(m.db)
	if err != nil {
		return err
	}
	for i := range profiles {
		p := profiles[i]
		m.profiles[p.ID] = &p
	}

	templates, err := db.LoadTemplates(m.db)
	if err != nil {
		return err
	}
	for i := range templates {
		t := templates[i]
		m.templates[t.ID] = &t
	}

	m.log.Debug("settings loaded",
		"settings", len(m.settings),
		"profiles", len(m.profiles),
		"templates", len(m.templates))
	return nil
}

func (m *Manager) persist(fn func(tx *gorm.DB) error) error {
	if err := m.db.Transaction(fn); err != nil {
		return fmt.Errorf("failed to persist: %w", err)
	}
	return nil
}

// Settings

// RegisterSetting adds a new setting. The setting's shape is trusted apart
// from a non-empty key and unique option values.
func (m *Manager) RegisterSetting(setting *models.Setting) error {
	if setting.Key == "" {
		return fmt.Errorf("setting key is required: %w", ErrInvalidValue)
	}
	if err := setting.CheckOptions(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidValue)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.settings[setting.Key]; exists {
		return fmt.Errorf("setting %s %w", setting.Key, ErrDuplicateKey)
	}

	stored := setting.Clone()
	value, err := models.NormalizeValue(setting.DefaultValue)
	if err != nil {
		return &ValidationError{Key: setting.Key, Message: err.Error()}
	}
	stored.DefaultValue = value
	if err := canonicalSetting(stored); err != nil {
		return fmt.Errorf("setting %s: %v: %w", setting.Key, err, ErrInvalidValue)
	}
	if stored.Version == "" {
		stored.Version = models.DefaultVersion
	}
	now := m.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	err = m.persistSetting(stored, func(tx *gorm.DB) error {
		return m.writeSetting(tx, stored, true)
	})
	if err != nil {
		return err
	}
	m.settings[stored.Key] = stored
	m.log.Debug("setting registered", "key", stored.Key, "type", stored.Type)
	return nil
}

// writeSetting stores the row. Sensitive values are left out of the row when a
// secret store holds them.
func (m *Manager) writeSetting(tx *gorm.DB, s *models.Setting, create bool) error {
	row := s.Clone()
	if s.Sensitive && m.secrets != nil {
		row.DefaultValue = nil
	}
	if create {
		return tx.Create(row).Error
	}
	return tx.Save(row).Error
}

// persistSetting runs fn in a transaction and, for sensitive settings, writes
// the secret as its last step. A failed secret write rolls the rows back; a
// failed commit puts the previous secret back.
func (m *Manager) persistSetting(s *models.Setting, fn func(tx *gorm.DB) error) error {
	if !s.Sensitive || m.secrets == nil {
		return m.persist(fn)
	}

	previous, err := m.secrets.Get(s.Key)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return fmt.Errorf("failed to persist: %w", err)
	}

	written := false
	err = m.persist(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		if err := m.secrets.Set(s.Key, s.DefaultValue); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil && written {
		m.restoreSecret(s.Key, previous, hadPrevious)
	}
	return err
}

func (m *Manager) restoreSecret(key string, previous any, hadPrevious bool) {
	var err error
	if hadPrevious {
		err = m.secrets.Set(key, previous)
	} else {
		err = m.secrets.Delete(key)
	}
	if err != nil {
		m.log.Error("failed to restore secret", "key", key, "error", err)
	}
}

// UpdateSetting validates value and makes it the setting's current value
func (m *Manager) UpdateSetting(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.settings[key]
	if !ok {
		return fmt.Errorf("setting %s %w", key, ErrNotFound)
	}
	if err := validateValue(current, value); err != nil {
		return err
	}
	normalized, err := models.NormalizeValue(value)
	if err != nil {
		return &ValidationError{Key: key, Message: err.Error()}
	}

	next := current.Clone()
	next.DefaultValue = normalized
	next.UpdatedAt = m.now()

	err = m.persistSetting(next, func(tx *gorm.DB) error {
		if err := m.writeSetting(tx, next, false); err != nil {
			return err
		}
		return models.RecordChange(tx, key, current.DefaultValue, normalized, current.Sensitive, next.UpdatedAt)
	})
	if err != nil {
		return err
	}
	m.settings[key] = next
	m.log.Debug("setting updated", "key", key)
	return nil
}

// GetSetting returns a copy of the setting, or false if it is not registered
func (m *Manager) GetSetting(key string) (*models.Setting, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[key]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// GetSettings returns copies of all settings keyed by setting key
func (m *Manager) GetSettings() map[string]*models.Setting {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*models.Setting, len(m.settings))
	for k, s := range m.settings {
		out[k] = s.Clone()
	}
	return out
}

// Values returns the current value of every setting
func (m *Manager) Values() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]any, len(m.settings))
	for k, s := range m.settings {
		out[k] = models.CloneValue(s.DefaultValue)
	}
	return out
}

// ValidateValue checks value against the setting's options and validation rules
func (m *Manager) ValidateValue(key string, value any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[key]
	if !ok {
		return fmt.Errorf("setting %s %w", key, ErrNotFound)
	}
	return validateValue(s, value)
}

// CheckValue runs the option and validation checks of s against value without
// consulting any registry. Use it to vet a value before registering a setting.
func CheckValue(s *models.Setting, value any) error {
	return validateValue(s, value)
}

// validateValue is the single validation path for settings and profiles:
// option membership first, then the type-directed validator.
func validateValue(s *models.Setting, value any) error {
	if msg := checkOptions(s, value); msg != "" {
		return &ValidationError{Key: s.Key, Message: msg}
	}
	if ok, msg := Validate(s, value); !ok {
		return &ValidationError{Key: s.Key, Message: msg}
	}
	return nil
}

// checkOptions returns a failure message when a select or multiselect value
// is not drawn from the enabled options
func checkOptions(s *models.Setting, value any) string {
	if !s.Type.HasOptions() || value == nil {
		return ""
	}
	if len(s.Options) == 0 {
		return "setting has no options"
	}

	if s.Type == models.TypeSelect {
		token, ok := value.(string)
		if !ok {
			return "value must be one of the option values"
		}
		return optionMessage(s, token)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "value must be a list of option values"
	}
	for i := 0; i < rv.Len(); i++ {
		token, ok := rv.Index(i).Interface().(string)
		if !ok {
			return "value must be a list of option values"
		}
		if msg := optionMessage(s, token); msg != "" {
			return msg
		}
	}
	return ""
}

func optionMessage(s *models.Setting, token string) string {
	opt, ok := s.FindOption(token)
	if !ok {
		return fmt.Sprintf("%q is not a valid option", token)
	}
	if opt.Disabled {
		return fmt.Sprintf("option %q is disabled", token)
	}
	return ""
}

// AttachValidator binds a custom predicate to a registered setting. Custom
// predicates are not persisted and must be attached again after a restart.
func (m *Manager) AttachValidator(key string, fn models.CustomValidator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[key]
	if !ok {
		return fmt.Errorf("setting %s %w", key, ErrNotFound)
	}
	next := s.Clone()
	if next.Validation == nil {
		next.Validation = &models.SettingValidation{}
	}
	next.Validation.Custom = fn
	m.settings[key] = next
	return nil
}

// SettingHistory returns the recorded value changes of a setting, oldest first
func (m *Manager) SettingHistory(key string) ([]models.SettingChange, error) {
	m.mu.RLock()
	_, ok := m.settings[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("setting %s %w", key, ErrNotFound)
	}
	return db.LoadChanges(m.db, key)
}

// Profiles

// CreateProfile adds a profile. An empty ID is generated and written back to
// profile.ID. At most one profile may be the default.
func (m *Manager) CreateProfile(profile *models.SettingsProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.ID == "" {
		profile.ID = models.GenerateProfileID()
	}
	if _, exists := m.profiles[profile.ID]; exists {
		return fmt.Errorf("profile %s %w", profile.ID, ErrDuplicateKey)
	}
	if profile.IsDefault {
		if current := m.defaultProfileID(); current != "" {
			return fmt.Errorf("profile %s is already the default: %w", current, ErrInvalidValue)
		}
	}

	stored := profile.Clone()
	if err := canonicalProfile(stored); err != nil {
		return fmt.Errorf("profile %s: %v: %w", profile.ID, err, ErrInvalidValue)
	}
	now := m.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	err := m.persist(func(tx *gorm.DB) error {
		return tx.Create(stored).Error
	})
	if err != nil {
		return err
	}
	m.profiles[stored.ID] = stored
	m.log.Debug("profile created", "id", stored.ID)
	return nil
}

// UpdateProfile merges overrides into the profile. Every override naming a
// registered setting is validated before any is applied; one failure rejects
// the whole update.
func (m *Manager) UpdateProfile(profileID string, overrides map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.profiles[profileID]
	if !ok {
		return fmt.Errorf("profile %s %w", profileID, ErrNotFound)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := m.settings[k]; ok {
			if err := validateValue(s, overrides[k]); err != nil {
				return fmt.Errorf("profile %s: %w", profileID, err)
			}
		}
	}

	normalized, err := normalizeMap(overrides)
	if err != nil {
		return fmt.Errorf("profile %s: %v: %w", profileID, err, ErrInvalidValue)
	}
	next := current.Clone()
	for k, v := range normalized {
		next.Settings[k] = v
	}
	next.UpdatedAt = m.now()

	err = m.persist(func(tx *gorm.DB) error {
		return tx.Save(next).Error
	})
	if err != nil {
		return err
	}
	m.profiles[profileID] = next
	m.log.Debug("profile updated", "id", profileID, "keys", len(keys))
	return nil
}

// SetDefaultProfile marks profileID as the only default profile
func (m *Manager) SetDefaultProfile(profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.profiles[profileID]
	if !ok {
		return fmt.Errorf("profile %s %w", profileID, ErrNotFound)
	}

	now := m.now()
	changed := make(map[string]*models.SettingsProfile)
	for id, p := range m.profiles {
		if id != profileID && p.IsDefault {
			next := p.Clone()
			next.IsDefault = false
			next.UpdatedAt = now
			changed[id] = next
		}
	}
	if !target.IsDefault {
		next := target.Clone()
		next.IsDefault = true
		next.UpdatedAt = now
		changed[profileID] = next
	}
	if len(changed) == 0 {
		return nil
	}

	err := m.persist(func(tx *gorm.DB) error {
		for _, p := range changed {
			if err := tx.Save(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for id, p := range changed {
		m.profiles[id] = p
	}
	return nil
}

// GetProfile returns a copy of the profile, or false if it does not exist
func (m *Manager) GetProfile(profileID string) (*models.SettingsProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[profileID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// GetProfiles returns copies of all profiles keyed by ID
func (m *Manager) GetProfiles() map[string]*models.SettingsProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*models.SettingsProfile, len(m.profiles))
	for id, p := range m.profiles {
		out[id] = p.Clone()
	}
	return out
}

// DefaultProfile returns the profile marked default, if any
func (m *Manager) DefaultProfile() (*models.SettingsProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id := m.defaultProfileID()
	if id == "" {
		return nil, false
	}
	return m.profiles[id].Clone(), true
}

func (m *Manager) defaultProfileID() string {
	for id, p := range m.profiles {
		if p.IsDefault {
			return id
		}
	}
	return ""
}

// ResolveProfile returns the current value of every setting overlaid with the
// profile's overrides. Overrides for unregistered keys are included as-is.
func (m *Manager) ResolveProfile(profileID string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %s %w", profileID, ErrNotFound)
	}
	out := make(map[string]any, len(m.settings)+len(p.Settings))
	for k, s := range m.settings {
		out[k] = models.CloneValue(s.DefaultValue)
	}
	for k, v := range p.Settings {
		out[k] = models.CloneValue(v)
	}
	return out, nil
}

// Templates

// CreateTemplate adds an instruction template. An empty ID is generated and
// written back to template.ID.
func (m *Manager) CreateTemplate(template *models.InstructionTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if template.ID == "" {
		template.ID = models.GenerateTemplateID()
	}
	if _, exists := m.templates[template.ID]; exists {
		return fmt.Errorf("template %s %w", template.ID, ErrDuplicateKey)
	}

	stored := template.Clone()
	if err := canonicalTemplate(stored); err != nil {
		return fmt.Errorf("template %s: %v: %w", template.ID, err, ErrInvalidValue)
	}
	if stored.Version == "" {
		stored.Version = models.DefaultVersion
	}
	now := m.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	err := m.persist(func(tx *gorm.DB) error {
		return tx.Create(stored).Error
	})
	if err != nil {
		return err
	}
	m.templates[stored.ID] = stored
	m.log.Debug("template created", "id", stored.ID, "name", stored.Name)
	return nil
}

// UpdateTemplate replaces the content and, when variables is non-nil, merges
// it into the stored defaults
func (m *Manager) UpdateTemplate(templateID, content string, variables map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.templates[templateID]
	if !ok {
		return fmt.Errorf("template %s %w", templateID, ErrNotFound)
	}

	next := current.Clone()
	next.Content = content
	for k, v := range variables {
		next.Variables[k] = v
	}
	next.UpdatedAt = m.now()

	err := m.persist(func(tx *gorm.DB) error {
		return tx.Save(next).Error
	})
	if err != nil {
		return err
	}
	m.templates[templateID] = next
	m.log.Debug("template updated", "id", templateID)
	return nil
}

// GetTemplate returns a copy of the template, or false if it does not exist
func (m *Manager) GetTemplate(templateID string) (*models.InstructionTemplate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[templateID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// GetTemplates returns copies of all templates keyed by ID
func (m *Manager) GetTemplates() map[string]*models.InstructionTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*models.InstructionTemplate, len(m.templates))
	for id, t := range m.templates {
		out[id] = t.Clone()
	}
	return out
}

// RenderTemplate renders the template with variables taking precedence over
// the template's own defaults. The stored template is not modified.
func (m *Manager) RenderTemplate(templateID string, variables map[string]string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[templateID]
	if !ok {
		return "", fmt.Errorf("template %s %w", templateID, ErrNotFound)
	}
	return Render(t.Content, t.Variables, variables), nil
}

func normalizeMap(in map[string]any) (models.JSONMap, error) {
	out := make(models.JSONMap, len(in))
	for k, v := range in {
		normalized, err := models.NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = normalized
	}
	return out, nil
}

// The canonical* helpers give stored records the exact shape they have after
// a database round trip: empty containers instead of nil, JSON-normalized maps.

func canonicalSetting(s *models.Setting) error {
	var err error
	if s.DependsOn, err = normalizeMap(s.DependsOn); err != nil {
		return err
	}
	if s.Metadata, err = normalizeMap(s.Metadata); err != nil {
		return err
	}
	if s.Affects == nil {
		s.Affects = models.StringSlice{}
	}
	return nil
}

func canonicalProfile(p *models.SettingsProfile) error {
	var err error
	if p.Settings, err = normalizeMap(p.Settings); err != nil {
		return err
	}
	p.Metadata, err = normalizeMap(p.Metadata)
	return err
}

func canonicalTemplate(t *models.InstructionTemplate) error {
	if t.Variables == nil {
		t.Variables = models.StringMap{}
	}
	if t.Tags == nil {
		t.Tags = models.StringSlice{}
	}
	var err error
	t.Metadata, err = normalizeMap(t.Metadata)
	return err
}
