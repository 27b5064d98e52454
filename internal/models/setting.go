package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SettingType selects the validation rule-set and UI affordance for a setting
type SettingType string

// Setting type constants
const (
	TypeString      SettingType = "string"
	TypeNumber      SettingType = "number"
	TypeBoolean     SettingType = "boolean"
	TypeSelect      SettingType = "select"
	TypeMultiselect SettingType = "multiselect"
	TypeSlider      SettingType = "slider"
	TypeCode        SettingType = "code"
	TypeMarkdown    SettingType = "markdown"
	TypeJSON        SettingType = "json"
	TypeTemplate    SettingType = "template"
	TypeColor       SettingType = "color"
	TypeDateTime    SettingType = "datetime"
	TypeFile        SettingType = "file"
	TypeDirectory   SettingType = "directory"
	TypeKeyValue    SettingType = "key_value"
	TypeRichText    SettingType = "rich_text"
)

// AllSettingTypes lists every setting type in declaration order
var AllSettingTypes = []SettingType{
	TypeString, TypeNumber, TypeBoolean, TypeSelect, TypeMultiselect, TypeSlider,
	TypeCode, TypeMarkdown, TypeJSON, TypeTemplate, TypeColor, TypeDateTime,
	TypeFile, TypeDirectory, TypeKeyValue, TypeRichText,
}

// IsValid returns true if t is one of the known setting types
func (t SettingType) IsValid() bool {
	for _, known := range AllSettingTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasOptions returns true for types whose values are drawn from an option list
func (t SettingType) HasOptions() bool {
	return t == TypeSelect || t == TypeMultiselect
}

// ParseSettingType converts a type name into a SettingType
func ParseSettingType(name string) (SettingType, error) {
	t := SettingType(name)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown setting type %q", name)
	}
	return t, nil
}

// DefaultVersion is assigned to settings and templates registered without one
const DefaultVersion = "1.0.0"

// SettingOption is one selectable choice of a select or multiselect setting
type SettingOption struct {
	Value       string         `json:"value"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
	Group       string         `json:"group,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CustomValidator is a caller-supplied predicate. A false result or a non-nil
// error rejects the value; the error text becomes the failure message.
type CustomValidator func(value any) (bool, error)

// SettingValidation is the rule-set attached to a setting. Fields that do not
// apply to the setting's type are ignored.
type SettingValidation struct {
	Required     bool            `json:"required,omitempty"`
	MinValue     *float64        `json:"min_value,omitempty"`
	MaxValue     *float64        `json:"max_value,omitempty"`
	MinLength    *int            `json:"min_length,omitempty"`
	MaxLength    *int            `json:"max_length,omitempty"`
	Pattern      string          `json:"pattern,omitempty"`
	AllowedTypes []string        `json:"allowed_types,omitempty"`
	Custom       CustomValidator `json:"-"` // process-local, never persisted
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Float returns a pointer to v, for building validation bounds
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building length bounds
func Int(v int) *int { return &v }

// Setting describes one configurable value. DefaultValue holds the current value.
type Setting struct {
	Key          string             `gorm:"primaryKey;size:100" json:"key"`
	Type         SettingType        `gorm:"size:20;not null;index" json:"type"`
	Label        string             `gorm:"size:255;not null" json:"label"`
	Description  string             `gorm:"type:text" json:"description,omitempty"`
	DefaultValue any                `gorm:"-" json:"default_value"`
	ValueJSON    string             `gorm:"column:default_value;type:text" json:"-"`
	Options      []SettingOption    `gorm:"type:text;serializer:json" json:"options,omitempty"`
	Validation   *SettingValidation `gorm:"type:text;serializer:json" json:"validation,omitempty"`
	DependsOn    JSONMap            `gorm:"type:text" json:"depends_on,omitempty"`
	Affects      StringSlice        `gorm:"type:text" json:"affects,omitempty"`
	Metadata     JSONMap            `gorm:"type:text" json:"metadata,omitempty"`
	Sensitive    bool               `gorm:"default:false" json:"sensitive"` // value lives in the OS keyring
	Version      string             `gorm:"size:20" json:"version"`
	CreatedAt    time.Time          `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// TableName specifies the table name for Setting
func (Setting) TableName() string {
	return "settings"
}

// BeforeSave encodes the current value into its column
func (s *Setting) BeforeSave(tx *gorm.DB) error {
	bytes, err := json.Marshal(s.DefaultValue)
	if err != nil {
		return fmt.Errorf("setting %s: value is not JSON-encodable: %w", s.Key, err)
	}
	s.ValueJSON = string(bytes)
	return nil
}

// AfterFind decodes the current value from its column
func (s *Setting) AfterFind(tx *gorm.DB) error {
	s.DefaultValue = nil
	if s.ValueJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.ValueJSON), &s.DefaultValue); err != nil {
		return fmt.Errorf("setting %s: invalid stored value: %w", s.Key, err)
	}
	return nil
}

// FindOption returns the option with the given value
func (s *Setting) FindOption(value string) (SettingOption, bool) {
	for _, opt := range s.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return SettingOption{}, false
}

// OptionValues returns the stored tokens of all options
func (s *Setting) OptionValues() []string {
	values := make([]string, 0, len(s.Options))
	for _, opt := range s.Options {
		values = append(values, opt.Value)
	}
	return values
}

// CheckOptions verifies that option values are unique
func (s *Setting) CheckOptions() error {
	seen := make(map[string]bool, len(s.Options))
	for _, opt := range s.Options {
		if seen[opt.Value] {
			return fmt.Errorf("setting %s: duplicate option value %q", s.Key, opt.Value)
		}
		seen[opt.Value] = true
	}
	return nil
}

// Clone returns a copy that shares no mutable state with s.
// The custom validator function is shared.
func (s *Setting) Clone() *Setting {
	c := *s
	c.DefaultValue = CloneValue(s.DefaultValue)
	if s.Options != nil {
		c.Options = make([]SettingOption, len(s.Options))
		copy(c.Options, s.Options)
	}
	if s.Validation != nil {
		v := *s.Validation
		if s.Validation.AllowedTypes != nil {
			v.AllowedTypes = append([]string(nil), s.Validation.AllowedTypes...)
		}
		c.Validation = &v
	}
	c.DependsOn = s.DependsOn.Clone()
	if s.Affects != nil {
		c.Affects = make(StringSlice, len(s.Affects))
		copy(c.Affects, s.Affects)
	}
	c.Metadata = s.Metadata.Clone()
	return &c
}
