package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InstructionTemplate is a parametrized instruction body with {name} placeholders
type InstructionTemplate struct {
	ID          string      `gorm:"primaryKey;size:100" json:"id"`
	Name        string      `gorm:"size:255;not null;index" json:"name"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	Variables   StringMap   `gorm:"type:text" json:"variables"`
	Tags        StringSlice `gorm:"type:text" json:"tags,omitempty"`
	Version     string      `gorm:"size:20" json:"version"`
	CreatedAt   time.Time   `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime:false" json:"updated_at"`
	Metadata    JSONMap     `gorm:"type:text" json:"metadata,omitempty"`
}

// TableName specifies the table name for InstructionTemplate
func (InstructionTemplate) TableName() string {
	return "instruction_templates"
}

// GenerateTemplateID creates a new template ID
func GenerateTemplateID() string {
	return uuid.NewString()
}

// BeforeCreate hook to generate ID if not set
func (t *InstructionTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = GenerateTemplateID()
	}
	return nil
}

// HasTag returns true if the template carries the tag
func (t *InstructionTemplate) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the template
func (t *InstructionTemplate) Clone() *InstructionTemplate {
	c := *t
	c.Variables = t.Variables.Clone()
	if t.Tags != nil {
		c.Tags = make(StringSlice, len(t.Tags))
		copy(c.Tags, t.Tags)
	}
	c.Metadata = t.Metadata.Clone()
	return &c
}
