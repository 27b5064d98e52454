package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"swarmsettings/internal/models"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	Setting(s *models.Setting)
	SettingList(settings []*models.Setting)
	Profile(p *models.SettingsProfile)
	ProfileList(profiles []*models.SettingsProfile)
	Template(t *models.InstructionTemplate)
	TemplateList(templates []*models.InstructionTemplate)
	Values(title string, values map[string]any)
	History(key string, changes []models.SettingChange)
	Success(msg string)
	Error(err error)
	Info(msg string)
	KeyValue(key, value string)
	Section(title string)
	JSON(v interface{})
}

// TextFormatter outputs human-readable text
type TextFormatter struct{}

// JSONFormatter outputs JSON
type JSONFormatter struct{}

// New returns the appropriate formatter based on json flag
func New(jsonOutput bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// FormatValue renders a setting value compactly as JSON
func FormatValue(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func displayValue(s *models.Setting) string {
	if s.Sensitive {
		return "********"
	}
	return FormatValue(s.DefaultValue)
}

// TextFormatter implementations

func (f *TextFormatter) Setting(s *models.Setting) {
	fmt.Printf("Key:      %s\n", s.Key)
	fmt.Printf("Label:    %s\n", s.Label)
	fmt.Printf("Type:     %s\n", s.Type)
	fmt.Printf("Value:    %s\n", displayValue(s))
	if s.Description != "" {
		fmt.Printf("Desc:     %s\n", s.Description)
	}
	if len(s.Options) > 0 {
		fmt.Printf("Options:  %s\n", strings.Join(s.OptionValues(), ", "))
	}
	if v := s.Validation; v != nil {
		var rules []string
		if v.Required {
			rules = append(rules, "required")
		}
		if v.MinValue != nil {
			rules = append(rules, fmt.Sprintf("min=%g", *v.MinValue))
		}
		if v.MaxValue != nil {
			rules = append(rules, fmt.Sprintf("max=%g", *v.MaxValue))
		}
		if v.MinLength != nil {
			rules = append(rules, fmt.Sprintf("min_length=%d", *v.MinLength))
		}
		if v.MaxLength != nil {
			rules = append(rules, fmt.Sprintf("max_length=%d", *v.MaxLength))
		}
		if v.Pattern != "" {
			rules = append(rules, "pattern="+v.Pattern)
		}
		if len(rules) > 0 {
			fmt.Printf("Rules:    %s\n", strings.Join(rules, " "))
		}
	}
	if len(s.Affects) > 0 {
		fmt.Printf("Affects:  %v\n", []string(s.Affects))
	}
	fmt.Printf("Version:  %s\n", s.Version)
	fmt.Printf("Updated:  %s\n", s.UpdatedAt.Format(models.DateTimeShortFormat))
}

func (f *TextFormatter) SettingList(settings []*models.Setting) {
	fmt.Printf("Settings (%d):\n", len(settings))
	for _, s := range settings {
		fmt.Printf("  %-20s %-12s %s\n", s.Key, s.Type, displayValue(s))
	}
}

func (f *TextFormatter) Profile(p *models.SettingsProfile) {
	fmt.Printf("ID:       %s\n", p.ID)
	fmt.Printf("Name:     %s\n", p.Name)
	if p.Description != "" {
		fmt.Printf("Desc:     %s\n", p.Description)
	}
	if p.IsDefault {
		fmt.Println("Default:  yes")
	}
	fmt.Printf("Created:  %s\n", p.CreatedAt.Format(models.DateTimeShortFormat))
	if len(p.Settings) > 0 {
		f.Values("Overrides", p.Settings)
	}
}

func (f *TextFormatter) ProfileList(profiles []*models.SettingsProfile) {
	fmt.Printf("Profiles (%d):\n", len(profiles))
	for _, p := range profiles {
		marker := ""
		if p.IsDefault {
			marker = " (default)"
		}
		fmt.Printf("  [%s] %s - %d overrides%s\n", p.ID, p.Name, len(p.Settings), marker)
	}
}

func (f *TextFormatter) Template(t *models.InstructionTemplate) {
	fmt.Printf("ID:       %s\n", t.ID)
	fmt.Printf("Name:     %s\n", t.Name)
	if t.Description != "" {
		fmt.Printf("Desc:     %s\n", t.Description)
	}
	if len(t.Tags) > 0 {
		fmt.Printf("Tags:     %v\n", []string(t.Tags))
	}
	fmt.Printf("Version:  %s\n", t.Version)
	if len(t.Variables) > 0 {
		f.Section("Variables")
		for _, k := range sortedKeys(t.Variables) {
			fmt.Printf("  %s = %q\n", k, t.Variables[k])
		}
	}
	f.Section("Content")
	fmt.Println(t.Content)
}

func (f *TextFormatter) TemplateList(templates []*models.InstructionTemplate) {
	fmt.Printf("Templates (%d):\n", len(templates))
	for _, t := range templates {
		tags := ""
		if len(t.Tags) > 0 {
			tags = " [" + strings.Join(t.Tags, ", ") + "]"
		}
		fmt.Printf("  [%s] %s%s\n", t.ID, t.Name, tags)
	}
}

func (f *TextFormatter) Values(title string, values map[string]any) {
	f.Section(title)
	for _, k := range sortedKeys(values) {
		fmt.Printf("  %s = %s\n", k, FormatValue(values[k]))
	}
}

func (f *TextFormatter) History(key string, changes []models.SettingChange) {
	if len(changes) == 0 {
		fmt.Printf("No changes recorded for %s\n", key)
		return
	}
	fmt.Printf("History of %s (%d):\n", key, len(changes))
	for _, c := range changes {
		fmt.Printf("  %s  %s -> %s\n", c.ChangedAt.Format(models.DateTimeFormat), c.OldValue, c.NewValue)
	}
}

func (f *TextFormatter) Success(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) Error(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func (f *TextFormatter) Info(msg string) {
	fmt.Println(msg)
}

func (f *TextFormatter) KeyValue(key, value string) {
	fmt.Printf("%s: %s\n", key, value)
}

func (f *TextFormatter) Section(title string) {
	fmt.Printf("\n%s:\n", title)
}

func (f *TextFormatter) JSON(v interface{}) {
	// TextFormatter doesn't output JSON, but provide fallback
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		f.Error(err)
		return
	}
	fmt.Println(string(data))
}

// JSONFormatter implementations

func (f *JSONFormatter) Setting(s *models.Setting) {
	f.JSON(redact(s))
}

func (f *JSONFormatter) SettingList(settings []*models.Setting) {
	out := make([]*models.Setting, len(settings))
	for i, s := range settings {
		out[i] = redact(s)
	}
	f.JSON(map[string]interface{}{
		"count":    len(out),
		"settings": out,
	})
}

func (f *JSONFormatter) Profile(p *models.SettingsProfile) {
	f.JSON(p)
}

func (f *JSONFormatter) ProfileList(profiles []*models.SettingsProfile) {
	f.JSON(map[string]interface{}{
		"count":    len(profiles),
		"profiles": profiles,
	})
}

func (f *JSONFormatter) Template(t *models.InstructionTemplate) {
	f.JSON(t)
}

func (f *JSONFormatter) TemplateList(templates []*models.InstructionTemplate) {
	f.JSON(map[string]interface{}{
		"count":     len(templates),
		"templates": templates,
	})
}

func (f *JSONFormatter) Values(title string, values map[string]any) {
	f.JSON(values)
}

func (f *JSONFormatter) History(key string, changes []models.SettingChange) {
	f.JSON(map[string]interface{}{
		"key":     key,
		"count":   len(changes),
		"changes": changes,
	})
}

func (f *JSONFormatter) Success(msg string) {
	f.JSON(map[string]interface{}{"success": true, "message": msg})
}

func (f *JSONFormatter) Error(err error) {
	f.JSON(map[string]interface{}{"error": true, "message": err.Error()})
}

func (f *JSONFormatter) Info(msg string) {
	f.JSON(map[string]interface{}{"message": msg})
}

func (f *JSONFormatter) KeyValue(key, value string) {
	f.JSON(map[string]string{key: value})
}

func (f *JSONFormatter) Section(title string) {
	// JSON doesn't need section headers
}

func (f *JSONFormatter) JSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, `{"error": true, "message": "JSON marshal error: %s"}`+"\n", err.Error())
		return
	}
	fmt.Println(string(data))
}

// redact hides the value of sensitive settings
func redact(s *models.Setting) *models.Setting {
	if !s.Sensitive {
		return s
	}
	c := s.Clone()
	c.DefaultValue = "********"
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
