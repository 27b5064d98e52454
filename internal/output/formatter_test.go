package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"swarmsettings/internal/models"
)

func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func testSetting() *models.Setting {
	return &models.Setting{
		Key:          "temperature",
		Type:         models.TypeSlider,
		Label:        "Temperature",
		DefaultValue: 0.7,
		Validation: &models.SettingValidation{
			MinValue: models.Float(0),
			MaxValue: models.Float(1),
		},
		Version:   models.DefaultVersion,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}
}

func TestNewFormatter(t *testing.T) {
	textFormatter := New(false)
	if _, ok := textFormatter.(*TextFormatter); !ok {
		t.Error("New(false) should return TextFormatter")
	}

	jsonFormatter := New(true)
	if _, ok := jsonFormatter.(*JSONFormatter); !ok {
		t.Error("New(true) should return JSONFormatter")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, "null"},
		{"gpt-4", "gpt-4"},
		{0.7, "0.7"},
		{float64(1000), "1000"},
		{true, "true"},
		{[]any{"search", "code"}, `["search","code"]`},
		{map[string]any{"a": 1.0}, `{"a":1}`},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.input); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTextFormatterSetting(t *testing.T) {
	f := &TextFormatter{}

	output := captureOutput(func() {
		f.Setting(testSetting())
	})

	if !strings.Contains(output, "temperature") {
		t.Error("output should contain setting key")
	}
	if !strings.Contains(output, "0.7") {
		t.Error("output should contain value")
	}
	if !strings.Contains(output, "min=0 max=1") {
		t.Errorf("output should contain rules, got %q", output)
	}
	if !strings.Contains(output, "2026-01-02 03:04") {
		t.Error("output should contain update time")
	}
}

func TestTextFormatterHidesSensitiveValues(t *testing.T) {
	f := &TextFormatter{}
	s := &models.Setting{Key: "api_key", Type: models.TypeString, DefaultValue: "sk-secret", Sensitive: true}

	output := captureOutput(func() {
		f.SettingList([]*models.Setting{s})
	})

	if strings.Contains(output, "sk-secret") {
		t.Error("sensitive value should not be printed")
	}
	if !strings.Contains(output, "api_key") {
		t.Error("output should contain setting key")
	}
}

func TestTextFormatterProfileList(t *testing.T) {
	f := &TextFormatter{}
	profiles := []*models.SettingsProfile{
		{ID: "prof-1", Name: "Creative", IsDefault: true, Settings: models.JSONMap{"temperature": 0.9}},
		{ID: "prof-2", Name: "Precise"},
	}

	output := captureOutput(func() {
		f.ProfileList(profiles)
	})

	if !strings.Contains(output, "[prof-1] Creative - 1 overrides (default)") {
		t.Errorf("output = %q", output)
	}
	if strings.Count(output, "(default)") != 1 {
		t.Error("only the default profile should be marked")
	}
}

func TestTextFormatterTemplate(t *testing.T) {
	f := &TextFormatter{}
	tpl := &models.InstructionTemplate{
		ID:        "t1",
		Name:      "Greeting",
		Content:   "Hi {who}",
		Variables: models.StringMap{"who": "there"},
		Tags:      models.StringSlice{"system"},
	}

	output := captureOutput(func() {
		f.Template(tpl)
	})

	for _, want := range []string{"t1", "Greeting", `who = "there"`, "Hi {who}", "[system]"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got %q", want, output)
		}
	}
}

func TestTextFormatterValuesSorted(t *testing.T) {
	f := &TextFormatter{}

	output := captureOutput(func() {
		f.Values("Resolved", map[string]any{"model": "gpt-4", "max_tokens": 1000.0})
	})

	maxIdx := strings.Index(output, "max_tokens = 1000")
	modelIdx := strings.Index(output, "model = gpt-4")
	if maxIdx < 0 || modelIdx < 0 || maxIdx > modelIdx {
		t.Errorf("values should be listed in key order, got %q", output)
	}
}

func TestTextFormatterHistory(t *testing.T) {
	f := &TextFormatter{}

	output := captureOutput(func() {
		f.History("temperature", nil)
	})
	if !strings.Contains(output, "No changes recorded for temperature") {
		t.Errorf("output = %q", output)
	}

	output = captureOutput(func() {
		f.History("temperature", []models.SettingChange{
			{SettingKey: "temperature", OldValue: "0.7", NewValue: "0.2"},
		})
	})
	if !strings.Contains(output, "0.7 -> 0.2") {
		t.Errorf("output = %q", output)
	}
}

func TestTextFormatterSuccess(t *testing.T) {
	f := &TextFormatter{}

	output := captureOutput(func() {
		f.Success("Operation completed")
	})

	if !strings.Contains(output, "Operation completed") {
		t.Errorf("output = %q, want to contain 'Operation completed'", output)
	}
}

func TestJSONFormatterSetting(t *testing.T) {
	f := &JSONFormatter{}

	output := captureOutput(func() {
		f.Setting(testSetting())
	})

	// Should be valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if result["key"] != "temperature" {
		t.Errorf("key = %v, want temperature", result["key"])
	}
	if result["default_value"] != 0.7 {
		t.Errorf("default_value = %v, want 0.7", result["default_value"])
	}
	validation, ok := result["validation"].(map[string]interface{})
	if !ok || validation["max_value"] != 1.0 {
		t.Errorf("validation = %v", result["validation"])
	}
}

func TestJSONFormatterSettingListRedacts(t *testing.T) {
	f := &JSONFormatter{}
	secret := &models.Setting{Key: "api_key", Type: models.TypeString, DefaultValue: "sk-secret", Sensitive: true}

	output := captureOutput(func() {
		f.SettingList([]*models.Setting{testSetting(), secret})
	})

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if result["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", result["count"])
	}
	if strings.Contains(output, "sk-secret") {
		t.Error("sensitive value should not be printed")
	}
	if secret.DefaultValue != "sk-secret" {
		t.Error("redaction must not modify the caller's setting")
	}
}

func TestJSONFormatterTemplateList(t *testing.T) {
	f := &JSONFormatter{}
	templates := []*models.InstructionTemplate{
		{ID: "t1", Name: "One"},
		{ID: "t2", Name: "Two"},
	}

	output := captureOutput(func() {
		f.TemplateList(templates)
	})

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	list, ok := result["templates"].([]interface{})
	if !ok {
		t.Fatal("templates should be an array")
	}
	if len(list) != 2 {
		t.Errorf("templates length = %d, want 2", len(list))
	}
}

func TestJSONFormatterSuccess(t *testing.T) {
	f := &JSONFormatter{}

	output := captureOutput(func() {
		f.Success("Done!")
	})

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if result["success"] != true {
		t.Errorf("success = %v, want true", result["success"])
	}
	if result["message"] != "Done!" {
		t.Errorf("message = %v, want 'Done!'", result["message"])
	}
}

func TestJSONFormatterError(t *testing.T) {
	f := &JSONFormatter{}

	output := captureOutput(func() {
		f.Error(io.EOF)
	})

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if result["error"] != true {
		t.Errorf("error = %v, want true", result["error"])
	}
	if result["message"] != "EOF" {
		t.Errorf("message = %v, want 'EOF'", result["message"])
	}
}
