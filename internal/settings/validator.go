package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"swarmsettings/internal/models"
)

// Validation failure messages
const (
	MsgRequired        = "value is required"
	MsgNotNumber       = "value must be a number"
	MsgNotString       = "value must be a string"
	MsgPatternMismatch = "value does not match pattern"
	MsgNotJSON         = "value must be a JSON object or array"
	MsgInvalidJSON     = "invalid JSON format"
	MsgNotDateTime     = "value must be a date/time"
	MsgInvalidDate     = "invalid date/time format"
)

// Value kind names accepted in SettingValidation.AllowedTypes
const (
	KindString  = "string"
	KindNumber  = "number"
	KindBoolean = "boolean"
	KindObject  = "object"
	KindArray   = "array"
	KindNull    = "null"
)

// Validate decides whether value is acceptable for setting. It never mutates
// its inputs and is safe for concurrent use.
//
// Pattern rules are anchored at the start of the value but do not have to
// consume all of it.
func Validate(setting *models.Setting, value any) (bool, string) {
	rules := setting.Validation
	if rules == nil {
		return true, ""
	}

	ok, msg := validate(setting.Type, rules, value)
	if !ok && rules.ErrorMessage != "" {
		msg = rules.ErrorMessage
	}
	return ok, msg
}

func validate(t models.SettingType, rules *models.SettingValidation, value any) (bool, string) {
	if value == nil {
		if rules.Required {
			return false, MsgRequired
		}
		return true, ""
	}

	if len(rules.AllowedTypes) > 0 {
		kind := ValueKind(value)
		if !containsString(rules.AllowedTypes, kind) {
			return false, fmt.Sprintf("value of type %s is not allowed (allowed: %s)",
				kind, strings.Join(rules.AllowedTypes, ", "))
		}
	}

	switch t {
	case models.TypeNumber, models.TypeSlider:
		return validateNumber(value, rules)
	case models.TypeString, models.TypeMarkdown, models.TypeCode, models.TypeRichText:
		return validateString(value, rules)
	case models.TypeJSON:
		return validateJSON(value)
	case models.TypeDateTime:
		return validateDateTime(value)
	default:
		return validateCustom(value, rules)
	}
}

func validateNumber(value any, rules *models.SettingValidation) (bool, string) {
	n, ok := AsFloat(value)
	if !ok {
		return false, MsgNotNumber
	}
	if rules.MinValue != nil && n < *rules.MinValue {
		return false, fmt.Sprintf("value must be at least %s", formatBound(*rules.MinValue))
	}
	if rules.MaxValue != nil && n > *rules.MaxValue {
		return false, fmt.Sprintf("value must be at most %s", formatBound(*rules.MaxValue))
	}
	return true, ""
}

func validateString(value any, rules *models.SettingValidation) (bool, string) {
	s, ok := value.(string)
	if !ok {
		return false, MsgNotString
	}
	length := utf8.RuneCountInString(s)
	if rules.MinLength != nil && length < *rules.MinLength {
		return false, fmt.Sprintf("length must be at least %d", *rules.MinLength)
	}
	if rules.MaxLength != nil && length > *rules.MaxLength {
		return false, fmt.Sprintf("length must be at most %d", *rules.MaxLength)
	}
	if rules.Pattern != "" {
		re, err := compilePattern(rules.Pattern)
		if err != nil {
			return false, fmt.Sprintf("invalid pattern %q: %v", rules.Pattern, err)
		}
		if !re.MatchString(s) {
			return false, MsgPatternMismatch
		}
	}
	return true, ""
}

func validateJSON(value any) (bool, string) {
	if s, ok := value.(string); ok {
		if !json.Valid([]byte(s)) {
			return false, MsgInvalidJSON
		}
		return true, ""
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true, ""
	}
	return false, MsgNotJSON
}

func validateDateTime(value any) (bool, string) {
	switch v := value.(type) {
	case time.Time, *time.Time:
		return true, ""
	case string:
		if _, err := ParseISOTime(v); err != nil {
			return false, MsgInvalidDate
		}
		return true, ""
	}
	return false, MsgNotDateTime
}

func validateCustom(value any, rules *models.SettingValidation) (ok bool, msg string) {
	if rules.Custom == nil {
		return true, ""
	}
	defer func() {
		if r := recover(); r != nil {
			ok, msg = false, fmt.Sprint(r)
		}
	}()
	passed, err := rules.Custom(value)
	if err != nil {
		return false, err.Error()
	}
	return passed, ""
}

// isoLayouts are the ISO-8601 shapes accepted for datetime settings: extended
// and basic formats, offsets with or without a colon
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02",
	"20060102T150405.999999999Z07:00",
	"20060102T150405.999999999Z0700",
	"20060102T150405.999999999",
	"20060102T1504",
	"20060102",
}

// ParseISOTime parses an ISO-8601 date or date-time string
func ParseISOTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// AsFloat converts numeric values to float64. Booleans are not numbers.
func AsFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f, !math.IsNaN(f)
	}
	return 0, false
}

// ValueKind names the JSON kind of a value: string, number, boolean, object, array or null
func ValueKind(value any) string {
	if value == nil {
		return KindNull
	}
	if _, ok := AsFloat(value); ok {
		return KindNumber
	}
	switch value.(type) {
	case string:
		return KindString
	case bool:
		return KindBoolean
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Struct:
		return KindObject
	case reflect.Slice, reflect.Array:
		return KindArray
	}
	return fmt.Sprintf("%T", value)
}

// compilePattern anchors pattern at the start of the input
func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)`)
}

func formatBound(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%g", v)
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
