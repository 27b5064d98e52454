package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice is a custom type for storing string slices as JSON in the database
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	bytes, err := columnBytes("StringSlice", value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*s = []string{}
		return nil
	}
	if err := json.Unmarshal(bytes, s); err != nil {
		return fmt.Errorf("StringSlice.Scan: invalid JSON: %w", err)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// JSONMap stores free-form metadata and override maps as a JSON object column
type JSONMap map[string]any

// Scan implements the sql.Scanner interface
func (m *JSONMap) Scan(value interface{}) error {
	bytes, err := columnBytes("JSONMap", value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*m = JSONMap{}
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(bytes, &decoded); err != nil {
		return fmt.Errorf("JSONMap.Scan: invalid JSON: %w", err)
	}
	*m = decoded
	return nil
}

// Value implements the driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	bytes, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Clone returns a deep copy of the map
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return nil
	}
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// StringMap stores template variables as a JSON object of strings
type StringMap map[string]string

// Scan implements the sql.Scanner interface
func (m *StringMap) Scan(value interface{}) error {
	bytes, err := columnBytes("StringMap", value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*m = StringMap{}
		return nil
	}
	var decoded map[string]string
	if err := json.Unmarshal(bytes, &decoded); err != nil {
		return fmt.Errorf("StringMap.Scan: invalid JSON: %w", err)
	}
	*m = decoded
	return nil
}

// Value implements the driver.Valuer interface
func (m StringMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	bytes, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Clone returns a copy of the map
func (m StringMap) Clone() StringMap {
	if m == nil {
		return nil
	}
	out := make(StringMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func columnBytes(typeName string, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%s.Scan: unexpected type %T", typeName, value)
	}
}

// NormalizeValue converts a setting value into the shape it has after a trip
// through the database: numbers become float64, structs become maps.
func NormalizeValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(bytes, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CloneValue deep-copies the JSON container shapes (maps and slices) of a value
func CloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = CloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = CloneValue(inner)
		}
		return out
	default:
		return v
	}
}
