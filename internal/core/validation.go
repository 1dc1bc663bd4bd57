package core

// validation.go provides field-level extraction for decoded JSON records.
//
// Checks run in a fixed order for every entity:
//  1. Presence: every mandatory key exists and is not null
//  2. Coercion: each value converts to its target type
//  3. Domain: constructor checks such as price >= 0
//
// Every failure is reported as a ValidationError naming the field and the
// offending value so a rejected line can be explained without re-parsing it.

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // JSON key
	Value   string // The invalid value, rendered as text
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// fields is a decoded JSON object with typed accessors.
type fields map[string]any

// present reports whether key exists with a non-null value.
func (f fields) present(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// requireKeys fails on the first mandatory key that is absent or null.
func (f fields) requireKeys(keys ...string) error {
	for _, k := range keys {
		if !f.present(k) {
			return ValidationError{Field: k, Message: "required field is missing"}
		}
	}
	return nil
}

func (f fields) text(key string) (string, error) {
	s, ok := f[key].(string)
	if !ok {
		return "", ValidationError{Field: key, Value: renderValue(f[key]), Message: "must be a string"}
	}
	return s, nil
}

// optionalText returns nil for an absent or null key. An empty string is
// kept as an empty string.
func (f fields) optionalText(key string) (*string, error) {
	if !f.present(key) {
		return nil, nil
	}
	s, err := f.text(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (f fields) integer(key string) (int64, error) {
	i, err := CoerceInt(f[key])
	if err != nil {
		return 0, ValidationError{Field: key, Value: renderValue(f[key]), Message: err.Error()}
	}
	return i, nil
}

func (f fields) optionalInteger(key string) (*int64, error) {
	if !f.present(key) {
		return nil, nil
	}
	i, err := f.integer(key)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (f fields) decimal(key string) (decimal.Decimal, error) {
	d, err := CoerceDecimal(f[key])
	if err != nil {
		return decimal.Zero, ValidationError{Field: key, Value: renderValue(f[key]), Message: err.Error()}
	}
	return d, nil
}

func (f fields) float(key string) (float64, error) {
	v, err := CoerceFloat(f[key])
	if err != nil {
		return 0, ValidationError{Field: key, Value: renderValue(f[key]), Message: err.Error()}
	}
	return v, nil
}

// object extracts a nested JSON object.
func (f fields) object(key string) (fields, error) {
	m, ok := f[key].(map[string]any)
	if !ok {
		return nil, ValidationError{Field: key, Value: renderValue(f[key]), Message: "must be an object"}
	}
	return fields(m), nil
}

// renderValue formats a decoded JSON value for error messages, truncating
// long values.
func renderValue(v any) string {
	const maxLen = 64
	var s string
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		s = x
	case map[string]any:
		return "{...}"
	case []any:
		return fmt.Sprintf("[%d items]", len(x))
	default:
		s = fmt.Sprint(x)
	}
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
