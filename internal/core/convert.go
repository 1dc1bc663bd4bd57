package core

// convert.go turns loosely-typed JSON values into the engine's types.
//
// Feed producers are inconsistent about representation:
//   - Identifiers arrive as numbers or as numeric strings ("42", " 42 ")
//   - Currency amounts arrive as numbers or strings and must stay exact
//   - Customer feeds may carry raw control characters inside strings
//
// Decoding always uses json.Number so no numeric value passes through
// float64 before it reaches an exact decimal.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	errNotObject   = errors.New("expected a JSON object")
	errTrailing    = errors.New("unexpected data after JSON object")
	errInvalidUTF8 = errors.New("invalid UTF-8")
)

// decodeObject parses raw as a single JSON object. With lenient set, raw
// control characters inside string literals are accepted.
func decodeObject(entity EntityKind, raw []byte, lenient bool) (fields, error) {
	if !utf8.Valid(raw) {
		return nil, StructuralError{Entity: entity, Err: errInvalidUTF8}
	}
	if lenient {
		raw = escapeControlChars(raw)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, StructuralError{Entity: entity, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, StructuralError{Entity: entity, Err: errTrailing}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, StructuralError{Entity: entity, Err: errNotObject}
	}
	return fields(obj), nil
}

// escapeControlChars rewrites bytes below 0x20 that sit inside JSON string
// literals as \u escapes. Bytes outside strings are left alone so the
// decoder still rejects them.
func escapeControlChars(raw []byte) []byte {
	var (
		out      []byte
		inString bool
		escaped  bool
	)
	for i, b := range raw {
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case inString && b < 0x20:
			if out == nil {
				out = make([]byte, 0, len(raw)+16)
				out = append(out, raw[:i]...)
			}
			out = append(out, fmt.Sprintf(`\u%04x`, b)...)
			continue
		}
		if out != nil {
			out = append(out, b)
		}
	}
	if out == nil {
		return raw
	}
	return out
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// CoerceInt converts a JSON number or numeric string to int64. Numbers with
// an integral value in exponent or fractional form ("1e3", 5.0) are accepted.
func CoerceInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			return i, nil
		}
		d, err := decimal.NewFromString(x.String())
		if err != nil || !d.IsInteger() {
			return 0, fmt.Errorf("invalid integer %s", x)
		}
		if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
			return 0, fmt.Errorf("invalid integer %s: out of range", x)
		}
		return d.IntPart(), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", x)
		}
		return i, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("invalid integer: unsupported type %T", v)
	}
}

// CoerceDecimal converts a JSON number or numeric string to an exact decimal.
func CoerceDecimal(v any) (decimal.Decimal, error) {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	case decimal.Decimal:
		return x, nil
	default:
		return decimal.Zero, fmt.Errorf("invalid number: unsupported type %T", v)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

// CoerceFloat accepts a native JSON number only.
func CoerceFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %s", x)
		}
		return f, nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("invalid number: unsupported type %T", v)
	}
}
