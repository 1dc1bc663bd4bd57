package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReject_CopiesLine(t *testing.T) {
	line := []byte(`{"sku": 1}`)
	r := NewReject("products.json.gz", 3, line, ValidationError{Field: "name", Message: "required field is missing"})
	line[0] = 'X'

	assert.Equal(t, `{"sku": 1}`, string(r.Line))
	assert.Equal(t, KindValidation, r.Kind)
	assert.Equal(t, "VAL003", r.Code)
	assert.Equal(t, "products.json.gz: {\"sku\": 1}", string(r.Bytes()))
}

func TestWriteRejects(t *testing.T) {
	rejects := []Reject{
		NewReject("a", 1, []byte("bad one"), errors.New("x")),
		NewReject("b", 7, []byte("  spaced\ttabs  "), errors.New("y")),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRejects(&buf, rejects))
	assert.Equal(t, "a: bad one\nb:   spaced\ttabs  \n", buf.String())

	buf.Reset()
	require.NoError(t, WriteRejectReasons(&buf, rejects))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "b", got["source"])
	assert.Equal(t, float64(7), got["line"])
	assert.Equal(t, "y", got["reason"])
	assert.NotContains(t, got, "Line")
}

func TestWriteRejects_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRejects(&buf, nil))
	assert.Zero(t, buf.Len())
}
