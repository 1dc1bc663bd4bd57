package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomer(t *testing.T) {
	c, err := ParseCustomer([]byte(`{"id": "17", "first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
		"city": "London", "postcode": null, "segment": ""}`))
	require.NoError(t, err)

	assert.Equal(t, int64(17), c.ID)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "Lovelace", c.LastName)
	assert.Equal(t, "ada@example.com", c.Email)
	require.NotNil(t, c.City)
	assert.Equal(t, "London", *c.City)
	assert.Nil(t, c.Postcode, "null maps to absent")
	assert.Nil(t, c.DateOfBirth, "missing maps to absent")
	require.NotNil(t, c.Segment, "empty string is kept distinct from absent")
	assert.Equal(t, "", *c.Segment)
}

func TestParseCustomer_ControlCharacters(t *testing.T) {
	c, err := ParseCustomer([]byte("{\"id\": 1, \"first_name\": \"A\", \"last_name\": \"B\", \"email\": \"a@x.com\", \"address\": \"1 Main St\nFlat 2\"}"))
	require.NoError(t, err)
	require.NotNil(t, c.Address)
	assert.Equal(t, "1 Main St\nFlat 2", *c.Address)
}

func TestParseCustomer_Errors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  ErrorKind
		wantField string
	}{
		{"not json", `id=1`, KindStructural, ""},
		{"array", `[]`, KindStructural, ""},
		{"missing id", `{"first_name": "A", "last_name": "B", "email": "e"}`, KindValidation, "id"},
		{"null email", `{"id": 1, "first_name": "A", "last_name": "B", "email": null}`, KindValidation, "email"},
		{"empty first name", `{"id": 1, "first_name": " ", "last_name": "B", "email": "e"}`, KindValidation, "first_name"},
		{"non-numeric id", `{"id": "abc", "first_name": "A", "last_name": "B", "email": "e"}`, KindValidation, "id"},
		{"id beyond int64", `{"id": 18446744073709551617, "first_name": "A", "last_name": "B", "email": "e"}`, KindValidation, "id"},
		{"numeric email", `{"id": 1, "first_name": "A", "last_name": "B", "email": 5}`, KindValidation, "email"},
		{"object city", `{"id": 1, "first_name": "A", "last_name": "B", "email": "e", "city": {}}`, KindValidation, "city"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCustomer([]byte(tt.raw))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			if tt.wantField != "" {
				var ve ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantField, ve.Field)
			}
		})
	}
}

func TestParseCustomer_PresenceBeforeCoercion(t *testing.T) {
	// The bad id is not reported while a mandatory field is still missing.
	_, err := ParseCustomer([]byte(`{"id": "abc", "first_name": "A", "last_name": "B"}`))
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
	assert.Contains(t, ve.Message, "missing")
}

func TestNewCustomer(t *testing.T) {
	_, err := NewCustomer(Customer{ID: 1, FirstName: "A", LastName: "B"})
	assert.Error(t, err)

	c, err := NewCustomer(Customer{ID: 1, FirstName: "A", LastName: "B", Email: "e"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)
}
