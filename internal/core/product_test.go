package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProduct(t *testing.T) {
	p, err := ParseProduct([]byte(`{"sku": 1001, "name": "Kettle", "price": "24.99", "category": "kitchen", "popularity": 0.42}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1001), p.SKU)
	assert.Equal(t, "Kettle", p.Name)
	assert.Equal(t, "24.99", p.Price.StringFixed(2))
	assert.Equal(t, "kitchen", p.Category)
	assert.Equal(t, 0.42, p.Popularity)
}

func TestParseProduct_NumericPriceIsExact(t *testing.T) {
	p, err := ParseProduct([]byte(`{"sku": "7", "name": "n", "price": 0.10, "category": "c", "popularity": 1}`))
	require.NoError(t, err)
	assert.Equal(t, "0.1", p.Price.String())
	assert.Equal(t, int64(7), p.SKU)
}

func TestParseProduct_Errors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  ErrorKind
		wantField string
	}{
		{"negative price", `{"sku": 1, "name": "n", "price": "-1.00", "category": "c", "popularity": 0.5}`, KindValidation, "price"},
		{"zero popularity", `{"sku": 1, "name": "n", "price": "1.00", "category": "c", "popularity": 0}`, KindValidation, "popularity"},
		{"negative popularity", `{"sku": 1, "name": "n", "price": "1.00", "category": "c", "popularity": -2}`, KindValidation, "popularity"},
		{"string popularity", `{"sku": 1, "name": "n", "price": "1.00", "category": "c", "popularity": "0.5"}`, KindValidation, "popularity"},
		{"unparseable price", `{"sku": 1, "name": "n", "price": "cheap", "category": "c", "popularity": 0.5}`, KindValidation, "price"},
		{"too many decimals", `{"sku": 1, "name": "n", "price": "1.005", "category": "c", "popularity": 0.5}`, KindValidation, "price"},
		{"price overflow", `{"sku": 1, "name": "n", "price": "10000000000", "category": "c", "popularity": 0.5}`, KindValidation, "price"},
		{"missing category", `{"sku": 1, "name": "n", "price": "1.00", "popularity": 0.5}`, KindValidation, "category"},
		{"empty name", `{"sku": 1, "name": "", "price": "1.00", "category": "c", "popularity": 0.5}`, KindValidation, "name"},
		{"fractional sku", `{"sku": 1.5, "name": "n", "price": "1.00", "category": "c", "popularity": 0.5}`, KindValidation, "sku"},
		{"raw control character", "{\"sku\": 1, \"name\": \"a\tb\", \"price\": \"1.00\", \"category\": \"c\", \"popularity\": 0.5}", KindStructural, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProduct([]byte(tt.raw))
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

func TestParseProduct_ZeroPriceAllowed(t *testing.T) {
	p, err := ParseProduct([]byte(`{"sku": 1, "name": "freebie", "price": "0.00", "category": "c", "popularity": 0.1}`))
	require.NoError(t, err)
	assert.True(t, p.Price.IsZero())
}
