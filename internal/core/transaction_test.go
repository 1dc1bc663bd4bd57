package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTransaction = `{"transaction_id": "T-1", "customer_id": 5, "transaction_time": "2024-03-01T10:15:30.123456",
	"delivery_address": {"address": "1 High St", "city": "Leeds", "country": "UK", "postcode": null},
	"purchases": {"total_cost": "30.50", "products": [
		{"sku": 10, "quantity": 2, "price": "10.00", "total": "20.00"},
		{"sku": "11", "quanitity": 1, "price": 10.50, "total": 10.50}
	]}}`

func TestParseTransaction(t *testing.T) {
	tx, err := ParseTransaction([]byte(sampleTransaction))
	require.NoError(t, err)

	assert.Equal(t, "T-1", tx.TransactionID)
	assert.Equal(t, int64(5), tx.CustomerID)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC), tx.TransactionTime)

	require.NotNil(t, tx.DeliveryAddress)
	assert.Equal(t, "Leeds", *tx.DeliveryAddress.City)
	assert.Nil(t, tx.DeliveryAddress.Postcode)

	require.Len(t, tx.Purchases.Products, 2)
	assert.Equal(t, int64(2), tx.Purchases.Products[0].Quantity)
	assert.Equal(t, int64(1), tx.Purchases.Products[1].Quantity, "legacy quanitity spelling")
	assert.Equal(t, int64(11), tx.Purchases.Products[1].SKU)
	assert.True(t, tx.Purchases.TotalCost.Equal(decimal.RequireFromString("30.5")))
	assert.Equal(t, []int64{10, 11}, tx.SKUs())
}

func TestParseTransaction_NoDeliveryAddress(t *testing.T) {
	tx, err := ParseTransaction([]byte(`{"transaction_id": "T", "customer_id": 1, "transaction_time": "2024-01-01",
		"purchases": {"total_cost": 0, "products": []}}`))
	require.NoError(t, err)
	assert.Nil(t, tx.DeliveryAddress)
	assert.Empty(t, tx.Purchases.Products)
}

func TestParseTransaction_Errors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantField string
	}{
		{"missing purchases", `{"transaction_id": "T", "customer_id": 1, "transaction_time": "2024-01-01"}`, "purchases"},
		{"null purchases", `{"transaction_id": "T", "customer_id": 1, "transaction_time": "2024-01-01", "purchases": null}`, "purchases"},
		{"missing time", `{"transaction_id": "T", "customer_id": 1, "purchases": {"total_cost": 0, "products": []}}`, "transaction_time"},
		{"bad time", `{"transaction_id": "T", "customer_id": 1, "transaction_time": "yesterday", "purchases": {"total_cost": 0, "products": []}}`, "transaction_time"},
		{"numeric transaction id", `{"transaction_id": 9, "customer_id": 1, "transaction_time": "2024-01-01", "purchases": {"total_cost": 0, "products": []}}`, "transaction_id"},
		{"address not object", `{"transaction_id": "T", "customer_id": 1, "transaction_time": "2024-01-01", "delivery_address": "here", "purchases": {"total_cost": 0, "products": []}}`, "delivery_address"},
		{"address city number", `{"transaction_id": "T", "customer_id": 1, "transaction_time": "2024-01-01", "delivery_address": {"city": 3}, "purchases": {"total_cost": 0, "products": []}}`, "delivery_address.city"},
		{"total mismatch", `{"transaction_id": "T", "customer_id": 1, "transaction_time": "2024-01-01", "purchases": {"total_cost": "5.00", "products": [{"sku": 1, "quantity": 1, "price": "4.99", "total": "4.99"}]}}`, "total_cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransaction([]byte(tt.raw))
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestISOTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"2024-03-01 10:15:30", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"2024-03-01T10:15:30Z", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"2024-03-01T12:15:30+02:00", time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)},
		{"2024-03-01T10:15:30.1234567", time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC)},
		{"2024-03-01T10:15", time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ISOTime(tt.in).resolve()
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestNewTransaction_TimeSources(t *testing.T) {
	fields := TransactionFields{TransactionID: "T", CustomerID: 1}
	when := time.Date(2023, 12, 31, 23, 59, 59, 999999999, time.UTC)

	tx, err := NewTransaction(fields, StructuredTime(when))
	require.NoError(t, err)
	assert.Equal(t, when.Truncate(time.Microsecond), tx.TransactionTime)

	_, err = NewTransaction(fields, nil)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = NewTransaction(fields, StructuredTime(time.Time{}))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = NewTransaction(TransactionFields{CustomerID: 1}, ISOTime("2024-01-01"))
	assert.Equal(t, KindValidation, KindOf(err), "blank transaction id")
}
