package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txFixture(id string, customer int64, skus ...int64) *Transaction {
	var lines []ProductPurchase
	for _, s := range skus {
		lines = append(lines, ProductPurchase{SKU: s, Quantity: 1, Price: decimal.NewFromInt(1), Total: decimal.NewFromInt(1)})
	}
	return &Transaction{
		TransactionID:   id,
		CustomerID:      customer,
		TransactionTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Purchases:       Purchases{Products: lines, TotalCost: decimal.NewFromInt(int64(len(skus)))},
	}
}

func TestRegistry_DuplicateCustomer(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AdmitCustomer(&Customer{ID: 1, FirstName: "A", LastName: "B", Email: "e"}))

	err := reg.AdmitCustomer(&Customer{ID: 1, FirstName: "X", LastName: "Y", Email: "z"})
	var de DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "1", de.Key)
	assert.Equal(t, 1, reg.CustomerCount(), "store size unchanged")

	c, _ := reg.Customer(1)
	assert.Equal(t, "A", c.FirstName, "first admission wins")
}

func TestRegistry_DuplicateProduct(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AdmitProduct(&Product{SKU: 5, Name: "n", Category: "c", Popularity: 1}))
	assert.Equal(t, KindDuplicateKey, KindOf(reg.AdmitProduct(&Product{SKU: 5, Name: "m", Category: "c", Popularity: 1})))
	assert.Equal(t, 1, reg.ProductCount())
}

func TestRegistry_AdmitTransaction(t *testing.T) {
	newReg := func() *Registry {
		reg := NewRegistry()
		require.NoError(t, reg.AdmitCustomer(&Customer{ID: 1, FirstName: "A", LastName: "B", Email: "e"}))
		require.NoError(t, reg.AdmitProduct(&Product{SKU: 10, Name: "n", Category: "c", Popularity: 1}))
		require.NoError(t, reg.AdmitProduct(&Product{SKU: 11, Name: "n", Category: "c", Popularity: 1}))
		return reg
	}

	tests := []struct {
		name     string
		tx       *Transaction
		wantKind ErrorKind
		wantRef  EntityKind
	}{
		{name: "all references known", tx: txFixture("T1", 1, 10, 11)},
		{name: "no line items", tx: txFixture("T1", 1)},
		{name: "unknown customer", tx: txFixture("T1", 2, 10), wantKind: KindForeignKey, wantRef: EntityCustomer},
		{name: "unknown sku", tx: txFixture("T1", 1, 10, 99), wantKind: KindForeignKey, wantRef: EntityProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newReg()
			err := reg.AdmitTransaction(tt.tx)
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, 1, reg.TransactionCount())
				return
			}
			var fe ForeignKeyError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantRef, fe.Referent)
			assert.Equal(t, 0, reg.TransactionCount(), "rejected transactions are not stored")
			assert.Equal(t, 1, reg.CustomerCount())
			assert.Equal(t, 2, reg.ProductCount())
		})
	}
}

func TestRegistry_DuplicateTransactionCheckedFirst(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AdmitCustomer(&Customer{ID: 1, FirstName: "A", LastName: "B", Email: "e"}))
	require.NoError(t, reg.AdmitTransaction(txFixture("T1", 1)))

	err := reg.AdmitTransaction(txFixture("T1", 42))
	assert.Equal(t, KindDuplicateKey, KindOf(err))
	assert.Equal(t, 1, reg.TransactionCount())
}

func TestRegistry_CopiesPreserveOrder(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []int64{3, 1, 2} {
		require.NoError(t, reg.AdmitCustomer(&Customer{ID: id, FirstName: "A", LastName: "B", Email: "e"}))
	}

	got := reg.Customers()
	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{got[0].ID, got[1].ID, got[2].ID})

	got[0].FirstName = "changed"
	c, _ := reg.Customer(3)
	assert.Equal(t, "A", c.FirstName, "returned rows are copies")
}
