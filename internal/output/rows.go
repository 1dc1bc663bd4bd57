package output

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/retailetl/internal/core"
)

// Row types mirror the core schemas column for column. Money is stored as
// an unscaled int64 under a decimal(12,2) logical type.

type customerRow struct {
	ID          int64   `parquet:"id"`
	FirstName   string  `parquet:"first_name"`
	LastName    string  `parquet:"last_name"`
	Email       string  `parquet:"email"`
	DateOfBirth *string `parquet:"date_of_birth,optional"`
	PhoneNumber *string `parquet:"phone_number,optional"`
	Address     *string `parquet:"address,optional"`
	City        *string `parquet:"city,optional"`
	Country     *string `parquet:"country,optional"`
	Postcode    *string `parquet:"postcode,optional"`
	LastChange  *string `parquet:"last_change,optional"`
	Segment     *string `parquet:"segment,optional"`
}

type productRow struct {
	SKU        int64   `parquet:"sku"`
	Name       string  `parquet:"name"`
	Price      int64   `parquet:"price,decimal(2:12)"`
	Category   string  `parquet:"category"`
	Popularity float64 `parquet:"popularity"`
}

type addressRow struct {
	Address  *string `parquet:"address,optional"`
	City     *string `parquet:"city,optional"`
	Country  *string `parquet:"country,optional"`
	Postcode *string `parquet:"postcode,optional"`
}

type lineRow struct {
	SKU      int64 `parquet:"sku"`
	Quantity int32 `parquet:"quantity"`
	Price    int64 `parquet:"price,decimal(2:12)"`
	Total    int64 `parquet:"total,decimal(2:12)"`
}

type purchasesRow struct {
	TotalCost int64     `parquet:"total_cost,decimal(2:12)"`
	Products  []lineRow `parquet:"products,list"`
}

type transactionRow struct {
	TransactionID   string       `parquet:"transaction_id"`
	CustomerID      int64        `parquet:"customer_id"`
	DeliveryAddress *addressRow  `parquet:"delivery_address,optional"`
	TransactionTime time.Time    `parquet:"transaction_time,timestamp(microsecond)"`
	Purchases       purchasesRow `parquet:"purchases"`
}

// toUnscaled converts a money value to hundredths.
func toUnscaled(d decimal.Decimal) int64 {
	return d.Round(core.MoneyScale).Shift(core.MoneyScale).IntPart()
}

func fromUnscaled(v int64) decimal.Decimal {
	return decimal.New(v, -core.MoneyScale)
}

func customerToRow(c core.Customer) customerRow {
	return customerRow{
		ID:          c.ID,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		DateOfBirth: c.DateOfBirth,
		PhoneNumber: c.PhoneNumber,
		Address:     c.Address,
		City:        c.City,
		Country:     c.Country,
		Postcode:    c.Postcode,
		LastChange:  c.LastChange,
		Segment:     c.Segment,
	}
}

func (r customerRow) entity() (*core.Customer, error) {
	return core.NewCustomer(core.Customer{
		ID:          r.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		DateOfBirth: r.DateOfBirth,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
		City:        r.City,
		Country:     r.Country,
		Postcode:    r.Postcode,
		LastChange:  r.LastChange,
		Segment:     r.Segment,
	})
}

func productToRow(p core.Product) productRow {
	return productRow{
		SKU:        p.SKU,
		Name:       p.Name,
		Price:      toUnscaled(p.Price),
		Category:   p.Category,
		Popularity: p.Popularity,
	}
}

func (r productRow) entity() (*core.Product, error) {
	return core.NewProduct(core.Product{
		SKU:        r.SKU,
		Name:       r.Name,
		Price:      fromUnscaled(r.Price),
		Category:   r.Category,
		Popularity: r.Popularity,
	})
}

func transactionToRow(t core.Transaction) transactionRow {
	row := transactionRow{
		TransactionID:   t.TransactionID,
		CustomerID:      t.CustomerID,
		TransactionTime: t.TransactionTime.UTC(),
		Purchases: purchasesRow{
			TotalCost: toUnscaled(t.Purchases.TotalCost),
			Products:  make([]lineRow, len(t.Purchases.Products)),
		},
	}
	if a := t.DeliveryAddress; a != nil {
		row.DeliveryAddress = &addressRow{Address: a.Address, City: a.City, Country: a.Country, Postcode: a.Postcode}
	}
	for i, p := range t.Purchases.Products {
		row.Purchases.Products[i] = lineRow{
			SKU:      p.SKU,
			Quantity: int32(p.Quantity),
			Price:    toUnscaled(p.Price),
			Total:    toUnscaled(p.Total),
		}
	}
	return row
}

// entity rebuilds the transaction through the structured-time constructor.
func (r transactionRow) entity() (*core.Transaction, error) {
	lines := make([]core.ProductPurchase, len(r.Purchases.Products))
	for i, l := range r.Purchases.Products {
		lines[i] = core.ProductPurchase{
			SKU:      l.SKU,
			Quantity: int64(l.Quantity),
			Price:    fromUnscaled(l.Price),
			Total:    fromUnscaled(l.Total),
		}
	}
	purchases, err := core.NewPurchases(lines, fromUnscaled(r.Purchases.TotalCost))
	if err != nil {
		return nil, err
	}

	var addr *core.DeliveryAddress
	if a := r.DeliveryAddress; a != nil {
		addr = &core.DeliveryAddress{Address: a.Address, City: a.City, Country: a.Country, Postcode: a.Postcode}
	}
	return core.NewTransaction(core.TransactionFields{
		TransactionID:   r.TransactionID,
		CustomerID:      r.CustomerID,
		DeliveryAddress: addr,
		Purchases:       purchases,
	}, core.StructuredTime(r.TransactionTime))
}
