package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MoneyScale and MoneyPrecision bound every currency amount so it fits the
// decimal(12,2) output columns.
const (
	MoneyScale     = 2
	MoneyPrecision = 12
)

var maxMoney = decimal.New(1, MoneyPrecision-MoneyScale)

// ProductPurchase is one line item of a transaction.
type ProductPurchase struct {
	SKU      int64
	Quantity int64
	Price    decimal.Decimal
	Total    decimal.Decimal
}

// Purchases is the line-item aggregate embedded in a Transaction.
type Purchases struct {
	Products  []ProductPurchase
	TotalCost decimal.Decimal
}

// NewPurchases checks that totalCost equals the exact sum of the line totals.
func NewPurchases(products []ProductPurchase, totalCost decimal.Decimal) (Purchases, error) {
	sum := decimal.Zero
	for _, p := range products {
		sum = sum.Add(p.Total)
	}
	if !sum.Equal(totalCost) {
		return Purchases{}, ValidationError{
			Field:   "total_cost",
			Value:   totalCost.String(),
			Message: fmt.Sprintf("total mismatch: line totals sum to %s", sum.String()),
		}
	}
	return Purchases{Products: products, TotalCost: totalCost}, nil
}

// ParsePurchases builds a Purchases aggregate from the decoded "purchases"
// value of a transaction.
func ParsePurchases(v any) (Purchases, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Purchases{}, ValidationError{Field: "purchases", Value: renderValue(v), Message: "must be an object"}
	}
	f := fields(m)
	if err := f.requireKeys("products", "total_cost"); err != nil {
		return Purchases{}, prefixField("purchases", err)
	}

	items, ok := f["products"].([]any)
	if !ok {
		return Purchases{}, ValidationError{Field: "purchases.products", Value: renderValue(f["products"]), Message: "must be a list"}
	}

	products := make([]ProductPurchase, 0, len(items))
	for i, item := range items {
		p, err := parseProductPurchase(item)
		if err != nil {
			return Purchases{}, prefixField(fmt.Sprintf("purchases.products[%d]", i), err)
		}
		products = append(products, p)
	}

	totalCost, err := f.decimal("total_cost")
	if err != nil {
		return Purchases{}, prefixField("purchases", err)
	}
	if err := checkMoney("purchases.total_cost", totalCost); err != nil {
		return Purchases{}, err
	}
	return NewPurchases(products, totalCost)
}

func parseProductPurchase(v any) (ProductPurchase, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return ProductPurchase{}, ValidationError{Value: renderValue(v), Message: "must be an object"}
	}
	f := fields(m)

	// Legacy feeds spell quantity as "quanitity"; the correct spelling wins
	// when both are present.
	qtyKey := "quantity"
	if !f.present(qtyKey) && f.present("quanitity") {
		qtyKey = "quanitity"
	}
	if err := f.requireKeys("sku", qtyKey, "price", "total"); err != nil {
		return ProductPurchase{}, err
	}

	var (
		p   ProductPurchase
		err error
	)
	if p.SKU, err = f.integer("sku"); err != nil {
		return ProductPurchase{}, err
	}
	if p.Quantity, err = f.integer(qtyKey); err != nil {
		return ProductPurchase{}, err
	}
	if p.Quantity < math.MinInt32 || p.Quantity > math.MaxInt32 {
		return ProductPurchase{}, ValidationError{Field: qtyKey, Value: fmt.Sprint(p.Quantity), Message: "quantity out of range"}
	}
	if p.Price, err = f.decimal("price"); err != nil {
		return ProductPurchase{}, err
	}
	if p.Total, err = f.decimal("total"); err != nil {
		return ProductPurchase{}, err
	}
	if err := checkMoney("price", p.Price); err != nil {
		return ProductPurchase{}, err
	}
	if err := checkMoney("total", p.Total); err != nil {
		return ProductPurchase{}, err
	}
	return p, nil
}

// checkMoney rejects amounts that cannot be stored as decimal(12,2) without
// losing digits.
func checkMoney(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(MoneyScale)) {
		return ValidationError{Field: field, Value: d.String(), Message: "invalid number: more than 2 decimal places"}
	}
	if !d.Abs().LessThan(maxMoney) {
		return ValidationError{Field: field, Value: d.String(), Message: "invalid number: exceeds 10 integer digits"}
	}
	return nil
}

// prefixField qualifies the field of a nested ValidationError with its parent
// path.
func prefixField(prefix string, err error) error {
	ve, ok := err.(ValidationError)
	if !ok {
		return err
	}
	if ve.Field == "" {
		ve.Field = prefix
	} else {
		ve.Field = prefix + "." + ve.Field
	}
	return ve
}
