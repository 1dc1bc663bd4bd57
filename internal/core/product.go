package core

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Product is an admitted catalogue entry.
type Product struct {
	SKU        int64
	Name       string
	Price      decimal.Decimal
	Category   string
	Popularity float64
}

// NewProduct enforces the product domain rules: a non-empty name and
// category, a non-negative price and a strictly positive popularity.
func NewProduct(p Product) (*Product, error) {
	if isBlank(p.Name) {
		return nil, ValidationError{Field: "name", Message: "required field is empty"}
	}
	if isBlank(p.Category) {
		return nil, ValidationError{Field: "category", Message: "required field is empty"}
	}
	if p.Price.IsNegative() {
		return nil, ValidationError{Field: "price", Value: p.Price.String(), Message: "price must not be negative"}
	}
	if err := checkMoney("price", p.Price); err != nil {
		return nil, err
	}
	if !(p.Popularity > 0) {
		return nil, ValidationError{
			Field:   "popularity",
			Value:   strconv.FormatFloat(p.Popularity, 'g', -1, 64),
			Message: "popularity must be greater than zero",
		}
	}
	return &p, nil
}

// ParseProduct decodes one product line.
func ParseProduct(raw []byte) (*Product, error) {
	f, err := decodeObject(EntityProduct, raw, false)
	if err != nil {
		return nil, err
	}
	if err := f.requireKeys("sku", "name", "price", "category", "popularity"); err != nil {
		return nil, err
	}

	var p Product
	if p.SKU, err = f.integer("sku"); err != nil {
		return nil, err
	}
	if p.Name, err = f.text("name"); err != nil {
		return nil, err
	}
	if p.Price, err = f.decimal("price"); err != nil {
		return nil, err
	}
	if p.Category, err = f.text("category"); err != nil {
		return nil, err
	}
	if p.Popularity, err = f.float("popularity"); err != nil {
		return nil, err
	}
	return NewProduct(p)
}
