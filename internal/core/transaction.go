package core

import (
	"strings"
	"time"
)

// DeliveryAddress is the optional shipping destination of a transaction.
type DeliveryAddress struct {
	Address  *string
	City     *string
	Country  *string
	Postcode *string
}

// Transaction is an admitted sale.
type Transaction struct {
	TransactionID   string
	CustomerID      int64
	TransactionTime time.Time
	DeliveryAddress *DeliveryAddress
	Purchases       Purchases
}

// TimeSource is the representation transaction_time was supplied in.
// Exactly one of ISOTime or StructuredTime is passed to NewTransaction.
type TimeSource interface {
	resolve() (time.Time, error)
}

// ISOTime is an ISO-8601 timestamp as found in JSON feeds. Values without a
// zone are taken as UTC.
type ISOTime string

// StructuredTime is an already-parsed timestamp, as read back from
// columnar output.
type StructuredTime time.Time

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func (s ISOTime) resolve() (time.Time, error) {
	v := strings.TrimSpace(string(s))
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, ValidationError{Field: "transaction_time", Value: string(s), Message: "invalid date: expected ISO-8601 timestamp"}
}

func (s StructuredTime) resolve() (time.Time, error) {
	t := time.Time(s)
	if t.IsZero() {
		return time.Time{}, ValidationError{Field: "transaction_time", Message: "required field is missing"}
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

// TransactionFields carries everything except the timestamp.
type TransactionFields struct {
	TransactionID   string
	CustomerID      int64
	DeliveryAddress *DeliveryAddress
	Purchases       Purchases
}

// NewTransaction resolves when and returns the transaction.
func NewTransaction(f TransactionFields, when TimeSource) (*Transaction, error) {
	if isBlank(f.TransactionID) {
		return nil, ValidationError{Field: "transaction_id", Message: "required field is empty"}
	}
	if when == nil {
		return nil, ValidationError{Field: "transaction_time", Message: "required field is missing"}
	}
	t, err := when.resolve()
	if err != nil {
		return nil, err
	}
	return &Transaction{
		TransactionID:   f.TransactionID,
		CustomerID:      f.CustomerID,
		TransactionTime: t,
		DeliveryAddress: f.DeliveryAddress,
		Purchases:       f.Purchases,
	}, nil
}

// ParseTransaction decodes one transaction line.
func ParseTransaction(raw []byte) (*Transaction, error) {
	f, err := decodeObject(EntityTransaction, raw, false)
	if err != nil {
		return nil, err
	}
	if err := f.requireKeys("transaction_id", "customer_id", "transaction_time", "purchases"); err != nil {
		return nil, err
	}

	var tf TransactionFields
	if tf.TransactionID, err = f.text("transaction_id"); err != nil {
		return nil, err
	}
	if tf.CustomerID, err = f.integer("customer_id"); err != nil {
		return nil, err
	}
	ts, err := f.text("transaction_time")
	if err != nil {
		return nil, err
	}
	if tf.DeliveryAddress, err = parseDeliveryAddress(f); err != nil {
		return nil, err
	}
	if tf.Purchases, err = ParsePurchases(f["purchases"]); err != nil {
		return nil, err
	}
	return NewTransaction(tf, ISOTime(ts))
}

func parseDeliveryAddress(f fields) (*DeliveryAddress, error) {
	if !f.present("delivery_address") {
		return nil, nil
	}
	obj, err := f.object("delivery_address")
	if err != nil {
		return nil, err
	}

	var a DeliveryAddress
	for _, part := range []struct {
		key string
		dst **string
	}{
		{"address", &a.Address},
		{"city", &a.City},
		{"country", &a.Country},
		{"postcode", &a.Postcode},
	} {
		if *part.dst, err = obj.optionalText(part.key); err != nil {
			return nil, prefixField("delivery_address", err)
		}
	}
	return &a, nil
}

// SKUs returns the distinct product SKUs referenced by t in first-seen order.
func (t *Transaction) SKUs() []int64 {
	seen := make(map[int64]struct{}, len(t.Purchases.Products))
	out := make([]int64, 0, len(t.Purchases.Products))
	for _, p := range t.Purchases.Products {
		if _, ok := seen[p.SKU]; ok {
			continue
		}
		seen[p.SKU] = struct{}{}
		out = append(out, p.SKU)
	}
	return out
}
