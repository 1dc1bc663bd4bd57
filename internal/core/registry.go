package core

import (
	"strconv"
)

// index is an append-only ordered collection with a key to position map.
type index[K comparable, V any] struct {
	rows []V
	pos  map[K]int
}

func newIndex[K comparable, V any]() index[K, V] {
	return index[K, V]{pos: make(map[K]int)}
}

func (ix *index[K, V]) has(k K) bool {
	_, ok := ix.pos[k]
	return ok
}

func (ix *index[K, V]) get(k K) (V, bool) {
	i, ok := ix.pos[k]
	if !ok {
		var zero V
		return zero, false
	}
	return ix.rows[i], true
}

func (ix *index[K, V]) add(k K, v V) {
	ix.pos[k] = len(ix.rows)
	ix.rows = append(ix.rows, v)
}

// Registry owns the accepted customers, products and transactions of one
// session and enforces key uniqueness and referential integrity on
// admission. It is not safe for concurrent use; Session serialises access.
type Registry struct {
	customers    index[int64, *Customer]
	products     index[int64, *Product]
	transactions index[string, *Transaction]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		customers:    newIndex[int64, *Customer](),
		products:     newIndex[int64, *Product](),
		transactions: newIndex[string, *Transaction](),
	}
}

// AdmitCustomer appends c unless its id is already registered.
func (r *Registry) AdmitCustomer(c *Customer) error {
	if r.customers.has(c.ID) {
		return DuplicateKeyError{Entity: EntityCustomer, Field: "id", Key: strconv.FormatInt(c.ID, 10)}
	}
	r.customers.add(c.ID, c)
	return nil
}

// AdmitProduct appends p unless its sku is already registered.
func (r *Registry) AdmitProduct(p *Product) error {
	if r.products.has(p.SKU) {
		return DuplicateKeyError{Entity: EntityProduct, Field: "sku", Key: strconv.FormatInt(p.SKU, 10)}
	}
	r.products.add(p.SKU, p)
	return nil
}

// AdmitTransaction appends t after checking its id is new, its customer is
// registered and every purchased sku is registered. Nothing is modified
// unless all checks pass.
func (r *Registry) AdmitTransaction(t *Transaction) error {
	if r.transactions.has(t.TransactionID) {
		return DuplicateKeyError{Entity: EntityTransaction, Field: "transaction_id", Key: t.TransactionID}
	}
	if !r.customers.has(t.CustomerID) {
		return ForeignKeyError{
			TransactionID: t.TransactionID,
			Referent:      EntityCustomer,
			Field:         "customer_id",
			Key:           strconv.FormatInt(t.CustomerID, 10),
		}
	}
	for _, sku := range t.SKUs() {
		if !r.products.has(sku) {
			return ForeignKeyError{
				TransactionID: t.TransactionID,
				Referent:      EntityProduct,
				Field:         "sku",
				Key:           strconv.FormatInt(sku, 10),
			}
		}
	}
	r.transactions.add(t.TransactionID, t)
	return nil
}

// Customer returns the customer registered under id.
func (r *Registry) Customer(id int64) (*Customer, bool) { return r.customers.get(id) }

// Product returns the product registered under sku.
func (r *Registry) Product(sku int64) (*Product, bool) { return r.products.get(sku) }

// Transaction returns the transaction registered under id.
func (r *Registry) Transaction(id string) (*Transaction, bool) { return r.transactions.get(id) }

// CustomerCount returns the number of admitted customers.
func (r *Registry) CustomerCount() int { return len(r.customers.rows) }

// ProductCount returns the number of admitted products.
func (r *Registry) ProductCount() int { return len(r.products.rows) }

// TransactionCount returns the number of admitted transactions.
func (r *Registry) TransactionCount() int { return len(r.transactions.rows) }

// Customers returns copies of all customers in admission order.
func (r *Registry) Customers() []Customer {
	out := make([]Customer, len(r.customers.rows))
	for i, c := range r.customers.rows {
		out[i] = *c
	}
	return out
}

// Products returns copies of all products in admission order.
func (r *Registry) Products() []Product {
	out := make([]Product, len(r.products.rows))
	for i, p := range r.products.rows {
		out[i] = *p
	}
	return out
}

// Transactions returns copies of all transactions in admission order.
func (r *Registry) Transactions() []Transaction {
	out := make([]Transaction, len(r.transactions.rows))
	for i, t := range r.transactions.rows {
		out[i] = *t
	}
	return out
}
