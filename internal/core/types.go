// Package core is the ingestion, validation and integrity engine.
// This package has no transport or storage dependencies and can be used by any frontend.
package core

import (
	"fmt"
	"strings"
)

// EntityKind identifies one of the four record types a batch can carry.
type EntityKind string

const (
	EntityCustomer       EntityKind = "customer"
	EntityProduct        EntityKind = "product"
	EntityTransaction    EntityKind = "transaction"
	EntityErasureRequest EntityKind = "erasure_request"
)

// EntityKinds lists every kind in load priority order.
var EntityKinds = []EntityKind{EntityCustomer, EntityProduct, EntityTransaction, EntityErasureRequest}

// Priority returns the load order of k within one time partition.
// Customers and products must be admitted before the transactions that
// reference them, and erasures run last against everything loaded.
func (k EntityKind) Priority() int {
	for i, kk := range EntityKinds {
		if kk == k {
			return i
		}
	}
	return len(EntityKinds)
}

// BatchFileName returns the canonical gzip batch name for k.
func (k EntityKind) BatchFileName() string {
	switch k {
	case EntityCustomer:
		return "customers.json.gz"
	case EntityProduct:
		return "products.json.gz"
	case EntityTransaction:
		return "transactions.json.gz"
	case EntityErasureRequest:
		return "erasure-requests.json.gz"
	}
	return ""
}

// ParseEntityKind accepts a kind name in singular, plural or hyphenated
// form ("customer", "customers", "erasure-requests").
func ParseEntityKind(s string) (EntityKind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range EntityKinds {
		if norm == string(k) || norm == string(k)+"s" {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}
