package core

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Pseudonymizer maps a personal value to its replacement. It must be
// deterministic.
type Pseudonymizer func(string) string

// SHA256Hex is the default Pseudonymizer: the lowercase hex SHA-256 digest
// of the UTF-8 value. It is a pseudonym, not an anonymisation; short values
// remain open to dictionary attack.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ErasureRequest asks for the personal fields of matching customers to be
// pseudonymized. At least one of CustomerID or Email is set.
type ErasureRequest struct {
	CustomerID *int64  `json:"customer-id,omitempty"`
	Email      *string `json:"email,omitempty"`
}

// NewErasureRequest requires at least one identifier.
func NewErasureRequest(r ErasureRequest) (*ErasureRequest, error) {
	if r.CustomerID == nil && r.Email == nil {
		return nil, ValidationError{Field: "customer-id", Message: "required field is missing: customer-id or email must be set"}
	}
	return &r, nil
}

// ParseErasureRequest decodes one erasure line. The identifier key is
// "customer-id" in production feeds; "customer_id" is accepted as well.
func ParseErasureRequest(raw []byte) (*ErasureRequest, error) {
	f, err := decodeObject(EntityErasureRequest, raw, false)
	if err != nil {
		return nil, err
	}

	var r ErasureRequest
	idKey := "customer-id"
	if !f.present(idKey) {
		idKey = "customer_id"
	}
	if r.CustomerID, err = f.optionalInteger(idKey); err != nil {
		return nil, err
	}
	if r.Email, err = f.optionalText("email"); err != nil {
		return nil, err
	}
	return NewErasureRequest(r)
}

// Matches reports whether c is targeted by r. Either identifier alone is
// sufficient.
func (r ErasureRequest) Matches(c *Customer) bool {
	if r.CustomerID != nil && c.ID == *r.CustomerID {
		return true
	}
	return r.Email != nil && c.Email == *r.Email
}

// ErasureRecord is the audit entry kept for every applied request.
type ErasureRecord struct {
	Request  ErasureRequest `json:"request"`
	Source   string         `json:"source"`
	Affected int            `json:"affected"`

	// CustomersSeen is the customer count when the request last ran.
	// Customers at later positions have not been checked against it.
	CustomersSeen int       `json:"customers_seen"`
	AppliedAt     time.Time `json:"applied_at"`
}

// Erase pseudonymizes every registered customer matched by req and returns
// how many were changed. Customers stay in place and remain addressable by
// id. Re-applying a request hashes the digests again.
func (r *Registry) Erase(req ErasureRequest, digest Pseudonymizer) int {
	return r.EraseFrom(req, digest, 0)
}

// EraseFrom is Erase restricted to customers at admission position from or
// later.
func (r *Registry) EraseFrom(req ErasureRequest, digest Pseudonymizer, from int) int {
	if digest == nil {
		digest = SHA256Hex
	}
	if from < 0 {
		from = 0
	}
	affected := 0
	for _, c := range r.customers.rows[min(from, len(r.customers.rows)):] {
		if req.Matches(c) {
			c.pseudonymize(digest)
			affected++
		}
	}
	return affected
}
