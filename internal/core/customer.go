package core

// Customer is an admitted customer record. Optional fields are nil when the
// source record did not provide them.
type Customer struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	DateOfBirth *string
	PhoneNumber *string
	Address     *string
	City        *string
	Country     *string
	Postcode    *string
	LastChange  *string
	Segment     *string
}

// NewCustomer validates c's mandatory fields and returns it.
func NewCustomer(c Customer) (*Customer, error) {
	for _, f := range []struct{ name, value string }{
		{"first_name", c.FirstName},
		{"last_name", c.LastName},
		{"email", c.Email},
	} {
		if isBlank(f.value) {
			return nil, ValidationError{Field: f.name, Message: "required field is empty"}
		}
	}
	return &c, nil
}

// ParseCustomer decodes one customer line. Raw control characters inside
// string values are tolerated, matching what upstream CRM exports emit.
func ParseCustomer(raw []byte) (*Customer, error) {
	f, err := decodeObject(EntityCustomer, raw, true)
	if err != nil {
		return nil, err
	}
	if err := f.requireKeys("id", "first_name", "last_name", "email"); err != nil {
		return nil, err
	}

	var c Customer
	if c.ID, err = f.integer("id"); err != nil {
		return nil, err
	}
	if c.FirstName, err = f.text("first_name"); err != nil {
		return nil, err
	}
	if c.LastName, err = f.text("last_name"); err != nil {
		return nil, err
	}
	if c.Email, err = f.text("email"); err != nil {
		return nil, err
	}

	optional := []struct {
		key string
		dst **string
	}{
		{"date_of_birth", &c.DateOfBirth},
		{"phone_number", &c.PhoneNumber},
		{"address", &c.Address},
		{"city", &c.City},
		{"country", &c.Country},
		{"postcode", &c.Postcode},
		{"last_change", &c.LastChange},
		{"segment", &c.Segment},
	}
	for _, o := range optional {
		if *o.dst, err = f.optionalText(o.key); err != nil {
			return nil, err
		}
	}

	return NewCustomer(c)
}

// pseudonymize replaces the customer's personal fields with digests. Absent
// optional fields stay absent; city, country, last_change, segment and id
// are never touched.
func (c *Customer) pseudonymize(digest Pseudonymizer) {
	c.FirstName = digest(c.FirstName)
	c.LastName = digest(c.LastName)
	c.Email = digest(c.Email)
	for _, p := range []**string{&c.DateOfBirth, &c.PhoneNumber, &c.Address, &c.Postcode} {
		if *p != nil {
			h := digest(**p)
			*p = &h
		}
	}
}
