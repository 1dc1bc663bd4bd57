package core

// columnar.go exposes admitted entities as column-major tables with an
// explicit schema. Writers and warehouse sinks consume these views instead
// of reflecting over entity structs, so a field rename shows up as a schema
// change here rather than a silent column drift downstream.

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LogicalType is the semantic type of a column.
type LogicalType string

const (
	TypeInt32     LogicalType = "int32"
	TypeInt64     LogicalType = "int64"
	TypeFloat64   LogicalType = "float64"
	TypeString    LogicalType = "string"
	TypeDecimal   LogicalType = "decimal(12,2)"
	TypeTimestamp LogicalType = "timestamp[us]"
	TypeStruct    LogicalType = "struct"
	TypeList      LogicalType = "list"
)

// Field describes one column. Children describe struct members, or the
// element struct of a list.
type Field struct {
	Name     string
	Type     LogicalType
	Nullable bool
	Children []Field
}

// Schema is an ordered list of top-level fields.
type Schema []Field

// Names returns the top-level field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// CheckColumns compares got against the schema's top-level names. Missing
// and unexpected columns are both reported.
func (s Schema) CheckColumns(got []string) error {
	want := make(map[string]bool, len(s))
	for _, f := range s {
		want[f.Name] = true
	}
	seen := make(map[string]bool, len(got))
	var unexpected, missing []string
	for _, name := range got {
		seen[name] = true
		if !want[name] {
			unexpected = append(unexpected, name)
		}
	}
	for _, f := range s {
		if !seen[f.Name] {
			missing = append(missing, f.Name)
		}
	}
	if len(unexpected) > 0 || len(missing) > 0 {
		return fmt.Errorf("schema mismatch: missing columns %v, unexpected columns %v", missing, unexpected)
	}
	return nil
}

var (
	CustomerSchema = Schema{
		{Name: "id", Type: TypeInt64},
		{Name: "first_name", Type: TypeString},
		{Name: "last_name", Type: TypeString},
		{Name: "email", Type: TypeString},
		{Name: "date_of_birth", Type: TypeString, Nullable: true},
		{Name: "phone_number", Type: TypeString, Nullable: true},
		{Name: "address", Type: TypeString, Nullable: true},
		{Name: "city", Type: TypeString, Nullable: true},
		{Name: "country", Type: TypeString, Nullable: true},
		{Name: "postcode", Type: TypeString, Nullable: true},
		{Name: "last_change", Type: TypeString, Nullable: true},
		{Name: "segment", Type: TypeString, Nullable: true},
	}

	ProductSchema = Schema{
		{Name: "sku", Type: TypeInt64},
		{Name: "name", Type: TypeString},
		{Name: "price", Type: TypeDecimal},
		{Name: "category", Type: TypeString},
		{Name: "popularity", Type: TypeFloat64},
	}

	DeliveryAddressField = Field{
		Name: "delivery_address", Type: TypeStruct, Nullable: true,
		Children: []Field{
			{Name: "address", Type: TypeString, Nullable: true},
			{Name: "city", Type: TypeString, Nullable: true},
			{Name: "country", Type: TypeString, Nullable: true},
			{Name: "postcode", Type: TypeString, Nullable: true},
		},
	}

	PurchasesField = Field{
		Name: "purchases", Type: TypeStruct,
		Children: []Field{
			{Name: "total_cost", Type: TypeDecimal},
			{Name: "products", Type: TypeList, Children: []Field{
				{Name: "sku", Type: TypeInt64},
				{Name: "quantity", Type: TypeInt32},
				{Name: "price", Type: TypeDecimal},
				{Name: "total", Type: TypeDecimal},
			}},
		},
	}

	TransactionSchema = Schema{
		{Name: "transaction_id", Type: TypeString},
		{Name: "customer_id", Type: TypeInt64},
		DeliveryAddressField,
		{Name: "transaction_time", Type: TypeTimestamp},
		PurchasesField,
	}

	// PurchaseLineSchema is the flattened one-row-per-line-item view used by
	// warehouse sinks that do not store nested columns.
	PurchaseLineSchema = Schema{
		{Name: "transaction_id", Type: TypeString},
		{Name: "line", Type: TypeInt32},
		{Name: "sku", Type: TypeInt64},
		{Name: "quantity", Type: TypeInt32},
		{Name: "price", Type: TypeDecimal},
		{Name: "total", Type: TypeDecimal},
	}
)

// Column is one field's values. Data is a typed slice: []int64, []int32,
// []float64, []string, []*string, []decimal.Decimal, []time.Time,
// []*DeliveryAddress or []Purchases.
type Column struct {
	Field Field
	Data  any
}

// Table is a column-major view of one entity set.
type Table struct {
	Name    string
	Schema  Schema
	Columns []Column
	Rows    int
}

// Column returns the column named name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Field.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func newTable(name string, schema Schema, rows int, data ...any) Table {
	cols := make([]Column, len(schema))
	for i, f := range schema {
		cols[i] = Column{Field: f, Data: data[i]}
	}
	return Table{Name: name, Schema: schema, Columns: cols, Rows: rows}
}

// CustomerTable returns customers in column-major form.
func CustomerTable(cs []Customer) Table {
	n := len(cs)
	var (
		id                          = make([]int64, n)
		first, last, email          = make([]string, n), make([]string, n), make([]string, n)
		dob, phone, addr, city      = make([]*string, n), make([]*string, n), make([]*string, n), make([]*string, n)
		country, post, change, segm = make([]*string, n), make([]*string, n), make([]*string, n), make([]*string, n)
	)
	for i, c := range cs {
		id[i], first[i], last[i], email[i] = c.ID, c.FirstName, c.LastName, c.Email
		dob[i], phone[i], addr[i], city[i] = c.DateOfBirth, c.PhoneNumber, c.Address, c.City
		country[i], post[i], change[i], segm[i] = c.Country, c.Postcode, c.LastChange, c.Segment
	}
	return newTable("customers", CustomerSchema, n,
		id, first, last, email, dob, phone, addr, city, country, post, change, segm)
}

// ProductTable returns products in column-major form.
func ProductTable(ps []Product) Table {
	n := len(ps)
	sku := make([]int64, n)
	name := make([]string, n)
	price := make([]decimal.Decimal, n)
	category := make([]string, n)
	popularity := make([]float64, n)
	for i, p := range ps {
		sku[i], name[i], price[i], category[i], popularity[i] = p.SKU, p.Name, p.Price, p.Category, p.Popularity
	}
	return newTable("products", ProductSchema, n, sku, name, price, category, popularity)
}

// TransactionTable returns transactions in column-major form with the
// nested delivery_address and purchases structures kept intact.
func TransactionTable(ts []Transaction) Table {
	n := len(ts)
	id := make([]string, n)
	customer := make([]int64, n)
	address := make([]*DeliveryAddress, n)
	when := make([]time.Time, n)
	purchases := make([]Purchases, n)
	for i, t := range ts {
		id[i], customer[i], address[i], when[i], purchases[i] =
			t.TransactionID, t.CustomerID, t.DeliveryAddress, t.TransactionTime, t.Purchases
	}
	return newTable("transactions", TransactionSchema, n, id, customer, address, when, purchases)
}

// PurchaseLineTable flattens every transaction's line items, numbering
// lines from 1 within each transaction.
func PurchaseLineTable(ts []Transaction) Table {
	var (
		id       []string
		line     []int32
		sku      []int64
		quantity []int32
		price    []decimal.Decimal
		total    []decimal.Decimal
	)
	for _, t := range ts {
		for i, p := range t.Purchases.Products {
			id = append(id, t.TransactionID)
			line = append(line, int32(i+1))
			sku = append(sku, p.SKU)
			quantity = append(quantity, int32(p.Quantity))
			price = append(price, p.Price)
			total = append(total, p.Total)
		}
	}
	return newTable("purchase_lines", PurchaseLineSchema, len(id), id, line, sku, quantity, price, total)
}
