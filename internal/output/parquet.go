// Package output writes an ingestion session to a folder of columnar files
// and reads those files back into validated entities.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/JonMunkholm/retailetl/internal/core"
)

// Output file names.
const (
	CustomersFile     = "customers.parquet"
	ProductsFile      = "products.parquet"
	TransactionsFile  = "transactions.parquet"
	RejectsFile       = "rejected_input.txt"
	RejectReasonsFile = "rejected_input.errors.jsonl"
)

// FileSummary describes one written file.
type FileSummary struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Rows  int    `json:"rows"`
	Bytes int64  `json:"bytes"`
}

// Manifest lists the files produced by WriteDir.
type Manifest struct {
	Dir   string        `json:"dir"`
	Files []FileSummary `json:"files"`
}

// WriteDir writes the snapshot into dir, creating it if needed. Entity sets
// that are empty produce a zero-byte file.
func WriteDir(dir string, snap *core.Snapshot) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	m := &Manifest{Dir: dir}

	customers := make([]customerRow, len(snap.Customers))
	for i, c := range snap.Customers {
		customers[i] = customerToRow(c)
	}
	products := make([]productRow, len(snap.Products))
	for i, p := range snap.Products {
		products[i] = productToRow(p)
	}
	transactions := make([]transactionRow, len(snap.Transactions))
	for i, t := range snap.Transactions {
		transactions[i] = transactionToRow(t)
	}

	steps := []struct {
		name  string
		rows  int
		write func(io.Writer) error
	}{
		{CustomersFile, len(customers), func(w io.Writer) error { return writeParquet(w, customers, core.CustomerSchema) }},
		{ProductsFile, len(products), func(w io.Writer) error { return writeParquet(w, products, core.ProductSchema) }},
		{TransactionsFile, len(transactions), func(w io.Writer) error { return writeParquet(w, transactions, core.TransactionSchema) }},
		{RejectsFile, len(snap.Rejects), func(w io.Writer) error { return core.WriteRejects(w, snap.Rejects) }},
		{RejectReasonsFile, len(snap.Rejects), func(w io.Writer) error { return core.WriteRejectReasons(w, snap.Rejects) }},
	}

	for _, s := range steps {
		path := filepath.Join(dir, s.name)
		n, err := writeFile(path, s.write)
		if err != nil {
			return m, fmt.Errorf("write %s: %w", s.name, err)
		}
		m.Files = append(m.Files, FileSummary{Name: s.name, Path: path, Rows: s.rows, Bytes: n})
	}
	return m, nil
}

// writeFile writes to a temporary file in the same directory and renames it
// into place once write succeeds.
func writeFile(path string, write func(io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return 0, err
	}
	st, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// writeParquet writes rows as one Parquet file. No rows writes nothing.
func writeParquet[T any](w io.Writer, rows []T, schema core.Schema) error {
	if err := schema.CheckColumns(columnNames(parquet.SchemaOf(new(T)))); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	pw := parquet.NewGenericWriter[T](w, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}

func columnNames(s *parquet.Schema) []string {
	fields := s.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}
	return names
}

// ReadCustomers reads a customers file back through the customer
// constructor.
func ReadCustomers(path string) ([]core.Customer, error) {
	rows, err := readParquet[customerRow](path, core.CustomerSchema)
	if err != nil {
		return nil, err
	}
	out := make([]core.Customer, 0, len(rows))
	for i, r := range rows {
		c, err := r.entity()
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		out = append(out, *c)
	}
	return out, nil
}

// ReadProducts reads a products file back through the product constructor.
func ReadProducts(path string) ([]core.Product, error) {
	rows, err := readParquet[productRow](path, core.ProductSchema)
	if err != nil {
		return nil, err
	}
	out := make([]core.Product, 0, len(rows))
	for i, r := range rows {
		p, err := r.entity()
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		out = append(out, *p)
	}
	return out, nil
}

// ReadTransactions reads a transactions file back, rebuilding each
// transaction from its stored timestamp.
func ReadTransactions(path string) ([]core.Transaction, error) {
	rows, err := readParquet[transactionRow](path, core.TransactionSchema)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(rows))
	for i, r := range rows {
		t, err := r.entity()
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		out = append(out, *t)
	}
	return out, nil
}

// ErrNotParquet is returned when a non-empty file cannot be opened as
// Parquet.
var ErrNotParquet = errors.New("not a parquet file")

// readParquet checks the file's columns against schema before decoding. A
// zero-byte file holds no rows.
func readParquet[T any](path string, schema core.Schema) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size() == 0 {
		return nil, nil
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotParquet, path, err)
	}
	if err := schema.CheckColumns(columnNames(pf.Schema())); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rows, err := parquet.Read[T](f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// Dataset is the entity content of an output folder.
type Dataset struct {
	Customers    []core.Customer
	Products     []core.Product
	Transactions []core.Transaction
}

// ReadDir reads the three entity files written by WriteDir.
func ReadDir(dir string) (*Dataset, error) {
	var (
		ds  Dataset
		err error
	)
	if ds.Customers, err = ReadCustomers(filepath.Join(dir, CustomersFile)); err != nil {
		return nil, err
	}
	if ds.Products, err = ReadProducts(filepath.Join(dir, ProductsFile)); err != nil {
		return nil, err
	}
	if ds.Transactions, err = ReadTransactions(filepath.Join(dir, TransactionsFile)); err != nil {
		return nil, err
	}
	return &ds, nil
}
