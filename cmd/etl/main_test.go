package main

import (
	"bytes"
	"github.com/klauspost/compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/retailetl/internal/core"
	"github.com/JonMunkholm/retailetl/internal/output"
)

func writeBatch(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func inputTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	day := filepath.Join(root, "2024-01-01")
	writeBatch(t, day, "transactions.json.gz",
		`{"transaction_id": "T1", "customer_id": 1, "transaction_time": "2024-01-01T09:00:00", "purchases": {"total_cost": "20.00", "products": [{"sku": 10, "quantity": 1, "price": "20.00", "total": "20.00"}]}}`,
		`{"transaction_id": "T2", "customer_id": 7, "transaction_time": "2024-01-01T09:00:00", "purchases": {"total_cost": "20.00", "products": [{"sku": 10, "quantity": 1, "price": "20.00", "total": "20.00"}]}}`,
	)
	writeBatch(t, day, "customers.json.gz", `{"id": 1, "first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"}`)
	writeBatch(t, day, "products.json.gz", `{"sku": 10, "name": "Kettle", "price": "20.00", "category": "kitchen", "popularity": 0.5}`)
	writeBatch(t, filepath.Join(root, "2024-01-02"), "erasure-requests.json.gz", `{"customer-id": 1}`)
	return root
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CLICKHOUSE_HOST", "")
	t.Setenv("GRAPH_URI", "")
	t.Setenv("RABBITMQ_URL", "")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"etl"}, args...))
	return out.String(), err
}

func TestRun(t *testing.T) {
	in := inputTree(t)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, err := runApp(t, "run", "--input", in, "--output", outDir, "--workers", "2", "--window", "1")
	require.NoError(t, err, stdout)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Batches, 4)
	assert.Equal(t, core.EntityCustomer, report.Batches[0].Kind)
	assert.Equal(t, core.EntityErasureRequest, report.Batches[3].Kind)
	assert.Equal(t, 1, report.Stats.Transactions)
	assert.Equal(t, 1, report.Stats.Rejected)

	ds, err := output.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, ds.Customers, 1)
	assert.Equal(t, core.SHA256Hex("ada@example.com"), ds.Customers[0].Email)

	rejects, err := os.ReadFile(filepath.Join(outDir, output.RejectsFile))
	require.NoError(t, err)
	assert.Contains(t, string(rejects), `"transaction_id": "T2"`)

	stdout, err = runApp(t, "inspect", outDir)
	require.NoError(t, err)
	var ir inspectReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &ir))
	assert.Equal(t, 1, ir.Customers)
	assert.Equal(t, 1, ir.PurchaseLines)
}

func TestRun_MalformedErasureStopsBeforeWriting(t *testing.T) {
	in := t.TempDir()
	writeBatch(t, in, "erasure-requests.json.gz", `{"customer-id": "x"}`)
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := runApp(t, "run", "--input", in, "--output", outDir)
	require.ErrorIs(t, err, core.ErrMalformedErasure)
	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))

	_, err = runApp(t, "run", "--input", in, "--output", outDir, "--lenient-erasure")
	require.NoError(t, err)
}

func TestRun_UnknownBatchFile(t *testing.T) {
	in := t.TempDir()
	writeBatch(t, in, "orders.json.gz", `{}`)

	_, err := runApp(t, "run", "--input", in, "--output", t.TempDir())
	assert.ErrorIs(t, err, core.ErrUnknownBatchFile)
}

func TestFiles(t *testing.T) {
	stdout, err := runApp(t, "files", inputTree(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "customer"))
	assert.True(t, strings.HasPrefix(lines[1], "product"))
	assert.True(t, strings.HasPrefix(lines[2], "transaction"))
	assert.True(t, strings.HasPrefix(lines[3], "erasure_request"))
}

func TestStats(t *testing.T) {
	stdout, err := runApp(t, "stats", "--input", inputTree(t))
	require.NoError(t, err)

	var st core.Stats
	require.NoError(t, json.Unmarshal([]byte(stdout), &st))
	assert.Equal(t, 1, st.Customers)
	assert.Equal(t, 1, st.Products)
	assert.Equal(t, 1, st.Transactions)
	assert.Equal(t, 1, st.ErasureRequests)
	assert.Equal(t, 1, st.Rejected)
}
