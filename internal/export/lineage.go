package export

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/retailetl/internal/core"
	"github.com/JonMunkholm/retailetl/internal/graph"
)

// DefaultLineageBatch is the number of rows sent per UNWIND statement.
const DefaultLineageBatch = 500

// Lineage statements. Customer nodes carry only the id so erased personal
// data never reaches the graph.
const (
	cypherSession = `MERGE (s:IngestSession {id: $session_id})
SET s.taken_at = $taken_at, s.customers = $customers, s.products = $products,
    s.transactions = $transactions, s.rejected = $rejected`

	cypherCustomers = `UNWIND $rows AS row
MERGE (c:Customer {id: row.id})
WITH c
MATCH (s:IngestSession {id: $session_id})
MERGE (c)-[:LOADED_IN]->(s)`

	cypherProducts = `UNWIND $rows AS row
MERGE (p:Product {sku: row.sku})
SET p.name = row.name, p.category = row.category`

	cypherTransactions = `UNWIND $rows AS row
MATCH (c:Customer {id: row.customer_id})
MERGE (t:Transaction {id: row.id})
SET t.time = row.time, t.total_cost = row.total_cost
MERGE (t)-[:PLACED_BY]->(c)`

	cypherLines = `UNWIND $rows AS row
MATCH (t:Transaction {id: row.transaction_id})
MATCH (p:Product {sku: row.sku})
MERGE (t)-[r:CONTAINS {line: row.line}]->(p)
SET r.quantity = row.quantity, r.total = row.total`

	cypherErasures = `UNWIND $rows AS row
MATCH (s:IngestSession {id: $session_id})
CREATE (e:ErasureRequest {seq: row.seq, affected: row.affected, applied_at: row.applied_at})
MERGE (e)-[:APPLIED_IN]->(s)`

	cypherCount = `MATCH (t:Transaction)-[:PLACED_BY]->(:Customer)-[:LOADED_IN]->(:IngestSession {id: $session_id})
RETURN count(t) AS transactions`
)

// LineageSink records which session loaded which customers, products and
// transactions.
type LineageSink struct {
	client    graph.Client
	batchSize int
}

// NewLineageSink returns a sink over client. Close closes client.
func NewLineageSink(client graph.Client, batchSize int) *LineageSink {
	if batchSize <= 0 {
		batchSize = DefaultLineageBatch
	}
	return &LineageSink{client: client, batchSize: batchSize}
}

func (s *LineageSink) Name() string { return "graph" }

func (s *LineageSink) Export(ctx context.Context, snap *core.Snapshot) (Summary, error) {
	sum := Summary{Rows: map[string]int{}}

	_, err := s.client.ExecuteWrite(ctx, cypherSession, map[string]any{
		"session_id":   snap.SessionID,
		"taken_at":     snap.TakenAt,
		"customers":    snap.Stats.Customers,
		"products":     snap.Stats.Products,
		"transactions": snap.Stats.Transactions,
		"rejected":     snap.Stats.Rejected,
	})
	if err != nil {
		return sum, fmt.Errorf("merge session: %w", err)
	}

	steps := []struct {
		label  string
		cypher string
		rows   []map[string]any
	}{
		{"Customer", cypherCustomers, customerNodes(snap.Customers)},
		{"Product", cypherProducts, productNodes(snap.Products)},
		{"Transaction", cypherTransactions, transactionNodes(snap.Transactions)},
		{"CONTAINS", cypherLines, lineEdges(snap.Transactions)},
		{"ErasureRequest", cypherErasures, erasureNodes(snap.Erasures)},
	}
	for _, st := range steps {
		if err := s.writeBatches(ctx, snap.SessionID, st.cypher, st.rows); err != nil {
			return sum, fmt.Errorf("write %s: %w", st.label, err)
		}
		sum.Rows[st.label] = len(st.rows)
	}
	return sum, nil
}

func (s *LineageSink) writeBatches(ctx context.Context, sessionID, cypher string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		params := map[string]any{"session_id": sessionID, "rows": rows[start:end]}
		if _, err := s.client.ExecuteWrite(ctx, cypher, params); err != nil {
			return err
		}
	}
	return nil
}

// TransactionCount reads back how many transactions the graph links to the
// session.
func (s *LineageSink) TransactionCount(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.client.ExecuteRead(ctx, cypherCount, map[string]any{"session_id": sessionID})
	if err != nil {
		return 0, err
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	n, ok := res.Records[0]["transactions"].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", res.Records[0]["transactions"])
	}
	return n, nil
}

func (s *LineageSink) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func customerNodes(cs []core.Customer) []map[string]any {
	rows := make([]map[string]any, len(cs))
	for i, c := range cs {
		rows[i] = map[string]any{"id": c.ID}
	}
	return rows
}

func productNodes(ps []core.Product) []map[string]any {
	rows := make([]map[string]any, len(ps))
	for i, p := range ps {
		rows[i] = map[string]any{"sku": p.SKU, "name": p.Name, "category": p.Category}
	}
	return rows
}

func transactionNodes(ts []core.Transaction) []map[string]any {
	rows := make([]map[string]any, len(ts))
	for i, t := range ts {
		rows[i] = map[string]any{
			"id":          t.TransactionID,
			"customer_id": t.CustomerID,
			"time":        t.TransactionTime,
			"total_cost":  t.Purchases.TotalCost.String(),
		}
	}
	return rows
}

func lineEdges(ts []core.Transaction) []map[string]any {
	var rows []map[string]any
	for _, t := range ts {
		for i, p := range t.Purchases.Products {
			rows = append(rows, map[string]any{
				"transaction_id": t.TransactionID,
				"line":           int64(i + 1),
				"sku":            p.SKU,
				"quantity":       p.Quantity,
				"total":          p.Total.String(),
			})
		}
	}
	return rows
}

func erasureNodes(es []core.ErasureRecord) []map[string]any {
	rows := make([]map[string]any, len(es))
	for i, e := range es {
		rows[i] = map[string]any{"seq": int64(i + 1), "affected": int64(e.Affected), "applied_at": e.AppliedAt}
	}
	return rows
}
