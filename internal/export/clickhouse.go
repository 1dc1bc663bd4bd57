package export

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/retailetl/internal/core"
)

// ClickHouseOptions configures the warehouse connection.
type ClickHouseOptions struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// OpenClickHouse dials the native protocol with LZ4 compression and pings
// the server. Port 8443 switches on TLS.
func OpenClickHouse(ctx context.Context, opts ClickHouseOptions) (driver.Conn, error) {
	chOpts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		DialTimeout:  30 * time.Second,
	}
	if opts.Port == 8443 {
		chOpts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return conn, nil
}

// clickhouseDDL uses ReplacingMergeTree keyed on session so a re-export
// collapses onto the earlier rows.
var clickhouseDDL = []string{
	`CREATE TABLE IF NOT EXISTS %s.customers (
		session_id String, id Int64, first_name String, last_name String, email String,
		date_of_birth Nullable(String), phone_number Nullable(String), address Nullable(String),
		city Nullable(String), country Nullable(String), postcode Nullable(String),
		last_change Nullable(String), segment Nullable(String)
	) ENGINE = ReplacingMergeTree ORDER BY (session_id, id)`,
	`CREATE TABLE IF NOT EXISTS %s.products (
		session_id String, sku Int64, name String, price Decimal(12,2),
		category String, popularity Float64
	) ENGINE = ReplacingMergeTree ORDER BY (session_id, sku)`,
	`CREATE TABLE IF NOT EXISTS %s.transactions (
		session_id String, transaction_id String, customer_id Int64,
		delivery_address Nullable(String), delivery_city Nullable(String),
		delivery_country Nullable(String), delivery_postcode Nullable(String),
		transaction_time DateTime64(6, 'UTC'), total_cost Decimal(12,2)
	) ENGINE = ReplacingMergeTree ORDER BY (session_id, transaction_id)`,
	`CREATE TABLE IF NOT EXISTS %s.purchase_lines (
		session_id String, transaction_id String, line Int32, sku Int64,
		quantity Int32, price Decimal(12,2), total Decimal(12,2)
	) ENGINE = ReplacingMergeTree ORDER BY (session_id, transaction_id, line)`,
}

// ClickHouseSink appends column-major tables to the warehouse.
type ClickHouseSink struct {
	conn     driver.Conn
	database string
}

// NewClickHouseSink returns a sink writing into database. Close closes conn.
func NewClickHouseSink(conn driver.Conn, database string) *ClickHouseSink {
	return &ClickHouseSink{conn: conn, database: database}
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

func (s *ClickHouseSink) Export(ctx context.Context, snap *core.Snapshot) (Summary, error) {
	sum := Summary{Rows: map[string]int{}}
	for _, ddl := range clickhouseDDL {
		if err := s.conn.Exec(ctx, fmt.Sprintf(ddl, s.database)); err != nil {
			return sum, fmt.Errorf("ensure schema: %w", err)
		}
	}

	tables := []core.Table{
		core.CustomerTable(snap.Customers),
		core.ProductTable(snap.Products),
		flatTransactionTable(snap.Transactions),
		core.PurchaseLineTable(snap.Transactions),
	}
	for _, t := range tables {
		if t.Rows == 0 {
			continue
		}
		if err := s.appendTable(ctx, snap.SessionID, t); err != nil {
			return sum, fmt.Errorf("insert %s: %w", t.Name, err)
		}
		sum.Rows[t.Name] = t.Rows
	}
	return sum, nil
}

// appendTable sends one batch with a leading session_id column followed by
// the table's columns in schema order.
func (s *ClickHouseSink) appendTable(ctx context.Context, sessionID string, t core.Table) error {
	query := fmt.Sprintf("INSERT INTO %s.%s (session_id", s.database, t.Name)
	for _, name := range t.Schema.Names() {
		query += ", " + name
	}
	query += ")"

	batch, err := s.conn.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	session := make([]string, t.Rows)
	for i := range session {
		session[i] = sessionID
	}
	if err := batch.Column(0).Append(session); err != nil {
		batch.Abort()
		return fmt.Errorf("column session_id: %w", err)
	}
	for i, c := range t.Columns {
		if err := batch.Column(i + 1).Append(c.Data); err != nil {
			batch.Abort()
			return fmt.Errorf("column %s: %w", c.Field.Name, err)
		}
	}
	return batch.Send()
}

func (s *ClickHouseSink) Close(context.Context) error {
	return s.conn.Close()
}

var flatTransactionSchema = core.Schema{
	{Name: "transaction_id", Type: core.TypeString},
	{Name: "customer_id", Type: core.TypeInt64},
	{Name: "delivery_address", Type: core.TypeString, Nullable: true},
	{Name: "delivery_city", Type: core.TypeString, Nullable: true},
	{Name: "delivery_country", Type: core.TypeString, Nullable: true},
	{Name: "delivery_postcode", Type: core.TypeString, Nullable: true},
	{Name: "transaction_time", Type: core.TypeTimestamp},
	{Name: "total_cost", Type: core.TypeDecimal},
}

// flatTransactionTable lifts the delivery address and total out of the
// nested columns. Line items go to purchase_lines.
func flatTransactionTable(ts []core.Transaction) core.Table {
	nested := core.TransactionTable(ts)
	ids, _ := nested.Column("transaction_id")
	customers, _ := nested.Column("customer_id")
	when, _ := nested.Column("transaction_time")

	n := nested.Rows
	addr, city, country, post := make([]*string, n), make([]*string, n), make([]*string, n), make([]*string, n)
	total := make([]decimal.Decimal, n)
	for i, t := range ts {
		if a := t.DeliveryAddress; a != nil {
			addr[i], city[i], country[i], post[i] = a.Address, a.City, a.Country, a.Postcode
		}
		total[i] = t.Purchases.TotalCost
	}

	data := []any{ids.Data, customers.Data, addr, city, country, post, when.Data, total}
	cols := make([]core.Column, len(flatTransactionSchema))
	for i, f := range flatTransactionSchema {
		cols[i] = core.Column{Field: f, Data: data[i]}
	}
	return core.Table{Name: "transactions", Schema: flatTransactionSchema, Columns: cols, Rows: n}
}
