package export

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/retailetl/internal/core"
)

// Beginner starts a transaction. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenPostgres creates and pings a connection pool.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// schemaDDL creates the export tables. Every row carries the session id so
// re-exporting a session replaces its rows and leaves other sessions alone.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS retail_customers (
		session_id    uuid   NOT NULL,
		id            bigint NOT NULL,
		first_name    text   NOT NULL,
		last_name     text   NOT NULL,
		email         text   NOT NULL,
		date_of_birth text,
		phone_number  text,
		address       text,
		city          text,
		country       text,
		postcode      text,
		last_change   text,
		segment       text,
		PRIMARY KEY (session_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS retail_products (
		session_id uuid             NOT NULL,
		sku        bigint           NOT NULL,
		name       text             NOT NULL,
		price      numeric(12,2)    NOT NULL,
		category   text             NOT NULL,
		popularity double precision NOT NULL,
		PRIMARY KEY (session_id, sku)
	)`,
	`CREATE TABLE IF NOT EXISTS retail_transactions (
		session_id        uuid          NOT NULL,
		transaction_id    text          NOT NULL,
		customer_id       bigint        NOT NULL,
		delivery_address  text,
		delivery_city     text,
		delivery_country  text,
		delivery_postcode text,
		transaction_time  timestamptz   NOT NULL,
		total_cost        numeric(12,2) NOT NULL,
		PRIMARY KEY (session_id, transaction_id)
	)`,
	`CREATE TABLE IF NOT EXISTS retail_purchase_lines (
		session_id     uuid          NOT NULL,
		transaction_id text          NOT NULL,
		line           integer       NOT NULL,
		sku            bigint        NOT NULL,
		quantity       integer       NOT NULL,
		price          numeric(12,2) NOT NULL,
		total          numeric(12,2) NOT NULL,
		PRIMARY KEY (session_id, transaction_id, line)
	)`,
	`CREATE TABLE IF NOT EXISTS retail_rejects (
		session_id  uuid    NOT NULL,
		seq         integer NOT NULL,
		source      text    NOT NULL,
		line_number integer NOT NULL,
		kind        text    NOT NULL,
		code        text    NOT NULL,
		reason      text    NOT NULL,
		raw         bytea   NOT NULL,
		PRIMARY KEY (session_id, seq)
	)`,
}

// copyTable is one COPY target and its rows.
type copyTable struct {
	name    string
	columns []string
	rows    [][]any
}

// PostgresSink copies a snapshot into PostgreSQL in one transaction.
type PostgresSink struct {
	db    Beginner
	close func()
}

// NewPostgresSink returns a sink over db. The caller owns db.
func NewPostgresSink(db Beginner) *PostgresSink {
	return &PostgresSink{db: db}
}

// NewPostgresPoolSink returns a sink that closes pool on Close.
func NewPostgresPoolSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{db: pool, close: pool.Close}
}

func (s *PostgresSink) Name() string { return "postgres" }

// Export creates the tables if needed, clears rows from an earlier export
// of the same session and copies the snapshot.
func (s *PostgresSink) Export(ctx context.Context, snap *core.Snapshot) (Summary, error) {
	sum := Summary{Rows: map[string]int{}}
	sessionID := ToPgUUID(snap.SessionID)
	if !sessionID.Valid {
		return sum, fmt.Errorf("invalid session id %q", snap.SessionID)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return sum, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schemaDDL {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return sum, fmt.Errorf("ensure schema: %w", err)
		}
	}

	for _, t := range postgresTables(snap, sessionID) {
		if _, err := tx.Exec(ctx, "DELETE FROM "+t.name+" WHERE session_id = $1", sessionID); err != nil {
			return sum, fmt.Errorf("clear %s: %w", t.name, err)
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, t.columns, pgx.CopyFromRows(t.rows))
		if err != nil {
			return sum, fmt.Errorf("copy %s: %w", t.name, err)
		}
		sum.Rows[t.name] = int(n)
	}

	if err := tx.Commit(ctx); err != nil {
		return sum, fmt.Errorf("commit: %w", err)
	}
	return sum, nil
}

func (s *PostgresSink) Close(context.Context) error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// postgresTables builds the COPY rows for every export table.
func postgresTables(snap *core.Snapshot, sessionID any) []copyTable {
	customers := copyTable{
		name: "retail_customers",
		columns: []string{"session_id", "id", "first_name", "last_name", "email", "date_of_birth",
			"phone_number", "address", "city", "country", "postcode", "last_change", "segment"},
	}
	for _, c := range snap.Customers {
		customers.rows = append(customers.rows, []any{
			sessionID, c.ID, c.FirstName, c.LastName, c.Email, ToPgText(c.DateOfBirth),
			ToPgText(c.PhoneNumber), ToPgText(c.Address), ToPgText(c.City), ToPgText(c.Country),
			ToPgText(c.Postcode), ToPgText(c.LastChange), ToPgText(c.Segment),
		})
	}

	products := copyTable{
		name:    "retail_products",
		columns: []string{"session_id", "sku", "name", "price", "category", "popularity"},
	}
	for _, p := range snap.Products {
		products.rows = append(products.rows, []any{
			sessionID, p.SKU, p.Name, ToPgNumeric(p.Price), p.Category, p.Popularity,
		})
	}

	transactions := copyTable{
		name: "retail_transactions",
		columns: []string{"session_id", "transaction_id", "customer_id", "delivery_address",
			"delivery_city", "delivery_country", "delivery_postcode", "transaction_time", "total_cost"},
	}
	for _, t := range snap.Transactions {
		var addr core.DeliveryAddress
		if t.DeliveryAddress != nil {
			addr = *t.DeliveryAddress
		}
		transactions.rows = append(transactions.rows, []any{
			sessionID, t.TransactionID, t.CustomerID, ToPgText(addr.Address), ToPgText(addr.City),
			ToPgText(addr.Country), ToPgText(addr.Postcode), ToPgTimestamptz(t.TransactionTime),
			ToPgNumeric(t.Purchases.TotalCost),
		})
	}

	lines := copyTable{
		name:    "retail_purchase_lines",
		columns: []string{"session_id", "transaction_id", "line", "sku", "quantity", "price", "total"},
	}
	lt := core.PurchaseLineTable(snap.Transactions)
	ids, _ := lt.Column("transaction_id")
	nums, _ := lt.Column("line")
	skus, _ := lt.Column("sku")
	qty, _ := lt.Column("quantity")
	price, _ := lt.Column("price")
	total, _ := lt.Column("total")
	for i := 0; i < lt.Rows; i++ {
		lines.rows = append(lines.rows, []any{
			sessionID,
			ids.Data.([]string)[i],
			nums.Data.([]int32)[i],
			skus.Data.([]int64)[i],
			qty.Data.([]int32)[i],
			ToPgNumeric(price.Data.([]decimal.Decimal)[i]),
			ToPgNumeric(total.Data.([]decimal.Decimal)[i]),
		})
	}

	rejects := copyTable{
		name:    "retail_rejects",
		columns: []string{"session_id", "seq", "source", "line_number", "kind", "code", "reason", "raw"},
	}
	for i, r := range snap.Rejects {
		rejects.rows = append(rejects.rows, []any{
			sessionID, int32(i + 1), r.Source, int32(r.LineNumber), string(r.Kind), r.Code, r.Reason, r.Line,
		})
	}

	return []copyTable{customers, products, transactions, lines, rejects}
}
