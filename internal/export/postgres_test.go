package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	execs      []string
	copied     map[string][][]any
	copyErr    error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	if f.copied == nil {
		f.copied = map[string][][]any{}
	}
	var n int64
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return n, err
		}
		f.copied[table[0]] = append(f.copied[table[0]], vals)
		n++
	}
	return n, src.Err()
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct{ tx *fakeTx }

func (b fakeBeginner) Begin(context.Context) (pgx.Tx, error) { return b.tx, nil }

func TestPostgresSink_Export(t *testing.T) {
	tx := &fakeTx{}
	snap := testSnapshot(t)

	sum, err := NewPostgresSink(fakeBeginner{tx}).Export(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, tx.committed)

	assert.Equal(t, map[string]int{
		"retail_customers":      2,
		"retail_products":       2,
		"retail_transactions":   1,
		"retail_purchase_lines": 2,
		"retail_rejects":        1,
	}, sum.Rows)

	assert.Contains(t, tx.execs, "DELETE FROM retail_customers WHERE session_id = $1")

	line := tx.copied["retail_purchase_lines"][1]
	assert.Equal(t, "T1", line[1])
	assert.Equal(t, int32(2), line[2])
	assert.Equal(t, int64(11), line[3])
	assert.Equal(t, pgtype.Numeric{Int: decimal.RequireFromString("9.00").Coefficient(), Exp: -2, Valid: true}, line[6])

	reject := tx.copied["retail_rejects"][0]
	assert.Equal(t, "REF001", reject[5])
}

func TestPostgresSink_CopyFailureRollsBack(t *testing.T) {
	tx := &fakeTx{copyErr: errors.New("connection reset by peer")}
	_, err := NewPostgresSink(fakeBeginner{tx}).Export(context.Background(), testSnapshot(t))
	require.ErrorContains(t, err, "copy retail_customers")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestPostgresSink_InvalidSessionID(t *testing.T) {
	snap := testSnapshot(t)
	snap.SessionID = "not-a-uuid"
	_, err := NewPostgresSink(fakeBeginner{&fakeTx{}}).Export(context.Background(), snap)
	assert.ErrorContains(t, err, "invalid session id")
}

func TestPgConvert(t *testing.T) {
	assert.False(t, ToPgText(nil).Valid)
	empty := ""
	assert.Equal(t, pgtype.Text{String: "", Valid: true}, ToPgText(&empty))

	n := ToPgNumeric(decimal.RequireFromString("-12.34"))
	assert.True(t, n.Valid)
	assert.Equal(t, int64(-1234), n.Int.Int64())
	assert.Equal(t, int32(-2), n.Exp)

	assert.False(t, ToPgTimestamptz(time.Time{}).Valid)
	assert.False(t, ToPgUUID("nope").Valid)
	assert.True(t, ToPgUUID("6f1c3a4e-9a57-4a8e-8d36-0c9d58a2f0b1").Valid)
}
