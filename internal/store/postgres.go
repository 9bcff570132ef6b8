package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the ledger and staff tables. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
    id            BIGINT PRIMARY KEY,
    table_number  INTEGER NOT NULL CHECK (table_number > 0),
    status        TEXT NOT NULL CHECK (status IN ('PENDING', 'DELIVERED')),
    created_at    TIMESTAMPTZ NOT NULL,
    delivered_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS order_lines (
    order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    position   INTEGER NOT NULL,
    item_code  INTEGER NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS staff (
    id               UUID PRIMARY KEY,
    username         TEXT NOT NULL UNIQUE,
    full_name        TEXT NOT NULL,
    role             TEXT NOT NULL CHECK (role IN ('MANAGER', 'WAITER', 'KITCHEN')),
    hashed_password  TEXT NOT NULL,
    is_active        BOOLEAN NOT NULL DEFAULT true
);
`

// DBTX is the subset of *pgxpool.Pool used by the Postgres stores.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ApplySchema runs Schema against db.
func ApplySchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PostgresStore persists the ledger in the orders and order_lines tables.
type PostgresStore struct {
	db TxBeginner
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db TxBeginner) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put implements service.Store. The order row is upserted and its lines
// replaced in one transaction.
func (s *PostgresStore) Put(ctx context.Context, o service.Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, table_number, status, created_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET table_number = EXCLUDED.table_number,
		    status = EXCLUDED.status,
		    delivered_at = EXCLUDED.delivered_at
	`, o.ID, o.TableNumber, o.Status.String(), o.CreatedAt, o.DeliveredAt)
	if err != nil {
		return fmt.Errorf("upsert order %d: %w", o.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("clear lines of order %d: %w", o.ID, err)
	}

	batch := &pgx.Batch{}
	for i, line := range o.Lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, position, item_code, quantity)
			VALUES ($1, $2, $3, $4)
		`, o.ID, i, line.ItemCode, line.Quantity)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert lines of order %d: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order %d: %w", o.ID, err)
	}
	return nil
}

// Load implements service.Store.
func (s *PostgresStore) Load(ctx context.Context) ([]service.Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, table_number, status, created_at, delivered_at
		FROM orders
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}

	pos := make(map[int64]int, len(orders))
	for i, o := range orders {
		pos[o.ID] = i
	}

	rows, err = s.db.Query(ctx, `
		SELECT order_id, item_code, quantity
		FROM order_lines
		ORDER BY order_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID int64
			line    service.OrderLine
		)
		if err := rows.Scan(&orderID, &line.ItemCode, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		i, ok := pos[orderID]
		if !ok {
			return nil, fmt.Errorf("line for unknown order %d", orderID)
		}
		orders[i].Lines = append(orders[i].Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan order lines: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (service.Order, error) {
	var (
		o           service.Order
		status      string
		createdAt   time.Time
		deliveredAt *time.Time
	)
	if err := row.Scan(&o.ID, &o.TableNumber, &status, &createdAt, &deliveredAt); err != nil {
		return service.Order{}, err
	}
	st, err := enum.ParseOrderStatus(status)
	if err != nil {
		return service.Order{}, fmt.Errorf("order %d: %w", o.ID, err)
	}
	o.Status = st
	o.CreatedAt = createdAt
	o.DeliveredAt = deliveredAt
	return o, nil
}

// isNoRows reports whether err is pgx.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
