package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Anri-17/bolt-generated-project/internal/common/database"
	"github.com/Anri-17/bolt-generated-project/internal/common/money"
)

// PostgresStore persists ledger entries in the payments table. The table
// is append-only: there are no updates or deletes.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO payments (
			id, payment_reference, amount_minor, currency, method,
			order_id, customer_id, destination, status, error_detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.Exec(ctx, query,
		entry.ID,
		entry.PaymentReference,
		entry.Amount.AmountMinor,
		string(entry.Amount.Currency),
		entry.Method,
		entry.OrderID,
		entry.CustomerID,
		entry.Destination,
		string(entry.Status),
		entry.ErrorDetail,
		entry.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("payment entry %s already recorded: %w", entry.ID, database.ErrAlreadyExists)
		}
		return fmt.Errorf("recording payment entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Entry, error) {
	query := `
		SELECT id, payment_reference, amount_minor, currency, method,
		       order_id, customer_id, destination, status, error_detail, created_at
		FROM payments
		WHERE id = $1`

	var e Entry
	var currency, status string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.PaymentReference,
		&e.Amount.AmountMinor,
		&currency,
		&e.Method,
		&e.OrderID,
		&e.CustomerID,
		&e.Destination,
		&status,
		&e.ErrorDetail,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment entry %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("getting payment entry: %w", err)
	}
	e.Amount.Currency = money.Currency(currency)
	e.Status = Status(status)
	return &e, nil
}

func (s *PostgresStore) ListByOrder(ctx context.Context, orderID string) ([]*Entry, error) {
	query := `
		SELECT id, payment_reference, amount_minor, currency, method,
		       order_id, customer_id, destination, status, error_detail, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing payments by order: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Entry, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting payments: %w", err)
	}

	query := `
		SELECT id, payment_reference, amount_minor, currency, method,
		       order_id, customer_id, destination, status, error_detail, created_at
		FROM payments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *PostgresStore) Summary(ctx context.Context) ([]SummaryRow, error) {
	query := `
		SELECT method, status, currency, COUNT(*), COALESCE(SUM(amount_minor), 0)
		FROM payments
		GROUP BY method, status, currency
		ORDER BY method, status, currency`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("summarizing payments: %w", err)
	}
	defer rows.Close()

	var summary []SummaryRow
	for rows.Next() {
		var row SummaryRow
		var status, currency string
		if err := rows.Scan(&row.Method, &status, &currency, &row.Count, &row.TotalMinor); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		row.Status = Status(status)
		row.Currency = money.Currency(currency)
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

func scanEntries(rows pgx.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var e Entry
		var currency, status string
		if err := rows.Scan(
			&e.ID,
			&e.PaymentReference,
			&e.Amount.AmountMinor,
			&currency,
			&e.Method,
			&e.OrderID,
			&e.CustomerID,
			&e.Destination,
			&status,
			&e.ErrorDetail,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning payment entry: %w", err)
		}
		e.Amount.Currency = money.Currency(currency)
		e.Status = Status(status)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
