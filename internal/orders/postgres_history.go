package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type PostgresHistory struct {
	db *sql.DB
}

// NewPostgresHistory shares the ledger's connection pool.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

func (h *PostgresHistory) RunMigrations(migrationsPath string) error {
	driver, err := postgres.WithInstance(h.db, &postgres.Config{
		MigrationsTable: "purchases_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (h *PostgresHistory) Record(ctx context.Context, p *Purchase) error {
	query := `INSERT INTO purchases (id, checkout_id, user_id, amount, currency, payment_id, paid_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := h.db.ExecContext(ctx, query,
		p.ID,
		p.CheckoutID,
		p.UserID,
		p.Amount,
		p.Currency,
		p.PaymentID,
		p.PaidAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (h *PostgresHistory) ListByUser(ctx context.Context, userID string) ([]*Purchase, error) {
	query := `SELECT id, checkout_id, user_id, amount, currency, payment_id, paid_at
	          FROM purchases WHERE user_id = $1 ORDER BY paid_at DESC`

	rows, err := h.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query purchases by user id: %w", err)
	}
	defer rows.Close()

	purchases := []*Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(
			&p.ID,
			&p.CheckoutID,
			&p.UserID,
			&p.Amount,
			&p.Currency,
			&p.PaymentID,
			&p.PaidAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		p.PaidAt = p.PaidAt.UTC()
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return purchases, nil
}

func (h *PostgresHistory) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM purchases WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete purchases: %w", err)
	}
	return nil
}
