package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	errAccountNotFound = errors.New("account not found")
	errDuplicate       = errors.New("duplicate account")
)

type account struct {
	UID          string
	Email        string
	PasswordHash sql.NullString
	GoogleSub    sql.NullString
}

// AccountRepository keeps credentials in SQLite.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(dbPath string) (*AccountRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)

	return &AccountRepository{db: db}, nil
}

func (r *AccountRepository) RunMigrations(migrationsPath string) error {
	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *AccountRepository) Close() error {
	return r.db.Close()
}

func (r *AccountRepository) create(ctx context.Context, a account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (uid, email, password_hash, google_sub) VALUES (?, ?, ?, ?)`,
		a.UID, a.Email, a.PasswordHash, a.GoogleSub)
	if isConstraintError(err) {
		return errDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) byEmail(ctx context.Context, email string) (*account, error) {
	return r.one(ctx, `SELECT uid, email, password_hash, google_sub FROM accounts WHERE email = ?`, email)
}

func (r *AccountRepository) byGoogleSubject(ctx context.Context, sub string) (*account, error) {
	return r.one(ctx, `SELECT uid, email, password_hash, google_sub FROM accounts WHERE google_sub = ?`, sub)
}

func (r *AccountRepository) byUID(ctx context.Context, uid string) (*account, error) {
	return r.one(ctx, `SELECT uid, email, password_hash, google_sub FROM accounts WHERE uid = ?`, uid)
}

func (r *AccountRepository) linkGoogle(ctx context.Context, uid, sub string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET google_sub = ? WHERE uid = ?`, sub, uid)
	if isConstraintError(err) {
		return errDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}
	return nil
}

func (r *AccountRepository) delete(ctx context.Context, uid string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n == 0 {
		return errAccountNotFound
	}
	return nil
}

func (r *AccountRepository) one(ctx context.Context, query string, arg any) (*account, error) {
	var a account
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.UID, &a.Email, &a.PasswordHash, &a.GoogleSub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &a, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
