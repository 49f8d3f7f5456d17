package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/usermanager/internal/database"
	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `
	a.id, a.user_name, a.email, a.password_hash, a.first_name, a.last_name,
	a.failed_attempts, a.locked_until, a.created_at,
	ARRAY(SELECT ar.role_name FROM account_roles ar WHERE ar.account_id = a.id ORDER BY ar.role_name)
`

// AccountRepository is the PostgreSQL implementation of the account store
type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner interface for scanning account rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanAccountRow handles nullable fields and populates an Account from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var lockedUntil *time.Time
	var roles []string

	err := scanner.Scan(
		&account.ID, &account.UserName, &account.Email, &account.PasswordHash,
		&account.FirstName, &account.LastName,
		&account.Lockout.FailedAttempts, &lockedUntil, &account.CreatedAt,
		&roles,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	account.Lockout.LockedUntil = lockedUntil
	account.Roles = roles
	if account.Roles == nil {
		account.Roles = []string{}
	}

	return &account, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", database.MapPostgresError(err))
	}

	return accounts, nil
}

func findByID(ctx context.Context, q querier, id string) (*models.Account, error) {
	// Non-UUID identifiers can never match a row
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1`
	return scanAccountRow(q.QueryRow(ctx, query, id))
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return findByID(ctx, r.db.Pool, id)
}

func (r *AccountRepository) FindByUserName(ctx context.Context, userName string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.user_name = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, userName))
}

// List returns accounts whose user name contains term, oldest first. An empty
// term matches every account.
func (r *AccountRepository) List(ctx context.Context, term string) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE $1 = '' OR strpos(a.user_name, $1) > 0
		ORDER BY a.created_at, a.user_name
	`

	rows, err := r.db.Pool.Query(ctx, query, term)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", database.MapPostgresError(err))
	}

	return scanAccountRows(rows)
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

// Create inserts the account and its role memberships in one transaction.
// Role names that do not exist in the roles table are ignored.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	var created *models.Account
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (id, user_name, email, password_hash, first_name, last_name, failed_attempts, locked_until, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			account.ID, account.UserName, account.Email, account.PasswordHash,
			account.FirstName, account.LastName,
			account.Lockout.FailedAttempts, account.Lockout.LockedUntil, account.CreatedAt,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if err := replaceRoles(ctx, tx, account.ID, account.Roles); err != nil {
			return err
		}

		created, err = findByID(ctx, tx, account.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Update writes profile fields, password hash and role memberships atomically.
// Lockout columns are owned by UpdateLockout and are left untouched.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	if _, err := uuid.Parse(account.ID); err != nil {
		return nil, models.ErrNotFound
	}

	var updated *models.Account
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE accounts SET user_name = $1, email = $2, password_hash = $3, first_name = $4, last_name = $5
			WHERE id = $6
		`,
			account.UserName, account.Email, account.PasswordHash,
			account.FirstName, account.LastName, account.ID,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if err := replaceRoles(ctx, tx, account.ID, account.Roles); err != nil {
			return err
		}

		updated, err = findByID(ctx, tx, account.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func replaceRoles(ctx context.Context, tx pgx.Tx, accountID string, roles []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM account_roles WHERE account_id = $1`, accountID); err != nil {
		return database.MapPostgresError(err)
	}

	if len(roles) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO account_roles (account_id, role_name)
		SELECT $1, name FROM roles WHERE name = ANY($2)
	`, accountID, roles)

	return database.MapPostgresError(err)
}

// UpdateLockout locks the account row, applies fn to the current state and
// persists the resulting lockout fields. Concurrent callers for the same
// account are serialized by the row lock. If fn returns an error nothing is
// written.
func (r *AccountRepository) UpdateLockout(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	var account *models.Account
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1 FOR UPDATE OF a`

		var err error
		account, err = scanAccountRow(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		if err := fn(account); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE accounts SET failed_attempts = $1, locked_until = $2 WHERE id = $3`,
			account.Lockout.FailedAttempts, account.Lockout.LockedUntil, id)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}

	result, err := r.db.Pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) ListRoles(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT name FROM roles ORDER BY name`)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return roles, nil
}

// CreateRole is idempotent
func (r *AccountRepository) CreateRole(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return database.MapPostgresError(err)
}

// ClearExpiredLockouts resets every lockout whose end time has passed
func (r *AccountRepository) ClearExpiredLockouts(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE accounts SET failed_attempts = 0, locked_until = NULL
		WHERE locked_until IS NOT NULL AND locked_until <= $1
	`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
