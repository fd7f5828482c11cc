package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/splax/modulehub/internal/domain"
)

const userColumns = `id, username, email, password_hash, account_type, role, company_id, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		companyID sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AccountType, &u.Role, &companyID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.CompanyID = companyID.String
	return &u, nil
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	var companyID any
	if user.CompanyID != "" {
		companyID = user.CompanyID
	}
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.AccountType, user.Role, companyID, user.CreatedAt, user.UpdatedAt)
	return mapError(err)
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *Repository) getUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	subs, err := r.ListSubscriptions(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Subscriptions = subs
	return u, nil
}

// ListUsersByCompany returns the company's users in registration order.
func (r *Repository) ListUsersByCompany(ctx context.Context, companyID string) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 ORDER BY created_at, id`
	return r.listUsers(ctx, query, companyID)
}

func (r *Repository) listUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsersByCompany counts users attached to the company.
func (r *Repository) CountUsersByCompany(ctx context.Context, companyID string) (int, error) {
	const query = `SELECT COUNT(1) FROM users WHERE company_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, companyID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
