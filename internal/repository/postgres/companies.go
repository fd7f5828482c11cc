package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splax/modulehub/internal/domain"
)

const companyColumns = `id, company_name, company_email, company_code, domain, created_at, updated_at`

// CreateCompany creates a company record.
func (r *Repository) CreateCompany(ctx context.Context, company *domain.Company) error {
	const query = `INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, company.ID, company.CompanyName, company.CompanyEmail, company.CompanyCode, company.Domain, company.CreatedAt, company.UpdatedAt)
	return mapError(err)
}

// GetCompanyByID returns a company by identifier.
func (r *Repository) GetCompanyByID(ctx context.Context, id string) (*domain.Company, error) {
	return r.getCompany(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// GetCompanyByEmail returns the company administered by email.
func (r *Repository) GetCompanyByEmail(ctx context.Context, email string) (*domain.Company, error) {
	return r.getCompany(ctx, `SELECT `+companyColumns+` FROM companies WHERE company_email = $1`, email)
}

// GetCompanyByCode resolves a join code.
func (r *Repository) GetCompanyByCode(ctx context.Context, code string) (*domain.Company, error) {
	return r.getCompany(ctx, `SELECT `+companyColumns+` FROM companies WHERE company_code = $1`, code)
}

func (r *Repository) getCompany(ctx context.Context, query, arg string) (*domain.Company, error) {
	var c domain.Company
	err := r.pool.QueryRow(ctx, query, arg).Scan(&c.ID, &c.CompanyName, &c.CompanyEmail, &c.CompanyCode, &c.Domain, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM company_members WHERE company_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return nil, err
	}
	members, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	c.Members = members
	return &c, nil
}

// AddMember appends a user to the company's member list.
func (r *Repository) AddMember(ctx context.Context, companyID, userID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE companies SET updated_at = $2 WHERE id = $1`, companyID, time.Now().UTC())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return mapError(pgx.ErrNoRows)
		}
		_, err = tx.Exec(ctx, `INSERT INTO company_members (company_id, user_id) VALUES ($1, $2)
			ON CONFLICT (company_id, user_id) DO NOTHING`, companyID, userID)
		return mapError(err)
	})
}
