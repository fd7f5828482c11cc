package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/modulehub/internal/domain"
)

// ListSubscriptions returns the user's subscribed package ids in subscription order.
func (r *Repository) ListSubscriptions(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT package_id FROM user_subscriptions WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, err
	}
	subs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []string{}
	}
	return subs, nil
}

// AddSubscription appends packageID to the user's subscription set.
func (r *Repository) AddSubscription(ctx context.Context, userID, packageID string) error {
	const query = `INSERT INTO user_subscriptions (user_id, package_id) VALUES ($1, $2)
		ON CONFLICT (user_id, package_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, packageID)
	return mapError(err)
}

// RemoveSubscription drops packageID from the user's subscription set.
func (r *Repository) RemoveSubscription(ctx context.Context, userID, packageID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_subscriptions WHERE user_id = $1 AND package_id = $2`, userID, packageID)
	return err
}

// ListSubscribedPackages returns subscribed packages with the owning company name.
func (r *Repository) ListSubscribedPackages(ctx context.Context, userID string) ([]domain.PackageWithCompany, error) {
	const query = `SELECT p.id, p.company_id, p.name, p.description, p.current_version, p.documentation, p.dependencies,
			p.created_at, p.updated_at, c.company_name
		FROM user_subscriptions s
		INNER JOIN packages p ON p.id = s.package_id
		INNER JOIN companies c ON c.id = p.company_id
		WHERE s.user_id = $1
		ORDER BY s.position`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.PackageWithCompany, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var item domain.PackageWithCompany
		p := &item.Package
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.CurrentVersion, &p.Documentation, &p.Dependencies,
			&p.CreatedAt, &p.UpdatedAt, &item.Company.CompanyName); err != nil {
			return nil, err
		}
		item.Company.ID = p.CompanyID
		result = append(result, item)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return result, nil
	}
	versions, err := r.listVersions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Versions = versions[result[i].ID]
	}
	return result, nil
}

// ListSubscribers returns every user subscribed to packageID.
func (r *Repository) ListSubscribers(ctx context.Context, packageID string) ([]domain.User, error) {
	const query = `SELECT u.id, u.username, u.email, u.password_hash, u.account_type, u.role, u.company_id, u.created_at, u.updated_at
		FROM users u
		INNER JOIN user_subscriptions s ON s.user_id = u.id
		WHERE s.package_id = $1
		ORDER BY u.created_at, u.id`
	return r.listUsers(ctx, query, packageID)
}
