package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splax/modulehub/internal/domain"
)

const packageColumns = `id, company_id, name, description, current_version, documentation, dependencies, created_at, updated_at`

func scanPackage(row pgx.Row) (*domain.Package, error) {
	var p domain.Package
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.CurrentVersion, &p.Documentation, &p.Dependencies, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if p.Dependencies == nil {
		p.Dependencies = []string{}
	}
	return &p, nil
}

// CreatePackage inserts a package together with its seed versions.
func (r *Repository) CreatePackage(ctx context.Context, pkg *domain.Package) error {
	deps := pkg.Dependencies
	if deps == nil {
		deps = []string{}
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `INSERT INTO packages (` + packageColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := tx.Exec(ctx, query, pkg.ID, pkg.CompanyID, pkg.Name, pkg.Description, pkg.CurrentVersion, pkg.Documentation, deps, pkg.CreatedAt, pkg.UpdatedAt); err != nil {
			return mapError(err)
		}
		for _, v := range pkg.Versions {
			if err := insertVersion(ctx, tx, pkg.ID, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertVersion(ctx context.Context, tx pgx.Tx, packageID string, v domain.Version) error {
	const query = `INSERT INTO package_versions (package_id, version, changelog, published_at, published_by)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(ctx, query, packageID, v.Version, v.Changelog, v.PublishedAt, v.PublishedBy)
	return mapError(err)
}

// GetPackageByID fetches the package with its version history, oldest first.
func (r *Repository) GetPackageByID(ctx context.Context, id string) (*domain.Package, error) {
	p, err := scanPackage(r.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	versions, err := r.listVersions(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Versions = versions[p.ID]
	if p.Versions == nil {
		p.Versions = []domain.Version{}
	}
	return p, nil
}

func (r *Repository) listVersions(ctx context.Context, packageIDs []string) (map[string][]domain.Version, error) {
	const query = `SELECT package_id, version, changelog, published_at, published_by
		FROM package_versions WHERE package_id = ANY($1) ORDER BY id`
	rows, err := r.pool.Query(ctx, query, packageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Version, len(packageIDs))
	for rows.Next() {
		var (
			packageID string
			v         domain.Version
		)
		if err := rows.Scan(&packageID, &v.Version, &v.Changelog, &v.PublishedAt, &v.PublishedBy); err != nil {
			return nil, err
		}
		out[packageID] = append(out[packageID], v)
	}
	return out, rows.Err()
}

// AppendVersion records a release and moves current_version to it.
func (r *Repository) AppendVersion(ctx context.Context, packageID string, version domain.Version) (*domain.Package, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE packages SET current_version = $2, updated_at = $3 WHERE id = $1`
		tag, err := tx.Exec(ctx, query, packageID, version.Version, version.PublishedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return mapError(pgx.ErrNoRows)
		}
		return insertVersion(ctx, tx, packageID, version)
	})
	if err != nil {
		return nil, err
	}
	return r.GetPackageByID(ctx, packageID)
}

// ListPackagesByCompany returns the company's packages, most recently updated first.
func (r *Repository) ListPackagesByCompany(ctx context.Context, companyID string) ([]domain.Package, error) {
	const query = `SELECT ` + packageColumns + ` FROM packages WHERE company_id = $1 ORDER BY updated_at DESC`
	return r.listPackages(ctx, query, companyID)
}

func (r *Repository) listPackages(ctx context.Context, query string, args ...any) ([]domain.Package, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := make([]domain.Package, 0)
	ids := make([]string, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return packages, nil
	}
	versions, err := r.listVersions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range packages {
		packages[i].Versions = versions[packages[i].ID]
		if packages[i].Versions == nil {
			packages[i].Versions = []domain.Version{}
		}
	}
	return packages, nil
}

// CountPackagesByCompany counts the company's packages.
func (r *Repository) CountPackagesByCompany(ctx context.Context, companyID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(1) FROM packages WHERE company_id = $1`, companyID).Scan(&count)
	return count, err
}

// CountPackagesUpdatedSince counts packages whose updated_at is at or after since.
func (r *Repository) CountPackagesUpdatedSince(ctx context.Context, companyID string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(1) FROM packages WHERE company_id = $1 AND updated_at >= $2`, companyID, since).Scan(&count)
	return count, err
}
