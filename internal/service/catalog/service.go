package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository"
	"github.com/splax/modulehub/internal/search"
)

const (
	defaultVersion = "0.0.0"
	recentWindow   = 7 * 24 * time.Hour
)

// PublishInput encapsulates package creation attributes.
type PublishInput struct {
	Name          string
	Description   string
	Version       string
	Documentation string
	Dependencies  []string
}

// VersionInput describes a release of an existing package.
type VersionInput struct {
	PackageID string
	Version   string
	Changelog string
}

// Publisher fans catalog events out to recipients.
type Publisher interface {
	PackagePublished(ctx context.Context, actor domain.User, pkg domain.Package) error
	VersionReleased(ctx context.Context, actor domain.User, pkg domain.Package, version domain.Version) error
}

// Store is the persistence the catalog reads and writes.
type Store interface {
	repository.UserRepository
	repository.CompanyRepository
	repository.PackageRepository
}

// Service owns packages and their version history.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a catalog service.
func New(store Store, publisher Publisher, logger *slog.Logger) Service {
	return Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PublishPackage creates a package in the actor's company and notifies its employees.
func (s Service) PublishPackage(ctx context.Context, actorID string, input PublishInput) (*domain.Package, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.HasCompany() {
		s.logger.Warn("publish rejected: user has no company", "user_id", actorID)
		return nil, domain.AuthError("Not authorized as company.")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ValidationError("Package name is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, domain.ValidationError("Package description is required")
	}
	version := strings.TrimSpace(input.Version)
	if version == "" {
		version = defaultVersion
	}

	now := s.now()
	pkg := &domain.Package{
		ID:             uuid.NewString(),
		CompanyID:      actor.CompanyID,
		Name:           name,
		Description:    input.Description,
		CurrentVersion: version,
		Versions: []domain.Version{{
			Version:     version,
			Changelog:   domain.InitialReleaseChangelog,
			PublishedAt: now,
			PublishedBy: actor.ID,
		}},
		Documentation: input.Documentation,
		Dependencies:  cleanDependencies(input.Dependencies),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreatePackage(ctx, pkg); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.ConflictError("Package already exists")
		}
		return nil, domain.InternalError(err)
	}
	s.logger.Info("package published", "package_id", pkg.ID, "company_id", pkg.CompanyID, "version", version)

	if err := s.publisher.PackagePublished(ctx, *actor, *pkg); err != nil {
		s.logger.Error("package publish fan-out failed", "package_id", pkg.ID, "error", err)
	}
	return pkg, nil
}

// PublishVersion appends a release to a package owned by the actor's company
// and notifies its employee subscribers. Versions are recorded verbatim.
func (s Service) PublishVersion(ctx context.Context, actorID string, input VersionInput) (*domain.Package, error) {
	version := strings.TrimSpace(input.Version)
	if version == "" {
		return nil, domain.ValidationError("Version is required")
	}
	pkg, err := s.store.GetPackageByID(ctx, strings.TrimSpace(input.PackageID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError("Package not found")
		}
		return nil, domain.InternalError(err)
	}
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.HasCompany() || actor.CompanyID != pkg.CompanyID {
		return nil, domain.AuthError("Not authorized")
	}

	release := domain.Version{
		Version:     version,
		Changelog:   input.Changelog,
		PublishedAt: s.now(),
		PublishedBy: actor.ID,
	}
	updated, err := s.store.AppendVersion(ctx, pkg.ID, release)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError("Package not found")
		}
		return nil, domain.InternalError(err)
	}
	s.logger.Info("version published", "package_id", updated.ID, "version", version, "actor_id", actor.ID)

	if err := s.publisher.VersionReleased(ctx, *actor, *updated, release); err != nil {
		s.logger.Error("version fan-out failed", "package_id", updated.ID, "error", err)
	}
	return updated, nil
}

// Get returns the full package document.
func (s Service) Get(ctx context.Context, id string) (*domain.Package, error) {
	pkg, err := s.store.GetPackageByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError("Package not found")
		}
		return nil, domain.InternalError(err)
	}
	return pkg, nil
}

// ListForUser returns the packages of the actor's company, most recently updated first.
func (s Service) ListForUser(ctx context.Context, actorID string) ([]domain.Package, error) {
	actor, err := s.companyActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	pkgs, err := s.store.ListPackagesByCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, domain.InternalError(err)
	}
	return pkgs, nil
}

// Stats summarises the actor's company catalog.
func (s Service) Stats(ctx context.Context, actorID string) (*domain.PackageStats, error) {
	actor, err := s.companyActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	packages, err := s.store.CountPackagesByCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, domain.InternalError(err)
	}
	employees, err := s.store.CountUsersByCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, domain.InternalError(err)
	}
	recent, err := s.store.CountPackagesUpdatedSince(ctx, actor.CompanyID, s.now().Add(-recentWindow))
	if err != nil {
		return nil, domain.InternalError(err)
	}
	return &domain.PackageStats{TotalPackages: packages, TotalEmployees: employees, RecentUpdates: recent}, nil
}

// Search ranks the actor's company packages against query.
func (s Service) Search(ctx context.Context, actorID, query string) ([]domain.PackageWithCompany, error) {
	items, err := s.companyCatalog(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return search.Search(items, query, packageFields, search.Options{Now: s.now}), nil
}

// QuickSearch filters the actor's company packages by substring, keeping
// catalog order. It backs type-ahead lookups where ranking is not needed.
func (s Service) QuickSearch(ctx context.Context, actorID, query string) ([]domain.PackageWithCompany, error) {
	items, err := s.companyCatalog(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return search.QuickSearch(items, query, packageFields), nil
}

func (s Service) companyCatalog(ctx context.Context, actorID string) ([]domain.PackageWithCompany, error) {
	actor, err := s.companyActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	pkgs, err := s.store.ListPackagesByCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, domain.InternalError(err)
	}
	ref := domain.CompanyRef{ID: actor.CompanyID}
	if company, err := s.store.GetCompanyByID(ctx, actor.CompanyID); err == nil {
		ref.CompanyName = company.CompanyName
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.InternalError(err)
	}

	items := make([]domain.PackageWithCompany, len(pkgs))
	for i, p := range pkgs {
		items[i] = domain.PackageWithCompany{Package: p, Company: ref}
	}
	return items, nil
}

func packageFields(p domain.PackageWithCompany) search.Fields {
	return search.Fields{
		Name:        p.Name,
		Description: p.Description,
		CompanyName: p.Company.CompanyName,
		UpdatedAt:   p.UpdatedAt,
		CreatedAt:   p.CreatedAt,
	}
}

func (s Service) actor(ctx context.Context, actorID string) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthError("User not found")
		}
		return nil, domain.InternalError(err)
	}
	return user, nil
}

func (s Service) companyActor(ctx context.Context, actorID string) (*domain.User, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.HasCompany() {
		return nil, domain.ValidationError("No company found")
	}
	return actor, nil
}

func cleanDependencies(deps []string) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
