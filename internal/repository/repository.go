package repository

import (
	"context"
	"time"

	"github.com/splax/modulehub/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsersByCompany(ctx context.Context, companyID string) ([]domain.User, error)
	CountUsersByCompany(ctx context.Context, companyID string) (int, error)
}

// CompanyRepository manages tenants and their member lists.
type CompanyRepository interface {
	CreateCompany(ctx context.Context, company *domain.Company) error
	GetCompanyByID(ctx context.Context, id string) (*domain.Company, error)
	GetCompanyByEmail(ctx context.Context, email string) (*domain.Company, error)
	GetCompanyByCode(ctx context.Context, code string) (*domain.Company, error)
	AddMember(ctx context.Context, companyID, userID string) error
}

// PackageRepository persists the catalog and its version history.
type PackageRepository interface {
	CreatePackage(ctx context.Context, pkg *domain.Package) error
	GetPackageByID(ctx context.Context, id string) (*domain.Package, error)
	AppendVersion(ctx context.Context, packageID string, version domain.Version) (*domain.Package, error)
	ListPackagesByCompany(ctx context.Context, companyID string) ([]domain.Package, error)
	CountPackagesByCompany(ctx context.Context, companyID string) (int, error)
	CountPackagesUpdatedSince(ctx context.Context, companyID string, since time.Time) (int, error)
}

// SubscriptionRepository maintains the user <-> package subscription index.
type SubscriptionRepository interface {
	ListSubscriptions(ctx context.Context, userID string) ([]string, error)
	AddSubscription(ctx context.Context, userID, packageID string) error
	RemoveSubscription(ctx context.Context, userID, packageID string) error
	ListSubscribedPackages(ctx context.Context, userID string) ([]domain.PackageWithCompany, error)
	ListSubscribers(ctx context.Context, packageID string) ([]domain.User, error)
}

// NotificationRepository stores the durable inbox.
type NotificationRepository interface {
	InsertNotifications(ctx context.Context, notifications []domain.Notification) error
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.NotificationView, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

// Store bundles every repository the API needs.
type Store interface {
	UserRepository
	CompanyRepository
	PackageRepository
	SubscriptionRepository
	NotificationRepository
}
