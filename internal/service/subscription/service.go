package subscription

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository"
)

// Store is the persistence the subscription index needs.
type Store interface {
	repository.UserRepository
	repository.PackageRepository
	repository.SubscriptionRepository
}

// Service maintains which users follow which packages.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New returns a subscription service.
func New(store Store, logger *slog.Logger) Service {
	return Service{store: store, logger: logger}
}

// Subscribe adds packageID to the user's subscriptions and returns the updated ids.
func (s Service) Subscribe(ctx context.Context, userID, packageID string) ([]string, error) {
	packageID = strings.TrimSpace(packageID)
	if _, err := s.store.GetPackageByID(ctx, packageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError("Package not found")
		}
		return nil, domain.InternalError(err)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthError("User not found")
		}
		return nil, domain.InternalError(err)
	}
	if user.IsSubscribed(packageID) {
		return nil, domain.ConflictError("Already subscribed")
	}
	if err := s.store.AddSubscription(ctx, userID, packageID); err != nil {
		return nil, domain.InternalError(err)
	}
	s.logger.Info("package subscribed", "user_id", userID, "package_id", packageID)
	return s.subscriptions(ctx, userID)
}

// Unsubscribe removes packageID from the user's subscriptions. Removing an
// absent or unknown package succeeds.
func (s Service) Unsubscribe(ctx context.Context, userID, packageID string) ([]string, error) {
	if err := s.store.RemoveSubscription(ctx, userID, strings.TrimSpace(packageID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthError("User not found")
		}
		return nil, domain.InternalError(err)
	}
	s.logger.Info("package unsubscribed", "user_id", userID, "package_id", packageID)
	return s.subscriptions(ctx, userID)
}

// ListSubscribed returns the subscribed packages with their company populated.
func (s Service) ListSubscribed(ctx context.Context, userID string) ([]domain.PackageWithCompany, error) {
	pkgs, err := s.store.ListSubscribedPackages(ctx, userID)
	if err != nil {
		return nil, domain.InternalError(err)
	}
	return pkgs, nil
}

func (s Service) subscriptions(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthError("User not found")
		}
		return nil, domain.InternalError(err)
	}
	return ids, nil
}
