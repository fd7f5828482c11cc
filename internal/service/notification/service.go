package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository"
)

const defaultListLimit = 20

// Delivery pushes transient events to connected sessions. A target with no
// live session is a silent no-op.
type Delivery interface {
	BroadcastToGroup(groupID string, event domain.RealtimeNotification) (int, error)
	SendToRecipient(recipientID string, event domain.RealtimeNotification) (int, error)
}

// Store is the persistence the service reads and writes.
type Store interface {
	repository.UserRepository
	repository.SubscriptionRepository
	repository.NotificationRepository
}

// Service writes inbox rows for catalog events and emits realtime pushes.
type Service struct {
	store    Store
	delivery Delivery
	logger   *slog.Logger
	metrics  *metrics
	limit    int
	now      func() time.Time
}

// New constructs a Service. limit caps ListRecent and defaults to 20.
func New(store Store, delivery Delivery, logger *slog.Logger, limit int) *Service {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return &Service{
		store:    store,
		delivery: delivery,
		logger:   logger,
		metrics:  newMetrics(),
		limit:    limit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PackagePublished notifies every employee of the package's company except
// the publisher, then broadcasts to the company room.
func (s *Service) PackagePublished(ctx context.Context, actor domain.User, pkg domain.Package) error {
	members, err := s.store.ListUsersByCompany(ctx, pkg.CompanyID)
	if err != nil {
		return fmt.Errorf("list company users: %w", err)
	}
	title := "New Package: " + pkg.Name
	message := fmt.Sprintf("%s v%s has been published.", pkg.Name, pkg.CurrentVersion)

	recipients := make([]domain.User, 0, len(members))
	for _, u := range members {
		if u.IsEmployee() && u.ID != actor.ID {
			recipients = append(recipients, u)
		}
	}
	if err := s.insert(ctx, recipients, domain.NotificationNewPackage, title, message, pkg.ID); err != nil {
		return err
	}

	event := domain.RealtimeNotification{Type: domain.NotificationNewPackage, Title: title, Message: message}
	sent, err := s.delivery.BroadcastToGroup(pkg.CompanyID, event)
	if err != nil {
		return fmt.Errorf("broadcast new package: %w", err)
	}
	s.metrics.emitted(domain.NotificationNewPackage, sent)
	s.logger.Info("package publish fan-out",
		"package_id", pkg.ID, "company_id", pkg.CompanyID, "recipients", len(recipients), "live_sessions", sent)
	return nil
}

// VersionReleased notifies the package's employee subscribers through their
// personal rooms.
func (s *Service) VersionReleased(ctx context.Context, actor domain.User, pkg domain.Package, version domain.Version) error {
	subscribers, err := s.store.ListSubscribers(ctx, pkg.ID)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	title := "Update: " + pkg.Name
	message := fmt.Sprintf("%s updated to v%s.", pkg.Name, version.Version)

	recipients := make([]domain.User, 0, len(subscribers))
	for _, u := range subscribers {
		if u.IsEmployee() {
			recipients = append(recipients, u)
		}
	}
	if err := s.insert(ctx, recipients, domain.NotificationVersionUpdate, title, message, pkg.ID); err != nil {
		return err
	}

	event := domain.RealtimeNotification{
		Type:           domain.NotificationVersionUpdate,
		Title:          title,
		Message:        message,
		RelatedPackage: pkg.ID,
	}
	sent := 0
	for _, u := range recipients {
		n, err := s.delivery.SendToRecipient(u.ID, event)
		if err != nil {
			return fmt.Errorf("push version update: %w", err)
		}
		sent += n
	}
	s.metrics.emitted(domain.NotificationVersionUpdate, sent)
	s.logger.Info("version release fan-out",
		"package_id", pkg.ID, "version", version.Version, "actor_id", actor.ID, "recipients", len(recipients), "live_sessions", sent)
	return nil
}

func (s *Service) insert(ctx context.Context, recipients []domain.User, kind domain.NotificationType, title, message, packageID string) error {
	if !kind.Valid() {
		return fmt.Errorf("insert notifications: unknown type %q", kind)
	}
	if len(recipients) == 0 {
		return nil
	}
	now := s.now()
	rows := make([]domain.Notification, len(recipients))
	for i, u := range recipients {
		rows[i] = domain.Notification{
			ID:               uuid.NewString(),
			RecipientID:      u.ID,
			Type:             kind,
			Title:            title,
			Message:          message,
			RelatedPackageID: packageID,
			CreatedAt:        now,
		}
	}
	if err := s.store.InsertNotifications(ctx, rows); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	s.metrics.created(kind, len(rows))
	return nil
}

// ListRecent returns the caller's newest notifications.
func (s *Service) ListRecent(ctx context.Context, userID string) ([]domain.NotificationView, error) {
	items, err := s.store.ListNotifications(ctx, userID, s.limit)
	if err != nil {
		return nil, domain.InternalError(err)
	}
	return items, nil
}

// MarkAllRead flags every unread notification of the caller as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, domain.InternalError(err)
	}
	s.logger.Debug("notifications marked read", "user_id", userID, "count", n)
	return n, nil
}
