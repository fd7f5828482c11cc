package notification

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository/memory"
)

type pushed struct {
	target string
	event  domain.RealtimeNotification
}

type fakeDelivery struct {
	groups     []pushed
	recipients []pushed
}

func (f *fakeDelivery) BroadcastToGroup(groupID string, event domain.RealtimeNotification) (int, error) {
	f.groups = append(f.groups, pushed{target: groupID, event: event})
	return 0, nil
}

func (f *fakeDelivery) SendToRecipient(recipientID string, event domain.RealtimeNotification) (int, error) {
	f.recipients = append(f.recipients, pushed{target: recipientID, event: event})
	return 1, nil
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	users := []domain.User{
		{ID: "admin", Username: "acme", Email: "admin@acme.io", AccountType: domain.AccountTypeCompany, Role: domain.RoleAdmin, CompanyID: "c1"},
		{ID: "bob", Username: "bob", Email: "bob@acme.io", AccountType: domain.AccountTypeEmployee, Role: domain.RoleDeveloper, CompanyID: "c1"},
		{ID: "eve", Username: "eve", Email: "eve@acme.io", AccountType: domain.AccountTypeEmployee, Role: domain.RoleMaintainer, CompanyID: "c1"},
		{ID: "zed", Username: "zed", Email: "zed@globex.io", AccountType: domain.AccountTypeEmployee, Role: domain.RoleDeveloper, CompanyID: "c2"},
	}
	for i := range users {
		if err := store.CreateUser(ctx, &users[i]); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	pkg := &domain.Package{ID: "p1", CompanyID: "c1", Name: "ui-kit", Description: "components", CurrentVersion: "1.0.0"}
	if err := store.CreatePackage(ctx, pkg); err != nil {
		t.Fatalf("seed package: %v", err)
	}
	return store
}

func newService(store Store, delivery Delivery) *Service {
	return New(store, delivery, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
}

func TestPackagePublishedNotifiesEmployeesExceptActor(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	delivery := &fakeDelivery{}
	svc := newService(store, delivery)

	actor := domain.User{ID: "eve", AccountType: domain.AccountTypeEmployee, CompanyID: "c1"}
	pkg := domain.Package{ID: "p1", CompanyID: "c1", Name: "ui-kit", CurrentVersion: "1.0.0"}
	if err := svc.PackagePublished(ctx, actor, pkg); err != nil {
		t.Fatalf("PackagePublished: %v", err)
	}

	for _, id := range []string{"admin", "eve", "zed"} {
		items, _ := svc.ListRecent(ctx, id)
		if len(items) != 0 {
			t.Fatalf("%s should not be notified, got %+v", id, items)
		}
	}
	items, err := svc.ListRecent(ctx, "bob")
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one notification for bob, got %d", len(items))
	}
	n := items[0]
	if n.Type != domain.NotificationNewPackage || n.Title != "New Package: ui-kit" || n.Message != "ui-kit v1.0.0 has been published." || n.Read {
		t.Fatalf("unexpected notification %+v", n)
	}
	if len(delivery.groups) != 1 || delivery.groups[0].target != "c1" {
		t.Fatalf("expected one company broadcast, got %+v", delivery.groups)
	}
}

func TestPackagePublishedBroadcastsWithoutRecipients(t *testing.T) {
	store := memory.New()
	delivery := &fakeDelivery{}
	svc := newService(store, delivery)

	err := svc.PackagePublished(context.Background(), domain.User{ID: "admin"}, domain.Package{ID: "p1", CompanyID: "c9", Name: "solo", CurrentVersion: "0.0.0"})
	if err != nil {
		t.Fatalf("PackagePublished: %v", err)
	}
	if len(delivery.groups) != 1 {
		t.Fatalf("expected broadcast even with an empty company, got %d", len(delivery.groups))
	}
}

func TestVersionReleasedTargetsEmployeeSubscribers(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	for _, id := range []string{"bob", "admin"} {
		if err := store.AddSubscription(ctx, id, "p1"); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	delivery := &fakeDelivery{}
	svc := newService(store, delivery)

	pkg := domain.Package{ID: "p1", CompanyID: "c1", Name: "ui-kit"}
	if err := svc.VersionReleased(ctx, domain.User{ID: "admin"}, pkg, domain.Version{Version: "1.1.0"}); err != nil {
		t.Fatalf("VersionReleased: %v", err)
	}

	if len(delivery.recipients) != 1 || delivery.recipients[0].target != "bob" {
		t.Fatalf("expected a single push to bob, got %+v", delivery.recipients)
	}
	ev := delivery.recipients[0].event
	if ev.Title != "Update: ui-kit" || ev.Message != "ui-kit updated to v1.1.0." || ev.RelatedPackage != "p1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	items, _ := svc.ListRecent(ctx, "admin")
	if len(items) != 0 {
		t.Fatalf("company accounts are not notified, got %d", len(items))
	}
	items, _ = svc.ListRecent(ctx, "bob")
	if len(items) != 1 || items[0].RelatedPackage == nil || items[0].RelatedPackage.Name != "ui-kit" {
		t.Fatalf("expected resolved package on bob's notification, got %+v", items)
	}
}

func TestVersionReleasedWithNoSubscribersIsNoop(t *testing.T) {
	store := seed(t)
	delivery := &fakeDelivery{}
	svc := newService(store, delivery)
	if err := svc.VersionReleased(context.Background(), domain.User{ID: "admin"}, domain.Package{ID: "p1", Name: "ui-kit"}, domain.Version{Version: "2.0.0"}); err != nil {
		t.Fatalf("VersionReleased: %v", err)
	}
	if len(delivery.recipients) != 0 {
		t.Fatalf("expected no pushes, got %d", len(delivery.recipients))
	}
}

func TestListRecentCapsAndMarkAllRead(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	svc := newService(store, &fakeDelivery{})
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]domain.Notification, 25)
	for i := range rows {
		rows[i] = domain.Notification{
			ID:          string(rune('a' + i)),
			RecipientID: "bob",
			Type:        domain.NotificationGeneral,
			Title:       "t",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
	}
	if err := store.InsertNotifications(ctx, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	items, err := svc.ListRecent(ctx, "bob")
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 20 {
		t.Fatalf("expected 20 items, got %d", len(items))
	}
	if !items[0].CreatedAt.Equal(base.Add(24 * time.Minute)) {
		t.Fatalf("expected newest first, got %s", items[0].CreatedAt)
	}

	n, err := svc.MarkAllRead(ctx, "bob")
	if err != nil || n != 25 {
		t.Fatalf("MarkAllRead = %d, %v", n, err)
	}
	n, err = svc.MarkAllRead(ctx, "bob")
	if err != nil || n != 0 {
		t.Fatalf("second MarkAllRead = %d, %v", n, err)
	}
	n, err = svc.MarkAllRead(ctx, "nobody")
	if err != nil || n != 0 {
		t.Fatalf("MarkAllRead for empty inbox = %d, %v", n, err)
	}
}

func TestPackagePublishedByAdminNotifiesEveryEmployee(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	kim := &domain.User{ID: "kim", Username: "kim", Email: "kim@acme.io", AccountType: domain.AccountTypeEmployee, Role: domain.RoleDeveloper, CompanyID: "c1"}
	if err := store.CreateUser(ctx, kim); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	delivery := &fakeDelivery{}
	svc := newService(store, delivery)

	admin := domain.User{ID: "admin", AccountType: domain.AccountTypeCompany, Role: domain.RoleAdmin, CompanyID: "c1"}
	pkg := domain.Package{ID: "p1", CompanyID: "c1", Name: "ui-kit", CurrentVersion: "1.0.0"}
	if err := svc.PackagePublished(ctx, admin, pkg); err != nil {
		t.Fatalf("PackagePublished: %v", err)
	}

	total := 0
	for _, id := range []string{"admin", "bob", "eve", "kim", "zed"} {
		items, err := svc.ListRecent(ctx, id)
		if err != nil {
			t.Fatalf("ListRecent(%s): %v", id, err)
		}
		switch id {
		case "bob", "eve", "kim":
			if len(items) != 1 {
				t.Fatalf("expected one notification for %s, got %d", id, len(items))
			}
		default:
			if len(items) != 0 {
				t.Fatalf("%s should not be notified, got %d", id, len(items))
			}
		}
		total += len(items)
	}
	if total != 3 {
		t.Fatalf("expected exactly 3 notification rows, got %d", total)
	}
	if len(delivery.groups) != 1 || delivery.groups[0].target != "c1" {
		t.Fatalf("expected one company broadcast, got %+v", delivery.groups)
	}
}

func TestInsertRejectsUnknownNotificationType(t *testing.T) {
	store := seed(t)
	svc := newService(store, &fakeDelivery{})
	err := svc.insert(context.Background(), []domain.User{{ID: "bob"}}, domain.NotificationType("digest"), "t", "m", "p1")
	if err == nil {
		t.Fatalf("expected unknown type to be rejected")
	}
	items, _ := svc.ListRecent(context.Background(), "bob")
	if len(items) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(items))
	}
}
