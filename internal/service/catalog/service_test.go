package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository/memory"
)

type publishCall struct {
	actor   string
	pkg     domain.Package
	version string
}

type stubPublisher struct {
	published []publishCall
	released  []publishCall
	err       error
}

func (s *stubPublisher) PackagePublished(_ context.Context, actor domain.User, pkg domain.Package) error {
	s.published = append(s.published, publishCall{actor: actor.ID, pkg: pkg})
	return s.err
}

func (s *stubPublisher) VersionReleased(_ context.Context, actor domain.User, pkg domain.Package, v domain.Version) error {
	s.released = append(s.released, publishCall{actor: actor.ID, pkg: pkg, version: v.Version})
	return s.err
}

var fixedNow = time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (Service, *memory.Store, *stubPublisher) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	if err := store.CreateCompany(ctx, &domain.Company{ID: "c1", CompanyName: "Acme", CompanyEmail: "admin@acme.io", CompanyCode: "CMP-12345"}); err != nil {
		t.Fatalf("seed company: %v", err)
	}
	if err := store.CreateCompany(ctx, &domain.Company{ID: "c2", CompanyName: "Globex", CompanyEmail: "admin@globex.io", CompanyCode: "CMP-54321"}); err != nil {
		t.Fatalf("seed company: %v", err)
	}
	users := []domain.User{
		{ID: "admin", Username: "acme", Email: "admin@acme.io", AccountType: domain.AccountTypeCompany, Role: domain.RoleAdmin, CompanyID: "c1"},
		{ID: "bob", Username: "bob", Email: "bob@acme.io", AccountType: domain.AccountTypeEmployee, Role: domain.RoleDeveloper, CompanyID: "c1"},
		{ID: "globex", Username: "globex", Email: "admin@globex.io", AccountType: domain.AccountTypeCompany, Role: domain.RoleAdmin, CompanyID: "c2"},
		{ID: "loner", Username: "loner", Email: "loner@nowhere.io", AccountType: domain.AccountTypeEmployee, Role: domain.RoleDeveloper},
	}
	for i := range users {
		if err := store.CreateUser(ctx, &users[i]); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	pub := &stubPublisher{}
	svc := New(store, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return fixedNow }
	return svc, store, pub
}

func TestPublishPackageSeedsInitialRelease(t *testing.T) {
	svc, _, pub := setup(t)
	pkg, err := svc.PublishPackage(context.Background(), "admin", PublishInput{
		Name:         "ui-kit",
		Description:  "Shared components",
		Version:      "1.0.0",
		Dependencies: []string{"tokens", " "},
	})
	if err != nil {
		t.Fatalf("PublishPackage: %v", err)
	}
	if pkg.CurrentVersion != "1.0.0" || len(pkg.Versions) != 1 {
		t.Fatalf("unexpected versions %+v", pkg.Versions)
	}
	v := pkg.Versions[0]
	if v.Changelog != domain.InitialReleaseChangelog || v.PublishedBy != "admin" || !v.PublishedAt.Equal(fixedNow) {
		t.Fatalf("unexpected seed version %+v", v)
	}
	if len(pkg.Dependencies) != 1 || pkg.Dependencies[0] != "tokens" {
		t.Fatalf("unexpected dependencies %v", pkg.Dependencies)
	}
	if len(pub.published) != 1 || pub.published[0].actor != "admin" || pub.published[0].pkg.ID != pkg.ID {
		t.Fatalf("expected fan-out for new package, got %+v", pub.published)
	}
}

func TestPublishPackageDefaultsVersion(t *testing.T) {
	svc, _, _ := setup(t)
	pkg, err := svc.PublishPackage(context.Background(), "admin", PublishInput{Name: "tokens", Description: "design tokens"})
	if err != nil {
		t.Fatalf("PublishPackage: %v", err)
	}
	if pkg.CurrentVersion != "0.0.0" || pkg.Versions[0].Version != "0.0.0" {
		t.Fatalf("expected default version, got %s", pkg.CurrentVersion)
	}
}

func TestPublishPackageRejections(t *testing.T) {
	svc, _, pub := setup(t)
	ctx := context.Background()
	first, err := svc.PublishPackage(ctx, "admin", PublishInput{Name: "ui-kit", Description: "x", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("seed publish: %v", err)
	}

	cases := []struct {
		name  string
		actor string
		input PublishInput
		kind  domain.ErrorKind
	}{
		{"no company", "loner", PublishInput{Name: "a", Description: "b"}, domain.KindAuth},
		{"missing name", "admin", PublishInput{Description: "b"}, domain.KindValidation},
		{"missing description", "admin", PublishInput{Name: "a"}, domain.KindValidation},
		{"duplicate name", "admin", PublishInput{Name: "ui-kit", Description: "again"}, domain.KindConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.PublishPackage(ctx, tc.actor, tc.input); domain.KindOf(err) != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}
	if len(pub.published) != 1 {
		t.Fatalf("rejected publishes must not fan out, got %d", len(pub.published))
	}

	stored, err := svc.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.CurrentVersion != "1.0.0" || stored.Description != "x" {
		t.Fatalf("duplicate publish altered the original package: %+v", stored)
	}
	if len(stored.Versions) != 1 || stored.Versions[0].Version != "1.0.0" || stored.Versions[0].Changelog != domain.InitialReleaseChangelog {
		t.Fatalf("duplicate publish altered version history: %+v", stored.Versions)
	}

	other, err := svc.PublishPackage(ctx, "globex", PublishInput{Name: "ui-kit", Description: "same name, other company"})
	if err != nil || other.CompanyID != "c2" {
		t.Fatalf("same name in another company should succeed: %v", err)
	}
}

func TestFanOutFailureDoesNotFailPublish(t *testing.T) {
	svc, _, pub := setup(t)
	pub.err = errors.New("socket down")
	ctx := context.Background()
	pkg, err := svc.PublishPackage(ctx, "admin", PublishInput{Name: "ui-kit", Description: "x", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("publish should succeed, got %v", err)
	}
	if _, err := svc.PublishVersion(ctx, "admin", VersionInput{PackageID: pkg.ID, Version: "1.1.0"}); err != nil {
		t.Fatalf("version should succeed, got %v", err)
	}
}

func TestPublishVersionAppendsVerbatim(t *testing.T) {
	svc, _, pub := setup(t)
	ctx := context.Background()
	pkg, err := svc.PublishPackage(ctx, "admin", PublishInput{Name: "ui-kit", Description: "x", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	updated, err := svc.PublishVersion(ctx, "admin", VersionInput{PackageID: pkg.ID, Version: "0.9.0", Changelog: "rollback"})
	if err != nil {
		t.Fatalf("PublishVersion: %v", err)
	}
	if updated.CurrentVersion != "0.9.0" || len(updated.Versions) != 2 {
		t.Fatalf("unexpected package %+v", updated)
	}
	if updated.Versions[0].Version != "1.0.0" || updated.Versions[1].Changelog != "rollback" {
		t.Fatalf("history must be append-only, got %+v", updated.Versions)
	}
	if len(pub.released) != 1 || pub.released[0].version != "0.9.0" {
		t.Fatalf("expected version fan-out, got %+v", pub.released)
	}

	if _, err := svc.PublishVersion(ctx, "admin", VersionInput{PackageID: "missing", Version: "2.0.0"}); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.PublishVersion(ctx, "globex", VersionInput{PackageID: pkg.ID, Version: "2.0.0"}); domain.KindOf(err) != domain.KindAuth {
		t.Fatalf("expected auth error for foreign company, got %v", err)
	}
	if _, err := svc.PublishVersion(ctx, "admin", VersionInput{PackageID: pkg.ID}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error for empty version, got %v", err)
	}
	stored, _ := svc.Get(ctx, pkg.ID)
	if stored.CurrentVersion != "0.9.0" || len(stored.Versions) != 2 {
		t.Fatalf("rejected releases must not mutate the package: %+v", stored)
	}
}

func TestListStatsAndSearch(t *testing.T) {
	svc, store, _ := setup(t)
	ctx := context.Background()
	old := &domain.Package{ID: "old", CompanyID: "c1", Name: "legacy-grid", Description: "data grid", CurrentVersion: "1.0.0",
		CreatedAt: fixedNow.Add(-30 * 24 * time.Hour), UpdatedAt: fixedNow.Add(-8 * 24 * time.Hour)}
	edge := &domain.Package{ID: "edge", CompanyID: "c1", Name: "charts", Description: "chart widgets", CurrentVersion: "2.0.0",
		CreatedAt: fixedNow.Add(-30 * 24 * time.Hour), UpdatedAt: fixedNow.Add(-7 * 24 * time.Hour)}
	foreign := &domain.Package{ID: "foreign", CompanyID: "c2", Name: "charts", Description: "theirs", UpdatedAt: fixedNow}
	for _, p := range []*domain.Package{old, edge, foreign} {
		if err := store.CreatePackage(ctx, p); err != nil {
			t.Fatalf("seed package: %v", err)
		}
	}

	list, err := svc.ListForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != "edge" || list[1].ID != "old" {
		t.Fatalf("expected company packages newest first, got %+v", list)
	}

	stats, err := svc.Stats(ctx, "admin")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalPackages != 2 || stats.TotalEmployees != 2 || stats.RecentUpdates != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	found, err := svc.Search(ctx, "bob", "grid")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) == 0 || found[0].ID != "old" || found[0].Company.CompanyName != "Acme" {
		t.Fatalf("unexpected search result %+v", found)
	}

	quick, err := svc.QuickSearch(ctx, "bob", "ACME")
	if err != nil {
		t.Fatalf("QuickSearch: %v", err)
	}
	if len(quick) != 2 {
		t.Fatalf("company name match should keep both packages, got %+v", quick)
	}
	quick, err = svc.QuickSearch(ctx, "bob", "widg")
	if err != nil {
		t.Fatalf("QuickSearch: %v", err)
	}
	if len(quick) != 1 || quick[0].ID != "edge" {
		t.Fatalf("expected only the description match, got %+v", quick)
	}
	if quick, _ = svc.QuickSearch(ctx, "bob", "grdi"); len(quick) != 0 {
		t.Fatalf("quick search must not match typos, got %+v", quick)
	}

	for _, call := range []func() error{
		func() error { _, err := svc.ListForUser(ctx, "loner"); return err },
		func() error { _, err := svc.Stats(ctx, "loner"); return err },
		func() error { _, err := svc.Search(ctx, "loner", "x"); return err },
		func() error { _, err := svc.QuickSearch(ctx, "loner", "x"); return err },
	} {
		if err := call(); domain.KindOf(err) != domain.KindValidation || domain.PublicMessage(err) != "No company found" {
			t.Fatalf("expected no company error, got %v", err)
		}
	}
}
