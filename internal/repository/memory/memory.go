// Package memory is an in-process Store used by tests and STORE_DRIVER=memory runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository"
)

// Store keeps every document in maps guarded by a single mutex.
type Store struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	userOrder     []string
	companies     map[string]domain.Company
	packages      map[string]domain.Package
	packageOrder  []string
	subscriptions map[string][]string
	notifications []domain.Notification
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		users:         make(map[string]domain.User),
		companies:     make(map[string]domain.Company),
		packages:      make(map[string]domain.Package),
		subscriptions: make(map[string][]string),
	}
}

var _ repository.Store = (*Store)(nil)

// CreateUser inserts a user, rejecting duplicate email or username.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrConflict
		}
	}
	stored := *user
	stored.Subscriptions = nil
	s.users[user.ID] = stored
	s.userOrder = append(s.userOrder, user.ID)
	if len(user.Subscriptions) > 0 {
		s.subscriptions[user.ID] = append([]string(nil), user.Subscriptions...)
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return s.userCopy(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByUsername fetches a user by username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return s.userCopy(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByID retrieves a user by identifier.
func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.userCopy(u), nil
}

// ListUsersByCompany returns the company's users in registration order.
func (s *Store) ListUsersByCompany(_ context.Context, companyID string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0)
	for _, id := range s.userOrder {
		if u := s.users[id]; u.CompanyID == companyID {
			users = append(users, *s.userCopy(u))
		}
	}
	return users, nil
}

// CountUsersByCompany counts users attached to the company.
func (s *Store) CountUsersByCompany(ctx context.Context, companyID string) (int, error) {
	users, err := s.ListUsersByCompany(ctx, companyID)
	return len(users), err
}

func (s *Store) userCopy(u domain.User) *domain.User {
	u.Subscriptions = append([]string{}, s.subscriptions[u.ID]...)
	return &u
}

// CreateCompany inserts a company, rejecting duplicate email or code.
func (s *Store) CreateCompany(_ context.Context, company *domain.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.companies {
		if existing.CompanyEmail == company.CompanyEmail || existing.CompanyCode == company.CompanyCode {
			return repository.ErrConflict
		}
	}
	stored := *company
	stored.Members = append([]string{}, company.Members...)
	s.companies[company.ID] = stored
	return nil
}

// GetCompanyByID returns a company by identifier.
func (s *Store) GetCompanyByID(_ context.Context, id string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return companyCopy(c), nil
}

// GetCompanyByEmail returns the company administered by email.
func (s *Store) GetCompanyByEmail(_ context.Context, email string) (*domain.Company, error) {
	return s.findCompany(func(c domain.Company) bool { return c.CompanyEmail == email })
}

// GetCompanyByCode resolves a join code.
func (s *Store) GetCompanyByCode(_ context.Context, code string) (*domain.Company, error) {
	return s.findCompany(func(c domain.Company) bool { return c.CompanyCode == code })
}

func (s *Store) findCompany(match func(domain.Company) bool) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.companies {
		if match(c) {
			return companyCopy(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func companyCopy(c domain.Company) *domain.Company {
	c.Members = append([]string{}, c.Members...)
	return &c
}

// AddMember appends userID to the company's member list.
func (s *Store) AddMember(_ context.Context, companyID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[companyID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Members = append(c.Members, userID)
	c.UpdatedAt = time.Now().UTC()
	s.companies[companyID] = c
	return nil
}

// CreatePackage inserts a package, rejecting a duplicate name inside the company.
func (s *Store) CreatePackage(_ context.Context, pkg *domain.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.packages {
		if existing.CompanyID == pkg.CompanyID && existing.Name == pkg.Name {
			return repository.ErrConflict
		}
	}
	s.packages[pkg.ID] = pkg.Clone()
	s.packageOrder = append(s.packageOrder, pkg.ID)
	return nil
}

// GetPackageByID returns the full package document.
func (s *Store) GetPackageByID(_ context.Context, id string) (*domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := p.Clone()
	return &clone, nil
}

// AppendVersion appends a release and returns the updated package.
func (s *Store) AppendVersion(_ context.Context, packageID string, version domain.Version) (*domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packages[packageID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = p.Clone()
	p.AppendVersion(version)
	s.packages[packageID] = p
	clone := p.Clone()
	return &clone, nil
}

// ListPackagesByCompany returns the company's packages, most recently updated first.
func (s *Store) ListPackagesByCompany(_ context.Context, companyID string) ([]domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	packages := make([]domain.Package, 0)
	for _, id := range s.packageOrder {
		if p := s.packages[id]; p.CompanyID == companyID {
			packages = append(packages, p.Clone())
		}
	}
	sort.SliceStable(packages, func(i, j int) bool {
		return packages[i].UpdatedAt.After(packages[j].UpdatedAt)
	})
	return packages, nil
}

// CountPackagesByCompany counts the company's packages.
func (s *Store) CountPackagesByCompany(ctx context.Context, companyID string) (int, error) {
	packages, err := s.ListPackagesByCompany(ctx, companyID)
	return len(packages), err
}

// CountPackagesUpdatedSince counts packages whose updatedAt is at or after since.
func (s *Store) CountPackagesUpdatedSince(_ context.Context, companyID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.packages {
		if p.CompanyID == companyID && !p.UpdatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// ListSubscriptions returns the user's subscribed package ids in subscription order.
func (s *Store) ListSubscriptions(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	return append([]string{}, s.subscriptions[userID]...), nil
}

// AddSubscription appends packageID to the user's subscription set.
func (s *Store) AddSubscription(_ context.Context, userID, packageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	if slices.Contains(s.subscriptions[userID], packageID) {
		return nil
	}
	s.subscriptions[userID] = append(s.subscriptions[userID], packageID)
	return nil
}

// RemoveSubscription drops packageID from the user's subscription set.
func (s *Store) RemoveSubscription(_ context.Context, userID, packageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	s.subscriptions[userID] = slices.DeleteFunc(s.subscriptions[userID], func(id string) bool {
		return id == packageID
	})
	return nil
}

// ListSubscribedPackages returns subscribed packages with the owning company name.
func (s *Store) ListSubscribedPackages(_ context.Context, userID string) ([]domain.PackageWithCompany, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.PackageWithCompany, 0)
	for _, id := range s.subscriptions[userID] {
		p, ok := s.packages[id]
		if !ok {
			continue
		}
		c := s.companies[p.CompanyID]
		result = append(result, domain.PackageWithCompany{
			Package: p.Clone(),
			Company: domain.CompanyRef{ID: p.CompanyID, CompanyName: c.CompanyName},
		})
	}
	return result, nil
}

// ListSubscribers returns every user subscribed to packageID.
func (s *Store) ListSubscribers(_ context.Context, packageID string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0)
	for _, id := range s.userOrder {
		if slices.Contains(s.subscriptions[id], packageID) {
			users = append(users, *s.userCopy(s.users[id]))
		}
	}
	return users, nil
}

// InsertNotifications appends inbox rows. The batch is rejected whole when
// any row carries an unknown type.
func (s *Store) InsertNotifications(_ context.Context, notifications []domain.Notification) error {
	for _, n := range notifications {
		if !n.Type.Valid() {
			return fmt.Errorf("%w: notification type %q", repository.ErrInvalid, n.Type)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notifications...)
	return nil
}

// ListNotifications returns the newest notifications for recipientID.
func (s *Store) ListNotifications(_ context.Context, recipientID string, limit int) ([]domain.NotificationView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make([]domain.NotificationView, 0)
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.RecipientID != recipientID {
			continue
		}
		view := domain.NotificationView{Notification: n}
		if p, ok := s.packages[n.RelatedPackageID]; ok {
			view.RelatedPackage = &domain.PackageRef{ID: p.ID, Name: p.Name}
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID > views[j].ID
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// MarkAllRead flags every unread notification of recipientID as read.
func (s *Store) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i := range s.notifications {
		if s.notifications[i].RecipientID == recipientID && !s.notifications[i].Read {
			s.notifications[i].Read = true
			updated++
		}
	}
	return updated, nil
}
