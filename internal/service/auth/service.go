package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/repository"
	"github.com/splax/modulehub/pkg/config"
	"github.com/splax/modulehub/pkg/crypto"
	jwtpkg "github.com/splax/modulehub/pkg/jwt"
)

const (
	minPasswordLength = 6
	minUsernameLength = 3
	codeAttempts      = 10
	defaultTokenTTL   = 100 * time.Hour
)

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

	errCodesExhausted = errors.New("auth: no free company code")
)

// Service handles registration, login and token checks.
type Service struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	hasher    crypto.Hasher
	logger    *slog.Logger
	cfg       config.APIConfig
	codes     func() string
	now       func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, companies repository.CompanyRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{
		users:     users,
		companies: companies,
		hasher:    crypto.DefaultHasher,
		logger:    logger,
		cfg:       cfg,
		codes:     randomCompanyCode,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithHasher returns a copy of s that hashes passwords with h.
func (s Service) WithHasher(h crypto.Hasher) Service {
	s.hasher = h
	return s
}

// Result is returned by Register and Login.
type Result struct {
	Token       string
	User        *domain.UserProfile
	CompanyCode string
}

// Register creates an account. Company registrations also create the company.
func (s Service) Register(ctx context.Context, req RegistrationRequest) (*Result, error) {
	if err := s.requireSecret(); err != nil {
		return nil, err
	}
	creds, err := normalize(req.credentials())
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByEmail(ctx, creds.Email); err == nil {
		return nil, domain.ConflictError("User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.InternalError(err)
	}
	if _, err := s.users.GetUserByUsername(ctx, creds.Username); err == nil {
		return nil, domain.ConflictError("Username already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.InternalError(err)
	}

	var (
		company *domain.Company
		role    domain.Role
	)
	switch r := req.(type) {
	case CompanyRegistration:
		company, err = s.createCompany(ctx, r, creds.Email)
		role = domain.RoleAdmin
	case EmployeeRegistration:
		company, err = s.resolveCompany(ctx, r.CompanyCode)
		role = domain.RoleDeveloper
		if r.Role == domain.RoleMaintainer {
			role = domain.RoleMaintainer
		}
	default:
		err = domain.ValidationError("Invalid account type")
	}
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return nil, domain.InternalError(err)
	}
	now := s.now()
	user := &domain.User{
		ID:            uuid.NewString(),
		Username:      creds.Username,
		Email:         creds.Email,
		PasswordHash:  hash,
		AccountType:   req.AccountType(),
		Role:          role,
		CompanyID:     company.ID,
		Subscriptions: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.ConflictError("User already exists")
		}
		return nil, domain.InternalError(err)
	}
	if err := s.companies.AddMember(ctx, company.ID, user.ID); err != nil {
		return nil, domain.InternalError(err)
	}
	company.Members = append(company.Members, user.ID)

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "account_type", user.AccountType, "company_id", company.ID)
	return &Result{
		Token:       token,
		User:        &domain.UserProfile{User: *user, Company: company},
		CompanyCode: company.CompanyCode,
	}, nil
}

func (s Service) createCompany(ctx context.Context, r CompanyRegistration, email string) (*domain.Company, error) {
	name := strings.TrimSpace(r.CompanyName)
	if name == "" {
		return nil, domain.ValidationError("Company Name is required")
	}
	if _, err := s.companies.GetCompanyByEmail(ctx, email); err == nil {
		return nil, domain.ValidationError("Company with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.InternalError(err)
	}
	code, err := s.freeCompanyCode(ctx)
	if err != nil {
		return nil, err
	}
	companyDomain := strings.TrimSpace(r.Domain)
	if companyDomain == "" {
		companyDomain = email[strings.LastIndex(email, "@")+1:]
	}
	now := s.now()
	company := &domain.Company{
		ID:           uuid.NewString(),
		CompanyName:  name,
		CompanyEmail: email,
		CompanyCode:  code,
		Domain:       companyDomain,
		Members:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.companies.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.ValidationError("Company with this email already exists")
		}
		return nil, domain.InternalError(err)
	}
	return company, nil
}

// freeCompanyCode draws codes until one is unused.
func (s Service) freeCompanyCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := s.codes()
		_, err := s.companies.GetCompanyByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", domain.InternalError(err)
		}
		s.logger.Debug("company code collision", "code", code, "attempt", attempt+1)
	}
	return "", domain.InternalError(errCodesExhausted)
}

func (s Service) resolveCompany(ctx context.Context, code string) (*domain.Company, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ValidationError("Company Code is required")
	}
	company, err := s.companies.GetCompanyByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ValidationError("Invalid Company Code")
		}
		return nil, domain.InternalError(err)
	}
	return company, nil
}

// Login verifies credentials and issues a token.
func (s Service) Login(ctx context.Context, email, password string) (*Result, error) {
	if err := s.requireSecret(); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthError("Invalid Credentials")
		}
		return nil, domain.InternalError(err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			return nil, domain.AuthError("Invalid Credentials")
		}
		return nil, domain.InternalError(err)
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return &Result{Token: token, User: profile}, nil
}

// Authorize validates a token and returns the associated user.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, domain.AuthError("No token, authorization denied")
	}
	if err := s.requireSecret(); err != nil {
		return nil, err
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, domain.NewError(domain.KindAuth, "Token is not valid", err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthError("Token is not valid")
		}
		return nil, domain.InternalError(err)
	}
	return user, nil
}

// Me returns the caller's profile with the company populated.
func (s Service) Me(ctx context.Context, userID string) (*domain.UserProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthError("User not found")
		}
		return nil, domain.InternalError(err)
	}
	return s.profile(ctx, user)
}

func (s Service) profile(ctx context.Context, user *domain.User) (*domain.UserProfile, error) {
	profile := &domain.UserProfile{User: *user}
	if !user.HasCompany() {
		return profile, nil
	}
	company, err := s.companies.GetCompanyByID(ctx, user.CompanyID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.InternalError(err)
	}
	profile.Company = company
	return profile, nil
}

func (s Service) requireSecret() error {
	if strings.TrimSpace(s.cfg.JWTSecret) == "" {
		s.logger.Error("JWT_SECRET environment variable is not set")
		return domain.ConfigError(config.ErrMissingJWTSecret)
	}
	return nil
}

func (s Service) issueToken(userID string) (string, error) {
	ttl := s.cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, err := jwtpkg.GenerateToken(userID, s.cfg.JWTSecret, ttl)
	if err != nil {
		return "", domain.InternalError(fmt.Errorf("sign token: %w", err))
	}
	return token, nil
}

// normalize validates credentials and derives the username.
func normalize(c Credentials) (Credentials, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if !emailPattern.MatchString(c.Email) {
		return c, domain.ValidationError("Please enter a valid email")
	}
	if len(c.Password) < minPasswordLength {
		return c, domain.ValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	username := strings.TrimSpace(c.Username)
	if username == "" {
		username = strings.TrimSpace(c.Name)
	}
	if username == "" {
		username = c.Email[:strings.Index(c.Email, "@")]
	}
	if len([]rune(username)) < minUsernameLength {
		return c, domain.ValidationError(fmt.Sprintf("Username must be at least %d characters", minUsernameLength))
	}
	c.Username = username
	return c, nil
}

func randomCompanyCode() string {
	return fmt.Sprintf("CMP-%d", 10000+rand.IntN(90000))
}
