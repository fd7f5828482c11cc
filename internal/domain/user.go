package domain

import (
	"slices"
	"time"
)

// AccountType distinguishes company administrators from employees.
type AccountType string

const (
	AccountTypeEmployee AccountType = "employee"
	AccountTypeCompany  AccountType = "company"
)

// Role is the user's role inside the owning company.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDeveloper  Role = "developer"
	RoleMaintainer Role = "maintainer"
)

// User represents a registry account.
type User struct {
	ID            string      `json:"_id"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	PasswordHash  []byte      `json:"-"`
	AccountType   AccountType `json:"accountType"`
	Role          Role        `json:"role"`
	CompanyID     string      `json:"company,omitempty"`
	Subscriptions []string    `json:"subscriptions"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// IsEmployee reports whether the account joined a company with a company code.
func (u User) IsEmployee() bool {
	return u.AccountType == AccountTypeEmployee
}

// HasCompany reports whether the account is attached to a tenant.
func (u User) HasCompany() bool {
	return u.CompanyID != ""
}

// IsSubscribed reports whether packageID is in the user's subscription set.
func (u User) IsSubscribed(packageID string) bool {
	return slices.Contains(u.Subscriptions, packageID)
}

// UserProfile is a user with its company populated.
type UserProfile struct {
	User
	Company *Company `json:"company,omitempty"`
}
