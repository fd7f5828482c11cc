package auth

import (
	"encoding/json"
	"strings"

	"github.com/splax/modulehub/internal/domain"
)

// Credentials are the account fields shared by every registration.
type Credentials struct {
	Username string
	Name     string
	Email    string
	Password string
}

// RegistrationRequest is either a CompanyRegistration or an EmployeeRegistration.
type RegistrationRequest interface {
	AccountType() domain.AccountType
	credentials() Credentials
}

// CompanyRegistration creates a company and its admin account.
type CompanyRegistration struct {
	Credentials
	CompanyName string
	Domain      string
}

// AccountType implements RegistrationRequest.
func (CompanyRegistration) AccountType() domain.AccountType { return domain.AccountTypeCompany }

func (r CompanyRegistration) credentials() Credentials { return r.Credentials }

// EmployeeRegistration joins an existing company by its code.
type EmployeeRegistration struct {
	Credentials
	CompanyCode string
	Role        domain.Role
}

// AccountType implements RegistrationRequest.
func (EmployeeRegistration) AccountType() domain.AccountType { return domain.AccountTypeEmployee }

func (r EmployeeRegistration) credentials() Credentials { return r.Credentials }

type registrationPayload struct {
	AccountType string `json:"accountType"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
	CompanyCode string `json:"companyCode"`
	Domain      string `json:"domain"`
	Role        string `json:"role"`
}

// DecodeRegistration reads a register body and selects the variant by
// accountType. A missing accountType registers an employee.
func DecodeRegistration(raw []byte) (RegistrationRequest, error) {
	var p registrationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, domain.ValidationError("Invalid request payload")
	}
	creds := Credentials{Username: p.Username, Name: p.Name, Email: p.Email, Password: p.Password}
	switch domain.AccountType(strings.ToLower(strings.TrimSpace(p.AccountType))) {
	case domain.AccountTypeCompany:
		return CompanyRegistration{Credentials: creds, CompanyName: p.CompanyName, Domain: p.Domain}, nil
	case domain.AccountTypeEmployee, "":
		return EmployeeRegistration{Credentials: creds, CompanyCode: p.CompanyCode, Role: domain.Role(p.Role)}, nil
	default:
		return nil, domain.ValidationError("Invalid account type")
	}
}
