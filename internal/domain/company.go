package domain

import "time"

// Company is the tenancy boundary: it owns its packages and member users.
type Company struct {
	ID           string    `json:"_id"`
	CompanyName  string    `json:"companyName"`
	CompanyEmail string    `json:"companyEmail"`
	CompanyCode  string    `json:"companyCode"`
	Domain       string    `json:"domain"`
	Members      []string  `json:"members"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CompanyRef is the populated company shown next to a package.
type CompanyRef struct {
	ID          string `json:"_id"`
	CompanyName string `json:"companyName"`
}
