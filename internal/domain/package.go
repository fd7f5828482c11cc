package domain

import "time"

// InitialReleaseChangelog labels the seed version of every package.
const InitialReleaseChangelog = "Initial Release"

// Version is one entry of a package's append-only release history.
type Version struct {
	Version     string    `json:"version"`
	Changelog   string    `json:"changelog"`
	PublishedAt time.Time `json:"publishedAt"`
	PublishedBy string    `json:"publishedBy"`
}

// Package is a published component owned by a company.
type Package struct {
	ID             string    `json:"_id"`
	CompanyID      string    `json:"company"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CurrentVersion string    `json:"currentVersion"`
	Versions       []Version `json:"versions"`
	Documentation  string    `json:"documentation"`
	Dependencies   []string  `json:"dependencies"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// AppendVersion records a release and moves currentVersion to it.
func (p *Package) AppendVersion(v Version) {
	p.Versions = append(p.Versions, v)
	p.CurrentVersion = v.Version
	p.UpdatedAt = v.PublishedAt
}

// Clone returns a deep copy so callers cannot mutate stored slices.
func (p Package) Clone() Package {
	p.Versions = append([]Version(nil), p.Versions...)
	p.Dependencies = append([]string(nil), p.Dependencies...)
	return p
}

// PackageWithCompany is a package with its owning company populated.
type PackageWithCompany struct {
	Package
	Company CompanyRef `json:"company"`
}

// PackageStats summarises a company's catalog.
type PackageStats struct {
	TotalPackages  int `json:"totalPackages"`
	TotalEmployees int `json:"totalEmployees"`
	RecentUpdates  int `json:"recentUpdates"`
}
