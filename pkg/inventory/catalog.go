package inventory

import "time"

// Catalog is the public code inventory document.
// It is rebuilt from scratch on every run and never updated in place.
type Catalog struct {
	Version         string          `json:"version" yaml:"version"`
	Agency          string          `json:"agency" yaml:"agency"`
	MeasurementType MeasurementType `json:"measurementType" yaml:"measurementType"`
	GeneratedAt     time.Time       `json:"generatedAt" yaml:"generatedAt"`
	Organizations   []string        `json:"organizations" yaml:"organizations"`
	Releases        []Release       `json:"releases" yaml:"releases"`
}

// MeasurementType describes how the inventory was counted.
type MeasurementType struct {
	Method string `json:"method" yaml:"method"`
}

// Release is one repository entry of the catalog.
type Release struct {
	Name                 string             `json:"name" yaml:"name"`
	Organization         string             `json:"organization" yaml:"organization"`
	Description          string             `json:"description" yaml:"description"`
	Version              string             `json:"version" yaml:"version"`
	Status               string             `json:"status" yaml:"status"`
	VCS                  string             `json:"vcs" yaml:"vcs"`
	RepositoryURL        string             `json:"repositoryURL" yaml:"repositoryURL"`
	HomepageURL          string             `json:"homepageURL" yaml:"homepageURL"`
	RepositoryVisibility string             `json:"repositoryVisibility" yaml:"repositoryVisibility"`
	LaborHours           float64            `json:"laborHours" yaml:"laborHours"`
	Languages            []string           `json:"languages" yaml:"languages"`
	Tags                 []string           `json:"tags" yaml:"tags"`
	Contact              ReleaseContact     `json:"contact" yaml:"contact"`
	Date                 ReleaseDate        `json:"date" yaml:"date"`
	Permissions          ReleasePermissions `json:"permissions" yaml:"permissions"`
	PrivateID            string             `json:"privateID,omitempty" yaml:"privateID,omitempty"`
}

// ReleaseContact is the contact block of a release.
type ReleaseContact struct {
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ReleaseDate is the date block of a release.
type ReleaseDate struct {
	Created             string `json:"created" yaml:"created"`
	LastModified        string `json:"lastModified" yaml:"lastModified"`
	MetadataLastUpdated string `json:"metadataLastUpdated" yaml:"metadataLastUpdated"`
}

// ReleasePermissions is the permissions block of a release.
type ReleasePermissions struct {
	UsageType     string           `json:"usageType" yaml:"usageType"`
	ExemptionText *string          `json:"exemptionText,omitempty" yaml:"exemptionText,omitempty"`
	Licenses      []ReleaseLicense `json:"licenses" yaml:"licenses"`
}

// ReleaseLicense names one license of a release.
type ReleaseLicense struct {
	Name string `json:"name" yaml:"name"`
}
