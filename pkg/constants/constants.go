// Package constants provides shared constants used throughout the codeinventory codebase.
// This includes timeouts, limits, file permissions, and file names that should be
// consistent between the collector, the reconciliation engine and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to code host APIs
	DefaultHTTPTimeout = 30 * time.Second

	// OrganizationCollectTimeout is the timeout for collecting a single organization
	OrganizationCollectTimeout = 10 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 30 * time.Minute

	// AppTokenLifetime is the lifetime of a GitHub App JWT (GitHub caps it at 10 minutes)
	AppTokenLifetime = 9 * time.Minute

	// AppTokenClockSkew backdates App JWTs to tolerate host clock drift
	AppTokenClockSkew = 60 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for internal files like the cross-reference table (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// DefaultConcurrency is the default number of organizations collected at once
	DefaultConcurrency = 4

	// MaxConcurrency caps the collection fan-out
	MaxConcurrency = 32

	// DefaultPageSize is the number of items requested per page from code host APIs
	DefaultPageSize = 100

	// MaxReadmeBytes is the largest README body read from a code host
	MaxReadmeBytes = 1 << 20

	// DefaultPseudonymLength is the number of hex characters kept from the pseudonym hash
	DefaultPseudonymLength = 12

	// MinPseudonymLength is the shortest pseudonym hash accepted by policy validation
	MinPseudonymLength = 8
)

// File name constants
const (
	// CatalogFileName is the public catalog document
	CatalogFileName = "code.json"

	// CrossReferenceFileName is the internal private-id cross-reference table
	CrossReferenceFileName = "private-id-xref.csv"

	// RunLogFileName is the structured run log
	RunLogFileName = "run-log.json"

	// ProvenanceFileName is the per-field provenance report
	ProvenanceFileName = "provenance.yaml"

	// LockFileName guards an output directory while a run writes into it
	LockFileName = ".codeinventory.lock"

	// RawFileExtension is the extension of per-organization raw listings
	RawFileExtension = ".json"
)

// Path constants
const (
	// DefaultRawDir is where per-organization raw listings are stored
	DefaultRawDir = "data/raw"

	// DefaultOutputDir is where the public catalog is written
	DefaultOutputDir = "data/public"

	// DefaultPrivateDir is where internal artifacts are written
	DefaultPrivateDir = "data/private"

	// DefaultConfigPath is the default path for configuration files
	DefaultConfigPath = "~/.codeinventory.yaml"
)

// Format constants
const (
	// TimeFormatISO8601 is the ISO 8601 time format
	TimeFormatISO8601 = time.RFC3339

	// TimeFormatDate is the date-only format used in catalog date blocks
	TimeFormatDate = "2006-01-02"

	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)

// GitHub constants
const (
	// GitHubAPIURL is the default GitHub REST endpoint
	GitHubAPIURL = "https://api.github.com"

	// GitHubAPIVersion is sent as X-GitHub-Api-Version
	GitHubAPIVersion = "2022-11-28"

	// GitHubAcceptHeader is the JSON media type for the REST API
	GitHubAcceptHeader = "application/vnd.github+json"
)
