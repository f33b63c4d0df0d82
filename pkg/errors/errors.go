// Package errors provides custom error types for the code inventory pipeline.
// Record-level problems are modelled as warning types that are recorded in the
// run log; only SchemaViolationError is fatal, and only for catalog emission.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join are re-exported so callers need a single errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNormalization indicates a raw record could not be normalized
	ErrNormalization = errors.New("normalization failed")

	// ErrSchemaViolation indicates the assembled document violates the target schema
	ErrSchemaViolation = errors.New("schema violation")

	// ErrCredentials indicates missing or malformed host credentials
	ErrCredentials = errors.New("invalid credentials")

	// ErrRateLimited indicates that the host API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrHostUnavailable indicates that the code host is temporarily unavailable
	ErrHostUnavailable = errors.New("host unavailable")

	// ErrLocked indicates another run holds the run lock
	ErrLocked = errors.New("locked by another run")
)

// NormalizationError is returned when a raw record lacks a required identity field.
// The record is dropped from the run; the run continues.
type NormalizationError struct {
	Organization string
	Repository   string
	Field        string
	Message      string
}

// Error implements the error interface
func (e *NormalizationError) Error() string {
	id := e.Repository
	if e.Organization != "" {
		id = e.Organization + "/" + e.Repository
	}
	if id == "" || id == "/" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("cannot normalize %s: %s %s", id, e.Field, e.Message)
}

// Is implements errors.Is support
func (e *NormalizationError) Is(target error) bool {
	return target == ErrNormalization
}

// NewNormalizationError creates a new NormalizationError
func NewNormalizationError(organization, repository, field, message string) *NormalizationError {
	return &NormalizationError{
		Organization: organization,
		Repository:   repository,
		Field:        field,
		Message:      message,
	}
}

// MarkerParseWarning describes a malformed or unrecognized README override line.
type MarkerParseWarning struct {
	Repository string
	Line       int
	Text       string
	Message    string
}

// Error implements the error interface
func (e *MarkerParseWarning) Error() string {
	return fmt.Sprintf("marker on line %d of %s: %s (%q)", e.Line, e.Repository, e.Message, e.Text)
}

// InvalidExemptionCombination is recorded when a public repository declares an exemption.
// The classifier clears the exemption and the run continues.
type InvalidExemptionCombination struct {
	Repository string
	Exemption  string
}

// Error implements the error interface
func (e *InvalidExemptionCombination) Error() string {
	return fmt.Sprintf("public repository %s cannot be exempted (%s); exemption cleared", e.Repository, e.Exemption)
}

// CollisionWarning is recorded when two real identifiers hash to the same pseudonym.
type CollisionWarning struct {
	Pseudonym     string
	Disambiguated string
}

// Error implements the error interface
func (e *CollisionWarning) Error() string {
	return fmt.Sprintf("pseudonym collision on %s; assigned %s", e.Pseudonym, e.Disambiguated)
}

// SchemaViolationError reports required top-level fields missing from the assembled document.
type SchemaViolationError struct {
	Fields []string
}

// Error implements the error interface
func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("catalog is missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Is implements errors.Is support
func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// APIError represents an error from a code host API
type APIError struct {
	Host       string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Host, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Host, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 404:
		return target == ErrNotFound
	case e.StatusCode == 429:
		return target == ErrRateLimited
	case e.StatusCode >= 500:
		return target == ErrHostUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(host string, statusCode int, message string) *APIError {
	return &APIError{
		Host:       host,
		StatusCode: statusCode,
		Message:    message,
	}
}

// AuthenticationError represents an authentication failure against a code host
type AuthenticationError struct {
	Host    string
	Method  string // "pat" or "app"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error for %s (%s): %s", e.Host, e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredentials
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "toml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "lock", "rename"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "load", "create", "collect", "assemble"
	Resource  string // "config", "policy", "catalog", "organization"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNormalizationError checks if an error is a normalization failure
func IsNormalizationError(err error) bool {
	return errors.Is(err, ErrNormalization)
}

// IsSchemaViolation checks if an error is a fatal schema violation
func IsSchemaViolation(err error) bool {
	return errors.Is(err, ErrSchemaViolation)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
