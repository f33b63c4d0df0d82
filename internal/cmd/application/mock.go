package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/collector"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/policy"
)

// Mock provides a mock implementation of Application for testing.
// If a function field is nil, the method returns a default value.
type Mock struct {
	ClientFunc       func(opts ...codeinventory.Option) (codeinventory.Client, error)
	PolicyFunc       func() (*policy.Policy, error)
	SourceFunc       func(orgs ...string) (collector.Source, error)
	OrganizationsVal []string
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
}

// Client returns a client using the mock function or a default client.
func (m *Mock) Client(opts ...codeinventory.Option) (codeinventory.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(opts...)
	}
	return codeinventory.New(opts...)
}

// Policy returns a policy using the mock function or the default policy.
func (m *Mock) Policy() (*policy.Policy, error) {
	if m.PolicyFunc != nil {
		return m.PolicyFunc()
	}
	return policy.Default(), nil
}

// Source returns a source using the mock function or a configuration error.
func (m *Mock) Source(orgs ...string) (collector.Source, error) {
	if m.SourceFunc != nil {
		return m.SourceFunc(orgs...)
	}
	return nil, errors.NewConfigError("github", "no source configured", nil)
}

// Organizations returns OrganizationsVal.
func (m *Mock) Organizations() []string {
	return m.OrganizationsVal
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the output format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version returns the version using the mock function or "test".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "test"
}

// Commit returns a fixed commit.
func (m *Mock) Commit() string { return "unknown" }

// Date returns a fixed build date.
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns a fixed builder.
func (m *Mock) BuiltBy() string { return "test" }

var _ Application = (*Mock)(nil)
