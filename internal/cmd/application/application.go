// Package application provides the application interface for codeinventory
// commands.
//
// Commands accept this interface rather than the concrete App type so they
// can be tested with Mock:
//
//	mock := &application.Mock{
//	    ClientFunc: func(opts ...codeinventory.Option) (codeinventory.Client, error) {
//	        return codeinventory.New(append(testOpts, opts...)...)
//	    },
//	}
//	cmd := combine.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/collector"
	"github.com/agentstation/codeinventory/pkg/policy"
)

// Application provides the dependencies that commands need.
type Application interface {
	// Client returns an inventory client built from the configuration.
	// Extra options are applied after the configured ones.
	Client(opts ...codeinventory.Option) (codeinventory.Client, error)

	// Policy returns the configured pipeline policy.
	Policy() (*policy.Policy, error)

	// Source returns the code host source used for collection. orgs
	// satisfy the organization requirement when none is configured.
	Source(orgs ...string) (collector.Source, error)

	// Organizations returns the organizations configured for collection.
	Organizations() []string

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
