// Package app wires configuration, logging and the inventory client into the
// codeinventory CLI.
package app

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/codeinventory"
	"github.com/agentstation/codeinventory/internal/cmd/application"
	"github.com/agentstation/codeinventory/internal/collector"
	"github.com/agentstation/codeinventory/internal/github"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/policy"
)

// App represents the codeinventory application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Policy (lazy-initialized)
	mu     sync.RWMutex
	policy *policy.Policy
	source collector.Source
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Organizations returns the organizations named by GH_ORG or the config file.
func (a *App) Organizations() []string {
	return a.config.Organizations
}

// Policy returns the pipeline policy, loading the configured policy file once.
func (a *App) Policy() (*policy.Policy, error) {
	a.mu.RLock()
	if a.policy != nil {
		p := a.policy
		a.mu.RUnlock()
		return p, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.policy != nil {
		return a.policy, nil
	}

	if a.config.PolicyFile == "" {
		a.policy = policy.Default()
		return a.policy, nil
	}
	p, err := policy.Load(a.config.PolicyFile)
	if err != nil {
		return nil, errors.WrapResource("load", "policy", a.config.PolicyFile, err)
	}
	a.logger.Debug().Str("path", a.config.PolicyFile).Msg("Loaded policy")
	a.policy = p
	return p, nil
}

// Source returns the GitHub source configured from the environment.
// orgs satisfy the organization requirement when GH_ORG is unset.
func (a *App) Source(orgs ...string) (collector.Source, error) {
	a.mu.RLock()
	src := a.source
	a.mu.RUnlock()
	if src != nil {
		return src, nil
	}

	creds, err := github.LoadCredentials(nil)
	if err != nil {
		return nil, err
	}
	if creds.Organization == "" {
		creds.Organization = strings.Join(orgs, ",")
	}
	if err := creds.Verify(); err != nil {
		return nil, err
	}
	auth, err := creds.Authenticator()
	if err != nil {
		return nil, err
	}
	method := "pat"
	if creds.UsingApp() {
		method = "app"
	}
	a.logger.Debug().Str("api_url", creds.APIURL).Str("auth", method).Msg("Configured GitHub source")
	return github.NewSource(github.NewClient(creds.APIURL, auth)), nil
}

// Client returns an inventory client built from the configuration. Extra
// options are applied last.
func (a *App) Client(opts ...codeinventory.Option) (codeinventory.Client, error) {
	p, err := a.Policy()
	if err != nil {
		return nil, err
	}

	base := []codeinventory.Option{
		codeinventory.WithPolicy(p),
		codeinventory.WithRawDir(a.config.RawDir),
		codeinventory.WithOutputDir(a.config.OutputDir),
		codeinventory.WithPrivateDir(a.config.PrivateDir),
		codeinventory.WithSalt(a.config.Salt),
	}
	if a.config.Concurrency > 0 {
		base = append(base, codeinventory.WithConcurrency(a.config.Concurrency))
	}
	if a.config.CollectTimeout > 0 {
		base = append(base, codeinventory.WithCollectTimeout(a.config.CollectTimeout))
	}

	client, err := codeinventory.New(append(base, opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	return client, nil
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithPolicy sets the policy instead of loading the configured file.
func WithPolicy(p *policy.Policy) Option {
	return func(a *App) error {
		a.policy = p
		return nil
	}
}

// WithSource sets the collection source instead of reading GitHub
// credentials from the environment.
func WithSource(src collector.Source) Option {
	return func(a *App) error {
		a.source = src
		return nil
	}
}
