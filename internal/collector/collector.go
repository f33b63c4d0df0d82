// Package collector fans raw repository collection out across organizations.
package collector

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/codeinventory/pkg/constants"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Source lists the raw repositories of one organization on a code host.
// Problems with single repositories are recorded in runlog.FromContext(ctx);
// an error fails the whole organization.
type Source interface {
	Collect(ctx context.Context, org string) ([]inventory.RawRepository, error)
}

// Sink receives each organization's listing as soon as it is collected.
type Sink func(org string, raws []inventory.RawRepository) error

// Collector collects organizations concurrently.
type Collector struct {
	source      Source
	concurrency int
	timeout     time.Duration
	log         *runlog.Log
	sink        Sink
}

// Option configures a Collector.
type Option func(*Collector) error

// WithConcurrency bounds how many organizations are collected at once.
func WithConcurrency(n int) Option {
	return func(c *Collector) error {
		if n < 1 || n > constants.MaxConcurrency {
			return errors.NewValidationError("concurrency", n, "must be between 1 and 32")
		}
		c.concurrency = n
		return nil
	}
}

// WithTimeout bounds the time spent on a single organization.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) error {
		if d <= 0 {
			return errors.NewValidationError("timeout", d, "must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithRunLog records collection failures in log.
func WithRunLog(log *runlog.Log) Option {
	return func(c *Collector) error {
		c.log = log
		return nil
	}
}

// WithSink hands every successful listing to sink.
func WithSink(sink Sink) Option {
	return func(c *Collector) error {
		c.sink = sink
		return nil
	}
}

// New creates a collector for source.
func New(source Source, opts ...Option) (*Collector, error) {
	if source == nil {
		return nil, errors.NewValidationError("source", nil, "is required")
	}
	c := &Collector{
		source:      source,
		concurrency: constants.DefaultConcurrency,
		timeout:     constants.OrganizationCollectTimeout,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.log == nil {
		c.log = runlog.New()
	}
	return c, nil
}

// Result holds the outcome of collecting several organizations.
type Result struct {
	Repositories map[string][]inventory.RawRepository
	Failed       map[string]error
	Log          *runlog.Log
}

// Organizations returns the successfully collected organizations, sorted.
func (r *Result) Organizations() []string {
	orgs := make([]string, 0, len(r.Repositories))
	for org := range r.Repositories {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	return orgs
}

// All returns every collected repository ordered by organization.
func (r *Result) All() []inventory.RawRepository {
	var all []inventory.RawRepository
	for _, org := range r.Organizations() {
		all = append(all, r.Repositories[org]...)
	}
	return all
}

// Collect collects every organization. A failing organization is recorded
// and skipped; only cancellation of ctx aborts the whole run.
func (c *Collector) Collect(ctx context.Context, orgs []string) (*Result, error) {
	logger := logging.FromContext(ctx)
	result := &Result{
		Repositories: make(map[string][]inventory.RawRepository),
		Failed:       make(map[string]error),
		Log:          c.log,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, org := range dedupe(orgs) {
		org := org
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raws, err := c.collectOne(gctx, org)
			if err == nil && c.sink != nil {
				err = c.sink(org, raws)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				result.Failed[org] = err
				c.log.Add(runlog.Entry{
					Severity:     runlog.SeverityError,
					Kind:         runlog.KindCollection,
					Organization: org,
					Message:      err.Error(),
					Err:          err,
				})
				return nil
			}
			result.Repositories[org] = raws
			logger.Info().Str("organization", org).Int("repositories", len(raws)).Msg("collected organization")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func (c *Collector) collectOne(ctx context.Context, org string) ([]inventory.RawRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = logging.WithOrganization(ctx, org)
	ctx = runlog.WithContext(ctx, c.log)

	raws, err := c.source.Collect(ctx, org)
	if err != nil {
		return nil, errors.WrapResource("collect", "organization", org, err)
	}
	return raws, nil
}

func dedupe(orgs []string) []string {
	seen := make(map[string]bool, len(orgs))
	out := make([]string, 0, len(orgs))
	for _, org := range orgs {
		org = strings.TrimSpace(org)
		key := strings.ToLower(org)
		if org == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, org)
	}
	return out
}
