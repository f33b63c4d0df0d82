// Package codeinventory builds a public code inventory catalog from the
// repositories of one or more code host organizations.
//
// A run has two phases. Collect lists every organization and writes one raw
// JSON file per organization. Combine reads the raw files back, reconciles
// host metadata with README override markers, classifies exemptions,
// pseudonymizes non-public repositories and writes the catalog together
// with its private artifacts.
//
// Example usage:
//
//	client, err := codeinventory.New(
//	    codeinventory.WithSource(source),
//	    codeinventory.WithSalt(os.Getenv("CODEINVENTORY_SALT")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.OnReleaseAdded(func(r inventory.Release) {
//	    log.Printf("new release: %s", r.Name)
//	})
//
//	if _, err := client.Collect(ctx, "cdcgov", "cdcent"); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := client.Combine(ctx)
package codeinventory

import (
	"context"
	"os"
	"time"

	"github.com/agentstation/codeinventory/internal/collector"
	"github.com/agentstation/codeinventory/internal/store"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/provenance"
	"github.com/agentstation/codeinventory/pkg/reconciler"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// CollectResult reports which organizations were collected.
type CollectResult = collector.Result

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client runs inventory jobs.
type Client interface {
	// Collect lists each organization and writes its raw file.
	Collect(ctx context.Context, orgs ...string) (*CollectResult, error)

	// Combine reconciles every raw file into the catalog and writes the
	// catalog, cross-reference table, run log and provenance report.
	Combine(ctx context.Context) (*reconciler.Result, error)

	// CrossReference reconciles the raw files and writes only the
	// cross-reference table.
	CrossReference(ctx context.Context) (*reconciler.Result, error)

	// Store returns the artifact locations.
	Store() *store.Store

	// OnReleaseAdded registers a callback for releases new since the previous catalog
	OnReleaseAdded(ReleaseAddedHook)

	// OnReleaseUpdated registers a callback for releases changed since the previous catalog
	OnReleaseUpdated(ReleaseUpdatedHook)

	// OnReleaseRemoved registers a callback for releases dropped since the previous catalog
	OnReleaseRemoved(ReleaseRemovedHook)
}

// client is the default implementation of Client.
type client struct {
	*hooks
	options *options
	store   *store.Store
}

// New creates a new Client with the given options.
func New(opts ...Option) (Client, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &client{
		hooks:   newHooks(),
		options: o,
		store:   store.New(o.rawDir, o.outputDir, o.privateDir),
	}, nil
}

// Store returns the artifact locations.
func (c *client) Store() *store.Store {
	return c.store
}

// Collect lists each organization concurrently and writes its raw file as
// soon as it is collected. Organizations that fail are reported in the
// result and the run log; the others are still written.
func (c *client) Collect(ctx context.Context, orgs ...string) (*CollectResult, error) {
	if c.options.source == nil {
		return nil, &errors.ConfigError{Component: "collect", Message: "no code host source configured"}
	}
	if len(orgs) == 0 {
		return nil, errors.NewValidationError("organizations", orgs, "at least one organization is required")
	}

	log := c.newRunLog(ctx)
	col, err := collector.New(c.options.source,
		collector.WithConcurrency(c.options.concurrency),
		collector.WithTimeout(c.options.timeout),
		collector.WithRunLog(log),
		collector.WithSink(c.store.WriteRaw),
	)
	if err != nil {
		return nil, err
	}

	res, err := col.Collect(ctx, orgs)
	if err != nil {
		return res, err
	}
	if len(res.Repositories) == 0 {
		return res, errors.WrapResource("collect", "organizations", "", errors.New("every organization failed"))
	}
	return res, nil
}

// Combine reconciles every raw file and writes all run artifacts.
func (c *client) Combine(ctx context.Context) (*reconciler.Result, error) {
	return c.run(ctx, true)
}

// CrossReference reconciles every raw file and writes the cross-reference table.
func (c *client) CrossReference(ctx context.Context) (*reconciler.Result, error) {
	return c.run(ctx, false)
}

func (c *client) run(ctx context.Context, publish bool) (*reconciler.Result, error) {
	logger := logging.FromContext(ctx)

	// Step 1: Lock the private directory for the duration of the run
	lock, err := store.TryLock(c.options.privateDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release run lock")
		}
	}()

	log := c.newRunLog(ctx)

	// Step 2: Load raw files
	raws, err := c.store.LoadRaw(log)
	if err != nil {
		return nil, err
	}

	// Step 3: Load the previous catalog for comparison
	opts := []reconciler.Option{
		reconciler.WithPolicy(c.options.policy),
		reconciler.WithClock(c.options.now),
		reconciler.WithRunLog(log),
		reconciler.WithProvenance(c.options.provenance && publish),
	}
	if len(c.options.salt) > 0 {
		opts = append(opts, reconciler.WithSalt(c.options.salt))
	}
	if publish && c.options.previous != "" {
		previous, err := loadPrevious(c.options.previous)
		if err != nil {
			return nil, err
		}
		if previous != nil {
			opts = append(opts, reconciler.WithBaseline(previous))
		} else {
			logger.Info().Str("path", c.options.previous).Msg("No previous catalog; skipping comparison")
		}
	}

	// Step 4: Reconcile
	rec, err := reconciler.New(opts...)
	if err != nil {
		return nil, err
	}
	result, err := rec.Reconcile(ctx, raws)
	if err != nil {
		if writeErr := c.store.WriteRunLog(log); writeErr != nil {
			logger.Error().Err(writeErr).Msg("Failed to write run log")
		}
		return result, err
	}

	// Step 5: Write artifacts
	if err := c.store.WriteCrossReference(result.Mappings); err != nil {
		return result, err
	}
	if publish {
		if err := c.publish(result); err != nil {
			return result, err
		}
		c.hooks.trigger(result.Changeset)
	}

	logger.Info().
		Str("run_id", result.Metadata.RunID).
		Int("releases", len(result.Catalog.Releases)).
		Int("pseudonyms", len(result.Mappings)).
		Msg(result.Summary())
	return result, nil
}

func (c *client) publish(result *reconciler.Result) error {
	if err := c.store.WriteCatalog(result.Catalog); err != nil {
		return err
	}
	if c.options.provenance {
		file := &provenance.File{
			RunID:      result.Metadata.RunID,
			Generated:  result.Catalog.GeneratedAt,
			Overrides:  result.Audits,
			Provenance: result.Provenance,
		}
		if err := c.store.WriteProvenance(file); err != nil {
			return err
		}
	}
	return c.store.WriteRunLog(result.Log)
}

func (c *client) newRunLog(ctx context.Context) *runlog.Log {
	return runlog.New(
		runlog.WithLogger(logging.FromContext(ctx)),
		runlog.WithClock(func() time.Time { return c.options.now() }),
	)
}

func loadPrevious(path string) (*inventory.Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return store.ReadCatalog(path)
}
