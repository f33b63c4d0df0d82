// Package reconciler turns raw repository records into the public code
// inventory catalog. It runs the normalize, marker merge, exemption
// classification, deduplication, pseudonymization and assembly stages in
// order, isolating per-record failures and recording every warning in the
// run log.
package reconciler

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/codeinventory/pkg/assemble"
	"github.com/agentstation/codeinventory/pkg/authority"
	"github.com/agentstation/codeinventory/pkg/differ"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/exemption"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/logging"
	"github.com/agentstation/codeinventory/pkg/markers"
	"github.com/agentstation/codeinventory/pkg/normalize"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/provenance"
	"github.com/agentstation/codeinventory/pkg/pseudonym"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Reconciler is the main interface for reconciling raw repository records.
type Reconciler interface {
	// Reconcile runs every stage over the raw records of one run.
	// An error is returned only when no catalog can be emitted.
	Reconcile(ctx context.Context, raws []inventory.RawRepository) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	policy        *policy.Policy
	authorities   authority.Authority
	tracking      bool
	salt          []byte
	now           func() time.Time
	log           *runlog.Log
	baseline      *inventory.Catalog
	organizations []string
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	r := &reconciler{
		policy:        options.policy,
		authorities:   options.authorities,
		tracking:      options.tracking,
		salt:          options.salt,
		now:           options.now,
		log:           options.log,
		baseline:      options.baseline,
		organizations: options.organizations,
	}
	return r, nil
}

// reconcileContext holds the state of one run.
type reconcileContext struct {
	merger        Merger
	tracker       provenance.Tracker
	pseudonymizer *pseudonym.Pseudonymizer
	log           *runlog.Log
	logger        *zerolog.Logger
	result        *Result
}

// Reconcile performs reconciliation with clean step-by-step flow.
func (r *reconciler) Reconcile(ctx context.Context, raws []inventory.RawRepository) (*Result, error) {
	// Step 1: Initialize run state
	rctx, err := r.initialize(ctx)
	if err != nil {
		return nil, err
	}
	rctx.result.Metadata.Stats.RecordsRead = len(raws)

	// Step 2: Normalize, merge and classify each record in isolation
	var records []inventory.CanonicalRecord
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, ok := r.record(rctx, raw)
		if ok {
			records = append(records, rec)
		}
	}
	rctx.logger.Info().
		Int("records", len(records)).
		Int("raw", len(raws)).
		Msg("Records classified")

	// Step 3: Drop forks and duplicates
	deduped := pseudonym.Dedupe(records)
	rctx.log.Add(deduped.Entries...)
	rctx.result.Metadata.Stats.RecordsExcluded += len(records) - len(deduped.Records)

	// Step 4: Pseudonymize non-public records
	assigned := rctx.pseudonymizer.Assign(deduped.Records)
	rctx.log.Add(assigned.Entries...)

	// Step 5: Assemble the catalog
	orgs := r.organizationList(raws)
	assembled, err := assemble.Assemble(assigned.Records, orgs, r.policy, r.now())
	if err != nil {
		rctx.log.Add(runlog.Entry{Severity: runlog.SeverityFatal, Kind: runlog.KindSchemaViolation, Message: err.Error(), Err: err})
		return nil, err
	}
	rctx.log.Add(assembled.Entries...)

	// Step 6: Compute changeset against the previous catalog
	var changeset *differ.Changeset
	if r.baseline != nil {
		changeset = differ.New().Catalogs(r.baseline, assembled.Catalog)
		rctx.logger.Debug().Str("changes", changeset.String()).Msg("Compared with previous catalog")
	}

	// Step 7: Build and return result
	return r.result(rctx, assembled.Catalog, assigned, changeset, orgs), nil
}

// initialize sets up the run state.
func (r *reconciler) initialize(ctx context.Context) (*reconcileContext, error) {
	log := r.log
	if log == nil {
		log = runlog.New(runlog.WithLogger(logging.FromContext(ctx)), runlog.WithClock(r.now))
	}
	logger := logging.FromContext(logging.WithRunID(ctx, log.RunID()))

	salt := r.salt
	if len(salt) == 0 {
		salt = make([]byte, 32)
		if _, err := rand.Read(salt); err != nil {
			return nil, errors.WrapResource("generate", "salt", "", err)
		}
		logger.Warn().Msg("No pseudonym salt configured; pseudonyms will differ from previous runs")
	}
	ps, err := pseudonym.New(salt, r.policy)
	if err != nil {
		return nil, err
	}

	tracker := provenance.NewTracker(r.tracking)
	result := NewResult(r.now())
	result.Log = log
	result.Metadata.RunID = log.RunID()

	return &reconcileContext{
		merger:        newMerger(r.policy, r.authorities, tracker, r.now),
		tracker:       tracker,
		pseudonymizer: ps,
		log:           log,
		logger:        logger,
		result:        result,
	}, nil
}

// record runs the per-record stages. A record that fails any stage is logged
// and dropped without affecting the others.
func (r *reconciler) record(rctx *reconcileContext, raw inventory.RawRepository) (rec inventory.CanonicalRecord, ok bool) {
	stats := &rctx.result.Metadata.Stats
	defer func() {
		if v := recover(); v != nil {
			rctx.log.Add(runlog.Entry{
				Severity:     runlog.SeverityError,
				Kind:         runlog.KindRecordFailed,
				Organization: raw.Organization,
				Repository:   raw.RealID(),
				Message:      fmt.Sprint(v),
			})
			stats.RecordsDropped++
			rec, ok = inventory.CanonicalRecord{}, false
		}
	}()

	normalized, err := normalize.Normalize(raw, r.policy)
	if err != nil {
		entry := runlog.Warning(runlog.KindNormalization, raw.RealID(), err)
		entry.Severity = runlog.SeverityError
		entry.Organization = raw.Organization
		rctx.log.Add(entry)
		stats.RecordsDropped++
		return inventory.CanonicalRecord{}, false
	}
	rctx.log.Add(normalized.Entries...)
	rec = normalized.Record

	if r.excludedByCutoff(rec) {
		entry := runlog.Info(runlog.KindPrivateCutoff, rec.RealID,
			"not modified since "+r.policy.PrivateCutoff().Format(time.DateOnly))
		entry.Organization = rec.SourceOrganization
		rctx.log.Add(entry)
		stats.RecordsExcluded++
		return inventory.CanonicalRecord{}, false
	}

	found := markers.Extract(raw.Readme, r.policy)
	for _, d := range found.Diagnostics {
		r.diagnostic(rctx, rec, d)
	}

	merged := rctx.merger.Merge(rec, found)
	rctx.log.Add(merged.Entries...)
	rctx.result.Audits = append(rctx.result.Audits, merged.Audits...)
	stats.OverridesApplied += len(merged.Audits)

	classified := exemption.Classify(merged.Record, r.policy)
	rctx.log.Add(classified.Entries...)
	return classified.Record, true
}

// excludedByCutoff reports whether a non-public record predates the policy cutoff.
func (r *reconciler) excludedByCutoff(rec inventory.CanonicalRecord) bool {
	cutoff := r.policy.PrivateCutoff()
	if cutoff.IsZero() || rec.Visibility.IsPublic() || rec.Dates.LastModified.IsZero() {
		return false
	}
	return rec.Dates.LastModified.Before(cutoff)
}

// diagnostic records a marker diagnostic. Unrecognized keys are logged at
// debug level only.
func (r *reconciler) diagnostic(rctx *reconcileContext, rec inventory.CanonicalRecord, d markers.Diagnostic) {
	var kind runlog.Kind
	switch d.Kind {
	case markers.DiagnosticMalformed:
		kind = runlog.KindMarkerMalformed
	case markers.DiagnosticDuplicate:
		kind = runlog.KindMarkerDuplicate
	default:
		rctx.logger.Debug().
			Str("repository", rec.RealID).
			Int("line", d.Line).
			Str("key", d.Key).
			Msg("Unrecognized marker key")
		return
	}

	entry := runlog.Warning(kind, rec.RealID, d.Warning(rec.RealID))
	entry.Organization = rec.SourceOrganization
	entry.Field = d.Field.String()
	entry.Line = d.Line
	rctx.log.Add(entry)
}

// organizationList returns the configured organizations or those seen in raws.
func (r *reconciler) organizationList(raws []inventory.RawRepository) []string {
	if len(r.organizations) > 0 {
		return r.organizations
	}
	seen := make(map[string]bool)
	var orgs []string
	for _, raw := range raws {
		key := strings.ToLower(raw.Organization)
		if raw.Organization != "" && !seen[key] {
			seen[key] = true
			orgs = append(orgs, raw.Organization)
		}
	}
	sort.Strings(orgs)
	return orgs
}

// result fills in the final result and statistics.
func (r *reconciler) result(rctx *reconcileContext, catalog *inventory.Catalog, assigned pseudonym.AssignResult, changeset *differ.Changeset, orgs []string) *Result {
	res := rctx.result
	res.Catalog = catalog
	res.Records = assigned.Records
	res.Mappings = assigned.Mappings
	res.Changeset = changeset
	res.Provenance = rctx.tracker.Map()
	res.Metadata.Organizations = catalog.Organizations

	stats := &res.Metadata.Stats
	stats.RecordsPublished = len(assigned.Records)
	for _, rec := range assigned.Records {
		switch rec.Publication {
		case inventory.PublicationOpen:
			stats.Open++
		case inventory.PublicationExempt:
			stats.Exempt++
		case inventory.PublicationWithheld:
			stats.Withheld++
		}
	}

	res.Finalize(r.now())
	rctx.logger.Info().
		Int("published", stats.RecordsPublished).
		Int("organizations", len(orgs)).
		Int("overrides", stats.OverridesApplied).
		Dur("duration", res.Metadata.Duration).
		Msg("Reconciliation complete")
	return res
}
