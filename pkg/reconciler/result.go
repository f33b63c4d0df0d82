package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/codeinventory/pkg/differ"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/provenance"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Result represents the outcome of a reconciliation run.
type Result struct {
	// Core data
	Catalog   *inventory.Catalog
	Records   []inventory.CanonicalRecord // Published records, pre-redaction
	Mappings  []inventory.PseudonymMapping
	Audits    []inventory.OverrideAudit
	Changeset *differ.Changeset

	// Provenance tracking
	Provenance provenance.Map

	// Issues
	Log *runlog.Log

	// Metadata
	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	// RunID identifies the run in the run log
	RunID string

	// StartTime when reconciliation started
	StartTime time.Time

	// EndTime when reconciliation completed
	EndTime time.Time

	// Duration of the reconciliation
	Duration time.Duration

	// Organizations listed in the catalog
	Organizations []string

	// Statistics about the reconciliation
	Stats ResultStatistics
}

// ResultStatistics contains statistics about the reconciliation.
type ResultStatistics struct {
	RecordsRead      int
	RecordsDropped   int // Normalization or processing failures
	RecordsExcluded  int // Private cutoff, forks and duplicates
	RecordsPublished int
	Open             int
	Exempt           int
	Withheld         int
	OverridesApplied int
	TotalTimeMs      int64
}

// IsSuccess returns true if a catalog was produced without fatal entries.
func (r *Result) IsSuccess() bool {
	return r.Catalog != nil && (r.Log == nil || r.Log.Fatal() == nil)
}

// HasChanges returns true if changes against the baseline were detected.
func (r *Result) HasChanges() bool {
	return r.Changeset != nil && r.Changeset.HasChanges()
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	if !r.IsSuccess() {
		return "Reconciliation failed"
	}

	s := r.Metadata.Stats
	summary := fmt.Sprintf("Reconciled %d repositories: %d published (%d open, %d exempt, %d withheld), %d excluded, %d dropped",
		s.RecordsRead, s.RecordsPublished, s.Open, s.Exempt, s.Withheld, s.RecordsExcluded, s.RecordsDropped)

	if r.HasChanges() {
		return summary + ". " + r.Changeset.String()
	}
	return summary
}

// NewResult creates a new result with defaults.
func NewResult(start time.Time) *Result {
	return &Result{
		Provenance: make(provenance.Map),
		Metadata: ResultMetadata{
			StartTime: start,
		},
	}
}

// Finalize calculates duration and marks completion.
func (r *Result) Finalize(end time.Time) {
	r.Metadata.EndTime = end
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
	r.Metadata.Stats.TotalTimeMs = r.Metadata.Duration.Milliseconds()
}
