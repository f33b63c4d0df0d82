// Package runlog records the structured outcome of a single inventory run.
//
// Every stage reports record-level problems as Entries instead of failing.
// The Log collects them, mirrors each one to zerolog at a matching level and
// writes the whole run as JSON next to the other run artifacts.
package runlog

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/logging"
)

// Severity ranks a run log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// Level maps the severity onto a zerolog level.
func (s Severity) Level() zerolog.Level {
	switch s {
	case SeverityWarning:
		return zerolog.WarnLevel
	case SeverityError, SeverityFatal:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Kind classifies what happened.
type Kind string

// Entry kinds.
const (
	KindCollection             Kind = "collection_failed"
	KindRawFile                Kind = "raw_file_skipped"
	KindEmptyRepository        Kind = "empty_repository_skipped"
	KindNormalization          Kind = "normalization_failed"
	KindUnknownVisibility      Kind = "unknown_visibility"
	KindPrivateCutoff          Kind = "private_cutoff"
	KindMarkerMalformed        Kind = "marker_malformed"
	KindMarkerDuplicate        Kind = "marker_duplicate"
	KindOverride               Kind = "override_applied"
	KindInvalidContactEmail    Kind = "invalid_contact_email"
	KindInvalidStatus          Kind = "invalid_status"
	KindInvalidLaborHours      Kind = "invalid_labor_hours"
	KindInvalidCanonicalSource Kind = "invalid_canonical_source"
	KindInvalidExemptionCombo  Kind = "invalid_exemption_combination"
	KindUnknownExemptionCode   Kind = "unknown_exemption_code"
	KindMissingJustification   Kind = "missing_exemption_justification"
	KindNonCodeExemption       Kind = "non_code_exemption"
	KindDuplicate              Kind = "duplicate"
	KindCrossOrgDuplicate      Kind = "cross_org_duplicate"
	KindForkExcluded           Kind = "fork_excluded"
	KindPseudonymCollision     Kind = "pseudonym_collision"
	KindRecordFailed           Kind = "record_failed"
	KindSchemaViolation        Kind = "schema_violation"
	KindIncompleteRelease      Kind = "incomplete_release"
)

// Entry is one run log line.
type Entry struct {
	Time         time.Time `json:"time"`
	Severity     Severity  `json:"severity"`
	Kind         Kind      `json:"kind"`
	Organization string    `json:"organization,omitempty"`
	Repository   string    `json:"repository,omitempty"`
	Field        string    `json:"field,omitempty"`
	Line         int       `json:"line,omitempty"`
	Message      string    `json:"message"`
	Err          error     `json:"-"`
}

// Warning builds a warning entry from an error.
func Warning(kind Kind, repository string, err error) Entry {
	return Entry{Severity: SeverityWarning, Kind: kind, Repository: repository, Message: err.Error(), Err: err}
}

// Info builds an info entry.
func Info(kind Kind, repository, message string) Entry {
	return Entry{Severity: SeverityInfo, Kind: kind, Repository: repository, Message: message}
}

// Log accumulates entries for a run. It is safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	entries   []Entry
	logger    *zerolog.Logger
	now       func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(l *Log) {
		if id != "" {
			l.runID = id
		}
	}
}

// WithLogger sets the logger entries are mirrored to.
func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates an empty run log.
func New(opts ...Option) *Log {
	l := &Log{
		runID:  uuid.NewString(),
		logger: logging.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.startedAt = l.now().UTC()
	return l
}

// RunID returns the run identifier.
func (l *Log) RunID() string {
	return l.runID
}

// Add appends entries and mirrors them to the logger.
func (l *Log) Add(entries ...Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range entries {
		if e.Time.IsZero() {
			e.Time = l.now().UTC()
		}
		if e.Severity == "" {
			e.Severity = SeverityInfo
		}
		if e.Message == "" && e.Err != nil {
			e.Message = e.Err.Error()
		}
		l.entries = append(l.entries, e)
		l.mirror(e)
	}
}

func (l *Log) mirror(e Entry) {
	event := l.logger.WithLevel(e.Severity.Level()).
		Str("run_id", l.runID).
		Str("kind", string(e.Kind))
	if e.Organization != "" {
		event = event.Str("organization", e.Organization)
	}
	if e.Repository != "" {
		event = event.Str("repository", e.Repository)
	}
	if e.Field != "" {
		event = event.Str("field", e.Field)
	}
	if e.Line > 0 {
		event = event.Int("line", e.Line)
	}
	if e.Err != nil {
		event = event.Err(e.Err)
	}
	event.Msg(e.Message)
}

// Entries returns a copy of every entry in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Filter returns the entries of the given kind.
func (l *Log) Filter(kind Kind) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns all warning entries.
func (l *Log) Warnings() []Entry {
	return l.bySeverity(SeverityWarning)
}

// Errors returns all error and fatal entries.
func (l *Log) Errors() []Entry {
	return append(l.bySeverity(SeverityError), l.bySeverity(SeverityFatal)...)
}

func (l *Log) bySeverity(sev Severity) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}

// Fatal returns the first fatal entry's error, or nil.
func (l *Log) Fatal() error {
	for _, e := range l.Entries() {
		if e.Severity != SeverityFatal {
			continue
		}
		if e.Err != nil {
			return e.Err
		}
		return errors.New(e.Message)
	}
	return nil
}

// Counts returns the number of entries per kind.
func (l *Log) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range l.Entries() {
		counts[e.Kind]++
	}
	return counts
}

// document is the JSON form of a run log.
type document struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Counts    map[string]int `json:"counts"`
	Entries   []Entry        `json:"entries"`
}

// WriteJSON writes the run log as indented JSON.
func (l *Log) WriteJSON(w io.Writer) error {
	entries := l.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})

	doc := document{
		RunID:     l.runID,
		StartedAt: l.startedAt,
		Counts:    make(map[string]int),
		Entries:   entries,
	}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	for kind, n := range l.Counts() {
		doc.Counts[string(kind)] = n
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.WrapParse("json", "run log", err)
	}
	return nil
}
