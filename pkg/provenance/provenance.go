// Package provenance provides field-level tracking of where each reconciled
// value came from, so a published catalog entry can be traced back to a README
// marker, an organization default or the code host.
package provenance

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/codeinventory/pkg/authority"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
)

// Provenance tracks the origin of a field value.
type Provenance struct {
	Source        authority.Source `json:"source" yaml:"source"`                                     // Source that provided the value
	Field         inventory.Field  `json:"field" yaml:"field"`                                       // Field name
	Value         string           `json:"value" yaml:"value"`                                       // The value offered
	Timestamp     time.Time        `json:"timestamp" yaml:"timestamp"`                               // When the value was considered
	Priority      int              `json:"priority" yaml:"priority"`                                 // Authority priority of the source
	Selected      bool             `json:"selected" yaml:"selected"`                                 // Whether this value won
	Reason        string           `json:"reason,omitempty" yaml:"reason,omitempty"`                 // Reason for selecting or rejecting the value
	PreviousValue string           `json:"previous_value,omitempty" yaml:"previous_value,omitempty"` // Value replaced by this one
	Line          int              `json:"line,omitempty" yaml:"line,omitempty"`                     // README line for marker values
}

// Map tracks provenance for multiple repositories.
type Map map[string][]Provenance // key is "repository:field"

// Tracker manages provenance tracking during reconciliation.
type Tracker interface {
	// Track records provenance for a field
	Track(repository string, field inventory.Field, history Provenance)

	// FindByField retrieves provenance for a specific field
	FindByField(repository string, field inventory.Field) []Provenance

	// FindByResource retrieves all provenance for a repository
	FindByResource(repository string) map[inventory.Field][]Provenance

	// Map returns the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

// tracker is the default implementation.
type tracker struct {
	mu         sync.RWMutex
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker. A disabled tracker records nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records provenance for a field.
func (p *tracker) Track(repository string, field inventory.Field, history Provenance) {
	if !p.enabled {
		return
	}
	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now().UTC()
	}
	history.Field = field

	p.mu.Lock()
	defer p.mu.Unlock()
	key := makeKey(repository, field)
	p.provenance[key] = append(p.provenance[key], history)
}

// FindByField retrieves provenance for a specific field.
func (p *tracker) FindByField(repository string, field inventory.Field) []Provenance {
	if !p.enabled {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Provenance(nil), p.provenance[makeKey(repository, field)]...)
}

// FindByResource retrieves all provenance for a repository.
func (p *tracker) FindByResource(repository string) map[inventory.Field][]Provenance {
	if !p.enabled {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[inventory.Field][]Provenance)
	prefix := repository + "|"
	for key, info := range p.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[inventory.Field(field)] = append([]Provenance(nil), info...)
		}
	}
	return result
}

// Map returns a copy of the complete provenance map.
func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(Map, len(p.provenance))
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Clear removes all provenance data.
func (p *tracker) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provenance = make(Map)
}

// makeKey joins repository and field. Real identifiers contain "/" and ":"
// may appear in host names, so "|" is the separator.
func makeKey(repository string, field inventory.Field) string {
	return repository + "|" + string(field)
}

// Report is a per-repository provenance summary.
type Report struct {
	Repositories map[string]RepositoryProvenance `json:"repositories" yaml:"repositories"`
}

// RepositoryProvenance contains provenance for a single repository.
type RepositoryProvenance struct {
	ID     string                    `json:"id" yaml:"id"`
	Fields map[inventory.Field]Field `json:"fields" yaml:"fields"`
}

// Field contains provenance history for a single field.
type Field struct {
	Current   Provenance     `json:"current" yaml:"current"`                         // Selected value and its source
	History   []Provenance   `json:"history,omitempty" yaml:"history,omitempty"`     // Every value considered
	Conflicts []ConflictInfo `json:"conflicts,omitempty" yaml:"conflicts,omitempty"` // Disagreements that were resolved
}

// ConflictInfo describes a conflict that was resolved.
type ConflictInfo struct {
	Sources        []authority.Source `json:"sources" yaml:"sources"`                 // Sources that had conflicting values
	Values         []string           `json:"values" yaml:"values"`                   // The conflicting values
	Resolution     string             `json:"resolution" yaml:"resolution"`           // How the conflict was resolved
	SelectedSource authority.Source   `json:"selected_source" yaml:"selected_source"` // Which source was selected
}

// GenerateReport creates a provenance report from a Map.
func GenerateReport(provenance Map) *Report {
	report := &Report{
		Repositories: make(map[string]RepositoryProvenance),
	}

	for key, infos := range provenance {
		idx := strings.LastIndex(key, "|")
		if idx < 0 {
			continue
		}
		repoID, field := key[:idx], inventory.Field(key[idx+1:])

		repo, exists := report.Repositories[repoID]
		if !exists {
			repo = RepositoryProvenance{
				ID:     repoID,
				Fields: make(map[inventory.Field]Field),
			}
		}

		history := append([]Provenance(nil), infos...)
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Priority > history[j].Priority
		})

		fieldProv := Field{History: history}
		for _, info := range history {
			if info.Selected {
				fieldProv.Current = info
				break
			}
		}
		fieldProv.Conflicts = detectConflicts(history, fieldProv.Current)

		repo.Fields[field] = fieldProv
		report.Repositories[repoID] = repo
	}

	return report
}

// detectConflicts reports a conflict when sources offered different values.
func detectConflicts(infos []Provenance, selected Provenance) []ConflictInfo {
	distinct := make(map[string]bool)
	for _, info := range infos {
		if info.Value != "" {
			distinct[info.Value] = true
		}
	}
	if len(distinct) < 2 {
		return nil
	}

	conflict := ConflictInfo{
		SelectedSource: selected.Source,
		Resolution:     selected.Reason,
	}
	for _, info := range infos {
		if info.Value == "" {
			continue
		}
		conflict.Sources = append(conflict.Sources, info.Source)
		conflict.Values = append(conflict.Values, info.Value)
	}
	return []ConflictInfo{conflict}
}

// String generates a string representation of the provenance report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	repoKeys := make([]string, 0, len(r.Repositories))
	for key := range r.Repositories {
		repoKeys = append(repoKeys, key)
	}
	sort.Strings(repoKeys)

	for _, key := range repoKeys {
		repo := r.Repositories[key]
		sb.WriteString(repo.ID + "\n")
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		fieldKeys := make([]string, 0, len(repo.Fields))
		for field := range repo.Fields {
			fieldKeys = append(fieldKeys, string(field))
		}
		sort.Strings(fieldKeys)

		for _, field := range fieldKeys {
			fieldProv := repo.Fields[inventory.Field(field)]
			fmt.Fprintf(&sb, "  %s: %q (from %s)\n", field, fieldProv.Current.Value, fieldProv.Current.Source)
			for _, conflict := range fieldProv.Conflicts {
				fmt.Fprintf(&sb, "    conflict: %v -> %s (%s)\n", conflict.Sources, conflict.SelectedSource, conflict.Resolution)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// File represents a provenance file stored on disk.
type File struct {
	RunID      string                    `yaml:"run_id"`
	Generated  time.Time                 `yaml:"generated"`
	Overrides  []inventory.OverrideAudit `yaml:"overrides,omitempty"`
	Provenance Map                       `yaml:"provenance"`
}

// Write encodes the file as YAML.
func (f *File) Write(w io.Writer) error {
	data, err := yaml.MarshalWithOptions(f, yaml.Indent(2))
	if err != nil {
		return errors.WrapParse("yaml", "provenance", err)
	}
	_, err = w.Write(data)
	return err
}

// Load reads provenance data from a YAML file.
// Returns nil, nil if the file doesn't exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var pf File
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &pf, nil
}
