// Package markers extracts README override markers.
//
// A marker is a single line of the form "Key: value" whose key is one of the
// aliases in the policy's allow-list. Keys match case-insensitively; list
// bullets, block quotes and emphasis around the key are tolerated. The first
// occurrence of a field wins and later ones are reported as duplicates.
package markers

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
)

// maxKeyLength bounds what is considered a key-shaped prefix.
const maxKeyLength = 40

// Marker is one recognized override declared in a README.
type Marker struct {
	Field inventory.Field `json:"field" yaml:"field"`
	Key   string          `json:"key" yaml:"key"`     // Key as written
	Value string          `json:"value" yaml:"value"` // Trimmed value
	Line  int             `json:"line" yaml:"line"`   // 1-based line number
	Raw   string          `json:"raw" yaml:"raw"`     // Full matched line
}

// DiagnosticKind classifies a marker diagnostic.
type DiagnosticKind string

const (
	// DiagnosticMalformed is a recognized key without a value.
	DiagnosticMalformed DiagnosticKind = "malformed"
	// DiagnosticDuplicate is a later occurrence of an already declared field.
	DiagnosticDuplicate DiagnosticKind = "duplicate"
	// DiagnosticUnrecognized is a key-shaped line whose key is not an alias.
	DiagnosticUnrecognized DiagnosticKind = "unrecognized"
)

// Diagnostic describes a README line that was not taken as a marker.
type Diagnostic struct {
	Kind  DiagnosticKind  `json:"kind" yaml:"kind"`
	Field inventory.Field `json:"field,omitempty" yaml:"field,omitempty"`
	Key   string          `json:"key" yaml:"key"`
	Line  int             `json:"line" yaml:"line"`
	Text  string          `json:"text" yaml:"text"`
}

// Warning converts the diagnostic into a MarkerParseWarning for repository.
func (d Diagnostic) Warning(repository string) *errors.MarkerParseWarning {
	msg := "unrecognized key " + d.Key
	switch d.Kind {
	case DiagnosticMalformed:
		msg = "empty value for " + d.Field.String()
	case DiagnosticDuplicate:
		msg = "duplicate " + d.Field.String() + " ignored"
	}
	return &errors.MarkerParseWarning{Repository: repository, Line: d.Line, Text: d.Text, Message: msg}
}

// Result holds the markers and diagnostics of one README.
type Result struct {
	Markers     map[inventory.Field]Marker `json:"markers" yaml:"markers"`
	Diagnostics []Diagnostic               `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Get returns the marker for a field.
func (r Result) Get(f inventory.Field) (Marker, bool) {
	m, ok := r.Markers[f]
	return m, ok
}

// Len returns the number of recognized markers.
func (r Result) Len() int {
	return len(r.Markers)
}

// Sorted returns the markers in line order.
func (r Result) Sorted() []Marker {
	out := make([]Marker, 0, len(r.Markers))
	for _, f := range inventory.Fields {
		if m, ok := r.Markers[f]; ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Extract scans a README for override markers. A nil README yields an empty
// result. A nil policy uses policy.Default.
func Extract(readme *string, p *policy.Policy) Result {
	res := Result{Markers: make(map[inventory.Field]Marker)}
	if readme == nil {
		return res
	}
	if p == nil {
		p = policy.Default()
	}

	for i, line := range strings.Split(*readme, "\n") {
		line = strings.TrimRight(line, "\r")
		key, value, ok := splitLine(line)
		if !ok {
			continue
		}
		lineNo := i + 1

		field, known := p.LookupMarker(key)
		if !known {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind: DiagnosticUnrecognized, Key: key, Line: lineNo, Text: line,
			})
			continue
		}
		if value == "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind: DiagnosticMalformed, Field: field, Key: key, Line: lineNo, Text: line,
			})
			continue
		}
		if _, seen := res.Markers[field]; seen {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind: DiagnosticDuplicate, Field: field, Key: key, Line: lineNo, Text: line,
			})
			continue
		}
		res.Markers[field] = Marker{Field: field, Key: key, Value: value, Line: lineNo, Raw: line}
	}
	return res
}

// splitLine returns the key and value of a key-shaped line.
func splitLine(line string) (key, value string, ok bool) {
	s := stripPrefixes(strings.TrimSpace(line))

	idx := strings.IndexByte(s, ':')
	if idx <= 0 {
		return "", "", false
	}

	rawKey := strings.TrimSpace(s[:idx])
	key = strings.TrimSpace(strings.Trim(rawKey, emphasis))
	if !keyShaped(key) {
		return "", "", false
	}

	value = strings.TrimSpace(s[idx+1:])
	// "**Key:** value" leaves the closing run of the key at the start of the value.
	if open := leadingRun(rawKey); open != "" && strings.HasPrefix(value, open) {
		value = strings.TrimSpace(value[len(open):])
	}
	return key, unwrap(value), true
}

const emphasis = "*_`"

func leadingRun(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, emphasis))]
}

// unwrap removes an emphasis run that encloses the whole value.
func unwrap(value string) string {
	if strings.Trim(value, emphasis) == "" {
		return ""
	}
	run := leadingRun(value)
	if run == "" || len(value) <= 2*len(run) || !strings.HasSuffix(value, run) {
		return value
	}
	return strings.TrimSpace(value[len(run) : len(value)-len(run)])
}

// stripPrefixes removes block quote markers and list bullets.
func stripPrefixes(s string) string {
	for {
		switch {
		case strings.HasPrefix(s, ">"):
			s = strings.TrimSpace(s[1:])
		case strings.HasPrefix(s, "- "), strings.HasPrefix(s, "+ "):
			s = strings.TrimSpace(s[2:])
		case strings.HasPrefix(s, "* ") && !strings.HasPrefix(s, "**"):
			s = strings.TrimSpace(s[2:])
		default:
			return s
		}
	}
}

func keyShaped(key string) bool {
	if key == "" || len(key) > maxKeyLength {
		return false
	}
	for i, r := range key {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_'):
		default:
			return false
		}
	}
	return true
}
