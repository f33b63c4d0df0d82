package reconciler

import (
	"time"

	"github.com/agentstation/codeinventory/pkg/authority"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/inventory"
	"github.com/agentstation/codeinventory/pkg/policy"
	"github.com/agentstation/codeinventory/pkg/runlog"
)

// Options configures a reconciler.
type options struct {
	policy        *policy.Policy
	authorities   authority.Authority
	tracking      bool
	salt          []byte
	now           func() time.Time
	log           *runlog.Log
	baseline      *inventory.Catalog // Previous catalog for comparison
	organizations []string
}

func defaultOptions() *options {
	return &options{
		policy:      policy.Default(),
		authorities: authority.New(),
		tracking:    true,
		now:         time.Now,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithPolicy sets the pipeline policy.
func WithPolicy(p *policy.Policy) Option {
	return func(o *options) error {
		if p == nil {
			return &errors.ValidationError{
				Field:   "policy",
				Message: "cannot be nil",
			}
		}
		o.policy = p
		return nil
	}
}

// WithAuthorities sets the field authorities.
func WithAuthorities(authorities authority.Authority) Option {
	return func(o *options) error {
		if authorities == nil {
			return &errors.ValidationError{
				Field:   "authorities",
				Message: "cannot be nil",
			}
		}
		o.authorities = authorities
		return nil
	}
}

// WithProvenance enables field-level tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.tracking = enabled
		return nil
	}
}

// WithSalt sets the pseudonym salt. Without a salt every run draws a random
// one and pseudonyms differ between runs.
func WithSalt(salt []byte) Option {
	return func(o *options) error {
		if len(salt) == 0 {
			return &errors.ValidationError{
				Field:   "salt",
				Message: "cannot be empty",
			}
		}
		o.salt = append([]byte(nil), salt...)
		return nil
	}
}

// WithClock sets the clock used for generatedAt and run log timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return &errors.ValidationError{
				Field:   "clock",
				Message: "cannot be nil",
			}
		}
		o.now = now
		return nil
	}
}

// WithRunLog records entries into an existing run log, e.g. one that already
// holds collection failures.
func WithRunLog(log *runlog.Log) Option {
	return func(o *options) error {
		o.log = log
		return nil
	}
}

// WithBaseline sets the previous catalog to compare against for change detection.
func WithBaseline(catalog *inventory.Catalog) Option {
	return func(o *options) error {
		o.baseline = catalog
		return nil
	}
}

// WithOrganizations lists the organizations scanned this run. By default the
// organizations of the raw records are used.
func WithOrganizations(orgs ...string) Option {
	return func(o *options) error {
		o.organizations = append([]string(nil), orgs...)
		return nil
	}
}
