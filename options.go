package codeinventory

import (
	"time"

	"github.com/agentstation/codeinventory/internal/collector"
	"github.com/agentstation/codeinventory/pkg/constants"
	"github.com/agentstation/codeinventory/pkg/errors"
	"github.com/agentstation/codeinventory/pkg/policy"
)

// Default directories, relative to the working directory.
const (
	DefaultRawDir     = "data/raw"
	DefaultOutputDir  = "data/public"
	DefaultPrivateDir = "data/private"
)

// options holds the configuration of a Client.
type options struct {
	policy      *policy.Policy
	source      collector.Source
	rawDir      string
	outputDir   string
	privateDir  string
	salt        []byte
	previous    string
	concurrency int
	timeout     time.Duration
	now         func() time.Time
	provenance  bool
}

func defaultOptions() *options {
	return &options{
		policy:      policy.Default(),
		rawDir:      DefaultRawDir,
		outputDir:   DefaultOutputDir,
		privateDir:  DefaultPrivateDir,
		concurrency: constants.DefaultConcurrency,
		timeout:     constants.OrganizationCollectTimeout,
		now:         time.Now,
		provenance:  true,
	}
}

// Option is a function that configures a Client.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithPolicy sets the pipeline policy.
func WithPolicy(p *policy.Policy) Option {
	return func(o *options) error {
		if p == nil {
			return errors.NewValidationError("policy", nil, "cannot be nil")
		}
		o.policy = p
		return nil
	}
}

// WithSource sets the code host source used by Collect.
func WithSource(src collector.Source) Option {
	return func(o *options) error {
		o.source = src
		return nil
	}
}

// WithRawDir sets the directory of per-organization raw listings.
func WithRawDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.NewValidationError("raw_dir", dir, "cannot be empty")
		}
		o.rawDir = dir
		return nil
	}
}

// WithOutputDir sets the directory the public catalog is written to.
func WithOutputDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.NewValidationError("output_dir", dir, "cannot be empty")
		}
		o.outputDir = dir
		return nil
	}
}

// WithPrivateDir sets the directory for internal artifacts: the
// cross-reference table, run log and provenance report.
func WithPrivateDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.NewValidationError("private_dir", dir, "cannot be empty")
		}
		o.privateDir = dir
		return nil
	}
}

// WithSalt sets the pseudonym salt. Runs that share a salt assign the same
// pseudonyms.
func WithSalt(salt string) Option {
	return func(o *options) error {
		if salt == "" {
			return nil
		}
		o.salt = []byte(salt)
		return nil
	}
}

// WithPrevious compares each combined catalog against the catalog at path.
func WithPrevious(path string) Option {
	return func(o *options) error {
		o.previous = path
		return nil
	}
}

// WithConcurrency bounds how many organizations are collected at once.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxConcurrency {
			return errors.NewValidationError("concurrency", n, "must be between 1 and 32")
		}
		o.concurrency = n
		return nil
	}
}

// WithCollectTimeout bounds the time spent collecting one organization.
func WithCollectTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("timeout", d, "must be positive")
		}
		o.timeout = d
		return nil
	}
}

// WithClock sets the clock used for generatedAt and run log timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		o.now = now
		return nil
	}
}

// WithProvenance enables or disables the provenance report.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.provenance = enabled
		return nil
	}
}
