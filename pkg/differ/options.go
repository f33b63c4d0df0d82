package differ

// Option is a functional option for configuring Differ
type Option func(*differ)

// WithIgnoredFields sets release fields to ignore during comparison,
// e.g. "date.metadataLastUpdated".
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}

// WithDeepComparison enables/disables comparison of languages, tags and
// permissions.
func WithDeepComparison(enabled bool) Option {
	return func(d *differ) {
		d.deepComparison = enabled
	}
}
