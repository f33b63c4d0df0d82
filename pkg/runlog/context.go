package runlog

import "context"

type contextKey struct{}

// WithContext attaches log to ctx.
func WithContext(ctx context.Context, log *Log) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the log attached to ctx, or nil.
func FromContext(ctx context.Context) *Log {
	if ctx == nil {
		return nil
	}
	log, _ := ctx.Value(contextKey{}).(*Log)
	return log
}
