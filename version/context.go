package version

import "context"

type contextKey struct{}

// WithContext attaches the update lookup made at startup so commands can
// read it without querying the proxy again.
func WithContext(ctx context.Context, info *VersionInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// FromContext returns nil when no lookup was attached.
func FromContext(ctx context.Context) *VersionInfo {
	info, _ := ctx.Value(contextKey{}).(*VersionInfo)
	return info
}
