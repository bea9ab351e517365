package chat

import "context"

// Meta describes where a turn came from.
type Meta struct {
	RequestID string
	Channel   string
}

type metaKey struct{}

// WithMeta attaches turn metadata to ctx.
func WithMeta(ctx context.Context, m Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

func metaFrom(ctx context.Context) Meta {
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}
