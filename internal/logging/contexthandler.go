package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes to attach to a record logged with ctx.
type ContextProvider func(ctx context.Context) []slog.Attr

// ContextHandler wraps another handler and injects attributes derived from
// the record's context.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds context attributes to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil && ctx != nil {
		r.AddAttrs(h.provider(ctx)...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}

type identityKey struct{}

// Identity is the set of request identifiers carried in a context.
type Identity struct {
	CMID   int64
	GearID int64
	UserID int64
	// Session is the viewer instance or request id.
	Session string
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// IdentityAttrs is a ContextProvider emitting the non-zero identity fields.
func IdentityAttrs(ctx context.Context) []slog.Attr {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return nil
	}
	var attrs []slog.Attr
	if id.CMID != 0 {
		attrs = append(attrs, slog.Int64("cmid", id.CMID))
	}
	if id.GearID != 0 {
		attrs = append(attrs, slog.Int64("gearid", id.GearID))
	}
	if id.UserID != 0 {
		attrs = append(attrs, slog.Int64("userid", id.UserID))
	}
	if id.Session != "" {
		attrs = append(attrs, slog.String("session", id.Session))
	}
	return attrs
}
