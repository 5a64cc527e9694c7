package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
)

type contextKey string

const sessionContextKey contextKey = "onclick.session"

// Store abstracts the session manager for middleware integration.
type Store interface {
	Load(*http.Request) (*Session, error)
	New() *Session
	Save(http.ResponseWriter, *Session) error
}

// Middleware attaches the decoded session to the request context and refreshes the cookie.
// Handlers that change owner flags call Commit before writing the body.
func Middleware(store Store) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := store.Load(r)
			if err != nil || sess == nil {
				if err != nil && !errors.Is(err, ErrNoSession) {
					requestctx.Logger(ctx).Warn("session load failed", zap.Error(err))
				}
				sess = store.New()
			}
			if err := store.Save(w, sess); err != nil {
				requestctx.Logger(ctx).Warn("session save failed", zap.Error(err))
			}

			ctx = context.WithValue(ctx, sessionContextKey, &bound{sess: sess, store: store, w: w})
			ctx = requestctx.WithSessionID(ctx, sess.ID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type bound struct {
	sess  *Session
	store Store
	w     http.ResponseWriter
}

// FromContext retrieves the session attached to this request.
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	b, ok := ctx.Value(sessionContextKey).(*bound)
	if !ok || b == nil || b.sess == nil {
		return nil, false
	}
	return b.sess, true
}

// Commit persists pending session changes. It must run before the response body is written.
func Commit(ctx context.Context) error {
	b, ok := ctx.Value(sessionContextKey).(*bound)
	if !ok || b == nil {
		return errors.New("session: not bound to request")
	}
	return b.store.Save(b.w, b.sess)
}

// WithSession binds a session to ctx without a cookie round trip, for tests and CLI callers.
func WithSession(ctx context.Context, sess *Session, store Store, w http.ResponseWriter) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, &bound{sess: sess, store: store, w: w})
	return requestctx.WithSessionID(ctx, sess.ID())
}
