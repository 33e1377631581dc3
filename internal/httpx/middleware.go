package httpx

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/tienda-labs/storefront/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

const sessionCookie = "sid"

// WithSession resolves the sid cookie into a session once per request,
// creating one on first contact, and saves the session back after the
// handler runs. Handlers see the session only through the request context;
// there is no ambient session state.
func WithSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *session.Session
			if c, err := r.Cookie(sessionCookie); err == nil {
				s, err := store.Load(r.Context(), c.Value)
				switch {
				case err == nil:
					sess = s
				case !errors.Is(err, session.ErrMiss):
					writeError(w, http.StatusInternalServerError, "session backend unavailable")
					return
				}
			}
			if sess == nil {
				sess = store.New()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))

			if err := store.Save(r.Context(), sess); err != nil {
				log.Printf("session save %s: %v", sess.ID, err)
			}
		})
	}
}

// SessionFrom returns the request's session. Nil only when WithSession is
// not installed on the route.
func SessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// AuthContext is the typed view of the logged-in user.
type AuthContext struct {
	UserID int64
}

// AuthFrom resolves the session into an AuthContext; ok is false for
// anonymous visitors.
func AuthFrom(ctx context.Context) (AuthContext, bool) {
	s := SessionFrom(ctx)
	if s == nil || s.UserID == 0 {
		return AuthContext{}, false
	}
	return AuthContext{UserID: s.UserID}, true
}

// RequireAuth guards routes that only make sense for logged-in users.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AuthFrom(r.Context()); !ok {
			writeRedirect(w, "/credenciales/ingresar")
			return
		}
		next.ServeHTTP(w, r)
	})
}
