package auth

import (
	"errors"
	"net/http"
	"strings"
)

// SessionHeader carries the anonymous session id.
const SessionHeader = "X-Session-ID"

// Unauthorized renders an authentication failure.
type Unauthorized func(w http.ResponseWriter, r *http.Request, err error)

// Middleware resolves the request Identity. A bearer token is optional, but a token that
// is present must be valid.
type Middleware struct {
	Config       Config
	Unauthorized Unauthorized
}

// NewMiddleware constructs a middleware. onError may be nil.
func NewMiddleware(cfg Config, onError Unauthorized) Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return Middleware{Config: cfg, Unauthorized: onError}
}

// Wrap attaches identity resolution to next.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{SessionID: strings.TrimSpace(r.Header.Get(SessionHeader))}

		claims, err := m.parseRequest(r)
		switch {
		case errors.Is(err, ErrMissingToken):
		case err != nil:
			m.Unauthorized(w, r, err)
			return
		default:
			id.UserID = claims.Subject
			id.Email = claims.Email
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireUser rejects requests without an authenticated user.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := FromContext(r.Context())
		if id.UserID == "" {
			m.Unauthorized(w, r, ErrMissingToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIdentity rejects requests with neither a user nor a session.
func (m Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := FromContext(r.Context())
		if id.Anonymous() {
			m.Unauthorized(w, r, errors.New("bearer token or X-Session-ID header required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return nil, ErrInvalidToken
	}
	return Parse(header[len("bearer "):], m.Config)
}
