package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ecomops/storefront/internal/models"
	"github.com/ecomops/storefront/internal/store"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	requestIDKey contextKey = "request_id"
)

// PrincipalFromContext returns the authenticated user, or nil on
// unauthenticated paths (the webhook route).
func PrincipalFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(principalKey).(*models.User)
	return u
}

// RequestIDFromContext returns the id assigned by RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID assigns a unique id to every request and echoes it back in
// the X-Request-ID header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Authenticate validates the bearer token and loads the matching user
// into the request context. 401 on any failure.
func (h *Handler) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondWithError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		claims, err := h.issuer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondWithError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		user, err := h.users.GetUserByEmail(r.Context(), claims.Email)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				respondWithError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin wraps Authenticate and additionally rejects non-admin
// principals with 403.
func (h *Handler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil || principal.UserType != models.UserTypeAdmin {
			respondWithError(w, http.StatusForbidden, "Only admin users are allowed to perform this action")
			return
		}
		next(w, r)
	})
}
