package middleware

import (
	"context"
	"net/http"
	"strings"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"
	"scholarstream/internal/platform/identity"

	"github.com/sirupsen/logrus"
)

type contextKey string

const IdentityCtxKey contextKey = "identity"

// Authenticator resolves the bearer credential through verifier and stores
// the caller identity in the request context.
func Authenticator(verifier identity.Verifier, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				log.WithError(err).WithField("path", r.URL.Path).Debug("credential rejected")
				common.RespondWithDomainError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityCtxKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// GetIdentityFromContext returns the authenticated caller, or nil.
func GetIdentityFromContext(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(IdentityCtxKey).(*model.Identity)
	return id
}

// WithIdentity is used by tests and internal callers that already hold an identity.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, IdentityCtxKey, id)
}

// RoleChecker is satisfied by service.AccessPolicy.
type RoleChecker interface {
	RequireAdmin(ctx context.Context, caller *model.Identity) error
	RequireStaff(ctx context.Context, caller *model.Identity) error
}

func RequireAdmin(policy RoleChecker) func(http.Handler) http.Handler {
	return guard(policy.RequireAdmin)
}

func RequireStaff(policy RoleChecker) func(http.Handler) http.Handler {
	return guard(policy.RequireStaff)
}

func guard(check func(context.Context, *model.Identity) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := check(r.Context(), GetIdentityFromContext(r.Context())); err != nil {
				common.RespondWithDomainError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
