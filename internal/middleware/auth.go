package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"rslab/internal/auth"
	apierrors "rslab/internal/errors"
	"rslab/internal/license"
)

type actorContextKey struct{}

// ActorResolver turns a verified uid into an Actor (profile lookup + role
// resolution). Satisfied by the license engine.
type ActorResolver interface {
	ResolveActor(ctx context.Context, uid string) (license.Actor, error)
}

// Authenticate verifies the Authorization bearer token, resolves the
// actor's role, and stores the Actor in the request context. 401 on a bad
// credential, 403 on a missing or broken profile.
func Authenticate(verifier auth.Verifier, resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				problem := apierrors.NewProblemDetails(http.StatusUnauthorized,
					"/errors/unauthorized", "Unauthorized", "Missing bearer token.", r.URL.Path)
				render.Render(w, r, problem)
				return
			}

			uid, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "token verification failed",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				problem := apierrors.NewProblemDetails(http.StatusUnauthorized,
					"/errors/unauthorized", "Unauthorized", "Invalid or expired token.", r.URL.Path)
				render.Render(w, r, problem)
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), uid)
			if err != nil {
				render.Render(w, r, apierrors.FromLicenseError(err, r.URL.Path))
				return
			}

			ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor stored by Authenticate.
func ActorFromContext(ctx context.Context) (license.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(license.Actor)
	return actor, ok
}
