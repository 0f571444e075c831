package http

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"nestling-tracker/internal/identity"
)

// AuthMiddleware validates the Bearer token of every request and stores
// the resolved identity in the request context. Requests without a valid
// token are rejected before they reach a handler.
func AuthMiddleware(validator identity.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondWithErrors(w, http.StatusUnauthorized, []ErrorObject{errorUnauthorized()})
				return
			}

			ident, err := validator.Validate(r.Context(), token)
			if err != nil {
				zap.S().Debugw("Token validation failed", "path", r.URL.Path, "error", err)
				respondWithErrors(w, http.StatusUnauthorized, []ErrorObject{errorUnauthorized()})
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.With(r.Context(), ident)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
