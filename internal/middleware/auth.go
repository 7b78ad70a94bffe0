package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

// ClientContextKey is the key for the authenticated client id in the context.
const ClientContextKey = contextKey("client")

// AuthMiddleware requires `Authorization: Bearer <token>` to match apiToken
// and stores a client id derived from the token in the context. An empty
// apiToken rejects every request.
func AuthMiddleware(apiToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiToken == "" {
				log.Error().Msg("API_TOKEN is not set")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Authorization header format must be 'Bearer <token>'", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(apiToken)) != 1 {
				log.Warn().Str("remote", r.RemoteAddr).Msg("invalid API token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClientContextKey, clientID(parts[1]))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
