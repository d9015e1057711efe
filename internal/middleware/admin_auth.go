package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// AdminAuth requires a bearer JWT signed with HS256 using secret. Tokens must
// carry an expiry and a subject.
func AdminAuth(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authorization header is required"), log)
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), log)
				return
			}

			claims := &jwt.RegisteredClaims{}
			if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
				log.WithError(err).Debug("Admin token rejected")
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid or expired token"), log)
				return
			}

			if claims.Subject == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Token subject is required"), log)
				return
			}

			ctx := context.WithValue(r.Context(), AdminSubjectContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
