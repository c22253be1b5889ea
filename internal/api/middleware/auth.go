package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"loan-engine/internal/config"
	"loan-engine/internal/domain/access"

	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the bearer token and stores the resulting
// principal in the request context for the handlers and the access
// evaluator. With auth disabled every request runs as a local admin.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := access.ContextWithPrincipal(r.Context(), access.Principal{
					Username: "local",
					Role:     access.RoleAdmin,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFromRequest(r, cfg.JWTSecret, logger)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":{"message":"Unauthorized"}}`, http.StatusUnauthorized)
				return
			}
			ctx := access.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFromRequest(r *http.Request, secret string, logger *slog.Logger) (access.Principal, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logger.Warn("AuthMiddleware: Missing Authorization header")
		return access.Principal{}, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logger.Warn("AuthMiddleware: Invalid Authorization header format")
		return access.Principal{}, false
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			logger.Warn("AuthMiddleware: Unexpected signing method")
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		logger.Warn("AuthMiddleware: Invalid token", "error", err)
		return access.Principal{}, false
	}

	username, _ := claims["username"].(string)
	roleStr, _ := claims["role"].(string)
	if username == "" || roleStr == "" {
		logger.Warn("AuthMiddleware: Token missing identity claims")
		return access.Principal{}, false
	}

	principal := access.Principal{
		Username: username,
		Role:     access.Role(roleStr),
	}
	// Numeric JSON claims decode as float64.
	if customerID, ok := claims["customerId"].(float64); ok {
		id := int64(customerID)
		principal.CustomerID = &id
	}
	return principal, true
}
