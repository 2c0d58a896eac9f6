// Package middleware holds the HTTP middleware the clustering API server
// is wrapped in: JWT bearer-token authentication and per-client rate
// limiting.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	JWTSecret   string
	Enabled     bool
	PublicPaths []string // path prefixes served without a token (health, metrics)
	AdminPaths  []string // path prefixes requiring the admin role (cache clear etc.)
}

// Claims are the JWT claims a clustering client presents. Layers, when
// non-empty, restricts which detector layers the client may submit
// batches to.
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Layers   []string `json:"layers,omitempty"`
	jwt.RegisteredClaims
}

type contextKey string

// UserContextKey is the request-context key the validated Claims are
// stored under.
const UserContextKey contextKey = "user"

// AuthMiddleware validates the Bearer token on every request whose path
// is not listed as public, rejects admin-only paths for non-admin tokens,
// and stores the validated claims in the request context.
func AuthMiddleware(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			for _, path := range config.PublicPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.JWTSecret), nil
			})
			if err != nil {
				writeJSONError(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeJSONError(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			for _, path := range config.AdminPaths {
				if strings.HasPrefix(r.URL.Path, path) && !hasRole(claims.Roles, "admin") {
					writeJSONError(w, "Admin privileges required", http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext retrieves the validated claims stored by
// AuthMiddleware, if any.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	return claims, ok
}

// CanAccessLayer reports whether the claims allow submitting batches to
// the named detector layer. An empty Layers list means no restriction.
func (c *Claims) CanAccessLayer(layer string) bool {
	if len(c.Layers) == 0 {
		return true
	}
	for _, l := range c.Layers {
		if l == layer {
			return true
		}
	}
	return false
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// GenerateToken creates a signed JWT for testing and development. layers
// may be nil for an unrestricted token.
func GenerateToken(userID, username string, roles, layers []string, secret string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Roles:    roles,
		Layers:   layers,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "clue-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"error": %q, "status": %d}`, message, statusCode)
}
