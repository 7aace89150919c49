package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"finanzas/internal/cache"
	applog "finanzas/internal/log"
)

const (
	tokenCacheSize = 10000
	tokenCacheTTL  = 5 * time.Minute
)

type contextKey string

const userIDKey contextKey = "user_id"

var errUnauthorized = errors.New("unauthorized")

// Claims are the token claims the API reads. The identity service puts the
// user id in user_id; older tokens only carry it in sub.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.StandardClaims
}

// User returns the authenticated user id.
func (c *Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.StandardClaims.Subject
}

// Authenticator verifies HS256 bearer tokens. Verified tokens are cached
// by digest until they expire, capped at tokenCacheTTL.
type Authenticator struct {
	secret []byte
	logger *applog.Logger
	tokens *cache.LRUCache[string]
}

func NewAuthenticator(secret string, logger *applog.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		logger: logger.WithComponent(applog.ComponentAuth),
		tokens: cache.NewLRUCache[string](tokenCacheSize, tokenCacheTTL),
	}
}

// VerifyToken parses the token and returns the user id it was issued for.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	sum := sha256.Sum256([]byte(tokenString))
	key := hex.EncodeToString(sum[:])
	if userID, ok := a.tokens.Get(key); ok {
		return userID, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", errUnauthorized)
	}
	userID := strings.TrimSpace(claims.User())
	if userID == "" {
		return "", fmt.Errorf("%w: token has no user id", errUnauthorized)
	}

	var expiresAt time.Time
	if claims.ExpiresAt > 0 {
		expiresAt = time.Unix(claims.ExpiresAt, 0)
	}
	a.tokens.SetUntil(key, userID, expiresAt)
	return userID, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// user id in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeError(w, r, fmt.Errorf("%w: missing bearer token", errUnauthorized))
			return
		}

		userID, err := a.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			a.logger.WarnContext(r.Context(), "Rejected token",
				applog.FieldPath, r.URL.Path,
				applog.FieldError, err)
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = applog.NewContext(ctx, applog.FromContext(ctx).With(applog.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the user id set by the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
