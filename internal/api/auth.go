package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"supermaya/pkg/supermaya"
)

// Claims are the JWT claims carried by an access token. The subject is the
// account email.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenAuthority issues and validates HS256 access tokens.
type TokenAuthority struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenAuthority creates a token authority with the given signing secret
// and token lifetime.
func NewTokenAuthority(secret []byte, ttl time.Duration) *TokenAuthority {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &TokenAuthority{secret: secret, ttl: ttl}
}

// IssueToken creates a signed access token for the given account email.
func (t *TokenAuthority) IssueToken(email string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken parses and verifies an access token, returning its claims.
// Failures carry ErrCodeUnauthorized.
func (t *TokenAuthority) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, supermaya.WrapError(supermaya.ErrCodeUnauthorized, "invalid or expired token", err)
	}
	return claims, nil
}

type contextKey string

const userContextKey contextKey = "user"

// currentUser returns the authenticated user stored by the auth middleware.
func currentUser(r *http.Request) *supermaya.User {
	user, _ := r.Context().Value(userContextKey).(*supermaya.User)
	return user
}

// middleware validates the Bearer token and resolves the active account
// before the protected handlers run.
func (h *handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
			return
		}

		claims, err := h.tokens.ValidateToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := h.core.GetUserByEmail(claims.Subject)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if user == nil || !user.IsActive {
			writeError(w, http.StatusUnauthorized, "account is not active")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
