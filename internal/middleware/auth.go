package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/S1riyS/happyphone/server/internal/metrics"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
	"github.com/S1riyS/happyphone/server/pkg/response"
)

const (
	UserIDHeader   = "X-User-ID"
	UserNameHeader = "X-User-Name"

	issuer = "happyphone"
)

type identityKey struct{}

// Identity is the terminal user a request acts for.
type Identity struct {
	UserID      string
	DisplayName string
}

type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Auth resolves the request's user from an HS256 bearer token. With an empty
// secret it trusts the X-User-ID and X-User-Name headers instead.
type Auth struct {
	secret []byte
	ttl    time.Duration
}

func NewAuth(secret string, ttl time.Duration) *Auth {
	return &Auth{secret: []byte(secret), ttl: ttl}
}

func (a *Auth) Enabled() bool {
	return len(a.secret) > 0
}

func (a *Auth) IssueToken(userID, name string, now time.Time) (string, error) {
	if !a.Enabled() {
		return "", errors.New("auth is disabled: jwt secret is empty")
	}
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middleware.Auth"
		ctx := r.Context()

		id, err := a.identify(r)
		metrics.RecordAuthAttempt(err == nil)
		if err != nil {
			logging.GetLoggerFromContextWithOp(ctx, op).Warn("Request rejected", slogext.Err(err))
			response.WriteError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}

		ctx = logging.MakeContextWithUserID(ctx, id.UserID)
		ctx = context.WithValue(ctx, identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) identify(r *http.Request) (Identity, error) {
	if !a.Enabled() {
		id := Identity{
			UserID:      strings.TrimSpace(r.Header.Get(UserIDHeader)),
			DisplayName: strings.TrimSpace(r.Header.Get(UserNameHeader)),
		}
		if id.UserID == "" {
			return Identity{}, fmt.Errorf("missing %s header", UserIDHeader)
		}
		if id.DisplayName == "" {
			id.DisplayName = id.UserID
		}
		return id, nil
	}

	tokenStr := extractToken(r)
	if tokenStr == "" {
		return Identity{}, errors.New("missing authentication token")
	}
	claims, err := a.validateToken(tokenStr)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("invalid token: empty subject")
	}

	id := Identity{UserID: claims.Subject, DisplayName: claims.Name}
	if id.DisplayName == "" {
		id.DisplayName = id.UserID
	}
	return id, nil
}

func (a *Auth) validateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// IdentityFromCtx returns the identity stored by Auth.Middleware.
func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
