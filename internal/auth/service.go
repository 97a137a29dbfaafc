// Package auth verifies bearer tokens. The identity resolver hands it
// pre-parsed claims plus the raw token; signature and expiry checks live
// here and nowhere else.
package auth

import (
	"context"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/config"
	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/logx"
)

var authLogger = logx.GetScope("auth")

// Service verifies tokens and resolves their subject to a stored user.
type Service struct {
	cfg   *config.Config
	users identity.UserStore
}

// NewService builds the verifying token service.
func NewService(cfg *config.Config, users identity.UserStore) *Service {
	return &Service{cfg: cfg, users: users}
}

// AuthorizeRequest verifies the raw token cryptographically, validates
// expiry, and resolves the claims subject to an enabled user. Outcomes map
// onto the token error taxonomy; the caller decides whether a failure is
// fatal (hard extraction) or a fallthrough (soft middleware).
func (s *Service) AuthorizeRequest(ctx context.Context, claims identity.Claims, token string) (identity.Identity, error) {
	keys, err := loadKeys(s.cfg)
	if err != nil {
		return identity.Identity{}, err
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{keys.method.Alg()}))
	tok, err := parser.Parse(token, func(_ *jwt.Token) (any, error) { return keys.verifyKey, nil })
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return identity.Identity{}, identity.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return identity.Identity{}, identity.ErrInvalidSignature
		default:
			authLogger.Sugar().Debugw("token verification failed", "err", err)
			return identity.Identity{}, identity.ErrInvalidToken
		}
	}
	if !tok.Valid {
		return identity.Identity{}, identity.ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Identity{}, identity.ErrInvalidToken
		}
		return identity.Identity{}, err
	}
	if !user.Enabled {
		return identity.Identity{}, identity.ErrInvalidToken
	}
	return identity.NewUserIdentity(user), nil
}

// Sign issues a token for the given user. Token issuance endpoints are out
// of scope; this backs tests and operational tooling only.
func Sign(cfg *config.Config, user identity.User, ttl time.Duration) (string, error) {
	keys, err := loadKeys(cfg)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":                user.ID.String(),
		"iss":                cfg.Auth.Issuer,
		"aud":                cfg.Auth.Audience,
		"typ":                "Bearer",
		"jti":                uuid.NewString(),
		"iat":                now.Unix(),
		"nbf":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
		"preferred_username": user.Username,
		"email":              user.Email,
	}
	return jwt.NewWithClaims(keys.method, claims).SignedString(keys.signKey)
}
