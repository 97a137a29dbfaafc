package identity

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Claims is the structural view over a bearer token payload. It is
// reconstructed per request and never persisted. Custom claims that this
// service does not model land in Extra.
type Claims struct {
	Sub               uuid.UUID      `json:"sub"`
	Exp               int64          `json:"exp,omitempty"`
	Iat               int64          `json:"iat,omitempty"`
	Iss               string         `json:"iss,omitempty"`
	Aud               Audience       `json:"aud,omitempty"`
	Typ               string         `json:"typ,omitempty"`
	Azp               string         `json:"azp,omitempty"`
	PreferredUsername string         `json:"preferred_username,omitempty"`
	Email             string         `json:"email,omitempty"`
	ClientID          *string        `json:"client_id,omitempty"`
	Extra             map[string]any `json:"-"`
}

var knownClaimKeys = map[string]struct{}{
	"sub": {}, "exp": {}, "iat": {}, "iss": {}, "aud": {}, "typ": {}, "azp": {},
	"preferred_username": {}, "email": {}, "client_id": {},
}

// Audience accepts both the single-string and array encodings of aud.
type Audience []string

func (a *Audience) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*a = Audience{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = Audience(many)
	return nil
}

// UnmarshalJSON decodes the modeled claims and keeps the rest in Extra.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type alias Claims
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range knownClaimKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}
	*c = Claims(a)
	c.Extra = raw
	return nil
}

// DecodeClaims extracts claims from a bearer token string without verifying
// its signature or expiry. It is a structural pre-parse only: split into
// three segments, base64url-decode (no padding) the payload, require UTF-8,
// parse JSON. Any failure is ErrInvalidToken. Verification belongs to the
// auth service, which receives both the claims and the raw token.
func DecodeClaims(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if !utf8.Valid(payload) {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Sub == uuid.Nil {
		// The subject feeds user lookup; a token without one is unusable.
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
