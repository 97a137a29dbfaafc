package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func encodeSegment(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func makeToken(t *testing.T, payload any) string {
	t.Helper()
	header := encodeSegment(t, map[string]string{"alg": "HS256", "typ": "JWT"})
	return header + "." + encodeSegment(t, payload) + ".sig"
}

func TestDecodeClaims_Valid(t *testing.T) {
	sub := uuid.New()
	tok := makeToken(t, map[string]any{
		"sub":                sub.String(),
		"exp":                1900000000,
		"iat":                1800000000,
		"iss":                "ferriskey",
		"aud":                []string{"ferriskey", "account"},
		"preferred_username": "alice",
		"email":              "alice@example.com",
		"custom_claim":       "hello",
	})
	claims, err := DecodeClaims(tok)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Sub != sub {
		t.Errorf("sub=%s want %s", claims.Sub, sub)
	}
	if claims.PreferredUsername != "alice" {
		t.Errorf("preferred_username=%q", claims.PreferredUsername)
	}
	if claims.Exp != 1900000000 {
		t.Errorf("exp=%d", claims.Exp)
	}
	if len(claims.Aud) != 2 || claims.Aud[0] != "ferriskey" {
		t.Errorf("aud=%v", claims.Aud)
	}
	if v, ok := claims.Extra["custom_claim"]; !ok || v != "hello" {
		t.Errorf("extra claim missing: %v", claims.Extra)
	}
	if _, ok := claims.Extra["sub"]; ok {
		t.Error("known claim leaked into extras")
	}
}

func TestDecodeClaims_SegmentCount(t *testing.T) {
	sub := uuid.New().String()
	payload := encodeSegment(t, map[string]any{"sub": sub})
	cases := []string{
		"",
		payload,
		"a." + payload,
		"a." + payload + ".c.d",
	}
	for _, tok := range cases {
		if _, err := DecodeClaims(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: err=%v want ErrInvalidToken", tok, err)
		}
	}
}

func TestDecodeClaims_BadPayload(t *testing.T) {
	cases := map[string]string{
		"bad base64":   "a.!!!!.c",
		"padded":       "a." + base64.URLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".c",
		"invalid json": "a." + base64.RawURLEncoding.EncodeToString([]byte("{not json")) + ".c",
		"invalid utf8": "a." + base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe, '{', '}'}) + ".c",
		"json array":   "a." + base64.RawURLEncoding.EncodeToString([]byte(`[1,2]`)) + ".c",
	}
	for name, tok := range cases {
		if _, err := DecodeClaims(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err=%v want ErrInvalidToken", name, err)
		}
	}
}

func TestDecodeClaims_SubRequired(t *testing.T) {
	missing := makeToken(t, map[string]any{"iss": "x"})
	if _, err := DecodeClaims(missing); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("missing sub: err=%v", err)
	}
	notUUID := makeToken(t, map[string]any{"sub": "not-a-uuid"})
	if _, err := DecodeClaims(notUUID); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("non-uuid sub: err=%v", err)
	}
}
