package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestHashDeviceID_Deterministic(t *testing.T) {
	a := HashDeviceID("device-123")
	b := HashDeviceID("device-123")
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("len=%d want 32", len(a))
	}
	if a == HashDeviceID("device-124") {
		t.Error("distinct devices collided")
	}

	sum := sha256.Sum256([]byte("device-123"))
	if want := hex.EncodeToString(sum[:16]); a != want {
		t.Errorf("hash=%s want %s", a, want)
	}
}

func TestAnonymousDerivation(t *testing.T) {
	h := HashDeviceID("dev-1")
	if got := AnonymousUsername("dev-1"); got != h {
		t.Errorf("username=%q", got)
	}
	if got := AnonymousEmail("dev-1"); got != "device_"+h+"@anonymous.local" {
		t.Errorf("email=%q", got)
	}
	if got := AnonymousName("dev-1", "firstname"); !strings.HasSuffix(got, "_firstname") {
		t.Errorf("firstname=%q", got)
	}
	if got := AnonymousName("dev-1", "lastname"); got != "device_"+h+"_lastname" {
		t.Errorf("lastname=%q", got)
	}
}
