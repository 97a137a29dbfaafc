package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/policy"
)

func renderError(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Get("/boom", func(_ *fiber.Ctx) error { return err })

	res, reqErr := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	if reqErr != nil {
		t.Fatalf("request: %v", reqErr)
	}
	raw, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return res.StatusCode, body
}

func TestErrorHandler_TokenErrors(t *testing.T) {
	cases := map[error]string{
		identity.ErrInvalidToken:     "Invalid token",
		identity.ErrTokenExpired:     "Token expired",
		identity.ErrTokenNotFound:    "Token not found",
		identity.ErrInvalidSignature: "Invalid signature",
	}
	for err, msg := range cases {
		status, body := renderError(t, err)
		if status != http.StatusUnauthorized {
			t.Errorf("%v: status=%d", err, status)
		}
		if body["code"] != "E_UNAUTHORIZED" || body["message"] != msg {
			t.Errorf("%v: body=%v", err, body)
		}
		if body["status"] != float64(http.StatusUnauthorized) {
			t.Errorf("%v: status field=%v", err, body["status"])
		}
	}
}

func TestErrorHandler_DomainSentinels(t *testing.T) {
	status, body := renderError(t, policy.ErrAccessDenied)
	if status != http.StatusForbidden || body["code"] != "E_FORBIDDEN" {
		t.Errorf("access denied: status=%d body=%v", status, body)
	}

	status, body = renderError(t, identity.ErrNotFound)
	if status != http.StatusNotFound || body["code"] != "E_NOT_FOUND" {
		t.Errorf("not found: status=%d body=%v", status, body)
	}
}

func TestErrorHandler_APIError(t *testing.T) {
	status, body := renderError(t, BadRequest("device_id required", nil))
	if status != http.StatusBadRequest {
		t.Fatalf("status=%d", status)
	}
	if body["code"] != "E_INVALID_PARAM" || body["message"] != "device_id required" {
		t.Errorf("body=%v", body)
	}
	if body["status"] != float64(http.StatusBadRequest) {
		t.Errorf("status field=%v", body["status"])
	}
}

func TestErrorHandler_Fallback(t *testing.T) {
	status, body := renderError(t, io.ErrUnexpectedEOF)
	if status != http.StatusInternalServerError || body["code"] != "E_INTERNAL" {
		t.Errorf("status=%d body=%v", status, body)
	}
	if body["message"] != "Internal Server Error" {
		t.Errorf("internal details leaked: %v", body["message"])
	}
}
