package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"docharvest-backend/internal/shared/apperr"
)

func runFailure(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	Failure(c, err)

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec, body
}

func TestFailureMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperr.Validation("bad_input", "bad"), http.StatusBadRequest, "bad_input"},
		{"not found", apperr.NotFound("client_not_found", "missing"), http.StatusNotFound, "client_not_found"},
		{"conflict", apperr.Conflict("email_taken", "taken"), http.StatusConflict, "email_taken"},
		{"processing", apperr.Processing("persistence_failed", "db down", errors.New("boom")), http.StatusInternalServerError, "persistence_failed"},
		{"unavailable", apperr.Processing(apperr.CodeServiceUnavailable, "off", nil), http.StatusServiceUnavailable, apperr.CodeServiceUnavailable},
		{"untyped", errors.New("raw"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := runFailure(t, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if body.Error.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, body.Error.Code)
			}
		})
	}
}

func TestFailureHidesProcessingMessages(t *testing.T) {
	ExposeInternalErrors(false)
	_, body := runFailure(t, apperr.Processing("persistence_failed", "pq: relation missing", nil))
	if body.Error.Message != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("expected generic message, got %q", body.Error.Message)
	}

	ExposeInternalErrors(true)
	defer ExposeInternalErrors(false)
	_, body = runFailure(t, apperr.Processing("persistence_failed", "pq: relation missing", nil))
	if body.Error.Message != "pq: relation missing" {
		t.Fatalf("expected raw message, got %q", body.Error.Message)
	}
}

func TestFailureKeepsDetails(t *testing.T) {
	_, body := runFailure(t, apperr.Validation("business_rule_violation", "invalid", "title is required", "content is required"))
	details, ok := body.Error.Details.([]interface{})
	if !ok || len(details) != 2 {
		t.Fatalf("expected two details, got %#v", body.Error.Details)
	}
}
