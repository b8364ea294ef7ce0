package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"praxis-backend/internal/models"
	"praxis-backend/internal/services"
)

// ─── Error Mapping Tests ───

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"email": "bad"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unauthorized", &services.UnauthorizedError{Message: "nope"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "nope"}, http.StatusForbidden, "FORBIDDEN"},
		{"not found", &services.NotFoundError{Message: "missing"}, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", &services.ConflictError{Message: "dupe"}, http.StatusConflict, "CONFLICT"},
		{"rate limit", &services.RateLimitError{Message: "slow down"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"llm failure", &services.LLMError{Message: "provider down"}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"unavailable", &services.ServiceUnavailableError{Message: "breaker open"}, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", http.ErrBodyNotAllowed, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "req-123")

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("expected code %q, got %q", tc.wantCode, resp.Error.Code)
			}
			if resp.Error.RequestID != "req-123" {
				t.Errorf("expected request_id propagated, got %q", resp.Error.RequestID)
			}
		})
	}
}

func TestValidationErrorIncludesFields(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	handleServiceError(rr, req, &services.ValidationError{Fields: map[string]string{"password": "too short"}})

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Fields["password"] != "too short" {
		t.Errorf("expected field error to survive serialization, got %v", resp.Error.Fields)
	}
}

// ─── Request Validation Tests ───

func TestValidateRequestRejectsBadCompletion(t *testing.T) {
	tests := []struct {
		name string
		req  models.CompletionRequest
	}{
		{"missing prompt", models.CompletionRequest{}},
		{"max tokens too high", models.CompletionRequest{Prompt: "hi", MaxTokens: 5000}},
		{"temperature out of range", models.CompletionRequest{Prompt: "hi", Temperature: float64Ptr(3.0)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/completions", nil)

			if validateRequest(rr, r, &tc.req) {
				t.Fatal("expected validation to fail")
			}
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestValidateRequestAcceptsGoodCompletion(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/completions", nil)

	req := models.CompletionRequest{
		Prompt:      "Write a haiku about Go",
		MaxTokens:   256,
		Temperature: float64Ptr(0.7),
	}
	if !validateRequest(rr, r, &req) {
		t.Fatalf("expected validation to pass, got body %s", rr.Body.String())
	}
}

func TestPaginationDefaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions?limit=25&offset=10", nil)
	limit, offset := pagination(r)
	if limit != 25 || offset != 10 {
		t.Errorf("expected 25/10, got %d/%d", limit, offset)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions", nil)
	limit, offset = pagination(r)
	if limit != 0 || offset != 0 {
		t.Errorf("expected zero values for missing params, got %d/%d", limit, offset)
	}
}

func float64Ptr(f float64) *float64 {
	return &f
}
