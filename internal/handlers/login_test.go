package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sessionRequest(t *testing.T, method, target string, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx, err := sessionManager.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	return req.WithContext(ctx)
}

func TestLoginSuccess(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	seedReq := httptest.NewRequest(http.MethodPost, "/signup", nil)
	if _, err := createUser(seedReq, "chef@example.com", "Chef", "password123"); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	req := sessionRequest(t, http.MethodPost, "/login", `{"email":"chef@example.com","password":"password123"}`)
	w := httptest.NewRecorder()
	Login(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp sessionUserResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Email != "chef@example.com" {
		t.Fatalf("unexpected email %q", resp.Email)
	}
	if !sm.GetBool(req.Context(), sessionAuthenticatedKey) {
		t.Fatal("expected session to be authenticated")
	}
}

func TestLoginFailures(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	req := sessionRequest(t, http.MethodGet, "/login", "")
	w := httptest.NewRecorder()
	Login(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", w.Code)
	}

	req = sessionRequest(t, http.MethodPost, "/login", `not json`)
	w = httptest.NewRecorder()
	Login(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad payload, got %d", w.Code)
	}

	req = sessionRequest(t, http.MethodPost, "/login", `{"email":"","password":""}`)
	w = httptest.NewRecorder()
	Login(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing credentials, got %d", w.Code)
	}

	req = sessionRequest(t, http.MethodPost, "/login", `{"email":"ghost@example.com","password":"password123"}`)
	w = httptest.NewRecorder()
	Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", w.Code)
	}
}

func TestSignupCreatesAccountAndSession(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	req := sessionRequest(t, http.MethodPost, "/signup", `{"name":"Chef","email":"chef@example.com","password":"password123","confirm_password":"password123"}`)
	w := httptest.NewRecorder()
	Signup(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !sm.GetBool(req.Context(), sessionAuthenticatedKey) {
		t.Fatal("expected session after signup")
	}

	// The same email cannot register twice.
	req = sessionRequest(t, http.MethodPost, "/signup", `{"name":"Chef","email":"chef@example.com","password":"password123"}`)
	w = httptest.NewRecorder()
	Signup(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	_, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	payloads := []string{
		`{"name":"Chef","email":"not-an-email","password":"password123"}`,
		`{"name":"Chef","email":"chef@example.com","password":"short"}`,
		`{"name":"Chef","email":"chef@example.com","password":"password123","confirm_password":"different123"}`,
	}
	for _, payload := range payloads {
		req := sessionRequest(t, http.MethodPost, "/signup", payload)
		w := httptest.NewRecorder()
		Signup(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for payload %s, got %d", payload, w.Code)
		}
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)

	req := sessionRequest(t, http.MethodPost, "/logout", "")
	sm.Put(req.Context(), sessionAuthenticatedKey, true)
	sm.Put(req.Context(), sessionUserIDKey, 5)

	w := httptest.NewRecorder()
	Logout(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if ActiveSession(req) {
		t.Fatal("expected session to be destroyed")
	}
}
