package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mockprep-service/internal/app"
	"mockprep-service/internal/auth"
	"mockprep-service/internal/domain"
	"mockprep-service/internal/evaluator"
	"mockprep-service/internal/infra/memory"
)

type recordingArchive struct {
	mu      sync.Mutex
	results []domain.ArchivedResult
}

func (a *recordingArchive) SaveResult(_ context.Context, email string, cfg domain.TestConfig, result domain.TestResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, domain.ArchivedResult{
		ID:       fmt.Sprintf("r-%d", len(a.results)+1),
		Email:    email,
		Subject:  cfg.Subject,
		TestType: cfg.TestType,
		Result:   result,
	})
	return nil
}

func (a *recordingArchive) ListResults(_ context.Context, email string) ([]domain.ArchivedResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.ArchivedResult
	for _, r := range a.results {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func noopTimers(time.Duration, func()) func() bool {
	return func() bool { return true }
}

func newTestServer(t *testing.T) (*httptest.Server, *evaluator.Scripted, *recordingArchive) {
	t.Helper()

	client := evaluator.NewScripted()
	archive := &recordingArchive{}
	service := app.NewService(
		memory.NewInterviewStore(),
		memory.NewTestStore(),
		client,
		client,
		app.WithArchive(archive),
		app.WithTimers(noopTimers),
	)
	authService := auth.NewService(memory.NewUserStore(), "test-secret", time.Hour)
	handler := NewHandler(service, authService, memory.NewIdentityStore())

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return server, client, archive
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func signup(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()
	var resp authResponse
	status := doJSON(t, http.MethodPost, server.URL+"/api/auth/signup", "", map[string]string{
		"name":     "Ada",
		"email":    email,
		"password": "correct-horse",
	}, &resp)
	if status != http.StatusOK || !resp.Success || resp.Token == "" {
		t.Fatalf("signup failed: status=%d resp=%+v", status, resp)
	}
	return resp.Token
}

func TestSignupLoginAndLogout(t *testing.T) {
	server, _, _ := newTestServer(t)

	token := signup(t, server, "ada@example.com")

	// Duplicate email is rejected.
	var dup authResponse
	status := doJSON(t, http.MethodPost, server.URL+"/api/auth/signup", "", map[string]string{
		"name": "Eve", "email": "ada@example.com", "password": "another-pass",
	}, &dup)
	if status != http.StatusBadRequest || dup.Success {
		t.Fatalf("expected duplicate signup rejected, status=%d resp=%+v", status, dup)
	}

	// Wrong password.
	var bad authResponse
	status = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	}, &bad)
	if status != http.StatusUnauthorized || bad.Success {
		t.Fatalf("expected login rejected, status=%d", status)
	}

	// Correct login returns a token and the user profile.
	var ok authResponse
	status = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "correct-horse",
	}, &ok)
	if status != http.StatusOK || !ok.Success || ok.Token == "" || ok.User == nil {
		t.Fatalf("login failed: status=%d resp=%+v", status, ok)
	}

	if status := doJSON(t, http.MethodPost, server.URL+"/api/auth/logout", token, nil, nil); status != http.StatusOK {
		t.Fatalf("logout failed: status=%d", status)
	}
}

func TestTestRoutesRequireAuth(t *testing.T) {
	server, _, _ := newTestServer(t)

	status := doJSON(t, http.MethodPost, server.URL+"/api/tests", "", domain.TestConfig{TimeLimit: 30}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	status = doJSON(t, http.MethodPost, server.URL+"/api/tests", "not-a-jwt", domain.TestConfig{TimeLimit: 30}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bogus token, got %d", status)
	}
}

func TestAuthorizationHeaderRequiresBearerScheme(t *testing.T) {
	server, _, _ := newTestServer(t)
	token := signup(t, server, "ada@example.com")

	// A valid token without the Bearer prefix is treated as missing.
	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/results", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bare token, got %d", resp.StatusCode)
	}
}

func TestTestSessionFlow(t *testing.T) {
	server, client, _ := newTestServer(t)
	token := signup(t, server, "ada@example.com")

	cfg := domain.TestConfig{Purpose: "certification", Subject: "math", Difficulty: "medium", TestType: "multiple-choice", TimeLimit: 30}

	var snap app.TestSnapshot
	status := doJSON(t, http.MethodPost, server.URL+"/api/tests", token, cfg, &snap)
	if status != http.StatusCreated {
		t.Fatalf("create test: status=%d", status)
	}
	if len(snap.Questions) != 2 || snap.ID == "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	for _, q := range snap.Questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("correct answer leaked in snapshot: %+v", q)
		}
	}

	base := server.URL + "/api/tests/" + snap.ID

	status = doJSON(t, http.MethodPut, base+"/answers/1", token, map[string]string{"value": "4"}, &snap)
	if status != http.StatusOK || snap.Answers["1"] != "4" {
		t.Fatalf("select answer: status=%d answers=%v", status, snap.Answers)
	}

	status = doJSON(t, http.MethodPut, base+"/answers/nope", token, map[string]string{"value": "x"}, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown question, got %d", status)
	}

	var nav struct {
		Index int `json:"index"`
	}
	status = doJSON(t, http.MethodPost, base+"/navigate", token, map[string]int{"delta": 1}, &nav)
	if status != http.StatusOK || nav.Index != 1 {
		t.Fatalf("navigate: status=%d index=%d", status, nav.Index)
	}

	var result domain.TestResult
	status = doJSON(t, http.MethodPost, base+"/submit", token, nil, &result)
	if status != http.StatusOK || result.Score != 50 {
		t.Fatalf("submit: status=%d result=%+v", status, result)
	}
	if got := client.Calls("submit-answers"); got != 1 {
		t.Fatalf("expected one submission, got %d", got)
	}

	// Submitting again returns the stored result without a second network call.
	var again domain.TestResult
	status = doJSON(t, http.MethodPost, base+"/submit", token, nil, &again)
	if status != http.StatusOK || again.Score != result.Score {
		t.Fatalf("resubmit: status=%d result=%+v", status, again)
	}
	if got := client.Calls("submit-answers"); got != 1 {
		t.Fatalf("expected resubmit to reuse stored result, calls=%d", got)
	}

	var results []domain.ArchivedResult
	status = doJSON(t, http.MethodGet, server.URL+"/api/results", token, nil, &results)
	if status != http.StatusOK || len(results) != 1 {
		t.Fatalf("list results: status=%d results=%+v", status, results)
	}
	if results[0].Email != "ada@example.com" || results[0].Subject != "math" {
		t.Fatalf("unexpected archived result: %+v", results[0])
	}

	status = doJSON(t, http.MethodDelete, base, token, nil, nil)
	if status != http.StatusNoContent {
		t.Fatalf("close test: status=%d", status)
	}
	status = doJSON(t, http.MethodGet, base, token, nil, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", status)
	}
}

func TestCreateTestValidatesInput(t *testing.T) {
	server, client, _ := newTestServer(t)
	token := signup(t, server, "ada@example.com")

	status := doJSON(t, http.MethodPost, server.URL+"/api/tests", token, domain.TestConfig{TimeLimit: 0}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing time limit, got %d", status)
	}

	client.TestQuestions = nil
	status = doJSON(t, http.MethodPost, server.URL+"/api/tests", token, domain.TestConfig{Subject: "math", TimeLimit: 30}, nil)
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502 when no questions come back, got %d", status)
	}
}
