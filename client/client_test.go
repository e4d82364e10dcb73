package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func testConfig(serverURL string) Config {
	return Config{
		BaseURL:          serverURL,
		AntiForgeryToken: "mockCSRF",
		CurrentProfileID: "7",
		SessionID:        "mockSession",
	}
}

func TestRun_Success(t *testing.T) {
	expected := TestResult{
		Success:       true,
		Text:          `{"banks": []}`,
		Config:        ResultConfig{Summary: "Get Banks", URLPath: "/obp/v4.0.0/banks", OperationID: "OBPv4.0.0-getBanks"},
		ExecutionTime: 42,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %v", r.Method)
		}
		if r.URL.Path != "/runtests/run/get//obp/v4.0.0/banks/3/OBPv4.0.0-getBanks" {
			t.Errorf("Unexpected path %v", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Expected a form, got %v", err)
		}
		checks := map[string]string{
			"json_body":           `{"a": 1}`,
			"operation_id":        "OBPv4.0.0-getBanks",
			"config_pk":           "3",
			"profile_id":          "7",
			"order":               "100",
			"replica_id":          "1",
			"remark":              "smoke",
			"csrfmiddlewaretoken": "mockCSRF",
		}
		for k, v := range checks {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("Expected form field %s to be %q, got %q", k, v, got)
			}
		}
		if r.Header.Get("X-CSRFToken") != "mockCSRF" {
			t.Errorf("Expected csrf header, got %v", r.Header.Get("X-CSRFToken"))
		}
		if c, err := r.Cookie("sessionid"); err != nil || c.Value != "mockSession" {
			t.Errorf("Expected session cookie, got %v", c)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("Expected a request id")
		}
		b, _ := json.Marshal(expected)
		w.Write(b)
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	result, err := c.Run(context.Background(), RunRequest{
		Method:      "get",
		URLPath:     "/obp/v4.0.0/banks",
		ConfigPK:    "3",
		OperationID: "OBPv4.0.0-getBanks",
		ReplicaID:   "1",
		Order:       "100",
		Remark:      "smoke",
		Payload:     `{"a": 1}`,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result.Success || result.Text != expected.Text || result.ExecutionTime != 42 {
		t.Errorf("Unexpected result %+v", result)
	}
	if result.Config.OperationID != "OBPv4.0.0-getBanks" {
		t.Errorf("Expected config to be echoed, got %+v", result.Config)
	}
}

func TestRun_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "text": "nope", "messages": ["bad request", "timeout"], "config": {"summary": "s", "urlpath": "/p", "operation_id": "op"}, "execution_time": 12.5}`))
	}))
	defer server.Close()

	result, err := New(testConfig(server.URL)).Run(context.Background(), RunRequest{Method: "get", URLPath: "/p", ConfigPK: "1", OperationID: "op"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Success {
		t.Fatalf("Expected a failed result")
	}
	if len(result.Messages) != 2 || result.Messages[0] != "bad request" || result.Messages[1] != "timeout" {
		t.Errorf("Unexpected messages %v", result.Messages)
	}
	if result.ExecutionTime != 12.5 {
		t.Errorf("Expected execution time 12.5, got %v", result.ExecutionTime)
	}
}

func TestRun_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Server Error (500)"))
	}))
	defer server.Close()

	result, err := New(testConfig(server.URL)).Run(context.Background(), RunRequest{Method: "get", URLPath: "/p", ConfigPK: "1", OperationID: "op"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected a StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("Expected code 500, got %d", statusErr.Code)
	}
	if result.Success || len(result.Messages) != 1 {
		t.Errorf("Expected a failed result with one message, got %+v", result)
	}
	if result.Text != "Server Error (500)" {
		t.Errorf("Expected the body as text, got %q", result.Text)
	}
	if result.Config.OperationID != "op" {
		t.Errorf("Expected the runner's identifiers in the result, got %+v", result.Config)
	}
}

func TestRun_MalformedJSON(t *testing.T) {
	const page = "<html>Django debug page</html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	result, err := New(testConfig(server.URL)).Run(context.Background(), RunRequest{OperationID: "op", URLPath: "/x"})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("Expected ErrInvalidResult, got %v", err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected a DecodeError, got %T", err)
	}
	if err := result.Validate(); err != nil {
		t.Errorf("Expected the failure result to be valid, got %v", err)
	}
	if result.Text != page {
		t.Errorf("Expected the raw reply to be kept, got %q", result.Text)
	}
	if result.Config.OperationID != "op" || result.Config.URLPath != "/x" {
		t.Errorf("Expected the request config, got %+v", result.Config)
	}
}

func TestRun_SuccessWithMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "text": "resp body", "messages": [], "config": {"summary": "Get Banks", "urlpath": "/obp/v4.0.0/banks", "operation_id": "op"}, "execution_time": 5}`))
	}))
	defer server.Close()

	result, err := New(testConfig(server.URL)).Run(context.Background(), RunRequest{OperationID: "op"})
	if !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("Expected ErrInvalidResult, got %v", err)
	}
	if err := result.Validate(); err != nil {
		t.Errorf("Expected the failure result to be valid, got %v", err)
	}
	if result.Text != "resp body" {
		t.Errorf("Expected the reported body, got %q", result.Text)
	}
	if result.Config.Summary != "Get Banks" || result.Config.URLPath != "/obp/v4.0.0/banks" {
		t.Errorf("Expected the reported config, got %+v", result.Config)
	}
	if result.ExecutionTime != 5 {
		t.Errorf("Expected execution time 5, got %v", result.ExecutionTime)
	}
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	start := time.Now()
	result, err := New(cfg).Run(context.Background(), RunRequest{OperationID: "op"})
	if err == nil {
		t.Fatalf("Expected an error, got none")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Expected the timeout to cut the request short")
	}
	if result.Success || !strings.Contains(result.Messages[0], "request failed") {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestRunTest_Template(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %v", r.Method)
		}
		if r.URL.Path != "/runtests/run/get /obp/v4.0.0/banks" {
			t.Errorf("Unexpected path %v", r.URL.Path)
		}
		w.Write([]byte(`{"success": true, "text": "ok", "config": {"summary": "Get Banks", "urlpath": "/obp/v4.0.0/banks", "operation_id": "getBanks"}, "execution_time": 3}`))
	}))
	defer server.Close()

	result, err := New(testConfig(server.URL)).RunTest(context.Background(), "get /obp/v4.0.0/banks")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result.Success || result.Config.Summary != "Get Banks" {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestSaveAndCopyConfig(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		r.ParseForm()
		if r.PostForm.Get("urlpath") != "/obp/v4.0.0/banks" || r.PostForm.Get("profile_id") != "7" {
			t.Errorf("Unexpected form %v", r.PostForm)
		}
		if r.PostForm.Get("csrfmiddlewaretoken") != "mockCSRF" {
			t.Errorf("Expected csrf token in form")
		}
	}))
	defer server.Close()

	c := New(testConfig(server.URL))
	req := SaveRequest{OperationID: "getBanks", URLPath: "/obp/v4.0.0/banks", Order: "1", ReplicaID: "1", Payload: "{}"}
	if err := c.SaveConfig(context.Background(), req); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := c.CopyConfig(context.Background(), req); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != SavePath || paths[1] != CopyPath {
		t.Errorf("Unexpected paths %v", paths)
	}
}

func TestFetchCSRFToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runtests/" {
			t.Errorf("Unexpected path %v", r.URL.Path)
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "fresh"})
	}))
	defer server.Close()

	token, err := New(testConfig(server.URL)).FetchCSRFToken(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "fresh" {
		t.Errorf("Expected token 'fresh', got %v", token)
	}
}

func TestFetchCSRFToken_Missing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := New(testConfig(server.URL)).FetchCSRFToken(context.Background())
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("Expected ErrMissingToken, got %v", err)
	}
}

func TestIndexURL(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:8000"})
	if got := c.IndexURL("5"); got != "http://localhost:8000/runtests/5" {
		t.Errorf("Unexpected index url %v", got)
	}
	if got := c.IndexURL(""); got != "http://localhost:8000/runtests/" {
		t.Errorf("Unexpected index url %v", got)
	}
}

func TestValidate(t *testing.T) {
	if err := (TestResult{Success: true}).Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := (TestResult{Success: true, Messages: []string{"x"}}).Validate(); !errors.Is(err, ErrInvalidResult) {
		t.Errorf("Expected ErrInvalidResult, got %v", err)
	}
	if err := (TestResult{Success: false}).Validate(); !errors.Is(err, ErrInvalidResult) {
		t.Errorf("Expected ErrInvalidResult, got %v", err)
	}
}
