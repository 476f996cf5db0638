package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClient_PostSendsJSON(t *testing.T) {
	var got map[string]string
	var contentType, custom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/validation_codes" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		contentType = r.Header.Get("Content-Type")
		custom = r.Header.Get("X-Client")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/api/", Headers: map[string]string{"X-Client": "signin"}})

	var result struct {
		OK bool `json:"ok"`
	}
	if err := client.Post(context.Background(), "/validation_codes", map[string]string{"email": "a@b.com"}, &result); err != nil {
		t.Fatalf("post: %v", err)
	}
	if !result.OK {
		t.Fatal("expected decoded response")
	}
	if diff := cmp.Diff(map[string]string{"email": "a@b.com"}, got); diff != "" {
		t.Fatalf("request body mismatch (-want +got):\n%s", diff)
	}
	if contentType != "application/json" || custom != "signin" {
		t.Fatalf("unexpected headers content-type=%q x-client=%q", contentType, custom)
	}
}

func TestClient_EmptySuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var result map[string]any
	if err := New(Config{BaseURL: server.URL}).Post(context.Background(), "x", nil, &result); err != nil {
		t.Fatalf("post: %v", err)
	}
}

func TestClient_UnprocessableDecodesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"email":["taken"]}}`))
	}))
	defer server.Close()

	err := New(Config{BaseURL: server.URL}).Post(context.Background(), "/validation_codes", map[string]string{"email": "a@b.com"}, nil)
	if !IsUnprocessable(err) {
		t.Fatalf("expected unprocessable error, got %v", err)
	}
	reqErr, _ := AsRequestError(fmt.Errorf("wrapped: %w", err))
	if reqErr.StatusCode() != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", reqErr.StatusCode())
	}
	if diff := cmp.Diff(map[string][]string{"email": {"taken"}}, reqErr.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_OtherFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(Config{BaseURL: server.URL}).Post(context.Background(), "/validation_codes", nil, nil)
	reqErr, ok := AsRequestError(err)
	if !ok || reqErr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 request error, got %v", err)
	}
	if IsUnprocessable(err) {
		t.Fatal("502 must not be unprocessable")
	}
	if reqErr.Errors != nil {
		t.Fatalf("unexpected field errors %#v", reqErr.Errors)
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := New(Config{BaseURL: url}).Post(context.Background(), "/validation_codes", nil, nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if _, ok := AsRequestError(err); ok {
		t.Fatal("transport failures are not request errors")
	}
	if errors.Is(err, context.Canceled) {
		t.Fatal("unexpected cancellation")
	}
}
