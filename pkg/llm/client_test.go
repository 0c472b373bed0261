package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteParsesFirstChoice(t *testing.T) {
	var gotAuth, gotPath string
	var gotPayload map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"cleaned profile"}},{"message":{"content":"ignored"}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", "test-embed")
	out, err := client.Complete(context.Background(), "system prompt", "user text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "cleaned profile" {
		t.Fatalf("expected first choice content, got %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer auth header, got %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotPayload["model"] != "test-model" {
		t.Fatalf("expected chat model in payload, got %v", gotPayload["model"])
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", "test-embed")
	if _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected an error for an empty choices list")
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", "test-embed")
	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the status code, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error should carry the response body, got %v", err)
	}
}

func TestEmbedParsesVector(t *testing.T) {
	var gotPayload map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.25,-0.5,1.0]}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", "test-embed")
	vec, err := client.Embed(context.Background(), "some trial text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vec) != 3 || vec[0] != 0.25 || vec[1] != -0.5 || vec[2] != 1.0 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if gotPayload["model"] != "test-embed" {
		t.Fatalf("expected embedding model in payload, got %v", gotPayload["model"])
	}
	if gotPayload["input"] != "some trial text" {
		t.Fatalf("expected input text in payload, got %v", gotPayload["input"])
	}
}

func TestEmbedRejectsEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, "test-model", "test-embed")
	if _, err := client.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected an error for an empty data list")
	}
}
