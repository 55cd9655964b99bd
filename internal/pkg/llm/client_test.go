package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return &Client{
		BaseURL: url,
		APIKey:  "test-key",
		Model:   "test-model",
		Client:  &http.Client{Timeout: time.Second},
	}
}

func TestCompleteRequestShape(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request error: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: `{"ok":true}`}}},
			Usage:   chatUsage{TotalTokens: 123},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	result, err := c.Complete(context.Background(), CompletionRequest{
		Role:      "system role",
		Prompt:    "user prompt",
		MaxTokens: 1300,
		JSONMode:  true,
		WebSearch: true,
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if result.Message != `{"ok":true}` || result.TotalTokens != 123 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if captured["model"] != "test-model" {
		t.Fatalf("model not sent: %v", captured["model"])
	}
	if captured["max_tokens"] != float64(1300) {
		t.Fatalf("max_tokens not sent: %v", captured["max_tokens"])
	}
	rf, ok := captured["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Fatalf("json mode should request a json_object response, got %v", captured["response_format"])
	}
	if _, ok := captured["web_search_options"]; !ok {
		t.Fatalf("web search options should be sent")
	}

	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %v", captured["messages"])
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" || system["content"] != "system role" {
		t.Fatalf("unexpected system message: %v", system)
	}
}

func TestCompleteOmitsOptionalFields(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "plain"}}},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.Complete(context.Background(), CompletionRequest{Role: "r", Prompt: "p"}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if _, ok := captured["response_format"]; ok {
		t.Fatalf("response_format should be omitted outside json mode")
	}
	if _, ok := captured["web_search_options"]; ok {
		t.Fatalf("web_search_options should be omitted by default")
	}
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Error: &chatError{Message: "invalid api key", Type: "auth_error"},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.Complete(context.Background(), CompletionRequest{Role: "r", Prompt: "p"}); err == nil {
		t.Fatalf("API error should surface")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.Complete(context.Background(), CompletionRequest{Role: "r", Prompt: "p"}); err == nil {
		t.Fatalf("empty choices should error")
	}
}
