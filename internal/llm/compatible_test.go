package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "meta-llama/llama-3.1-8b-instruct",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "meta-llama/llama-3.1-8b-instruct" {
			t.Errorf("model = %q, want %q", p.ModelID(), "meta-llama/llama-3.1-8b-instruct")
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		_, err := NewOpenRouterProvider(OpenRouterConfig{
			Model: "meta-llama/llama-3.1-8b-instruct",
		})
		if err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("custom model pass-through", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "anthropic/claude-3-haiku",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Model ID should be used as-is (no friendly-name mapping).
		if p.ModelID() != "anthropic/claude-3-haiku" {
			t.Errorf("model = %q, want %q", p.ModelID(), "anthropic/claude-3-haiku")
		}
	})
}

func TestNewGroqProvider(t *testing.T) {
	t.Run("empty API key", func(t *testing.T) {
		if _, err := NewGroqProvider(GroqConfig{Model: "llama-3.1-8b-instant"}); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("default model id", func(t *testing.T) {
		p, err := NewGroqProvider(GroqConfig{APIKey: "gsk-test", Model: "llama-3.1-8b-instant"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "llama-3.1-8b-instant" {
			t.Errorf("model = %q, want %q", p.ModelID(), "llama-3.1-8b-instant")
		}
	})
}

func TestGroqProvider_UsesJSONObjectMode(t *testing.T) {
	var gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if format, ok := body["response_format"].(map[string]any); ok {
			gotFormat, _ = format["type"].(string)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-groq",
			"model": "llama-3.1-8b-instant",
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": `{"name":"Neem oil","dose_ml":3}`,
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
		})
	}))
	defer server.Close()

	p, err := NewGroqProvider(GroqConfig{APIKey: "gsk-test", Model: "llama-3.1-8b-instant", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "test"}},
		Schema:   testSchema(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFormat != "json_object" {
		t.Fatalf("expected json_object response format, got %q", gotFormat)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Fatalf("expected 20 total tokens, got %d", resp.Usage.TotalTokens)
	}
}
