package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

// chatAPIResponse mirrors the OpenAI-compatible chat completion response.
type chatAPIResponse struct {
	ID      string          `json:"id"`
	Object  string          `json:"object"`
	Choices []chatAPIChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatAPIChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func chatReply(text string) chatAPIResponse {
	resp := chatAPIResponse{ID: "chatcmpl-test", Object: "chat.completion"}
	choice := chatAPIChoice{FinishReason: "stop"}
	choice.Message.Role = "assistant"
	choice.Message.Content = text
	resp.Choices = append(resp.Choices, choice)
	return resp
}

func newTestGenerator(baseURL string) *Generator {
	return NewGenerator(&Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("request model = %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %v", req.Messages)
		}
		if req.Messages[0].Content != "What color is the sky?" {
			t.Errorf("prompt = %q", req.Messages[0].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("Blue, on a clear day."))
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)

	res := g.Generate(context.Background(), "What color is the sky?")
	if !res.Ok() {
		t.Fatalf("Generate failed: %v", res.Err)
	}
	if res.Text != "Blue, on a clear day." {
		t.Errorf("text = %q", res.Text)
	}
}

func TestGenerator_TrimsWhitespace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("\n  answer text  \n"))
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)

	res := g.Generate(context.Background(), "prompt")
	if !res.Ok() {
		t.Fatalf("Generate failed: %v", res.Err)
	}
	if res.Text != "answer text" {
		t.Errorf("text = %q, expected trimmed", res.Text)
	}
}

func TestGenerator_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatAPIResponse{ID: "chatcmpl-test", Object: "chat.completion"})
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)

	res := g.Generate(context.Background(), "prompt")
	if res.Ok() {
		t.Fatal("expected failure for empty choices")
	}
	if !errors.Is(res.Err, domain.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", res.Err)
	}
}

func TestGenerator_BlankText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("   \n\t"))
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)

	res := g.Generate(context.Background(), "prompt")
	if res.Ok() {
		t.Fatal("expected failure for blank text")
	}
	if !errors.Is(res.Err, domain.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", res.Err)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "model overloaded",
				"type":    "server_error",
			},
		})
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)

	res := g.Generate(context.Background(), "prompt")
	if res.Ok() {
		t.Fatal("expected failure for 503 response")
	}
	if !errors.Is(res.Err, domain.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", res.Err)
	}
}

func TestGenerator_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatReply("too late"))
	}))
	defer server.Close()

	g := NewGenerator(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Timeout: 50 * time.Millisecond,
		Logger:  zap.NewNop(),
	})

	res := g.Generate(context.Background(), "prompt")
	if res.Ok() {
		t.Fatal("expected failure on timeout")
	}
	if !errors.Is(res.Err, domain.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", res.Err)
	}
}

func TestGenerator_Defaults(t *testing.T) {
	g := NewGenerator(&Config{APIKey: "test-key"})

	if g.model != DefaultModel {
		t.Errorf("model = %q, expected %q", g.model, DefaultModel)
	}
	if g.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, expected %v", g.timeout, DefaultTimeout)
	}
	if g.logger == nil {
		t.Error("expected non-nil logger")
	}
}

func TestGenerator_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	g := newTestGenerator(server.URL)

	if err := g.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}
