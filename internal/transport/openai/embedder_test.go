package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// embeddingAPIResponse mirrors the OpenAI-compatible embedding response.
type embeddingAPIResponse struct {
	Object string              `json:"object"`
	Data   []embeddingAPIDatum `json:"data"`
	Model  string              `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingAPIDatum struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func newTestEmbedder(baseURL string, dimensions int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-model",
		Dimensions: dimensions,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("request model = %q", req.Model)
		}
		if req.Dimensions != 4 {
			t.Errorf("request dimensions = %d, expected 4", req.Dimensions)
		}
		if len(req.Input) != 1 || req.Input[0] != "hello world" {
			t.Errorf("request input = %v", req.Input)
		}

		resp := embeddingAPIResponse{Object: "list", Model: "test-model"}
		resp.Data = append(resp.Data, embeddingAPIDatum{
			Object:    "embedding",
			Embedding: expectedVec,
			Index:     0,
		})
		resp.Usage.PromptTokens = 10
		resp.Usage.TotalTokens = 10

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 4)

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
}

func TestEmbedder_EmbedReturnsUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingAPIResponse{Object: "list", Model: "test-model"}
		resp.Data = append(resp.Data, embeddingAPIDatum{
			Object:    "embedding",
			Embedding: []float32{0.1, 0.2},
			Index:     0,
		})
		resp.Usage.PromptTokens = 42
		resp.Usage.TotalTokens = 42

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if result.PromptTokens != 42 {
		t.Errorf("PromptTokens = %d, expected 42", result.PromptTokens)
	}
	if result.TotalTokens != 42 {
		t.Errorf("TotalTokens = %d, expected 42", result.TotalTokens)
	}
	if len(result.Embedding) != 2 {
		t.Errorf("embedding length = %d, expected 2", len(result.Embedding))
	}
}

func TestEmbedder_EmbedEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embeddingAPIResponse{Object: "list", Model: "test-model"})
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for empty response")
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbedder_BatchEmbed(t *testing.T) {
	vec1 := []float32{0.1, 0.2}
	vec2 := []float32{0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Vectors arrive in reverse order; BatchEmbed must restore input order by Index.
		resp := embeddingAPIResponse{Object: "list", Model: "test-model"}
		resp.Data = append(resp.Data,
			embeddingAPIDatum{Object: "embedding", Embedding: vec2, Index: 1},
			embeddingAPIDatum{Object: "embedding", Embedding: vec1, Index: 0},
		)
		resp.Usage.PromptTokens = 20
		resp.Usage.TotalTokens = 20

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	result, err := emb.BatchEmbed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}

	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
	if result.Embeddings[0][0] != 0.1 {
		t.Errorf("expected first vec[0]=0.1, got %f", result.Embeddings[0][0])
	}
	if result.Embeddings[1][0] != 0.3 {
		t.Errorf("expected second vec[0]=0.3, got %f", result.Embeddings[1][0])
	}
	if result.TotalTokens != 20 {
		t.Errorf("expected TotalTokens=20, got %d", result.TotalTokens)
	}
}

func TestEmbedder_BatchEmbed_Empty(t *testing.T) {
	emb := newTestEmbedder("http://unused", 0)

	result, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Embeddings != nil {
		t.Errorf("expected nil embeddings for empty input, got %v", result.Embeddings)
	}
}

func TestEmbedder_BatchEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One vector for two texts.
		resp := embeddingAPIResponse{Object: "list", Model: "test-model"}
		resp.Data = append(resp.Data, embeddingAPIDatum{
			Object:    "embedding",
			Embedding: []float32{0.1},
			Index:     0,
		})
		resp.Usage.PromptTokens = 5
		resp.Usage.TotalTokens = 5

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	_, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for count mismatch")
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbedder_BatchEmbed_ChunksLargeBatches(t *testing.T) {
	var mu sync.Mutex
	var callSizes []int

	// Each vector encodes its text's numeric suffix so order survives
	// reassembly across chunks.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		callSizes = append(callSizes, len(req.Input))
		mu.Unlock()

		resp := embeddingAPIResponse{Object: "list", Model: "test-model"}
		for i, text := range req.Input {
			n, err := strconv.Atoi(strings.TrimPrefix(text, "t"))
			if err != nil {
				t.Errorf("unexpected input %q", text)
			}
			resp.Data = append(resp.Data, embeddingAPIDatum{
				Object:    "embedding",
				Embedding: []float32{float32(n)},
				Index:     i,
			})
		}
		resp.Usage.PromptTokens = len(req.Input)
		resp.Usage.TotalTokens = len(req.Input)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		Provider:    "test",
		BatchSize:   2,
		Concurrency: 2,
		Logger:      zap.NewNop(),
	})

	texts := make([]string, 5)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}

	result, err := emb.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}

	if len(result.Embeddings) != 5 {
		t.Fatalf("expected 5 embeddings, got %d", len(result.Embeddings))
	}
	for i, vec := range result.Embeddings {
		if vec[0] != float32(i) {
			t.Errorf("embedding %d came back as %v, input order lost", i, vec[0])
		}
	}
	if result.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, expected sum across chunks 5", result.TotalTokens)
	}

	if len(callSizes) != 3 {
		t.Fatalf("expected 3 API calls for 5 texts at batch size 2, got %d", len(callSizes))
	}
	sizes := map[int]int{}
	for _, s := range callSizes {
		sizes[s]++
	}
	if sizes[2] != 2 || sizes[1] != 1 {
		t.Errorf("chunk sizes = %v, expected two calls of 2 and one of 1", callSizes)
	}
}

func TestEmbedder_BatchEmbed_ChunkFailureFailsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		for _, text := range req.Input {
			if text == "bad" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}

		resp := embeddingAPIResponse{Object: "list", Model: "test-model"}
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingAPIDatum{
				Object:    "embedding",
				Embedding: []float32{0.1},
				Index:     i,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		Provider:    "test",
		BatchSize:   2,
		Concurrency: 1,
		Logger:      zap.NewNop(),
	})

	_, err := emb.BatchEmbed(context.Background(), []string{"a", "b", "bad", "d"})
	if err == nil {
		t.Fatal("expected error when one chunk fails")
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	_, err := emb.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbedder_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	if err := emb.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestEmbedder_HealthCheckError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	if err := emb.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for failing models endpoint")
	}
}
