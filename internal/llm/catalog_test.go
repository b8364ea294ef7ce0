package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func catalogServer(t *testing.T, hits *int32, models []ModelInfo) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(hits, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{"data": models})
	}))
}

func TestCatalogResolvesContextLength(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, []ModelInfo{
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini", ContextLength: 128000},
		{ID: "meta-llama/llama-3-8b", Name: "Llama 3 8B", ContextLength: 8192},
	})
	defer srv.Close()

	c := NewCatalog(srv.URL, "", nil, 32000)

	if got := c.ContextLength(context.Background(), "openai/gpt-4o-mini"); got != 128000 {
		t.Errorf("expected 128000, got %d", got)
	}
	if got := c.ContextLength(context.Background(), "meta-llama/llama-3-8b"); got != 8192 {
		t.Errorf("expected 8192, got %d", got)
	}
	// Second lookup hits the in-process cache, not the server.
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected one fetch, got %d", hits)
	}
}

func TestCatalogFallsBackForUnknownModel(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, []ModelInfo{
		{ID: "openai/gpt-4o-mini", ContextLength: 128000},
	})
	defer srv.Close()

	c := NewCatalog(srv.URL, "", nil, 32000)

	if got := c.ContextLength(context.Background(), "unknown/model"); got != 32000 {
		t.Errorf("expected default 32000 for unknown model, got %d", got)
	}
}

func TestCatalogFallsBackWhenProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCatalog(srv.URL, "", nil, 32000)

	if got := c.ContextLength(context.Background(), "openai/gpt-4o-mini"); got != 32000 {
		t.Errorf("expected default when provider errors, got %d", got)
	}
}

func TestCatalogModels(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, []ModelInfo{
		{ID: "a", ContextLength: 1000},
		{ID: "b", ContextLength: 2000},
	})
	defer srv.Close()

	c := NewCatalog(srv.URL, "", nil, 32000)

	models := c.Models(context.Background())
	if len(models) != 2 {
		t.Errorf("expected 2 models, got %d", len(models))
	}
}
