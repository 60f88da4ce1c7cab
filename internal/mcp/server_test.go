package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/queryopt-mcp/internal/config"
	"github.com/dshills/queryopt-mcp/internal/embedder"
	"github.com/dshills/queryopt-mcp/internal/optimizer"
	"github.com/dshills/queryopt-mcp/internal/storage"
)

// setupTestServer wires a server around in-memory storage and the local
// embedding provider, with a small seeded corpus.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	opt, err := optimizer.New(config.Default(), emb.Embed, store.SearchVector, optimizer.Options{})
	require.NoError(t, err)

	ctx := context.Background()
	docs := []storage.Document{
		{Content: "Maximum income limits for 9% credit projects.", Jurisdiction: "CA", Category: "compliance", DocType: "qap"},
		{Content: "Set-aside election requirements.", Jurisdiction: "TX", Category: "allocation", DocType: "qap"},
	}
	for i := range docs {
		require.NoError(t, store.UpsertDocument(ctx, &docs[i]))
		vec, err := emb.Embed(ctx, docs[i].Content)
		require.NoError(t, err)
		require.NoError(t, store.UpsertEmbedding(ctx, &storage.Embedding{
			DocumentID: docs[i].ID,
			Vector:     vec,
			Model:      "local",
		}))
	}

	return &Server{
		storage:   store,
		embedder:  emb,
		optimizer: opt,
	}
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &parsed))
	return parsed
}

func TestNewServer(t *testing.T) {
	t.Setenv(embedder.EnvProvider, "local")

	server, err := NewServer(t.TempDir(), config.Default())
	require.NoError(t, err)
	defer func() {
		_ = server.embedder.Close()
		_ = server.storage.Close()
	}()

	assert.NotNil(t, server.mcp)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.embedder)
	assert.NotNil(t, server.optimizer)
}

func TestHandleOptimizedSearch(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	result, err := s.handleOptimizedSearch(ctx, callRequest("optimized_search", map[string]interface{}{
		"query": "income limits",
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, false, response["cache_hit"])
	assert.NotNil(t, response["results"])
	assert.NotContains(t, response, "degraded")

	// Same query again comes from cache
	result, err = s.handleOptimizedSearch(ctx, callRequest("optimized_search", map[string]interface{}{
		"query": "income limits",
	}))
	require.NoError(t, err)
	response = resultJSON(t, result)
	assert.Equal(t, true, response["cache_hit"])
}

func TestHandleOptimizedSearchWithFilters(t *testing.T) {
	s := setupTestServer(t)

	result, err := s.handleOptimizedSearch(context.Background(), callRequest("optimized_search", map[string]interface{}{
		"query": "income limits",
		"limit": float64(5),
		"filters": map[string]interface{}{
			"jurisdiction": "CA",
		},
	}))
	require.NoError(t, err)

	response := resultJSON(t, result)
	results, ok := response["results"].([]interface{})
	require.True(t, ok)
	for _, r := range results {
		meta := r.(map[string]interface{})["metadata"].(map[string]interface{})
		assert.Equal(t, "CA", meta["jurisdiction"])
	}
}

func TestHandleOptimizedSearchValidation(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantCode int
	}{
		{
			name:     "MissingQuery",
			args:     map[string]interface{}{},
			wantCode: ErrorCodeEmptyQuery,
		},
		{
			name:     "EmptyQuery",
			args:     map[string]interface{}{"query": ""},
			wantCode: ErrorCodeEmptyQuery,
		},
		{
			name:     "LimitTooLarge",
			args:     map[string]interface{}{"query": "q", "limit": float64(500)},
			wantCode: ErrorCodeInvalidParams,
		},
		{
			name:     "LimitZero",
			args:     map[string]interface{}{"query": "q", "limit": float64(0)},
			wantCode: ErrorCodeInvalidParams,
		},
		{
			name:     "ThresholdOutOfRange",
			args:     map[string]interface{}{"query": "q", "threshold": float64(1.5)},
			wantCode: ErrorCodeInvalidParams,
		},
		{
			name: "BadFilterShape",
			args: map[string]interface{}{
				"query":   "q",
				"filters": map[string]interface{}{"jurisdiction": map[string]interface{}{"nested": "map"}},
			},
			wantCode: ErrorCodeBadFilter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleOptimizedSearch(ctx, callRequest("optimized_search", tt.args))
			require.Error(t, err)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.wantCode, mcpErr.Code)
		})
	}
}

func TestHandleGetPerformanceReport(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	// Generate a little traffic first
	for i := 0; i < 3; i++ {
		_, err := s.handleOptimizedSearch(ctx, callRequest("optimized_search", map[string]interface{}{
			"query": "income limits",
		}))
		require.NoError(t, err)
	}

	result, err := s.handleGetPerformanceReport(ctx, callRequest("get_performance_report", nil))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Contains(t, response, "score")
	assert.Contains(t, response, "recommendations")

	stats, ok := response["statistics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), stats["total_queries"])
}

func TestHandleGetCacheStats(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	_, err := s.handleOptimizedSearch(ctx, callRequest("optimized_search", map[string]interface{}{
		"query": "income limits",
	}))
	require.NoError(t, err)

	result, err := s.handleGetCacheStats(ctx, callRequest("get_cache_stats", nil))
	require.NoError(t, err)

	response := resultJSON(t, result)
	assert.Equal(t, float64(1), response["misses"])
	assert.Equal(t, float64(1), response["size"])
	assert.Equal(t, float64(1000), response["capacity"])
}

func TestMCPErrorFormat(t *testing.T) {
	err := newMCPError(ErrorCodeEmptyQuery, "query parameter is required", nil)
	assert.Equal(t, "MCP error -32001: query parameter is required", err.Error())
}
