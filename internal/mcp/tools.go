package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/queryopt-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
	ErrorCodeBadFilter     = -32002 // Filter map could not be normalized
)

// handleOptimizedSearch handles the optimized_search tool invocation
func (s *Server) handleOptimizedSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	threshold := getFloatDefault(args, "threshold", 0)
	if threshold < 0 || threshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "threshold must be between 0 and 1", map[string]interface{}{
			"param": "threshold",
			"value": threshold,
		})
	}

	filters, _ := args["filters"].(map[string]interface{})

	results, sample, err := s.optimizer.Search(ctx, query, limit, filters, threshold)
	if err != nil {
		if errors.Is(err, types.ErrInvalidFilterShape) {
			return nil, newMCPError(ErrorCodeBadFilter, "invalid filters", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	formatted := make([]map[string]interface{}, len(results))
	for i, r := range results {
		formatted[i] = map[string]interface{}{
			"rank":    r.Rank,
			"score":   r.Score,
			"content": r.Content,
		}
		if len(r.Metadata) > 0 {
			formatted[i]["metadata"] = r.Metadata
		}
	}

	response := map[string]interface{}{
		"results":       formatted,
		"total_results": len(results),
		"cache_hit":     sample.CacheHit,
		"precomputed":   sample.Precomputed,
		"duration_ms":   sample.TotalDuration.Milliseconds(),
	}
	if sample.Failed {
		response["degraded"] = true
		response["failure_kind"] = string(sample.FailureKind)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetPerformanceReport handles the get_performance_report tool invocation
func (s *Server) handleGetPerformanceReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := s.optimizer.PerformanceReport()

	response := map[string]interface{}{
		"generated_at":    report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		"score":           fmt.Sprintf("%.1f", report.Score),
		"recommendations": report.Recommendations,
		"statistics": map[string]interface{}{
			"total_queries":      report.Stats.TotalQueries,
			"window_size":        report.Stats.WindowSize,
			"mean_duration_ms":   report.Stats.MeanDuration.Milliseconds(),
			"p50_duration_ms":    report.Stats.P50Duration.Milliseconds(),
			"p95_duration_ms":    report.Stats.P95Duration.Milliseconds(),
			"p99_duration_ms":    report.Stats.P99Duration.Milliseconds(),
			"cache_hit_rate":     fmt.Sprintf("%.3f", report.Stats.CacheHitRate),
			"queries_per_second": fmt.Sprintf("%.3f", report.Stats.QueriesPerSecond),
			"mean_embed_ms":      report.Stats.MeanEmbedDuration.Milliseconds(),
			"mean_search_ms":     report.Stats.MeanSearchDuration.Milliseconds(),
			"mean_filter_ms":     report.Stats.MeanFilterDuration.Milliseconds(),
			"failures":           report.Stats.FailureCount,
		},
		"cache": cacheStatsMap(report.Cache),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCacheStats handles the get_cache_stats tool invocation
func (s *Server) handleGetCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.optimizer.CacheStats()
	return mcp.NewToolResultText(formatJSON(cacheStatsMap(stats))), nil
}

// cacheStatsMap formats cache counters for a tool response
func cacheStatsMap(stats types.CacheStats) map[string]interface{} {
	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"evictions":   stats.Evictions,
		"expirations": stats.Expirations,
		"size":        stats.Size,
		"capacity":    stats.Capacity,
		"hit_rate":    fmt.Sprintf("%.3f", stats.HitRate()),
	}
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}
