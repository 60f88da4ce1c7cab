package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// optimizedSearchTool returns the tool definition for optimized_search
func optimizedSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "optimized_search",
		Description: "Search the document corpus with caching, filter shaping, and similarity ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum similarity score a result must meet (0.0-1.0)",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional metadata filters. Scalar values become equality predicates; arrays become set-membership predicates (truncated past the configured maximum).",
					"properties": map[string]interface{}{
						"jurisdiction": map[string]interface{}{
							"description": "State or locality code, e.g. 'CA', or an array of codes",
						},
						"category": map[string]interface{}{
							"description": "Document category, e.g. 'compliance', 'allocation'",
						},
						"program": map[string]interface{}{
							"description": "Program identifier, e.g. '9pct', '4pct'",
						},
						"doc_type": map[string]interface{}{
							"description": "Document type, e.g. 'qap', 'ruling', 'guidance'",
						},
						"source": map[string]interface{}{
							"description": "Issuing agency or publication",
						},
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// getPerformanceReportTool returns the tool definition for get_performance_report
func getPerformanceReportTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_performance_report",
		Description: "Get a 0-100 performance score with latency, hit-rate, and throughput statistics plus recommendations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getCacheStatsTool returns the tool definition for get_cache_stats
func getCacheStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_cache_stats",
		Description: "Get result-cache counters: hits, misses, evictions, expirations, and current size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
