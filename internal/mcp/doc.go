// Package mcp implements the Model Context Protocol (MCP) server for queryopt.
//
// The server exposes three tools to MCP clients:
//   - optimized_search: Vector similarity search through the optimization layer
//   - get_performance_report: Aggregate latency/cache statistics with a health score
//   - get_cache_stats: Raw result-cache counters
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Because stdout carries protocol frames, all logging goes to stderr.
//
// # Tool: optimized_search
//
// Search stored documents with natural language queries:
//
//	Request:
//	{
//	  "name": "optimized_search",
//	  "arguments": {
//	    "query": "income limits for 9% credit projects",
//	    "limit": 10,
//	    "threshold": 0.5,
//	    "filters": {"jurisdiction": "CA", "category": "compliance"}
//	  }
//	}
//
// The query runs through the full optimization pipeline: result cache,
// precomputed lookup, embedding, filter shaping, backend search, and ranking.
// The response reports cache_hit, precomputed, and duration_ms alongside the
// ranked results. When the embedding provider or backend fails, the response
// is degraded: an empty result list plus a failure_kind instead of an error.
//
// # Tool: get_performance_report
//
// Returns the aggregate statistics window (mean, p50/p95/p99, hit rate, QPS),
// a 0-100 health score against the configured targets, and recommendations.
//
// # Tool: get_cache_stats
//
// Returns hits, misses, evictions, expirations, size, and capacity for the
// result cache.
//
// # Error Handling
//
// Tool failures return JSON-RPC error codes:
//   - -32602 invalid params (bad limit, bad threshold)
//   - -32001 empty query
//   - -32002 invalid filter shape
//   - -32603 internal error
package mcp
