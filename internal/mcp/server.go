package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/queryopt-mcp/internal/config"
	"github.com/dshills/queryopt-mcp/internal/embedder"
	"github.com/dshills/queryopt-mcp/internal/optimizer"
	"github.com/dshills/queryopt-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "queryopt-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.queryopt"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Store
	embedder  embedder.Embedder
	optimizer *optimizer.Optimizer
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string, cfg config.Config) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".queryopt")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbFile := filepath.Join(dbPath, "queryopt.db")

	// Initialize the backend store
	store, err := storage.NewSQLiteStore(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Create embedder
	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// Wire the optimizer's external-call boundaries to the concrete
	// embedder and store
	opt, err := optimizer.New(cfg, emb.Embed, store.SearchVector, optimizer.Options{})
	if err != nil {
		_ = store.Close()
		_ = emb.Close()
		return nil, fmt.Errorf("failed to initialize optimizer: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		storage:   store,
		embedder:  emb,
		optimizer: opt,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.embedder.Close()
		_ = s.storage.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(optimizedSearchTool(), s.handleOptimizedSearch)
	s.mcp.AddTool(getPerformanceReportTool(), s.handleGetPerformanceReport)
	s.mcp.AddTool(getCacheStatsTool(), s.handleGetCacheStats)
	return nil
}
