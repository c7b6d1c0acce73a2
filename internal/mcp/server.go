// Package mcp exposes the analysis pipeline as Model Context Protocol
// tools over stdio, for use from MCP-capable clients.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/audit"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/config"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/service"
	"github.com/Neon01602/PharmaGenie-RIFT/pkg/external"
)

const serverVersion = "v0.1.0"

// Server wraps the MCP SDK server with the analysis pipeline and the local
// audit store.
type Server struct {
	logger    *logrus.Logger
	analyzer  *service.Analyzer
	reviews   audit.Store
	exportDir string
	mcpServer *mcp.Server
}

// NewServer builds a standalone server from the lite config: local SQLite
// audit store, optional remote explanation generator, stdio transport.
func NewServer(cfg *config.LiteConfig, logger *logrus.Logger) (*Server, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("preparing data directory: %w", err)
	}

	reviews, err := audit.NewSQLiteStore(cfg.AuditDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}

	analyzer := service.NewAnalyzer(logger, newGenerator(cfg, logger), service.AnalyzerConfig{
		MaxConcurrency:   cfg.MaxConcurrency,
		GeneratorTimeout: cfg.GeneratorTimeout,
	})

	server := &Server{
		logger:    logger,
		analyzer:  analyzer,
		reviews:   reviews,
		exportDir: cfg.ExportDir(),
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "pharmagenie-mcp-server",
			Version: serverVersion,
		}, nil),
	}

	server.registerTools()

	return server, nil
}

// newGenerator wires the resilient explanation generator when an endpoint
// is configured, nil otherwise so the analyzer uses its fallback.
func newGenerator(cfg *config.LiteConfig, logger *logrus.Logger) domain.ExplanationGenerator {
	if cfg.GeneratorBaseURL == "" {
		return nil
	}

	client := external.NewGeneratorClient(domainGeneratorConfig(cfg), logger)
	generator, err := external.NewResilientGenerator(client, nil, 256, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to create explanation generator; using deterministic fallback")
		return nil
	}
	return generator
}

func domainGeneratorConfig(cfg *config.LiteConfig) domain.GeneratorConfig {
	return domain.GeneratorConfig{
		BaseURL: cfg.GeneratorBaseURL,
		APIKey:  cfg.GeneratorAPIKey,
		Timeout: cfg.GeneratorTimeout,
	}
}

// Start runs the server over stdio until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("version", serverVersion).Info("Starting MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("running MCP server: %w", err)
	}
	return nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.reviews != nil {
		return s.reviews.Close()
	}
	return nil
}
