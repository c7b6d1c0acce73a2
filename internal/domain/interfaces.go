package domain

import (
	"context"
)

// ExplanationGenerator is the boundary to the external natural-language
// generation service. The core treats it as an opaque function from a
// structured context to a structured explanation; transport, retries and
// caching live behind this interface.
type ExplanationGenerator interface {
	// Generate produces an explanation for the given context. On failure the
	// caller substitutes the deterministic fallback explanation; Generate
	// itself should not fabricate one.
	Generate(ctx context.Context, genCtx GenerationContext) (*Explanation, error)
}

// ResultRepository persists completed analysis results for downstream
// consumers (export, audit, retrieval API).
type ResultRepository interface {
	Create(ctx context.Context, result *AnalysisResult) error
	GetByID(ctx context.Context, id string) (*AnalysisResult, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*AnalysisResult, error)
}

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
}

// ConfigManager provides typed access to the loaded configuration.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetGeneratorConfig() *GeneratorConfig
	Validate() error
}
