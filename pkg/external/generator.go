// Package external implements the clients for services outside the process
// boundary, primarily the model-backed explanation generator, plus the
// caching and resilience layers wrapped around them.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// GeneratorClient talks to the model-backed explanation service over HTTP.
// The service receives the structured analysis verdict and returns prose;
// it never influences the verdict itself.
type GeneratorClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCount int
	logger     *logrus.Logger
}

// generateRequest is the wire request for the explanation endpoint.
type generateRequest struct {
	Model          string   `json:"model"`
	Drug           string   `json:"drug"`
	Gene           string   `json:"gene"`
	Diplotype      string   `json:"diplotype"`
	Phenotype      string   `json:"phenotype"`
	RiskLabel      string   `json:"risk_label"`
	Severity       string   `json:"severity"`
	Action         string   `json:"recommended_action"`
	DetectedRSIDs  []string `json:"detected_rsids"`
	CitationPolicy string   `json:"citation_policy"`
}

// generateResponse is the wire response from the explanation endpoint.
type generateResponse struct {
	Summary                string   `json:"summary"`
	BiologicalMechanism    string   `json:"biological_mechanism"`
	VariantCitations       []string `json:"variant_citations"`
	ConfidenceReasoning    string   `json:"confidence_reasoning"`
	CounterfactualAnalysis string   `json:"counterfactual_analysis"`
}

// NewGeneratorClient creates an explanation generator client from config.
func NewGeneratorClient(config domain.GeneratorConfig, logger *logrus.Logger) *GeneratorClient {
	if config.RateLimit <= 0 {
		config.RateLimit = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &GeneratorClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
		retryCount: config.RetryCount,
		logger:     logger,
	}
}

// Generate requests an explanation for the given analysis verdict. Transient
// failures are retried with backoff up to the configured count; the caller
// handles terminal failure with its own fallback.
func (c *GeneratorClient) Generate(ctx context.Context, genCtx domain.GenerationContext) (*domain.Explanation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for generator rate limit: %w", err)
	}

	payload := generateRequest{
		Model:          c.model,
		Drug:           genCtx.Drug.String(),
		Gene:           genCtx.Gene,
		Diplotype:      genCtx.Diplotype,
		Phenotype:      genCtx.Phenotype.String(),
		RiskLabel:      genCtx.RiskLabel.String(),
		Severity:       genCtx.Severity.String(),
		Action:         genCtx.Action,
		DetectedRSIDs:  genCtx.DetectedRSIDs,
		CitationPolicy: "cite only rsIDs present in detected_rsids",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling generator request: %w", err)
	}

	var lastErr error
	attempts := c.retryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		explanation, err := c.doGenerate(ctx, body)
		if err == nil {
			return explanation, nil
		}
		lastErr = err

		c.logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"drug":    genCtx.Drug.String(),
		}).Warn("Explanation generation attempt failed")
	}

	return nil, fmt.Errorf("generating explanation after %d attempts: %w", attempts, lastErr)
}

func (c *GeneratorClient) doGenerate(ctx context.Context, body []byte) (*domain.Explanation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/explanations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building generator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling explanation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("explanation service returned status %d: %s", resp.StatusCode, string(data))
	}

	var wire generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding generator response: %w", err)
	}

	return &domain.Explanation{
		Summary:                wire.Summary,
		BiologicalMechanism:    wire.BiologicalMechanism,
		VariantCitations:       wire.VariantCitations,
		ConfidenceReasoning:    wire.ConfidenceReasoning,
		CounterfactualAnalysis: wire.CounterfactualAnalysis,
	}, nil
}
