package external

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testGenerationContext() domain.GenerationContext {
	return domain.GenerationContext{
		Drug:          domain.DrugCodeine,
		Gene:          "CYP2D6",
		Diplotype:     "*4/*4",
		Phenotype:     domain.PhenotypePM,
		RiskLabel:     domain.RiskIneffective,
		Severity:      domain.SeverityModerate,
		Action:        "avoid codeine",
		DetectedRSIDs: []string{"rs28371706"},
	}
}

func newTestClient(baseURL string) *GeneratorClient {
	return NewGeneratorClient(domain.GeneratorConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		Model:     "test-model",
		Timeout:   2 * time.Second,
		RateLimit: 100,
	}, testLogger())
}

func TestGeneratorClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/explanations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CODEINE", req["drug"])
		assert.Equal(t, "CYP2D6", req["gene"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"summary":              "Absent CYP2D6 activity prevents codeine activation.",
			"biological_mechanism": "CYP2D6 O-demethylates codeine to morphine.",
			"variant_citations":    []string{"rs28371706"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	explanation, err := client.Generate(context.Background(), testGenerationContext())

	require.NoError(t, err)
	assert.Equal(t, "Absent CYP2D6 activity prevents codeine activation.", explanation.Summary)
	assert.Equal(t, []string{"rs28371706"}, explanation.VariantCitations)
	assert.False(t, explanation.Fallback)
}

func TestGeneratorClient_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Generate(context.Background(), testGenerationContext())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGeneratorClient_Generate_RetriesTransientFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "try again", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"summary": "recovered"})
	}))
	defer server.Close()

	client := NewGeneratorClient(domain.GeneratorConfig{
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		RateLimit:  100,
		RetryCount: 2,
	}, testLogger())

	explanation, err := client.Generate(context.Background(), testGenerationContext())

	require.NoError(t, err)
	assert.Equal(t, "recovered", explanation.Summary)
	assert.Equal(t, 2, calls)
}

func TestExplanationCacheKey(t *testing.T) {
	base := testGenerationContext()

	same := testGenerationContext()
	assert.Equal(t, ExplanationCacheKey(base), ExplanationCacheKey(same))

	differentDrug := testGenerationContext()
	differentDrug.Drug = domain.DrugWarfarin
	assert.NotEqual(t, ExplanationCacheKey(base), ExplanationCacheKey(differentDrug))

	differentVariants := testGenerationContext()
	differentVariants.DetectedRSIDs = []string{"rs4149056"}
	assert.NotEqual(t, ExplanationCacheKey(base), ExplanationCacheKey(differentVariants))
}

func TestResilientGenerator_MemoryCacheHit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]interface{}{"summary": "cached once"})
	}))
	defer server.Close()

	generator, err := NewResilientGenerator(newTestClient(server.URL), nil, 16, testLogger())
	require.NoError(t, err)

	genCtx := testGenerationContext()

	first, err := generator.Generate(context.Background(), genCtx)
	require.NoError(t, err)

	second, err := generator.Generate(context.Background(), genCtx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second call should be served from the memory tier")
}

func TestResilientGenerator_BreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	generator, err := NewResilientGenerator(newTestClient(server.URL), nil, 16, testLogger())
	require.NoError(t, err)

	// Vary the context so the memory tier never short-circuits the breaker.
	for i := 0; i < 5; i++ {
		genCtx := testGenerationContext()
		genCtx.Action = genCtx.Action + string(rune('a'+i))
		_, genErr := generator.Generate(context.Background(), genCtx)
		require.Error(t, genErr)
	}

	genCtx := testGenerationContext()
	genCtx.Action = "final"
	_, err = generator.Generate(context.Background(), genCtx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
