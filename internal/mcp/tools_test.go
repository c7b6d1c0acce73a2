package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/config"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

func newTestMCPServer(t *testing.T) *Server {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "mcp-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.LiteConfig{
		DataDir:          tmpDir,
		MaxConcurrency:   2,
		GeneratorTimeout: time.Second,
	}

	server, err := NewServer(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	return server
}

func callRequest(t *testing.T, args interface{}) *mcp.CallToolRequest {
	t.Helper()

	data, err := json.Marshal(args)
	require.NoError(t, err)

	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParams{Arguments: json.RawMessage(data)},
	}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleAnalyzeRecord(t *testing.T) {
	server := newTestMCPServer(t)

	result, err := server.handleAnalyzeRecord(context.Background(), callRequest(t, analyzeParams{
		PatientID:  "PT-001",
		Drug:       "codeine",
		RecordText: "1\t123\trs28371706\tC\tT\t.\t.\tGENE=CYP2D6;STAR=*4",
	}))

	require.NoError(t, err)
	require.False(t, result.IsError)

	var analysis domain.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &analysis))
	assert.Equal(t, domain.RiskIneffective, analysis.Assessment.RiskLabel)
	assert.Equal(t, domain.PhenotypePM, analysis.Profile.Phenotype)
}

func TestHandleAnalyzeRecord_UnsupportedDrug(t *testing.T) {
	server := newTestMCPServer(t)

	result, err := server.handleAnalyzeRecord(context.Background(), callRequest(t, analyzeParams{
		PatientID: "PT-001",
		Drug:      "aspirin",
	}))

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Unsupported drug")
}

func TestHandleExtractVariants(t *testing.T) {
	server := newTestMCPServer(t)

	result, err := server.handleExtractVariants(context.Background(), callRequest(t, extractParams{
		RecordText: "1\t123\trs28371706\tC\tT\t.\t.\tGENE=CYP2D6;STAR=*4",
	}))

	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "rs28371706")
}

func TestHandleSimulatePhenotype(t *testing.T) {
	server := newTestMCPServer(t)

	params := simulateParams{Phenotype: "URM"}
	params.PatientID = "PT-001"
	params.Drug = "codeine"
	params.RecordText = "1\t123\trs28371706\tC\tT\t.\t.\tGENE=CYP2D6;STAR=*4"

	result, err := server.handleSimulatePhenotype(context.Background(), callRequest(t, params))

	require.NoError(t, err)
	require.False(t, result.IsError)

	text := textOf(t, result)
	assert.Contains(t, text, `"baseline"`)
	assert.Contains(t, text, `"simulated"`)
	assert.Contains(t, text, "Toxic")
}

func TestHandleValidateExplanation(t *testing.T) {
	server := newTestMCPServer(t)

	result, err := server.handleValidateExplanation(context.Background(), callRequest(t, validateParams{
		RecordText: "1\t123\trs28371706\tC\tT\t.\t.\tGENE=CYP2D6;STAR=*4",
		Citations:  []string{"rs9999999"},
	}))

	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), string(domain.HallucinationCheckFailed))
}

func TestErrorResult(t *testing.T) {
	result := errorResult("Something broke", assert.AnError)

	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Something broke")
}
