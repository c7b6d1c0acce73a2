package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// analyzeParams are the arguments for the analyze_record tool.
type analyzeParams struct {
	PatientID  string `json:"patient_id"`
	Drug       string `json:"drug"`
	RecordText string `json:"record_text"`
}

// extractParams are the arguments for the extract_variants tool.
type extractParams struct {
	RecordText string `json:"record_text"`
}

// simulateParams are the arguments for the simulate_phenotype tool.
type simulateParams struct {
	analyzeParams
	Phenotype string `json:"phenotype"`
}

// validateParams are the arguments for the validate_explanation tool.
type validateParams struct {
	RecordText string   `json:"record_text"`
	Citations  []string `json:"citations"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "analyze_record",
		Description: "Run the full pharmacogenomic pipeline for one patient record and drug: " +
			"variant extraction, phenotype inference, risk verdict, recommendation and explanation.",
	}, s.handleAnalyzeRecord)

	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "extract_variants",
		Description: "Parse a raw patient record and return the detected pharmacogenomic variants.",
	}, s.handleExtractVariants)

	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "simulate_phenotype",
		Description: "Analyze a record, then re-derive the risk verdict under a counterfactual " +
			"metabolizer phenotype (PM, IM, NM, RM, URM).",
	}, s.handleSimulatePhenotype)

	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "validate_explanation",
		Description: "Check explanation citations against the variants detected in a record; " +
			"reports failed when a cited rsID is absent from the record.",
	}, s.handleValidateExplanation)

	s.registerReviewTools()

	s.logger.WithField("tool_count", 8).Info("Registered MCP tools")
}

func (s *Server) handleAnalyzeRecord(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "analyze_record").Info("Tool invoked")

	var params analyzeParams
	rawArgs, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(rawArgs, &params); err != nil {
		return errorResult("Invalid parameters", err), nil
	}

	drug, err := domain.ParseDrug(params.Drug)
	if err != nil {
		return errorResult("Unsupported drug", fmt.Errorf("%q is not in the supported set", params.Drug)), nil
	}

	result := s.analyzer.Analyze(ctx, domain.AnalysisRequest{
		PatientID:  params.PatientID,
		Drug:       drug,
		RecordText: params.RecordText,
	})

	return jsonResult(result)
}

func (s *Server) handleExtractVariants(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "extract_variants").Info("Tool invoked")

	var params extractParams
	rawArgs, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(rawArgs, &params); err != nil {
		return errorResult("Invalid parameters", err), nil
	}

	variants := s.analyzer.Extract(params.RecordText)

	return jsonResult(map[string]interface{}{
		"count":    len(variants),
		"variants": variants,
	})
}

func (s *Server) handleSimulatePhenotype(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "simulate_phenotype").Info("Tool invoked")

	var params simulateParams
	rawArgs, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(rawArgs, &params); err != nil {
		return errorResult("Invalid parameters", err), nil
	}

	drug, err := domain.ParseDrug(params.Drug)
	if err != nil {
		return errorResult("Unsupported drug", fmt.Errorf("%q is not in the supported set", params.Drug)), nil
	}

	phenotype := domain.Phenotype(params.Phenotype)
	if !phenotype.IsValid() {
		return errorResult("Unsupported phenotype", fmt.Errorf("%q is not a metabolizer category", params.Phenotype)), nil
	}

	baseline := s.analyzer.Analyze(ctx, domain.AnalysisRequest{
		PatientID:  params.PatientID,
		Drug:       drug,
		RecordText: params.RecordText,
	})
	simulated := s.analyzer.ApplyOverride(baseline, phenotype)

	return jsonResult(map[string]interface{}{
		"baseline":  baseline,
		"simulated": simulated,
	})
}

func (s *Server) handleValidateExplanation(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "validate_explanation").Info("Tool invoked")

	var params validateParams
	rawArgs, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(rawArgs, &params); err != nil {
		return errorResult("Invalid parameters", err), nil
	}

	variants := s.analyzer.Extract(params.RecordText)
	verdict := s.analyzer.Validate(variants, params.Citations)

	return jsonResult(map[string]interface{}{
		"verdict":        verdict,
		"detected_count": len(variants),
	})
}

// jsonResult renders a payload as an indented JSON text content block.
func jsonResult(payload interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling tool result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil
}

// errorResult reports a tool-level failure without failing the protocol call.
func errorResult(message string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
		},
	}
}
