package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/audit"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// recordReviewParams are the arguments for the record_review tool. The
// stdio binary has no result repository, so the caller supplies the
// assessment fields alongside the sign-off.
type recordReviewParams struct {
	ResultID           string `json:"result_id"`
	PatientID          string `json:"patient_id"`
	Drug               string `json:"drug"`
	SuggestedRiskLabel string `json:"suggested_risk_label"`
	ReviewerRiskLabel  string `json:"reviewer_risk_label"`
	ReviewerAgreed     bool   `json:"reviewer_agreed"`
	Notes              string `json:"notes"`
}

// getReviewParams are the arguments for the get_review tool.
type getReviewParams struct {
	ResultID string `json:"result_id"`
}

// listReviewsParams are the arguments for the list_reviews tool.
type listReviewsParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (s *Server) registerReviewTools() {
	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "record_review",
		Description: "Record a clinician's sign-off on an analysis result: agreement with the " +
			"suggested risk verdict, an optional corrected label and free-form notes. " +
			"Saving again for the same result id updates the existing review.",
	}, s.handleRecordReview)

	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "get_review",
		Description: "Fetch the recorded clinician review for one analysis result id.",
	}, s.handleGetReview)

	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "list_reviews",
		Description: "List recorded clinician reviews, newest first, with limit/offset paging.",
	}, s.handleListReviews)

	s.mcpServer.AddTool(&mcp.Tool{
		InputSchema: &jsonschema.Schema{Type: "object"},
		Name:        "export_reviews",
		Description: "Export all recorded reviews as a JSON file in the local export directory.",
	}, s.handleExportReviews)
}

func (s *Server) handleRecordReview(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "record_review").Info("Tool invoked")

	var params recordReviewParams
	rawArgs, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(rawArgs, &params); err != nil {
		return errorResult("Invalid parameters", err), nil
	}

	if params.ResultID == "" {
		return errorResult("Invalid parameters", fmt.Errorf("result_id is required")), nil
	}
	if !domain.RiskLabel(params.ReviewerRiskLabel).IsValid() {
		return errorResult("Invalid risk label", fmt.Errorf("%q is not a risk verdict", params.ReviewerRiskLabel)), nil
	}

	review := &audit.Review{
		ResultID:           params.ResultID,
		PatientID:          params.PatientID,
		Drug:               params.Drug,
		SuggestedRiskLabel: params.SuggestedRiskLabel,
		ReviewerRiskLabel:  params.ReviewerRiskLabel,
		ReviewerAgreed:     params.ReviewerAgreed,
		Notes:              params.Notes,
	}
	if err := s.reviews.Save(ctx, review); err != nil {
		return errorResult("Failed to save review", err), nil
	}

	return jsonResult(review)
}

func (s *Server) handleGetReview(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "get_review").Info("Tool invoked")

	var params getReviewParams
	rawArgs, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(rawArgs, &params); err != nil {
		return errorResult("Invalid parameters", err), nil
	}

	review, err := s.reviews.Get(ctx, params.ResultID)
	if err != nil {
		return errorResult("Failed to load review", err), nil
	}
	if review == nil {
		return errorResult("Review not found", fmt.Errorf("no review recorded for result %q", params.ResultID)), nil
	}

	return jsonResult(review)
}

func (s *Server) handleListReviews(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "list_reviews").Info("Tool invoked")

	var params listReviewsParams
	rawArgs, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(rawArgs, &params); err != nil {
		return errorResult("Invalid parameters", err), nil
	}

	reviews, err := s.reviews.List(ctx, params.Limit, params.Offset)
	if err != nil {
		return errorResult("Failed to list reviews", err), nil
	}

	return jsonResult(map[string]interface{}{
		"count":   len(reviews),
		"reviews": reviews,
	})
}

func (s *Server) handleExportReviews(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "export_reviews").Info("Tool invoked")

	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return errorResult("Failed to prepare export directory", err), nil
	}

	count, err := s.reviews.Count(ctx)
	if err != nil {
		return errorResult("Failed to count reviews", err), nil
	}

	filename := fmt.Sprintf("review_export_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.exportDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return errorResult("Failed to create export file", err), nil
	}
	defer file.Close()

	if err := s.reviews.ExportJSON(ctx, file); err != nil {
		return errorResult("Failed to export reviews", err), nil
	}

	return jsonResult(map[string]interface{}{
		"path":  path,
		"count": count,
	})
}
