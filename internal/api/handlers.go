package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/audit"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// analyzeRequest is the wire request for single-unit analysis.
type analyzeRequest struct {
	PatientID  string `json:"patient_id" binding:"required"`
	Drug       string `json:"drug" binding:"required"`
	RecordText string `json:"record_text"`
}

// batchRequest is the wire request for batch analysis.
type batchRequest struct {
	Requests []analyzeRequest `json:"requests" binding:"required,min=1"`
}

// simulateRequest is analysis plus a counterfactual phenotype override.
type simulateRequest struct {
	analyzeRequest
	Phenotype string `json:"phenotype" binding:"required"`
}

// validateRequest is the wire request for standalone citation checking.
type validateRequest struct {
	RecordText string   `json:"record_text"`
	Citations  []string `json:"citations"`
}

// reviewRequest is the wire request for recording a clinician review.
type reviewRequest struct {
	ReviewerRiskLabel string `json:"reviewer_risk_label" binding:"required"`
	ReviewerAgreed    bool   `json:"reviewer_agreed"`
	Notes             string `json:"notes"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	if s.db != nil {
		if err := s.db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}

	drug, err := domain.ParseDrug(req.Drug)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "unsupported drug: "+req.Drug)
		return
	}

	result := s.analyzer.Analyze(c.Request.Context(), domain.AnalysisRequest{
		PatientID:  req.PatientID,
		Drug:       drug,
		RecordText: req.RecordText,
	})

	s.persist(c, result)

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalyzeBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}

	requests := make([]domain.AnalysisRequest, 0, len(req.Requests))
	for _, unit := range req.Requests {
		drug, err := domain.ParseDrug(unit.Drug)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "unsupported drug: "+unit.Drug)
			return
		}
		requests = append(requests, domain.AnalysisRequest{
			PatientID:  unit.PatientID,
			Drug:       drug,
			RecordText: unit.RecordText,
		})
	}

	results := s.analyzer.AnalyzeBatch(c.Request.Context(), requests)
	for _, result := range results {
		s.persist(c, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}

	drug, err := domain.ParseDrug(req.Drug)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "unsupported drug: "+req.Drug)
		return
	}

	phenotype := domain.Phenotype(req.Phenotype)
	if !phenotype.IsValid() {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "unsupported phenotype: "+req.Phenotype)
		return
	}

	baseline := s.analyzer.Analyze(c.Request.Context(), domain.AnalysisRequest{
		PatientID:  req.PatientID,
		Drug:       drug,
		RecordText: req.RecordText,
	})
	simulated := s.analyzer.ApplyOverride(baseline, phenotype)

	c.JSON(http.StatusOK, gin.H{
		"baseline":  baseline,
		"simulated": simulated,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}

	variants := s.analyzer.Extract(req.RecordText)
	verdict := s.analyzer.Validate(variants, req.Citations)

	c.JSON(http.StatusOK, gin.H{
		"verdict":        verdict,
		"detected_count": len(variants),
	})
}

func (s *Server) handleGetResult(c *gin.Context) {
	if s.repository == nil {
		s.respondError(c, http.StatusNotImplemented, domain.ErrInternalServer, "result persistence is disabled")
		return
	}

	result, err := s.repository.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, domain.ErrValidation, "result not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to load analysis result")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load result")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListPatientResults(c *gin.Context) {
	if s.repository == nil {
		s.respondError(c, http.StatusNotImplemented, domain.ErrInternalServer, "result persistence is disabled")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	results, err := s.repository.ListByPatient(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list analysis results")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to list results")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleSaveReview(c *gin.Context) {
	if s.reviews == nil || s.repository == nil {
		s.respondError(c, http.StatusNotImplemented, domain.ErrInternalServer, "review persistence is disabled")
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}

	resultID := c.Param("id")
	result, err := s.repository.GetByID(c.Request.Context(), resultID)
	if errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, domain.ErrValidation, "result not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to load analysis result for review")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load result")
		return
	}

	review := &audit.Review{
		ResultID:           resultID,
		PatientID:          result.PatientID,
		Drug:               result.Drug.String(),
		SuggestedRiskLabel: result.Assessment.RiskLabel.String(),
		ReviewerRiskLabel:  req.ReviewerRiskLabel,
		ReviewerAgreed:     req.ReviewerAgreed,
		Notes:              req.Notes,
	}
	if err := s.reviews.Save(c.Request.Context(), review); err != nil {
		s.logger.WithError(err).Error("Failed to save review")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to save review")
		return
	}

	c.JSON(http.StatusOK, review)
}

func (s *Server) handleListReviews(c *gin.Context) {
	if s.reviews == nil {
		s.respondError(c, http.StatusNotImplemented, domain.ErrInternalServer, "review persistence is disabled")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reviews, err := s.reviews.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list reviews")
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to list reviews")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(reviews),
		"reviews": reviews,
	})
}

// persist writes a result to the repository when persistence is enabled.
// Persistence failures are logged, not surfaced: the analysis already
// succeeded and the caller gets its result either way.
func (s *Server) persist(c *gin.Context, result *domain.AnalysisResult) {
	if s.repository == nil || !s.config.Analysis.PersistResults {
		return
	}
	if err := s.repository.Create(c.Request.Context(), result); err != nil {
		s.logger.WithError(err).WithField("result_id", result.ID).Error("Failed to persist analysis result")
	}
}

func (s *Server) respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, domain.NewAPIError(code, message, "", c.GetString("request_id")))
}
