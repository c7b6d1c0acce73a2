package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// Analyzer orchestrates the full pipeline for one (patient record, drug)
// unit of work: extraction, phenotype inference, risk evaluation,
// explanation generation and the hallucination guardrail.
type Analyzer struct {
	logger    *logrus.Logger
	extractor *VariantExtractor
	risk      *RiskEngine
	validator *ExplanationValidator
	generator domain.ExplanationGenerator

	// Batch concurrency control: limits in-flight (record, drug) units,
	// which bounds pressure on the explanation generator.
	semaphore        chan struct{}
	generatorTimeout time.Duration
}

// AnalyzerConfig tunes batch orchestration.
type AnalyzerConfig struct {
	MaxConcurrency   int
	GeneratorTimeout time.Duration
}

// NewAnalyzer creates an analyzer over the given pipeline stages. The
// generator may be nil, in which case every result carries the
// deterministic fallback explanation.
func NewAnalyzer(logger *logrus.Logger, generator domain.ExplanationGenerator, cfg AnalyzerConfig) *Analyzer {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.GeneratorTimeout <= 0 {
		cfg.GeneratorTimeout = 20 * time.Second
	}

	phenotype := NewPhenotypeEngine(logger)

	return &Analyzer{
		logger:           logger,
		extractor:        NewVariantExtractor(logger),
		risk:             NewRiskEngine(logger, phenotype),
		validator:        NewExplanationValidator(logger),
		generator:        generator,
		semaphore:        make(chan struct{}, cfg.MaxConcurrency),
		generatorTimeout: cfg.GeneratorTimeout,
	}
}

// Analyze runs the full pipeline for one request and returns the complete
// result record. The only suspension point is the explanation generator
// call; a generation failure or timeout is recovered locally with the
// deterministic fallback, never surfaced as an error.
func (a *Analyzer) Analyze(ctx context.Context, req domain.AnalysisRequest) *domain.AnalysisResult {
	start := time.Now()

	variants := a.extractor.Extract(req.RecordText)
	eval := a.risk.Evaluate(req.Drug, variants)

	explanation := a.explain(ctx, req.Drug, eval, variants)
	verdict := a.validator.Validate(variants, explanation.VariantCitations)

	result := &domain.AnalysisResult{
		ID:             uuid.New().String(),
		PatientID:      req.PatientID,
		Drug:           req.Drug,
		Timestamp:      time.Now().UTC(),
		Assessment:     eval.Assessment,
		Profile:        eval.Profile,
		CPIC:           eval.CPIC,
		Interaction:    eval.Interaction,
		Recommendation: eval.Recommendation,
		Explanation:    *explanation,
		Quality: domain.QualityMetrics{
			ParseSuccess:          len(variants) > 0,
			VariantCount:          len(variants),
			ProcessingTimeMS:      time.Since(start).Milliseconds(),
			LLMHallucinationCheck: verdict,
		},
	}

	a.logger.WithFields(logrus.Fields{
		"result_id":           result.ID,
		"patient_id":          req.PatientID,
		"drug":                req.Drug.String(),
		"risk_label":          result.Assessment.RiskLabel.String(),
		"hallucination_check": string(verdict),
	}).Info("Completed analysis unit")

	return result
}

// AnalyzeBatch dispatches all (record, drug) units concurrently behind the
// analyzer's semaphore and returns results stable-sorted by (patient id,
// drug). Units are independent: one slow or failed generation call cannot
// block or invalidate the others.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, requests []domain.AnalysisRequest) []*domain.AnalysisResult {
	results := make([]*domain.AnalysisResult, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req domain.AnalysisRequest) {
			defer wg.Done()

			a.semaphore <- struct{}{}
			defer func() { <-a.semaphore }()

			results[i] = a.Analyze(ctx, req)
		}(i, req)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].PatientID != results[j].PatientID {
			return results[i].PatientID < results[j].PatientID
		}
		return results[i].Drug < results[j].Drug
	})

	return results
}

// explain invokes the external generator under a per-unit timeout and falls
// back to the deterministic template on any failure or empty response. The
// fallback cites exactly the detected rsIDs, so the guardrail passes on the
// degraded path by construction.
func (a *Analyzer) explain(ctx context.Context, drug domain.Drug, eval Evaluation, variants []domain.DetectedVariant) *domain.Explanation {
	genCtx := domain.GenerationContext{
		Drug:          drug,
		Gene:          eval.Profile.PrimaryGene,
		Diplotype:     eval.Profile.Diplotype,
		Phenotype:     eval.Profile.Phenotype,
		RiskLabel:     eval.Assessment.RiskLabel,
		Severity:      eval.Assessment.Severity,
		Action:        eval.Recommendation.Action,
		DetectedRSIDs: detectedRSIDs(variants),
	}

	if a.generator == nil {
		return FallbackExplanation(genCtx)
	}

	genTimeout, cancel := context.WithTimeout(ctx, a.generatorTimeout)
	defer cancel()

	explanation, err := a.generator.Generate(genTimeout, genCtx)
	if err != nil || explanation == nil || explanation.Summary == "" {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"drug": drug.String(),
			"gene": genCtx.Gene,
		}).Warn("Explanation generation failed; using deterministic fallback")
		return FallbackExplanation(genCtx)
	}

	return explanation
}

// FallbackExplanation is the deterministic template substituted when the
// external generator is unavailable. Its citations are exactly the detected
// rsIDs, which guarantees the hallucination guardrail reports passed for
// the degraded path.
func FallbackExplanation(genCtx domain.GenerationContext) *domain.Explanation {
	summary := fmt.Sprintf(
		"%s metabolizer status for %s (%s) yields a %s verdict for %s. Recommended action: %s.",
		genCtx.Phenotype.Description(), genCtx.Gene, genCtx.Diplotype,
		genCtx.RiskLabel.String(), strings.ToLower(genCtx.Drug.String()), genCtx.Action,
	)

	return &domain.Explanation{
		Summary:             summary,
		ConfidenceReasoning: "Derived from deterministic rule tables without model assistance.",
		VariantCitations:    append([]string(nil), genCtx.DetectedRSIDs...),
		Fallback:            true,
	}
}

// ApplyOverride rebuilds a result under a counterfactual phenotype without
// re-running extraction. The original result is never mutated; simulation
// always yields a fresh record with a new ID and timestamp.
func (a *Analyzer) ApplyOverride(result *domain.AnalysisResult, phenotype domain.Phenotype) *domain.AnalysisResult {
	overridden := *result
	overridden.ID = uuid.New().String()
	overridden.Timestamp = time.Now().UTC()

	overridden.Profile.Phenotype = phenotype
	overridden.Profile.Diplotype = "simulated"

	// Re-derive the verdict for the counterfactual phenotype through the
	// same policy tables.
	outcome := defaultOutcome()
	for _, policy := range a.risk.policies[result.Drug] {
		if policy.Applies(phenotype) {
			outcome = policy.Outcome
			break
		}
	}

	overridden.Assessment = domain.RiskAssessment{
		RiskLabel:       outcome.Label,
		ConfidenceScore: result.Assessment.ConfidenceScore,
		Severity:        outcome.Severity,
	}
	overridden.Recommendation = domain.ClinicalRecommendation{
		Action:             outcome.Action,
		DosageAdjustment:   outcome.Dosage,
		Alternatives:       outcome.Alternatives,
		GuidelineReference: result.Recommendation.GuidelineReference,
	}

	return &overridden
}

// Validate exposes the guardrail for externally produced explanations.
func (a *Analyzer) Validate(variants []domain.DetectedVariant, citations []string) domain.HallucinationVerdict {
	return a.validator.Validate(variants, citations)
}

// Extract exposes the extractor stage for callers that need the raw
// variant list without a full analysis.
func (a *Analyzer) Extract(recordText string) []domain.DetectedVariant {
	return a.extractor.Extract(recordText)
}

// detectedRSIDs projects the rsID column of a variant sequence.
func detectedRSIDs(variants []domain.DetectedVariant) []string {
	rsids := make([]string, 0, len(variants))
	for _, v := range variants {
		rsids = append(rsids, v.RSID)
	}
	return rsids
}
