package domain

import (
	"time"
)

// RiskAssessment is the deterministic risk verdict for one (drug, patient
// record) evaluation.
type RiskAssessment struct {
	RiskLabel       RiskLabel `json:"risk_label"`
	ConfidenceScore float64   `json:"confidence_score"` // in [0,1]
	Severity        Severity  `json:"severity"`
}

// MultiGeneInteraction summarizes secondary-gene effects on the primary
// verdict. GenesInvolved always lists the primary gene first.
type MultiGeneInteraction struct {
	GenesInvolved     []string `json:"genes_involved"`
	InteractionEffect string   `json:"interaction_effect"`
	CompositeScore    float64  `json:"composite_score"` // in [0,1]
}

// ClinicalRecommendation is the actionable guidance attached to a verdict.
type ClinicalRecommendation struct {
	Action             string   `json:"action"`
	DosageAdjustment   string   `json:"dosage_adjustment,omitempty"`
	Alternatives       []string `json:"alternatives,omitempty"`
	GuidelineReference string   `json:"guideline_reference"`
}

// CPICAlignment records the guideline tier backing the verdict.
// Level and strength are currently fixed to the strongest tier for every
// drug; a per-drug evidence table is a known placeholder, not an inference
// target.
type CPICAlignment struct {
	EvidenceLevel    EvidenceLevel `json:"evidence_level"`
	EvidenceStrength string        `json:"evidence_strength"`
}

// Explanation is the structured natural-language explanation attached to a
// result. It is produced by the external generator, or by the deterministic
// fallback template when the generator is unavailable.
type Explanation struct {
	Summary                string   `json:"summary"`
	BiologicalMechanism    string   `json:"biological_mechanism,omitempty"`
	VariantCitations       []string `json:"variant_citations"`
	ConfidenceReasoning    string   `json:"confidence_reasoning,omitempty"`
	CounterfactualAnalysis string   `json:"counterfactual_analysis,omitempty"`
	Fallback               bool     `json:"fallback,omitempty"` // true when the deterministic template was used
}

// HallucinationVerdict is the guardrail outcome for an explanation.
type HallucinationVerdict string

const (
	HallucinationCheckPassed HallucinationVerdict = "passed"
	HallucinationCheckFailed HallucinationVerdict = "failed"
)

// QualityMetrics captures per-result pipeline quality signals.
type QualityMetrics struct {
	ParseSuccess          bool                 `json:"parse_success"`
	VariantCount          int                  `json:"variant_count"`
	ProcessingTimeMS      int64                `json:"processing_time_ms"`
	LLMHallucinationCheck HallucinationVerdict `json:"llm_hallucination_check"`
}

// AnalysisResult is the complete output record for one (patient record,
// drug) unit of work. It is the serialization contract for every downstream
// consumer and is immutable once produced; counterfactual exploration goes
// through service.ApplyOverride, which builds a fresh result.
type AnalysisResult struct {
	ID             string                 `json:"id"`
	PatientID      string                 `json:"patient_id"`
	Drug           Drug                   `json:"drug"`
	Timestamp      time.Time              `json:"timestamp"`
	Assessment     RiskAssessment         `json:"assessment"`
	Profile        PharmacogenomicProfile `json:"profile"`
	CPIC           CPICAlignment          `json:"cpic"`
	Interaction    MultiGeneInteraction   `json:"interaction"`
	Recommendation ClinicalRecommendation `json:"recommendation"`
	Explanation    Explanation            `json:"explanation"`
	Quality        QualityMetrics         `json:"quality"`
}

// AnalysisRequest is one unit of analysis work: a raw record plus the drug
// to screen it against.
type AnalysisRequest struct {
	PatientID  string `json:"patient_id"`
	Drug       Drug   `json:"drug"`
	RecordText string `json:"record_text"`
}

// GenerationContext is the structured context handed to the external
// explanation generator. The core never constructs the generator's
// transport; this is the full surface it exposes to that collaborator.
type GenerationContext struct {
	Drug          Drug      `json:"drug"`
	Gene          string    `json:"gene"`
	Diplotype     string    `json:"diplotype"`
	Phenotype     Phenotype `json:"phenotype"`
	RiskLabel     RiskLabel `json:"risk_label"`
	Severity      Severity  `json:"severity"`
	Action        string    `json:"action"`
	DetectedRSIDs []string  `json:"detected_rsids"`
}
