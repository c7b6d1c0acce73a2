package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// RiskEngine maps a (drug, phenotype, variant-set) triple to a deterministic
// risk verdict, recommendation, multi-gene interaction summary and a
// weighted confidence score.
type RiskEngine struct {
	logger    *logrus.Logger
	phenotype *PhenotypeEngine
	policies  map[domain.Drug][]riskPolicy
}

// riskPolicy is one (phenotype condition, outcome) pair for a drug.
// Policies for a drug are evaluated in registration order, first match wins.
type riskPolicy struct {
	Applies func(p domain.Phenotype) bool
	Outcome riskOutcome
}

// riskOutcome is the verdict and guidance a matched policy produces.
type riskOutcome struct {
	Label        domain.RiskLabel
	Severity     domain.Severity
	Action       string
	Dosage       string
	Alternatives []string
}

// Evaluation bundles everything the risk engine derives for one
// (drug, record) unit.
type Evaluation struct {
	Profile        domain.PharmacogenomicProfile
	Assessment     domain.RiskAssessment
	Recommendation domain.ClinicalRecommendation
	Interaction    domain.MultiGeneInteraction
	CPIC           domain.CPICAlignment
}

// Confidence blend weights. The evidence tier dominates, reliability tracks
// how many gene-relevant variants back the call, and completeness is a
// fixed pipeline constant.
const (
	confidenceLevelWeight       = 0.4
	confidenceReliabilityWeight = 0.3
	confidenceCompletenessTerm  = 0.3
	pipelineCompleteness        = 0.9
)

// NewRiskEngine creates a risk engine with the built-in per-drug policy
// tables registered.
func NewRiskEngine(logger *logrus.Logger, phenotype *PhenotypeEngine) *RiskEngine {
	engine := &RiskEngine{
		logger:    logger,
		phenotype: phenotype,
		policies:  make(map[domain.Drug][]riskPolicy),
	}

	engine.initializePolicies()

	return engine
}

// Evaluate runs phenotype inference for the drug's primary gene and applies
// the drug's policy table. It is deterministic: identical inputs yield
// identical outputs, and unsupported phenotype/drug combinations fall back
// to the safe default rather than erroring.
func (e *RiskEngine) Evaluate(drug domain.Drug, variants []domain.DetectedVariant) Evaluation {
	gene, _ := domain.GeneForDrug(drug)
	profile := e.phenotype.Infer(gene, variants)

	outcome := defaultOutcome()
	for _, policy := range e.policies[drug] {
		if policy.Applies(profile.Phenotype) {
			outcome = policy.Outcome
			break
		}
	}

	cpic := domain.CPICAlignment{
		EvidenceLevel:    domain.EvidenceLevelA,
		EvidenceStrength: "Strong",
	}

	eval := Evaluation{
		Profile: profile,
		Assessment: domain.RiskAssessment{
			RiskLabel:       outcome.Label,
			ConfidenceScore: confidenceScore(cpic.EvidenceLevel, gene, variants),
			Severity:        outcome.Severity,
		},
		Recommendation: domain.ClinicalRecommendation{
			Action:             outcome.Action,
			DosageAdjustment:   outcome.Dosage,
			Alternatives:       outcome.Alternatives,
			GuidelineReference: guidelineReference(drug, gene),
		},
		Interaction: e.detectInteraction(drug, gene, variants),
		CPIC:        cpic,
	}

	e.logger.WithFields(logrus.Fields{
		"drug":       drug.String(),
		"gene":       gene,
		"phenotype":  profile.Phenotype.String(),
		"risk_label": eval.Assessment.RiskLabel.String(),
		"severity":   eval.Assessment.Severity.String(),
		"confidence": eval.Assessment.ConfidenceScore,
	}).Info("Completed drug risk evaluation")

	return eval
}

// defaultOutcome is the verdict when no policy condition matches: standard
// dosing with no flagged risk.
func defaultOutcome() riskOutcome {
	return riskOutcome{
		Label:    domain.RiskSafe,
		Severity: domain.SeverityNone,
		Action:   "standard dosing",
	}
}

// confidenceScore blends evidence tier, variant reliability and pipeline
// completeness. Every term is bounded to [0,1], so the blend is too.
func confidenceScore(level domain.EvidenceLevel, gene string, variants []domain.DetectedVariant) float64 {
	matching := 0
	for _, v := range variants {
		if v.Gene == gene {
			matching++
		}
	}

	reliability := float64(matching) / 2.0
	if reliability > 1.0 {
		reliability = 1.0
	}

	return confidenceLevelWeight*level.Weight() +
		confidenceReliabilityWeight*reliability +
		confidenceCompletenessTerm*pipelineCompleteness
}

// detectInteraction applies the drug-specific multi-gene interaction checks.
// Drugs without a secondary-gene rule report no significant interaction.
func (e *RiskEngine) detectInteraction(drug domain.Drug, gene string, variants []domain.DetectedVariant) domain.MultiGeneInteraction {
	switch drug {
	case domain.DrugWarfarin:
		for _, v := range variants {
			if v.RSID == domain.VKORC1MarkerRSID {
				return domain.MultiGeneInteraction{
					GenesInvolved:     []string{gene, domain.VKORC1Gene},
					InteractionEffect: "VKORC1 variant compounds CYP2C9-driven warfarin sensitivity",
					CompositeScore:    0.85,
				}
			}
		}
	case domain.DrugFluorouracil:
		dpydCount := 0
		for _, v := range variants {
			if v.Gene == "DPYD" {
				dpydCount++
			}
		}
		if dpydCount > 1 {
			return domain.MultiGeneInteraction{
				GenesInvolved:     []string{gene},
				InteractionEffect: "multiple DPYD variants detected; additive loss of dihydropyrimidine dehydrogenase activity",
				CompositeScore:    0.9,
			}
		}
	}

	return domain.MultiGeneInteraction{
		GenesInvolved:     []string{gene},
		InteractionEffect: "no significant interaction",
		CompositeScore:    0.0,
	}
}

// guidelineReference names the CPIC guideline backing the drug/gene pair.
func guidelineReference(drug domain.Drug, gene string) string {
	return "CPIC Guideline for " + titleCase(drug.String()) + " and " + gene
}

// titleCase renders a drug enum value for human-readable references.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return s[:1] + strings.ToLower(s[1:])
}

// phenotypeIn builds a policy condition over a phenotype set.
func phenotypeIn(phenotypes ...domain.Phenotype) func(domain.Phenotype) bool {
	return func(p domain.Phenotype) bool {
		for _, candidate := range phenotypes {
			if p == candidate {
				return true
			}
		}
		return false
	}
}

// initializePolicies registers the per-drug decision tables. Order within a
// drug matters: first match wins.
func (e *RiskEngine) initializePolicies() {
	e.addPolicy(domain.DrugCodeine, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypeURM),
		Outcome: riskOutcome{
			Label:        domain.RiskToxic,
			Severity:     domain.SeverityHigh,
			Action:       "avoid codeine; risk of life-threatening morphine toxicity",
			Alternatives: []string{"Morphine", "Non-opioid analgesics"},
		},
	})
	e.addPolicy(domain.DrugCodeine, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypePM),
		Outcome: riskOutcome{
			Label:        domain.RiskIneffective,
			Severity:     domain.SeverityModerate,
			Action:       "avoid codeine; analgesia unlikely due to absent CYP2D6 activation",
			Alternatives: []string{"Morphine", "Oxycodone"},
		},
	})

	e.addPolicy(domain.DrugWarfarin, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypePM),
		Outcome: riskOutcome{
			Label:        domain.RiskAdjustDosage,
			Severity:     domain.SeverityModerate,
			Action:       "reduce starting dose and monitor INR closely",
			Dosage:       "reduce dose by 50-70%",
			Alternatives: []string{"Direct oral anticoagulants (DOACs)"},
		},
	})
	e.addPolicy(domain.DrugWarfarin, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypeIM),
		Outcome: riskOutcome{
			Label:        domain.RiskAdjustDosage,
			Severity:     domain.SeverityModerate,
			Action:       "reduce starting dose and monitor INR closely",
			Dosage:       "reduce dose by 20-30%",
			Alternatives: []string{"Direct oral anticoagulants (DOACs)"},
		},
	})

	e.addPolicy(domain.DrugClopidogrel, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypePM, domain.PhenotypeIM),
		Outcome: riskOutcome{
			Label:        domain.RiskIneffective,
			Severity:     domain.SeverityHigh,
			Action:       "avoid clopidogrel; impaired CYP2C19 activation reduces antiplatelet effect",
			Alternatives: []string{"Prasugrel", "Ticagrelor"},
		},
	})

	e.addPolicy(domain.DrugSimvastatin, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypePM, domain.PhenotypeIM),
		Outcome: riskOutcome{
			Label:        domain.RiskToxic,
			Severity:     domain.SeverityModerate,
			Action:       "limit simvastatin exposure; elevated myopathy risk from impaired hepatic uptake",
			Dosage:       "cap at 20mg/day",
			Alternatives: []string{"Pravastatin", "Rosuvastatin"},
		},
	})

	e.addPolicy(domain.DrugAzathioprine, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypePM),
		Outcome: riskOutcome{
			Label:        domain.RiskToxic,
			Severity:     domain.SeverityCritical,
			Action:       "drastically reduce dose or select alternative; severe myelosuppression risk",
			Dosage:       "10-fold dose reduction",
			Alternatives: []string{"Methotrexate", "Mycophenolate"},
		},
	})

	e.addPolicy(domain.DrugFluorouracil, riskPolicy{
		Applies: phenotypeIn(domain.PhenotypePM),
		Outcome: riskOutcome{
			Label:        domain.RiskToxic,
			Severity:     domain.SeverityCritical,
			Action:       "reduce dose substantially or select alternative; severe fluoropyrimidine toxicity risk",
			Dosage:       "reduce dose by at least 50%",
			Alternatives: []string{"Capecitabine with monitoring", "Alternative chemotherapy"},
		},
	})

	e.logger.WithField("drug_count", len(e.policies)).Debug("Initialized drug risk policy tables")
}

// addPolicy appends a policy to a drug's ordered policy list.
func (e *RiskEngine) addPolicy(drug domain.Drug, policy riskPolicy) {
	e.policies[drug] = append(e.policies[drug], policy)
}
