package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// PhenotypeEngine reduces the gene-relevant variants of a record to a
// diplotype call, a metabolizer phenotype and a discrete probability
// distribution over the five categories.
type PhenotypeEngine struct {
	logger *logrus.Logger
	rules  map[string][]phenotypeRule
}

// phenotypeRule is one (trigger, outcome) pair for a gene. Rules for a gene
// are evaluated in registration order, first match wins, so more specific
// triggers must be registered first.
type phenotypeRule struct {
	Name    string
	Trigger func(v domain.DetectedVariant) bool
	Outcome func(v domain.DetectedVariant) phenotypeCall
}

// phenotypeCall is the outcome of a matched rule.
type phenotypeCall struct {
	Diplotype    string
	Phenotype    domain.Phenotype
	Distribution domain.PhenotypeDistribution
}

// NewPhenotypeEngine creates a phenotype engine with the built-in per-gene
// rule tables registered.
func NewPhenotypeEngine(logger *logrus.Logger) *PhenotypeEngine {
	engine := &PhenotypeEngine{
		logger: logger,
		rules:  make(map[string][]phenotypeRule),
	}

	engine.initializeRules()

	return engine
}

// defaultCall is returned when no rule fires for the target gene: wild-type
// diplotype, normal metabolizer, and the population-prior distribution.
func defaultCall() phenotypeCall {
	return phenotypeCall{
		Diplotype:    "*1/*1",
		Phenotype:    domain.PhenotypeNM,
		Distribution: domain.PhenotypeDistribution{PM: 0.05, IM: 0.15, NM: 0.70, RM: 0.05, URM: 0.05},
	}
}

// Infer derives the pharmacogenomic profile fragment for the target gene
// from the full detected variant sequence. It is pure and total: unknown
// genes and empty variant sets fall through to the normal-metabolizer
// default rather than erroring.
func (e *PhenotypeEngine) Infer(gene string, variants []domain.DetectedVariant) domain.PharmacogenomicProfile {
	relevant := relevantVariants(gene, variants)

	call := defaultCall()
	matched := ""

	for _, rule := range e.rules[gene] {
		if matched != "" {
			break
		}
		for _, v := range relevant {
			if rule.Trigger(v) {
				call = rule.Outcome(v)
				matched = rule.Name
				break
			}
		}
	}

	e.logger.WithFields(logrus.Fields{
		"gene":           gene,
		"relevant_count": len(relevant),
		"matched_rule":   matched,
		"diplotype":      call.Diplotype,
		"phenotype":      call.Phenotype.String(),
	}).Debug("Inferred metabolizer phenotype")

	return domain.PharmacogenomicProfile{
		PrimaryGene:          gene,
		Diplotype:            call.Diplotype,
		Phenotype:            call.Phenotype,
		DetectedVariants:     relevant,
		PhenotypeProbability: call.Distribution,
		VariantRarityScore:   rarityScore(relevant),
	}
}

// relevantVariants filters the ordered variant sequence down to the target
// gene, preserving source order and duplicates.
func relevantVariants(gene string, variants []domain.DetectedVariant) []domain.DetectedVariant {
	var relevant []domain.DetectedVariant
	for _, v := range variants {
		if v.MatchesGene(gene) {
			relevant = append(relevant, v)
		}
	}
	return relevant
}

// rarityScore is 1 minus the mean population frequency over the relevant
// variants, 0 when none were detected. Bounded to [0,1] because every
// frequency is.
func rarityScore(variants []domain.DetectedVariant) float64 {
	if len(variants) == 0 {
		return 0.0
	}

	var sum float64
	for _, v := range variants {
		sum += v.Frequency
	}
	return 1.0 - sum/float64(len(variants))
}

// starAlleleIs builds a trigger matching an exact star-allele annotation.
func starAlleleIs(star string) func(domain.DetectedVariant) bool {
	return func(v domain.DetectedVariant) bool {
		return v.StarAllele == star
	}
}

// fixedCall builds an outcome that ignores the matched variant.
func fixedCall(diplotype string, phenotype domain.Phenotype, dist domain.PhenotypeDistribution) func(domain.DetectedVariant) phenotypeCall {
	return func(domain.DetectedVariant) phenotypeCall {
		return phenotypeCall{Diplotype: diplotype, Phenotype: phenotype, Distribution: dist}
	}
}

// initializeRules registers the per-gene decision tables. Order within a
// gene matters: first match wins.
func (e *PhenotypeEngine) initializeRules() {
	e.addRule("CYP2D6", phenotypeRule{
		Name:    "CYP2D6*4 homozygous null",
		Trigger: starAlleleIs("*4"),
		Outcome: fixedCall("*4/*4", domain.PhenotypePM, domain.PhenotypeDistribution{PM: 0.90, IM: 0.08, NM: 0.02}),
	})
	e.addRule("CYP2D6", phenotypeRule{
		Name:    "CYP2D6 gene duplication",
		Trigger: starAlleleIs("*1xN"),
		Outcome: fixedCall("*1/*1xN", domain.PhenotypeURM, domain.PhenotypeDistribution{NM: 0.10, RM: 0.20, URM: 0.70}),
	})

	e.addRule("CYP2C19", phenotypeRule{
		Name:    "CYP2C19*2 loss of function",
		Trigger: starAlleleIs("*2"),
		Outcome: fixedCall("*2/*2", domain.PhenotypePM, domain.PhenotypeDistribution{PM: 0.85, IM: 0.10, NM: 0.05}),
	})
	e.addRule("CYP2C19", phenotypeRule{
		Name:    "CYP2C19*17 increased function",
		Trigger: starAlleleIs("*17"),
		Outcome: fixedCall("*17/*17", domain.PhenotypeRM, domain.PhenotypeDistribution{NM: 0.15, RM: 0.80, URM: 0.05}),
	})

	e.addRule("CYP2C9", phenotypeRule{
		Name:    "CYP2C9*3 severe reduction",
		Trigger: starAlleleIs("*3"),
		Outcome: fixedCall("*3/*3", domain.PhenotypePM, domain.PhenotypeDistribution{PM: 0.95, IM: 0.04, NM: 0.01}),
	})
	e.addRule("CYP2C9", phenotypeRule{
		Name:    "CYP2C9*2 moderate reduction",
		Trigger: starAlleleIs("*2"),
		Outcome: fixedCall("*2/*2", domain.PhenotypeIM, domain.PhenotypeDistribution{PM: 0.10, IM: 0.80, NM: 0.10}),
	})

	e.addRule("SLCO1B1", phenotypeRule{
		Name: "SLCO1B1 rs4149056 C allele",
		Trigger: func(v domain.DetectedVariant) bool {
			return v.RSID == "rs4149056" && strings.Contains(v.Genotype, "C")
		},
		Outcome: func(v domain.DetectedVariant) phenotypeCall {
			if v.Genotype == "C/C" {
				return phenotypeCall{
					Diplotype:    "C/C",
					Phenotype:    domain.PhenotypePM,
					Distribution: domain.PhenotypeDistribution{PM: 0.95, IM: 0.05},
				}
			}
			return phenotypeCall{
				Diplotype:    "T/C",
				Phenotype:    domain.PhenotypeIM,
				Distribution: domain.PhenotypeDistribution{PM: 0.10, IM: 0.85, NM: 0.05},
			}
		},
	})

	e.addRule("TPMT", phenotypeRule{
		Name:    "TPMT*3A non-functional",
		Trigger: starAlleleIs("*3A"),
		Outcome: fixedCall("*3A/*3A", domain.PhenotypePM, domain.PhenotypeDistribution{PM: 0.98, IM: 0.02}),
	})

	e.addRule("DPYD", phenotypeRule{
		Name:    "DPYD*2A splice defect",
		Trigger: starAlleleIs("*2A"),
		Outcome: fixedCall("*2A/*2A", domain.PhenotypePM, domain.PhenotypeDistribution{PM: 0.99, IM: 0.01}),
	})

	e.logger.WithField("gene_count", len(e.rules)).Debug("Initialized phenotype rule tables")
}

// addRule appends a rule to a gene's ordered rule list.
func (e *PhenotypeEngine) addRule(gene string, rule phenotypeRule) {
	e.rules[gene] = append(e.rules[gene], rule)
}
