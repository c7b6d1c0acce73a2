// Package domain contains core business entities and types for
// pharmacogenomic drug-risk screening: detected variants, metabolizer
// phenotypes, drug risk verdicts and the result record that ties them
// together.
//
// Reference: CPIC guidelines for CYP2D6, CYP2C19, CYP2C9, SLCO1B1, TPMT and
// DPYD based dosing (cpicpgx.org).
package domain

import (
	"errors"
	"strings"
)

// Phenotype represents the categorical metabolizer class derived from a
// patient's diplotype. These categories drive every downstream dosing
// decision, so only the closed set below is ever valid.
type Phenotype string

const (
	PhenotypePM      Phenotype = "PM"  // Poor Metabolizer
	PhenotypeIM      Phenotype = "IM"  // Intermediate Metabolizer
	PhenotypeNM      Phenotype = "NM"  // Normal Metabolizer
	PhenotypeRM      Phenotype = "RM"  // Rapid Metabolizer
	PhenotypeURM     Phenotype = "URM" // Ultra-rapid Metabolizer
	PhenotypeUnknown Phenotype = "Unknown"
)

// Drug represents one of the supported drugs. Each drug maps 1:1 to a
// primary pharmacogene (see GeneForDrug).
type Drug string

const (
	DrugCodeine      Drug = "CODEINE"
	DrugWarfarin     Drug = "WARFARIN"
	DrugClopidogrel  Drug = "CLOPIDOGREL"
	DrugSimvastatin  Drug = "SIMVASTATIN"
	DrugAzathioprine Drug = "AZATHIOPRINE"
	DrugFluorouracil Drug = "FLUOROURACIL"
)

// RiskLabel represents the drug-risk verdict for a (drug, phenotype) pair.
type RiskLabel string

const (
	RiskSafe         RiskLabel = "Safe"
	RiskAdjustDosage RiskLabel = "Adjust Dosage"
	RiskToxic        RiskLabel = "Toxic"
	RiskIneffective  RiskLabel = "Ineffective"
	RiskUnknown      RiskLabel = "Unknown"
)

// Severity grades the clinical impact of a risk verdict.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EvidenceLevel is the CPIC evidence tier backing a recommendation.
type EvidenceLevel string

const (
	EvidenceLevelA EvidenceLevel = "A"
	EvidenceLevelB EvidenceLevel = "B"
	EvidenceLevelC EvidenceLevel = "C"
)

// Validation errors for medical data integrity
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPhenotype = errors.New("invalid metabolizer phenotype")
	ErrInvalidDrug      = errors.New("unsupported drug")
	ErrInvalidRiskLabel = errors.New("invalid risk label")
	ErrInvalidSeverity  = errors.New("invalid severity")
)

// IsValid validates the metabolizer phenotype category. Only valid
// categories may enter a clinical recommendation.
func (p Phenotype) IsValid() bool {
	switch p {
	case PhenotypePM, PhenotypeIM, PhenotypeNM, PhenotypeRM, PhenotypeURM, PhenotypeUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the phenotype.
func (p Phenotype) String() string {
	return string(p)
}

// Description returns a human-readable description of the phenotype for
// clinical reporting.
func (p Phenotype) Description() string {
	switch p {
	case PhenotypePM:
		return "Poor Metabolizer - little or no enzyme activity"
	case PhenotypeIM:
		return "Intermediate Metabolizer - reduced enzyme activity"
	case PhenotypeNM:
		return "Normal Metabolizer - expected enzyme activity"
	case PhenotypeRM:
		return "Rapid Metabolizer - increased enzyme activity"
	case PhenotypeURM:
		return "Ultra-rapid Metabolizer - greatly increased enzyme activity"
	default:
		return "Unknown metabolizer status"
	}
}

// IsAtypical reports whether the phenotype deviates from normal metabolism
// and therefore may trigger a non-default dosing policy.
func (p Phenotype) IsAtypical() bool {
	switch p {
	case PhenotypePM, PhenotypeIM, PhenotypeRM, PhenotypeURM:
		return true
	default:
		return false
	}
}

// LogFields returns structured logging fields for audit trails.
func (p Phenotype) LogFields() map[string]any {
	return map[string]any{
		"phenotype":   string(p),
		"description": p.Description(),
		"is_atypical": p.IsAtypical(),
	}
}

// IsValid validates that the drug is one of the supported drugs.
func (d Drug) IsValid() bool {
	switch d {
	case DrugCodeine, DrugWarfarin, DrugClopidogrel, DrugSimvastatin, DrugAzathioprine, DrugFluorouracil:
		return true
	default:
		return false
	}
}

// String returns the string representation of the drug.
func (d Drug) String() string {
	return string(d)
}

// ParseDrug normalizes user input into a Drug value. Input is
// case-insensitive; unknown names return ErrInvalidDrug.
func ParseDrug(s string) (Drug, error) {
	d := Drug(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", ErrInvalidDrug
	}
	return d, nil
}

// SupportedDrugs returns the closed set of drugs the engine can evaluate,
// in stable order.
func SupportedDrugs() []Drug {
	return []Drug{
		DrugCodeine,
		DrugWarfarin,
		DrugClopidogrel,
		DrugSimvastatin,
		DrugAzathioprine,
		DrugFluorouracil,
	}
}

// IsValid validates the risk label.
func (r RiskLabel) IsValid() bool {
	switch r {
	case RiskSafe, RiskAdjustDosage, RiskToxic, RiskIneffective, RiskUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk label.
func (r RiskLabel) String() string {
	return string(r)
}

// RequiresClinicalAction determines if the verdict requires clinical
// follow-up before prescribing. Conservative for unknown labels.
func (r RiskLabel) RequiresClinicalAction() bool {
	switch r {
	case RiskSafe:
		return false
	case RiskAdjustDosage, RiskToxic, RiskIneffective:
		return true
	default:
		return true
	}
}

// IsValid validates the severity grade.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid validates the CPIC evidence level.
func (e EvidenceLevel) IsValid() bool {
	switch e {
	case EvidenceLevelA, EvidenceLevelB, EvidenceLevelC:
		return true
	default:
		return false
	}
}

// Weight returns the confidence weight assigned to the evidence tier.
// Used as the dominant term of the composite confidence score.
func (e EvidenceLevel) Weight() float64 {
	switch e {
	case EvidenceLevelA:
		return 1.0
	case EvidenceLevelB:
		return 0.7
	case EvidenceLevelC:
		return 0.4
	default:
		return 0.0
	}
}
