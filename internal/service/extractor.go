// Package service implements the analysis pipeline: variant extraction,
// phenotype inference, risk rule evaluation, explanation validation and the
// orchestration that ties them to the external explanation generator.
package service

import (
	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
	"github.com/Neon01602/PharmaGenie-RIFT/pkg/vcf"
)

// VariantExtractor turns raw patient record text into normalized detected
// variants. It is a pure transformation: permissive parsing means it never
// returns an error, it only yields fewer variants for noisier input.
type VariantExtractor struct {
	logger *logrus.Logger
}

// NewVariantExtractor creates a new variant extractor.
func NewVariantExtractor(logger *logrus.Logger) *VariantExtractor {
	return &VariantExtractor{logger: logger}
}

// Extract parses the record text and annotates each recognized variant with
// its population frequency. Insertion order follows record order in the
// source text; duplicate records are preserved.
func (e *VariantExtractor) Extract(recordText string) []domain.DetectedVariant {
	records := vcf.ParseRecord(recordText)

	variants := make([]domain.DetectedVariant, 0, len(records))
	for _, rec := range records {
		variants = append(variants, domain.DetectedVariant{
			RSID:       rec.RSID,
			Gene:       rec.Gene,
			Genotype:   rec.Genotype,
			StarAllele: rec.StarAllele,
			Frequency:  domain.FrequencyForRSID(rec.RSID),
		})
	}

	e.logger.WithFields(logrus.Fields{
		"record_bytes":  len(recordText),
		"variant_count": len(variants),
	}).Debug("Extracted variants from record text")

	return variants
}
