package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// ExplanationValidator is the hallucination guardrail: it verifies that
// every rsID-shaped citation in a generated explanation is grounded in the
// detected variant set. Gene-symbol citations are deliberately out of scope;
// widening the check would change observable pass/fail outcomes.
type ExplanationValidator struct {
	logger *logrus.Logger
}

// NewExplanationValidator creates a new explanation validator.
func NewExplanationValidator(logger *logrus.Logger) *ExplanationValidator {
	return &ExplanationValidator{logger: logger}
}

// Validate returns failed iff any citation starts with "rs" and is absent,
// case-insensitively, from the detected rsID set. It is pure and total: it
// never errors, and an empty citation list passes vacuously.
func (v *ExplanationValidator) Validate(variants []domain.DetectedVariant, citations []string) domain.HallucinationVerdict {
	detected := make(map[string]struct{}, len(variants))
	for _, variant := range variants {
		detected[strings.ToLower(variant.RSID)] = struct{}{}
	}

	for _, citation := range citations {
		lowered := strings.ToLower(citation)
		if !strings.HasPrefix(lowered, "rs") {
			continue
		}
		if _, ok := detected[lowered]; !ok {
			v.logger.WithFields(logrus.Fields{
				"citation":       citation,
				"detected_count": len(detected),
			}).Warn("Explanation cites a variant absent from the record")
			return domain.HallucinationCheckFailed
		}
	}

	return domain.HallucinationCheckPassed
}
