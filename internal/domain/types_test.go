package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhenotypeIsValid(t *testing.T) {
	valid := []Phenotype{PhenotypePM, PhenotypeIM, PhenotypeNM, PhenotypeRM, PhenotypeURM, PhenotypeUnknown}
	for _, p := range valid {
		assert.True(t, p.IsValid(), "expected %s to be valid", p)
	}

	assert.False(t, Phenotype("SUPER").IsValid())
	assert.False(t, Phenotype("").IsValid())
}

func TestParseDrug(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Drug
		wantErr bool
	}{
		{name: "exact", input: "CODEINE", want: DrugCodeine},
		{name: "lowercase", input: "warfarin", want: DrugWarfarin},
		{name: "whitespace", input: "  clopidogrel \n", want: DrugClopidogrel},
		{name: "unknown", input: "aspirin", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDrug(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDrug)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeneForDrug(t *testing.T) {
	for _, d := range SupportedDrugs() {
		gene, ok := GeneForDrug(d)
		require.True(t, ok, "drug %s must map to a gene", d)
		assert.NotEmpty(t, gene)
	}

	_, ok := GeneForDrug(Drug("ASPIRIN"))
	assert.False(t, ok)
}

func TestFrequencyForRSID(t *testing.T) {
	assert.InDelta(t, 0.151, FrequencyForRSID("rs4149056"), 1e-9)
	assert.InDelta(t, DefaultVariantFrequency, FrequencyForRSID("rs9999999"), 1e-9)
}

func TestRiskLabelRequiresClinicalAction(t *testing.T) {
	assert.False(t, RiskSafe.RequiresClinicalAction())
	assert.True(t, RiskToxic.RequiresClinicalAction())
	assert.True(t, RiskAdjustDosage.RequiresClinicalAction())
	assert.True(t, RiskIneffective.RequiresClinicalAction())
	// Conservative default for anything outside the closed set.
	assert.True(t, RiskLabel("???").RequiresClinicalAction())
}

func TestEvidenceLevelWeight(t *testing.T) {
	assert.Equal(t, 1.0, EvidenceLevelA.Weight())
	assert.Equal(t, 0.7, EvidenceLevelB.Weight())
	assert.Equal(t, 0.4, EvidenceLevelC.Weight())
	assert.Equal(t, 0.0, EvidenceLevel("Z").Weight())
}

func TestDetectedVariantMatchesGene(t *testing.T) {
	v := DetectedVariant{RSID: "rs3892097", Gene: "CYP2D6"}
	assert.True(t, v.MatchesGene("CYP2D6"))
	assert.False(t, v.MatchesGene("TPMT"))

	// Loose secondary match on the rsID for records with no gene tag.
	tagged := DetectedVariant{RSID: "CYP2D6_custom_marker", Gene: "unknown"}
	assert.True(t, tagged.MatchesGene("CYP2D6"))
}

func TestAnalysisResultRoundTrip(t *testing.T) {
	original := &AnalysisResult{
		ID:        "9b6f5a0e-0a1f-4f6e-8c7d-2f4a9d1b3c5e",
		PatientID: "patient-7",
		Drug:      DrugCodeine,
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Assessment: RiskAssessment{
			RiskLabel:       RiskIneffective,
			ConfidenceScore: 0.82,
			Severity:        SeverityModerate,
		},
		Profile: PharmacogenomicProfile{
			PrimaryGene: "CYP2D6",
			Diplotype:   "*4/*4",
			Phenotype:   PhenotypePM,
			DetectedVariants: []DetectedVariant{
				{RSID: "rs28371706", Gene: "CYP2D6", Genotype: "C/T", StarAllele: "*4", Frequency: 0.028},
			},
			PhenotypeProbability: PhenotypeDistribution{PM: 0.90, IM: 0.08, NM: 0.02},
			VariantRarityScore:   0.972,
		},
		CPIC:        CPICAlignment{EvidenceLevel: EvidenceLevelA, EvidenceStrength: "Strong"},
		Interaction: MultiGeneInteraction{GenesInvolved: []string{"CYP2D6"}, InteractionEffect: "no significant interaction"},
		Recommendation: ClinicalRecommendation{
			Action:             "avoid codeine; select alternative analgesic",
			Alternatives:       []string{"Morphine", "Oxycodone"},
			GuidelineReference: "CPIC Guideline for Codeine and CYP2D6",
		},
		Explanation: Explanation{
			Summary:          "CYP2D6 poor metabolizer status predicts absent analgesia from codeine.",
			VariantCitations: []string{"rs28371706"},
			Fallback:         true,
		},
		Quality: QualityMetrics{
			ParseSuccess:          true,
			VariantCount:          1,
			ProcessingTimeMS:      12,
			LLMHallucinationCheck: HallucinationCheckPassed,
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded AnalysisResult
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, *original, decoded)
}
