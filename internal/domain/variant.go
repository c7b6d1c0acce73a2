package domain

import "strings"

// DetectedVariant is one normalized variant record extracted from a patient
// genomic report. Identity is (RSID, Gene); duplicates from the same report
// are preserved in source order and never collapsed, so downstream counts
// operate over the full sequence.
type DetectedVariant struct {
	RSID       string  `json:"rsid"` // canonical "rs<digits>" or "unknown"
	Gene       string  `json:"gene"`
	Genotype   string  `json:"genotype"` // "<ref>/<alt>" verbatim
	StarAllele string  `json:"star_allele,omitempty"`
	Frequency  float64 `json:"frequency"` // population frequency in [0,1]
}

// MatchesGene reports whether the variant is relevant to the target gene.
// The rsID substring match is a deliberately loose secondary check so that
// records carrying the gene symbol only in their identifier (or with an
// unknown gene field) still count.
func (v DetectedVariant) MatchesGene(gene string) bool {
	return v.Gene == gene || strings.Contains(v.RSID, gene)
}

// PhenotypeDistribution is a discrete prior over the five metabolizer
// categories. It should sum to 1.0 but is engine-supplied and never
// renormalized.
type PhenotypeDistribution struct {
	PM  float64 `json:"pm"`
	IM  float64 `json:"im"`
	NM  float64 `json:"nm"`
	RM  float64 `json:"rm"`
	URM float64 `json:"urm"`
}

// Sum returns the total probability mass. Diagnostic only; the engine does
// not renormalize.
func (d PhenotypeDistribution) Sum() float64 {
	return d.PM + d.IM + d.NM + d.RM + d.URM
}

// PharmacogenomicProfile is the per-gene inference result: the diplotype
// call, its categorical phenotype, the probability distribution behind the
// call, the gene-relevant variant subsequence and a rarity score.
type PharmacogenomicProfile struct {
	PrimaryGene          string                `json:"primary_gene"`
	Diplotype            string                `json:"diplotype"`
	Phenotype            Phenotype             `json:"phenotype"`
	DetectedVariants     []DetectedVariant     `json:"detected_variants"`
	PhenotypeProbability PhenotypeDistribution `json:"phenotype_probability"`
	VariantRarityScore   float64               `json:"variant_rarity_score"` // in [0,1], high = rare
}
