package domain

// Process-wide read-only configuration tables. These are initialized once at
// startup and exposed through accessor functions only; no write path exists
// at runtime.

// geneForDrug is the fixed 1:1 drug-to-primary-gene mapping.
var geneForDrug = map[Drug]string{
	DrugCodeine:      "CYP2D6",
	DrugWarfarin:     "CYP2C9",
	DrugClopidogrel:  "CYP2C19",
	DrugSimvastatin:  "SLCO1B1",
	DrugAzathioprine: "TPMT",
	DrugFluorouracil: "DPYD",
}

// populationFrequency maps known rsIDs to their approximate population
// allele frequency. Unmapped rsIDs default to DefaultVariantFrequency.
var populationFrequency = map[string]float64{
	"rs3892097":  0.185, // CYP2D6*4
	"rs28371706": 0.028, // CYP2D6*17 region marker
	"rs1065852":  0.231, // CYP2D6*10
	"rs4244285":  0.151, // CYP2C19*2
	"rs4986893":  0.042, // CYP2C19*3
	"rs12248560": 0.224, // CYP2C19*17
	"rs1799853":  0.124, // CYP2C9*2
	"rs1057910":  0.073, // CYP2C9*3
	"rs4149056":  0.151, // SLCO1B1*5
	"rs1800462":  0.005, // TPMT*2
	"rs1800460":  0.031, // TPMT*3B
	"rs1142345":  0.044, // TPMT*3C
	"rs3918290":  0.007, // DPYD*2A
	"rs67376798": 0.011, // DPYD c.2846A>T
	"rs9923231":  0.389, // VKORC1 -1639G>A
}

// DefaultVariantFrequency is assumed for rsIDs absent from the population
// table. Chosen low enough to keep unmapped variants on the rare side
// without dominating the rarity score.
const DefaultVariantFrequency = 0.05

// GeneForDrug returns the primary pharmacogene for a supported drug.
// The boolean is false for unsupported drugs.
func GeneForDrug(d Drug) (string, bool) {
	gene, ok := geneForDrug[d]
	return gene, ok
}

// FrequencyForRSID returns the population frequency for an rsID, falling
// back to DefaultVariantFrequency for unmapped identifiers.
func FrequencyForRSID(rsid string) float64 {
	if f, ok := populationFrequency[rsid]; ok {
		return f
	}
	return DefaultVariantFrequency
}

// VKORC1MarkerRSID is the secondary-gene marker checked by the warfarin
// multi-gene interaction rule.
const VKORC1MarkerRSID = "rs9923231"

// VKORC1Gene is the secondary gene implicated by VKORC1MarkerRSID.
const VKORC1Gene = "VKORC1"
