package service

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestVariantExtractor_Extract(t *testing.T) {
	extractor := NewVariantExtractor(testLogger())

	record := "1\t123\trs28371706\tC\tT\t.\t.\tGENE=CYP2D6;STAR=*4\n" +
		"10\t456\trs4149056\tT\tC\t.\t.\tGENE=SLCO1B1"

	variants := extractor.Extract(record)
	require.Len(t, variants, 2)

	assert.Equal(t, "rs28371706", variants[0].RSID)
	assert.Equal(t, "CYP2D6", variants[0].Gene)
	assert.Equal(t, "C/T", variants[0].Genotype)
	assert.Equal(t, "*4", variants[0].StarAllele)

	assert.Equal(t, "rs4149056", variants[1].RSID)
	assert.Equal(t, "SLCO1B1", variants[1].Gene)
	assert.Empty(t, variants[1].StarAllele)
}

func TestVariantExtractor_Extract_Frequencies(t *testing.T) {
	extractor := NewVariantExtractor(testLogger())

	record := "10\t1\trs4149056\tT\tC\t.\t.\tGENE=SLCO1B1\n" +
		"7\t2\trs0000001\tA\tG\t.\t.\tGENE=CYP2D6"

	variants := extractor.Extract(record)
	require.Len(t, variants, 2)

	// Known rsIDs carry their population frequency, unknown ones the default.
	assert.InDelta(t, 0.151, variants[0].Frequency, 1e-9)
	assert.InDelta(t, domain.DefaultVariantFrequency, variants[1].Frequency, 1e-9)
}

func TestVariantExtractor_Extract_EmptyInput(t *testing.T) {
	extractor := NewVariantExtractor(testLogger())

	assert.Empty(t, extractor.Extract(""))
	assert.Empty(t, extractor.Extract("# header only\n\n"))
	assert.Empty(t, extractor.Extract("complete garbage without tabs"))
}

func TestVariantExtractor_Extract_PreservesDuplicates(t *testing.T) {
	extractor := NewVariantExtractor(testLogger())

	line := "22\t42\trs3892097\tG\tA\t.\t.\tGENE=CYP2D6;STAR=*4"
	variants := extractor.Extract(line + "\n" + line)

	require.Len(t, variants, 2)
	assert.Equal(t, variants[0], variants[1])
}
