package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/database"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS analysis_results (
    id         UUID PRIMARY KEY,
    patient_id TEXT        NOT NULL,
    drug       TEXT        NOT NULL,
    risk_label TEXT        NOT NULL,
    severity   TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    result     JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_patient ON analysis_results (patient_id, created_at DESC);`

func setupTestRepository(t *testing.T) (*ResultRepository, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, domain.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "testdb",
		Username: "testuser",
		Password: "testpass",
		SSLMode:  "disable",
	}, logger)
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx, resultsSchema)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return NewResultRepository(db, logger), cleanup
}

func sampleResult(patientID string, drug domain.Drug, at time.Time) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		ID:        uuid.New().String(),
		PatientID: patientID,
		Drug:      drug,
		Timestamp: at,
		Assessment: domain.RiskAssessment{
			RiskLabel:       domain.RiskIneffective,
			ConfidenceScore: 0.82,
			Severity:        domain.SeverityModerate,
		},
		Profile: domain.PharmacogenomicProfile{
			PrimaryGene: "CYP2D6",
			Diplotype:   "*4/*4",
			Phenotype:   domain.PhenotypePM,
		},
		Quality: domain.QualityMetrics{
			ParseSuccess:          true,
			VariantCount:          1,
			LLMHallucinationCheck: domain.HallucinationCheckPassed,
		},
	}
}

func TestResultRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}

	repo, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()
	result := sampleResult("PT-001", domain.DrugCodeine, time.Now().UTC())

	require.NoError(t, repo.Create(ctx, result))

	fetched, err := repo.GetByID(ctx, result.ID)
	require.NoError(t, err)

	assert.Equal(t, result.ID, fetched.ID)
	assert.Equal(t, result.PatientID, fetched.PatientID)
	assert.Equal(t, result.Drug, fetched.Drug)
	assert.Equal(t, result.Assessment, fetched.Assessment)
	assert.Equal(t, result.Profile, fetched.Profile)
}

func TestResultRepository_GetByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}

	repo, cleanup := setupTestRepository(t)
	defer cleanup()

	_, err := repo.GetByID(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResultRepository_ListByPatient(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping container test in short mode")
	}

	repo, cleanup := setupTestRepository(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 3; i++ {
		result := sampleResult("PT-100", domain.DrugCodeine, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, result))
	}
	require.NoError(t, repo.Create(ctx, sampleResult("PT-200", domain.DrugWarfarin, base)))

	results, err := repo.ListByPatient(ctx, "PT-100", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Most recent first.
	for i := 1; i < len(results); i++ {
		assert.True(t, !results[i-1].Timestamp.Before(results[i].Timestamp),
			fmt.Sprintf("results[%d] should not be older than results[%d]", i-1, i))
	}

	page, err := repo.ListByPatient(ctx, "PT-100", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	empty, err := repo.ListByPatient(ctx, "PT-999", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
