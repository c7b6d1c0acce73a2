// Package repository persists completed analysis results in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/database"
	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// ResultRepository stores analysis results as JSONB documents with a few
// extracted columns for indexing and listing.
type ResultRepository struct {
	db  *database.DB
	log *logrus.Logger
}

// NewResultRepository creates a Postgres-backed result repository.
func NewResultRepository(db *database.DB, logger *logrus.Logger) *ResultRepository {
	return &ResultRepository{
		db:  db,
		log: logger,
	}
}

// Create persists a completed analysis result.
func (r *ResultRepository) Create(ctx context.Context, result *domain.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling analysis result: %w", err)
	}

	query := `
		INSERT INTO analysis_results (id, patient_id, drug, risk_label, severity, created_at, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Pool.Exec(ctx, query,
		result.ID,
		result.PatientID,
		result.Drug.String(),
		result.Assessment.RiskLabel.String(),
		result.Assessment.Severity.String(),
		result.Timestamp,
		payload,
	)
	if err != nil {
		return fmt.Errorf("inserting analysis result: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"result_id":  result.ID,
		"patient_id": result.PatientID,
		"drug":       result.Drug.String(),
	}).Debug("Persisted analysis result")

	return nil
}

// GetByID retrieves a single result by its identifier.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	query := `SELECT result FROM analysis_results WHERE id = $1`

	var payload []byte
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis result %s: %w", id, err)
	}

	return unmarshalResult(payload)
}

// ListByPatient returns a page of a patient's results, most recent first.
func (r *ResultRepository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*domain.AnalysisResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT result FROM analysis_results
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing results for patient %s: %w", patientID, err)
	}
	defer rows.Close()

	var results []*domain.AnalysisResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning analysis result row: %w", err)
		}

		result, err := unmarshalResult(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis result rows: %w", err)
	}

	return results, nil
}

func unmarshalResult(payload []byte) (*domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling analysis result: %w", err)
	}
	return &result, nil
}
