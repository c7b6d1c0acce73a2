package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const maxExportLimit = 100000

// SQLiteStore implements Store using an embedded SQLite database. It is the
// backend for standalone operation where no Postgres is available.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and if needed creates) the review database at the
// given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id TEXT NOT NULL UNIQUE,
		patient_id TEXT NOT NULL,
		drug TEXT NOT NULL,
		suggested_risk_label TEXT NOT NULL,
		reviewer_risk_label TEXT NOT NULL,
		reviewer_agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_patient ON reviews(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface over sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(s scanner) (*Review, error) {
	review := &Review{}
	err := s.Scan(
		&review.ID, &review.ResultID, &review.PatientID, &review.Drug,
		&review.SuggestedRiskLabel, &review.ReviewerRiskLabel, &review.ReviewerAgreed,
		&review.Notes, &review.CreatedAt, &review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return review, nil
}

// Save stores or updates the review for a result.
func (s *SQLiteStore) Save(ctx context.Context, review *Review) error {
	now := time.Now()

	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM reviews WHERE result_id = ?", review.ResultID,
	).Scan(&existingID)

	if err == nil {
		review.ID = existingID
		review.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE reviews SET
				patient_id = ?,
				drug = ?,
				suggested_risk_label = ?,
				reviewer_risk_label = ?,
				reviewer_agreed = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			review.PatientID,
			review.Drug,
			review.SuggestedRiskLabel,
			review.ReviewerRiskLabel,
			review.ReviewerAgreed,
			review.Notes,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("checking existing review: %w", err)
	}

	review.CreatedAt = now
	review.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (
			result_id, patient_id, drug,
			suggested_risk_label, reviewer_risk_label, reviewer_agreed,
			notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.ResultID,
		review.PatientID,
		review.Drug,
		review.SuggestedRiskLabel,
		review.ReviewerRiskLabel,
		review.ReviewerAgreed,
		review.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert ID: %w", err)
	}
	review.ID = id

	return nil
}

// Get retrieves the review for a result, nil when none exists.
func (s *SQLiteStore) Get(ctx context.Context, resultID string) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, result_id, patient_id, drug,
			suggested_risk_label, reviewer_risk_label, reviewer_agreed,
			notes, created_at, updated_at
		FROM reviews
		WHERE result_id = ?
		LIMIT 1
	`, resultID)

	review, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning review: %w", err)
	}
	return review, nil
}

// List returns reviews with pagination, most recent first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, result_id, patient_id, drug,
			suggested_risk_label, reviewer_risk_label, reviewer_agreed,
			notes, created_at, updated_at
		FROM reviews
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// Count returns the total number of reviews.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting reviews: %w", err)
	}
	return count, nil
}

// Delete removes a review by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting review: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("review %d not found", id)
	}
	return nil
}

// ExportJSON writes all reviews to the writer as a versioned document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("listing reviews for export: %w", err)
	}

	export := &ReviewExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Reviews:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON loads reviews from a versioned document, skipping results that
// already have one.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export ReviewExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("decoding review export: %w", err)
	}

	for _, review := range export.Reviews {
		existing, err := s.Get(ctx, review.ResultID)
		if err != nil {
			return imported, skipped, fmt.Errorf("checking existing review: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, review); err != nil {
			return imported, skipped, fmt.Errorf("saving imported review: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
