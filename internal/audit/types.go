// Package audit records clinician reviews of analysis verdicts. Each entry
// captures what the pipeline suggested, what the reviewer decided and
// whether they agreed, forming the trail regulators and rule-table curators
// work from.
package audit

import (
	"context"
	"io"
	"time"
)

// Review is one clinician review of an analysis result.
type Review struct {
	ID                 int64     `json:"id,omitempty"`
	ResultID           string    `json:"result_id"`            // Analysis result under review
	PatientID          string    `json:"patient_id"`           // Denormalized for listing
	Drug               string    `json:"drug"`                 // Denormalized for listing
	SuggestedRiskLabel string    `json:"suggested_risk_label"` // Pipeline verdict
	ReviewerRiskLabel  string    `json:"reviewer_risk_label"`  // Clinician decision
	ReviewerAgreed     bool      `json:"reviewer_agreed"`      // Did they agree with the pipeline?
	Notes              string    `json:"notes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Store defines review storage. One review exists per result; saving again
// updates it.
type Store interface {
	// Save stores or updates the review for a result.
	Save(ctx context.Context, review *Review) error

	// Get retrieves the review for a result, nil when none exists.
	Get(ctx context.Context, resultID string) (*Review, error)

	// List returns reviews with pagination, most recent first.
	List(ctx context.Context, limit, offset int) ([]*Review, error)

	// Count returns the total number of reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON writes all reviews to the writer as a versioned document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads reviews from a versioned document, skipping results
	// that already have one. Returns imported and skipped counts.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// ReviewExport is the JSON export format.
type ReviewExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Reviews    []*Review `json:"reviews"`
}
