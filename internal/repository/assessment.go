package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AssessmentRepository persists assessment history in PostgreSQL
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

var _ domain.AssessmentRepository = (*AssessmentRepository)(nil)

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// SaveAssessment inserts a record. Saving the same id twice is a no-op.
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, rec *domain.AssessmentRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("invalid assessment id %q: %w", rec.ID, err)
	}

	query := `
		INSERT INTO assessments (
			id, kind, cancer_type, outcome, score,
			input_hash, payload, processing_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		id,
		string(rec.Kind),
		rec.CancerType,
		rec.Outcome,
		rec.Score,
		rec.InputHash,
		[]byte(rec.Payload),
		rec.ProcessingMs,
		rec.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": rec.ID,
			"kind":          rec.Kind,
			"error":         err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": rec.ID,
		"kind":          rec.Kind,
		"outcome":       rec.Outcome,
	}).Debug("Assessment saved")

	return nil
}

// GetAssessment retrieves an assessment by its ID
func (r *AssessmentRepository) GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("assessment %q: %w", id, domain.ErrNotFound)
	}

	query := `
		SELECT id::text, kind, cancer_type, outcome, score,
			   input_hash, payload, processing_ms, created_at
		FROM assessments
		WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, parsed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment")
		return nil, fmt.Errorf("getting assessment: %w", err)
	}

	return rec, nil
}

// ListAssessments returns assessments of one kind, newest first
func (r *AssessmentRepository) ListAssessments(ctx context.Context, kind domain.AssessmentKind, limit, offset int) ([]*domain.AssessmentRecord, error) {
	limit, offset = clampPage(limit, offset)

	query := `
		SELECT id::text, kind, cancer_type, outcome, score,
			   input_hash, payload, processing_ms, created_at
		FROM assessments
		WHERE kind = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, string(kind), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	records := []*domain.AssessmentRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessments: %w", err)
	}

	return records, nil
}

// CountByOutcome tallies stored assessments of one kind per outcome
func (r *AssessmentRepository) CountByOutcome(ctx context.Context, kind domain.AssessmentKind) (map[string]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT outcome, COUNT(*) FROM assessments WHERE kind = $1 GROUP BY outcome`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("counting assessments: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning outcome count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.AssessmentRecord, error) {
	var rec domain.AssessmentRecord
	var kind string
	var payload []byte

	err := row.Scan(
		&rec.ID,
		&kind,
		&rec.CancerType,
		&rec.Outcome,
		&rec.Score,
		&rec.InputHash,
		&payload,
		&rec.ProcessingMs,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = domain.AssessmentKind(kind)
	rec.Payload = payload
	return &rec, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
