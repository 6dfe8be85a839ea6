package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oncovista-opd-server/internal/domain"

	_ "modernc.org/sqlite"
)

const feedbackColumns = `id, assessment_id, kind, cancer_type,
	suggested_outcome, clinician_outcome, agreed,
	notes, created_at, updated_at`

// SQLiteStore implements Store on a local SQLite file. It backs the lite
// binaries, which run without PostgreSQL.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens dbPath, creating the file and schema when missing
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// scanner is satisfied by sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var kind string

	err := s.Scan(
		&fb.ID, &fb.AssessmentID, &kind, &fb.CancerType,
		&fb.SuggestedOutcome, &fb.ClinicianOutcome, &fb.Agreed,
		&fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.Kind = domain.AssessmentKind(kind)
	return fb, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessment_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assessment_id TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		cancer_type TEXT DEFAULT '',
		suggested_outcome TEXT NOT NULL,
		clinician_outcome TEXT NOT NULL,
		agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_kind ON assessment_feedback(kind);
	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON assessment_feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or replaces the feedback for fb.AssessmentID
func (s *SQLiteStore) Save(ctx context.Context, fb *Feedback) error {
	if err := fb.Prepare(); err != nil {
		return err
	}
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM assessment_feedback WHERE assessment_id = ?",
		fb.AssessmentID,
	).Scan(&existingID, &createdAt)

	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE assessment_feedback SET
				kind = ?,
				cancer_type = ?,
				suggested_outcome = ?,
				clinician_outcome = ?,
				agreed = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(fb.Kind), fb.CancerType,
			fb.SuggestedOutcome, fb.ClinicianOutcome, fb.Agreed,
			fb.Notes, now, existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update feedback: %w", err)
		}
		fb.ID = existingID
		fb.CreatedAt = createdAt
		fb.UpdatedAt = now
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO assessment_feedback (
			assessment_id, kind, cancer_type,
			suggested_outcome, clinician_outcome, agreed,
			notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fb.AssessmentID, string(fb.Kind), fb.CancerType,
		fb.SuggestedOutcome, fb.ClinicianOutcome, fb.Agreed,
		fb.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	fb.ID = id
	fb.CreatedAt = now
	fb.UpdatedAt = now
	return nil
}

// Get returns the feedback for an assessment, or nil when there is none
func (s *SQLiteStore) Get(ctx context.Context, assessmentID string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+feedbackColumns+" FROM assessment_feedback WHERE assessment_id = ?",
		assessmentID,
	)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}
	return fb, nil
}

// List returns feedback entries, newest first
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+feedbackColumns+" FROM assessment_feedback ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessment_feedback").Scan(&count)
	return count, err
}

// Summary returns agreement per assessment kind
func (s *SQLiteStore) Summary(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*), COALESCE(SUM(agreed), 0)
		FROM assessment_feedback
		GROUP BY kind
		ORDER BY kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize feedback: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// Delete removes a feedback entry by ID
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM assessment_feedback WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanSummaries(rows rowScanner) ([]Summary, error) {
	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		var kind string
		if err := rows.Scan(&kind, &sum.Total, &sum.Agreed); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		sum.Kind = domain.AssessmentKind(kind)
		sum.AgreementRate = agreementRate(sum.Total, sum.Agreed)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
