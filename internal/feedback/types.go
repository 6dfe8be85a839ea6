// Package feedback stores clinician verdicts on engine assessments. A verdict
// either agrees with the engine's outcome (risk category or urgency level) or
// overrides it, and agreement rates feed back into rule-table review.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oncovista-opd-server/internal/domain"
)

// Feedback is a clinician's verdict on one assessment. There is at most one
// entry per assessment; saving again replaces the verdict.
type Feedback struct {
	ID               int64                 `json:"id,omitempty"`
	AssessmentID     string                `json:"assessment_id"`
	Kind             domain.AssessmentKind `json:"kind"`
	CancerType       string                `json:"cancer_type,omitempty"`
	SuggestedOutcome string                `json:"suggested_outcome"` // engine's category or urgency
	ClinicianOutcome string                `json:"clinician_outcome"`
	Agreed           bool                  `json:"agreed"`
	Notes            string                `json:"notes,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// Summary aggregates agreement for one assessment kind
type Summary struct {
	Kind          domain.AssessmentKind `json:"kind"`
	Total         int64                 `json:"total"`
	Agreed        int64                 `json:"agreed"`
	AgreementRate float64               `json:"agreement_rate"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or replaces the feedback for fb.AssessmentID.
	Save(ctx context.Context, fb *Feedback) error

	// Get returns the feedback for an assessment, or nil when there is none.
	Get(ctx context.Context, assessmentID string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	Count(ctx context.Context) (int64, error)

	// Summary returns agreement per assessment kind.
	Summary(ctx context.Context) ([]Summary, error)

	Delete(ctx context.Context, id int64) error

	// ExportJSON writes every entry as a FeedbackExport document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads a FeedbackExport document. Entries whose assessment
	// already has feedback are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

const (
	exportVersion  = "1.0"
	maxExportLimit = 1000000
)

// Prepare validates fb and derives Agreed from the two outcomes
func (fb *Feedback) Prepare() error {
	fb.AssessmentID = strings.TrimSpace(fb.AssessmentID)
	fb.SuggestedOutcome = strings.ToLower(strings.TrimSpace(fb.SuggestedOutcome))
	fb.ClinicianOutcome = strings.ToLower(strings.TrimSpace(fb.ClinicianOutcome))

	var errs domain.ValidationErrors
	if fb.AssessmentID == "" {
		errs = append(errs, domain.NewValidationError("assessment_id", "is required", fb.AssessmentID))
	}
	if !fb.Kind.IsValid() {
		errs = append(errs, domain.NewValidationError("kind", "must be risk or symptom", fb.Kind))
	} else {
		if !validOutcome(fb.Kind, fb.SuggestedOutcome) {
			errs = append(errs, domain.NewValidationError("suggested_outcome", outcomeHint(fb.Kind), fb.SuggestedOutcome))
		}
		if !validOutcome(fb.Kind, fb.ClinicianOutcome) {
			errs = append(errs, domain.NewValidationError("clinician_outcome", outcomeHint(fb.Kind), fb.ClinicianOutcome))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	fb.Agreed = fb.SuggestedOutcome == fb.ClinicianOutcome
	return nil
}

func validOutcome(kind domain.AssessmentKind, outcome string) bool {
	switch kind {
	case domain.KindRisk:
		return domain.RiskCategory(outcome).IsValid()
	case domain.KindSymptom:
		return domain.UrgencyLevel(outcome).IsValid()
	}
	return false
}

func outcomeHint(kind domain.AssessmentKind) string {
	if kind == domain.KindRisk {
		return "must be one of low, moderate, high, very-high"
	}
	return "must be one of none, routine, urgent, emergent"
}

func agreementRate(total, agreed int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(agreed) / float64(total)
}

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(&FeedbackExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	})
}

// importJSON validates every entry before writing any, so a bad file imports
// nothing. Null entries and assessments that already have feedback are skipped.
func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	entries := make([]*Feedback, 0, len(export.Feedback))
	for i, fb := range export.Feedback {
		if fb == nil {
			skipped++
			continue
		}
		if err := fb.Prepare(); err != nil {
			return 0, 0, fmt.Errorf("invalid feedback entry %d: %w", i, err)
		}
		entries = append(entries, fb)
	}

	for _, fb := range entries {
		existing, err := s.Get(ctx, fb.AssessmentID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing after %d imported: %w", imported, err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save %s after %d imported: %w", fb.AssessmentID, imported, err)
		}
		imported++
	}

	return imported, skipped, nil
}
