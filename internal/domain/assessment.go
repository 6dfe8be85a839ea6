package domain

import (
	"encoding/json"
	"time"
)

// Assessment is the envelope returned by the assessment service. Exactly one
// of Risk and Symptom is set, matching Kind.
type Assessment struct {
	ID         string                 `json:"id"`
	Kind       AssessmentKind         `json:"kind"`
	CreatedAt  time.Time              `json:"createdAt"`
	Cached     bool                   `json:"cached"`
	Risk       *RiskAssessmentResult  `json:"risk,omitempty"`
	Symptom    *SymptomAnalysisResult `json:"symptom,omitempty"`
	DurationMs int64                  `json:"durationMs"`
}

// Outcome returns the headline classification of the assessment: the risk
// category for risk assessments, the urgency level for symptom analyses.
func (a *Assessment) Outcome() string {
	switch {
	case a.Risk != nil:
		return a.Risk.RiskCategory.String()
	case a.Symptom != nil:
		return a.Symptom.RedFlagAssessment.UrgencyLevel.String()
	default:
		return ""
	}
}

// AssessmentRecord is the persisted form of an Assessment
type AssessmentRecord struct {
	ID           string          `json:"id"`
	Kind         AssessmentKind  `json:"kind"`
	CancerType   string          `json:"cancer_type,omitempty"`
	Outcome      string          `json:"outcome"`
	Score        float64         `json:"score"`
	InputHash    string          `json:"input_hash"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessingMs int64           `json:"processing_ms"`
}
