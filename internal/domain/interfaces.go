package domain

import (
	"context"
	"time"
)

// Clock supplies the current time. Engines read "now" only through a Clock so
// date-derived fields are reproducible.
type Clock interface {
	Now() time.Time
}

// RiskCalculator computes cancer-specific lifetime risk assessments
type RiskCalculator interface {
	CalculateBreastCancerRisk(profile *PatientProfile) *RiskAssessmentResult
	CalculateColonCancerRisk(profile *PatientProfile) *RiskAssessmentResult
	CalculateLungCancerRisk(profile *PatientProfile) *RiskAssessmentResult
	CalculateRisk(cancerType CancerType, profile *PatientProfile) (*RiskAssessmentResult, error)
}

// SymptomAnalyzer evaluates a list of reported symptoms
type SymptomAnalyzer interface {
	AnalyzeSymptoms(symptoms []SymptomData) *SymptomAnalysisResult
}

// AssessmentRepository defines the interface for assessment history persistence
type AssessmentRepository interface {
	SaveAssessment(ctx context.Context, record *AssessmentRecord) error
	GetAssessment(ctx context.Context, id string) (*AssessmentRecord, error)
	ListAssessments(ctx context.Context, kind AssessmentKind, limit, offset int) ([]*AssessmentRecord, error)
	CountByOutcome(ctx context.Context, kind AssessmentKind) (map[string]int64, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
