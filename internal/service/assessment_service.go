package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/domain"
)

// ErrHistoryDisabled is returned when assessment history is read without a repository
var ErrHistoryDisabled = errors.New("assessment history is not configured")

// ResultCache stores JSON-serializable assessments by key
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// AssessmentMetrics receives per-assessment observations
type AssessmentMetrics interface {
	ObserveAssessment(kind domain.AssessmentKind, cancerType, outcome string, duration time.Duration)
	ObserveCache(kind domain.AssessmentKind, hit bool)
	ObserveRecordError(kind domain.AssessmentKind)
}

// AssessmentServiceOptions wires the optional collaborators of the service.
// Nil collaborators are skipped.
type AssessmentServiceOptions struct {
	Cache      ResultCache
	Repository domain.AssessmentRepository
	Metrics    AssessmentMetrics
	Clock      domain.Clock
}

// AssessmentService runs the engines and handles caching, history and metrics around them
type AssessmentService struct {
	logger   *logrus.Logger
	risk     *RiskCalculationEngine
	symptoms *SymptomAnalysisEngine
	cache    ResultCache
	repo     domain.AssessmentRepository
	metrics  AssessmentMetrics
	clock    domain.Clock
}

// NewAssessmentService creates a new assessment service with engines sharing opts.Clock
func NewAssessmentService(logger *logrus.Logger, opts AssessmentServiceOptions) *AssessmentService {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &AssessmentService{
		logger:   logger,
		risk:     NewRiskCalculationEngine(logger, clock),
		symptoms: NewSymptomAnalysisEngine(logger),
		cache:    opts.Cache,
		repo:     opts.Repository,
		metrics:  opts.Metrics,
		clock:    clock,
	}
}

// RiskEngine returns the underlying risk engine
func (s *AssessmentService) RiskEngine() *RiskCalculationEngine {
	return s.risk
}

// HistoryEnabled reports whether assessments are persisted
func (s *AssessmentService) HistoryEnabled() bool {
	return s.repo != nil
}

// AssessRisk validates the profile and computes a risk assessment for cancerType
func (s *AssessmentService) AssessRisk(ctx context.Context, cancerType domain.CancerType, profile *domain.PatientProfile) (*domain.Assessment, error) {
	if err := ValidateProfile(profile); err != nil {
		return nil, fmt.Errorf("invalid patient profile: %w", err)
	}
	if !s.risk.Supports(cancerType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCancerType, cancerType)
	}

	return s.run(ctx, domain.KindRisk, string(cancerType), profile, func() (*domain.Assessment, error) {
		result, err := s.risk.CalculateRisk(cancerType, profile)
		if err != nil {
			return nil, err
		}
		return &domain.Assessment{Kind: domain.KindRisk, Risk: result}, nil
	})
}

// AnalyzeSymptoms validates the symptoms and computes a symptom analysis
func (s *AssessmentService) AnalyzeSymptoms(ctx context.Context, symptoms []domain.SymptomData) (*domain.Assessment, error) {
	if err := ValidateSymptoms(symptoms); err != nil {
		return nil, fmt.Errorf("invalid symptoms: %w", err)
	}

	return s.run(ctx, domain.KindSymptom, "", symptoms, func() (*domain.Assessment, error) {
		return &domain.Assessment{Kind: domain.KindSymptom, Symptom: s.symptoms.AnalyzeSymptoms(symptoms)}, nil
	})
}

// GetAssessment reads a stored assessment record
func (s *AssessmentService) GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: invalid assessment id %q", domain.ErrNotFound, id)
	}
	return s.repo.GetAssessment(ctx, id)
}

// ListAssessments pages through stored assessments of one kind
func (s *AssessmentService) ListAssessments(ctx context.Context, kind domain.AssessmentKind, limit, offset int) ([]*domain.AssessmentRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAssessmentKind, kind)
	}
	return s.repo.ListAssessments(ctx, kind, limit, offset)
}

// OutcomeCounts tallies stored assessments of one kind by risk category or urgency level
func (s *AssessmentService) OutcomeCounts(ctx context.Context, kind domain.AssessmentKind) (map[string]int64, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAssessmentKind, kind)
	}
	return s.repo.CountByOutcome(ctx, kind)
}

func (s *AssessmentService) run(ctx context.Context, kind domain.AssessmentKind, cancerType string, input interface{}, compute func() (*domain.Assessment, error)) (*domain.Assessment, error) {
	start := time.Now()
	now := s.clock.Now()

	key, err := CacheKey(kind, cancerType, now, input)
	if err != nil {
		return nil, err
	}

	if cached := s.fromCache(ctx, kind, key); cached != nil {
		return cached, nil
	}

	assessment, err := compute()
	if err != nil {
		return nil, err
	}
	assessment.ID = uuid.New().String()
	assessment.CreatedAt = now
	assessment.DurationMs = time.Since(start).Milliseconds()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, assessment); err != nil {
			s.logger.WithError(err).WithField("kind", kind).Warn("Failed to cache assessment")
		}
	}

	s.record(ctx, key, cancerType, assessment)

	if s.metrics != nil {
		s.metrics.ObserveAssessment(kind, cancerType, assessment.Outcome(), time.Since(start))
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id": assessment.ID,
		"kind":          kind,
		"cancer_type":   cancerType,
		"outcome":       assessment.Outcome(),
		"duration_ms":   assessment.DurationMs,
	}).Info("Completed assessment")

	return assessment, nil
}

func (s *AssessmentService) fromCache(ctx context.Context, kind domain.AssessmentKind, key string) *domain.Assessment {
	if s.cache == nil {
		return nil
	}

	var cached domain.Assessment
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("Failed to read assessment cache")
	}
	if s.metrics != nil {
		s.metrics.ObserveCache(kind, hit && err == nil)
	}
	if !hit || err != nil {
		return nil
	}

	cached.Cached = true
	s.logger.WithFields(logrus.Fields{
		"assessment_id": cached.ID,
		"kind":          kind,
	}).Debug("Served assessment from cache")
	return &cached
}

// record persists the assessment. Failures are logged and never fail the call.
func (s *AssessmentService) record(ctx context.Context, inputHash, cancerType string, a *domain.Assessment) {
	if s.repo == nil {
		return
	}

	payload, err := json.Marshal(a)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal assessment for history")
		return
	}

	rec := &domain.AssessmentRecord{
		ID:           a.ID,
		Kind:         a.Kind,
		CancerType:   cancerType,
		Outcome:      a.Outcome(),
		InputHash:    inputHash,
		Payload:      payload,
		CreatedAt:    a.CreatedAt,
		ProcessingMs: a.DurationMs,
	}
	switch {
	case a.Risk != nil:
		rec.Score = a.Risk.OverallRisk
	case a.Symptom != nil:
		rec.Score = a.Symptom.UrgencyScore
	}

	if err := s.repo.SaveAssessment(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("assessment_id", a.ID).Error("Failed to record assessment")
		if s.metrics != nil {
			s.metrics.ObserveRecordError(a.Kind)
		}
	}
}

// CacheKey derives a stable key from the kind, cancer type, calendar date and
// canonical JSON of the input. Including the date keeps date-derived fields fresh.
func CacheKey(kind domain.AssessmentKind, cancerType string, now time.Time, input interface{}) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal assessment input: %w", err)
	}
	prefix := fmt.Sprintf("%s::%s::%s::", kind, cancerType, now.UTC().Format("2006-01-02"))
	hash := sha256.Sum256(append([]byte(prefix), payload...))
	return string(kind) + ":" + hex.EncodeToString(hash[:]), nil
}
