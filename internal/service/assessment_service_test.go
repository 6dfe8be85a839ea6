package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncovista-opd-server/internal/domain"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
	return nil
}

type fakeRepository struct {
	mu      sync.Mutex
	records []*domain.AssessmentRecord
	saveErr error
}

func (r *fakeRepository) SaveAssessment(_ context.Context, rec *domain.AssessmentRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRepository) GetAssessment(_ context.Context, id string) (*domain.AssessmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepository) ListAssessments(_ context.Context, kind domain.AssessmentKind, limit, offset int) ([]*domain.AssessmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AssessmentRecord
	for _, rec := range r.records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeRepository) CountByOutcome(_ context.Context, kind domain.AssessmentKind) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, rec := range r.records {
		if rec.Kind == kind {
			counts[rec.Outcome]++
		}
	}
	return counts, nil
}

type fakeMetrics struct {
	assessments  int
	hits, misses int
	recordErrors int
	lastOutcome  string
}

func (m *fakeMetrics) ObserveAssessment(_ domain.AssessmentKind, _ string, outcome string, _ time.Duration) {
	m.assessments++
	m.lastOutcome = outcome
}

func (m *fakeMetrics) ObserveCache(_ domain.AssessmentKind, hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *fakeMetrics) ObserveRecordError(_ domain.AssessmentKind) {
	m.recordErrors++
}

func newTestAssessmentService(repo domain.AssessmentRepository, metrics *fakeMetrics) *AssessmentService {
	opts := AssessmentServiceOptions{
		Cache:   newMapCache(),
		Metrics: metrics,
		Clock:   FixedClock{At: testNow},
	}
	if repo != nil {
		opts.Repository = repo
	}
	return NewAssessmentService(testLogger(), opts)
}

func TestAssessRisk_CachesAndRecords(t *testing.T) {
	repo := &fakeRepository{}
	metrics := &fakeMetrics{}
	svc := newTestAssessmentService(repo, metrics)
	ctx := context.Background()

	profile := baseProfile(45)
	profile.Genetic.KnownMutations = []domain.Mutation{{Gene: "BRCA2", Pathogenicity: domain.Pathogenic}}

	first, err := svc.AssessRisk(ctx, domain.CancerBreast, profile)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, domain.KindRisk, first.Kind)
	assert.Equal(t, testNow, first.CreatedAt)
	_, err = uuid.Parse(first.ID)
	assert.NoError(t, err)
	require.NotNil(t, first.Risk)

	second, err := svc.AssessRisk(ctx, domain.CancerBreast, profile)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Risk.OverallRisk, second.Risk.OverallRisk)
	assert.Equal(t, first.Risk.RiskCategory, second.Risk.RiskCategory)

	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.Equal(t, first.ID, rec.ID)
	assert.Equal(t, "breast", rec.CancerType)
	assert.Equal(t, first.Risk.RiskCategory.String(), rec.Outcome)
	assert.Equal(t, first.Risk.OverallRisk, rec.Score)
	assert.NotEmpty(t, rec.InputHash)
	assert.True(t, json.Valid(rec.Payload))

	assert.Equal(t, 1, metrics.assessments)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestAssessRisk_Errors(t *testing.T) {
	svc := newTestAssessmentService(nil, &fakeMetrics{})
	ctx := context.Background()

	_, err := svc.AssessRisk(ctx, domain.CancerProstate, baseProfile(60))
	assert.ErrorIs(t, err, domain.ErrUnsupportedCancerType)

	_, err = svc.AssessRisk(ctx, domain.CancerType("skin"), baseProfile(60))
	assert.ErrorIs(t, err, domain.ErrUnsupportedCancerType)

	bad := baseProfile(60)
	bad.Demographics.Age = -3
	_, err = svc.AssessRisk(ctx, domain.CancerLung, bad)
	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "demographics.age", verrs[0].Field)
}

func TestAnalyzeSymptoms_RecordsUrgencyScore(t *testing.T) {
	repo := &fakeRepository{}
	metrics := &fakeMetrics{}
	svc := newTestAssessmentService(repo, metrics)

	assessment, err := svc.AnalyzeSymptoms(context.Background(), []domain.SymptomData{{
		Name:             "hemoptysis",
		Severity:         8,
		Duration:         "1 week",
		Onset:            domain.OnsetSubacute,
		Progression:      domain.ProgressionWorsening,
		FunctionalImpact: 6,
	}})
	require.NoError(t, err)
	require.NotNil(t, assessment.Symptom)
	assert.Nil(t, assessment.Risk)
	assert.Equal(t, "urgent", assessment.Outcome())
	assert.Equal(t, "urgent", metrics.lastOutcome)

	require.Len(t, repo.records, 1)
	assert.Equal(t, domain.KindSymptom, repo.records[0].Kind)
	assert.Empty(t, repo.records[0].CancerType)
	assert.InDelta(t, 82.5, repo.records[0].Score, 1e-9)

	_, err = svc.AnalyzeSymptoms(context.Background(), nil)
	var verrs domain.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestAssessRisk_RepositoryFailureIsNotFatal(t *testing.T) {
	metrics := &fakeMetrics{}
	svc := newTestAssessmentService(&fakeRepository{saveErr: errors.New("connection refused")}, metrics)

	assessment, err := svc.AssessRisk(context.Background(), domain.CancerColon, baseProfile(55))
	require.NoError(t, err)
	assert.NotEmpty(t, assessment.ID)
	assert.Equal(t, 1, metrics.recordErrors)
}

func TestAssessmentService_WithoutCollaborators(t *testing.T) {
	svc := NewAssessmentService(testLogger(), AssessmentServiceOptions{Clock: FixedClock{At: testNow}})
	ctx := context.Background()

	first, err := svc.AssessRisk(ctx, domain.CancerLung, baseProfile(65))
	require.NoError(t, err)
	second, err := svc.AssessRisk(ctx, domain.CancerLung, baseProfile(65))
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, svc.HistoryEnabled())

	_, err = svc.GetAssessment(ctx, first.ID)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.ListAssessments(ctx, domain.KindRisk, 10, 0)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestGetAssessment(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestAssessmentService(repo, &fakeMetrics{})
	ctx := context.Background()

	assessment, err := svc.AssessRisk(ctx, domain.CancerBreast, baseProfile(38))
	require.NoError(t, err)

	rec, err := svc.GetAssessment(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindRisk, rec.Kind)

	_, err = svc.GetAssessment(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetAssessment(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, err := svc.ListAssessments(ctx, domain.KindRisk, 10, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = svc.ListAssessments(ctx, domain.AssessmentKind("other"), 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAssessmentKind)

	counts, err := svc.OutcomeCounts(ctx, domain.KindRisk)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{assessment.Outcome(): 1}, counts)
}

func TestCacheKey(t *testing.T) {
	profile := baseProfile(50)

	key, err := CacheKey(domain.KindRisk, "breast", testNow, profile)
	require.NoError(t, err)
	assert.Regexp(t, `^risk:[0-9a-f]{64}$`, key)

	sameDay, err := CacheKey(domain.KindRisk, "breast", testNow.Add(10*time.Hour), profile)
	require.NoError(t, err)
	assert.Equal(t, key, sameDay)

	nextDay, err := CacheKey(domain.KindRisk, "breast", testNow.AddDate(0, 0, 1), profile)
	require.NoError(t, err)
	assert.NotEqual(t, key, nextDay)

	otherType, err := CacheKey(domain.KindRisk, "colon", testNow, profile)
	require.NoError(t, err)
	assert.NotEqual(t, key, otherType)

	older := baseProfile(51)
	otherInput, err := CacheKey(domain.KindRisk, "breast", testNow, older)
	require.NoError(t, err)
	assert.NotEqual(t, key, otherInput)

	_, err = CacheKey(domain.KindRisk, "breast", testNow, make(chan int))
	assert.Error(t, err)
}
