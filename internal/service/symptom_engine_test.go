package service

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncovista-opd-server/internal/domain"
)

func newTestSymptomEngine() *SymptomAnalysisEngine {
	return NewSymptomAnalysisEngine(testLogger())
}

func TestAnalyzeSymptoms_Hemoptysis(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms([]domain.SymptomData{{
		Name:             "hemoptysis",
		Severity:         8,
		Duration:         "1 week",
		Onset:            domain.OnsetSubacute,
		Progression:      domain.ProgressionWorsening,
		FunctionalImpact: 6,
	}})

	flags := result.RedFlagAssessment
	assert.True(t, flags.HasRedFlags)
	assert.Equal(t, []string{"hemoptysis"}, flags.RedFlagSymptoms)
	assert.Equal(t, domain.UrgencyUrgent, flags.UrgencyLevel)
	assert.Equal(t, "Pulmonology/Thoracic Oncology", flags.SpecialistReferral)
	assert.Contains(t, flags.SpecialistReferral, "Thoracic Oncology")
	assert.Equal(t, "Same-day or next-day physician evaluation with expedited oncology referral", flags.RecommendedAction)
	assert.Equal(t, "Within 24-48 hours", flags.TimeFrame)

	assert.Empty(t, result.SymptomClusters)

	require.Len(t, result.DifferentialDiagnosis, 2)
	assert.Equal(t, "lung cancer", result.DifferentialDiagnosis[0].Condition)
	assert.Equal(t, "lung", result.DifferentialDiagnosis[0].CancerType)
	assert.Equal(t, 95.0, result.DifferentialDiagnosis[0].Probability)
	assert.Equal(t, []string{"hemoptysis"}, result.DifferentialDiagnosis[0].SupportingSymptoms)
	assert.Equal(t, "head and neck cancer", result.DifferentialDiagnosis[1].Condition)

	// 70 + (8-5)*2 + (6-5)*1.5 + 1*5
	assert.InDelta(t, 82.5, result.UrgencyScore, 1e-9)

	assert.Equal(t, []string{
		"Complete blood count (CBC) with differential",
		"Comprehensive metabolic panel (CMP)",
		"Chest CT with contrast",
		"PET-CT if suspicious for malignancy",
		"Pulmonary function tests",
	}, result.RecommendedWorkup)
	assert.Equal(t, []string{
		"Immediate oncology consultation",
		"Same-day imaging if indicated",
		"Patient education on warning signs",
	}, result.FollowUpRecommendations)
}

func TestAnalyzeSymptoms_EmergentDominates(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms([]domain.SymptomData{
		{Name: "rectal bleeding", Severity: 5, Progression: domain.ProgressionStable, FunctionalImpact: 3},
		{Name: "hematemesis", Severity: 9, Progression: domain.ProgressionStable, FunctionalImpact: 7},
		{Name: "rectal bleeding", Severity: 5, Progression: domain.ProgressionStable, FunctionalImpact: 3},
	})

	flags := result.RedFlagAssessment
	assert.Equal(t, domain.UrgencyEmergent, flags.UrgencyLevel)
	assert.Equal(t, []string{"rectal bleeding", "hematemesis"}, flags.RedFlagSymptoms)
	assert.Equal(t, "Immediate emergency department evaluation or hospital admission", flags.RecommendedAction)
	assert.Equal(t, "Immediate (within hours)", flags.TimeFrame)
	assert.Equal(t, "Gastroenterology/GI Oncology", flags.SpecialistReferral)
}

func TestAnalyzeSymptoms_EmergentRequiresSeverity(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms([]domain.SymptomData{
		{Name: "hematemesis", Severity: 7, Progression: domain.ProgressionStable},
	})

	assert.Equal(t, domain.UrgencyRoutine, result.RedFlagAssessment.UrgencyLevel)
	assert.Equal(t, "Within 1-2 weeks", result.RedFlagAssessment.TimeFrame)
}

func TestAnalyzeSymptoms_GastrointestinalCluster(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms([]domain.SymptomData{
		{Name: "Abdominal Pain", Severity: 6, Progression: domain.ProgressionWorsening, FunctionalImpact: 6},
		{Name: "itching", Severity: 2, Progression: domain.ProgressionStable},
		{Name: "nausea", Severity: 4, Progression: domain.ProgressionWorsening, FunctionalImpact: 4},
	})

	require.Len(t, result.SymptomClusters, 1)
	cluster := result.SymptomClusters[0]
	assert.Equal(t, "gastrointestinal", cluster.System)
	assert.Equal(t, "Abdominal Pain", cluster.PrimarySymptom)
	assert.Equal(t, []string{"nausea"}, cluster.RelatedSymptoms)
	assert.Equal(t, []string{"colorectal cancer", "gastric cancer", "pancreatic cancer"}, cluster.SuspectedConditions)
	// (avg severity 5 + 2 worsening*2 + avg impact 5) / 3
	assert.InDelta(t, 14.0/3.0, cluster.UrgencyScore, 1e-9)
	// 50 + 2*10 + 15 consistent progression
	assert.Equal(t, 85.0, cluster.ConfidenceLevel)

	// symptom-level conditions take priority over the cluster's identical names
	conditions := make(map[string]int)
	for _, d := range result.DifferentialDiagnosis {
		conditions[d.Condition]++
		assert.NotEmpty(t, d.CancerType)
	}
	for condition, count := range conditions {
		assert.Equal(t, 1, count, "duplicate differential %s", condition)
	}
	assert.Len(t, result.DifferentialDiagnosis, 5)

	flags := result.RedFlagAssessment
	assert.Equal(t, []string{"Abdominal Pain"}, flags.RedFlagSymptoms)
	assert.Equal(t, domain.UrgencyUrgent, flags.UrgencyLevel)
	assert.Equal(t, "Gastroenterology/GI Oncology", flags.SpecialistReferral)

	assert.Contains(t, result.RecommendedWorkup, "Pain assessment and management")
	assert.Contains(t, result.RecommendedWorkup, "CA 19-9 level")
	assert.Contains(t, result.FollowUpRecommendations, "Pain management consultation if needed")
}

func TestAnalyzeSymptoms_ClusterDifferentials(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms([]domain.SymptomData{
		{Name: "headache", Severity: 6, Onset: domain.OnsetChronic, Progression: domain.ProgressionStable, FunctionalImpact: 4},
		{Name: "confusion", Severity: 4, Progression: domain.ProgressionWorsening, FunctionalImpact: 6},
	})

	require.Len(t, result.SymptomClusters, 1)
	cluster := result.SymptomClusters[0]
	assert.Equal(t, "neurological", cluster.System)
	// (5 + 2 + 5) / 3
	assert.InDelta(t, 4.0, cluster.UrgencyScore, 1e-9)
	assert.Equal(t, 70.0, cluster.ConfidenceLevel)

	require.Len(t, result.DifferentialDiagnosis, 3)
	for _, d := range result.DifferentialDiagnosis {
		assert.Empty(t, d.CancerType)
		assert.Equal(t, []string{"headache", "confusion"}, d.SupportingSymptoms)
		// 0.5*60 + 0.5*20 + 4*0.2
		assert.InDelta(t, 40.8, d.Probability, 1e-9)
	}
	assert.Equal(t, "brain tumor", result.DifferentialDiagnosis[0].Condition)

	// chronic headache does not pass the acute-onset gate
	assert.False(t, result.RedFlagAssessment.HasRedFlags)
}

func TestAnalyzeSymptoms_NoRedFlags(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms([]domain.SymptomData{
		{Name: "itching", Severity: 3, FunctionalImpact: 2},
	})

	flags := result.RedFlagAssessment
	assert.False(t, flags.HasRedFlags)
	assert.Empty(t, flags.RedFlagSymptoms)
	assert.Equal(t, domain.UrgencyNone, flags.UrgencyLevel)
	assert.Equal(t, "Routine follow-up with symptom monitoring", flags.RecommendedAction)
	assert.Equal(t, "Routine timing", flags.TimeFrame)
	assert.Empty(t, flags.SpecialistReferral)

	assert.Equal(t, 0.0, result.UrgencyScore)
	assert.Empty(t, result.DifferentialDiagnosis)
	assert.Equal(t, []string{
		"Routine follow-up in 4-6 weeks",
		"Symptom monitoring with patient-initiated contact for changes",
		"Lifestyle counseling as appropriate",
	}, result.FollowUpRecommendations)
}

func TestAnalyzeSymptoms_EmptyInput(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms(nil)

	assert.Empty(t, result.SymptomClusters)
	assert.Empty(t, result.DifferentialDiagnosis)
	assert.Equal(t, 0.0, result.UrgencyScore)
	assert.Equal(t, domain.UrgencyNone, result.RedFlagAssessment.UrgencyLevel)
	assert.Len(t, result.RecommendedWorkup, 2)
}

func TestRedFlagGates(t *testing.T) {
	engine := newTestSymptomEngine()

	tests := []struct {
		name     string
		symptom  domain.SymptomData
		expected bool
	}{
		{"Weight loss below severity gate", domain.SymptomData{Name: "weight loss", Severity: 4}, false},
		{"Weight loss at severity gate", domain.SymptomData{Name: "weight loss", Severity: 6}, true},
		{"Pain below severity gate", domain.SymptomData{Name: "bone pain", Severity: 6}, false},
		{"Pain at severity gate", domain.SymptomData{Name: "bone pain", Severity: 7}, true},
		{"Cough measured in days", domain.SymptomData{Name: "cough", Duration: "5 days"}, false},
		{"Cough measured in weeks", domain.SymptomData{Name: "cough", Duration: "4 Weeks"}, true},
		{"Chronic headache", domain.SymptomData{Name: "headache", Onset: domain.OnsetChronic}, false},
		{"Acute headache", domain.SymptomData{Name: "headache", Onset: domain.OnsetAcute}, true},
		{"Ungated phrase", domain.SymptomData{Name: "jaundice", Severity: 1}, true},
		{"Unknown symptom", domain.SymptomData{Name: "itching", Severity: 10}, false},
		{"Empty name", domain.SymptomData{Name: "  ", Severity: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := engine.assessRedFlags([]domain.SymptomData{tt.symptom})
			assert.Equal(t, tt.expected, flags.HasRedFlags)
		})
	}
}

func TestRedFlagMatching_WholeWords(t *testing.T) {
	engine := newTestSymptomEngine()

	tests := []struct {
		name     string
		symptom  string
		expected bool
	}{
		{"Word containing night", "nightmares", false},
		{"Word containing new", "renewed appetite", false},
		{"Fragment of headache", "ache", false},
		{"Fragment of cough", "ough", false},
		{"Whole phrase", "night sweats", true},
		{"Leading word of phrase", "new lump", true},
		{"Hyphenated leading word", "non-healing wound", true},
		{"Mixed case and punctuation", "Rectal-Bleeding", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := engine.assessRedFlags([]domain.SymptomData{{Name: tt.symptom, Severity: 2}})
			assert.Equal(t, tt.expected, flags.HasRedFlags)
		})
	}
}

// Only hematemesis and superior vena cava syndrome appear in the red-flag
// taxonomy; the other emergent entries are never reached by a matched phrase.
func TestEmergentFlags_OnlyTaxonomyPhrasesEscalate(t *testing.T) {
	engine := newTestSymptomEngine()

	tests := []struct {
		symptom  string
		hasFlags bool
		level    domain.UrgencyLevel
	}{
		{"hematemesis", true, domain.UrgencyEmergent},
		{"superior vena cava syndrome", true, domain.UrgencyEmergent},
		{"spinal cord compression", false, domain.UrgencyNone},
		{"tumor lysis syndrome", false, domain.UrgencyNone},
		{"severe abdominal pain", true, domain.UrgencyRoutine},
	}

	for _, tt := range tests {
		t.Run(tt.symptom, func(t *testing.T) {
			flags := engine.assessRedFlags([]domain.SymptomData{{Name: tt.symptom, Severity: 9}})
			assert.Equal(t, tt.hasFlags, flags.HasRedFlags)
			assert.Equal(t, tt.level, flags.UrgencyLevel)
		})
	}
}

func TestRedFlagRule_AnyGatePasses(t *testing.T) {
	var rule RedFlagRule
	for _, r := range DefaultSymptomRules().RedFlags {
		if r.Phrase == "chest pain with weight loss" {
			rule = r
		}
	}
	require.Len(t, rule.Gates, 2)

	// severity 6 passes the weight loss gate but not the pain gate
	assert.True(t, rule.Matches(domain.SymptomData{Name: "chest pain", Severity: 6}))
	assert.False(t, rule.Matches(domain.SymptomData{Name: "chest pain", Severity: 5}))
}

func TestReferralRules(t *testing.T) {
	rules := DefaultSymptomRules()

	tests := []struct {
		names    []string
		expected string
	}{
		{[]string{"focal neurological deficits"}, "Neurology/Neuro-oncology"},
		{[]string{"upper GI bleed"}, "Gastroenterology/GI Oncology"},
		{[]string{"vaginal bleeding"}, "Medical Oncology"},
		{[]string{"dyspnea"}, "Pulmonology/Thoracic Oncology"},
		{[]string{"breast lump"}, "Breast Surgery/Medical Oncology"},
		{[]string{"jaundice", "headache"}, "Neurology/Neuro-oncology"},
		{[]string{"testicular mass"}, "Medical Oncology"},
		{nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules.referral(tt.names))
		})
	}
}

func TestDifferentialDiagnosis_BoundsAndOrdering(t *testing.T) {
	engine := newTestSymptomEngine()

	result := engine.AnalyzeSymptoms([]domain.SymptomData{
		{Name: "weight loss", Severity: 9, Progression: domain.ProgressionWorsening, FunctionalImpact: 8},
		{Name: "abdominal pain", Severity: 3},
		{Name: "dysphagia", Severity: 5, Onset: domain.OnsetAcute},
		{Name: "hoarseness", Severity: 1},
		{Name: "fatigue", Severity: 0},
	})

	diffs := result.DifferentialDiagnosis
	assert.Len(t, diffs, 8)
	assert.True(t, sort.SliceIsSorted(diffs, func(i, j int) bool {
		return diffs[i].Probability > diffs[j].Probability
	}))
	for _, d := range diffs {
		assert.GreaterOrEqual(t, d.Probability, 5.0)
		assert.LessOrEqual(t, d.Probability, 95.0)
	}
	assert.Contains(t, result.FollowUpRecommendations, "Energy conservation education")
	assert.Contains(t, result.RecommendedWorkup, "Nutritional assessment")
	assert.Contains(t, result.RecommendedWorkup, "Albumin and prealbumin levels")
}

func TestConditionProbability(t *testing.T) {
	engine := newTestSymptomEngine()
	symptoms := []domain.SymptomData{
		{Name: "weight loss", Severity: 5, Onset: domain.OnsetAcute},
		{Name: "abdominal pain", Severity: 4, FunctionalImpact: 7},
		{Name: "fatigue", Severity: 0},
	}

	probability, supporting := engine.conditionProbability("pancreatic", symptoms)
	// (0.5*1.2 + 0.4*1.3) / 2 * 100
	assert.InDelta(t, 56.0, probability, 1e-9)
	assert.Equal(t, []string{"weight loss", "abdominal pain"}, supporting)

	probability, _ = engine.conditionProbability("hematologic", symptoms)
	assert.InDelta(t, 30.0, probability, 1e-9)

	probability, supporting = engine.conditionProbability("thyroid", symptoms)
	assert.Equal(t, 5.0, probability)
	assert.Empty(t, supporting)
}

func TestAssociations_WeightLossAlias(t *testing.T) {
	engine := newTestSymptomEngine()

	short := engine.associations(domain.SymptomData{Name: "Weight Loss"})
	long := engine.associations(domain.SymptomData{Name: "unintentional weight loss"})
	require.NotEmpty(t, short)
	assert.Equal(t, long, short)
	assert.Contains(t, short, "pancreatic")
}

func TestUrgencyScoreClamp(t *testing.T) {
	engine := newTestSymptomEngine()

	high := make([]domain.SymptomData, 0, 4)
	for i := 0; i < 4; i++ {
		high = append(high, domain.SymptomData{Name: "hematemesis", Severity: 10, FunctionalImpact: 10, Progression: domain.ProgressionWorsening})
	}
	assert.Equal(t, 100.0, engine.urgencyScore(high, domain.UrgencyEmergent))

	low := []domain.SymptomData{{Name: "x", Severity: 0, FunctionalImpact: 0}}
	assert.Equal(t, 0.0, engine.urgencyScore(low, domain.UrgencyNone))
	// 30 - 10 - 7.5
	assert.InDelta(t, 12.5, engine.urgencyScore(low, domain.UrgencyRoutine), 1e-9)
}

func TestSymptomEngineDeterminism(t *testing.T) {
	engine := newTestSymptomEngine()
	symptoms := []domain.SymptomData{
		{Name: "cough", Severity: 7, Duration: "3 weeks", Progression: domain.ProgressionWorsening, FunctionalImpact: 5},
		{Name: "hemoptysis", Severity: 6, FunctionalImpact: 4},
		{Name: "weight loss", Severity: 6, FunctionalImpact: 3},
		{Name: "fatigue", Severity: 5, FunctionalImpact: 5},
	}

	assert.Equal(t, engine.AnalyzeSymptoms(symptoms), engine.AnalyzeSymptoms(symptoms))
}
