package service

import (
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/domain"
)

const maxDifferentials = 8

// SymptomAnalysisEngine evaluates reported symptoms against declarative rule tables.
// It is stateless between calls and safe for concurrent use.
type SymptomAnalysisEngine struct {
	logger *logrus.Logger
	rules  *SymptomRuleSet
}

// clusterMatch keeps the symptoms behind a cluster for probability scoring
type clusterMatch struct {
	cluster domain.SymptomCluster
	members []domain.SymptomData
}

// NewSymptomAnalysisEngine creates a new symptom engine with the built-in rules
func NewSymptomAnalysisEngine(logger *logrus.Logger) *SymptomAnalysisEngine {
	return NewSymptomAnalysisEngineWithRules(logger, DefaultSymptomRules())
}

// NewSymptomAnalysisEngineWithRules creates a symptom engine over custom rule tables
func NewSymptomAnalysisEngineWithRules(logger *logrus.Logger, rules *SymptomRuleSet) *SymptomAnalysisEngine {
	return &SymptomAnalysisEngine{logger: logger, rules: rules}
}

// Rules exposes the rule tables for inspection
func (e *SymptomAnalysisEngine) Rules() *SymptomRuleSet {
	return e.rules
}

// AnalyzeSymptoms clusters symptoms, assesses red flags, ranks differentials and scores urgency
func (e *SymptomAnalysisEngine) AnalyzeSymptoms(symptoms []domain.SymptomData) *domain.SymptomAnalysisResult {
	matches := e.identifyClusters(symptoms)
	redFlags := e.assessRedFlags(symptoms)
	differentials := e.differentialDiagnosis(symptoms, matches)
	urgency := e.urgencyScore(symptoms, redFlags.UrgencyLevel)

	clusters := make([]domain.SymptomCluster, 0, len(matches))
	for _, m := range matches {
		clusters = append(clusters, m.cluster)
	}

	result := &domain.SymptomAnalysisResult{
		SymptomClusters:         clusters,
		RedFlagAssessment:       redFlags,
		DifferentialDiagnosis:   differentials,
		RecommendedWorkup:       e.workup(differentials, symptoms),
		UrgencyScore:            urgency,
		FollowUpRecommendations: followUp(urgency, symptoms),
	}

	e.logger.WithFields(logrus.Fields{
		"symptoms":      len(symptoms),
		"clusters":      len(clusters),
		"urgency_level": redFlags.UrgencyLevel,
		"urgency_score": urgency,
		"differentials": len(differentials),
	}).Debug("Completed symptom analysis")

	return result
}

// identifyClusters emits at most one cluster per vocabulary, and only when two
// or more symptoms match it.
func (e *SymptomAnalysisEngine) identifyClusters(symptoms []domain.SymptomData) []clusterMatch {
	var matches []clusterMatch

	for _, rule := range e.rules.Clusters {
		var members []domain.SymptomData
		for _, s := range symptoms {
			name := strings.ToLower(strings.TrimSpace(s.Name))
			for _, v := range rule.Vocabulary {
				if name == v {
					members = append(members, s)
					break
				}
			}
		}
		if len(members) < 2 {
			continue
		}

		related := make([]string, 0, len(members)-1)
		for _, m := range members[1:] {
			related = append(related, m.Name)
		}

		matches = append(matches, clusterMatch{
			cluster: domain.SymptomCluster{
				System:              rule.System,
				PrimarySymptom:      members[0].Name,
				RelatedSymptoms:     related,
				SuspectedConditions: append([]string(nil), rule.SuspectedConditions...),
				UrgencyScore:        clusterUrgency(members),
				ConfidenceLevel:     clusterConfidence(members),
			},
			members: members,
		})
	}

	return matches
}

func clusterUrgency(members []domain.SymptomData) float64 {
	n := float64(len(members))
	var severity, impact float64
	worsening := 0
	for _, s := range members {
		severity += s.Severity
		impact += s.FunctionalImpact
		if s.IsWorsening() {
			worsening++
		}
	}
	return math.Min(10, (severity/n+float64(worsening*2)+impact/n)/3)
}

func clusterConfidence(members []domain.SymptomData) float64 {
	confidence := 50 + 10*float64(len(members))

	consistent := true
	highSeverity := false
	for _, s := range members {
		if s.Progression != members[0].Progression {
			consistent = false
		}
		if s.Severity >= 7 {
			highSeverity = true
		}
	}
	if consistent {
		confidence += 15
	}
	if highSeverity {
		confidence += 10
	}
	return math.Min(95, confidence)
}

// assessRedFlags keeps the maximum urgency across every matched (symptom, flag) pair
func (e *SymptomAnalysisEngine) assessRedFlags(symptoms []domain.SymptomData) domain.RedFlagAssessment {
	var names []string
	seen := make(map[string]bool)
	level := domain.UrgencyNone

	for _, s := range symptoms {
		for _, rule := range e.rules.RedFlags {
			if !rule.Matches(s) {
				continue
			}
			if !seen[s.Name] {
				seen[s.Name] = true
				names = append(names, s.Name)
			}
			level = level.Max(e.rules.classify(rule, s))
		}
	}

	guidance := e.rules.Guidance[level]
	return domain.RedFlagAssessment{
		HasRedFlags:        len(names) > 0,
		RedFlagSymptoms:    nonNil(names),
		UrgencyLevel:       level,
		RecommendedAction:  guidance.Action,
		TimeFrame:          guidance.TimeFrame,
		SpecialistReferral: e.rules.referral(names),
	}
}

// differentialDiagnosis merges symptom-level associations with cluster-level
// suspected conditions. The first source to name a condition wins.
func (e *SymptomAnalysisEngine) differentialDiagnosis(symptoms []domain.SymptomData, matches []clusterMatch) []domain.DifferentialDiagnosis {
	differentials := []domain.DifferentialDiagnosis{}
	seen := make(map[string]bool)

	for _, s := range symptoms {
		for _, cancerType := range e.associations(s) {
			condition := cancerType + " cancer"
			if seen[condition] {
				continue
			}
			seen[condition] = true

			probability, supporting := e.conditionProbability(cancerType, symptoms)
			differentials = append(differentials, domain.DifferentialDiagnosis{
				Condition:          condition,
				Probability:        probability,
				SupportingSymptoms: supporting,
				CancerType:         cancerType,
			})
		}
	}

	for _, m := range matches {
		for _, condition := range m.cluster.SuspectedConditions {
			if seen[condition] {
				continue
			}
			seen[condition] = true

			supporting := append([]string{m.cluster.PrimarySymptom}, m.cluster.RelatedSymptoms...)
			differentials = append(differentials, domain.DifferentialDiagnosis{
				Condition:          condition,
				Probability:        clusterProbability(m),
				SupportingSymptoms: supporting,
			})
		}
	}

	sort.SliceStable(differentials, func(i, j int) bool {
		return differentials[i].Probability > differentials[j].Probability
	})
	if len(differentials) > maxDifferentials {
		differentials = differentials[:maxDifferentials]
	}
	return differentials
}

func (e *SymptomAnalysisEngine) associations(s domain.SymptomData) []string {
	return e.rules.Associations[strings.ToLower(strings.TrimSpace(s.Name))]
}

// conditionProbability averages the weighted severity of every symptom associated
// with cancerType, scaled to a percentage and clamped to [5, 95].
func (e *SymptomAnalysisEngine) conditionProbability(cancerType string, symptoms []domain.SymptomData) (float64, []string) {
	var total float64
	supporting := []string{}

	for _, s := range symptoms {
		if !contains(e.associations(s), cancerType) {
			continue
		}
		supporting = append(supporting, s.Name)

		weight := s.Severity / 10
		if s.IsWorsening() {
			weight *= 1.5
		}
		if s.Onset == domain.OnsetAcute {
			weight *= 1.2
		}
		if s.FunctionalImpact >= 7 {
			weight *= 1.3
		}
		total += weight
	}

	probability := 0.0
	if len(supporting) > 0 {
		probability = total / float64(len(supporting)) * 100
	}
	return clamp(probability, 5, 95), supporting
}

func clusterProbability(m clusterMatch) float64 {
	n := float64(len(m.members))
	var severity float64
	worsening := 0
	for _, s := range m.members {
		severity += s.Severity
		if s.IsWorsening() {
			worsening++
		}
	}

	probability := (severity / n / 10) * 60
	probability += float64(worsening) / n * 20
	probability += m.cluster.UrgencyScore * 0.2
	return clamp(probability, 10, 90)
}

// urgencyScore starts from the red-flag level and adjusts by average severity,
// functional impact and the number of worsening symptoms.
func (e *SymptomAnalysisEngine) urgencyScore(symptoms []domain.SymptomData, level domain.UrgencyLevel) float64 {
	score := e.rules.Guidance[level].BaseScore
	if len(symptoms) == 0 {
		return clamp(score, 0, 100)
	}

	n := float64(len(symptoms))
	var severity, impact float64
	worsening := 0
	for _, s := range symptoms {
		severity += s.Severity
		impact += s.FunctionalImpact
		if s.IsWorsening() {
			worsening++
		}
	}

	score += (severity/n - 5) * 2
	score += (impact/n - 5) * 1.5
	score += float64(worsening) * 5
	return clamp(score, 0, 100)
}

func (e *SymptomAnalysisEngine) workup(differentials []domain.DifferentialDiagnosis, symptoms []domain.SymptomData) []string {
	var out orderedSet
	out.add("Complete blood count (CBC) with differential", "Comprehensive metabolic panel (CMP)")

	for _, d := range differentials {
		if d.CancerType != "" {
			out.add(e.rules.workupFor(d.CancerType)...)
		}
	}
	if anyNameContains(symptoms, "pain") {
		out.add("Pain assessment and management")
	}
	if anyNameContains(symptoms, "weight loss") {
		out.add("Nutritional assessment", "Albumin and prealbumin levels")
	}
	return out.items
}

func followUp(urgency float64, symptoms []domain.SymptomData) []string {
	var recs []string
	switch {
	case urgency >= 80:
		recs = []string{"Immediate oncology consultation", "Same-day imaging if indicated", "Patient education on warning signs"}
	case urgency >= 60:
		recs = []string{"Urgent oncology referral within 1-2 weeks", "Expedited imaging studies", "Symptom diary maintenance"}
	case urgency >= 40:
		recs = []string{"Oncology consultation within 4 weeks", "Regular symptom monitoring", "Patient reassurance with clear follow-up plan"}
	default:
		recs = []string{"Routine follow-up in 4-6 weeks", "Symptom monitoring with patient-initiated contact for changes", "Lifestyle counseling as appropriate"}
	}

	if anyNameContains(symptoms, "pain") {
		recs = append(recs, "Pain management consultation if needed")
	}
	if anyNameContains(symptoms, "fatigue") {
		recs = append(recs, "Energy conservation education")
	}
	return recs
}

// orderedSet keeps first-insertion order
type orderedSet struct {
	items []string
	seen  map[string]bool
}

func (s *orderedSet) add(values ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, v := range values {
		if !s.seen[v] {
			s.seen[v] = true
			s.items = append(s.items, v)
		}
	}
}

func anyNameContains(symptoms []domain.SymptomData, needle string) bool {
	for _, s := range symptoms {
		if strings.Contains(strings.ToLower(s.Name), needle) {
			return true
		}
	}
	return false
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
