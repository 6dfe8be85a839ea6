package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/domain"
)

// RiskCalculationEngine computes cancer-specific lifetime risk from a patient profile.
// It holds only immutable rule tables and is safe for concurrent use.
type RiskCalculationEngine struct {
	logger *logrus.Logger
	clock  domain.Clock
	rules  map[domain.CancerType]*CancerRuleSet
}

// CancerTypeInfo describes a declared cancer rule set
type CancerTypeInfo struct {
	CancerType domain.CancerType  `json:"cancerType"`
	Supported  bool               `json:"supported"`
	Weights    map[string]float64 `json:"weights"`
	Thresholds *RiskThresholds    `json:"thresholds,omitempty"`
}

// modifier is the result of one sub-rule: a multiplier and a human readable description
type modifier struct {
	risk        float64
	description string
}

// NewRiskCalculationEngine creates a new risk engine reading "now" from clock
func NewRiskCalculationEngine(logger *logrus.Logger, clock domain.Clock) *RiskCalculationEngine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RiskCalculationEngine{
		logger: logger,
		clock:  clock,
		rules:  defaultRuleSets(),
	}
}

// CalculateRisk dispatches to the calculation for cancerType. Declared cancer
// types without an age baseline are reported as unsupported.
func (e *RiskCalculationEngine) CalculateRisk(cancerType domain.CancerType, profile *domain.PatientProfile) (*domain.RiskAssessmentResult, error) {
	switch cancerType {
	case domain.CancerBreast:
		return e.CalculateBreastCancerRisk(profile), nil
	case domain.CancerColon:
		return e.CalculateColonCancerRisk(profile), nil
	case domain.CancerLung:
		return e.CalculateLungCancerRisk(profile), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCancerType, cancerType)
	}
}

// Supports reports whether CalculateRisk can evaluate cancerType
func (e *RiskCalculationEngine) Supports(cancerType domain.CancerType) bool {
	rules, ok := e.rules[cancerType]
	return ok && rules.Supported()
}

// CancerTypes lists every declared rule set, supported ones first
func (e *RiskCalculationEngine) CancerTypes() []CancerTypeInfo {
	infos := make([]CancerTypeInfo, 0, len(e.rules))
	for _, rules := range e.rules {
		weights := make(map[string]float64, len(rules.Weights))
		for k, v := range rules.Weights {
			weights[k] = v
		}
		infos = append(infos, CancerTypeInfo{
			CancerType: rules.CancerType,
			Supported:  rules.Supported(),
			Weights:    weights,
			Thresholds: rules.Thresholds,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Supported != infos[j].Supported {
			return infos[i].Supported
		}
		return infos[i].CancerType < infos[j].CancerType
	})
	return infos
}

// CalculateBreastCancerRisk evaluates age, family history, genetics, reproductive history and lifestyle
func (e *RiskCalculationEngine) CalculateBreastCancerRisk(profile *domain.PatientProfile) *domain.RiskAssessmentResult {
	profile = orEmpty(profile)
	rules := e.rules[domain.CancerBreast]
	risk := rules.BaselineRisk(profile.Demographics.Age)
	factors := []domain.RiskFactor{ageFactor(profile, rules)}

	if fam := familyHistoryRisk(profile.FamilyHistory, domain.CancerBreast); fam.risk > 1.0 {
		factors = append(factors, domain.RiskFactor{Name: "Family History", Value: fam.description, Weight: fam.risk, Category: domain.FactorGenetic})
		risk *= fam.risk
	}

	if gen, mutations := geneticRisk(profile.Genetic, rules); gen > 1.0 {
		factors = append(factors, domain.RiskFactor{Name: "Genetic Mutations", Value: mutations, Weight: gen, Category: domain.FactorGenetic})
		risk *= gen
	}

	if repro := profile.Medical.ReproductiveHistory; repro != nil {
		r := reproductiveRisk(repro)
		factors = append(factors, domain.RiskFactor{Name: "Reproductive Factors", Value: r.description, Weight: r.risk, Category: domain.FactorMedical})
		risk *= r.risk
	}

	if life := lifestyleRisk(profile.Lifestyle, rules.Lifestyle); math.Abs(life.risk-1.0) > 0.1 {
		factors = append(factors, domain.RiskFactor{Name: "Lifestyle Factors", Value: life.description, Weight: life.risk, Category: domain.FactorLifestyle})
		risk *= life.risk
	}

	return e.assess(domain.CancerBreast, risk, factors, profile)
}

// CalculateColonCancerRisk evaluates age, family history, hereditary syndromes, IBD and lifestyle
func (e *RiskCalculationEngine) CalculateColonCancerRisk(profile *domain.PatientProfile) *domain.RiskAssessmentResult {
	profile = orEmpty(profile)
	rules := e.rules[domain.CancerColon]
	risk := rules.BaselineRisk(profile.Demographics.Age)
	factors := []domain.RiskFactor{ageFactor(profile, rules)}

	if fam := familyHistoryRisk(profile.FamilyHistory, domain.CancerColon); fam.risk > 1.0 {
		factors = append(factors, domain.RiskFactor{Name: "Family History", Value: fam.description, Weight: fam.risk, Category: domain.FactorGenetic})
		risk *= fam.risk
	}

	if gen, mutations := geneticRisk(profile.Genetic, rules); gen > 1.0 {
		factors = append(factors, domain.RiskFactor{Name: "Hereditary Syndromes", Value: mutations, Weight: gen, Category: domain.FactorGenetic})
		risk *= gen
	}

	if ibd := ibdRisk(profile.Medical.Comorbidities); ibd.risk > 1.0 {
		factors = append(factors, domain.RiskFactor{Name: "Inflammatory Bowel Disease", Value: ibd.description, Weight: ibd.risk, Category: domain.FactorMedical})
		risk *= ibd.risk
	}

	if life := lifestyleRisk(profile.Lifestyle, rules.Lifestyle); math.Abs(life.risk-1.0) > 0.1 {
		factors = append(factors, domain.RiskFactor{Name: "Lifestyle Factors", Value: life.description, Weight: life.risk, Category: domain.FactorLifestyle})
		risk *= life.risk
	}

	return e.assess(domain.CancerColon, risk, factors, profile)
}

// CalculateLungCancerRisk evaluates smoking, age, family history and occupational exposures
func (e *RiskCalculationEngine) CalculateLungCancerRisk(profile *domain.PatientProfile) *domain.RiskAssessmentResult {
	profile = orEmpty(profile)
	rules := e.rules[domain.CancerLung]
	risk := rules.BaselineRisk(profile.Demographics.Age)

	// Smoking dominates lung risk and is always recorded.
	smoking := smokingRisk(profile.Lifestyle)
	factors := []domain.RiskFactor{{
		Name:     "Smoking History",
		Value:    fmt.Sprintf("%s, %s pack-years", smokingStatusLabel(profile.Lifestyle.SmokingStatus), formatNumber(deref(profile.Lifestyle.PackYears))),
		Weight:   smoking.risk,
		Category: domain.FactorLifestyle,
	}}
	risk *= smoking.risk

	factors = append(factors, ageFactor(profile, rules))

	if fam := familyHistoryRisk(profile.FamilyHistory, domain.CancerLung); fam.risk > 1.0 {
		factors = append(factors, domain.RiskFactor{Name: "Family History", Value: fam.description, Weight: fam.risk, Category: domain.FactorGenetic})
		risk *= fam.risk
	}

	if occ := occupationalRisk(profile.Environmental.OccupationalExposures); occ.risk > 1.0 {
		factors = append(factors, domain.RiskFactor{Name: "Occupational Exposures", Value: occ.description, Weight: occ.risk, Category: domain.FactorEnvironmental})
		risk *= occ.risk
	}

	return e.assess(domain.CancerLung, risk, factors, profile)
}

func (e *RiskCalculationEngine) assess(cancerType domain.CancerType, overallRisk float64, factors []domain.RiskFactor, profile *domain.PatientProfile) *domain.RiskAssessmentResult {
	category := thresholdsFor(e.rules[cancerType]).Categorize(overallRisk)

	result := &domain.RiskAssessmentResult{
		CancerType:          cancerType,
		OverallRisk:         overallRisk,
		RiskCategory:        category,
		Confidence:          confidence(factors, profile),
		ContributingFactors: factors,
		Recommendations:     recommendations(category, cancerType, factors),
		NextAssessment:      nextAssessment(e.clock.Now(), category, profile.Demographics.Age),
		UncertaintyFactors:  uncertaintyFactors(factors, profile),
	}

	e.logger.WithFields(logrus.Fields{
		"cancer_type":   cancerType,
		"overall_risk":  overallRisk,
		"risk_category": category,
		"confidence":    result.Confidence,
		"factors":       len(factors),
	}).Debug("Completed risk calculation")

	return result
}

func ageFactor(profile *domain.PatientProfile, rules *CancerRuleSet) domain.RiskFactor {
	return domain.RiskFactor{
		Name:     "Age",
		Value:    profile.Demographics.Age,
		Weight:   rules.AgeWeight(),
		Category: domain.FactorDemographic,
	}
}

func familyHistoryRisk(history domain.FamilyHistory, cancerType domain.CancerType) modifier {
	m := modifier{risk: 1.0, description: "No significant family history"}
	first := countMatchingRelatives(history.FirstDegreeRelatives, cancerType)
	second := countMatchingRelatives(history.SecondDegreeRelatives, cancerType)

	if first > 0 {
		m.risk *= 1.5 + float64(first-1)*0.3
		m.description = fmt.Sprintf("%d first-degree relative(s) with %s cancer", first, cancerType)
	}
	if second > 0 {
		m.risk *= 1.2 + float64(second-1)*0.1
		if first == 0 {
			m.description = fmt.Sprintf("%d second-degree relative(s) with %s cancer", second, cancerType)
		} else {
			m.description += fmt.Sprintf(", %d second-degree relative(s)", second)
		}
	}
	return m
}

func countMatchingRelatives(relatives []domain.RelativeHistory, cancerType domain.CancerType) int {
	count := 0
	for _, rel := range relatives {
		if strings.Contains(strings.ToLower(rel.CancerType), string(cancerType)) {
			count++
		}
	}
	return count
}

// geneticRisk composes gene multipliers of pathogenic findings. Every
// pathogenic finding is listed even when its gene carries no multiplier.
func geneticRisk(genetic domain.Genetic, rules *CancerRuleSet) (float64, []string) {
	risk := 1.0
	mutations := []string{}
	for _, m := range genetic.KnownMutations {
		if !m.IsPathogenic() {
			continue
		}
		mutations = append(mutations, m.Gene+" "+m.Variant)
		if mult, ok := rules.GeneMultipliers[m.Gene]; ok {
			risk *= mult
		}
	}
	return risk, mutations
}

func reproductiveRisk(repro *domain.ReproductiveHistory) modifier {
	risk := 1.0
	var found []string

	if repro.Menarche < 12 {
		risk *= 1.2
		found = append(found, "early menarche")
	}
	if repro.Menopause != nil && *repro.Menopause > 55 {
		risk *= 1.3
		found = append(found, "late menopause")
	}
	if repro.Pregnancies == 0 {
		risk *= 1.3
		found = append(found, "nulliparity")
	}
	// Compares the pregnancy count against 30; kept as-is pending clinical review of
	// whether an age-at-first-pregnancy field was intended.
	if repro.Pregnancies > 0 && repro.Pregnancies < 30 {
		risk *= 1.1
		found = append(found, "late first pregnancy")
	}
	if repro.HormonalTherapy {
		risk *= 1.2
		found = append(found, "hormonal therapy")
	}
	if repro.Breastfeeding && repro.Pregnancies > 0 {
		risk *= 0.9
		found = append(found, "breastfeeding (protective)")
	}

	return modifier{risk: risk, description: joinOr(found, "No significant reproductive risk factors")}
}

func lifestyleRisk(lifestyle domain.Lifestyle, mults LifestyleMultipliers) modifier {
	risk := 1.0
	var found []string

	if lifestyle.BMI > 30 && mults.Obesity != 0 {
		risk *= mults.Obesity
		found = append(found, "obesity")
	}
	if (lifestyle.AlcoholUse == domain.AlcoholModerate || lifestyle.AlcoholUse == domain.AlcoholHeavy) && mults.Alcohol != 0 {
		risk *= mults.Alcohol
		found = append(found, "alcohol consumption")
	}
	if lifestyle.PhysicalActivity == domain.ActivityHigh {
		risk *= 0.9
		found = append(found, "high physical activity (protective)")
	}
	if lifestyle.Diet == domain.DietPoor && mults.PoorDiet != 0 {
		risk *= mults.PoorDiet
		found = append(found, "poor diet")
	}

	return modifier{risk: risk, description: joinOr(found, "No significant lifestyle risk factors")}
}

func smokingRisk(lifestyle domain.Lifestyle) modifier {
	packYears := deref(lifestyle.PackYears)

	switch lifestyle.SmokingStatus {
	case domain.SmokingNever:
		return modifier{risk: 1.0, description: "Never smoker"}
	case domain.SmokingCurrent:
		return modifier{
			risk:        1.0 + packYears*0.1,
			description: fmt.Sprintf("current smoker, %s pack-years", formatNumber(packYears)),
		}
	case domain.SmokingFormer:
		yearsQuit := deref(lifestyle.YearsQuit)
		reduction := math.Min(0.5, yearsQuit*0.05)
		return modifier{
			risk:        (1.0 + packYears*0.1) * (1.0 - reduction),
			description: fmt.Sprintf("former smoker, %s pack-years, quit %s years ago", formatNumber(packYears), formatNumber(yearsQuit)),
		}
	default:
		return modifier{risk: 1.0, description: "Unknown smoking history"}
	}
}

func ibdRisk(comorbidities []string) modifier {
	var matched []string
	for _, c := range comorbidities {
		if containsAny(strings.ToLower(c), ibdKeywords) {
			matched = append(matched, c)
		}
	}
	if len(matched) > 0 {
		return modifier{risk: 2.5, description: strings.Join(matched, ", ")}
	}
	return modifier{risk: 1.0, description: "No inflammatory bowel disease"}
}

// occupationalRisk compounds 1.3 per exposure naming a lung carcinogen
func occupationalRisk(exposures []string) modifier {
	risk := 1.0
	var relevant []string
	for _, exposure := range exposures {
		if containsAny(strings.ToLower(exposure), occupationalCarcinogens) {
			risk *= 1.3
			relevant = append(relevant, exposure)
		}
	}
	return modifier{risk: risk, description: joinOr(relevant, "No significant occupational exposures")}
}

func confidence(factors []domain.RiskFactor, profile *domain.PatientProfile) int {
	score := 85
	hasFirstDegree := len(profile.FamilyHistory.FirstDegreeRelatives) > 0
	hasMutations := len(profile.Genetic.KnownMutations) > 0

	if !hasFirstDegree {
		score -= 10
	}
	if !hasMutations && hasCategory(factors, domain.FactorGenetic) {
		score -= 15
	}
	if profile.Lifestyle.SmokingStatus == "" {
		score -= 5
	}
	if hasMutations {
		score += 5
	}
	if hasFirstDegree {
		score += 5
	}

	return max(50, min(95, score))
}

func recommendations(category domain.RiskCategory, cancerType domain.CancerType, factors []domain.RiskFactor) []string {
	var recs []string

	switch category {
	case domain.RiskLow:
		recs = append(recs, fmt.Sprintf("Standard %s cancer screening per NCCN guidelines", cancerType))
	case domain.RiskModerate:
		recs = append(recs,
			fmt.Sprintf("Enhanced %s cancer screening consideration", cancerType),
			"Discuss with oncology specialist")
	case domain.RiskHigh:
		recs = append(recs,
			fmt.Sprintf("High-risk %s cancer screening protocol", cancerType),
			"Genetic counseling referral",
			"Annual specialist consultation")
	case domain.RiskVeryHigh:
		recs = append(recs,
			fmt.Sprintf("Intensive %s cancer surveillance", cancerType),
			"Immediate genetic counseling",
			"Consider risk-reducing interventions",
			"Multidisciplinary team evaluation")
	}

	for _, f := range factors {
		if f.Category == domain.FactorLifestyle && f.Weight > 1.1 {
			recs = append(recs, "Lifestyle modification counseling")
		}
		if f.Category == domain.FactorGenetic && f.Weight > 2.0 {
			recs = append(recs, "Family cascade genetic testing")
		}
	}

	return recs
}

func uncertaintyFactors(factors []domain.RiskFactor, profile *domain.PatientProfile) []string {
	uncertainties := []string{}

	if len(profile.FamilyHistory.FirstDegreeRelatives) == 0 {
		uncertainties = append(uncertainties, "Incomplete family history")
	}
	if len(profile.Genetic.KnownMutations) == 0 {
		uncertainties = append(uncertainties, "No genetic testing performed")
	}
	for _, f := range factors {
		if f.Category == domain.FactorEnvironmental && f.Weight > 1.2 {
			uncertainties = append(uncertainties, "Environmental exposure assessment needed")
			break
		}
	}

	return uncertainties
}

// nextAssessment is unfloored: a high-risk patient over 65 is due again immediately.
func nextAssessment(now time.Time, category domain.RiskCategory, age int) time.Time {
	years := 1
	switch category {
	case domain.RiskLow:
		years = 3
	case domain.RiskModerate:
		years = 2
	}
	if age > 65 {
		years--
	}
	return now.AddDate(years, 0, 0)
}

func hasCategory(factors []domain.RiskFactor, category domain.FactorCategory) bool {
	for _, f := range factors {
		if f.Category == category {
			return true
		}
	}
	return false
}

func orEmpty(profile *domain.PatientProfile) *domain.PatientProfile {
	if profile == nil {
		return &domain.PatientProfile{}
	}
	return profile
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func smokingStatusLabel(status string) string {
	if status == "" {
		return "unknown"
	}
	return status
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
