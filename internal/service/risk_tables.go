package service

import (
	"github.com/oncovista-opd-server/internal/domain"
)

// defaultAgeWeight is the explanatory Age factor weight for cancer types whose
// weight table has no age entry.
const defaultAgeWeight = 0.2

// AgeBand maps ages strictly below UpperAge to a baseline lifetime risk.
// The last band of a table has UpperAge 0 and covers every remaining age.
type AgeBand struct {
	UpperAge int
	Risk     float64
}

// RiskThresholds are the lower bounds of the moderate, high and very-high bands
type RiskThresholds struct {
	Moderate float64 `json:"moderate"`
	High     float64 `json:"high"`
	VeryHigh float64 `json:"veryHigh"`
}

// Categorize maps a risk score onto a category. Thresholds are ascending, so
// the result is monotonic in risk.
func (t RiskThresholds) Categorize(risk float64) domain.RiskCategory {
	switch {
	case risk >= t.VeryHigh:
		return domain.RiskVeryHigh
	case risk >= t.High:
		return domain.RiskHigh
	case risk >= t.Moderate:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}

// LifestyleMultipliers holds cancer-specific lifestyle effects. A zero value
// means the behavior has no effect for that cancer type.
type LifestyleMultipliers struct {
	Obesity  float64
	Alcohol  float64
	PoorDiet float64
}

// CancerRuleSet is the immutable rule configuration of one cancer type
type CancerRuleSet struct {
	CancerType      domain.CancerType
	Weights         map[string]float64
	AgeBands        []AgeBand
	Thresholds      *RiskThresholds
	GeneMultipliers map[string]float64
	Lifestyle       LifestyleMultipliers
}

// Supported reports whether a full calculation can be run for this cancer type.
// A rule set without an age baseline is declared but not calculable.
func (r *CancerRuleSet) Supported() bool {
	return len(r.AgeBands) > 0
}

// BaselineRisk returns the age-banded baseline risk
func (r *CancerRuleSet) BaselineRisk(age int) float64 {
	for _, band := range r.AgeBands {
		if band.UpperAge == 0 || age < band.UpperAge {
			return band.Risk
		}
	}
	return 0
}

// AgeWeight returns the weight recorded on the explanatory Age factor
func (r *CancerRuleSet) AgeWeight() float64 {
	if w, ok := r.Weights["age"]; ok && w != 0 {
		return w
	}
	return defaultAgeWeight
}

// occupationalCarcinogens are matched as substrings of lowercased exposure descriptions
var occupationalCarcinogens = []string{"asbestos", "silica", "diesel", "radon", "chromium", "nickel"}

// ibdKeywords are matched as substrings of lowercased comorbidities
var ibdKeywords = []string{"crohn", "colitis", "inflammatory bowel"}

var breastThresholds = RiskThresholds{Moderate: 0.1, High: 0.2, VeryHigh: 0.4}

// defaultRuleSets builds the rule tables. Each call returns fresh maps so
// callers may not mutate shared state.
func defaultRuleSets() map[domain.CancerType]*CancerRuleSet {
	lynch := 5.0
	return map[domain.CancerType]*CancerRuleSet{
		domain.CancerBreast: {
			CancerType: domain.CancerBreast,
			Weights: map[string]float64{
				"age": 0.25, "familyHistory": 0.30, "genetic": 0.35,
				"reproductive": 0.15, "lifestyle": 0.10, "environmental": 0.05,
			},
			AgeBands: []AgeBand{
				{30, 0.004}, {40, 0.015}, {50, 0.045}, {60, 0.085}, {70, 0.110}, {0, 0.125},
			},
			Thresholds: &RiskThresholds{Moderate: 0.1, High: 0.2, VeryHigh: 0.4},
			GeneMultipliers: map[string]float64{
				"BRCA1": 7.0, "BRCA2": 4.5, "TP53": 8.0, "PALB2": 3.5, "CHEK2": 2.0,
			},
			Lifestyle: LifestyleMultipliers{Obesity: 1.2, Alcohol: 1.1},
		},
		domain.CancerColon: {
			CancerType: domain.CancerColon,
			Weights: map[string]float64{
				"age": 0.20, "familyHistory": 0.35, "genetic": 0.30,
				"lifestyle": 0.20, "inflammatory": 0.15, "environmental": 0.05,
			},
			AgeBands: []AgeBand{
				{40, 0.003}, {50, 0.008}, {60, 0.025}, {70, 0.045}, {0, 0.055},
			},
			Thresholds: &RiskThresholds{Moderate: 0.05, High: 0.15, VeryHigh: 0.3},
			GeneMultipliers: map[string]float64{
				"MLH1": lynch, "MSH2": lynch, "MSH6": lynch, "PMS2": lynch,
				"APC": 20.0, "MUTYH": 3.0,
			},
			Lifestyle: LifestyleMultipliers{Obesity: 1.5, Alcohol: 1.2, PoorDiet: 1.1},
		},
		domain.CancerLung: {
			CancerType: domain.CancerLung,
			Weights: map[string]float64{
				"smoking": 0.60, "age": 0.15, "familyHistory": 0.10,
				"occupational": 0.10, "radon": 0.05,
			},
			AgeBands: []AgeBand{
				{40, 0.001}, {50, 0.003}, {60, 0.008}, {70, 0.015}, {0, 0.020},
			},
			Thresholds:      &RiskThresholds{Moderate: 0.02, High: 0.08, VeryHigh: 0.2},
			GeneMultipliers: map[string]float64{"EGFR": 2.0},
		},
		domain.CancerProstate: {
			CancerType: domain.CancerProstate,
			Weights: map[string]float64{
				"age": 0.30, "race": 0.25, "familyHistory": 0.25,
				"genetic": 0.15, "lifestyle": 0.05,
			},
			Thresholds: &RiskThresholds{Moderate: 0.08, High: 0.18, VeryHigh: 0.35},
		},
		domain.CancerPancreatic: {
			CancerType: domain.CancerPancreatic,
			Weights: map[string]float64{
				"familyHistory": 0.40, "genetic": 0.35, "smoking": 0.15,
				"diabetes": 0.10, "pancreatitis": 0.10,
			},
		},
	}
}

// thresholdsFor returns the thresholds of a rule set, falling back to the
// breast table when a cancer type declares none.
func thresholdsFor(rules *CancerRuleSet) RiskThresholds {
	if rules != nil && rules.Thresholds != nil {
		return *rules.Thresholds
	}
	return breastThresholds
}
