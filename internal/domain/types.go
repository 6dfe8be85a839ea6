// Package domain contains the core entities of the OncoVista outpatient (OPD) decision-support engines:
// patient risk profiles, reported symptoms and the structured assessments produced from them.
//
// The types here are plain data. Scoring rules live in the service package.
package domain

import (
	"errors"
	"strings"
)

// CancerType identifies the cancer a risk assessment is computed for.
type CancerType string

const (
	CancerBreast     CancerType = "breast"
	CancerColon      CancerType = "colon"
	CancerLung       CancerType = "lung"
	CancerProstate   CancerType = "prostate"
	CancerPancreatic CancerType = "pancreatic"
)

// ParseCancerType normalizes user input ("Breast", " colon ") into a CancerType.
// Unknown values are returned as-is so callers can report them.
func ParseCancerType(s string) CancerType {
	return CancerType(strings.ToLower(strings.TrimSpace(s)))
}

// IsKnown reports whether the cancer type has a declared rule table.
func (c CancerType) IsKnown() bool {
	switch c {
	case CancerBreast, CancerColon, CancerLung, CancerProstate, CancerPancreatic:
		return true
	default:
		return false
	}
}

func (c CancerType) String() string {
	return string(c)
}

// RiskCategory is the discretized banding of a continuous risk score.
type RiskCategory string

const (
	RiskLow      RiskCategory = "low"
	RiskModerate RiskCategory = "moderate"
	RiskHigh     RiskCategory = "high"
	RiskVeryHigh RiskCategory = "very-high"
)

// Rank returns the ordinal position of the category, low being 0.
// Unknown categories rank below low.
func (r RiskCategory) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskVeryHigh:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether r is one of the four risk bands.
func (r RiskCategory) IsValid() bool {
	return r.Rank() >= 0
}

func (r RiskCategory) String() string {
	return string(r)
}

// FactorCategory groups risk factors for explanation and confidence scoring.
type FactorCategory string

const (
	FactorDemographic   FactorCategory = "demographic"
	FactorGenetic       FactorCategory = "genetic"
	FactorLifestyle     FactorCategory = "lifestyle"
	FactorMedical       FactorCategory = "medical"
	FactorEnvironmental FactorCategory = "environmental"
)

// UrgencyLevel is the strict ordinal none < routine < urgent < emergent.
// None is only reported when no red flag matched.
type UrgencyLevel string

const (
	UrgencyNone     UrgencyLevel = "none"
	UrgencyRoutine  UrgencyLevel = "routine"
	UrgencyUrgent   UrgencyLevel = "urgent"
	UrgencyEmergent UrgencyLevel = "emergent"
)

// Rank returns the ordinal position of the urgency level.
func (u UrgencyLevel) Rank() int {
	switch u {
	case UrgencyRoutine:
		return 1
	case UrgencyUrgent:
		return 2
	case UrgencyEmergent:
		return 3
	default:
		return 0
	}
}

// Max returns the more urgent of u and other.
func (u UrgencyLevel) Max(other UrgencyLevel) UrgencyLevel {
	if other.Rank() > u.Rank() {
		return other
	}
	return u
}

// IsValid reports whether u is one of the four urgency levels.
func (u UrgencyLevel) IsValid() bool {
	return u == UrgencyNone || u.Rank() > 0
}

func (u UrgencyLevel) String() string {
	return string(u)
}

// AssessmentKind distinguishes the two engines in stored records.
type AssessmentKind string

const (
	KindRisk    AssessmentKind = "risk"
	KindSymptom AssessmentKind = "symptom"
)

// IsValid reports whether k names one of the engines.
func (k AssessmentKind) IsValid() bool {
	return k == KindRisk || k == KindSymptom
}

var (
	ErrNotFound              = errors.New("not found")
	ErrUnsupportedCancerType = errors.New("unsupported cancer type")
	ErrInvalidAssessmentKind = errors.New("invalid assessment kind")
)
