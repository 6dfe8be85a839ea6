package domain

import "time"

// Gender values accepted in Demographics.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Smoking status values. An empty status means unknown.
const (
	SmokingNever   = "never"
	SmokingFormer  = "former"
	SmokingCurrent = "current"
)

// Alcohol use values.
const (
	AlcoholNone     = "none"
	AlcoholLight    = "light"
	AlcoholModerate = "moderate"
	AlcoholHeavy    = "heavy"
)

// Physical activity values.
const (
	ActivitySedentary = "sedentary"
	ActivityLow       = "low"
	ActivityModerate  = "moderate"
	ActivityHigh      = "high"
)

// Diet quality values.
const (
	DietPoor      = "poor"
	DietAverage   = "average"
	DietGood      = "good"
	DietExcellent = "excellent"
)

// Pathogenicity classifications of a known mutation.
const (
	Pathogenic       = "pathogenic"
	LikelyPathogenic = "likely-pathogenic"
	VariantUncertain = "vus"
	Benign           = "benign"
)

// PatientProfile is the immutable input of a risk assessment.
type PatientProfile struct {
	Demographics    Demographics    `json:"demographics"`
	FamilyHistory   FamilyHistory   `json:"familyHistory"`
	PersonalHistory PersonalHistory `json:"personalHistory"`
	Lifestyle       Lifestyle       `json:"lifestyle"`
	Medical         Medical         `json:"medical"`
	Environmental   Environmental   `json:"environmental"`
	Genetic         Genetic         `json:"genetic"`
}

type Demographics struct {
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	Race      string `json:"race,omitempty"`
	Ethnicity string `json:"ethnicity,omitempty"`
}

type FamilyHistory struct {
	FirstDegreeRelatives  []RelativeHistory `json:"firstDegreeRelatives,omitempty"`
	SecondDegreeRelatives []RelativeHistory `json:"secondDegreeRelatives,omitempty"`
	Consanguinity         bool              `json:"consanguinity,omitempty"`
}

// RelativeHistory records one relative's cancer diagnosis.
type RelativeHistory struct {
	Relation       string `json:"relation"`
	CancerType     string `json:"cancerType"`
	AgeAtDiagnosis int    `json:"ageAtDiagnosis,omitempty"`
}

type PersonalHistory struct {
	PriorCancers     []PriorCancer `json:"priorCancers,omitempty"`
	BenignConditions []string      `json:"benignConditions,omitempty"`
	SurgicalHistory  []string      `json:"surgicalHistory,omitempty"`
}

type PriorCancer struct {
	Type          string `json:"type"`
	Stage         string `json:"stage,omitempty"`
	Treatment     string `json:"treatment,omitempty"`
	YearDiagnosed int    `json:"yearDiagnosed,omitempty"`
}

// Lifestyle holds exposure habits. PackYears and YearsQuit are optional and
// treated as zero when absent.
type Lifestyle struct {
	SmokingStatus    string   `json:"smokingStatus,omitempty"`
	PackYears        *float64 `json:"packYears,omitempty"`
	YearsQuit        *float64 `json:"yearsQuit,omitempty"`
	AlcoholUse       string   `json:"alcoholUse,omitempty"`
	PhysicalActivity string   `json:"physicalActivity,omitempty"`
	Diet             string   `json:"diet,omitempty"`
	BMI              float64  `json:"bmi,omitempty"`
}

type Medical struct {
	ReproductiveHistory *ReproductiveHistory `json:"reproductiveHistory,omitempty"`
	Comorbidities       []string             `json:"comorbidities,omitempty"`
	Medications         []string             `json:"medications,omitempty"`
	Immunosuppression   bool                 `json:"immunosuppression,omitempty"`
}

// ReproductiveHistory is only consulted by the breast rule set.
type ReproductiveHistory struct {
	Menarche        int  `json:"menarche"`
	Menopause       *int `json:"menopause,omitempty"`
	Pregnancies     int  `json:"pregnancies"`
	Breastfeeding   bool `json:"breastfeeding"`
	HormonalTherapy bool `json:"hormonalTherapy"`
}

type Environmental struct {
	OccupationalExposures []string `json:"occupationalExposures,omitempty"`
	RadiationExposure     bool     `json:"radiationExposure,omitempty"`
	ChemicalExposures     []string `json:"chemicalExposures,omitempty"`
	GeographicFactors     []string `json:"geographicFactors,omitempty"`
}

type Genetic struct {
	KnownMutations     []Mutation `json:"knownMutations,omitempty"`
	PolygenicRiskScore *float64   `json:"polygenicRiskScore,omitempty"`
}

// Mutation is a single genetic test finding.
type Mutation struct {
	Gene          string `json:"gene"`
	Variant       string `json:"variant"`
	Pathogenicity string `json:"pathogenicity"`
}

// IsPathogenic reports whether the finding is pathogenic or likely pathogenic.
func (m Mutation) IsPathogenic() bool {
	return m.Pathogenicity == Pathogenic || m.Pathogenicity == LikelyPathogenic
}

// RiskFactor is one explanatory entry of the multiplicative risk chain.
// Weight is a multiplier, not a probability.
type RiskFactor struct {
	Name     string         `json:"name"`
	Value    any            `json:"value"`
	Weight   float64        `json:"weight"`
	Category FactorCategory `json:"category"`
}

// RiskAssessmentResult is the output of a risk calculation.
type RiskAssessmentResult struct {
	CancerType          CancerType   `json:"cancerType"`
	OverallRisk         float64      `json:"overallRisk"`
	RiskCategory        RiskCategory `json:"riskCategory"`
	Confidence          int          `json:"confidence"`
	ContributingFactors []RiskFactor `json:"contributingFactors"`
	Recommendations     []string     `json:"recommendations"`
	NextAssessment      time.Time    `json:"nextAssessment"`
	UncertaintyFactors  []string     `json:"uncertaintyFactors"`
}
