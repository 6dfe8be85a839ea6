package domain

// Onset values.
const (
	OnsetAcute        = "acute"
	OnsetSubacute     = "subacute"
	OnsetChronic      = "chronic"
	OnsetIntermittent = "intermittent"
)

// Progression values.
const (
	ProgressionStable      = "stable"
	ProgressionImproving   = "improving"
	ProgressionWorsening   = "worsening"
	ProgressionFluctuating = "fluctuating"
)

// SymptomData is one reported symptom. Name is matched case-insensitively
// against the engine vocabularies.
type SymptomData struct {
	Name               string   `json:"name"`
	Severity           float64  `json:"severity"`
	Duration           string   `json:"duration,omitempty"`
	Onset              string   `json:"onset,omitempty"`
	Progression        string   `json:"progression,omitempty"`
	QualityDescriptors []string `json:"qualityDescriptors,omitempty"`
	AssociatedSymptoms []string `json:"associatedSymptoms,omitempty"`
	AlleviatingFactors []string `json:"alleviatingFactors,omitempty"`
	AggravatingFactors []string `json:"aggravatingFactors,omitempty"`
	FunctionalImpact   float64  `json:"functionalImpact"`
	Frequency          string   `json:"frequency,omitempty"`
}

// IsWorsening reports whether the symptom is progressing.
func (s SymptomData) IsWorsening() bool {
	return s.Progression == ProgressionWorsening
}

// SymptomCluster groups symptoms sharing an anatomical or system vocabulary.
type SymptomCluster struct {
	System              string   `json:"system"`
	PrimarySymptom      string   `json:"primarySymptom"`
	RelatedSymptoms     []string `json:"relatedSymptoms"`
	SuspectedConditions []string `json:"suspectedConditions"`
	UrgencyScore        float64  `json:"urgencyScore"`
	ConfidenceLevel     float64  `json:"confidenceLevel"`
}

// RedFlagAssessment summarizes red-flag matches. UrgencyLevel is the maximum
// level matched during the call.
type RedFlagAssessment struct {
	HasRedFlags        bool         `json:"hasRedFlags"`
	RedFlagSymptoms    []string     `json:"redFlagSymptoms"`
	UrgencyLevel       UrgencyLevel `json:"urgencyLevel"`
	RecommendedAction  string       `json:"recommendedAction"`
	TimeFrame          string       `json:"timeFrame"`
	SpecialistReferral string       `json:"specialistReferral,omitempty"`
}

// DifferentialDiagnosis is one ranked candidate condition.
type DifferentialDiagnosis struct {
	Condition          string   `json:"condition"`
	Probability        float64  `json:"probability"`
	SupportingSymptoms []string `json:"supportingSymptoms"`
	CancerType         string   `json:"cancerType,omitempty"`
}

// SymptomAnalysisResult is the output of a symptom analysis.
type SymptomAnalysisResult struct {
	SymptomClusters         []SymptomCluster        `json:"symptomClusters"`
	RedFlagAssessment       RedFlagAssessment       `json:"redFlagAssessment"`
	DifferentialDiagnosis   []DifferentialDiagnosis `json:"differentialDiagnosis"`
	RecommendedWorkup       []string                `json:"recommendedWorkup"`
	UrgencyScore            float64                 `json:"urgencyScore"`
	FollowUpRecommendations []string                `json:"followUpRecommendations"`
}
