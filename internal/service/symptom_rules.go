package service

import (
	"strings"

	"github.com/oncovista-opd-server/internal/domain"
)

// ClusterRule groups symptoms of one body system. Names are matched exactly
// after lowercasing.
type ClusterRule struct {
	System              string
	Vocabulary          []string
	SuspectedConditions []string
}

// RedFlagGate is an extra condition applied to red-flag phrases containing Keyword
type RedFlagGate struct {
	Keyword string
	Passes  func(s domain.SymptomData) bool
}

// RedFlagRule is one phrase of the red-flag taxonomy together with its gates
type RedFlagRule struct {
	System string
	Phrase string
	Gates  []RedFlagGate
}

// Matches reports whether the symptom triggers this red flag. The phrase must
// contain the symptom name on word boundaries, or the name must contain the
// phrase's leading word. When the phrase carries gates at least one of them
// must pass.
func (r RedFlagRule) Matches(s domain.SymptomData) bool {
	name := words(s.Name)
	if len(name) == 0 {
		return false
	}
	phrase := strings.ToLower(r.Phrase)
	lead, _, _ := strings.Cut(phrase, " ")
	if !containsWords(words(phrase), name) && !containsWords(name, words(lead)) {
		return false
	}
	if len(r.Gates) == 0 {
		return true
	}
	for _, g := range r.Gates {
		if g.Passes(s) {
			return true
		}
	}
	return false
}

// ReferralRule maps red-flag symptom names to a specialist. Keywords match as
// substrings, Tokens only as whole words.
type ReferralRule struct {
	Specialist string
	Keywords   []string
	Tokens     []string
}

func (r ReferralRule) matches(name string) bool {
	name = strings.ToLower(name)
	if containsAny(name, r.Keywords) {
		return true
	}
	for _, word := range words(name) {
		for _, tok := range r.Tokens {
			if word == tok {
				return true
			}
		}
	}
	return false
}

// words lowercases s and splits it on anything that is not a letter or digit
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(c rune) bool {
		return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
	})
}

// containsWords reports whether needle occurs in hay as a contiguous run of words
func containsWords(hay, needle []string) bool {
	if len(needle) == 0 {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j, w := range needle {
			if hay[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// UrgencyGuidance is the recommended action and time frame for one urgency level
type UrgencyGuidance struct {
	Action    string
	TimeFrame string
	BaseScore float64
}

// WorkupRule lists studies recommended when a differential names CancerType
type WorkupRule struct {
	CancerType string
	Studies    []string
}

// SymptomRuleSet holds every table the symptom engine evaluates
type SymptomRuleSet struct {
	Clusters        []ClusterRule
	RedFlags        []RedFlagRule
	EmergentFlags   []string
	UrgentFlags     []string
	Associations    map[string][]string
	Workups         []WorkupRule
	Referrals       []ReferralRule
	DefaultReferral string
	Guidance        map[domain.UrgencyLevel]UrgencyGuidance
}

var redFlagTaxonomy = []struct {
	system  string
	phrases []string
}{
	{"general", []string{
		"unintentional weight loss >10 lbs",
		"night sweats",
		"fever of unknown origin",
		"fatigue with functional decline",
		"new onset pain in elderly",
	}},
	{"gastrointestinal", []string{
		"rectal bleeding",
		"melena",
		"hematemesis",
		"dysphagia",
		"early satiety with weight loss",
		"abdominal mass",
		"bowel obstruction",
		"jaundice",
		"new onset constipation >50 years",
	}},
	{"respiratory", []string{
		"hemoptysis",
		"new persistent cough >3 weeks",
		"dyspnea at rest",
		"chest pain with weight loss",
		"hoarseness >2 weeks",
		"superior vena cava syndrome",
	}},
	{"genitourinary", []string{
		"gross hematuria",
		"testicular mass",
		"pelvic mass",
		"postmenopausal bleeding",
		"urinary retention",
	}},
	{"neurological", []string{
		"new onset headache >50 years",
		"focal neurological deficits",
		"seizures new onset",
		"altered mental status",
		"papilledema",
	}},
	{"musculoskeletal", []string{
		"bone pain at night",
		"pathological fracture",
		"back pain with neurological symptoms",
		"new bone pain >50 years",
	}},
	{"dermatological", []string{
		"changing mole",
		"non-healing ulcer",
		"new pigmented lesion",
		"lymphadenopathy >1cm",
	}},
}

var redFlagGates = []RedFlagGate{
	{Keyword: "weight loss", Passes: func(s domain.SymptomData) bool { return s.Severity >= 6 }},
	{Keyword: "pain", Passes: func(s domain.SymptomData) bool { return s.Severity >= 7 }},
	{Keyword: "cough", Passes: func(s domain.SymptomData) bool { return strings.Contains(strings.ToLower(s.Duration), "week") }},
	{Keyword: "headache", Passes: func(s domain.SymptomData) bool { return s.Onset == domain.OnsetAcute }},
}

// buildRedFlagRules attaches to each phrase every gate whose keyword it contains
func buildRedFlagRules() []RedFlagRule {
	var rules []RedFlagRule
	for _, group := range redFlagTaxonomy {
		for _, phrase := range group.phrases {
			rule := RedFlagRule{System: group.system, Phrase: phrase}
			for _, gate := range redFlagGates {
				if strings.Contains(phrase, gate.Keyword) {
					rule.Gates = append(rule.Gates, gate)
				}
			}
			rules = append(rules, rule)
		}
	}
	return rules
}

// DefaultSymptomRules returns the built-in symptom rule tables
func DefaultSymptomRules() *SymptomRuleSet {
	weightLoss := []string{"pancreatic", "gastric", "lung", "colorectal", "hematologic"}

	return &SymptomRuleSet{
		Clusters: []ClusterRule{
			{
				System: "gastrointestinal",
				Vocabulary: []string{"abdominal pain", "nausea", "vomiting", "diarrhea", "constipation",
					"bloating", "rectal bleeding", "melena", "early satiety", "dysphagia"},
				SuspectedConditions: []string{"colorectal cancer", "gastric cancer", "pancreatic cancer"},
			},
			{
				System:              "respiratory",
				Vocabulary:          []string{"cough", "dyspnea", "chest pain", "hemoptysis", "hoarseness", "wheezing"},
				SuspectedConditions: []string{"lung cancer", "mesothelioma", "head and neck cancer"},
			},
			{
				System:              "constitutional",
				Vocabulary:          []string{"weight loss", "fatigue", "night sweats", "fever", "loss of appetite"},
				SuspectedConditions: []string{"hematologic malignancy", "advanced solid tumor", "metastatic disease"},
			},
			{
				System:              "neurological",
				Vocabulary:          []string{"headache", "seizures", "weakness", "numbness", "confusion", "vision changes"},
				SuspectedConditions: []string{"brain tumor", "metastatic disease", "paraneoplastic syndrome"},
			},
		},
		RedFlags: buildRedFlagRules(),
		EmergentFlags: []string{
			"hematemesis", "severe abdominal pain", "acute neurological deficit",
			"superior vena cava syndrome", "tumor lysis syndrome", "spinal cord compression",
		},
		UrgentFlags: []string{
			"hemoptysis", "rectal bleeding", "postmenopausal bleeding",
			"testicular mass", "breast lump", "lymphadenopathy",
		},
		Associations: map[string][]string{
			"unintentional weight loss": weightLoss,
			"weight loss":               weightLoss,
			"abdominal pain":            {"pancreatic", "gastric", "colorectal", "hepatic", "ovarian"},
			"dysphagia":                 {"esophageal", "gastric", "head and neck"},
			"hemoptysis":                {"lung", "head and neck"},
			"rectal bleeding":           {"colorectal", "anal"},
			"postmenopausal bleeding":   {"endometrial", "cervical", "ovarian"},
			"breast lump":               {"breast"},
			"testicular mass":           {"testicular"},
			"hoarseness":                {"laryngeal", "lung", "thyroid"},
			"bone pain":                 {"bone", "metastatic disease"},
			"lymphadenopathy":           {"hematologic", "metastatic disease"},
			"fatigue":                   {"hematologic", "advanced solid tumors"},
			"night sweats":              {"hematologic"},
			"fever of unknown origin":   {"hematologic", "advanced solid tumors"},
		},
		Workups: []WorkupRule{
			{"colorectal", []string{"Colonoscopy", "CT abdomen/pelvis with contrast", "CEA level"}},
			{"lung", []string{"Chest CT with contrast", "PET-CT if suspicious for malignancy", "Pulmonary function tests"}},
			{"breast", []string{"Bilateral mammography", "Breast ultrasound", "Consider breast MRI if high risk"}},
			{"pancreatic", []string{"CT abdomen with pancreatic protocol", "CA 19-9 level", "ERCP or MRCP consideration"}},
			{"gastric", []string{"Upper endoscopy with biopsy", "CT chest/abdomen/pelvis", "H. pylori testing"}},
			{"hematologic", []string{"Peripheral blood smear", "LDH, uric acid levels", "Flow cytometry if indicated"}},
		},
		Referrals: []ReferralRule{
			{
				Specialist: "Neurology/Neuro-oncology",
				Keywords:   []string{"neurological", "headache", "seizure", "confusion", "papilledema", "mental status"},
			},
			{
				Specialist: "Gastroenterology/GI Oncology",
				Keywords:   []string{"abdominal", "rectal", "melena", "hematemesis", "dysphagia", "jaundice", "bowel"},
				Tokens:     []string{"gi"},
			},
			{
				Specialist: "Pulmonology/Thoracic Oncology",
				Keywords:   []string{"respiratory", "lung", "hemoptysis", "cough", "dyspnea", "hoarseness", "chest"},
			},
			{
				Specialist: "Breast Surgery/Medical Oncology",
				Keywords:   []string{"breast"},
			},
		},
		DefaultReferral: "Medical Oncology",
		Guidance: map[domain.UrgencyLevel]UrgencyGuidance{
			domain.UrgencyEmergent: {
				Action:    "Immediate emergency department evaluation or hospital admission",
				TimeFrame: "Immediate (within hours)",
				BaseScore: 90,
			},
			domain.UrgencyUrgent: {
				Action:    "Same-day or next-day physician evaluation with expedited oncology referral",
				TimeFrame: "Within 24-48 hours",
				BaseScore: 70,
			},
			domain.UrgencyRoutine: {
				Action:    "Scheduled physician evaluation within 1-2 weeks with oncology consultation",
				TimeFrame: "Within 1-2 weeks",
				BaseScore: 30,
			},
			domain.UrgencyNone: {
				Action:    "Routine follow-up with symptom monitoring",
				TimeFrame: "Routine timing",
				BaseScore: 0,
			},
		},
	}
}

// classify returns the urgency a matched red flag contributes for a symptom
func (rs *SymptomRuleSet) classify(rule RedFlagRule, s domain.SymptomData) domain.UrgencyLevel {
	phrase := strings.ToLower(rule.Phrase)
	if containsAny(phrase, rs.EmergentFlags) && s.Severity >= 8 {
		return domain.UrgencyEmergent
	}
	if containsAny(phrase, rs.UrgentFlags) || (s.Severity >= 6 && s.IsWorsening()) {
		return domain.UrgencyUrgent
	}
	return domain.UrgencyRoutine
}

// referral returns the specialist for a set of red-flag symptom names, or ""
// when there are none.
func (rs *SymptomRuleSet) referral(names []string) string {
	if len(names) == 0 {
		return ""
	}
	for _, rule := range rs.Referrals {
		for _, n := range names {
			if rule.matches(n) {
				return rule.Specialist
			}
		}
	}
	return rs.DefaultReferral
}

func (rs *SymptomRuleSet) workupFor(cancerType string) []string {
	for _, w := range rs.Workups {
		if w.CancerType == cancerType {
			return w.Studies
		}
	}
	return nil
}
