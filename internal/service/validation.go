package service

import (
	"fmt"
	"strings"

	"github.com/oncovista-opd-server/internal/domain"
)

const (
	maxAge   = 130
	maxScale = 10
)

// ValidateProfile checks numeric ranges of a patient profile. Missing optional
// data is never an error; unknown enum strings are accepted and match no rule.
func ValidateProfile(profile *domain.PatientProfile) error {
	if profile == nil {
		return domain.ValidationErrors{domain.NewValidationError("profile", "is required", nil)}
	}

	var errs domain.ValidationErrors
	if age := profile.Demographics.Age; age < 0 || age > maxAge {
		errs = append(errs, domain.NewValidationError("demographics.age", fmt.Sprintf("must be between 0 and %d", maxAge), age))
	}
	if bmi := profile.Lifestyle.BMI; bmi < 0 {
		errs = append(errs, domain.NewValidationError("lifestyle.bmi", "must not be negative", bmi))
	}
	if py := profile.Lifestyle.PackYears; py != nil && *py < 0 {
		errs = append(errs, domain.NewValidationError("lifestyle.packYears", "must not be negative", *py))
	}
	if yq := profile.Lifestyle.YearsQuit; yq != nil && *yq < 0 {
		errs = append(errs, domain.NewValidationError("lifestyle.yearsQuit", "must not be negative", *yq))
	}
	if repro := profile.Medical.ReproductiveHistory; repro != nil && repro.Pregnancies < 0 {
		errs = append(errs, domain.NewValidationError("medical.reproductiveHistory.pregnancies", "must not be negative", repro.Pregnancies))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateSymptoms requires at least one named symptom with severity and
// functional impact on the 0-10 scale.
func ValidateSymptoms(symptoms []domain.SymptomData) error {
	if len(symptoms) == 0 {
		return domain.ValidationErrors{domain.NewValidationError("symptoms", "at least one symptom is required", nil)}
	}

	var errs domain.ValidationErrors
	for i, s := range symptoms {
		prefix := fmt.Sprintf("symptoms[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, domain.NewValidationError(prefix+".name", "is required", s.Name))
		}
		if s.Severity < 0 || s.Severity > maxScale {
			errs = append(errs, domain.NewValidationError(prefix+".severity", "must be between 0 and 10", s.Severity))
		}
		if s.FunctionalImpact < 0 || s.FunctionalImpact > maxScale {
			errs = append(errs, domain.NewValidationError(prefix+".functionalImpact", "must be between 0 and 10", s.FunctionalImpact))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
