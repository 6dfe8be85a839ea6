package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncovista-opd-server/internal/domain"
)

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verrs domain.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *domain.PatientProfile)
		expected []string
	}{
		{"Valid profile", func(p *domain.PatientProfile) {}, nil},
		{"Negative age", func(p *domain.PatientProfile) { p.Demographics.Age = -1 }, []string{"demographics.age"}},
		{"Age above range", func(p *domain.PatientProfile) { p.Demographics.Age = 131 }, []string{"demographics.age"}},
		{"Negative BMI", func(p *domain.PatientProfile) { p.Lifestyle.BMI = -2 }, []string{"lifestyle.bmi"}},
		{"Negative pack-years", func(p *domain.PatientProfile) { p.Lifestyle.PackYears = float(-5) }, []string{"lifestyle.packYears"}},
		{"Negative years quit", func(p *domain.PatientProfile) { p.Lifestyle.YearsQuit = float(-1) }, []string{"lifestyle.yearsQuit"}},
		{"Negative pregnancies", func(p *domain.PatientProfile) {
			p.Medical.ReproductiveHistory = &domain.ReproductiveHistory{Menarche: 12, Pregnancies: -1}
		}, []string{"medical.reproductiveHistory.pregnancies"}},
		{"Multiple errors", func(p *domain.PatientProfile) {
			p.Demographics.Age = 200
			p.Lifestyle.BMI = -1
		}, []string{"demographics.age", "lifestyle.bmi"}},
		{"Unknown enum values are accepted", func(p *domain.PatientProfile) {
			p.Lifestyle.SmokingStatus = "occasionally"
			p.Demographics.Gender = "unspecified"
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := baseProfile(50)
			tt.mutate(profile)

			err := ValidateProfile(profile)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.expected, validationFields(t, err))
		})
	}
}

func TestValidateProfile_Nil(t *testing.T) {
	err := ValidateProfile(nil)
	assert.Equal(t, []string{"profile"}, validationFields(t, err))
}

func TestValidateSymptoms(t *testing.T) {
	tests := []struct {
		name     string
		symptoms []domain.SymptomData
		expected []string
	}{
		{"Valid symptoms", []domain.SymptomData{{Name: "cough", Severity: 10, FunctionalImpact: 0}}, nil},
		{"Empty list", nil, []string{"symptoms"}},
		{"Blank name", []domain.SymptomData{{Name: " ", Severity: 3}}, []string{"symptoms[0].name"}},
		{"Severity out of range", []domain.SymptomData{
			{Name: "cough", Severity: 4},
			{Name: "fatigue", Severity: 11},
		}, []string{"symptoms[1].severity"}},
		{"Negative functional impact", []domain.SymptomData{{Name: "nausea", FunctionalImpact: -1}}, []string{"symptoms[0].functionalImpact"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSymptoms(tt.symptoms)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.expected, validationFields(t, err))
		})
	}
}
