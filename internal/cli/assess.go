package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oncovista-opd-server/internal/domain"
	"github.com/oncovista-opd-server/internal/service"
)

const dateLayout = "2006-01-02"

func newRiskCmd() *cobra.Command {
	var (
		cancer string
		file   string
		now    string
	)

	cmd := &cobra.Command{
		Use:     "risk",
		Short:   "Calculate lifetime cancer risk for a patient profile",
		Long:    "Calculate lifetime risk for one cancer type from a PatientProfile JSON document.\nSupported cancer types: breast, colon, lung.",
		Example: "  opd risk --cancer breast --file profile.json\n  cat profile.json | opd risk --cancer lung --file - --now 2026-01-01",
		RunE: func(cmd *cobra.Command, _ []string) error {
			clock, err := clockFor(now)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var profile domain.PatientProfile
			if err := json.Unmarshal(data, &profile); err != nil {
				return fmt.Errorf("invalid patient profile: %w", err)
			}

			svc := newService(cmd, clock)
			assessment, err := svc.AssessRisk(cmd.Context(), domain.ParseCancerType(cancer), &profile)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, assessment)
		},
	}

	cmd.Flags().StringVar(&cancer, "cancer", "", "cancer type (breast, colon, lung) [REQUIRED]")
	cmd.Flags().StringVarP(&file, "file", "f", "", "PatientProfile JSON file, - for stdin [REQUIRED]")
	cmd.Flags().StringVar(&now, "now", "", "evaluation date (YYYY-MM-DD), default today")
	_ = cmd.MarkFlagRequired("cancer")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newSymptomsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "symptoms",
		Short:   "Analyze reported symptoms for red flags and urgency",
		Long:    "Analyze a list of SymptomData, given either as a JSON array or as {\"symptoms\": [...]}.",
		Example: "  opd symptoms --file symptoms.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			symptoms, err := decodeSymptoms(data)
			if err != nil {
				return err
			}

			svc := newService(cmd, service.SystemClock{})
			assessment, err := svc.AnalyzeSymptoms(cmd.Context(), symptoms)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, assessment)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "symptoms JSON file, - for stdin [REQUIRED]")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newCancerTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancer-types",
		Short: "List cancer rule sets and whether risk can be calculated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := newService(cmd, service.SystemClock{})
			return printJSON(cmd, svc.RiskEngine().CancerTypes())
		},
	}
}

func newService(cmd *cobra.Command, clock domain.Clock) *service.AssessmentService {
	return service.NewAssessmentService(getCLIContext(cmd).logger, service.AssessmentServiceOptions{
		Clock: clock,
	})
}

func clockFor(date string) (domain.Clock, error) {
	if date == "" {
		return service.SystemClock{}, nil
	}
	at, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid --now %q: expected YYYY-MM-DD", date)
	}
	return service.FixedClock{At: at}, nil
}

func decodeSymptoms(data []byte) ([]domain.SymptomData, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var symptoms []domain.SymptomData
		if err := json.Unmarshal(trimmed, &symptoms); err != nil {
			return nil, fmt.Errorf("invalid symptom list: %w", err)
		}
		return symptoms, nil
	}

	var wrapped struct {
		Symptoms []domain.SymptomData `json:"symptoms"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid symptom list: %w", err)
	}
	return wrapped.Symptoms, nil
}

// describe flattens validation errors into one line per field
func describe(err error) error {
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("invalid input:")
	for _, v := range verrs {
		fmt.Fprintf(&buf, "\n  %s: %s", v.Field, v.Message)
	}
	return errors.New(buf.String())
}
