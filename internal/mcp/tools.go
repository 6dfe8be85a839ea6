package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oncovista-opd-server/internal/domain"
	"github.com/oncovista-opd-server/internal/feedback"
)

const (
	toolCalculateRisk   = "calculate_cancer_risk"
	toolAnalyzeSymptoms = "analyze_symptoms"
	toolListCancerTypes = "list_supported_cancer_types"
	toolSubmitFeedback  = "submit_feedback"
	toolQueryFeedback   = "query_feedback"
	toolListFeedback    = "list_feedback"
	toolExportFeedback  = "export_feedback"
)

// calculateRiskInput keeps the profile untyped so partially filled profiles
// are accepted; it is decoded into domain.PatientProfile by the handler.
type calculateRiskInput struct {
	CancerType string         `json:"cancer_type" jsonschema:"cancer type: breast, colon or lung"`
	Profile    map[string]any `json:"profile" jsonschema:"patient profile with demographics, familyHistory, lifestyle, medical, environmental and genetic sections"`
}

type analyzeSymptomsInput struct {
	Symptoms []domain.SymptomData `json:"symptoms" jsonschema:"reported symptoms; severity and functionalImpact are on a 0-10 scale"`
}

type listCancerTypesInput struct{}

type submitFeedbackInput struct {
	AssessmentID     string `json:"assessment_id" jsonschema:"id of the assessment being reviewed"`
	Kind             string `json:"kind" jsonschema:"risk or symptom"`
	CancerType       string `json:"cancer_type,omitempty" jsonschema:"cancer type of a risk assessment"`
	SuggestedOutcome string `json:"suggested_outcome" jsonschema:"the engine's risk category or urgency level"`
	ClinicianOutcome string `json:"clinician_outcome" jsonschema:"the clinician's risk category or urgency level"`
	Notes            string `json:"notes,omitempty" jsonschema:"free-text reasoning"`
}

type queryFeedbackInput struct {
	AssessmentID string `json:"assessment_id" jsonschema:"id of the assessment"`
}

type listFeedbackInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum entries to return, default 20"`
	Offset int `json:"offset,omitempty" jsonschema:"entries to skip"`
}

type exportFeedbackInput struct{}

func (s *Server) handleCalculateRisk(ctx context.Context, in calculateRiskInput) (*mcp.CallToolResult, error) {
	cancerType := domain.ParseCancerType(in.CancerType)
	if !s.service.RiskEngine().Supports(cancerType) {
		return errorResult("unsupported cancer type %q: supported types are breast, colon and lung", in.CancerType), nil
	}

	var profile domain.PatientProfile
	raw, err := json.Marshal(in.Profile)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return errorResult("invalid patient profile: %v", err), nil
	}

	assessment, err := s.service.AssessRisk(ctx, cancerType, &profile)
	if err != nil {
		return s.serviceErrorResult(err)
	}
	return jsonResult(assessment)
}

func (s *Server) handleAnalyzeSymptoms(ctx context.Context, in analyzeSymptomsInput) (*mcp.CallToolResult, error) {
	assessment, err := s.service.AnalyzeSymptoms(ctx, in.Symptoms)
	if err != nil {
		return s.serviceErrorResult(err)
	}
	return jsonResult(assessment)
}

func (s *Server) handleListCancerTypes(_ context.Context, _ listCancerTypesInput) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"cancer_types": s.service.RiskEngine().CancerTypes(),
	})
}

func (s *Server) handleSubmitFeedback(ctx context.Context, in submitFeedbackInput) (*mcp.CallToolResult, error) {
	fb := &feedback.Feedback{
		AssessmentID:     in.AssessmentID,
		Kind:             domain.AssessmentKind(in.Kind),
		CancerType:       in.CancerType,
		SuggestedOutcome: in.SuggestedOutcome,
		ClinicianOutcome: in.ClinicianOutcome,
		Notes:            in.Notes,
	}

	if s.service.HistoryEnabled() {
		record, err := s.service.GetAssessment(ctx, in.AssessmentID)
		if err != nil {
			return s.serviceErrorResult(err)
		}
		fb.Kind = record.Kind
		fb.CancerType = record.CancerType
		fb.SuggestedOutcome = record.Outcome
	}

	if err := s.feedback.Save(ctx, fb); err != nil {
		return s.serviceErrorResult(err)
	}

	message := "Feedback recorded: clinician overrides the engine outcome"
	if fb.Agreed {
		message = "Feedback recorded: clinician agrees with the engine outcome"
	}
	return jsonResult(map[string]any{
		"success":  true,
		"message":  message,
		"feedback": fb,
	})
}

func (s *Server) handleQueryFeedback(ctx context.Context, in queryFeedbackInput) (*mcp.CallToolResult, error) {
	fb, err := s.feedback.Get(ctx, in.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	if fb == nil {
		return jsonResult(map[string]any{
			"found":   false,
			"message": fmt.Sprintf("No feedback recorded for assessment %s", in.AssessmentID),
		})
	}
	return jsonResult(map[string]any{
		"found":    true,
		"feedback": fb,
	})
}

func (s *Server) handleListFeedback(ctx context.Context, in listFeedbackInput) (*mcp.CallToolResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(in.Offset, 0)

	entries, err := s.feedback.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	total, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting feedback: %w", err)
	}
	summary, err := s.feedback.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("summarizing feedback: %w", err)
	}

	return jsonResult(map[string]any{
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"feedback": entries,
		"summary":  summary,
	})
}

func (s *Server) handleExportFeedback(ctx context.Context, _ exportFeedbackInput) (*mcp.CallToolResult, error) {
	if s.exportDir == "" {
		return errorResult("feedback export is not configured"), nil
	}
	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(s.exportDir, fmt.Sprintf("feedback-%s.json", time.Now().UTC().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := s.feedback.ExportJSON(ctx, f); err != nil {
		return nil, fmt.Errorf("exporting feedback: %w", err)
	}
	count, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting feedback: %w", err)
	}

	return jsonResult(map[string]any{
		"success": true,
		"path":    path,
		"count":   count,
	})
}

// serviceErrorResult turns caller mistakes into tool error results the model
// can act on. Anything else is returned as a protocol error.
func (s *Server) serviceErrorResult(err error) (*mcp.CallToolResult, error) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return errorResult("validation failed: %s", verrs.Error()), nil
	case errors.Is(err, domain.ErrUnsupportedCancerType),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidAssessmentKind):
		return errorResult("%v", err), nil
	default:
		return nil, err
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
