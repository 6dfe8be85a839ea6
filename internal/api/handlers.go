package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/domain"
	"github.com/oncovista-opd-server/internal/feedback"
	"github.com/oncovista-opd-server/internal/middleware"
	"github.com/oncovista-opd-server/internal/service"
)

const (
	healthCheckTimeout = 2 * time.Second
	defaultPageLimit   = 50
)

// errorResponse is an APIError plus the individual field violations, if any
type errorResponse struct {
	*domain.APIError
	Errors domain.ValidationErrors `json:"errors,omitempty"`
}

type symptomsRequest struct {
	Symptoms []domain.SymptomData `json:"symptoms"`
}

type listResponse struct {
	Items  interface{} `json:"items"`
	Total  *int64      `json:"total,omitempty"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   s.deps.Version,
		"history":   s.deps.Service.HistoryEnabled(),
		"feedback":  s.deps.Feedback != nil,
		"checks":    checks,
	}
	if s.deps.Cache != nil {
		body["cache"] = s.deps.Cache.Stats()
	}
	c.JSON(code, body)
}

func (s *Server) handleCancerTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cancer_types": s.deps.Service.RiskEngine().CancerTypes(),
	})
}

func (s *Server) handleAssessRisk(c *gin.Context) {
	cancerType := domain.ParseCancerType(c.Param("cancerType"))
	if !s.deps.Service.RiskEngine().Supports(cancerType) {
		s.renderError(c, http.StatusUnprocessableEntity, domain.ErrUnsupportedCancerCode,
			"Unsupported cancer type", string(cancerType))
		return
	}

	var profile domain.PatientProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		s.renderError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid patient profile", err.Error())
		return
	}

	assessment, err := s.deps.Service.AssessRisk(c.Request.Context(), cancerType, &profile)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleAnalyzeSymptoms(c *gin.Context) {
	var req symptomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid symptom list", err.Error())
		return
	}

	assessment, err := s.deps.Service.AnalyzeSymptoms(c.Request.Context(), req.Symptoms)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	record, err := s.deps.Service.GetAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleListAssessments(c *gin.Context) {
	limit, offset, ok := s.pageParams(c)
	if !ok {
		return
	}
	kind := domain.AssessmentKind(c.DefaultQuery("kind", string(domain.KindRisk)))

	records, err := s.deps.Service.ListAssessments(c.Request.Context(), kind, limit, offset)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: records, Limit: limit, Offset: offset})
}

func (s *Server) handleAssessmentOutcomes(c *gin.Context) {
	kind := domain.AssessmentKind(c.DefaultQuery("kind", string(domain.KindRisk)))

	counts, err := s.deps.Service.OutcomeCounts(c.Request.Context(), kind)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "total": total, "outcomes": counts})
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	store, ok := s.feedbackStore(c)
	if !ok {
		return
	}

	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.renderError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid feedback", err.Error())
		return
	}

	// With history available the engine's verdict comes from the stored record
	if s.deps.Service.HistoryEnabled() {
		record, err := s.deps.Service.GetAssessment(c.Request.Context(), fb.AssessmentID)
		if err != nil {
			s.handleServiceError(c, err)
			return
		}
		fb.Kind = record.Kind
		fb.CancerType = record.CancerType
		fb.SuggestedOutcome = record.Outcome
	}

	if err := store.Save(c.Request.Context(), &fb); err != nil {
		s.handleServiceError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id": fb.AssessmentID,
		"kind":          fb.Kind,
		"agreed":        fb.Agreed,
	}).Info("Clinician feedback recorded")

	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleGetFeedback(c *gin.Context) {
	store, ok := s.feedbackStore(c)
	if !ok {
		return
	}

	fb, err := store.Get(c.Request.Context(), c.Param("assessmentId"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	if fb == nil {
		s.renderError(c, http.StatusNotFound, domain.ErrNotFoundCode, "No feedback for assessment", c.Param("assessmentId"))
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	store, ok := s.feedbackStore(c)
	if !ok {
		return
	}
	limit, offset, ok := s.pageParams(c)
	if !ok {
		return
	}

	entries, err := store.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	total, err := store.Count(c.Request.Context())
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: entries, Total: &total, Limit: limit, Offset: offset})
}

func (s *Server) handleFeedbackSummary(c *gin.Context) {
	store, ok := s.feedbackStore(c)
	if !ok {
		return
	}

	summary, err := store.Summary(c.Request.Context())
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) feedbackStore(c *gin.Context) (feedback.Store, bool) {
	if s.deps.Feedback == nil {
		s.renderError(c, http.StatusServiceUnavailable, domain.ErrServiceUnavailable, "Feedback store is not configured", "")
		return nil, false
	}
	return s.deps.Feedback, true
}

func (s *Server) pageParams(c *gin.Context) (limit, offset int, ok bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 0 {
		s.renderError(c, http.StatusBadRequest, domain.ErrInvalidInput, "limit must be a non-negative integer", c.Query("limit"))
		return 0, 0, false
	}
	// zero means "unspecified", never an empty page
	if limit == 0 {
		limit = defaultPageLimit
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.renderError(c, http.StatusBadRequest, domain.ErrInvalidInput, "offset must be a non-negative integer", c.Query("offset"))
		return 0, 0, false
	}
	return limit, offset, true
}

// handleServiceError maps service and store errors onto HTTP responses
func (s *Server) handleServiceError(c *gin.Context, err error) {
	var verrs domain.ValidationErrors
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verrs):
		s.renderValidation(c, verrs)
	case errors.As(err, &verr):
		s.renderValidation(c, domain.ValidationErrors{verr})
	case errors.Is(err, domain.ErrUnsupportedCancerType):
		s.renderError(c, http.StatusUnprocessableEntity, domain.ErrUnsupportedCancerCode, "Unsupported cancer type", err.Error())
	case errors.Is(err, domain.ErrInvalidAssessmentKind):
		s.renderError(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid assessment kind", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.renderError(c, http.StatusNotFound, domain.ErrNotFoundCode, "Assessment not found", err.Error())
	case errors.Is(err, service.ErrHistoryDisabled):
		s.renderError(c, http.StatusServiceUnavailable, domain.ErrServiceUnavailable, "Assessment history is not configured", "")
	case errors.Is(err, context.DeadlineExceeded):
		s.renderError(c, http.StatusServiceUnavailable, domain.ErrServiceUnavailable, "Request timed out", "")
	default:
		s.logger.WithFields(logrus.Fields{
			"path":           c.FullPath(),
			"correlation_id": c.GetString(middleware.CorrelationIDKey),
		}).WithError(err).Error("Request failed")
		s.renderError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Internal server error", "")
	}
}

func (s *Server) renderValidation(c *gin.Context, verrs domain.ValidationErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		APIError: domain.NewAPIError(domain.ErrValidation, "Input validation failed", verrs.Error(),
			c.GetString(middleware.CorrelationIDKey)),
		Errors: verrs,
	})
}

func (s *Server) renderError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, errorResponse{
		APIError: domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey)),
	})
}
