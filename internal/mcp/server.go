// Package mcp exposes the assessment engines and clinician feedback as Model
// Context Protocol tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/oncovista-opd-server/internal/feedback"
	"github.com/oncovista-opd-server/internal/service"
)

const defaultRequestTimeout = 30 * time.Second

// Options configures the MCP server
type Options struct {
	Name    string
	Version string

	// Feedback enables the feedback tools when set
	Feedback  feedback.Store
	ExportDir string

	RequestTimeout time.Duration
}

// Server represents the OncoVista OPD MCP server implementation
type Server struct {
	mcpServer *mcp.Server
	service   *service.AssessmentService
	feedback  feedback.Store
	exportDir string
	timeout   time.Duration
	tools     []string
	logger    *logrus.Logger
}

// NewServer creates a new MCP server and registers its tools
func NewServer(svc *service.AssessmentService, logger *logrus.Logger, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "oncovista-opd"
	}
	if opts.Version == "" {
		opts.Version = "v0.1.0"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	server := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		service:   svc,
		feedback:  opts.Feedback,
		exportDir: opts.ExportDir,
		timeout:   opts.RequestTimeout,
		logger:    logger,
	}
	server.registerTools()

	return server
}

// Tools lists the registered tool names in registration order
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"transport":  "stdio",
		"tool_count": len(s.tools),
	}).Info("Starting OncoVista OPD MCP server")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close releases the feedback store
func (s *Server) Close() error {
	if s.feedback == nil {
		return nil
	}
	return s.feedback.Close()
}

func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name:        toolCalculateRisk,
		Description: "Estimate lifetime cancer risk for a patient profile. Supported cancer types: breast, colon, lung. Returns risk category, contributing factors, recommendations and next assessment date.",
	}, s.handleCalculateRisk)

	addTool(s, &mcp.Tool{
		Name:        toolAnalyzeSymptoms,
		Description: "Analyze reported symptoms: red flags with urgency level, symptom clusters, ranked differential diagnosis, urgency score 0-100, recommended workup and specialist referral.",
	}, s.handleAnalyzeSymptoms)

	addTool(s, &mcp.Tool{
		Name:        toolListCancerTypes,
		Description: "List the cancer rule sets with their factor weights, category thresholds and whether risk can be calculated.",
	}, s.handleListCancerTypes)

	if s.feedback == nil {
		return
	}

	addTool(s, &mcp.Tool{
		Name:        toolSubmitFeedback,
		Description: "Record a clinician's verdict on an assessment: agree with the engine's risk category or urgency level, or override it.",
	}, s.handleSubmitFeedback)

	addTool(s, &mcp.Tool{
		Name:        toolQueryFeedback,
		Description: "Look up the clinician feedback recorded for one assessment.",
	}, s.handleQueryFeedback)

	addTool(s, &mcp.Tool{
		Name:        toolListFeedback,
		Description: "List recorded clinician feedback, newest first, with per-kind agreement rates.",
	}, s.handleListFeedback)

	addTool(s, &mcp.Tool{
		Name:        toolExportFeedback,
		Description: "Export all clinician feedback to a JSON file in the data directory.",
	}, s.handleExportFeedback)
}

// addTool registers a typed handler and bounds each call by the request timeout
func addTool[In any](s *Server, tool *mcp.Tool, handler func(context.Context, In) (*mcp.CallToolResult, error)) {
	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		start := time.Now()
		result, err := handler(ctx, in)

		entry := s.logger.WithFields(logrus.Fields{
			"tool":        tool.Name,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case err != nil:
			entry.WithError(err).Error("Tool failed")
		case result != nil && result.IsError:
			entry.Warn("Tool returned an error result")
		default:
			entry.Info("Tool completed")
		}
		return result, nil, err
	})

	s.tools = append(s.tools, tool.Name)
	s.logger.WithField("tool_name", tool.Name).Debug("Registered MCP tool")
}
