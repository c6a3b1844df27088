package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/nutriscreen/rag"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type assessRequest struct {
	PatientInfo string `json:"patient_info"`
	FileID      string `json:"file_id,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	K           int    `json:"k,omitempty"`
	TopN        int    `json:"top_n,omitempty"`
}

type answerRequest struct {
	Question string `json:"question"`
	FileID   string `json:"file_id,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	K        int    `json:"k,omitempty"`
	TopN     int    `json:"top_n,omitempty"`
}

// requestStrategies are the entry points a caller may select. Empty means
// the full pipeline.
var requestStrategies = map[string]bool{
	"":             true,
	"vector":       true,
	"lexical":      true,
	"hybrid":       true,
	"multi_rerank": true,
}

type ingestRequest struct {
	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

func (s *Server) handleAssess(c echo.Context) error {
	var req assessRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.PatientInfo) == "" {
		return badRequest(c, "patient_info is required")
	}
	if !requestStrategies[req.Strategy] {
		return badRequest(c, "unknown strategy "+req.Strategy)
	}

	result, err := s.Engine.Assess(c.Request().Context(), &rag.AssessRequest{
		PatientInfo: req.PatientInfo,
		FileID:      req.FileID,
		Strategy:    req.Strategy,
		K:           req.K,
		TopN:        req.TopN,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnswer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return badRequest(c, "question is required")
	}
	if !requestStrategies[req.Strategy] {
		return badRequest(c, "unknown strategy "+req.Strategy)
	}

	result, err := s.Engine.Answer(c.Request().Context(), &rag.AnswerRequest{
		Question: req.Question,
		FileID:   req.FileID,
		Strategy: req.Strategy,
		K:        req.K,
		TopN:     req.TopN,
	})
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleIngest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return badRequest(c, "content is required")
	}

	chunks := rag.SplitChunks(req.Content, 500)
	stored, err := s.Engine.IngestFile(c.Request().Context(), req.FileID, req.FileName, chunks)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"file_name": req.FileName,
		"chunks":    stored,
	})
}

func (s *Server) handleRefresh(c echo.Context) error {
	if err := s.Engine.RefreshIndex(c.Request().Context()); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: message})
}

// engineError maps typed engine errors to HTTP responses. Model-output
// failures surface as bad gateway: the service is fine, the upstream
// model misbehaved.
func engineError(c echo.Context, err error) error {
	var (
		notFound   *rag.NotFoundError
		noEvidence *rag.NoEvidenceError
		badConfig  *rag.ConfigurationError
		malformed  *rag.MalformedOutputError
		invalid    *rag.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, errorResponse{Code: "file_not_found", Message: err.Error()})
	case errors.As(err, &noEvidence):
		return c.JSON(http.StatusNotFound, errorResponse{Code: "no_evidence", Message: err.Error()})
	case errors.As(err, &badConfig):
		return c.JSON(http.StatusInternalServerError, errorResponse{Code: "configuration", Message: err.Error()})
	case errors.As(err, &malformed):
		return c.JSON(http.StatusBadGateway, errorResponse{Code: "malformed_output", Message: err.Error()})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadGateway, errorResponse{Code: "invalid_score", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Code: "timeout", Message: "request timed out"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Code: "internal", Message: err.Error()})
	}
}
