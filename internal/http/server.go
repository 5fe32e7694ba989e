// Package http provides the HTTP API for ragd.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/extraction"
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/registry"
)

// Server provides HTTP endpoints for ragd.
type Server struct {
	echo     *echo.Echo
	registry *registry.Registry
	rag      *rag.Service
	logger   *zap.Logger
	config   *config.Config
}

// NewServer creates a new HTTP server.
func NewServer(reg *registry.Registry, ragService *rag.Service, logger *zap.Logger, cfg *config.Config) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if ragService == nil {
		return nil, fmt.Errorf("rag service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		registry: reg,
		rag:      ragService,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// Echo returns the underlying echo instance for extra route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/upload", s.handleUpload)
	api.POST("/chat", s.handleChat)
	api.POST("/questions", s.handleQuestions)
	api.GET("/collections", s.handleListCollections)
	api.DELETE("/collections/:id", s.handleDeleteCollection)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleUpload ingests an uploaded document: the file is spooled to a
// temporary path, extracted, chunked, and indexed into a new collection.
func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open uploaded file")
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "ragd-upload-*")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}
	if err := tmp.Close(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot spool upload")
	}

	text, err := extraction.ExtractText(tmpPath)
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("error processing document: %v", err))
	}

	chunks, err := chunker.SplitAll(
		[]chunker.Document{{Source: fileHeader.Filename, Content: text}},
		s.config.Chunking.Size,
		s.config.Chunking.Overlap,
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("error processing document: %v", err))
	}

	collectionID, err := s.registry.Create(c.Request().Context(), chunks)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("error processing document: %v", err))
	}

	return c.JSON(http.StatusOK, UploadResponse{
		CollectionID: collectionID,
		Filename:     fileHeader.Filename,
		ChunksCount:  len(chunks),
		Message:      "document uploaded and indexed successfully",
	})
}

// handleChat streams a grounded chat completion as plain text fragments.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserMessage == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_message field is required")
	}

	ctx := c.Request().Context()
	fragments, err := s.rag.Chat(ctx, req.DeveloperMessage, req.UserMessage, req.CollectionID, req.Model)
	if err != nil {
		s.logger.Error("chat generation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	resp.WriteHeader(http.StatusOK)

	for fragment := range fragments {
		if fragment.Err != nil {
			// The status line is already on the wire; all we can do is log
			// and cut the stream short.
			s.logger.Error("chat stream aborted", zap.Error(fragment.Err))
			return nil
		}
		if _, err := io.WriteString(resp, fragment.Text); err != nil {
			return nil
		}
		resp.Flush()
	}

	return nil
}

// handleQuestions generates a structured question set for a topic.
func (s *Server) handleQuestions(c echo.Context) error {
	var req QuestionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Topic == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic field is required")
	}
	if req.QuestionCount <= 0 {
		req.QuestionCount = 5
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}

	result, err := s.rag.GenerateQuestions(c.Request().Context(), rag.QuestionRequest{
		Topic:         req.Topic,
		CollectionID:  req.CollectionID,
		QuestionCount: req.QuestionCount,
		Difficulty:    req.Difficulty,
		QuestionTypes: req.QuestionTypes,
		Model:         req.Model,
	})
	if err != nil {
		s.logger.Error("question generation failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, result)
}

// handleListCollections lists all registered collections.
func (s *Server) handleListCollections(c echo.Context) error {
	return c.JSON(http.StatusOK, CollectionsResponse{Collections: s.registry.List()})
}

// handleDeleteCollection deletes one collection by identifier.
func (s *Server) handleDeleteCollection(c echo.Context) error {
	id := c.Param("id")
	if err := s.registry.Delete(id); err != nil {
		if errors.Is(err, registry.ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "collection not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, DeleteResponse{Message: "collection deleted successfully"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
