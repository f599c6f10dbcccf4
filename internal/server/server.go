// Package server is the thin HTTP surface: a single-page UI plus a small
// JSON API over the pipeline, the history store, and the export service.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/logiparse/logiparse/internal/common"
	"github.com/logiparse/logiparse/internal/export"
	"github.com/logiparse/logiparse/internal/history"
	"github.com/logiparse/logiparse/internal/pipeline"
)

type Server struct {
	logger *slog.Logger
	pipe   *pipeline.Pipeline
	store  *history.Store
	export *export.Service
	engine *gin.Engine
}

func New(pipe *pipeline.Pipeline, store *history.Store, exp *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		logger: logger,
		pipe:   pipe,
		store:  store,
		export: exp,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), cors.Default(), s.requestID())

	engine.GET("/", s.index)
	api := engine.Group("/api")
	{
		api.POST("/extract", s.extractText)
		api.POST("/extract/file", s.extractFile)
		api.GET("/history", s.listHistory)
		api.GET("/history/:id/export.json", s.downloadJSON)
		api.GET("/export.xlsx", s.downloadXLSX)
	}

	s.engine = engine
	return s
}

// Handler exposes the router so main can wrap it in an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

// requestID threads a per-request UUID through the context for pipeline logs.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := common.WithRequestID(c.Request.Context(), uuid.New().String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
