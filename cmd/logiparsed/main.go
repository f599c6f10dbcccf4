// Command logiparsed runs the extraction web server: the single-page UI,
// the JSON API, and the XLSX/JSON exports.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/logiparse/logiparse/internal/common"
	"github.com/logiparse/logiparse/internal/docreader"
	"github.com/logiparse/logiparse/internal/export"
	"github.com/logiparse/logiparse/internal/extract"
	"github.com/logiparse/logiparse/internal/history"
	"github.com/logiparse/logiparse/internal/llm/openai"
	"github.com/logiparse/logiparse/internal/pipeline"
	"github.com/logiparse/logiparse/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	common.LoadDotenv(logger)
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	store, err := history.Open(cfg.History.Path, logger)
	if err != nil {
		logger.Error("history.open_failed", "path", cfg.History.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	reader := docreader.New(logger)
	patternStrat := extract.NewPatternStrategy()
	patternStrat.DefaultCurrency = cfg.Extract.DefaultCurrency
	patternStrat.DefaultWeightUnit = cfg.Extract.DefaultWeightUnit

	var textStrat, visionStrat extract.Strategy
	if cfg.LLM.APIKey != "" {
		client := openai.NewClient(openai.Config{
			APIKey:          cfg.LLM.APIKey,
			BaseURL:         cfg.LLM.BaseURL,
			Model:           cfg.LLM.Model,
			VisionModel:     cfg.LLM.VisionModel,
			Temperature:     cfg.LLM.Temperature,
			Timeout:         cfg.LLM.Timeout,
			DefaultCurrency: cfg.Extract.DefaultCurrency,
		}, logger)
		textStrat = openai.NewTextStrategy(client)
		visionStrat = openai.NewVisionStrategy(client)
		logger.Info("llm.enabled", "model", cfg.LLM.Model, "vision_model", cfg.LLM.VisionModel)
	} else {
		logger.Info("llm.disabled", "reason", "OPENAI_API_KEY not set")
	}

	pipe := pipeline.New(logger, reader, patternStrat, textStrat, visionStrat)
	srv := server.New(pipe, store, export.NewService(store, logger), logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server.listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server.stopped")
}
