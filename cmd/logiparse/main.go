// Command logiparse runs one extraction from the command line and prints the
// export payload to stdout. It exits non-zero when the input cannot be read;
// an extraction that merely fails validation still prints and exits zero.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/logiparse/logiparse/internal/common"
	"github.com/logiparse/logiparse/internal/docreader"
	"github.com/logiparse/logiparse/internal/export"
	"github.com/logiparse/logiparse/internal/extract"
	"github.com/logiparse/logiparse/internal/llm/openai"
	"github.com/logiparse/logiparse/internal/pipeline"
)

func main() {
	var (
		filePath = flag.String("file", "", "path to a PDF, JPG, JPEG or PNG document")
		text     = flag.String("text", "", "inline document text (alternative to -file)")
		mode     = flag.String("mode", "pattern", "extraction mode: pattern, text, or vision")
		compact  = flag.Bool("compact", false, "print compact JSON instead of indented")
		verbose  = flag.Bool("v", false, "log pipeline progress to stderr")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if (*filePath == "") == (*text == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -text is required")
		flag.Usage()
		os.Exit(2)
	}

	common.LoadDotenv(logger)
	cfg := common.LoadConfig()

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
	}

	pipe := pipeline.New(logger, reader, patternStrat, textStrat, visionStrat)

	src := docreader.Source{Text: *text, Path: *filePath}
	env, err := pipe.Process(context.Background(), src, pipeline.Mode(*mode))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logiparse: %v\n", err)
		os.Exit(1)
	}

	out, err := export.JSON(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logiparse: %v\n", err)
		os.Exit(1)
	}
	if *compact {
		var buf bytes.Buffer
		if err := json.Compact(&buf, out); err == nil {
			out = buf.Bytes()
		}
	}
	fmt.Println(string(out))
}
