// Package openai implements delegated extraction over the OpenAI
// chat-completions API, in text and vision variants.
package openai

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/logiparse/logiparse/constants"
)

// Config for the OpenAI client.
type Config struct {
	APIKey          string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL         string        // default https://api.openai.com/v1
	Model           string        // text model, e.g. "gpt-4o-mini"
	VisionModel     string        // vision model, e.g. "gpt-4o"
	Temperature     float32       // 0..2
	Timeout         time.Duration // http client timeout
	DefaultCurrency string        // forwarded into the instruction
}

// Client calls the completion API and parses responses into records.
type Client struct {
	cfg    Config
	api    completionAPI
	logger *slog.Logger
}

// completionAPI is the slice of go-openai the client needs; tests stub it.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = constants.DefaultCurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	occ := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		occ.BaseURL = cfg.BaseURL
	}
	occ.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		cfg:    cfg,
		api:    goopenai.NewClientWithConfig(occ),
		logger: logger,
	}
}
