package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/logiparse/logiparse/internal/extract"
	"github.com/logiparse/logiparse/internal/llm"
)

// ExtractFromText runs the text model over already-extracted document text.
func (c *Client) ExtractFromText(ctx context.Context, text string) (extract.Record, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"mode", "text",
		"text_len", len(text),
	)

	req := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.BuildInstruction(c.cfg.DefaultCurrency)},
			{Role: goopenai.ChatMessageRoleUser, Content: llm.BuildTextPrompt(text)},
		},
	}

	return c.complete(ctx, rid, start, req)
}

// ExtractFromBinary runs the vision model over raw document bytes.
// The document travels as a base64 data URL image part.
func (c *Client) ExtractFromBinary(ctx context.Context, data []byte, mimeType string) (extract.Record, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.VisionModel,
		"mode", "vision",
		"mime", mimeType,
		"bytes", len(data),
	)

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	req := goopenai.ChatCompletionRequest{
		Model:       c.cfg.VisionModel,
		Temperature: c.cfg.Temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{
						Type: goopenai.ChatMessagePartTypeText,
						Text: llm.BuildInstruction(c.cfg.DefaultCurrency),
					},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: goopenai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}

	return c.complete(ctx, rid, start, req)
}

func (c *Client) complete(ctx context.Context, rid string, start time.Time, req goopenai.ChatCompletionRequest) (extract.Record, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Record{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Record{}, fmt.Errorf("no choices in openai response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	rec, err := llm.ParseResponse([]byte(content), c.logger)
	if err != nil {
		c.logger.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Record{}, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"invoice_number", deref(rec.InvoiceNumber),
		"total_amount", deref(rec.TotalAmount),
		"items", len(rec.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
