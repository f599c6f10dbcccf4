package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/docreader"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAPI substitutes the completion endpoint; it records the last request.
type stubAPI struct {
	resp goopenai.ChatCompletionResponse
	err  error
	last goopenai.ChatCompletionRequest
}

func (s *stubAPI) CreateChatCompletion(_ context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	s.last = req
	return s.resp, s.err
}

func newStubClient(api *stubAPI) *Client {
	return &Client{
		cfg: Config{
			Model:           "gpt-4o-mini",
			VisionModel:     "gpt-4o",
			DefaultCurrency: "PHP",
		},
		api:    api,
		logger: quietLogger(),
	}
}

func responseWith(content string) goopenai.ChatCompletionResponse {
	return goopenai.ChatCompletionResponse{
		Choices: []goopenai.ChatCompletionChoice{
			{Message: goopenai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestExtractFromTextParsesFencedJSON(t *testing.T) {
	api := &stubAPI{resp: responseWith("```json\n" +
		`{"invoice_number": "INV-7", "total_amount": "1,200.00", "currency": "PHP"}` +
		"\n```")}
	c := newStubClient(api)

	rec, err := c.ExtractFromText(context.Background(), "Invoice No: INV-7")
	require.NoError(t, err)

	require.NotNil(t, rec.InvoiceNumber)
	assert.Equal(t, "INV-7", *rec.InvoiceNumber)
	require.NotNil(t, rec.TotalAmount)
	assert.Equal(t, "1200.00", *rec.TotalAmount)

	assert.Equal(t, "gpt-4o-mini", api.last.Model)
	require.NotNil(t, api.last.ResponseFormat)
	assert.Equal(t, goopenai.ChatCompletionResponseFormatTypeJSONObject, api.last.ResponseFormat.Type)
	require.Len(t, api.last.Messages, 2)
	assert.Contains(t, api.last.Messages[0].Content, "invoice_number")
	assert.Contains(t, api.last.Messages[1].Content, "Invoice No: INV-7")
}

func TestExtractFromTextTransportError(t *testing.T) {
	c := newStubClient(&stubAPI{err: errors.New("connection refused")})

	_, err := c.ExtractFromText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExtractFromTextNoChoices(t *testing.T) {
	c := newStubClient(&stubAPI{resp: goopenai.ChatCompletionResponse{}})

	_, err := c.ExtractFromText(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestExtractFromTextNonJSONResponse(t *testing.T) {
	c := newStubClient(&stubAPI{resp: responseWith("I could not find any fields.")})

	_, err := c.ExtractFromText(context.Background(), "x")
	assert.Error(t, err)
}

func TestExtractFromBinarySendsDataURL(t *testing.T) {
	api := &stubAPI{resp: responseWith(`{"invoice_number": "INV-8"}`)}
	c := newStubClient(api)

	data := []byte("\x89PNG fake image bytes")
	_, err := c.ExtractFromBinary(context.Background(), data, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", api.last.Model)
	require.Len(t, api.last.Messages, 1)
	parts := api.last.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, goopenai.ChatMessagePartTypeText, parts[0].Type)
	assert.Equal(t, goopenai.ChatMessagePartTypeImageURL, parts[1].Type)

	wantPrefix := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)[:8]
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, wantPrefix))
}

func TestTextStrategyAbsorbsFailure(t *testing.T) {
	c := newStubClient(&stubAPI{err: errors.New("rate limited")})
	strat := NewTextStrategy(c)

	rec, err := strat.Extract(context.Background(), docreader.Document{Kind: constants.TEXT, Text: "x"})
	require.NoError(t, err)

	assert.Nil(t, rec.InvoiceNumber)
	assert.Contains(t, rec.RawTextPreview, "extraction failed:")
	assert.Contains(t, rec.RawTextPreview, "rate limited")
}

func TestTextStrategySetsPreview(t *testing.T) {
	c := newStubClient(&stubAPI{resp: responseWith(`{"invoice_number": "INV-9"}`)})
	strat := NewTextStrategy(c)

	rec, err := strat.Extract(context.Background(), docreader.Document{Kind: constants.TEXT, Text: "Invoice No: INV-9"})
	require.NoError(t, err)
	assert.Equal(t, "Invoice No: INV-9", rec.RawTextPreview)
	assert.Equal(t, "llm-text", strat.Name())
}

func TestVisionStrategyUsesPlaceholderPreview(t *testing.T) {
	c := newStubClient(&stubAPI{resp: responseWith(`{"invoice_number": "INV-10"}`)})
	strat := NewVisionStrategy(c)

	doc := docreader.Document{Kind: constants.IMAGE, Bytes: []byte{1, 2, 3}, MIME: "image/png"}
	rec, err := strat.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, constants.VisionPreviewPlaceholder, rec.RawTextPreview)
	assert.Equal(t, "llm-vision", strat.Name())
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "sk-test"}, nil)

	assert.Equal(t, "gpt-4o-mini", c.cfg.Model)
	assert.Equal(t, "gpt-4o", c.cfg.VisionModel)
	assert.Equal(t, constants.DefaultCurrency, c.cfg.DefaultCurrency)
	assert.NotNil(t, c.api)
}
