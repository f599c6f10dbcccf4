package openai

import (
	"context"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/docreader"
	"github.com/logiparse/logiparse/internal/extract"
)

// TextStrategy delegates extraction of plain text to the text model.
// Failures degrade to an all-null record; they never escape this boundary,
// so the pipeline can still produce a validation report.
type TextStrategy struct {
	client *Client
}

func NewTextStrategy(c *Client) *TextStrategy { return &TextStrategy{client: c} }

func (s *TextStrategy) Name() string { return "llm-text" }

func (s *TextStrategy) Extract(ctx context.Context, doc docreader.Document) (extract.Record, error) {
	rec, err := s.client.ExtractFromText(ctx, doc.Text)
	if err != nil {
		return extract.FailureRecord(err), nil
	}
	rec.RawTextPreview = extract.Preview(doc.Text)
	return rec, nil
}

// VisionStrategy delegates extraction of raw PDF/image bytes to the vision
// model. Same degradation contract as TextStrategy.
type VisionStrategy struct {
	client *Client
}

func NewVisionStrategy(c *Client) *VisionStrategy { return &VisionStrategy{client: c} }

func (s *VisionStrategy) Name() string { return "llm-vision" }

func (s *VisionStrategy) Extract(ctx context.Context, doc docreader.Document) (extract.Record, error) {
	rec, err := s.client.ExtractFromBinary(ctx, doc.Bytes, doc.MIME)
	if err != nil {
		return extract.FailureRecord(err), nil
	}
	rec.RawTextPreview = constants.VisionPreviewPlaceholder
	return rec, nil
}
