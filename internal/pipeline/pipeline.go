// Package pipeline sequences Read → Extract → Validate and wraps the result
// in one envelope. A failure inside extraction is absorbed, never propagated:
// for well-formed input the pipeline always terminates with a ResultEnvelope.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/common"
	"github.com/logiparse/logiparse/internal/docreader"
	"github.com/logiparse/logiparse/internal/extract"
	"github.com/logiparse/logiparse/internal/validate"
)

// Mode selects the extraction strategy family.
type Mode string

const (
	ModePattern Mode = "pattern"
	ModeText    Mode = "text"
	ModeVision  Mode = "vision"
)

// Metadata describes one pipeline run.
type Metadata struct {
	ProcessedAt time.Time            `json:"processed_at"`
	SourceType  constants.SourceType `json:"source_type"`
	Strategy    string               `json:"strategy"`
}

// ResultEnvelope is the single output consumed by the UI, CLI, and exports.
type ResultEnvelope struct {
	Metadata         Metadata        `json:"metadata"`
	ExtractedData    extract.Record  `json:"extracted_data"`
	ValidationReport validate.Report `json:"validation_report"`
}

// Pipeline wires the reader to the configured strategies. Delegated
// strategies may be nil when no API key is configured; the pattern strategy
// is always present.
type Pipeline struct {
	logger  *slog.Logger
	reader  *docreader.Reader
	pattern extract.Strategy
	text    extract.Strategy
	vision  extract.Strategy
}

func New(logger *slog.Logger, reader *docreader.Reader, pattern, text, vision extract.Strategy) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:  logger,
		reader:  reader,
		pattern: pattern,
		text:    text,
		vision:  vision,
	}
}

// Process runs one document through the pipeline. Only reader errors
// (unsupported format, unreadable file) escape; everything downstream lands
// in the envelope.
func (p *Pipeline) Process(ctx context.Context, src docreader.Source, mode Mode) (ResultEnvelope, error) {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
		ctx = common.WithRequestID(ctx, reqID)
	}
	start := time.Now()

	kind, err := src.ResolveKind()
	if err != nil {
		return ResultEnvelope{}, err
	}

	strat, wantBinary := p.resolve(kind, mode)
	if strat == nil {
		return ResultEnvelope{}, common.NewAppError("STRATEGY_UNAVAILABLE",
			"delegated extraction is not configured (missing API key)", common.ErrInvalidInput)
	}

	var doc docreader.Document
	if wantBinary {
		doc, err = p.reader.ReadBinary(ctx, src)
	} else {
		doc, err = p.reader.ReadText(ctx, src)
	}
	if err != nil {
		return ResultEnvelope{}, err
	}

	p.logger.Info("pipeline.extract.start",
		"req_id", reqID, "source_type", kind, "strategy", strat.Name())

	rec, err := strat.Extract(ctx, doc)
	if err != nil {
		// Strategies absorb their own failures; this is a safety net.
		p.logger.Error("pipeline.extract.failed",
			"req_id", reqID, "strategy", strat.Name(), "error", err)
		rec = extract.FailureRecord(err)
	}

	report := validate.Validate(rec)

	env := ResultEnvelope{
		Metadata: Metadata{
			ProcessedAt: time.Now().UTC(),
			SourceType:  kind,
			Strategy:    strat.Name(),
		},
		ExtractedData:    rec,
		ValidationReport: report,
	}

	p.logger.Info("pipeline.done",
		"req_id", reqID,
		"source_type", kind,
		"strategy", strat.Name(),
		"status", report.Status,
		"coverage", report.FieldCoverage,
		"items", len(rec.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return env, nil
}

// resolve picks the strategy for a source kind and requested mode, and
// reports whether the reader should produce bytes instead of text.
// Images always go to vision: there is no deterministic path for pixels.
func (p *Pipeline) resolve(kind constants.SourceType, mode Mode) (extract.Strategy, bool) {
	if kind == constants.IMAGE {
		return p.vision, true
	}
	switch mode {
	case ModeVision:
		if kind == constants.PDF {
			return p.vision, true
		}
		// Inline text has no binary form; fall back to the text model.
		return p.text, false
	case ModeText:
		return p.text, false
	default:
		return p.pattern, false
	}
}
